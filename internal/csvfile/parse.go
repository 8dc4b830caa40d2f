// Package csvfile reads and writes the expense CSV format:
//
//	Date,Category,Subcategory,Description,Amount
//	2025-03-14,"Food","Groceries","market",12.50
//
// The reader is deliberately lenient. Lines are split on newlines, fields on
// commas outside double quotes, and quote characters are dropped from values.
// A bad line is reported and skipped, only a bad header aborts.
package csvfile

import (
	"io"
	"strings"

	"expensetracker/internal/core"
)

// Columns is the header written by Export, in order.
var Columns = []string{"Date", "Category", "Subcategory", "Description", "Amount"}

const bom = "\ufeff"

// Result is the outcome of parsing a file.
type Result struct {
	Records []core.ExpenseRecord
	Errors  []*core.RowParseError
}

// Read parses everything r yields.
func Read(r io.Reader) (Result, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Result{}, err
	}
	return Parse(string(b))
}

// Parse turns file text into candidate records. Structural problems with the
// header return a *core.FormatError before any row is looked at; problems
// with a single row are collected in Result.Errors.
func Parse(text string) (Result, error) {
	text = strings.TrimPrefix(text, bom)
	lines := strings.Split(text, "\n")

	headerAt := -1
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return Result{}, &core.FormatError{Reason: "file is empty"}
	}

	cols, err := mapHeader(splitFields(strings.TrimSuffix(lines[headerAt], "\r")))
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i := headerAt + 1; i < len(lines); i++ {
		line := strings.TrimSuffix(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, rowErr := cols.record(splitFields(line), i+1)
		if rowErr != nil {
			res.Errors = append(res.Errors, rowErr)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

type columns struct {
	date, category, subCategory, description, amount int
}

func mapHeader(cells []string) (columns, error) {
	index := make(map[string]int, len(cells))
	for i, c := range cells {
		name := strings.ToLower(c)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := index[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}
	cols := columns{
		date:        lookup("Date"),
		category:    lookup("Category"),
		subCategory: lookup("Subcategory"),
		description: lookup("Description"),
		amount:      lookup("Amount"),
	}
	if len(missing) > 0 {
		return columns{}, &core.FormatError{Missing: missing}
	}
	return cols, nil
}

func (c columns) record(fields []string, line int) (core.ExpenseRecord, *core.RowParseError) {
	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	rawDate, category, rawAmount := get(c.date), get(c.category), get(c.amount)

	switch {
	case rawDate == "":
		return core.ExpenseRecord{}, &core.RowParseError{Line: line, Field: "date", Err: core.ErrEmptyField}
	case strings.TrimSpace(category) == "":
		return core.ExpenseRecord{}, &core.RowParseError{Line: line, Field: "category", Err: core.ErrEmptyField}
	case rawAmount == "":
		return core.ExpenseRecord{}, &core.RowParseError{Line: line, Field: "amount", Err: core.ErrEmptyField}
	}

	amount, err := core.ParseAmount(rawAmount)
	if err != nil {
		return core.ExpenseRecord{}, &core.RowParseError{Line: line, Field: "amount", Err: err}
	}
	date, err := core.ParseDate(rawDate)
	if err != nil {
		return core.ExpenseRecord{}, &core.RowParseError{Line: line, Field: "date", Err: err}
	}
	rec, err := core.NewExpenseRecord(date, category, get(c.subCategory), get(c.description), amount)
	if err != nil {
		return core.ExpenseRecord{}, &core.RowParseError{Line: line, Err: err}
	}
	return rec, nil
}

// splitFields splits a line on commas that are not inside double quotes.
// Every quote flips the in-quotes state, so an escaped "" is two flips and
// keeps the state unchanged. Padding outside quotes is trimmed and all quote
// characters are removed from the value.
func splitFields(line string) []string {
	var (
		fields   []string
		start    int
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				fields = append(fields, cleanField(line[start:i]))
				start = i + 1
			}
		}
	}
	return append(fields, cleanField(line[start:]))
}

func cleanField(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), `"`, "")
}
