package csvfile

import (
	"bufio"
	"io"
	"strings"

	"expensetracker/internal/core"
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Write serializes records in the format Parse reads. Text columns are
// always quoted with embedded quotes doubled, date and amount are bare.
// Line breaks inside text become spaces since the reader is line based.
func Write(w io.Writer, records []core.ExpenseRecord) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(Columns, ",") + "\n"); err != nil {
		return err
	}
	for _, r := range records {
		row := strings.Join([]string{
			r.Date.String(),
			quote(r.Category),
			quote(r.SubCategory),
			quote(r.Description),
			core.FormatAmount(r.Amount),
		}, ",")
		if _, err := bw.WriteString(row + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Export returns the CSV text for records.
func Export(records []core.ExpenseRecord) string {
	var sb strings.Builder
	_ = Write(&sb, records) // strings.Builder never fails
	return sb.String()
}

// FileName is the suggested download name for an export of f.
func FileName(f core.Filter) string {
	switch {
	case f.Month != 0:
		return "expenses-" + core.YearMonth{Year: f.Year, Month: f.Month}.String() + ".csv"
	case f.Year != 0:
		return "expenses-" + core.NewDate(f.Year, 1, 1).Format("2006") + ".csv"
	}
	return "expenses.csv"
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(lineBreaks.Replace(s), `"`, `""`) + `"`
}
