package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date format used on every boundary.
const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	// ExpenseRecord is a single spending entry. ID is assigned by the backend
	// and stays empty until the record has been persisted.
	ExpenseRecord struct {
		ID          string          `json:"id,omitempty"`
		Date        Date            `json:"date"`
		Category    string          `json:"category"`
		SubCategory string          `json:"subCategory"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		ParentID    string          `json:"parentId,omitempty"` // recurring template that produced it
	}

	// IdentityKey is the composite key used to detect duplicate records.
	IdentityKey string
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Out of range days such as
// 2025-02-30 are rejected rather than normalized.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	return nil
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// YearMonth returns the calendar month the date falls in.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// AddMonths moves the date n months forward, clamping the day to the last
// day of the target month (Jan 31 + 1 month = Feb 28).
func (d Date) AddMonths(n int) Date {
	y, m, day := d.Year(), d.Month()-1+n, d.Day()
	y += m / 12
	m %= 12
	if m < 0 {
		m += 12
		y--
	}
	if last := daysIn(y, m+1); day > last {
		day = last
	}
	return NewDate(y, m+1, day)
}

// AddDays moves the date n days forward.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		if string(b) == "null" {
			*d = Date{}
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NewExpenseRecord builds a record and validates it. Records coming from
// files or requests go through here so invalid values never reach the
// deduplicator or the store.
func NewExpenseRecord(date Date, category, subCategory, description string, amount decimal.Decimal) (ExpenseRecord, error) {
	r := ExpenseRecord{
		Date:        date,
		Category:    category,
		SubCategory: subCategory,
		Description: description,
		Amount:      amount,
	}
	if err := r.Validate(); err != nil {
		return ExpenseRecord{}, err
	}
	return r, nil
}

func (r ExpenseRecord) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if r.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Key returns the identity key of the record. The id is not part of it.
func (r ExpenseRecord) Key() IdentityKey {
	const sep = "\x1f"
	return IdentityKey(strings.Join([]string{
		r.Date.String(),
		r.Category,
		r.SubCategory,
		r.Amount.String(),
		r.Description,
	}, sep))
}

// MarshalJSON writes the amount as a JSON number, which is what the
// backend API speaks. Both numbers and strings are accepted on decode.
func (r ExpenseRecord) MarshalJSON() ([]byte, error) {
	type alias ExpenseRecord
	return json.Marshal(struct {
		alias
		Amount json.Number `json:"amount"`
	}{alias(r), AmountNumber(r.Amount)})
}
