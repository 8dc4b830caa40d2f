package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Daily   RecurrenceType = "daily"
	Weekly  RecurrenceType = "weekly"
	Monthly RecurrenceType = "monthly"
	Yearly  RecurrenceType = "yearly"
	Custom  RecurrenceType = "custom" // every Interval months
)

type (
	RecurrenceType string

	// RecurringTemplate describes an expense that repeats. Occurrences are
	// materialized into regular records whose ParentID is the template ID.
	RecurringTemplate struct {
		ID          string          `json:"id,omitempty"`
		StartDate   Date            `json:"date"`
		Category    string          `json:"category"`
		SubCategory string          `json:"subCategory"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Type        RecurrenceType  `json:"recurrenceType"`
		Interval    int             `json:"recurrenceInterval"`
		EndDate     Date            `json:"recurrenceEndDate"`
	}
)

// ParseRecurrenceType accepts the type in any case ("MONTHLY", "monthly").
func ParseRecurrenceType(s string) (RecurrenceType, error) {
	t := RecurrenceType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case Daily, Weekly, Monthly, Yearly, Custom:
		return t, nil
	}
	return "", fmt.Errorf("%w: type %q", ErrInvalidRecurrence, s)
}

func (t *RecurrenceType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRecurrence, string(b))
	}
	parsed, err := ParseRecurrenceType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (rt RecurringTemplate) Validate() error {
	if err := rt.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.StartDate.Time) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidRecurrence)
	}
	if _, err := ParseRecurrenceType(string(rt.Type)); err != nil {
		return err
	}
	if rt.Interval < 1 {
		return fmt.Errorf("%w: interval must be at least 1", ErrInvalidRecurrence)
	}
	if strings.TrimSpace(rt.Category) == "" {
		return ErrEmptyCategory
	}
	if rt.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Occurrence builds the record for a generated occurrence on date d.
func (rt RecurringTemplate) Occurrence(d Date) ExpenseRecord {
	return ExpenseRecord{
		Date:        d,
		Category:    rt.Category,
		SubCategory: rt.SubCategory,
		Description: rt.Description,
		Amount:      rt.Amount,
		ParentID:    rt.ID,
	}
}

func (rt RecurringTemplate) MarshalJSON() ([]byte, error) {
	type alias RecurringTemplate
	return json.Marshal(struct {
		alias
		Amount      json.Number `json:"amount"`
		IsRecurring bool        `json:"isRecurring"`
	}{alias(rt), AmountNumber(rt.Amount), true})
}

// Category is a spending category with its known subcategories.
type Category struct {
	ID            string   `json:"id,omitempty"`
	Name          string   `json:"name"`
	SubCategories []string `json:"subCategories"`
}
