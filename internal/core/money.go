// Package core provides the expense domain: records, dates, amounts,
// filters, summaries and the error taxonomy shared by every layer.
//
// This file contains helpers for parsing and formatting monetary amounts.
package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a textual amount into a decimal.
//
// Only plain dot-separated numbers are accepted ("12", "12.5", "0.99").
// Locale formatted values such as "12,50" or "1.234,00" are rejected.
// Negative values return ErrNegativeAmount so callers can tell them apart
// from malformed numbers.
//
// Examples:
//
//	ParseAmount("12.50") -> 12.5, nil
//	ParseAmount("-3")    -> 0, ErrNegativeAmount
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyField
	}
	if strings.ContainsAny(s, ", ") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// FormatAmount renders an amount in canonical form, the same string the
// identity key uses.
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}

// AmountNumber renders an amount as a JSON number literal.
func AmountNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// Sum adds up the amounts of the given records.
func Sum(records []ExpenseRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}
