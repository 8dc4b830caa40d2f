package core

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryTotals maps a category name to the amount spent on it.
// It encodes as a JSON object of numbers.
type CategoryTotals map[string]decimal.Decimal

func (c CategoryTotals) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.Number, len(c))
	for k, v := range c {
		out[k] = AmountNumber(v)
	}
	return json.Marshal(out)
}

// Sorted returns the totals ordered by amount descending, then name.
func (c CategoryTotals) Sorted() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(c))
	for name, amount := range c {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Amount.Cmp(out[j].Amount); cmp != 0 {
			return cmp > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      decimal.Decimal
	ByCategory []CategoryAmount
	YearToDate []CategoryAmount
	Trend      [12]decimal.Decimal
}

// SummarizeByCategory groups amounts by category.
func SummarizeByCategory(records []ExpenseRecord) CategoryTotals {
	out := make(CategoryTotals)
	for _, r := range records {
		out[r.Category] = out[r.Category].Add(r.Amount)
	}
	return out
}

// MonthlyTrend returns the total of each month (index 0 = January) for the
// records of the given year.
func MonthlyTrend(records []ExpenseRecord, year int) [12]decimal.Decimal {
	var trend [12]decimal.Decimal
	for _, r := range records {
		if r.Date.Year() != year {
			continue
		}
		i := r.Date.Month() - 1
		trend[i] = trend[i].Add(r.Amount)
	}
	return trend
}
