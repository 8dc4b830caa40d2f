package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1-12
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// ParseYearMonth parses a YYYY-MM string.
func ParseYearMonth(s string) (YearMonth, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
	year, err1 := strconv.Atoi(y)
	month, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
	return YearMonth{Year: year, Month: month}, nil
}

// Filter scopes the records a view works with. Zero values widen the scope:
// Month 0 means the whole year, Year 0 means every year, an empty Category
// means every category.
type Filter struct {
	Year     int
	Month    int
	Category string
}

func (f Filter) Validate() error {
	if f.Month < 0 || f.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidFilter, f.Month)
	}
	if f.Month != 0 && f.Year == 0 {
		return fmt.Errorf("%w: month without year", ErrInvalidFilter)
	}
	if f.Year < 0 {
		return fmt.Errorf("%w: year %d", ErrInvalidFilter, f.Year)
	}
	return nil
}

func (f Filter) Matches(r ExpenseRecord) bool {
	if f.Year != 0 && r.Date.Year() != f.Year {
		return false
	}
	if f.Month != 0 && r.Date.Month() != f.Month {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	return true
}

// Covers reports whether records of the given month can appear under f.
func (f Filter) Covers(ym YearMonth) bool {
	if f.Year != 0 && f.Year != ym.Year {
		return false
	}
	return f.Month == 0 || f.Month == ym.Month
}

// Key is a stable cache key for the filter.
func (f Filter) Key() string {
	return fmt.Sprintf("%d|%d|%s", f.Year, f.Month, f.Category)
}

// Apply returns the records matching f, preserving order.
func (f Filter) Apply(records []ExpenseRecord) []ExpenseRecord {
	out := make([]ExpenseRecord, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// MonthsOf returns the distinct months touched by records, oldest first.
func MonthsOf(records []ExpenseRecord) []YearMonth {
	seen := make(map[YearMonth]struct{}, len(records))
	out := make([]YearMonth, 0)
	for _, r := range records {
		ym := r.Date.YearMonth()
		if _, ok := seen[ym]; ok {
			continue
		}
		seen[ym] = struct{}{}
		out = append(out, ym)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}
