package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFilterMatches(t *testing.T) {
	r := ExpenseRecord{Date: NewDate(2025, 3, 14), Category: "Food", Amount: decimal.NewFromInt(1)}
	cases := []struct {
		f    Filter
		want bool
	}{
		{Filter{}, true},
		{Filter{Year: 2025}, true},
		{Filter{Year: 2025, Month: 3}, true},
		{Filter{Year: 2025, Month: 4}, false},
		{Filter{Year: 2024}, false},
		{Filter{Year: 2025, Month: 3, Category: "Food"}, true},
		{Filter{Year: 2025, Month: 3, Category: "Rent"}, false},
	}
	for i, tc := range cases {
		if got := tc.f.Matches(r); got != tc.want {
			t.Fatalf("case %d: Matches = %v, want %v", i, got, tc.want)
		}
	}
}

func TestFilterCovers(t *testing.T) {
	march := YearMonth{Year: 2025, Month: 3}
	if !(Filter{Year: 2025}).Covers(march) {
		t.Fatalf("year filter should cover its months")
	}
	if (Filter{Year: 2025, Month: 4}).Covers(march) {
		t.Fatalf("april filter should not cover march")
	}
	if !(Filter{Category: "Food"}).Covers(march) {
		t.Fatalf("unscoped filter covers everything")
	}
}

func TestFilterValidate(t *testing.T) {
	if err := (Filter{Year: 2025, Month: 12}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, f := range []Filter{{Year: 2025, Month: 13}, {Month: 2}, {Year: -1}} {
		if err := f.Validate(); err == nil {
			t.Fatalf("expected error for %+v", f)
		}
	}
}

func TestMonthsOf(t *testing.T) {
	records := []ExpenseRecord{
		{Date: NewDate(2025, 3, 1)},
		{Date: NewDate(2024, 12, 31)},
		{Date: NewDate(2025, 3, 20)},
	}
	got := MonthsOf(records)
	if len(got) != 2 || got[0].String() != "2024-12" || got[1].String() != "2025-03" {
		t.Fatalf("unexpected months %v", got)
	}
}

func TestParseYearMonth(t *testing.T) {
	ym, err := ParseYearMonth("2025-07")
	if err != nil || ym != (YearMonth{Year: 2025, Month: 7}) {
		t.Fatalf("got %v, %v", ym, err)
	}
	if _, err := ParseYearMonth("2025-13"); err == nil {
		t.Fatalf("expected error")
	}
}
