package view

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

type fakeBackend struct {
	mu       sync.Mutex
	records  []core.ExpenseRecord
	listed   map[string]int
	trendErr error
}

func (f *fakeBackend) ListExpenses(_ context.Context, flt core.Filter) ([]core.ExpenseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listed == nil {
		f.listed = map[string]int{}
	}
	f.listed[flt.Key()]++
	return flt.Apply(f.records), nil
}

func (f *fakeBackend) MonthlyTotal(_ context.Context, year, month int) (decimal.Decimal, error) {
	return core.Sum(core.Filter{Year: year, Month: month}.Apply(f.snapshot())), nil
}

func (f *fakeBackend) CategorySummary(_ context.Context, year, month int) (core.CategoryTotals, error) {
	return core.SummarizeByCategory(core.Filter{Year: year, Month: month}.Apply(f.snapshot())), nil
}

func (f *fakeBackend) YearToDate(_ context.Context, year int) (core.CategoryTotals, error) {
	return core.SummarizeByCategory(core.Filter{Year: year}.Apply(f.snapshot())), nil
}

func (f *fakeBackend) MonthlyTrend(_ context.Context, year int) ([12]decimal.Decimal, error) {
	if f.trendErr != nil {
		return [12]decimal.Decimal{}, f.trendErr
	}
	return core.MonthlyTrend(f.snapshot(), year), nil
}

func (f *fakeBackend) snapshot() []core.ExpenseRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.ExpenseRecord(nil), f.records...)
}

func (f *fakeBackend) add(r core.ExpenseRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, r)
}

func (f *fakeBackend) calls(flt core.Filter) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listed[flt.Key()]
}

func expense(y, m, d int, category, amount string) core.ExpenseRecord {
	return core.ExpenseRecord{Date: core.NewDate(y, m, d), Category: category, Amount: decimal.RequireFromString(amount)}
}

func TestRecordsAreCached(t *testing.T) {
	b := &fakeBackend{records: []core.ExpenseRecord{expense(2025, 3, 1, "Food", "10")}}
	v := New(b, DefaultConfig(), nil)
	march := core.Filter{Year: 2025, Month: 3}
	require.NoError(t, v.SetFilter(march))

	first, err := v.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	first[0].Category = "mutated"

	second, err := v.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Food", second[0].Category, "callers get copies")
	assert.Equal(t, 1, b.calls(march))
}

func TestExpensesChangedInvalidatesAffectedFilters(t *testing.T) {
	b := &fakeBackend{records: []core.ExpenseRecord{expense(2025, 3, 1, "Food", "10")}}
	v := New(b, DefaultConfig(), nil)
	ctx := context.Background()

	march := core.Filter{Year: 2025, Month: 3}
	april := core.Filter{Year: 2025, Month: 4}
	year := core.Filter{Year: 2025}
	require.NoError(t, v.SetFilter(march))
	for _, f := range []core.Filter{march, april, year} {
		_, err := v.RecordsFor(ctx, f)
		require.NoError(t, err)
	}

	b.add(expense(2025, 3, 2, "Rent", "700"))
	v.ExpensesChanged(ctx, []core.YearMonth{{Year: 2025, Month: 3}})

	// The current filter is reloaded right away.
	assert.Equal(t, 2, b.calls(march))
	got, err := v.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, b.calls(march))

	_, err = v.RecordsFor(ctx, april)
	require.NoError(t, err)
	assert.Equal(t, 1, b.calls(april), "april is unaffected")

	_, err = v.RecordsFor(ctx, year)
	require.NoError(t, err)
	assert.Equal(t, 2, b.calls(year))
}

func TestExpensesChangedWithoutMonths(t *testing.T) {
	b := &fakeBackend{}
	v := New(b, DefaultConfig(), nil)
	ctx := context.Background()
	f := core.Filter{Year: 2024, Month: 1}
	_, err := v.RecordsFor(ctx, f)
	require.NoError(t, err)

	v.ExpensesChanged(ctx, nil)
	_, err = v.RecordsFor(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, b.calls(f))
}

func TestRefresh(t *testing.T) {
	b := &fakeBackend{}
	v := New(b, DefaultConfig(), nil)
	ctx := context.Background()
	_, err := v.Records(ctx)
	require.NoError(t, err)
	b.add(expense(2025, 1, 1, "Food", "1"))

	got, err := v.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSetFilterRejectsInvalid(t *testing.T) {
	v := New(&fakeBackend{}, DefaultConfig(), nil)
	assert.ErrorIs(t, v.SetFilter(core.Filter{Year: 2025, Month: 13}), core.ErrInvalidFilter)
	assert.Equal(t, core.Filter{}, v.Filter())
}

func TestDashboard(t *testing.T) {
	b := &fakeBackend{records: []core.ExpenseRecord{
		expense(2025, 1, 5, "Food", "20"),
		expense(2025, 3, 1, "Food", "10"),
		expense(2025, 3, 2, "Rent", "700"),
	}}
	v := New(b, DefaultConfig(), nil)
	ctx := context.Background()

	ov, err := v.Dashboard(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, "710", ov.Total.String())
	require.Len(t, ov.ByCategory, 2)
	assert.Equal(t, "Rent", ov.ByCategory[0].Name)
	assert.Equal(t, "30", ov.YearToDate[1].Amount.String())
	assert.Equal(t, "20", ov.Trend[0].String())

	b.add(expense(2025, 3, 3, "Food", "5"))
	cached, err := v.Dashboard(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, "710", cached.Total.String())

	v.ExpensesChanged(ctx, []core.YearMonth{{Year: 2025, Month: 3}})
	fresh, err := v.Dashboard(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, "715", fresh.Total.String())

	_, err = v.Dashboard(ctx, 2025, 0)
	assert.ErrorIs(t, err, core.ErrInvalidFilter)
}

func TestDashboardError(t *testing.T) {
	boom := errors.New("boom")
	v := New(&fakeBackend{trendErr: boom}, DefaultConfig(), nil)
	_, err := v.Dashboard(context.Background(), 2025, 3)
	assert.ErrorIs(t, err, boom)
}
