package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/csvfile"
	"expensetracker/internal/storage/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.ExpensesChangedMessage
	err  error
}

func (p *recordingPublisher) PublishExpensesChanged(_ context.Context, msg *amqp.ExpensesChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) messages() []*amqp.ExpensesChangedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.ExpensesChangedMessage(nil), p.msgs...)
}

func rec(y, m, d int, category, desc, amount string) core.ExpenseRecord {
	return core.ExpenseRecord{
		Date:        core.NewDate(y, m, d),
		Category:    category,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
	}
}

func TestExpenseService_KeepsTextVerbatim(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	parsed, err := csvfile.Parse("Date,Category,Subcategory,Description,Amount\n" +
		`2025-03-04," Food","Bar "," lunch",9.90` + "\n")
	require.NoError(t, err)
	require.Len(t, parsed.Records, 1)

	created, err := svc.CreateExpense(ctx, parsed.Records[0])
	require.NoError(t, err)
	assert.Equal(t, " Food", created.Category)
	assert.Equal(t, " lunch", created.Description)
	assert.Equal(t, parsed.Records[0].Key(), created.Key())

	res, err := svc.Import(ctx, parsed.Records)
	require.NoError(t, err)
	assert.Equal(t, core.BackendImportResult{Skipped: 1}, res)
}

func newService(t *testing.T) (*ExpenseService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	return NewExpenseService(memory.New(nil), pub, nil), pub
}

func TestNewExpenseService_TypedNilPublisher(t *testing.T) {
	var client *amqp.Client
	svc := NewExpenseService(memory.New(nil), client, nil)
	assert.Nil(t, svc.publisher)

	// Creating must not touch the nil client.
	_, err := svc.CreateExpense(context.Background(), rec(2025, 1, 1, "Food", "x", "1"))
	assert.NoError(t, err)
}

func TestExpenseService_CreateExpense(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)

	created, err := svc.CreateExpense(ctx, rec(2025, 3, 4, "Food", "market", "12.30"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Food", created.Category)

	_, err = svc.CreateExpense(ctx, rec(2025, 3, 4, "Food", "market", "12.3"))
	assert.ErrorIs(t, err, core.ErrDuplicate)

	_, err = svc.CreateExpense(ctx, rec(2025, 3, 4, "  ", "market", "1"))
	assert.ErrorIs(t, err, core.ErrEmptyCategory)

	_, err = svc.CreateExpense(ctx, rec(2025, 3, 4, "Food", "refund", "-1"))
	assert.ErrorIs(t, err, core.ErrNegativeAmount)

	msgs := pub.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, amqp.ReasonCreated, msgs[0].Reason)
	assert.Equal(t, []string{"2025-03"}, msgs[0].Months)
}

func TestExpenseService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)
	pub.err = errors.New("broker down")

	created, err := svc.CreateExpense(ctx, rec(2025, 3, 4, "Food", "market", "1"))
	require.NoError(t, err)

	got, err := svc.GetExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Key(), got.Key())
}

func TestExpenseService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)

	created, err := svc.CreateExpense(ctx, rec(2025, 3, 4, "Food", "market", "1"))
	require.NoError(t, err)

	moved := created
	moved.Date = core.NewDate(2025, 4, 1)
	_, err = svc.UpdateExpense(ctx, moved)
	require.NoError(t, err)

	msgs := pub.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, []string{"2025-03", "2025-04"}, msgs[1].Months)

	require.NoError(t, svc.DeleteExpense(ctx, created.ID))
	assert.ErrorIs(t, svc.DeleteExpense(ctx, created.ID), core.ErrNotFound)

	missing := moved
	missing.ID = "nope"
	_, err = svc.UpdateExpense(ctx, missing)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestExpenseService_Import(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)

	_, err := svc.CreateExpense(ctx, rec(2025, 1, 10, "Food", "existing", "5"))
	require.NoError(t, err)

	res, err := svc.Import(ctx, []core.ExpenseRecord{
		rec(2025, 1, 10, "Food", "existing", "5.00"), // already stored
		rec(2025, 2, 1, "Rent", "feb", "700"),
		rec(2025, 2, 1, "Rent", "feb", "700"), // duplicate inside the batch
		rec(2025, 3, 1, "", "no category", "1"),
		rec(2025, 3, 2, "Food", "march", "9.99"),
	})
	require.NoError(t, err)
	assert.Equal(t, core.BackendImportResult{Imported: 2, Skipped: 2, Failed: 1}, res)
	assert.Equal(t, 5, res.Total())

	msgs := pub.messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, amqp.ReasonImported, last.Reason)
	assert.Equal(t, []string{"2025-02", "2025-03"}, last.Months)

	// Re-importing the same rows imports nothing.
	res, err = svc.Import(ctx, []core.ExpenseRecord{rec(2025, 2, 1, "Rent", "feb", "700")})
	require.NoError(t, err)
	assert.Equal(t, core.BackendImportResult{Skipped: 1}, res)
	assert.Len(t, pub.messages(), len(msgs), "no event when nothing was imported")
}

func TestExpenseService_ImportCancelled(t *testing.T) {
	svc, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.Import(ctx, []core.ExpenseRecord{rec(2025, 2, 1, "Rent", "feb", "700")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Total())
}

func TestExpenseService_Summaries(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	for _, e := range []core.ExpenseRecord{
		rec(2025, 1, 5, "Food", "a", "10.10"),
		rec(2025, 1, 6, "Food", "b", "4.90"),
		rec(2025, 1, 7, "Rent", "c", "700"),
		rec(2025, 3, 1, "Food", "d", "3"),
		rec(2024, 12, 31, "Food", "e", "100"),
	} {
		_, err := svc.CreateExpense(ctx, e)
		require.NoError(t, err)
	}

	byCat, err := svc.CategorySummary(ctx, 2025, 1)
	require.NoError(t, err)
	assert.Equal(t, "15", byCat["Food"].String())
	assert.Equal(t, "700", byCat["Rent"].String())

	ytd, err := svc.YearToDate(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "18", ytd["Food"].String())

	total, err := svc.MonthlyTotal(ctx, 2025, 1)
	require.NoError(t, err)
	assert.Equal(t, "715", total.String())

	trend, err := svc.MonthlyTrend(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "715", trend[0].String())
	assert.True(t, trend[1].IsZero())
	assert.Equal(t, "3", trend[2].String())

	_, err = svc.MonthlyTotal(ctx, 2025, 13)
	assert.ErrorIs(t, err, core.ErrInvalidFilter)
}

func TestExpenseService_Categories(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.AddCategory(ctx, "  ")
	assert.ErrorIs(t, err, core.ErrEmptyCategory)

	c, err := svc.AddSubCategory(ctx, " Travel ", " Trains ")
	require.NoError(t, err)
	assert.Equal(t, "Travel", c.Name)
	assert.Equal(t, []string{"Trains"}, c.SubCategories)

	_, err = svc.AddSubCategory(ctx, "Travel", "")
	assert.ErrorIs(t, err, core.ErrEmptyField)

	again, err := svc.AddCategory(ctx, "Travel")
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)

	require.NoError(t, svc.DeleteCategory(ctx, "Travel"))
	cats, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestExpenseService_Recurring(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.CreateRecurring(ctx, core.RecurringTemplate{
		StartDate: core.NewDate(2025, 1, 1),
		Category:  "Rent",
		Amount:    decimal.RequireFromString("700"),
		Type:      core.Monthly,
		Interval:  0,
	})
	assert.ErrorIs(t, err, core.ErrInvalidRecurrence)

	rt, err := svc.CreateRecurring(ctx, core.RecurringTemplate{
		StartDate: core.NewDate(2025, 1, 1),
		Category:  "Rent",
		Amount:    decimal.RequireFromString("700"),
		Type:      core.Monthly,
		Interval:  1,
	})
	require.NoError(t, err)

	list, err := svc.ListRecurring(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteRecurring(ctx, rt.ID))
	assert.ErrorIs(t, svc.DeleteRecurring(ctx, rt.ID), core.ErrNotFound)
}
