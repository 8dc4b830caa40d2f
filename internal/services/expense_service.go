// Package services holds the backend business logic on top of the stores.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/storage"
)

// Publisher sends change events. *amqp.Client implements it.
type Publisher interface {
	PublishExpensesChanged(ctx context.Context, msg *amqp.ExpensesChangedMessage) error
}

// ExpenseService orchestrates expense operations across storage and AMQP
type ExpenseService struct {
	store     storage.Store
	publisher Publisher
	logger    *log.Logger
}

// NewExpenseService wires a store and an optional publisher. A nil
// publisher disables change events.
func NewExpenseService(store storage.Store, publisher Publisher, logger *log.Logger) *ExpenseService {
	if c, ok := publisher.(*amqp.Client); ok && c == nil {
		publisher = nil
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentExpense),
	}
}

// CreateExpense saves a new expense. A record with the same identity key as
// an existing one yields core.ErrDuplicate.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := e.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	e.ID, e.ParentID = "", ""

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("save expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense created", log.NewFields().
		WithOperation(log.OpCreate).
		WithExpense(created.ID, created.Date.String(), created.Category, created.Amount.String()).
		ToSlice()...)
	s.publish(ctx, amqp.ReasonCreated, created.Date.YearMonth())
	return created, nil
}

// UpdateExpense replaces the fields of an existing expense.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := e.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	old, err := s.store.GetExpense(ctx, e.ID)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("get expense: %w", err)
	}
	updated, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("update expense: %w", err)
	}
	s.publish(ctx, amqp.ReasonUpdated, old.Date.YearMonth(), updated.Date.YearMonth())
	return updated, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	old, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("get expense: %w", err)
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldExpenseID, id, log.FieldOperation, log.OpDelete)
	s.publish(ctx, amqp.ReasonDeleted, old.Date.YearMonth())
	return nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error) {
	return s.store.GetExpense(ctx, id)
}

// ListExpenses returns the expenses matching f in date order.
func (s *ExpenseService) ListExpenses(ctx context.Context, f core.Filter) ([]core.ExpenseRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, f)
}

// Import saves records one by one. Invalid rows and store failures count as
// failed, rows whose identity key already exists count as skipped.
func (s *ExpenseService) Import(ctx context.Context, records []core.ExpenseRecord) (core.BackendImportResult, error) {
	var (
		res     core.BackendImportResult
		touched []core.ExpenseRecord
	)
	for _, e := range records {
		if err := ctx.Err(); err != nil {
			s.publishImported(ctx, touched)
			return res, err
		}
		e.ID, e.ParentID = "", ""
		if err := e.Validate(); err != nil {
			res.Failed++
			continue
		}
		exists, err := s.store.ExpenseExists(ctx, e.Key())
		if err != nil {
			s.logger.ErrorContext(ctx, "Duplicate check failed", log.FieldError, err)
			res.Failed++
			continue
		}
		if exists {
			res.Skipped++
			continue
		}
		created, err := s.store.CreateExpense(ctx, e)
		switch {
		case errors.Is(err, core.ErrDuplicate):
			res.Skipped++
		case err != nil:
			s.logger.ErrorContext(ctx, "Failed to import expense", log.FieldError, err)
			res.Failed++
		default:
			res.Imported++
			touched = append(touched, created)
		}
	}

	s.logger.InfoContext(ctx, "Bulk import processed",
		log.FieldOperation, log.OpImport,
		log.FieldRows, len(records),
		log.FieldImported, res.Imported,
		log.FieldSkipped, res.Skipped,
		log.FieldFailed, res.Failed)
	s.publishImported(ctx, touched)
	return res, nil
}

// CategorySummary totals the expenses of one month per category.
func (s *ExpenseService) CategorySummary(ctx context.Context, year, month int) (core.CategoryTotals, error) {
	records, err := s.monthRecords(ctx, year, month)
	if err != nil {
		return nil, err
	}
	return core.SummarizeByCategory(records), nil
}

// YearToDate totals the expenses of a whole year per category.
func (s *ExpenseService) YearToDate(ctx context.Context, year int) (core.CategoryTotals, error) {
	records, err := s.ListExpenses(ctx, core.Filter{Year: year})
	if err != nil {
		return nil, err
	}
	return core.SummarizeByCategory(records), nil
}

func (s *ExpenseService) MonthlyTotal(ctx context.Context, year, month int) (decimal.Decimal, error) {
	records, err := s.monthRecords(ctx, year, month)
	if err != nil {
		return decimal.Zero, err
	}
	return core.Sum(records), nil
}

// MonthlyTrend returns the total of each month of year, January first.
func (s *ExpenseService) MonthlyTrend(ctx context.Context, year int) ([12]decimal.Decimal, error) {
	records, err := s.ListExpenses(ctx, core.Filter{Year: year})
	if err != nil {
		return [12]decimal.Decimal{}, err
	}
	return core.MonthlyTrend(records, year), nil
}

func (s *ExpenseService) monthRecords(ctx context.Context, year, month int) ([]core.ExpenseRecord, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d", core.ErrInvalidFilter, month)
	}
	return s.ListExpenses(ctx, core.Filter{Year: year, Month: month})
}

func (s *ExpenseService) ListRecurring(ctx context.Context) ([]core.RecurringTemplate, error) {
	return s.store.ListRecurring(ctx)
}

func (s *ExpenseService) CreateRecurring(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	rt.Category = strings.TrimSpace(rt.Category)
	if err := rt.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}
	rt.ID = ""
	created, err := s.store.CreateRecurring(ctx, rt)
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("save recurring expense: %w", err)
	}
	s.logger.InfoContext(ctx, "Recurring expense created",
		log.FieldTemplateID, created.ID,
		"recurrence", created.Type,
		log.FieldAmount, created.Amount.String())
	return created, nil
}

func (s *ExpenseService) UpdateRecurring(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	rt.Category = strings.TrimSpace(rt.Category)
	if err := rt.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}
	updated, err := s.store.UpdateRecurring(ctx, rt)
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("update recurring expense: %w", err)
	}
	return updated, nil
}

// DeleteRecurring removes a template. Occurrences already generated stay.
func (s *ExpenseService) DeleteRecurring(ctx context.Context, id string) error {
	if err := s.store.DeleteRecurring(ctx, id); err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}
	return nil
}

func (s *ExpenseService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

// AddCategory creates a category, or returns the existing one.
func (s *ExpenseService) AddCategory(ctx context.Context, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyCategory
	}
	return s.store.AddCategory(ctx, name)
}

// AddSubCategory adds sub to category, creating the category when missing.
func (s *ExpenseService) AddSubCategory(ctx context.Context, category, sub string) (core.Category, error) {
	category, sub = strings.TrimSpace(category), strings.TrimSpace(sub)
	if category == "" {
		return core.Category{}, core.ErrEmptyCategory
	}
	if sub == "" {
		return core.Category{}, fmt.Errorf("%w: subcategory", core.ErrEmptyField)
	}
	return s.store.AddSubCategory(ctx, category, sub)
}

func (s *ExpenseService) DeleteCategory(ctx context.Context, name string) error {
	return s.store.DeleteCategory(ctx, strings.TrimSpace(name))
}

// Ping reports whether the store answers; stores without a health check
// are always ready.
func (s *ExpenseService) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *ExpenseService) publishImported(ctx context.Context, created []core.ExpenseRecord) {
	if len(created) == 0 {
		return
	}
	s.publish(ctx, amqp.ReasonImported, core.MonthsOf(created)...)
}

// publish never fails the caller: the write has already been stored.
func (s *ExpenseService) publish(ctx context.Context, reason string, months ...core.YearMonth) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewExpensesChangedMessage(reason, dedupeMonths(months))
	if err := s.publisher.PublishExpensesChanged(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish change message",
			log.FieldError, err,
			"reason", reason)
	}
}

func dedupeMonths(months []core.YearMonth) []core.YearMonth {
	out := make([]core.YearMonth, 0, len(months))
	seen := make(map[core.YearMonth]bool, len(months))
	for _, ym := range months {
		if !seen[ym] {
			seen[ym] = true
			out = append(out, ym)
		}
	}
	return out
}
