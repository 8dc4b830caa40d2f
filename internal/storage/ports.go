// Package storage defines the persistence ports of the backend and the
// SQLite implementation. An in-memory implementation lives in
// storage/memory.
package storage

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for persistence adapters.
type (
	// ExpenseStore persists expense records. Identity keys are unique:
	// creating or updating into an existing key returns core.ErrDuplicate.
	ExpenseStore interface {
		CreateExpense(ctx context.Context, r core.ExpenseRecord) (core.ExpenseRecord, error)
		UpdateExpense(ctx context.Context, r core.ExpenseRecord) (core.ExpenseRecord, error)
		DeleteExpense(ctx context.Context, id string) error
		GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error)
		// ListExpenses returns the records of f ordered by date, then by
		// insertion order.
		ListExpenses(ctx context.Context, f core.Filter) ([]core.ExpenseRecord, error)
		ExpenseExists(ctx context.Context, key core.IdentityKey) (bool, error)
		// LatestOccurrence returns the most recent date generated from the
		// given recurring template.
		LatestOccurrence(ctx context.Context, parentID string) (core.Date, bool, error)
	}

	RecurringStore interface {
		CreateRecurring(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error)
		UpdateRecurring(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error)
		DeleteRecurring(ctx context.Context, id string) error
		ListRecurring(ctx context.Context) ([]core.RecurringTemplate, error)
	}

	// CategoryStore keeps the category taxonomy. Adds are idempotent.
	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		AddCategory(ctx context.Context, name string) (core.Category, error)
		AddSubCategory(ctx context.Context, category, sub string) (core.Category, error)
		DeleteCategory(ctx context.Context, name string) error
	}

	Store interface {
		ExpenseStore
		RecurringStore
		CategoryStore
		Close() error
	}
)
