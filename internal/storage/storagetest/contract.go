// Package storagetest holds the behaviour every storage.Store must have.
package storagetest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

func expense(y, m, d int, category, desc, amount string) core.ExpenseRecord {
	return core.ExpenseRecord{
		Date:        core.NewDate(y, m, d),
		Category:    category,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
	}
}

// Run exercises a fresh store returned by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		created, err := s.CreateExpense(ctx, expense(2025, 3, 1, "Food", "market", "12.50"))
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		got, err := s.GetExpense(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Key(), got.Key())
		assert.Equal(t, "12.5", got.Amount.String())

		_, err = s.GetExpense(ctx, "missing")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("identity key is unique", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateExpense(ctx, expense(2025, 3, 1, "Food", "market", "12.50"))
		require.NoError(t, err)
		_, err = s.CreateExpense(ctx, expense(2025, 3, 1, "Food", "market", "12.5"))
		assert.ErrorIs(t, err, core.ErrDuplicate)

		exists, err := s.ExpenseExists(ctx, expense(2025, 3, 1, "Food", "market", "12.5").Key())
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("list by filter in date order", func(t *testing.T) {
		s := newStore(t)
		for _, e := range []core.ExpenseRecord{
			expense(2025, 3, 20, "Food", "b", "2"),
			expense(2025, 3, 1, "Food", "a", "1"),
			expense(2025, 4, 1, "Rent", "c", "700"),
			expense(2024, 3, 1, "Food", "d", "3"),
		} {
			_, err := s.CreateExpense(ctx, e)
			require.NoError(t, err)
		}

		march, err := s.ListExpenses(ctx, core.Filter{Year: 2025, Month: 3})
		require.NoError(t, err)
		require.Len(t, march, 2)
		assert.Equal(t, "a", march[0].Description)
		assert.Equal(t, "b", march[1].Description)

		year, err := s.ListExpenses(ctx, core.Filter{Year: 2025})
		require.NoError(t, err)
		assert.Len(t, year, 3)

		rent, err := s.ListExpenses(ctx, core.Filter{Year: 2025, Category: "Rent"})
		require.NoError(t, err)
		require.Len(t, rent, 1)

		all, err := s.ListExpenses(ctx, core.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 4)
		assert.Equal(t, "d", all[0].Description)

		none, err := s.ListExpenses(ctx, core.Filter{Year: 2030})
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("update and delete", func(t *testing.T) {
		s := newStore(t)
		a, err := s.CreateExpense(ctx, expense(2025, 3, 1, "Food", "a", "1"))
		require.NoError(t, err)
		b, err := s.CreateExpense(ctx, expense(2025, 3, 2, "Food", "b", "2"))
		require.NoError(t, err)

		a.Description = "renamed"
		updated, err := s.UpdateExpense(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Description)

		clash := b
		clash.Date, clash.Description, clash.Amount = a.Date, a.Description, a.Amount
		_, err = s.UpdateExpense(ctx, clash)
		assert.ErrorIs(t, err, core.ErrDuplicate)

		missing := a
		missing.ID = "nope"
		missing.Description = "other"
		_, err = s.UpdateExpense(ctx, missing)
		assert.ErrorIs(t, err, core.ErrNotFound)

		require.NoError(t, s.DeleteExpense(ctx, a.ID))
		assert.ErrorIs(t, s.DeleteExpense(ctx, a.ID), core.ErrNotFound)

		// The key is free again once deleted.
		_, err = s.CreateExpense(ctx, a)
		assert.NoError(t, err)
	})

	t.Run("latest occurrence", func(t *testing.T) {
		s := newStore(t)
		_, found, err := s.LatestOccurrence(ctx, "tpl")
		require.NoError(t, err)
		assert.False(t, found)

		for _, d := range []int{1, 15, 8} {
			e := expense(2025, 3, d, "Rent", "rent", "700")
			e.ParentID = "tpl"
			_, err := s.CreateExpense(ctx, e)
			require.NoError(t, err)
		}
		latest, found, err := s.LatestOccurrence(ctx, "tpl")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "2025-03-15", latest.String())
	})

	t.Run("recurring templates", func(t *testing.T) {
		s := newStore(t)
		rt, err := s.CreateRecurring(ctx, core.RecurringTemplate{
			StartDate: core.NewDate(2025, 1, 31),
			Category:  "Housing",
			Amount:    decimal.RequireFromString("700"),
			Type:      core.Monthly,
			Interval:  1,
			EndDate:   core.NewDate(2025, 12, 31),
		})
		require.NoError(t, err)
		require.NotEmpty(t, rt.ID)

		list, err := s.ListRecurring(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, core.Monthly, list[0].Type)
		assert.Equal(t, "2025-12-31", list[0].EndDate.String())

		rt.Interval = 2
		_, err = s.UpdateRecurring(ctx, rt)
		require.NoError(t, err)
		list, err = s.ListRecurring(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, list[0].Interval)

		require.NoError(t, s.DeleteRecurring(ctx, rt.ID))
		assert.ErrorIs(t, s.DeleteRecurring(ctx, rt.ID), core.ErrNotFound)
	})

	t.Run("categories", func(t *testing.T) {
		s := newStore(t)
		before, err := s.ListCategories(ctx)
		require.NoError(t, err)

		c, err := s.AddCategory(ctx, "Zoo")
		require.NoError(t, err)
		again, err := s.AddCategory(ctx, "Zoo")
		require.NoError(t, err)
		assert.Equal(t, c.ID, again.ID)

		c, err = s.AddSubCategory(ctx, "Zoo", "Tickets")
		require.NoError(t, err)
		c, err = s.AddSubCategory(ctx, "Zoo", "Tickets")
		require.NoError(t, err)
		assert.Equal(t, []string{"Tickets"}, c.SubCategories)

		c, err = s.AddSubCategory(ctx, "Zzz", "New")
		require.NoError(t, err)
		assert.Equal(t, "Zzz", c.Name)

		after, err := s.ListCategories(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before)+2)

		require.NoError(t, s.DeleteCategory(ctx, "Zoo"))
		assert.ErrorIs(t, s.DeleteCategory(ctx, "Zoo"), core.ErrNotFound)
	})
}
