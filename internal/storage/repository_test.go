package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/storagetest"
)

func newSQLite(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "expenses.db"), nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return newSQLite(t) })
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.db")
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := repo.AddSubCategory(ctx, "Food", "Bars"); err != nil {
		t.Fatalf("add: %v", err)
	}
	repo.Close()

	// Migrations are a no-op the second time.
	repo, err = storage.NewSQLiteRepository(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	cats, err := repo.ListCategories(ctx)
	if err != nil || len(cats) != 1 || cats[0].SubCategories[0] != "Bars" {
		t.Fatalf("unexpected categories %+v (err=%v)", cats, err)
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if _, err := repo.GetExpense(ctx, "x"); err != core.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
