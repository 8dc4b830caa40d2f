package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"expensetracker/internal/storage"
	"expensetracker/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New(nil) })
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	// No files -> defaults
	s := NewFromFiles(dir)
	cats, _ := s.ListCategories(context.Background())
	if len(cats) == 0 {
		t.Fatalf("expected defaults when files missing")
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("seed_categories.txt", "# header\nFood: Groceries, Bars, Groceries\nRent\nFood: Groceries, Bars, Groceries\n\n")

	s = NewFromFiles(dir)
	cats, _ = s.ListCategories(context.Background())
	if len(cats) != 2 || cats[0].Name != "Food" || cats[1].Name != "Rent" {
		t.Fatalf("unexpected cats: %+v", cats)
	}
	if subs := cats[0].SubCategories; len(subs) != 2 || subs[0] != "Groceries" || subs[1] != "Bars" {
		t.Fatalf("unexpected subs: %v", subs)
	}
}
