package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// Store keeps everything in process memory. It backs tests and the
// "memory" data backend.
type Store struct {
	mu         sync.Mutex
	expenses   []core.ExpenseRecord
	keys       map[core.IdentityKey]string // identity key -> expense id
	recurring  []core.RecurringTemplate
	categories []core.Category
}

var _ storage.Store = (*Store)(nil)

func New(categories []core.Category) *Store {
	s := &Store{keys: make(map[core.IdentityKey]string)}
	for _, c := range categories {
		s.addCategory(c.Name)
		for _, sub := range dedupeSorted(c.SubCategories) {
			s.addSubCategory(c.Name, sub)
		}
	}
	return s
}

// NewFromFiles seeds the taxonomy from base/seed_categories.txt. Each line
// is a category, optionally followed by ": sub1, sub2".
func NewFromFiles(base string) *Store {
	var cats []core.Category
	for _, line := range readLines(filepath.Join(base, "seed_categories.txt")) {
		name, subs, _ := strings.Cut(line, ":")
		c := core.Category{Name: strings.TrimSpace(name)}
		if subs != "" {
			c.SubCategories = strings.Split(subs, ",")
		}
		cats = append(cats, c)
	}
	if len(cats) == 0 {
		cats = []core.Category{
			{Name: "Food", SubCategories: []string{"Groceries", "Restaurants"}},
			{Name: "Housing", SubCategories: []string{"Rent", "Utilities"}},
			{Name: "Transport"},
		}
	}
	return New(cats)
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateExpense(_ context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := e.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.keys[e.Key()]; dup {
		return core.ExpenseRecord{}, core.ErrDuplicate
	}
	e.ID = uuid.NewString()
	s.expenses = append(s.expenses, e)
	s.keys[e.Key()] = e.ID
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := e.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(e.ID)
	if i < 0 {
		return core.ExpenseRecord{}, core.ErrNotFound
	}
	if owner, dup := s.keys[e.Key()]; dup && owner != e.ID {
		return core.ExpenseRecord{}, core.ErrDuplicate
	}
	old := s.expenses[i]
	delete(s.keys, old.Key())
	e.ParentID = old.ParentID
	s.expenses[i] = e
	s.keys[e.Key()] = e.ID
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(id)
	if i < 0 {
		return core.ErrNotFound
	}
	delete(s.keys, s.expenses[i].Key())
	s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
	return nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(id)
	if i < 0 {
		return core.ExpenseRecord{}, core.ErrNotFound
	}
	return s.expenses[i], nil
}

func (s *Store) ListExpenses(_ context.Context, f core.Filter) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	out := f.Apply(s.expenses)
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

func (s *Store) ExpenseExists(_ context.Context, key core.IdentityKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

func (s *Store) LatestOccurrence(_ context.Context, parentID string) (core.Date, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		latest core.Date
		found  bool
	)
	for _, e := range s.expenses {
		if e.ParentID == parentID && (!found || e.Date.After(latest.Time)) {
			latest, found = e.Date, true
		}
	}
	return latest, found, nil
}

func (s *Store) CreateRecurring(_ context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt.ID = uuid.NewString()
	s.recurring = append(s.recurring, rt)
	return rt, nil
}

func (s *Store) UpdateRecurring(_ context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recurring {
		if s.recurring[i].ID == rt.ID {
			s.recurring[i] = rt
			return rt, nil
		}
	}
	return core.RecurringTemplate{}, core.ErrNotFound
}

func (s *Store) DeleteRecurring(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recurring {
		if s.recurring[i].ID == id {
			s.recurring = append(s.recurring[:i], s.recurring[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) ListRecurring(_ context.Context) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RecurringTemplate(nil), s.recurring...), nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, len(s.categories))
	for i, c := range s.categories {
		c.SubCategories = append([]string{}, c.SubCategories...)
		out[i] = c
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) AddCategory(_ context.Context, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addCategory(name), nil
}

func (s *Store) AddSubCategory(_ context.Context, category, sub string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addSubCategory(category, sub), nil
}

func (s *Store) DeleteCategory(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].Name == name {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) addCategory(name string) core.Category {
	for _, c := range s.categories {
		if c.Name == name {
			return c
		}
	}
	c := core.Category{ID: uuid.NewString(), Name: name, SubCategories: []string{}}
	s.categories = append(s.categories, c)
	return c
}

func (s *Store) addSubCategory(category, sub string) core.Category {
	s.addCategory(category)
	for i := range s.categories {
		c := &s.categories[i]
		if c.Name != category {
			continue
		}
		for _, existing := range c.SubCategories {
			if existing == sub {
				return *c
			}
		}
		c.SubCategories = append(c.SubCategories, sub)
		return *c
	}
	return core.Category{}
}

func (s *Store) expenseIndex(id string) int {
	for i := range s.expenses {
		if s.expenses[i].ID == id {
			return i
		}
	}
	return -1
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupeSorted(out)
}

// dedupeSorted trims, drops blanks and duplicates, and keeps input order.
func dedupeSorted(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
