package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const expenseColumns = `id, date, category, sub_category, description, amount, parent_id`

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	e.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`, identity_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Date.String(), e.Category, e.SubCategory, e.Description, e.Amount.String(), e.ParentID, string(e.Key()))
	if err != nil {
		if isUniqueViolation(err) {
			return core.ExpenseRecord{}, core.ErrDuplicate
		}
		return core.ExpenseRecord{}, fmt.Errorf("create expense: %w", err)
	}
	r.logger.DebugContext(ctx, "Expense saved to SQLite", log.FieldExpenseID, e.ID, "date", e.Date.String())
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, category = ?, sub_category = ?, description = ?, amount = ?, identity_key = ? WHERE id = ?`,
		e.Date.String(), e.Category, e.SubCategory, e.Description, e.Amount.String(), string(e.Key()), e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ExpenseRecord{}, core.ErrDuplicate
		}
		return core.ExpenseRecord{}, fmt.Errorf("update expense: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return core.ExpenseRecord{}, err
	}
	return r.GetExpense(ctx, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, core.ErrNotFound
	}
	return e, err
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, f core.Filter) ([]core.ExpenseRecord, error) {
	from, to := dateRange(f)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE date >= ? AND date < ? AND (? = '' OR category = ?)
		 ORDER BY date, rowid`,
		from, to, f.Category, f.Category)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.ExpenseRecord, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ExpenseExists(ctx context.Context, key core.IdentityKey) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM expenses WHERE identity_key = ?`, string(key)).Scan(&n); err != nil {
		return false, fmt.Errorf("check expense: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) LatestOccurrence(ctx context.Context, parentID string) (core.Date, bool, error) {
	var latest sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MAX(date) FROM expenses WHERE parent_id = ?`, parentID).Scan(&latest)
	if err != nil {
		return core.Date{}, false, fmt.Errorf("latest occurrence: %w", err)
	}
	if !latest.Valid || latest.String == "" {
		return core.Date{}, false, nil
	}
	d, err := core.ParseDate(latest.String)
	if err != nil {
		return core.Date{}, false, err
	}
	return d, true, nil
}

const recurringColumns = `id, start_date, category, sub_category, description, amount, recurrence_type, recurrence_interval, end_date`

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	rt.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_expenses (`+recurringColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.StartDate.String(), rt.Category, rt.SubCategory, rt.Description, rt.Amount.String(),
		string(rt.Type), rt.Interval, rt.EndDate.String())
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("create recurring expense: %w", err)
	}
	return rt, nil
}

func (r *SQLiteRepository) UpdateRecurring(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET start_date = ?, category = ?, sub_category = ?, description = ?, amount = ?,
		 recurrence_type = ?, recurrence_interval = ?, end_date = ? WHERE id = ?`,
		rt.StartDate.String(), rt.Category, rt.SubCategory, rt.Description, rt.Amount.String(),
		string(rt.Type), rt.Interval, rt.EndDate.String(), rt.ID)
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("update recurring expense: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return core.RecurringTemplate{}, err
	}
	return rt, nil
}

func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recurringColumns+` FROM recurring_expenses ORDER BY start_date, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.RecurringTemplate, 0)
	for rows.Next() {
		var (
			rt                          core.RecurringTemplate
			start, amount, typ, endDate string
		)
		if err := rows.Scan(&rt.ID, &start, &rt.Category, &rt.SubCategory, &rt.Description, &amount, &typ, &rt.Interval, &endDate); err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		if rt.StartDate, err = core.ParseDate(start); err != nil {
			return nil, err
		}
		if endDate != "" {
			if rt.EndDate, err = core.ParseDate(endDate); err != nil {
				return nil, err
			}
		}
		if rt.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("stored amount %q: %w", amount, err)
		}
		rt.Type = core.RecurrenceType(typ)
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, COALESCE(s.name, '')
		 FROM categories c LEFT JOIN subcategories s ON s.category_id = c.id
		 ORDER BY c.name, s.position`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		var id, name, sub string
		if err := rows.Scan(&id, &name, &sub); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, core.Category{ID: id, Name: name, SubCategories: []string{}})
		}
		if sub != "" {
			last := &out[len(out)-1]
			last.SubCategories = append(last.SubCategories, sub)
		}
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AddCategory(ctx context.Context, name string) (core.Category, error) {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`, uuid.NewString(), name); err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}
	return r.category(ctx, name)
}

func (r *SQLiteRepository) AddSubCategory(ctx context.Context, category, sub string) (core.Category, error) {
	c, err := r.AddCategory(ctx, category)
	if err != nil {
		return core.Category{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO subcategories (category_id, name, position)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM subcategories WHERE category_id = ?))
		 ON CONFLICT(category_id, name) DO NOTHING`, c.ID, sub, c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("add subcategory: %w", err)
	}
	return r.category(ctx, category)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM subcategories WHERE category_id IN (SELECT id FROM categories WHERE name = ?)`, name); err != nil {
		return fmt.Errorf("delete subcategories: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) category(ctx context.Context, name string) (core.Category, error) {
	all, err := r.ListCategories(ctx)
	if err != nil {
		return core.Category{}, err
	}
	for _, c := range all {
		if c.Name == name {
			return c, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.ExpenseRecord, error) {
	var (
		e            core.ExpenseRecord
		date, amount string
	)
	if err := s.Scan(&e.ID, &date, &e.Category, &e.SubCategory, &e.Description, &amount, &e.ParentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scan expense: %w", err)
	}
	var err error
	if e.Date, err = core.ParseDate(date); err != nil {
		return e, err
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return e, fmt.Errorf("stored amount %q: %w", amount, err)
	}
	return e, nil
}

// dateRange converts a filter into a half-open [from, to) range of ISO
// dates, which compare correctly as text.
func dateRange(f core.Filter) (string, string) {
	switch {
	case f.Year == 0:
		return "0000-01-01", "9999-12-32"
	case f.Month == 0:
		return core.NewDate(f.Year, 1, 1).String(), core.NewDate(f.Year+1, 1, 1).String()
	default:
		start := core.NewDate(f.Year, f.Month, 1)
		return start.String(), start.AddMonths(1).String()
	}
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
