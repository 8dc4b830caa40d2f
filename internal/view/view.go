// Package view holds the records a client is currently looking at: the
// active filter, the lists fetched for it and the dashboard summaries.
// Fetched data is cached and dropped again through ExpensesChanged.
package view

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// Source lists records for a filter.
type Source interface {
	ListExpenses(ctx context.Context, f core.Filter) ([]core.ExpenseRecord, error)
}

// SummarySource provides the aggregates shown on the dashboard.
type SummarySource interface {
	MonthlyTotal(ctx context.Context, year, month int) (decimal.Decimal, error)
	CategorySummary(ctx context.Context, year, month int) (core.CategoryTotals, error)
	YearToDate(ctx context.Context, year int) (core.CategoryTotals, error)
	MonthlyTrend(ctx context.Context, year int) ([12]decimal.Decimal, error)
}

type Backend interface {
	Source
	SummarySource
}

type Config struct {
	CacheSize int
	CacheTTL  time.Duration
}

func DefaultConfig() Config {
	return Config{CacheSize: 64, CacheTTL: 5 * time.Minute}
}

type View struct {
	backend    Backend
	records    *cache.LRUCache[[]core.ExpenseRecord]
	dashboards *cache.LRUCache[core.MonthOverview]
	logger     *log.Logger

	mu     sync.RWMutex
	filter core.Filter
}

func New(backend Backend, cfg Config, logger *log.Logger) *View {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &View{
		backend:    backend,
		records:    cache.NewLRUCache[[]core.ExpenseRecord](cfg.CacheSize, cfg.CacheTTL),
		dashboards: cache.NewLRUCache[core.MonthOverview](cfg.CacheSize, cfg.CacheTTL),
		logger:     logger.WithComponent(log.ComponentView),
	}
}

// Cleaners exposes the caches for a cache.Manager.
func (v *View) Cleaners() []cache.Cleaner {
	return []cache.Cleaner{v.records, v.dashboards}
}

func (v *View) Filter() core.Filter {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.filter
}

func (v *View) SetFilter(f core.Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	v.filter = f
	v.mu.Unlock()
	return nil
}

// Records returns the records of the current filter.
func (v *View) Records(ctx context.Context) ([]core.ExpenseRecord, error) {
	return v.RecordsFor(ctx, v.Filter())
}

// RecordsFor returns the records of f, from cache when possible. The
// returned slice is a copy.
func (v *View) RecordsFor(ctx context.Context, f core.Filter) ([]core.ExpenseRecord, error) {
	if cached, ok := v.records.Get(f.Key()); ok {
		return append([]core.ExpenseRecord(nil), cached...), nil
	}
	fetched, err := v.backend.ListExpenses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	v.records.Set(f.Key(), fetched)
	v.logger.DebugContext(ctx, "Loaded expenses", log.FieldRows, len(fetched), "filter", f.Key())
	return append([]core.ExpenseRecord(nil), fetched...), nil
}

// Refresh drops the cached list of the current filter and fetches it again.
func (v *View) Refresh(ctx context.Context) ([]core.ExpenseRecord, error) {
	f := v.Filter()
	v.records.Delete(f.Key())
	return v.RecordsFor(ctx, f)
}

// ExpensesChanged invalidates everything that can contain records of the
// given months; no months means everything. The current filter is reloaded
// when it was affected. A failed reload is logged, the next read retries.
func (v *View) ExpensesChanged(ctx context.Context, months []core.YearMonth) {
	current := v.Filter()
	currentHit := false

	dropped := v.records.DeleteFunc(func(key string) bool {
		f, ok := parseFilterKey(key)
		if !ok || !touches(f, months) {
			return false
		}
		if f == current {
			currentHit = true
		}
		return true
	})
	v.dashboards.DeleteFunc(func(key string) bool {
		year, _, _ := strings.Cut(key, "|")
		y, err := strconv.Atoi(year)
		if err != nil || len(months) == 0 {
			return true
		}
		for _, ym := range months {
			if ym.Year == y {
				return true
			}
		}
		return false
	})
	v.logger.InfoContext(ctx, "Expenses changed", log.FieldMonths, monthList(months), log.FieldCount, dropped)

	if currentHit {
		if _, err := v.RecordsFor(ctx, current); err != nil {
			v.logger.WarnContext(ctx, "Reload after change failed", log.FieldError, err)
		}
	}
}

// Dashboard loads the month overview, fetching its four parts concurrently.
func (v *View) Dashboard(ctx context.Context, year, month int) (core.MonthOverview, error) {
	if err := (core.Filter{Year: year, Month: month}).Validate(); err != nil || month == 0 {
		return core.MonthOverview{}, fmt.Errorf("%w: dashboard needs a year and month", core.ErrInvalidFilter)
	}
	key := fmt.Sprintf("%d|%d", year, month)
	if cached, ok := v.dashboards.Get(key); ok {
		return cached, nil
	}

	ov := core.MonthOverview{Year: year, Month: month}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := v.backend.MonthlyTotal(gctx, year, month)
		ov.Total = total
		return err
	})
	g.Go(func() error {
		byCat, err := v.backend.CategorySummary(gctx, year, month)
		ov.ByCategory = byCat.Sorted()
		return err
	})
	g.Go(func() error {
		ytd, err := v.backend.YearToDate(gctx, year)
		ov.YearToDate = ytd.Sorted()
		return err
	})
	g.Go(func() error {
		trend, err := v.backend.MonthlyTrend(gctx, year)
		ov.Trend = trend
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthOverview{}, fmt.Errorf("load dashboard: %w", err)
	}
	v.dashboards.Set(key, ov)
	return ov, nil
}

func touches(f core.Filter, months []core.YearMonth) bool {
	if len(months) == 0 {
		return true
	}
	for _, ym := range months {
		if f.Covers(ym) {
			return true
		}
	}
	return false
}

func parseFilterKey(key string) (core.Filter, bool) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return core.Filter{}, false
	}
	y, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return core.Filter{}, false
	}
	return core.Filter{Year: y, Month: m, Category: parts[2]}, true
}

func monthList(months []core.YearMonth) string {
	if len(months) == 0 {
		return "all"
	}
	s := make([]string, len(months))
	for i, ym := range months {
		s[i] = ym.String()
	}
	return strings.Join(s, ",")
}
