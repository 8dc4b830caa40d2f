package reconcile

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/uuid"

	"expensetracker/internal/core"
	"expensetracker/internal/csvfile"
	"expensetracker/internal/log"
)

// Importer is the bulk import collaborator.
type Importer interface {
	ImportExpenses(ctx context.Context, records []core.ExpenseRecord) (core.BackendImportResult, error)
}

// ChangeNotifier is told which months changed after a successful import so
// it can drop and reload whatever it shows for them.
type ChangeNotifier interface {
	ExpensesChanged(ctx context.Context, months []core.YearMonth)
}

// Reconciler runs the import pipeline: parse, dedup, one backend call,
// change signal. It keeps no state between imports besides the in-flight
// flag, which rejects a second import started while one is running.
type Reconciler struct {
	importer Importer
	notifier ChangeNotifier
	maxSize  int64
	logger   *log.Logger
	running  atomic.Bool
}

type Option func(*Reconciler)

// WithNotifier sets the receiver of change signals.
func WithNotifier(n ChangeNotifier) Option {
	return func(r *Reconciler) { r.notifier = n }
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.maxSize = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

func New(importer Importer, opts ...Option) *Reconciler {
	r := &Reconciler{
		importer: importer,
		maxSize:  DefaultMaxFileSize,
		logger:   log.New(log.DefaultConfig()),
	}
	for _, o := range opts {
		o(r)
	}
	r.logger = r.logger.WithComponent(log.ComponentImport)
	return r
}

// ImportFile checks name and size, reads body and imports it. size may be
// -1 when unknown; the limit is then enforced while reading.
func (r *Reconciler) ImportFile(ctx context.Context, name string, size int64, body io.Reader, loaded []core.ExpenseRecord) (core.ImportSummary, error) {
	if err := CheckFile(name, size, r.maxSize); err != nil {
		return core.ImportSummary{}, err
	}
	if !r.running.CompareAndSwap(false, true) {
		return core.ImportSummary{}, core.ErrImportInProgress
	}
	defer r.running.Store(false)

	b, err := io.ReadAll(io.LimitReader(body, r.maxSize+1))
	if err != nil {
		return core.ImportSummary{}, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(b)) > r.maxSize {
		return core.ImportSummary{}, &core.SizeError{Size: int64(len(b)), Limit: r.maxSize}
	}
	return r.run(ctx, string(b), loaded)
}

// ImportText imports CSV text already in memory.
func (r *Reconciler) ImportText(ctx context.Context, text string, loaded []core.ExpenseRecord) (core.ImportSummary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return core.ImportSummary{}, core.ErrImportInProgress
	}
	defer r.running.Store(false)
	return r.run(ctx, text, loaded)
}

func (r *Reconciler) run(ctx context.Context, text string, loaded []core.ExpenseRecord) (core.ImportSummary, error) {
	importID := uuid.NewString()
	logger := r.logger.With(log.FieldImportID, importID)

	parsed, err := csvfile.Parse(text)
	if err != nil {
		logger.WarnContext(ctx, "Rejected import file", log.FieldError, err)
		return core.ImportSummary{}, err
	}

	toSubmit, dups := Deduplicate(loaded, parsed.Records)
	summary := core.ImportSummary{
		ImportID:                 importID,
		Submitted:                len(toSubmit),
		SkippedFrontendDuplicate: dups,
		ParseErrors:              len(parsed.Errors),
		RowErrors:                parsed.Errors,
	}
	logger.DebugContext(ctx, "Parsed import file",
		log.FieldRows, len(parsed.Records),
		log.FieldParseErrors, len(parsed.Errors),
		log.FieldDuplicates, dups)

	if len(toSubmit) == 0 {
		logger.InfoContext(ctx, "Nothing to import", log.FieldDuplicates, dups, log.FieldParseErrors, summary.ParseErrors)
		return summary, nil
	}

	res, err := r.importer.ImportExpenses(ctx, toSubmit)
	if err != nil {
		log.NewStructuredLogger(logger).LogError(ctx, "Bulk import failed", err, log.ComponentImport, log.OpImport,
			log.NewFields().WithImportCounts(len(toSubmit), 0, 0, 0))
		return core.ImportSummary{}, err
	}

	summary.Imported = res.Imported
	summary.SkippedBackendDuplicate = res.Skipped
	summary.Failed = res.Failed
	log.NewStructuredLogger(logger).LogImportCompleted(ctx, importID, len(toSubmit), res.Imported, res.Skipped, res.Failed)

	if r.notifier != nil {
		r.notifier.ExpensesChanged(ctx, core.MonthsOf(toSubmit))
	}
	return summary, nil
}
