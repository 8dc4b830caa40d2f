package scheduler

import (
	"context"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// Materializer generates the recurring expenses due by a date.
type Materializer interface {
	Materialize(ctx context.Context, today core.Date) (int, error)
}

// RecurringJob materializes recurring expenses for the current day.
type RecurringJob struct {
	processor Materializer
	logger    *log.Logger
	now       func() time.Time
}

func NewRecurringJob(processor Materializer, logger *log.Logger) *RecurringJob {
	if logger == nil {
		logger = log.Discard()
	}
	return &RecurringJob{
		processor: processor,
		logger:    logger.WithComponent(log.ComponentRecurring),
		now:       time.Now,
	}
}

func (j *RecurringJob) Name() string { return "recurring_expenses" }

func (j *RecurringJob) Run(ctx context.Context) error {
	now := j.now()
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	n, err := j.processor.Materialize(ctx, today)
	if err != nil {
		return err
	}
	if n > 0 {
		j.logger.InfoContext(ctx, "Recurring expenses generated", log.FieldCount, n, "date", today.String())
	}
	return nil
}
