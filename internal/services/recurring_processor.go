package services

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/storage"
)

// RecurringProcessor turns recurring templates into regular expenses.
type RecurringProcessor struct {
	store   storage.Store
	service *ExpenseService
	logger  *log.Logger
}

// NewRecurringProcessor creates a new recurring expense processor. The
// service is used to publish change events for generated expenses.
func NewRecurringProcessor(store storage.Store, service *ExpenseService, logger *log.Logger) *RecurringProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &RecurringProcessor{
		store:   store,
		service: service,
		logger:  logger.WithComponent(log.ComponentRecurring),
	}
}

// Materialize generates every occurrence that is due by today and was not
// generated yet. It returns the number of expenses created. A failing
// template is logged and does not stop the others.
func (p *RecurringProcessor) Materialize(ctx context.Context, today core.Date) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.store.ListRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring expenses: %w", err)
	}

	p.logger.InfoContext(ctx, "Processing recurring expenses",
		"templates", len(templates),
		"processing_date", today.String())

	var created []core.ExpenseRecord
	for _, rt := range templates {
		if err := ctx.Err(); err != nil {
			p.notify(ctx, created)
			return len(created), err
		}
		out, err := p.materializeOne(ctx, rt, today)
		created = append(created, out...)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to materialize recurring expense",
				log.FieldTemplateID, rt.ID,
				log.FieldError, err)
		}
	}

	p.logger.InfoContext(ctx, "Recurring expense processing complete",
		log.FieldOperation, log.OpGenerate,
		log.FieldCount, len(created),
		"templates", len(templates))
	p.notify(ctx, created)
	return len(created), nil
}

func (p *RecurringProcessor) materializeOne(ctx context.Context, rt core.RecurringTemplate, today core.Date) ([]core.ExpenseRecord, error) {
	last, _, err := p.store.LatestOccurrence(ctx, rt.ID)
	if err != nil {
		return nil, fmt.Errorf("latest occurrence: %w", err)
	}
	dates, err := DueOccurrences(rt, last, today)
	if err != nil {
		return nil, err
	}

	var created []core.ExpenseRecord
	for _, d := range dates {
		e, err := p.store.CreateExpense(ctx, rt.Occurrence(d))
		if errors.Is(err, core.ErrDuplicate) {
			// Same expense entered by hand or imported from a file.
			continue
		}
		if err != nil {
			return created, fmt.Errorf("create occurrence %s: %w", d, err)
		}
		created = append(created, e)
		p.logger.DebugContext(ctx, "Created expense from recurring template",
			log.FieldTemplateID, rt.ID,
			log.FieldExpenseID, e.ID,
			"occurrence", d.String())
	}
	return created, nil
}

func (p *RecurringProcessor) notify(ctx context.Context, created []core.ExpenseRecord) {
	if p.service == nil || len(created) == 0 {
		return
	}
	p.service.publish(ctx, amqp.ReasonRecurring, core.MonthsOf(created)...)
}
