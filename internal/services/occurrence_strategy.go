package services

// This file maps each recurrence type to the strategy that computes its
// occurrence dates. Occurrence k is always derived from the start date so
// month-end clamping does not drift (Jan 31, Feb 28, Mar 31...).

import (
	"fmt"

	"expensetracker/internal/core"
)

// Stepper computes the k-th occurrence (k >= 0) of a schedule starting at
// start and repeating every interval units.
type Stepper interface {
	Step(start core.Date, k, interval int) core.Date
}

// DailyStepper repeats every interval days.
type DailyStepper struct{}

func (DailyStepper) Step(start core.Date, k, interval int) core.Date {
	return start.AddDays(k * interval)
}

// WeeklyStepper repeats every interval weeks.
type WeeklyStepper struct{}

func (WeeklyStepper) Step(start core.Date, k, interval int) core.Date {
	return start.AddDays(7 * k * interval)
}

// MonthlyStepper repeats every interval months, clamping to the month end.
type MonthlyStepper struct{}

func (MonthlyStepper) Step(start core.Date, k, interval int) core.Date {
	return start.AddMonths(k * interval)
}

// YearlyStepper repeats every interval years. Feb 29 falls back to Feb 28.
type YearlyStepper struct{}

func (YearlyStepper) Step(start core.Date, k, interval int) core.Date {
	return start.AddMonths(12 * k * interval)
}

var stepStrategies = map[core.RecurrenceType]Stepper{
	core.Daily:   DailyStepper{},
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
	core.Custom:  MonthlyStepper{},
}

// GetStepper returns the stepper for a recurrence type.
func GetStepper(t core.RecurrenceType) (Stepper, error) {
	s, ok := stepStrategies[t]
	if !ok {
		return nil, fmt.Errorf("%w: unknown recurrence type %q", core.ErrInvalidRecurrence, t)
	}
	return s, nil
}

// DueOccurrences lists the occurrence dates of rt that are due by today and
// come strictly after last. A zero last means nothing was generated yet.
func DueOccurrences(rt core.RecurringTemplate, last, today core.Date) ([]core.Date, error) {
	if err := rt.Validate(); err != nil {
		return nil, err
	}
	stepper, err := GetStepper(rt.Type)
	if err != nil {
		return nil, err
	}

	limit := today
	if !rt.EndDate.IsZero() && rt.EndDate.Before(limit.Time) {
		limit = rt.EndDate
	}

	var due []core.Date
	for k := 0; ; k++ {
		d := stepper.Step(rt.StartDate, k, rt.Interval)
		if d.After(limit.Time) {
			break
		}
		if !last.IsZero() && !d.After(last.Time) {
			continue
		}
		due = append(due, d)
	}
	return due, nil
}
