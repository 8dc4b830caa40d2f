// Package reconcile turns an expense CSV file into a single bulk import,
// skipping rows the caller already has and rows repeated within the file.
package reconcile

import "expensetracker/internal/core"

// Deduplicate drops candidates whose identity key matches an existing
// record or an earlier candidate. The first occurrence wins and order is
// preserved. existing is whatever the caller has loaded, typically the
// records of its current filter, so duplicates outside that scope are left
// for the backend to detect.
func Deduplicate(existing, candidates []core.ExpenseRecord) (toSubmit []core.ExpenseRecord, duplicates int) {
	seen := make(map[core.IdentityKey]struct{}, len(existing)+len(candidates))
	for _, r := range existing {
		seen[r.Key()] = struct{}{}
	}
	toSubmit = make([]core.ExpenseRecord, 0, len(candidates))
	for _, c := range candidates {
		k := c.Key()
		if _, ok := seen[k]; ok {
			duplicates++
			continue
		}
		seen[k] = struct{}{}
		toSubmit = append(toSubmit, c)
	}
	return toSubmit, duplicates
}
