package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/csvfile"
	"expensetracker/internal/log"
)

// handleListExpenses serves GET /api/expenses?year=&month=&category=.
// The year is required.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if f.Year == 0 {
		writeError(w, r, log.OpList, fmt.Errorf("%w: year is required", errBadRequest))
		return
	}
	s.listExpenses(w, r, f)
}

// handleListAllExpenses serves GET /api/expenses/all?category=.
func (s *Server) handleListAllExpenses(w http.ResponseWriter, r *http.Request) {
	f := core.Filter{Category: sanitizeInput(r.URL.Query().Get("category"))}
	s.listExpenses(w, r, f)
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request, f core.Filter) {
	records, err := s.api.ListExpenses(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if records == nil {
		records = []core.ExpenseRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.api.GetExpense(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleCreateExpense answers 201 with the stored record, or 409 when an
// identical expense already exists.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var e core.ExpenseRecord
	if err := decodeJSON(w, r, defaultBodyLimit, &e); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.api.CreateExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var e core.ExpenseRecord
	if err := decodeJSON(w, r, defaultBodyLimit, &e); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	e.ID = pathParam(r, "id")
	updated, err := s.api.UpdateExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.api.DeleteExpense(r.Context(), pathParam(r, "id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImport accepts a JSON array of records. A text/csv body is parsed
// first. Rows that fail to parse or decode are reported as failed.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var (
		records    []core.ExpenseRecord
		parseFails int
	)
	if isCSV(r) {
		res, err := csvfile.Read(http.MaxBytesReader(w, r.Body, s.maxImportBytes))
		if err != nil {
			writeError(w, r, log.OpImport, err)
			return
		}
		records, parseFails = res.Records, len(res.Errors)
	} else {
		var rows []json.RawMessage
		if err := decodeJSON(w, r, s.maxImportBytes, &rows); err != nil {
			writeError(w, r, log.OpImport, err)
			return
		}
		records, parseFails = decodeRows(rows)
	}

	result, err := s.api.Import(r.Context(), records)
	if err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	result.Failed += parseFails
	writeJSON(w, http.StatusOK, result)
}

// decodeRows decodes each element on its own so one bad row does not reject
// the batch.
func decodeRows(rows []json.RawMessage) ([]core.ExpenseRecord, int) {
	records := make([]core.ExpenseRecord, 0, len(rows))
	failed := 0
	for _, raw := range rows {
		var e core.ExpenseRecord
		if err := json.Unmarshal(raw, &e); err != nil {
			failed++
			continue
		}
		records = append(records, e)
	}
	return records, failed
}

// handleExport serves the filtered records as a CSV download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	records, err := s.api.ListExpenses(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvfile.FileName(f)))
	w.WriteHeader(http.StatusOK)
	if err := csvfile.Write(w, records); err != nil {
		s.logger.ErrorContext(r.Context(), "Export write failed", log.FieldError, err)
	}
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	totals, err := s.api.CategorySummary(r.Context(), p.Year, p.Month)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleYearToDate(w http.ResponseWriter, r *http.Request) {
	year, err := requireInt(r.URL.Query(), "year")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	totals, err := s.api.YearToDate(r.Context(), year)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleMonthlyTotal(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	total, err := s.api.MonthlyTotal(r.Context(), p.Year, p.Month)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.Number{"total": core.AmountNumber(total)})
}

// handleMonthlyTrend returns twelve totals, January first.
func (s *Server) handleMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	year, err := requireInt(r.URL.Query(), "year")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	trend, err := s.api.MonthlyTrend(r.Context(), year)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	out := make([]json.Number, len(trend))
	for i, v := range trend {
		out[i] = core.AmountNumber(v)
	}
	writeJSON(w, http.StatusOK, out)
}
