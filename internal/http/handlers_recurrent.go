package http

import (
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	templates, err := s.api.ListRecurring(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if templates == nil {
		templates = []core.RecurringTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var rt core.RecurringTemplate
	if err := decodeJSON(w, r, defaultBodyLimit, &rt); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.api.CreateRecurring(r.Context(), withDefaultInterval(rt))
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	var rt core.RecurringTemplate
	if err := decodeJSON(w, r, defaultBodyLimit, &rt); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	rt.ID = pathParam(r, "id")
	updated, err := s.api.UpdateRecurring(r.Context(), withDefaultInterval(rt))
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteRecurring removes the template. Expenses it already produced
// are kept.
func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.api.DeleteRecurring(r.Context(), pathParam(r, "id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// withDefaultInterval treats an omitted interval as "every 1".
func withDefaultInterval(rt core.RecurringTemplate) core.RecurringTemplate {
	if rt.Interval == 0 {
		rt.Interval = 1
	}
	return rt
}
