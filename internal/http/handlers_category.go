package http

import (
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

type addSubCategoryRequest struct {
	CategoryName string `json:"categoryName"`
	SubCategory  string `json:"subCategory"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.api.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// handleAddCategory serves POST /api/categories/{name}. Adding an existing
// category returns it unchanged.
func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := s.api.AddCategory(r.Context(), pathParam(r, "name"))
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleAddSubCategory(w http.ResponseWriter, r *http.Request) {
	var req addSubCategoryRequest
	if err := decodeJSON(w, r, defaultBodyLimit, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	cat, err := s.api.AddSubCategory(r.Context(), sanitizeInput(req.CategoryName), sanitizeInput(req.SubCategory))
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.api.DeleteCategory(r.Context(), pathParam(r, "name")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
