package http

// Utilities for parsing and validating request data.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"expensetracker/internal/core"
)

// defaultBodyLimit caps JSON bodies other than bulk imports.
const defaultBodyLimit = 1 << 20

// queryInt reads an integer query parameter. ok is false when absent.
func queryInt(query url.Values, key string) (n int, ok bool, err error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be a number", errBadRequest, key)
	}
	return n, true, nil
}

// requireInt is queryInt for mandatory parameters.
func requireInt(query url.Values, key string) (int, error) {
	n, ok, err := queryInt(query, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", errBadRequest, key)
	}
	return n, nil
}

// ParseFilter reads year, month and category. Every part is optional and
// the result is validated.
func ParseFilter(query url.Values) (core.Filter, error) {
	var f core.Filter
	var err error
	if f.Year, _, err = queryInt(query, "year"); err != nil {
		return core.Filter{}, err
	}
	if f.Month, _, err = queryInt(query, "month"); err != nil {
		return core.Filter{}, err
	}
	f.Category = sanitizeInput(query.Get("category"))
	if err := f.Validate(); err != nil {
		return core.Filter{}, err
	}
	return f, nil
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams requires year and month (1-12).
func ParseMonthParams(query url.Values) (MonthParams, error) {
	year, err := requireInt(query, "year")
	if err != nil {
		return MonthParams{}, err
	}
	month, err := requireInt(query, "month")
	if err != nil {
		return MonthParams{}, err
	}
	if month < 1 || month > 12 {
		return MonthParams{}, fmt.Errorf("%w: month %d", core.ErrInvalidFilter, month)
	}
	return MonthParams{Year: year, Month: month}, nil
}

// decodeJSON decodes a request body of at most limit bytes into v.
// Validation errors raised by the domain types keep their identity, every
// other decoding failure is a bad request.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(body).Decode(v)
	if err == nil {
		return nil
	}
	var sizeErr *http.MaxBytesError
	if errors.As(err, &sizeErr) {
		return err
	}
	for _, verr := range validationErrors {
		if errors.Is(err, verr) {
			return err
		}
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: empty body", errBadRequest)
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s))
}

// pathParam returns the unescaped chi URL parameter.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		v = u
	}
	return sanitizeInput(v)
}

func isCSV(r *http.Request) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	return strings.HasPrefix(ct, "text/csv") || strings.HasPrefix(ct, "application/csv")
}
