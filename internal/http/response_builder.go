// Package http serves the expense backend JSON API.
//
// This file builds JSON responses and maps domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// errBadRequest marks malformed requests (unparseable JSON, bad query).
var errBadRequest = errors.New("bad request")

// validationErrors are reported as 422 Unprocessable Entity.
var validationErrors = []error{
	core.ErrEmptyField,
	core.ErrInvalidAmount,
	core.ErrNegativeAmount,
	core.ErrInvalidDate,
	core.ErrEmptyCategory,
	core.ErrInvalidRecurrence,
	core.ErrInvalidFilter,
}

// JSONResponse is a small fluent builder for JSON replies.
type JSONResponse struct {
	status  int
	headers map[string]string
	body    any
}

// NewJSONResponse creates a builder with a 200 status.
func NewJSONResponse(body any) *JSONResponse {
	return &JSONResponse{status: http.StatusOK, headers: map[string]string{}, body: body}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponse) Status(code int) *JSONResponse {
	b.status = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponse) Header(name, value string) *JSONResponse {
	b.headers[name] = value
	return b
}

// Write sends the response. A nil body writes only the status.
func (b *JSONResponse) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.status)
	_ = json.NewEncoder(w).Encode(b.body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	NewJSONResponse(body).Status(status).Write(w)
}

// ErrorResponse creates a {"error": message} reply.
func ErrorResponse(status int, message string) *JSONResponse {
	return NewJSONResponse(map[string]string{"error": message}).Status(status)
}

// statusFor maps an error from the service layer to an HTTP status.
func statusFor(err error) int {
	var (
		formatErr *core.FormatError
		sizeErr   *http.MaxBytesError
	)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &sizeErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &formatErr):
		return http.StatusUnprocessableEntity
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// writeError logs server side failures and writes the JSON error body.
// Internal errors are not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, nil)
		msg = http.StatusText(status)
	}
	ErrorResponse(status, msg).Write(w)
}
