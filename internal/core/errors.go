package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyField        = errors.New("required field is empty")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNegativeAmount    = errors.New("amount must not be negative")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyCategory     = errors.New("empty category")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
	ErrInvalidFilter     = errors.New("invalid filter")

	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("duplicate expense")
	ErrImportInProgress = errors.New("an import is already in progress")
)

// FormatError means the file is structurally unusable, e.g. the header
// lacks required columns. Nothing from the file is imported.
type FormatError struct {
	Missing []string
	Reason  string
}

func (e *FormatError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("invalid CSV format: missing columns %s", strings.Join(e.Missing, ", "))
	}
	return "invalid CSV format: " + e.Reason
}

// RowParseError describes a single data line that could not be turned into
// a record. Line is 1-based and counts the header.
type RowParseError struct {
	Line  int
	Field string
	Err   error
}

func (e *RowParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowParseError) Unwrap() error { return e.Err }

// NetworkError wraps any failure talking to the backend: transport errors
// (StatusCode 0), non-2xx responses and undecodable bodies.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: backend returned %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

type SizeError struct {
	Size  int64
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("file too large: %d bytes (max %d)", e.Size, e.Limit)
}

type FileTypeError struct {
	Name string
}

func (e *FileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type %q: only .csv files are accepted", e.Name)
}
