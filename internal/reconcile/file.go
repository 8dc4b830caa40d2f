package reconcile

import (
	"path/filepath"
	"strings"

	"expensetracker/internal/core"
)

// DefaultMaxFileSize is the largest file accepted for import.
const DefaultMaxFileSize int64 = 5 << 20

// CheckFile validates a file before it is read. A negative size means the
// size is unknown and is checked while reading instead.
func CheckFile(name string, size, limit int64) error {
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return &core.FileTypeError{Name: name}
	}
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	if size > limit {
		return &core.SizeError{Size: size, Limit: limit}
	}
	return nil
}
