package core

// BackendImportResult is what the bulk import endpoint reports for the rows
// it was given.
type BackendImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Total is the number of rows the backend accounted for.
func (r BackendImportResult) Total() int {
	return r.Imported + r.Skipped + r.Failed
}

// ImportSummary merges local parse and dedup outcomes with the backend
// result for one import operation.
type ImportSummary struct {
	ImportID                 string           `json:"importId,omitempty"`
	Submitted                int              `json:"submitted"`
	Imported                 int              `json:"imported"`
	SkippedFrontendDuplicate int              `json:"skippedFrontendDuplicate"`
	SkippedBackendDuplicate  int              `json:"skippedBackendDuplicate"`
	Failed                   int              `json:"failed"`
	ParseErrors              int              `json:"parseErrors"`
	RowErrors                []*RowParseError `json:"-"`
}

// Skipped is the total of rows dropped as duplicates on either side.
func (s ImportSummary) Skipped() int {
	return s.SkippedFrontendDuplicate + s.SkippedBackendDuplicate
}

// NothingToImport reports whether no row survived parsing and dedup, so no
// backend call was made.
func (s ImportSummary) NothingToImport() bool {
	return s.Submitted == 0
}
