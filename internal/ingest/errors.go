package ingest

import "fmt"

// DataError reports a problem with the data file itself, as opposed to a
// single bad row. Bad rows are skipped and reported, a DataError aborts
// the run.
type DataError struct {
	Path       string `json:"path,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (e *DataError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("data error in %q: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("data error: %s", e.Message)
}

// NewDataError creates a file-scoped data error.
func NewDataError(path, message, suggestion string) *DataError {
	return &DataError{
		Path:       path,
		Message:    message,
		Suggestion: suggestion,
	}
}
