package export

import (
	"fmt"
	"strings"
)

// Violation describes one invalid edit in a request.
type Violation struct {
	Index  int    `json:"index"`
	Page   int    `json:"page"`
	Reason string `json:"reason"`
}

// ValidationError carries every violation found in a request. A request
// with any violation produces no output at all.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("edit %d (page %d): %s", v.Index, v.Page, v.Reason)
	}
	return "invalid edits: " + strings.Join(parts, "; ")
}

// ExportError reports a composition or serialization failure. The
// export is all-or-nothing, so no partial document accompanies it.
type ExportError struct {
	Stage string
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Stage, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
