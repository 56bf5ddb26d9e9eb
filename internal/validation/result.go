package validation

import (
	"fmt"
	"strings"

	"github.com/weftlabs/weft/pkg/resource"
)

// Issue is a single validation finding located by tree path.
type Issue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult aggregates errors and warnings from a validation pass.
type ValidationResult struct {
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// AddError records a blocking validation failure.
func (r *ValidationResult) AddError(path, code, message string) {
	r.Errors = append(r.Errors, Issue{Path: path, Code: code, Message: message})
}

// AddWarning records a non-blocking finding.
func (r *ValidationResult) AddWarning(path, code, message string) {
	r.Warnings = append(r.Warnings, Issue{Path: path, Code: code, Message: message})
}

// Valid reports whether the result has no errors. Warnings do not
// affect validity.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Merge appends another result's findings to this one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// ToError converts the result into a single *resource.Error, or nil
// when the result is valid.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	msgs := make([]string, len(r.Errors))
	for i, iss := range r.Errors {
		msgs[i] = fmt.Sprintf("%s: %s", iss.Path, iss.Message)
	}

	msg := msgs[0]
	if len(msgs) > 1 {
		msg = fmt.Sprintf("validation failed with %d errors: %s", len(msgs), strings.Join(msgs, "; "))
	}
	return resource.NewError(resource.ErrCodeConfiguration, msg).
		WithDetails(map[string]any{"violations": msgs})
}
