package resource

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for structured error reporting.
const (
	ErrCodeDuplicateID      = "DUPLICATE_ID"
	ErrCodePathNotFound     = "PATH_NOT_FOUND"
	ErrCodeUnknownAttribute = "UNKNOWN_ATTRIBUTE"
	ErrCodeNotSerializable  = "NOT_SERIALIZABLE"
	ErrCodeCycleRejected    = "CYCLE_REJECTED"
	ErrCodeConfiguration    = "CONFIGURATION_ERROR"
	ErrCodeExecution        = "EXECUTION_ERROR"
	ErrCodeExpression       = "EXPRESSION_ERROR"
	ErrCodeSource           = "SOURCE_ERROR"
	ErrCodeStore            = "STORE_ERROR"
)

// Error is the structured error type for all weft operations.
// Path locates the offending resource from the root of the tree
// the failing operation was invoked on.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Path    []string       `json:"path,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("[%s] at %s: %s", e.Code, strings.Join(e.Path, "/"), e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithPath attaches the path of the offending resource.
func (e *Error) WithPath(path ...string) *Error {
	e.Path = path
	return e
}

// PrependPath pushes a leading segment onto the error path.
// Used while an error propagates up through a traversal.
func (e *Error) PrependPath(id string) *Error {
	e.Path = append([]string{id}, e.Path...)
	return e
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// CodeOf returns the weft error code of err, or "" if err does not wrap an *Error.
func CodeOf(err error) string {
	var we *Error
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}
