// Package errors provides the categorised BuildError used to classify fatal
// deck build failures for the CLI and for callers of the assembly pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory classifies a BuildError.
type ErrorCategory string

const (
	// Raised before a run starts.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Raised while a run is in progress.
	CategoryRender     ErrorCategory = "render"
	CategoryAnnotation ErrorCategory = "annotation"
	CategoryPersist    ErrorCategory = "persist"

	// Infrastructure.
	CategoryStorage  ErrorCategory = "storage"
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the run
	SeverityError   ErrorSeverity = "error"   // Recorded, run continues
	SeverityWarning ErrorSeverity = "warning" // Degraded output
)

// ContextFields carries structured context for a BuildError
type ContextFields map[string]any

// BuildError is a structured error with category, severity and context.
type BuildError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// Error implements the error interface. A "reason" context field is appended
// when there is no cause.
func (e *BuildError) Error() string {
	if reason, ok := e.Context["reason"].(string); ok && reason != "" && e.Cause == nil {
		return fmt.Sprintf("%s (%s): %s: %s", e.Category, e.Severity, e.Message, reason)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// WithContext adds a context field and returns the error for chaining.
func (e *BuildError) WithContext(key string, value any) *BuildError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new BuildError
func New(category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new BuildError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As finds the first BuildError in err's chain.
func As(err error) (*BuildError, bool) {
	var be *BuildError
	if stderrors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsCategory reports whether err carries a BuildError of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	if be, ok := As(err); ok {
		return be.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal
// if err is not a BuildError.
func GetCategory(err error) ErrorCategory {
	if be, ok := As(err); ok {
		return be.Category
	}
	return CategoryInternal
}
