package error

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorCategory classifies errors by their nature and appropriate handling strategy.
type ErrorCategory int

const (
	// ErrCategoryUser represents errors caused by the statement itself.
	// Examples: unknown relation, ambiguous column, wrong parameter index.
	// These errors are fixable by changing the statement.
	ErrCategoryUser ErrorCategory = iota

	// ErrCategoryTransient represents temporary errors that might succeed on retry.
	// Examples: a page fetch that timed out.
	ErrCategoryTransient

	// ErrCategorySystem represents failures inside the engine.
	ErrCategorySystem

	// ErrCategoryData represents values that cannot be converted or compared.
	ErrCategoryData

	// ErrCategoryCancelled represents work stopped by a kill request.
	// It is never conflated with a failure.
	ErrCategoryCancelled
)

// String returns a lowercase name for the category.
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryUser:
		return "user"
	case ErrCategoryTransient:
		return "transient"
	case ErrCategorySystem:
		return "system"
	case ErrCategoryData:
		return "data"
	case ErrCategoryCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error codes raised by analysis and execution.
const (
	CodeRelationUnknown           = "RELATION_UNKNOWN"
	CodeRelationAmbiguous         = "RELATION_AMBIGUOUS"
	CodeColumnUnknown             = "COLUMN_UNKNOWN"
	CodeColumnAmbiguous           = "COLUMN_AMBIGUOUS"
	CodeUnknownFunction           = "UNKNOWN_FUNCTION"
	CodeInvalidIdentifier         = "INVALID_IDENTIFIER"
	CodeParameterIndexOutOfBounds = "PARAMETER_INDEX_OUT_OF_BOUNDS"
	CodeUnsupportedFeature        = "UNSUPPORTED_FEATURE"
	CodeTypeCoercion              = "TYPE_COERCION"
	CodeExecutionFailed           = "EXECUTION_FAILED"
	CodeJobKilled                 = "JOB_KILLED"
	CodeInvalidConfig             = "INVALID_CONFIG"
)

// DBError represents a structured error with rich context information.
type DBError struct {
	// Code is a unique identifier for this error type (e.g., "COLUMN_UNKNOWN").
	Code string

	// Category classifies the error for appropriate handling strategy.
	Category ErrorCategory

	// Message is a human-readable description of what went wrong.
	Message string

	// Detail provides additional context about the specific error instance,
	// usually the offending AST node or value.
	Detail string

	// Hint suggests how the user might fix or work around this error.
	Hint string

	// Operation identifies what was being performed when the error occurred.
	// Examples: "ResolveColumn", "AnalyzeRelation", "CoerceValue".
	Operation string

	// Component identifies where the error originated.
	// Examples: "Resolver", "RelationAnalyzer", "HashBlockJoin".
	Component string

	// Cause is the underlying error that triggered this error.
	Cause error

	// Stack contains the call stack where this error was created.
	Stack []uintptr
}

// New creates a new DBError with the specified code, category, and message.
func New(category ErrorCategory, code, message string) *DBError {
	return &DBError{
		Code:     code,
		Category: category,
		Message:  message,
		Stack:    captureStack(),
	}
}

// Newf is New with a formatted detail.
func Newf(category ErrorCategory, code, message, detailFormat string, args ...any) *DBError {
	return &DBError{
		Code:     code,
		Category: category,
		Message:  message,
		Detail:   fmt.Sprintf(detailFormat, args...),
		Stack:    captureStack(),
	}
}

// Wrap wraps an existing error with context information.
// If the error is already a DBError, it enriches the existing error with
// operation and component context (only if not already set).
func Wrap(err error, code, operation, component string) *DBError {
	if err == nil {
		return nil
	}

	var dbErr *DBError
	if errors.As(err, &dbErr) {
		if dbErr.Operation == "" {
			dbErr.Operation = operation
		}
		if dbErr.Component == "" {
			dbErr.Component = component
		}
		return dbErr
	}

	return &DBError{
		Code:      code,
		Category:  ErrCategorySystem,
		Message:   err.Error(),
		Operation: operation,
		Component: component,
		Cause:     err,
		Stack:     captureStack(),
	}
}

// WithDetail sets the detail and returns the receiver.
func (e *DBError) WithDetail(format string, args ...any) *DBError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithHint sets the hint and returns the receiver.
func (e *DBError) WithHint(hint string) *DBError {
	e.Hint = hint
	return e
}

// In sets operation and component and returns the receiver.
func (e *DBError) In(operation, component string) *DBError {
	e.Operation = operation
	e.Component = component
	return e
}

// captureStack skips captureStack, its constructor and the runtime frame.
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[0:n]
}

// Error implements the standard Go error interface
//
// The format follows the pattern:
// [ERROR_CODE] Message: Detail (operation: Operation, component: Component) caused by: underlying error
func (e *DBError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}

	if e.Operation != "" {
		fmt.Fprintf(&b, " (operation: %s", e.Operation)
		if e.Component != "" {
			fmt.Fprintf(&b, ", component: %s", e.Component)
		}
		b.WriteString(")")
	}

	if e.Cause != nil {
		fmt.Fprintf(&b, " caused by: %v", e.Cause)
	}

	return b.String()
}

// Unwrap returns the underlying cause error.
func (e *DBError) Unwrap() error {
	return e.Cause
}

// FormatStack returns a human-readable stack trace for debugging purposes.
func (e *DBError) FormatStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(e.Stack)

	b.WriteString("Stack trace:\n")
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "  %s\n    %s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}

	return b.String()
}

// CodeOf returns the code of the first DBError in err's chain, or "".
func CodeOf(err error) string {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr.Code
	}
	return ""
}

// Is reports whether err's chain holds a DBError with the given code.
func Is(err error, code string) bool {
	for err != nil {
		var dbErr *DBError
		if !errors.As(err, &dbErr) {
			return false
		}
		if dbErr.Code == code {
			return true
		}
		err = dbErr.Cause
	}
	return false
}
