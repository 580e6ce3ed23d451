// Package errors provides structured error handling for tabular.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error.
type ErrorType string

const (
	// ErrorTypeStructural represents placement/partition violations,
	// out-of-range positions, and dtype mismatches. Structural errors
	// indicate a bug in the caller and are never recovered.
	ErrorTypeStructural ErrorType = "structural"
	// ErrorTypeKernel represents a dtype-specific kernel failing on a
	// block. Kernel errors may be retried through a per-column fallback.
	ErrorTypeKernel ErrorType = "kernel"
	// ErrorTypeAllocation represents capacity/allocation failures.
	ErrorTypeAllocation ErrorType = "allocation"
	// ErrorTypeValidation represents invalid arguments or configuration.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents a missing label or position.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeData represents malformed input data.
	ErrorTypeData ErrorType = "data"
	// ErrorTypeInternal represents internal invariant failures.
	ErrorTypeInternal ErrorType = "internal"
)

// Error represents a structured error with context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsRecoverable returns true if the error may be retried through the
// per-column fallback path. Only kernel-application errors qualify;
// structural and allocation errors are always fatal.
func IsRecoverable(err error) bool {
	return IsType(err, ErrorTypeKernel)
}

// IncompatibleKind reports a dtype mismatch between blocks or buffers.
func IncompatibleKind(want, got string) *Error {
	return &Error{
		Type:    ErrorTypeStructural,
		Message: fmt.Sprintf("incompatible kinds: want %s, got %s", want, got),
		Stack:   captureStack(2),
	}
}

// OutOfRange reports a position outside the valid range.
func OutOfRange(pos, n int) *Error {
	return &Error{
		Type:    ErrorTypeStructural,
		Message: fmt.Sprintf("position %d out of range [0, %d)", pos, n),
		Stack:   captureStack(2),
	}
}

// AmbiguousReindex reports a reindex over an index with duplicate labels.
func AmbiguousReindex() *Error {
	return &Error{
		Type:    ErrorTypeStructural,
		Message: "cannot reindex on an axis with duplicate labels",
		Stack:   captureStack(2),
	}
}

// MissingLabel reports a label absent from an index.
func MissingLabel(label string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("label %q not found", label),
		Stack:   captureStack(2),
	}
}

// captureStack captures the current call stack.
func captureStack(skip int) []StackFrame {
	const maxFrames = 16
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
