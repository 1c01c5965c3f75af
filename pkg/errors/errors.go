// Package errors provides structured error handling for scrub
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents invalid redaction requests
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeCanceled represents a file abandoned because its deadline
	// passed or the batch was stopped before any filesystem change
	ErrorTypeCanceled ErrorType = "canceled"
	// ErrorTypeUnsupportedType represents a column whose physical type has no
	// decode/encode path
	ErrorTypeUnsupportedType ErrorType = "unsupported_type"
	// ErrorTypeDecodeFailed represents a codec-level read error
	ErrorTypeDecodeFailed ErrorType = "decode_failed"
	// ErrorTypeBackupFailed represents a failure to create the safety copy
	ErrorTypeBackupFailed ErrorType = "backup_failed"
	// ErrorTypeWriteFailed represents a codec-level or filesystem write error
	// during a rewrite
	ErrorTypeWriteFailed ErrorType = "write_failed"
	// ErrorTypeRollbackFailed represents a failed restore from backup
	ErrorTypeRollbackFailed ErrorType = "rollback_failed"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
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

// IsType checks if the error is of the given type. Only the outermost
// structured error is consulted, so a write_failed wrapping a decode error
// reports write_failed.
func IsType(err error, errType ErrorType) bool {
	return Kind(err) == errType
}

// Kind returns the type of the outermost structured error, or
// ErrorTypeInternal for plain errors.
func Kind(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// HaltsBatch reports whether err means the safety net itself is broken and
// no further files may be processed.
func HaltsBatch(err error) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == ErrorTypeRollbackFailed {
			return true
		}
		err = e.Cause
	}
	return false
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
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
