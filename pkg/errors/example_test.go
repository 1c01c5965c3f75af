// Package errors provides examples of structured error handling in scrub.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/scrub/pkg/errors"
)

// Example demonstrates basic error creation.
func Example() {
	err := errors.New(errors.ErrorTypeUnsupportedType, "column has no decode path").
		WithDetail("column", "payload").
		WithDetail("physical_type", "FIXED_LEN_BYTE_ARRAY")

	fmt.Println(err.Error())

	// Output:
	// unsupported_type: column has no decode path
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeDecodeFailed, "failed to read column chunk").
		WithDetail("file", "users.parquet").
		WithDetail("column", 3)

	if errors.IsType(err, errors.ErrorTypeDecodeFailed) {
		fmt.Println("decode failure")
	}
	fmt.Println(err)

	// Output:
	// decode failure
	// decode_failed: failed to read column chunk: unexpected EOF
}

// ExampleKind demonstrates that only the outermost type is reported.
func ExampleKind() {
	inner := errors.New(errors.ErrorTypeWriteFailed, "sink rejected batch")
	outer := errors.Wrap(inner, errors.ErrorTypeRollbackFailed, "restore from backup failed")

	fmt.Println(errors.Kind(inner))
	fmt.Println(errors.Kind(outer))
	fmt.Println(errors.Kind(io.EOF))

	// Output:
	// write_failed
	// rollback_failed
	// internal
}

// ExampleHaltsBatch shows which failures stop a batch run.
func ExampleHaltsBatch() {
	writeErr := errors.New(errors.ErrorTypeWriteFailed, "disk full")
	rollbackErr := errors.Wrap(writeErr, errors.ErrorTypeRollbackFailed, "rename failed")
	annotated := fmt.Errorf("users.parquet: %w", rollbackErr)

	fmt.Println(errors.HaltsBatch(writeErr))
	fmt.Println(errors.HaltsBatch(rollbackErr))
	fmt.Println(errors.HaltsBatch(annotated))

	// Output:
	// false
	// true
	// true
}
