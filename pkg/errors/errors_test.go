package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeInternal},
		{"plain", stderrors.New("boom"), ErrorTypeInternal},
		{"structured", New(ErrorTypeDecodeFailed, "bad page"), ErrorTypeDecodeFailed},
		{"outermost wins", Wrap(New(ErrorTypeDecodeFailed, "bad page"), ErrorTypeWriteFailed, "rewrite"), ErrorTypeWriteFailed},
		{"through fmt", fmt.Errorf("file a.parquet: %w", New(ErrorTypeBackupFailed, "exists")), ErrorTypeBackupFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
			assert.True(t, IsType(tt.err, tt.want))
		})
	}
}

func TestHaltsBatch(t *testing.T) {
	rollback := New(ErrorTypeRollbackFailed, "backup vanished")

	assert.True(t, HaltsBatch(rollback))
	assert.True(t, HaltsBatch(fmt.Errorf("batch halted: %w", rollback)))
	assert.True(t, HaltsBatch(Wrap(rollback, ErrorTypeWriteFailed, "rewrite")))

	assert.False(t, HaltsBatch(nil))
	assert.False(t, HaltsBatch(stderrors.New("rollback_failed")))
	assert.False(t, HaltsBatch(New(ErrorTypeWriteFailed, "short write")))
	assert.False(t, HaltsBatch(Wrap(stderrors.New("eio"), ErrorTypeBackupFailed, "copy")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "nothing"))

	cause := New(ErrorTypeDecodeFailed, "bad page")
	err := Wrap(cause, ErrorTypeWriteFailed, "rewrite").WithDetail("path", "a.parquet")

	assert.Equal(t, "write_failed: rewrite: decode_failed: bad page", err.Error())
	assert.Equal(t, cause.Stack, err.Stack)
	assert.Equal(t, "a.parquet", err.Details["path"])
	assert.ErrorIs(t, err, cause)
}
