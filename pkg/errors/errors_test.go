package errors

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreErrorUnwrapsCause(t *testing.T) {
	err := NewStoreError("upsert failed", "upsert", "p-1", io.ErrUnexpectedEOF)

	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, CodeStore, err.Code)
	assert.Equal(t, "p-1", err.Context["person_id"])
	assert.Equal(t, "upsert failed: unexpected EOF", err.Error())
}

func TestEngineErrorIsAPIError(t *testing.T) {
	var err error = NewEngineError("render failed", "doge", 502, nil)

	var engineErr *EngineError
	require.True(t, stderrors.As(err, &engineErr))
	assert.Equal(t, "doge", engineErr.Template)
	assert.Equal(t, 502, engineErr.StatusCode)
	assert.Equal(t, CodeEngine, engineErr.Code)
	assert.Equal(t, "render failed", err.Error())
}

func TestWithCauseChains(t *testing.T) {
	err := NewAPIError("avatar request failed", 500, nil)
	err.WithCause(io.EOF)

	assert.ErrorIs(t, err, io.EOF)
}
