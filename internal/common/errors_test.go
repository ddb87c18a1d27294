package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdi-labs/importkit/constants"
)

func TestImportErrorMessage(t *testing.T) {
	err := NewImportError(constants.ErrCodeNetwork, "request failed", errors.New("connection refused"))
	assert.Equal(t, "NETWORK_ERROR: request failed: connection refused", err.Error())

	bare := NewImportError(constants.ErrCodeValidation, "bad input", nil)
	assert.Equal(t, "VALIDATION_ERROR: bad input", bare.Error())
}

func TestImportErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewImportError(constants.ErrCodeUnknown, "wrapper", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestServerErrorCollapsesUnknownCodes(t *testing.T) {
	details := json.RawMessage(`{"line":3}`)

	known := ServerError("PARSE_ERROR", "bad row", details)
	assert.Equal(t, constants.ErrCodeParse, known.Code)
	assert.Equal(t, details, known.Details)

	unknown := ServerError("TOTALLY_NEW", "???", nil)
	assert.Equal(t, constants.ErrCodeUnknown, unknown.Code)
	assert.Equal(t, "???", unknown.Message)
}

func TestNormalize(t *testing.T) {
	assert.Nil(t, Normalize(nil))

	original := NewImportError(constants.ErrCodeOperationNotFound, "gone", nil)
	assert.Same(t, original, Normalize(original))

	wrapped := fmt.Errorf("outer: %w", original)
	assert.Same(t, original, Normalize(wrapped))

	plain := Normalize(errors.New("disk full"))
	require.NotNil(t, plain)
	assert.Equal(t, constants.ErrCodeUnknown, plain.Code)
	assert.False(t, plain.Timestamp.IsZero())
}

func TestIsCode(t *testing.T) {
	err := NewImportError(constants.ErrCodeOperationExpired, "stale", nil)
	assert.True(t, IsCode(err, constants.ErrCodeOperationExpired))
	assert.False(t, IsCode(err, constants.ErrCodeNetwork))
	assert.False(t, IsCode(errors.New("plain"), constants.ErrCodeNetwork))
	assert.True(t, IsCode(fmt.Errorf("wrap: %w", err), constants.ErrCodeOperationExpired))
}
