package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gdi-labs/importkit/constants"
)

// ImportError is the single error shape every failure is normalized to,
// regardless of origin: transport failure, structured server error, or an
// unexpected client-side condition. Details carries the server-defined
// payload verbatim and is deliberately untyped.
type ImportError struct {
	Code      constants.ErrorCode
	Message   string
	Details   json.RawMessage
	Timestamp time.Time
	Cause     error
}

func (e *ImportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ImportError) Unwrap() error {
	return e.Cause
}

// NewImportError builds an ImportError stamped with the current time.
func NewImportError(code constants.ErrorCode, message string, cause error) *ImportError {
	return &ImportError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
}

// ServerError builds an ImportError from a backend error envelope. Unknown
// codes collapse to UNKNOWN_ERROR; the raw details blob is kept as-is.
func ServerError(code, message string, details json.RawMessage) *ImportError {
	return &ImportError{
		Code:      constants.CanonicalErrorCode(code),
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// Normalize coerces any error into an ImportError. An error that already is
// (or wraps) an ImportError passes through unchanged.
func Normalize(err error) *ImportError {
	if err == nil {
		return nil
	}
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie
	}
	return NewImportError(constants.ErrCodeUnknown, "an unexpected error occurred", err)
}

// IsCode reports whether err normalizes to the given error code.
func IsCode(err error, code constants.ErrorCode) bool {
	var ie *ImportError
	return errors.As(err, &ie) && ie.Code == code
}
