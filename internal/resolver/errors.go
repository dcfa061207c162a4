// internal/resolver/errors.go
package resolver

import (
	"errors"
	"fmt"
)

// Conditions observed while resolving a plate
var (
	ErrBlocked       = errors.New("upstream returned a block or challenge page")
	ErrAnchorMissing = errors.New("page did not contain the registration number")
	ErrExhausted     = errors.New("retry budget exhausted")
	ErrSessionWarmup = errors.New("session warm-up failed")
	ErrInvalidPlate  = errors.New("registration number is empty")
)

// ErrorCode classifies a failed lookup
type ErrorCode string

const (
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeBlocked      ErrorCode = "BLOCKED"
	CodeTransport    ErrorCode = "TRANSPORT"
	CodeNoRecord     ErrorCode = "NO_RECORD"
	CodeCancelled    ErrorCode = "CANCELLED"
	CodeInternal     ErrorCode = "INTERNAL"
)

// LookupError wraps the last failure of a lookup with its classification
type LookupError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retry      bool
	Attempts   int
}

// Error implements the error interface
func (e *LookupError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *LookupError) Unwrap() error {
	return e.Underlying
}

// Is matches LookupErrors by code and otherwise defers to the underlying error
func (e *LookupError) Is(target error) bool {
	if t, ok := target.(*LookupError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// NewLookupError creates a LookupError
func NewLookupError(code ErrorCode, message string, err error) *LookupError {
	return &LookupError{
		Code:       code,
		Message:    message,
		Underlying: err,
	}
}

// WithRetry marks the error as worth retrying later
func (e *LookupError) WithRetry() *LookupError {
	e.Retry = true
	return e
}
