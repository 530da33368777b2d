package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeSession    ErrorType = "session"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Sentinel errors surfaced by the core components.
var (
	// ErrRetriesExhausted is returned by the request queue when a task has
	// failed on every allowed attempt.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrSessionEstablishment is returned by the session manager when both
	// cookie restoration and a fresh login failed validation. It is fatal
	// for the affected identity's collection pass.
	ErrSessionEstablishment = errors.New("session establishment failed")
)

// Error represents a typed error with an optional wrapped cause
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates a typed error wrapping a cause
func Wrap(errorType ErrorType, message string, err error) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeTimeout:
		return true
	case ErrorTypeConfig, ErrorTypeSession, ErrorTypeValidation, ErrorTypeStorage:
		return false
	default:
		return false
	}
}

// TypeOf returns the error type of err, or ErrorTypeUnknown if err carries
// no type information.
func TypeOf(err error) ErrorType {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}
