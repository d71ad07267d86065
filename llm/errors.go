package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies model invocation failures.
type ErrorKind string

// Invocation error kinds.
const (
	KindTimeout         ErrorKind = "timeout"
	KindRateLimited     ErrorKind = "rate_limited"
	KindTransport       ErrorKind = "transport"
	KindInvalidResponse ErrorKind = "invalid_response"
)

// Error is a classified model invocation failure. Transient errors are
// retried up to the configured budget; fatal errors surface immediately.
type Error struct {
	Kind      ErrorKind
	transient bool
	err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("model error (%s): %v", e.Kind, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Transient reports whether retrying may succeed.
func (e *Error) Transient() bool {
	return e.transient
}

// NewTransientError wraps an error as a retryable invocation failure.
func NewTransientError(kind ErrorKind, err error) error {
	return &Error{Kind: kind, transient: true, err: err}
}

// NewFatalError wraps an error as a non-retryable invocation failure.
func NewFatalError(kind ErrorKind, err error) error {
	return &Error{Kind: kind, transient: false, err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var me *Error
	return errors.As(err, &me) && me.transient
}

// KindOf extracts the error kind, or "" for non-invocation errors.
func KindOf(err error) ErrorKind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}
