package workers

import (
	"errors"
)

// ErrWorkerUnavailable is returned by Acquire when the backing analysis
// capability is permanently unavailable (for example, no provider URL is
// configured). Callers treat this as phase-level failure, not process-fatal.
var ErrWorkerUnavailable = errors.New("worker capability unavailable")

// TransientError represents a temporary capability error that may succeed
// on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent capability error that should not be
// retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
