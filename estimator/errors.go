// ABOUTME: Error classification for model calls and model replies
// ABOUTME: Transient errors are retried, fatal and malformed ones are not
package estimator

import (
	"errors"
	"fmt"
)

// TransientError is a temporary failure that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError wraps err as retryable.
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError is a permanent failure that must not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string { return e.err.Error() }
func (e *FatalError) Unwrap() error { return e.err }

// NewFatalError wraps err as non-retryable.
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// ErrMalformedResult is matched by every *MalformedResultError.
var ErrMalformedResult = errors.New("malformed estimation result")

// MalformedResultError reports a model reply that failed schema validation.
type MalformedResultError struct {
	Kind   string
	Reason string
}

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("%s (%s): %s", ErrMalformedResult, e.Kind, e.Reason)
}

func (e *MalformedResultError) Is(target error) bool {
	return target == ErrMalformedResult
}

func malformed(kind, format string, args ...interface{}) error {
	return &MalformedResultError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
