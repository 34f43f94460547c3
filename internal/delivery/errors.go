package delivery

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNilTransport indicates dispatch was attempted without an
	// outbound transport configured.
	ErrNilTransport = errors.New("delivery: transport not configured")

	// ErrInvalidChunkSize indicates a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("delivery: chunk size must be positive")

	// ErrInvalidSettings indicates delivery settings that fail
	// pre-flight validation.
	ErrInvalidSettings = errors.New("delivery: invalid settings")
)

// TransportError wraps a whole-chunk transport failure (connection,
// timeout, or provider-level rejection of the entire send).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether the failure may succeed on a later attempt.
// Cancellation is never retryable; everything else at the whole-chunk
// level is treated as transient and handed to the backoff protocol.
func (e *TransportError) Retryable() bool {
	return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
}

// RetryableError is implemented by errors that know whether retrying can
// help.
type RetryableError interface {
	Retryable() bool
}

// IsRetryable classifies a whole-chunk send failure. Unknown errors are
// presumed transient; only explicit non-retryable errors and context
// cancellation stop the retry protocol early.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var r RetryableError
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}
