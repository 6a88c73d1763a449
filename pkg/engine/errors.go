package engine

import (
	"context"
	"fmt"
	"net"

	"github.com/pkg/errors"
)

// CompletionError wraps a failed call to the completion service. Transient
// errors (rate limits, timeouts, provider-side failures) are worth retrying;
// everything else (auth failures, malformed requests) is fatal and propagates
// immediately.
type CompletionError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *CompletionError) Error() string {
	class := "fatal"
	if e.Transient {
		class = "transient"
	}
	return fmt.Sprintf("completion %s: %s error: %v", e.Op, class, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// NewTransientError marks err as retryable.
func NewTransientError(op string, err error) *CompletionError {
	return &CompletionError{Op: op, Transient: true, Err: err}
}

// NewFatalError marks err as not worth retrying.
func NewFatalError(op string, err error) *CompletionError {
	return &CompletionError{Op: op, Transient: false, Err: err}
}

// IsTransient reports whether err is a retryable completion failure.
// Context cancellation is never transient; retrying a canceled call is
// pointless.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
