package engine

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:   attempts,
		BackoffBase:   time.Millisecond,
		BackoffFactor: 1.0,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	inner := CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError("complete", errors.New("rate limited"))
		}
		return "finally", nil
	})

	e, err := NewRetryingEngine(inner, fastRetryConfig(3), nil)
	require.NoError(t, err)

	out, err := e.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "finally", out)
	assert.Equal(t, 3, calls)
}

func TestRetryDoesNotRetryFatalErrors(t *testing.T) {
	calls := 0
	inner := CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "", NewFatalError("complete", errors.New("bad api key"))
	})

	e, err := NewRetryingEngine(inner, fastRetryConfig(5), nil)
	require.NoError(t, err)

	_, err = e.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsTransient(err))
}

func TestRetryCeilingYieldsFatalError(t *testing.T) {
	calls := 0
	inner := CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "", NewTransientError("complete", errors.New("timeout"))
	})

	e, err := NewRetryingEngine(inner, fastRetryConfig(3), nil)
	require.NoError(t, err)

	_, err = e.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	// Exceeding the ceiling reclassifies the failure as fatal so callers
	// stop retrying further up the stack.
	assert.False(t, IsTransient(err))
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	inner := CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", NewTransientError("complete", errors.New("timeout"))
	})

	cfg := RetryConfig{MaxAttempts: 10, BackoffBase: time.Hour, BackoffFactor: 2.0}
	e, err := NewRetryingEngine(inner, cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = e.Complete(ctx, "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransientClassification(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.True(t, IsTransient(NewTransientError("op", errors.New("x"))))
	assert.False(t, IsTransient(NewFatalError("op", errors.New("x"))))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(context.Canceled))

	// Wrapped taxonomy errors keep their classification.
	wrapped := errors.Wrap(NewTransientError("op", errors.New("x")), "outer")
	assert.True(t, IsTransient(wrapped))
}
