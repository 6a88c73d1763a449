package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RetryConfig defines the retry policy for transient completion failures.
type RetryConfig struct {
	MaxAttempts   int           `json:"max_attempts" yaml:"max_attempts"`
	BackoffBase   time.Duration `json:"backoff_base" yaml:"backoff_base"`
	BackoffFactor float64       `json:"backoff_factor" yaml:"backoff_factor"`
}

// DefaultRetryConfig retries up to 3 attempts with exponential backoff
// starting at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		BackoffBase:   time.Second,
		BackoffFactor: 2.0,
	}
}

func (rc RetryConfig) WithMaxAttempts(n int) RetryConfig {
	rc.MaxAttempts = n
	return rc
}

func (rc RetryConfig) WithBackoffBase(d time.Duration) RetryConfig {
	rc.BackoffBase = d
	return rc
}

func (rc RetryConfig) backoff(attempt int) time.Duration {
	d := rc.BackoffBase
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * rc.BackoffFactor)
	}
	return d
}

// RetryingEngine decorates an Engine with retry-on-transient-error semantics
// and an optional shared rate limiter. The limiter is consulted before every
// attempt and is the single point of coordination between concurrently
// running conversation builds.
type RetryingEngine struct {
	inner   Engine
	cfg     RetryConfig
	limiter *rate.Limiter
}

func NewRetryingEngine(inner Engine, cfg RetryConfig, limiter *rate.Limiter) (*RetryingEngine, error) {
	if inner == nil {
		return nil, errors.New("nil inner engine")
	}
	if cfg.MaxAttempts < 1 {
		return nil, errors.Errorf("max_attempts must be >= 1, got %d", cfg.MaxAttempts)
	}
	if cfg.BackoffFactor < 1 {
		return nil, errors.Errorf("backoff_factor must be >= 1, got %f", cfg.BackoffFactor)
	}
	return &RetryingEngine{inner: inner, cfg: cfg, limiter: limiter}, nil
}

func (e *RetryingEngine) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return "", errors.Wrap(err, "rate limiter wait")
			}
		}

		out, err := e.inner.Complete(ctx, prompt)
		if err == nil {
			return out, nil
		}
		if !IsTransient(err) {
			return "", err
		}
		lastErr = err

		if attempt == e.cfg.MaxAttempts-1 {
			break
		}

		wait := e.cfg.backoff(attempt)
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", e.cfg.MaxAttempts).
			Dur("backoff", wait).
			Msg("transient completion failure, backing off")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}

	// Retry ceiling exceeded: the failure is no longer retryable.
	return "", NewFatalError("retry",
		errors.Wrapf(lastErr, "exhausted %d attempts", e.cfg.MaxAttempts))
}

var _ Engine = (*RetryingEngine)(nil)
