package retry

import (
	"context"
	"fmt"
	"time"
)

type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	Timeout     time.Duration // Per-attempt deadline, 0 = none

	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// Do runs fn with a fresh per-attempt deadline until it succeeds or the
// attempts run out, sleeping Delay between attempts. The error returned
// after the last attempt wraps that attempt's error.
func Do[T any](ctx context.Context, config RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := runAttempt(ctx, config.Timeout, fn)
		if err == nil {
			return result, nil
		}

		if attempt == attempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", attempts, err)
		}
		if config.OnRetry != nil {
			config.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(config.Delay):
		}
	}

	return zero, fmt.Errorf("no attempts made")
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}
