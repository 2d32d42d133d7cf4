package retry

import (
	"context"
	"errors"
	"time"

	"github.com/spetersoncode/reins"
)

// Observer is invoked once per failed attempt before the backoff sleep.
// attempt is 1-indexed; delay is the sleep chosen before the next attempt,
// or 0 when no further attempt will be made.
type Observer func(attempt int, err error, delay time.Duration)

// retryAfterFromError extracts the RetryAfter duration from a CategorizedError.
// Returns 0 if the error doesn't implement CategorizedError or has no RetryAfter.
func retryAfterFromError(err error) time.Duration {
	var ce reins.CategorizedError
	if errors.As(err, &ce) {
		return ce.RetryAfter()
	}
	return 0
}

// effectiveDelay returns the delay to use, honoring the server's Retry-After if larger.
func effectiveDelay(configuredDelay time.Duration, err error) time.Duration {
	serverDelay := retryAfterFromError(err)
	if serverDelay > configuredDelay {
		return serverDelay
	}
	return configuredDelay
}

// Do executes the given function with retry logic.
// Only transient errors are retried. It respects context cancellation during
// backoff waits. Returns the result on success, or the last error if all
// attempts fail.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	return DoObserved(ctx, cfg, nil, fn)
}

// DoObserved is like Do but invokes the observer after each failed attempt.
// Pass nil to disable observation (equivalent to Do).
func DoObserved[T any](ctx context.Context, cfg Config, observe Observer, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		// Check if error is retryable
		if !reins.IsTransient(err) {
			if observe != nil {
				observe(attempt+1, err, 0)
			}
			return zero, err
		}

		// Don't sleep after the last attempt
		if attempt < cfg.MaxAttempts-1 {
			delay := effectiveDelay(cfg.Delay(attempt), err)
			if observe != nil {
				observe(attempt+1, err, delay)
			}

			// Respect context cancellation during sleep
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
				// Continue to next attempt
			}
		} else if observe != nil {
			observe(attempt+1, err, 0)
		}
	}

	return zero, lastErr
}
