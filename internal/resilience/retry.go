// Package resilience provides retry and circuit-breaker wrappers for calls
// to remote peers. The store itself carries no retry policy; callers opt in
// around the operations that leave the process.
package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

const maxBackoff = 30 * time.Second

// Retry runs fn up to attempts times with exponential backoff and jitter
// between tries. The last error is returned when every attempt fails; a
// cancelled context stops the loop early.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		if err := backoff(ctx, baseDelay, attempt); err != nil {
			return lastErr
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// backoff sleeps for baseDelay * 2^attempt, capped, with up to 25% jitter.
func backoff(ctx context.Context, baseDelay time.Duration, attempt int) error {
	delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt)))
	if delay > maxBackoff {
		delay = maxBackoff
	}
	delay += time.Duration(rand.Int64N(int64(delay)/4 + 1))

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
