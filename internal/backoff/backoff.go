// Package backoff retries transient capability failures with exponential
// delay. The embedding and generation providers share it; each supplies
// its own attempt budget and delay curve.
package backoff

import (
	"context"
	"time"
)

// Config shapes the retry schedule.
type Config struct {
	// MaxAttempts bounds total calls, the first one included.
	MaxAttempts int
	// BaseDelay is the wait after the first failure.
	BaseDelay time.Duration
	// MaxDelay caps the growing delay.
	MaxDelay time.Duration
	// Multiplier grows the delay after each failed attempt.
	Multiplier float64
}

// Retry runs fn until it succeeds, the attempt budget runs out, or ctx is
// cancelled. Cancellation wins over retrying; the last error is returned
// when the budget is exhausted.
func Retry[T any](ctx context.Context, config Config, fn func() (T, error)) (T, error) {
	var lastErr error
	var zero T
	delay := config.BaseDelay

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt < config.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * config.Multiplier)
				if delay > config.MaxDelay {
					delay = config.MaxDelay
				}
			}
		}
	}

	return zero, lastErr
}
