// Package retry implements exponential-backoff retries for transient
// failures, used when calling external APIs such as LLM providers and
// messaging platforms.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Config controls how an operation is retried.
type Config struct {
	// Attempts is the total number of tries including the first one.
	// Values below 1 are treated as 1.
	Attempts int

	// Delay is the pause before the second try. Each following pause
	// doubles until it reaches MaxDelay.
	Delay time.Duration

	// MaxDelay caps the pause between tries.
	MaxDelay time.Duration

	// Retryable classifies errors. When nil every error is retried.
	Retryable func(err error) bool
}

// Default is tuned for short outbound HTTP calls.
var Default = Config{
	Attempts: 3,
	Delay:    500 * time.Millisecond,
	MaxDelay: 8 * time.Second,
}

// Do runs op until it succeeds, the attempt budget is exhausted, or ctx is
// cancelled. The error from the final attempt is returned; context
// cancellation mid-backoff is joined with it.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Delay <= 0 {
		cfg.Delay = Default.Delay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = Default.MaxDelay
	}
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = func(error) bool { return true }
	}

	wait := cfg.Delay
	var lastErr error

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(lastErr, err)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}

		if attempt == cfg.Attempts {
			break
		}

		slog.Debug("retrying after failure",
			"attempt", attempt,
			"attempts", cfg.Attempts,
			"delay", wait,
			"error", lastErr)

		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(wait):
		}

		wait *= 2
		if wait > cfg.MaxDelay {
			wait = cfg.MaxDelay
		}
	}

	return lastErr
}
