// Package retry implements exponential backoff with context cancellation,
// used by the fetcher and separator to wrap external-tool invocations that
// the error taxonomy marks as retryable.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	Jitter      float64 // fraction of delay to randomize, [0,1]

	// Retryable decides whether err should trigger another attempt. A nil
	// Retryable retries every error.
	Retryable func(err error) bool
}

// DefaultConfig returns sensible retry defaults; callers override
// MaxAttempts/Retryable (and, for long-running subprocess work like the
// separator, Delay) for their own contract.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Delay:       time.Second,
		Multiplier:  2.0,
		MaxDelay:    30 * time.Second,
		Jitter:      0.2,
	}
}

// Do executes fn with exponential backoff retry. It stops early, without
// consuming an attempt, if cfg.Retryable reports the error is not worth
// retrying.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	delay := cfg.Delay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		wait := delay
		if cfg.Jitter > 0 {
			jitter := time.Duration(float64(delay) * cfg.Jitter * (rand.Float64()*2 - 1))
			wait += jitter
		}
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}
