package resilience

import (
	"context"
	"time"
)

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
	// OnRetry is called after every failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// Retry calls fn until it succeeds, the attempts run out or ctx is done.
// The last error is returned.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == cfg.Attempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(cfg.Delay):
		}
	}
	return lastErr
}
