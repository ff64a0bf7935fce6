package document

import (
	"context"
	"time"
)

// RetryConfig bounds how often a backend connection is attempted at open.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		Delay:       500 * time.Millisecond,
	}
}

// retry runs fn until it succeeds, the attempts run out or ctx ends. The
// delay doubles after every failed attempt.
func retry(ctx context.Context, config *RetryConfig, fn func(ctx context.Context) error) error {
	if config == nil || config.MaxAttempts < 1 {
		config = &RetryConfig{MaxAttempts: 1}
	}

	var lastErr error
	delay := config.Delay
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return lastErr
}
