package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Timeout bounds each attempt. Zero leaves attempts bounded only by ctx.
	Timeout time.Duration
	// Retryable decides whether an error is worth another attempt. Nil
	// retries every error.
	Retryable func(error) bool
}

// WithRetry runs operation until it succeeds, fails with a non-retryable
// error, runs out of attempts or ctx is done. A non-retryable error is
// returned as is.
func WithRetry[T any](ctx context.Context, config Config, operation func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := runAttempt(ctx, config.Timeout, operation)
		if err == nil {
			return result, nil
		}

		if config.Retryable != nil && !config.Retryable(err) {
			log.Debug().
				Err(err).
				Int("attempt", attempt+1).
				Msg("Operation failed with non-retryable error")
			return zero, err
		}

		log.Debug().
			Err(err).
			Int("attempt", attempt+1).
			Msg("Operation failed")

		if attempt < config.MaxRetries {
			delay := calculateBackoffDelay(attempt, config.BaseDelay, config.MaxDelay)
			log.Debug().
				Dur("delay", delay).
				Int("next_attempt", attempt+2).
				Msg("Retrying after delay")

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		return zero, fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries+1, err)
	}
	return zero, fmt.Errorf("unexpected: exceeded retry loop")
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, operation func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return operation(ctx)
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return operation(opCtx)
}

func calculateBackoffDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	// Cap attempt at 30 to prevent overflow (2^30 is safe for int)
	safeAttempt := min(attempt, 30)
	multiplier := 1 << safeAttempt
	delay := time.Duration(multiplier) * baseDelay

	if delay > maxDelay {
		delay = maxDelay
	}

	// Jitter between 0.5x and 1.5x
	jitter := 0.5 + rand.Float64()
	delay = time.Duration(float64(delay) * jitter)

	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}
