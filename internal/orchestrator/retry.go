package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/veridoc/veridoc/internal/router"
	"github.com/veridoc/veridoc/internal/truth"
)

// isTransient classifies failures for the retry policy: timeouts and
// connectivity-style errors retry, malformed input and data corruption
// fail immediately.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var corruption *truth.DataCorruptionError
	if errors.As(err, &corruption) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, router.ErrValidationTimeout) {
		return true
	}

	// Unclassified stage failures are treated as transient so flaky I/O
	// gets its retry budget rather than failing the workflow outright.
	return true
}

// backoffDelay computes the exponential backoff before the given retry
// (0-based), capped at max.
func backoffDelay(retry int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}

	delay := base
	for i := 0; i < retry; i++ {
		delay *= 2
		if max > 0 && delay >= max {
			return max
		}
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}

// sleepContext waits for the delay unless the context is cancelled first.
func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
