package metadata

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy controls the shared retry loop.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// Timeout is the per-attempt deadline.
	Timeout time.Duration

	// Backoff overrides the delay before retry n (1-based). Nil uses the
	// exponential default.
	Backoff func(n int) time.Duration
}

// Backoff returns the exponential delay before retry n (1-based):
// 2^(n-1) seconds, so 1s, 2s, 4s.
func Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return time.Duration(1<<uint(n-1)) * time.Second
}

// Do runs attempt with a per-attempt deadline until it succeeds, hits a
// permanent error, or exhausts the retries. Only errors wrapped by
// Transient or TransientAfter are retried; attempt-level deadline
// expiries count as transient and surface as ErrTimeout when the budget
// runs out. Backoff sleeps respect the outer context.
func Do(ctx context.Context, policy RetryPolicy, attempt func(ctx context.Context) error) error {
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	timeout := policy.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	backoff := policy.Backoff
	if backoff == nil {
		backoff = Backoff
	}

	for n := 0; ; n++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err := attempt(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			// The whole operation was cancelled, not just this attempt.
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = Transient(ErrTimeout)
		}

		var transient *RetryableError
		if !errors.As(err, &transient) {
			return err
		}
		if n >= maxRetries {
			return transient.Err
		}

		delay := transient.RetryAfter
		if delay <= 0 {
			delay = backoff(n + 1)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// RetryAfterSeconds parses a Retry-After header given in whole seconds.
// Returns fallback when the header is absent or malformed.
func RetryAfterSeconds(header string, fallback time.Duration) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return fallback
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
