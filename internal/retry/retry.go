// Package retry provides the single retry-with-backoff utility shared by
// the fetch and upload paths.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrMaxAttemptsExceeded is returned when every attempt has failed.
var ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")

// Policy configures retry behavior.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
	// Multiplier grows the delay between retries. 1.0 gives fixed delays,
	// 2.0 doubles each time.
	Multiplier float64
	// JitterPct spreads each delay by ±pct% to avoid thundering retries.
	JitterPct int
}

// Fixed returns a policy with a constant delay between attempts.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{
		MaxAttempts:  attempts,
		InitialDelay: delay,
		MaxDelay:     delay,
		Multiplier:   1.0,
	}
}

// Exponential returns a doubling policy bounded by maxDelay.
func Exponential(attempts int, initial, maxDelay time.Duration, jitterPct int) Policy {
	return Policy{
		MaxAttempts:  attempts,
		InitialDelay: initial,
		MaxDelay:     maxDelay,
		Multiplier:   2.0,
		JitterPct:    jitterPct,
	}
}

// Do runs op until it succeeds, the attempts run out, or the context is
// cancelled. The last error is wrapped into the returned error.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(policy.Delay(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := op(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, policy.MaxAttempts, lastErr)
}

// Delay returns the backoff before the given retry (1-based), with jitter
// applied.
func (p Policy) Delay(retry int) time.Duration {
	delay := float64(p.InitialDelay)
	for i := 1; i < retry; i++ {
		delay *= p.Multiplier
	}
	if max := float64(p.MaxDelay); p.MaxDelay > 0 && delay > max {
		delay = max
	}

	if p.JitterPct > 0 {
		jitterRange := delay * float64(p.JitterPct) / 100
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
