package fetcher

import (
	"context"
	"sync"
	"time"
)

// RateLimiter paces requests to each host. The pipeline processes notices
// sequentially, so pacing reduces to a minimum gap between consecutive
// requests to the same host, derived from the configured requests-per-minute.
type RateLimiter struct {
	interval time.Duration
	mu       sync.Mutex
	nextAt   map[string]time.Time
}

func NewRateLimiter(rpm int) *RateLimiter {
	var interval time.Duration
	if rpm > 0 {
		interval = time.Minute / time.Duration(rpm)
	}
	return &RateLimiter{
		interval: interval,
		nextAt:   make(map[string]time.Time),
	}
}

// Wait blocks until the host's next request slot opens, or the context
// ends. The first request to a host never waits.
func (rl *RateLimiter) Wait(ctx context.Context, host string) error {
	rl.mu.Lock()
	now := time.Now()
	wait := rl.nextAt[host].Sub(now)
	if wait < 0 {
		wait = 0
	}
	rl.nextAt[host] = now.Add(wait + rl.interval)
	rl.mu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
