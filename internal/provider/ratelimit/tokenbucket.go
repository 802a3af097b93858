package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket allows `burst` calls at once and then one call per 1/rate seconds.
// Each Wait reserves the next slot under the lock and sleeps outside it, so waiters
// are released in arrival order.
type TokenBucket struct {
	interval  time.Duration // time to earn one token
	tolerance time.Duration // how far ahead of schedule a caller may run

	mu  sync.Mutex
	tat time.Time // theoretical arrival time of the next call
	now func() time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 0.0000001
	}
	if burst <= 0 {
		burst = 1
	}
	interval := time.Duration(float64(time.Second) / tokensPerSecond)
	return &TokenBucket{
		interval:  interval,
		tolerance: time.Duration(burst-1) * interval,
		now:       time.Now,
	}
}

// PerMinute builds a bucket from a requests-per-minute budget.
func PerMinute(rpm, burst int) *TokenBucket {
	return NewTokenBucket(float64(rpm)/60.0, burst)
}

// Wait blocks until the caller's slot arrives or ctx is done. A canceled wait gives its
// slot back.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	tb.mu.Lock()
	now := tb.now()
	tat := tb.tat
	if tat.Before(now) {
		tat = now
	}
	allowAt := tat.Add(-tb.tolerance)
	tb.tat = tat.Add(tb.interval)
	tb.mu.Unlock()

	wait := allowAt.Sub(now)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		tb.mu.Lock()
		tb.tat = tb.tat.Add(-tb.interval)
		tb.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
