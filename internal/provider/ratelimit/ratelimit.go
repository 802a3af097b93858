package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"financemcp/internal/provider"
)

// Limiter gates outbound provider calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// MinInterval enforces a minimum time between calls.
// Concurrent callers wait until the interval has elapsed since the last call,
// or return early if the context is canceled.
type MinInterval struct {
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Wait(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if wait := time.Until(m.last.Add(m.Interval)); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	m.last = time.Now()
	return nil
}

// New picks a token bucket when rpm > 0, else a min-interval gate when minInterval > 0.
// It returns nil when neither budget is set.
func New(rpm, burst int, minInterval time.Duration) Limiter {
	switch {
	case rpm > 0:
		return PerMinute(rpm, burst)
	case minInterval > 0:
		return &MinInterval{Interval: minInterval}
	default:
		return nil
	}
}

// Acquire waits on l before a request to the named provider. A wait cut short by a
// deadline is KindTimeout; any other failure, cancellation included, is KindProviderError.
// A nil l never blocks.
func Acquire(ctx context.Context, l Limiter, name string) error {
	if l == nil {
		return nil
	}
	err := l.Wait(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return provider.Wrap(provider.KindTimeout, err, "waiting for %s rate limit", name)
	default:
		return provider.Wrap(provider.KindProviderError, err, "waiting for %s rate limit", name)
	}
}
