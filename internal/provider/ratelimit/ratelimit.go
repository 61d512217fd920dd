package ratelimit

import (
	"context"
	"sync"
	"time"

	"tradedesk/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between calls.
// Concurrent calls wait until the interval has elapsed since the last call.
// A call whose deadline would expire first fails with a RateLimitError.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration
	mu       sync.Mutex
	last     time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) Quote(ctx context.Context, symbol provider.Symbol) (provider.Quote, error) {
	if m.Interval > 0 {
		m.mu.Lock()
		wait := time.Until(m.last.Add(m.Interval))
		m.mu.Unlock()
		if wait > 0 {
			if err := sleep(ctx, wait); err != nil {
				return provider.Quote{}, withProvider(err, m.P.Name())
			}
		}
	}
	q, err := m.P.Quote(ctx, symbol)
	if m.Interval > 0 {
		m.mu.Lock()
		m.last = time.Now()
		m.mu.Unlock()
	}
	return q, err
}

// Wrap applies the limiter the settings ask for: a token bucket when
// perMinute is set, otherwise a minimum interval, otherwise nothing.
//
// The bucket starts full, so a single CLI lookup never waits on it. The
// limit binds once the returned provider is reused or shared between
// goroutines, as a library caller would.
func Wrap(p provider.Provider, perMinute, burst int, minInterval time.Duration) provider.Provider {
	if perMinute > 0 {
		if burst <= 0 {
			burst = 1
		}
		return &TokenBucketProvider{P: p, TB: NewTokenBucket(float64(perMinute)/60.0, burst)}
	}
	if minInterval > 0 {
		return &MinInterval{P: p, Interval: minInterval}
	}
	return p
}
