package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"metalprice/internal/provider"
)

// DefaultMaxWait caps how long a decorator waits for its turn. The chain
// runs detached from caller cancellation, so the wait needs its own bound.
const DefaultMaxWait = 2 * time.Second

func maxWait(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultMaxWait
	}
	return d
}

// MinInterval wraps a source and enforces a minimum time between calls.
// Callers wait until the interval has elapsed since the last call. A wait
// longer than MaxWait, or a context that ends first, is a failed fetch.
type MinInterval struct {
	S        provider.Source
	Interval time.Duration
	MaxWait  time.Duration
	mu       sync.Mutex
	last     time.Time
}

func (m *MinInterval) Name() string { return m.S.Name() }

func (m *MinInterval) Fetch(ctx context.Context) (provider.Quote, bool) {
	if m.Interval > 0 {
		m.mu.Lock()
		wait := time.Until(m.last.Add(m.Interval))
		m.mu.Unlock()
		if wait > maxWait(m.MaxWait) {
			return provider.Quote{}, false
		}
		if wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return provider.Quote{}, false
			case <-t.C:
			}
		}
	}
	q, ok := m.S.Fetch(ctx)
	if m.Interval > 0 {
		m.mu.Lock()
		m.last = time.Now()
		m.mu.Unlock()
	}
	return q, ok
}

// Limited gates a source with a token bucket. A call that cannot obtain a
// token within MaxWait, or before its context ends, counts as a failed fetch.
type Limited struct {
	S       provider.Source
	Limiter *rate.Limiter
	MaxWait time.Duration
}

// PerMinute builds a limiter allowing rpm calls per minute with burst.
func PerMinute(rpm, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}

func (l *Limited) Name() string { return l.S.Name() }

func (l *Limited) Fetch(ctx context.Context) (provider.Quote, bool) {
	if l.Limiter != nil {
		wctx, cancel := context.WithTimeout(ctx, maxWait(l.MaxWait))
		err := l.Limiter.Wait(wctx)
		cancel()
		if err != nil {
			return provider.Quote{}, false
		}
	}
	return l.S.Fetch(ctx)
}

// Wrap applies the configured limit to s: a token bucket when rpm is set,
// otherwise a minimum interval, otherwise s unchanged.
func Wrap(s provider.Source, rpm, burst int, minInterval time.Duration) provider.Source {
	switch {
	case rpm > 0:
		return &Limited{S: s, Limiter: PerMinute(rpm, burst)}
	case minInterval > 0:
		return &MinInterval{S: s, Interval: minInterval}
	default:
		return s
	}
}
