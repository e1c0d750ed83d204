package ratelimit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"metalprice/internal/provider"
)

type countingSource struct{ calls atomic.Int32 }

func (c *countingSource) Name() string { return "counting" }
func (c *countingSource) Fetch(context.Context) (provider.Quote, bool) {
	c.calls.Add(1)
	return provider.Quote{GoldPerGram: 34250, SilverPerGram: 418, Source: "counting"}, true
}

func TestMinInterval_WaitsBetweenCalls(t *testing.T) {
	src := &countingSource{}
	m := &MinInterval{S: src, Interval: 60 * time.Millisecond}

	start := time.Now()
	_, ok := m.Fetch(t.Context())
	require.True(t, ok)
	_, ok = m.Fetch(t.Context())
	require.True(t, ok)

	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.EqualValues(t, 2, src.calls.Load())
	require.Equal(t, "counting", m.Name())
}

func TestMinInterval_ContextCancelledWhileWaiting(t *testing.T) {
	src := &countingSource{}
	m := &MinInterval{S: src, Interval: time.Hour}

	_, ok := m.Fetch(t.Context())
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	_, ok = m.Fetch(ctx)
	require.False(t, ok)
	require.EqualValues(t, 1, src.calls.Load())
}

func TestLimited_FailsWhenNoTokenBeforeDeadline(t *testing.T) {
	src := &countingSource{}
	l := &Limited{S: src, Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}

	_, ok := l.Fetch(t.Context())
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	_, ok = l.Fetch(ctx)
	require.False(t, ok)
	require.EqualValues(t, 1, src.calls.Load())
}

func TestLimited_GivesUpAfterMaxWait(t *testing.T) {
	src := &countingSource{}
	l := &Limited{S: src, Limiter: rate.NewLimiter(rate.Every(time.Hour), 1), MaxWait: 20 * time.Millisecond}

	_, ok := l.Fetch(context.WithoutCancel(t.Context()))
	require.True(t, ok)

	start := time.Now()
	_, ok = l.Fetch(context.WithoutCancel(t.Context()))
	require.False(t, ok)
	require.Less(t, time.Since(start), time.Second)
}

func TestMinInterval_SkipsWhenWaitTooLong(t *testing.T) {
	src := &countingSource{}
	m := &MinInterval{S: src, Interval: time.Hour, MaxWait: time.Second}

	_, ok := m.Fetch(context.Background())
	require.True(t, ok)

	start := time.Now()
	_, ok = m.Fetch(context.Background())
	require.False(t, ok)
	require.Less(t, time.Since(start), 100*time.Millisecond)
	require.EqualValues(t, 1, src.calls.Load())
}

func TestWrap(t *testing.T) {
	src := &countingSource{}

	_, isLimited := Wrap(src, 30, 2, time.Second).(*Limited)
	require.True(t, isLimited)

	_, isInterval := Wrap(src, 0, 0, time.Second).(*MinInterval)
	require.True(t, isInterval)

	require.Same(t, src, Wrap(src, 0, 0, 0))
}

func TestPerMinute_ZeroIsUnlimited(t *testing.T) {
	require.Equal(t, rate.Inf, PerMinute(0, 1).Limit())
	require.InDelta(t, 0.5, float64(PerMinute(30, 1).Limit()), 1e-9)
}
