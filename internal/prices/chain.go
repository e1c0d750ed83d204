// Package prices turns a prioritized list of quote sources into price
// snapshots and keeps the most recent one in a persisted store.
package prices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"metalprice/internal/provider"
	"metalprice/internal/snapshot"
)

// ErrNoLiveData is returned by Chain.Fetch when every source failed.
var ErrNoLiveData = errors.New("prices: no live source succeeded")

var errInvalidSnapshot = errors.New("snapshot has a non-positive amount")

// Fetcher produces a live snapshot or fails.
type Fetcher interface {
	Fetch(ctx context.Context) (snapshot.Snapshot, error)
}

// Chain tries its sources one at a time in order and stops at the first
// success. Sources are never raced.
type Chain struct {
	sources  []provider.Source
	currency string
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewChain(currency string, log logrus.FieldLogger, sources ...provider.Source) *Chain {
	if currency == "" {
		currency = snapshot.DefaultCurrency
	}
	return &Chain{
		sources:  sources,
		currency: currency,
		now:      time.Now,
		log:      log.WithField("component", "chain"),
	}
}

// WithClock replaces the clock used to stamp snapshots.
func (c *Chain) WithClock(now func() time.Time) *Chain {
	c.now = now
	return c
}

// Sources returns the configured sources in priority order.
func (c *Chain) Sources() []provider.Source { return c.sources }

// Fetch returns a live snapshot built from the first source that succeeds.
// Caller cancellation does not interrupt a cycle once started; each source
// bounds itself with its own timeout.
func (c *Chain) Fetch(ctx context.Context) (snapshot.Snapshot, error) {
	ctx = context.WithoutCancel(ctx)
	for i, src := range c.sources {
		q, ok := c.try(ctx, src)
		if !ok {
			continue
		}
		if q.Source == "" {
			q.Source = src.Name()
		}
		snap, err := c.build(q)
		if err != nil {
			c.log.WithFields(logrus.Fields{
				"source": q.Source,
				"gold":   q.GoldPerGram,
				"silver": q.SilverPerGram,
			}).WithError(err).Warn("source quote does not produce a usable snapshot")
			continue
		}
		c.log.WithFields(logrus.Fields{
			"source":   q.Source,
			"attempts": i + 1,
			"gold24k":  snap.Gold24kPerGram,
			"silver":   snap.Silver999PerGram,
		}).Info("live snapshot")
		return snap, nil
	}
	return snapshot.Snapshot{}, fmt.Errorf("%w (%d tried)", ErrNoLiveData, len(c.sources))
}

// build turns q into a snapshot, refusing figures that are out of range or
// that round to a zero amount in any field.
func (c *Chain) build(q provider.Quote) (snapshot.Snapshot, error) {
	if err := provider.Plausible(q.GoldPerGram, 0); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("gold: %w", err)
	}
	if err := provider.Plausible(q.SilverPerGram, 0); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("silver: %w", err)
	}
	snap := snapshot.Build(q.GoldPerGram, q.SilverPerGram, c.currency, c.now())
	snap.Source = q.Source
	if !snap.Valid() {
		return snapshot.Snapshot{}, errInvalidSnapshot
	}
	return snap, nil
}

// try calls one source. A panic inside the source counts as a failure.
func (c *Chain) try(ctx context.Context, src provider.Source) (q provider.Quote, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithFields(logrus.Fields{"source": src.Name(), "panic": r}).Error("source panicked")
			q, ok = provider.Quote{}, false
		}
	}()
	q, ok = src.Fetch(ctx)
	if ok && !(q.GoldPerGram > 0 && q.SilverPerGram > 0) {
		c.log.WithField("source", src.Name()).Warn("source reported success without prices")
		return provider.Quote{}, false
	}
	return q, ok
}
