package prices

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"metalprice/internal/cache"
	"metalprice/internal/logx"
	"metalprice/internal/snapshot"
)

// DefaultFreshFor is how long a stored snapshot is served without touching
// the network.
const DefaultFreshFor = 10 * time.Minute

type Options struct {
	FreshFor time.Duration
	Currency string
	Now      func() time.Time
	Log      logrus.FieldLogger
}

// Service is the caching front of a Fetcher. It never fails: when neither a
// live source nor the store can answer it serves the indicative default.
type Service struct {
	live     Fetcher
	store    cache.Store
	freshFor time.Duration
	currency string
	now      func() time.Time
	log      logrus.FieldLogger
	group    singleflight.Group
}

func NewService(live Fetcher, store cache.Store, opts Options) *Service {
	if opts.FreshFor <= 0 {
		opts.FreshFor = DefaultFreshFor
	}
	if opts.Currency == "" {
		opts.Currency = snapshot.DefaultCurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logx.Discard()
	}
	if store == nil {
		store = &cache.Memory{}
	}
	return &Service{
		live:     live,
		store:    store,
		freshFor: opts.FreshFor,
		currency: opts.Currency,
		now:      opts.Now,
		log:      opts.Log.WithField("component", "prices"),
	}
}

// FreshFor reports the freshness window.
func (s *Service) FreshFor() time.Duration { return s.freshFor }

// Snapshot returns the current prices. Unless force is set, a stored
// snapshot inside the freshness window is returned as cached without any
// network activity. Otherwise the live chain runs; on failure the stored
// snapshot is served regardless of age, and the default after that.
func (s *Service) Snapshot(ctx context.Context, force bool) snapshot.Snapshot {
	ctx = context.WithoutCancel(ctx)
	if !force {
		if snap, ok := s.load(ctx); ok && snap.FreshAt(s.now(), s.freshFor) {
			s.log.WithField("age", s.now().Sub(snap.RetrievedAt).Round(time.Second)).Debug("cache hit")
			return snap.WithProvenance(snapshot.ProvenanceCached)
		}
	}
	v, _, shared := s.group.Do("live", func() (any, error) {
		return s.cycle(ctx), nil
	})
	if shared {
		s.log.Debug("joined in-flight refresh")
	}
	return v.(snapshot.Snapshot)
}

// Clear drops the stored snapshot.
func (s *Service) Clear(ctx context.Context) error {
	return s.store.Delete(ctx)
}

// Refresh clears the store and forces a live cycle. A failed clear is
// logged and the cycle still runs.
func (s *Service) Refresh(ctx context.Context) snapshot.Snapshot {
	if err := s.Clear(ctx); err != nil {
		s.log.WithError(err).Warn("clear cache")
	}
	return s.Snapshot(ctx, true)
}

func (s *Service) cycle(ctx context.Context) snapshot.Snapshot {
	snap, err := s.live.Fetch(ctx)
	if err == nil {
		snap.Provenance = snapshot.ProvenanceLive
		s.save(ctx, snap)
		return snap
	}
	s.log.WithError(err).Warn("live sources exhausted")

	if stored, ok := s.load(ctx); ok {
		s.log.WithField("retrieved_at", stored.RetrievedAt).Warn("serving expired snapshot")
		return stored.WithProvenance(snapshot.ProvenanceCached)
	}
	s.log.Warn("serving default snapshot")
	return snapshot.Default(s.currency, s.now())
}

// load reads the stored snapshot. Missing, unreadable, corrupt, invalid or
// foreign-currency entries all count as absent.
func (s *Service) load(ctx context.Context) (snapshot.Snapshot, bool) {
	b, err := s.store.Get(ctx)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.log.WithError(err).Warn("read cache")
		}
		return snapshot.Snapshot{}, false
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		s.log.WithError(err).Warn("decode cached snapshot")
		return snapshot.Snapshot{}, false
	}
	if !snap.Valid() {
		s.log.Warn("cached snapshot is invalid")
		return snapshot.Snapshot{}, false
	}
	if snap.Currency != "" && snap.Currency != s.currency {
		s.log.WithField("currency", snap.Currency).Debug("cached snapshot has another currency")
		return snapshot.Snapshot{}, false
	}
	return snap, true
}

func (s *Service) save(ctx context.Context, snap snapshot.Snapshot) {
	b, err := json.Marshal(snap)
	if err != nil {
		s.log.WithError(err).Warn("encode snapshot")
		return
	}
	if err := s.store.Set(ctx, b); err != nil {
		s.log.WithError(err).Warn("write cache")
	}
}
