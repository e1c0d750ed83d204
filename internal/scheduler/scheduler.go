// Package scheduler refreshes prices in the background on a cron spec.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"metalprice/internal/snapshot"
)

// DefaultSpec fires every five minutes.
const DefaultSpec = "@every 5m"

// Refresher is the part of prices.Service the scheduler drives.
type Refresher interface {
	Snapshot(ctx context.Context, force bool) snapshot.Snapshot
}

// Scheduler forces a refresh on every tick. Ticks that fire while the
// previous refresh is still running are skipped.
type Scheduler struct {
	cron *cron.Cron
	svc  Refresher
	spec string
	log  logrus.FieldLogger
}

func New(svc Refresher, spec string, log logrus.FieldLogger) *Scheduler {
	if spec == "" {
		spec = DefaultSpec
	}
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		svc:  svc,
		spec: spec,
		log:  log.WithField("component", "scheduler"),
	}
}

// Start registers the refresh job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.Tick); err != nil {
		return fmt.Errorf("scheduler: bad spec %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.log.WithField("spec", s.spec).Info("scheduler started")
	return nil
}

// Tick runs one forced refresh. Sources bound themselves with their own
// timeouts.
func (s *Scheduler) Tick() {
	snap := s.svc.Snapshot(context.Background(), true)
	s.log.WithFields(logrus.Fields{
		"provenance": snap.Provenance,
		"source":     snap.Source,
		"gold24k":    snap.Gold24kPerGram,
	}).Info("scheduled refresh")
}

// Stop stops the cron loop and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
