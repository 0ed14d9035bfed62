// Package scheduler drives the sync engine on a wall-clock schedule: an
// optional boot-time freshness check shortly after startup, then one trigger
// per day at a configured hour.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/fleetsync-io/fleetsync/internal/engine"
	"github.com/fleetsync-io/fleetsync/pkg/log"
)

// Syncer is the engine surface the scheduler drives.
type Syncer interface {
	Sync(ctx context.Context, force bool) (*engine.Result, error)
}

// Config carries the scheduler's policy knobs.
type Config struct {
	// DailyHour is the local hour [0,23] of the daily refresh trigger.
	DailyHour int

	// BootCheck runs one non-forced sync shortly after startup so a restart
	// never serves stale data until the next daily tick.
	BootCheck      bool
	BootCheckDelay time.Duration

	Logger log.Logger
}

// Scheduler owns the timing of engine triggers. It never queues: if a trigger
// fires while a run is in flight, the engine rejects it and the scheduler
// simply waits for the next tick.
type Scheduler struct {
	syncer Syncer
	cfg    Config
	now    func() time.Time
	logger log.Logger
}

// New creates a Scheduler.
func New(syncer Syncer, cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}
	if cfg.BootCheckDelay <= 0 {
		cfg.BootCheckDelay = 10 * time.Second
	}
	return &Scheduler{
		syncer: syncer,
		cfg:    cfg,
		now:    time.Now,
		logger: cfg.Logger.WithName("scheduler"),
	}
}

// Run blocks until ctx is cancelled, firing triggers per the configured
// schedule. It always returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.BootCheck {
		select {
		case <-time.After(s.cfg.BootCheckDelay):
			s.trigger(ctx, "boot")
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		wait := s.untilNextDaily(s.now())
		s.logger.Debug("Waiting for next daily trigger", "wait", wait.String())

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			s.trigger(ctx, "daily")
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// trigger runs one non-forced sync. An already-running engine is expected
// during overlap and logged at debug only.
func (s *Scheduler) trigger(ctx context.Context, kind string) {
	logger := s.logger.WithValues("trigger", kind)
	logger.Info("Scheduled sync trigger firing")

	res, err := s.syncer.Sync(ctx, false)
	if err != nil {
		if errors.Is(err, engine.ErrSyncRunning) {
			logger.Debug("Trigger skipped, a run is already in flight")
			return
		}
		logger.Error(err, "Scheduled sync failed")
		return
	}
	logger.Info("Scheduled sync finished",
		"type", res.Type,
		"decision", string(res.Decision),
		"totalVehicles", res.TotalVehicles)
}

// untilNextDaily computes the wait until the next occurrence of DailyHour,
// always strictly in the future so back-to-back fires cannot happen.
func (s *Scheduler) untilNextDaily(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.DailyHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
