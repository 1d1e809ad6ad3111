// Package scheduler wires up the cron jobs that drive the daemon: the daily
// ingestion run and a periodic maintenance sweep over the in-process caches.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// RunFunc executes one ingestion cycle for the given date.
type RunFunc func(ctx context.Context, date time.Time) error

// SweepFunc runs one maintenance pass.
type SweepFunc func()

// Scheduler wraps robfig/cron and manages the ingestion loop.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	run    RunFunc
	sweep  SweepFunc
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Scheduler that fires on the given cron spec.
func New(spec string, run RunFunc, sweep SweepFunc, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		spec:   spec,
		run:    run,
		sweep:  sweep,
		logger: logger,
		now:    time.Now,
	}
}

// Start registers the jobs and starts the scheduler. Also runs one ingestion
// cycle immediately so the feed is populated without waiting for the first
// tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		s.runCycle(ctx)
	}); err != nil {
		return fmt.Errorf("register ingestion job %q: %w", s.spec, err)
	}

	if s.sweep != nil {
		if _, err := s.cron.AddFunc("@every 1h", func() {
			s.sweep()
		}); err != nil {
			return fmt.Errorf("register sweep job: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.spec)

	// Run immediately on startup (non-blocking)
	go s.runCycle(ctx)

	return nil
}

// Stop shuts the scheduler down and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	date := s.now().UTC()
	if err := s.run(ctx, date); err != nil {
		s.logger.Error("scheduled ingestion run failed", "date", date.Format("2006-01-02"), "error", err)
	}
}
