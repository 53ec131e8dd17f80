/**
 * @description
 * Cron scheduler setup for the optional depreciation poster.
 */
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	jobs     *Jobs
	logger   zerolog.Logger
	schedule string
}

// NewScheduler creates a new scheduler instance. Schedules use the standard
// five-field cron syntax or descriptors such as @daily.
func NewScheduler(jobs *Jobs, logger zerolog.Logger, schedule string) *Scheduler {
	schedLogger := logger.With().Str("component", "scheduler").Logger()
	cronLogger := cron.PrintfLogger(&schedLogger)
	c := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{
		cron:     c,
		jobs:     jobs,
		logger:   schedLogger,
		schedule: strings.TrimSpace(schedule),
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.jobs.RunDepreciationJob); err != nil {
		return fmt.Errorf("schedule depreciation job %q: %w", s.schedule, err)
	}
	s.logger.Info().Str("schedule", s.schedule).Msg("scheduled depreciation job")
	s.cron.Start()
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Run starts the scheduler and blocks until ctx is cancelled and running jobs finish.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	<-s.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
	return nil
}
