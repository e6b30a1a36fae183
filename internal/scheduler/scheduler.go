package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"hotel-reservation-engine/internal/jobs"
	"hotel-reservation-engine/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner. It fails
// when a configured schedule cannot be parsed.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// Release rooms held by bookings that were never paid
	if _, err := s.cron.AddFunc(cfg.ExpireUnpaidBookings, s.jobs.ExpireUnpaidBookings); err != nil {
		logger.Error("Failed to register ExpireUnpaidBookings job", "error", err)
		return fmt.Errorf("schedule ExpireUnpaidBookings %q: %w", cfg.ExpireUnpaidBookings, err)
	}

	// Close out stays after check-out
	if _, err := s.cron.AddFunc(cfg.CompleteFinishedStays, s.jobs.CompleteFinishedStays); err != nil {
		logger.Error("Failed to register CompleteFinishedStays job", "error", err)
		return fmt.Errorf("schedule CompleteFinishedStays %q: %w", cfg.CompleteFinishedStays, err)
	}

	logger.Info("All cron jobs registered successfully", "count", len(s.cron.Entries()))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
