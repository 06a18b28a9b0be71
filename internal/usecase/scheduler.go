package usecase

import (
	"context"
	"errors"
	"time"

	"FilingsScanner/internal/domain"
	"FilingsScanner/internal/ports"
)

// Scheduler wires the cron driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline}
}

// Start registers the pipeline with the provided scheduler; each tick imports the tick's day.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		_, err := s.pipeline.Import(ctx, trigger)
		if errors.Is(err, domain.ErrImportRunning) {
			s.pipeline.logger.Warn("scheduled import skipped, another run is in progress", "trigger", trigger.Format(time.RFC3339))
			return
		}
		if err != nil {
			s.pipeline.logger.Error("scheduled import failed", "trigger", trigger.Format(time.RFC3339), "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
