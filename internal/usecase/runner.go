package usecase

import (
	"context"
	"log/slog"
	"time"

	"sipwatcher/internal/ports"
)

// Runner binds the interval driver to the pipeline for recurring runs.
type Runner struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewRunner returns a helper to start/stop recurring watcher runs.
func NewRunner(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Runner {
	return &Runner{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (r *Runner) Start(ctx context.Context) error {
	if r.driver == nil || r.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if err := r.pipeline.Run(ctx); err != nil && r.logger != nil {
			r.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
		}
	}

	return r.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (r *Runner) Stop(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}

	return r.driver.Stop(ctx)
}
