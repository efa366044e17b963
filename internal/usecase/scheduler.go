package usecase

import (
	"context"
	"time"

	"OpportunityScanner/internal/ports"
)

// Scheduler wires the recurring pipeline jobs onto a job runner.
type Scheduler struct {
	runner   ports.JobRunner
	pipeline *Pipeline
}

// Intervals configures how often each job fires.
type Intervals struct {
	Scan   time.Duration
	Sweep  time.Duration
	Digest time.Duration
}

// NewScheduler returns a helper to start/stop the recurring jobs.
func NewScheduler(runner ports.JobRunner, pipeline *Pipeline) *Scheduler {
	return &Scheduler{runner: runner, pipeline: pipeline}
}

// Start registers scan, sweep, and digest-flush jobs and starts the runner.
func (s *Scheduler) Start(ctx context.Context, intervals Intervals) error {
	if s.runner == nil || s.pipeline == nil {
		return nil
	}

	s.runner.Add("scan", intervals.Scan, func(ctx context.Context) {
		_ = s.pipeline.ScanAll(ctx)
	})
	s.runner.Add("sweep", intervals.Sweep, func(ctx context.Context) {
		s.pipeline.Sweep(ctx)
	})
	s.runner.Add("digest-flush", intervals.Digest, func(ctx context.Context) {
		s.pipeline.FlushDigests(ctx)
	})

	return s.runner.Start(ctx)
}

// Stop gracefully tears down the underlying runner.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.runner == nil {
		return nil
	}
	return s.runner.Stop(ctx)
}
