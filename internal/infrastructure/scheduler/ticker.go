// Package scheduler runs named recurring jobs on independent tickers.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"OpportunityScanner/internal/ports"
)

type job struct {
	name     string
	interval time.Duration
	run      func(context.Context)
}

// TickerRunner implements ports.JobRunner with one goroutine per job. Each
// job fires once at startup and then on its interval.
type TickerRunner struct {
	mu      sync.Mutex
	jobs    []job
	stop    chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger
	started bool
}

var _ ports.JobRunner = (*TickerRunner)(nil)

// NewTickerRunner builds an empty runner.
func NewTickerRunner(logger *slog.Logger) *TickerRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &TickerRunner{logger: logger}
}

// Add registers a job. Registration after Start is ignored.
func (r *TickerRunner) Add(name string, interval time.Duration, run func(context.Context)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || run == nil || interval <= 0 {
		return
	}
	r.jobs = append(r.jobs, job{name: name, interval: interval, run: run})
}

// Start launches every registered job.
func (r *TickerRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	r.started = true
	r.stop = make(chan struct{})

	for _, j := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, j)
	}
	return nil
}

func (r *TickerRunner) loop(ctx context.Context, j job) {
	defer r.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	r.logger.Info("job started", "job", j.name, "interval", j.interval)
	j.run(ctx)

	for {
		select {
		case <-ticker.C:
			j.run(ctx)
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		}
	}
}

// Stop halts all job goroutines and waits for in-flight runs to finish.
func (r *TickerRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	close(r.stop)
	r.started = false
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
