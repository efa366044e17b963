package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerFiresImmediatelyAndOnInterval(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	runner := NewTickerRunner(nil)
	runner.Add("count", 20*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})

	require.NoError(t, runner.Start(context.Background()))
	t.Cleanup(func() { _ = runner.Stop(context.Background()) })

	assert.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestRunnerStopHaltsJobs(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	runner := NewTickerRunner(nil)
	runner.Add("count", 10*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})

	require.NoError(t, runner.Start(context.Background()))
	require.NoError(t, runner.Stop(context.Background()))

	settled := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, runs.Load())
}

func TestRunnerIgnoresInvalidJobs(t *testing.T) {
	t.Parallel()

	runner := NewTickerRunner(nil)
	runner.Add("nil-run", time.Second, nil)
	runner.Add("zero-interval", 0, func(context.Context) {})

	require.NoError(t, runner.Start(context.Background()))
	assert.NoError(t, runner.Stop(context.Background()))
}

func TestRunnerStartIsIdempotent(t *testing.T) {
	t.Parallel()

	runner := NewTickerRunner(nil)
	runner.Add("noop", time.Hour, func(context.Context) {})

	require.NoError(t, runner.Start(context.Background()))
	require.NoError(t, runner.Start(context.Background()))
	assert.NoError(t, runner.Stop(context.Background()))
}
