package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerRunsOnInterval(t *testing.T) {
	var runs atomic.Int32
	w := NewWorker("test", 5*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})

	w.Start(context.Background())
	defer w.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
}

func TestWorkerRunImmediately(t *testing.T) {
	var runs atomic.Int32
	w := NewWorker("test", time.Hour, func(context.Context) {
		runs.Add(1)
	}).RunImmediately()

	w.Start(context.Background())
	defer w.Stop()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
}

func TestWorkerDoubleStartIsNoOp(t *testing.T) {
	var runs atomic.Int32
	w := NewWorker("test", 5*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})

	w.Start(context.Background())
	w.Start(context.Background())
	assert.True(t, w.Running())

	w.Stop()
	assert.False(t, w.Running())
}

func TestWorkerStopWaitsForInProgressRun(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	w := NewWorker("test", time.Millisecond, func(context.Context) {
		select {
		case entered <- struct{}{}:
			<-release
			finished.Store(true)
		default:
		}
	})

	w.Start(context.Background())
	<-entered
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	w.Stop()

	assert.True(t, finished.Load())
}

func TestWorkerStopsOnParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker("test", time.Millisecond, func(context.Context) {})

	w.Start(ctx)
	cancel()

	require.Eventually(t, func() bool { return !w.Running() }, time.Second, time.Millisecond)
}

func TestWorkerStopWithoutStart(t *testing.T) {
	w := NewWorker("test", time.Millisecond, func(context.Context) {})
	w.Stop()
	assert.False(t, w.Running())
}

func TestWorkerRecoversFromPanic(t *testing.T) {
	var runs atomic.Int32
	w := NewWorker("test", 2*time.Millisecond, func(context.Context) {
		runs.Add(1)
		panic("boom")
	})

	w.Start(context.Background())
	defer w.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
}
