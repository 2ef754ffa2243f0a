// Package scheduler runs periodic background tasks with race-free start and
// stop semantics.
package scheduler

import (
	"context"
	"sync"
	"time"

	"tradepilot/internal/logger"
)

// Worker runs a task on a fixed interval until stopped. Starting a running
// worker is a no-op; stopping halts scheduling at the next loop boundary
// without aborting an in-progress run.
type Worker struct {
	name           string
	interval       time.Duration
	task           func(context.Context)
	runImmediately bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(name string, interval time.Duration, task func(context.Context)) *Worker {
	return &Worker{name: name, interval: interval, task: task}
}

// RunImmediately makes Start execute the task once before the first tick.
func (w *Worker) RunImmediately() *Worker {
	w.runImmediately = true
	return w
}

// Start launches the loop. The worker stops when Stop is called or the
// parent context is cancelled, whichever comes first.
func (w *Worker) Start(ctx context.Context) {
	if w.task == nil || w.interval <= 0 {
		logger.Warnf("scheduler %s: nothing to run (interval=%s)", w.name, w.interval)
		return
	}

	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		logger.Warnf("scheduler %s: already running, start ignored", w.name)
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	logger.Infof("scheduler %s: started interval=%s", w.name, w.interval)
	go w.loop(runCtx, done)
}

func (w *Worker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer w.clear()

	if w.runImmediately {
		w.run(ctx)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("scheduler %s: stopped", w.name)
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("scheduler %s: task panic: %v", w.name, r)
		}
	}()
	w.task(ctx)
}

func (w *Worker) clear() {
	w.mu.Lock()
	w.cancel = nil
	w.mu.Unlock()
}

// Stop cancels the loop and waits for it to exit. Stopping a worker that is
// not running is a no-op.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

// Running reports whether the loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}
