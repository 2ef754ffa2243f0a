// Package app wires the pipeline together: config in, running services out.
package app

import (
	"context"
	"fmt"
	"time"

	"tradepilot/internal/config"
	"tradepilot/internal/engine"
	"tradepilot/internal/logger"
	"tradepilot/internal/position"
	"tradepilot/internal/report"
	"tradepilot/internal/scheduler"
	"tradepilot/internal/store/journal"
	"tradepilot/internal/store/pricelog"
	"tradepilot/internal/strategy"
	apihttp "tradepilot/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// priceHistoryRetention bounds how much tick history the price log keeps.
const priceHistoryRetention = 7 * 24 * time.Hour

type App struct {
	cfg       *config.Config
	engine    *engine.Engine
	manager   *position.Manager
	generator *strategy.Generator
	reporter  *report.Builder
	server    *apihttp.Server
	journal   *journal.Journal
	priceLog  *pricelog.Store
	Summary   *StartupSummary
}

// NewApp builds the application from config without starting anything.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Engine exposes the pipeline engine, for tests and replay harnesses.
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// Run starts the HTTP server and the background workers and blocks until ctx
// is cancelled or a service fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}

	if a.Summary != nil {
		a.Summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)

	if a.server != nil {
		group.Go(func() error {
			logger.Infof("http api listening on %s", a.server.Addr())
			if err := a.server.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}

	workers := a.buildWorkers()
	group.Go(func() error {
		for _, w := range workers {
			w.Start(ctx)
		}
		<-ctx.Done()
		for _, w := range workers {
			w.Stop()
		}
		a.Close()
		return nil
	})

	return group.Wait()
}

func (a *App) buildWorkers() []*scheduler.Worker {
	var workers []*scheduler.Worker

	sweepEvery := time.Duration(a.cfg.Risk.SweepIntervalSec) * time.Second
	if sweepEvery <= 0 {
		sweepEvery = 30 * time.Second
	}
	workers = append(workers, scheduler.NewWorker("position-sweep", sweepEvery, func(ctx context.Context) {
		a.manager.Sweep(ctx)
	}))

	if a.generator != nil {
		genEvery := time.Duration(a.cfg.Signals.IntervalMinutes) * time.Minute
		if genEvery <= 0 {
			genEvery = time.Minute
		}
		workers = append(workers, scheduler.NewWorker("signal-generation", genEvery, func(ctx context.Context) {
			for _, sig := range a.generator.Generate(ctx) {
				out := a.engine.SubmitSignal(ctx, sig)
				logger.Infof("generated signal %s %s %s qty=%.4f status=%s",
					out.ID, out.Symbol, out.Side, out.Quantity, out.Status)
			}
		}).RunImmediately())
	}

	if a.reporter != nil && a.cfg.Report.Snapshot {
		workers = append(workers, scheduler.NewWorker("report-snapshot", time.Hour, func(ctx context.Context) {
			path, err := a.reporter.WriteSnapshot(ctx)
			if err != nil {
				logger.Warnf("report snapshot failed: %v", err)
				return
			}
			logger.Infof("report snapshot written to %s", path)
		}))
	}

	if a.priceLog != nil {
		workers = append(workers, scheduler.NewWorker("pricelog-prune", 24*time.Hour, func(ctx context.Context) {
			cutoff := time.Now().Add(-priceHistoryRetention).UnixMilli()
			n, err := a.priceLog.Prune(ctx, cutoff)
			if err != nil {
				logger.Warnf("price log prune failed: %v", err)
				return
			}
			if n > 0 {
				logger.Infof("pruned %d stale price ticks", n)
			}
		}))
	}

	return workers
}

// Close releases the stores. Safe to call more than once.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logger.Warnf("journal close failed: %v", err)
		}
		a.journal = nil
	}
	if a.priceLog != nil {
		if err := a.priceLog.Close(); err != nil {
			logger.Warnf("price log close failed: %v", err)
		}
		a.priceLog = nil
	}
}
