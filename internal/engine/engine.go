// Package engine wires the signal pipeline: risk gate, enricher, router, and
// simulator, processing each signal end to end in one call.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradepilot/internal/enrich"
	"tradepilot/internal/logger"
	"tradepilot/internal/paper"
	"tradepilot/internal/perf"
	"tradepilot/internal/pkg/symbol"
	"tradepilot/internal/portfolio"
	"tradepilot/internal/position"
	"tradepilot/internal/risk"
	"tradepilot/internal/route"
	"tradepilot/internal/types"
)

// ErrConflict marks operations rejected because the target already reached a
// terminal state, such as closing a closed position.
var ErrConflict = errors.New("resource conflict")

// ErrNotFound marks lookups for unknown signals or positions.
var ErrNotFound = errors.New("not found")

// Recorder persists pipeline outcomes. The journal store satisfies it; a nil
// recorder disables persistence.
type Recorder interface {
	RecordSignal(ctx context.Context, sig types.Signal) error
}

// Engine owns the in-memory signal ledger and drives each signal through the
// pipeline. Signals for different symbols process concurrently; the
// per-symbol lock in the position store serializes risk and execution
// decisions against close sweeps for the same symbol.
type Engine struct {
	gate      *risk.Gate
	enricher  *enrich.Enricher
	router    *route.Router
	simulator *paper.Simulator
	positions *position.Store
	manager   *position.Manager
	valuator  *portfolio.Valuator
	perf      *perf.Tracker
	recorder  Recorder

	mu      sync.Mutex
	ledger  map[string]*types.Signal
	order   []string
	started time.Time

	nowFn func() time.Time
}

type Deps struct {
	Gate      *risk.Gate
	Enricher  *enrich.Enricher
	Router    *route.Router
	Simulator *paper.Simulator
	Positions *position.Store
	Manager   *position.Manager
	Valuator  *portfolio.Valuator
	Perf      *perf.Tracker
	Recorder  Recorder
}

func New(deps Deps) *Engine {
	return &Engine{
		gate:      deps.Gate,
		enricher:  deps.Enricher,
		router:    deps.Router,
		simulator: deps.Simulator,
		positions: deps.Positions,
		manager:   deps.Manager,
		valuator:  deps.Valuator,
		perf:      deps.Perf,
		recorder:  deps.Recorder,
		ledger:    make(map[string]*types.Signal),
		started:   time.Now(),
		nowFn:     time.Now,
	}
}

// SubmitSignal processes one signal to a terminal state and returns the
// final record. No signal is ever left in processing state: unexpected
// faults are caught here and mapped to a blocked outcome.
func (e *Engine) SubmitSignal(ctx context.Context, sig types.Signal) types.Signal {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	sig.Symbol = symbol.Normalize(sig.Symbol)
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = e.nowFn()
	}
	if sig.OrderKind == "" {
		sig.OrderKind = types.OrderMarket
	}
	sig.Status = types.StatusReceived
	e.record(&sig)

	sig.Status = types.StatusProcessing
	e.update(sig)

	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("engine: panic processing signal %s: %v", sig.ID, r)
				sig.Status = types.StatusBlocked
				sig.BlockReason = types.BlockAPIError
				sig.SetMeta("block_detail", fmt.Sprintf("internal fault: %v", r))
			}
		}()
		e.process(ctx, &sig)
	}()

	if !sig.Status.Terminal() {
		sig.Status = types.StatusBlocked
		sig.BlockReason = types.BlockAPIError
	}
	e.update(sig)
	e.persist(ctx, sig)
	return sig
}

// process runs the pipeline under the signal's symbol lock. The lock covers
// risk evaluation through position creation so exposure numbers cannot go
// stale between the check and the open.
func (e *Engine) process(ctx context.Context, sig *types.Signal) {
	_ = e.positions.WithSymbolLock(sig.Symbol, func() error {
		// Risk first when the signal already carries a price; otherwise
		// the check runs right after enrichment attaches one.
		if sig.ReferencePrice > 0 {
			if !e.applyRisk(sig) {
				return nil
			}
			if res := e.enricher.Enrich(ctx, sig); !res.OK {
				e.block(sig, res.Reason, res.Detail)
				return nil
			}
		} else {
			if res := e.enricher.Enrich(ctx, sig); !res.OK {
				e.block(sig, res.Reason, res.Detail)
				return nil
			}
			if !e.applyRisk(sig) {
				return nil
			}
		}

		if res := e.router.Route(ctx, sig); !res.OK {
			e.block(sig, res.Reason, res.Detail)
			return nil
		}

		sig.Status = types.StatusExecuted
		e.simulator.Open(sig)
		return nil
	})
}

func (e *Engine) applyRisk(sig *types.Signal) bool {
	check := e.gate.Evaluate(sig)
	if !check.Passed {
		e.block(sig, check.Reason, check.Detail)
		return false
	}
	if check.MaxAllowedQuantity > 0 && check.MaxAllowedQuantity < sig.Quantity {
		sig.SetMeta("original_quantity", sig.Quantity)
		sig.Quantity = check.MaxAllowedQuantity
	}
	return true
}

func (e *Engine) block(sig *types.Signal, reason types.BlockReason, detail string) {
	sig.Status = types.StatusBlocked
	sig.BlockReason = reason
	if detail != "" {
		sig.SetMeta("block_detail", detail)
	}
	logger.Infof("engine: signal %s blocked: %s (%s)", sig.ID, reason, detail)
}

// ClosePosition closes an open position on external request. Closing an
// already-closed position is a conflict, not a no-op.
func (e *Engine) ClosePosition(ctx context.Context, id string) (types.Position, error) {
	pos, err := e.manager.Close(ctx, id)
	switch {
	case errors.Is(err, position.ErrNotFound):
		return types.Position{}, fmt.Errorf("%w: position %s", ErrNotFound, id)
	case errors.Is(err, position.ErrAlreadyClosed):
		return types.Position{}, fmt.Errorf("%w: position %s already closed", ErrConflict, id)
	}
	return pos, err
}

// GetSignal returns a ledger entry by id.
func (e *Engine) GetSignal(id string) (types.Signal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sig, ok := e.ledger[id]
	if !ok {
		return types.Signal{}, false
	}
	return *sig, true
}

// Signals returns up to limit ledger entries, newest first.
func (e *Engine) Signals(limit int) []types.Signal {
	e.mu.Lock()
	defer e.mu.Unlock()
	if limit <= 0 || limit > len(e.order) {
		limit = len(e.order)
	}
	out := make([]types.Signal, 0, limit)
	for i := len(e.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *e.ledger[e.order[i]])
	}
	return out
}

// GetOpenPositions returns the open set.
func (e *Engine) GetOpenPositions() []types.Position {
	return e.positions.Open()
}

// GetClosedPositions returns the in-memory closed set.
func (e *Engine) GetClosedPositions() []types.Position {
	return e.positions.Closed()
}

// GetPortfolioSnapshot values the portfolio at current prices.
func (e *Engine) GetPortfolioSnapshot(ctx context.Context) types.PortfolioSnapshot {
	return e.valuator.Snapshot(ctx)
}

// GetStrategyPerformance returns per-strategy aggregates.
func (e *Engine) GetStrategyPerformance() []types.StrategyPerformance {
	return e.perf.Snapshot()
}

// StatusSummary is the aggregate state exposed to status reads.
type StatusSummary struct {
	UptimeSeconds   float64                    `json:"uptime_seconds"`
	SignalsTotal    int                        `json:"signals_total"`
	SignalsByStatus map[types.SignalStatus]int `json:"signals_by_status"`
	BlocksByReason  map[types.BlockReason]int  `json:"blocks_by_reason"`
	OpenPositions   int                        `json:"open_positions"`
	ClosedPositions int                        `json:"closed_positions"`
	DailyPnL        float64                    `json:"daily_pnl"`
}

// Status aggregates ledger and position counters.
func (e *Engine) Status() StatusSummary {
	e.mu.Lock()
	byStatus := make(map[types.SignalStatus]int)
	byReason := make(map[types.BlockReason]int)
	for _, id := range e.order {
		sig := e.ledger[id]
		byStatus[sig.Status]++
		if sig.Status == types.StatusBlocked && sig.BlockReason != "" {
			byReason[sig.BlockReason]++
		}
	}
	total := len(e.order)
	started := e.started
	e.mu.Unlock()

	return StatusSummary{
		UptimeSeconds:   time.Since(started).Seconds(),
		SignalsTotal:    total,
		SignalsByStatus: byStatus,
		BlocksByReason:  byReason,
		OpenPositions:   e.positions.OpenCount(),
		ClosedPositions: len(e.positions.Closed()),
		DailyPnL:        e.gate.DailyPnL(),
	}
}

// ClearHistory drops the in-memory closed set and reports how many records
// were removed. The journal keeps its rows.
func (e *Engine) ClearHistory() int {
	return e.positions.ClearClosed()
}

func (e *Engine) record(sig *types.Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := *sig
	e.ledger[sig.ID] = &cp
	e.order = append(e.order, sig.ID)
}

func (e *Engine) update(sig types.Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := sig
	e.ledger[sig.ID] = &cp
}

func (e *Engine) persist(ctx context.Context, sig types.Signal) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordSignal(ctx, sig); err != nil {
		logger.Warnf("engine: journal write failed for %s: %v", sig.ID, err)
	}
}
