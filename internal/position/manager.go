package position

import (
	"context"
	"fmt"
	"time"

	"tradepilot/internal/logger"
	"tradepilot/internal/market"
	"tradepilot/internal/perf"
	"tradepilot/internal/types"
)

// ManagerConfig holds the close-rule thresholds.
type ManagerConfig struct {
	StopLossPct     float64       // close when loss exceeds this percent
	TakeProfitPct   float64       // close when gain exceeds this percent
	MaxHold         time.Duration // close when held longer than this
	ProviderTimeout time.Duration // bound on market-data lookups
}

// CloseHook observes every finalized close, sweep or manual.
type CloseHook func(types.Position)

// Manager runs the periodic close sweep over open positions and services
// manual close requests. Both paths funnel through one finalization step and
// both take the store's per-symbol lock, so close evaluation never interleaves
// with an in-flight risk decision on the same symbol.
type Manager struct {
	store  *Store
	source market.Source
	perf   *perf.Tracker
	cfg    ManagerConfig
	hooks  []CloseHook
	nowFn  func() time.Time
}

func NewManager(store *Store, source market.Source, tracker *perf.Tracker, cfg ManagerConfig) *Manager {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 5 * time.Second
	}
	return &Manager{
		store:  store,
		source: source,
		perf:   tracker,
		cfg:    cfg,
		nowFn:  time.Now,
	}
}

// SetNow overrides the sweep clock; used by tests to exercise time exits.
func (m *Manager) SetNow(fn func() time.Time) {
	if fn != nil {
		m.nowFn = fn
	}
}

// OnClose registers a hook invoked after each finalized close.
func (m *Manager) OnClose(hook CloseHook) {
	if hook != nil {
		m.hooks = append(m.hooks, hook)
	}
}

// Sweep evaluates every open position once. A failure for one symbol is
// logged and skipped; the rest of the sweep continues.
func (m *Manager) Sweep(ctx context.Context) {
	bySymbol := make(map[string][]types.Position)
	for _, p := range m.store.Open() {
		bySymbol[p.Symbol] = append(bySymbol[p.Symbol], p)
	}
	for sym, positions := range bySymbol {
		if ctx.Err() != nil {
			return
		}
		sym, positions := sym, positions
		err := m.store.WithSymbolLock(sym, func() error {
			return m.sweepSymbol(ctx, sym, positions)
		})
		if err != nil {
			logger.Warnf("position sweep: %s skipped: %v", sym, err)
		}
	}
}

func (m *Manager) sweepSymbol(ctx context.Context, sym string, positions []types.Position) error {
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.ProviderTimeout)
	defer cancel()
	quote, ok := m.source.GetPrice(callCtx, sym)
	if !ok {
		return fmt.Errorf("no price for %s", sym)
	}
	for _, p := range positions {
		// Snapshot may be stale; re-check under the lock.
		current, stillOpen := m.store.Get(p.ID)
		if !stillOpen || !current.Open {
			continue
		}
		if reason, hit := m.exitReason(current, quote.Price); hit {
			m.finalize(current.ID, quote.Price, reason)
		}
	}
	return nil
}

func (m *Manager) exitReason(p types.Position, currentPrice float64) (types.CloseReason, bool) {
	pct := p.PnLPercent(currentPrice)
	switch {
	case pct < -m.cfg.StopLossPct:
		return types.CloseStopLoss, true
	case pct > m.cfg.TakeProfitPct:
		return types.CloseTakeProfit, true
	case m.cfg.MaxHold > 0 && m.nowFn().Sub(p.EntryTime) > m.cfg.MaxHold:
		return types.CloseTimeExit, true
	}
	return "", false
}

// Close services an explicit close request for one position. Closing an
// already-closed position returns ErrAlreadyClosed.
func (m *Manager) Close(ctx context.Context, id string) (types.Position, error) {
	p, ok := m.store.Get(id)
	if !ok {
		return types.Position{}, ErrNotFound
	}
	if !p.Open {
		return types.Position{}, ErrAlreadyClosed
	}
	var closed types.Position
	err := m.store.WithSymbolLock(p.Symbol, func() error {
		callCtx, cancel := context.WithTimeout(ctx, m.cfg.ProviderTimeout)
		defer cancel()
		quote, ok := m.source.GetPrice(callCtx, p.Symbol)
		if !ok {
			return fmt.Errorf("no price for %s", p.Symbol)
		}
		var err error
		closed, err = m.finalize(id, quote.Price, types.CloseManual)
		return err
	})
	return closed, err
}

// finalize is the single close path: store transition, performance
// aggregation, hooks. Callers hold the symbol lock.
func (m *Manager) finalize(id string, exitPrice float64, reason types.CloseReason) (types.Position, error) {
	closed, err := m.store.Close(id, exitPrice, m.nowFn(), reason)
	if err != nil {
		return types.Position{}, err
	}
	if m.perf != nil {
		m.perf.RecordClosed(closed.Strategy, closed.RealizedPnL)
	}
	for _, hook := range m.hooks {
		hook(closed)
	}
	logger.Infof("position closed: %s %s %s pnl=%.2f", closed.Symbol, closed.ID, reason, closed.RealizedPnL)
	return closed, nil
}
