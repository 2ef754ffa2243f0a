package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tradepilot/internal/config"
	"tradepilot/internal/enrich"
	"tradepilot/internal/market"
	"tradepilot/internal/paper"
	"tradepilot/internal/perf"
	"tradepilot/internal/pkg/symbol"
	"tradepilot/internal/portfolio"
	"tradepilot/internal/position"
	"tradepilot/internal/risk"
	"tradepilot/internal/route"
	"tradepilot/internal/types"
	"tradepilot/internal/venue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	prices map[string]float64
	closed bool
}

func (s *stubSource) GetPrice(ctx context.Context, sym string) (market.Quote, bool) {
	p, ok := s.prices[sym]
	if !ok {
		return market.Quote{}, false
	}
	return market.Quote{Symbol: sym, Price: p, At: time.Now()}, true
}

func (s *stubSource) IsMarketOpen(symbol.Class) bool { return !s.closed }
func (s *stubSource) IsTradeable(string) bool        { return true }

const testProfile = `venues:
  brokersim:
    capabilities: [stocks, etfs, options]
  dexsim:
    capabilities: [crypto]
modes:
  hybrid:
    stocks: brokersim
    etfs: brokersim
    crypto: dexsim
    options: blocked
`

func newTestEngine(t *testing.T, cfg *config.Config, source market.Source) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testProfile), 0o644))
	profiles, err := route.NewProfileRegistry(path)
	require.NoError(t, err)

	store := position.NewStore()
	tracker := perf.NewTracker(nil)
	cfg.Execution.SlippagePct = map[string]float64{"stocks": 0, "etfs": 0, "crypto": 0}
	sim := paper.NewSimulator(cfg, store, tracker)
	mgr := position.NewManager(store, source, tracker, position.ManagerConfig{
		StopLossPct:   cfg.Risk.StopLossPct,
		TakeProfitPct: cfg.Risk.TakeProfitPct,
		MaxHold:       time.Duration(cfg.Risk.MaxHoldHours) * time.Hour,
	})

	return New(Deps{
		Gate:      risk.NewGate(cfg, store),
		Enricher:  enrich.New(source, time.Second),
		Router:    route.NewRouter(profiles, venue.DefaultRegistry(), "hybrid", time.Second),
		Simulator: sim,
		Positions: store,
		Manager:   mgr,
		Valuator:  portfolio.NewValuator(store, source, cfg.Capital.InitialCapital, time.Second),
		Perf:      tracker,
	})
}

func buy(sym string, qty float64) types.Signal {
	return types.Signal{Symbol: sym, Side: types.SideBuy, Quantity: qty, OrderKind: types.OrderMarket}
}

func TestSubmitSignalExecutes(t *testing.T) {
	cfg := config.Default()
	cfg.Capital.InitialCapital = 10000
	e := newTestEngine(t, cfg, &stubSource{prices: map[string]float64{"AAPL": 100}})

	out := e.SubmitSignal(context.Background(), buy("AAPL", 2))

	assert.Equal(t, types.StatusExecuted, out.Status)
	assert.Equal(t, "brokersim", out.Venue)
	assert.Equal(t, 100.0, out.FillPrice)
	require.Len(t, e.GetOpenPositions(), 1)
	assert.Equal(t, out.ID, e.GetOpenPositions()[0].SignalID)
}

func TestSubmitSignalOversizedIsBlocked(t *testing.T) {
	cfg := config.Default()
	cfg.Capital.InitialCapital = 500
	cfg.Risk.MaxPositionPct = 0.10
	e := newTestEngine(t, cfg, &stubSource{prices: map[string]float64{"AAPL": 100}})

	sig := buy("AAPL", 10)
	sig.ReferencePrice = 100
	out := e.SubmitSignal(context.Background(), sig)

	assert.Equal(t, types.StatusBlocked, out.Status)
	assert.Equal(t, types.BlockMaxPositionExceeded, out.BlockReason)
	assert.Empty(t, e.GetOpenPositions())
}

func TestSubmitSignalMarketClosed(t *testing.T) {
	cfg := config.Default()
	e := newTestEngine(t, cfg, &stubSource{prices: map[string]float64{"AAPL": 100}, closed: true})

	out := e.SubmitSignal(context.Background(), buy("AAPL", 1))

	assert.Equal(t, types.StatusBlocked, out.Status)
	assert.Equal(t, types.BlockMarketClosed, out.BlockReason)
}

func TestSubmitSignalNoPrice(t *testing.T) {
	cfg := config.Default()
	e := newTestEngine(t, cfg, &stubSource{prices: map[string]float64{}})

	out := e.SubmitSignal(context.Background(), buy("AAPL", 1))

	assert.Equal(t, types.StatusBlocked, out.Status)
	assert.Equal(t, types.BlockAPIError, out.BlockReason)
}

func TestSubmitSignalNeverLeavesProcessing(t *testing.T) {
	cfg := config.Default()
	e := newTestEngine(t, cfg, &stubSource{prices: map[string]float64{"AAPL": 100}})

	for _, sig := range []types.Signal{buy("AAPL", 1), buy("AAPL", 10000), buy("NOPRICE", 1)} {
		out := e.SubmitSignal(context.Background(), sig)
		assert.True(t, out.Status.Terminal())
		stored, ok := e.GetSignal(out.ID)
		require.True(t, ok)
		assert.True(t, stored.Status.Terminal())
	}
}

func TestSubmitSignalClampsConcentration(t *testing.T) {
	cfg := config.Default()
	cfg.Capital.InitialCapital = 500
	cfg.Risk.MaxPositionPct = 0.10
	cfg.Risk.MaxSymbolExposurePct = 0.15
	e := newTestEngine(t, cfg, &stubSource{prices: map[string]float64{"AAPL": 10}})

	// First order takes 50 of the 75 exposure cap.
	first := e.SubmitSignal(context.Background(), buy("AAPL", 5))
	require.Equal(t, types.StatusExecuted, first.Status)

	// Second asks for 40 notional; only 25 of headroom remains.
	second := e.SubmitSignal(context.Background(), buy("AAPL", 4))
	require.Equal(t, types.StatusExecuted, second.Status)
	assert.InDelta(t, 2.5, second.Quantity, 1e-9)
	assert.Equal(t, 4.0, second.Metadata["original_quantity"])
}

func TestSubmitSignalRecoversFromPanic(t *testing.T) {
	cfg := config.Default()
	e := newTestEngine(t, cfg, &stubSource{prices: map[string]float64{"AAPL": 100}})
	e.enricher = enrich.New(nil, time.Second) // nil source panics on use

	out := e.SubmitSignal(context.Background(), buy("AAPL", 1))

	assert.Equal(t, types.StatusBlocked, out.Status)
	assert.Equal(t, types.BlockAPIError, out.BlockReason)
}

func TestClosePositionConflict(t *testing.T) {
	cfg := config.Default()
	cfg.Capital.InitialCapital = 10000
	e := newTestEngine(t, cfg, &stubSource{prices: map[string]float64{"AAPL": 100}})

	out := e.SubmitSignal(context.Background(), buy("AAPL", 1))
	require.Equal(t, types.StatusExecuted, out.Status)
	posID := out.Metadata["position_id"].(string)

	closed, err := e.ClosePosition(context.Background(), posID)
	require.NoError(t, err)
	assert.Equal(t, types.CloseManual, closed.CloseReason)

	_, err = e.ClosePosition(context.Background(), posID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = e.ClosePosition(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusSummary(t *testing.T) {
	cfg := config.Default()
	cfg.Capital.InitialCapital = 10000
	e := newTestEngine(t, cfg, &stubSource{prices: map[string]float64{"AAPL": 100}})

	e.SubmitSignal(context.Background(), buy("AAPL", 1))
	e.SubmitSignal(context.Background(), buy("NOPRICE", 1))

	status := e.Status()
	assert.Equal(t, 2, status.SignalsTotal)
	assert.Equal(t, 1, status.SignalsByStatus[types.StatusExecuted])
	assert.Equal(t, 1, status.SignalsByStatus[types.StatusBlocked])
	assert.Equal(t, 1, status.BlocksByReason[types.BlockAPIError])
	assert.Equal(t, 1, status.OpenPositions)
}

func TestSignalsNewestFirst(t *testing.T) {
	cfg := config.Default()
	cfg.Capital.InitialCapital = 10000
	e := newTestEngine(t, cfg, &stubSource{prices: map[string]float64{"AAPL": 100}})

	a := e.SubmitSignal(context.Background(), buy("AAPL", 1))
	b := e.SubmitSignal(context.Background(), buy("AAPL", 1))

	got := e.Signals(2)
	require.Len(t, got, 2)
	assert.Equal(t, b.ID, got[0].ID)
	assert.Equal(t, a.ID, got[1].ID)
}

func TestPortfolioInvariantAfterTrades(t *testing.T) {
	cfg := config.Default()
	cfg.Capital.InitialCapital = 10000
	e := newTestEngine(t, cfg, &stubSource{prices: map[string]float64{"AAPL": 100, "BTC": 200}})

	e.SubmitSignal(context.Background(), buy("AAPL", 2))
	e.SubmitSignal(context.Background(), buy("BTC", 1))

	snap := e.GetPortfolioSnapshot(context.Background())
	assert.InDelta(t, snap.CashBalance+snap.TotalMarketValue, snap.TotalPortfolioValue, 1e-2)
	assert.InDelta(t, snap.UnrealizedPnL+snap.RealizedPnL, snap.TotalPnL, 1e-2)
	assert.Equal(t, 2, snap.PositionCount)
}
