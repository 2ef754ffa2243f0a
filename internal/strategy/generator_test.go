package strategy

import (
	"context"
	"testing"
	"time"

	"tradepilot/internal/config"
	"tradepilot/internal/market"
	"tradepilot/internal/perf"
	"tradepilot/internal/pkg/symbol"
	"tradepilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lastPrice map[string]float64

func (m lastPrice) GetPrice(ctx context.Context, sym string) (market.Quote, bool) {
	p, ok := m[sym]
	if !ok {
		return market.Quote{}, false
	}
	return market.Quote{Symbol: sym, Price: p, At: time.Now()}, true
}

func (m lastPrice) IsMarketOpen(symbol.Class) bool { return true }
func (m lastPrice) IsTradeable(string) bool        { return true }

func testConfig(strategies ...string) *config.Config {
	cfg := config.Default()
	cfg.Symbols.Stocks = []string{"AAPL"}
	cfg.Symbols.ETFs = nil
	cfg.Symbols.Crypto = nil
	cfg.Signals.Strategies = strategies
	cfg.Signals.MinStrength = "moderate"
	cfg.Signals.FastPeriod = 2
	cfg.Signals.SlowPeriod = 4
	cfg.Signals.RSIPeriod = 14
	cfg.Signals.BreakoutPeriod = 5
	return cfg
}

func declining(start float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start - float64(i)
	}
	return out
}

func alternating(base float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base
		if i%2 == 1 {
			out[i] = base + 1
		}
	}
	return out
}

func TestRSIOversoldEmitsBuy(t *testing.T) {
	cfg := testConfig(StrategyRSIMeanReversion)
	tracker := perf.NewTracker(nil)
	gen := NewGenerator(cfg, lastPrice{"AAPL": 79}, tracker)
	gen.Prime("AAPL", declining(100, 20))

	signals := gen.Generate(context.Background())

	require.Len(t, signals, 1)
	sig := signals[0]
	assert.Equal(t, types.SideBuy, sig.Side)
	assert.Equal(t, StrategyRSIMeanReversion, sig.Strategy)
	assert.Equal(t, types.StatusReceived, sig.Status)
	assert.Equal(t, 79.0, sig.ReferencePrice)
	assert.Greater(t, sig.Quantity, 0.0)

	snap := tracker.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 1, snap[0].SignalsGenerated)
}

func TestRSINeutralEmitsNothing(t *testing.T) {
	cfg := testConfig(StrategyRSIMeanReversion)
	gen := NewGenerator(cfg, lastPrice{"AAPL": 100}, perf.NewTracker(nil))
	gen.Prime("AAPL", alternating(100, 30))

	signals := gen.Generate(context.Background())

	assert.Empty(t, signals)
}

func TestMACrossoverBuy(t *testing.T) {
	cfg := testConfig(StrategyMACrossover)
	gen := NewGenerator(cfg, lastPrice{"AAPL": 110}, perf.NewTracker(nil))
	gen.Prime("AAPL", []float64{100, 100, 100, 100, 100})

	signals := gen.Generate(context.Background())

	require.Len(t, signals, 1)
	assert.Equal(t, types.SideBuy, signals[0].Side)
	assert.Equal(t, StrategyMACrossover, signals[0].Strategy)
}

func TestMomentumBreakoutBuy(t *testing.T) {
	cfg := testConfig(StrategyMomentumBreakout)
	gen := NewGenerator(cfg, lastPrice{"AAPL": 102}, perf.NewTracker(nil))
	gen.Prime("AAPL", []float64{100, 100, 100, 100, 100, 100})

	signals := gen.Generate(context.Background())

	require.Len(t, signals, 1)
	assert.Equal(t, types.SideBuy, signals[0].Side)
	assert.Equal(t, StrategyMomentumBreakout, signals[0].Strategy)
}

func TestGenerateRateLimited(t *testing.T) {
	cfg := testConfig(StrategyRSIMeanReversion)
	gen := NewGenerator(cfg, lastPrice{"AAPL": 79}, perf.NewTracker(nil))
	gen.Prime("AAPL", declining(100, 20))

	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	gen.SetNow(func() time.Time { return at })

	first := gen.Generate(context.Background())
	require.NotEmpty(t, first)

	// Second call inside the interval is a no-op.
	at = at.Add(time.Minute)
	assert.Nil(t, gen.Generate(context.Background()))

	// Past the interval the generator runs again.
	at = at.Add(time.Duration(cfg.Signals.IntervalMinutes) * time.Minute)
	assert.NotEmpty(t, gen.Generate(context.Background()))
}

func TestGenerateKeepsStrongestWhenOverBudget(t *testing.T) {
	cfg := testConfig(StrategyRSIMeanReversion, StrategyMomentumBreakout)
	cfg.Signals.MaxPerInterval = 1
	gen := NewGenerator(cfg, lastPrice{"AAPL": 79}, perf.NewTracker(nil))
	// Deep decline: RSI near zero (very strong) and a breakdown below the
	// range low (weaker).
	gen.Prime("AAPL", declining(100, 20))

	signals := gen.Generate(context.Background())

	require.Len(t, signals, 1)
	assert.Equal(t, StrategyRSIMeanReversion, signals[0].Strategy)
	assert.Equal(t, types.StrengthVeryStrong, signals[0].Strength)
}

func TestGenerateStopsWhenSlotsFull(t *testing.T) {
	cfg := testConfig(StrategyRSIMeanReversion)
	cfg.Signals.MaxPositionSlots = 3
	gen := NewGenerator(cfg, lastPrice{"AAPL": 79}, perf.NewTracker(nil))
	gen.Prime("AAPL", declining(100, 20))

	open := 3
	gen.BindOpenCount(func() int { return open })

	assert.Empty(t, gen.Generate(context.Background()))

	// A freed slot lets the next pass emit again.
	open = 2
	gen.SetNow(func() time.Time {
		return time.Now().Add(time.Duration(cfg.Signals.IntervalMinutes+1) * time.Minute)
	})
	assert.NotEmpty(t, gen.Generate(context.Background()))
}

func TestGenerateCapsBatchToFreeSlots(t *testing.T) {
	cfg := testConfig(StrategyRSIMeanReversion, StrategyMomentumBreakout)
	cfg.Signals.MinStrength = "weak"
	cfg.Signals.MaxPositionSlots = 5
	gen := NewGenerator(cfg, lastPrice{"AAPL": 79}, perf.NewTracker(nil))
	gen.Prime("AAPL", declining(100, 20))
	gen.BindOpenCount(func() int { return 4 })

	// Both rules fire on the decline, but only one slot remains; the
	// strongest candidate wins it.
	signals := gen.Generate(context.Background())

	require.Len(t, signals, 1)
	assert.Equal(t, StrategyRSIMeanReversion, signals[0].Strategy)
}

func TestGenerateSkipsSymbolsWithoutPrices(t *testing.T) {
	cfg := testConfig(StrategyRSIMeanReversion)
	gen := NewGenerator(cfg, lastPrice{}, perf.NewTracker(nil))
	gen.Prime("AAPL", declining(100, 20))

	assert.Empty(t, gen.Generate(context.Background()))
}
