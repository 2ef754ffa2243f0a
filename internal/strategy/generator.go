// Package strategy computes technical indicators over rolling price windows
// and emits candidate trade signals.
package strategy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradepilot/internal/config"
	"tradepilot/internal/logger"
	"tradepilot/internal/market"
	"tradepilot/internal/perf"
	"tradepilot/internal/types"
)

// Generator runs the enabled strategy rules over the symbol universe. Each
// Generate pass appends the latest price to every symbol's window, evaluates
// the rules, and returns the filtered, strength-ranked signal batch.
type Generator struct {
	mu sync.Mutex

	cfg            config.SignalsConfig
	ruleCfg        ruleConfig
	capital        float64
	maxPositionPct float64
	universe       []string
	source         market.Source
	tracker        *perf.Tracker

	windows   map[string][]float64
	windowCap int
	lastRun   time.Time
	timeout   time.Duration
	nowFn     func() time.Time
	openCount func() int
}

func NewGenerator(cfg *config.Config, source market.Source, tracker *perf.Tracker) *Generator {
	windowCap := cfg.Signals.SlowPeriod + cfg.Signals.BreakoutPeriod + 5
	return &Generator{
		cfg: cfg.Signals,
		ruleCfg: ruleConfig{
			FastPeriod:     cfg.Signals.FastPeriod,
			SlowPeriod:     cfg.Signals.SlowPeriod,
			RSIPeriod:      cfg.Signals.RSIPeriod,
			BreakoutPeriod: cfg.Signals.BreakoutPeriod,
		},
		capital:        cfg.Capital.InitialCapital,
		maxPositionPct: cfg.Risk.MaxPositionPct,
		universe:       cfg.Symbols.Universe(),
		source:         source,
		tracker:        tracker,
		windows:        make(map[string][]float64),
		windowCap:      windowCap,
		timeout:        time.Duration(cfg.Execution.ProviderTimeoutSec) * time.Second,
		nowFn:          time.Now,
	}
}

// SetNow overrides the rate-limit clock. Test hook.
func (g *Generator) SetNow(fn func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nowFn = fn
}

// BindOpenCount wires the open-position counter used to enforce the
// position-slot cap. Without it the cap is not applied.
func (g *Generator) BindOpenCount(fn func() int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.openCount = fn
}

// Prime seeds a symbol's price window, oldest first. Used at startup to
// backfill history and by tests to set up deterministic indicator state.
func (g *Generator) Prime(sym string, prices []float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range prices {
		g.push(sym, p)
	}
}

func (g *Generator) push(sym string, price float64) {
	w := append(g.windows[sym], price)
	if len(w) > g.windowCap {
		w = w[len(w)-g.windowCap:]
	}
	g.windows[sym] = w
}

// Generate runs one strategy pass. Passes are rate-limited to the configured
// interval; a call inside the window returns nil without touching state.
func (g *Generator) Generate(ctx context.Context) []types.Signal {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFn()
	interval := time.Duration(g.cfg.IntervalMinutes) * time.Minute
	if !g.lastRun.IsZero() && now.Sub(g.lastRun) < interval {
		return nil
	}
	g.lastRun = now

	var candidates []candidate
	for _, sym := range g.universe {
		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		quote, ok := g.source.GetPrice(cctx, sym)
		cancel()
		if !ok || quote.Price <= 0 {
			logger.Warnf("strategy: no price for %s, skipping", sym)
			continue
		}
		g.push(sym, quote.Price)
		closes := g.windows[sym]

		for _, name := range g.cfg.Strategies {
			eval, ok := rules[name]
			if !ok {
				continue
			}
			c, fired := eval(sym, closes, g.ruleCfg)
			if !fired {
				continue
			}
			if g.tracker != nil {
				g.tracker.RecordGenerated(name, 1)
			}
			candidates = append(candidates, c)
		}
	}

	minRank := types.Strength(g.cfg.MinStrength).Rank()
	kept := candidates[:0]
	for _, c := range candidates {
		if c.Strength.Rank() >= minRank {
			kept = append(kept, c)
		}
	}

	// Strongest first; cap the batch at the per-interval budget and at the
	// remaining position slots.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Strength.Rank() > kept[j].Strength.Rank()
	})
	if len(kept) > g.cfg.MaxPerInterval {
		kept = kept[:g.cfg.MaxPerInterval]
	}
	if g.openCount != nil {
		slots := g.cfg.MaxPositionSlots - g.openCount()
		if slots <= 0 {
			if len(kept) > 0 {
				logger.Infof("strategy: %d candidates dropped, all %d position slots in use", len(kept), g.cfg.MaxPositionSlots)
			}
			return nil
		}
		if len(kept) > slots {
			kept = kept[:slots]
		}
	}

	signals := make([]types.Signal, 0, len(kept))
	for _, c := range kept {
		sig := types.Signal{
			ID:             uuid.NewString(),
			Symbol:         c.Symbol,
			Side:           c.Side,
			Quantity:       g.sizeQuantity(c),
			OrderKind:      types.OrderMarket,
			ReferencePrice: c.Price,
			Strategy:       c.Strategy,
			Strength:       c.Strength,
			CreatedAt:      now,
			Status:         types.StatusReceived,
		}
		sig.SetMeta("reason", c.Reason)
		signals = append(signals, sig)
	}
	if len(signals) > 0 {
		logger.Infof("strategy: generated %d signals (%d candidates)", len(signals), len(candidates))
	}
	return signals
}

// sizeQuantity converts strength into a notional fraction of the
// per-position capital budget.
func (g *Generator) sizeQuantity(c candidate) float64 {
	if c.Price <= 0 {
		return 0
	}
	budget := g.capital * g.maxPositionPct
	factor := 0.25 * float64(c.Strength.Rank()+1)
	return budget * factor / c.Price
}
