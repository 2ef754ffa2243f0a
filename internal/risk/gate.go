// Package risk validates signals against capital, exposure, and loss-limit
// rules before they reach execution.
package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"tradepilot/internal/config"
	"tradepilot/internal/logger"
	"tradepilot/internal/position"
	"tradepilot/internal/types"
)

// Gate applies the ordered risk checks to an incoming signal. It owns the
// daily realized P&L counter; exposure and balance figures are read from the
// position store on every call so checks always see current state.
type Gate struct {
	mu sync.Mutex

	capital              float64
	minBalance           float64
	maxPositionPct       float64
	maxDailyLossPct      float64
	maxSymbolExposurePct float64

	dailyPnL float64
	pnlDate  string

	store *position.Store
	nowFn func() time.Time
}

func NewGate(cfg *config.Config, store *position.Store) *Gate {
	g := &Gate{
		capital:              cfg.Capital.InitialCapital,
		minBalance:           cfg.Capital.MinBalance,
		maxPositionPct:       cfg.Risk.MaxPositionPct,
		maxDailyLossPct:      cfg.Risk.MaxDailyLossPct,
		maxSymbolExposurePct: cfg.Risk.MaxSymbolExposurePct,
		store:                store,
		nowFn:                time.Now,
	}
	g.pnlDate = g.nowFn().Format("2006-01-02")
	return g
}

// SetNow overrides the clock used for daily rollover. Test hook.
func (g *Gate) SetNow(fn func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nowFn = fn
}

// RecordRealized feeds a closed position's realized P&L into the daily
// counter. Wired to the position manager's close hook.
func (g *Gate) RecordRealized(pnl float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	g.dailyPnL += pnl
}

// DailyPnL returns the realized P&L accumulated since the last local-date
// rollover.
func (g *Gate) DailyPnL() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	return g.dailyPnL
}

// rolloverLocked resets the daily counter when the local date has changed
// since the last touch. Caller holds mu.
func (g *Gate) rolloverLocked() {
	today := g.nowFn().Format("2006-01-02")
	if today != g.pnlDate {
		logger.Infof("risk: daily counters reset, %s -> %s (prior daily pnl %.2f)", g.pnlDate, today, g.dailyPnL)
		g.pnlDate = today
		g.dailyPnL = 0
	}
}

// Evaluate runs the full check sequence against the signal. When the
// concentration check clamps the quantity, the reduced order re-enters the
// sequence once; the result then carries MaxAllowedQuantity and the caller
// must size the trade from it, not from the signal.
func (g *Gate) Evaluate(sig *types.Signal) types.RiskCheck {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()

	check := g.checkLocked(sig, sig.Quantity)
	if check.Passed || check.MaxAllowedQuantity == 0 {
		return check
	}

	// Concentration headroom clamp: re-validate the reduced size against
	// every rule before accepting it.
	clamped := check.MaxAllowedQuantity
	recheck := g.checkLocked(sig, clamped)
	if !recheck.Passed {
		recheck.MaxAllowedQuantity = 0
		return recheck
	}
	recheck.MaxAllowedQuantity = clamped
	recheck.Detail = fmt.Sprintf("quantity clamped %.4f -> %.4f by symbol exposure cap", sig.Quantity, clamped)
	logger.Warnf("risk: %s %s clamped to %.4f by concentration limit", sig.Symbol, sig.Side, clamped)
	return recheck
}

// checkLocked evaluates the ordered rules for a candidate quantity. A failed
// concentration check with remaining headroom reports Passed=false with
// MaxAllowedQuantity set; every other failure leaves it zero. Caller holds mu.
func (g *Gate) checkLocked(sig *types.Signal, qty float64) types.RiskCheck {
	cost := qty * sig.ReferencePrice

	maxPosition := g.capital * g.maxPositionPct
	if cost > maxPosition {
		return types.RiskCheck{
			Reason: types.BlockMaxPositionExceeded,
			Detail: fmt.Sprintf("order value %.2f exceeds per-position cap %.2f", cost, maxPosition),
		}
	}

	// The circuit keys on magnitude: a daily swing at the limit halts new
	// entries in either direction until the date rolls over.
	lossLimit := g.capital * g.maxDailyLossPct
	if math.Abs(g.dailyPnL) >= lossLimit {
		return types.RiskCheck{
			Reason: types.BlockDailyLossLimit,
			Detail: fmt.Sprintf("daily pnl %.2f at or beyond swing limit %.2f", g.dailyPnL, lossLimit),
		}
	}

	balance := g.capital - g.store.OpenCostBasis() + g.store.RealizedTotal()
	if balance-cost < g.minBalance {
		return types.RiskCheck{
			Reason: types.BlockInsufficientCapital,
			Detail: fmt.Sprintf("projected balance %.2f below floor %.2f", balance-cost, g.minBalance),
		}
	}

	exposureCap := g.capital * g.maxSymbolExposurePct
	exposure := g.store.Exposure(sig.Symbol)
	if exposure+cost > exposureCap {
		headroom := exposureCap - exposure
		if headroom <= 0 || sig.ReferencePrice <= 0 {
			return types.RiskCheck{
				Reason: types.BlockMaxPositionExceeded,
				Detail: fmt.Sprintf("symbol exposure %.2f already at cap %.2f", exposure, exposureCap),
			}
		}
		return types.RiskCheck{
			Reason:             types.BlockMaxPositionExceeded,
			Detail:             fmt.Sprintf("symbol exposure %.2f + order %.2f exceeds cap %.2f", exposure, cost, exposureCap),
			MaxAllowedQuantity: headroom / sig.ReferencePrice,
		}
	}

	return types.RiskCheck{Passed: true}
}
