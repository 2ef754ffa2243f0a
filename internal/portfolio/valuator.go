// Package portfolio reconciles cash, market value, and P&L into point-in-time
// snapshots.
package portfolio

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradepilot/internal/logger"
	"tradepilot/internal/market"
	"tradepilot/internal/position"
	"tradepilot/internal/types"
)

// Valuator computes portfolio snapshots on demand. The cash ledger is kept
// in decimals so an empty position set values out to the initial capital
// exactly, with no float drift.
type Valuator struct {
	mu sync.Mutex

	store  *position.Store
	source market.Source

	initialCapital decimal.Decimal
	deposits       decimal.Decimal
	withdrawals    decimal.Decimal

	prev    *types.PortfolioSnapshot
	timeout time.Duration
	nowFn   func() time.Time
}

func NewValuator(store *position.Store, source market.Source, initialCapital float64, providerTimeout time.Duration) *Valuator {
	if providerTimeout <= 0 {
		providerTimeout = 5 * time.Second
	}
	return &Valuator{
		store:          store,
		source:         source,
		initialCapital: decimal.NewFromFloat(initialCapital),
		timeout:        providerTimeout,
		nowFn:          time.Now,
	}
}

// SetNow overrides the snapshot clock. Test hook.
func (v *Valuator) SetNow(fn func() time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nowFn = fn
}

// Deposit credits the cash ledger.
func (v *Valuator) Deposit(amount float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deposits = v.deposits.Add(decimal.NewFromFloat(amount))
}

// Withdraw debits the cash ledger. The balance may go negative; risk checks
// are the gate's job, not the ledger's.
func (v *Valuator) Withdraw(amount float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.withdrawals = v.withdrawals.Add(decimal.NewFromFloat(amount))
}

// cashBalance derives the ledger balance from its components.
func (v *Valuator) cashBalance(openCostBasis, realized float64) decimal.Decimal {
	return v.initialCapital.
		Sub(decimal.NewFromFloat(openCostBasis)).
		Add(decimal.NewFromFloat(realized)).
		Add(v.deposits).
		Sub(v.withdrawals)
}

// Snapshot values the open-position set at current prices. Positions whose
// price is unavailable are marked at entry, which keeps their unrealized
// P&L at zero rather than dropping them from the total.
func (v *Valuator) Snapshot(ctx context.Context) types.PortfolioSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	open := v.store.Open()
	realized := v.store.RealizedTotal()
	openCost := 0.0
	for _, p := range open {
		openCost += p.CostBasis()
	}
	cash := v.cashBalance(openCost, realized)

	snap := types.PortfolioSnapshot{
		Timestamp:     v.nowFn(),
		RealizedPnL:   realized,
		PositionCount: len(open),
		Positions:     make([]types.PositionValue, 0, len(open)),
	}

	for _, p := range open {
		price := p.EntryPrice
		cctx, cancel := context.WithTimeout(ctx, v.timeout)
		quote, ok := v.source.GetPrice(cctx, p.Symbol)
		cancel()
		if ok && quote.Price > 0 {
			price = quote.Price
		} else {
			logger.Warnf("portfolio: no price for %s, marking at entry", p.Symbol)
		}

		mv := p.Quantity * price
		pv := types.PositionValue{
			Symbol:        p.Symbol,
			Side:          p.Side,
			Quantity:      p.Quantity,
			EntryPrice:    p.EntryPrice,
			CurrentPrice:  price,
			MarketValue:   mv,
			CostBasis:     p.CostBasis(),
			UnrealizedPnL: mv - p.CostBasis(),
		}
		if p.Side == types.SideSell {
			pv.UnrealizedPnL = p.CostBasis() - mv
		}
		snap.TotalMarketValue += mv
		snap.TotalCostBasis += pv.CostBasis
		snap.UnrealizedPnL += pv.UnrealizedPnL
		snap.Positions = append(snap.Positions, pv)
	}

	cashF, _ := cash.Float64()
	snap.CashBalance = cashF
	snap.TotalPortfolioValue = snap.CashBalance + snap.TotalMarketValue
	snap.TotalPnL = snap.UnrealizedPnL + snap.RealizedPnL

	if snap.TotalPortfolioValue != 0 {
		for i := range snap.Positions {
			snap.Positions[i].WeightPercent = snap.Positions[i].MarketValue / snap.TotalPortfolioValue * 100
		}
	}

	if v.prev != nil {
		snap.DayChange = snap.TotalPortfolioValue - v.prev.TotalPortfolioValue
		if v.prev.TotalPortfolioValue != 0 {
			snap.DayChangePercent = snap.DayChange / v.prev.TotalPortfolioValue * 100
		}
	}
	prev := snap
	v.prev = &prev
	return snap
}
