package venue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradepilot/internal/logger"
	"tradepilot/internal/pkg/symbol"
	"tradepilot/internal/types"
)

// BrokerSimProvider simulates a brokerage endpoint for listed instruments.
// Market orders fill at the reference price; limit and stop orders fill only
// when marketable against it.
type BrokerSimProvider struct {
	nowFn func() time.Time
}

func NewBrokerSim() *BrokerSimProvider {
	return &BrokerSimProvider{nowFn: time.Now}
}

// SetNow overrides the fill clock. Test hook.
func (p *BrokerSimProvider) SetNow(fn func() time.Time) { p.nowFn = fn }

func (p *BrokerSimProvider) Name() string { return string(BrokerSim) }

func (p *BrokerSimProvider) Capabilities() []symbol.Class {
	return []symbol.Class{symbol.ClassStocks, symbol.ClassETFs, symbol.ClassOptions}
}

func (p *BrokerSimProvider) SubmitMarketOrder(ctx context.Context, sym string, side types.Side, qty, refPrice float64) ExecutionResult {
	return p.fill(ctx, sym, side, qty, refPrice)
}

func (p *BrokerSimProvider) SubmitLimitOrder(ctx context.Context, sym string, side types.Side, qty, limitPrice, refPrice float64) ExecutionResult {
	if !limitMarketable(side, limitPrice, refPrice) {
		return ExecutionResult{Err: fmt.Errorf("%w: limit %.2f vs market %.2f", ErrNotMarketable, limitPrice, refPrice)}
	}
	return p.fill(ctx, sym, side, qty, limitPrice)
}

func (p *BrokerSimProvider) SubmitStopOrder(ctx context.Context, sym string, side types.Side, qty, stopPrice, refPrice float64) ExecutionResult {
	if !stopTriggered(side, stopPrice, refPrice) {
		return ExecutionResult{Err: fmt.Errorf("%w: stop %.2f not triggered at market %.2f", ErrNotMarketable, stopPrice, refPrice)}
	}
	return p.fill(ctx, sym, side, qty, refPrice)
}

func (p *BrokerSimProvider) fill(ctx context.Context, sym string, side types.Side, qty, price float64) ExecutionResult {
	if err := ctx.Err(); err != nil {
		return ExecutionResult{Err: err}
	}
	if price <= 0 || qty <= 0 {
		return ExecutionResult{Err: fmt.Errorf("invalid order %s %s qty=%.4f price=%.4f", sym, side, qty, price)}
	}
	orderID := uuid.NewString()
	logger.Infof("brokersim: filled %s %s %.4f @ %.2f (order %s)", side, sym, qty, price, orderID)
	return ExecutionResult{
		Success:   true,
		FillPrice: price,
		FillTime:  p.nowFn(),
		OrderID:   orderID,
	}
}

func (p *BrokerSimProvider) HealthCheck(ctx context.Context) Health {
	return Health{Status: "ok", Latency: time.Millisecond}
}

// limitMarketable reports whether a limit order crosses the market: buys at
// or above it, sells at or below it.
func limitMarketable(side types.Side, limit, market float64) bool {
	if side == types.SideSell {
		return market >= limit
	}
	return market <= limit
}

// stopTriggered reports whether the market has reached the stop: buy stops
// trigger at or above, sell stops at or below.
func stopTriggered(side types.Side, stop, market float64) bool {
	if side == types.SideSell {
		return market <= stop
	}
	return market >= stop
}
