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

// DexSimProvider simulates a decentralized exchange for crypto instruments.
// Every order is a swap at the quoted price; limit and stop kinds are not
// part of the venue's order model.
type DexSimProvider struct {
	nowFn func() time.Time
}

func NewDexSim() *DexSimProvider {
	return &DexSimProvider{nowFn: time.Now}
}

// SetNow overrides the fill clock. Test hook.
func (p *DexSimProvider) SetNow(fn func() time.Time) { p.nowFn = fn }

func (p *DexSimProvider) Name() string { return string(DexSim) }

func (p *DexSimProvider) Capabilities() []symbol.Class {
	return []symbol.Class{symbol.ClassCrypto}
}

func (p *DexSimProvider) SubmitMarketOrder(ctx context.Context, sym string, side types.Side, qty, refPrice float64) ExecutionResult {
	if err := ctx.Err(); err != nil {
		return ExecutionResult{Err: err}
	}
	if refPrice <= 0 || qty <= 0 {
		return ExecutionResult{Err: fmt.Errorf("invalid swap %s %s qty=%.6f price=%.4f", sym, side, qty, refPrice)}
	}
	orderID := uuid.NewString()
	logger.Infof("dexsim: swapped %s %s %.6f @ %.2f (tx %s)", side, sym, qty, refPrice, orderID)
	return ExecutionResult{
		Success:   true,
		FillPrice: refPrice,
		FillTime:  p.nowFn(),
		OrderID:   orderID,
	}
}

func (p *DexSimProvider) SubmitLimitOrder(ctx context.Context, sym string, side types.Side, qty, limitPrice, refPrice float64) ExecutionResult {
	return ExecutionResult{Err: fmt.Errorf("%w: dexsim has no limit orders", ErrUnsupported)}
}

func (p *DexSimProvider) SubmitStopOrder(ctx context.Context, sym string, side types.Side, qty, stopPrice, refPrice float64) ExecutionResult {
	return ExecutionResult{Err: fmt.Errorf("%w: dexsim has no stop orders", ErrUnsupported)}
}

func (p *DexSimProvider) HealthCheck(ctx context.Context) Health {
	return Health{Status: "ok", Latency: 15 * time.Millisecond}
}
