// Package enrich validates a signal's market context and attaches the
// reference price execution will be judged against.
package enrich

import (
	"context"
	"fmt"
	"time"

	"tradepilot/internal/logger"
	"tradepilot/internal/market"
	"tradepilot/internal/pkg/symbol"
	"tradepilot/internal/types"
)

// Result reports whether a signal survived enrichment. On failure Reason
// carries the block code for the orchestrator to apply.
type Result struct {
	OK     bool
	Reason types.BlockReason
	Detail string
}

func pass() Result { return Result{OK: true} }

func blocked(reason types.BlockReason, detail string) Result {
	return Result{Reason: reason, Detail: detail}
}

// Enricher checks market-open state and symbol validity, then fills in the
// signal's reference price from the snapshot source. It mutates only the
// signal it is handed.
type Enricher struct {
	source  market.Source
	timeout time.Duration
	nowFn   func() time.Time
}

func New(source market.Source, providerTimeout time.Duration) *Enricher {
	if providerTimeout <= 0 {
		providerTimeout = 5 * time.Second
	}
	return &Enricher{source: source, timeout: providerTimeout, nowFn: time.Now}
}

// SetNow overrides the enrichment timestamp clock. Test hook.
func (e *Enricher) SetNow(fn func() time.Time) { e.nowFn = fn }

// Enrich runs the validation sequence in order, short-circuiting on the
// first failure: market open for the instrument class, symbol tradeability,
// reference price attachment, then positive quantity and price.
func (e *Enricher) Enrich(ctx context.Context, sig *types.Signal) Result {
	class := symbol.Classify(sig.Symbol)

	if !e.source.IsMarketOpen(class) {
		return blocked(types.BlockMarketClosed, fmt.Sprintf("market closed for %s", class))
	}

	if !e.source.IsTradeable(sig.Symbol) {
		return blocked(types.BlockInvalidSymbol, fmt.Sprintf("symbol %s not tradeable", sig.Symbol))
	}

	if sig.ReferencePrice <= 0 {
		cctx, cancel := context.WithTimeout(ctx, e.timeout)
		quote, ok := e.source.GetPrice(cctx, sig.Symbol)
		cancel()
		if !ok || quote.Price <= 0 {
			logger.Warnf("enrich: no price for %s", sig.Symbol)
			return blocked(types.BlockAPIError, fmt.Sprintf("no price available for %s", sig.Symbol))
		}
		sig.ReferencePrice = quote.Price
	}

	if sig.Quantity <= 0 {
		return blocked(types.BlockInvalidSymbol, fmt.Sprintf("non-positive quantity %.4f", sig.Quantity))
	}
	if sig.ReferencePrice <= 0 {
		return blocked(types.BlockAPIError, fmt.Sprintf("non-positive reference price %.4f", sig.ReferencePrice))
	}

	sig.SetMeta("reference_price", sig.ReferencePrice)
	sig.SetMeta("enriched_at", e.nowFn().UTC().Format(time.RFC3339))
	sig.SetMeta("instrument_class", string(class))
	return pass()
}
