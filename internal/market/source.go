package market

import (
	"context"
	"time"

	"tradepilot/internal/pkg/symbol"
)

// Quote is a normalized point-in-time price observation.
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Bid    float64   `json:"bid,omitempty"`
	Ask    float64   `json:"ask,omitempty"`
	Volume float64   `json:"volume,omitempty"`
	At     time.Time `json:"at"`
}

// Spread is the quoted bid/ask gap, zero when either side is missing.
func (q Quote) Spread() float64 {
	if q.Bid <= 0 || q.Ask <= 0 {
		return 0
	}
	return q.Ask - q.Bid
}

// Source supplies prices and basic market state. Implementations must honor
// the caller's context deadline; the pipeline treats a timeout as an API
// error, never as a hang.
type Source interface {
	// GetPrice returns the latest quote for symbol, ok=false when no price
	// is obtainable.
	GetPrice(ctx context.Context, sym string) (Quote, bool)

	// IsMarketOpen reports whether trading is open for the instrument class.
	IsMarketOpen(class symbol.Class) bool

	// IsTradeable reports whether the symbol is known and active.
	IsTradeable(sym string) bool
}
