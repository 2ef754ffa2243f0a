package types

import (
	"time"
)

// CloseReason records why a position left the open set.
type CloseReason string

const (
	CloseStopLoss   CloseReason = "stop_loss"
	CloseTakeProfit CloseReason = "take_profit"
	CloseTimeExit   CloseReason = "time_exit"
	CloseManual     CloseReason = "manual"
)

// Position is a unit of exposure created by exactly one simulated execution.
// Closed positions are immutable.
type Position struct {
	ID          string      `json:"id"`
	SignalID    string      `json:"signal_id"`
	Symbol      string      `json:"symbol"`
	Side        Side        `json:"side"`
	Quantity    float64     `json:"quantity"`
	EntryPrice  float64     `json:"entry_price"`
	EntryTime   time.Time   `json:"entry_time"`
	ExitPrice   float64     `json:"exit_price,omitempty"`
	ExitTime    time.Time   `json:"exit_time,omitempty"`
	RealizedPnL float64     `json:"realized_pnl,omitempty"`
	Fees        float64     `json:"fees"`
	Slippage    float64     `json:"slippage"`
	Strategy    string      `json:"strategy,omitempty"`
	Venue       string      `json:"venue,omitempty"`
	Open        bool        `json:"open"`
	CloseReason CloseReason `json:"close_reason,omitempty"`
}

// CostBasis is the entry notional of the position.
func (p Position) CostBasis() float64 {
	return p.Quantity * p.EntryPrice
}

// UnrealizedPnL marks the open position to the given price, net of the entry
// fee. Sign is flipped for shorts.
func (p Position) UnrealizedPnL(currentPrice float64) float64 {
	if p.Side == SideSell {
		return (p.EntryPrice-currentPrice)*p.Quantity - p.Fees
	}
	return (currentPrice-p.EntryPrice)*p.Quantity - p.Fees
}

// PnLPercent is the mark-to-market move relative to entry, in percent,
// before fees. Used by the close sweep's stop/take thresholds.
func (p Position) PnLPercent(currentPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	if p.Side == SideSell {
		return (p.EntryPrice - currentPrice) / p.EntryPrice * 100
	}
	return (currentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// Status renders the wire form: "open" or "closed_<reason>".
func (p Position) Status() string {
	if p.Open {
		return "open"
	}
	if p.CloseReason == "" {
		return "closed"
	}
	return "closed_" + string(p.CloseReason)
}
