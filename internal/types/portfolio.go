package types

import (
	"time"
)

// PositionValue is the valuation of one open position inside a snapshot.
type PositionValue struct {
	Symbol        string  `json:"symbol"`
	Side          Side    `json:"side"`
	Quantity      float64 `json:"quantity"`
	EntryPrice    float64 `json:"entry_price"`
	CurrentPrice  float64 `json:"current_price"`
	MarketValue   float64 `json:"market_value"`
	CostBasis     float64 `json:"cost_basis"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	WeightPercent float64 `json:"weight_percent"`
}

// PortfolioSnapshot is a point-in-time valuation. It is recomputed on demand;
// positions and the cash ledger remain the source of truth.
//
// Invariants (to floating-point tolerance):
//
//	TotalPortfolioValue == CashBalance + TotalMarketValue
//	TotalPnL == UnrealizedPnL + RealizedPnL
type PortfolioSnapshot struct {
	Timestamp           time.Time       `json:"timestamp"`
	CashBalance         float64         `json:"cash_balance"`
	TotalMarketValue    float64         `json:"total_market_value"`
	TotalCostBasis      float64         `json:"total_cost_basis"`
	TotalPortfolioValue float64         `json:"total_portfolio_value"`
	UnrealizedPnL       float64         `json:"unrealized_pnl"`
	RealizedPnL         float64         `json:"realized_pnl"`
	TotalPnL            float64         `json:"total_pnl"`
	DayChange           float64         `json:"day_change"`
	DayChangePercent    float64         `json:"day_change_percent"`
	Positions           []PositionValue `json:"positions"`
	PositionCount       int             `json:"position_count"`
}
