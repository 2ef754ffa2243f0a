package types

import (
	"time"
)

// StrategyPerformance aggregates closed-trade outcomes per strategy. Counters
// move only when a position transitions to closed.
type StrategyPerformance struct {
	Strategy         string    `json:"strategy"`
	SignalsGenerated int       `json:"signals_generated"`
	ExecutedTrades   int       `json:"executed_trades"`
	WinningTrades    int       `json:"winning_trades"`
	LosingTrades     int       `json:"losing_trades"`
	TotalPnL         float64   `json:"total_pnl"`
	WinRate          float64   `json:"win_rate"`
	AvgWin           float64   `json:"avg_win"`
	AvgLoss          float64   `json:"avg_loss"`
	LastUpdated      time.Time `json:"last_updated"`
}
