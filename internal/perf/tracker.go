// Package perf aggregates per-strategy trading outcomes.
package perf

import (
	"sort"
	"sync"
	"time"

	"tradepilot/internal/types"
)

// Tracker keeps strategy performance counters. Win/loss counters and the
// running averages move only when a position closes.
type Tracker struct {
	mu    sync.Mutex
	stats map[string]*types.StrategyPerformance
	nowFn func() time.Time
}

func NewTracker(strategies []string) *Tracker {
	t := &Tracker{
		stats: make(map[string]*types.StrategyPerformance),
		nowFn: time.Now,
	}
	for _, name := range strategies {
		t.stats[name] = &types.StrategyPerformance{Strategy: name}
	}
	return t
}

func (t *Tracker) get(strategy string) *types.StrategyPerformance {
	if strategy == "" {
		strategy = "unknown"
	}
	s, ok := t.stats[strategy]
	if !ok {
		s = &types.StrategyPerformance{Strategy: strategy}
		t.stats[strategy] = s
	}
	return s
}

// RecordGenerated counts emitted candidate signals.
func (t *Tracker) RecordGenerated(strategy string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.get(strategy)
	s.SignalsGenerated += n
	s.LastUpdated = t.nowFn()
}

// RecordExecuted counts a signal that produced a position.
func (t *Tracker) RecordExecuted(strategy string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.get(strategy)
	s.ExecutedTrades++
	s.LastUpdated = t.nowFn()
}

// RecordClosed folds a closed position's realized P&L into the aggregate.
// Zero-P&L closes count as losses, matching the win-rate definition of
// "strictly profitable trades over closed trades".
func (t *Tracker) RecordClosed(strategy string, realizedPnL float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.get(strategy)
	s.TotalPnL += realizedPnL
	if realizedPnL > 0 {
		s.WinningTrades++
		s.AvgWin = s.AvgWin + (realizedPnL-s.AvgWin)/float64(s.WinningTrades)
	} else {
		s.LosingTrades++
		loss := -realizedPnL
		s.AvgLoss = s.AvgLoss + (loss-s.AvgLoss)/float64(s.LosingTrades)
	}
	if closed := s.WinningTrades + s.LosingTrades; closed > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(closed) * 100
	}
	s.LastUpdated = t.nowFn()
}

// Snapshot returns a copy of all aggregates, sorted by strategy name.
func (t *Tracker) Snapshot() []types.StrategyPerformance {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.StrategyPerformance, 0, len(t.stats))
	for _, s := range t.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strategy < out[j].Strategy })
	return out
}
