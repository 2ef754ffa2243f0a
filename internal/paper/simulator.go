// Package paper models fills for executed signals and opens the resulting
// positions. It is the only writer of new position records.
package paper

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradepilot/internal/config"
	"tradepilot/internal/logger"
	"tradepilot/internal/perf"
	"tradepilot/internal/pkg/symbol"
	"tradepilot/internal/position"
	"tradepilot/internal/types"
)

// Simulator turns an executed signal into an open position, applying
// instrument-class slippage and the venue's fee to the venue fill price.
type Simulator struct {
	mu sync.Mutex

	store       *position.Store
	perf        *perf.Tracker
	slippagePct map[string]float64
	fees        map[string]float64
	rng         *rand.Rand
	nowFn       func() time.Time
}

func NewSimulator(cfg *config.Config, store *position.Store, tracker *perf.Tracker) *Simulator {
	return &Simulator{
		store:       store,
		perf:        tracker,
		slippagePct: cfg.Execution.SlippagePct,
		fees:        cfg.Execution.Fees,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		nowFn:       time.Now,
	}
}

// SetSeed makes slippage deterministic. Test hook.
func (s *Simulator) SetSeed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rand.New(rand.NewSource(seed))
}

// SetNow overrides the entry clock. Test hook.
func (s *Simulator) SetNow(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// Open creates the position for an executed signal. Slippage moves the fill
// against the trader: buys pay up, sells receive less. The perturbation is a
// bounded random fraction (0.5x to 1.5x) of the class's configured
// percentage.
func (s *Simulator) Open(sig *types.Signal) types.Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	class := symbol.Classify(sig.Symbol)
	basePct := s.slippagePct[string(class)]
	slipPct := basePct * (0.5 + s.rng.Float64())

	fillPrice := sig.FillPrice
	if fillPrice <= 0 {
		fillPrice = sig.ReferencePrice
	}
	slip := fillPrice * slipPct / 100
	entryPrice := fillPrice + slip
	if sig.Side == types.SideSell {
		entryPrice = fillPrice - slip
	}

	fee := s.fees[sig.Venue]

	pos := types.Position{
		ID:         uuid.NewString(),
		SignalID:   sig.ID,
		Symbol:     sig.Symbol,
		Side:       sig.Side,
		Quantity:   sig.Quantity,
		EntryPrice: entryPrice,
		EntryTime:  s.nowFn(),
		Fees:       fee,
		Slippage:   slip * sig.Quantity,
		Strategy:   sig.Strategy,
		Venue:      sig.Venue,
	}
	s.store.Add(pos)
	if s.perf != nil && sig.Strategy != "" {
		s.perf.RecordExecuted(sig.Strategy)
	}

	sig.SetMeta("position_id", pos.ID)
	sig.SetMeta("entry_price", entryPrice)
	sig.SetMeta("slippage_pct", slipPct)
	logger.Infof("paper: opened %s %s %.4f @ %.4f (slip %.4f%%, fee %.2f)",
		pos.Side, pos.Symbol, pos.Quantity, entryPrice, slipPct, fee)
	return pos
}
