// Package position owns the open-position set. All mutation goes through the
// Store, which serializes writers per symbol; nothing else in the repository
// holds raw position maps.
package position

import (
	"errors"
	"sort"
	"sync"
	"time"

	"tradepilot/internal/pkg/symbol"
	"tradepilot/internal/types"
)

var (
	// ErrNotFound means no position with the given id exists.
	ErrNotFound = errors.New("position not found")
	// ErrAlreadyClosed means the position reached its terminal state
	// earlier; a second close attempt is a conflict, not a no-op.
	ErrAlreadyClosed = errors.New("position already closed")
)

// Store holds open and closed positions. Readers get copies; per-symbol
// write access is serialized through WithSymbolLock so a close sweep and a
// new-signal risk check can never act on the same stale exposure.
type Store struct {
	mu     sync.RWMutex
	open   map[string]*types.Position
	closed map[string]*types.Position
	order  []string // closed ids in close order

	// realized accumulates lifetime realized P&L at close time. The cash
	// ledger derives from it, so it must survive a history clear.
	realized float64

	lockMu   sync.Mutex
	symLocks map[string]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		open:     make(map[string]*types.Position),
		closed:   make(map[string]*types.Position),
		symLocks: make(map[string]*sync.Mutex),
	}
}

// WithSymbolLock runs fn holding the symbol's write lock. Both the
// request-synchronous pipeline and the background sweep funnel through here,
// giving at-most-one in-flight decision per symbol.
func (s *Store) WithSymbolLock(sym string, fn func() error) error {
	lock := s.symbolLock(symbol.Normalize(sym))
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

func (s *Store) symbolLock(sym string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.symLocks[sym]
	if !ok {
		lock = &sync.Mutex{}
		s.symLocks[sym] = lock
	}
	return lock
}

// Add registers a freshly simulated open position. Callers must hold the
// symbol lock (the trade simulator runs inside the pipeline's locked
// section).
func (s *Store) Add(p types.Position) {
	p.Symbol = symbol.Normalize(p.Symbol)
	p.Open = true
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.open[p.ID] = &cp
}

// Get returns a copy of the position, open or closed.
func (s *Store) Get(id string) (types.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.open[id]; ok {
		return *p, true
	}
	if p, ok := s.closed[id]; ok {
		return *p, true
	}
	return types.Position{}, false
}

// Open returns copies of all open positions, entry-time ordered.
func (s *Store) Open() []types.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Position, 0, len(s.open))
	for _, p := range s.open {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryTime.Before(out[j].EntryTime) })
	return out
}

// OpenCount returns the size of the open set.
func (s *Store) OpenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.open)
}

// OpenBySymbol returns copies of the open positions for one symbol.
func (s *Store) OpenBySymbol(sym string) []types.Position {
	sym = symbol.Normalize(sym)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Position
	for _, p := range s.open {
		if p.Symbol == sym {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryTime.Before(out[j].EntryTime) })
	return out
}

// Exposure is the summed cost basis of open positions in the symbol.
func (s *Store) Exposure(sym string) float64 {
	sym = symbol.Normalize(sym)
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0.0
	for _, p := range s.open {
		if p.Symbol == sym {
			total += p.CostBasis()
		}
	}
	return total
}

// OpenCostBasis is the summed cost basis across all open positions.
func (s *Store) OpenCostBasis() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0.0
	for _, p := range s.open {
		total += p.CostBasis()
	}
	return total
}

// Close finalizes a position exactly once: sets exit fields and realized
// P&L, moves it to the closed set, and returns the closed copy. A repeat
// close returns ErrAlreadyClosed.
func (s *Store) Close(id string, exitPrice float64, exitTime time.Time, reason types.CloseReason) (types.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.closed[id]; done {
		return types.Position{}, ErrAlreadyClosed
	}
	p, ok := s.open[id]
	if !ok {
		return types.Position{}, ErrNotFound
	}
	p.ExitPrice = exitPrice
	p.ExitTime = exitTime
	p.RealizedPnL = p.UnrealizedPnL(exitPrice)
	p.CloseReason = reason
	p.Open = false
	delete(s.open, id)
	s.closed[id] = p
	s.order = append(s.order, id)
	s.realized += p.RealizedPnL
	return *p, nil
}

// Closed returns copies of closed positions in close order.
func (s *Store) Closed() []types.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Position, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.closed[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// RealizedTotal returns lifetime realized P&L, including trades whose
// records were cleared from history.
func (s *Store) RealizedTotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.realized
}

// ClearClosed drops closed-trade history and returns how many records were
// removed. Open positions and the realized P&L counter are untouched.
func (s *Store) ClearClosed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.closed)
	s.closed = make(map[string]*types.Position)
	s.order = nil
	return n
}
