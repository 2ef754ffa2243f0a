package market

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"tradepilot/internal/pkg/symbol"
)

// Default seeds for the simulated walk. Unknown symbols start at 100.
var defaultBasePrices = map[string]float64{
	"AAPL": 175.0, "MSFT": 350.0, "GOOGL": 140.0, "AMZN": 145.0,
	"TSLA": 250.0, "NVDA": 450.0, "META": 300.0,
	"ETH": 2500.0, "BTC": 45000.0, "USDC": 1.0,
	"SPY": 450.0, "QQQ": 380.0, "IWM": 200.0, "VTI": 220.0,
}

// SimulatedSource is a random-walk price source for paper trading. All
// synthetic price movement lives here, behind the Source interface, so the
// strategy and risk layers stay deterministic and unit-testable.
type SimulatedSource struct {
	mu        sync.Mutex
	last      map[string]float64
	tradeable map[string]bool
	rng       *rand.Rand
	nowFn     func() time.Time
}

// SimulatedOption customizes a SimulatedSource.
type SimulatedOption func(*SimulatedSource)

// WithSeed fixes the walk's random seed.
func WithSeed(seed int64) SimulatedOption {
	return func(s *SimulatedSource) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithNow overrides the clock used for quote timestamps and market hours.
func WithNow(fn func() time.Time) SimulatedOption {
	return func(s *SimulatedSource) { s.nowFn = fn }
}

// WithBasePrice overrides the starting price for one symbol.
func WithBasePrice(sym string, price float64) SimulatedOption {
	return func(s *SimulatedSource) { s.last[symbol.Normalize(sym)] = price }
}

// NewSimulatedSource builds a walk over the given symbol universe.
func NewSimulatedSource(universe []string, opts ...SimulatedOption) *SimulatedSource {
	s := &SimulatedSource{
		last:      make(map[string]float64),
		tradeable: make(map[string]bool),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		nowFn:     time.Now,
	}
	for _, raw := range universe {
		sym := symbol.Normalize(raw)
		s.tradeable[sym] = true
		if base, ok := defaultBasePrices[sym]; ok {
			s.last[sym] = base
		} else {
			s.last[sym] = 100.0
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SimulatedSource) GetPrice(ctx context.Context, raw string) (Quote, bool) {
	if err := ctx.Err(); err != nil {
		return Quote{}, false
	}
	sym := symbol.Normalize(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.last[sym]
	if !ok {
		return Quote{}, false
	}
	vol := volatilityFor(sym)
	price := last * (1 + s.rng.NormFloat64()*vol)
	if price <= 0 {
		price = last
	}
	s.last[sym] = price

	half := price * 0.0005
	return Quote{
		Symbol: sym,
		Price:  price,
		Bid:    price - half,
		Ask:    price + half,
		Volume: float64(1_000_000 + s.rng.Intn(9_000_000)),
		At:     s.nowFn(),
	}, true
}

func (s *SimulatedSource) IsMarketOpen(class symbol.Class) bool {
	if class == symbol.ClassCrypto {
		return true
	}
	now := s.nowFn()
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	// Regular session, 09:30-16:00 in the process-local zone.
	minutes := now.Hour()*60 + now.Minute()
	return minutes >= 9*60+30 && minutes <= 16*60
}

func (s *SimulatedSource) IsTradeable(raw string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tradeable[symbol.Normalize(raw)]
}

func volatilityFor(sym string) float64 {
	switch symbol.Classify(sym) {
	case symbol.ClassCrypto:
		return 0.04
	case symbol.ClassETFs:
		return 0.01
	default:
		return 0.02
	}
}

var _ Source = (*SimulatedSource)(nil)
