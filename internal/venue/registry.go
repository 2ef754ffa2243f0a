package venue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradepilot/internal/pkg/circuit"
	"tradepilot/internal/pkg/symbol"
	"tradepilot/internal/types"
)

// Registry holds the resolved venue set. Providers are registered once at
// startup and each is guarded by its own circuit breaker; a tripped breaker
// makes the venue report unavailable instead of forwarding calls.
type Registry struct {
	providers map[ID]ExecutionProvider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[ID]ExecutionProvider)}
}

// DefaultRegistry wires the two simulated venues.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(BrokerSim, NewBrokerSim())
	r.Register(DexSim, NewDexSim())
	return r
}

// Register adds a provider under id, wrapping it with a breaker that trips
// after three consecutive failures and probes again after thirty seconds.
func (r *Registry) Register(id ID, p ExecutionProvider) {
	r.providers[id] = &guardedProvider{
		inner:   p,
		breaker: circuit.NewBreaker(string(id), 3, 30*time.Second),
	}
}

func (r *Registry) Provider(id ID) (ExecutionProvider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// HealthSnapshot reports every registered venue's health keyed by id.
func (r *Registry) HealthSnapshot(ctx context.Context) map[string]Health {
	out := make(map[string]Health, len(r.providers))
	for id, p := range r.providers {
		out[string(id)] = p.HealthCheck(ctx)
	}
	return out
}

// guardedProvider fronts a venue with a circuit breaker. Unsupported-order
// rejections are venue answers, not faults, and do not count as failures.
type guardedProvider struct {
	inner   ExecutionProvider
	breaker *circuit.Breaker
}

func (g *guardedProvider) Name() string { return g.inner.Name() }

func (g *guardedProvider) Capabilities() []symbol.Class { return g.inner.Capabilities() }

// isRejection distinguishes a venue saying no from a venue failing.
func isRejection(err error) bool {
	return errors.Is(err, ErrNotMarketable) || errors.Is(err, ErrUnsupported)
}

func (g *guardedProvider) SubmitMarketOrder(ctx context.Context, sym string, side types.Side, qty, refPrice float64) ExecutionResult {
	return g.guard(func() ExecutionResult {
		return g.inner.SubmitMarketOrder(ctx, sym, side, qty, refPrice)
	})
}

func (g *guardedProvider) SubmitLimitOrder(ctx context.Context, sym string, side types.Side, qty, limitPrice, refPrice float64) ExecutionResult {
	return g.guard(func() ExecutionResult {
		return g.inner.SubmitLimitOrder(ctx, sym, side, qty, limitPrice, refPrice)
	})
}

func (g *guardedProvider) SubmitStopOrder(ctx context.Context, sym string, side types.Side, qty, stopPrice, refPrice float64) ExecutionResult {
	return g.guard(func() ExecutionResult {
		return g.inner.SubmitStopOrder(ctx, sym, side, qty, stopPrice, refPrice)
	})
}

func (g *guardedProvider) guard(submit func() ExecutionResult) ExecutionResult {
	if !g.breaker.Allow() {
		return ExecutionResult{Err: fmt.Errorf("%w: %s breaker open", ErrVenueUnavailable, g.inner.Name())}
	}
	res := submit()
	if res.Success || isRejection(res.Err) {
		g.breaker.RecordSuccess()
	} else {
		g.breaker.RecordFailure()
	}
	return res
}

func (g *guardedProvider) HealthCheck(ctx context.Context) Health {
	start := time.Now()
	h := g.inner.HealthCheck(ctx)
	if g.breaker.State() == circuit.StateOpen {
		h.Status = "unavailable"
	}
	if h.Latency == 0 {
		h.Latency = time.Since(start)
	}
	return h
}
