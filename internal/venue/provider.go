// Package venue defines the execution-provider contract and the simulated
// venues that fill paper orders.
package venue

import (
	"context"
	"errors"
	"time"

	"tradepilot/internal/pkg/symbol"
	"tradepilot/internal/types"
)

// ID identifies an execution venue. The set is closed; the registry is keyed
// by it and resolved once at startup.
type ID string

const (
	BrokerSim ID = "brokersim"
	DexSim    ID = "dexsim"
)

var (
	ErrVenueUnavailable = errors.New("venue unavailable")
	ErrNotMarketable    = errors.New("order not marketable")
	ErrUnsupported      = errors.New("instrument not supported by venue")
)

// ExecutionResult is the outcome of a single order submission. Err is set
// only when Success is false.
type ExecutionResult struct {
	Success   bool
	FillPrice float64
	FillTime  time.Time
	OrderID   string
	Err       error
}

// Health is a point-in-time provider liveness reading.
type Health struct {
	Status  string        `json:"status"`
	Latency time.Duration `json:"latency_ns"`
}

// ExecutionProvider is the contract every venue executor satisfies. Orders
// carry the signal's reference price so simulated venues can price fills
// without their own market feed.
type ExecutionProvider interface {
	Name() string
	Capabilities() []symbol.Class
	SubmitMarketOrder(ctx context.Context, sym string, side types.Side, qty, refPrice float64) ExecutionResult
	SubmitLimitOrder(ctx context.Context, sym string, side types.Side, qty, limitPrice, refPrice float64) ExecutionResult
	SubmitStopOrder(ctx context.Context, sym string, side types.Side, qty, stopPrice, refPrice float64) ExecutionResult
	HealthCheck(ctx context.Context) Health
}

// Supports reports whether class is in the provider's declared capabilities.
func Supports(p ExecutionProvider, class symbol.Class) bool {
	for _, c := range p.Capabilities() {
		if c == class {
			return true
		}
	}
	return false
}
