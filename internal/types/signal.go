package types

import (
	"time"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type OrderKind string

const (
	OrderMarket OrderKind = "market"
	OrderLimit  OrderKind = "limit"
	OrderStop   OrderKind = "stop"
)

// SignalStatus is a forward-only state machine:
// received -> processing -> executed | blocked.
type SignalStatus string

const (
	StatusReceived   SignalStatus = "received"
	StatusProcessing SignalStatus = "processing"
	StatusExecuted   SignalStatus = "executed"
	StatusBlocked    SignalStatus = "blocked"
)

// Terminal reports whether the status admits no further transitions.
func (s SignalStatus) Terminal() bool {
	return s == StatusExecuted || s == StatusBlocked
}

// BlockReason is the closed set of pipeline rejection codes. Collaborator
// failures are mapped onto one of these at the engine edge; raw errors never
// reach callers.
type BlockReason string

const (
	BlockInsufficientCapital BlockReason = "INSUFFICIENT_CAPITAL"
	BlockMaxPositionExceeded BlockReason = "MAX_POSITION_EXCEEDED"
	BlockDailyLossLimit      BlockReason = "DAILY_LOSS_LIMIT"
	BlockMarketClosed        BlockReason = "MARKET_CLOSED"
	BlockInvalidSymbol       BlockReason = "INVALID_SYMBOL"
	BlockAPIError            BlockReason = "API_ERROR"
	BlockVenueUnavailable    BlockReason = "VENUE_UNAVAILABLE"
	BlockRoutingNotAllowed   BlockReason = "ROUTING_NOT_ALLOWED"
	BlockResourceConflict    BlockReason = "RESOURCE_CONFLICT"
)

// Signal is an intent to buy or sell a quantity of an instrument. It carries
// its own processing state; once Terminal the record is immutable.
type Signal struct {
	ID             string         `json:"id"`
	Symbol         string         `json:"symbol"`
	Side           Side           `json:"side"`
	Quantity       float64        `json:"quantity"`
	OrderKind      OrderKind      `json:"order_kind"`
	LimitPrice     float64        `json:"limit_price,omitempty"`
	StopPrice      float64        `json:"stop_price,omitempty"`
	ReferencePrice float64        `json:"reference_price,omitempty"`
	Strategy       string         `json:"strategy,omitempty"`
	Strength       Strength       `json:"strength,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	Status         SignalStatus   `json:"status"`
	BlockReason    BlockReason    `json:"block_reason,omitempty"`
	Venue          string         `json:"venue,omitempty"`
	FillPrice      float64        `json:"fill_price,omitempty"`
	FillTime       time.Time      `json:"fill_time,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// SetMeta writes a metadata key, allocating the map on first use.
func (s *Signal) SetMeta(key string, value any) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]any)
	}
	s.Metadata[key] = value
}

// Strength is a coarse signal quality classification used to filter and rank
// generator output.
type Strength string

const (
	StrengthWeak       Strength = "weak"
	StrengthModerate   Strength = "moderate"
	StrengthStrong     Strength = "strong"
	StrengthVeryStrong Strength = "very_strong"
)

var strengthRank = map[Strength]int{
	StrengthWeak:       0,
	StrengthModerate:   1,
	StrengthStrong:     2,
	StrengthVeryStrong: 3,
}

// Rank returns the ordering value of the strength; unknown values rank lowest.
func (s Strength) Rank() int { return strengthRank[s] }

// RiskCheck is the pure result of a risk validation pass. MaxAllowedQuantity
// is set when the gate clamps a concentration-limited order; callers must
// re-price using it, never the original quantity.
type RiskCheck struct {
	Passed             bool        `json:"passed"`
	Reason             BlockReason `json:"reason,omitempty"`
	Detail             string      `json:"detail,omitempty"`
	MaxAllowedQuantity float64     `json:"max_allowed_quantity,omitempty"`
}
