// Package route classifies instruments and dispatches signals to the venue
// that can fill them.
package route

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradepilot/internal/logger"
	"tradepilot/internal/pkg/symbol"
	"tradepilot/internal/types"
	"tradepilot/internal/venue"
)

// Result reports the routing outcome. On success the signal carries venue,
// fill price, and fill time; on failure Reason holds the block code.
type Result struct {
	OK     bool
	Reason types.BlockReason
	Detail string
}

// Router resolves a venue for each signal from the active routing mode and
// submits the order through the provider registry.
type Router struct {
	profiles *ProfileRegistry
	venues   *venue.Registry
	mode     string
	timeout  time.Duration
}

func NewRouter(profiles *ProfileRegistry, venues *venue.Registry, mode string, providerTimeout time.Duration) *Router {
	if providerTimeout <= 0 {
		providerTimeout = 5 * time.Second
	}
	return &Router{profiles: profiles, venues: venues, mode: mode, timeout: providerTimeout}
}

// Route classifies the signal's symbol, checks the routing table and venue
// capabilities, and submits the order. The signal's fill fields are written
// on success; status transitions stay with the caller.
func (r *Router) Route(ctx context.Context, sig *types.Signal) Result {
	class := symbol.Classify(sig.Symbol)
	sig.SetMeta("instrument_class", string(class))

	venueName, ok := r.profiles.VenueFor(r.mode, class)
	if !ok {
		return Result{
			Reason: types.BlockRoutingNotAllowed,
			Detail: fmt.Sprintf("no route for %s under mode %q", class, r.mode),
		}
	}
	if venueName == Blocked {
		return Result{
			Reason: types.BlockRoutingNotAllowed,
			Detail: fmt.Sprintf("routing blocked for %s under mode %q", class, r.mode),
		}
	}

	caps, ok := r.profiles.VenueCapabilities(venueName)
	if !ok {
		return Result{
			Reason: types.BlockVenueUnavailable,
			Detail: fmt.Sprintf("venue %q not declared in profile", venueName),
		}
	}
	if !containsClass(caps, class) {
		return Result{
			Reason: types.BlockVenueUnavailable,
			Detail: fmt.Sprintf("venue %q does not trade %s", venueName, class),
		}
	}

	provider, ok := r.venues.Provider(venue.ID(venueName))
	if !ok {
		return Result{
			Reason: types.BlockVenueUnavailable,
			Detail: fmt.Sprintf("venue %q has no registered provider", venueName),
		}
	}
	if !venue.Supports(provider, class) {
		return Result{
			Reason: types.BlockVenueUnavailable,
			Detail: fmt.Sprintf("provider %q does not support %s", venueName, class),
		}
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	res := r.submit(cctx, provider, sig)
	if !res.Success {
		return mapVenueError(venueName, res.Err)
	}

	sig.Venue = venueName
	sig.FillPrice = res.FillPrice
	sig.FillTime = res.FillTime
	sig.SetMeta("order_id", res.OrderID)
	logger.Infof("route: %s %s %.4f -> %s @ %.2f", sig.Side, sig.Symbol, sig.Quantity, venueName, res.FillPrice)
	return Result{OK: true}
}

func (r *Router) submit(ctx context.Context, p venue.ExecutionProvider, sig *types.Signal) venue.ExecutionResult {
	switch sig.OrderKind {
	case types.OrderLimit:
		return p.SubmitLimitOrder(ctx, sig.Symbol, sig.Side, sig.Quantity, sig.LimitPrice, sig.ReferencePrice)
	case types.OrderStop:
		return p.SubmitStopOrder(ctx, sig.Symbol, sig.Side, sig.Quantity, sig.StopPrice, sig.ReferencePrice)
	default:
		return p.SubmitMarketOrder(ctx, sig.Symbol, sig.Side, sig.Quantity, sig.ReferencePrice)
	}
}

func mapVenueError(venueName string, err error) Result {
	detail := fmt.Sprintf("venue %s: %v", venueName, err)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Result{Reason: types.BlockAPIError, Detail: detail}
	case errors.Is(err, venue.ErrVenueUnavailable),
		errors.Is(err, venue.ErrUnsupported),
		errors.Is(err, venue.ErrNotMarketable):
		return Result{Reason: types.BlockVenueUnavailable, Detail: detail}
	default:
		return Result{Reason: types.BlockAPIError, Detail: detail}
	}
}

func containsClass(classes []symbol.Class, class symbol.Class) bool {
	for _, c := range classes {
		if c == class {
			return true
		}
	}
	return false
}
