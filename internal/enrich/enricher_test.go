package enrich

import (
	"context"
	"testing"
	"time"

	"tradepilot/internal/market"
	"tradepilot/internal/pkg/symbol"
	"tradepilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	open      bool
	tradeable bool
	price     float64
	hasPrice  bool
}

func (s *stubSource) GetPrice(ctx context.Context, sym string) (market.Quote, bool) {
	if err := ctx.Err(); err != nil {
		return market.Quote{}, false
	}
	if !s.hasPrice {
		return market.Quote{}, false
	}
	return market.Quote{Symbol: sym, Price: s.price, At: time.Now()}, true
}

func (s *stubSource) IsMarketOpen(symbol.Class) bool { return s.open }
func (s *stubSource) IsTradeable(string) bool        { return s.tradeable }

func signal(qty float64) *types.Signal {
	return &types.Signal{
		ID: "s1", Symbol: "AAPL", Side: types.SideBuy,
		Quantity: qty, OrderKind: types.OrderMarket, CreatedAt: time.Now(),
	}
}

func TestEnrichAttachesPrice(t *testing.T) {
	src := &stubSource{open: true, tradeable: true, price: 175.5, hasPrice: true}
	e := New(src, time.Second)

	sig := signal(2)
	res := e.Enrich(context.Background(), sig)

	require.True(t, res.OK)
	assert.Equal(t, 175.5, sig.ReferencePrice)
	assert.Equal(t, 175.5, sig.Metadata["reference_price"])
	assert.Equal(t, "stocks", sig.Metadata["instrument_class"])
	assert.NotEmpty(t, sig.Metadata["enriched_at"])
}

func TestEnrichKeepsExistingPrice(t *testing.T) {
	src := &stubSource{open: true, tradeable: true, hasPrice: false}
	e := New(src, time.Second)

	sig := signal(2)
	sig.ReferencePrice = 99.0
	res := e.Enrich(context.Background(), sig)

	require.True(t, res.OK)
	assert.Equal(t, 99.0, sig.ReferencePrice)
}

func TestEnrichMarketClosed(t *testing.T) {
	src := &stubSource{open: false, tradeable: true, price: 10, hasPrice: true}
	e := New(src, time.Second)

	res := e.Enrich(context.Background(), signal(1))

	assert.False(t, res.OK)
	assert.Equal(t, types.BlockMarketClosed, res.Reason)
}

func TestEnrichInvalidSymbol(t *testing.T) {
	src := &stubSource{open: true, tradeable: false, price: 10, hasPrice: true}
	e := New(src, time.Second)

	res := e.Enrich(context.Background(), signal(1))

	assert.False(t, res.OK)
	assert.Equal(t, types.BlockInvalidSymbol, res.Reason)
}

func TestEnrichNoPriceAvailable(t *testing.T) {
	src := &stubSource{open: true, tradeable: true, hasPrice: false}
	e := New(src, time.Second)

	res := e.Enrich(context.Background(), signal(1))

	assert.False(t, res.OK)
	assert.Equal(t, types.BlockAPIError, res.Reason)
}

func TestEnrichNonPositiveQuantity(t *testing.T) {
	src := &stubSource{open: true, tradeable: true, price: 10, hasPrice: true}
	e := New(src, time.Second)

	res := e.Enrich(context.Background(), signal(0))

	assert.False(t, res.OK)
	assert.Equal(t, types.BlockInvalidSymbol, res.Reason)
}

func TestEnrichCancelledContext(t *testing.T) {
	src := &stubSource{open: true, tradeable: true, price: 10, hasPrice: true}
	e := New(src, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := e.Enrich(ctx, signal(1))

	assert.False(t, res.OK)
	assert.Equal(t, types.BlockAPIError, res.Reason)
}
