package market

import (
	"context"
	"testing"
	"time"

	"tradepilot/internal/pkg/symbol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedSourceGetPrice(t *testing.T) {
	src := NewSimulatedSource([]string{"AAPL", "BTC"}, WithSeed(7))

	q, ok := src.GetPrice(context.Background(), "aapl")
	require.True(t, ok)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Greater(t, q.Price, 0.0)
	assert.Greater(t, q.Ask, q.Bid)

	_, ok = src.GetPrice(context.Background(), "UNKNOWN")
	assert.False(t, ok)
}

func TestSimulatedSourceHonorsContext(t *testing.T) {
	src := NewSimulatedSource([]string{"AAPL"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := src.GetPrice(ctx, "AAPL")
	assert.False(t, ok)
}

func TestSimulatedSourceMarketHours(t *testing.T) {
	// Wednesday 2026-01-07 12:00 local.
	midday := time.Date(2026, 1, 7, 12, 0, 0, 0, time.Local)
	src := NewSimulatedSource([]string{"AAPL", "BTC"}, WithNow(func() time.Time { return midday }))
	assert.True(t, src.IsMarketOpen(symbol.ClassStocks))
	assert.True(t, src.IsMarketOpen(symbol.ClassCrypto))

	// Saturday.
	weekend := time.Date(2026, 1, 10, 12, 0, 0, 0, time.Local)
	src = NewSimulatedSource([]string{"AAPL"}, WithNow(func() time.Time { return weekend }))
	assert.False(t, src.IsMarketOpen(symbol.ClassStocks))
	assert.True(t, src.IsMarketOpen(symbol.ClassCrypto))

	// Weekday pre-open.
	early := time.Date(2026, 1, 7, 8, 0, 0, 0, time.Local)
	src = NewSimulatedSource([]string{"AAPL"}, WithNow(func() time.Time { return early }))
	assert.False(t, src.IsMarketOpen(symbol.ClassETFs))
}

func TestSimulatedSourceTradeable(t *testing.T) {
	src := NewSimulatedSource([]string{"AAPL"})
	assert.True(t, src.IsTradeable("AAPL"))
	assert.False(t, src.IsTradeable("MSFT"))
}

type captureRecorder struct {
	symbols []string
}

func (c *captureRecorder) RecordPrice(sym string, price float64, at int64) error {
	c.symbols = append(c.symbols, sym)
	return nil
}

func TestRecordingSource(t *testing.T) {
	rec := &captureRecorder{}
	src := NewRecordingSource(NewSimulatedSource([]string{"AAPL"}, WithSeed(1)), rec)

	_, ok := src.GetPrice(context.Background(), "AAPL")
	require.True(t, ok)
	_, ok = src.GetPrice(context.Background(), "MISSING")
	assert.False(t, ok)

	assert.Equal(t, []string{"AAPL"}, rec.symbols)
}
