package portfolio

import (
	"context"
	"testing"
	"time"

	"tradepilot/internal/market"
	"tradepilot/internal/pkg/symbol"
	"tradepilot/internal/position"
	"tradepilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceMap map[string]float64

func (m priceMap) GetPrice(ctx context.Context, sym string) (market.Quote, bool) {
	p, ok := m[sym]
	if !ok {
		return market.Quote{}, false
	}
	return market.Quote{Symbol: sym, Price: p, At: time.Now()}, true
}

func (m priceMap) IsMarketOpen(symbol.Class) bool { return true }
func (m priceMap) IsTradeable(string) bool        { return true }

func TestSnapshotEmptyIsExactlyInitialCapital(t *testing.T) {
	v := NewValuator(position.NewStore(), priceMap{}, 500, time.Second)

	snap := v.Snapshot(context.Background())

	assert.Equal(t, 500.0, snap.CashBalance)
	assert.Equal(t, 500.0, snap.TotalPortfolioValue)
	assert.Zero(t, snap.TotalMarketValue)
	assert.Zero(t, snap.TotalPnL)
	assert.Zero(t, snap.PositionCount)
}

func TestSnapshotEmptyWithRealized(t *testing.T) {
	store := position.NewStore()
	store.Add(types.Position{ID: "p1", Symbol: "AAPL", Side: types.SideBuy, Quantity: 1, EntryPrice: 100, EntryTime: time.Now()})
	_, err := store.Close("p1", 110, time.Now(), types.CloseTakeProfit)
	require.NoError(t, err)

	v := NewValuator(store, priceMap{}, 500, time.Second)
	snap := v.Snapshot(context.Background())

	assert.Equal(t, 510.0, snap.CashBalance)
	assert.Equal(t, 10.0, snap.RealizedPnL)
	assert.Equal(t, 10.0, snap.TotalPnL)
}

func TestSnapshotValuesOpenPositions(t *testing.T) {
	store := position.NewStore()
	store.Add(types.Position{ID: "p1", Symbol: "AAPL", Side: types.SideBuy, Quantity: 2, EntryPrice: 100, EntryTime: time.Now()})

	v := NewValuator(store, priceMap{"AAPL": 110}, 500, time.Second)
	snap := v.Snapshot(context.Background())

	assert.Equal(t, 300.0, snap.CashBalance) // 500 - 200 cost basis
	assert.Equal(t, 220.0, snap.TotalMarketValue)
	assert.Equal(t, 20.0, snap.UnrealizedPnL)
	assert.InDelta(t, snap.CashBalance+snap.TotalMarketValue, snap.TotalPortfolioValue, 1e-2)
	assert.InDelta(t, snap.UnrealizedPnL+snap.RealizedPnL, snap.TotalPnL, 1e-2)

	require.Len(t, snap.Positions, 1)
	pv := snap.Positions[0]
	assert.Equal(t, 110.0, pv.CurrentPrice)
	assert.InDelta(t, 220.0/520.0*100, pv.WeightPercent, 1e-9)
}

func TestSnapshotShortPositionPnL(t *testing.T) {
	store := position.NewStore()
	store.Add(types.Position{ID: "p1", Symbol: "AAPL", Side: types.SideSell, Quantity: 2, EntryPrice: 100, EntryTime: time.Now()})

	v := NewValuator(store, priceMap{"AAPL": 90}, 500, time.Second)
	snap := v.Snapshot(context.Background())

	assert.Equal(t, 20.0, snap.UnrealizedPnL)
}

func TestSnapshotMissingPriceMarksAtEntry(t *testing.T) {
	store := position.NewStore()
	store.Add(types.Position{ID: "p1", Symbol: "NOPRICE", Side: types.SideBuy, Quantity: 1, EntryPrice: 50, EntryTime: time.Now()})

	v := NewValuator(store, priceMap{}, 500, time.Second)
	snap := v.Snapshot(context.Background())

	assert.Equal(t, 50.0, snap.TotalMarketValue)
	assert.Zero(t, snap.UnrealizedPnL)
}

func TestSnapshotDayChange(t *testing.T) {
	store := position.NewStore()
	store.Add(types.Position{ID: "p1", Symbol: "AAPL", Side: types.SideBuy, Quantity: 1, EntryPrice: 100, EntryTime: time.Now()})
	prices := priceMap{"AAPL": 100}
	v := NewValuator(store, prices, 500, time.Second)

	first := v.Snapshot(context.Background())
	assert.Zero(t, first.DayChange)

	prices["AAPL"] = 105
	second := v.Snapshot(context.Background())
	assert.InDelta(t, 5.0, second.DayChange, 1e-9)
	assert.InDelta(t, 1.0, second.DayChangePercent, 1e-9)
}

func TestDepositsAndWithdrawals(t *testing.T) {
	v := NewValuator(position.NewStore(), priceMap{}, 500, time.Second)
	v.Deposit(100)
	v.Withdraw(30)

	snap := v.Snapshot(context.Background())
	assert.Equal(t, 570.0, snap.CashBalance)
}
