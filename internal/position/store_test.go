package position

import (
	"testing"
	"time"

	"tradepilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openPos(id, sym string, side types.Side, qty, entry float64) types.Position {
	return types.Position{
		ID:         id,
		Symbol:     sym,
		Side:       side,
		Quantity:   qty,
		EntryPrice: entry,
		EntryTime:  time.Now(),
	}
}

func TestStoreAddAndExposure(t *testing.T) {
	s := NewStore()
	s.Add(openPos("p1", "aapl", types.SideBuy, 2, 100))
	s.Add(openPos("p2", "AAPL", types.SideBuy, 1, 110))
	s.Add(openPos("p3", "MSFT", types.SideBuy, 1, 300))

	assert.Equal(t, 3, s.OpenCount())
	assert.InDelta(t, 310.0, s.Exposure("AAPL"), 1e-9)
	assert.InDelta(t, 610.0, s.OpenCostBasis(), 1e-9)
	assert.Len(t, s.OpenBySymbol("aapl"), 2)
}

func TestStoreCloseOnce(t *testing.T) {
	s := NewStore()
	s.Add(openPos("p1", "AAPL", types.SideBuy, 2, 100))

	closed, err := s.Close("p1", 110, time.Now(), types.CloseTakeProfit)
	require.NoError(t, err)
	assert.False(t, closed.Open)
	assert.InDelta(t, 20.0, closed.RealizedPnL, 1e-9)
	assert.Equal(t, "closed_take_profit", closed.Status())
	assert.Equal(t, 0, s.OpenCount())

	// Double close is a conflict, not a no-op.
	_, err = s.Close("p1", 120, time.Now(), types.CloseManual)
	assert.ErrorIs(t, err, ErrAlreadyClosed)

	_, err = s.Close("missing", 1, time.Now(), types.CloseManual)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreRoundTripZeroPnL(t *testing.T) {
	s := NewStore()
	s.Add(openPos("p1", "AAPL", types.SideBuy, 5, 100))
	closed, err := s.Close("p1", 100, time.Now(), types.CloseManual)
	require.NoError(t, err)
	assert.Equal(t, 0.0, closed.RealizedPnL)
}

func TestStoreShortSidePnL(t *testing.T) {
	s := NewStore()
	s.Add(openPos("p1", "TSLA", types.SideSell, 2, 250))
	closed, err := s.Close("p1", 240, time.Now(), types.CloseManual)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, closed.RealizedPnL, 1e-9)
}

func TestStoreRealizedTotalAndClear(t *testing.T) {
	s := NewStore()
	s.Add(openPos("p1", "AAPL", types.SideBuy, 1, 100))
	s.Add(openPos("p2", "AAPL", types.SideBuy, 1, 100))
	_, err := s.Close("p1", 110, time.Now(), types.CloseTakeProfit)
	require.NoError(t, err)
	_, err = s.Close("p2", 95, time.Now(), types.CloseStopLoss)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, s.RealizedTotal(), 1e-9)
	assert.Len(t, s.Closed(), 2)

	assert.Equal(t, 2, s.ClearClosed())
	assert.Empty(t, s.Closed())
}

func TestStoreRealizedSurvivesClear(t *testing.T) {
	s := NewStore()
	s.Add(openPos("p1", "AAPL", types.SideBuy, 1, 100))
	_, err := s.Close("p1", 110, time.Now(), types.CloseTakeProfit)
	require.NoError(t, err)
	require.Equal(t, 1, s.ClearClosed())

	// The cash ledger derives from this total; wiping history must not
	// shift cash or the gate's projected balance.
	assert.InDelta(t, 10.0, s.RealizedTotal(), 1e-9)

	s.Add(openPos("p2", "AAPL", types.SideBuy, 1, 100))
	_, err = s.Close("p2", 95, time.Now(), types.CloseStopLoss)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, s.RealizedTotal(), 1e-9)
}

func TestWithSymbolLockSerializes(t *testing.T) {
	s := NewStore()
	done := make(chan struct{})
	entered := make(chan struct{})

	go func() {
		_ = s.WithSymbolLock("AAPL", func() error {
			close(entered)
			<-done
			return nil
		})
	}()
	<-entered

	acquired := make(chan struct{})
	go func() {
		_ = s.WithSymbolLock("AAPL", func() error {
			close(acquired)
			return nil
		})
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired symbol lock while first still held it")
	case <-time.After(50 * time.Millisecond):
	}
	close(done)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was never released")
	}
}
