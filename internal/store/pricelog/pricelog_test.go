package pricelog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordPrice("aapl", 100, 1000))
	require.NoError(t, s.RecordPrice("AAPL", 101, 2000))
	require.NoError(t, s.RecordPrice("AAPL", 102, 3000))
	require.NoError(t, s.RecordPrice("BTC", 45000, 1500))

	ticks, err := s.History(ctx, "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, ticks, 3)
	// Chronological order, symbol normalized.
	assert.Equal(t, []float64{100, 101, 102}, []float64{ticks[0].Price, ticks[1].Price, ticks[2].Price})
	assert.Equal(t, "AAPL", ticks[0].Symbol)
}

func TestHistoryLimitKeepsNewest(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordPrice("AAPL", float64(100+i), int64(1000*(i+1))))
	}

	ticks, err := s.History(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	require.Len(t, ticks, 2)
	assert.Equal(t, 103.0, ticks[0].Price)
	assert.Equal(t, 104.0, ticks[1].Price)
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordPrice("AAPL", 100, 1000))
	require.NoError(t, s.RecordPrice("AAPL", 101, 2000))

	n, err := s.Prune(ctx, 1500)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ticks, err := s.History(ctx, "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, 101.0, ticks[0].Price)
}
