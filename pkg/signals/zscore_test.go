package signals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

func snapshot(symbol, bid, ask string) common.MarketSnapshot {
	b, a := fixed.MustParse(bid), fixed.MustParse(ask)
	return common.MarketSnapshot{Symbol: symbol, Price: b, Bid: b, Ask: a, TimeStamp: 7}
}

func TestZScore_InvalidWindow(t *testing.T) {
	_, err := NewZScore(0)
	require.ErrorIs(t, err, ErrInvalidWindow)
}

func TestZScore_ReportsOnceWindowIsFull(t *testing.T) {
	z, err := NewZScore(3)
	require.NoError(t, err)
	ctx := context.Background()

	s, err := z.OnMarketSnapshot(ctx, snapshot("BTC-USDT", "99", "101"))
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDT", s.Symbol)
	assert.Equal(t, int64(7), s.TimeStamp)
	assert.InDelta(t, 100, s.Data[KeyMid], 1e-9)
	assert.InDelta(t, 2, s.Data[KeySpread], 1e-9)
	assert.NotContains(t, s.Data, KeyZScore)

	_, err = z.OnMarketSnapshot(ctx, snapshot("BTC-USDT", "101", "103"))
	require.NoError(t, err)
	s, err = z.OnMarketSnapshot(ctx, snapshot("BTC-USDT", "103", "105"))
	require.NoError(t, err)

	// mids 100, 102, 104
	assert.InDelta(t, 102, s.Data[KeyMean], 1e-9)
	assert.InDelta(t, 2, s.Data[KeyStdDev], 1e-9)
	assert.InDelta(t, 1, s.Data[KeyZScore], 1e-9)
}

func TestZScore_SymbolsAreIndependent(t *testing.T) {
	z, err := NewZScore(2)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = z.OnMarketSnapshot(ctx, snapshot("BTC-USDT", "100", "100"))
	require.NoError(t, err)
	s, err := z.OnMarketSnapshot(ctx, snapshot("ETH-USDT", "10", "10"))
	require.NoError(t, err)
	assert.InDelta(t, 10, s.Data[KeyMean], 1e-9)
	assert.NotContains(t, s.Data, KeyZScore)
}

func TestZScore_ConstantPricesHaveNoZScore(t *testing.T) {
	z, err := NewZScore(2)
	require.NoError(t, err)

	var s common.SignalSnapshot
	for range 3 {
		s, err = z.OnMarketSnapshot(context.Background(), snapshot("BTC-USDT", "100", "100"))
		require.NoError(t, err)
	}
	assert.Zero(t, s.Data[KeyStdDev])
	assert.NotContains(t, s.Data, KeyZScore)
}
