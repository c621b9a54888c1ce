package market

import (
	"context"
	"testing"

	"hyperwall-agent/internal/exchange/hyperliquid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExchange struct {
	mids      map[string]float64
	midsErr   error
	candles   map[string][]hyperliquid.Candle
	candleErr map[string]error
	ob        hyperliquid.OrderBook
	obErr     error
	funding   float64
	fundingOK bool
	fundingErr error
}

func (f *fakeExchange) AllMids(ctx context.Context) (map[string]float64, error) {
	return f.mids, f.midsErr
}

func (f *fakeExchange) CandlesSnapshot(ctx context.Context, coin, interval string, startMs, endMs int64) ([]hyperliquid.Candle, error) {
	if err, ok := f.candleErr[interval]; ok && err != nil {
		return nil, err
	}
	return f.candles[interval], nil
}

func (f *fakeExchange) L2Snapshot(ctx context.Context, coin string) (hyperliquid.OrderBook, error) {
	return f.ob, f.obErr
}

func (f *fakeExchange) FundingRate(ctx context.Context, coin string) (float64, bool, error) {
	return f.funding, f.fundingOK, f.fundingErr
}

func TestCollectFallsBackToPriorOnPartialFailure(t *testing.T) {
	ex := &fakeExchange{
		mids:      nil,
		midsErr:   assertErr,
		candles:   map[string][]hyperliquid.Candle{"5m": {{T: 1, C: 10}}},
		candleErr: map[string]error{"15m": assertErr},
		ob:        hyperliquid.OrderBook{},
		obErr:     assertErr,
	}
	c := New(ex, []string{"BTC"})

	prior := map[string]hyperliquid.Snapshot{
		"BTC": {
			Symbol: "BTC", MidPrice: 99, HasMidPrice: true,
			Candles15m: []hyperliquid.Candle{{T: 0, C: 5}},
			OrderBook:  hyperliquid.OrderBook{Bids: []hyperliquid.Level{{Px: 1, Sz: 1}}},
		},
	}

	out := c.Collect(context.Background(), 1000, prior)
	snap := out["BTC"]

	assert.True(t, snap.HasMidPrice)
	assert.Equal(t, 99.0, snap.MidPrice, "mid price should fall back to prior snapshot")
	assert.Len(t, snap.Candles5m, 1, "fresh 5m candles should be used")
	assert.Equal(t, prior["BTC"].Candles15m, snap.Candles15m, "15m candles should fall back to prior on fetch error")
	assert.Equal(t, prior["BTC"].OrderBook, snap.OrderBook, "order book should fall back to prior on fetch error")
}

func TestCollectJoinsAllSymbolsBeforeReturning(t *testing.T) {
	ex := &fakeExchange{mids: map[string]float64{"BTC": 100, "ETH": 50}}
	c := New(ex, []string{"BTC", "ETH"})
	out := c.Collect(context.Background(), 1000, nil)
	require.Len(t, out, 2)
	assert.Equal(t, 100.0, out["BTC"].MidPrice)
	assert.Equal(t, 50.0, out["ETH"].MidPrice)
}

var assertErr = errTest{}

type errTest struct{}

func (errTest) Error() string { return "test error" }
