package main

import (
	"testing"

	"hyperwall-agent/internal/exchange/hyperliquid"

	"github.com/stretchr/testify/assert"
)

func TestComputeDataHealthScoresEachSymbol(t *testing.T) {
	snapshots := map[string]hyperliquid.Snapshot{
		"BTC": {HasMidPrice: true, Candles5m: []hyperliquid.Candle{{}}, OrderBook: hyperliquid.OrderBook{
			Bids: []hyperliquid.Level{{Px: 1, Sz: 1}}, Asks: []hyperliquid.Level{{Px: 2, Sz: 1}},
		}},
		"ETH": {HasMidPrice: false},
	}
	health := computeDataHealth(snapshots, []string{"BTC", "ETH"})
	assert.InDelta(t, 0.5, health.Score, 1e-9)
	assert.Len(t, health.Errors, 2)   // ETH missing mid + missing candles
	assert.Len(t, health.Warnings, 1) // ETH empty order book
}

func TestComputeDataHealthEmptyBookIsWarningOnly(t *testing.T) {
	snapshots := map[string]hyperliquid.Snapshot{
		"BTC": {HasMidPrice: true, Candles5m: []hyperliquid.Candle{{}}},
	}
	health := computeDataHealth(snapshots, []string{"BTC"})
	assert.InDelta(t, 1.0, health.Score, 1e-9)
	assert.Empty(t, health.Errors)
	assert.Len(t, health.Warnings, 1)
}

func TestAllSymbolsLackCandles(t *testing.T) {
	assert.True(t, allSymbolsLackCandles(map[string]hyperliquid.Snapshot{}, []string{"BTC", "ETH"}))

	snapshots := map[string]hyperliquid.Snapshot{
		"BTC": {Candles5m: []hyperliquid.Candle{{}}},
	}
	assert.False(t, allSymbolsLackCandles(snapshots, []string{"BTC", "ETH"}))
}

func TestMarketConditionReadingsRequiresEnoughCandles(t *testing.T) {
	_, _, _, ok := marketConditionReadings(hyperliquid.Snapshot{Candles5m: make([]hyperliquid.Candle, 10)})
	assert.False(t, ok)
}

func TestTopBidTopAskOnEmptyBook(t *testing.T) {
	assert.Equal(t, 0.0, topBid(hyperliquid.OrderBook{}))
	assert.Equal(t, 0.0, topAsk(hyperliquid.OrderBook{}))
}

func TestTopNSumCapsAtAvailableLevels(t *testing.T) {
	levels := []hyperliquid.Level{{Sz: 1}, {Sz: 2}}
	assert.InDelta(t, 3.0, topNSum(levels, 5), 1e-9)
}

func TestBoolToFloat(t *testing.T) {
	assert.Equal(t, 1.0, boolToFloat(true))
	assert.Equal(t, 0.0, boolToFloat(false))
}

func TestMaxFloat64(t *testing.T) {
	assert.Equal(t, 5.0, maxFloat64(5, 3))
	assert.Equal(t, 5.0, maxFloat64(3, 5))
}
