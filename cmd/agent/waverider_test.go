package main

import (
	"testing"
	"time"

	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/exchange/hyperliquid"
	"hyperwall-agent/internal/state"
	"hyperwall-agent/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourCandle(hour int, o, c float64) []hyperliquid.Candle {
	t := time.Date(2026, 7, 30, hour, 0, 0, 0, time.UTC)
	return []hyperliquid.Candle{
		{T: t.Add(-time.Hour).UnixMilli(), O: 100, H: 101, L: 99, C: 100},
		{T: t.UnixMilli(), O: o, H: o + 1, L: c - 1, C: c},
		{T: t.Add(time.Hour).UnixMilli(), O: c, H: c + 1, L: c - 1, C: c}, // still-forming bar
	}
}

func TestFindHourCandleMatchesObserveHour(t *testing.T) {
	candles := hourCandle(14, 100, 100.8)
	c := findHourCandle(candles, observeHourUTC)
	require.NotNil(t, c)
	assert.InDelta(t, 100.0, c.O, 1e-9)
}

func TestFindHourCandleWrongHourReturnsNil(t *testing.T) {
	candles := hourCandle(10, 100, 100.8)
	assert.Nil(t, findHourCandle(candles, observeHourUTC))
}

func TestFindHourCandleTooFewBars(t *testing.T) {
	assert.Nil(t, findHourCandle([]hyperliquid.Candle{{}}, observeHourUTC))
}

func TestConsumeWaveRiderPendingWaitsOutDelay(t *testing.T) {
	a := &agent{}
	clk := clock.Fixed{At: time.Date(2026, 7, 30, 14, 10, 0, 0, time.UTC)}
	wr := strategy.NewWaveRider(strategy.DefaultWaveRiderBTCConfig())

	pending := state.WaveRiderPending{
		Pattern:     "wr_reversion",
		ObserveOpen: 100,
		EntryAfter:  clk.At.Add(5 * time.Minute),
	}
	assert.Nil(t, a.consumeWaveRiderPending(clk, wr, "BTC", pending))

	pending.EntryAfter = clk.At.Add(-time.Minute)
	sig := a.consumeWaveRiderPending(clk, wr, "BTC", pending)
	require.NotNil(t, sig)
	assert.Equal(t, strategy.ActionShort, sig.Action)
	assert.Equal(t, "wr_reversion", sig.Pattern)
	assert.InDelta(t, 100.0, sig.ObserveOpen, 1e-9)
}

func TestWaveRiderConfigForKnownFamilies(t *testing.T) {
	eng := strategyEngine{
		waveRiderBTC:  strategy.DefaultWaveRiderBTCConfig(),
		waveRiderHYPE: strategy.DefaultWaveRiderHYPEConfig(),
	}
	assert.True(t, waveRiderConfigFor(eng, familyBTCWaveRider).ReversionEnabled)
	assert.False(t, waveRiderConfigFor(eng, familyHYPEWaveRider).ReversionEnabled)
}
