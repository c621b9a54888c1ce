package exec

import (
	"context"
	"errors"
	"testing"
	"time"

	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/exchange/hyperliquid"
	"hyperwall-agent/internal/risk"
	"hyperwall-agent/internal/signal"
	"hyperwall-agent/internal/state"
	"hyperwall-agent/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExchange struct {
	openResult  hyperliquid.OrderResult
	openErr     error
	closeResult hyperliquid.OrderResult
	closeErr    error
	leverageErr error

	opens  []string
	closes []string
}

func (f *fakeExchange) MarketOpen(ctx context.Context, coin string, isBuy bool, size, slippage float64) (hyperliquid.OrderResult, error) {
	f.opens = append(f.opens, coin)
	return f.openResult, f.openErr
}

func (f *fakeExchange) MarketClose(ctx context.Context, coin string) (hyperliquid.OrderResult, error) {
	f.closes = append(f.closes, coin)
	return f.closeResult, f.closeErr
}

func (f *fakeExchange) UpdateLeverage(ctx context.Context, coin string, leverage int) error {
	return f.leverageErr
}

func newTestStore(t *testing.T) *state.Store {
	t.Helper()
	dir := t.TempDir()
	return state.NewStore(state.Paths{Data: dir + "/data", State: dir + "/state", Signals: dir + "/signals"})
}

func testBreakerLimits() CircuitBreakerLimits {
	return CircuitBreakerLimits{
		VolatilityThreshold: 3.0,
		ImbalanceThreshold:  5.0,
		VolumeThreshold:     10.0,
		ErrorRateThreshold:  0.5,
		RecoveryTime:        10 * time.Minute,
	}
}

func baseLimits() risk.Limits {
	return risk.Limits{
		MaxConcurrent:                3,
		MaxLeverage:                  10,
		MaxSinglePct:                 10,
		MaxTotalExposurePct:          50,
		MaxEquityDriftPct:            5,
		PartialConsensusMinConf:      0.75,
		MaxDailyLossForNewEntriesPct: 5,
		MinDataQualityScore:          0.8,
		MaxSpreadBps:                 20,
		MinImbalance:                 1.0,
		EntryCooldownMinutes:         15,
		MinRR:                        1.2,
		RegimeMultiplier:             1.0,
		MinOrderSizeUSD:              10,
		PerSymbolHardCapUSD:          100000,
		PerTradeNotionalCap:          100000,
	}
}

func cleanGateInputs(sig strategy.Signal) risk.GateInputs {
	return risk.GateInputs{
		Signal:           sig,
		LiveEquity:       1000,
		StateEquity:      1000,
		StartOfDayEquity: 1000,
		DataHealthScore:  0.95,
		Bid:              99.9,
		Ask:              100.1,
		Mid:              100,
		Book: hyperliquid.OrderBook{
			Bids: []hyperliquid.Level{{Px: 99.9, Sz: 10}},
			Asks: []hyperliquid.Level{{Px: 100.1, Sz: 10}},
		},
	}
}

func TestRunEntryPlacesOrderAndSavesExitMeta(t *testing.T) {
	st := newTestStore(t)
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ex := &fakeExchange{openResult: hyperliquid.OrderResult{Outcome: hyperliquid.OutcomeFilled, AvgPrice: 100.5}}
	e := New(ex, st, 0.01, testBreakerLimits())

	sig := strategy.Signal{
		Symbol: "BTC", Action: strategy.ActionLong, Direction: "long", Confidence: 0.8,
		EntryPrice: 100, StopLoss: 98, TakeProfit: 103, Leverage: 3, Pattern: "penetration",
		ExitMode: strategy.ExitModeTPSL, ExitBars: 12,
	}
	batch := signal.Batch{GeneratedAt: clk.Now(), ActionType: "trade", Signals: []strategy.Signal{sig}}

	outcomes := e.Run(context.Background(), clk, batch,
		map[string]string{"BTC": "BTC_rubber_wall"},
		map[string]state.Position{},
		baseLimits(),
		map[string]risk.GateInputs{"BTC": cleanGateInputs(sig)},
	)

	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.False(t, outcomes[0].Skipped)
	assert.Equal(t, []string{"BTC"}, ex.opens)

	meta, err := st.GetExitMeta("BTC_rubber_wall")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 100.5, meta.EntryPrice)
	assert.Equal(t, "penetration", meta.Pattern)

	trades, err := st.GetTradeHistory()
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 100.5, trades[0].EntryPrice)
}

func TestRunEntrySkippedWhenSizeBelowMinimum(t *testing.T) {
	st := newTestStore(t)
	clk := clock.Fixed{At: time.Now()}
	ex := &fakeExchange{openResult: hyperliquid.OrderResult{Outcome: hyperliquid.OutcomeFilled, AvgPrice: 100}}
	e := New(ex, st, 0.01, testBreakerLimits())

	sig := strategy.Signal{Symbol: "BTC", Action: strategy.ActionLong, Direction: "long", Confidence: 0.8, EntryPrice: 100, StopLoss: 98, TakeProfit: 103, Leverage: 3}
	limits := baseLimits()
	limits.MinOrderSizeUSD = 1_000_000

	outcomes := e.Run(context.Background(), clk,
		signal.Batch{Signals: []strategy.Signal{sig}},
		map[string]string{"BTC": "BTC_rubber_wall"},
		map[string]state.Position{},
		limits,
		map[string]risk.GateInputs{"BTC": cleanGateInputs(sig)},
	)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Skipped)
	assert.Empty(t, ex.opens, "order must never reach the exchange once sizing rejects it")
}

func TestRunEntrySkippedInClosedOnlyMode(t *testing.T) {
	st := newTestStore(t)
	clk := clock.Fixed{At: time.Now()}
	ex := &fakeExchange{openResult: hyperliquid.OrderResult{Outcome: hyperliquid.OutcomeFilled, AvgPrice: 100}}
	e := New(ex, st, 0.01, testBreakerLimits())
	e.SetClosedOnly([]string{"BTC"})

	sig := strategy.Signal{Symbol: "BTC", Action: strategy.ActionLong, Direction: "long", Confidence: 0.8, EntryPrice: 100, StopLoss: 98, TakeProfit: 103, Leverage: 3}

	outcomes := e.Run(context.Background(), clk,
		signal.Batch{Signals: []strategy.Signal{sig}},
		map[string]string{"BTC": "BTC_rubber_wall"},
		map[string]state.Position{},
		baseLimits(),
		map[string]risk.GateInputs{"BTC": cleanGateInputs(sig)},
	)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Skipped)
	assert.Equal(t, "closed_only_mode", outcomes[0].Reason)
	assert.Empty(t, ex.opens)
}

func TestRunCloseRecordsPnLAndDeletesExitMeta(t *testing.T) {
	st := newTestStore(t)
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	require.NoError(t, st.SaveExitMeta("BTC_rubber_wall", state.ExitMeta{
		Pattern: "penetration", Direction: "long", EntryPrice: 100, StopLoss: 98, TakeProfit: 103,
		ExitMode: state.ExitModeTPSL, EntryTime: clk.At.Add(-time.Hour),
	}))

	ex := &fakeExchange{closeResult: hyperliquid.OrderResult{Outcome: hyperliquid.OutcomeFilled, AvgPrice: 103.2}}
	e := New(ex, st, 0.01, testBreakerLimits())

	sig := strategy.Signal{Symbol: "BTC", Action: strategy.ActionClose, Reasoning: "take_profit"}
	outcomes := e.Run(context.Background(), clk,
		signal.Batch{Signals: []strategy.Signal{sig}},
		map[string]string{"BTC": "BTC_rubber_wall"},
		map[string]state.Position{"BTC": {Symbol: "BTC", Size: 1, EntryPrice: 100}},
		baseLimits(),
		map[string]risk.GateInputs{"BTC": {LiveEquity: 1010}},
	)

	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, []string{"BTC"}, ex.closes)

	meta, err := st.GetExitMeta("BTC_rubber_wall")
	require.NoError(t, err)
	assert.Nil(t, meta, "ExitMeta must be deleted once the close fills")

	trades, err := st.GetTradeHistory()
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.InDelta(t, 3.2, trades[0].PnL, 1e-9)

	daily, err := st.GetDailyPnL()
	require.NoError(t, err)
	require.NotNil(t, daily)
	assert.InDelta(t, 3.2, daily.RealizedPnL, 1e-9)
}

func TestRunCloseNoPositionClearsStaleExitMeta(t *testing.T) {
	st := newTestStore(t)
	clk := clock.Fixed{At: time.Now()}
	require.NoError(t, st.SaveExitMeta("BTC_rubber_wall", state.ExitMeta{Direction: "long", EntryPrice: 100}))

	ex := &fakeExchange{closeResult: hyperliquid.OrderResult{Outcome: hyperliquid.OutcomeNoPosition}}
	e := New(ex, st, 0.01, testBreakerLimits())

	sig := strategy.Signal{Symbol: "BTC", Action: strategy.ActionClose}
	outcomes := e.Run(context.Background(), clk,
		signal.Batch{Signals: []strategy.Signal{sig}},
		map[string]string{"BTC": "BTC_rubber_wall"},
		map[string]state.Position{},
		baseLimits(),
		map[string]risk.GateInputs{"BTC": {}},
	)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Skipped)
	meta, err := st.GetExitMeta("BTC_rubber_wall")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestRunHoldPositionIncrementsBarCount(t *testing.T) {
	st := newTestStore(t)
	clk := clock.Fixed{At: time.Now()}
	require.NoError(t, st.SaveExitMeta("BTC_rubber_wall", state.ExitMeta{Direction: "long", EntryPrice: 100, BarCount: 2}))

	ex := &fakeExchange{}
	e := New(ex, st, 0.01, testBreakerLimits())

	sig := strategy.Signal{Symbol: "BTC", Action: strategy.ActionHoldPosition}
	outcomes := e.Run(context.Background(), clk,
		signal.Batch{Signals: []strategy.Signal{sig}},
		map[string]string{"BTC": "BTC_rubber_wall"},
		map[string]state.Position{},
		baseLimits(),
		map[string]risk.GateInputs{},
	)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Skipped)
	meta, err := st.GetExitMeta("BTC_rubber_wall")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 3, meta.BarCount)
}

func TestRunEntrySurfacesExchangeError(t *testing.T) {
	st := newTestStore(t)
	clk := clock.Fixed{At: time.Now()}
	ex := &fakeExchange{openErr: errors.New("network unreachable")}
	e := New(ex, st, 0.01, testBreakerLimits())

	sig := strategy.Signal{Symbol: "BTC", Action: strategy.ActionLong, Direction: "long", Confidence: 0.8, EntryPrice: 100, StopLoss: 98, TakeProfit: 103, Leverage: 3}
	outcomes := e.Run(context.Background(), clk,
		signal.Batch{Signals: []strategy.Signal{sig}},
		map[string]string{"BTC": "BTC_rubber_wall"},
		map[string]state.Position{},
		baseLimits(),
		map[string]risk.GateInputs{"BTC": cleanGateInputs(sig)},
	)

	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
}

func TestCircuitBreakerBlocksEntryOnceVolatilityTripped(t *testing.T) {
	st := newTestStore(t)
	clk := clock.Fixed{At: time.Now()}
	ex := &fakeExchange{openResult: hyperliquid.OrderResult{Outcome: hyperliquid.OutcomeFilled, AvgPrice: 100}}
	e := New(ex, st, 0.01, testBreakerLimits())

	e.UpdateMarketConditions(clk, 5.0, 0, 0) // ATR ratio 5.0 exceeds the 3.0 threshold
	assert.True(t, e.CircuitBreakerStatus()["volatility"])

	sig := strategy.Signal{Symbol: "BTC", Action: strategy.ActionLong, Direction: "long", Confidence: 0.8, EntryPrice: 100, StopLoss: 98, TakeProfit: 103, Leverage: 3}
	outcomes := e.Run(context.Background(), clk,
		signal.Batch{Signals: []strategy.Signal{sig}},
		map[string]string{"BTC": "BTC_rubber_wall"},
		map[string]state.Position{},
		baseLimits(),
		map[string]risk.GateInputs{"BTC": cleanGateInputs(sig)},
	)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Skipped)
	assert.Equal(t, "circuit_breaker_tripped", outcomes[0].Reason)
	assert.Empty(t, ex.opens)
}

func TestCircuitBreakerStillAllowsCloseWhileTripped(t *testing.T) {
	st := newTestStore(t)
	clk := clock.Fixed{At: time.Now()}
	require.NoError(t, st.SaveExitMeta("BTC_rubber_wall", state.ExitMeta{Direction: "long", EntryPrice: 100}))
	ex := &fakeExchange{closeResult: hyperliquid.OrderResult{Outcome: hyperliquid.OutcomeFilled, AvgPrice: 101}}
	e := New(ex, st, 0.01, testBreakerLimits())
	e.UpdateMarketConditions(clk, 5.0, 0, 0)

	sig := strategy.Signal{Symbol: "BTC", Action: strategy.ActionClose}
	outcomes := e.Run(context.Background(), clk,
		signal.Batch{Signals: []strategy.Signal{sig}},
		map[string]string{"BTC": "BTC_rubber_wall"},
		map[string]state.Position{},
		baseLimits(),
		map[string]risk.GateInputs{"BTC": {LiveEquity: 1000}},
	)

	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, []string{"BTC"}, ex.closes)
}

func TestCircuitBreakerErrorRateTripsFromRunOutcomes(t *testing.T) {
	st := newTestStore(t)
	clk := clock.Fixed{At: time.Now()}
	ex := &fakeExchange{openErr: errors.New("exchange unavailable")}
	e := New(ex, st, 0.01, testBreakerLimits())

	sig := strategy.Signal{Symbol: "BTC", Action: strategy.ActionLong, Direction: "long", Confidence: 0.8, EntryPrice: 100, StopLoss: 98, TakeProfit: 103, Leverage: 3}
	e.Run(context.Background(), clk,
		signal.Batch{Signals: []strategy.Signal{sig}},
		map[string]string{"BTC": "BTC_rubber_wall"},
		map[string]state.Position{},
		baseLimits(),
		map[string]risk.GateInputs{"BTC": cleanGateInputs(sig)},
	)

	assert.True(t, e.CircuitBreakerStatus()["error_rate"], "a 100%% error rate this cycle must trip the error-rate breaker")
}
