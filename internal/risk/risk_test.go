package risk

import (
	"testing"

	"hyperwall-agent/internal/exchange/hyperliquid"
	"hyperwall-agent/internal/state"
	"hyperwall-agent/internal/strategy"

	"github.com/stretchr/testify/assert"
)

func baseLimits() Limits {
	return Limits{
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
	}
}

func TestValidateSignalAlwaysAllowsClose(t *testing.T) {
	dec := ValidateSignal(strategy.Signal{Action: strategy.ActionClose}, nil, 1000, 0, baseLimits())
	assert.True(t, dec.Approved)
}

func TestValidateSignalRejectsAtConcurrencyLimit(t *testing.T) {
	positions := []state.Position{{}, {}, {}}
	dec := ValidateSignal(strategy.Signal{Action: strategy.ActionLong}, positions, 1000, 0, baseLimits())
	assert.False(t, dec.Approved)
	assert.Contains(t, dec.Reason, "concurrent positions")
}

func TestValidateSignalRejectsOverLeverage(t *testing.T) {
	dec := ValidateSignal(strategy.Signal{Action: strategy.ActionLong, Leverage: 20}, nil, 1000, 0, baseLimits())
	assert.False(t, dec.Approved)
	assert.Contains(t, dec.Reason, "leverage")
}

func TestValidateSignalRejectsOversizedMargin(t *testing.T) {
	sig := strategy.Signal{Action: strategy.ActionLong, Leverage: 3, EntryPrice: 100}
	dec := ValidateSignal(sig, nil, 1000, 100, baseLimits()) // margin = 100*100/3 = 3333 >> 10% of 1000
	assert.False(t, dec.Approved)
	assert.Contains(t, dec.Reason, "margin_required")
}

func gateInputs() GateInputs {
	return GateInputs{
		Signal:           strategy.Signal{Direction: "long", Confidence: 0.8, EntryPrice: 100, StopLoss: 98, TakeProfit: 103},
		LiveEquity:       1000,
		StateEquity:      1000,
		RealizedPnL:      0,
		UnrealizedPnL:    0,
		StartOfDayEquity: 1000,
		DataHealthScore:  0.95,
		Bid:              99.9,
		Ask:              100.1,
		Mid:              100,
		Book: hyperliquid.OrderBook{
			Bids: []hyperliquid.Level{{Px: 99.9, Sz: 10}},
			Asks: []hyperliquid.Level{{Px: 100.1, Sz: 5}},
		},
		HasPriorTrade:         true,
		MinutesSinceLastTrade: 30,
	}
}

func TestEvaluateEntryGateApprovesCleanSignal(t *testing.T) {
	dec := EvaluateEntryGate(gateInputs(), baseLimits())
	assert.True(t, dec.Approved, dec.Reason)
}

func TestEvaluateEntryGateRejectsOnEquityDriftFirst(t *testing.T) {
	in := gateInputs()
	in.LiveEquity = 1200 // 20% drift; the drift check runs first, so it names the reason
	dec := EvaluateEntryGate(in, baseLimits())
	assert.False(t, dec.Approved)
	assert.Contains(t, dec.Reason, "equity drift")
}

func TestEvaluateEntryGateRejectsOnSpread(t *testing.T) {
	in := gateInputs()
	in.Ask = 105 // 500bps spread
	dec := EvaluateEntryGate(in, baseLimits())
	assert.False(t, dec.Approved)
	assert.Contains(t, dec.Reason, "spread")
}

func TestEvaluateEntryGateRejectsOnImbalanceForLong(t *testing.T) {
	in := gateInputs()
	in.Book = hyperliquid.OrderBook{
		Bids: []hyperliquid.Level{{Px: 99.9, Sz: 1}},
		Asks: []hyperliquid.Level{{Px: 100.1, Sz: 10}},
	}
	dec := EvaluateEntryGate(in, baseLimits())
	assert.False(t, dec.Approved)
	assert.Contains(t, dec.Reason, "imbalance")
}

func TestEvaluateEntryGateSkipsRRForTimeCut(t *testing.T) {
	in := gateInputs()
	in.Signal.ExitMode = strategy.ExitModeTimeCut
	in.Signal.TakeProfit = 100.1 // would fail RR as tp_sl, must be skipped under time_cut
	dec := EvaluateEntryGate(in, baseLimits())
	assert.True(t, dec.Approved, dec.Reason)
}

func TestEvaluateEntryGateRejectsOnRR(t *testing.T) {
	in := gateInputs()
	in.Signal.TakeProfit = 100.5 // reward 0.5 vs risk 2 => rr 0.25 < 1.2
	dec := EvaluateEntryGate(in, baseLimits())
	assert.False(t, dec.Approved)
	assert.Contains(t, dec.Reason, "reward/risk")
}

func TestSizeOrderRespectsMinOrderSize(t *testing.T) {
	limits := baseLimits()
	limits.MinOrderSizeUSD = 1_000_000
	size := SizeOrder(1000, 100, 3, 0, limits)
	assert.Zero(t, size)
}

func TestSizeOrderCapsAtExposureBudget(t *testing.T) {
	limits := baseLimits()
	limits.MaxTotalExposurePct = 50
	size := SizeOrder(1000, 100, 3, 490, limits) // only 10 USD of budget left
	assert.InDelta(t, 0.1, size, 1e-9)
}
