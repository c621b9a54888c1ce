// Package risk implements per-signal validation, the composite entry gate,
// and sequential-cap sizing described in the risk design: every new long or
// short must clear every rule, in order, and the first failing rule is the
// one reported (for audit).
package risk

import (
	"fmt"

	"hyperwall-agent/internal/exchange/hyperliquid"
	"hyperwall-agent/internal/state"
	"hyperwall-agent/internal/strategy"
)

// Limits holds the configured thresholds every check is evaluated against.
type Limits struct {
	MaxConcurrent       int
	MaxLeverage         float64
	MaxSinglePct        float64
	MaxTotalExposurePct float64

	MaxEquityDriftPct            float64
	PartialConsensusMinConf      float64
	MaxDailyLossForNewEntriesPct float64
	MinDataQualityScore          float64
	MaxSpreadBps                 float64
	MinImbalance                 float64
	EntryCooldownMinutes         float64
	MinRR                        float64

	RegimeMultiplier     float64
	PerSymbolHardCapUSD  float64
	PerTradeNotionalCap  float64
	MinOrderSizeUSD      float64
}

// Decision is the outcome of evaluating a signal against the gate: Approved
// is false iff Reason names the first rule that failed.
type Decision struct {
	Approved bool
	Reason   string
}

func reject(format string, args ...interface{}) Decision {
	return Decision{Approved: false, Reason: fmt.Sprintf(format, args...)}
}

var approved = Decision{Approved: true}

// ValidateSignal runs the per-signal checks from section 4.6.1: concurrency,
// leverage, single-position size, and total exposure. Close is always
// allowed.
func ValidateSignal(sig strategy.Signal, positions []state.Position, equity float64, size float64, limits Limits) Decision {
	if sig.Action == strategy.ActionClose {
		return approved
	}

	if len(positions) >= limits.MaxConcurrent {
		return reject("concurrent positions at limit (%d >= %d)", len(positions), limits.MaxConcurrent)
	}

	if sig.Leverage > 0 && float64(sig.Leverage) > limits.MaxLeverage {
		return reject("leverage %d exceeds max_leverage %.0f", sig.Leverage, limits.MaxLeverage)
	}

	if size > 0 && sig.EntryPrice > 0 {
		leverage := float64(sig.Leverage)
		if leverage < 1 {
			leverage = 1
		}
		marginRequired := size * sig.EntryPrice / leverage
		if equity > 0 && marginRequired/equity > limits.MaxSinglePct/100 {
			return reject("margin_required/equity %.4f exceeds max_single_pct %.2f%%", marginRequired/equity*100, limits.MaxSinglePct)
		}

		var existingExposure float64
		for _, p := range positions {
			existingExposure += absFloat(p.Size) * p.EntryPrice
		}
		newNotional := size * sig.EntryPrice
		if equity > 0 && (existingExposure+newNotional) > limits.MaxTotalExposurePct/100*equity {
			return reject("total exposure %.2f exceeds max_total_exposure_pct %.2f%%", existingExposure+newNotional, limits.MaxTotalExposurePct)
		}
	}

	return approved
}

// GateInputs bundles every piece of cycle state the composite entry gate
// needs to evaluate section 4.6.2's checks, in order.
type GateInputs struct {
	Signal strategy.Signal

	LiveEquity  float64
	StateEquity float64

	ReasoningPartial bool

	RealizedPnL         float64
	UnrealizedPnL       float64
	StartOfDayEquity    float64

	DataHealthScore float64

	Bid, Ask, Mid float64

	Book hyperliquid.OrderBook

	MinutesSinceLastTrade float64
	HasPriorTrade         bool
}

// EvaluateEntryGate runs the composite entry-gate checks from section 4.6.2
// in the documented order; the first failing check wins.
func EvaluateEntryGate(in GateInputs, limits Limits) Decision {
	if in.StateEquity > 0 {
		drift := absFloat(in.LiveEquity-in.StateEquity) / in.StateEquity
		if drift > limits.MaxEquityDriftPct/100 {
			return reject("equity drift %.2f%% exceeds max_equity_drift_pct %.2f%%", drift*100, limits.MaxEquityDriftPct)
		}
	}

	if in.ReasoningPartial && in.Signal.Confidence < limits.PartialConsensusMinConf {
		return reject("partial consensus confidence %.2f below %.2f", in.Signal.Confidence, limits.PartialConsensusMinConf)
	}

	if in.StartOfDayEquity > 0 {
		dailyLossPct := -(in.RealizedPnL + in.UnrealizedPnL) / in.StartOfDayEquity * 100
		if dailyLossPct >= limits.MaxDailyLossForNewEntriesPct {
			return reject("daily loss %.2f%% at or above new-entry limit %.2f%%", dailyLossPct, limits.MaxDailyLossForNewEntriesPct)
		}
	}

	if in.DataHealthScore < limits.MinDataQualityScore {
		return reject("data health score %.2f below minimum %.2f", in.DataHealthScore, limits.MinDataQualityScore)
	}

	if in.Mid > 0 {
		spreadBps := (in.Ask - in.Bid) / in.Mid * 10000
		if spreadBps > limits.MaxSpreadBps {
			return reject("spread %.1fbps exceeds max_spread_bps %.1f", spreadBps, limits.MaxSpreadBps)
		}
	}

	if dec := checkImbalance(in.Signal.Direction, in.Book, limits.MinImbalance); !dec.Approved {
		return dec
	}

	if in.HasPriorTrade && in.MinutesSinceLastTrade < limits.EntryCooldownMinutes {
		return reject("cooldown not elapsed (%.1f/%.1f min)", in.MinutesSinceLastTrade, limits.EntryCooldownMinutes)
	}

	if dec := checkRR(in.Signal, limits.MinRR); !dec.Approved {
		return dec
	}

	return approved
}

func checkImbalance(direction string, book hyperliquid.OrderBook, minImbalance float64) Decision {
	bidSz, askSz := top5Sum(book.Bids), top5Sum(book.Asks)
	if bidSz <= 0 || askSz <= 0 {
		return approved
	}
	switch direction {
	case "long":
		ratio := bidSz / askSz
		if ratio < minImbalance {
			return reject("bid/ask imbalance %.2f below min_imbalance %.2f for long", ratio, minImbalance)
		}
	case "short":
		ratio := askSz / bidSz
		if ratio < minImbalance {
			return reject("ask/bid imbalance %.2f below min_imbalance %.2f for short", ratio, minImbalance)
		}
	}
	return approved
}

func top5Sum(levels []hyperliquid.Level) float64 {
	n := len(levels)
	if n > 5 {
		n = 5
	}
	var sum float64
	for _, l := range levels[:n] {
		sum += l.Sz
	}
	return sum
}

func checkRR(sig strategy.Signal, minRR float64) Decision {
	if sig.ExitMode == strategy.ExitModeTimeCut {
		return approved
	}
	if sig.EntryPrice <= 0 || sig.StopLoss <= 0 || sig.TakeProfit <= 0 {
		return approved
	}

	var reward, risk float64
	if sig.Direction == "long" {
		reward = sig.TakeProfit - sig.EntryPrice
		risk = sig.EntryPrice - sig.StopLoss
	} else {
		reward = sig.EntryPrice - sig.TakeProfit
		risk = sig.StopLoss - sig.EntryPrice
	}
	if risk <= 0 {
		return approved
	}
	rr := reward / risk
	if rr < minRR {
		return reject("reward/risk %.2f below min_rr %.2f", rr, minRR)
	}
	return approved
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
