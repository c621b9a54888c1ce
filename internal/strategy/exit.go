package strategy

import "hyperwall-agent/internal/state"

// ExitScan evaluates one symbol's ExitMeta against the current mid price. It
// runs before every new-entry scan for that symbol: its result is
// authoritative, suppressing any same-cycle entry signal.
//
// It returns (close-signal, true) on SL/TP hit or time-cut bar overflow,
// (hold_position-signal, true) while waiting, or (nil, false) if meta is nil
// (the caller then falls through to a fresh entry scan).
func ExitScan(symbol string, meta *state.ExitMeta) (*Signal, bool) {
	return ExitScanAt(symbol, meta, 0, false)
}

// ExitScanAt is ExitScan with an explicit current mid price; pass hasMid=false
// when no mid is available this cycle (time-cut still fires on bar overflow).
func ExitScanAt(symbol string, meta *state.ExitMeta, mid float64, hasMid bool) (*Signal, bool) {
	if meta == nil {
		return nil, false
	}

	if hasMid && mid > 0 {
		if hit, reason := slTpHit(meta, mid); hit {
			return &Signal{
				Symbol:     symbol,
				Action:     ActionClose,
				Direction:  meta.Direction,
				EntryPrice: meta.EntryPrice,
				Pattern:    meta.Pattern,
				Reasoning:  reason,
			}, true
		}
	}

	if meta.ExitMode == state.ExitModeTimeCut && meta.BarCount >= meta.ExitBars {
		return &Signal{
			Symbol:     symbol,
			Action:     ActionClose,
			Direction:  meta.Direction,
			EntryPrice: meta.EntryPrice,
			Pattern:    meta.Pattern,
			Reasoning:  "time_cut",
		}, true
	}

	return &Signal{
		Symbol:     symbol,
		Action:     ActionHoldPosition,
		Direction:  meta.Direction,
		EntryPrice: meta.EntryPrice,
		Pattern:    meta.Pattern,
	}, true
}

func slTpHit(meta *state.ExitMeta, mid float64) (bool, string) {
	if meta.Direction == "long" {
		if meta.StopLoss > 0 && mid <= meta.StopLoss {
			return true, "stop_loss"
		}
		if meta.TakeProfit > 0 && mid >= meta.TakeProfit {
			return true, "take_profit"
		}
		return false, ""
	}
	if meta.StopLoss > 0 && mid >= meta.StopLoss {
		return true, "stop_loss"
	}
	if meta.TakeProfit > 0 && mid <= meta.TakeProfit {
		return true, "take_profit"
	}
	return false, ""
}
