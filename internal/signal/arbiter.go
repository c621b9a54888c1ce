// Package signal implements the arbiter: it composes per-symbol strategy
// outputs (entry scans and exit scans) into one signal batch per cycle,
// applying the precedence, min-hold, and CAPS leverage rules.
package signal

import (
	"fmt"
	"time"

	"hyperwall-agent/internal/state"
	"hyperwall-agent/internal/strategy"
)

// Batch is the arbiter's per-cycle output.
type Batch struct {
	GeneratedAt time.Time          `json:"generated_at"`
	ActionType  string             `json:"action_type"` // "trade" | "hold"
	Signals     []strategy.Signal  `json:"signals"`
}

// MinHoldConfig gates a close signal behind a minimum holding time unless
// confidence overrides it.
type MinHoldConfig struct {
	MinHoldMinutes          float64
	MinHoldOverrideConfidence float64
}

// Arbitrate applies the precedence rules across every symbol's candidate
// signal (entry or exit scan result, whichever the caller already resolved)
// and returns the final batch.
//
// candidates maps symbol -> the signal the strategy layer produced for it
// this cycle (nil if none). livePositions flags which symbols have an open
// position on the exchange right now, used for the hold_position rescue
// when ExitMeta is missing. openedAt/now and cfg drive min-hold enforcement
// on any close signal.
func Arbitrate(now time.Time, candidates map[string]*strategy.Signal, livePositions map[string]bool, openedAt map[string]time.Time, cfg MinHoldConfig) Batch {
	signals := make([]strategy.Signal, 0, len(candidates))
	tradeSeen := false

	for symbol, sig := range candidates {
		if sig == nil {
			if livePositions[symbol] {
				signals = append(signals, strategy.Signal{
					Symbol:    symbol,
					Action:    strategy.ActionHoldPosition,
					Reasoning: "exit meta missing for open position, holding to avoid double-entry",
				})
			}
			continue
		}

		resolved := *sig
		if resolved.Action == strategy.ActionClose {
			resolved = enforceMinHold(resolved, openedAt[symbol], now, cfg)
		}

		if resolved.Action == strategy.ActionLong || resolved.Action == strategy.ActionShort || resolved.Action == strategy.ActionClose {
			tradeSeen = true
		}
		if resolved.Leverage == 0 && resolved.Confidence > 0 {
			resolved.Leverage = strategy.ConfidenceToLeverage(resolved.Confidence, 3)
		}
		signals = append(signals, resolved)
	}

	for symbol := range livePositions {
		if _, handled := candidates[symbol]; !handled {
			signals = append(signals, strategy.Signal{
				Symbol:    symbol,
				Action:    strategy.ActionHoldPosition,
				Reasoning: "exit meta missing for open position, holding to avoid double-entry",
			})
		}
	}

	if len(signals) == 0 {
		signals = append(signals, strategy.Signal{
			Action:    strategy.ActionHold,
			Reasoning: "no spike detected across configured symbols this cycle",
		})
	}

	actionType := "hold"
	if tradeSeen {
		actionType = "trade"
	}

	return Batch{GeneratedAt: now, ActionType: actionType, Signals: signals}
}

// enforceMinHold downgrades a close signal to hold_position if the position
// hasn't been held long enough, unless the close's confidence clears the
// override threshold (e.g. a hard SL hit should never be held back).
func enforceMinHold(sig strategy.Signal, openedAt time.Time, now time.Time, cfg MinHoldConfig) strategy.Signal {
	if openedAt.IsZero() || cfg.MinHoldMinutes <= 0 {
		return sig
	}
	held := now.Sub(openedAt).Minutes()
	if held >= cfg.MinHoldMinutes {
		return sig
	}
	if sig.Confidence >= cfg.MinHoldOverrideConfidence {
		return sig
	}
	sig.Action = strategy.ActionHoldPosition
	sig.Reasoning = fmt.Sprintf("min-hold not satisfied (%.1f/%.1f min), deferring close", held, cfg.MinHoldMinutes)
	return sig
}

// FromExitScan adapts strategy.ExitScanAt's result into the candidate map
// entry the arbiter expects, returning nil when ExitScanAt reports no
// position.
func FromExitScan(symbol string, meta *state.ExitMeta, mid float64, hasMid bool) *strategy.Signal {
	sig, ok := strategy.ExitScanAt(symbol, meta, mid, hasMid)
	if !ok {
		return nil
	}
	return sig
}
