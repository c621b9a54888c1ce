// Package supervisor watches cycle-level health: it escalates on repeated
// candle-data failure, auto-activates the kill-switch on loss/drawdown
// breaches (guarded by an equity sanity check), and counts consecutive
// fallback cycles per reason (such as a cycle with no trade signal).
package supervisor

import (
	"fmt"
	"time"

	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/state"

	"github.com/rs/zerolog/log"
)

// Limits configures the supervisor's thresholds.
type Limits struct {
	FailureAlertThreshold int
	DailyLossLimitPct     float64
	MaxDrawdownPct        float64
	EquitySanityFloorPct  float64 // equity below this % of start-of-day is treated as stale, not a real loss

	FallbackEscalateAfter int
	FallbackCooldown      time.Duration
}

// Closer is the narrow surface the supervisor needs to emergency-close
// every open position when the kill-switch auto-activates.
type Closer interface {
	MarketClose(symbol string) error
}

// Supervisor holds the state store it escalates against; it never
// duplicates state — it reads and writes through the same Store the rest of
// the agent uses.
type Supervisor struct {
	store  *state.Store
	limits Limits

	fallbackStreak map[string]int
	fallbackSince  map[string]time.Time
}

func New(store *state.Store, limits Limits) *Supervisor {
	return &Supervisor{
		store:          store,
		limits:         limits,
		fallbackStreak: make(map[string]int),
		fallbackSince:  make(map[string]time.Time),
	}
}

// RecordCycleOutcome updates the consecutive-failure counter: allSymbolsLackedData
// increments it, any other outcome resets it to zero via RecordSuccess.
func (s *Supervisor) RecordCycleOutcome(clk clock.Clock, allSymbolsLackedData bool) (state.FailureCounter, error) {
	if allSymbolsLackedData {
		fc, err := s.store.RecordFailure(clk)
		if err != nil {
			return fc, err
		}
		if fc.ConsecutiveFailures >= s.limits.FailureAlertThreshold {
			log.Warn().Int("consecutive_failures", fc.ConsecutiveFailures).
				Msg("supervisor: consecutive candle-data failures at or above alert threshold")
		}
		return fc, nil
	}
	return s.store.RecordSuccess(clk)
}

// CheckKillSwitch evaluates the daily-loss and drawdown triggers against the
// current DailyPnL record. It returns true if it activated the kill switch
// this call (the caller is then responsible for driving the emergency
// close). An equity sanity failure skips the checks entirely rather than
// risking an emergency-close driven by garbage data.
func (s *Supervisor) CheckKillSwitch(clk clock.Clock, daily state.DailyPnL) (bool, error) {
	if daily.StartOfDayEquity <= 0 {
		return false, nil
	}

	if daily.Equity < daily.StartOfDayEquity*(s.limits.EquitySanityFloorPct/100) {
		log.Warn().Float64("equity", daily.Equity).Float64("start_of_day", daily.StartOfDayEquity).
			Msg("supervisor: equity sanity check failed, skipping risk checks on this reading")
		return false, nil
	}

	dailyLossPct := -daily.RealizedPnL / daily.StartOfDayEquity * 100
	if dailyLossPct >= s.limits.DailyLossLimitPct {
		return true, s.store.Activate(clk, fmt.Sprintf("daily loss %.2f%% >= limit %.2f%%", dailyLossPct, s.limits.DailyLossLimitPct))
	}

	if daily.PeakEquity > 0 {
		drawdownPct := (daily.PeakEquity - daily.Equity) / daily.PeakEquity * 100
		if drawdownPct >= s.limits.MaxDrawdownPct {
			return true, s.store.Activate(clk, fmt.Sprintf("drawdown %.2f%% >= limit %.2f%%", drawdownPct, s.limits.MaxDrawdownPct))
		}
	}

	return false, nil
}

// EmergencyCloseAll closes every open position through the given Closer,
// logging but not aborting on a per-symbol failure — a failed close must
// not prevent attempts on the remaining symbols.
func (s *Supervisor) EmergencyCloseAll(closer Closer, positions []state.Position) {
	for _, p := range positions {
		if err := closer.MarketClose(p.Symbol); err != nil {
			log.Error().Err(err).Str("symbol", p.Symbol).Msg("supervisor: emergency close failed")
		}
	}
}

// RecordFallback tracks consecutive no-spike cycles per reason; once the
// streak clears the escalation threshold, it logs a warning at most once per
// cooldown window.
func (s *Supervisor) RecordFallback(clk clock.Clock, reason string) {
	s.fallbackStreak[reason]++
	streak := s.fallbackStreak[reason]
	if streak < s.limits.FallbackEscalateAfter {
		return
	}

	now := clk.Now()
	if since, ok := s.fallbackSince[reason]; ok && now.Sub(since) < s.limits.FallbackCooldown {
		return
	}
	s.fallbackSince[reason] = now
	log.Warn().Str("reason", reason).Int("streak", streak).Msg("supervisor: fallback streak escalated")
}

// ClearFallback resets a reason's streak once it no longer applies.
func (s *Supervisor) ClearFallback(reason string) {
	delete(s.fallbackStreak, reason)
	delete(s.fallbackSince, reason)
}
