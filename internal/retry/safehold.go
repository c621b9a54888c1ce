package retry

import (
	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/signal"
	"hyperwall-agent/internal/state"
	"hyperwall-agent/internal/store"
	"hyperwall-agent/internal/strategy"

	"github.com/rs/zerolog/log"
)

// SafeHold is the retry-exhaustion escalation path: it writes a hold signal
// batch so the executor takes no action this cycle, and sets the
// kill-switch's warning fields — never Enabled, which only risk-limit
// breaches may flip.
func SafeHold(clk clock.Clock, st *state.Store, reason string) error {
	log.Error().Str("reason", reason).Msg("retry: escalating to safe-hold")

	batch := signal.Batch{
		GeneratedAt: clk.Now(),
		ActionType:  "hold",
		Signals: []strategy.Signal{
			{Action: strategy.ActionHold, Reasoning: "safe-hold: " + reason},
		},
	}
	if err := store.WriteJSON(st.Paths.Signals(), batch); err != nil {
		return err
	}

	return st.SetWarning(clk, reason)
}

// EscalateOnExhaustion is a convenience wrapper: if err is a RetryExhausted,
// it drives SafeHold and returns nil (the caller's cycle should proceed as a
// no-op rather than propagating the error further); any other error is
// returned unchanged.
func EscalateOnExhaustion(clk clock.Clock, st *state.Store, label string, err error) error {
	if err == nil {
		return nil
	}
	if !IsExhausted(err) {
		return err
	}
	return SafeHold(clk, st, label+" retries exhausted")
}
