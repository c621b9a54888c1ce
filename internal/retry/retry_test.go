package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Policy{MaxRetries: 3, BaseDelay: time.Millisecond, BackoffFactor: 2, MaxDelay: 10 * time.Millisecond}, "op", func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoReturnsRetryExhausted(t *testing.T) {
	err := Do(context.Background(), Policy{MaxRetries: 2, BaseDelay: time.Millisecond, BackoffFactor: 2, MaxDelay: 10 * time.Millisecond}, "op", func() error {
		return errors.New("permanent")
	})
	require.Error(t, err)
	assert.True(t, IsExhausted(err))
}

func TestBackoffDelayCappedAtMaxDelay(t *testing.T) {
	p := Policy{BaseDelay: time.Second, BackoffFactor: 10, MaxDelay: 5 * time.Second}
	d := backoffDelay(p, 5) // would be enormous uncapped
	assert.Equal(t, 5*time.Second, d)
}

func newTestStore(t *testing.T) *state.Store {
	t.Helper()
	dir := t.TempDir()
	return state.NewStore(state.Paths{Data: dir + "/data", State: dir + "/state", Signals: dir + "/signals"})
}

func TestSafeHoldSetsWarningNotEnabled(t *testing.T) {
	st := newTestStore(t)
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, st.Deactivate())

	require.NoError(t, SafeHold(clk, st, "exchange unreachable"))

	ks, present, err := st.GetKillSwitch()
	require.NoError(t, err)
	require.True(t, present)
	assert.True(t, ks.Warning)
	assert.False(t, ks.Enabled, "safe-hold must never flip Enabled")
}

func TestEscalateOnExhaustionPassesThroughOtherErrors(t *testing.T) {
	st := newTestStore(t)
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	plain := errors.New("not a retry error")
	err := EscalateOnExhaustion(clk, st, "op", plain)
	assert.Equal(t, plain, err)
}
