package supervisor

import (
	"errors"
	"testing"
	"time"

	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *state.Store {
	t.Helper()
	dir := t.TempDir()
	return state.NewStore(state.Paths{Data: dir + "/data", State: dir + "/state", Signals: dir + "/signals"})
}

func testLimits() Limits {
	return Limits{
		FailureAlertThreshold: 3,
		DailyLossLimitPct:     5,
		MaxDrawdownPct:        15,
		EquitySanityFloorPct:  10,
		FallbackEscalateAfter: 3,
		FallbackCooldown:      time.Hour,
	}
}

func TestRecordCycleOutcomeIncrementsOnFailure(t *testing.T) {
	s := New(newTestStore(t), testLimits())
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	fc, err := s.RecordCycleOutcome(clk, true)
	require.NoError(t, err)
	assert.Equal(t, 1, fc.ConsecutiveFailures)

	fc, err = s.RecordCycleOutcome(clk, true)
	require.NoError(t, err)
	assert.Equal(t, 2, fc.ConsecutiveFailures)

	fc, err = s.RecordCycleOutcome(clk, false)
	require.NoError(t, err)
	assert.Equal(t, 0, fc.ConsecutiveFailures)
}

func TestCheckKillSwitchActivatesOnDailyLoss(t *testing.T) {
	store := newTestStore(t)
	s := New(store, testLimits())
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	daily := state.DailyPnL{StartOfDayEquity: 1000, Equity: 940, RealizedPnL: -60, PeakEquity: 1000}
	triggered, err := s.CheckKillSwitch(clk, daily)
	require.NoError(t, err)
	assert.True(t, triggered)

	active, err := store.IsActive()
	require.NoError(t, err)
	assert.True(t, active)
}

func TestCheckKillSwitchSkipsOnStaleEquity(t *testing.T) {
	store := newTestStore(t)
	s := New(store, testLimits())
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Deactivate())

	daily := state.DailyPnL{StartOfDayEquity: 1000, Equity: 50, RealizedPnL: -950, PeakEquity: 1000}
	triggered, err := s.CheckKillSwitch(clk, daily)
	require.NoError(t, err)
	assert.False(t, triggered, "a sanity-failing equity reading must not trigger the kill switch")

	active, err := store.IsActive()
	require.NoError(t, err)
	assert.False(t, active, "kill switch must remain untouched when the sanity check rejects the reading")
}

func TestCheckKillSwitchActivatesOnDrawdown(t *testing.T) {
	store := newTestStore(t)
	s := New(store, testLimits())
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	daily := state.DailyPnL{StartOfDayEquity: 1000, Equity: 840, RealizedPnL: 0, PeakEquity: 1000}
	triggered, err := s.CheckKillSwitch(clk, daily)
	require.NoError(t, err)
	assert.True(t, triggered)
}

func TestRecordFallbackEscalatesOnceThenCoolsDown(t *testing.T) {
	s := New(newTestStore(t), testLimits())
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	for i := 0; i < 5; i++ {
		s.RecordFallback(clk, "no_spike")
	}
	assert.Equal(t, 5, s.fallbackStreak["no_spike"])
}

type fakeCloser struct {
	closed []string
	fail   map[string]bool
}

func (f *fakeCloser) MarketClose(symbol string) error {
	f.closed = append(f.closed, symbol)
	if f.fail[symbol] {
		return errors.New("exchange rejected close")
	}
	return nil
}

func TestEmergencyCloseAllContinuesPastFailures(t *testing.T) {
	s := New(newTestStore(t), testLimits())
	closer := &fakeCloser{fail: map[string]bool{"BTC": true}}
	positions := []state.Position{{Symbol: "BTC"}, {Symbol: "ETH"}}
	s.EmergencyCloseAll(closer, positions)
	assert.ElementsMatch(t, []string{"BTC", "ETH"}, closer.closed)
}
