package state

import (
	"testing"
	"time"

	"hyperwall-agent/internal/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(Paths{Data: dir + "/data", State: dir + "/state", Signals: dir + "/signals"})
}

func TestKillSwitchFailSafeOnMissingFile(t *testing.T) {
	s := newTestStore(t)
	active, err := s.IsActive()
	require.NoError(t, err)
	assert.True(t, active, "missing kill-switch file must be treated as active")
}

func TestKillSwitchDeactivateThenActive(t *testing.T) {
	s := newTestStore(t)
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	require.NoError(t, s.Deactivate())
	active, err := s.IsActive()
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, s.Activate(clk, "daily loss breach"))
	active, err = s.IsActive()
	require.NoError(t, err)
	assert.True(t, active)
}

func TestDailyPnLRealizedOnlyPeak(t *testing.T) {
	s := newTestStore(t)
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}

	d, err := s.UpdateDailyPnL(clk, 1000, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, d.PeakEquity)

	unreal := 200.0
	d, err = s.UpdateDailyPnL(clk, 1200, 0, &unreal)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, d.PeakEquity, "unrealized gains must not raise the peak")

	d, err = s.UpdateDailyPnL(clk, 1150, 150, nil)
	require.NoError(t, err)
	assert.Equal(t, 1150.0, d.PeakEquity, "peak rises only with realized pnl")
}

func TestDailyPnLRolloverOnDateChange(t *testing.T) {
	s := newTestStore(t)
	day1 := clock.Fixed{At: time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)}
	day2 := clock.Fixed{At: time.Date(2026, 1, 2, 0, 5, 0, 0, time.UTC)}

	_, err := s.UpdateDailyPnL(day1, 1000, -50, nil)
	require.NoError(t, err)

	d, err := s.UpdateDailyPnL(day2, 950, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02", d.Date)
	assert.Equal(t, 0.0, d.RealizedPnL)
	assert.Equal(t, 950.0, d.StartOfDayEquity)
}

func TestRecordTradeTrimsToCap(t *testing.T) {
	s := newTestStore(t)
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	for i := 0; i < MaxTradeHistory+10; i++ {
		require.NoError(t, s.RecordTrade(clk, Trade{Symbol: "BTC", Side: "long"}))
	}
	trades, err := s.GetTradeHistory()
	require.NoError(t, err)
	assert.Len(t, trades, MaxTradeHistory)
}

func TestExitMetaRoundTripAndDelete(t *testing.T) {
	s := newTestStore(t)
	m, err := s.GetExitMeta("BTC_rubber")
	require.NoError(t, err)
	assert.Nil(t, m)

	require.NoError(t, s.SaveExitMeta("BTC_rubber", ExitMeta{Pattern: "penetration", Direction: "long"}))
	m, err = s.GetExitMeta("BTC_rubber")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "penetration", m.Pattern)

	require.NoError(t, s.DeleteExitMeta("BTC_rubber"))
	m, err = s.GetExitMeta("BTC_rubber")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestWaveRiderPendingRoundTripAndDelete(t *testing.T) {
	s := newTestStore(t)
	p, err := s.GetWaveRiderPending("BTC")
	require.NoError(t, err)
	assert.Nil(t, p)

	at := time.Date(2026, 1, 1, 14, 15, 0, 0, time.UTC)
	require.NoError(t, s.SaveWaveRiderPending("BTC", WaveRiderPending{Pattern: "wr_reversion", ObserveOpen: 100, EntryAfter: at}))

	p, err = s.GetWaveRiderPending("BTC")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "wr_reversion", p.Pattern)
	assert.True(t, p.EntryAfter.Equal(at))

	require.NoError(t, s.DeleteWaveRiderPending("BTC"))
	p, err = s.GetWaveRiderPending("BTC")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestDeleteWaveRiderPendingAbsentIsNotError(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.DeleteWaveRiderPending("ETH"))
}

func TestDataHealthDefaultsToZeroScoreWhenNeverWritten(t *testing.T) {
	s := newTestStore(t)
	d, err := s.GetDataHealth()
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Score)
}

func TestSaveDataHealthStampsUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}

	require.NoError(t, s.SaveDataHealth(clk, DataHealth{Score: 0.9, Warnings: []string{"ETH book empty"}}))
	d, err := s.GetDataHealth()
	require.NoError(t, err)
	assert.Equal(t, 0.9, d.Score)
	assert.True(t, d.UpdatedAt.Equal(clk.At))
}

func TestReconcileDailyUnrealizedCorrectsDrift(t *testing.T) {
	s := newTestStore(t)
	clk := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	_, err := s.UpdateDailyPnL(clk, 1000, 0, nil)
	require.NoError(t, err)

	positions := []Position{{UnrealizedPnL: 25}, {UnrealizedPnL: -10}}
	d, err := s.ReconcileDailyUnrealized(positions, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 15.0, d.UnrealizedPnL)
	assert.Equal(t, 1015.0, d.Equity)
}
