package hypothesis

import (
	"path/filepath"
	"testing"
	"time"

	"hyperwall-agent/internal/exchange/hyperliquid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candleSeries(n int, start, step float64, t0 time.Time) []hyperliquid.Candle {
	out := make([]hyperliquid.Candle, n)
	px := start
	for i := 0; i < n; i++ {
		out[i] = hyperliquid.Candle{T: t0.Add(time.Duration(i) * 5 * time.Minute).UnixMilli(), O: px, H: px, L: px, C: px, V: 1}
		px += step
	}
	return out
}

func TestRunEmptyWindowReturnsZeroResult(t *testing.T) {
	archiveDir := t.TempDir()
	idx, err := OpenIndex(filepath.Join(archiveDir, "index.db"))
	require.NoError(t, err)
	defer idx.Close()

	r, err := Run(idx, "BTC", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, r.CycleCount)
	assert.Empty(t, r.Trades)
}

func TestReplayZoneStrategyCountsEveryCycle(t *testing.T) {
	archiveDir := t.TempDir()
	t0 := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	// A bear-candle volume spike whose close (95) lies far below the 4h
	// range of the rising series, so it matches no zone and opens no trade;
	// every archived cycle is still scored.
	base := candleSeries(400, 100, 0.01, t0)
	base[398].V = 50 // volume spike on the last confirmed bar
	base[398].O, base[398].C = 101, 95

	at1 := t0.Add(400 * 5 * time.Minute)
	writeArchiveFile(t, archiveDir, at1, map[string]hyperliquid.Snapshot{
		"BTC": {Symbol: "BTC", Candles5m: base, HasMidPrice: true, MidPrice: 95},
	})

	// Subsequent cycles: the same bars with a lower mid price.
	for i := 1; i <= 3; i++ {
		at := at1.Add(time.Duration(i) * 5 * time.Minute)
		writeArchiveFile(t, archiveDir, at, map[string]hyperliquid.Snapshot{
			"BTC": {Symbol: "BTC", Candles5m: base, HasMidPrice: true, MidPrice: 80},
		})
	}

	idx, err := OpenIndex(filepath.Join(archiveDir, "index.db"))
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.Build(archiveDir, t0, at1.Add(time.Hour))
	require.NoError(t, err)

	r, err := Run(idx, "BTC", t0, at1.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 4, r.CycleCount)
}

func TestReplayWaveRiderEntersOnObserveHour(t *testing.T) {
	archiveDir := t.TempDir()
	t0 := time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC) // Thursday

	hourly := make([]hyperliquid.Candle, 0, 20)
	for h := 0; h < 16; h++ {
		o, c := 100.0, 100.0
		if h == 14 {
			o, c = 100, 100.8 // +0.8% open move -> wr_up_large
		}
		hourly = append(hourly, hyperliquid.Candle{T: t0.Add(time.Duration(h) * time.Hour).UnixMilli(), O: o, C: c, H: c, L: o})
	}

	at := t0.Add(15 * time.Hour) // confirmed bar is index n-2 = hour 14
	writeArchiveFile(t, archiveDir, at, map[string]hyperliquid.Snapshot{
		"HYPE": {Symbol: "HYPE", Candles1h: hourly, HasMidPrice: true, MidPrice: 100.8},
	})

	idx, err := OpenIndex(filepath.Join(archiveDir, "index.db"))
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.Build(archiveDir, t0, at.Add(time.Hour))
	require.NoError(t, err)

	r, err := Run(idx, "HYPE", t0, at.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, r.OpenAtEnd)
}

func TestResultWinRateWithNoTrades(t *testing.T) {
	r := Result{}
	assert.Equal(t, 0.0, r.WinRate())
}

func TestResultWinRateComputesFraction(t *testing.T) {
	r := Result{Trades: []Trade{{PnLPct: 0.01}, {PnLPct: -0.01}, {PnLPct: 0.02}}}
	assert.InDelta(t, 2.0/3.0, r.WinRate(), 1e-9)
}
