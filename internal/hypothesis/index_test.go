package hypothesis

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hyperwall-agent/internal/exchange/hyperliquid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchiveFile(t *testing.T, archiveDir string, at time.Time, snapshots map[string]hyperliquid.Snapshot) {
	t.Helper()
	dir := filepath.Join(archiveDir, "history", at.UTC().Format("2006-01-02"))
	require.NoError(t, os.MkdirAll(dir, 0o755))

	path := filepath.Join(dir, at.UTC().Format("150405")+".json.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()
	require.NoError(t, json.NewEncoder(gw).Encode(snapshots))
}

func TestBuildAndQueryRoundTrip(t *testing.T) {
	archiveDir := t.TempDir()
	at := time.Date(2026, 7, 1, 14, 5, 0, 0, time.UTC)
	writeArchiveFile(t, archiveDir, at, map[string]hyperliquid.Snapshot{
		"BTC": {Symbol: "BTC", MidPrice: 50000},
		"ETH": {Symbol: "ETH", MidPrice: 3000},
	})

	idx, err := OpenIndex(filepath.Join(archiveDir, "index.db"))
	require.NoError(t, err)
	defer idx.Close()

	n, err := idx.Build(archiveDir, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := idx.Query("BTC", at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 50000.0, records[0].Snapshot.MidPrice)
	assert.WithinDuration(t, at, records[0].At, time.Second)
}

func TestBuildExcludesOutOfWindowFiles(t *testing.T) {
	archiveDir := t.TempDir()
	inWindow := time.Date(2026, 7, 1, 14, 5, 0, 0, time.UTC)
	outOfWindow := time.Date(2026, 6, 1, 14, 5, 0, 0, time.UTC)
	writeArchiveFile(t, archiveDir, inWindow, map[string]hyperliquid.Snapshot{"BTC": {Symbol: "BTC"}})
	writeArchiveFile(t, archiveDir, outOfWindow, map[string]hyperliquid.Snapshot{"BTC": {Symbol: "BTC"}})

	idx, err := OpenIndex(filepath.Join(archiveDir, "index.db"))
	require.NoError(t, err)
	defer idx.Close()

	n, err := idx.Build(archiveDir, inWindow.Add(-time.Hour), inWindow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestQueryUnknownSymbolReturnsEmpty(t *testing.T) {
	archiveDir := t.TempDir()
	idx, err := OpenIndex(filepath.Join(archiveDir, "index.db"))
	require.NoError(t, err)
	defer idx.Close()

	records, err := idx.Query("DOGE", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseArchiveTimestamp(t *testing.T) {
	historyDir := filepath.Join("data", "history")
	path := filepath.Join(historyDir, "2026-07-01", "140500.json.gz")
	ts, ok := parseArchiveTimestamp(historyDir, path)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 7, 1, 14, 5, 0, 0, time.UTC), ts)
}

func TestParseArchiveTimestampRejectsMalformedPath(t *testing.T) {
	_, ok := parseArchiveTimestamp(filepath.Join("data", "history"), filepath.Join("data", "history", "garbage.json.gz"))
	assert.False(t, ok)
}
