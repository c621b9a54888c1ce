package market

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hyperwall-agent/internal/exchange/hyperliquid"
)

// Archive writes a gzipped snapshot under data/history/YYYY-MM-DD/HHMMSS.json.gz,
// bounded in practice by retention cleanup the operator runs out of band —
// this package only ever appends.
func Archive(dataDir string, at time.Time, snapshots map[string]hyperliquid.Snapshot) error {
	dir := filepath.Join(dataDir, "history", at.UTC().Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("market: archive mkdir: %w", err)
	}

	path := filepath.Join(dir, at.UTC().Format("150405")+".json.gz")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("market: archive create %s: %w", path, err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()

	if err := json.NewEncoder(gw).Encode(snapshots); err != nil {
		return fmt.Errorf("market: archive encode %s: %w", path, err)
	}
	return nil
}
