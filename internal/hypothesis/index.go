// Package hypothesis is the out-of-band replay lab: a bbolt-backed index
// over the gzipped history snapshots internal/market.Archive writes, plus a
// narrow runner that scores a strategy's historical decisions against them.
// It never runs in the live cycle loop and never touches state/ or signals/.
package hypothesis

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hyperwall-agent/internal/exchange/hyperliquid"

	"go.etcd.io/bbolt"
)

// ArchiveRecord is one decoded history snapshot keyed by (symbol, unix_nano).
type ArchiveRecord struct {
	Symbol   string
	At       time.Time
	Snapshot hyperliquid.Snapshot
}

// Index is a bbolt-backed range index over archived snapshots, rebuilt from
// data/history/**/*.json.gz on demand by Build. One bucket per symbol, keyed
// by the archive file's timestamp (big-endian unix nano, for cursor Seek).
type Index struct {
	db *bbolt.DB
}

// OpenIndex opens (creating if absent) the bbolt index file at path.
func OpenIndex(path string) (*Index, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("hypothesis: open index: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the underlying bbolt database.
func (x *Index) Close() error {
	if x.db == nil {
		return nil
	}
	return x.db.Close()
}

// Build walks archiveDir/history/**/*.json.gz for files whose embedded
// timestamp falls within [from, to], decodes each, and upserts one record per
// symbol into that symbol's bucket. Returns the number of records indexed.
func (x *Index) Build(archiveDir string, from, to time.Time) (int, error) {
	historyDir := filepath.Join(archiveDir, "history")
	count := 0

	err := filepath.WalkDir(historyDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json.gz") {
			return nil
		}

		at, ok := parseArchiveTimestamp(historyDir, path)
		if !ok || at.Before(from) || at.After(to) {
			return nil
		}

		snapshots, err := readArchiveFile(path)
		if err != nil {
			return fmt.Errorf("hypothesis: read %s: %w", path, err)
		}

		return x.db.Update(func(tx *bbolt.Tx) error {
			for symbol, snap := range snapshots {
				b, err := tx.CreateBucketIfNotExists([]byte(symbol))
				if err != nil {
					return err
				}
				data, err := json.Marshal(snap)
				if err != nil {
					return err
				}
				if err := b.Put(keyFor(at), data); err != nil {
					return err
				}
				count++
			}
			return nil
		})
	})
	if err != nil {
		return count, err
	}
	return count, nil
}

// Query returns symbol's indexed records in [from, to], ordered by time.
func (x *Index) Query(symbol string, from, to time.Time) ([]ArchiveRecord, error) {
	var records []ArchiveRecord

	err := x.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(symbol))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		startKey := keyFor(from)
		endKey := keyFor(to)

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			var snap hyperliquid.Snapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				continue // skip malformed record
			}
			records = append(records, ArchiveRecord{
				Symbol:   symbol,
				At:       timeFromKey(k),
				Snapshot: snap,
			})
		}
		return nil
	})
	return records, err
}

func keyFor(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.UnixNano()))
	return buf
}

func timeFromKey(k []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(k))).UTC()
}

// parseArchiveTimestamp recovers the UTC time internal/market.Archive encoded
// into the path data/history/YYYY-MM-DD/HHMMSS.json.gz.
func parseArchiveTimestamp(historyDir, path string) (time.Time, bool) {
	rel, err := filepath.Rel(historyDir, path)
	if err != nil {
		return time.Time{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 {
		return time.Time{}, false
	}
	dateStr := parts[0]
	timeStr := strings.TrimSuffix(parts[1], ".json.gz")

	t, err := time.ParseInLocation("2006-01-02 150405", dateStr+" "+timeStr, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func readArchiveFile(path string) (map[string]hyperliquid.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	var snapshots map[string]hyperliquid.Snapshot
	if err := json.NewDecoder(gr).Decode(&snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}
