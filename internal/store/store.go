// Package store implements the crash-safe JSON file protocol shared by every
// piece of persistent state: write to a tempfile in the same directory,
// flush, take an exclusive lock, then rename over the target; reads take a
// shared lock. This mirrors the file_lock.atomic_write_json / read_json
// contract from the reference implementation this agent was built from,
// carried over verbatim because the crash-safety argument (rename is atomic
// on the same filesystem) doesn't change across languages.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrNotExist is returned by Read when the target file is absent. Callers
// that have a fail-safe default (e.g. the kill-switch) must check this with
// errors.Is rather than treating every read failure as corruption.
var ErrNotExist = os.ErrNotExist

// WriteJSON atomically writes v as JSON to path.
func WriteJSON(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create tempfile: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("store: encode %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("store: flush %s: %w", path, err)
	}

	if err := unix.Flock(int(tmp.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("store: lock %s: %w", tmpPath, err)
	}
	defer unix.Flock(int(tmp.Fd()), unix.LOCK_UN)

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", tmpPath, err)
	}
	closed := tmp
	tmp = nil
	_ = closed

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("store: rename %s -> %s: %w", tmpPath, path, err)
	}
	return nil
}

// ReadJSON reads path under a shared lock and decodes into v. Returns
// ErrNotExist (checkable with errors.Is) if the file is absent; any other
// error indicates a corrupt or unreadable file and callers that treat the
// file as a "core" record must surface it, not silently default.
func ReadJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotExist
		}
		return fmt.Errorf("store: open %s: %w", path, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err != nil {
		return fmt.Errorf("store: lock %s: %w", path, err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("store: decode %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path is present, without taking a lock.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
