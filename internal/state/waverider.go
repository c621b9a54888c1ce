package state

import (
	"errors"
	"os"
	"time"

	"hyperwall-agent/internal/store"
)

// WaveRiderPending is the two-step reversion record: after a wr_up_large
// position closes with a large enough deviation from the observe-bar open,
// the reversion short is deferred EntryAfter rather than entered immediately.
type WaveRiderPending struct {
	Pattern     string    `json:"pattern"`
	ObserveOpen float64   `json:"observe_open"`
	EntryAfter  time.Time `json:"entry_after"`
}

// GetWaveRiderPending returns the pending reversion record for symbol, or nil
// if none is outstanding.
func (s *Store) GetWaveRiderPending(symbol string) (*WaveRiderPending, error) {
	var p WaveRiderPending
	err := store.ReadJSON(s.Paths.WaveRiderRevPending(symbol), &p)
	if errors.Is(err, store.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveWaveRiderPending writes the pending reversion record for symbol.
func (s *Store) SaveWaveRiderPending(symbol string, p WaveRiderPending) error {
	return store.WriteJSON(s.Paths.WaveRiderRevPending(symbol), p)
}

// DeleteWaveRiderPending clears the pending reversion record for symbol, once
// the reversion has been entered or abandoned. Deleting an absent file is not
// an error.
func (s *Store) DeleteWaveRiderPending(symbol string) error {
	err := os.Remove(s.Paths.WaveRiderRevPending(symbol))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
