package state

import (
	"errors"
	"time"

	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/store"
)

// DataHealth summarizes how complete this cycle's collected snapshots were;
// the entry gate rejects new entries when Score falls below the configured
// floor rather than trading on data it can't vouch for.
type DataHealth struct {
	Score     float64   `json:"score"`
	Errors    []string  `json:"errors,omitempty"`
	Warnings  []string  `json:"warnings,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetDataHealth returns the last recorded health reading, or a zero-score
// reading if none has ever been written — a fresh agent must not assume its
// data is good before it has actually measured it.
func (s *Store) GetDataHealth() (DataHealth, error) {
	var d DataHealth
	err := store.ReadJSON(s.Paths.DataHealth(), &d)
	if errors.Is(err, store.ErrNotExist) {
		return DataHealth{}, nil
	}
	return d, err
}

// SaveDataHealth records this cycle's health reading.
func (s *Store) SaveDataHealth(clk clock.Clock, d DataHealth) error {
	d.UpdatedAt = clk.Now()
	return store.WriteJSON(s.Paths.DataHealth(), d)
}
