package state

import (
	"errors"
	"os"

	"hyperwall-agent/internal/store"
)

// GetExitMeta returns the ExitMeta for a strategy family, or nil if none
// exists (no position currently held by that family).
func (s *Store) GetExitMeta(family string) (*ExitMeta, error) {
	var m ExitMeta
	err := store.ReadJSON(s.Paths.ExitMeta(family), &m)
	if errors.Is(err, store.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveExitMeta writes (or overwrites) the ExitMeta for a strategy family.
func (s *Store) SaveExitMeta(family string, m ExitMeta) error {
	return store.WriteJSON(s.Paths.ExitMeta(family), m)
}

// DeleteExitMeta removes the ExitMeta for a strategy family. Deleting a file
// that is already absent is not an error.
func (s *Store) DeleteExitMeta(family string) error {
	err := os.Remove(s.Paths.ExitMeta(family))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// IncrementBarCount bumps bar_count on an existing ExitMeta (used by the
// executor for each hold_position outcome, so it counts held cycles).
func (s *Store) IncrementBarCount(family string) error {
	m, err := s.GetExitMeta(family)
	if err != nil || m == nil {
		return err
	}
	m.BarCount++
	return s.SaveExitMeta(family, *m)
}
