package state

import (
	"errors"

	"hyperwall-agent/internal/store"
)

// GetThresholdCache returns the one-cycle look-ahead cache for strategy, or
// nil if none has been built yet.
func (s *Store) GetThresholdCache(strategy string) (*ThresholdCache, error) {
	var c ThresholdCache
	err := store.ReadJSON(s.Paths.ThresholdCache(strategy), &c)
	if errors.Is(err, store.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveThresholdCache writes the cache for the next confirmed bar.
func (s *Store) SaveThresholdCache(strategy string, c ThresholdCache) error {
	return store.WriteJSON(s.Paths.ThresholdCache(strategy), c)
}
