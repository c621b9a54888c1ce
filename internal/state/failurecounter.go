package state

import (
	"errors"

	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/store"
)

// GetFailureCounter reads the agent-failure tracker, defaulting to the zero
// value (no failures yet) if the file is absent.
func (s *Store) GetFailureCounter() (FailureCounter, error) {
	var fc FailureCounter
	err := store.ReadJSON(s.Paths.AgentFailureCount(), &fc)
	if errors.Is(err, store.ErrNotExist) {
		return FailureCounter{}, nil
	}
	return fc, err
}

// RecordFailure increments the consecutive-failure count and returns the
// updated counter.
func (s *Store) RecordFailure(clk clock.Clock) (FailureCounter, error) {
	fc, err := s.GetFailureCounter()
	if err != nil {
		return fc, err
	}
	fc.ConsecutiveFailures++
	fc.LastFailure = clk.Now()
	return fc, store.WriteJSON(s.Paths.AgentFailureCount(), fc)
}

// RecordSuccess resets the consecutive-failure count to zero.
func (s *Store) RecordSuccess(clk clock.Clock) (FailureCounter, error) {
	fc, err := s.GetFailureCounter()
	if err != nil {
		return fc, err
	}
	fc.ConsecutiveFailures = 0
	fc.LastSuccess = clk.Now()
	return fc, store.WriteJSON(s.Paths.AgentFailureCount(), fc)
}
