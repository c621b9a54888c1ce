package state

import (
	"errors"

	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/store"
)

// GetKillSwitch reads the kill-switch file. A missing file is not treated as
// "no switch" here — callers must go through IsActive, which applies the
// fail-safe default, rather than inspecting the zero value directly.
func (s *Store) GetKillSwitch() (*KillSwitch, bool, error) {
	var ks KillSwitch
	err := store.ReadJSON(s.Paths.KillSwitch(), &ks)
	if errors.Is(err, store.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &ks, true, nil
}

// IsActive reports whether the kill-switch should block new entries. A
// missing file is treated as active (fail-safe): an agent that cannot read
// its own safety state must not assume it is safe to trade. This is the
// opposite default from the reference implementation this agent descends
// from, which treated a missing file as inactive — that default is a
// correctness regression and is deliberately not carried forward here.
func (s *Store) IsActive() (bool, error) {
	ks, present, err := s.GetKillSwitch()
	if err != nil {
		return true, err // still fail-safe even on a read error
	}
	if !present {
		return true, nil
	}
	return ks.Enabled, nil
}

// Activate flips the kill-switch on with reason, stamped at clk.Now().
func (s *Store) Activate(clk clock.Clock, reason string) error {
	ks, _, err := s.GetKillSwitch()
	if err != nil {
		return err
	}
	if ks == nil {
		ks = &KillSwitch{}
	}
	ks.Enabled = true
	ks.Reason = reason
	ks.TriggeredAt = clk.Now()
	return store.WriteJSON(s.Paths.KillSwitch(), ks)
}

// Deactivate flips the kill-switch off. Operator-only in practice; the
// agent itself never calls this autonomously.
func (s *Store) Deactivate() error {
	ks, _, err := s.GetKillSwitch()
	if err != nil {
		return err
	}
	if ks == nil {
		ks = &KillSwitch{}
	}
	ks.Enabled = false
	return store.WriteJSON(s.Paths.KillSwitch(), ks)
}

// SetWarning sets the warning fields without flipping Enabled — this is what
// retry-exhaustion escalation uses; only risk-limit breaches flip Enabled.
func (s *Store) SetWarning(clk clock.Clock, reason string) error {
	ks, _, err := s.GetKillSwitch()
	if err != nil {
		return err
	}
	if ks == nil {
		ks = &KillSwitch{}
	}
	ks.Warning = true
	ks.WarningReason = reason
	ks.WarningAt = clk.Now()
	return store.WriteJSON(s.Paths.KillSwitch(), ks)
}
