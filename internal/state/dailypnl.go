package state

import (
	"errors"
	"math"

	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/store"
)

const dateLayout = "2006-01-02"

// GetDailyPnL returns the current ledger, or nil if it has never been
// initialized (the first UpdateDailyPnL call creates it).
func (s *Store) GetDailyPnL() (*DailyPnL, error) {
	var d DailyPnL
	err := store.ReadJSON(s.Paths.DailyPnL(), &d)
	if errors.Is(err, store.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDailyPnL rolls over to a fresh day if the UTC date changed, applies
// realizedDelta, prefers the exchange-supplied unrealized figure when given,
// and recomputes the realized-only peak_equity.
func (s *Store) UpdateDailyPnL(clk clock.Clock, equity float64, realizedDelta float64, apiUnrealized *float64) (*DailyPnL, error) {
	today := clk.Now().Format(dateLayout)

	d, err := s.GetDailyPnL()
	if err != nil {
		return nil, err
	}
	if d == nil || d.Date != today {
		d = &DailyPnL{
			Date:             today,
			StartOfDayEquity: equity,
			Equity:           equity,
			RealizedPnL:      0,
			UnrealizedPnL:    0,
			PeakEquity:       equity,
		}
	}

	d.RealizedPnL += realizedDelta
	if apiUnrealized != nil {
		d.UnrealizedPnL = *apiUnrealized
	}
	d.Equity = d.StartOfDayEquity + d.RealizedPnL + d.UnrealizedPnL

	realizedPeak := d.StartOfDayEquity + d.RealizedPnL
	d.PeakEquity = math.Max(d.PeakEquity, realizedPeak)

	if err := store.WriteJSON(s.Paths.DailyPnL(), d); err != nil {
		return nil, err
	}
	return d, nil
}

// ReconcileDailyUnrealized corrects unrealized_pnl (and equity) from the sum
// of live positions' unrealized P&L if they've drifted by more than tol.
func (s *Store) ReconcileDailyUnrealized(positions []Position, tol float64) (*DailyPnL, error) {
	d, err := s.GetDailyPnL()
	if err != nil || d == nil {
		return d, err
	}

	var sum float64
	for _, p := range positions {
		sum += p.UnrealizedPnL
	}

	if math.Abs(sum-d.UnrealizedPnL) > tol {
		d.UnrealizedPnL = sum
		d.Equity = d.StartOfDayEquity + d.RealizedPnL + d.UnrealizedPnL
		if err := store.WriteJSON(s.Paths.DailyPnL(), d); err != nil {
			return nil, err
		}
	}
	return d, nil
}
