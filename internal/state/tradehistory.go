package state

import (
	"errors"

	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/store"
)

// GetTradeHistory returns the bounded trade ring, oldest first.
func (s *Store) GetTradeHistory() ([]Trade, error) {
	var trades []Trade
	err := store.ReadJSON(s.Paths.TradeHistory(), &trades)
	if errors.Is(err, store.ErrNotExist) {
		return nil, nil
	}
	return trades, err
}

// RecordTrade appends a trade and trims the ring to MaxTradeHistory,
// stamping RecordedAt from clk.
func (s *Store) RecordTrade(clk clock.Clock, t Trade) error {
	trades, err := s.GetTradeHistory()
	if err != nil {
		return err
	}
	t.RecordedAt = clk.Now()
	trades = append(trades, t)
	if len(trades) > MaxTradeHistory {
		trades = trades[len(trades)-MaxTradeHistory:]
	}
	return store.WriteJSON(s.Paths.TradeHistory(), trades)
}

// MinutesSinceLastTrade returns the minutes elapsed since the most recent
// recorded trade for symbol, or -1 if there is none (never blocks cooldown).
func (s *Store) MinutesSinceLastTrade(clk clock.Clock, symbol string) (float64, error) {
	trades, err := s.GetTradeHistory()
	if err != nil {
		return -1, err
	}
	var last *Trade
	for i := range trades {
		if trades[i].Symbol != symbol {
			continue
		}
		if last == nil || trades[i].RecordedAt.After(last.RecordedAt) {
			last = &trades[i]
		}
	}
	if last == nil {
		return -1, nil
	}
	return clk.Now().Sub(last.RecordedAt).Minutes(), nil
}
