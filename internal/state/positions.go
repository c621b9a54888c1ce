package state

import (
	"context"
	"errors"
	"fmt"

	"hyperwall-agent/internal/exchange/hyperliquid"
	"hyperwall-agent/internal/store"

	"github.com/rs/zerolog/log"
)

// Exchange is the narrow surface sync_positions needs from the adapter.
type Exchange interface {
	UserState(ctx context.Context) (equity float64, positions []hyperliquid.Position, err error)
}

// Store is the state core: positions, trade history, daily P&L, kill-switch,
// and per-strategy ExitMeta, all addressed through Paths.
type Store struct {
	Paths Paths
}

func NewStore(p Paths) *Store { return &Store{Paths: p} }

// GetPositions returns the cached positions. A missing file is not an error
// — it means no positions have ever been synced yet.
func (s *Store) GetPositions() ([]Position, error) {
	var positions []Position
	err := store.ReadJSON(s.Paths.Positions(), &positions)
	if errors.Is(err, store.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// SavePositions overwrites the local positions cache.
func (s *Store) SavePositions(positions []Position) error {
	return store.WriteJSON(s.Paths.Positions(), positions)
}

// SyncPositions pulls authoritative state from the exchange, overwrites the
// local cache, and sweeps ExitMeta files for any strategy family whose
// symbol is no longer in the active set — so a closed position never leaves
// a stale exit-plan file behind.
func (s *Store) SyncPositions(ctx context.Context, ex Exchange, families []string) (equity float64, positions []Position, err error) {
	equity, raw, err := ex.UserState(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("state: sync_positions: %w", err)
	}

	positions = make([]Position, 0, len(raw))
	active := make(map[string]bool, len(raw))
	for _, p := range raw {
		if p.Size <= 0 {
			continue
		}
		positions = append(positions, Position{
			Symbol:        p.Symbol,
			Side:          string(p.Side),
			Size:          p.Size,
			EntryPrice:    p.EntryPrice,
			Leverage:      p.Leverage,
			UnrealizedPnL: p.UnrealizedPnL,
			MidPrice:      p.MidPrice,
		})
		active[p.Symbol] = true
	}

	if err := s.SavePositions(positions); err != nil {
		return 0, nil, err
	}

	s.sweepOrphanedExitMeta(active, families)
	return equity, positions, nil
}

// sweepOrphanedExitMeta removes ExitMeta for any (symbol, family) pair whose
// symbol is no longer active. Best-effort: a missing file is not an error,
// and a delete failure is logged but does not fail the sync.
func (s *Store) sweepOrphanedExitMeta(active map[string]bool, families []string) {
	for _, family := range families {
		symbol := familySymbol(family)
		if symbol == "" || active[symbol] {
			continue
		}
		if err := s.DeleteExitMeta(family); err != nil {
			log.Warn().Err(err).Str("family", family).Msg("state: failed to sweep orphaned exit meta")
		}
	}
}

// familySymbol extracts the leading symbol token from a strategy-family key
// such as "BTC_rubber" or "btc_wave_rider" → "BTC". Families that are not
// symbol-prefixed (rare) return "".
func familySymbol(family string) string {
	for _, sym := range []string{"BTC", "ETH", "SOL", "HYPE"} {
		if len(family) >= len(sym) && (family[:len(sym)] == sym || equalFold(family[:len(sym)], sym)) {
			return sym
		}
	}
	return ""
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
