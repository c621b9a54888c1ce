// Package state implements the positions/trade-history/daily-P&L/kill-switch
// core described in the data model: everything here is read-modify-write
// through internal/store's atomic file protocol.
package state

import "path/filepath"

// Paths is the explicit handle to every state file location, passed around
// instead of hardcoding paths inline — this is the "no global singletons"
// design rule applied to the filesystem.
type Paths struct {
	Data    string
	State   string
	Signals string
}

func (p Paths) MarketData() string { return filepath.Join(p.Data, "market_data.json") }

func (p Paths) HistoryDir(date string) string { return filepath.Join(p.Data, "history", date) }

func (p Paths) Positions() string { return filepath.Join(p.State, "positions.json") }

func (p Paths) TradeHistory() string { return filepath.Join(p.State, "trade_history.json") }

func (p Paths) DailyPnL() string { return filepath.Join(p.State, "daily_pnl.json") }

func (p Paths) KillSwitch() string { return filepath.Join(p.State, "kill_switch.json") }

func (p Paths) DataHealth() string { return filepath.Join(p.State, "data_health.json") }

func (p Paths) AgentFailureCount() string { return filepath.Join(p.State, "agent_failure_count.json") }

// ExitMeta is per-symbol, per-strategy-family: e.g. state/BTC_rubber_meta.json,
// state/btc_wave_rider_meta.json.
func (p Paths) ExitMeta(family string) string {
	return filepath.Join(p.State, family+"_meta.json")
}

func (p Paths) ThresholdCache(strategy string) string {
	return filepath.Join(p.State, strategy+"_cache.json")
}

func (p Paths) WaveRiderRevPending(symbol string) string {
	return filepath.Join(p.State, symbol+"_wr_rev_pending.json")
}

func (p Paths) Signals() string { return filepath.Join(p.Signals, "signals.json") }
