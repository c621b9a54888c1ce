package state

import "time"

// Position is the local cache of one open perp position, refreshed each
// cycle from the exchange adapter.
type Position struct {
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"` // "long" | "short"
	Size          float64   `json:"size"`
	EntryPrice    float64   `json:"entry_price"`
	Leverage      float64   `json:"leverage"`
	OpenedAt      time.Time `json:"opened_at,omitempty"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	MidPrice      float64   `json:"mid_price"`
}

// ExitMode selects how a strategy expects to close the position it opened.
type ExitMode string

const (
	ExitModeTPSL     ExitMode = "tp_sl"
	ExitModeTimeCut  ExitMode = "time_cut"
)

// ExitMeta is the per-position, per-strategy-family auxiliary record
// describing how to exit. One file per (symbol, strategy family).
type ExitMeta struct {
	Pattern    string    `json:"pattern"`
	Direction  string    `json:"direction"` // "long" | "short"
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	ExitMode   ExitMode  `json:"exit_mode"`
	ExitBars   int       `json:"exit_bars"`
	BarCount   int       `json:"bar_count"`
	EntryTime  time.Time `json:"entry_time"`
	VolRatio   float64   `json:"vol_ratio,omitempty"`

	// ObserveOpen is WaveRider-only: the UTC 14:00 observe-bar open price,
	// kept so a wr_up_large close can evaluate the reversion deviation
	// check against it.
	ObserveOpen float64 `json:"observe_open,omitempty"`
}

// Trade is one entry in the bounded trade-history ring.
type Trade struct {
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Size       float64   `json:"size"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price,omitempty"`
	PnL        float64   `json:"pnl,omitempty"`
	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `json:"closed_at,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// DailyPnL is the day's running equity ledger. See the realized-only-peak
// invariant in the data model.
type DailyPnL struct {
	Date             string  `json:"date"` // UTC YYYY-MM-DD
	StartOfDayEquity float64 `json:"start_of_day_equity"`
	Equity           float64 `json:"equity"`
	RealizedPnL      float64 `json:"realized_pnl"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	PeakEquity       float64 `json:"peak_equity"`
}

// KillSwitch gates all new entries. Its zero value (as returned when the
// backing file is absent) must never be used directly as "inactive" — see
// IsActive, which implements the fail-safe-missing-means-active rule.
type KillSwitch struct {
	Enabled       bool      `json:"enabled"`
	Reason        string    `json:"reason,omitempty"`
	TriggeredAt   time.Time `json:"triggered_at,omitempty"`
	Warning       bool      `json:"warning,omitempty"`
	WarningReason string    `json:"warning_reason,omitempty"`
	WarningAt     time.Time `json:"warning_at,omitempty"`
}

// FailureCounter tracks consecutive "all strategies failed" cycles.
type FailureCounter struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
}

// ThresholdCache is the one-cycle look-ahead a spike strategy keeps so a
// non-spike cycle costs O(1).
type ThresholdCache struct {
	NextTargetT   int64   `json:"next_target_t"`
	ThresholdVol  float64 `json:"threshold_vol"`
}

// MaxTradeHistory bounds the trade-history ring (spec: cap 500).
const MaxTradeHistory = 500
