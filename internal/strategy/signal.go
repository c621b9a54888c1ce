package strategy

import "math"

// Action is what a strategy scan or exit scan wants done this cycle.
type Action string

const (
	ActionLong         Action = "long"
	ActionShort        Action = "short"
	ActionClose        Action = "close"
	ActionHold         Action = "hold"
	ActionHoldPosition Action = "hold_position"
)

// ExitMode selects how a position this signal opens expects to be closed.
type ExitMode string

const (
	ExitModeTPSL    ExitMode = "tp_sl"
	ExitModeTimeCut ExitMode = "time_cut"
)

// Signal is the uniform output contract every strategy scan returns.
type Signal struct {
	Symbol     string
	Action     Action
	Direction  string // "long" | "short", empty for hold/close without a side
	Confidence float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Leverage   int
	Reasoning  string
	Zone       string
	Pattern    string
	VolRatio   float64
	ExitMode   ExitMode
	ExitBars   int
	SpikeTimeMs int64

	// ObserveOpen is WaveRider-only: the UTC 14:00 observe-bar open price,
	// carried through to the saved ExitMeta for the reversion deviation
	// check on a wr_up_large close.
	ObserveOpen float64
}

// ThresholdCache is the one-cycle look-ahead a spike strategy carries so a
// quiet cycle costs O(1) instead of O(window).
type ThresholdCache struct {
	NextTargetT  int64
	ThresholdVol float64
}

// DeriveThresholdCache computes the smallest next-bar volume V that would
// trigger V/((S+V)/N) >= T, given the window size N, the base volume
// threshold T, and the sum S of the N-1 known prior bars: V >= T*S/(N-T).
// When N <= T the threshold is unreachable and ThresholdVol is +Inf.
func DeriveThresholdCache(n int, threshold, sumKnown float64, nextTargetT int64) ThresholdCache {
	denominator := float64(n) - threshold
	if denominator <= 0 {
		return ThresholdCache{NextTargetT: nextTargetT, ThresholdVol: math.Inf(1)}
	}
	return ThresholdCache{
		NextTargetT:  nextTargetT,
		ThresholdVol: threshold * sumKnown / denominator,
	}
}
