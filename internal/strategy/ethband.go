package strategy

import "hyperwall-agent/internal/exchange/hyperliquid"

// ETHBandConfig holds the documented literal defaults for ETH band.
type ETHBandConfig struct {
	SpikeConfig
	ReversalThreshold float64 // ratio >= this → pattern A
	MomentumThreshold float64 // momentum_threshold <= ratio < reversal_threshold → pattern B
	ReversalH4Max     float64 // pattern A requires H4 pos below this
	MomentumH4Min     float64 // pattern B requires H4 pos at/above this

	ReversalTP          float64
	ReversalSLPad       float64
	ReversalSLMinDist   float64
	ReversalExitBars    int

	MomentumSLPad     float64
	MomentumSLMinDist float64
	MomentumExitBars  int

	QuietLongTP, QuietLongSL float64
	QuietLongExitBars        int
	QuietLongH4Max           float64
	QuietLongVolRatioMax     float64
	QuietLongConfidenceFull  float64
	QuietLongConfidenceGolden float64
}

func DefaultETHBandConfig() ETHBandConfig {
	return ETHBandConfig{
		SpikeConfig:               SpikeConfig{VolThreshold: 3.0, VolWindow: 288, H4Window: 48},
		ReversalThreshold:         7.0,
		MomentumThreshold:         3.0,
		ReversalH4Max:             40,
		MomentumH4Min:             40,
		ReversalTP:                0.005,
		ReversalSLPad:             0.0005,
		ReversalSLMinDist:         0.0025,
		ReversalExitBars:          12,
		MomentumSLPad:             0.0005,
		MomentumSLMinDist:         0.0035,
		MomentumExitBars:          15,
		QuietLongTP:               0.004,
		QuietLongSL:               0.006,
		QuietLongExitBars:         10,
		QuietLongH4Max:            50,
		QuietLongVolRatioMax:      0.60,
		QuietLongConfidenceFull:   0.75,
		QuietLongConfidenceGolden: 0.72,
	}
}

// ETHBand is the ETH "rubber band" strategy: a BEAR spike split into a
// reversal (deep, long) and momentum (shallow, short) pattern by ratio and
// H4 position, plus a quiet-long pattern C.
type ETHBand struct {
	Base
	Cfg ETHBandConfig
}

func NewETHBand(candles []hyperliquid.Candle, cfg ETHBandConfig) ETHBand {
	return ETHBand{Base: Base{Candles: candles}, Cfg: cfg}
}

func (s ETHBand) Scan(symbol string, cache *ThresholdCache) (*Signal, ThresholdCache) {
	n := len(s.Candles)
	if n < s.Cfg.H4Window+10 {
		return nil, ThresholdCache{}
	}
	idx := n - 2
	if idx < s.Cfg.H4Window {
		return nil, ThresholdCache{}
	}

	candle := s.Candles[idx]
	isBear := candle.C < candle.O
	nextCache := BuildNextCache(s.Candles, idx, s.Cfg.SpikeConfig)

	if FastPathHit(cache, candle.T, candle.V) {
		return s.quietLong(symbol, idx), nextCache
	}

	ratio := s.VolRatioAt(idx, s.Cfg.VolWindow)
	if !isBear || ratio < s.Cfg.MomentumThreshold {
		return s.quietLong(symbol, idx), nextCache
	}

	lo, hi := s.H4Range(idx, s.Cfg.H4Window)
	pos := RangePosition(candle.C, lo, hi)

	if ratio >= s.Cfg.ReversalThreshold && pos < s.Cfg.ReversalH4Max {
		return s.patternAReversal(symbol, idx, ratio, lo), nextCache
	}
	if ratio >= s.Cfg.MomentumThreshold && pos >= s.Cfg.MomentumH4Min {
		return s.patternBMomentum(symbol, idx, ratio, hi), nextCache
	}
	return s.quietLong(symbol, idx), nextCache
}

func (s ETHBand) patternAReversal(symbol string, idx int, ratio, h4Low float64) *Signal {
	candle := s.Candles[idx]
	entry := candle.C
	padSL := h4Low * (1 - s.Cfg.ReversalSLPad)
	minDistSL := entry * (1 - s.Cfg.ReversalSLMinDist)
	sl := minFloat(padSL, minDistSL)

	return &Signal{
		Symbol:      symbol,
		Action:      ActionLong,
		Direction:   "long",
		Confidence:  0.8,
		EntryPrice:  entry,
		StopLoss:    sl,
		TakeProfit:  entry * (1 + s.Cfg.ReversalTP),
		Leverage:    ConfidenceToLeverage(0.8, 3),
		Zone:        "reversal",
		Pattern:     "A_reversal",
		VolRatio:    ratio,
		ExitMode:    ExitModeTimeCut,
		ExitBars:    s.Cfg.ReversalExitBars,
		SpikeTimeMs: candle.T,
	}
}

// patternBMomentum has no real take-profit target — the original relies on
// the time-cut exit. TakeProfit is left at zero, and the risk gate skips its
// R:R check for a signal with no positive TakeProfit.
func (s ETHBand) patternBMomentum(symbol string, idx int, ratio, h4High float64) *Signal {
	candle := s.Candles[idx]
	entry := candle.C
	padSL := h4High * (1 + s.Cfg.MomentumSLPad)
	minDistSL := entry * (1 + s.Cfg.MomentumSLMinDist)
	sl := maxFloat(padSL, minDistSL)

	return &Signal{
		Symbol:      symbol,
		Action:      ActionShort,
		Direction:   "short",
		Confidence:  0.78,
		EntryPrice:  entry,
		StopLoss:    sl,
		TakeProfit:  0, // no target: the risk gate applies no R:R check
		Leverage:    ConfidenceToLeverage(0.78, 3),
		Zone:        "momentum",
		Pattern:     "B_momentum",
		VolRatio:    ratio,
		ExitMode:    ExitModeTimeCut,
		ExitBars:    s.Cfg.MomentumExitBars,
		SpikeTimeMs: candle.T,
	}
}

func (s ETHBand) quietLong(symbol string, idx int) *Signal {
	if idx < 21 {
		return nil
	}
	lo, hi := s.H4Range(idx, s.Cfg.H4Window)
	pos := RangePosition(s.Candles[idx].C, lo, hi)
	if pos >= s.Cfg.QuietLongH4Max {
		return nil
	}

	ema9 := s.EMA(idx, 9)
	ema21 := s.EMA(idx, 21)
	confidence := s.Cfg.QuietLongConfidenceFull
	golden := false
	if ema9 <= ema21 {
		// 4H EMA golden cross fallback: check a coarser trend proxy before
		// giving up on this pattern entirely.
		ema9h4 := s.EMA(idx, 9*48)
		ema21h4 := s.EMA(idx, 21*48)
		if ema9h4 <= ema21h4 {
			return nil
		}
		golden = true
		confidence = s.Cfg.QuietLongConfidenceGolden
	}

	ratio := shortVsLongVolumeRatio(s.Candles, idx)
	if ratio >= s.Cfg.QuietLongVolRatioMax {
		return nil
	}

	entry := s.Candles[idx].C
	pattern := "C_quiet_long"
	if golden {
		pattern = "C_quiet_long_golden"
	}
	return &Signal{
		Symbol:      symbol,
		Action:      ActionLong,
		Direction:   "long",
		Confidence:  confidence,
		EntryPrice:  entry,
		StopLoss:    entry * (1 - s.Cfg.QuietLongSL),
		TakeProfit:  entry * (1 + s.Cfg.QuietLongTP),
		Leverage:    ConfidenceToLeverage(confidence, 3),
		Zone:        "quiet_low",
		Pattern:     pattern,
		ExitMode:    ExitModeTimeCut,
		ExitBars:    s.Cfg.QuietLongExitBars,
		SpikeTimeMs: s.Candles[idx].T,
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
