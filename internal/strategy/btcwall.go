package strategy

import "hyperwall-agent/internal/exchange/hyperliquid"

// BTCWallConfig is the tunable BTC wall zone layout; defaults mirror the
// spec's literal numbers. The agent sets only the spike volume threshold from
// configuration; the other fields keep these defaults.
type BTCWallConfig struct {
	SpikeConfig
	PenetrationTP, PenetrationSL       float64
	UpperTP, UpperSL                   float64
	BottomTP, BottomSL                 float64
	BottomMinRatio                     float64
	QuietLongTP, QuietLongSL           float64
	QuietLongExitBars                  int
	QuietLongConfidence                float64
	QuietLongVolRatioMax               float64
	QuietLongH4Min                     float64
}

// DefaultBTCWallConfig returns the documented literal defaults.
func DefaultBTCWallConfig() BTCWallConfig {
	return BTCWallConfig{
		SpikeConfig:           SpikeConfig{VolThreshold: 5.0, VolWindow: 288, H4Window: 48},
		PenetrationTP:         0.003,
		PenetrationSL:         0.006,
		UpperTP:               0.005,
		UpperSL:               0.006,
		BottomTP:              0.004,
		BottomSL:              0.006,
		BottomMinRatio:        7.0,
		QuietLongTP:           0.003,
		QuietLongSL:           0.005,
		QuietLongExitBars:     8,
		QuietLongConfidence:   0.72,
		QuietLongVolRatioMax:  0.55,
		QuietLongH4Min:        65,
	}
}

// BTCWall is the "rubber wall" spike strategy for BTC: a BEAR-candle volume
// spike mapped to a zone of the 4H range, plus a quiet-market pattern D that
// doesn't require a spike at all.
type BTCWall struct {
	Base
	Cfg BTCWallConfig
}

func NewBTCWall(candles []hyperliquid.Candle, cfg BTCWallConfig) BTCWall {
	return BTCWall{Base: Base{Candles: candles}, Cfg: cfg}
}

func (s BTCWall) zones() []Zone {
	return []Zone{
		{Name: "penetration", Lo: -20, Hi: 0, Direction: "long", TPPct: s.Cfg.PenetrationTP, SLPct: s.Cfg.PenetrationSL, ExitBars: 12},
		{Name: "upper_range", Lo: 40, Hi: 999, Direction: "short", TPPct: s.Cfg.UpperTP, SLPct: s.Cfg.UpperSL, ExitBars: 10},
		{Name: "bottom", Lo: 0, Hi: 20, Direction: "short", TPPct: s.Cfg.BottomTP, SLPct: s.Cfg.BottomSL, ExitBars: 8, MinRatio: s.Cfg.BottomMinRatio},
		// [20, 40) middle: no zone entry, falls through to skip.
	}
}

// Scan runs the shared spike-scan skeleton plus the quiet-long pattern D
// fallback, and returns the signal (or nil) alongside the next ThresholdCache.
func (s BTCWall) Scan(symbol string, cache *ThresholdCache) (*Signal, ThresholdCache) {
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
	vasMultiplier, _ := s.ATRVolatilityMultiplier(idx, 24, 288, 1.5, 0.7, 1.20, 0.85)
	if !isBear || ratio < s.Cfg.VolThreshold*vasMultiplier {
		return s.quietLong(symbol, idx), nextCache
	}

	lo, hi := s.H4Range(idx, s.Cfg.H4Window)
	pos := RangePosition(candle.C, lo, hi)
	zone := MatchZone(s.zones(), pos)
	if zone == nil {
		return s.quietLong(symbol, idx), nextCache
	}
	if zone.MinRatio > 0 && ratio < zone.MinRatio {
		return s.quietLong(symbol, idx), nextCache
	}

	entry := candle.C
	var sl, tp float64
	if zone.Direction == "long" {
		sl = entry * (1 - zone.SLPct)
		tp = entry * (1 + zone.TPPct)
	} else {
		sl = entry * (1 + zone.SLPct)
		tp = entry * (1 - zone.TPPct)
	}

	action := ActionLong
	if zone.Direction == "short" {
		action = ActionShort
	}

	return &Signal{
		Symbol:      symbol,
		Action:      action,
		Direction:   zone.Direction,
		Confidence:  0.8,
		EntryPrice:  entry,
		StopLoss:    sl,
		TakeProfit:  tp,
		Leverage:    ConfidenceToLeverage(0.8, 3),
		Zone:        zone.Name,
		Pattern:     "spike_" + zone.Name,
		VolRatio:    ratio,
		ExitMode:    ExitModeTimeCut,
		ExitBars:    zone.ExitBars,
		SpikeTimeMs: candle.T,
	}, nextCache
}

// quietLong is pattern D: a non-spike long taken when the trend and volume
// regime look constructive even without a BEAR spike.
func (s BTCWall) quietLong(symbol string, idx int) *Signal {
	if idx < 21 {
		return nil
	}
	ema9 := s.EMA(idx, 9)
	ema21 := s.EMA(idx, 21)
	if ema9 <= ema21 {
		return nil
	}

	lo, hi := s.H4Range(idx, s.Cfg.H4Window)
	pos := RangePosition(s.Candles[idx].C, lo, hi)
	if pos < s.Cfg.QuietLongH4Min {
		return nil
	}

	shortLongRatio := shortVsLongVolumeRatio(s.Candles, idx)
	if shortLongRatio >= s.Cfg.QuietLongVolRatioMax {
		return nil
	}

	entry := s.Candles[idx].C
	return &Signal{
		Symbol:      symbol,
		Action:      ActionLong,
		Direction:   "long",
		Confidence:  s.Cfg.QuietLongConfidence,
		EntryPrice:  entry,
		StopLoss:    entry * (1 - s.Cfg.QuietLongSL),
		TakeProfit:  entry * (1 + s.Cfg.QuietLongTP),
		Leverage:    ConfidenceToLeverage(s.Cfg.QuietLongConfidence, 3),
		Zone:        "quiet_high",
		Pattern:     "D_quiet_long",
		ExitMode:    ExitModeTimeCut,
		ExitBars:    s.Cfg.QuietLongExitBars,
		SpikeTimeMs: s.Candles[idx].T,
	}
}

// shortVsLongVolumeRatio compares the average volume of the trailing 24 bars
// against the trailing 288, the same regime gauge used by the quiet-market
// patterns across strategies.
func shortVsLongVolumeRatio(candles []hyperliquid.Candle, idx int) float64 {
	shortAvg := avgVolume(candles, idx, 24)
	longAvg := avgVolume(candles, idx, 288)
	if longAvg <= 0 {
		return 1.0
	}
	return shortAvg / longAvg
}

func avgVolume(candles []hyperliquid.Candle, idx, window int) float64 {
	start := idx - window + 1
	if start < 0 {
		start = 0
	}
	var sum float64
	for i := start; i <= idx; i++ {
		sum += candles[i].V
	}
	return sum / float64(idx-start+1)
}
