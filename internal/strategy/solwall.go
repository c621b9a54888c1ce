package strategy

import "hyperwall-agent/internal/exchange/hyperliquid"

// SOLWallConfig holds the documented literal defaults for SOL wall.
type SOLWallConfig struct {
	SpikeConfig
	DeepThreshold float64 // stricter ratio floor, unused directly but kept for parity/tuning

	PenetrationTP, PenetrationSL float64
	UpperTP, UpperSL             float64

	FundingGateThreshold float64 // short blocked when funding < this (squeeze risk)

	QuietShortH4Min       float64
	QuietShortVolRatioMax float64
	QuietShortRSIMin      float64
	QuietShortMomentumMax float64
	QuietShortBodyRatioMin float64
	QuietShortTP, QuietShortSL float64
	QuietShortExitBars    int
}

func DefaultSOLWallConfig() SOLWallConfig {
	return SOLWallConfig{
		SpikeConfig:            SpikeConfig{VolThreshold: 5.0, VolWindow: 288, H4Window: 48},
		DeepThreshold:          7.0,
		PenetrationTP:          0.015,
		PenetrationSL:          0.008,
		UpperTP:                0.012,
		UpperSL:                0.006,
		FundingGateThreshold:   -5e-5,
		QuietShortH4Min:        70,
		QuietShortVolRatioMax:  0.50,
		QuietShortRSIMin:       55,
		QuietShortMomentumMax:  0.20,
		QuietShortBodyRatioMin: 0.25,
		QuietShortTP:           0.010,
		QuietShortSL:           0.006,
		QuietShortExitBars:     10,
	}
}

func (c SOLWallConfig) zones() []Zone {
	return []Zone{
		{Name: "penetration", Lo: -20, Hi: 0, Direction: "short", TPPct: c.PenetrationTP, SLPct: c.PenetrationSL, ExitBars: 12},
		{Name: "upper_range", Lo: 40, Hi: 999, Direction: "short", TPPct: c.UpperTP, SLPct: c.UpperSL, ExitBars: 10},
	}
}

// SOLWall is the SOL "rubber wall" strategy: both matched zones trade short,
// gated by a funding-rate squeeze check, plus a quiet-market pattern E that
// layers RSI, momentum, and body-ratio/BB-squeeze quality filters onto a
// non-spike short.
type SOLWall struct {
	Base
	Cfg         SOLWallConfig
	FundingRate float64
	HasFunding  bool
}

func NewSOLWall(candles []hyperliquid.Candle, cfg SOLWallConfig, fundingRate float64, hasFunding bool) SOLWall {
	return SOLWall{Base: Base{Candles: candles}, Cfg: cfg, FundingRate: fundingRate, HasFunding: hasFunding}
}

func (s SOLWall) fundingBlocksShort() bool {
	return s.HasFunding && s.FundingRate < s.Cfg.FundingGateThreshold
}

func (s SOLWall) Scan(symbol string, cache *ThresholdCache) (*Signal, ThresholdCache) {
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
		return s.quietShort(symbol, idx), nextCache
	}

	ratio := s.VolRatioAt(idx, s.Cfg.VolWindow)
	if !isBear || ratio < s.Cfg.VolThreshold {
		return s.quietShort(symbol, idx), nextCache
	}

	lo, hi := s.H4Range(idx, s.Cfg.H4Window)
	pos := RangePosition(candle.C, lo, hi)
	zone := MatchZone(s.Cfg.zones(), pos)
	if zone == nil {
		return s.quietShort(symbol, idx), nextCache
	}
	if s.fundingBlocksShort() {
		return s.quietShort(symbol, idx), nextCache
	}

	entry := candle.C
	return &Signal{
		Symbol:      symbol,
		Action:      ActionShort,
		Direction:   "short",
		Confidence:  0.8,
		EntryPrice:  entry,
		StopLoss:    entry * (1 + zone.SLPct),
		TakeProfit:  entry * (1 - zone.TPPct),
		Leverage:    ConfidenceToLeverage(0.8, 3),
		Zone:        zone.Name,
		Pattern:     "spike_" + zone.Name,
		VolRatio:    ratio,
		ExitMode:    ExitModeTimeCut,
		ExitBars:    zone.ExitBars,
		SpikeTimeMs: candle.T,
	}, nextCache
}

// quietShort is pattern E: a non-spike short requiring a near-top trend
// location, low volume, RSI confirmation, muted momentum, and either a
// decisive candle body or a Bollinger squeeze as a quality gate.
func (s SOLWall) quietShort(symbol string, idx int) *Signal {
	if s.fundingBlocksShort() {
		return nil
	}
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
	if pos < s.Cfg.QuietShortH4Min {
		return nil
	}

	volRatio := shortVsLongVolumeRatio(s.Candles, idx)
	if volRatio >= s.Cfg.QuietShortVolRatioMax {
		return nil
	}

	rsi, ok := s.RSI(idx, 14)
	if !ok || rsi <= s.Cfg.QuietShortRSIMin {
		return nil
	}

	momentum := s.PriceMomentum(idx, 6)
	if momentum > s.Cfg.QuietShortMomentumMax {
		return nil
	}

	bodyRatio := s.CandleBodyRatio(idx, 3)
	squeeze := s.BBSqueeze(idx, 20, 2.0, 0.6)
	if bodyRatio < s.Cfg.QuietShortBodyRatioMin && !squeeze {
		return nil
	}

	entry := s.Candles[idx].C
	return &Signal{
		Symbol:      symbol,
		Action:      ActionShort,
		Direction:   "short",
		Confidence:  0.76,
		EntryPrice:  entry,
		StopLoss:    entry * (1 + s.Cfg.QuietShortSL),
		TakeProfit:  entry * (1 - s.Cfg.QuietShortTP),
		Leverage:    ConfidenceToLeverage(0.76, 3),
		Zone:        "quiet_high",
		Pattern:     "E_quiet_short",
		VolRatio:    volRatio,
		ExitMode:    ExitModeTimeCut,
		ExitBars:    s.Cfg.QuietShortExitBars,
		SpikeTimeMs: s.Candles[idx].T,
	}
}
