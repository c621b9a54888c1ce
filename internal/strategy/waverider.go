package strategy

import "time"

// WaveRiderConfig holds the thresholds and adaptive-SL factors for the
// US-open 1h-bar momentum strategy.
type WaveRiderConfig struct {
	UpLargeThreshold   float64
	DownLargeThreshold float64
	UpMediumThreshold  float64
	SLPct              float64

	ReversionEnabled      bool
	ReversionTPPct        float64
	ReversionSLPct        float64
	ReversionDeviationPct float64
	ReversionDelay        time.Duration

	AdaptiveSLEnabled   bool
	BreakevenTriggerPct float64
	HighVolATRRatio     float64
	LowVolATRRatio      float64
	HighVolSLFactor     float64
	LowVolSLFactor      float64

	// WeekdayOnly restricts entries to Mon-Fri UTC; ThursdayOnly (HYPE
	// variant) restricts to Thursday UTC and takes precedence if set.
	WeekdayOnly  bool
	ThursdayOnly bool
}

// DefaultWaveRiderBTCConfig is the BTC variant: full reversion add-on and
// adaptive SL trailing, weekday-only entries.
func DefaultWaveRiderBTCConfig() WaveRiderConfig {
	return WaveRiderConfig{
		UpLargeThreshold:      0.006,
		DownLargeThreshold:    0.008,
		UpMediumThreshold:     0.002,
		SLPct:                 0.008,
		ReversionEnabled:      true,
		ReversionTPPct:        0.003,
		ReversionSLPct:        0.008,
		ReversionDeviationPct: 0.008,
		ReversionDelay:        15 * time.Minute,
		AdaptiveSLEnabled:     true,
		BreakevenTriggerPct:   0.004,
		HighVolATRRatio:       1.5,
		LowVolATRRatio:        0.7,
		HighVolSLFactor:       1.20,
		LowVolSLFactor:        0.85,
		WeekdayOnly:           true,
	}
}

// DefaultWaveRiderHYPEConfig is the HYPE variant: Thursday-only, no
// reversion add-on, no adaptive SL trail.
func DefaultWaveRiderHYPEConfig() WaveRiderConfig {
	return WaveRiderConfig{
		UpLargeThreshold:   0.006,
		DownLargeThreshold: 0.008,
		UpMediumThreshold:  0.002,
		SLPct:              0.008,
		ReversionEnabled:   false,
		AdaptiveSLEnabled:  false,
		ThursdayOnly:       true,
	}
}

// WaveRider is the pure decision logic for the US-open 1h-bar momentum
// strategy: no state management, no I/O — the caller supplies the observe
// bar and owns ExitMeta/pending-reversion persistence.
type WaveRider struct {
	Cfg WaveRiderConfig
}

func NewWaveRider(cfg WaveRiderConfig) WaveRider {
	return WaveRider{Cfg: cfg}
}

// EligibleDay reports whether now (UTC) is a valid entry day for this variant.
func (w WaveRider) EligibleDay(now time.Time) bool {
	now = now.UTC()
	if w.Cfg.ThursdayOnly {
		return now.Weekday() == time.Thursday
	}
	if w.Cfg.WeekdayOnly {
		wd := now.Weekday()
		return wd >= time.Monday && wd <= time.Friday
	}
	return true
}

// DecideEntry maps the UTC 14:00-15:00 1h bar's open_move to an entry
// direction, pattern label, and confidence, or nil if no entry qualifies.
func (w WaveRider) DecideEntry(openMove float64) (direction, pattern string, confidence float64, ok bool) {
	switch {
	case openMove >= w.Cfg.UpLargeThreshold:
		return "long", "wr_up_large", 0.80, true
	case openMove <= -w.Cfg.DownLargeThreshold:
		return "short", "wr_down_large", 0.85, true
	case openMove >= w.Cfg.UpMediumThreshold && openMove < w.Cfg.UpLargeThreshold:
		return "short", "wr_up_medium_fade", 0.75, true
	default:
		return "", "", 0, false
	}
}

// ComputeSL returns the initial stop-loss price for a fresh entry.
func (w WaveRider) ComputeSL(entryPrice float64, direction string) float64 {
	if direction == "long" {
		return entryPrice * (1 - w.Cfg.SLPct)
	}
	return entryPrice * (1 + w.Cfg.SLPct)
}

// ShouldTriggerReversion reports whether the wr_up_large close deviated far
// enough from the observe-bar open to justify the reversion short.
func (w WaveRider) ShouldTriggerReversion(observeOpen, closePrice float64) bool {
	if !w.Cfg.ReversionEnabled || observeOpen == 0 {
		return false
	}
	deviation := (closePrice - observeOpen) / observeOpen
	if deviation < 0 {
		deviation = -deviation
	}
	return deviation >= w.Cfg.ReversionDeviationPct
}

func (w WaveRider) ComputeReversionSL(entryPrice float64) float64 {
	return entryPrice * (1 + w.Cfg.ReversionSLPct)
}

func (w WaveRider) ComputeReversionTP(entryPrice float64) float64 {
	return entryPrice * (1 - w.Cfg.ReversionTPPct)
}

// ComputeAdaptiveSL computes the volatility-adaptive trailing stop during a
// holding period: a breakeven floor/ceiling once profit clears the trigger,
// then a volatility multiplier on the stop's distance from price: widened by
// HighVolSLFactor in a high vol regime, narrowed by LowVolSLFactor in a low
// vol regime. The result never loosens past the current stop, and in a high
// vol regime never past the original stop either.
func (w WaveRider) ComputeAdaptiveSL(entryPrice, currentPrice, currentSL float64, direction string, atrRatio float64) (newSL float64, label string) {
	if !w.Cfg.AdaptiveSLEnabled {
		return currentSL, "disabled"
	}

	if direction == "long" {
		profitPct := (currentPrice - entryPrice) / entryPrice
		candidateSL := currentSL
		if profitPct >= w.Cfg.BreakevenTriggerPct {
			candidateSL = maxFloat(currentSL, entryPrice)
		}

		switch {
		case atrRatio > w.Cfg.HighVolATRRatio:
			dist := currentPrice - candidateSL
			adjusted := currentPrice - dist*w.Cfg.HighVolSLFactor
			original := entryPrice * (1 - w.Cfg.SLPct)
			return maxFloat(maxFloat(adjusted, original), currentSL), "high_vol"
		case atrRatio < w.Cfg.LowVolATRRatio:
			dist := currentPrice - candidateSL
			adjusted := currentPrice - dist*w.Cfg.LowVolSLFactor
			return maxFloat(adjusted, candidateSL), "low_vol"
		default:
			return candidateSL, "normal_vol"
		}
	}

	// short
	profitPct := (entryPrice - currentPrice) / entryPrice
	candidateSL := currentSL
	if profitPct >= w.Cfg.BreakevenTriggerPct {
		candidateSL = minFloat(currentSL, entryPrice)
	}

	switch {
	case atrRatio > w.Cfg.HighVolATRRatio:
		dist := candidateSL - currentPrice
		adjusted := currentPrice + dist*w.Cfg.HighVolSLFactor
		original := entryPrice * (1 + w.Cfg.SLPct)
		return minFloat(minFloat(adjusted, original), currentSL), "high_vol"
	case atrRatio < w.Cfg.LowVolATRRatio:
		dist := candidateSL - currentPrice
		adjusted := currentPrice + dist*w.Cfg.LowVolSLFactor
		return minFloat(adjusted, candidateSL), "low_vol"
	default:
		return candidateSL, "normal_vol"
	}
}
