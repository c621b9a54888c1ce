// Package strategy implements the spike-detection/time-triggered strategy
// engine: a shared analytics base plus one file per concrete strategy, each
// consuming a market.Snapshot and a prior ThresholdCache and producing a
// Signal.
package strategy

import (
	"math"

	"hyperwall-agent/internal/exchange/hyperliquid"
)

// Base holds the candle series a scan runs against and provides the shared
// analytics every concrete strategy composes from.
type Base struct {
	Candles []hyperliquid.Candle
}

// VolRatio returns, for every bar, its volume divided by the mean volume of
// the trailing window ending at that bar (itself included).
func (b Base) VolRatio(window int) []float64 {
	n := len(b.Candles)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		var sum float64
		for j := start; j <= i; j++ {
			sum += b.Candles[j].V
		}
		count := float64(i - start + 1)
		avg := sum / count
		if avg > 0 {
			out[i] = b.Candles[i].V / avg
		}
	}
	return out
}

// VolRatioAt is the single-bar form used by the fast-path cache check, O(window).
func (b Base) VolRatioAt(idx, window int) float64 {
	start := idx - window + 1
	if start < 0 {
		start = 0
	}
	var sum float64
	for j := start; j <= idx; j++ {
		sum += b.Candles[j].V
	}
	count := float64(idx - start + 1)
	avg := sum / count
	if avg <= 0 {
		return 0
	}
	return b.Candles[idx].V / avg
}

// H4Range returns (low, high) over the window ending at idx.
func (b Base) H4Range(idx, window int) (lo, hi float64) {
	start := idx - window + 1
	if start < 0 {
		start = 0
	}
	chunk := b.Candles[start : idx+1]
	if len(chunk) == 0 {
		c := b.Candles[idx]
		return c.L, c.H
	}
	lo, hi = chunk[0].L, chunk[0].H
	for _, c := range chunk[1:] {
		if c.L < lo {
			lo = c.L
		}
		if c.H > hi {
			hi = c.H
		}
	}
	return lo, hi
}

// RangePosition returns the signed percentile of close within [lo, hi):
// 0 at the bottom, 100 at the top, negative below, >100 above.
func RangePosition(close, lo, hi float64) float64 {
	span := hi - lo
	if span <= 0 {
		return 50.0
	}
	return (close - lo) / span * 100.0
}

// ATRVolatilityMultiplier returns the dynamic sensitivity multiplier and a
// regime label, comparing a short-window ATR proxy against a long-window one.
func (b Base) ATRVolatilityMultiplier(idx, shortWindow, longWindow int, highVolThreshold, lowVolThreshold, highVolFactor, lowVolFactor float64) (float64, string) {
	n := len(b.Candles)
	if idx < shortWindow || n <= shortWindow {
		return 1.0, "normal"
	}

	shortATR := b.atrProxy(idx, shortWindow)
	longATR := b.atrProxy(idx, longWindow)
	if longATR <= 0 || shortATR <= 0 {
		return 1.0, "normal"
	}

	ratio := shortATR / longATR
	switch {
	case ratio > highVolThreshold:
		return highVolFactor, "high_vol"
	case ratio < lowVolThreshold:
		return lowVolFactor, "low_vol"
	default:
		return 1.0, "normal"
	}
}

// ATRRatio returns the short-window ATR proxy divided by the long-window one,
// the same regime gauge ATRVolatilityMultiplier buckets into high/low/normal
// — exposed directly for callers (WaveRider's adaptive SL) that need the raw
// ratio rather than a discretized multiplier.
func (b Base) ATRRatio(idx, shortWindow, longWindow int) float64 {
	if idx < shortWindow || len(b.Candles) <= shortWindow {
		return 1.0
	}
	shortATR := b.atrProxy(idx, shortWindow)
	longATR := b.atrProxy(idx, longWindow)
	if longATR <= 0 || shortATR <= 0 {
		return 1.0
	}
	return shortATR / longATR
}

func (b Base) atrProxy(idx, window int) float64 {
	start := idx - window + 1
	if start < 0 {
		start = 0
	}
	chunk := b.Candles[start : idx+1]
	if len(chunk) == 0 {
		return 0
	}
	var sum float64
	for _, c := range chunk {
		sum += c.H - c.L
	}
	return sum / float64(len(chunk))
}

// RSI is Wilder's RSI over the trailing `period` bar-to-bar closes ending at idx.
func (b Base) RSI(idx, period int) (float64, bool) {
	if idx < period {
		return 0, false
	}
	var gainSum, lossSum float64
	for i := idx - period + 1; i <= idx; i++ {
		delta := b.Candles[i].C - b.Candles[i-1].C
		if delta >= 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	if avgLoss == 0 {
		return 100.0, true
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), true
}

// PriceMomentum returns the percentage close-to-close change over the last
// `window` bars ending at idx: (close[idx]-close[idx-window])/close[idx-window]*100.
func (b Base) PriceMomentum(idx, window int) float64 {
	ref := idx - window
	if ref < 0 || b.Candles[ref].C == 0 {
		return 0
	}
	return (b.Candles[idx].C - b.Candles[ref].C) / b.Candles[ref].C * 100.0
}

// CandleBodyRatio averages |close-open|/(high-low) over the trailing `window`
// bars ending at idx — a low ratio flags doji/indecision noise.
func (b Base) CandleBodyRatio(idx, window int) float64 {
	start := idx - window + 1
	if start < 0 {
		start = 0
	}
	var sum float64
	var count int
	for i := start; i <= idx; i++ {
		c := b.Candles[i]
		span := c.H - c.L
		if span <= 0 {
			continue
		}
		sum += math.Abs(c.C-c.O) / span
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// BBSqueeze reports whether the current Bollinger bandwidth has contracted
// below squeezeFactor times its average over the window — a precursor to a
// volatility expansion.
func (b Base) BBSqueeze(idx, window int, stdDevMult, squeezeFactor float64) bool {
	if idx < window-1 {
		return false
	}
	bandwidths := make([]float64, 0, window)
	for i := idx - window + 1; i <= idx; i++ {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		chunk := b.Candles[start : i+1]
		mean, sd := meanStdDev(chunk)
		if mean == 0 {
			bandwidths = append(bandwidths, 0)
			continue
		}
		bandwidths = append(bandwidths, (2*stdDevMult*sd)/mean)
	}
	current := bandwidths[len(bandwidths)-1]
	var sum float64
	for _, bw := range bandwidths {
		sum += bw
	}
	avg := sum / float64(len(bandwidths))
	if avg == 0 {
		return false
	}
	return current < squeezeFactor*avg
}

func meanStdDev(chunk []hyperliquid.Candle) (mean, stdDev float64) {
	if len(chunk) == 0 {
		return 0, 0
	}
	var sum float64
	for _, c := range chunk {
		sum += c.C
	}
	mean = sum / float64(len(chunk))

	var variance float64
	for _, c := range chunk {
		d := c.C - mean
		variance += d * d
	}
	variance /= float64(len(chunk))
	return mean, math.Sqrt(variance)
}

// EMA computes the exponential moving average ending at idx over `period` bars.
func (b Base) EMA(idx, period int) float64 {
	start := idx - period + 1
	if start < 0 {
		start = 0
	}
	k := 2.0 / (float64(period) + 1.0)
	ema := b.Candles[start].C
	for i := start + 1; i <= idx; i++ {
		ema = b.Candles[i].C*k + ema*(1-k)
	}
	return ema
}

// ConfidenceToLeverage maps a strategy's confidence score to an integer
// leverage via the shared CAPS bands.
func ConfidenceToLeverage(confidence float64, base int) int {
	switch {
	case confidence >= 0.80:
		return base
	case confidence >= 0.74:
		return maxInt(1, base-1)
	default:
		return maxInt(1, base-2)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
