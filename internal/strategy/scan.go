package strategy

import "hyperwall-agent/internal/exchange/hyperliquid"

// SpikeConfig parameterizes the shared spike-scan skeleton every zone-based
// strategy (BTC wall, ETH band, SOL wall) runs.
type SpikeConfig struct {
	VolThreshold float64
	VolWindow    int
	H4Window     int
}

// FastPathHit reports whether the prior ThresholdCache can answer this bar
// without recomputing the volume ratio: the cache was built for exactly this
// bar's timestamp and the bar's volume falls short of the threshold it
// predicted.
func FastPathHit(cache *ThresholdCache, barT int64, barV float64) bool {
	return cache != nil && cache.NextTargetT == barT && barV < cache.ThresholdVol
}

// BuildNextCache precomputes the volume threshold for the bar after idx, so
// next cycle's fast path is O(1). sumKnown is the sum of the vol_window-1
// known bars ending at idx (the window that will be known once the next bar
// confirms).
func BuildNextCache(candles []hyperliquid.Candle, idx int, cfg SpikeConfig) ThresholdCache {
	nextIdx := idx + 1
	start := nextIdx - cfg.VolWindow + 1
	if start < 0 {
		start = 0
	}
	end := idx + 1
	if end > len(candles) {
		end = len(candles)
	}

	var sumKnown float64
	for i := start; i < end; i++ {
		sumKnown += candles[i].V
	}
	nKnown := end - start

	var nextT int64
	if nextIdx < len(candles) {
		nextT = candles[nextIdx].T
	} else {
		nextT = candles[idx].T + 300_000
	}

	return DeriveThresholdCache(nKnown+1, cfg.VolThreshold, sumKnown, nextT)
}

// Zone is one [lo, hi) band of H4 range position mapped to a direction and
// exit parameters.
type Zone struct {
	Name       string
	Lo, Hi     float64
	Direction  string
	TPPct      float64
	SLPct      float64
	ExitBars   int
	MinRatio   float64 // 0 means no extra ratio floor beyond the base spike threshold
}

// MatchZone returns the first zone whose [lo, hi) contains pos, or nil.
func MatchZone(zones []Zone, pos float64) *Zone {
	for i := range zones {
		if pos >= zones[i].Lo && pos < zones[i].Hi {
			return &zones[i]
		}
	}
	return nil
}
