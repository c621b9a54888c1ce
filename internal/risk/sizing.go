package risk

// SizeOrder computes the position size (in base units) for a signal,
// applying the sequential caps from section 4.6.3 in order: the raw CAPS
// size, then per-symbol hard cap, per-trade notional cap, equity-percent
// notional cap, and the remaining exposure budget. Returns 0 when the
// resulting notional falls below MinOrderSizeUSD.
func SizeOrder(equity, midPrice float64, leverage int, existingExposure float64, limits Limits) float64 {
	if midPrice <= 0 || equity <= 0 {
		return 0
	}

	regimeMultiplier := limits.RegimeMultiplier
	if regimeMultiplier <= 0 {
		regimeMultiplier = 1.0
	}

	size := equity * (limits.MaxSinglePct / 100) * regimeMultiplier * float64(maxInt(leverage, 1)) / midPrice

	if limits.PerSymbolHardCapUSD > 0 {
		size = minFloat(size, limits.PerSymbolHardCapUSD/midPrice)
	}
	if limits.PerTradeNotionalCap > 0 {
		size = minFloat(size, limits.PerTradeNotionalCap/midPrice)
	}

	equityPctCapUSD := equity * (limits.MaxSinglePct / 100)
	size = minFloat(size, equityPctCapUSD/midPrice)

	exposureBudget := equity*(limits.MaxTotalExposurePct/100) - existingExposure
	if exposureBudget <= 0 {
		return 0
	}
	size = minFloat(size, exposureBudget/midPrice)

	if size <= 0 {
		return 0
	}
	if size*midPrice < limits.MinOrderSizeUSD {
		return 0
	}
	return size
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
