package main

import (
	"hyperwall-agent/internal/cfg"
	"hyperwall-agent/internal/common"
	"hyperwall-agent/internal/exchange/hyperliquid"
	"hyperwall-agent/internal/state"
	"hyperwall-agent/internal/strategy"
)

// Strategy-family keys: the filing key every ExitMeta/ThresholdCache is
// stored under. Hyperliquid positions are per-coin, not per-strategy, so
// resolveSymbol's exit-then-entry pass order is what keeps these from ever
// double-opening the same underlying symbol.
const (
	familyBTCWall      = "BTC_rubber"
	familyETHBand      = "ETH_rubber"
	familySOLWall      = "SOL_rubber"
	familyBTCWaveRider = "btc_wave_rider"
	familyHYPEWaveRider = "hype_wave_rider"
)

// familiesFor returns, in priority order, the strategy families that trade
// symbol. The order matters for both the exit-scan pass (first family with
// an open ExitMeta wins) and the entry-scan pass (first non-nil signal
// wins) in resolveSymbol.
func familiesFor(symbol string) []string {
	switch symbol {
	case common.SymbolBTC:
		return []string{familyBTCWall, familyBTCWaveRider}
	case common.SymbolETH:
		return []string{familyETHBand}
	case common.SymbolSOL:
		return []string{familySOLWall}
	case common.SymbolHYPE:
		return []string{familyHYPEWaveRider}
	default:
		return nil
	}
}

func isWaveRiderFamily(family string) bool {
	return family == familyBTCWaveRider || family == familyHYPEWaveRider
}

// strategyEngine holds one configured instance of every strategy, built
// once at startup from settings and its per-symbol overrides.
type strategyEngine struct {
	btcWall       strategy.BTCWallConfig
	ethBand       strategy.ETHBandConfig
	solWall       strategy.SOLWallConfig
	waveRiderBTC  strategy.WaveRiderConfig
	waveRiderHYPE strategy.WaveRiderConfig
}

func newStrategyEngine(settings *cfg.Settings) strategyEngine {
	btcWall := strategy.DefaultBTCWallConfig()
	if sc := settings.GetSymbolConfig(common.SymbolBTC); sc.VolThreshold > 0 {
		btcWall.VolThreshold = sc.VolThreshold
	}

	ethBand := strategy.DefaultETHBandConfig()
	if sc := settings.GetSymbolConfig(common.SymbolETH); sc.VolThreshold > 0 {
		ethBand.VolThreshold = sc.VolThreshold
	}

	solWall := strategy.DefaultSOLWallConfig()
	if sc := settings.GetSymbolConfig(common.SymbolSOL); sc.VolThreshold > 0 {
		solWall.VolThreshold = sc.VolThreshold
	}

	return strategyEngine{
		btcWall:       btcWall,
		ethBand:       ethBand,
		solWall:       solWall,
		waveRiderBTC:  strategy.DefaultWaveRiderBTCConfig(),
		waveRiderHYPE: strategy.DefaultWaveRiderHYPEConfig(),
	}
}

// scanEntry runs the per-cycle spike-scan skeleton for the zone-based
// families (BTC wall, ETH band, SOL wall); WaveRider entries are instead
// driven by the UTC-hour observe-bar check in waveRiderEntry, since they are
// time-triggered rather than O(1)-cached per cycle.
func (eng strategyEngine) scanEntry(family string, snap hyperliquid.Snapshot, cache *strategy.ThresholdCache) (*strategy.Signal, strategy.ThresholdCache) {
	switch family {
	case familyBTCWall:
		return strategy.NewBTCWall(snap.Candles5m, eng.btcWall).Scan(snap.Symbol, cache)
	case familyETHBand:
		return strategy.NewETHBand(snap.Candles5m, eng.ethBand).Scan(snap.Symbol, cache)
	case familySOLWall:
		return strategy.NewSOLWall(snap.Candles5m, eng.solWall, snap.FundingRate, snap.HasFunding).Scan(snap.Symbol, cache)
	default:
		return nil, strategy.ThresholdCache{}
	}
}

// toStrategyCache / toStateCache bridge state.ThresholdCache (what the store
// persists) and strategy.ThresholdCache (what Scan consumes) — structurally
// identical, distinct types by package boundary.
func toStrategyCache(c *state.ThresholdCache) *strategy.ThresholdCache {
	if c == nil {
		return nil
	}
	return &strategy.ThresholdCache{NextTargetT: c.NextTargetT, ThresholdVol: c.ThresholdVol}
}

func toStateCache(c strategy.ThresholdCache) state.ThresholdCache {
	return state.ThresholdCache{NextTargetT: c.NextTargetT, ThresholdVol: c.ThresholdVol}
}
