package main

import (
	"time"

	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/exchange/hyperliquid"
	"hyperwall-agent/internal/state"
	"hyperwall-agent/internal/strategy"

	"github.com/rs/zerolog/log"
)

// observeHourUTC is the US-open 1h bar WaveRider reacts to (14:00-15:00 UTC).
const observeHourUTC = 14

// waveRiderExitBars bounds a fresh WaveRider position to 24 agent cycles
// (ExitMeta.BarCount grows by one per held cycle), two hours at the default
// 5-minute interval, before the time-cut exit fires regardless of SL/TP.
// There is no fixed UTC clock-time exit.
const waveRiderExitBars = 24

const (
	waveRiderReversionConfidence = 0.70
	waveRiderReversionExitBars   = 12
)

// waveRiderConfigFor returns the configured WaveRider for a family, or the
// zero value if family isn't a WaveRider family.
func waveRiderConfigFor(eng strategyEngine, family string) strategy.WaveRiderConfig {
	switch family {
	case familyBTCWaveRider:
		return eng.waveRiderBTC
	case familyHYPEWaveRider:
		return eng.waveRiderHYPE
	default:
		return strategy.WaveRiderConfig{}
	}
}

// waveRiderScanEntry is the entry-scan dispatch for a WaveRider family: a
// pending reversion (scheduled by maybeScheduleReversion after a wr_up_large
// close) takes precedence over a fresh observe-bar entry, since it's itself
// this family's entry for the cycle.
func (a *agent) waveRiderScanEntry(clk clock.Clock, family, symbol string, snap hyperliquid.Snapshot) *strategy.Signal {
	wr := strategy.NewWaveRider(waveRiderConfigFor(a.eng, family))

	pending, err := a.store.GetWaveRiderPending(symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("agent: failed to read wave rider pending reversion")
	}
	if pending != nil {
		sig := a.consumeWaveRiderPending(clk, wr, symbol, *pending)
		if sig != nil {
			if err := a.store.DeleteWaveRiderPending(symbol); err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("agent: failed to clear wave rider pending reversion")
			}
		}
		return sig
	}

	return a.waveRiderEntry(clk, family, symbol, wr, snap)
}

func (a *agent) consumeWaveRiderPending(clk clock.Clock, wr strategy.WaveRider, symbol string, pending state.WaveRiderPending) *strategy.Signal {
	if clk.Now().Before(pending.EntryAfter) {
		return nil
	}

	return &strategy.Signal{
		Symbol:      symbol,
		Action:      strategy.ActionShort,
		Direction:   "short",
		Confidence:  waveRiderReversionConfidence,
		Pattern:     pending.Pattern,
		ExitMode:    strategy.ExitModeTimeCut,
		ExitBars:    waveRiderReversionExitBars,
		ObserveOpen: pending.ObserveOpen,
		Leverage:    strategy.ConfidenceToLeverage(waveRiderReversionConfidence, 3),
		Reasoning:   "reversion_pending_consumed",
	}
}

// waveRiderEntry maps the freshly-confirmed UTC 14:00 1h bar to an entry
// signal. It reuses the ThresholdCache store, stamping NextTargetT with the
// observe bar's own timestamp once acted on, so a quiet re-poll within the
// same hour never re-enters on a bar already handled.
func (a *agent) waveRiderEntry(clk clock.Clock, family, symbol string, wr strategy.WaveRider, snap hyperliquid.Snapshot) *strategy.Signal {
	if !wr.EligibleDay(clk.Now()) {
		return nil
	}

	observe := findHourCandle(snap.Candles1h, observeHourUTC)
	if observe == nil {
		return nil
	}

	cache, err := a.store.GetThresholdCache(family)
	if err != nil {
		log.Warn().Err(err).Str("family", family).Msg("agent: failed to read wave rider threshold cache")
	}
	if cache != nil && cache.NextTargetT == observe.T {
		return nil
	}

	markConsumed := func() {
		if err := a.store.SaveThresholdCache(family, state.ThresholdCache{NextTargetT: observe.T}); err != nil {
			log.Warn().Err(err).Str("family", family).Msg("agent: failed to stamp wave rider observe bar consumed")
		}
	}

	if observe.O == 0 {
		markConsumed()
		return nil
	}
	openMove := (observe.C - observe.O) / observe.O

	direction, pattern, confidence, ok := wr.DecideEntry(openMove)
	if !ok {
		markConsumed()
		return nil
	}

	entry := observe.C
	action := strategy.ActionLong
	if direction == "short" {
		action = strategy.ActionShort
	}

	markConsumed()
	return &strategy.Signal{
		Symbol:      symbol,
		Action:      action,
		Direction:   direction,
		Confidence:  confidence,
		EntryPrice:  entry,
		StopLoss:    wr.ComputeSL(entry, direction),
		Leverage:    strategy.ConfidenceToLeverage(confidence, 3),
		Pattern:     pattern,
		ExitMode:    strategy.ExitModeTimeCut,
		ExitBars:    waveRiderExitBars,
		ObserveOpen: observe.O,
	}
}

// findHourCandle returns the last confirmed 1h candle (n-2, matching the
// confirmed-bar convention every other strategy scan uses) if its UTC
// start hour matches, or nil if this cycle's confirmed bar isn't it.
func findHourCandle(candles []hyperliquid.Candle, hour int) *hyperliquid.Candle {
	n := len(candles)
	if n < 2 {
		return nil
	}
	c := candles[n-2]
	if time.UnixMilli(c.T).UTC().Hour() != hour {
		return nil
	}
	return &c
}

// updateWaveRiderAdaptiveSL trails a held WaveRider position's stop during
// the exit-scan pass, ahead of the SL/TP/time-cut check itself.
func (a *agent) updateWaveRiderAdaptiveSL(family string, wr strategy.WaveRider, snap hyperliquid.Snapshot, meta *state.ExitMeta) {
	if !wr.Cfg.AdaptiveSLEnabled || meta == nil || !snap.HasMidPrice {
		return
	}
	base := strategy.Base{Candles: snap.Candles1h}
	n := len(snap.Candles1h)
	if n < 2 {
		return
	}
	idx := n - 2
	atrRatio := base.ATRRatio(idx, 24, 168)

	newSL, _ := wr.ComputeAdaptiveSL(meta.EntryPrice, snap.MidPrice, meta.StopLoss, meta.Direction, atrRatio)
	if newSL == meta.StopLoss {
		return
	}
	meta.StopLoss = newSL
	if err := a.store.SaveExitMeta(family, *meta); err != nil {
		log.Warn().Err(err).Str("family", family).Msg("agent: failed to save wave rider trailing stop")
	}
}

// maybeScheduleReversion defers the wr_up_large reversion short by
// ReversionDelay once the closing price (approximated here by the current
// mid, since the executor doesn't return a fill price on this path) has
// deviated far enough from the observe-bar open.
func (a *agent) maybeScheduleReversion(clk clock.Clock, wr strategy.WaveRider, symbol string, observeOpen, closePrice float64) {
	if !wr.ShouldTriggerReversion(observeOpen, closePrice) {
		return
	}
	pending := state.WaveRiderPending{
		Pattern:     "wr_reversion",
		ObserveOpen: observeOpen,
		EntryAfter:  clk.Now().Add(wr.Cfg.ReversionDelay),
	}
	if err := a.store.SaveWaveRiderPending(symbol, pending); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("agent: failed to schedule wave rider reversion")
	}
}
