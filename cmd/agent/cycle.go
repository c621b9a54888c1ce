package main

import (
	"context"
	"time"

	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/exchange/hyperliquid"
	"hyperwall-agent/internal/market"
	"hyperwall-agent/internal/retry"
	"hyperwall-agent/internal/risk"
	"hyperwall-agent/internal/signal"
	"hyperwall-agent/internal/state"
	"hyperwall-agent/internal/strategy"

	"github.com/rs/zerolog/log"
)

// dailyUnrealizedReconcileTolUSD is the drift tolerance ReconcileDailyUnrealized
// uses before it bothers rewriting the daily ledger.
const dailyUnrealizedReconcileTolUSD = 0.01

// runCycle is the full collect->archive->sync->health->risk->execute
// pipeline. It always runs to completion once started; ctx cancellation is
// only honored between retry attempts and at the top of the next cycle.
func (a *agent) runCycle(ctx context.Context) {
	start := a.clk.Now()
	defer func() {
		a.metrics.CycleDuration.Observe(a.clk.Now().Sub(start).Seconds())
		a.metrics.CyclesTotal.Inc()
	}()

	snapshots := a.collector.Collect(ctx, start.UnixMilli(), a.prior)
	a.prior = snapshots

	if err := market.Archive(a.settings.DataPath, start, snapshots); err != nil {
		log.Warn().Err(err).Msg("agent: archive failed, continuing")
	}

	var equity float64
	var positions []state.Position
	syncErr := retry.Do(ctx, a.retryPolicy, "sync_positions", func() error {
		var err error
		equity, positions, err = a.store.SyncPositions(ctx, a.ex, a.families)
		return err
	})
	if a.handleCycleErr(ctx, "sync_positions", syncErr) {
		return
	}

	health := computeDataHealth(snapshots, a.settings.Symbols)
	if err := a.store.SaveDataHealth(a.clk, health); err != nil {
		log.Warn().Err(err).Msg("agent: failed to save data health")
	}

	if _, err := a.sup.RecordCycleOutcome(a.clk, allSymbolsLackCandles(snapshots, a.settings.Symbols)); err != nil {
		log.Warn().Err(err).Msg("agent: failed to record cycle outcome")
	}

	priorDaily, err := a.store.GetDailyPnL()
	if err != nil {
		log.Warn().Err(err).Msg("agent: failed to read prior daily pnl")
	}
	stateEquity := equity
	if priorDaily != nil {
		stateEquity = priorDaily.Equity
	}

	if _, err := a.store.ReconcileDailyUnrealized(positions, dailyUnrealizedReconcileTolUSD); err != nil {
		log.Warn().Err(err).Msg("agent: failed to reconcile daily unrealized pnl")
	}

	var sumUnrealized float64
	for _, p := range positions {
		sumUnrealized += p.UnrealizedPnL
	}
	daily, err := a.store.UpdateDailyPnL(a.clk, equity, 0, &sumUnrealized)
	if err != nil {
		log.Warn().Err(err).Msg("agent: failed to update daily pnl")
		daily = priorDaily
	}
	var dailySafe state.DailyPnL
	if daily != nil {
		dailySafe = *daily
		a.metrics.DailyPnL.Set(dailySafe.RealizedPnL + dailySafe.UnrealizedPnL)
		if dailySafe.PeakEquity > 0 {
			a.metrics.DailyDrawdownPct.Set((dailySafe.PeakEquity - dailySafe.Equity) / dailySafe.PeakEquity * 100)
		}

		tripped, err := a.sup.CheckKillSwitch(a.clk, dailySafe)
		if err != nil {
			log.Error().Err(err).Msg("agent: kill switch check failed")
		}
		if tripped {
			a.sup.EmergencyCloseAll(closeAdapter{ex: a.ex, ctx: ctx}, positions)
		}
	}

	active, err := a.store.IsActive()
	if err != nil {
		log.Error().Err(err).Msg("agent: failed to read kill switch state, failing safe to active")
		active = true
	}
	a.metrics.KillSwitchActive.Set(boolToFloat(active))
	if active {
		a.executor.SetClosedOnly(a.settings.Symbols)
	} else {
		a.executor.SetClosedOnly(nil)
	}

	livePositions := make(map[string]bool, len(positions))
	positionBySymbol := make(map[string]state.Position, len(positions))
	for _, p := range positions {
		livePositions[p.Symbol] = true
		positionBySymbol[p.Symbol] = p
	}

	candidates := make(map[string]*strategy.Signal, len(a.settings.Symbols))
	families := make(map[string]string, len(a.settings.Symbols))
	openedAt := make(map[string]time.Time, len(a.settings.Symbols))

	var maxATRRatio, maxImbalance, maxVolumeRatio float64
	for _, symbol := range a.settings.Symbols {
		snap, ok := snapshots[symbol]
		if !ok {
			continue
		}

		fam, sig, ot := a.resolveSymbol(a.clk, symbol, snap)
		candidates[symbol] = sig
		if fam != "" {
			families[symbol] = fam
		}
		if !ot.IsZero() {
			openedAt[symbol] = ot
		}

		if atrRatio, imbalance, volRatio, ok := marketConditionReadings(snap); ok {
			maxATRRatio = maxFloat64(maxATRRatio, atrRatio)
			maxImbalance = maxFloat64(maxImbalance, imbalance)
			maxVolumeRatio = maxFloat64(maxVolumeRatio, volRatio)
		}
	}

	a.executor.UpdateMarketConditions(a.clk, maxATRRatio, maxImbalance, maxVolumeRatio)

	batch := signal.Arbitrate(a.clk.Now(), candidates, livePositions, openedAt, signal.MinHoldConfig{
		MinHoldMinutes:            a.settings.MinHoldMinutes,
		MinHoldOverrideConfidence: a.settings.MinHoldOverrideConfidence,
	})

	gateInputs := make(map[string]risk.GateInputs, len(a.settings.Symbols))
	for _, symbol := range a.settings.Symbols {
		snap := snapshots[symbol]

		minutesSince, hasPrior := -1.0, false
		if m, err := a.store.MinutesSinceLastTrade(a.clk, symbol); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("agent: failed to read trade history cooldown")
		} else if m >= 0 {
			minutesSince, hasPrior = m, true
		}

		gateInputs[symbol] = risk.GateInputs{
			LiveEquity:  equity,
			StateEquity: stateEquity,
			// No multi-model ensemble exists in this agent, so no signal is
			// ever tagged as a partial-consensus reasoning result.
			ReasoningPartial:      false,
			RealizedPnL:           dailySafe.RealizedPnL,
			UnrealizedPnL:         dailySafe.UnrealizedPnL,
			StartOfDayEquity:      dailySafe.StartOfDayEquity,
			DataHealthScore:       health.Score,
			Bid:                   topBid(snap.OrderBook),
			Ask:                   topAsk(snap.OrderBook),
			Mid:                   snap.MidPrice,
			Book:                  snap.OrderBook,
			MinutesSinceLastTrade: minutesSince,
			HasPriorTrade:         hasPrior,
		}
	}

	outcomes := a.executor.Run(ctx, a.clk, batch, families, positionBySymbol, a.limits, gateInputs)
	for _, o := range outcomes {
		a.metrics.SignalsTotal.WithLabelValues(string(o.Action)).Inc()
		switch {
		case o.Err != nil:
			a.metrics.ExchangeErrorsTotal.Inc()
			log.Error().Err(o.Err).Str("symbol", o.Symbol).Msg("agent: order outcome error")
		case o.Skipped:
			if o.Action == strategy.ActionLong || o.Action == strategy.ActionShort {
				a.metrics.RiskRejected.WithLabelValues(o.Reason).Inc()
			}
		default:
			a.metrics.OrdersTotal.WithLabelValues(o.Reason).Inc()
		}
	}
	a.metrics.ActivePositions.Set(float64(len(positions)))

	if batch.ActionType == "hold" {
		a.sup.RecordFallback(a.clk, "no_trade_signal")
	} else {
		a.sup.ClearFallback("no_trade_signal")
	}
}

// handleCycleErr classifies an error from a retried cycle step: nil is a
// no-op, a cancelled context aborts the cycle silently (no safe-hold — the
// agent is shutting down, not malfunctioning), and anything else escalates
// through the metrics/safe-hold path and aborts the cycle.
func (a *agent) handleCycleErr(ctx context.Context, label string, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil {
		return true
	}

	a.metrics.ExchangeErrorsTotal.Inc()
	if retry.IsExhausted(err) {
		a.metrics.RetryExhaustedTotal.Inc()
	}
	if escErr := retry.EscalateOnExhaustion(a.clk, a.store, label, err); escErr != nil {
		log.Error().Err(escErr).Str("op", label).Msg("agent: cycle step failed")
	}
	return true
}

// resolveSymbol runs the exit-scan pass across every family configured for
// symbol first (the first family with an open ExitMeta wins and is
// authoritative), falling back to the entry-scan pass only if none of them
// held a position. This is what guarantees at most one family ever opens a
// position on a given symbol in a single cycle.
func (a *agent) resolveSymbol(clk clock.Clock, symbol string, snap hyperliquid.Snapshot) (family string, sig *strategy.Signal, openedAt time.Time) {
	families := familiesFor(symbol)

	for _, fam := range families {
		meta, err := a.store.GetExitMeta(fam)
		if err != nil {
			log.Warn().Err(err).Str("family", fam).Msg("agent: failed to read exit meta")
			continue
		}
		if meta == nil {
			continue
		}

		if isWaveRiderFamily(fam) {
			wr := strategy.NewWaveRider(waveRiderConfigFor(a.eng, fam))
			a.updateWaveRiderAdaptiveSL(fam, wr, snap, meta)
		}

		exitSig, ok := strategy.ExitScanAt(symbol, meta, snap.MidPrice, snap.HasMidPrice)
		if !ok {
			continue
		}

		if exitSig.Action == strategy.ActionClose && isWaveRiderFamily(fam) && exitSig.Pattern == "wr_up_large" {
			wr := strategy.NewWaveRider(waveRiderConfigFor(a.eng, fam))
			// closePrice is approximated by this cycle's mid, since the
			// executor's Outcome carries no fill price back to the cycle.
			a.maybeScheduleReversion(clk, wr, symbol, meta.ObserveOpen, snap.MidPrice)
		}

		return fam, exitSig, meta.EntryTime
	}

	for _, fam := range families {
		var entrySig *strategy.Signal
		if isWaveRiderFamily(fam) {
			entrySig = a.waveRiderScanEntry(clk, fam, symbol, snap)
		} else {
			cache, err := a.store.GetThresholdCache(fam)
			if err != nil {
				log.Warn().Err(err).Str("family", fam).Msg("agent: failed to read threshold cache")
			}
			var nextCache strategy.ThresholdCache
			entrySig, nextCache = a.eng.scanEntry(fam, snap, toStrategyCache(cache))
			if nextCache != (strategy.ThresholdCache{}) {
				if err := a.store.SaveThresholdCache(fam, toStateCache(nextCache)); err != nil {
					log.Warn().Err(err).Str("family", fam).Msg("agent: failed to save threshold cache")
				}
			}
		}
		if entrySig != nil {
			return fam, entrySig, time.Time{}
		}
	}

	return "", nil, time.Time{}
}

// computeDataHealth scores this cycle's snapshots per symbol: a missing mid
// price or candle series is an error, an empty order book side is only a
// warning (the entry gate's imbalance check treats a top-5 sum of zero as
// "can't evaluate" rather than a hard fail).
func computeDataHealth(snapshots map[string]hyperliquid.Snapshot, symbols []string) state.DataHealth {
	var errs, warns []string
	var ok int
	for _, sym := range symbols {
		snap, present := snapshots[sym]
		good := true
		if !present || !snap.HasMidPrice {
			errs = append(errs, sym+": missing mid price")
			good = false
		}
		if !present || len(snap.Candles5m) == 0 {
			errs = append(errs, sym+": missing candles")
			good = false
		}
		if present && (len(snap.OrderBook.Bids) == 0 || len(snap.OrderBook.Asks) == 0) {
			warns = append(warns, sym+": empty order book")
		}
		if good {
			ok++
		}
	}
	var score float64
	if len(symbols) > 0 {
		score = float64(ok) / float64(len(symbols))
	}
	return state.DataHealth{Score: score, Errors: errs, Warnings: warns}
}

func allSymbolsLackCandles(snapshots map[string]hyperliquid.Snapshot, symbols []string) bool {
	for _, sym := range symbols {
		if snap, ok := snapshots[sym]; ok && len(snap.Candles5m) > 0 {
			return false
		}
	}
	return true
}

// marketConditionReadings computes the ATR-ratio, top-5 book imbalance, and
// volume-ratio inputs the executor's circuit breaker watches, using the same
// 24-vs-288 5m-bar regime windows the zone-based strategies use internally.
func marketConditionReadings(snap hyperliquid.Snapshot) (atrRatio, imbalance, volumeRatio float64, ok bool) {
	const shortWindow, longWindow = 24, 288
	if len(snap.Candles5m) <= longWindow {
		return 0, 0, 0, false
	}

	base := strategy.Base{Candles: snap.Candles5m}
	idx := len(snap.Candles5m) - 2
	atrRatio = base.ATRRatio(idx, shortWindow, longWindow)
	volumeRatio = base.VolRatioAt(idx, longWindow)

	bidSz := topNSum(snap.OrderBook.Bids, 5)
	askSz := topNSum(snap.OrderBook.Asks, 5)
	if bidSz > 0 && askSz > 0 {
		if bidSz > askSz {
			imbalance = bidSz / askSz
		} else {
			imbalance = askSz / bidSz
		}
	}
	return atrRatio, imbalance, volumeRatio, true
}

func topNSum(levels []hyperliquid.Level, n int) float64 {
	if len(levels) < n {
		n = len(levels)
	}
	var sum float64
	for _, l := range levels[:n] {
		sum += l.Sz
	}
	return sum
}

func topBid(book hyperliquid.OrderBook) float64 {
	if len(book.Bids) == 0 {
		return 0
	}
	return book.Bids[0].Px
}

func topAsk(book hyperliquid.OrderBook) float64 {
	if len(book.Asks) == 0 {
		return 0
	}
	return book.Asks[0].Px
}

func maxFloat64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
