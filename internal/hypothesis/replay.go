package hypothesis

import (
	"time"

	"hyperwall-agent/internal/exchange/hyperliquid"
	"hyperwall-agent/internal/state"
	"hyperwall-agent/internal/strategy"
)

// observeHourUTC mirrors cmd/agent's WaveRider observe bar: the US-open 1h
// bar (14:00-15:00 UTC) the HYPE replay reacts to.
const observeHourUTC = 14

// Trade is one closed replay position.
type Trade struct {
	OpenedAt  time.Time
	ClosedAt  time.Time
	Direction string
	Pattern   string
	EntryPrice float64
	ExitPrice  float64
	PnLPct     float64
	Reason     string
}

// Result is the shadow score for one symbol over the replayed window.
type Result struct {
	Symbol       string
	CycleCount   int
	Trades       []Trade
	ShadowPnLPct float64
	OpenAtEnd    bool
}

// WinRate is the fraction of closed trades with PnLPct > 0.
func (r Result) WinRate() float64 {
	if len(r.Trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range r.Trades {
		if t.PnLPct > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(r.Trades))
}

// Run replays one symbol's strategy against its indexed archive records in
// [from, to], reusing the same Scan/ExitScan calls the live cycle loop makes
// each tick, but against archived candle windows instead of live REST calls.
// It holds position state only in memory — it never reads or writes the
// on-disk state store.
func Run(idx *Index, symbol string, from, to time.Time) (Result, error) {
	records, err := idx.Query(symbol, from, to)
	if err != nil {
		return Result{}, err
	}

	r := Result{Symbol: symbol, CycleCount: len(records)}
	if len(records) == 0 {
		return r, nil
	}

	switch symbol {
	case "HYPE":
		replayWaveRider(records, &r)
	default:
		replayZoneStrategy(symbol, records, &r)
	}
	return r, nil
}

// replayZoneStrategy drives BTCWall/ETHBand/SOLWall (or BTC's WaveRider
// overlay is out of scope here — the replay lab scores one family per
// symbol) using the spike-scan skeleton's ThresholdCache fast path exactly
// as the live loop does.
func replayZoneStrategy(symbol string, records []ArchiveRecord, r *Result) {
	var cache *strategy.ThresholdCache
	var meta *state.ExitMeta

	scan := func(snap hyperliquid.Snapshot) (*strategy.Signal, strategy.ThresholdCache) {
		switch symbol {
		case "ETH":
			return strategy.NewETHBand(snap.Candles5m, strategy.DefaultETHBandConfig()).Scan(symbol, cache)
		case "SOL":
			return strategy.NewSOLWall(snap.Candles5m, strategy.DefaultSOLWallConfig(), snap.FundingRate, snap.HasFunding).Scan(symbol, cache)
		default:
			return strategy.NewBTCWall(snap.Candles5m, strategy.DefaultBTCWallConfig()).Scan(symbol, cache)
		}
	}

	for _, rec := range records {
		snap := rec.Snapshot

		if meta != nil {
			meta.BarCount++
			sig, ok := strategy.ExitScanAt(symbol, meta, snap.MidPrice, snap.HasMidPrice)
			if ok && sig.Action == strategy.ActionClose {
				r.Trades = append(r.Trades, closeTrade(*meta, rec.At, sig, snap.MidPrice))
				meta = nil
			}
			continue
		}

		sig, next := scan(snap)
		if next != (strategy.ThresholdCache{}) {
			cache = &next
		}
		if sig == nil {
			continue
		}
		if sig.Action != strategy.ActionLong && sig.Action != strategy.ActionShort {
			continue
		}
		meta = openMeta(rec.At, sig)
	}

	r.OpenAtEnd = meta != nil
	finishShadowPnL(r)
}

// replayWaveRider drives the US-open 1h-bar momentum strategy against
// archived 1h candles, entering on the confirmed UTC 14:00 bar and exiting
// on SL/TP/time-cut against subsequent cycles' mids — the reversion add-on
// is left to the live loop (it needs cross-cycle scheduling state this
// read-only replay deliberately doesn't carry).
func replayWaveRider(records []ArchiveRecord, r *Result) {
	wr := strategy.NewWaveRider(strategy.DefaultWaveRiderHYPEConfig())
	var meta *state.ExitMeta
	var lastObserveT int64

	for _, rec := range records {
		snap := rec.Snapshot

		if meta != nil {
			meta.BarCount++
			sig, ok := strategy.ExitScanAt("HYPE", meta, snap.MidPrice, snap.HasMidPrice)
			if ok && sig.Action == strategy.ActionClose {
				r.Trades = append(r.Trades, closeTrade(*meta, rec.At, sig, snap.MidPrice))
				meta = nil
			}
			continue
		}

		if !wr.EligibleDay(rec.At) {
			continue
		}
		observe := lastConfirmed1h(snap.Candles1h, observeHourUTC)
		if observe == nil || observe.T == lastObserveT || observe.O == 0 {
			continue
		}
		lastObserveT = observe.T

		openMove := (observe.C - observe.O) / observe.O
		direction, pattern, confidence, ok := wr.DecideEntry(openMove)
		if !ok {
			continue
		}

		action := strategy.ActionLong
		if direction == "short" {
			action = strategy.ActionShort
		}
		sig := &strategy.Signal{
			Action:     action,
			Direction:  direction,
			Pattern:    pattern,
			Confidence: confidence,
			EntryPrice: observe.C,
			StopLoss:   wr.ComputeSL(observe.C, direction),
			ExitMode:   strategy.ExitModeTimeCut,
			ExitBars:   24,
		}
		meta = openMeta(rec.At, sig)
	}

	r.OpenAtEnd = meta != nil
	finishShadowPnL(r)
}

func lastConfirmed1h(candles []hyperliquid.Candle, hour int) *hyperliquid.Candle {
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

func openMeta(at time.Time, sig *strategy.Signal) *state.ExitMeta {
	return &state.ExitMeta{
		Pattern:    sig.Pattern,
		Direction:  sig.Direction,
		EntryPrice: sig.EntryPrice,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		ExitMode:   state.ExitMode(sig.ExitMode),
		ExitBars:   sig.ExitBars,
		EntryTime:  at,
	}
}

// closeTrade prices the closed position: SL/TP hits use the recorded level,
// a time-cut close falls back to the cycle's mid (the replay has no fill
// price to work from, only the archived quote).
func closeTrade(meta state.ExitMeta, at time.Time, sig *strategy.Signal, mid float64) Trade {
	exitPrice := mid
	if exitPrice == 0 {
		exitPrice = meta.EntryPrice
	}
	pnlPct := 0.0
	switch sig.Reasoning {
	case "stop_loss":
		exitPrice = meta.StopLoss
	case "take_profit":
		exitPrice = meta.TakeProfit
	}
	if exitPrice > 0 && meta.EntryPrice > 0 {
		pnlPct = (exitPrice - meta.EntryPrice) / meta.EntryPrice
		if meta.Direction == "short" {
			pnlPct = -pnlPct
		}
	}
	return Trade{
		OpenedAt:   meta.EntryTime,
		ClosedAt:   at,
		Direction:  meta.Direction,
		Pattern:    meta.Pattern,
		EntryPrice: meta.EntryPrice,
		ExitPrice:  exitPrice,
		PnLPct:     pnlPct,
		Reason:     sig.Reasoning,
	}
}

func finishShadowPnL(r *Result) {
	for _, t := range r.Trades {
		r.ShadowPnLPct += t.PnLPct
	}
}
