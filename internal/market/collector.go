// Package market implements the collector: it snapshots mids, multi-interval
// candles, the order book, and funding for every configured symbol each
// cycle, falling back field-by-field to the prior snapshot on partial
// failure, and archives what it collected for the hypothesis lab.
package market

import (
	"context"
	"sync"

	"hyperwall-agent/internal/exchange/hyperliquid"

	"github.com/rs/zerolog/log"
)

// Exchange is the narrow surface the collector needs from the adapter.
type Exchange interface {
	AllMids(ctx context.Context) (map[string]float64, error)
	CandlesSnapshot(ctx context.Context, coin, interval string, startMs, endMs int64) ([]hyperliquid.Candle, error)
	L2Snapshot(ctx context.Context, coin string) (hyperliquid.OrderBook, error)
	FundingRate(ctx context.Context, coin string) (float64, bool, error)
}

// Collector assembles one Snapshot per symbol per cycle.
type Collector struct {
	ex      Exchange
	symbols []string
}

func New(ex Exchange, symbols []string) *Collector {
	return &Collector{ex: ex, symbols: symbols}
}

// Collect fans out per symbol×interval concurrently and joins all results
// before returning — the strategy engine never sees a partially-fanned-out
// cycle. prior is the last successful per-symbol snapshot set, used for
// field-by-field fallback when a fetch fails this cycle.
func (c *Collector) Collect(ctx context.Context, nowMs int64, prior map[string]hyperliquid.Snapshot) map[string]hyperliquid.Snapshot {
	mids, err := c.ex.AllMids(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("market: all_mids fetch failed, falling back to prior mids")
		mids = nil
	}

	out := make(map[string]hyperliquid.Snapshot, len(c.symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, symbol := range c.symbols {
		symbol := symbol
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := c.collectSymbol(ctx, symbol, nowMs, mids, prior[symbol])
			mu.Lock()
			out[symbol] = snap
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

func (c *Collector) collectSymbol(ctx context.Context, symbol string, nowMs int64, mids map[string]float64, prev hyperliquid.Snapshot) hyperliquid.Snapshot {
	snap := hyperliquid.Snapshot{Symbol: symbol}

	if mids != nil {
		if mid, ok := mids[symbol]; ok && mid > 0 {
			snap.MidPrice, snap.HasMidPrice = mid, true
		}
	}
	if !snap.HasMidPrice && prev.HasMidPrice {
		snap.MidPrice, snap.HasMidPrice = prev.MidPrice, true
		log.Warn().Str("symbol", symbol).Msg("market: mid price missing this cycle, using prior snapshot")
	}

	snap.Candles5m = c.fetchCandles(ctx, symbol, "5m", nowMs, prev.Candles5m)
	snap.Candles15m = c.fetchCandles(ctx, symbol, "15m", nowMs, prev.Candles15m)
	snap.Candles1h = c.fetchCandles(ctx, symbol, "1h", nowMs, prev.Candles1h)
	snap.Candles4h = c.fetchCandles(ctx, symbol, "4h", nowMs, prev.Candles4h)

	if ob, err := c.ex.L2Snapshot(ctx, symbol); err == nil {
		snap.OrderBook = ob
	} else {
		log.Warn().Err(err).Str("symbol", symbol).Msg("market: order book fetch failed, using prior snapshot")
		snap.OrderBook = prev.OrderBook
	}

	if fr, ok, err := c.ex.FundingRate(ctx, symbol); err == nil && ok {
		snap.FundingRate, snap.HasFunding = fr, true
	} else if prev.HasFunding {
		snap.FundingRate, snap.HasFunding = prev.FundingRate, true
	}

	return snap
}

const candleLookbackMs = int64(288 * 5 * 60 * 1000) // 24h (288 5m bars) for every interval; longer indicator windows see only this history

func (c *Collector) fetchCandles(ctx context.Context, symbol, interval string, nowMs int64, prev []hyperliquid.Candle) []hyperliquid.Candle {
	candles, err := c.ex.CandlesSnapshot(ctx, symbol, interval, nowMs-candleLookbackMs, nowMs)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Str("interval", interval).Msg("market: candle fetch failed, using prior snapshot")
		return prev
	}
	return candles
}
