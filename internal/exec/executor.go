// Package exec implements the executor: it turns one cycle's arbitrated
// signal batch into exchange calls and records the outcome into state. The
// sync_positions / reconcile_daily_unrealized pass is run by the cycle loop in
// cmd/agent.
package exec

import (
	"context"
	"fmt"
	"sync"

	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/exchange/hyperliquid"
	"hyperwall-agent/internal/risk"
	"hyperwall-agent/internal/signal"
	"hyperwall-agent/internal/state"
	"hyperwall-agent/internal/strategy"

	"github.com/rs/zerolog/log"
)

// Exchange is the narrow surface the executor drives orders through.
type Exchange interface {
	MarketOpen(ctx context.Context, coin string, isBuy bool, size, slippage float64) (hyperliquid.OrderResult, error)
	MarketClose(ctx context.Context, coin string) (hyperliquid.OrderResult, error)
	UpdateLeverage(ctx context.Context, coin string, leverage int) error
}

// Exec is the mutex-guarded executor engine; every exported method can be
// called from the cycle scheduler goroutine without races against a
// concurrent dashboard read.
type Exec struct {
	mu sync.Mutex

	ex    Exchange
	store *state.Store

	slippage float64
	breaker  *CircuitBreaker

	// closedOnly marks symbols where only a close is allowed this cycle
	// (a fallback escalation or an operator override); a new entry signal
	// for one of these is skipped before it ever reaches the risk gate.
	closedOnly map[string]bool
}

func New(ex Exchange, store *state.Store, slippage float64, breakerLimits CircuitBreakerLimits) *Exec {
	return &Exec{
		ex: ex, store: store, slippage: slippage,
		breaker:    NewCircuitBreaker(breakerLimits),
		closedOnly: make(map[string]bool),
	}
}

// UpdateMarketConditions feeds this cycle's market-wide volatility,
// imbalance, and volume readings into the circuit breaker, ahead of Run.
func (e *Exec) UpdateMarketConditions(clk clock.Clock, atrRatio, imbalance, volumeRatio float64) {
	e.breaker.UpdateMarketConditions(clk, atrRatio, imbalance, volumeRatio)
}

// CircuitBreakerStatus reports the per-breaker tripped state.
func (e *Exec) CircuitBreakerStatus() map[string]bool {
	return e.breaker.Status()
}

// SetClosedOnly replaces the close-only symbol set for the next Run call.
func (e *Exec) SetClosedOnly(symbols []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closedOnly = make(map[string]bool, len(symbols))
	for _, s := range symbols {
		e.closedOnly[s] = true
	}
}

// Outcome records what happened to one symbol's signal this cycle.
type Outcome struct {
	Symbol  string
	Action  strategy.Action
	Skipped bool
	Reason  string
	Err     error
}

// Run executes a whole arbitrated batch. families maps a symbol to the
// strategy-family key its ExitMeta is filed under (e.g. "BTC_rubber").
// positions is the locally cached position set (used for concurrency/
// exposure checks); gateInputs supplies the per-symbol entry-gate context.
func (e *Exec) Run(ctx context.Context, clk clock.Clock, batch signal.Batch, families map[string]string, positions map[string]state.Position, limits risk.Limits, gateInputs map[string]risk.GateInputs) []Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	outcomes := make([]Outcome, 0, len(batch.Signals))
	var actionable, errored int
	for _, sig := range batch.Signals {
		o := e.runOne(ctx, clk, sig, families[sig.Symbol], positions, limits, gateInputs[sig.Symbol])
		if sig.Action == strategy.ActionLong || sig.Action == strategy.ActionShort || sig.Action == strategy.ActionClose {
			actionable++
			if o.Err != nil {
				errored++
			}
		}
		outcomes = append(outcomes, o)
	}
	if actionable > 0 {
		e.breaker.UpdateErrorRate(clk, float64(errored)/float64(actionable))
	}
	return outcomes
}

func (e *Exec) runOne(ctx context.Context, clk clock.Clock, sig strategy.Signal, family string, positions map[string]state.Position, limits risk.Limits, gin risk.GateInputs) Outcome {
	switch sig.Action {
	case strategy.ActionHold:
		return Outcome{Symbol: sig.Symbol, Action: sig.Action, Skipped: true, Reason: "no action"}

	case strategy.ActionHoldPosition:
		if family != "" {
			if err := e.store.IncrementBarCount(family); err != nil {
				log.Warn().Err(err).Str("family", family).Msg("exec: failed to increment bar count")
			}
		}
		return Outcome{Symbol: sig.Symbol, Action: sig.Action, Skipped: true, Reason: "holding open position"}

	case strategy.ActionClose:
		return e.runClose(ctx, clk, sig, family, gin)

	case strategy.ActionLong, strategy.ActionShort:
		if e.closedOnly[sig.Symbol] {
			return Outcome{Symbol: sig.Symbol, Action: sig.Action, Skipped: true, Reason: "closed_only_mode"}
		}
		if e.breaker.IsTripped() {
			return Outcome{Symbol: sig.Symbol, Action: sig.Action, Skipped: true, Reason: "circuit_breaker_tripped"}
		}
		return e.runEntry(ctx, clk, sig, family, positions, limits, gin)
	}

	return Outcome{Symbol: sig.Symbol, Skipped: true, Reason: "unknown action"}
}

func (e *Exec) runEntry(ctx context.Context, clk clock.Clock, sig strategy.Signal, family string, positions map[string]state.Position, limits risk.Limits, gin risk.GateInputs) Outcome {
	existing := make([]state.Position, 0, len(positions))
	var existingExposure float64
	for _, p := range positions {
		existing = append(existing, p)
		existingExposure += absFloat(p.Size) * p.EntryPrice
	}

	size := risk.SizeOrder(gin.LiveEquity, sig.EntryPrice, sig.Leverage, existingExposure, limits)
	if size <= 0 {
		return Outcome{Symbol: sig.Symbol, Action: sig.Action, Skipped: true, Reason: "size below minimum order size"}
	}

	if dec := risk.ValidateSignal(sig, existing, gin.LiveEquity, size, limits); !dec.Approved {
		return Outcome{Symbol: sig.Symbol, Action: sig.Action, Skipped: true, Reason: dec.Reason}
	}
	gin.Signal = sig
	if dec := risk.EvaluateEntryGate(gin, limits); !dec.Approved {
		return Outcome{Symbol: sig.Symbol, Action: sig.Action, Skipped: true, Reason: dec.Reason}
	}

	if sig.Leverage > 0 {
		if err := e.ex.UpdateLeverage(ctx, sig.Symbol, sig.Leverage); err != nil {
			log.Warn().Err(err).Str("symbol", sig.Symbol).Msg("exec: update_leverage failed, continuing at existing leverage")
		}
	}

	isBuy := sig.Action == strategy.ActionLong
	result, err := e.ex.MarketOpen(ctx, sig.Symbol, isBuy, size, e.slippage)
	if err != nil {
		return Outcome{Symbol: sig.Symbol, Action: sig.Action, Err: err}
	}

	switch result.Outcome {
	case hyperliquid.OutcomeFilled, hyperliquid.OutcomePartial:
		if result.AvgPrice <= 0 {
			return Outcome{Symbol: sig.Symbol, Action: sig.Action, Skipped: true, Reason: "fill reported without a price"}
		}
		if err := e.store.RecordTrade(clk, state.Trade{
			Symbol: sig.Symbol, Side: sig.Direction, Size: size, EntryPrice: result.AvgPrice, OpenedAt: clk.Now(),
		}); err != nil {
			return Outcome{Symbol: sig.Symbol, Action: sig.Action, Err: err}
		}
		if family != "" && sig.Pattern != "" {
			meta := state.ExitMeta{
				Pattern: sig.Pattern, Direction: sig.Direction, EntryPrice: result.AvgPrice,
				StopLoss: sig.StopLoss, TakeProfit: sig.TakeProfit,
				ExitMode: state.ExitMode(sig.ExitMode), ExitBars: sig.ExitBars,
				EntryTime: clk.Now(), VolRatio: sig.VolRatio, ObserveOpen: sig.ObserveOpen,
			}
			if err := e.store.SaveExitMeta(family, meta); err != nil {
				return Outcome{Symbol: sig.Symbol, Action: sig.Action, Err: err}
			}
		}
		return Outcome{Symbol: sig.Symbol, Action: sig.Action, Reason: string(result.Outcome)}

	case hyperliquid.OutcomeNoPosition:
		return Outcome{Symbol: sig.Symbol, Action: sig.Action, Skipped: true, Reason: "no_position"}

	default:
		return Outcome{Symbol: sig.Symbol, Action: sig.Action, Err: fmt.Errorf("exec: open failed: %s", result.Err)}
	}
}

func (e *Exec) runClose(ctx context.Context, clk clock.Clock, sig strategy.Signal, family string, gin risk.GateInputs) Outcome {
	var meta *state.ExitMeta
	if family != "" {
		m, err := e.store.GetExitMeta(family)
		if err != nil {
			return Outcome{Symbol: sig.Symbol, Action: sig.Action, Err: err}
		}
		meta = m
	}

	result, err := e.ex.MarketClose(ctx, sig.Symbol)
	if err != nil {
		return Outcome{Symbol: sig.Symbol, Action: sig.Action, Err: err}
	}

	switch result.Outcome {
	case hyperliquid.OutcomeNoPosition:
		if meta != nil {
			if err := e.store.DeleteExitMeta(family); err != nil {
				return Outcome{Symbol: sig.Symbol, Action: sig.Action, Err: err}
			}
		}
		return Outcome{Symbol: sig.Symbol, Action: sig.Action, Skipped: true, Reason: "no_position"}

	case hyperliquid.OutcomeFilled, hyperliquid.OutcomePartial:
		if meta != nil && result.AvgPrice > 0 {
			pnl := realizedPnL(meta.Direction, meta.EntryPrice, result.AvgPrice)
			if err := e.store.RecordTrade(clk, state.Trade{
				Symbol: sig.Symbol, Side: meta.Direction, EntryPrice: meta.EntryPrice,
				ExitPrice: result.AvgPrice, PnL: pnl, OpenedAt: meta.EntryTime, ClosedAt: clk.Now(),
			}); err != nil {
				return Outcome{Symbol: sig.Symbol, Action: sig.Action, Err: err}
			}
			if _, err := e.store.UpdateDailyPnL(clk, gin.LiveEquity, pnl, nil); err != nil {
				return Outcome{Symbol: sig.Symbol, Action: sig.Action, Err: err}
			}
		}
		if family != "" {
			if err := e.store.DeleteExitMeta(family); err != nil {
				return Outcome{Symbol: sig.Symbol, Action: sig.Action, Err: err}
			}
		}
		return Outcome{Symbol: sig.Symbol, Action: sig.Action, Reason: string(result.Outcome)}

	default:
		return Outcome{Symbol: sig.Symbol, Action: sig.Action, Err: fmt.Errorf("exec: close failed: %s", result.Err)}
	}
}

func realizedPnL(direction string, entry, exit float64) float64 {
	if direction == "short" {
		return entry - exit
	}
	return exit - entry
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
