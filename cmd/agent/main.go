// Command agent runs the perpetual-futures trading loop: a time.Ticker-driven
// cycle scheduler wiring the collector, strategy engine, arbiter, risk gate,
// executor, and supervisor together against a single state store.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"hyperwall-agent/internal/cfg"
	"hyperwall-agent/internal/clock"
	"hyperwall-agent/internal/dashboard"
	"hyperwall-agent/internal/exchange/hyperliquid"
	"hyperwall-agent/internal/exec"
	"hyperwall-agent/internal/market"
	"hyperwall-agent/internal/metrics"
	"hyperwall-agent/internal/retry"
	"hyperwall-agent/internal/risk"
	"hyperwall-agent/internal/state"
	"hyperwall-agent/internal/supervisor"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := build(settings)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: fmt.Sprintf(":%d", settings.MetricsPort), Handler: mux}

		go func() {
			<-ctx.Done()
			server.Shutdown(context.Background())
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	if err := a.dash.Start(); err != nil {
		log.Error().Err(err).Msg("dashboard failed to start, continuing without it")
	} else {
		defer a.dash.Stop()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context cancelled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all goroutines stopped")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}

// agent wires every subsystem against one state store and one clock.
type agent struct {
	settings *cfg.Settings
	ex       *hyperliquid.Client
	store    *state.Store
	collector *market.Collector
	metrics  *metrics.Metrics
	dash     *dashboard.Dashboard
	sup      *supervisor.Supervisor
	executor *exec.Exec
	clk      clock.Clock
	eng      strategyEngine
	limits   risk.Limits

	retryPolicy retry.Policy
	families    []string

	prior map[string]hyperliquid.Snapshot
}

// closeAdapter narrows *hyperliquid.Client to the supervisor's emergency-close
// surface, which has no context parameter and reports only an error.
type closeAdapter struct {
	ex  *hyperliquid.Client
	ctx context.Context
}

func (c closeAdapter) MarketClose(symbol string) error {
	_, err := c.ex.MarketClose(c.ctx, symbol)
	return err
}

func build(settings *cfg.Settings) *agent {
	ex := hyperliquid.New(settings.AccountAddress, settings.APIPrivateKey, settings.BaseURL, settings.RESTTimeout)
	st := state.NewStore(state.Paths{Data: settings.DataPath, State: settings.StatePath, Signals: settings.SignalsPath})

	families := []string{familyBTCWall, familyETHBand, familySOLWall, familyBTCWaveRider, familyHYPEWaveRider}

	limits := risk.Limits{
		MaxConcurrent:                settings.MaxConcurrentPositions,
		MaxLeverage:                  settings.MaxLeverage,
		MaxSinglePct:                 settings.MaxSinglePositionPct,
		MaxTotalExposurePct:          settings.MaxTotalExposurePct,
		MaxEquityDriftPct:            settings.MaxEquityDriftPct,
		PartialConsensusMinConf:      settings.PartialConsensusMinConf,
		MaxDailyLossForNewEntriesPct: settings.MaxDailyLossForNewEntriesPct,
		MinDataQualityScore:          settings.MinDataQualityScore,
		MaxSpreadBps:                 settings.MaxSpreadBps,
		MinImbalance:                 settings.MinImbalance,
		EntryCooldownMinutes:         settings.EntryCooldownMinutes,
		MinRR:                        settings.MinRR,
		RegimeMultiplier:             settings.RegimeMultiplier,
		PerSymbolHardCapUSD:          settings.PerSymbolHardCapUSD,
		PerTradeNotionalCap:          settings.PerTradeNotionalCapUSD,
		MinOrderSizeUSD:              settings.MinOrderSizeUSD,
	}

	breakerLimits := exec.CircuitBreakerLimits{
		VolatilityThreshold: settings.CircuitBreakerVolatility,
		ImbalanceThreshold:  settings.CircuitBreakerImbalance,
		VolumeThreshold:     settings.CircuitBreakerVolume,
		ErrorRateThreshold:  settings.CircuitBreakerErrorRate,
		RecoveryTime:        settings.CircuitBreakerRecoveryTime,
	}

	return &agent{
		settings:  settings,
		ex:        ex,
		store:     st,
		collector: market.New(ex, settings.Symbols),
		metrics:   metrics.New(),
		dash:      dashboard.New(st, settings.DashboardPort),
		sup: supervisor.New(st, supervisor.Limits{
			FailureAlertThreshold: settings.ConsecutiveFailureAlert,
			DailyLossLimitPct:     settings.DailyLossPct,
			MaxDrawdownPct:        settings.MaxDrawdownPct,
			EquitySanityFloorPct:  settings.EquitySanityFloorPct,
			FallbackEscalateAfter: settings.FallbackEscalateAfter,
			FallbackCooldown:      settings.FallbackCooldown,
		}),
		executor: exec.New(ex, st, 0.005, breakerLimits),
		clk:      clock.Real{},
		eng:      newStrategyEngine(settings),
		limits:   limits,
		retryPolicy: retry.Policy{
			MaxRetries:    settings.RetryMaxAttempts,
			BaseDelay:     settings.RetryBaseDelay,
			BackoffFactor: settings.RetryBackoffFactor,
			MaxDelay:      settings.RetryMaxDelay,
		},
		families: families,
		prior:    make(map[string]hyperliquid.Snapshot),
	}
}

// run drives the ticker-scheduled cycle loop. Cancellation is only honored
// between cycles — a cycle in flight always runs to completion, matching the
// teacher's long-lived-goroutine-with-context idiom.
func (a *agent) run(ctx context.Context) {
	log.Info().Dur("interval", a.settings.CycleInterval).Msg("agent: starting cycle loop")

	a.runCycle(ctx)

	ticker := time.NewTicker(a.settings.CycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runCycle(ctx)
		}
	}
}
