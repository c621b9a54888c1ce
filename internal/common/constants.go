// Package common holds environment variable names, defaults, and shared
// error strings referenced across packages — kept here so they don't drift
// out of sync between the config loader and its validators.
package common

// Trading symbols known to the default configuration.
const (
	SymbolBTC  = "BTC"
	SymbolETH  = "ETH"
	SymbolSOL  = "SOL"
	SymbolHYPE = "HYPE"
)

// Environment variable keys.
const (
	EnvAccountAddress  = "ACCOUNT_ADDRESS"
	EnvAPIPrivateKey   = "API_PRIVATE_KEY"
	EnvForceLiveTrading = "FORCE_LIVE_TRADING"
	EnvSymbols         = "SYMBOLS"
	EnvBaseURL         = "EXCHANGE_BASE_URL"
	EnvDataPath        = "DATA_PATH"
	EnvStatePath       = "STATE_PATH"
	EnvSignalsPath     = "SIGNALS_PATH"
	EnvCycleInterval   = "CYCLE_INTERVAL"
	EnvRESTTimeout     = "REST_TIMEOUT"
	EnvMetricsPort     = "METRICS_PORT"
	EnvDashboardPort   = "DASHBOARD_PORT"
	EnvDryRun          = "DRY_RUN"

	EnvMaxConcurrent         = "MAX_CONCURRENT_POSITIONS"
	EnvMaxSinglePct          = "MAX_SINGLE_POSITION_PCT"
	EnvMaxTotalExposurePct   = "MAX_TOTAL_EXPOSURE_PCT"
	EnvMaxLeverage           = "MAX_LEVERAGE"
	EnvDailyLossPct          = "DAILY_LOSS_PCT"
	EnvMaxDrawdownPct        = "MAX_DRAWDOWN_PCT"
	EnvMaxEquityDriftPct     = "MAX_EQUITY_DRIFT_PCT"
	EnvMinDataQualityScore   = "MIN_DATA_QUALITY_SCORE"
	EnvMaxSpreadBps          = "MAX_SPREAD_BPS"
	EnvMinImbalance          = "MIN_IMBALANCE"
	EnvEntryCooldownMinutes  = "ENTRY_COOLDOWN_MINUTES"
	EnvMinRR                 = "MIN_RR"
	EnvMinHoldMinutes        = "MIN_HOLD_MINUTES"
	EnvMinOrderSizeUSD       = "MIN_ORDER_SIZE_USD"
	EnvConsecutiveFailAlert  = "CONSECUTIVE_FAILURE_ALERT_THRESHOLD"

	EnvRetryBaseDelay    = "RETRY_BASE_DELAY"
	EnvRetryBackoffFactor = "RETRY_BACKOFF_FACTOR"
	EnvRetryMaxDelay     = "RETRY_MAX_DELAY"
	EnvRetryMaxAttempts  = "RETRY_MAX_ATTEMPTS"

	EnvCircuitBreakerVolatility   = "CIRCUIT_BREAKER_VOLATILITY_THRESHOLD"
	EnvCircuitBreakerImbalance    = "CIRCUIT_BREAKER_IMBALANCE_THRESHOLD"
	EnvCircuitBreakerVolume       = "CIRCUIT_BREAKER_VOLUME_THRESHOLD"
	EnvCircuitBreakerErrorRate    = "CIRCUIT_BREAKER_ERROR_RATE_THRESHOLD"
	EnvCircuitBreakerRecoveryTime = "CIRCUIT_BREAKER_RECOVERY_TIME"

	EnvPartialConsensusMinConf      = "PARTIAL_CONSENSUS_MIN_CONFIDENCE"
	EnvMaxDailyLossForNewEntriesPct = "MAX_DAILY_LOSS_FOR_NEW_ENTRIES_PCT"
	EnvRegimeMultiplier             = "REGIME_MULTIPLIER"
	EnvPerSymbolHardCapUSD          = "PER_SYMBOL_HARD_CAP_USD"
	EnvPerTradeNotionalCapUSD       = "PER_TRADE_NOTIONAL_CAP_USD"
	EnvEquitySanityFloorPct         = "EQUITY_SANITY_FLOOR_PCT"
	EnvFallbackEscalateAfter        = "FALLBACK_ESCALATE_AFTER"
	EnvFallbackCooldown             = "FALLBACK_COOLDOWN"
)

// Configuration defaults.
const (
	DefaultBaseURL              = "https://api.hyperliquid.xyz"
	DefaultMetricsPort          = 9090
	DefaultDashboardPort        = 9091
	DefaultCycleInterval        = "5m"
	DefaultRESTTimeout          = "10s"
	DefaultMaxConcurrent        = 3
	DefaultMaxSinglePct         = 10.0
	DefaultMaxTotalExposurePct  = 30.0
	DefaultMaxLeverage          = 10.0
	DefaultDailyLossPct         = 5.0
	DefaultMaxDrawdownPct       = 15.0
	DefaultMaxEquityDriftPct    = 5.0
	DefaultMinDataQualityScore  = 0.70
	DefaultMaxSpreadBps         = 15.0
	DefaultMinImbalance         = 0.9
	DefaultEntryCooldownMinutes = 10.0
	DefaultMinRR                = 1.2
	DefaultMinHoldMinutes       = 5.0
	DefaultMinHoldOverrideConf  = 0.90
	DefaultMinOrderSizeUSD      = 10.0
	DefaultConsecutiveFailAlert = 3

	DefaultRetryBaseDelay     = "500ms"
	DefaultRetryBackoffFactor = 2.0
	DefaultRetryMaxDelay      = "30s"
	DefaultRetryMaxAttempts   = 4

	// Circuit breaker thresholds guard the executor against conditions no
	// single strategy rule checks: an ATR short/long ratio far past the
	// per-strategy volatility-regime bands, a top-5 book imbalance past
	// what the entry gate's min_imbalance check alone would catch, a
	// volume spike far beyond any strategy's own vol_threshold, or an
	// exchange error rate across the cycle's order calls.
	DefaultCircuitBreakerVolatility   = 3.0
	DefaultCircuitBreakerImbalance    = 5.0
	DefaultCircuitBreakerVolume       = 10.0
	DefaultCircuitBreakerErrorRate    = 0.5
	DefaultCircuitBreakerRecoveryTime = "10m"

	// Entry-gate consensus/loss-budget checks and sizing caps not covered above.
	DefaultPartialConsensusMinConf      = 0.75
	DefaultMaxDailyLossForNewEntriesPct = 3.0
	DefaultRegimeMultiplier             = 1.0
	DefaultPerSymbolHardCapUSD          = 5000.0
	DefaultPerTradeNotionalCapUSD       = 2000.0

	// Supervisor: equity below this % of start-of-day is treated as a stale
	// reading rather than a real loss, and fallback-streak escalation.
	DefaultEquitySanityFloorPct  = 50.0
	DefaultFallbackEscalateAfter = 6
	DefaultFallbackCooldown      = "30m"
)

// Common error messages.
const (
	ErrMsgAccountAddressRequired = "account address is required"
	ErrMsgAPIKeyRequired         = "API private key is required"
	ErrMsgBaseURLRequired        = "exchange base URL is required"
	ErrMsgSymbolRequired         = "at least one trading symbol is required"
	ErrMsgForceLiveTradingRequired = "live trading requires FORCE_LIVE_TRADING=true environment variable"
)

// Validation bounds.
const (
	MinMetricsPort = 1024
	MaxMetricsPort = 65535
	MaxSinglePctLimit = 100.0
	MaxLeverageLimit  = 125.0
)
