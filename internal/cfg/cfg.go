// Package cfg provides configuration management for the trading agent. It
// supports loading configuration from environment variables or from a YAML
// file; with a YAML file, environment values seed the settings and non-empty
// YAML values override them. It validates
// every risk- and strategy-relevant parameter at startup so a bad config
// fails fast rather than mid-cycle.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"hyperwall-agent/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings holds every configuration parameter for the agent.
type Settings struct {
	// Exchange credentials and connection.
	AccountAddress string
	APIPrivateKey  string
	BaseURL        string
	RESTTimeout    time.Duration
	DryRun         bool

	// Trading universe.
	Symbols       []string
	SymbolConfigs map[string]SymbolConfig

	// Paths.
	DataPath    string
	StatePath   string
	SignalsPath string

	// Scheduling.
	CycleInterval time.Duration

	// System.
	MetricsPort   int
	DashboardPort int

	// Risk parameters (section 4.6).
	MaxConcurrentPositions    int
	MaxSinglePositionPct      float64
	MaxTotalExposurePct       float64
	MaxLeverage               float64
	DailyLossPct              float64
	MaxDrawdownPct            float64
	MaxEquityDriftPct         float64
	MinDataQualityScore       float64
	MaxSpreadBps              float64
	MinImbalance              float64
	EntryCooldownMinutes      float64
	MinRR                     float64
	MinHoldMinutes            float64
	MinHoldOverrideConfidence float64
	MinOrderSizeUSD           float64
	ConsecutiveFailureAlert   int

	PartialConsensusMinConf      float64
	MaxDailyLossForNewEntriesPct float64
	RegimeMultiplier             float64
	PerSymbolHardCapUSD          float64
	PerTradeNotionalCapUSD       float64

	EquitySanityFloorPct  float64
	FallbackEscalateAfter int
	FallbackCooldown      time.Duration

	// Retry policy (section 5).
	RetryBaseDelay     time.Duration
	RetryBackoffFactor float64
	RetryMaxDelay      time.Duration
	RetryMaxAttempts   int

	// Executor circuit breaker (section 4.7).
	CircuitBreakerVolatility   float64
	CircuitBreakerImbalance    float64
	CircuitBreakerVolume       float64
	CircuitBreakerErrorRate    float64
	CircuitBreakerRecoveryTime time.Duration
}

// SymbolConfig overrides strategy/risk parameters for one symbol.
type SymbolConfig struct {
	MaxSinglePositionPct float64 `yaml:"maxSinglePositionPct"`
	MaxLeverage          float64 `yaml:"maxLeverage"`
	VolThreshold         float64 `yaml:"volThreshold"`
}

type configFile struct {
	AccountAddress string                  `yaml:"accountAddress"`
	APIPrivateKey  string                  `yaml:"apiPrivateKey"`
	BaseURL        string                  `yaml:"baseURL"`
	Symbols        []string                `yaml:"symbols"`
	DataPath       string                  `yaml:"dataPath"`
	StatePath      string                  `yaml:"statePath"`
	SignalsPath    string                  `yaml:"signalsPath"`
	DryRun         bool                    `yaml:"dryRun"`
	SymbolConfigs  map[string]SymbolConfig `yaml:"symbolConfigs"`
}

// Load reads configuration from CONFIG_FILE's YAML if set, otherwise from
// environment variables (with a best-effort .env load first, mirroring the
// teacher's dual-path loader).
func Load() (*Settings, error) {
	_ = godotenv.Load()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		s, err := loadFromYAML(path)
		if err != nil {
			return nil, err
		}
		return finalize(s)
	}
	s := loadFromEnv()
	return finalize(s)
}

func loadFromYAML(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cfg: read %s: %w", path, err)
	}
	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("cfg: parse %s: %w", path, err)
	}

	s := loadFromEnv() // env values seed defaults, YAML overrides below
	if cf.AccountAddress != "" {
		s.AccountAddress = cf.AccountAddress
	}
	if cf.APIPrivateKey != "" {
		s.APIPrivateKey = cf.APIPrivateKey
	}
	if cf.BaseURL != "" {
		s.BaseURL = cf.BaseURL
	}
	if len(cf.Symbols) > 0 {
		s.Symbols = cf.Symbols
	}
	if cf.DataPath != "" {
		s.DataPath = cf.DataPath
	}
	if cf.StatePath != "" {
		s.StatePath = cf.StatePath
	}
	if cf.SignalsPath != "" {
		s.SignalsPath = cf.SignalsPath
	}
	s.DryRun = s.DryRun || cf.DryRun
	if cf.SymbolConfigs != nil {
		s.SymbolConfigs = cf.SymbolConfigs
	}
	return s, nil
}

func loadFromEnv() *Settings {
	return &Settings{
		AccountAddress: getEnvOrDefault(common.EnvAccountAddress, ""),
		APIPrivateKey:  getEnvOrDefault(common.EnvAPIPrivateKey, ""),
		BaseURL:        getEnvOrDefault(common.EnvBaseURL, common.DefaultBaseURL),
		RESTTimeout:    getDurationOrDefault(common.EnvRESTTimeout, common.DefaultRESTTimeout),
		DryRun:         getBoolOrDefault(common.EnvDryRun, true),

		Symbols:       splitOrDefault(common.EnvSymbols, []string{common.SymbolBTC, common.SymbolETH, common.SymbolSOL, common.SymbolHYPE}),
		SymbolConfigs: map[string]SymbolConfig{},

		DataPath:    getEnvOrDefault(common.EnvDataPath, "data"),
		StatePath:   getEnvOrDefault(common.EnvStatePath, "state"),
		SignalsPath: getEnvOrDefault(common.EnvSignalsPath, "signals"),

		CycleInterval: getDurationOrDefault(common.EnvCycleInterval, common.DefaultCycleInterval),

		MetricsPort:   getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		DashboardPort: getIntOrDefault(common.EnvDashboardPort, common.DefaultDashboardPort),

		MaxConcurrentPositions:    getIntOrDefault(common.EnvMaxConcurrent, common.DefaultMaxConcurrent),
		MaxSinglePositionPct:      getFloatOrDefault(common.EnvMaxSinglePct, common.DefaultMaxSinglePct),
		MaxTotalExposurePct:       getFloatOrDefault(common.EnvMaxTotalExposurePct, common.DefaultMaxTotalExposurePct),
		MaxLeverage:               getFloatOrDefault(common.EnvMaxLeverage, common.DefaultMaxLeverage),
		DailyLossPct:              getFloatOrDefault(common.EnvDailyLossPct, common.DefaultDailyLossPct),
		MaxDrawdownPct:            getFloatOrDefault(common.EnvMaxDrawdownPct, common.DefaultMaxDrawdownPct),
		MaxEquityDriftPct:         getFloatOrDefault(common.EnvMaxEquityDriftPct, common.DefaultMaxEquityDriftPct),
		MinDataQualityScore:       getFloatOrDefault(common.EnvMinDataQualityScore, common.DefaultMinDataQualityScore),
		MaxSpreadBps:              getFloatOrDefault(common.EnvMaxSpreadBps, common.DefaultMaxSpreadBps),
		MinImbalance:              getFloatOrDefault(common.EnvMinImbalance, common.DefaultMinImbalance),
		EntryCooldownMinutes:      getFloatOrDefault(common.EnvEntryCooldownMinutes, common.DefaultEntryCooldownMinutes),
		MinRR:                     getFloatOrDefault(common.EnvMinRR, common.DefaultMinRR),
		MinHoldMinutes:            getFloatOrDefault(common.EnvMinHoldMinutes, common.DefaultMinHoldMinutes),
		MinHoldOverrideConfidence: common.DefaultMinHoldOverrideConf,
		MinOrderSizeUSD:           getFloatOrDefault(common.EnvMinOrderSizeUSD, common.DefaultMinOrderSizeUSD),
		ConsecutiveFailureAlert:   getIntOrDefault(common.EnvConsecutiveFailAlert, common.DefaultConsecutiveFailAlert),

		PartialConsensusMinConf:      getFloatOrDefault(common.EnvPartialConsensusMinConf, common.DefaultPartialConsensusMinConf),
		MaxDailyLossForNewEntriesPct: getFloatOrDefault(common.EnvMaxDailyLossForNewEntriesPct, common.DefaultMaxDailyLossForNewEntriesPct),
		RegimeMultiplier:             getFloatOrDefault(common.EnvRegimeMultiplier, common.DefaultRegimeMultiplier),
		PerSymbolHardCapUSD:          getFloatOrDefault(common.EnvPerSymbolHardCapUSD, common.DefaultPerSymbolHardCapUSD),
		PerTradeNotionalCapUSD:       getFloatOrDefault(common.EnvPerTradeNotionalCapUSD, common.DefaultPerTradeNotionalCapUSD),

		EquitySanityFloorPct:  getFloatOrDefault(common.EnvEquitySanityFloorPct, common.DefaultEquitySanityFloorPct),
		FallbackEscalateAfter: getIntOrDefault(common.EnvFallbackEscalateAfter, common.DefaultFallbackEscalateAfter),
		FallbackCooldown:      getDurationOrDefault(common.EnvFallbackCooldown, common.DefaultFallbackCooldown),

		RetryBaseDelay:     getDurationOrDefault(common.EnvRetryBaseDelay, common.DefaultRetryBaseDelay),
		RetryBackoffFactor: getFloatOrDefault(common.EnvRetryBackoffFactor, common.DefaultRetryBackoffFactor),
		RetryMaxDelay:      getDurationOrDefault(common.EnvRetryMaxDelay, common.DefaultRetryMaxDelay),
		RetryMaxAttempts:   getIntOrDefault(common.EnvRetryMaxAttempts, common.DefaultRetryMaxAttempts),

		CircuitBreakerVolatility:   getFloatOrDefault(common.EnvCircuitBreakerVolatility, common.DefaultCircuitBreakerVolatility),
		CircuitBreakerImbalance:    getFloatOrDefault(common.EnvCircuitBreakerImbalance, common.DefaultCircuitBreakerImbalance),
		CircuitBreakerVolume:       getFloatOrDefault(common.EnvCircuitBreakerVolume, common.DefaultCircuitBreakerVolume),
		CircuitBreakerErrorRate:    getFloatOrDefault(common.EnvCircuitBreakerErrorRate, common.DefaultCircuitBreakerErrorRate),
		CircuitBreakerRecoveryTime: getDurationOrDefault(common.EnvCircuitBreakerRecoveryTime, common.DefaultCircuitBreakerRecoveryTime),
	}
}

func finalize(s *Settings) (*Settings, error) {
	if err := validateSettings(s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSymbolConfig returns the override for symbol, or a zero-value
// SymbolConfig (meaning "use global defaults") if none is configured.
func (s *Settings) GetSymbolConfig(symbol string) SymbolConfig {
	if sc, ok := s.SymbolConfigs[symbol]; ok {
		return sc
	}
	return SymbolConfig{}
}

func getEnvOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntOrDefault(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloatOrDefault(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolOrDefault(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationOrDefault(key, def string) time.Duration {
	raw := getEnvOrDefault(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}

func splitOrDefault(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
