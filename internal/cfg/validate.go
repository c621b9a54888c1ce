package cfg

import (
	"fmt"

	"hyperwall-agent/internal/common"
)

// validateSettings dispatches to one focused validator per concern, so a
// single bad field produces a specific error instead of a generic "invalid
// config".
func validateSettings(s *Settings) error {
	validators := []func(*Settings) error{
		validateCredentials,
		validateSymbols,
		validatePositionLimits,
		validateLossLimits,
		validateGateThresholds,
		validateRetryPolicy,
		validatePorts,
	}
	for _, v := range validators {
		if err := v(s); err != nil {
			return err
		}
	}
	return nil
}

func validateCredentials(s *Settings) error {
	if !s.DryRun {
		if s.AccountAddress == "" {
			return fmt.Errorf("cfg: %s", common.ErrMsgAccountAddressRequired)
		}
		if s.APIPrivateKey == "" {
			return fmt.Errorf("cfg: %s", common.ErrMsgAPIKeyRequired)
		}
	}
	if s.BaseURL == "" {
		return fmt.Errorf("cfg: %s", common.ErrMsgBaseURLRequired)
	}
	return nil
}

func validateSymbols(s *Settings) error {
	if len(s.Symbols) == 0 {
		return fmt.Errorf("cfg: %s", common.ErrMsgSymbolRequired)
	}
	return nil
}

func validatePositionLimits(s *Settings) error {
	if s.MaxConcurrentPositions <= 0 {
		return fmt.Errorf("cfg: max concurrent positions must be positive, got %d", s.MaxConcurrentPositions)
	}
	if s.MaxSinglePositionPct <= 0 || s.MaxSinglePositionPct > common.MaxSinglePctLimit {
		return fmt.Errorf("cfg: max single position pct must be in (0, %.0f], got %.2f", common.MaxSinglePctLimit, s.MaxSinglePositionPct)
	}
	if s.MaxTotalExposurePct <= 0 || s.MaxTotalExposurePct > common.MaxSinglePctLimit {
		return fmt.Errorf("cfg: max total exposure pct must be in (0, %.0f], got %.2f", common.MaxSinglePctLimit, s.MaxTotalExposurePct)
	}
	if s.MaxLeverage <= 0 || s.MaxLeverage > common.MaxLeverageLimit {
		return fmt.Errorf("cfg: max leverage must be in (0, %.0f], got %.2f", common.MaxLeverageLimit, s.MaxLeverage)
	}
	return nil
}

func validateLossLimits(s *Settings) error {
	if s.DailyLossPct <= 0 {
		return fmt.Errorf("cfg: daily loss pct must be positive, got %.2f", s.DailyLossPct)
	}
	if s.MaxDrawdownPct <= 0 {
		return fmt.Errorf("cfg: max drawdown pct must be positive, got %.2f", s.MaxDrawdownPct)
	}
	if s.MaxEquityDriftPct <= 0 {
		return fmt.Errorf("cfg: max equity drift pct must be positive, got %.2f", s.MaxEquityDriftPct)
	}
	return nil
}

func validateGateThresholds(s *Settings) error {
	if s.MinDataQualityScore < 0 || s.MinDataQualityScore > 1 {
		return fmt.Errorf("cfg: min data quality score must be in [0,1], got %.2f", s.MinDataQualityScore)
	}
	if s.MaxSpreadBps <= 0 {
		return fmt.Errorf("cfg: max spread bps must be positive, got %.2f", s.MaxSpreadBps)
	}
	if s.MinImbalance <= 0 {
		return fmt.Errorf("cfg: min imbalance must be positive, got %.2f", s.MinImbalance)
	}
	if s.MinRR <= 0 {
		return fmt.Errorf("cfg: min RR must be positive, got %.2f", s.MinRR)
	}
	if s.MinOrderSizeUSD < 0 {
		return fmt.Errorf("cfg: min order size usd must be non-negative, got %.2f", s.MinOrderSizeUSD)
	}
	if s.PartialConsensusMinConf < 0 || s.PartialConsensusMinConf > 1 {
		return fmt.Errorf("cfg: partial consensus min confidence must be in [0,1], got %.2f", s.PartialConsensusMinConf)
	}
	if s.MaxDailyLossForNewEntriesPct <= 0 {
		return fmt.Errorf("cfg: max daily loss for new entries pct must be positive, got %.2f", s.MaxDailyLossForNewEntriesPct)
	}
	if s.RegimeMultiplier <= 0 {
		return fmt.Errorf("cfg: regime multiplier must be positive, got %.2f", s.RegimeMultiplier)
	}
	if s.EquitySanityFloorPct <= 0 || s.EquitySanityFloorPct > 100 {
		return fmt.Errorf("cfg: equity sanity floor pct must be in (0,100], got %.2f", s.EquitySanityFloorPct)
	}
	if s.FallbackEscalateAfter <= 0 {
		return fmt.Errorf("cfg: fallback escalate after must be positive, got %d", s.FallbackEscalateAfter)
	}
	return nil
}

func validateRetryPolicy(s *Settings) error {
	if s.RetryBaseDelay <= 0 {
		return fmt.Errorf("cfg: retry base delay must be positive, got %s", s.RetryBaseDelay)
	}
	if s.RetryBackoffFactor <= 1 {
		return fmt.Errorf("cfg: retry backoff factor must be > 1, got %.2f", s.RetryBackoffFactor)
	}
	if s.RetryMaxDelay < s.RetryBaseDelay {
		return fmt.Errorf("cfg: retry max delay must be >= base delay")
	}
	if s.RetryMaxAttempts <= 0 {
		return fmt.Errorf("cfg: retry max attempts must be positive, got %d", s.RetryMaxAttempts)
	}
	return nil
}

func validatePorts(s *Settings) error {
	if s.MetricsPort < common.MinMetricsPort || s.MetricsPort > common.MaxMetricsPort {
		return fmt.Errorf("cfg: metrics port must be in [%d,%d], got %d", common.MinMetricsPort, common.MaxMetricsPort, s.MetricsPort)
	}
	if s.DashboardPort < common.MinMetricsPort || s.DashboardPort > common.MaxMetricsPort {
		return fmt.Errorf("cfg: dashboard port must be in [%d,%d], got %d", common.MinMetricsPort, common.MaxMetricsPort, s.DashboardPort)
	}
	if s.DashboardPort == s.MetricsPort {
		return fmt.Errorf("cfg: dashboard port and metrics port must differ")
	}
	return nil
}
