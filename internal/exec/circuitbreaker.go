package exec

import (
	"math"
	"sync"
	"time"

	"hyperwall-agent/internal/clock"
)

// CircuitBreakerLimits configures the four independently-trippable breakers.
type CircuitBreakerLimits struct {
	VolatilityThreshold float64 // ATR short/long ratio
	ImbalanceThreshold  float64 // top-5 book imbalance ratio
	VolumeThreshold     float64 // volume-spike ratio
	ErrorRateThreshold  float64 // fraction of this cycle's exchange calls that errored
	RecoveryTime        time.Duration
}

// CircuitBreaker suspends new entries when market conditions or the
// exchange's own error rate look anomalous enough that no single
// strategy's zone/threshold logic can be trusted this cycle. Each breaker
// trips on its own reading, but all share one recovery timer: a tripped
// breaker clears only once RecoveryTime has passed since the last breach of
// any breaker.
type CircuitBreaker struct {
	mu     sync.RWMutex
	limits CircuitBreakerLimits

	volatilityBreaker bool
	imbalanceBreaker  bool
	volumeBreaker     bool
	errorRateBreaker  bool

	lastTriggered time.Time
}

func NewCircuitBreaker(limits CircuitBreakerLimits) *CircuitBreaker {
	return &CircuitBreaker{limits: limits}
}

// UpdateMarketConditions feeds this cycle's ATR short/long ratio, top-5 book
// imbalance ratio, and volume-spike ratio into the volatility/imbalance/
// volume breakers.
func (cb *CircuitBreaker) UpdateMarketConditions(clk clock.Clock, atrRatio, imbalance, volumeRatio float64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := clk.Now()

	cb.volatilityBreaker = updateBreaker(cb.volatilityBreaker, atrRatio > cb.limits.VolatilityThreshold, now, &cb.lastTriggered, cb.limits.RecoveryTime)
	cb.imbalanceBreaker = updateBreaker(cb.imbalanceBreaker, math.Abs(imbalance) > cb.limits.ImbalanceThreshold, now, &cb.lastTriggered, cb.limits.RecoveryTime)
	cb.volumeBreaker = updateBreaker(cb.volumeBreaker, volumeRatio > cb.limits.VolumeThreshold, now, &cb.lastTriggered, cb.limits.RecoveryTime)
}

// UpdateErrorRate feeds the fraction of this cycle's exchange calls that
// errored into the error-rate breaker.
func (cb *CircuitBreaker) UpdateErrorRate(clk clock.Clock, errorRate float64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.errorRateBreaker = updateBreaker(cb.errorRateBreaker, errorRate > cb.limits.ErrorRateThreshold, clk.Now(), &cb.lastTriggered, cb.limits.RecoveryTime)
}

// updateBreaker trips immediately on a breaching reading, and only clears
// once RecoveryTime has elapsed since the last trip of ANY breaker — a
// shared cool-down, since an anomaly in one dimension usually means the
// others aren't trustworthy either.
func updateBreaker(current bool, breaching bool, now time.Time, lastTriggered *time.Time, recovery time.Duration) bool {
	if breaching {
		*lastTriggered = now
		return true
	}
	if !current {
		return false
	}
	if now.Sub(*lastTriggered) > recovery {
		return false
	}
	return true
}

// IsTripped reports whether any breaker is currently active.
func (cb *CircuitBreaker) IsTripped() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.volatilityBreaker || cb.imbalanceBreaker || cb.volumeBreaker || cb.errorRateBreaker
}

// Status returns the per-breaker state, for the dashboard/metrics surface.
func (cb *CircuitBreaker) Status() map[string]bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return map[string]bool{
		"volatility": cb.volatilityBreaker,
		"imbalance":  cb.imbalanceBreaker,
		"volume":     cb.volumeBreaker,
		"error_rate": cb.errorRateBreaker,
	}
}
