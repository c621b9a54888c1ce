// Package metrics provides Prometheus metrics for the trading agent. It
// defines and registers every counter, gauge, and histogram exposed via the
// /metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric the agent records each cycle.
type Metrics struct {
	CycleDuration prometheus.Histogram // Wall-clock duration of one full cycle
	CyclesTotal   prometheus.Counter   // Total cycles run

	SignalsTotal *prometheus.CounterVec // By action (long/short/close/hold/hold_position)
	RiskRejected *prometheus.CounterVec // By rejection reason

	OrdersTotal   *prometheus.CounterVec // By outcome (filled/partial/failed/no_position)
	OrderDuration prometheus.Histogram

	KillSwitchActive prometheus.Gauge
	DailyPnL         prometheus.Gauge
	DailyDrawdownPct prometheus.Gauge
	ActivePositions  prometheus.Gauge

	ConsecutiveFailures prometheus.Gauge
	RetryExhaustedTotal prometheus.Counter

	ExchangeErrorsTotal prometheus.Counter
}

// New registers every metric on the default Prometheus registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers every metric on a caller-supplied registry, so
// tests can use an isolated one.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agent_cycle_duration_seconds",
			Help:    "Duration of one full collector->strategy->arbiter->executor cycle",
			Buckets: prometheus.DefBuckets,
		}),
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "agent_cycles_total",
			Help: "Total number of cycles run",
		}),
		SignalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_signals_total",
			Help: "Total signals emitted by the arbiter, by action",
		}, []string{"action"}),
		RiskRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_risk_rejected_total",
			Help: "Total signals rejected by the risk gate, by reason",
		}, []string{"reason"}),
		OrdersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_orders_total",
			Help: "Total orders placed, by outcome",
		}, []string{"outcome"}),
		OrderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agent_order_duration_seconds",
			Help:    "Duration of exchange order calls",
			Buckets: prometheus.DefBuckets,
		}),
		KillSwitchActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agent_kill_switch_active",
			Help: "1 if the kill switch is currently active, 0 otherwise",
		}),
		DailyPnL: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agent_daily_pnl",
			Help: "Current day's realized + unrealized PnL",
		}),
		DailyDrawdownPct: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agent_daily_drawdown_pct",
			Help: "Drawdown from the realized-only peak, as a percentage",
		}),
		ActivePositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agent_active_positions",
			Help: "Number of currently open positions",
		}),
		ConsecutiveFailures: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agent_consecutive_failures",
			Help: "Consecutive cycles where every configured symbol lacked candle data",
		}),
		RetryExhaustedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "agent_retry_exhausted_total",
			Help: "Total retry-exhaustion escalations to safe-hold",
		}),
		ExchangeErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "agent_exchange_errors_total",
			Help: "Total exchange adapter call errors",
		}),
	}
}
