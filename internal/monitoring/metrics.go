package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes used as the "outcome" label
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Metrics holds the simulation collectors. It satisfies the engine's
// run recorder so every run reports into the registry it was built with.
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	runsInFlight  prometheus.Gauge
	tradesTotal   *prometheus.CounterVec
	stepFailures  prometheus.Counter
	lastReturnPct prometheus.Gauge

	health *HealthChecker
}

// NewMetrics registers the collectors with reg. health may be nil.
func NewMetrics(reg prometheus.Registerer, health *HealthChecker) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sim_runs_total",
				Help: "Total number of backtest runs by outcome",
			},
			[]string{"outcome"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sim_run_duration_seconds",
				Help:    "Distribution of backtest run durations",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		runsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sim_runs_in_flight",
				Help: "Backtest runs currently executing",
			},
		),
		tradesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sim_trades_total",
				Help: "Total number of simulated fills",
			},
			[]string{"side", "reason"},
		),
		stepFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sim_step_failures_total",
				Help: "Candles replaced by a neutral record after a computation failure",
			},
		),
		lastReturnPct: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sim_last_run_return_pct",
				Help: "Total return of the most recent successful run",
			},
		),
		health: health,
	}
}

// RunStarted records a run entering the engine
func (m *Metrics) RunStarted() {
	m.runsInFlight.Inc()
	if m.health != nil {
		m.health.runStarted()
	}
}

// RunFinished records a run's outcome
func (m *Metrics) RunFinished(outcome string, duration time.Duration, returnPct float64) {
	m.runsInFlight.Dec()
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		m.lastReturnPct.Set(returnPct)
	}
	if m.health != nil {
		m.health.runFinished(outcome)
	}
}

// TradeExecuted counts one fill
func (m *Metrics) TradeExecuted(side, reason string) {
	if reason == "" {
		reason = "entry"
	}
	m.tradesTotal.WithLabelValues(side, reason).Inc()
}

// StepFailed counts one substituted candle
func (m *Metrics) StepFailed() {
	m.stepFailures.Inc()
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
