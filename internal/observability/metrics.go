// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scenario metrics
	ScenarioRunsTotal   *prometheus.CounterVec
	ScenarioRunDuration *prometheus.HistogramVec
	StepsExecuted       prometheus.Counter
	ViolationsDetected  prometheus.Counter

	// Backend metrics
	RPCCallLatency   *prometheus.HistogramVec
	RPCCallErrors    *prometheus.CounterVec
	HarvestsObserved prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
	UptimeSeconds     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "vault_harvest_lab"
	}

	return &Metrics{
		ScenarioRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "runs_total",
			Help:      "Total number of scenario runs by scenario, backend, and status",
		}, []string{"scenario", "backend", "status"}),
		ScenarioRunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "run_duration_seconds",
			Help:      "Scenario run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scenario", "backend"}),
		StepsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "steps_executed_total",
			Help:      "Total number of scenario steps executed",
		}),
		ViolationsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "violations_detected_total",
			Help:      "Total number of invariant violations detected",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "Node RPC call latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_errors_total",
			Help:      "Total number of node RPC call errors",
		}, []string{"method"}),
		HarvestsObserved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "harvests_observed_total",
			Help:      "Total number of harvest notifications received over WebSocket",
		}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last scenario run that passed",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordScenarioRun records a completed scenario run.
func RecordScenarioRun(scenario, backend, status string, durationSeconds float64) {
	DefaultMetrics.ScenarioRunsTotal.WithLabelValues(scenario, backend, status).Inc()
	DefaultMetrics.ScenarioRunDuration.WithLabelValues(scenario, backend).Observe(durationSeconds)
}

// RecordSteps adds to the executed step counter.
func RecordSteps(n int) {
	DefaultMetrics.StepsExecuted.Add(float64(n))
}

// RecordViolations adds to the detected violation counter.
func RecordViolations(n int) {
	DefaultMetrics.ViolationsDetected.Add(float64(n))
}

// RecordRPCCall records node RPC call metrics.
func RecordRPCCall(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordHarvestObserved increments the harvest notification counter.
func RecordHarvestObserved() {
	DefaultMetrics.HarvestsObserved.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordSuccessfulRun stamps the last passing run gauge.
func RecordSuccessfulRun(unixSeconds float64) {
	DefaultMetrics.LastSuccessfulRun.Set(unixSeconds)
}
