// Package metrics provides Prometheus metrics for the migration runner.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for a migrate run.
type Metrics struct {
	StatementsPlanned  prometheus.Counter
	StatementsExecuted prometheus.Counter
	MigrationDuration  prometheus.Histogram
	MigrationErrors    *prometheus.CounterVec
	InSync             prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.StatementsPlanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hive_migration_statements_planned_total",
			Help: "Total number of DDL statements produced by the differ across all runs",
		},
	)

	m.StatementsExecuted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hive_migration_statements_executed_total",
			Help: "Total number of DDL statements successfully executed",
		},
	)

	m.MigrationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hive_migration_duration_seconds",
			Help:    "Wall-clock duration of a migrate invocation, introspection through commit",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.MigrationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hive_migration_errors_total",
			Help: "Total number of failed migrate invocations by stage",
		},
		[]string{"stage"},
	)

	m.InSync = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hive_migration_in_sync",
			Help: "1 if the most recent migrate invocation found an empty plan, 0 otherwise",
		},
	)

	m.registry.MustRegister(
		m.StatementsPlanned,
		m.StatementsExecuted,
		m.MigrationDuration,
		m.MigrationErrors,
		m.InSync,
	)
	m.registry.MustRegister(prometheus.NewGoCollector())
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return m
}

// Handler returns an HTTP handler serving these metrics in Prometheus
// exposition format, for the opt-in --metrics-addr server.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordRun updates all counters/gauges for one completed migrate
// invocation, successful or not.
func (m *Metrics) RecordRun(planned, executed int, duration time.Duration, stageOnError string) {
	m.StatementsPlanned.Add(float64(planned))
	m.StatementsExecuted.Add(float64(executed))
	m.MigrationDuration.Observe(duration.Seconds())
	if stageOnError != "" {
		m.MigrationErrors.WithLabelValues(stageOnError).Inc()
		m.InSync.Set(0)
		return
	}
	if planned == 0 {
		m.InSync.Set(1)
	} else {
		m.InSync.Set(0)
	}
}
