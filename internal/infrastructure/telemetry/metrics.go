package telemetry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coopelec/backend/internal/domain/balance"
	"github.com/coopelec/backend/internal/domain/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names.
const (
	MetricHTTPRequestsTotal        = "http_requests_total"
	MetricHTTPRequestDuration      = "http_request_duration_seconds"
	MetricAnalyticsOperationsTotal = "analytics_operations_total"
	MetricAnalyticsOperationTime   = "analytics_operation_duration_seconds"
	MetricAlertsGeneratedTotal     = "analytics_alerts_generated_total"
	MetricBalanceEntries           = "analytics_balance_entries"
)

// Operation outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalidInput = "invalid_input"
	OutcomeNotFound     = "not_found"
	OutcomeError        = "error"
)

// Metrics owns a Prometheus registry with the HTTP and analytics
// collectors. It is safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	operations      *prometheus.CounterVec
	operationTime   *prometheus.HistogramVec
	alertsGenerated *prometheus.CounterVec
	balanceEntries  *prometheus.HistogramVec
}

// NewMetrics registers every collector, plus the Go runtime and process
// collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricHTTPRequestsTotal,
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPRequestDuration,
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricAnalyticsOperationsTotal,
			Help: "Analytics operations by outcome.",
		}, []string{"operation", "outcome"}),
		operationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricAnalyticsOperationTime,
			Help:    "Analytics operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		alertsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricAlertsGeneratedTotal,
			Help: "Loss alerts generated by type.",
		}, []string{"type"}),
		balanceEntries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricBalanceEntries,
			Help:    "Balance entries produced per request.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.operations,
		m.operationTime,
		m.alertsGenerated,
		m.balanceEntries,
	)
	return m
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTPRequest records one served request. route is the route
// template, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordOperation records an analytics operation and its outcome.
func (m *Metrics) RecordOperation(operation string, duration time.Duration, err error) {
	m.operations.WithLabelValues(operation, Outcome(err)).Inc()
	m.operationTime.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBalanceEntries records how many balance entries an operation produced.
func (m *Metrics) RecordBalanceEntries(operation string, count int) {
	m.balanceEntries.WithLabelValues(operation).Observe(float64(count))
}

// RecordAlerts counts generated alerts by type.
func (m *Metrics) RecordAlerts(stats balance.AlertStats) {
	for alertType, n := range stats.ByType {
		m.alertsGenerated.WithLabelValues(string(alertType)).Add(float64(n))
	}
}

// Outcome classifies err into an outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, shared.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidPeriodFormat):
		return OutcomeInvalidInput
	default:
		return OutcomeError
	}
}
