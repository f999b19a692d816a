package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exported by the service on its own registry.
type Metrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	durations    *prometheus.HistogramVec
	spends       *prometheus.CounterVec
	totalPoints  prometheus.Gauge
	transactions prometheus.Gauge
}

// NewMetrics registers the service collectors on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "points_ledger"
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		spends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "spends_total",
			Help:      "Spend requests segmented by outcome.",
		}, []string{"outcome"}),
		totalPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "total_points",
			Help:      "Points currently available to spend.",
		}),
		transactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transactions",
			Help:      "Transactions held in the log.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.durations,
		m.spends,
		m.totalPoints,
		m.transactions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSpend counts a spend attempt; outcome is "ok", "insufficient" or "invalid".
func (m *Metrics) ObserveSpend(outcome string) {
	if m == nil {
		return
	}
	m.spends.WithLabelValues(outcome).Inc()
}

// SetLedgerState records the current size of the log and the spendable total.
func (m *Metrics) SetLedgerState(total int64, transactions int) {
	if m == nil {
		return
	}
	m.totalPoints.Set(float64(total))
	m.transactions.Set(float64(transactions))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
