package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	Webhooks        *prometheus.CounterVec
	Logins          *prometheus.CounterVec
	Orders          *prometheus.CounterVec
	KeepalivePings  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "webhooks_total",
			Help:      "Webhook invocations by terminal outcome.",
		}, []string{"outcome"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "brokerage_logins_total",
			Help:      "Brokerage login attempts by result.",
		}, []string{"result"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "orders_total",
			Help:      "Order submissions by outcome.",
		}, []string{"outcome"}),
		KeepalivePings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "keepalive_pings_total",
			Help:      "Keep-alive pings by result.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relay",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(
		m.Webhooks,
		m.Logins,
		m.Orders,
		m.KeepalivePings,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The Observe helpers are no-ops on a nil *Metrics so components can run without metrics in tests.

func (m *Metrics) ObserveWebhook(outcome string) {
	if m != nil {
		m.Webhooks.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveLogin(result string) {
	if m != nil {
		m.Logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveOrder(outcome string) {
	if m != nil {
		m.Orders.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObservePing(result string) {
	if m != nil {
		m.KeepalivePings.WithLabelValues(result).Inc()
	}
}
