package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's two named metrics: the request counter and
// the pool's connection gauge.
type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	NodeConnections   prometheus.Gauge
}

// NewMetrics constructs and registers both named metrics on a private
// registry, so /metrics exposes exactly this gateway's own series.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests served, labeled by method, path, and status.",
	}, []string{"method", "path", "status"})

	connections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cardano_node_connections",
		Help: "Number of live connections held by the node connection pool.",
	})

	reg.MustRegister(requests, connections)

	return &Metrics{registry: reg, httpRequestsTotal: requests, NodeConnections: connections}
}

// Handler returns the Prometheus text-exposition HTTP handler for GET /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
