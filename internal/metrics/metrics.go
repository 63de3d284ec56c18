// Package metrics exposes the gateway's Prometheus instruments.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the gateway instruments behind one registry.
type Metrics struct {
	registry *prometheus.Registry

	// Requests counts proxied requests by kind and relayed status.
	Requests *prometheus.CounterVec
	// Duration observes end-to-end request latency by kind.
	Duration *prometheus.HistogramVec
	// Selections counts how often each backend was picked.
	Selections *prometheus.CounterVec
}

// New creates the instruments and registers them together with the
// standard process and Go collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelgate_requests_total",
			Help: "Proxied requests by kind and relayed HTTP status.",
		}, []string{"kind", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "modelgate_request_duration_seconds",
			Help:    "End-to-end request latency by kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelgate_backend_selections_total",
			Help: "Backend selections by backend id.",
		}, []string{"backend_id"}),
	}

	reg.MustRegister(
		m.Requests,
		m.Duration,
		m.Selections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
