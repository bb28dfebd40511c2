// Package metrics exposes the application's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "serenity",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serenity",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "serenity",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	gatewayConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "serenity",
			Subsystem: "gateway",
			Name:      "connections",
			Help:      "Current number of realtime gateway connections.",
		},
	)

	gatewayEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serenity",
			Subsystem: "gateway",
			Name:      "events_total",
			Help:      "Total number of gateway events processed.",
		},
		[]string{"event", "outcome"},
	)
)

func init() {
	Registry.MustRegister(httpInFlight, httpRequests, httpDuration, gatewayConnections, gatewayEvents)
}

// IncInFlight increments the in-flight request gauge.
func IncInFlight() { httpInFlight.Inc() }

// DecInFlight decrements the in-flight request gauge.
func DecInFlight() { httpInFlight.Dec() }

// RecordHTTPRequest records one handled request.
func RecordHTTPRequest(method, path, status string, seconds float64) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(seconds)
}

// ConnectionOpened records a gateway connection.
func ConnectionOpened() { gatewayConnections.Inc() }

// ConnectionClosed records a gateway disconnect.
func ConnectionClosed() { gatewayConnections.Dec() }

// RecordGatewayEvent records one processed gateway event.
func RecordGatewayEvent(event, outcome string) {
	gatewayEvents.WithLabelValues(event, outcome).Inc()
}

// Handler serves the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
