// Package observability exposes Prometheus metrics for the daemon request
// path.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	executeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexus",
			Subsystem: "execute",
			Name:      "requests_total",
			Help:      "Total Execute requests.",
		},
		[]string{"service", "command", "status"},
	)
	executeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nexus",
			Subsystem: "execute",
			Name:      "request_duration_seconds",
			Help:      "Execute request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "command", "status"},
	)
	listRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nexus",
			Subsystem: "registry",
			Name:      "list_requests_total",
			Help:      "Total ListServices requests.",
		},
	)
	openConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nexus",
			Subsystem: "server",
			Name:      "open_connections",
			Help:      "Currently open client connections.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(executeRequests, executeDuration, listRequests, openConnections)
	})
}

// RecordExecute counts one Execute request. Status is "ok" or "error",
// mirroring the wire-level result status.
func RecordExecute(service, command, status string, duration time.Duration) {
	RegisterMetrics()
	executeRequests.WithLabelValues(service, command, status).Inc()
	executeDuration.WithLabelValues(service, command, status).Observe(duration.Seconds())
}

func RecordListServices() {
	RegisterMetrics()
	listRequests.Inc()
}

func ConnOpened() {
	RegisterMetrics()
	openConnections.Inc()
}

func ConnClosed() {
	RegisterMetrics()
	openConnections.Dec()
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}
