// Package metrics exposes the application's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costtracker_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "costtracker_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costtracker_mutations_total",
			Help: "Entity mutations by collection kind, operation and outcome.",
		},
		[]string{"kind", "operation", "outcome"},
	)

	AuthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costtracker_auth_events_total",
			Help: "Authentication events by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	ActiveChangeStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "costtracker_active_change_streams",
			Help: "Open server-sent event streams.",
		},
	)
)

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one completed HTTP request.
func ObserveRequest(method, route string, status int, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// CountMutation records one entity mutation attempt.
func CountMutation(kind, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	MutationsTotal.WithLabelValues(kind, operation, outcome).Inc()
}

// CountAuthEvent records one signup, login or logout attempt.
func CountAuthEvent(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	AuthEventsTotal.WithLabelValues(kind, outcome).Inc()
}
