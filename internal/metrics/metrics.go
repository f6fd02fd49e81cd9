// Package metrics defines the Prometheus collectors for the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starhunt_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starhunt_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)

	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starhunt_submissions_total",
			Help: "Answer submissions by section and outcome",
		},
		[]string{"section", "outcome"},
	)

	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starhunt_decisions_total",
			Help: "Admin decisions on verification requests",
		},
		[]string{"decision"},
	)

	WriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starhunt_write_failures_total",
			Help: "Durable writes that failed after the engine accepted them",
		},
		[]string{"op"},
	)

	CASRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "starhunt_cas_retries_total",
		Help: "Compare-and-swap writes retried after a version conflict",
	})

	FeedDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "starhunt_feed_dropped_total",
		Help: "Feed events dropped for slow subscribers",
	})

	FeedSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "starhunt_feed_subscribers",
		Help: "Open SSE and WebSocket feed connections",
	})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		RequestCounter,
		RequestDuration,
		Submissions,
		Decisions,
		WriteFailures,
		CASRetries,
		FeedDropped,
		FeedSubscribers,
	)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
