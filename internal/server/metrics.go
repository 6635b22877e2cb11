package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missionkit_http_requests_total",
			Help: "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "missionkit_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	sessionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missionkit_sessions_created_total",
			Help: "Game sessions opened, by game type",
		},
		[]string{"game_type"},
	)

	sessionsFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missionkit_sessions_finalized_total",
			Help: "Game sessions finalized, by game type and performance",
		},
		[]string{"game_type", "performance"},
	)

	eventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "missionkit_event_publish_failures_total",
			Help: "Session events that could not be published",
		},
	)
)

// instrument records request counts and latency per route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
