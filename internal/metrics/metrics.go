// Package metrics provides Prometheus instrumentation for the watcher.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FetchFailures counts failed exchange calls, partitioned by feed.
	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resxwatch_fetch_failures_total",
		Help: "Failed exchange fetches by feed",
	}, []string{"feed"})

	// FallbackActivations counts price ticks served from the fixed fallback set.
	FallbackActivations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resxwatch_price_fallback_total",
		Help: "Price refreshes that used the fallback resource set",
	})

	// Ticks counts completed refresh ticks by cadence.
	Ticks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resxwatch_ticks_total",
		Help: "Completed refresh ticks",
	}, []string{"task"})

	// TickDuration tracks how long a tick took end to end.
	TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resxwatch_tick_duration_seconds",
		Help:    "Refresh tick duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"task"})

	// DiscardedTicks counts ticks whose results were dropped by the guard.
	DiscardedTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resxwatch_ticks_discarded_total",
		Help: "Ticks abandoned because the session was suspended mid-flight",
	}, []string{"task"})

	// PortfolioValue is the total mark-to-market value of the last render.
	PortfolioValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resxwatch_portfolio_value",
		Help: "Total portfolio value at the last revaluation",
	})

	// Trades counts submitted trades by side and outcome.
	Trades = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resxwatch_trades_total",
		Help: "Submitted trades",
	}, []string{"side", "outcome"})

	// WebSocketClients tracks connected dashboard clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resxwatch_websocket_clients",
		Help: "Number of connected dashboard clients",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resxwatch_http_requests_total",
		Help: "Total dashboard HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resxwatch_http_request_duration_seconds",
		Help:    "Dashboard HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
