// Package metrics provides Prometheus instrumentation for the journal.
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
	// PositionsCreated counts positions opened, partitioned by strategy.
	PositionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_positions_created_total",
		Help: "Total number of positions created",
	}, []string{"strategy"})

	// PositionsClosed counts positions moved to a terminal status.
	PositionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_positions_closed_total",
		Help: "Total number of positions closed, rolled, or expired",
	}, []string{"status"})

	// OpenPositions tracks the number of currently open positions.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "journal_open_positions",
		Help: "Number of currently open positions",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "journal_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// QuoteLookupFailures counts underlying-price lookups that failed
	// during delta aggregation.
	QuoteLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "journal_quote_lookup_failures_total",
		Help: "Underlying price lookups that could not be resolved",
	})

	// ValidationRejections counts spread structures rejected at creation.
	ValidationRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_validation_rejections_total",
		Help: "Positions rejected by the spread structure validator",
	}, []string{"strategy"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "journal_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
