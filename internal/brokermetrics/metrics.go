// Package brokermetrics provides Prometheus instrumentation for the broker
// simulation engine, grounded on the teacher's internal/metrics package
// (same promauto idiom, renamed to the broker domain).
package brokermetrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OrdersTotal counts orders placed, partitioned by order type and
	// terminal status (filled/rejected/open).
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "broker_orders_total",
		Help: "Total number of orders placed, by type and status",
	}, []string{"type", "status"})

	// RejectionsTotal counts rejected orders, partitioned by reason.
	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "broker_order_rejections_total",
		Help: "Total number of rejected orders, by reason",
	}, []string{"reason"})

	// FillLatency measures wall-clock time from PlaceOrder call to a
	// terminal (filled/rejected) result.
	FillLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "broker_order_latency_seconds",
		Help:    "Order placement latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	// LiquidationsTotal counts successful forced liquidations.
	LiquidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broker_forced_liquidations_total",
		Help: "Total number of successful forced liquidations",
	})

	// LiquidationsFailedTotal counts forced liquidations that could not
	// resolve the maintenance-margin deficiency.
	LiquidationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broker_forced_liquidations_failed_total",
		Help: "Total number of forced liquidations that failed to fill",
	})

	// SettlementRunsTotal counts refresh cycles that cleared at least one
	// pending settlement entry.
	SettlementRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broker_settlement_runs_total",
		Help: "Total number of refresh cycles that settled a pending entry",
	})

	// ActiveAccounts tracks the number of accounts known to the broker.
	ActiveAccounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "broker_active_accounts",
		Help: "Number of accounts currently tracked by the broker",
	})

	// HTTPRequestsTotal counts façade HTTP requests by method, path, status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "broker_http_requests_total",
		Help: "Total HTTP requests handled by the broker façade",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks façade request duration by method/path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "broker_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler for GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and duration for every façade request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
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
