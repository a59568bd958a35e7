package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exported on /metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	ordersCreatedTotal  prometheus.Counter
	ordersReplayedTotal prometheus.Counter
	ordersFailedTotal   *prometheus.CounterVec
	orderValueTotal     prometheus.Counter
}

// New creates the collectors and registers them, with the Go and process
// collectors, on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		ordersCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of committed orders",
		}),
		ordersReplayedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_replayed_total",
			Help: "Total number of checkouts answered from an existing idempotency key",
		}),
		ordersFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_failed_total",
				Help: "Total number of rejected or rolled back checkouts",
			},
			[]string{"reason"},
		),
		orderValueTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_value_total",
			Help: "Sum of total_amount over committed orders",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.ordersCreatedTotal,
		m.ordersReplayedTotal,
		m.ordersFailedTotal,
		m.orderValueTotal,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// unmatchedEndpoint labels requests that matched no route
const unmatchedEndpoint = "unmatched"

// Middleware records request counts and latencies labelled by chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// the pattern is only known once routing has happened; raw paths
		// would give every scanned URL its own series
		endpoint := unmatchedEndpoint
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// OrderCreated counts a committed order and its value
func (m *Metrics) OrderCreated(total float64) {
	if m == nil {
		return
	}
	m.ordersCreatedTotal.Inc()
	m.orderValueTotal.Add(total)
}

// OrderReplayed counts a checkout answered with an already existing order
func (m *Metrics) OrderReplayed() {
	if m == nil {
		return
	}
	m.ordersReplayedTotal.Inc()
}

// OrderFailed counts a rejected checkout under reason
func (m *Metrics) OrderFailed(reason string) {
	if m == nil {
		return
	}
	m.ordersFailedTotal.WithLabelValues(reason).Inc()
}
