package internal

import (
	"net/http"
	"strconv"
	"time"

	"assetdb-api/pkg/importer"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics collection for HTTP requests and
// import batches
type Metrics struct {
	reqTotal      *prometheus.CounterVec
	reqLatency    *prometheus.HistogramVec
	importRows    *prometheus.CounterVec
	importBatches *prometheus.CounterVec
	registry      *prometheus.Registry
}

// NewMetrics creates a new Metrics instance with a private Prometheus registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	reqTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	reqLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	importRows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_rows_total",
			Help: "Imported CSV rows by outcome",
		},
		[]string{"type", "action"},
	)

	importBatches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_batches_total",
			Help: "Import batches run",
		},
		[]string{"type", "dry_run"},
	)

	registry.MustRegister(reqTotal, reqLatency, importRows, importBatches)

	return &Metrics{
		reqTotal:      reqTotal,
		reqLatency:    reqLatency,
		importRows:    importRows,
		importBatches: importBatches,
		registry:      registry,
	}
}

// Middleware returns a Chi middleware that collects metrics
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rw, r)

			path := routePattern(r)
			status := http.StatusText(rw.code)
			m.reqTotal.WithLabelValues(r.Method, path, status).Inc()
			m.reqLatency.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

// ObserveImport counts one batch and each of its rows by action.
func (m *Metrics) ObserveImport(t importer.EntityType, dryRun bool, res *importer.Result) {
	m.importBatches.WithLabelValues(string(t), strconv.FormatBool(dryRun)).Inc()
	for _, row := range res.Rows {
		m.importRows.WithLabelValues(string(t), string(row.Action)).Inc()
	}
}

// Handler returns an http.Handler that serves Prometheus metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// routePattern prefers chi's matched pattern over the raw path so ids do
// not explode label cardinality.
func routePattern(r *http.Request) string {
	if chiCtx := chi.RouteContext(r.Context()); chiCtx != nil && len(chiCtx.RoutePatterns) > 0 {
		return chiCtx.RoutePatterns[len(chiCtx.RoutePatterns)-1]
	}
	return r.URL.Path
}

// statusRecorder captures the HTTP status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	return sr.ResponseWriter.Write(b)
}
