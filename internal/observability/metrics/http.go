package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal          *prometheus.CounterVec
	queryDuration       *prometheus.HistogramVec
	queryCategoryTotal  *prometheus.CounterVec
	backendUsedTotal    *prometheus.CounterVec
	rerankFallbackTotal *prometheus.CounterVec
	evidenceReturned    *prometheus.HistogramVec
	confidenceScore     *prometheus.HistogramVec
}

func NewAPIMetrics(service string) *APIMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finsight",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finsight",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total answered queries by outcome.",
		},
		[]string{"service", "status"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finsight",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "End-to-end query pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	queryCategoryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "query",
			Name:      "category_total",
			Help:      "Total answered queries by classified category.",
		},
		[]string{"service", "category"},
	)
	backendUsedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "generation",
			Name:      "backend_used_total",
			Help:      "Total answers produced by each generation backend.",
		},
		[]string{"service", "backend"},
	)
	rerankFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "rerank",
			Name:      "fallback_total",
			Help:      "Total queries answered with similarity-only ordering.",
		},
		[]string{"service"},
	)
	evidenceReturned := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finsight",
			Subsystem: "query",
			Name:      "evidence_returned",
			Help:      "Distribution of evidence passages returned per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	confidenceScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finsight",
			Subsystem: "query",
			Name:      "confidence_score",
			Help:      "Distribution of answer confidence scores.",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		queryDuration,
		queryCategoryTotal,
		backendUsedTotal,
		rerankFallbackTotal,
		evidenceReturned,
		confidenceScore,
	)

	return &APIMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		queryTotal:          queryTotal,
		queryDuration:       queryDuration,
		queryCategoryTotal:  queryCategoryTotal,
		backendUsedTotal:    backendUsedTotal,
		rerankFallbackTotal: rerankFallbackTotal,
		evidenceReturned:    evidenceReturned,
		confidenceScore:     confidenceScore,
	}
}

func (m *APIMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *APIMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/records/"):
		return "/v1/records/{record_id}"
	default:
		return path
	}
}

func (m *APIMetrics) RecordQuery(service, status, category string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.queryTotal.WithLabelValues(service, status).Inc()
	m.queryDuration.WithLabelValues(service).Observe(duration.Seconds())
	if category != "" {
		m.queryCategoryTotal.WithLabelValues(service, category).Inc()
	}
}

func (m *APIMetrics) RecordAnswerObservation(service, backend string, evidenceCount int, confidence float64, rerankDegraded bool) {
	if backend == "" {
		backend = "unknown"
	}
	m.backendUsedTotal.WithLabelValues(service, backend).Inc()
	m.evidenceReturned.WithLabelValues(service).Observe(float64(evidenceCount))
	m.confidenceScore.WithLabelValues(service).Observe(confidence)
	if rerankDegraded {
		m.rerankFallbackTotal.WithLabelValues(service).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
