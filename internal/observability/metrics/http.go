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

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	identifyTotal       *prometheus.CounterVec
	identifyDuration    *prometheus.HistogramVec
	identifySuggestions *prometheus.HistogramVec
	enrichmentTotal     *prometheus.CounterVec
	upstreamRetryTotal  *prometheus.CounterVec
	rateLimitedTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plantid",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "plantid",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "plantid",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	identifyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plantid",
			Subsystem: "identify",
			Name:      "results_total",
			Help:      "Identification outcomes by result source.",
		},
		[]string{"service", "source"},
	)
	identifyDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "plantid",
			Subsystem: "identify",
			Name:      "duration_seconds",
			Help:      "Identification duration in seconds by result source.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5, 8, 13},
		},
		[]string{"service", "source"},
	)
	identifySuggestions := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "plantid",
			Subsystem: "identify",
			Name:      "suggestions",
			Help:      "Distribution of suggestions per identification.",
			Buckets:   []float64{0, 1, 2, 3},
		},
		[]string{"service", "source"},
	)
	enrichmentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plantid",
			Subsystem: "enrichment",
			Name:      "lookups_total",
			Help:      "Candidate enrichment lookups by outcome.",
		},
		[]string{"service", "outcome"},
	)
	upstreamRetryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plantid",
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Retries scheduled against upstream services.",
		},
		[]string{"service", "operation"},
	)
	rateLimitedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plantid",
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected by traffic control.",
		},
		[]string{"service", "reason"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		identifyTotal,
		identifyDuration,
		identifySuggestions,
		enrichmentTotal,
		upstreamRetryTotal,
		rateLimitedTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		identifyTotal:       identifyTotal,
		identifyDuration:    identifyDuration,
		identifySuggestions: identifySuggestions,
		enrichmentTotal:     enrichmentTotal,
		upstreamRetryTotal:  upstreamRetryTotal,
		rateLimitedTotal:    rateLimitedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
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
	const historyPrefix = "/v1/plants/history/"
	switch {
	case strings.HasPrefix(path, historyPrefix) && strings.HasSuffix(path, "/image"):
		return historyPrefix + "{id}/image"
	case strings.HasPrefix(path, historyPrefix):
		return historyPrefix + "{id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordIdentification(service, source string, suggestions int, duration time.Duration) {
	if source == "" {
		source = "unknown"
	}
	m.identifyTotal.WithLabelValues(service, source).Inc()
	m.identifyDuration.WithLabelValues(service, source).Observe(duration.Seconds())
	m.identifySuggestions.WithLabelValues(service, source).Observe(float64(suggestions))
}

func (m *HTTPServerMetrics) RecordEnrichment(service, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.enrichmentTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordUpstreamRetry(service, operation string) {
	m.upstreamRetryTotal.WithLabelValues(service, operation).Inc()
}

func (m *HTTPServerMetrics) RecordRejected(service, reason string) {
	m.rateLimitedTotal.WithLabelValues(service, reason).Inc()
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
