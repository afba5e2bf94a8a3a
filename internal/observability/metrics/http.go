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

const namespace = "jagawarga"

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	submissionTotal *prometheus.CounterVec
	piiDetected     *prometheus.HistogramVec
	scrubTotal      *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "route", "outcome", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "route", "outcome"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	submissionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submission",
			Name:      "total",
			Help:      "Report submissions by outcome kind.",
		},
		[]string{"service", "outcome"},
	)
	piiDetected := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redaction",
			Name:      "items_detected",
			Help:      "Distribution of redacted PII items per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service", "endpoint"},
	)
	scrubTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redaction",
			Name:      "requests_total",
			Help:      "Scrub requests by resulting confidence.",
		},
		[]string{"service", "endpoint", "confidence"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		submissionTotal,
		piiDetected,
		scrubTotal,
	)

	return &HTTPServerMetrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		submissionTotal: submissionTotal,
		piiDetected:     piiDetected,
		scrubTotal:      scrubTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		outcome := outcomeForStatus(recorder.statusCode)
		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			route,
			outcome,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, route, outcome).Observe(time.Since(start).Seconds())
	})
}

// RecordSubmission counts one pipeline run. outcome is "success" or a failure kind.
func (m *HTTPServerMetrics) RecordSubmission(service, outcome string, detected int) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.submissionTotal.WithLabelValues(service, outcome).Inc()
	if detected >= 0 && outcome == "success" {
		m.piiDetected.WithLabelValues(service, "submission").Observe(float64(detected))
	}
}

func (m *HTTPServerMetrics) RecordScrub(service, endpoint, confidence string, detected int) {
	if confidence == "" {
		confidence = "unknown"
	}
	m.scrubTotal.WithLabelValues(service, endpoint, confidence).Inc()
	m.piiDetected.WithLabelValues(service, endpoint).Observe(float64(detected))
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/reports/"):
		return "/v1/reports/{report_id}"
	case path == "/scrub", path == "/scrub/text", path == "/health", path == "/healthz", path == "/metrics":
		return path
	default:
		return "other"
	}
}

func outcomeForStatus(status int) string {
	switch {
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	default:
		return "success"
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
