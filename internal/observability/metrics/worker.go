package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	consumeTotal    *prometheus.CounterVec
	consumeDuration *prometheus.HistogramVec
	consumeInFlight prometheus.Gauge
	announceLag     *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	consumeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "report_events_total",
			Help:      "Total consumed report.created events by status.",
		},
		[]string{"service", "status"},
	)
	consumeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "report_event_duration_seconds",
			Help:      "Report event handling duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	consumeInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "report_events_in_flight",
			Help:      "Number of report events being handled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	announceLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "announce_lag_seconds",
			Help:      "Delay between report announcement and consumption.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service"},
	)

	registry.MustRegister(consumeTotal, consumeDuration, consumeInFlight, announceLag)

	return &WorkerMetrics{
		registry:        registry,
		consumeTotal:    consumeTotal,
		consumeDuration: consumeDuration,
		consumeInFlight: consumeInFlight,
		announceLag:     announceLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent() {
	m.consumeInFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(service string, duration time.Duration, err error) {
	m.consumeInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.consumeTotal.WithLabelValues(service, status).Inc()
	m.consumeDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveAnnounceLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.announceLag.WithLabelValues(service).Observe(lag.Seconds())
}
