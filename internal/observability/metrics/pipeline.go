package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics covers the conversion pipeline: session runs, per-document
// extraction and live progress subscribers.
type PipelineMetrics struct {
	registry *prometheus.Registry

	sessionsTotal       *prometheus.CounterVec
	sessionDuration     *prometheus.HistogramVec
	sessionsInFlight    prometheus.Gauge
	documentsTotal      *prometheus.CounterVec
	extractDuration     *prometheus.HistogramVec
	progressSubscribers prometheus.Gauge
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	sessionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "strpdf",
			Subsystem: "pipeline",
			Name:      "sessions_total",
			Help:      "Total finished session runs by status.",
		},
		[]string{"service", "status"},
	)
	sessionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "strpdf",
			Subsystem: "pipeline",
			Name:      "session_duration_seconds",
			Help:      "Session processing duration in seconds by status.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "status"},
	)
	sessionsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "strpdf",
			Subsystem: "pipeline",
			Name:      "sessions_in_flight",
			Help:      "Number of sessions currently being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "strpdf",
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Total extracted documents by status.",
		},
		[]string{"service", "status"},
	)
	extractDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "strpdf",
			Subsystem: "pipeline",
			Name:      "document_extract_duration_seconds",
			Help:      "Per-document extraction duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	progressSubscribers := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "strpdf",
			Subsystem: "pipeline",
			Name:      "progress_subscribers",
			Help:      "Number of attached progress stream subscribers.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		sessionsTotal,
		sessionDuration,
		sessionsInFlight,
		documentsTotal,
		extractDuration,
		progressSubscribers,
	)

	return &PipelineMetrics{
		registry:            registry,
		sessionsTotal:       sessionsTotal,
		sessionDuration:     sessionDuration,
		sessionsInFlight:    sessionsInFlight,
		documentsTotal:      documentsTotal,
		extractDuration:     extractDuration,
		progressSubscribers: progressSubscribers,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartSession() {
	m.sessionsInFlight.Inc()
}

func (m *PipelineMetrics) FinishSession(service string, duration time.Duration, err error) {
	m.sessionsInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.sessionsTotal.WithLabelValues(service, status).Inc()
	m.sessionDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveExtraction(service string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.documentsTotal.WithLabelValues(service, status).Inc()
	m.extractDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) SubscriberAttached() {
	m.progressSubscribers.Inc()
}

func (m *PipelineMetrics) SubscriberDetached() {
	m.progressSubscribers.Dec()
}
