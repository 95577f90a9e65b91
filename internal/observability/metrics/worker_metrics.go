package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the rebuild worker: rebuild throughput, duration, and
// the size of the last published snapshot.
type WorkerMetrics struct {
	registry *prometheus.Registry

	rebuildTotal     *prometheus.CounterVec
	rebuildDuration  *prometheus.HistogramVec
	rebuildInFlight  prometheus.Gauge
	indexedDocuments prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	rebuildTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fbi",
			Subsystem: "worker",
			Name:      "index_rebuild_total",
			Help:      "Completed index rebuilds by status.",
		},
		[]string{"service", "status"},
	)
	rebuildDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fbi",
			Subsystem: "worker",
			Name:      "index_rebuild_duration_seconds",
			Help:      "Index rebuild duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	rebuildInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fbi",
			Subsystem: "worker",
			Name:      "index_rebuild_in_flight",
			Help:      "Number of in-flight index rebuilds.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	indexedDocuments := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fbi",
			Subsystem: "worker",
			Name:      "indexed_documents",
			Help:      "Documents in the most recently published snapshot.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(rebuildTotal, rebuildDuration, rebuildInFlight, indexedDocuments)

	return &WorkerMetrics{
		registry:         registry,
		rebuildTotal:     rebuildTotal,
		rebuildDuration:  rebuildDuration,
		rebuildInFlight:  rebuildInFlight,
		indexedDocuments: indexedDocuments,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRebuild() {
	m.rebuildInFlight.Inc()
}

func (m *WorkerMetrics) FinishRebuild(service string, duration time.Duration, documents int, err error) {
	m.rebuildInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.rebuildTotal.WithLabelValues(service, status).Inc()
	m.rebuildDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if err == nil {
		m.indexedDocuments.Set(float64(documents))
	}
}
