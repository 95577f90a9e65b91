package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics covers the API process: request-level metrics plus the
// pipeline-specific counters for ask outcomes, retrieval hits, and PII
// redaction volume.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askOutcomesTotal *prometheus.CounterVec
	askEvidenceCount *prometheus.HistogramVec
	askDuration      *prometheus.HistogramVec
	conflictsTotal   *prometheus.CounterVec

	ingestDocumentsTotal *prometheus.CounterVec
	piiMatchesTotal      *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fbi",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fbi",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fbi",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	askOutcomesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fbi",
			Subsystem: "ask",
			Name:      "outcomes_total",
			Help:      "Completed ask requests by outcome.",
		},
		[]string{"service", "outcome"},
	)
	askEvidenceCount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fbi",
			Subsystem: "ask",
			Name:      "evidence_count",
			Help:      "Distribution of cited evidence items per answered request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fbi",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "End-to-end ask pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	conflictsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fbi",
			Subsystem: "ask",
			Name:      "conflicts_total",
			Help:      "Evidence conflicts flagged in answers.",
		},
		[]string{"service"},
	)
	ingestDocumentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fbi",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Ingested feedback records by status.",
		},
		[]string{"service", "status"},
	)
	piiMatchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fbi",
			Subsystem: "ingest",
			Name:      "pii_matches_total",
			Help:      "Redacted PII spans by kind.",
		},
		[]string{"service", "kind"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		askOutcomesTotal,
		askEvidenceCount,
		askDuration,
		conflictsTotal,
		ingestDocumentsTotal,
		piiMatchesTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		askOutcomesTotal:     askOutcomesTotal,
		askEvidenceCount:     askEvidenceCount,
		askDuration:          askDuration,
		conflictsTotal:       conflictsTotal,
		ingestDocumentsTotal: ingestDocumentsTotal,
		piiMatchesTotal:      piiMatchesTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
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
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordAsk(service, outcome string, evidenceCount, conflicts int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.askOutcomesTotal.WithLabelValues(service, outcome).Inc()
	m.askEvidenceCount.WithLabelValues(service).Observe(float64(evidenceCount))
	m.askDuration.WithLabelValues(service).Observe(duration.Seconds())
	if conflicts > 0 {
		m.conflictsTotal.WithLabelValues(service).Add(float64(conflicts))
	}
}

func (m *HTTPServerMetrics) RecordIngest(service string, succeeded, failed int) {
	if succeeded > 0 {
		m.ingestDocumentsTotal.WithLabelValues(service, "success").Add(float64(succeeded))
	}
	if failed > 0 {
		m.ingestDocumentsTotal.WithLabelValues(service, "error").Add(float64(failed))
	}
}

func (m *HTTPServerMetrics) RecordPIIMatch(service, kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.piiMatchesTotal.WithLabelValues(service, kind).Inc()
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
