package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation. A nil service records nothing.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheLookups      *prometheus.CounterVec
	dbQueryDuration   *prometheus.HistogramVec
	ingestionRuns     *prometheus.CounterVec
	ingestionDuration prometheus.Observer
	ingestionPhase    *prometheus.HistogramVec
	ingestionRows     *prometheus.CounterVec
	lastIngestion     prometheus.Gauge
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of report queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	ingestionRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestion_runs_total",
		Help: "Ingestion runs by outcome",
	}, []string{"status"})

	ingestionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingestion_duration_seconds",
		Help:    "Wall time of ingestion runs",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	ingestionPhase := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingestion_phase_duration_seconds",
		Help:    "Wall time of each ingestion phase",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"phase"})

	ingestionRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestion_rows_total",
		Help: "Rows processed by ingestion runs",
	}, []string{"kind"})

	lastIngestion := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ingestion_last_success_timestamp_seconds",
		Help: "Unix time of the last committed ingestion run",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups, dbQueryDuration,
		ingestionRuns, ingestionDuration, ingestionPhase, ingestionRows, lastIngestion, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheLookups:      cacheLookups,
		dbQueryDuration:   dbQueryDuration,
		ingestionRuns:     ingestionRuns,
		ingestionDuration: ingestionDuration,
		ingestionPhase:    ingestionPhase,
		ingestionRows:     ingestionRows,
		lastIngestion:     lastIngestion,
	}
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records report query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObservePhase records the duration of one ingestion phase.
func (m *MetricsService) ObservePhase(phase string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ingestionPhase.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordIngestion records the outcome of an ingestion run.
func (m *MetricsService) RecordIngestion(status string, duration time.Duration, summary models.IngestionSummary) {
	if m == nil {
		return
	}
	m.ingestionRuns.WithLabelValues(status).Inc()
	m.ingestionDuration.Observe(duration.Seconds())
	m.ingestionRows.WithLabelValues("response").Add(float64(summary.ResponseRows))
	m.ingestionRows.WithLabelValues("response_skipped").Add(float64(summary.ResponseRowsSkipped))
	m.ingestionRows.WithLabelValues("answer_key").Add(float64(summary.AnswerKeyRows))
	m.ingestionRows.WithLabelValues("answer_key_skipped").Add(float64(summary.AnswerKeySkipped))
	m.ingestionRows.WithLabelValues("malformed").Add(float64(summary.MalformedRecords))
	if status == "success" {
		m.lastIngestion.SetToCurrentTime()
	}
}
