package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// planning pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	planDuration    *prometheus.HistogramVec
	planTotal       *prometheus.CounterVec
	planIssues      prometheus.Counter
	exportTotal     *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
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

	planDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plan_generation_duration_seconds",
		Help:    "Duration of study plan generations",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	planTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plan_generations_total",
		Help: "Total study plan generations by pipeline mode",
	}, []string{"mode"})

	planIssues := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plan_validation_issues_total",
		Help: "Total validation findings on generated plans",
	})

	exportTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plan_exports_total",
		Help: "Total plan export jobs by outcome",
	}, []string{"status"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, planDuration, planTotal, planIssues, exportTotal, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		planDuration:    planDuration,
		planTotal:       planTotal,
		planIssues:      planIssues,
		exportTotal:     exportTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
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
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObservePlanGeneration records one planner run.
func (m *MetricsService) ObservePlanGeneration(mode string, issues int, duration time.Duration) {
	if m == nil {
		return
	}
	m.planDuration.WithLabelValues(mode).Observe(duration.Seconds())
	m.planTotal.WithLabelValues(mode).Inc()
	m.planIssues.Add(float64(issues))
}

// ObserveExport records an export job outcome.
func (m *MetricsService) ObserveExport(status string) {
	if m == nil {
		return
	}
	m.exportTotal.WithLabelValues(status).Inc()
}

// ObserveCacheHit / ObserveCacheMiss track plan cache effectiveness.
func (m *MetricsService) ObserveCacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *MetricsService) ObserveCacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}
