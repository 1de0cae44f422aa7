package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its own registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInflight prometheus.Gauge

	analyses         *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	droppedNodes     prometheus.Counter
	coercedFields    prometheus.Counter
	schedules        *prometheus.CounterVec
	scheduledLeaves  prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	if strings.TrimSpace(namespace) == "" {
		namespace = "blueprintx"
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_inflight",
			Help:      "HTTP requests currently being served",
		}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syllabus_analyses_total",
			Help:      "Syllabus analyses by provider and outcome",
		}, []string{"provider", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Topic extraction latency per provider chain",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"provider", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_cache_lookups_total",
			Help:      "Provider output cache lookups by result",
		}, []string{"result"}),
		droppedNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topic_nodes_dropped_total",
			Help:      "Malformed topic nodes dropped during normalization",
		}),
		coercedFields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topic_fields_coerced_total",
			Help:      "Topic fields replaced by defaults during normalization",
		}),
		schedules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "study_schedules_total",
			Help:      "Study schedules built by outcome",
		}, []string{"outcome"}),
		scheduledLeaves: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "study_schedule_leaves",
			Help:      "Leaf topics per built schedule",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.httpInflight,
		m.analyses,
		m.providerDuration,
		m.cacheLookups,
		m.droppedNodes,
		m.coercedFields,
		m.schedules,
		m.scheduledLeaves,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the Prometheus exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterDB exports connection pool stats for db.
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	if m == nil || db == nil {
		return nil
	}
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) InflightInc() {
	if m == nil {
		return
	}
	m.httpInflight.Inc()
}

func (m *Metrics) InflightDec() {
	if m == nil {
		return
	}
	m.httpInflight.Dec()
}

func (m *Metrics) ObserveAnalysis(provider, outcome string, dur time.Duration, dropped, coerced int) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "unknown"
	}
	m.analyses.WithLabelValues(provider, outcome).Inc()
	if dur > 0 {
		m.providerDuration.WithLabelValues(provider, outcome).Observe(dur.Seconds())
	}
	if dropped > 0 {
		m.droppedNodes.Add(float64(dropped))
	}
	if coerced > 0 {
		m.coercedFields.Add(float64(coerced))
	}
}

func (m *Metrics) IncCache(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSchedule(outcome string, leaves int) {
	if m == nil {
		return
	}
	m.schedules.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.scheduledLeaves.Observe(float64(leaves))
	}
}
