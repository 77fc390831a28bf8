package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "microlearn"

// Metrics owns a private registry so tests can build as many as they like.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	jobsTotal    *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	jobsInflight prometheus.Gauge
	jobsDropped  *prometheus.CounterVec

	generations *prometheus.CounterVec
	sweeps      *prometheus.CounterVec

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	llmTokens   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "api_requests_total", Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "api_request_duration_seconds", Help: "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "api_inflight_requests", Help: "HTTP requests being served.",
		}),
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "jobs_total", Help: "Background job runs by outcome.",
		}, []string{"job_type", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "job_duration_seconds", Help: "Background job run time.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"job_type"}),
		jobsInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "jobs_inflight", Help: "Background jobs currently running.",
		}),
		jobsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "jobs_dropped_total", Help: "Spawns that were never run.",
		}, []string{"job_type", "reason"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "generations_total", Help: "Gate outcomes for lesson and research generation.",
		}, []string{"kind", "outcome"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "stale_rows_reset_total", Help: "Rows reset by the stale generation sweeper.",
		}, []string{"kind"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "llm_requests_total", Help: "Text generation requests by status.",
		}, []string{"model", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "llm_request_duration_seconds", Help: "Text generation latency including retries.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}, []string{"model"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "llm_tokens_total", Help: "Tokens reported by the provider.",
		}, []string{"model", "direction"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.jobsTotal, m.jobDuration, m.jobsInflight, m.jobsDropped,
		m.generations, m.sweeps,
		m.llmRequests, m.llmLatency, m.llmTokens,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
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
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.jobsInflight.Inc()
}

// ObserveJob records a finished run. outcome is succeeded, failed, panicked or timed_out.
func (m *Metrics) ObserveJob(jobType, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobsInflight.Dec()
	m.jobsTotal.WithLabelValues(jobType, outcome).Inc()
	m.jobDuration.WithLabelValues(jobType).Observe(dur.Seconds())
}

func (m *Metrics) IncJobDropped(jobType, reason string) {
	if m == nil {
		return
	}
	m.jobsDropped.WithLabelValues(jobType, reason).Inc()
}

// IncGeneration counts gate outcomes. kind is lesson or research.
func (m *Metrics) IncGeneration(kind, outcome string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) AddStaleReset(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sweeps.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) ObserveLLMRequest(model, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	if model == "" {
		model = "unknown"
	}
	m.llmRequests.WithLabelValues(model, status).Inc()
	m.llmLatency.WithLabelValues(model).Observe(dur.Seconds())
	if inputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}
