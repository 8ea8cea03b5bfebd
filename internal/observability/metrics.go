package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	cacheLookup *prometheus.CounterVec

	analyses        *prometheus.CounterVec
	analysisLatency *prometheus.HistogramVec

	jobs       *prometheus.CounterVec
	jobLatency *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orig_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orig_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 120},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "orig_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orig_llm_requests_total",
			Help: "LLM requests by provider/model/op/outcome.",
		}, []string{"provider", "model", "op", "outcome"}),
		llmLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orig_llm_request_duration_seconds",
			Help:    "LLM request latency in seconds by provider/op.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider", "op"}),
		cacheLookup: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orig_llm_cache_lookups_total",
			Help: "LLM response cache lookups by provider/result.",
		}, []string{"provider", "result"}),
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orig_analyses_total",
			Help: "Finished analyses by type/outcome.",
		}, []string{"type", "outcome"}),
		analysisLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orig_analysis_duration_seconds",
			Help:    "Analysis wall time in seconds by type.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"type"}),
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orig_jobs_total",
			Help: "Finished job runs by job_type/outcome.",
		}, []string{"job_type", "outcome"}),
		jobLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orig_job_duration_seconds",
			Help:    "Job run wall time in seconds by job_type.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"job_type"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) IncInflight() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) DecInflight() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveAPI(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	s := strconv.Itoa(status)
	m.apiRequests.WithLabelValues(method, route, s).Inc()
	m.apiLatency.WithLabelValues(method, route, s).Observe(d.Seconds())
}

func (m *Metrics) ObserveLLM(provider, model, op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(provider, model, op, outcome).Inc()
	m.llmLatency.WithLabelValues(provider, op).Observe(d.Seconds())
}

func (m *Metrics) CacheLookup(provider string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookup.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) ObserveAnalysis(analysisType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(analysisType, outcome).Inc()
	m.analysisLatency.WithLabelValues(analysisType).Observe(d.Seconds())
}

func (m *Metrics) ObserveJob(jobType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(jobType, outcome).Inc()
	m.jobLatency.WithLabelValues(jobType).Observe(d.Seconds())
}
