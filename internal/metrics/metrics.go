// Package metrics holds the Prometheus instruments for the complaint
// workflow and the REST API.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	stageDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30}
	httpDurationBuckets  = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
)

// Metrics holds every instrument. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	StageRunsTotal      *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	ComplaintsProcessed *prometheus.CounterVec
	BatchesTotal        prometheus.Counter
	PIIRedactionsTotal  prometheus.Counter
	LLMTokensTotal      *prometheus.CounterVec
	LLMCostUSD          prometheus.Counter
	RoutingDecisions    *prometheus.CounterVec
	PersistFailures     *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// InitMetrics creates and registers all instruments on reg.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StageRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclamaai_stage_runs_total",
			Help: "Pipeline stage executions by outcome status.",
		}, []string{"stage", "status"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reclamaai_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds.",
			Buckets: stageDurationBuckets,
		}, []string{"stage"}),
		ComplaintsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclamaai_complaints_processed_total",
			Help: "Complaints that reached a terminal status.",
		}, []string{"source", "status"}),
		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reclamaai_batches_total",
			Help: "Batch runs started.",
		}),
		PIIRedactionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reclamaai_pii_redactions_total",
			Help: "PII spans replaced by the redactor.",
		}),
		LLMTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclamaai_llm_tokens_total",
			Help: "Tokens consumed by classification calls.",
		}, []string{"model", "direction"}),
		LLMCostUSD: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reclamaai_llm_cost_usd_total",
			Help: "Estimated classification spend in USD.",
		}),
		RoutingDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclamaai_routing_decisions_total",
			Help: "Routing decisions by team and resolution path.",
		}, []string{"team_id", "path"}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclamaai_persist_failures_total",
			Help: "Best-effort persistence writes that failed.",
		}, []string{"kind"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclamaai_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reclamaai_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
	}

	reg.MustRegister(
		m.StageRunsTotal,
		m.StageDuration,
		m.ComplaintsProcessed,
		m.BatchesTotal,
		m.PIIRedactionsTotal,
		m.LLMTokensTotal,
		m.LLMCostUSD,
		m.RoutingDecisions,
		m.PersistFailures,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// RecordStage records one stage execution.
func (m *Metrics) RecordStage(stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageRunsTotal.WithLabelValues(stage, status).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordComplaint records a complaint reaching a terminal status.
func (m *Metrics) RecordComplaint(source, status string) {
	if m == nil {
		return
	}
	m.ComplaintsProcessed.WithLabelValues(source, status).Inc()
}

// RecordBatch counts a batch run.
func (m *Metrics) RecordBatch() {
	if m == nil {
		return
	}
	m.BatchesTotal.Inc()
}

// RecordRedactions adds n redacted spans.
func (m *Metrics) RecordRedactions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PIIRedactionsTotal.Add(float64(n))
}

// RecordLLMUsage records token usage and estimated cost of one call.
func (m *Metrics) RecordLLMUsage(model string, input, output int64, costUSD float64) {
	if m == nil {
		return
	}
	m.LLMTokensTotal.WithLabelValues(model, "input").Add(float64(input))
	m.LLMTokensTotal.WithLabelValues(model, "output").Add(float64(output))
	m.LLMCostUSD.Add(costUSD)
}

// RecordRouting records which team a complaint went to and how it was
// resolved ("search" or "resolver").
func (m *Metrics) RecordRouting(teamID, path string) {
	if m == nil {
		return
	}
	m.RoutingDecisions.WithLabelValues(teamID, path).Inc()
}

// RecordPersistFailure counts a swallowed persistence error of kind
// ("save" or "audit").
func (m *Metrics) RecordPersistFailure(kind string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(d.Seconds())
}

// Middleware records request metrics labeled by chi's route pattern rather
// than the raw path, keeping label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start))
	})
}

// Handler serves the registry behind g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.TrimSuffix(strings.Join(rctx.RoutePatterns, ""), "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}
