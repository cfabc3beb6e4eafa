package common

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// ---------------------------------------------------------------------------
// Interfaces
// ---------------------------------------------------------------------------

// PipelineMetrics defines the metrics collection API for the intelligence
// layer. Every sub-module (noteprep, clinextract, casesim, risktraj)
// records its telemetry through this interface so the underlying
// implementation (Prometheus, noop) can be swapped without touching
// business code.
type PipelineMetrics interface {
	// RecordOracleCall records a single inference oracle round trip.
	RecordOracleCall(ctx context.Context, oracle string, durationMs float64, success bool)

	// RecordCacheAccess records an embedding cache hit or miss.
	RecordCacheAccess(ctx context.Context, hit bool)

	// RecordOperation records a pipeline operation (normalize, extract,
	// rank, trajectory) and its outcome.
	RecordOperation(ctx context.Context, operation string, durationMs float64, success bool)

	// RecordSpanCounts records how many model and rule spans survived a
	// merge pass.
	RecordSpanCounts(ctx context.Context, model, rule, merged int)
}

// ---------------------------------------------------------------------------
// Prometheus implementation
// ---------------------------------------------------------------------------

// prometheusMetrics implements PipelineMetrics on top of a Prometheus
// registry. All metric names carry the clinsignal_ prefix.
type prometheusMetrics struct {
	oracleCalls   *prometheus.CounterVec
	oracleLatency *prometheus.HistogramVec
	cacheAccesses *prometheus.CounterVec
	operations    *prometheus.CounterVec
	opLatency     *prometheus.HistogramVec
	spansMerged   *prometheus.CounterVec
}

// NewPrometheusMetrics builds a PipelineMetrics backed by the given
// registerer. Registration conflicts are returned to the caller instead of
// panicking so a process can host more than one pipeline.
func NewPrometheusMetrics(reg prometheus.Registerer) (PipelineMetrics, error) {
	m := &prometheusMetrics{
		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinsignal_oracle_calls_total",
			Help: "Total inference oracle round trips by oracle and outcome.",
		}, []string{"oracle", "status"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clinsignal_oracle_latency_ms",
			Help:    "Inference oracle round trip latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"oracle"}),
		cacheAccesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinsignal_embedding_cache_accesses_total",
			Help: "Embedding cache lookups by result.",
		}, []string{"result"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinsignal_pipeline_operations_total",
			Help: "Pipeline operations by name and outcome.",
		}, []string{"operation", "status"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clinsignal_pipeline_operation_latency_ms",
			Help:    "Pipeline operation latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"operation"}),
		spansMerged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinsignal_entity_spans_total",
			Help: "Entity spans observed during merge passes by source.",
		}, []string{"source"}),
	}

	for _, c := range []prometheus.Collector{
		m.oracleCalls, m.oracleLatency, m.cacheAccesses,
		m.operations, m.opLatency, m.spansMerged,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (m *prometheusMetrics) RecordOracleCall(_ context.Context, oracle string, durationMs float64, success bool) {
	m.oracleCalls.WithLabelValues(oracle, statusLabel(success)).Inc()
	m.oracleLatency.WithLabelValues(oracle).Observe(durationMs)
}

func (m *prometheusMetrics) RecordCacheAccess(_ context.Context, hit bool) {
	if hit {
		m.cacheAccesses.WithLabelValues("hit").Inc()
	} else {
		m.cacheAccesses.WithLabelValues("miss").Inc()
	}
}

func (m *prometheusMetrics) RecordOperation(_ context.Context, operation string, durationMs float64, success bool) {
	m.operations.WithLabelValues(operation, statusLabel(success)).Inc()
	m.opLatency.WithLabelValues(operation).Observe(durationMs)
}

func (m *prometheusMetrics) RecordSpanCounts(_ context.Context, model, rule, merged int) {
	m.spansMerged.WithLabelValues("model").Add(float64(model))
	m.spansMerged.WithLabelValues("rule").Add(float64(rule))
	m.spansMerged.WithLabelValues("merged").Add(float64(merged))
}

// ---------------------------------------------------------------------------
// Noop implementation
// ---------------------------------------------------------------------------

type noopMetrics struct{}

// NewNoopMetrics returns a PipelineMetrics that discards everything. Used
// in tests and CLI invocations where no registry is running.
func NewNoopMetrics() PipelineMetrics { return noopMetrics{} }

func (noopMetrics) RecordOracleCall(context.Context, string, float64, bool) {}
func (noopMetrics) RecordCacheAccess(context.Context, bool)                 {}
func (noopMetrics) RecordOperation(context.Context, string, float64, bool)  {}
func (noopMetrics) RecordSpanCounts(context.Context, int, int, int)         {}
