// Package metrics provides the engine telemetry interface and its
// Prometheus-backed implementation.  The engine records through the
// EngineMetrics interface so the backing store (Prometheus, nop) can be
// swapped without touching classification code.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics is the telemetry contract of the classification engine.
type EngineMetrics interface {
	// RecordClassification records one completed structure classification.
	RecordClassification(durationMs float64, assignments, conflicts int)

	// RecordRuleEvaluation records one rule evaluation with its outcome
	// disposition: "matched", "unmatched", or "unavailable".
	RecordRuleEvaluation(disposition string)

	// RecordBatch records one completed batch run.
	RecordBatch(size int, durationMs float64)

	// RecordStructureError records a structure rejected as malformed.
	RecordStructureError()
}

// Rule evaluation dispositions.
const (
	DispositionMatched     = "matched"
	DispositionUnmatched   = "unmatched"
	DispositionUnavailable = "unavailable"
)

// ─────────────────────────────────────────────────────────────────────────────
// Prometheus implementation
// ─────────────────────────────────────────────────────────────────────────────

type prometheusMetrics struct {
	classifications prometheus.Histogram
	assignmentCount prometheus.Histogram
	conflictTotal   prometheus.Counter
	ruleEvaluations *prometheus.CounterVec
	batchSize       prometheus.Histogram
	batchDuration   prometheus.Histogram
	structureErrors prometheus.Counter
}

// NewPrometheusMetrics constructs an EngineMetrics backed by the given
// registerer.  All collectors carry the chemclassify_engine_ prefix.
// Registration failures (duplicate registration) surface as an error so the
// caller can decide between failing fast and falling back to NewNopMetrics.
func NewPrometheusMetrics(reg prometheus.Registerer) (EngineMetrics, error) {
	m := &prometheusMetrics{
		classifications: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chemclassify_engine_classification_duration_ms",
			Help:    "Wall time of one structure classification in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}),
		assignmentCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chemclassify_engine_assignments_per_structure",
			Help:    "Number of ontology classes assigned per classified structure.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		conflictTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chemclassify_engine_conflicts_total",
			Help: "Total ontology conflicts detected across all classifications.",
		}),
		ruleEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chemclassify_engine_rule_evaluations_total",
			Help: "Rule evaluations by outcome disposition.",
		}, []string{"disposition"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chemclassify_engine_batch_size",
			Help:    "Structures per batch classification run.",
			Buckets: []float64{1, 10, 100, 1000, 10000},
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chemclassify_engine_batch_duration_ms",
			Help:    "Wall time of one batch classification run in milliseconds.",
			Buckets: []float64{10, 100, 1000, 10000, 60000, 300000},
		}),
		structureErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chemclassify_engine_structure_errors_total",
			Help: "Structures rejected as malformed.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.classifications, m.assignmentCount, m.conflictTotal,
		m.ruleEvaluations, m.batchSize, m.batchDuration, m.structureErrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *prometheusMetrics) RecordClassification(durationMs float64, assignments, conflicts int) {
	m.classifications.Observe(durationMs)
	m.assignmentCount.Observe(float64(assignments))
	m.conflictTotal.Add(float64(conflicts))
}

func (m *prometheusMetrics) RecordRuleEvaluation(disposition string) {
	m.ruleEvaluations.WithLabelValues(disposition).Inc()
}

func (m *prometheusMetrics) RecordBatch(size int, durationMs float64) {
	m.batchSize.Observe(float64(size))
	m.batchDuration.Observe(durationMs)
}

func (m *prometheusMetrics) RecordStructureError() {
	m.structureErrors.Inc()
}

// ─────────────────────────────────────────────────────────────────────────────
// Nop implementation
// ─────────────────────────────────────────────────────────────────────────────

type nopMetrics struct{}

func (nopMetrics) RecordClassification(float64, int, int) {}
func (nopMetrics) RecordRuleEvaluation(string)            {}
func (nopMetrics) RecordBatch(int, float64)               {}
func (nopMetrics) RecordStructureError()                  {}

// NewNopMetrics returns an EngineMetrics that discards everything.  Intended
// for tests and for embedding callers that bring no metrics pipeline.
func NewNopMetrics() EngineMetrics { return nopMetrics{} }
