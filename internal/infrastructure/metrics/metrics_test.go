package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherFamilies(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			key := fam.GetName()
			for _, lp := range m.GetLabel() {
				key += "{" + lp.GetName() + "=" + lp.GetValue() + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	m.RecordClassification(12.5, 3, 1)
	m.RecordClassification(4.0, 0, 0)
	m.RecordRuleEvaluation(DispositionMatched)
	m.RecordRuleEvaluation(DispositionMatched)
	m.RecordRuleEvaluation(DispositionUnavailable)
	m.RecordBatch(100, 850)
	m.RecordStructureError()

	got := gatherFamilies(t, reg)
	assert.Equal(t, 2.0, got["chemclassify_engine_classification_duration_ms"])
	assert.Equal(t, 2.0, got["chemclassify_engine_assignments_per_structure"])
	assert.Equal(t, 1.0, got["chemclassify_engine_conflicts_total"])
	assert.Equal(t, 2.0, got["chemclassify_engine_rule_evaluations_total{disposition=matched}"])
	assert.Equal(t, 1.0, got["chemclassify_engine_rule_evaluations_total{disposition=unavailable}"])
	assert.Equal(t, 1.0, got["chemclassify_engine_batch_size"])
	assert.Equal(t, 1.0, got["chemclassify_engine_batch_duration_ms"])
	assert.Equal(t, 1.0, got["chemclassify_engine_structure_errors_total"])
}

func TestPrometheusMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	_, err = NewPrometheusMetrics(reg)
	assert.Error(t, err)
}

func TestNopMetrics(t *testing.T) {
	m := NewNopMetrics()
	m.RecordClassification(1, 1, 1)
	m.RecordRuleEvaluation(DispositionUnmatched)
	m.RecordBatch(1, 1)
	m.RecordStructureError()
}
