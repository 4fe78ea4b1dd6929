package rulespec

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemClassify/internal/domain/rule"
	"github.com/turtacn/ChemClassify/internal/engine"
	"github.com/turtacn/ChemClassify/internal/infrastructure/logging"
	"github.com/turtacn/ChemClassify/pkg/errors"
)

const sampleDocument = `
version: 1
ontology:
  classes:
    - id: root
      name: chemical entity
    - id: acid
      name: acid
      parents: [root]
      disjoint_with: [base]
    - id: base
      name: base
      parents: [root]
    - id: carboxylic_acid
      name: carboxylic acid
      parents: [acid]
rules:
  - id: carboxylic-motif
    kind: substructure
    classes: [carboxylic_acid]
    pattern: "C(=O)O"
  - id: acid-proton
    kind: substructure
    classes: [acid]
    pattern: "[OH1]"
    negative_confidence: 0.9
  - id: small-molecule
    kind: descriptor_range
    classes: [root]
    descriptor: mol_weight
    max: 900
  - id: aromatic-scorer
    kind: weighted_score
    classes: [root]
    features: [aromatic_ring_count]
    weights: [2.0]
    bias: -3.0
`

func TestParse(t *testing.T) {
	rs, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, 4, rs.Len())
	assert.Equal(t, 4, rs.Graph().Len())
	assert.True(t, rs.Graph().AreDisjoint("acid", "base"))
	require.Len(t, rs.RulesFor("root"), 2)
	require.Len(t, rs.RulesFor("carboxylic_acid"), 1)
}

func TestParse_DocumentDrivesClassification(t *testing.T) {
	rs, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)
	c, err := engine.NewClassifier(rs)
	require.NoError(t, err)

	res, err := c.ClassifySMILES(context.Background(), "acetic acid", "CC(=O)O")
	require.NoError(t, err)

	got, ok := res.Assigned("carboxylic_acid")
	require.True(t, ok)
	assert.True(t, got.Direct)
	_, ok = res.Assigned("acid")
	assert.True(t, ok)
}

func TestParse_OpenBoundsBecomeUnbounded(t *testing.T) {
	doc := `
ontology:
  classes:
    - id: root
rules:
  - id: heavy
    kind: descriptor_range
    classes: [root]
    descriptor: mol_weight
    min: 500
`
	rs, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())

	r, ok := rs.Rules()[0].(*rule.DescriptorRangeRule)
	require.True(t, ok)
	assert.Equal(t, "heavy", r.ID())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code errors.ErrorCode
	}{
		{
			"malformed yaml",
			"ontology: [unclosed",
			errors.ErrCodeRuleSpecParseFailed,
		},
		{
			"unknown rule kind",
			`
ontology:
  classes: [{id: root}]
rules:
  - id: r
    kind: quantum
    classes: [root]
`,
			errors.ErrCodeRuleUnknownKind,
		},
		{
			"invalid pattern propagates",
			`
ontology:
  classes: [{id: root}]
rules:
  - id: r
    kind: substructure
    classes: [root]
    pattern: "C("
`,
			errors.ErrCodeRuleInvalid,
		},
		{
			"ontology cycle",
			`
ontology:
  classes:
    - {id: a, parents: [b]}
    - {id: b, parents: [a]}
rules: []
`,
			errors.ErrCodeOntologyCycle,
		},
		{
			"rule references unknown class",
			`
ontology:
  classes: [{id: root}]
rules:
  - id: r
    kind: substructure
    classes: [ester]
    pattern: "C"
`,
			errors.ErrCodeOntologyUnknownClass,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.True(t, errors.IsCode(err, tt.code),
				"want %s, got %v", tt.code, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeRuleSpecParseFailed))
}

// ─────────────────────────────────────────────────────────────────────────────
// Watcher
// ─────────────────────────────────────────────────────────────────────────────

func writeRuleFile(t *testing.T, path, doc string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
}

func TestWatcher_InitialLoadAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	writeRuleFile(t, path, sampleDocument)

	reloads := make(chan *rule.RuleSet, 4)
	w, err := NewWatcher(path, logging.NewNopLogger(), func(rs *rule.RuleSet) {
		reloads <- rs
	})
	require.NoError(t, err)
	defer w.Close()

	// The known-good initial load is delivered synchronously.
	first := <-reloads
	assert.Equal(t, 4, first.Len())

	extended := sampleDocument + `
  - id: amine-motif
    kind: substructure
    classes: [base]
    pattern: "N"
`
	writeRuleFile(t, path, extended)

	select {
	case rs := <-reloads:
		assert.Equal(t, 5, rs.Len())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rule-set reload")
	}
}

func TestWatcher_BrokenRewriteKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	writeRuleFile(t, path, sampleDocument)

	reloads := make(chan *rule.RuleSet, 4)
	w, err := NewWatcher(path, logging.NewNopLogger(), func(rs *rule.RuleSet) {
		reloads <- rs
	})
	require.NoError(t, err)
	defer w.Close()
	<-reloads

	writeRuleFile(t, path, "rules: [unclosed")

	select {
	case <-reloads:
		t.Fatal("broken document must not be delivered")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestNewWatcher_Errors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	writeRuleFile(t, path, sampleDocument)

	_, err := NewWatcher(path, logging.NewNopLogger(), nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = NewWatcher(filepath.Join(dir, "absent.yaml"), logging.NewNopLogger(),
		func(*rule.RuleSet) {})
	assert.True(t, errors.IsCode(err, errors.ErrCodeRuleSpecParseFailed))
}
