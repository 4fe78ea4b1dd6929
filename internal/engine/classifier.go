package engine

import (
	"context"
	"time"

	"github.com/turtacn/ChemClassify/internal/domain/classification"
	"github.com/turtacn/ChemClassify/internal/domain/rule"
	"github.com/turtacn/ChemClassify/internal/domain/structure"
	"github.com/turtacn/ChemClassify/internal/infrastructure/logging"
	"github.com/turtacn/ChemClassify/internal/infrastructure/metrics"
	"github.com/turtacn/ChemClassify/pkg/errors"
	"github.com/turtacn/ChemClassify/pkg/types/common"
)

// Classifier is the engine entry point: one immutable pipeline binding a
// rule set, an aggregation policy, and reconciliation parameters.  A
// Classifier is safe for concurrent use; multiple Classifiers over different
// rule sets (ontology versions) may coexist in one process.
type Classifier struct {
	rules   *rule.RuleSet
	opts    Options
	eval    *evaluator
	rec     *reconciler
	log     logging.Logger
	metrics metrics.EngineMetrics
}

// NewClassifier builds a Classifier over the given rule set.  Option
// validation failures are construction errors; nothing is deferred to
// Classify time.
func NewClassifier(rs *rule.RuleSet, opts ...Option) (*Classifier, error) {
	if rs == nil {
		return nil, errors.InvalidParam("classifier requires a rule set")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &Classifier{
		rules:   rs,
		opts:    o,
		eval:    newEvaluator(rs, o),
		rec:     newReconciler(rs.Graph(), o),
		log:     o.Logger.Named("classifier"),
		metrics: o.Metrics,
	}, nil
}

// Classify evaluates every rule against the structure, reconciles the
// signals through the ontology, and returns the assignment set with full
// provenance.  The input structure is never mutated.
func (c *Classifier) Classify(ctx context.Context, s structure.Structure) (*classification.Result, error) {
	if s == nil {
		return nil, errors.InvalidParam("classify requires a structure")
	}
	start := time.Now()

	signals, err := c.eval.evaluate(ctx, s)
	if err != nil {
		return nil, err
	}
	assignments, conflicts := c.rec.reconcile(signals)

	res := &classification.Result{
		ID:          common.NewID(),
		Assignments: assignments,
		Conflicts:   conflicts,
		EvaluatedAt: common.Now(),
	}

	elapsed := time.Since(start)
	c.metrics.RecordClassification(float64(elapsed.Microseconds())/1000.0,
		len(assignments), len(conflicts))
	c.log.Debug("structure classified",
		logging.Int("assignments", len(assignments)),
		logging.Int("conflicts", len(conflicts)),
		logging.Duration("elapsed", elapsed))
	return res, nil
}

// ClassifySMILES parses the SMILES string and classifies the resulting
// structure, stamping the result with the caller-supplied name and the
// source notation.  Parse failures carry STRUCT_002.
func (c *Classifier) ClassifySMILES(ctx context.Context, name, smiles string) (*classification.Result, error) {
	mol, err := structure.ParseSMILES(smiles)
	if err != nil {
		c.metrics.RecordStructureError()
		return nil, err
	}
	res, err := c.Classify(ctx, mol)
	if err != nil {
		return nil, err
	}
	res.StructureName = name
	res.InputSMILES = smiles
	return res, nil
}

// RuleSet returns the rule set this classifier was built over.
func (c *Classifier) RuleSet() *rule.RuleSet { return c.rules }
