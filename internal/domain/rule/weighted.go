package rule

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/turtacn/ChemClassify/internal/domain/ontology"
	"github.com/turtacn/ChemClassify/internal/domain/structure"
	"github.com/turtacn/ChemClassify/pkg/errors"
)

// WeightedScoreRule is the learned rule kind: a logistic model over named
// descriptor features, trained externally and shipped as weights.  Unlike
// the binary kinds it produces graded confidence: the sigmoid score for a
// match, and 1−score as the certainty of an explicit negative when the
// score falls below the threshold.  That negative certainty is what the
// hierarchy reconciler tests against the conflict threshold.
type WeightedScoreRule struct {
	id        string
	classes   []ontology.ClassID
	features  []string
	weights   []float64
	bias      float64
	threshold float64
}

// WeightedScoreRuleConfig carries the construction parameters for a learned
// rule.  Threshold 0 selects the default decision boundary of 0.5.
type WeightedScoreRuleConfig struct {
	ID        string
	Classes   []ontology.ClassID
	Features  []string
	Weights   []float64
	Bias      float64
	Threshold float64
}

// NewWeightedScoreRule validates the model shape against the descriptor
// registry.
func NewWeightedScoreRule(cfg WeightedScoreRuleConfig) (*WeightedScoreRule, error) {
	if cfg.ID == "" {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "weighted rule requires an ID")
	}
	if len(cfg.Features) == 0 {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "weighted rule requires features").
			WithDetail("rule=" + cfg.ID)
	}
	if len(cfg.Features) != len(cfg.Weights) {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "feature/weight length mismatch").
			WithDetail(fmt.Sprintf("rule=%s features=%d weights=%d",
				cfg.ID, len(cfg.Features), len(cfg.Weights)))
	}
	for _, f := range cfg.Features {
		if !structure.KnownDescriptor(f) {
			return nil, errors.New(errors.ErrCodeRuleInvalid, "feature not in descriptor registry").
				WithDetail(fmt.Sprintf("rule=%s feature=%s", cfg.ID, f))
		}
	}
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = 0.5
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "threshold must be in (0,1)").
			WithDetail("rule=" + cfg.ID)
	}
	return &WeightedScoreRule{
		id:        cfg.ID,
		classes:   cfg.Classes,
		features:  cfg.Features,
		weights:   cfg.Weights,
		bias:      cfg.Bias,
		threshold: threshold,
	}, nil
}

func (r *WeightedScoreRule) ID() string                  { return r.id }
func (r *WeightedScoreRule) Classes() []ontology.ClassID { return r.classes }

func (r *WeightedScoreRule) Requires() Requirements {
	return Requirements{Descriptors: r.features}
}

// Evaluate computes sigmoid(w·x + b) over the declared descriptor vector.
func (r *WeightedScoreRule) Evaluate(s structure.Structure) Outcome {
	x := make([]float64, len(r.features))
	feats := make(map[string]float64, len(r.features))
	for i, name := range r.features {
		v, err := s.Descriptor(name)
		if err != nil {
			return unavailable(r.id, "feature "+name+" undefined for structure")
		}
		x[i] = v
		feats[name] = v
	}

	score := sigmoid(floats.Dot(r.weights, x) + r.bias)
	ev := Evidence{
		Features: feats,
		Reason:   fmt.Sprintf("model score %.4f, threshold %.2f", score, r.threshold),
	}
	if score >= r.threshold {
		return Outcome{RuleID: r.id, Matched: true, Confidence: score, Evidence: ev}
	}
	return Outcome{RuleID: r.id, Matched: false, Confidence: 1 - score, Evidence: ev}
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
