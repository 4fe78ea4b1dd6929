package rule

import (
	"fmt"
	"math"

	"github.com/turtacn/ChemClassify/internal/domain/ontology"
	"github.com/turtacn/ChemClassify/internal/domain/structure"
	"github.com/turtacn/ChemClassify/pkg/errors"
)

// DescriptorRangeRule matches when a named descriptor falls inside a closed
// interval.  Either bound may be open (NaN in the config, nil in rule-set
// documents).
type DescriptorRangeRule struct {
	id         string
	classes    []ontology.ClassID
	descriptor string
	min, max   float64 // NaN means unbounded
	confidence float64
}

// DescriptorRangeRuleConfig carries the construction parameters for a
// descriptor range rule.  Use math.NaN() for an open bound.
type DescriptorRangeRuleConfig struct {
	ID         string
	Classes    []ontology.ClassID
	Descriptor string
	Min        float64
	Max        float64
	Confidence float64
}

// NewDescriptorRangeRule validates the configuration against the descriptor
// registry.  Unknown descriptors and empty intervals are RULE_001 errors.
func NewDescriptorRangeRule(cfg DescriptorRangeRuleConfig) (*DescriptorRangeRule, error) {
	if cfg.ID == "" {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "descriptor rule requires an ID")
	}
	if !structure.KnownDescriptor(cfg.Descriptor) {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "descriptor not in registry").
			WithDetail(fmt.Sprintf("rule=%s descriptor=%s", cfg.ID, cfg.Descriptor))
	}
	if math.IsNaN(cfg.Min) && math.IsNaN(cfg.Max) {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "descriptor rule requires at least one bound").
			WithDetail("rule=" + cfg.ID)
	}
	if !math.IsNaN(cfg.Min) && !math.IsNaN(cfg.Max) && cfg.Min > cfg.Max {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "descriptor rule interval is empty").
			WithDetail(fmt.Sprintf("rule=%s min=%g max=%g", cfg.ID, cfg.Min, cfg.Max))
	}
	conf := cfg.Confidence
	if conf == 0 {
		conf = 1.0
	}
	if conf < 0 || conf > 1 {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "confidence must be in [0,1]").
			WithDetail("rule=" + cfg.ID)
	}
	return &DescriptorRangeRule{
		id:         cfg.ID,
		classes:    cfg.Classes,
		descriptor: cfg.Descriptor,
		min:        cfg.Min,
		max:        cfg.Max,
		confidence: conf,
	}, nil
}

func (r *DescriptorRangeRule) ID() string                  { return r.id }
func (r *DescriptorRangeRule) Classes() []ontology.ClassID { return r.classes }

func (r *DescriptorRangeRule) Requires() Requirements {
	return Requirements{Descriptors: []string{r.descriptor}}
}

// Evaluate reads the descriptor and tests the interval.  A descriptor that
// turns out to be undefined at evaluation time (despite the declared
// requirement check) degrades to an unavailable outcome, never an error.
func (r *DescriptorRangeRule) Evaluate(s structure.Structure) Outcome {
	v, err := s.Descriptor(r.descriptor)
	if err != nil {
		return unavailable(r.id, "descriptor "+r.descriptor+" undefined for structure")
	}

	inRange := true
	if !math.IsNaN(r.min) && v < r.min {
		inRange = false
	}
	if !math.IsNaN(r.max) && v > r.max {
		inRange = false
	}

	ev := Evidence{
		Features: map[string]float64{r.descriptor: v},
		Reason:   fmt.Sprintf("%s=%g, range [%g, %g]", r.descriptor, v, r.min, r.max),
	}
	if inRange {
		return Outcome{RuleID: r.id, Matched: true, Confidence: r.confidence, Evidence: ev}
	}
	return Outcome{RuleID: r.id, Matched: false, Confidence: 0, Evidence: ev}
}
