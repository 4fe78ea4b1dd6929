package rule

import (
	"fmt"

	"github.com/turtacn/ChemClassify/internal/domain/ontology"
	"github.com/turtacn/ChemClassify/internal/domain/structure"
	"github.com/turtacn/ChemClassify/pkg/errors"
)

// SubstructureRule matches when a structural motif occurs in the molecule at
// least MinCount times.  This is the workhorse rule kind: most curated
// CHEBI-style class definitions reduce to the presence of a functional
// group or scaffold.
type SubstructureRule struct {
	id      string
	classes []ontology.ClassID
	pattern *structure.Pattern

	// minCount is the minimum number of distinct embeddings required.
	minCount int

	// confidence is reported on a match; defaults to binary 1.0.
	confidence float64

	// negativeConfidence, when positive, turns the absence of the motif
	// into an explicit negative signal of that strength.  Curators use
	// this on ancestor classes whose definition strictly requires the
	// motif, enabling conflict detection against matched descendants.
	negativeConfidence float64
}

// SubstructureRuleConfig carries the construction parameters for a
// substructure rule.  Zero values select the defaults (MinCount 1,
// Confidence 1.0, no negative signal).
type SubstructureRuleConfig struct {
	ID                 string
	Classes            []ontology.ClassID
	Pattern            string
	MinCount           int
	Confidence         float64
	NegativeConfidence float64
}

// NewSubstructureRule compiles the pattern and validates the configuration.
// Failures are RULE_001 / STRUCT_004 load-time errors.
func NewSubstructureRule(cfg SubstructureRuleConfig) (*SubstructureRule, error) {
	if cfg.ID == "" {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "substructure rule requires an ID")
	}
	p, err := structure.CompilePattern(cfg.Pattern)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRuleInvalid, "substructure rule pattern invalid").
			WithDetail("rule=" + cfg.ID)
	}
	if cfg.MinCount < 0 {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "min count must not be negative").
			WithDetail("rule=" + cfg.ID)
	}
	minCount := cfg.MinCount
	if minCount == 0 {
		minCount = 1
	}
	conf := cfg.Confidence
	if conf == 0 {
		conf = 1.0
	}
	if conf < 0 || conf > 1 || cfg.NegativeConfidence < 0 || cfg.NegativeConfidence > 1 {
		return nil, errors.New(errors.ErrCodeRuleInvalid, "confidence must be in [0,1]").
			WithDetail("rule=" + cfg.ID)
	}
	return &SubstructureRule{
		id:                 cfg.ID,
		classes:            cfg.Classes,
		pattern:            p,
		minCount:           minCount,
		confidence:         conf,
		negativeConfidence: cfg.NegativeConfidence,
	}, nil
}

func (r *SubstructureRule) ID() string                  { return r.id }
func (r *SubstructureRule) Classes() []ontology.ClassID { return r.classes }

func (r *SubstructureRule) Requires() Requirements {
	return Requirements{Patterns: []string{r.pattern.ID()}}
}

// Evaluate matches the pattern and reports the embeddings as evidence.
func (r *SubstructureRule) Evaluate(s structure.Structure) Outcome {
	matches := s.Match(r.pattern)
	if len(matches) >= r.minCount {
		return Outcome{
			RuleID:     r.id,
			Matched:    true,
			Confidence: r.confidence,
			Evidence: Evidence{
				MatchedAtomSets: matches,
				PatternID:       r.pattern.ID(),
				Reason:          fmt.Sprintf("pattern matched %d time(s)", len(matches)),
			},
		}
	}
	return Outcome{
		RuleID:     r.id,
		Matched:    false,
		Confidence: r.negativeConfidence,
		Evidence: Evidence{
			PatternID: r.pattern.ID(),
			Reason: fmt.Sprintf("pattern matched %d time(s), %d required",
				len(matches), r.minCount),
		},
	}
}
