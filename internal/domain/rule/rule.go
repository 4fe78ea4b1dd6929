// Package rule provides the classification predicate model for the
// ChemClassify engine.  Every rule shape (substructure match, descriptor
// threshold, learned scorer) implements the single Rule interface with
// statically declared dependencies, so the evaluator dispatches uniformly
// and new rule kinds never require evaluator changes.
package rule

import (
	"fmt"
	"sort"

	"github.com/turtacn/ChemClassify/internal/domain/ontology"
	"github.com/turtacn/ChemClassify/internal/domain/structure"
	"github.com/turtacn/ChemClassify/pkg/errors"
	"github.com/turtacn/ChemClassify/pkg/types/classify"
)

// ─────────────────────────────────────────────────────────────────────────────
// Evidence / Outcome
// ─────────────────────────────────────────────────────────────────────────────

// Evidence is the structured record behind a rule outcome.  Evidence is
// never a bare boolean: auditability requires the matched atoms, pattern
// identity, and consumed feature values to survive into the result.
type Evidence struct {
	MatchedAtomSets [][]int
	PatternID       string
	Features        map[string]float64

	// Unavailable marks a rule whose declared dependencies were not
	// satisfiable on this structure.  Such an outcome contributes no signal
	// and never aborts classification.
	Unavailable bool

	Reason string
}

// Outcome is the result of evaluating one rule against one structure.
type Outcome struct {
	RuleID  string
	Matched bool

	// Confidence is in [0,1].  For a matched outcome it expresses certainty
	// of the positive; for an unmatched outcome it expresses certainty of
	// the negative (0 for plain binary rules, which carry no negative
	// signal).
	Confidence float64

	Evidence Evidence
}

// ToDTO converts the outcome to its serializable form.
func (o Outcome) ToDTO() classify.RuleOutcomeDTO {
	return classify.RuleOutcomeDTO{
		RuleID:     o.RuleID,
		Matched:    o.Matched,
		Confidence: o.Confidence,
		Evidence: classify.EvidenceDTO{
			MatchedAtomSets: o.Evidence.MatchedAtomSets,
			PatternID:       o.Evidence.PatternID,
			Features:        o.Evidence.Features,
			Unavailable:     o.Evidence.Unavailable,
			Reason:          o.Evidence.Reason,
		},
	}
}

// unavailable builds the canonical outcome for a rule that cannot evaluate
// on the given structure.
func unavailable(ruleID, reason string) Outcome {
	return Outcome{
		RuleID:     ruleID,
		Matched:    false,
		Confidence: 0,
		Evidence:   Evidence{Unavailable: true, Reason: reason},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Rule contract
// ─────────────────────────────────────────────────────────────────────────────

// Requirements declares a rule's static dependencies so the evaluator can
// short-circuit structures that cannot satisfy them (e.g. a 3D-only rule on
// a structure without coordinates) instead of raising.
type Requirements struct {
	// Descriptors lists the named descriptors the rule reads.
	Descriptors []string

	// Patterns lists the substructure specifications the rule matches.
	Patterns []string

	// Needs3D is true for rules that only apply to structures carrying 3D
	// coordinates.
	Needs3D bool
}

// SatisfiedBy reports whether the structure can support this dependency set.
func (r Requirements) SatisfiedBy(s structure.Structure) bool {
	if r.Needs3D && !s.Has3D() {
		return false
	}
	for _, d := range r.Descriptors {
		if !s.HasDescriptor(d) {
			return false
		}
	}
	return true
}

// Rule is a single classification predicate.  Implementations must be pure:
// deterministic for a given structure, no side effects.  A rule that cannot
// evaluate reports an unavailable outcome rather than an error, so one
// broken rule never aborts a whole classification.
type Rule interface {
	// ID uniquely identifies the rule within a rule set.
	ID() string

	// Classes returns the ontology classes this rule asserts evidence for.
	Classes() []ontology.ClassID

	// Requires declares the rule's static dependencies.
	Requires() Requirements

	// Evaluate runs the predicate against the structure.
	Evaluate(s structure.Structure) Outcome
}

// ─────────────────────────────────────────────────────────────────────────────
// RuleSet: immutable class registry
// ─────────────────────────────────────────────────────────────────────────────

// RuleSet binds a validated ontology graph to the rules registered for its
// classes.  A RuleSet is immutable after construction and safe to share
// across concurrently classified structures; multiple rule sets (ontology
// versions) may coexist in one process because nothing here is global.
type RuleSet struct {
	graph   *ontology.Graph
	byClass map[ontology.ClassID][]Rule
	rules   []Rule
}

// NewRuleSet validates that every rule references only classes present in
// the graph and that rule IDs are unique.  Violations are load-time
// configuration errors (ONT_004 / RULE_001), never per-structure failures.
func NewRuleSet(graph *ontology.Graph, rules []Rule) (*RuleSet, error) {
	if graph == nil {
		return nil, errors.InvalidParam("rule set requires an ontology graph")
	}
	rs := &RuleSet{
		graph:   graph,
		byClass: make(map[ontology.ClassID][]Rule),
	}
	ids := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if r.ID() == "" {
			return nil, errors.New(errors.ErrCodeRuleInvalid, "rule with empty ID")
		}
		if _, dup := ids[r.ID()]; dup {
			return nil, errors.New(errors.ErrCodeRuleInvalid, "duplicate rule ID").
				WithDetail("rule=" + r.ID())
		}
		ids[r.ID()] = struct{}{}
		if len(r.Classes()) == 0 {
			return nil, errors.New(errors.ErrCodeRuleInvalid, "rule declares no classes").
				WithDetail("rule=" + r.ID())
		}
		for _, c := range r.Classes() {
			if !graph.Contains(c) {
				return nil, errors.OntologySpec(errors.ErrCodeOntologyUnknownClass,
					"rule references class missing from ontology").
					WithDetail(fmt.Sprintf("rule=%s class=%s", r.ID(), c))
			}
			rs.byClass[c] = append(rs.byClass[c], r)
		}
		rs.rules = append(rs.rules, r)
	}
	return rs, nil
}

// Graph returns the ontology graph the rule set is bound to.
func (rs *RuleSet) Graph() *ontology.Graph { return rs.graph }

// Rules returns all rules sorted by ID, for deterministic iteration.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// RulesFor returns the rules registered for the given class.
func (rs *RuleSet) RulesFor(c ontology.ClassID) []Rule {
	return rs.byClass[c]
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int { return len(rs.rules) }
