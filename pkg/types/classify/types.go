// Package classify defines the classification-domain Data Transfer Objects
// and enumerations used across every layer of the ChemClassify engine.  No
// domain logic lives here, only plain data types that are safe to import
// from any layer without creating circular dependencies.
package classify

import (
	"github.com/turtacn/ChemClassify/pkg/errors"
	"github.com/turtacn/ChemClassify/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// RuleAggregation: how multiple rules for one class combine
// ─────────────────────────────────────────────────────────────────────────────

// RuleAggregation selects how the evaluator combines the outcomes of
// multiple rules registered for the same ontology class.
type RuleAggregation string

const (
	// AggregationMax matches the class when any rule matches; the class
	// confidence is the maximum confidence among matching rules.  This is
	// the default OR semantics.
	AggregationMax RuleAggregation = "max"

	// AggregationAny matches the class when any rule matches and reports a
	// binary confidence of 1.0, discarding graded rule scores.
	AggregationAny RuleAggregation = "any"

	// AggregationAll matches the class only when every evaluable rule for
	// the class matches; the class confidence is the minimum confidence
	// among them.
	AggregationAll RuleAggregation = "all"
)

// IsValid reports whether the aggregation value is one of the known policies.
func (a RuleAggregation) IsValid() bool {
	switch a {
	case AggregationMax, AggregationAny, AggregationAll:
		return true
	}
	return false
}

// String returns the policy's wire representation.
func (a RuleAggregation) String() string { return string(a) }

// ParseRuleAggregation converts a string into a RuleAggregation, rejecting
// unknown values.
func ParseRuleAggregation(s string) (RuleAggregation, error) {
	a := RuleAggregation(s)
	if !a.IsValid() {
		return "", errors.InvalidParam("unknown rule aggregation policy").
			WithDetail("value=" + s)
	}
	return a, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Evidence / outcome DTOs
// ─────────────────────────────────────────────────────────────────────────────

// EvidenceDTO is the serializable form of the evidence attached to a rule
// outcome.  Evidence is always structured, never a bare boolean, so that
// classification decisions remain auditable after the fact.
type EvidenceDTO struct {
	// MatchedAtomSets lists, for substructure evidence, each matching set of
	// atom indices in the evaluated structure.
	MatchedAtomSets [][]int `json:"matched_atom_sets,omitempty"`

	// PatternID identifies the substructure pattern that produced the match.
	PatternID string `json:"pattern_id,omitempty"`

	// Features carries the named numeric descriptor values the rule consumed.
	Features map[string]float64 `json:"features,omitempty"`

	// Unavailable is true when the rule could not evaluate on this structure
	// (missing descriptor, 3D-only rule on a 2D structure).  An unavailable
	// outcome contributes no signal and never aborts classification.
	Unavailable bool `json:"unavailable,omitempty"`

	// Reason is a human-readable note explaining the outcome.
	Reason string `json:"reason,omitempty"`
}

// RuleOutcomeDTO is the serializable form of one rule evaluation.
type RuleOutcomeDTO struct {
	RuleID     string      `json:"rule_id"`
	Matched    bool        `json:"matched"`
	Confidence float64     `json:"confidence"`
	Evidence   EvidenceDTO `json:"evidence"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Result DTOs
// ─────────────────────────────────────────────────────────────────────────────

// AssignmentDTO is one assigned ontology class in a classification result.
type AssignmentDTO struct {
	// ClassID identifies the assigned ontology class.
	ClassID string `json:"class_id"`

	// ClassName is the rdfs:label of the class, when the ontology carries one.
	ClassName string `json:"class_name,omitempty"`

	// Confidence is the final confidence in [0,1] after aggregation and
	// hierarchy propagation.
	Confidence float64 `json:"confidence"`

	// Direct is true when at least one rule matched this class itself;
	// false when the class is implied by a matched descendant.
	Direct bool `json:"direct"`

	// ImpliedBy names the most specific directly matched descendant that
	// implied this class.  Empty for direct assignments.
	ImpliedBy string `json:"implied_by,omitempty"`

	// Provenance lists the rule outcomes that contributed to the assignment.
	Provenance []RuleOutcomeDTO `json:"provenance,omitempty"`
}

// ConflictDTO records an ontology-inconsistent combination of signals.
// Conflicts are first-class output, not engine failures: the caller decides
// whether to reject, flag for review, or accept best-effort.
type ConflictDTO struct {
	// ClassID is the class carrying the contradicted signal (the explicitly
	// negative ancestor, or one of a disjoint sibling pair).
	ClassID string `json:"class_id"`

	// ContradictedBy is the matched class whose positive signal contradicts
	// ClassID.
	ContradictedBy string `json:"contradicted_by"`

	// Kind is "ancestor_negative" or "disjoint_siblings".
	Kind string `json:"kind"`

	// NegativeConfidence is the confidence of the explicit negative signal
	// (zero for disjoint-sibling conflicts).
	NegativeConfidence float64 `json:"negative_confidence,omitempty"`

	// PositiveConfidence is the confidence of the contradicting positive signal.
	PositiveConfidence float64 `json:"positive_confidence"`
}

// ClassificationResultDTO is the engine's serializable output for one
// molecular structure.
type ClassificationResultDTO struct {
	// ID uniquely identifies this classification run.
	ID common.ID `json:"id"`

	// StructureName is the caller-supplied label of the classified structure.
	StructureName string `json:"structure_name,omitempty"`

	// InputSMILES echoes the source notation when the structure was built
	// from SMILES; informational only.
	InputSMILES string `json:"input_smiles,omitempty"`

	// Assignments is ordered most-specific-first.
	Assignments []AssignmentDTO `json:"assignments"`

	// Conflicts lists every detected inconsistency.
	Conflicts []ConflictDTO `json:"conflicts,omitempty"`

	// EvaluatedAt is the UTC time the result was produced.
	EvaluatedAt common.Timestamp `json:"evaluated_at"`
}
