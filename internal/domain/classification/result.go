// Package classification defines the engine's output model: class
// assignments with provenance, hierarchy conflicts, and the per-structure
// Result that carries them.  The domain types here are what the engine and
// reconciler operate on; pkg/types/classify holds their serializable DTOs.
package classification

import (
	"github.com/turtacn/ChemClassify/internal/domain/ontology"
	"github.com/turtacn/ChemClassify/internal/domain/rule"
	"github.com/turtacn/ChemClassify/pkg/types/classify"
	"github.com/turtacn/ChemClassify/pkg/types/common"
)

// Assignment is one assigned ontology class with its supporting evidence.
type Assignment struct {
	Class      ontology.ClassID
	ClassName  string
	Confidence float64

	// Direct is true when a rule matched this class itself; false when the
	// class is implied by a matched descendant through the hierarchy.
	Direct bool

	// ImpliedBy names the most specific directly matched descendant that
	// implied this class.  Empty for direct assignments.
	ImpliedBy ontology.ClassID

	// Provenance lists the rule outcomes evaluated for this class, including
	// unavailable ones.  Implied assignments carry the provenance of the
	// implying descendant's class only through ImpliedBy, not duplicated here.
	Provenance []rule.Outcome
}

// ConflictKind discriminates the two inconsistency shapes the reconciler
// detects.
type ConflictKind string

const (
	// ConflictAncestorNegative marks an ancestor carrying an explicit
	// negative signal while one of its descendants matched.
	ConflictAncestorNegative ConflictKind = "ancestor_negative"

	// ConflictDisjointSiblings marks two assigned classes declared mutually
	// exclusive by the ontology.
	ConflictDisjointSiblings ConflictKind = "disjoint_siblings"
)

// Conflict records one ontology-inconsistent signal combination.  A conflict
// is an output, not a failure: the result still carries its assignments and
// the caller decides how to treat the flagged structure.
type Conflict struct {
	Class              ontology.ClassID
	ContradictedBy     ontology.ClassID
	Kind               ConflictKind
	NegativeConfidence float64
	PositiveConfidence float64
}

// Result is the classification outcome for one structure.
type Result struct {
	ID            common.ID
	StructureName string
	InputSMILES   string

	// Assignments is ordered most-specific-first: depth descending, then
	// confidence descending, then class ID ascending.
	Assignments []Assignment

	Conflicts   []Conflict
	EvaluatedAt common.Timestamp
}

// Assigned returns the assignment for the given class, if present.
func (r *Result) Assigned(c ontology.ClassID) (Assignment, bool) {
	for _, a := range r.Assignments {
		if a.Class == c {
			return a, true
		}
	}
	return Assignment{}, false
}

// HasConflicts reports whether the reconciler flagged any inconsistency.
func (r *Result) HasConflicts() bool { return len(r.Conflicts) > 0 }

// ToDTO converts the result to its serializable form.
func (r *Result) ToDTO() classify.ClassificationResultDTO {
	dto := classify.ClassificationResultDTO{
		ID:            r.ID,
		StructureName: r.StructureName,
		InputSMILES:   r.InputSMILES,
		Assignments:   make([]classify.AssignmentDTO, 0, len(r.Assignments)),
		EvaluatedAt:   r.EvaluatedAt,
	}
	for _, a := range r.Assignments {
		ad := classify.AssignmentDTO{
			ClassID:    string(a.Class),
			ClassName:  a.ClassName,
			Confidence: a.Confidence,
			Direct:     a.Direct,
			ImpliedBy:  string(a.ImpliedBy),
		}
		for _, o := range a.Provenance {
			ad.Provenance = append(ad.Provenance, o.ToDTO())
		}
		dto.Assignments = append(dto.Assignments, ad)
	}
	for _, c := range r.Conflicts {
		dto.Conflicts = append(dto.Conflicts, classify.ConflictDTO{
			ClassID:            string(c.Class),
			ContradictedBy:     string(c.ContradictedBy),
			Kind:               string(c.Kind),
			NegativeConfidence: c.NegativeConfidence,
			PositiveConfidence: c.PositiveConfidence,
		})
	}
	return dto
}
