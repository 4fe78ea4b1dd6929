package engine

import (
	"math"
	"sort"

	"github.com/turtacn/ChemClassify/internal/domain/classification"
	"github.com/turtacn/ChemClassify/internal/domain/ontology"
	"github.com/turtacn/ChemClassify/internal/infrastructure/logging"
)

// reconciler turns per-class signals into a hierarchy-consistent assignment
// set.  Matched classes imply their ancestors; an ancestor carrying an
// explicit negative at or above the conflict threshold is withheld from the
// assignments and surfaced as a conflict instead.  Disjointness violations
// are flagged but both assignments are kept, leaving the policy decision to
// the caller.
type reconciler struct {
	graph     *ontology.Graph
	threshold float64
	decay     float64
	log       logging.Logger
}

func newReconciler(graph *ontology.Graph, opts Options) *reconciler {
	return &reconciler{
		graph:     graph,
		threshold: opts.ConflictConfidenceThreshold,
		decay:     opts.EdgeDecayFactor,
		log:       opts.Logger.Named("reconciler"),
	}
}

// propagation is the best implied confidence an ancestor receives from its
// matched descendants.
type propagation struct {
	confidence float64
	via        ontology.ClassID
	viaDepth   int
}

func (r *reconciler) reconcile(signals map[ontology.ClassID]ClassSignal) ([]classification.Assignment, []classification.Conflict) {
	direct := r.directMatches(signals)
	implied := r.propagate(direct, signals)

	var conflicts []classification.Conflict
	contradicted := make(map[ontology.ClassID]struct{})

	// An explicitly negative class with a matched proper descendant is a
	// contradiction: the descendant's positive wins the assignment set, the
	// negative wins a conflict entry.  Classes that also matched directly are
	// not withheld; their own positive evidence already outweighed the
	// negative during aggregation.
	for _, anc := range r.sortedSignalClasses(signals) {
		sig := signals[anc]
		if sig.Matched || sig.NegativeConfidence < r.threshold {
			continue
		}
		best, ok := r.strongestDescendant(anc, direct, signals)
		if !ok {
			continue
		}
		contradicted[anc] = struct{}{}
		conflicts = append(conflicts, classification.Conflict{
			Class:              anc,
			ContradictedBy:     best,
			Kind:               classification.ConflictAncestorNegative,
			NegativeConfidence: sig.NegativeConfidence,
			PositiveConfidence: signals[best].Confidence,
		})
		r.log.Debug("ancestor contradicted by matched descendant",
			logging.String("class", string(anc)),
			logging.String("contradicted_by", string(best)),
			logging.Float64("negative_confidence", sig.NegativeConfidence))
	}

	assignments := r.buildAssignments(direct, implied, signals, contradicted)
	conflicts = append(conflicts, r.disjointConflicts(assignments)...)

	sortAssignments(r.graph, assignments)
	sortConflicts(conflicts)
	return assignments, conflicts
}

func (r *reconciler) directMatches(signals map[ontology.ClassID]ClassSignal) []ontology.ClassID {
	var out []ontology.ClassID
	for c, sig := range signals {
		if sig.Matched {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// propagate walks from every directly matched class to its ancestors,
// attenuating confidence by decay per edge over the shortest upward path.
// Each ancestor keeps the strongest contribution; ties prefer the deeper
// (more specific) implying descendant, then the smaller class ID.
func (r *reconciler) propagate(direct []ontology.ClassID, signals map[ontology.ClassID]ClassSignal) map[ontology.ClassID]propagation {
	implied := make(map[ontology.ClassID]propagation)
	for _, d := range direct {
		dDepth, err := r.graph.Depth(d)
		if err != nil {
			continue
		}
		ancestors, err := r.graph.Ancestors(d)
		if err != nil {
			continue
		}
		conf := signals[d].Confidence
		for _, a := range ancestors {
			dist, ok := r.graph.UpDistance(d, a)
			if !ok {
				continue
			}
			contribution := conf * math.Pow(r.decay, float64(dist))
			cur, seen := implied[a]
			replace := !seen ||
				contribution > cur.confidence ||
				(contribution == cur.confidence && (dDepth > cur.viaDepth ||
					(dDepth == cur.viaDepth && d < cur.via)))
			if replace {
				implied[a] = propagation{confidence: contribution, via: d, viaDepth: dDepth}
			}
		}
	}
	return implied
}

// strongestDescendant returns the directly matched proper descendant of anc
// with the highest confidence, preferring deeper classes and then smaller
// IDs on ties.
func (r *reconciler) strongestDescendant(anc ontology.ClassID, direct []ontology.ClassID, signals map[ontology.ClassID]ClassSignal) (ontology.ClassID, bool) {
	var (
		best      ontology.ClassID
		bestConf  float64
		bestDepth int
		found     bool
	)
	for _, d := range direct {
		if d == anc || !r.graph.IsAncestor(anc, d) {
			continue
		}
		depth, err := r.graph.Depth(d)
		if err != nil {
			continue
		}
		conf := signals[d].Confidence
		better := !found ||
			conf > bestConf ||
			(conf == bestConf && (depth > bestDepth || (depth == bestDepth && d < best)))
		if better {
			best, bestConf, bestDepth, found = d, conf, depth, true
		}
	}
	return best, found
}

func (r *reconciler) buildAssignments(
	direct []ontology.ClassID,
	implied map[ontology.ClassID]propagation,
	signals map[ontology.ClassID]ClassSignal,
	contradicted map[ontology.ClassID]struct{},
) []classification.Assignment {
	directSet := make(map[ontology.ClassID]struct{}, len(direct))
	for _, d := range direct {
		directSet[d] = struct{}{}
	}

	var out []classification.Assignment
	for _, d := range direct {
		conf := signals[d].Confidence
		// A deeper matched descendant can raise a direct ancestor's
		// confidence; propagation never lowers it.
		if p, ok := implied[d]; ok && p.confidence > conf {
			conf = p.confidence
		}
		out = append(out, classification.Assignment{
			Class:      d,
			ClassName:  r.graph.Name(d),
			Confidence: conf,
			Direct:     true,
			Provenance: signals[d].Outcomes,
		})
	}
	for a, p := range implied {
		if _, isDirect := directSet[a]; isDirect {
			continue
		}
		if _, blocked := contradicted[a]; blocked {
			continue
		}
		out = append(out, classification.Assignment{
			Class:      a,
			ClassName:  r.graph.Name(a),
			Confidence: p.confidence,
			Direct:     false,
			ImpliedBy:  p.via,
			Provenance: signals[a].Outcomes,
		})
	}
	return out
}

// disjointConflicts flags every assigned pair declared mutually exclusive.
// Both assignments are kept; rejecting or accepting a flagged structure is a
// caller policy.
func (r *reconciler) disjointConflicts(assignments []classification.Assignment) []classification.Conflict {
	var out []classification.Conflict
	for i := 0; i < len(assignments); i++ {
		for j := i + 1; j < len(assignments); j++ {
			a, b := assignments[i], assignments[j]
			if !r.graph.AreDisjoint(a.Class, b.Class) {
				continue
			}
			if b.Class < a.Class {
				a, b = b, a
			}
			out = append(out, classification.Conflict{
				Class:              a.Class,
				ContradictedBy:     b.Class,
				Kind:               classification.ConflictDisjointSiblings,
				PositiveConfidence: b.Confidence,
			})
			r.log.Debug("disjoint classes both assigned",
				logging.String("class", string(a.Class)),
				logging.String("contradicted_by", string(b.Class)))
		}
	}
	return out
}

func (r *reconciler) sortedSignalClasses(signals map[ontology.ClassID]ClassSignal) []ontology.ClassID {
	out := make([]ontology.ClassID, 0, len(signals))
	for c := range signals {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// sortAssignments orders most-specific-first: depth descending, confidence
// descending, class ID ascending.
func sortAssignments(g *ontology.Graph, assignments []classification.Assignment) {
	depth := func(c ontology.ClassID) int {
		d, err := g.Depth(c)
		if err != nil {
			return 0
		}
		return d
	}
	sort.Slice(assignments, func(i, j int) bool {
		di, dj := depth(assignments[i].Class), depth(assignments[j].Class)
		if di != dj {
			return di > dj
		}
		if assignments[i].Confidence != assignments[j].Confidence {
			return assignments[i].Confidence > assignments[j].Confidence
		}
		return assignments[i].Class < assignments[j].Class
	})
}

func sortConflicts(conflicts []classification.Conflict) {
	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Class != conflicts[j].Class {
			return conflicts[i].Class < conflicts[j].Class
		}
		return conflicts[i].ContradictedBy < conflicts[j].ContradictedBy
	})
}
