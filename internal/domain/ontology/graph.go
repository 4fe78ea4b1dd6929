// Package ontology provides the class hierarchy model for the ChemClassify
// engine: an immutable directed acyclic graph of chemical classes connected
// by is_a edges.  The graph is an arena keyed by stable ClassID; adjacency
// is stored as index slices, never as live object references, so a single
// validated graph can be shared read-only across concurrently classified
// structures.
package ontology

import (
	"fmt"
	"sort"

	"github.com/turtacn/ChemClassify/pkg/errors"
)

// ClassID is the opaque identifier of an ontology class (e.g. "CHEBI:33575").
// Unique within a graph.
type ClassID string

// Class is the load-time description of one ontology class.
type Class struct {
	// ID is the class identifier, unique within the graph.
	ID ClassID

	// Name is the rdfs:label of the class.
	Name string

	// Definition is the curated textual definition, carried through for
	// auditability; the engine never interprets it.
	Definition string

	// Parents lists the direct is_a superclasses.  A class with no parents
	// is a root.  Multiple parents are allowed.
	Parents []ClassID

	// DisjointWith lists classes that no structure may be assigned together
	// with this one.  Symmetric; declaring one direction suffices.
	DisjointWith []ClassID
}

// Graph is the validated, immutable ontology DAG.  All methods are safe for
// concurrent use.
type Graph struct {
	ids      []ClassID
	index    map[ClassID]int
	names    []string
	parents  [][]int
	children [][]int
	depth    []int // max is_a distance from a root
	disjoint map[int]map[int]struct{}
}

// NewGraph validates the class list and builds the arena representation.
// Validation failures are ONT_* configuration errors: dangling parent or
// disjoint references, duplicate IDs, is_a cycles, or an ontology without a
// single root.  They surface at load time, before any structure is
// classified.
func NewGraph(classes []Class) (*Graph, error) {
	if len(classes) == 0 {
		return nil, errors.OntologySpec(errors.ErrCodeOntologyNoRoot, "ontology has no classes")
	}

	g := &Graph{
		ids:      make([]ClassID, len(classes)),
		index:    make(map[ClassID]int, len(classes)),
		names:    make([]string, len(classes)),
		parents:  make([][]int, len(classes)),
		children: make([][]int, len(classes)),
		disjoint: make(map[int]map[int]struct{}),
	}

	for i, c := range classes {
		if c.ID == "" {
			return nil, errors.OntologySpec(errors.ErrCodeOntologyDangling, "class with empty ID")
		}
		if _, dup := g.index[c.ID]; dup {
			return nil, errors.OntologySpec(errors.ErrCodeOntologyDuplicate, "duplicate class ID").
				WithDetail("class=" + string(c.ID))
		}
		g.ids[i] = c.ID
		g.names[i] = c.Name
		g.index[c.ID] = i
	}

	hasRoot := false
	for i, c := range classes {
		for _, p := range c.Parents {
			pi, ok := g.index[p]
			if !ok {
				return nil, errors.OntologySpec(errors.ErrCodeOntologyDangling, "parent class not defined").
					WithDetail(fmt.Sprintf("class=%s parent=%s", c.ID, p))
			}
			if pi == i {
				return nil, errors.OntologySpec(errors.ErrCodeOntologyCycle, "class is its own parent").
					WithDetail("class=" + string(c.ID))
			}
			g.parents[i] = append(g.parents[i], pi)
			g.children[pi] = append(g.children[pi], i)
		}
		if len(c.Parents) == 0 {
			hasRoot = true
		}
		for _, d := range c.DisjointWith {
			di, ok := g.index[d]
			if !ok {
				return nil, errors.OntologySpec(errors.ErrCodeOntologyDangling, "disjoint class not defined").
					WithDetail(fmt.Sprintf("class=%s disjoint_with=%s", c.ID, d))
			}
			g.addDisjoint(i, di)
			g.addDisjoint(di, i)
		}
	}
	if !hasRoot {
		return nil, errors.OntologySpec(errors.ErrCodeOntologyNoRoot, "ontology has no root class")
	}

	depth, err := g.topologicalDepths()
	if err != nil {
		return nil, err
	}
	g.depth = depth

	return g, nil
}

func (g *Graph) addDisjoint(a, b int) {
	set, ok := g.disjoint[a]
	if !ok {
		set = make(map[int]struct{})
		g.disjoint[a] = set
	}
	set[b] = struct{}{}
}

// topologicalDepths runs Kahn's algorithm over the is_a edges, returning the
// max-distance-from-root depth of every class, or an ONT_001 error when the
// graph contains a cycle.
func (g *Graph) topologicalDepths() ([]int, error) {
	n := len(g.ids)
	indeg := make([]int, n)
	for i := range g.parents {
		indeg[i] = len(g.parents[i])
	}

	depth := make([]int, n)
	queue := make([]int, 0, n)
	for i, d := range indeg {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	seen := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		seen++
		for _, child := range g.children[cur] {
			if depth[cur]+1 > depth[child] {
				depth[child] = depth[cur] + 1
			}
			indeg[child]--
			if indeg[child] == 0 {
				queue = append(queue, child)
			}
		}
	}
	if seen != n {
		var cyclic []string
		for i, d := range indeg {
			if d > 0 {
				cyclic = append(cyclic, string(g.ids[i]))
			}
		}
		sort.Strings(cyclic)
		return nil, errors.OntologySpec(errors.ErrCodeOntologyCycle, "is_a cycle in ontology").
			WithDetail(fmt.Sprintf("classes=%v", cyclic))
	}
	return depth, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// Len returns the number of classes in the graph.
func (g *Graph) Len() int { return len(g.ids) }

// Contains reports whether id is a class of this graph.
func (g *Graph) Contains(id ClassID) bool {
	_, ok := g.index[id]
	return ok
}

// Name returns the rdfs:label of id, or the empty string for unknown classes.
func (g *Graph) Name(id ClassID) string {
	i, ok := g.index[id]
	if !ok {
		return ""
	}
	return g.names[i]
}

// Roots returns the classes without parents, in insertion order.
func (g *Graph) Roots() []ClassID {
	var roots []ClassID
	for i := range g.ids {
		if len(g.parents[i]) == 0 {
			roots = append(roots, g.ids[i])
		}
	}
	return roots
}

// Depth returns the max is_a distance of id from a root.  Unknown classes
// report an ONT_004 error.
func (g *Graph) Depth(id ClassID) (int, error) {
	i, ok := g.index[id]
	if !ok {
		return 0, errors.OntologySpec(errors.ErrCodeOntologyUnknownClass, "unknown class").
			WithDetail("class=" + string(id))
	}
	return g.depth[i], nil
}

// Parents returns the direct superclasses of id.
func (g *Graph) Parents(id ClassID) ([]ClassID, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, errors.OntologySpec(errors.ErrCodeOntologyUnknownClass, "unknown class").
			WithDetail("class=" + string(id))
	}
	out := make([]ClassID, len(g.parents[i]))
	for k, pi := range g.parents[i] {
		out[k] = g.ids[pi]
	}
	return out, nil
}

// Ancestors returns every transitive superclass of id, deduplicated, in
// ascending depth order (nearest roots last is NOT guaranteed; order is by
// class depth for determinism).
func (g *Graph) Ancestors(id ClassID) ([]ClassID, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, errors.OntologySpec(errors.ErrCodeOntologyUnknownClass, "unknown class").
			WithDetail("class=" + string(id))
	}
	seen := make(map[int]struct{})
	var walk func(int)
	walk = func(cur int) {
		for _, pi := range g.parents[cur] {
			if _, dup := seen[pi]; dup {
				continue
			}
			seen[pi] = struct{}{}
			walk(pi)
		}
	}
	walk(i)
	return g.sortedIDs(seen), nil
}

// Descendants returns every transitive subclass of id, deduplicated, sorted
// by depth then ID.
func (g *Graph) Descendants(id ClassID) ([]ClassID, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, errors.OntologySpec(errors.ErrCodeOntologyUnknownClass, "unknown class").
			WithDetail("class=" + string(id))
	}
	seen := make(map[int]struct{})
	var walk func(int)
	walk = func(cur int) {
		for _, ci := range g.children[cur] {
			if _, dup := seen[ci]; dup {
				continue
			}
			seen[ci] = struct{}{}
			walk(ci)
		}
	}
	walk(i)
	return g.sortedIDs(seen), nil
}

// IsAncestor reports whether anc is a transitive superclass of id.
// A class is not its own ancestor.
func (g *Graph) IsAncestor(anc, id ClassID) bool {
	ai, ok := g.index[anc]
	if !ok {
		return false
	}
	i, ok := g.index[id]
	if !ok {
		return false
	}
	_, found := g.upDistance(i, ai)
	return found
}

// UpDistance returns the minimum number of is_a edges from id up to anc,
// and whether anc is reachable at all.  Used by the reconciler for per-edge
// confidence decay.
func (g *Graph) UpDistance(id, anc ClassID) (int, bool) {
	i, ok := g.index[id]
	if !ok {
		return 0, false
	}
	ai, ok := g.index[anc]
	if !ok {
		return 0, false
	}
	return g.upDistance(i, ai)
}

// upDistance is a BFS along parent edges from src to dst.
func (g *Graph) upDistance(src, dst int) (int, bool) {
	if src == dst {
		return 0, false
	}
	type node struct{ idx, dist int }
	visited := map[int]struct{}{src: {}}
	queue := []node{{src, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, pi := range g.parents[cur.idx] {
			if pi == dst {
				return cur.dist + 1, true
			}
			if _, dup := visited[pi]; dup {
				continue
			}
			visited[pi] = struct{}{}
			queue = append(queue, node{pi, cur.dist + 1})
		}
	}
	return 0, false
}

// AreDisjoint reports whether a and b are declared mutually exclusive.
func (g *Graph) AreDisjoint(a, b ClassID) bool {
	ai, ok := g.index[a]
	if !ok {
		return false
	}
	bi, ok := g.index[b]
	if !ok {
		return false
	}
	_, found := g.disjoint[ai][bi]
	return found
}

// Classes returns every ClassID sorted by depth then ID, for deterministic
// iteration.
func (g *Graph) Classes() []ClassID {
	all := make(map[int]struct{}, len(g.ids))
	for i := range g.ids {
		all[i] = struct{}{}
	}
	return g.sortedIDs(all)
}

// sortedIDs orders an index set by (depth asc, ID asc) so that callers
// iterating the result are deterministic regardless of map order.
func (g *Graph) sortedIDs(set map[int]struct{}) []ClassID {
	idx := make([]int, 0, len(set))
	for i := range set {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool {
		if g.depth[idx[a]] != g.depth[idx[b]] {
			return g.depth[idx[a]] < g.depth[idx[b]]
		}
		return g.ids[idx[a]] < g.ids[idx[b]]
	})
	out := make([]ClassID, len(idx))
	for k, i := range idx {
		out[k] = g.ids[i]
	}
	return out
}
