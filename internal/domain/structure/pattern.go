package structure

import (
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/turtacn/ChemClassify/pkg/errors"
)

// Substructure patterns are written in the same organic-subset notation as
// SMILES, extended with '*' (match any atom) and '~' (match any bond).
// A pattern matches when its graph embeds into the target graph: every
// pattern bond must exist in the target with a compatible order, extra
// target bonds are allowed, and the atom mapping is injective.

// patternCacheSize bounds the process-wide compiled-pattern cache.  Rule
// sets reuse a modest number of patterns across many structures, so a small
// LRU removes recompilation from the per-structure hot path.
const patternCacheSize = 512

var patternCache, _ = lru.New[string, *Pattern](patternCacheSize)

// patternAtom is one node of a compiled pattern.
type patternAtom struct {
	// wildcard atoms match any target atom.
	wildcard bool

	element  string
	aromatic bool

	// requireCharge/requireH are set for bracket pattern atoms, which
	// constrain formal charge and total hydrogen count exactly.
	requireCharge bool
	charge        int
	requireH      bool
	hCount        int
}

// patternEdge is one edge of a compiled pattern, in traversal order so the
// matcher extends a partial mapping one edge at a time.
type patternEdge struct {
	from, to int // pattern atom indices; from is always already mapped
	anyBond  bool
	order    int
	aromatic bool
}

// Pattern is a compiled, immutable substructure pattern.  Compile once and
// share freely; matching never mutates the pattern.
type Pattern struct {
	id    string
	atoms []patternAtom
	edges []patternEdge
}

// ID returns the source notation the pattern was compiled from.
func (p *Pattern) ID() string { return p.id }

// AtomCount returns the number of pattern atoms.
func (p *Pattern) AtomCount() int { return len(p.atoms) }

// CompilePattern compiles a pattern specification, consulting the
// process-wide LRU cache first.  Invalid specifications are STRUCT_004
// errors.
func CompilePattern(spec string) (*Pattern, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New(errors.ErrCodePatternInvalid, "empty pattern specification")
	}
	if cached, hit := patternCache.Get(spec); hit {
		return cached, nil
	}

	parser := &smilesParser{input: spec, allowWildcards: true}
	if err := parser.parse(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePatternInvalid, "pattern does not parse")
	}

	p := &Pattern{id: spec, atoms: make([]patternAtom, len(parser.atoms))}
	for i, pa := range parser.atoms {
		p.atoms[i] = patternAtom{
			wildcard:      pa.wildcard,
			element:       pa.atom.Element,
			aromatic:      pa.atom.Aromatic,
			requireCharge: pa.bracket && !pa.wildcard,
			charge:        pa.atom.Charge,
			requireH:      pa.bracket && !pa.wildcard && pa.atom.HCount > 0,
			hCount:        pa.atom.HCount,
		}
	}

	edges, err := orderEdges(len(parser.atoms), parser.bonds)
	if err != nil {
		return nil, err
	}
	p.edges = edges

	patternCache.Add(spec, p)
	return p, nil
}

// MustCompilePattern is CompilePattern for statically known specifications;
// it panics on error and is intended for package-level rule tables in tests.
func MustCompilePattern(spec string) *Pattern {
	p, err := CompilePattern(spec)
	if err != nil {
		panic(err)
	}
	return p
}

// orderEdges sorts pattern bonds into a traversal order where every edge
// extends the already-mapped subgraph.  Disconnected patterns are rejected:
// matching them would be a cartesian product with little classification
// value and an easy performance trap.
func orderEdges(atomCount int, bonds []parsedBond) ([]patternEdge, error) {
	if atomCount == 1 {
		return nil, nil
	}
	adj := make([][]int, atomCount)
	for bi, b := range bonds {
		adj[b.bond.From] = append(adj[b.bond.From], bi)
		adj[b.bond.To] = append(adj[b.bond.To], bi)
	}

	visited := make([]bool, atomCount)
	usedBond := make([]bool, len(bonds))
	var edges []patternEdge

	visited[0] = true
	frontier := []int{0}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for _, bi := range adj[cur] {
			if usedBond[bi] {
				continue
			}
			usedBond[bi] = true
			b := bonds[bi]
			other := b.bond.To
			if other == cur {
				other = b.bond.From
			}
			edges = append(edges, patternEdge{
				from:     cur,
				to:       other,
				anyBond:  b.anyBond,
				order:    b.bond.Order,
				aromatic: b.bond.Aromatic,
			})
			if !visited[other] {
				visited[other] = true
				frontier = append(frontier, other)
			}
		}
	}
	for i, v := range visited {
		if !v {
			return nil, errors.New(errors.ErrCodePatternInvalid, "pattern is disconnected").
				WithDetail("unreached atom index: " + strconv.Itoa(i))
		}
	}
	return edges, nil
}

// atomMatches reports whether target atom ti of m satisfies pattern atom pa.
func (m *Mol) atomMatches(pa patternAtom, ti int) bool {
	if pa.wildcard {
		return true
	}
	a := m.atoms[ti]
	if a.Element != pa.element || a.Aromatic != pa.aromatic {
		return false
	}
	if pa.requireCharge && a.Charge != pa.charge {
		return false
	}
	if pa.requireH && m.totalHydrogens(ti) != pa.hCount {
		return false
	}
	return true
}

// bondMatches reports whether target bond b satisfies pattern edge e.
func bondMatches(e patternEdge, b Bond) bool {
	if e.anyBond {
		return true
	}
	if e.aromatic {
		return b.Aromatic
	}
	return !b.Aromatic && b.Order == e.order
}

// Match returns every distinct embedding of p in the structure, each as a
// slice of target atom indices aligned with the pattern's atom order.
// Embeddings that map the same pattern atoms onto the same target atoms in
// the same order are returned once; symmetric pattern automorphisms are not
// collapsed.
func (m *Mol) Match(p *Pattern) [][]int {
	if p == nil || len(p.atoms) == 0 || len(p.atoms) > len(m.atoms) {
		return nil
	}

	mapping := make([]int, len(p.atoms))
	for i := range mapping {
		mapping[i] = -1
	}
	usedTarget := make([]bool, len(m.atoms))
	var found [][]int
	seen := make(map[string]struct{})

	var extend func(edgeIdx int)
	record := func() {
		key := matchKey(mapping)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		snapshot := make([]int, len(mapping))
		copy(snapshot, mapping)
		found = append(found, snapshot)
	}

	extend = func(edgeIdx int) {
		if edgeIdx == len(p.edges) {
			record()
			return
		}
		e := p.edges[edgeIdx]
		src := mapping[e.from]

		if mapped := mapping[e.to]; mapped >= 0 {
			// Ring-closing edge: both ends already placed.
			if b, ok := m.bondBetween(src, mapped); ok && bondMatches(e, b) {
				extend(edgeIdx + 1)
			}
			return
		}

		for k, nb := range m.adjAtoms[src] {
			if usedTarget[nb] {
				continue
			}
			b := m.bonds[m.adjBonds[src][k]]
			if !bondMatches(e, b) || !m.atomMatches(p.atoms[e.to], nb) {
				continue
			}
			mapping[e.to] = nb
			usedTarget[nb] = true
			extend(edgeIdx + 1)
			usedTarget[nb] = false
			mapping[e.to] = -1
		}
	}

	for ti := range m.atoms {
		if !m.atomMatches(p.atoms[0], ti) {
			continue
		}
		mapping[0] = ti
		usedTarget[ti] = true
		extend(0)
		usedTarget[ti] = false
		mapping[0] = -1
	}

	sort.Slice(found, func(a, b int) bool {
		for i := range found[a] {
			if found[a][i] != found[b][i] {
				return found[a][i] < found[b][i]
			}
		}
		return false
	})
	return found
}

func matchKey(mapping []int) string {
	var sb strings.Builder
	for _, v := range mapping {
		sb.WriteString(strconv.Itoa(v))
		sb.WriteByte(',')
	}
	return sb.String()
}
