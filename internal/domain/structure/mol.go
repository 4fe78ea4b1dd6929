// Package structure provides the molecular structure adapter for the
// ChemClassify engine.  It wraps a parsed molecular graph (atoms, bonds,
// rings, computed descriptors) behind the Structure interface so the engine
// never depends on a specific chemistry toolkit.  A Mol is immutable after
// construction apart from its internal descriptor cache; concurrent reads
// of one Mol are safe, so a single instance may be shared across
// concurrently classified structures.
package structure

import (
	"fmt"
	"sync"

	"github.com/turtacn/ChemClassify/pkg/errors"
)

// maxRingSize bounds ring perception; larger macrocycles are ignored, which
// matches the behaviour of the descriptor set (no macrocycle descriptors).
const maxRingSize = 12

// ─────────────────────────────────────────────────────────────────────────────
// Atom / Bond primitives
// ─────────────────────────────────────────────────────────────────────────────

// Atom is one node of the molecular graph.
type Atom struct {
	// Element is the IUPAC symbol ("C", "Cl").
	Element string

	// Aromatic marks atoms written in aromatic (lowercase) SMILES form or
	// perceived as part of an aromatic ring.
	Aromatic bool

	// Charge is the formal charge.
	Charge int

	// Isotope is the mass number, or 0 for the natural abundance mix.
	Isotope int

	// HCount is the explicit hydrogen count from a bracket atom, or -1 when
	// hydrogens are implicit and derived from default valence.
	HCount int
}

// BondStereo marks directional (cis/trans) single bonds.
type BondStereo int

const (
	StereoNone BondStereo = iota
	StereoUp              // "/" in SMILES
	StereoDown            // "\" in SMILES
)

// Bond is one edge of the molecular graph.
type Bond struct {
	// From and To are atom indices; From < To is not guaranteed.
	From, To int

	// Order is the bond order (1, 2, 3).  Aromatic bonds carry Order 1 with
	// Aromatic set.
	Order int

	// Aromatic marks bonds inside an aromatic system.
	Aromatic bool

	// Stereo marks directional single bonds adjacent to double bonds.
	Stereo BondStereo
}

// ─────────────────────────────────────────────────────────────────────────────
// Structure: the engine-facing capability set
// ─────────────────────────────────────────────────────────────────────────────

// Structure is the fixed capability set the classification engine depends
// on: atom/bond iteration, ring access, substructure matching, and named
// descriptor lookup.  Implementations must be read-only from the engine's
// point of view; internal descriptor caching is the only permitted side
// effect.
type Structure interface {
	// AtomCount returns the number of heavy atoms.
	AtomCount() int

	// Atom returns the atom at index i.
	Atom(i int) Atom

	// BondCount returns the number of bonds.
	BondCount() int

	// Bond returns the bond at index i.
	Bond(i int) Bond

	// Neighbors returns the atom indices bonded to atom i.
	Neighbors(i int) []int

	// Rings returns the perceived rings as atom-index slices.
	Rings() [][]int

	// Descriptor returns the named numeric descriptor, computing and caching
	// it on first access.  Undefined descriptors report a STRUCT_003 error.
	Descriptor(name string) (float64, error)

	// HasDescriptor reports whether the named descriptor is defined for this
	// structure without computing it.
	HasDescriptor(name string) bool

	// Match returns all distinct embeddings of the pattern in this
	// structure, each as a slice of target atom indices in pattern-atom
	// order.
	Match(p *Pattern) [][]int

	// Has3D reports whether the structure carries 3D coordinates.
	Has3D() bool
}

// ─────────────────────────────────────────────────────────────────────────────
// Mol: concrete Structure backed by an explicit graph
// ─────────────────────────────────────────────────────────────────────────────

// Mol is the concrete Structure implementation.  Construct via NewMol or
// ParseSMILES; the zero value is not usable.
type Mol struct {
	atoms []Atom
	bonds []Bond

	// adjacency: neighbor atom indices and the bond index reaching them,
	// aligned slices per atom.
	adjAtoms [][]int
	adjBonds [][]int

	rings [][]int

	coords [][3]float64 // nil when no 3D information is present

	// descriptor cache; guarded because batch callers may probe descriptors
	// of a shared reference structure concurrently.
	mu    sync.RWMutex
	cache map[string]float64
}

// NewMol validates the atom and bond lists and builds the adjacency and ring
// tables.  Validation failures (empty molecule, bond index out of range,
// self-bond, unknown element, bad order) are STRUCT_001 errors.
func NewMol(atoms []Atom, bonds []Bond) (*Mol, error) {
	if len(atoms) == 0 {
		return nil, errors.StructureInvalid("molecule has no atoms")
	}
	for i, a := range atoms {
		if _, ok := atomicMass[a.Element]; !ok {
			return nil, errors.StructureInvalid("unknown element").
				WithDetail(fmt.Sprintf("atom=%d element=%q", i, a.Element))
		}
	}
	for i, b := range bonds {
		if b.From < 0 || b.From >= len(atoms) || b.To < 0 || b.To >= len(atoms) {
			return nil, errors.StructureInvalid("bond references missing atom").
				WithDetail(fmt.Sprintf("bond=%d from=%d to=%d", i, b.From, b.To))
		}
		if b.From == b.To {
			return nil, errors.StructureInvalid("bond connects atom to itself").
				WithDetail(fmt.Sprintf("bond=%d atom=%d", i, b.From))
		}
		if b.Order < 1 || b.Order > 3 {
			return nil, errors.StructureInvalid("bond order out of range").
				WithDetail(fmt.Sprintf("bond=%d order=%d", i, b.Order))
		}
	}

	m := &Mol{
		atoms:    atoms,
		bonds:    bonds,
		adjAtoms: make([][]int, len(atoms)),
		adjBonds: make([][]int, len(atoms)),
		cache:    make(map[string]float64),
	}
	for bi, b := range bonds {
		m.adjAtoms[b.From] = append(m.adjAtoms[b.From], b.To)
		m.adjBonds[b.From] = append(m.adjBonds[b.From], bi)
		m.adjAtoms[b.To] = append(m.adjAtoms[b.To], b.From)
		m.adjBonds[b.To] = append(m.adjBonds[b.To], bi)
	}
	m.rings = m.perceiveRings()
	return m, nil
}

// WithCoordinates returns a copy of m carrying per-atom 3D coordinates,
// enabling the 3D descriptor set.  The coordinate count must equal the atom
// count.
func (m *Mol) WithCoordinates(coords [][3]float64) (*Mol, error) {
	if len(coords) != len(m.atoms) {
		return nil, errors.StructureInvalid("coordinate count does not match atom count").
			WithDetail(fmt.Sprintf("atoms=%d coords=%d", len(m.atoms), len(coords)))
	}
	clone := &Mol{
		atoms:    m.atoms,
		bonds:    m.bonds,
		adjAtoms: m.adjAtoms,
		adjBonds: m.adjBonds,
		rings:    m.rings,
		coords:   coords,
		cache:    make(map[string]float64),
	}
	return clone, nil
}

func (m *Mol) AtomCount() int      { return len(m.atoms) }
func (m *Mol) Atom(i int) Atom     { return m.atoms[i] }
func (m *Mol) BondCount() int      { return len(m.bonds) }
func (m *Mol) Bond(i int) Bond     { return m.bonds[i] }
func (m *Mol) Neighbors(i int) []int { return m.adjAtoms[i] }
func (m *Mol) Rings() [][]int      { return m.rings }
func (m *Mol) Has3D() bool         { return m.coords != nil }

// bondBetween returns the bond joining atoms a and b, if any.
func (m *Mol) bondBetween(a, b int) (Bond, bool) {
	for k, nb := range m.adjAtoms[a] {
		if nb == b {
			return m.bonds[m.adjBonds[a][k]], true
		}
	}
	return Bond{}, false
}

// ─────────────────────────────────────────────────────────────────────────────
// Hydrogen model
// ─────────────────────────────────────────────────────────────────────────────

// defaultValence is the organic-subset default valence table.  Charge
// adjustments are handled in totalHydrogens.
var defaultValence = map[string]int{
	"B": 3, "C": 4, "N": 3, "O": 2, "P": 3, "S": 2,
	"F": 1, "Cl": 1, "Br": 1, "I": 1,
}

// totalHydrogens returns the hydrogen count on atom i: the explicit bracket
// count when present, otherwise the implicit count derived from default
// valence minus the bond order sum.  Aromatic bonds contribute 1.5 to the
// sum (integer arithmetic on doubled orders avoids floats).
func (m *Mol) totalHydrogens(i int) int {
	a := m.atoms[i]
	if a.HCount >= 0 {
		return a.HCount
	}
	val, ok := defaultValence[a.Element]
	if !ok {
		return 0
	}
	// Charge shifts valence for the common organic cases: N+ binds four,
	// O- binds one.
	switch a.Element {
	case "N", "P":
		val += a.Charge
	case "O", "S":
		val += a.Charge
	}

	sum2 := 0 // doubled bond-order sum
	for _, bi := range m.adjBonds[i] {
		b := m.bonds[bi]
		if b.Aromatic {
			sum2 += 3
		} else {
			sum2 += 2 * b.Order
		}
	}
	h := (2*val - sum2) / 2
	if h < 0 {
		return 0
	}
	return h
}

// ─────────────────────────────────────────────────────────────────────────────
// Ring perception
// ─────────────────────────────────────────────────────────────────────────────

// perceiveRings finds, for every bond, the smallest ring containing it (up
// to maxRingSize atoms) by BFS over the graph with that bond removed.
// Duplicate rings are collapsed by their atom set.  The result approximates
// the smallest set of smallest rings, which is sufficient for the ring-count
// and aromatic-ring descriptors.
func (m *Mol) perceiveRings() [][]int {
	seen := make(map[string]struct{})
	var rings [][]int

	for bi, b := range m.bonds {
		path := m.shortestPathAvoiding(b.From, b.To, bi)
		if path == nil || len(path) > maxRingSize {
			continue
		}
		key := ringKey(path)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rings = append(rings, path)
	}
	return rings
}

// shortestPathAvoiding returns the shortest atom path from src to dst that
// does not traverse bond skipBond, or nil when src and dst disconnect.
func (m *Mol) shortestPathAvoiding(src, dst, skipBond int) []int {
	prev := make([]int, len(m.atoms))
	for i := range prev {
		prev[i] = -1
	}
	prev[src] = src
	queue := []int{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == dst {
			var path []int
			for at := dst; ; at = prev[at] {
				path = append(path, at)
				if at == src {
					break
				}
			}
			return path
		}
		for k, nb := range m.adjAtoms[cur] {
			if m.adjBonds[cur][k] == skipBond || prev[nb] != -1 {
				continue
			}
			prev[nb] = cur
			queue = append(queue, nb)
		}
	}
	return nil
}

// ringKey builds an order-independent identity for a ring's atom set.
func ringKey(atoms []int) string {
	present := make(map[int]struct{}, len(atoms))
	for _, a := range atoms {
		present[a] = struct{}{}
	}
	// Sorted-set key without pulling in sort for a hot path: rings are tiny.
	key := ""
	for a := 0; len(present) > 0; a++ {
		if _, ok := present[a]; ok {
			key += fmt.Sprintf("%d,", a)
			delete(present, a)
		}
	}
	return key
}

// isAromaticRing reports whether every atom and every internal bond of the
// ring is aromatic.
func (m *Mol) isAromaticRing(ring []int) bool {
	for _, ai := range ring {
		if !m.atoms[ai].Aromatic {
			return false
		}
	}
	for i := range ring {
		b, ok := m.bondBetween(ring[i], ring[(i+1)%len(ring)])
		if !ok || !b.Aromatic {
			return false
		}
	}
	return true
}
