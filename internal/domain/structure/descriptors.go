package structure

import (
	"math"

	"github.com/turtacn/ChemClassify/pkg/errors"
)

// Descriptor names recognised by the adapter.  Rules declare these
// statically so the evaluator can short-circuit unsupported structures.
const (
	DescMolWeight         = "mol_weight"
	DescHeavyAtomCount    = "heavy_atom_count"
	DescRingCount         = "ring_count"
	DescAromaticRingCount = "aromatic_ring_count"
	DescHBondDonors       = "h_bond_donors"
	DescHBondAcceptors    = "h_bond_acceptors"
	DescLogP              = "log_p"
	DescTPSA              = "tpsa"
	DescRotatableBonds    = "rotatable_bonds"
	DescFormalCharge      = "formal_charge"

	// DescRadiusOfGyration is defined only for structures carrying 3D
	// coordinates.
	DescRadiusOfGyration = "radius_of_gyration"
)

// atomicMass holds average atomic masses for the supported element set.
var atomicMass = map[string]float64{
	"H": 1.008, "B": 10.811, "C": 12.011, "N": 14.007, "O": 15.999,
	"F": 18.998, "P": 30.974, "S": 32.06, "Cl": 35.45, "Br": 79.904,
	"I": 126.904, "Si": 28.086, "Se": 78.971,
	// Counter-ions and common hetero metals seen in salt forms.
	"Li": 6.94, "Na": 22.990, "K": 39.098, "Mg": 24.305, "Ca": 40.078,
	"Al": 26.982, "Fe": 55.845, "Zn": 65.38, "Cu": 63.546, "As": 74.922,
}

// crippenContribution is a coarse additive logP model: per-heavy-atom
// contributions in the spirit of Crippen's method, without the full SMARTS
// typing.  Adequate for threshold rules; not a substitute for a real
// cheminformatics toolkit.
func crippenContribution(a Atom) float64 {
	switch a.Element {
	case "C":
		if a.Aromatic {
			return 0.29
		}
		return 0.14
	case "N":
		return -0.60
	case "O":
		return -0.40
	case "S":
		return 0.40
	case "F":
		return 0.22
	case "Cl":
		return 0.65
	case "Br":
		return 0.86
	case "I":
		return 1.12
	case "P":
		return -0.20
	default:
		return 0.0
	}
}

// descriptorFunc computes one named descriptor.  The bool result reports
// whether the descriptor is defined for the structure at all; undefined
// descriptors surface as STRUCT_003 errors from Descriptor.
type descriptorFunc func(m *Mol) (float64, bool)

// descriptorTable is the static descriptor registry.  It is immutable after
// package initialisation; per-structure values are cached on the Mol.
var descriptorTable = map[string]descriptorFunc{
	DescMolWeight: func(m *Mol) (float64, bool) {
		w := 0.0
		for i, a := range m.atoms {
			mass, ok := atomicMass[a.Element]
			if !ok {
				return 0, false
			}
			w += mass + float64(m.totalHydrogens(i))*atomicMass["H"]
		}
		return w, true
	},
	DescHeavyAtomCount: func(m *Mol) (float64, bool) {
		return float64(len(m.atoms)), true
	},
	DescRingCount: func(m *Mol) (float64, bool) {
		return float64(len(m.rings)), true
	},
	DescAromaticRingCount: func(m *Mol) (float64, bool) {
		n := 0
		for _, ring := range m.rings {
			if m.isAromaticRing(ring) {
				n++
			}
		}
		return float64(n), true
	},
	DescHBondDonors: func(m *Mol) (float64, bool) {
		n := 0
		for i, a := range m.atoms {
			if (a.Element == "N" || a.Element == "O") && m.totalHydrogens(i) > 0 {
				n++
			}
		}
		return float64(n), true
	},
	DescHBondAcceptors: func(m *Mol) (float64, bool) {
		n := 0
		for _, a := range m.atoms {
			if a.Element == "N" || a.Element == "O" {
				n++
			}
		}
		return float64(n), true
	},
	DescLogP: func(m *Mol) (float64, bool) {
		p := 0.0
		for _, a := range m.atoms {
			p += crippenContribution(a)
		}
		return p, true
	},
	DescTPSA: func(m *Mol) (float64, bool) {
		// Simplified Ertl-style contributions: protonated vs bare N/O.
		t := 0.0
		for i, a := range m.atoms {
			h := m.totalHydrogens(i)
			switch a.Element {
			case "O":
				if h > 0 {
					t += 20.23
				} else {
					t += 9.23
				}
			case "N":
				if h > 0 {
					t += 12.03
				} else {
					t += 3.24
				}
			}
		}
		return t, true
	},
	DescRotatableBonds: func(m *Mol) (float64, bool) {
		ringBonds := m.ringBondSet()
		n := 0
		for bi, b := range m.bonds {
			if b.Order != 1 || b.Aromatic {
				continue
			}
			if _, inRing := ringBonds[bi]; inRing {
				continue
			}
			// Terminal bonds do not rotate anything.
			if len(m.adjAtoms[b.From]) < 2 || len(m.adjAtoms[b.To]) < 2 {
				continue
			}
			n++
		}
		return float64(n), true
	},
	DescFormalCharge: func(m *Mol) (float64, bool) {
		q := 0
		for _, a := range m.atoms {
			q += a.Charge
		}
		return float64(q), true
	},
	DescRadiusOfGyration: func(m *Mol) (float64, bool) {
		if m.coords == nil {
			return 0, false
		}
		var cx, cy, cz float64
		for _, c := range m.coords {
			cx += c[0]
			cy += c[1]
			cz += c[2]
		}
		n := float64(len(m.coords))
		cx, cy, cz = cx/n, cy/n, cz/n
		var sum float64
		for _, c := range m.coords {
			dx, dy, dz := c[0]-cx, c[1]-cy, c[2]-cz
			sum += dx*dx + dy*dy + dz*dz
		}
		return math.Sqrt(sum / n), true
	},
}

// ringBondSet returns the indices of bonds participating in any perceived ring.
func (m *Mol) ringBondSet() map[int]struct{} {
	set := make(map[int]struct{})
	for _, ring := range m.rings {
		for i := range ring {
			a, b := ring[i], ring[(i+1)%len(ring)]
			for k, nb := range m.adjAtoms[a] {
				if nb == b {
					set[m.adjBonds[a][k]] = struct{}{}
				}
			}
		}
	}
	return set
}

// KnownDescriptor reports whether name is in the descriptor registry,
// regardless of whether it is defined for any particular structure.
func KnownDescriptor(name string) bool {
	_, ok := descriptorTable[name]
	return ok
}

// HasDescriptor reports whether the named descriptor is defined for this
// structure.  3D descriptors are defined only when coordinates are present.
func (m *Mol) HasDescriptor(name string) bool {
	fn, ok := descriptorTable[name]
	if !ok {
		return false
	}
	if name == DescRadiusOfGyration {
		return m.coords != nil
	}
	_ = fn
	return true
}

// Descriptor returns the named descriptor value, computing it on first
// access and caching it for the lifetime of the Mol.  Unknown or undefined
// descriptors report a STRUCT_003 error.
func (m *Mol) Descriptor(name string) (float64, error) {
	m.mu.RLock()
	if v, hit := m.cache[name]; hit {
		m.mu.RUnlock()
		return v, nil
	}
	m.mu.RUnlock()

	fn, ok := descriptorTable[name]
	if !ok {
		return 0, errors.DescriptorUndefined(name)
	}
	v, defined := fn(m)
	if !defined {
		return 0, errors.DescriptorUndefined(name)
	}

	m.mu.Lock()
	m.cache[name] = v
	m.mu.Unlock()
	return v, nil
}
