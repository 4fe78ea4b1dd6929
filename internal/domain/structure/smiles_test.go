package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemClassify/pkg/errors"
)

func TestParseSMILES_AceticAcid(t *testing.T) {
	m, err := ParseSMILES("CC(=O)O")
	require.NoError(t, err)

	assert.Equal(t, 4, m.AtomCount())
	assert.Equal(t, 3, m.BondCount())

	// Carbonyl carbon carries one double and two single bonds.
	assert.Equal(t, []int{0, 2, 3}, m.Neighbors(1))
	b, ok := m.bondBetween(1, 2)
	require.True(t, ok)
	assert.Equal(t, 2, b.Order)

	// Implicit hydrogens: methyl 3, carbonyl C 0, =O 0, -OH 1.
	assert.Equal(t, 3, m.totalHydrogens(0))
	assert.Equal(t, 0, m.totalHydrogens(1))
	assert.Equal(t, 0, m.totalHydrogens(2))
	assert.Equal(t, 1, m.totalHydrogens(3))

	assert.Empty(t, m.Rings())
	assert.False(t, m.Has3D())
}

func TestParseSMILES_Benzene(t *testing.T) {
	m, err := ParseSMILES("c1ccccc1")
	require.NoError(t, err)

	assert.Equal(t, 6, m.AtomCount())
	assert.Equal(t, 6, m.BondCount())
	require.Len(t, m.Rings(), 1)
	assert.Len(t, m.Rings()[0], 6)
	assert.True(t, m.isAromaticRing(m.Rings()[0]))

	for i := 0; i < 6; i++ {
		assert.True(t, m.Atom(i).Aromatic)
		assert.Equal(t, 1, m.totalHydrogens(i))
	}
}

func TestParseSMILES_Pyridine(t *testing.T) {
	m, err := ParseSMILES("c1ccncc1")
	require.NoError(t, err)
	// The ring nitrogen has no hydrogen.
	var nIdx = -1
	for i := 0; i < m.AtomCount(); i++ {
		if m.Atom(i).Element == "N" {
			nIdx = i
		}
	}
	require.NotEqual(t, -1, nIdx)
	assert.Equal(t, 0, m.totalHydrogens(nIdx))
}

func TestParseSMILES_BracketAtoms(t *testing.T) {
	m, err := ParseSMILES("[13CH4]")
	require.NoError(t, err)
	a := m.Atom(0)
	assert.Equal(t, "C", a.Element)
	assert.Equal(t, 13, a.Isotope)
	assert.Equal(t, 4, a.HCount)
	assert.Equal(t, 4, m.totalHydrogens(0))

	m, err = ParseSMILES("CC(=O)[O-]")
	require.NoError(t, err)
	assert.Equal(t, -1, m.Atom(3).Charge)
	assert.Equal(t, 0, m.totalHydrogens(3))

	m, err = ParseSMILES("[NH4+]")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Atom(0).Charge)
	assert.Equal(t, 4, m.totalHydrogens(0))

	// Chirality marks parse and are ignored.
	m, err = ParseSMILES("N[C@@H](C)C(=O)O")
	require.NoError(t, err)
	assert.Equal(t, 6, m.AtomCount())
}

func TestParseSMILES_RingClosureVariants(t *testing.T) {
	// Cyclohexane via %-notation.
	m, err := ParseSMILES("C%10CCCCC%10")
	require.NoError(t, err)
	require.Len(t, m.Rings(), 1)
	assert.Len(t, m.Rings()[0], 6)
	assert.False(t, m.isAromaticRing(m.Rings()[0]))

	// Naphthalene: two fused aromatic rings.
	m, err = ParseSMILES("c1ccc2ccccc2c1")
	require.NoError(t, err)
	assert.Equal(t, 10, m.AtomCount())
	assert.Equal(t, 11, m.BondCount())
	assert.Len(t, m.Rings(), 2)
}

func TestParseSMILES_DisconnectedComponents(t *testing.T) {
	// Sodium acetate written as two components.
	m, err := ParseSMILES("CC(=O)[O-].[Na+]")
	require.NoError(t, err)
	assert.Equal(t, 5, m.AtomCount())
	assert.Equal(t, 3, m.BondCount())
}

func TestParseSMILES_Errors(t *testing.T) {
	tests := []struct {
		name   string
		smiles string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"unclosed_branch", "C(C"},
		{"unmatched_close", "CC)C"},
		{"unclosed_ring", "C1CC"},
		{"ring_to_self", "C11"},
		{"unclosed_bracket", "[CH4"},
		{"bad_character", "CX"},
		{"wildcard_atom_outside_pattern", "C*C"},
		{"any_bond_outside_pattern", "C~C"},
		{"branch_before_atom", "(C)"},
		{"bare_percent", "C%1C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSMILES(tt.smiles)
			require.Error(t, err)
			assert.True(t, errors.IsStructureError(err), "want STRUCT_* error, got %v", err)
		})
	}
}

func TestNewMol_Validation(t *testing.T) {
	_, err := NewMol(nil, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructureInvalid))

	_, err = NewMol([]Atom{{Element: "Xx"}}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructureInvalid))

	atoms := []Atom{{Element: "C", HCount: -1}, {Element: "C", HCount: -1}}
	_, err = NewMol(atoms, []Bond{{From: 0, To: 5, Order: 1}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructureInvalid))

	_, err = NewMol(atoms, []Bond{{From: 1, To: 1, Order: 1}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructureInvalid))

	_, err = NewMol(atoms, []Bond{{From: 0, To: 1, Order: 4}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructureInvalid))
}

func TestWithCoordinates(t *testing.T) {
	m, err := ParseSMILES("CC")
	require.NoError(t, err)

	_, err = m.WithCoordinates([][3]float64{{0, 0, 0}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructureInvalid))

	m3d, err := m.WithCoordinates([][3]float64{{0, 0, 0}, {1.54, 0, 0}})
	require.NoError(t, err)
	assert.True(t, m3d.Has3D())
	assert.False(t, m.Has3D(), "original molecule must stay 2D")
}
