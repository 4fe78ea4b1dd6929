package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemClassify/pkg/errors"
)

const testEpsilon = 1e-6

func TestDescriptor_MolWeight(t *testing.T) {
	tests := []struct {
		smiles string
		want   float64
	}{
		{"C", 16.043},        // methane: 12.011 + 4*1.008
		{"CC(=O)O", 60.052},  // acetic acid C2H4O2
		{"O", 18.015},        // water
		{"c1ccccc1", 78.114}, // benzene C6H6
	}
	for _, tt := range tests {
		t.Run(tt.smiles, func(t *testing.T) {
			m, err := ParseSMILES(tt.smiles)
			require.NoError(t, err)
			w, err := m.Descriptor(DescMolWeight)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, w, 0.01)
		})
	}
}

func TestDescriptor_CountsOnAceticAcid(t *testing.T) {
	m, err := ParseSMILES("CC(=O)O")
	require.NoError(t, err)

	get := func(name string) float64 {
		t.Helper()
		v, err := m.Descriptor(name)
		require.NoError(t, err)
		return v
	}

	assert.InDelta(t, 4, get(DescHeavyAtomCount), testEpsilon)
	assert.InDelta(t, 0, get(DescRingCount), testEpsilon)
	assert.InDelta(t, 0, get(DescAromaticRingCount), testEpsilon)
	assert.InDelta(t, 1, get(DescHBondDonors), testEpsilon)
	assert.InDelta(t, 2, get(DescHBondAcceptors), testEpsilon)
	assert.InDelta(t, 0, get(DescFormalCharge), testEpsilon)
	// C-C is terminal-adjacent on the methyl side but both ends have
	// degree >= 2? The methyl carbon has degree 1, so nothing rotates.
	assert.InDelta(t, 0, get(DescRotatableBonds), testEpsilon)
}

func TestDescriptor_AromaticRings(t *testing.T) {
	m, err := ParseSMILES("c1ccc2ccccc2c1") // naphthalene
	require.NoError(t, err)

	rc, err := m.Descriptor(DescRingCount)
	require.NoError(t, err)
	assert.InDelta(t, 2, rc, testEpsilon)

	arc, err := m.Descriptor(DescAromaticRingCount)
	require.NoError(t, err)
	assert.InDelta(t, 2, arc, testEpsilon)

	cyclohexane, err := ParseSMILES("C1CCCCC1")
	require.NoError(t, err)
	arc, err = cyclohexane.Descriptor(DescAromaticRingCount)
	require.NoError(t, err)
	assert.InDelta(t, 0, arc, testEpsilon)
}

func TestDescriptor_RotatableBonds(t *testing.T) {
	// Butane: one central rotatable bond.
	m, err := ParseSMILES("CCCC")
	require.NoError(t, err)
	v, err := m.Descriptor(DescRotatableBonds)
	require.NoError(t, err)
	assert.InDelta(t, 1, v, testEpsilon)

	// Biphenyl: the inter-ring single bond rotates.
	m, err = ParseSMILES("c1ccccc1-c1ccccc1")
	require.NoError(t, err)
	v, err = m.Descriptor(DescRotatableBonds)
	require.NoError(t, err)
	assert.InDelta(t, 1, v, testEpsilon)
}

func TestDescriptor_FormalCharge(t *testing.T) {
	m, err := ParseSMILES("CC(=O)[O-]")
	require.NoError(t, err)
	v, err := m.Descriptor(DescFormalCharge)
	require.NoError(t, err)
	assert.InDelta(t, -1, v, testEpsilon)
}

func TestDescriptor_UndefinedAndUnknown(t *testing.T) {
	m, err := ParseSMILES("CCO")
	require.NoError(t, err)

	_, err = m.Descriptor("no_such_descriptor")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDescriptorUndefined))

	// 3D descriptor on a 2D structure is undefined, not an internal error.
	_, err = m.Descriptor(DescRadiusOfGyration)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDescriptorUndefined))
	assert.False(t, m.HasDescriptor(DescRadiusOfGyration))
	assert.True(t, m.HasDescriptor(DescMolWeight))
	assert.False(t, m.HasDescriptor("no_such_descriptor"))

	assert.True(t, KnownDescriptor(DescRadiusOfGyration))
	assert.False(t, KnownDescriptor("no_such_descriptor"))
}

func TestDescriptor_RadiusOfGyrationWith3D(t *testing.T) {
	m, err := ParseSMILES("CC")
	require.NoError(t, err)
	m3d, err := m.WithCoordinates([][3]float64{{0, 0, 0}, {2, 0, 0}})
	require.NoError(t, err)

	v, err := m3d.Descriptor(DescRadiusOfGyration)
	require.NoError(t, err)
	// Two points 2 apart: centroid at 1, every atom 1 away.
	assert.InDelta(t, 1.0, v, testEpsilon)
}

func TestDescriptor_CachesValues(t *testing.T) {
	m, err := ParseSMILES("CCO")
	require.NoError(t, err)

	first, err := m.Descriptor(DescMolWeight)
	require.NoError(t, err)

	m.mu.RLock()
	cached, hit := m.cache[DescMolWeight]
	m.mu.RUnlock()
	assert.True(t, hit)
	assert.Equal(t, first, cached)

	again, err := m.Descriptor(DescMolWeight)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}
