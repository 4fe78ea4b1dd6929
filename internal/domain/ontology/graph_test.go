package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemClassify/pkg/errors"
)

// chebiFixture builds a small CHEBI-like hierarchy:
//
//	root ── acid ── carboxylic_acid
//	   └── base
//
// acid and base are declared disjoint.
func chebiFixture(t *testing.T) *Graph {
	t.Helper()
	g, err := NewGraph([]Class{
		{ID: "root", Name: "chemical entity"},
		{ID: "acid", Name: "acid", Parents: []ClassID{"root"}, DisjointWith: []ClassID{"base"}},
		{ID: "base", Name: "base", Parents: []ClassID{"root"}},
		{ID: "carboxylic_acid", Name: "carboxylic acid", Parents: []ClassID{"acid"}},
	})
	require.NoError(t, err)
	return g
}

func TestNewGraph_Validation(t *testing.T) {
	tests := []struct {
		name    string
		classes []Class
		code    errors.ErrorCode
	}{
		{
			name:    "empty",
			classes: nil,
			code:    errors.ErrCodeOntologyNoRoot,
		},
		{
			name: "dangling_parent",
			classes: []Class{
				{ID: "a", Parents: []ClassID{"missing"}},
			},
			code: errors.ErrCodeOntologyDangling,
		},
		{
			name: "duplicate_id",
			classes: []Class{
				{ID: "a"},
				{ID: "a"},
			},
			code: errors.ErrCodeOntologyDuplicate,
		},
		{
			name: "self_parent",
			classes: []Class{
				{ID: "a", Parents: []ClassID{"a"}},
			},
			code: errors.ErrCodeOntologyCycle,
		},
		{
			name: "two_node_cycle",
			classes: []Class{
				{ID: "r"},
				{ID: "a", Parents: []ClassID{"b", "r"}},
				{ID: "b", Parents: []ClassID{"a"}},
			},
			code: errors.ErrCodeOntologyCycle,
		},
		{
			name: "no_root",
			classes: []Class{
				{ID: "a", Parents: []ClassID{"b"}},
				{ID: "b", Parents: []ClassID{"a"}},
			},
			code: errors.ErrCodeOntologyNoRoot,
		},
		{
			name: "dangling_disjoint",
			classes: []Class{
				{ID: "a", DisjointWith: []ClassID{"ghost"}},
			},
			code: errors.ErrCodeOntologyDangling,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.classes)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "expected %s, got %v", tt.code, err)
			assert.True(t, errors.IsOntologySpec(err))
		})
	}
}

func TestGraph_Queries(t *testing.T) {
	g := chebiFixture(t)

	assert.Equal(t, 4, g.Len())
	assert.True(t, g.Contains("acid"))
	assert.False(t, g.Contains("ester"))
	assert.Equal(t, "carboxylic acid", g.Name("carboxylic_acid"))
	assert.Equal(t, []ClassID{"root"}, g.Roots())

	anc, err := g.Ancestors("carboxylic_acid")
	require.NoError(t, err)
	assert.Equal(t, []ClassID{"root", "acid"}, anc)

	desc, err := g.Descendants("root")
	require.NoError(t, err)
	assert.Equal(t, []ClassID{"acid", "base", "carboxylic_acid"}, desc)

	assert.True(t, g.IsAncestor("root", "carboxylic_acid"))
	assert.True(t, g.IsAncestor("acid", "carboxylic_acid"))
	assert.False(t, g.IsAncestor("carboxylic_acid", "acid"))
	assert.False(t, g.IsAncestor("acid", "acid"))

	d, err := g.Depth("carboxylic_acid")
	require.NoError(t, err)
	assert.Equal(t, 2, d)

	_, err = g.Depth("ghost")
	assert.True(t, errors.IsCode(err, errors.ErrCodeOntologyUnknownClass))
}

func TestGraph_UpDistance(t *testing.T) {
	g := chebiFixture(t)

	dist, ok := g.UpDistance("carboxylic_acid", "root")
	assert.True(t, ok)
	assert.Equal(t, 2, dist)

	dist, ok = g.UpDistance("carboxylic_acid", "acid")
	assert.True(t, ok)
	assert.Equal(t, 1, dist)

	_, ok = g.UpDistance("acid", "base")
	assert.False(t, ok)

	_, ok = g.UpDistance("acid", "acid")
	assert.False(t, ok)
}

func TestGraph_MultipleParents(t *testing.T) {
	// Diamond: bottom has two is_a paths to root of lengths 2 and 3.
	g, err := NewGraph([]Class{
		{ID: "root"},
		{ID: "left", Parents: []ClassID{"root"}},
		{ID: "mid", Parents: []ClassID{"left"}},
		{ID: "right", Parents: []ClassID{"root"}},
		{ID: "bottom", Parents: []ClassID{"mid", "right"}},
	})
	require.NoError(t, err)

	dist, ok := g.UpDistance("bottom", "root")
	assert.True(t, ok)
	assert.Equal(t, 2, dist, "UpDistance must take the shortest path")

	d, err := g.Depth("bottom")
	require.NoError(t, err)
	assert.Equal(t, 3, d, "Depth is the longest path from a root")

	anc, err := g.Ancestors("bottom")
	require.NoError(t, err)
	assert.ElementsMatch(t, []ClassID{"root", "left", "mid", "right"}, anc)
}

func TestGraph_Disjointness(t *testing.T) {
	g := chebiFixture(t)

	assert.True(t, g.AreDisjoint("acid", "base"))
	assert.True(t, g.AreDisjoint("base", "acid"), "disjointness is symmetric")
	assert.False(t, g.AreDisjoint("acid", "carboxylic_acid"))
	assert.False(t, g.AreDisjoint("acid", "ghost"))
}

func TestGraph_ClassesDeterministicOrder(t *testing.T) {
	g := chebiFixture(t)
	want := []ClassID{"root", "acid", "base", "carboxylic_acid"}
	for i := 0; i < 10; i++ {
		assert.Equal(t, want, g.Classes())
	}
}
