package qgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphercore/graphengine/internal/ast"
	"github.com/cyphercore/graphengine/internal/graph"
)

func TestSingleChainPattern(t *testing.T) {
	schema := graph.NewSchema()
	schema.GetOrCreateLabel("Person")
	schema.GetOrCreateRelType("KNOWS")

	b := NewBuilder(schema)
	path := ast.PatternPath{
		Nodes: []ast.NodePattern{
			{Alias: "a", Labels: []string{"Person"}},
			{Alias: "b", Labels: []string{"Person"}},
		},
		Rels: []ast.RelPattern{
			{Alias: "r", Types: []string{"KNOWS"}, Direction: ast.DirOutgoing},
		},
	}

	graphs, err := b.Build([]ast.PatternPath{path})
	require.NoError(t, err)
	require.Len(t, graphs, 1)

	qg := graphs[0]
	assert.Len(t, qg.Nodes, 2)
	assert.Len(t, qg.Edges, 1)
	assert.Equal(t, "a", qg.Edges[0].Src.Alias)
	assert.Equal(t, "b", qg.Edges[0].Dst.Alias)
}

func TestRepeatedAliasSharesNode(t *testing.T) {
	schema := graph.NewSchema()
	b := NewBuilder(schema)

	p1 := ast.PatternPath{Nodes: []ast.NodePattern{{Alias: "a"}, {Alias: "b"}}, Rels: []ast.RelPattern{{Types: []string{"R"}}}}
	p2 := ast.PatternPath{Nodes: []ast.NodePattern{{Alias: "b"}, {Alias: "c"}}, Rels: []ast.RelPattern{{Types: []string{"S"}}}}

	graphs, err := b.Build([]ast.PatternPath{p1, p2})
	require.NoError(t, err)
	require.Len(t, graphs, 1, "sharing alias b must connect both patterns into one component")
	assert.Len(t, graphs[0].Nodes, 3)
}

func TestDisconnectedPatternsProduceMultipleComponents(t *testing.T) {
	schema := graph.NewSchema()
	b := NewBuilder(schema)

	p1 := ast.PatternPath{Nodes: []ast.NodePattern{{Alias: "a"}}}
	p2 := ast.PatternPath{Nodes: []ast.NodePattern{{Alias: "x"}}}

	graphs, err := b.Build([]ast.PatternPath{p1, p2})
	require.NoError(t, err)
	assert.Len(t, graphs, 2)
}

func TestInconsistentLabelsOnRepeatedAliasIsInvalidQuery(t *testing.T) {
	schema := graph.NewSchema()
	b := NewBuilder(schema)

	p1 := ast.PatternPath{Nodes: []ast.NodePattern{{Alias: "a", Labels: []string{"Person"}}}}
	p2 := ast.PatternPath{Nodes: []ast.NodePattern{{Alias: "a", Labels: []string{"Company"}}}}

	_, err := b.Build([]ast.PatternPath{p1, p2})
	assert.Error(t, err)
}

func TestVarLengthInvertedBoundsIsInvalidQuery(t *testing.T) {
	schema := graph.NewSchema()
	b := NewBuilder(schema)

	p := ast.PatternPath{
		Nodes: []ast.NodePattern{{Alias: "a"}, {Alias: "b"}},
		Rels:  []ast.RelPattern{{VarLength: true, MinHops: 5, MaxHops: 2}},
	}

	_, err := b.Build([]ast.PatternPath{p})
	assert.Error(t, err)
}
