package procs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/types"
)

func buildPeopleGraph(t *testing.T) *graph.PropertyGraph {
	t.Helper()
	g := graph.New()
	alice := g.AddNode([]string{"Person"}, map[string]types.SIValue{
		"name": types.ConstString("Alice Anderson"),
		"bio":  types.ConstString("loves distributed systems"),
	})
	bob := g.AddNode([]string{"Person"}, map[string]types.SIValue{
		"name": types.ConstString("Bob"),
		"bio":  types.ConstString("plays guitar"),
	})
	_, err := g.AddEdge(alice.ID, bob.ID, "KNOWS", map[string]types.SIValue{"since": types.Int(2020)})
	require.NoError(t, err)
	return g
}

func TestLookupResolvesAllFiveProcedures(t *testing.T) {
	for _, name := range []string{
		"db.idx.fulltext.createNodeIndex",
		"db.idx.fulltext.queryNodes",
		"db.labels",
		"db.propertyKeys",
		"db.relationshipTypes",
	} {
		_, ok := Lookup(name)
		assert.True(t, ok, "expected %s to be registered", name)
	}
	_, ok := Lookup("db.idx.vector.queryNodes")
	assert.False(t, ok)
}

func TestCreateNodeIndexMarksSchemaIndexed(t *testing.T) {
	g := buildPeopleGraph(t)
	proc, ok := Lookup("db.idx.fulltext.createNodeIndex")
	require.True(t, ok)

	rows, err := proc.Call(g, []types.SIValue{types.ConstString("Person"), types.ConstString("bio")})
	require.NoError(t, err)
	assert.Empty(t, rows)

	label, ok := g.Schema().ResolveLabel("Person")
	require.True(t, ok)
	assert.True(t, g.Schema().IsIndexed(label, "bio"))
}

func TestQueryNodesMatchesCaseInsensitiveSubstring(t *testing.T) {
	g := buildPeopleGraph(t)
	proc, ok := Lookup("db.idx.fulltext.queryNodes")
	require.True(t, ok)

	rows, err := proc.Call(g, []types.SIValue{types.ConstString("Person"), types.ConstString("GUITAR")})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, types.KindNode, rows[0][0].Kind)
}

func TestQueryNodesUnknownLabelYieldsNoRows(t *testing.T) {
	g := buildPeopleGraph(t)
	proc, ok := Lookup("db.idx.fulltext.queryNodes")
	require.True(t, ok)

	rows, err := proc.Call(g, []types.SIValue{types.ConstString("Company"), types.ConstString("anything")})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDbLabelsAndRelationshipTypes(t *testing.T) {
	g := buildPeopleGraph(t)

	labelsProc, ok := Lookup("db.labels")
	require.True(t, ok)
	rows, err := labelsProc.Call(g, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Person", rows[0][0].S)

	relProc, ok := Lookup("db.relationshipTypes")
	require.True(t, ok)
	rows, err = relProc.Call(g, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "KNOWS", rows[0][0].S)
}

func TestDbPropertyKeysCoversNodesAndEdges(t *testing.T) {
	g := buildPeopleGraph(t)
	proc, ok := Lookup("db.propertyKeys")
	require.True(t, ok)

	rows, err := proc.Call(g, nil)
	require.NoError(t, err)
	var keys []string
	for _, r := range rows {
		keys = append(keys, r[0].S)
	}
	assert.ElementsMatch(t, []string{"name", "bio", "since"}, keys)
}
