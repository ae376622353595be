package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphercore/graphengine/internal/index"
	"github.com/cyphercore/graphengine/internal/types"
)

func drainIDs(it index.Iterator) []types.EntityID {
	var ids []types.EntityID
	for {
		id, ok := it.Next()
		if !ok {
			return ids
		}
		ids = append(ids, id)
	}
}

func TestCreateNodeIndexBackfillsExistingNodes(t *testing.T) {
	g := New()
	g.AddNode([]string{"Person"}, map[string]types.SIValue{"age": types.Int(30)})
	g.AddNode([]string{"Person"}, map[string]types.SIValue{"age": types.Int(40)})
	label, ok := g.Schema().ResolveLabel("Person")
	require.True(t, ok)

	idx := g.CreateNodeIndex(label, "age")
	tok := &index.Token{Index: idx, Value: types.Int(30)}
	assert.Len(t, drainIDs(tok.Iterator()), 1)

	assert.True(t, g.Schema().IsIndexed(label, "age"))
	got, ok := g.Index(label, "age")
	require.True(t, ok)
	assert.Same(t, idx, got)
}

func TestIndexTracksNodesAddedAndRemovedAfterCreation(t *testing.T) {
	g := New()
	label := g.Schema().GetOrCreateLabel("Person")
	g.CreateNodeIndex(label, "age")

	n := g.AddNode([]string{"Person"}, map[string]types.SIValue{"age": types.Int(50)})
	idx, ok := g.Index(label, "age")
	require.True(t, ok)

	tok := &index.Token{Index: idx, Value: types.Int(50)}
	assert.Contains(t, drainIDs(tok.Iterator()), n.ID)

	require.NoError(t, g.RemoveNode(n.ID))
	assert.NotContains(t, drainIDs(tok.Iterator()), n.ID)
}
