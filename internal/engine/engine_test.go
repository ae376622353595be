package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphercore/graphengine/internal/types"
)

func seedGraph(e *Engine, name string) {
	g := e.CreateGraph(name)
	a := g.AddNode([]string{"Person"}, map[string]types.SIValue{
		"name": types.ConstString("Ada"),
		"age":  {Kind: types.KindInt64, I: 36},
	})
	b := g.AddNode([]string{"Person"}, map[string]types.SIValue{
		"name": types.ConstString("Grace"),
		"age":  {Kind: types.KindInt64, I: 48},
	})
	_, _ = g.AddEdge(a.ID, b.ID, "KNOWS", nil)
}

func TestEngineQueryReturnsRenderedRows(t *testing.T) {
	e := New(nil)
	seedGraph(e, "social")

	res, err := e.Query(context.Background(), "social",
		"MATCH (p:Person) RETURN p.name AS name", nil, FormatterVerbose)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, res.Columns)
	assert.Len(t, res.Rows, 2)
	assert.NotEmpty(t, res.QueryID)
}

func TestEngineQueryUnknownGraph(t *testing.T) {
	e := New(nil)
	_, err := e.Query(context.Background(), "nope", "MATCH (n) RETURN n", nil, FormatterCompact)
	assert.Error(t, err)
}

func TestEngineExplainDoesNotRequireExecution(t *testing.T) {
	e := New(nil)
	seedGraph(e, "social")

	out, err := e.Explain(context.Background(), "social", "MATCH (p:Person) RETURN p.name AS name", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestEngineProfileCollectsOperatorStats(t *testing.T) {
	e := New(nil)
	seedGraph(e, "social")

	res, err := e.Profile(context.Background(), "social", "MATCH (p:Person) RETURN p.name AS name", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Operators)
	for _, s := range res.Operators {
		assert.GreaterOrEqual(t, s.Calls, 0)
	}
}

func TestEngineDeleteGraphRemovesIt(t *testing.T) {
	e := New(nil)
	seedGraph(e, "social")

	require.NoError(t, e.DeleteGraph("social"))
	_, ok := e.Graph("social")
	assert.False(t, ok)

	assert.Error(t, e.DeleteGraph("social"))
}

func TestEngineWriteClauseRejectedUnderExclusiveLock(t *testing.T) {
	e := New(nil)
	seedGraph(e, "social")

	_, err := e.Query(context.Background(), "social", "CREATE (n:Person)", nil, FormatterCompact)
	assert.Error(t, err)
}
