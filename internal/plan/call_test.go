package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphercore/graphengine/internal/ast"
	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/types"
)

// labelsQuery builds `CALL db.labels() YIELD label RETURN label` by
// hand, standing in for the parser (internal/dsl), which is not
// exercised by this package's tests.
func labelsQuery() *ast.Query {
	return &ast.Query{
		Clauses: []ast.Clause{
			&ast.CallClause{Name: "db.labels", Yield: []string{"label"}},
		},
		Return: &ast.ReturnClause{
			Items: []ast.ProjectionItem{{
				Expr:  &ast.Variable{Name: "label"},
				Alias: "label",
			}},
		},
	}
}

func TestBuilderRunsCallClauseAndYieldsColumns(t *testing.T) {
	g := graph.New()
	g.AddNode([]string{"Person"}, map[string]types.SIValue{"name": types.ConstString("alice")})
	g.AddNode([]string{"Company"}, map[string]types.SIValue{"name": types.ConstString("acme")})

	b := NewBuilder(g, nil)
	plan, err := b.Build(labelsQuery())
	require.NoError(t, err)

	out := drain(t, plan.Root)
	var labels []string
	for _, r := range out {
		labels = append(labels, r.GetScalar(plan.ColumnSlots[0]).S)
	}
	assert.ElementsMatch(t, []string{"Person", "Company"}, labels)
}

func TestBuilderRejectsUnknownProcedure(t *testing.T) {
	g := graph.New()
	b := NewBuilder(g, nil)
	q := &ast.Query{
		Clauses: []ast.Clause{&ast.CallClause{Name: "db.idx.vector.queryNodes"}},
	}
	_, err := b.Build(q)
	require.Error(t, err)
}

func TestBuilderSideEffectingCallContributesNoRows(t *testing.T) {
	g := graph.New()
	g.AddNode([]string{"Person"}, map[string]types.SIValue{"bio": types.ConstString("hello")})
	b := NewBuilder(g, nil)
	q := &ast.Query{
		Clauses: []ast.Clause{
			&ast.CallClause{
				Name: "db.idx.fulltext.createNodeIndex",
				Args: []ast.Expr{
					&ast.Literal{Value: ast.LiteralValue{Kind: ast.LitString, Str: "Person"}},
					&ast.Literal{Value: ast.LiteralValue{Kind: ast.LitString, Str: "bio"}},
				},
			},
		},
	}
	plan, err := b.Build(q)
	require.NoError(t, err)
	out := drain(t, plan.Root)
	require.Len(t, out, 1, "no RETURN clause: the plan still emits a single empty driver record")
	assert.Equal(t, 0, out[0].Len())

	label, ok := g.Schema().ResolveLabel("Person")
	require.True(t, ok)
	assert.True(t, g.Schema().IsIndexed(label, "bio"))
}
