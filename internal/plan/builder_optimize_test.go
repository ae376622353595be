package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphercore/graphengine/internal/ast"
	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/types"
)

func buildPeopleGraph(t *testing.T) *graph.PropertyGraph {
	t.Helper()
	g := graph.New()
	g.AddNode([]string{"Person"}, map[string]types.SIValue{"name": types.ConstString("alice"), "age": types.Int(35)})
	g.AddNode([]string{"Person"}, map[string]types.SIValue{"name": types.ConstString("bob"), "age": types.Int(20)})
	g.AddNode([]string{"Person"}, map[string]types.SIValue{"name": types.ConstString("carol"), "age": types.Int(40)})
	return g
}

// findIndexScan does a depth-first search for an *IndexScan anywhere in
// the operator tree.
func findIndexScan(op Operator) *IndexScan {
	if s, ok := op.(*IndexScan); ok {
		return s
	}
	for _, c := range op.Children() {
		if found := findIndexScan(c); found != nil {
			return found
		}
	}
	return nil
}

func findNodeByLabelScan(op Operator) *NodeByLabelScan {
	if s, ok := op.(*NodeByLabelScan); ok {
		return s
	}
	for _, c := range op.Children() {
		if found := findNodeByLabelScan(c); found != nil {
			return found
		}
	}
	return nil
}

// agePredicateQuery builds `MATCH (n:Person) WHERE n.age > 30 RETURN
// n.name` by hand, standing in for the parser (internal/dsl), which is
// not exercised by this package's tests.
func agePredicateQuery() *ast.Query {
	return &ast.Query{
		Clauses: []ast.Clause{
			&ast.MatchClause{
				Patterns: []ast.PatternPath{{
					Nodes: []ast.NodePattern{{Alias: "n", Labels: []string{"Person"}}},
				}},
				Where: &ast.BinaryOp{
					Op:    ">",
					Left:  &ast.PropertyAccess{Alias: "n", Property: "age"},
					Right: &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitInt, Int: 30}},
				},
			},
		},
		Return: &ast.ReturnClause{
			Items: []ast.ProjectionItem{{
				Expr:  &ast.PropertyAccess{Alias: "n", Property: "name"},
				Alias: "name",
			}},
		},
	}
}

func TestBuilderWithoutIndexKeepsFilterOverScan(t *testing.T) {
	g := buildPeopleGraph(t)
	b := NewBuilder(g, nil)
	plan, err := b.Build(agePredicateQuery())
	require.NoError(t, err)

	assert.Nil(t, findIndexScan(plan.Root), "no index registered: optimizer must not fabricate an IndexScan")
	assert.NotNil(t, findNodeByLabelScan(plan.Root))
}

func TestOptimizerRewritesIndexedFilterToIndexScan(t *testing.T) {
	g := buildPeopleGraph(t)
	label, ok := g.Schema().ResolveLabel("Person")
	require.True(t, ok)
	g.CreateNodeIndex(label, "age")

	b := NewBuilder(g, nil)
	plan, err := b.Build(agePredicateQuery())
	require.NoError(t, err)

	scan := findIndexScan(plan.Root)
	require.NotNil(t, scan, "age is indexed: the Filter+NodeByLabelScan pair must be rewritten to an IndexScan")
	assert.Nil(t, findNodeByLabelScan(plan.Root), "the subsumed label scan must be removed")

	out := drain(t, plan.Root)
	var names []string
	for _, r := range out {
		names = append(names, r.GetScalar(plan.ColumnSlots[0]).S)
	}
	assert.ElementsMatch(t, []string{"alice", "carol"}, names)
}
