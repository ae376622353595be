package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphercore/graphengine/internal/ast"
)

func TestParseMatchWhereReturn(t *testing.T) {
	q, err := Parse(`MATCH (n:Person) WHERE n.age > 30 RETURN n.name AS name`)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 1)

	m, ok := q.Clauses[0].(*ast.MatchClause)
	require.True(t, ok)
	assert.False(t, m.Optional)
	require.Len(t, m.Patterns, 1)
	require.Len(t, m.Patterns[0].Nodes, 1)
	assert.Equal(t, "n", m.Patterns[0].Nodes[0].Alias)
	assert.Equal(t, []string{"Person"}, m.Patterns[0].Nodes[0].Labels)

	where, ok := m.Where.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, ">", where.Op)
	prop, ok := where.Left.(*ast.PropertyAccess)
	require.True(t, ok)
	assert.Equal(t, "n", prop.Alias)
	assert.Equal(t, "age", prop.Property)
	lit, ok := where.Right.(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, int64(30), lit.Value.Int)

	require.NotNil(t, q.Return)
	require.Len(t, q.Return.Items, 1)
	assert.Equal(t, "name", q.Return.Items[0].Alias)
}

func TestParseRelationshipPatternOutgoing(t *testing.T) {
	q, err := Parse(`MATCH (a)-[:KNOWS]->(b) RETURN a, b`)
	require.NoError(t, err)
	m := q.Clauses[0].(*ast.MatchClause)
	require.Len(t, m.Patterns, 1)
	path := m.Patterns[0]
	require.Len(t, path.Nodes, 2)
	require.Len(t, path.Rels, 1)
	assert.Equal(t, "a", path.Nodes[0].Alias)
	assert.Equal(t, "b", path.Nodes[1].Alias)
	assert.Equal(t, ast.DirOutgoing, path.Rels[0].Direction)
	assert.Equal(t, []string{"KNOWS"}, path.Rels[0].Types)
	assert.Equal(t, 1, path.Rels[0].MinHops)
	assert.Equal(t, 1, path.Rels[0].MaxHops)
	assert.False(t, path.Rels[0].VarLength)
}

func TestParseRelationshipPatternIncomingAndEither(t *testing.T) {
	q, err := Parse(`MATCH (a)<-[:KNOWS]-(b) RETURN a`)
	require.NoError(t, err)
	m := q.Clauses[0].(*ast.MatchClause)
	assert.Equal(t, ast.DirIncoming, m.Patterns[0].Rels[0].Direction)

	q, err = Parse(`MATCH (a)-[:KNOWS]-(b) RETURN a`)
	require.NoError(t, err)
	m = q.Clauses[0].(*ast.MatchClause)
	assert.Equal(t, ast.DirEither, m.Patterns[0].Rels[0].Direction)
}

func TestParseVariableLengthRelationship(t *testing.T) {
	q, err := Parse(`MATCH (a)-[:KNOWS*1..3]->(b) RETURN b`)
	require.NoError(t, err)
	rel := q.Clauses[0].(*ast.MatchClause).Patterns[0].Rels[0]
	assert.True(t, rel.VarLength)
	assert.Equal(t, 1, rel.MinHops)
	assert.Equal(t, 3, rel.MaxHops)
}

func TestParseOptionalMatch(t *testing.T) {
	q, err := Parse(`OPTIONAL MATCH (a)-[:KNOWS]->(b) RETURN b`)
	require.NoError(t, err)
	m := q.Clauses[0].(*ast.MatchClause)
	assert.True(t, m.Optional)
}

func TestParseOrderBySkipLimit(t *testing.T) {
	q, err := Parse(`MATCH (n:Person) RETURN n.name AS name ORDER BY name DESC SKIP 1 LIMIT 10`)
	require.NoError(t, err)
	require.Len(t, q.Return.OrderBy, 1)
	assert.True(t, q.Return.OrderBy[0].Descending)
	require.NotNil(t, q.Return.Skip)
	require.NotNil(t, q.Return.Limit)
}

func TestParseUnwind(t *testing.T) {
	q, err := Parse(`UNWIND [1, 2, 3] AS x RETURN x`)
	require.NoError(t, err)
	u, ok := q.Clauses[0].(*ast.UnwindClause)
	require.True(t, ok)
	assert.Equal(t, "x", u.Alias)
	lit, ok := u.List.(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, ast.LitList, lit.Value.Kind)
	assert.Len(t, lit.Value.List, 3)
}

func TestParseCallYield(t *testing.T) {
	q, err := Parse(`CALL db.labels() YIELD label RETURN label`)
	require.NoError(t, err)
	c, ok := q.Clauses[0].(*ast.CallClause)
	require.True(t, ok)
	assert.Equal(t, "db.labels", c.Name)
	assert.Equal(t, []string{"label"}, c.Yield)
}

func TestParseCountStar(t *testing.T) {
	q, err := Parse(`MATCH (n) RETURN count(*) AS total`)
	require.NoError(t, err)
	fn, ok := q.Return.Items[0].Expr.(*ast.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "count", fn.Name)
	require.Len(t, fn.Args, 1)
}

func TestParseBooleanAndStringOperators(t *testing.T) {
	q, err := Parse(`MATCH (n:Person) WHERE n.name STARTS WITH "A" AND n.age >= 18 RETURN n.name`)
	require.NoError(t, err)
	where, ok := q.Clauses[0].(*ast.MatchClause).Where.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "AND", where.Op)
	left, ok := where.Left.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "STARTS WITH", left.Op)
}

func TestParseParameterAndIsNull(t *testing.T) {
	q, err := Parse(`MATCH (n:Person) WHERE n.age = $minAge AND n.bio IS NOT NULL RETURN n.name`)
	require.NoError(t, err)
	where := q.Clauses[0].(*ast.MatchClause).Where.(*ast.BinaryOp)
	assert.Equal(t, "AND", where.Op)
	eq := where.Left.(*ast.BinaryOp)
	param, ok := eq.Right.(*ast.Parameter)
	require.True(t, ok)
	assert.Equal(t, "minAge", param.Name)
	isNull, ok := where.Right.(*ast.IsNull)
	require.True(t, ok)
	assert.True(t, isNull.Negated)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	q, err := Parse(`MATCH (n) RETURN 1 + 2 * 3 AS result`)
	require.NoError(t, err)
	expr, ok := q.Return.Items[0].Expr.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "+", expr.Op)
	right, ok := expr.Right.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "*", right.Op)
}

func TestParseSyntaxErrorSurfacesAsParseError(t *testing.T) {
	_, err := Parse(`MATCH (n RETURN n`)
	require.Error(t, err)
}

func TestParseWriteClauseKeyword(t *testing.T) {
	q, err := Parse(`CREATE (n:Person {name: "Alice"})`)
	require.NoError(t, err)
	w, ok := q.Clauses[0].(*ast.WriteClause)
	require.True(t, ok)
	assert.Equal(t, "CREATE", w.Keyword)
}
