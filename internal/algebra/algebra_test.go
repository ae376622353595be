package algebra

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyphercore/graphengine/internal/matrix"
	"github.com/cyphercore/graphengine/internal/types"
)

func buildSample() (*matrix.Bool, *matrix.Bool) {
	a := matrix.New()
	a.Set(1, 2)
	a.Set(2, 3)
	b := matrix.New()
	b.Set(3, 4)
	b.Set(2, 4)
	return a, b
}

func matricesEqual(t *testing.T, got, want *matrix.Bool) {
	t.Helper()
	for _, i := range want.RowIndices() {
		assert.ElementsMatch(t, want.Row(i), got.Row(i), "row %d", i)
	}
	for _, i := range got.RowIndices() {
		assert.ElementsMatch(t, want.Row(i), got.Row(i), "row %d", i)
	}
}

func TestTransposeOfProductLaw(t *testing.T) {
	a, b := buildSample()

	expr := Transp(Mul(Borrowed(a, false, false), Borrowed(b, false, false)))
	pushed := PushTranspose(expr)

	direct := matrix.Transpose(matrix.Mul(a, false, b, false))
	matricesEqual(t, Eval(pushed), direct)
}

func TestDoubleTransposeLaw(t *testing.T) {
	a, _ := buildSample()
	expr := Transp(Transp(Borrowed(a, false, false)))
	pushed := PushTranspose(expr)
	matricesEqual(t, Eval(pushed), a)
}

func TestSumOfProductsNoMulUnderAddWithoutAnotherAdd(t *testing.T) {
	a, b := buildSample()
	c := matrix.New()
	c.Set(1, 9)

	// A · (B + C)
	expr := Mul(Borrowed(a, false, false), Add(Borrowed(b, false, false), Borrowed(c, false, false)))
	sop := SumOfProducts(expr)

	assert.Equal(t, OpAdd, sop.Op)
	assert.Equal(t, OpMul, sop.Children[0].Op)
	assert.Equal(t, OpMul, sop.Children[1].Op)

	direct := matrix.Add(matrix.Mul(a, false, b, false), matrix.Mul(a, false, c, false))
	matricesEqual(t, Eval(sop), direct)
}

func TestFuseDiagonalsIntersectsEntries(t *testing.T) {
	l1 := matrix.Diagonal([]types.EntityID{1, 2, 3})
	l2 := matrix.Diagonal([]types.EntityID{2, 3, 4})

	expr := Mul(Borrowed(l1, false, true), Borrowed(l2, false, true))
	fused := FuseDiagonals(expr)

	assert.Equal(t, OpLeaf, fused.Op)
	assert.ElementsMatch(t, []types.EntityID{2, 3}, fused.Operand.DiagonalEntries())
}

func TestMarkReusableFalseWhenOwnedLeafPresent(t *testing.T) {
	a, _ := buildSample()
	expr := Mul(Borrowed(a, false, false), Owned(matrix.New()))
	MarkReusable(expr)
	assert.False(t, expr.Reusable)
}

func TestMarkReusableTrueWhenAllBorrowed(t *testing.T) {
	a, b := buildSample()
	expr := Mul(Borrowed(a, false, false), Borrowed(b, false, false))
	MarkReusable(expr)
	assert.True(t, expr.Reusable)
}
