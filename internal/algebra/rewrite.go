package algebra

import (
	"github.com/cyphercore/graphengine/internal/matrix"
	"github.com/cyphercore/graphengine/internal/types"
)

// PushTranspose applies the transpose laws `(A·B)^T → B^T·A^T` and
// `(A^T)^T → A` recursively until every transpose sits on a leaf,
// absorbed into that leaf's Transpose flag (spec.md §4.2 C3).
func PushTranspose(e *Expr) *Expr {
	switch e.Op {
	case OpLeaf:
		return e
	case OpTranspose:
		child := e.Children[0]
		switch child.Op {
		case OpLeaf:
			flipped := *child
			flipped.Transpose = !flipped.Transpose
			return &flipped
		case OpMul:
			// (A·B)^T -> B^T · A^T
			a, b := child.Children[0], child.Children[1]
			swapped := Mul(PushTranspose(Transp(b)), PushTranspose(Transp(a)))
			swapped.Source, swapped.Dest, swapped.Edge = e.Source, e.Dest, e.Edge
			return swapped
		case OpAdd:
			a, b := child.Children[0], child.Children[1]
			distributed := Add(PushTranspose(Transp(a)), PushTranspose(Transp(b)))
			distributed.Source, distributed.Dest, distributed.Edge = e.Source, e.Dest, e.Edge
			return distributed
		case OpTranspose:
			// (A^T)^T -> A
			return PushTranspose(child.Children[0])
		}
	case OpMul:
		out := Mul(PushTranspose(e.Children[0]), PushTranspose(e.Children[1]))
		out.Source, out.Dest, out.Edge = e.Source, e.Dest, e.Edge
		return out
	case OpAdd:
		out := Add(PushTranspose(e.Children[0]), PushTranspose(e.Children[1]))
		out.Source, out.Dest, out.Edge = e.Source, e.Dest, e.Edge
		return out
	}
	return e
}

// SumOfProducts distributes multiplication over addition so the
// expression becomes a sum of products, since the executor enumerates
// products rather than sums of products: `A·(B+C) -> A·B + A·C`,
// `(A+B)·C -> A·C + B·C`.
func SumOfProducts(e *Expr) *Expr {
	switch e.Op {
	case OpLeaf:
		return e
	case OpTranspose:
		child := SumOfProducts(e.Children[0])
		if child.Op == OpAdd {
			out := Add(Transp(child.Children[0]), Transp(child.Children[1]))
			out.Source, out.Dest, out.Edge = e.Source, e.Dest, e.Edge
			return SumOfProducts(out)
		}
		return Transp(child)
	case OpAdd:
		out := Add(SumOfProducts(e.Children[0]), SumOfProducts(e.Children[1]))
		out.Source, out.Dest, out.Edge = e.Source, e.Dest, e.Edge
		return out
	case OpMul:
		left := SumOfProducts(e.Children[0])
		right := SumOfProducts(e.Children[1])

		if left.Op == OpAdd {
			out := Add(Mul(left.Children[0], right), Mul(left.Children[1], right))
			out.Source, out.Dest, out.Edge = e.Source, e.Dest, e.Edge
			return SumOfProducts(out)
		}
		if right.Op == OpAdd {
			out := Add(Mul(left, right.Children[0]), Mul(left, right.Children[1]))
			out.Source, out.Dest, out.Edge = e.Source, e.Dest, e.Edge
			return SumOfProducts(out)
		}

		out := Mul(left, right)
		out.Source, out.Dest, out.Edge = e.Source, e.Dest, e.Edge
		return out
	}
	return e
}

// FuseDiagonals collapses adjacent diagonal-leaf multiplications:
// multiplying by a diagonal label matrix only restricts rows/columns, so
// `diag(L1)·diag(L2)` fuses into a single diagonal leaf representing the
// intersection, rather than materializing an intermediate product.
func FuseDiagonals(e *Expr) *Expr {
	switch e.Op {
	case OpLeaf:
		return e
	case OpTranspose:
		return Transp(FuseDiagonals(e.Children[0]))
	case OpAdd:
		out := Add(FuseDiagonals(e.Children[0]), FuseDiagonals(e.Children[1]))
		out.Source, out.Dest, out.Edge = e.Source, e.Dest, e.Edge
		return out
	case OpMul:
		left := FuseDiagonals(e.Children[0])
		right := FuseDiagonals(e.Children[1])
		if left.Op == OpLeaf && left.Diagonal && right.Op == OpLeaf && right.Diagonal {
			fused := Owned(intersectDiagonals(left.Operand, right.Operand))
			fused.Diagonal = true
			return fused
		}
		out := Mul(left, right)
		out.Source, out.Dest, out.Edge = e.Source, e.Dest, e.Edge
		return out
	}
	return e
}

// intersectDiagonals computes the diagonal matrix equal to a·b when both
// operands are diagonal: (D1·D2)[i,i] = D1[i,i] AND D2[i,i], since every
// off-diagonal entry of a diagonal matrix is zero. Building it directly
// from the intersected entry sets avoids the generic sparse multiply.
func intersectDiagonals(a, b *matrix.Bool) *matrix.Bool {
	inB := make(map[types.EntityID]bool)
	for _, id := range b.DiagonalEntries() {
		inB[id] = true
	}
	var ids []types.EntityID
	for _, id := range a.DiagonalEntries() {
		if inB[id] {
			ids = append(ids, id)
		}
	}
	return matrix.Diagonal(ids)
}

// reusable reports whether a subtree contains no Free (owned
// intermediate) leaf, meaning its materialized value can be cached
// across repeated evaluations rather than recomputed.
func reusable(e *Expr) bool {
	switch e.Op {
	case OpLeaf:
		return !e.Free
	default:
		for _, c := range e.Children {
			if !reusable(c) {
				return false
			}
		}
		return true
	}
}

// MarkReusable sets the Reusable flag on every node of the tree,
// bottom-up.
func MarkReusable(e *Expr) {
	for _, c := range e.Children {
		MarkReusable(c)
	}
	e.Reusable = reusable(e)
}
