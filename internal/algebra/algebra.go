// Package algebra implements the algebraic expression tree and rewriter
// (C2/C3): a tree of matrix operands and {mul, add, transpose}
// operations representing a MATCH traversal as a single matrix
// computation, plus the rewrites that normalize it before execution.
package algebra

import (
	"github.com/cyphercore/graphengine/internal/engerr"
	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/matrix"
	"github.com/cyphercore/graphengine/internal/qgraph"
	"github.com/cyphercore/graphengine/internal/types"
)

// Op tags an Expr's operation.
type Op int

const (
	OpLeaf Op = iota
	OpMul
	OpAdd
	OpTranspose
)

// Expr is one node of the algebraic expression tree. Leaves hold a
// matrix operand plus ownership/shape flags; internal nodes hold an
// operation over one (transpose) or two (mul, add) children.
type Expr struct {
	Op       Op
	Children []*Expr

	// Leaf fields.
	Operand   *matrix.Bool
	Transpose bool
	Diagonal  bool
	Free      bool // owns an intermediate result, as opposed to borrowing from the graph

	// Semantic anchors, set on the root of a hop/chain: Source is the
	// QGNode whose IDs index the columns of the first operand, Dest the
	// QGNode whose IDs index the rows of the last operand. Edge is set
	// when the expression represents exactly one relationship.
	Source *qgraph.QGNode
	Dest   *qgraph.QGNode
	Edge   *qgraph.QGEdge

	Reusable bool
}

func leaf(operand *matrix.Bool, transpose, diagonal, free bool) *Expr {
	return &Expr{Op: OpLeaf, Operand: operand, Transpose: transpose, Diagonal: diagonal, Free: free}
}

// Borrowed wraps a matrix owned by the graph (an adjacency or label
// matrix) — never freed by the evaluator.
func Borrowed(m *matrix.Bool, transpose, diagonal bool) *Expr {
	return leaf(m, transpose, diagonal, false)
}

// Owned wraps an intermediate result the evaluator must release once
// consumed.
func Owned(m *matrix.Bool) *Expr {
	return leaf(m, false, false, true)
}

func Mul(a, b *Expr) *Expr { return &Expr{Op: OpMul, Children: []*Expr{a, b}} }
func Add(a, b *Expr) *Expr { return &Expr{Op: OpAdd, Children: []*Expr{a, b}} }
func Transp(a *Expr) *Expr { return &Expr{Op: OpTranspose, Children: []*Expr{a}} }

// BuildHop compiles one `(u)-[r:T]->(v)` pattern hop into an algebraic
// expression: optionally L_label(u), then A_T (transposed if the
// relationship is read backwards against the pattern's stated
// direction), optionally L_label(v). Diagonal label operands are marked
// so FuseDiagonals can collapse them (spec.md §4.2).
func BuildHop(g *graph.PropertyGraph, edge *qgraph.QGEdge, backward bool) (*Expr, error) {
	if len(edge.TypeIDs) == 0 {
		return nil, engerr.UnknownRelType(firstOr(edge.Types, "<unresolved>"))
	}

	var relExpr *Expr
	for _, t := range edge.TypeIDs {
		leafExpr := Borrowed(g.AdjacencyMatrix(t), backward, false)
		if relExpr == nil {
			relExpr = leafExpr
		} else {
			relExpr = Add(relExpr, leafExpr)
		}
	}

	src, dst := edge.Src, edge.Dst
	if backward {
		src, dst = dst, src
	}

	expr := relExpr
	if src.HasLabel {
		expr = Mul(Borrowed(g.LabelDiagonal(src.LabelID), false, true), expr)
	}
	if dst.HasLabel {
		expr = Mul(expr, Borrowed(g.LabelDiagonal(dst.LabelID), false, true))
	}

	expr.Source = edge.Src
	expr.Dest = edge.Dst
	expr.Edge = edge
	return expr, nil
}

func firstOr(xs []string, fallback string) string {
	if len(xs) > 0 {
		return xs[0]
	}
	return fallback
}

// Eval performs a post-order evaluation of the expression tree: children
// evaluate into scratch matrices, combined into the parent's result.
// Owned intermediate results are not retained by the garbage-collected
// Go port; the Free flag is preserved on the tree purely so the
// reusability analysis below has the same inputs the source algorithm
// does.
func Eval(e *Expr) *matrix.Bool {
	switch e.Op {
	case OpLeaf:
		if e.Transpose {
			return matrix.Transpose(e.Operand)
		}
		return e.Operand
	case OpMul:
		left, right := Eval(e.Children[0]), Eval(e.Children[1])
		return matrix.Mul(left, false, right, false)
	case OpAdd:
		left, right := Eval(e.Children[0]), Eval(e.Children[1])
		return matrix.Add(left, false, right, false)
	case OpTranspose:
		return matrix.Transpose(Eval(e.Children[0]))
	default:
		return matrix.New()
	}
}

// EvalFromSource restricts the expression to a single source entity by
// pre-multiplying with a single-entry row vector, per spec.md §4.6 step
// 2, and returns the reachable destination set as the row indexed by
// src (the row vector collapses every other row to zero, so reading row
// src off the product is equivalent to reading the whole product).
func EvalFromSource(e *Expr, src types.EntityID) []types.EntityID {
	row := matrix.RowVector(src)
	restricted := matrix.Mul(row, false, Eval(e), false)
	return restricted.Row(src)
}
