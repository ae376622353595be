package plan

import (
	"fmt"

	"github.com/cyphercore/graphengine/internal/ast"
	"github.com/cyphercore/graphengine/internal/record"
)

// FilterTreeOp tags a FilterTree node's kind.
type FilterTreeOp int

const (
	FTPred FilterTreeOp = iota
	FTCond
)

// FilterTree is either a predicate `lhs OP rhs` (OP in {=,<>,<,<=,>,>=})
// or a boolean combination `left AND/OR right` (spec.md §4.7).
type FilterTree struct {
	Kind FilterTreeOp

	// FTPred fields. LhsAST/RhsAST retain the original expression shape
	// alongside the compiled closures so the index-utilization optimizer
	// (C11) can recognize an `alias.prop OP constant` predicate without
	// re-parsing a closure; they are nil for the synthesized `expr = true`
	// wrapper this package builds for non-comparison boolean expressions.
	PredOp string
	Lhs    CompiledExpr
	Rhs    CompiledExpr
	LhsAST ast.Expr
	RhsAST ast.Expr

	// FTCond fields.
	CondOp string // AND, OR
	Left   *FilterTree
	Right  *FilterTree
}

// Eval evaluates the filter tree over a record, coercing NULL to false.
func (ft *FilterTree) Eval(ctx *EvalContext, r *record.Record) (bool, error) {
	switch ft.Kind {
	case FTPred:
		lv, err := ft.Lhs(ctx, r)
		if err != nil {
			return false, err
		}
		rv, err := ft.Rhs(ctx, r)
		if err != nil {
			return false, err
		}
		result, err := applyBinary(ft.PredOp, lv, rv)
		if err != nil {
			return false, err
		}
		return !result.IsNull() && result.B, nil
	case FTCond:
		left, err := ft.Left.Eval(ctx, r)
		if err != nil {
			return false, err
		}
		if ft.CondOp == "AND" && !left {
			return false, nil
		}
		if ft.CondOp == "OR" && left {
			return true, nil
		}
		return ft.Right.Eval(ctx, r)
	}
	return false, nil
}

// Filter pulls records from its child and forwards only those for which
// the filter tree evaluates true.
type Filter struct {
	Base
	child Operator
	tree  *FilterTree
	ctx   *EvalContext
}

func NewFilter(child Operator, tree *FilterTree, ctx *EvalContext) *Filter {
	f := &Filter{child: child, tree: tree, ctx: ctx}
	f.Base = NewBase("Filter", nil, child)
	return f
}

func (f *Filter) Init() error { return f.initChildren() }

func (f *Filter) Consume() (*record.Record, error) {
	for {
		r, err := f.child.Consume()
		if err != nil || r == nil {
			return r, err
		}
		ok, err := f.tree.Eval(f.ctx, r)
		if err != nil {
			return nil, err
		}
		if ok {
			return r, nil
		}
	}
}

func (f *Filter) Reset() error  { return f.resetChildren() }
func (f *Filter) Free()         { f.freeChildren() }
func (f *Filter) String() string {
	return fmt.Sprintf("Filter(%s)", describeFilter(f.tree))
}

func describeFilter(ft *FilterTree) string {
	if ft == nil {
		return ""
	}
	if ft.Kind == FTPred {
		return fmt.Sprintf("pred(%s)", ft.PredOp)
	}
	return fmt.Sprintf("%s(%s, %s)", ft.CondOp, describeFilter(ft.Left), describeFilter(ft.Right))
}
