package plan

import (
	"github.com/cyphercore/graphengine/internal/ast"
	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/index"
	"github.com/cyphercore/graphengine/internal/types"
)

// Optimize applies the index-utilization rewrite (spec.md §4.10): a
// NodeByLabelScan wrapped directly in a Filter whose predicate chain
// reduces entirely to indexed range/equality constraints on the scanned
// alias is replaced with an IndexScan over that range, dropping the
// subsuming Filter.
//
// spec.md frames this as "locate the scan, then walk upward collecting
// the immediate Filter chain". This package's operators are built
// bottom-up by the plan builder and Base.parent is never populated —
// nothing at runtime needs upward traversal, so adding a setter and
// threading it through every constructor would exist solely for this
// one pass. Optimize instead recurses top-down from Plan.Root and
// recognizes the same Filter-over-NodeByLabelScan shape from the
// parent's side, which sees exactly the same chain the spec's upward
// walk would collect. Splicing in the replacement means reassigning a
// parent operator's own child field directly; that is only possible
// because this file lives in package plan alongside the operator
// structs it rewrites, rather than in a separate internal/optimizer
// package working through the public Operator interface.
func Optimize(g *graph.PropertyGraph, params map[string]types.SIValue, root Operator) Operator {
	o := &optimizer{graph: g, params: params}
	return o.rewrite(root)
}

type optimizer struct {
	graph  *graph.PropertyGraph
	params map[string]types.SIValue
}

// rewrite recurses into every operator's children, reassigning their
// (unexported, same-package-visible) child fields to the rewritten
// subtree, then attempts the scan+filter reduction at Filter nodes.
func (o *optimizer) rewrite(op Operator) Operator {
	switch n := op.(type) {
	case *Filter:
		n.child = o.rewrite(n.child)
		if scan, ok := n.child.(*NodeByLabelScan); ok {
			if replaced, ok := o.reduceFilterOverScan(n.tree, scan); ok {
				return replaced
			}
		}
		return n
	case *Projection:
		n.child = o.rewrite(n.child)
		return n
	case *Aggregate:
		n.child = o.rewrite(n.child)
		return n
	case *Sort:
		n.child = o.rewrite(n.child)
		return n
	case *Skip:
		n.child = o.rewrite(n.child)
		return n
	case *Limit:
		n.child = o.rewrite(n.child)
		return n
	case *Unwind:
		n.child = o.rewrite(n.child)
		return n
	case *ConditionalTraverse:
		n.child = o.rewrite(n.child)
		return n
	case *ConditionalVarLenTraverse:
		n.child = o.rewrite(n.child)
		return n
	case *Expand:
		n.child = o.rewrite(n.child)
		return n
	case *ValueHashJoin:
		n.left = o.rewrite(n.left)
		n.right = o.rewrite(n.right)
		return n
	case *CartesianProduct:
		n.left = o.rewrite(n.left)
		n.right = o.rewrite(n.right)
		return n
	case *Optional:
		n.upstream = o.rewrite(n.upstream)
		n.inner = o.rewrite(n.inner)
		return n
	default:
		return op
	}
}

// reduceFilterOverScan attempts to compile tree into an index.Query over
// scan's label, returning the replacement IndexScan operator. It fails
// (ok=false, leaving the Filter+NodeByLabelScan pair untouched) whenever
// any leaf predicate falls outside what spec.md §4.10 calls reducible:
// not `alias.prop OP constant` for the scanned alias, or prop not
// indexed for the scan's label.
func (o *optimizer) reduceFilterOverScan(tree *FilterTree, scan *NodeByLabelScan) (Operator, bool) {
	q, ok := o.reduceTree(tree, scan.label, scan.slot)
	if !ok {
		return nil, false
	}
	return NewIndexScan(o.graph, q, scan.slot, scan.width), true
}

func (o *optimizer) reduceTree(tree *FilterTree, label graph.LabelID, slot int) (index.Query, bool) {
	switch tree.Kind {
	case FTCond:
		left, ok := o.reduceTree(tree.Left, label, slot)
		if !ok {
			return nil, false
		}
		right, ok := o.reduceTree(tree.Right, label, slot)
		if !ok {
			return nil, false
		}
		switch tree.CondOp {
		case "AND":
			return &index.Intersect{Children: []index.Query{left, right}}, true
		case "OR":
			return &index.Union{Children: []index.Query{left, right}}, true
		}
		return nil, false
	case FTPred:
		return o.reducePred(tree, label, slot)
	}
	return nil, false
}

// reducePred normalizes `alias.prop OP const` (swapping+inverting the
// comparator if the property access is on the right, spec.md §4.10 step
// 4) and, if prop carries a secondary index for label, reduces it to a
// Token/NumericRange/StringRange/Not index query node.
func (o *optimizer) reducePred(tree *FilterTree, label graph.LabelID, slot int) (index.Query, bool) {
	op := tree.PredOp
	prop, alias, ok := propertyOperand(tree.LhsAST)
	var constExpr ast.Expr
	if ok {
		constExpr = tree.RhsAST
	} else {
		prop, alias, ok = propertyOperand(tree.RhsAST)
		if !ok {
			return nil, false
		}
		constExpr = tree.LhsAST
		op = reverseOp(op)
	}
	// NodeByLabelScan only carries the destination slot, not the source
	// alias string; a Filter sitting directly on a label scan can only
	// reference the just-scanned alias (no other alias is bound yet at
	// this point in the spine), so alias/slot cross-checking is not
	// needed here — any stray PropertyAccess to an out-of-scope alias
	// would already have failed to Compile() when the Filter was built.
	_ = alias
	if !o.graph.Schema().IsIndexed(label, prop) {
		return nil, false
	}
	v, ok := o.constantValue(constExpr)
	if !ok {
		return nil, false
	}

	idx, ok := o.graph.Index(label, prop)
	if !ok {
		return nil, false
	}
	nodes := o.graph.NodesByLabel(label)
	universe := make([]types.EntityID, len(nodes))
	for i, n := range nodes {
		universe[i] = n.ID
	}
	return buildRangeQuery(idx, op, v, universe)
}

func propertyOperand(e ast.Expr) (prop, alias string, ok bool) {
	pa, ok := e.(*ast.PropertyAccess)
	if !ok {
		return "", "", false
	}
	return pa.Property, pa.Alias, true
}

func reverseOp(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	default:
		return op // =, <> are symmetric
	}
}

func (o *optimizer) constantValue(e ast.Expr) (types.SIValue, bool) {
	switch n := e.(type) {
	case *ast.Literal:
		return literalOnly(n.Value)
	case *ast.Parameter:
		v, ok := o.params[n.Name]
		return v, ok
	}
	return types.SIValue{}, false
}

func literalOnly(lv ast.LiteralValue) (types.SIValue, bool) {
	switch lv.Kind {
	case ast.LitInt:
		return types.Int(lv.Int), true
	case ast.LitFloat:
		return types.Double(lv.Float), true
	case ast.LitString:
		return types.ConstString(lv.Str), true
	case ast.LitBool:
		return types.Bool(lv.Bool), true
	default:
		return types.SIValue{}, false
	}
}

// buildRangeQuery reduces one normalized `prop OP const` predicate to an
// index query node (spec.md §4.10 step 5): equality is a Token, a
// numeric/string inequality is a bounded range with IncludeMin/Max set
// per the resolved Open Question (`<`/`>` exclusive, `<=`/`>=`
// inclusive), and `<>` is NOT(Token) restricted to the label's universe.
func buildRangeQuery(idx *index.PropertyIndex, op string, v types.SIValue, universe []types.EntityID) (index.Query, bool) {
	if op == "=" {
		return &index.Token{Index: idx, Value: v}, true
	}
	if op == "<>" {
		return &index.Not{Child: &index.Token{Index: idx, Value: v}, Universe: universe}, true
	}

	switch v.Kind {
	case types.KindInt64, types.KindDouble:
		f, err := types.ToFloat(v)
		if err != nil {
			return nil, false
		}
		r := &index.NumericRange{Index: idx}
		switch op {
		case "<":
			r.Max = &f
		case "<=":
			r.Max, r.IncludeMax = &f, true
		case ">":
			r.Min = &f
		case ">=":
			r.Min, r.IncludeMin = &f, true
		default:
			return nil, false
		}
		return r, true
	case types.KindString:
		s := v.S
		r := &index.StringRange{Index: idx}
		switch op {
		case "<":
			r.Max = &s
		case "<=":
			r.Max, r.IncludeMax = &s, true
		case ">":
			r.Min = &s
		case ">=":
			r.Min, r.IncludeMin = &s, true
		default:
			return nil, false
		}
		return r, true
	default:
		return nil, false
	}
}
