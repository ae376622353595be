package plan

import (
	"strings"

	"github.com/cyphercore/graphengine/internal/ast"
	"github.com/cyphercore/graphengine/internal/engerr"
	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/record"
	"github.com/cyphercore/graphengine/internal/types"
)

// SlotMap resolves a pattern alias to its compile-time-assigned record
// slot index.
type SlotMap map[string]int

// EvalContext carries what a compiled expression needs beyond the
// record itself: the graph for property lookups and the query's
// parameter map (`$name` references).
type EvalContext struct {
	Graph  *graph.PropertyGraph
	Params map[string]types.SIValue
}

// CompiledExpr is the small arithmetic/function AST (AR_ExpNode,
// spec.md §4.7) reduced to a closure over a record.
type CompiledExpr func(ctx *EvalContext, r *record.Record) (types.SIValue, error)

// Compile turns an ast.Expr into a CompiledExpr, resolving Variable and
// PropertyAccess nodes against slots at compile time.
func Compile(e ast.Expr, slots SlotMap) (CompiledExpr, error) {
	switch n := e.(type) {
	case *ast.Literal:
		v, err := literalValue(n.Value)
		if err != nil {
			return nil, err
		}
		return func(*EvalContext, *record.Record) (types.SIValue, error) { return v, nil }, nil

	case *ast.Variable:
		slot, ok := slots[n.Name]
		if !ok {
			return nil, engerr.InvalidQuery("undeclared alias %q", n.Name)
		}
		return func(_ *EvalContext, r *record.Record) (types.SIValue, error) {
			return r.GetScalar(slot), nil
		}, nil

	case *ast.Parameter:
		name := n.Name
		return func(ctx *EvalContext, _ *record.Record) (types.SIValue, error) {
			if v, ok := ctx.Params[name]; ok {
				return v, nil
			}
			return types.Null(), nil
		}, nil

	case *ast.PropertyAccess:
		slot, ok := slots[n.Alias]
		if !ok {
			return nil, engerr.InvalidQuery("undeclared alias %q", n.Alias)
		}
		prop := n.Property
		return func(ctx *EvalContext, r *record.Record) (types.SIValue, error) {
			return readProperty(ctx, r, slot, prop)
		}, nil

	case *ast.UnaryOp:
		operand, err := Compile(n.Operand, slots)
		if err != nil {
			return nil, err
		}
		return compileUnary(n.Op, operand)

	case *ast.BinaryOp:
		left, err := Compile(n.Left, slots)
		if err != nil {
			return nil, err
		}
		right, err := Compile(n.Right, slots)
		if err != nil {
			return nil, err
		}
		return compileBinary(n.Op, left, right)

	case *ast.IsNull:
		operand, err := Compile(n.Operand, slots)
		if err != nil {
			return nil, err
		}
		negated := n.Negated
		return func(ctx *EvalContext, r *record.Record) (types.SIValue, error) {
			v, err := operand(ctx, r)
			if err != nil {
				return types.SIValue{}, err
			}
			result := v.IsNull()
			if negated {
				result = !result
			}
			return types.Bool(result), nil
		}, nil

	case *ast.FunctionCall:
		return compileFunction(n, slots)

	case *ast.ListIndex:
		return compileListIndex(n, slots)
	}

	return nil, engerr.Internal("unsupported expression node %T", e)
}

func literalValue(lv ast.LiteralValue) (types.SIValue, error) {
	switch lv.Kind {
	case ast.LitNull:
		return types.Null(), nil
	case ast.LitString:
		return types.ConstString(lv.Str), nil
	case ast.LitInt:
		return types.Int(lv.Int), nil
	case ast.LitFloat:
		return types.Double(lv.Float), nil
	case ast.LitBool:
		return types.Bool(lv.Bool), nil
	case ast.LitList:
		vs := make([]types.SIValue, len(lv.List))
		for i, el := range lv.List {
			compiled, err := Compile(el, nil)
			if err != nil {
				return types.SIValue{}, err
			}
			v, err := compiled(nil, nil)
			if err != nil {
				return types.SIValue{}, err
			}
			vs[i] = v
		}
		return types.Array(vs), nil
	default:
		return types.Null(), nil
	}
}

// readProperty reads `alias.prop` off a node or edge slot, resolving
// through the graph's live attribute map (properties are not copied
// into the record).
func readProperty(ctx *EvalContext, r *record.Record, slot int, prop string) (types.SIValue, error) {
	switch r.Kind(slot) {
	case record.SlotNode:
		id, _ := r.GetNode(slot)
		n, err := ctx.Graph.GetNode(id)
		if err != nil {
			return types.SIValue{}, err
		}
		if v, ok := n.Props[prop]; ok {
			return v, nil
		}
		return types.Null(), nil
	case record.SlotEdge:
		id, _ := r.GetEdge(slot)
		e, err := ctx.Graph.GetEdge(id)
		if err != nil {
			return types.SIValue{}, err
		}
		if v, ok := e.Props[prop]; ok {
			return v, nil
		}
		return types.Null(), nil
	default:
		return types.Null(), nil
	}
}

func compileUnary(op string, operand CompiledExpr) (CompiledExpr, error) {
	switch op {
	case "NOT":
		return func(ctx *EvalContext, r *record.Record) (types.SIValue, error) {
			v, err := operand(ctx, r)
			if err != nil {
				return types.SIValue{}, err
			}
			if v.IsNull() {
				return types.Null(), nil
			}
			return types.Bool(!v.B), nil
		}, nil
	case "-":
		return func(ctx *EvalContext, r *record.Record) (types.SIValue, error) {
			v, err := operand(ctx, r)
			if err != nil {
				return types.SIValue{}, err
			}
			f, err := types.ToFloat(v)
			if err != nil {
				return types.SIValue{}, engerr.TypeMismatch("cannot negate %s", v.Kind)
			}
			if v.Kind == types.KindInt64 {
				return types.Int(-v.I), nil
			}
			return types.Double(-f), nil
		}, nil
	}
	return nil, engerr.Internal("unsupported unary operator %q", op)
}

func compileBinary(op string, left, right CompiledExpr) (CompiledExpr, error) {
	return func(ctx *EvalContext, r *record.Record) (types.SIValue, error) {
		lv, err := left(ctx, r)
		if err != nil {
			return types.SIValue{}, err
		}

		// Short-circuit boolean operators.
		switch op {
		case "AND":
			if !lv.IsNull() && !lv.B {
				return types.Bool(false), nil
			}
		case "OR":
			if !lv.IsNull() && lv.B {
				return types.Bool(true), nil
			}
		}

		rv, err := right(ctx, r)
		if err != nil {
			return types.SIValue{}, err
		}
		return applyBinary(op, lv, rv)
	}, nil
}

func applyBinary(op string, lv, rv types.SIValue) (types.SIValue, error) {
	switch op {
	case "AND":
		if lv.IsNull() || rv.IsNull() {
			return types.Null(), nil
		}
		return types.Bool(lv.B && rv.B), nil
	case "OR":
		if lv.IsNull() || rv.IsNull() {
			return types.Null(), nil
		}
		return types.Bool(lv.B || rv.B), nil
	case "XOR":
		if lv.IsNull() || rv.IsNull() {
			return types.Null(), nil
		}
		return types.Bool(lv.B != rv.B), nil
	case "=", "<>", "<", "<=", ">", ">=":
		return compareOp(op, lv, rv), nil
	case "+", "-", "*", "/", "%", "^":
		return arithOp(op, lv, rv)
	case "STARTS WITH":
		return stringPred(lv, rv, strings.HasPrefix), nil
	case "ENDS WITH":
		return stringPred(lv, rv, strings.HasSuffix), nil
	case "CONTAINS":
		return stringPred(lv, rv, strings.Contains), nil
	case "IN":
		if rv.Kind != types.KindArray {
			return types.Null(), nil
		}
		for _, el := range rv.Arr {
			if c, ok := types.Compare(lv, el); ok && c == 0 {
				return types.Bool(true), nil
			}
		}
		return types.Bool(false), nil
	}
	return types.SIValue{}, engerr.Internal("unsupported binary operator %q", op)
}

func compareOp(op string, lv, rv types.SIValue) types.SIValue {
	c, comparable := types.Compare(lv, rv)
	if !comparable {
		return types.Null()
	}
	switch op {
	case "=":
		return types.Bool(c == 0)
	case "<>":
		return types.Bool(c != 0)
	case "<":
		return types.Bool(c < 0)
	case "<=":
		return types.Bool(c <= 0)
	case ">":
		return types.Bool(c > 0)
	case ">=":
		return types.Bool(c >= 0)
	}
	return types.Null()
}

func arithOp(op string, lv, rv types.SIValue) (types.SIValue, error) {
	if lv.IsNull() || rv.IsNull() {
		return types.Null(), nil
	}
	if op == "+" && lv.Kind == types.KindString && rv.Kind == types.KindString {
		return types.OwnedString(lv.S + rv.S), nil
	}

	lf, err := types.ToFloat(lv)
	if err != nil {
		return types.SIValue{}, engerr.TypeMismatch("arithmetic on non-numeric %s", lv.Kind)
	}
	rf, err := types.ToFloat(rv)
	if err != nil {
		return types.SIValue{}, engerr.TypeMismatch("arithmetic on non-numeric %s", rv.Kind)
	}

	bothInt := types.IsNumeric(lv) && types.IsNumeric(rv) && lv.Kind == types.KindInt64 && rv.Kind == types.KindInt64

	switch op {
	case "+":
		if bothInt {
			return types.Int(lv.I + rv.I), nil
		}
		return types.Double(lf + rf), nil
	case "-":
		if bothInt {
			return types.Int(lv.I - rv.I), nil
		}
		return types.Double(lf - rf), nil
	case "*":
		if bothInt {
			return types.Int(lv.I * rv.I), nil
		}
		return types.Double(lf * rf), nil
	case "/":
		if rf == 0 {
			return types.SIValue{}, engerr.DivByZero()
		}
		if bothInt && rv.I != 0 && lv.I%rv.I == 0 {
			return types.Int(lv.I / rv.I), nil
		}
		return types.Double(lf / rf), nil
	case "%":
		if rf == 0 {
			return types.SIValue{}, engerr.DivByZero()
		}
		if bothInt {
			return types.Int(lv.I % rv.I), nil
		}
		return types.Double(float64(int64(lf) % int64(rf))), nil
	case "^":
		result := 1.0
		for i := 0; i < int(rf); i++ {
			result *= lf
		}
		return types.Double(result), nil
	}
	return types.SIValue{}, engerr.Internal("unsupported arithmetic operator %q", op)
}

func stringPred(lv, rv types.SIValue, pred func(s, substr string) bool) types.SIValue {
	if lv.Kind != types.KindString || rv.Kind != types.KindString {
		return types.Null()
	}
	return types.Bool(pred(lv.S, rv.S))
}

func compileFunction(n *ast.FunctionCall, slots SlotMap) (CompiledExpr, error) {
	args := make([]CompiledExpr, len(n.Args))
	for i, a := range n.Args {
		compiled, err := Compile(a, slots)
		if err != nil {
			return nil, err
		}
		args[i] = compiled
	}

	name := strings.ToLower(n.Name)
	switch name {
	case "toupper":
		return wrapString(args, strings.ToUpper)
	case "tolower":
		return wrapString(args, strings.ToLower)
	case "tostring":
		return func(ctx *EvalContext, r *record.Record) (types.SIValue, error) {
			v, err := args[0](ctx, r)
			if err != nil {
				return types.SIValue{}, err
			}
			return types.OwnedString(toDisplayString(v)), nil
		}, nil
	case "coalesce":
		return func(ctx *EvalContext, r *record.Record) (types.SIValue, error) {
			for _, a := range args {
				v, err := a(ctx, r)
				if err != nil {
					return types.SIValue{}, err
				}
				if !v.IsNull() {
					return v, nil
				}
			}
			return types.Null(), nil
		}, nil
	case "id":
		return func(ctx *EvalContext, r *record.Record) (types.SIValue, error) {
			v, err := args[0](ctx, r)
			if err != nil {
				return types.SIValue{}, err
			}
			switch v.Kind {
			case types.KindNode:
				return types.Int(int64(v.Node)), nil
			case types.KindEdge:
				return types.Int(int64(v.Edge)), nil
			default:
				return types.Null(), nil
			}
		}, nil
	case "labels":
		return func(ctx *EvalContext, r *record.Record) (types.SIValue, error) {
			v, err := args[0](ctx, r)
			if err != nil {
				return types.SIValue{}, err
			}
			if v.Kind != types.KindNode {
				return types.Null(), nil
			}
			n, err := ctx.Graph.GetNode(v.Node)
			if err != nil {
				return types.SIValue{}, err
			}
			out := make([]types.SIValue, len(n.Labels))
			for i, l := range n.Labels {
				out[i] = types.ConstString(ctx.Graph.Schema().LabelName(l))
			}
			return types.Array(out), nil
		}, nil
	case "type":
		return func(ctx *EvalContext, r *record.Record) (types.SIValue, error) {
			v, err := args[0](ctx, r)
			if err != nil {
				return types.SIValue{}, err
			}
			if v.Kind != types.KindEdge {
				return types.Null(), nil
			}
			e, err := ctx.Graph.GetEdge(v.Edge)
			if err != nil {
				return types.SIValue{}, err
			}
			return types.ConstString(ctx.Graph.Schema().RelTypeName(e.Type)), nil
		}, nil
	}

	if isAggregateName(name) {
		return nil, engerr.InvalidQuery("aggregate function %q used outside an aggregation context", name)
	}
	return nil, engerr.InvalidQuery("unknown function %q", n.Name)
}

func wrapString(args []CompiledExpr, f func(string) string) (CompiledExpr, error) {
	return func(ctx *EvalContext, r *record.Record) (types.SIValue, error) {
		v, err := args[0](ctx, r)
		if err != nil {
			return types.SIValue{}, err
		}
		if v.Kind != types.KindString {
			return types.Null(), nil
		}
		return types.OwnedString(f(v.S)), nil
	}, nil
}

func toDisplayString(v types.SIValue) string {
	switch v.Kind {
	case types.KindString:
		return v.S
	case types.KindBool:
		if v.B {
			return "true"
		}
		return "false"
	case types.KindNull:
		return "null"
	default:
		return ""
	}
}

// isAggregateName reports whether name is one of the accumulator
// functions the Aggregate operator (C8) recognizes, rather than a regular
// scalar function.
func isAggregateName(name string) bool {
	switch name {
	case "count", "sum", "avg", "min", "max", "collect":
		return true
	}
	return false
}

func compileListIndex(n *ast.ListIndex, slots SlotMap) (CompiledExpr, error) {
	list, err := Compile(n.List, slots)
	if err != nil {
		return nil, err
	}
	from, err := Compile(n.From, slots)
	if err != nil {
		return nil, err
	}
	return func(ctx *EvalContext, r *record.Record) (types.SIValue, error) {
		lv, err := list(ctx, r)
		if err != nil {
			return types.SIValue{}, err
		}
		if lv.Kind != types.KindArray {
			return types.Null(), nil
		}
		iv, err := from(ctx, r)
		if err != nil {
			return types.SIValue{}, err
		}
		idx := int(iv.I)
		if idx < 0 || idx >= len(lv.Arr) {
			return types.Null(), nil
		}
		return lv.Arr[idx], nil
	}, nil
}
