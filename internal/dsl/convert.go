package dsl

import (
	"strconv"
	"strings"

	"github.com/cyphercore/graphengine/internal/ast"
)

// convertQuery turns the grammar tree into internal/ast's shape, which
// internal/qgraph and internal/plan consume. Parsing never touches the
// graph; every name is resolved later, at plan time.
func convertQuery(g *QueryAST) (*ast.Query, error) {
	q := &ast.Query{}
	for _, c := range g.Clauses {
		clause, err := convertClause(c)
		if err != nil {
			return nil, err
		}
		q.Clauses = append(q.Clauses, clause)
	}
	if g.Return != nil {
		ret, err := convertReturn(g.Return)
		if err != nil {
			return nil, err
		}
		q.Return = ret
	}
	return q, nil
}

func convertClause(c *ClauseAST) (ast.Clause, error) {
	switch {
	case c.Match != nil:
		return convertMatch(c.Match)
	case c.With != nil:
		return convertWith(c.With)
	case c.Unwind != nil:
		return convertUnwind(c.Unwind)
	case c.Call != nil:
		return convertCall(c.Call)
	case c.Write != nil:
		return &ast.WriteClause{Keyword: c.Write.Keyword}, nil
	default:
		return nil, SyntaxError{Kind: "InvalidClause", Message: "empty clause"}
	}
}

func convertMatch(m *MatchAST) (*ast.MatchClause, error) {
	patterns, err := convertPatternPaths(m.Patterns)
	if err != nil {
		return nil, err
	}
	where, err := convertOptionalExpr(m.Where)
	if err != nil {
		return nil, err
	}
	return &ast.MatchClause{Optional: m.Optional, Patterns: patterns, Where: where}, nil
}

func convertWith(w *WithAST) (*ast.WithClause, error) {
	items, err := convertProjections(w.Items)
	if err != nil {
		return nil, err
	}
	where, err := convertOptionalExpr(w.Where)
	if err != nil {
		return nil, err
	}
	orderBy, err := convertOrderBy(w.OrderBy)
	if err != nil {
		return nil, err
	}
	skip, err := convertOptionalExpr(w.Skip)
	if err != nil {
		return nil, err
	}
	limit, err := convertOptionalExpr(w.Limit)
	if err != nil {
		return nil, err
	}
	return &ast.WithClause{Items: items, Where: where, OrderBy: orderBy, Skip: skip, Limit: limit}, nil
}

func convertUnwind(u *UnwindAST) (*ast.UnwindClause, error) {
	list, err := convertExpr(u.List)
	if err != nil {
		return nil, err
	}
	return &ast.UnwindClause{List: list, Alias: u.Alias}, nil
}

func convertCall(c *CallAST) (*ast.CallClause, error) {
	args := make([]ast.Expr, len(c.Args))
	for i, a := range c.Args {
		e, err := convertExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = e
	}
	return &ast.CallClause{Name: strings.Join(c.Name, "."), Args: args, Yield: c.Yield}, nil
}

func convertReturn(r *ReturnAST) (*ast.ReturnClause, error) {
	items, err := convertProjections(r.Items)
	if err != nil {
		return nil, err
	}
	orderBy, err := convertOrderBy(r.OrderBy)
	if err != nil {
		return nil, err
	}
	skip, err := convertOptionalExpr(r.Skip)
	if err != nil {
		return nil, err
	}
	limit, err := convertOptionalExpr(r.Limit)
	if err != nil {
		return nil, err
	}
	return &ast.ReturnClause{Distinct: r.Distinct, Items: items, OrderBy: orderBy, Skip: skip, Limit: limit}, nil
}

func convertProjections(items []*ProjectionAST) ([]ast.ProjectionItem, error) {
	out := make([]ast.ProjectionItem, len(items))
	for i, it := range items {
		if it.Star {
			out[i] = ast.ProjectionItem{Star: true}
			continue
		}
		e, err := convertExpr(it.Expr)
		if err != nil {
			return nil, err
		}
		alias := it.Alias
		if alias == "" {
			alias = defaultAlias(e)
		}
		out[i] = ast.ProjectionItem{Expr: e, Alias: alias}
	}
	return out, nil
}

// defaultAlias mirrors Cypher's rule that an un-aliased RETURN/WITH
// item is named after its source text for the simple cases (a bare
// variable or a property access); anything more complex needs an
// explicit `AS`.
func defaultAlias(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.Variable:
		return n.Name
	case *ast.PropertyAccess:
		return n.Alias + "." + n.Property
	default:
		return ""
	}
}

func convertOrderBy(items []*OrderItemAST) ([]ast.OrderItem, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]ast.OrderItem, len(items))
	for i, it := range items {
		e, err := convertExpr(it.Expr)
		if err != nil {
			return nil, err
		}
		out[i] = ast.OrderItem{Expr: e, Descending: it.Desc}
	}
	return out, nil
}

func convertOptionalExpr(e *ExprAST) (ast.Expr, error) {
	if e == nil {
		return nil, nil
	}
	return convertExpr(e)
}

func convertPatternPaths(paths []*PatternPathAST) ([]ast.PatternPath, error) {
	out := make([]ast.PatternPath, len(paths))
	for i, p := range paths {
		path, err := convertPatternPath(p)
		if err != nil {
			return nil, err
		}
		out[i] = path
	}
	return out, nil
}

func convertPatternPath(p *PatternPathAST) (ast.PatternPath, error) {
	first, err := convertNodePattern(p.First)
	if err != nil {
		return ast.PatternPath{}, err
	}
	path := ast.PatternPath{Nodes: []ast.NodePattern{first}}
	for _, step := range p.Steps {
		rel, err := convertRelPattern(step.Rel)
		if err != nil {
			return ast.PatternPath{}, err
		}
		node, err := convertNodePattern(step.Node)
		if err != nil {
			return ast.PatternPath{}, err
		}
		path.Rels = append(path.Rels, rel)
		path.Nodes = append(path.Nodes, node)
	}
	return path, nil
}

func convertNodePattern(n *NodePatternAST) (ast.NodePattern, error) {
	props, err := convertProps(n.Props)
	if err != nil {
		return ast.NodePattern{}, err
	}
	return ast.NodePattern{Alias: n.Alias, Labels: n.Labels, Props: props}, nil
}

func convertRelPattern(r *RelPatternAST) (ast.RelPattern, error) {
	dir := ast.DirEither
	switch {
	case r.Left && !r.Right:
		dir = ast.DirIncoming
	case r.Right && !r.Left:
		dir = ast.DirOutgoing
	}

	rel := ast.RelPattern{Direction: dir, MinHops: 1, MaxHops: 1}
	if r.Body == nil {
		return rel, nil
	}
	rel.Alias = r.Body.Alias
	rel.Types = r.Body.Types
	props, err := convertProps(r.Body.Props)
	if err != nil {
		return ast.RelPattern{}, err
	}
	rel.Props = props

	if vl := r.Body.VarLen; vl != nil {
		rel.VarLength = true
		rel.MinHops = 1
		if vl.Min != nil {
			rel.MinHops = *vl.Min
		}
		rel.MaxHops = -1
		if vl.Max != nil {
			rel.MaxHops = *vl.Max
		} else if vl.Min != nil && !vl.Range {
			// `*3` with no `..` means exactly 3 hops, not unbounded.
			rel.MaxHops = *vl.Min
		}
	}
	return rel, nil
}

func convertProps(props []*PropAST) (map[string]ast.Expr, error) {
	if len(props) == 0 {
		return nil, nil
	}
	out := make(map[string]ast.Expr, len(props))
	for _, p := range props {
		e, err := convertExpr(p.Value)
		if err != nil {
			return nil, err
		}
		out[p.Key] = e
	}
	return out, nil
}

// --- expressions -------------------------------------------------------

func convertExpr(e *ExprAST) (ast.Expr, error) {
	left, err := convertXor(e.Left)
	if err != nil {
		return nil, err
	}
	for _, rhs := range e.Ops {
		right, err := convertXor(rhs.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func convertXor(e *XorExprAST) (ast.Expr, error) {
	left, err := convertAnd(e.Left)
	if err != nil {
		return nil, err
	}
	for _, rhs := range e.Ops {
		right, err := convertAnd(rhs.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: "XOR", Left: left, Right: right}
	}
	return left, nil
}

func convertAnd(e *AndExprAST) (ast.Expr, error) {
	left, err := convertNot(e.Left)
	if err != nil {
		return nil, err
	}
	for _, rhs := range e.Ops {
		right, err := convertNot(rhs.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func convertNot(e *NotExprAST) (ast.Expr, error) {
	operand, err := convertComparison(e.Expr)
	if err != nil {
		return nil, err
	}
	// Each leading NOT token toggles, applied innermost-first so that
	// `NOT NOT x` round-trips rather than collapsing.
	for range e.Nots {
		operand = &ast.UnaryOp{Op: "NOT", Operand: operand}
	}
	return operand, nil
}

func convertComparison(e *ComparisonAST) (ast.Expr, error) {
	left, err := convertAdditive(e.Left)
	if err != nil {
		return nil, err
	}
	if e.IsNull != nil {
		left = &ast.IsNull{Operand: left, Negated: e.IsNull.Negated}
	}
	if e.Rhs == nil {
		return left, nil
	}
	right, err := convertAdditive(e.Rhs.Right)
	if err != nil {
		return nil, err
	}
	return &ast.BinaryOp{Op: compOpString(e.Rhs.Op), Left: left, Right: right}, nil
}

func compOpString(op *CompOpAST) string {
	switch {
	case op.Eq:
		return "="
	case op.Ne:
		return "<>"
	case op.Le:
		return "<="
	case op.Ge:
		return ">="
	case op.Lt:
		return "<"
	case op.Gt:
		return ">"
	case op.In:
		return "IN"
	case op.Contains:
		return "CONTAINS"
	case op.StartsWith:
		return "STARTS WITH"
	case op.EndsWith:
		return "ENDS WITH"
	default:
		return ""
	}
}

func convertAdditive(e *AdditiveAST) (ast.Expr, error) {
	left, err := convertMultiplicative(e.Left)
	if err != nil {
		return nil, err
	}
	for _, rhs := range e.Ops {
		right, err := convertMultiplicative(rhs.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: rhs.Op, Left: left, Right: right}
	}
	return left, nil
}

func convertMultiplicative(e *MultiplicativeAST) (ast.Expr, error) {
	left, err := convertPower(e.Left)
	if err != nil {
		return nil, err
	}
	for _, rhs := range e.Ops {
		right, err := convertPower(rhs.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: rhs.Op, Left: left, Right: right}
	}
	return left, nil
}

func convertPower(e *PowerAST) (ast.Expr, error) {
	left, err := convertUnary(e.Left)
	if err != nil {
		return nil, err
	}
	for _, rhs := range e.Ops {
		right, err := convertUnary(rhs.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: "^", Left: left, Right: right}
	}
	return left, nil
}

func convertUnary(e *UnaryAST) (ast.Expr, error) {
	operand, err := convertPostfix(e.Expr)
	if err != nil {
		return nil, err
	}
	if e.Neg {
		return &ast.UnaryOp{Op: "-", Operand: operand}, nil
	}
	return operand, nil
}

func convertPostfix(e *PostfixAST) (ast.Expr, error) {
	base, err := convertAtom(e.Atom)
	if err != nil {
		return nil, err
	}
	for _, sfx := range e.Suffix {
		switch {
		case sfx.Property != nil:
			v, ok := base.(*ast.Variable)
			if !ok {
				return nil, SyntaxError{Kind: "InvalidExpression", Message: "property access requires a bound variable on the left"}
			}
			base = &ast.PropertyAccess{Alias: v.Name, Property: *sfx.Property}
		case sfx.Index != nil:
			// internal/plan's evaluator only ever reads ListIndex.From
			// (a single subscript) — true Cypher slicing (`list[a..b]`)
			// parses but is rejected here rather than evaluated.
			if sfx.Index.From == nil {
				return nil, SyntaxError{Kind: "InvalidExpression", Message: "list index requires a start expression"}
			}
			if sfx.Index.To != nil {
				return nil, SyntaxError{Kind: "InvalidExpression", Message: "list slicing is not supported"}
			}
			from, err := convertExpr(sfx.Index.From)
			if err != nil {
				return nil, err
			}
			base = &ast.ListIndex{List: base, From: from}
		}
	}
	return base, nil
}

func convertAtom(a *AtomAST) (ast.Expr, error) {
	switch {
	case a.Null:
		return &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitNull}}, nil
	case a.True:
		return &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitBool, Bool: true}}, nil
	case a.False:
		return &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitBool, Bool: false}}, nil
	case a.Str != nil:
		return &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitString, Str: unquote(*a.Str)}}, nil
	case a.Float != nil:
		return &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitFloat, Float: *a.Float}}, nil
	case a.Int != nil:
		return &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitInt, Int: *a.Int}}, nil
	case a.Param != nil:
		return &ast.Parameter{Name: strings.TrimPrefix(*a.Param, "$")}, nil
	case a.Call != nil:
		return convertFuncCall(a.Call)
	case a.Ident != nil:
		return &ast.Variable{Name: *a.Ident}, nil
	case a.Paren != nil:
		return convertExpr(a.Paren)
	case a.List != nil:
		list := make([]ast.Expr, len(a.List))
		for i, e := range a.List {
			v, err := convertExpr(e)
			if err != nil {
				return nil, err
			}
			list[i] = v
		}
		return &ast.Literal{Value: ast.LiteralValue{Kind: ast.LitList, List: list}}, nil
	default:
		return nil, SyntaxError{Kind: "InvalidExpression", Message: "empty expression"}
	}
}

func convertFuncCall(c *FuncCallAST) (ast.Expr, error) {
	if c.Star {
		// `count(*)`: the plan builder special-cases a bare literal
		// argument to mean "count rows", matching any constant.
		return &ast.FunctionCall{Name: c.Name, Args: []ast.Expr{&ast.Literal{Value: ast.LiteralValue{Kind: ast.LitInt, Int: 1}}}}, nil
	}
	args := make([]ast.Expr, len(c.Args))
	for i, a := range c.Args {
		e, err := convertExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = e
	}
	return &ast.FunctionCall{Name: c.Name, Args: args, Distinct: c.Distinct}, nil
}

// unquote strips the Cypher string literal's surrounding quotes and
// resolves its backslash escapes. The lexer accepts both single and
// double quoting.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	inner := s[1 : len(s)-1]
	unescaped, err := strconv.Unquote(`"` + strings.ReplaceAll(inner, `\'`, `'`) + `"`)
	if err != nil {
		return inner
	}
	return unescaped
}
