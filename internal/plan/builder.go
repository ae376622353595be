package plan

import (
	"github.com/cyphercore/graphengine/internal/algebra"
	"github.com/cyphercore/graphengine/internal/ast"
	"github.com/cyphercore/graphengine/internal/engerr"
	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/procs"
	"github.com/cyphercore/graphengine/internal/qgraph"
	"github.com/cyphercore/graphengine/internal/record"
	"github.com/cyphercore/graphengine/internal/types"
)

// Plan is the assembled execution plan: a root operator plus the output
// column names and slots the sink reads RETURN values from.
type Plan struct {
	Root         Operator
	Columns      []string
	ColumnSlots  []int
}

// Builder walks an AST query and the live graph, producing a Plan
// (C10): for each disconnected query graph, scan -> (filter)* ->
// (traverse -> (filter)*)* -> projections -> (aggregate) -> (sort) ->
// (skip) -> (limit); multiple spines combine via CartesianProduct; WITH
// cuts the plan into stages, after which only the aliases it projects
// stay bound; slot numbers are not restarted (spec.md §4.9).
type Builder struct {
	graph  *graph.PropertyGraph
	params map[string]types.SIValue

	root     Operator
	slots    SlotMap
	nextSlot int
}

func NewBuilder(g *graph.PropertyGraph, params map[string]types.SIValue) *Builder {
	return &Builder{graph: g, params: params, slots: SlotMap{}}
}

func (b *Builder) ctx() *EvalContext { return &EvalContext{Graph: b.graph, Params: b.params} }

func (b *Builder) allocSlot(alias string) int {
	if alias != "" {
		if s, ok := b.slots[alias]; ok {
			return s
		}
	}
	s := b.nextSlot
	b.nextSlot++
	if alias != "" {
		b.slots[alias] = s
	}
	return s
}

func (b *Builder) width() int { return b.nextSlot }

// Build assembles the full plan for one parsed query.
func (b *Builder) Build(q *ast.Query) (*Plan, error) {
	for _, clause := range q.Clauses {
		if err := b.applyClause(clause); err != nil {
			return nil, err
		}
	}
	if b.root == nil {
		b.root = newEmptyInput(b.width())
	}
	if q.Return == nil {
		b.root = Optimize(b.graph, b.params, b.root)
		return &Plan{Root: b.root}, nil
	}
	plan, err := b.buildReturn(q.Return)
	if err != nil {
		return nil, err
	}
	plan.Root = Optimize(b.graph, b.params, plan.Root)
	return plan, nil
}

func (b *Builder) applyClause(c ast.Clause) error {
	switch n := c.(type) {
	case *ast.MatchClause:
		return b.applyMatch(n)
	case *ast.WithClause:
		return b.applyWith(n)
	case *ast.UnwindClause:
		return b.applyUnwind(n)
	case *ast.CallClause:
		return b.applyCall(n)
	case *ast.WriteClause:
		return engerr.InvalidQuery("write clause %q is not supported by the read-only execution engine", n.Keyword)
	default:
		return engerr.Internal("unsupported clause %T", c)
	}
}

// --- MATCH ---------------------------------------------------------------

func (b *Builder) applyMatch(m *ast.MatchClause) error {
	qb := qgraph.NewBuilder(b.graph.Schema())
	components, err := qb.Build(m.Patterns)
	if err != nil {
		return err
	}

	if m.Optional {
		return b.applyOptionalMatch(components, m.Where)
	}

	for _, qg := range components {
		spine, err := b.buildSpine(qg, nil)
		if err != nil {
			return err
		}
		b.root = b.combine(b.root, spine)
	}

	if m.Where != nil {
		tree, err := b.compileFilterTree(m.Where)
		if err != nil {
			return err
		}
		b.root = NewFilter(b.root, tree, b.ctx())
	}
	return nil
}

// combine joins a new spine onto the existing plan: CartesianProduct
// when both sides are independent, or the spine itself when there is no
// existing plan yet.
func (b *Builder) combine(root, spine Operator) Operator {
	if root == nil {
		return spine
	}
	return NewCartesianProduct(root, spine)
}

// applyOptionalMatch builds each component's spine rooted on an Argument
// fed with the current upstream record, per spec.md §4.8's Optional
// semantics — the subtree runs once per upstream row via the Argument
// leaf rather than scanning independently.
func (b *Builder) applyOptionalMatch(components []*qgraph.QueryGraph, where ast.Expr) error {
	upstream := b.root
	if upstream == nil {
		upstream = newEmptyInput(b.width())
	}

	for _, qg := range components {
		feed := NewArgument()
		anchor, anchorSlot, bound := b.findBoundAnchor(qg)

		var inner Operator
		var err error
		if bound {
			inner, err = b.buildSpineFrom(qg, anchor, anchorSlot, feed)
		} else {
			// No shared binding: the subtree scans independently but is
			// still driven once per upstream row through feed so its
			// cardinality multiplies onto the current record, matching
			// Apply semantics for a disconnected optional pattern.
			scanSpine, serr := b.buildSpine(qg, nil)
			if serr != nil {
				return serr
			}
			inner = NewCartesianProduct(feed, scanSpine)
			err = nil
		}
		if err != nil {
			return err
		}
		modifies := collectModifies(inner)

		if where != nil {
			tree, ferr := b.compileFilterTree(where)
			if ferr != nil {
				return ferr
			}
			inner = NewFilter(inner, tree, b.ctx())
		}

		b.root = NewOptional(upstream, inner, feed, modifies)
		upstream = b.root
	}
	return nil
}

// findBoundAnchor looks for a query-graph node whose alias is already
// bound to a slot from an earlier clause.
func (b *Builder) findBoundAnchor(qg *qgraph.QueryGraph) (*qgraph.QGNode, int, bool) {
	for _, n := range qg.Nodes {
		if s, ok := b.slots[n.Alias]; ok {
			return n, s, true
		}
	}
	return nil, 0, false
}

// buildSpine builds one connected component's scan+traverse chain from
// scratch (no pre-bound anchor): AllNodeScan/NodeByLabelScan on the
// first node, then a breadth-first walk over the component's edges
// emitting ConditionalTraverse/ConditionalVarLenTraverse hops.
func (b *Builder) buildSpine(qg *qgraph.QueryGraph, child Operator) (Operator, error) {
	if len(qg.Nodes) == 0 {
		return nil, engerr.Internal("empty query graph component")
	}
	root := qg.Nodes[0]
	rootSlot := b.allocSlot(root.Alias)

	var op Operator
	if child != nil {
		op = child
	} else if root.HasLabel {
		op = NewNodeByLabelScan(b.graph, root.LabelID, rootSlot, b.width())
	} else {
		op = NewAllNodeScan(b.graph, rootSlot, b.width())
	}
	return b.walkComponent(qg, root, rootSlot, op)
}

// buildSpineFrom is buildSpine's OPTIONAL MATCH variant: the first node
// is already bound (to anchorSlot from an earlier clause) and the
// spine's leaf is the Argument feeding that binding forward instead of
// a fresh scan.
func (b *Builder) buildSpineFrom(qg *qgraph.QueryGraph, anchor *qgraph.QGNode, anchorSlot int, feed *Argument) (Operator, error) {
	b.slots[anchor.Alias] = anchorSlot
	return b.walkComponent(qg, anchor, anchorSlot, feed)
}

// walkComponent performs a breadth-first traversal of qg starting at
// root (already bound to rootSlot in op's output), appending a
// traverse operator for every edge reached, and a Filter+Expand pair is
// not introduced here — filters from WHERE are applied once, after the
// full pattern, per spec.md §4.9.
func (b *Builder) walkComponent(qg *qgraph.QueryGraph, root *qgraph.QGNode, rootSlot int, op Operator) (Operator, error) {
	visited := map[*qgraph.QGNode]bool{root: true}
	queue := []*qgraph.QGNode{root}
	slotOf := map[*qgraph.QGNode]int{root: rootSlot}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		curSlot := slotOf[cur]

		for _, e := range append(append([]*qgraph.QGEdge{}, cur.Outgoing...), cur.Incoming...) {
			outgoing := contains(cur.Outgoing, e)
			var other *qgraph.QGNode
			if outgoing {
				other = e.Dst
			} else {
				other = e.Src
			}
			backward := !outgoing

			// A spanning-tree walk only emits one hop per newly-reached
			// node; an edge whose other endpoint is already bound (a
			// cycle in the pattern, or a second relationship between
			// the same two variables) is not re-verified as an extra
			// join constraint here — see DESIGN.md.
			if visited[other] {
				continue
			}
			visited[other] = true
			otherSlot := b.allocSlot(other.Alias)
			slotOf[other] = otherSlot
			queue = append(queue, other)

			edgeSlot := -1
			if e.Alias != "" && e.Alias[0] != '_' {
				edgeSlot = b.allocSlot(e.Alias)
			}

			var err error
			op, err = b.buildHopOperator(op, e, backward, curSlot, otherSlot, edgeSlot)
			if err != nil {
				return nil, err
			}
		}
	}
	return op, nil
}

// collectModifies walks an operator subtree and unions every node's own
// Modifies() — a plain Operator.Modifies() call only reports the slots
// that one operator itself writes, not its whole subtree, which is what
// Optional needs to know which slots to null out when its subtree never
// matches.
func collectModifies(op Operator) []int {
	seen := map[int]bool{}
	var out []int
	var walk func(Operator)
	walk = func(o Operator) {
		for _, s := range o.Modifies() {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
		for _, c := range o.Children() {
			walk(c)
		}
	}
	walk(op)
	return out
}

func contains(es []*qgraph.QGEdge, target *qgraph.QGEdge) bool {
	for _, e := range es {
		if e == target {
			return true
		}
	}
	return false
}

func (b *Builder) buildHopOperator(child Operator, e *qgraph.QGEdge, backward bool, srcSlot, dstSlot, edgeSlot int) (Operator, error) {
	if e.VarLength {
		if len(e.TypeIDs) == 0 {
			return nil, engerr.UnknownRelType(firstType(e.Types))
		}
		adj := b.graph.AdjacencyMatrix(e.TypeIDs[0])
		for _, t := range e.TypeIDs[1:] {
			adj = algebra.Eval(algebra.Add(algebra.Borrowed(adj, false, false), algebra.Borrowed(b.graph.AdjacencyMatrix(t), false, false)))
		}
		return NewConditionalVarLenTraverse(child, adj, srcSlot, dstSlot, e.MinHops, e.MaxHops), nil
	}

	expr, err := algebra.BuildHop(b.graph, e, backward)
	if err != nil {
		return nil, err
	}
	return NewConditionalTraverse(child, b.graph, expr, srcSlot, dstSlot, edgeSlot, b.width()), nil
}

func firstType(xs []string) string {
	if len(xs) > 0 {
		return xs[0]
	}
	return "<unresolved>"
}

// --- WITH / UNWIND / CALL --------------------------------------------------

func (b *Builder) applyWith(w *ast.WithClause) error {
	items, err := b.compileProjectionItems(w.Items)
	if err != nil {
		return err
	}
	aggItems, plainKeys, plainSlots, err := b.splitAggregates(items)
	if err != nil {
		return err
	}

	// WITH is a stage boundary (spec.md §4.9): only the names it lists
	// stay in scope for every clause that follows.
	b.rebindSlots(items)

	newWidth := b.nextSlot
	if len(aggItems) > 0 {
		b.root = NewAggregate(b.root, plainKeys, plainSlots, aggItems, newWidth, b.ctx())
	} else {
		proj := make([]ProjectionItem, len(items))
		for i, it := range items {
			proj[i] = ProjectionItem{Expr: it.expr, Slot: it.slot}
		}
		b.root = NewProjection(b.root, proj, newWidth, b.ctx(), false)
	}

	if w.Where != nil {
		tree, err := b.compileFilterTree(w.Where)
		if err != nil {
			return err
		}
		b.root = NewFilter(b.root, tree, b.ctx())
	}
	if len(w.OrderBy) > 0 {
		orderItems, err := b.compileOrderBy(w.OrderBy)
		if err != nil {
			return err
		}
		b.root = NewSort(b.root, orderItems, b.ctx())
	}
	if w.Skip != nil {
		n, err := b.evalIntConst(w.Skip)
		if err != nil {
			return err
		}
		b.root = NewSkip(b.root, n)
	}
	if w.Limit != nil {
		n, err := b.evalIntConst(w.Limit)
		if err != nil {
			return err
		}
		b.root = NewLimit(b.root, n)
	}
	return nil
}

// rebindSlots replaces the builder's alias->slot map with exactly the
// aliases a WITH clause projects, so a reference to a name WITH dropped
// fails resolution in later clauses instead of aliasing a stale slot.
func (b *Builder) rebindSlots(items []compiledItem) {
	fresh := SlotMap{}
	for _, it := range items {
		fresh[it.alias] = it.slot
	}
	b.slots = fresh
}

func (b *Builder) applyUnwind(u *ast.UnwindClause) error {
	expr, err := Compile(u.List, b.slots)
	if err != nil {
		return err
	}
	slot := b.allocSlot(u.Alias)
	b.root = NewUnwind(b.root, expr, slot, b.ctx())
	return nil
}

// applyCall runs a registered procedure (internal/procs) synchronously
// against the live graph, then exposes its result rows as a ProcCall
// source combined onto the plan like any other spine (spec.md §6: `CALL
// <name>(args) YIELD <cols>`). A YIELD-less call (e.g. the side-effecting
// db.idx.fulltext.createNodeIndex) contributes no rows or columns and
// leaves the existing plan root untouched.
func (b *Builder) applyCall(c *ast.CallClause) error {
	proc, ok := procs.Lookup(c.Name)
	if !ok {
		return engerr.InvalidQuery("procedure %q is not registered", c.Name)
	}

	args := make([]types.SIValue, len(c.Args))
	ctx := b.ctx()
	for i, a := range c.Args {
		expr, err := Compile(a, b.slots)
		if err != nil {
			return err
		}
		v, err := expr(ctx, nil)
		if err != nil {
			return err
		}
		args[i] = v
	}

	rows, err := proc.Call(b.graph, args)
	if err != nil {
		return err
	}
	if len(proc.Columns) == 0 {
		return nil
	}

	yield := c.Yield
	if len(yield) == 0 {
		yield = proc.Columns
	}
	colIdx := make([]int, len(yield))
	slots := make([]int, len(yield))
	for i, name := range yield {
		idx := indexOf(proc.Columns, name)
		if idx < 0 {
			return engerr.InvalidQuery("procedure %q does not yield column %q", c.Name, name)
		}
		colIdx[i] = idx
		slots[i] = b.allocSlot(name)
	}

	src := NewProcCall(rows, colIdx, slots, b.width())
	b.root = b.combine(b.root, src)
	return nil
}

func indexOf(names []string, target string) int {
	for i, n := range names {
		if n == target {
			return i
		}
	}
	return -1
}

// --- RETURN ----------------------------------------------------------------

// compiledItem is one projection expression already resolved against
// the builder's current slot map, paired with its destination slot.
type compiledItem struct {
	alias string
	fn    *ast.FunctionCall // non-nil if this item is an aggregate call
	expr  CompiledExpr
	slot  int
}

func (b *Builder) compileProjectionItems(items []ast.ProjectionItem) ([]compiledItem, error) {
	var out []compiledItem
	for _, it := range items {
		if it.Star {
			for alias, slot := range b.slots {
				expr, err := Compile(&ast.Variable{Name: alias}, b.slots)
				if err != nil {
					return nil, err
				}
				out = append(out, compiledItem{alias: alias, expr: expr, slot: slot})
			}
			continue
		}
		expr, err := Compile(it.Expr, b.slots)
		if err != nil {
			return nil, err
		}
		alias := it.Alias
		var fn *ast.FunctionCall
		if f, ok := it.Expr.(*ast.FunctionCall); ok && isAggregateName(f.Name) {
			fn = f
		}
		if alias == "" {
			if v, ok := it.Expr.(*ast.Variable); ok {
				alias = v.Name // bare `WITH a` / `RETURN a` keeps its own name
			} else {
				alias = "col"
			}
		}
		slot := b.allocSlot("")
		out = append(out, compiledItem{alias: alias, fn: fn, expr: expr, slot: slot})
	}
	return out, nil
}

// splitAggregates separates plain (grouping-key) projection items from
// aggregate-function items, compiling each aggregate's sole argument.
func (b *Builder) splitAggregates(items []compiledItem) ([]AggregateItem, []CompiledExpr, []int, error) {
	var aggItems []AggregateItem
	var keyExprs []CompiledExpr
	var keySlots []int

	hasAgg := false
	for _, it := range items {
		if it.fn != nil {
			hasAgg = true
			break
		}
	}
	if !hasAgg {
		return nil, nil, nil, nil
	}

	for _, it := range items {
		if it.fn == nil {
			keyExprs = append(keyExprs, it.expr)
			keySlots = append(keySlots, it.slot)
			continue
		}
		fn, err := aggFuncOf(it.fn.Name)
		if err != nil {
			return nil, nil, nil, err
		}
		var argExpr CompiledExpr
		if fn == AggCount && len(it.fn.Args) == 1 {
			if _, ok := it.fn.Args[0].(*ast.Literal); ok {
				argExpr = func(*EvalContext, *record.Record) (types.SIValue, error) { return types.Int(1), nil }
			}
		}
		if argExpr == nil {
			if len(it.fn.Args) != 1 {
				return nil, nil, nil, engerr.InvalidQuery("aggregate %q takes exactly one argument", it.fn.Name)
			}
			argExpr, err = Compile(it.fn.Args[0], b.slots)
			if err != nil {
				return nil, nil, nil, err
			}
		}
		aggItems = append(aggItems, AggregateItem{Func: fn, Expr: argExpr, Slot: it.slot})
	}
	return aggItems, keyExprs, keySlots, nil
}

func aggFuncOf(name string) (AggFunc, error) {
	switch name {
	case "count":
		return AggCount, nil
	case "sum":
		return AggSum, nil
	case "avg":
		return AggAvg, nil
	case "min":
		return AggMin, nil
	case "max":
		return AggMax, nil
	case "collect":
		return AggCollect, nil
	default:
		return 0, engerr.InvalidQuery("unknown aggregate function %q", name)
	}
}

func (b *Builder) buildReturn(r *ast.ReturnClause) (*Plan, error) {
	items, err := b.compileProjectionItems(r.Items)
	if err != nil {
		return nil, err
	}
	aggItems, plainKeys, plainSlots, err := b.splitAggregates(items)
	if err != nil {
		return nil, err
	}

	width := b.nextSlot
	if len(aggItems) > 0 {
		b.root = NewAggregate(b.root, plainKeys, plainSlots, aggItems, width, b.ctx())
	} else {
		proj := make([]ProjectionItem, len(items))
		for i, it := range items {
			proj[i] = ProjectionItem{Expr: it.expr, Slot: it.slot}
		}
		b.root = NewProjection(b.root, proj, width, b.ctx(), r.Distinct)
	}

	if len(r.OrderBy) > 0 {
		orderItems, err := b.compileOrderBy(r.OrderBy)
		if err != nil {
			return nil, err
		}
		b.root = NewSort(b.root, orderItems, b.ctx())
	}
	if r.Skip != nil {
		n, err := b.evalIntConst(r.Skip)
		if err != nil {
			return nil, err
		}
		b.root = NewSkip(b.root, n)
	}
	if r.Limit != nil {
		n, err := b.evalIntConst(r.Limit)
		if err != nil {
			return nil, err
		}
		b.root = NewLimit(b.root, n)
	}

	columns := make([]string, len(items))
	slots := make([]int, len(items))
	for i, it := range items {
		columns[i] = it.alias
		slots[i] = it.slot
	}
	return &Plan{Root: b.root, Columns: columns, ColumnSlots: slots}, nil
}

func (b *Builder) compileOrderBy(items []ast.OrderItem) ([]OrderItem, error) {
	out := make([]OrderItem, len(items))
	for i, it := range items {
		expr, err := Compile(it.Expr, b.slots)
		if err != nil {
			return nil, err
		}
		out[i] = OrderItem{Expr: expr, Descending: it.Descending}
	}
	return out, nil
}

func (b *Builder) evalIntConst(e ast.Expr) (int, error) {
	expr, err := Compile(e, b.slots)
	if err != nil {
		return 0, err
	}
	v, err := expr(b.ctx(), record.New(0))
	if err != nil {
		return 0, err
	}
	f, err := types.ToFloat(v)
	if err != nil {
		return 0, engerr.TypeMismatch("SKIP/LIMIT requires an integer, got %s", v.Kind)
	}
	return int(f), nil
}

// --- WHERE -> FilterTree -----------------------------------------------

var comparisonOps = map[string]bool{"=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true}

// compileFilterTree lowers a boolean ast.Expr into a FilterTree: the
// top-level AND/OR structure and direct comparisons map onto
// FTCond/FTPred for the index optimizer (C11) to recognize, per spec.md
// §4.7/§4.10; any other boolean-valued expression (IS NULL, NOT, a
// predicate function) is wrapped as an `expr = true` FTPred so it still
// composes under AND/OR but is never mistaken for an indexable range.
func (b *Builder) compileFilterTree(e ast.Expr) (*FilterTree, error) {
	if bo, ok := e.(*ast.BinaryOp); ok {
		if bo.Op == "AND" || bo.Op == "OR" {
			left, err := b.compileFilterTree(bo.Left)
			if err != nil {
				return nil, err
			}
			right, err := b.compileFilterTree(bo.Right)
			if err != nil {
				return nil, err
			}
			return &FilterTree{Kind: FTCond, CondOp: bo.Op, Left: left, Right: right}, nil
		}
		if comparisonOps[bo.Op] {
			lhs, err := Compile(bo.Left, b.slots)
			if err != nil {
				return nil, err
			}
			rhs, err := Compile(bo.Right, b.slots)
			if err != nil {
				return nil, err
			}
			return &FilterTree{Kind: FTPred, PredOp: bo.Op, Lhs: lhs, Rhs: rhs, LhsAST: bo.Left, RhsAST: bo.Right}, nil
		}
	}

	expr, err := Compile(e, b.slots)
	if err != nil {
		return nil, err
	}
	truth := func(*EvalContext, *record.Record) (types.SIValue, error) { return types.Bool(true), nil }
	return &FilterTree{Kind: FTPred, PredOp: "=", Lhs: expr, Rhs: truth}, nil
}

// newEmptyInput is the root operator for a query with no MATCH (e.g.
// `RETURN 1`, `UNWIND range(1,3) AS x RETURN x`): a single empty record.
func newEmptyInput(width int) *Argument {
	a := NewArgument()
	a.Arm(record.New(width))
	return a
}
