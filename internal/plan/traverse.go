package plan

import (
	"fmt"

	"github.com/cyphercore/graphengine/internal/algebra"
	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/matrix"
	"github.com/cyphercore/graphengine/internal/record"
	"github.com/cyphercore/graphengine/internal/types"
)

// ConditionalTraverse drives an algebraic expression mapping a source-
// node slot to a destination-node slot (and optionally an edge slot),
// per spec.md §4.6.
type ConditionalTraverse struct {
	Base
	child     Operator
	g         *graph.PropertyGraph
	expr      *algebra.Expr
	srcSlot   int
	dstSlot   int
	edgeSlot  int // -1 if not bound
	hasEdge   bool
	width     int

	current   *record.Record
	destQueue []types.EntityID
	position  int
}

func NewConditionalTraverse(child Operator, g *graph.PropertyGraph, expr *algebra.Expr, srcSlot, dstSlot, edgeSlot, width int) *ConditionalTraverse {
	modifies := []int{dstSlot}
	hasEdge := edgeSlot >= 0
	if hasEdge {
		modifies = append(modifies, edgeSlot)
	}
	t := &ConditionalTraverse{
		child: child, g: g, expr: expr, srcSlot: srcSlot, dstSlot: dstSlot,
		edgeSlot: edgeSlot, hasEdge: hasEdge, width: width,
	}
	t.Base = NewBase("ConditionalTraverse", modifies, child)
	return t
}

func (t *ConditionalTraverse) Init() error { return t.initChildren() }

func (t *ConditionalTraverse) Consume() (*record.Record, error) {
	for {
		if t.current != nil && t.position < len(t.destQueue) {
			dst := t.destQueue[t.position]
			t.position++
			out := t.current.Clone()
			out.AddNode(t.dstSlot, dst)
			if t.hasEdge {
				if eid, ok := t.edgeIDFor(dst); ok {
					out.AddEdge(t.edgeSlot, eid)
				}
			}
			return out, nil
		}

		r, err := t.child.Consume()
		if err != nil || r == nil {
			return r, err
		}
		src, ok := r.GetNode(t.srcSlot)
		if !ok {
			continue
		}
		t.current = r
		t.destQueue = algebra.EvalFromSource(t.expr, src)
		t.position = 0
	}
}

// edgeIDFor is a reference-backend lookup translating a destination hit
// on the algebraic expression back to one concrete Edge entity; a real
// GraphBLAS-style kernel would carry this through the matrix multiply's
// provenance instead.
func (t *ConditionalTraverse) edgeIDFor(dst types.EntityID) (types.EntityID, bool) {
	if t.expr.Edge == nil {
		return 0, false
	}
	src, _ := t.current.GetNode(t.srcSlot)
	return t.edgeBetween(src, dst)
}

func (t *ConditionalTraverse) edgeBetween(src, dst types.EntityID) (types.EntityID, bool) {
	out, err := t.g.OutgoingEdges(src)
	if err != nil {
		return 0, false
	}
	for _, e := range out {
		if e.To == dst {
			for _, tid := range t.expr.Edge.TypeIDs {
				if e.Type == tid {
					return e.ID, true
				}
			}
		}
	}
	return 0, false
}

func (t *ConditionalTraverse) Reset() error {
	t.current, t.destQueue, t.position = nil, nil, 0
	return t.resetChildren()
}
func (t *ConditionalTraverse) Free() { t.freeChildren() }
func (t *ConditionalTraverse) String() string {
	return fmt.Sprintf("ConditionalTraverse(%d->%d)", t.srcSlot, t.dstSlot)
}

// ConditionalVarLenTraverse handles `[r*lo..hi]`: repeatedly composes the
// adjacency matrix with itself between lo and hi hops (or until fixpoint
// for unbounded), recording reachability (spec.md §4.6).
type ConditionalVarLenTraverse struct {
	Base
	child   Operator
	adj     *matrix.Bool
	srcSlot int
	dstSlot int
	minHops int
	maxHops int // a large sentinel for unbounded

	current   *record.Record
	destQueue []types.EntityID
	position  int
}

func NewConditionalVarLenTraverse(child Operator, adj *matrix.Bool, srcSlot, dstSlot, minHops, maxHops int) *ConditionalVarLenTraverse {
	t := &ConditionalVarLenTraverse{
		child: child, adj: adj, srcSlot: srcSlot, dstSlot: dstSlot,
		minHops: minHops, maxHops: maxHops,
	}
	t.Base = NewBase("ConditionalVarLenTraverse", []int{dstSlot}, child)
	return t
}

func (t *ConditionalVarLenTraverse) Init() error { return t.initChildren() }

func (t *ConditionalVarLenTraverse) Consume() (*record.Record, error) {
	for {
		if t.current != nil && t.position < len(t.destQueue) {
			dst := t.destQueue[t.position]
			t.position++
			out := t.current.Clone()
			out.AddNode(t.dstSlot, dst)
			return out, nil
		}

		r, err := t.child.Consume()
		if err != nil || r == nil {
			return r, err
		}
		src, ok := r.GetNode(t.srcSlot)
		if !ok {
			continue
		}
		t.current = r
		t.destQueue = t.reachable(src)
		t.position = 0
	}
}

// reachable runs a bounded-depth fixpoint from src: frontier_0 = {src},
// frontier_k = frontier_{k-1} composed once more with adj. Hops in
// [minHops, maxHops] are unioned into the result set; the walk stops
// early once a hop at or past minHops adds no new node, so an unbounded
// maxHops terminates on cyclic graphs.
func (t *ConditionalVarLenTraverse) reachable(src types.EntityID) []types.EntityID {
	seen := make(map[types.EntityID]bool)
	frontier := []types.EntityID{src}
	for hop := 1; hop <= t.maxHops && len(frontier) > 0; hop++ {
		var next []types.EntityID
		nextSeen := make(map[types.EntityID]bool)
		for _, u := range frontier {
			for _, v := range t.adj.Row(u) {
				if !nextSeen[v] {
					nextSeen[v] = true
					next = append(next, v)
				}
			}
		}
		if hop >= t.minHops {
			grew := false
			for _, v := range next {
				if !seen[v] {
					seen[v] = true
					grew = true
				}
			}
			if !grew {
				break
			}
		}
		frontier = next
	}
	out := make([]types.EntityID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

func (t *ConditionalVarLenTraverse) Reset() error {
	t.current, t.destQueue, t.position = nil, nil, 0
	return t.resetChildren()
}
func (t *ConditionalVarLenTraverse) Free() { t.freeChildren() }
func (t *ConditionalVarLenTraverse) String() string {
	return fmt.Sprintf("ConditionalVarLenTraverse(%d->%d, %d..%d)", t.srcSlot, t.dstSlot, t.minHops, t.maxHops)
}

// Expand is a single-hop variant of ConditionalTraverse for one
// relationship type with no variable length — it skips the general
// expression machinery and reads the adjacency matrix row directly. The
// plan builder does not construct it; it is available to callers that
// assemble operator trees directly.
type Expand struct {
	Base
	child   Operator
	adj     *matrix.Bool
	srcSlot int
	dstSlot int

	current   *record.Record
	destQueue []types.EntityID
	position  int
}

func NewExpand(child Operator, adj *matrix.Bool, srcSlot, dstSlot int) *Expand {
	e := &Expand{child: child, adj: adj, srcSlot: srcSlot, dstSlot: dstSlot}
	e.Base = NewBase("Expand", []int{dstSlot}, child)
	return e
}

func (e *Expand) Init() error { return e.initChildren() }

func (e *Expand) Consume() (*record.Record, error) {
	for {
		if e.current != nil && e.position < len(e.destQueue) {
			dst := e.destQueue[e.position]
			e.position++
			out := e.current.Clone()
			out.AddNode(e.dstSlot, dst)
			return out, nil
		}

		r, err := e.child.Consume()
		if err != nil || r == nil {
			return r, err
		}
		src, ok := r.GetNode(e.srcSlot)
		if !ok {
			continue
		}
		e.current = r
		e.destQueue = e.adj.Row(src)
		e.position = 0
	}
}

func (e *Expand) Reset() error {
	e.current, e.destQueue, e.position = nil, nil, 0
	return e.resetChildren()
}
func (e *Expand) Free() { e.freeChildren() }
func (e *Expand) String() string {
	return fmt.Sprintf("Expand(%d->%d)", e.srcSlot, e.dstSlot)
}
