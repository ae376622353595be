// Package record implements the fixed-width slot vector (C4) that flows
// between operators in the execution plan: spec.md §4.3.
package record

import (
	"fmt"

	"github.com/cyphercore/graphengine/internal/types"
)

// SlotKind tags what a Record slot holds.
type SlotKind int

const (
	SlotEmpty SlotKind = iota
	SlotNode
	SlotEdge
	SlotScalar
)

type slot struct {
	kind   SlotKind
	node   types.EntityID
	edge   types.EntityID
	scalar types.SIValue
}

// Record is a fixed-size array of typed slots addressed by compile-time-
// assigned integer indices. Nodes and edges are held by reference
// (EntityID) into the graph; scalars may own a heap string the record is
// responsible for releasing.
type Record struct {
	slots []slot
}

// New allocates a Record with n empty slots.
func New(n int) *Record {
	return &Record{slots: make([]slot, n)}
}

func (r *Record) Len() int { return len(r.slots) }

// Extend grows the record in place to n slots (n >= current length),
// used by ValueHashJoin to append a trailing join-key slot.
func (r *Record) Extend(n int) {
	if n <= len(r.slots) {
		return
	}
	grown := make([]slot, n)
	copy(grown, r.slots)
	r.slots = grown
}

func (r *Record) checkIndex(i int) {
	if i < 0 || i >= len(r.slots) {
		panic(fmt.Sprintf("record: slot index %d out of range [0,%d)", i, len(r.slots)))
	}
}

func (r *Record) AddNode(i int, id types.EntityID) {
	r.growFor(i)
	r.slots[i] = slot{kind: SlotNode, node: id}
}

func (r *Record) AddEdge(i int, id types.EntityID) {
	r.growFor(i)
	r.slots[i] = slot{kind: SlotEdge, edge: id}
}

func (r *Record) AddScalar(i int, v types.SIValue) {
	r.growFor(i)
	r.slots[i] = slot{kind: SlotScalar, scalar: v}
}

// growFor extends the slot vector when a write targets an index beyond
// the record's current length. Plan operators snapshot the query's slot
// count at the time they're constructed, but MATCH patterns and CALL
// clauses can allocate further slots afterward (later hops, later
// clauses) — rather than thread a final width back through every
// already-built operator, writers just grow on demand, the same way
// ValueHashJoin already uses Extend to append a join-key slot.
func (r *Record) growFor(i int) {
	if i >= len(r.slots) {
		r.Extend(i + 1)
	}
}

// SetNull stores a NULL scalar in a slot — used by Optional to null out the
// inner subtree's slots when it emitted nothing.
func (r *Record) SetNull(i int) {
	r.growFor(i)
	r.slots[i] = slot{kind: SlotScalar, scalar: types.Null()}
}

func (r *Record) Kind(i int) SlotKind {
	r.checkIndex(i)
	return r.slots[i].kind
}

func (r *Record) GetNode(i int) (types.EntityID, bool) {
	r.checkIndex(i)
	s := r.slots[i]
	return s.node, s.kind == SlotNode
}

func (r *Record) GetEdge(i int) (types.EntityID, bool) {
	r.checkIndex(i)
	s := r.slots[i]
	return s.edge, s.kind == SlotEdge
}

// GetScalar reads slot i as an SIValue. Node/edge slots are coerced to
// their ref-kind SIValue so expression evaluation can treat any slot
// uniformly (`RETURN a` where a is a node binding).
func (r *Record) GetScalar(i int) types.SIValue {
	r.checkIndex(i)
	s := r.slots[i]
	switch s.kind {
	case SlotNode:
		return types.NodeRef(s.node)
	case SlotEdge:
		return types.EdgeRef(s.edge)
	case SlotScalar:
		return s.scalar
	default:
		return types.Null()
	}
}

// Merge copies every slot of src that dst has not written (kind ==
// SlotEmpty in dst). On collision the src value is dropped — this
// invariant is load-bearing for ValueHashJoin, which relies on the
// join-key slot on the left side surviving a merge from the right.
func (dst *Record) Merge(src *Record) {
	if src.Len() > dst.Len() {
		dst.Extend(src.Len())
	}
	for i, s := range src.slots {
		if dst.slots[i].kind == SlotEmpty && s.kind != SlotEmpty {
			dst.slots[i] = s
		}
	}
}

// Clone deep-copies the record, duplicating any owned scalar strings so
// mutation of the clone never aliases the original.
func (r *Record) Clone() *Record {
	out := &Record{slots: make([]slot, len(r.slots))}
	copy(out.slots, r.slots)
	for i, s := range out.slots {
		if s.kind == SlotScalar {
			out.slots[i].scalar = s.scalar.Clone()
		}
	}
	return out
}

// Free releases any owned scalar payloads. In this Go port there is no
// manual memory to release (the garbage collector reclaims owned
// strings/arrays once the record is dropped); Free exists so operators
// written against the teacher's acquire/release discipline have a
// symmetrical call to make, and so a future pooled-record allocator has
// a hook to reuse.
func (r *Record) Free() {}
