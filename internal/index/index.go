// Package index implements the secondary-index library spec.md §1 names
// as a non-goal/external collaborator: token, lex-range, numeric-range,
// union, intersect and NOT query nodes over a result iterator yielding
// EntityIDs, backed by google/btree for ordered range scans.
package index

import (
	"fmt"
	"sort"

	"github.com/google/btree"

	"github.com/cyphercore/graphengine/internal/types"
)

// entry is the btree item: an indexed value paired with the entity that
// carries it. Ties (equal values, different entities) are broken by
// EntityID so iteration order is deterministic.
type entry struct {
	value types.SIValue
	id    types.EntityID
}

func (e entry) Less(other btree.Item) bool {
	o := other.(entry)
	if c := types.Order(e.value, o.value); c != 0 {
		return c < 0
	}
	return e.id < o.id
}

// PropertyIndex is a single (label, property) secondary index: an
// ordered tree of (value, EntityID) pairs supporting token/range lookups.
type PropertyIndex struct {
	tree *btree.BTree
}

func NewPropertyIndex() *PropertyIndex {
	return &PropertyIndex{tree: btree.New(32)}
}

func (p *PropertyIndex) Add(id types.EntityID, v types.SIValue) {
	p.tree.ReplaceOrInsert(entry{value: v, id: id})
}

func (p *PropertyIndex) Remove(id types.EntityID, v types.SIValue) {
	p.tree.Delete(entry{value: v, id: id})
}

// Query is a node of the index query language C11 compiles filter
// chains into: a composed tree of token/range/union/intersect/not nodes
// that, when asked for an Iterator, yields matching EntityIDs.
type Query interface {
	Iterator() Iterator
	String() string
}

// Iterator yields EntityIDs from a Query, one at a time.
type Iterator interface {
	Next() (types.EntityID, bool)
}

type sliceIterator struct {
	ids []types.EntityID
	pos int
}

func (it *sliceIterator) Next() (types.EntityID, bool) {
	if it.pos >= len(it.ids) {
		return 0, false
	}
	id := it.ids[it.pos]
	it.pos++
	return id, true
}

// Token is an equality lookup: all entities whose indexed property
// equals Value.
type Token struct {
	Index *PropertyIndex
	Value types.SIValue
}

func (t *Token) Iterator() Iterator {
	var ids []types.EntityID
	t.Index.tree.AscendGreaterOrEqual(entry{value: t.Value}, func(i btree.Item) bool {
		e := i.(entry)
		if types.Order(e.value, t.Value) != 0 {
			return false
		}
		ids = append(ids, e.id)
		return true
	})
	return &sliceIterator{ids: ids}
}

func (t *Token) String() string { return fmt.Sprintf("Token(%v)", t.Value) }

// NumericRange / StringRange are inclusive-by-flag bounded range scans;
// a nil Min or Max means unbounded on that side (spec.md §4.10 step 5).
type NumericRange struct {
	Index                  *PropertyIndex
	Min, Max               *float64
	IncludeMin, IncludeMax bool
}

func (r *NumericRange) Iterator() Iterator {
	var ids []types.EntityID
	r.Index.tree.Ascend(func(i btree.Item) bool {
		e := i.(entry)
		f, err := types.ToFloat(e.value)
		if err != nil {
			return true
		}
		if r.Min != nil {
			if f < *r.Min || (f == *r.Min && !r.IncludeMin) {
				return true
			}
		}
		if r.Max != nil {
			if f > *r.Max || (f == *r.Max && !r.IncludeMax) {
				return true
			}
		}
		ids = append(ids, e.id)
		return true
	})
	return &sliceIterator{ids: ids}
}

func (r *NumericRange) String() string { return "NumericRange" }

// StringRange mirrors NumericRange for lexicographic bounds, following
// ISO SQL ordering: `<`/`>` exclusive, `<=`/`>=` inclusive (resolved
// Open Question, see DESIGN.md).
type StringRange struct {
	Index                  *PropertyIndex
	Min, Max               *string
	IncludeMin, IncludeMax bool
}

func (r *StringRange) Iterator() Iterator {
	var ids []types.EntityID
	r.Index.tree.Ascend(func(i btree.Item) bool {
		e := i.(entry)
		if e.value.Kind != types.KindString {
			return true
		}
		s := e.value.S
		if r.Min != nil {
			if s < *r.Min || (s == *r.Min && !r.IncludeMin) {
				return true
			}
		}
		if r.Max != nil {
			if s > *r.Max || (s == *r.Max && !r.IncludeMax) {
				return true
			}
		}
		ids = append(ids, e.id)
		return true
	})
	return &sliceIterator{ids: ids}
}

func (r *StringRange) String() string { return "StringRange" }

// Union yields the set union of its children's results, deduplicated and
// sorted by EntityID for deterministic output.
type Union struct{ Children []Query }

func (u *Union) Iterator() Iterator {
	seen := make(map[types.EntityID]bool)
	var ids []types.EntityID
	for _, c := range u.Children {
		it := c.Iterator()
		for {
			id, ok := it.Next()
			if !ok {
				break
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &sliceIterator{ids: ids}
}

func (u *Union) String() string { return "Union" }

// Intersect yields the set intersection of its children's results.
type Intersect struct{ Children []Query }

func (x *Intersect) Iterator() Iterator {
	if len(x.Children) == 0 {
		return &sliceIterator{}
	}
	counts := make(map[types.EntityID]int)
	for _, c := range x.Children {
		it := c.Iterator()
		for {
			id, ok := it.Next()
			if !ok {
				break
			}
			counts[id]++
		}
	}
	var ids []types.EntityID
	for id, n := range counts {
		if n == len(x.Children) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &sliceIterator{ids: ids}
}

func (x *Intersect) String() string { return "Intersect" }

// Not yields every entity in Universe not matched by Child.
type Not struct {
	Child    Query
	Universe []types.EntityID
}

func (n *Not) Iterator() Iterator {
	excluded := make(map[types.EntityID]bool)
	it := n.Child.Iterator()
	for {
		id, ok := it.Next()
		if !ok {
			break
		}
		excluded[id] = true
	}
	var ids []types.EntityID
	for _, id := range n.Universe {
		if !excluded[id] {
			ids = append(ids, id)
		}
	}
	return &sliceIterator{ids: ids}
}

func (n *Not) String() string { return "Not" }

// Empty always yields nothing. The optimizer does not construct it:
// AND-ed ranges are combined with Intersect, so contradictory bounds
// (min>max or inconsistent inclusion) produce an Intersect that yields
// nothing.
type Empty struct{}

func (Empty) Iterator() Iterator { return &sliceIterator{} }
func (Empty) String() string     { return "Empty" }
