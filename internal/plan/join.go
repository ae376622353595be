package plan

import (
	"fmt"
	"sort"

	"github.com/cyphercore/graphengine/internal/record"
	"github.com/cyphercore/graphengine/internal/types"
)

// cachedRecord pairs a left-branch record with its evaluated join key,
// which is appended as a trailing slot (index = the record's length
// before extension) so it survives Merge without clashing with any
// existing slot.
type cachedRecord struct {
	rec      *record.Record
	keySlot  int
	key      types.SIValue
}

// ValueHashJoin implements the equi-join lhs_exp(l) == rhs_exp(r) via a
// single-pass eager build on the left branch (sort by join key) and a
// streaming binary-search probe on the right branch, per spec.md §4.8 —
// chosen over a hash table because SIValue equality is total only under
// SIValue_Order's type-then-value rule; hashing across mixed types
// (string / numeric / node) is not defined by the value layer.
type ValueHashJoin struct {
	Base
	left, right Operator
	lhsExp      CompiledExpr
	rhsExp      CompiledExpr
	ctx         *EvalContext

	cache      []cachedRecord
	built      bool
	curRight   *record.Record
	matches    []cachedRecord
	matchPos   int
}

func NewValueHashJoin(left, right Operator, lhsExp, rhsExp CompiledExpr, ctx *EvalContext) *ValueHashJoin {
	j := &ValueHashJoin{left: left, right: right, lhsExp: lhsExp, rhsExp: rhsExp, ctx: ctx}
	j.Base = NewBase("Value Hash Join", nil, left, right)
	return j
}

func (j *ValueHashJoin) Init() error { return j.initChildren() }

func (j *ValueHashJoin) build() error {
	for {
		l, err := j.left.Consume()
		if err != nil {
			return err
		}
		if l == nil {
			break
		}
		v, err := j.lhsExp(j.ctx, l)
		if err != nil {
			// Non-fatal per spec.md §4.8: a record whose join-key
			// expression fails is dropped from the build side.
			continue
		}
		keySlot := l.Len()
		l.Extend(keySlot + 1)
		l.AddScalar(keySlot, v)
		j.cache = append(j.cache, cachedRecord{rec: l, keySlot: keySlot, key: v})
	}
	sort.SliceStable(j.cache, func(a, b int) bool {
		return types.Order(j.cache[a].key, j.cache[b].key) < 0
	})
	j.built = true
	return nil
}

// probeRange returns the half-open [lo, hi) slice of j.cache whose key
// equals v, located via two binary searches (leftmost/rightmost).
func (j *ValueHashJoin) probeRange(v types.SIValue) (int, int) {
	lo := sort.Search(len(j.cache), func(i int) bool {
		return types.Order(j.cache[i].key, v) >= 0
	})
	hi := sort.Search(len(j.cache), func(i int) bool {
		return types.Order(j.cache[i].key, v) > 0
	})
	return lo, hi
}

func (j *ValueHashJoin) Consume() (*record.Record, error) {
	if !j.built {
		if err := j.build(); err != nil {
			return nil, err
		}
	}
	for {
		if j.matchPos < len(j.matches) {
			m := j.matches[j.matchPos]
			j.matchPos++
			out := m.rec.Clone()
			out.Merge(j.curRight)
			return out, nil
		}

		r, err := j.right.Consume()
		if err != nil || r == nil {
			return r, err
		}
		v, err := j.rhsExp(j.ctx, r)
		if err != nil {
			continue
		}
		lo, hi := j.probeRange(v)
		j.curRight = r
		j.matches = j.cache[lo:hi]
		j.matchPos = 0
	}
}

func (j *ValueHashJoin) Reset() error {
	j.cache = nil
	j.built = false
	j.curRight = nil
	j.matches = nil
	j.matchPos = 0
	return j.resetChildren()
}
func (j *ValueHashJoin) Free() { j.freeChildren() }
func (j *ValueHashJoin) String() string { return "Value Hash Join" }

// CartesianProduct eagerly materializes the right branch, then for each
// left record emits one merged record per cached right record (spec.md
// §4.8).
type CartesianProduct struct {
	Base
	left, right Operator

	cache    []*record.Record
	built    bool
	curLeft  *record.Record
	position int
}

func NewCartesianProduct(left, right Operator) *CartesianProduct {
	c := &CartesianProduct{left: left, right: right}
	modifies := append(append([]int{}, left.Modifies()...), right.Modifies()...)
	c.Base = NewBase("Cartesian Product", modifies, left, right)
	return c
}

func (c *CartesianProduct) Init() error { return c.initChildren() }

func (c *CartesianProduct) build() error {
	for {
		r, err := c.right.Consume()
		if err != nil {
			return err
		}
		if r == nil {
			break
		}
		c.cache = append(c.cache, r)
	}
	c.built = true
	return nil
}

func (c *CartesianProduct) Consume() (*record.Record, error) {
	if !c.built {
		if err := c.build(); err != nil {
			return nil, err
		}
	}
	for {
		if c.curLeft != nil && c.position < len(c.cache) {
			rhs := c.cache[c.position]
			c.position++
			out := c.curLeft.Clone()
			out.Merge(rhs)
			return out, nil
		}
		l, err := c.left.Consume()
		if err != nil || l == nil {
			return l, err
		}
		c.curLeft = l
		c.position = 0
	}
}

func (c *CartesianProduct) Reset() error {
	c.cache = nil
	c.built = false
	c.curLeft = nil
	c.position = 0
	return c.resetChildren()
}
func (c *CartesianProduct) Free() { c.freeChildren() }
func (c *CartesianProduct) String() string { return "Cartesian Product" }

// Argument is the leaf an OPTIONAL MATCH subtree is built on instead of
// a scan: it replays a single record, set by the enclosing Optional
// before each (re)pull of the subtree, exactly once per arming.
type Argument struct {
	Base
	rec    *record.Record
	served bool
}

func NewArgument() *Argument {
	a := &Argument{}
	a.Base = NewBase("Argument", nil)
	return a
}

// Arm loads the record the next Consume() call will yield.
func (a *Argument) Arm(r *record.Record) { a.rec = r; a.served = false }

func (a *Argument) Init() error { return nil }

func (a *Argument) Consume() (*record.Record, error) {
	if a.served || a.rec == nil {
		return nil, nil
	}
	a.served = true
	return a.rec.Clone(), nil
}

func (a *Argument) Reset() error { a.served = false; return nil }
func (a *Argument) Free()        {}
func (a *Argument) String() string { return "Argument" }

// Optional wraps a subtree with left-outer semantics: for each upstream
// record, if the subtree emits at least one record, those are forwarded
// unchanged; otherwise the upstream record is emitted once with the
// subtree's modified slots set to null (spec.md §4.8). The subtree must
// be rooted at an Argument fed by feed, which Optional arms with each
// upstream record before (re)pulling the subtree.
type Optional struct {
	Base
	upstream Operator
	inner    Operator
	feed     *Argument
	modifies []int

	current   *record.Record
	innerSeen bool
}

// NewOptional takes modifies explicitly rather than reading inner's own
// Modifies(), since inner may be wrapped in a Filter (whose Modifies()
// is empty) on top of the slots the subtree actually writes.
func NewOptional(upstream, inner Operator, feed *Argument, modifies []int) *Optional {
	o := &Optional{upstream: upstream, inner: inner, feed: feed, modifies: modifies}
	o.Base = NewBase("Optional", modifies, upstream, inner)
	return o
}

func (o *Optional) Init() error { return o.initChildren() }

func (o *Optional) Consume() (*record.Record, error) {
	for {
		if o.current != nil {
			r, err := o.inner.Consume()
			if err != nil {
				return nil, err
			}
			if r != nil {
				o.innerSeen = true
				return r, nil
			}
			// inner exhausted for this upstream record.
			cur := o.current
			o.current = nil
			if !o.innerSeen {
				out := cur.Clone()
				for _, slot := range o.modifies {
					out.SetNull(slot)
				}
				return out, nil
			}
			continue
		}

		u, err := o.upstream.Consume()
		if err != nil || u == nil {
			return u, err
		}
		if err := o.inner.Reset(); err != nil {
			return nil, err
		}
		o.feed.Arm(u)
		o.current = u
		o.innerSeen = false
	}
}

func (o *Optional) Reset() error {
	o.current = nil
	o.innerSeen = false
	return o.resetChildren()
}
func (o *Optional) Free() { o.freeChildren() }
func (o *Optional) String() string { return fmt.Sprintf("Optional(%s)", o.inner.String()) }
