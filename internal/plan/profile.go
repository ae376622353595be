package plan

import (
	"time"

	"github.com/cyphercore/graphengine/internal/record"
)

// OperatorStat is one operator's cumulative Consume() time and call
// count, collected by Profile and surfaced through GRAPH.PROFILE
// (spec.md §6). Duration is cumulative over the whole subtree rooted at
// the operator, not exclusive of its children's time — the simplest
// reading a pull-based decorator gives for free, and the one RedisGraph's
// own profiler reports.
type OperatorStat struct {
	Name     string
	Calls    int
	Duration time.Duration
}

// Profile wraps every operator in root's tree with a timing decorator,
// returning the wrapped root to run in root's place and a stats func to
// call once execution is done. It reaches into the same unexported
// child/left/right/upstream/inner fields Optimize already walks, for the
// same reason: splicing in a replacement operator is only possible from
// inside package plan.
func Profile(root Operator) (Operator, func() []OperatorStat) {
	var nodes []*timingOp
	wrapped := wrapProfile(root, &nodes)
	return wrapped, func() []OperatorStat {
		stats := make([]OperatorStat, len(nodes))
		for i, n := range nodes {
			stats[i] = OperatorStat{Name: n.String(), Calls: n.calls, Duration: n.dur}
		}
		return stats
	}
}

func wrapProfile(op Operator, nodes *[]*timingOp) Operator {
	switch n := op.(type) {
	case *Filter:
		n.child = wrapProfile(n.child, nodes)
	case *Projection:
		n.child = wrapProfile(n.child, nodes)
	case *Aggregate:
		n.child = wrapProfile(n.child, nodes)
	case *Sort:
		n.child = wrapProfile(n.child, nodes)
	case *Skip:
		n.child = wrapProfile(n.child, nodes)
	case *Limit:
		n.child = wrapProfile(n.child, nodes)
	case *Unwind:
		n.child = wrapProfile(n.child, nodes)
	case *ConditionalTraverse:
		n.child = wrapProfile(n.child, nodes)
	case *ConditionalVarLenTraverse:
		n.child = wrapProfile(n.child, nodes)
	case *Expand:
		n.child = wrapProfile(n.child, nodes)
	case *ValueHashJoin:
		n.left = wrapProfile(n.left, nodes)
		n.right = wrapProfile(n.right, nodes)
	case *CartesianProduct:
		n.left = wrapProfile(n.left, nodes)
		n.right = wrapProfile(n.right, nodes)
	case *Optional:
		n.upstream = wrapProfile(n.upstream, nodes)
		n.inner = wrapProfile(n.inner, nodes)
	}
	t := &timingOp{inner: op}
	*nodes = append(*nodes, t)
	return t
}

// timingOp decorates one operator, recording cumulative Consume() time
// and call count while delegating everything else unchanged.
type timingOp struct {
	inner Operator
	calls int
	dur   time.Duration
}

func (t *timingOp) Init() error { return t.inner.Init() }

func (t *timingOp) Consume() (*record.Record, error) {
	start := time.Now()
	r, err := t.inner.Consume()
	t.dur += time.Since(start)
	t.calls++
	return r, err
}

func (t *timingOp) Reset() error         { return t.inner.Reset() }
func (t *timingOp) Free()                { t.inner.Free() }
func (t *timingOp) String() string       { return t.inner.String() }
func (t *timingOp) Children() []Operator { return t.inner.Children() }
func (t *timingOp) Modifies() []int      { return t.inner.Modifies() }
