package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphercore/graphengine/internal/record"
	"github.com/cyphercore/graphengine/internal/types"
)

// sliceSource is a minimal test-only Operator replaying a fixed slice of
// records, standing in for a scan when a test only cares about a single
// downstream operator's behavior.
type sliceSource struct {
	Base
	records []*record.Record
	pos     int
}

func newSliceSource(recs ...*record.Record) *sliceSource {
	s := &sliceSource{records: recs}
	s.Base = NewBase("sliceSource", nil)
	return s
}

func (s *sliceSource) Init() error { return nil }
func (s *sliceSource) Consume() (*record.Record, error) {
	if s.pos >= len(s.records) {
		return nil, nil
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}
func (s *sliceSource) Reset() error { s.pos = 0; return nil }
func (s *sliceSource) Free()        {}

func drain(t *testing.T, op Operator) []*record.Record {
	t.Helper()
	require.NoError(t, op.Init())
	var out []*record.Record
	for {
		r, err := op.Consume()
		require.NoError(t, err)
		if r == nil {
			return out
		}
		out = append(out, r)
	}
}

func scalarRec(v types.SIValue) *record.Record {
	r := record.New(1)
	r.AddScalar(0, v)
	return r
}

func identityExpr(slot int) CompiledExpr {
	return func(_ *EvalContext, r *record.Record) (types.SIValue, error) {
		return r.GetScalar(slot), nil
	}
}

func TestProjectionDistinctDropsDuplicates(t *testing.T) {
	src := newSliceSource(scalarRec(types.Int(1)), scalarRec(types.Int(1)), scalarRec(types.Int(2)))
	proj := NewProjection(src, []ProjectionItem{{Expr: identityExpr(0), Slot: 0}}, 1, &EvalContext{}, true)

	out := drain(t, proj)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].GetScalar(0).I)
	assert.Equal(t, int64(2), out[1].GetScalar(0).I)
}

func TestProjectionNonDistinctKeepsDuplicates(t *testing.T) {
	src := newSliceSource(scalarRec(types.Int(1)), scalarRec(types.Int(1)))
	proj := NewProjection(src, []ProjectionItem{{Expr: identityExpr(0), Slot: 0}}, 1, &EvalContext{}, false)

	out := drain(t, proj)
	assert.Len(t, out, 2)
}

func TestAggregateSumAndCountGroupByKey(t *testing.T) {
	recs := []*record.Record{
		mustPair(t, "a", 10),
		mustPair(t, "a", 20),
		mustPair(t, "b", 5),
	}
	src := newSliceSource(recs...)

	keyExpr := identityExpr(0)
	sumExpr := identityExpr(1)
	agg := NewAggregate(
		src,
		[]CompiledExpr{keyExpr},
		[]int{0},
		[]AggregateItem{
			{Func: AggSum, Expr: sumExpr, Slot: 1},
			{Func: AggCount, Expr: sumExpr, Slot: 2},
		},
		3, &EvalContext{},
	)

	out := drain(t, agg)
	require.Len(t, out, 2)

	byKey := map[string]*record.Record{}
	for _, r := range out {
		byKey[r.GetScalar(0).S] = r
	}
	assert.Equal(t, int64(30), byKey["a"].GetScalar(1).I)
	assert.Equal(t, int64(2), byKey["a"].GetScalar(2).I)
	assert.Equal(t, int64(5), byKey["b"].GetScalar(1).I)
	assert.Equal(t, int64(1), byKey["b"].GetScalar(2).I)
}

func mustPair(t *testing.T, key string, val int64) *record.Record {
	t.Helper()
	r := record.New(2)
	r.AddScalar(0, types.ConstString(key))
	r.AddScalar(1, types.Int(val))
	return r
}

func TestAggregateEmptyInputYieldsOneRowForBareCount(t *testing.T) {
	src := newSliceSource()
	agg := NewAggregate(src, nil, nil, []AggregateItem{{Func: AggCount, Expr: identityExpr(0), Slot: 0}}, 1, &EvalContext{})

	out := drain(t, agg)
	require.Len(t, out, 1)
	assert.Equal(t, int64(0), out[0].GetScalar(0).I)
}

func TestSortOrdersAscendingThenDescending(t *testing.T) {
	src := newSliceSource(scalarRec(types.Int(3)), scalarRec(types.Int(1)), scalarRec(types.Int(2)))
	sorted := NewSort(src, []OrderItem{{Expr: identityExpr(0), Descending: false}}, &EvalContext{})
	out := drain(t, sorted)
	require.Len(t, out, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{out[0].GetScalar(0).I, out[1].GetScalar(0).I, out[2].GetScalar(0).I})

	src2 := newSliceSource(scalarRec(types.Int(3)), scalarRec(types.Int(1)), scalarRec(types.Int(2)))
	desc := NewSort(src2, []OrderItem{{Expr: identityExpr(0), Descending: true}}, &EvalContext{})
	out2 := drain(t, desc)
	assert.Equal(t, []int64{3, 2, 1}, []int64{out2[0].GetScalar(0).I, out2[1].GetScalar(0).I, out2[2].GetScalar(0).I})
}

func TestSkipAndLimit(t *testing.T) {
	src := newSliceSource(scalarRec(types.Int(1)), scalarRec(types.Int(2)), scalarRec(types.Int(3)), scalarRec(types.Int(4)))
	skipped := NewSkip(src, 1)
	limited := NewLimit(skipped, 2)

	out := drain(t, limited)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[0].GetScalar(0).I)
	assert.Equal(t, int64(3), out[1].GetScalar(0).I)
}

func TestUnwindExpandsArrayNullAndScalar(t *testing.T) {
	arr := types.Array([]types.SIValue{types.Int(1), types.Int(2)})
	src := newSliceSource(scalarRec(arr), scalarRec(types.Null()), scalarRec(types.Int(9)))
	u := NewUnwind(src, identityExpr(0), 0, &EvalContext{})

	out := drain(t, u)
	require.Len(t, out, 3)
	assert.Equal(t, int64(1), out[0].GetScalar(0).I)
	assert.Equal(t, int64(2), out[1].GetScalar(0).I)
	assert.Equal(t, int64(9), out[2].GetScalar(0).I)
}

func TestValueHashJoinMatchesOnEqualKey(t *testing.T) {
	left := newSliceSource(mustPair(t, "x", 1), mustPair(t, "y", 2))
	right := newSliceSource(mustPair(t, "x", 100), mustPair(t, "z", 200))

	join := NewValueHashJoin(left, right, identityExpr(0), identityExpr(0), &EvalContext{})
	out := drain(t, join)
	require.Len(t, out, 1)
	assert.Equal(t, "x", out[0].GetScalar(0).S)
}

func TestCartesianProductCrossesBothSides(t *testing.T) {
	left := newSliceSource(scalarRec(types.Int(1)), scalarRec(types.Int(2)))
	right := newSliceSource(scalarRec(types.Int(10)), scalarRec(types.Int(20)))

	cp := NewCartesianProduct(left, right)
	out := drain(t, cp)
	assert.Len(t, out, 4)
}

func TestArgumentReplaysExactlyOnceUntilRearmed(t *testing.T) {
	a := NewArgument()
	require.NoError(t, a.Init())
	r, err := a.Consume()
	require.NoError(t, err)
	assert.Nil(t, r, "unarmed Argument yields nothing")

	a.Arm(scalarRec(types.Int(7)))
	r, err = a.Consume()
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, int64(7), r.GetScalar(0).I)

	r, err = a.Consume()
	require.NoError(t, err)
	assert.Nil(t, r, "second pull before rearming yields nothing")
}

func TestOptionalNullsModifiedSlotsWhenInnerEmpty(t *testing.T) {
	upstream := newSliceSource(scalarRec(types.Int(1)), scalarRec(types.Int(2)))
	feed := NewArgument()

	// inner only ever matches upstream value 1: filters out everything
	// else via its own predicate, simulating an unmatched OPTIONAL MATCH.
	inner := &oneShotFilterOnArg{feed: feed}
	inner.Base = NewBase("oneShotFilterOnArg", []int{1}, feed)

	opt := NewOptional(upstream, inner, feed, []int{1})
	out := drain(t, opt)
	require.Len(t, out, 2)

	assert.Equal(t, int64(1), out[0].GetScalar(0).I)
	assert.Equal(t, int64(100), out[0].GetScalar(1).I)

	assert.Equal(t, int64(2), out[1].GetScalar(0).I)
	assert.True(t, out[1].GetScalar(1).IsNull())
}

// oneShotFilterOnArg emits one record (with slot 1 set to 100) only when
// the armed record's slot 0 equals 1; otherwise it emits nothing,
// exercising Optional's null-fill path.
type oneShotFilterOnArg struct {
	Base
	feed   *Argument
	served bool
}

func (f *oneShotFilterOnArg) Init() error { return nil }
func (f *oneShotFilterOnArg) Consume() (*record.Record, error) {
	if f.served {
		return nil, nil
	}
	f.served = true
	r, err := f.feed.Consume()
	if err != nil || r == nil {
		return nil, err
	}
	if r.GetScalar(0).I != 1 {
		return nil, nil
	}
	out := r.Clone()
	out.AddScalar(1, types.Int(100))
	return out, nil
}
func (f *oneShotFilterOnArg) Reset() error { f.served = false; return f.feed.Reset() }
func (f *oneShotFilterOnArg) Free()        {}
