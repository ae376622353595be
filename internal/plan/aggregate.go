package plan

import (
	"fmt"

	"github.com/cyphercore/graphengine/internal/engerr"
	"github.com/cyphercore/graphengine/internal/record"
	"github.com/cyphercore/graphengine/internal/types"
)

// AggFunc tags which accumulator an AggregateItem drives.
type AggFunc int

const (
	AggCount AggFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggCollect
)

// AggregateItem is one compiled aggregate function call: COUNT(expr),
// SUM(expr), etc, writing its accumulated result into Slot.
type AggregateItem struct {
	Func Func
	Expr CompiledExpr
	Slot int
}

// Func is re-exported as AggFunc to keep call sites readable; kept as a
// distinct name from the generic engerr.Kind-style enums elsewhere.
type Func = AggFunc

// accumulator holds one group's running aggregate state per AggregateItem.
type accumulator struct {
	count   int64
	sum     float64
	isFloat bool
	min     types.SIValue
	max     types.SIValue
	haveMM  bool
	collect []types.SIValue
}

func (a *accumulator) add(fn AggFunc, v types.SIValue) error {
	switch fn {
	case AggCount:
		if !v.IsNull() {
			a.count++
		}
	case AggSum, AggAvg:
		if v.IsNull() {
			return nil
		}
		f, err := types.ToFloat(v)
		if err != nil {
			return engerr.TypeMismatch("numeric", v.Kind.String())
		}
		a.sum += f
		a.count++
		if v.Kind == types.KindDouble {
			a.isFloat = true
		}
	case AggMin:
		if v.IsNull() {
			return nil
		}
		if !a.haveMM || types.Order(v, a.min) < 0 {
			a.min = v
			a.haveMM = true
		}
	case AggMax:
		if v.IsNull() {
			return nil
		}
		if !a.haveMM || types.Order(v, a.max) > 0 {
			a.max = v
			a.haveMM = true
		}
	case AggCollect:
		if !v.IsNull() {
			a.collect = append(a.collect, v)
		}
	}
	return nil
}

func (a *accumulator) result(fn AggFunc) types.SIValue {
	switch fn {
	case AggCount:
		return types.Int(a.count)
	case AggSum:
		if a.isFloat {
			return types.Double(a.sum)
		}
		return types.Int(int64(a.sum))
	case AggAvg:
		if a.count == 0 {
			return types.Null()
		}
		return types.Double(a.sum / float64(a.count))
	case AggMin:
		if !a.haveMM {
			return types.Null()
		}
		return a.min
	case AggMax:
		if !a.haveMM {
			return types.Null()
		}
		return a.max
	case AggCollect:
		return types.Array(a.collect)
	default:
		return types.Null()
	}
}

// group is one distinct grouping-key's set of accumulators, one per
// AggregateItem, plus the key record's non-aggregated (grouping) slots
// so the first row seen for the key can be replayed.
type group struct {
	keyRecord *record.Record
	accs      []*accumulator
}

// Aggregate implements GROUP BY-style aggregation (spec.md §4.7): the
// grouping key is every non-aggregated projection expression; rows
// sharing an equal key (per SIValue_Compare, so 1 and 1.0 match; all
// NULL keys share one group) are folded together via
// count/sum/avg/min/max/collect accumulators, then one output record is
// emitted per distinct key once the input is exhausted (a blocking
// operator, unlike the streaming pull of scans/filters/traverses).
type Aggregate struct {
	Base
	child     Operator
	keyExprs  []CompiledExpr
	keySlots  []int
	aggItems  []AggregateItem
	width     int
	ctx       *EvalContext

	groups    map[string]*group
	order     []string
	emitIndex int
	built     bool
}

func NewAggregate(child Operator, keyExprs []CompiledExpr, keySlots []int, aggItems []AggregateItem, width int, ctx *EvalContext) *Aggregate {
	modifies := append(append([]int{}, keySlots...), slotsOfAgg(aggItems)...)
	a := &Aggregate{
		child: child, keyExprs: keyExprs, keySlots: keySlots,
		aggItems: aggItems, width: width, ctx: ctx,
	}
	a.Base = NewBase("Aggregate", modifies, child)
	return a
}

func slotsOfAgg(items []AggregateItem) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Slot
	}
	return out
}

func (a *Aggregate) Init() error {
	a.groups = make(map[string]*group)
	a.order = nil
	a.emitIndex = 0
	a.built = false
	return a.initChildren()
}

func (a *Aggregate) build() error {
	for {
		r, err := a.child.Consume()
		if err != nil {
			return err
		}
		if r == nil {
			break
		}

		keyVals := make([]types.SIValue, len(a.keyExprs))
		for i, ke := range a.keyExprs {
			v, err := ke(a.ctx, r)
			if err != nil {
				return err
			}
			keyVals[i] = v
		}
		key := hashKey(keyVals)

		g, ok := a.groups[key]
		if !ok {
			kr := record.New(a.width)
			for i, slot := range a.keySlots {
				kr.AddScalar(slot, keyVals[i])
			}
			g = &group{keyRecord: kr, accs: make([]*accumulator, len(a.aggItems))}
			for i := range g.accs {
				g.accs[i] = &accumulator{}
			}
			a.groups[key] = g
			a.order = append(a.order, key)
		}

		for i, item := range a.aggItems {
			v, err := item.Expr(a.ctx, r)
			if err != nil {
				return err
			}
			if err := g.accs[i].add(item.Func, v); err != nil {
				return err
			}
		}
	}

	// An empty input with no grouping keys still yields one row (e.g.
	// `RETURN count(*)` over an empty match), matching SQL/Cypher
	// aggregate semantics.
	if len(a.order) == 0 && len(a.keyExprs) == 0 {
		kr := record.New(a.width)
		g := &group{keyRecord: kr, accs: make([]*accumulator, len(a.aggItems))}
		for i := range g.accs {
			g.accs[i] = &accumulator{}
		}
		a.groups[""] = g
		a.order = append(a.order, "")
	}

	a.built = true
	return nil
}

func hashKey(vals []types.SIValue) string {
	key := ""
	for _, v := range vals {
		switch {
		case types.IsNumeric(v):
			f, _ := types.ToFloat(v)
			key += fmt.Sprintf("num:%v|", f)
		case v.Kind == types.KindString:
			key += fmt.Sprintf("str:%q|", v.S)
		default:
			key += fmt.Sprintf("%d:%v|", v.Kind, v)
		}
	}
	return key
}

func (a *Aggregate) Consume() (*record.Record, error) {
	if !a.built {
		if err := a.build(); err != nil {
			return nil, err
		}
	}
	if a.emitIndex >= len(a.order) {
		return nil, nil
	}
	g := a.groups[a.order[a.emitIndex]]
	a.emitIndex++

	out := g.keyRecord.Clone()
	for i, item := range a.aggItems {
		out.AddScalar(item.Slot, g.accs[i].result(item.Func))
	}
	return out, nil
}

func (a *Aggregate) Reset() error {
	a.groups = make(map[string]*group)
	a.order = nil
	a.emitIndex = 0
	a.built = false
	return a.resetChildren()
}
func (a *Aggregate) Free() { a.freeChildren() }
func (a *Aggregate) String() string {
	return fmt.Sprintf("Aggregate(%d keys, %d aggs)", len(a.keyExprs), len(a.aggItems))
}
