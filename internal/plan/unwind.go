package plan

import (
	"fmt"

	"github.com/cyphercore/graphengine/internal/record"
	"github.com/cyphercore/graphengine/internal/types"
)

// Unwind expands a list-valued expression into one output record per
// element, cloning the input record and writing the element into the
// designated slot. A non-list value unwinds to a single row holding
// that value; NULL unwinds to zero rows.
type Unwind struct {
	Base
	child Operator
	expr  CompiledExpr
	slot  int
	ctx   *EvalContext

	current *record.Record
	items   []types.SIValue
	pos     int
}

func NewUnwind(child Operator, expr CompiledExpr, slot int, ctx *EvalContext) *Unwind {
	u := &Unwind{child: child, expr: expr, slot: slot, ctx: ctx}
	u.Base = NewBase("Unwind", []int{slot}, child)
	return u
}

func (u *Unwind) Init() error { return u.initChildren() }

func (u *Unwind) Consume() (*record.Record, error) {
	for {
		if u.current != nil && u.pos < len(u.items) {
			v := u.items[u.pos]
			u.pos++
			out := u.current.Clone()
			out.AddScalar(u.slot, v)
			return out, nil
		}

		r, err := u.child.Consume()
		if err != nil || r == nil {
			return r, err
		}
		v, err := u.expr(u.ctx, r)
		if err != nil {
			return nil, err
		}
		u.current = r
		u.pos = 0
		switch {
		case v.IsNull():
			u.items = nil
		case v.Kind == types.KindArray:
			u.items = v.Arr
		default:
			u.items = []types.SIValue{v}
		}
	}
}

func (u *Unwind) Reset() error {
	u.current, u.items, u.pos = nil, nil, 0
	return u.resetChildren()
}
func (u *Unwind) Free() { u.freeChildren() }
func (u *Unwind) String() string { return fmt.Sprintf("Unwind(slot=%d)", u.slot) }
