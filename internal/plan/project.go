package plan

import (
	"fmt"

	"github.com/cyphercore/graphengine/internal/record"
)

// ProjectionItem is one compiled `expr AS alias` entry, carrying the
// destination slot the expression's value is written into.
type ProjectionItem struct {
	Expr CompiledExpr
	Slot int
}

// Projection evaluates N expressions per input record into a fresh,
// narrower output record, discarding every slot not named by a
// projection item (spec.md §4.7, WITH/RETURN).
type Projection struct {
	Base
	child Operator
	items []ProjectionItem
	width int
	ctx   *EvalContext

	// distinctSeen is non-nil for WITH DISTINCT / RETURN DISTINCT
	// projections: each emitted row's key-ordinal tuple is remembered
	// so duplicates are dropped (spec.md §4.7).
	distinctSeen map[string]bool
	distinct     bool
}

func NewProjection(child Operator, items []ProjectionItem, width int, ctx *EvalContext, distinct bool) *Projection {
	p := &Projection{child: child, items: items, width: width, ctx: ctx, distinct: distinct}
	if distinct {
		p.distinctSeen = make(map[string]bool)
	}
	p.Base = NewBase("Projection", slotsOf(items), child)
	return p
}

func slotsOf(items []ProjectionItem) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Slot
	}
	return out
}

func (p *Projection) Init() error { return p.initChildren() }

func (p *Projection) Consume() (*record.Record, error) {
	for {
		r, err := p.child.Consume()
		if err != nil || r == nil {
			return r, err
		}

		out := record.New(p.width)
		for _, it := range p.items {
			v, err := it.Expr(p.ctx, r)
			if err != nil {
				return nil, err
			}
			out.AddScalar(it.Slot, v)
		}

		if p.distinct {
			key := distinctKey(out, p.items)
			if p.distinctSeen[key] {
				continue
			}
			p.distinctSeen[key] = true
		}
		return out, nil
	}
}

func distinctKey(r *record.Record, items []ProjectionItem) string {
	key := ""
	for _, it := range items {
		key += fmt.Sprintf("%v|", r.GetScalar(it.Slot))
	}
	return key
}

func (p *Projection) Reset() error {
	if p.distinct {
		p.distinctSeen = make(map[string]bool)
	}
	return p.resetChildren()
}
func (p *Projection) Free() { p.freeChildren() }
func (p *Projection) String() string {
	if p.distinct {
		return "Distinct Project"
	}
	return "Project"
}
