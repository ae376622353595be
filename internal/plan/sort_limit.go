package plan

import (
	"fmt"
	"sort"

	"github.com/cyphercore/graphengine/internal/record"
	"github.com/cyphercore/graphengine/internal/types"
)

// OrderItem is one compiled `ORDER BY expr [ASC|DESC]` term.
type OrderItem struct {
	Expr       CompiledExpr
	Descending bool
}

// Sort is a blocking operator: drains its child, orders the cache by
// the ORDER BY expressions using SIValue_Order, tie-breaking on
// subsequent items left-to-right, then streams it back out.
type Sort struct {
	Base
	child Operator
	items []OrderItem
	ctx   *EvalContext

	cache    []*record.Record
	built    bool
	position int
}

func NewSort(child Operator, items []OrderItem, ctx *EvalContext) *Sort {
	s := &Sort{child: child, items: items, ctx: ctx}
	s.Base = NewBase("Sort", nil, child)
	return s
}

func (s *Sort) Init() error { return s.initChildren() }

func (s *Sort) build() error {
	for {
		r, err := s.child.Consume()
		if err != nil {
			return err
		}
		if r == nil {
			break
		}
		s.cache = append(s.cache, r)
	}

	var sortErr error
	sort.SliceStable(s.cache, func(a, b int) bool {
		for _, it := range s.items {
			va, err := it.Expr(s.ctx, s.cache[a])
			if err != nil {
				sortErr = err
				return false
			}
			vb, err := it.Expr(s.ctx, s.cache[b])
			if err != nil {
				sortErr = err
				return false
			}
			c := types.Order(va, vb)
			if c == 0 {
				continue
			}
			if it.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	s.built = true
	return sortErr
}

func (s *Sort) Consume() (*record.Record, error) {
	if !s.built {
		if err := s.build(); err != nil {
			return nil, err
		}
	}
	if s.position >= len(s.cache) {
		return nil, nil
	}
	r := s.cache[s.position]
	s.position++
	return r, nil
}

func (s *Sort) Reset() error {
	s.cache = nil
	s.built = false
	s.position = 0
	return s.resetChildren()
}
func (s *Sort) Free() { s.freeChildren() }
func (s *Sort) String() string { return fmt.Sprintf("Sort(%d keys)", len(s.items)) }

// Skip discards the first N records its child produces.
type Skip struct {
	Base
	child   Operator
	n       int
	skipped int
}

func NewSkip(child Operator, n int) *Skip {
	s := &Skip{child: child, n: n}
	s.Base = NewBase("Skip", nil, child)
	return s
}

func (s *Skip) Init() error { return s.initChildren() }

func (s *Skip) Consume() (*record.Record, error) {
	for s.skipped < s.n {
		r, err := s.child.Consume()
		if err != nil || r == nil {
			return r, err
		}
		s.skipped++
	}
	return s.child.Consume()
}

func (s *Skip) Reset() error {
	s.skipped = 0
	return s.resetChildren()
}
func (s *Skip) Free() { s.freeChildren() }
func (s *Skip) String() string { return fmt.Sprintf("Skip(%d)", s.n) }

// Limit caps the number of records forwarded from its child at N,
// signaling end-of-stream thereafter without pulling further.
type Limit struct {
	Base
	child   Operator
	n       int
	emitted int
}

func NewLimit(child Operator, n int) *Limit {
	l := &Limit{child: child, n: n}
	l.Base = NewBase("Limit", nil, child)
	return l
}

func (l *Limit) Init() error { return l.initChildren() }

func (l *Limit) Consume() (*record.Record, error) {
	if l.emitted >= l.n {
		return nil, nil
	}
	r, err := l.child.Consume()
	if err != nil || r == nil {
		return r, err
	}
	l.emitted++
	return r, nil
}

func (l *Limit) Reset() error {
	l.emitted = 0
	return l.resetChildren()
}
func (l *Limit) Free() { l.freeChildren() }
func (l *Limit) String() string { return fmt.Sprintf("Limit(%d)", l.n) }
