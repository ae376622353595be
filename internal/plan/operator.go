// Package plan implements the operator interface and concrete operators
// (C5-C9) plus the execution plan builder (C10): spec.md §4.4-4.9.
package plan

import (
	"github.com/cyphercore/graphengine/internal/record"
)

// Operator is the polymorphic pull interface every plan node implements
// (spec.md §4.4): init runs once after the plan is assembled bottom-up,
// consume pulls one record or end-of-stream, reset returns to initial
// state without re-init, free releases acquired resources.
type Operator interface {
	Init() error
	// Consume returns the next record, or (nil, nil) at end-of-stream.
	Consume() (*record.Record, error)
	Reset() error
	Free()
	String() string
	Children() []Operator
	Modifies() []int
}

// Base is embedded by every concrete operator for the child-vector /
// parent-pointer / modifies-set bookkeeping the teacher's operator
// hierarchy hand-rolls per concrete type; here it is a single struct
// embedded by composition rather than inheritance, per DESIGN NOTES §9.
type Base struct {
	name     string
	children []Operator
	parent   Operator
	modifies []int
}

func NewBase(name string, modifies []int, children ...Operator) Base {
	return Base{name: name, children: children, modifies: modifies}
}

func (b *Base) Children() []Operator { return b.children }
func (b *Base) Modifies() []int      { return b.modifies }
func (b *Base) String() string       { return b.name }

func (b *Base) initChildren() error {
	for _, c := range b.children {
		if err := c.Init(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Base) resetChildren() error {
	for _, c := range b.children {
		if err := c.Reset(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Base) freeChildren() {
	for _, c := range b.children {
		c.Free()
	}
}
