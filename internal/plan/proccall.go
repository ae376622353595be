package plan

import (
	"fmt"

	"github.com/cyphercore/graphengine/internal/record"
	"github.com/cyphercore/graphengine/internal/types"
)

// ProcCall streams the rows a procedure (internal/procs) produced at
// build time, one output record per row, writing each yielded column
// into its assigned slot (spec.md §6: `CALL <name>(args) YIELD <cols>`).
// Procedures run once, synchronously, while the plan is being built —
// there is no pull-time re-invocation, mirroring how db.labels() or
// db.idx.fulltext.queryNodes() are one-shot reads of the live schema.
type ProcCall struct {
	Base
	rows     [][]types.SIValue
	colIdx   []int // index into a row for each output slot, in order
	slots    []int
	width    int
	position int
}

// NewProcCall builds the source operator for a CALL clause. rows is
// wide enough to hold every column the procedure can produce; colIdx
// selects, for each requested YIELD name, which column of rows to read
// (resolved by the builder against proc.Columns); slots is the
// destination record slot for that same position.
func NewProcCall(rows [][]types.SIValue, colIdx, slots []int, width int) *ProcCall {
	p := &ProcCall{rows: rows, colIdx: colIdx, slots: slots, width: width}
	p.Base = NewBase("ProcCall", append([]int{}, slots...))
	return p
}

func (p *ProcCall) Init() error { return nil }

func (p *ProcCall) Consume() (*record.Record, error) {
	if p.position >= len(p.rows) {
		return nil, nil
	}
	row := p.rows[p.position]
	p.position++
	r := record.New(p.width)
	for i, slot := range p.slots {
		r.AddScalar(slot, row[p.colIdx[i]])
	}
	return r, nil
}

func (p *ProcCall) Reset() error { p.position = 0; return nil }
func (p *ProcCall) Free()        {}
func (p *ProcCall) String() string {
	return fmt.Sprintf("ProcCall(%d rows)", len(p.rows))
}
