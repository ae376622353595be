package engine

import (
	"context"
	"strings"

	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/plan"
	"github.com/cyphercore/graphengine/internal/record"
)

// drainRows pulls every record out of root, checking ctx between pulls.
// spec.md §5 describes cancellation as checked "at record-boundary
// granularity" by each operator; since plan.Operator carries no
// context.Context, this engine approximates that at the single
// outermost pull loop instead of inside every operator — sufficient for
// a query to notice cancellation promptly (each Consume() call is one
// row of work, not an unbounded scan) without threading ctx through the
// whole operator tree. limit <= 0 is unlimited (spec.md §6's
// RESULTSET_SIZE -1).
func drainRows(ctx context.Context, root plan.Operator, limit int) ([]*record.Record, error) {
	if err := root.Init(); err != nil {
		return nil, err
	}
	defer root.Free()

	var rows []*record.Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limit > 0 && len(rows) >= limit {
			break
		}
		r, err := root.Consume()
		if err != nil {
			return nil, err
		}
		if r == nil {
			break
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// drainDiscard runs root to completion without collecting rows, used by
// GRAPH.PROFILE where only the timing wrapper's stats matter.
func drainDiscard(ctx context.Context, root plan.Operator) error {
	if err := root.Init(); err != nil {
		return err
	}
	defer root.Free()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := root.Consume()
		if err != nil {
			return err
		}
		if r == nil {
			return nil
		}
	}
}

// renderRows projects each drained record down to its RETURN columns
// and formats them per formatter.
func renderRows(g *graph.PropertyGraph, p *plan.Plan, rows []*record.Record, formatter Formatter) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		row := make([]any, len(p.ColumnSlots))
		for j, slot := range p.ColumnSlots {
			row[j] = renderValue(g, formatter, r.GetScalar(slot))
		}
		out[i] = row
	}
	return out
}

// explainString renders op's tree as indented lines, one per operator,
// mirroring RedisGraph's GRAPH.EXPLAIN indentation convention.
func explainString(op plan.Operator, depth int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("    ", depth))
	b.WriteString(op.String())
	for _, child := range op.Children() {
		b.WriteByte('\n')
		b.WriteString(explainString(child, depth+1))
	}
	return b.String()
}
