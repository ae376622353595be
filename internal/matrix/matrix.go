// Package matrix implements the sparse boolean matrix kernel the
// algebraic expression tree (internal/algebra) compiles against: mul,
// add (element-wise OR), transpose, and extract. In a production
// deployment this is a GraphBLAS-style library external to the query
// engine core (spec.md §1 lists it as a non-goal/external collaborator);
// this package is the in-repo reference backend that exercises the same
// call surface (Mul, Add, Transpose, Row) so the rest of the engine can
// run end-to-end.
package matrix

import (
	"github.com/cyphercore/graphengine/internal/types"
)

// Bool is a sparse boolean adjacency matrix over EntityID-indexed rows
// and columns. Row i, column j is set iff there's a 1 at [i,j].
type Bool struct {
	rows map[types.EntityID]map[types.EntityID]struct{}
}

// New returns an empty matrix.
func New() *Bool {
	return &Bool{rows: make(map[types.EntityID]map[types.EntityID]struct{})}
}

// Set marks the [i,j] entry.
func (m *Bool) Set(i, j types.EntityID) {
	row, ok := m.rows[i]
	if !ok {
		row = make(map[types.EntityID]struct{})
		m.rows[i] = row
	}
	row[j] = struct{}{}
}

// Clear unmarks the [i,j] entry.
func (m *Bool) Clear(i, j types.EntityID) {
	if row, ok := m.rows[i]; ok {
		delete(row, j)
		if len(row) == 0 {
			delete(m.rows, i)
		}
	}
}

// Get reports whether [i,j] is set.
func (m *Bool) Get(i, j types.EntityID) bool {
	row, ok := m.rows[i]
	if !ok {
		return false
	}
	_, ok = row[j]
	return ok
}

// Row returns the sorted column indices set for row i.
func (m *Bool) Row(i types.EntityID) []types.EntityID {
	row, ok := m.rows[i]
	if !ok {
		return nil
	}
	out := make([]types.EntityID, 0, len(row))
	for j := range row {
		out = append(out, j)
	}
	sortIDs(out)
	return out
}

// DiagonalEntries returns the sorted set of ids with a 1 at [id,id],
// i.e. the set membership a diagonal label matrix encodes.
func (m *Bool) DiagonalEntries() []types.EntityID {
	out := make([]types.EntityID, 0, len(m.rows))
	for i, cols := range m.rows {
		if _, ok := cols[i]; ok {
			out = append(out, i)
		}
	}
	sortIDs(out)
	return out
}

// RowIndices returns the sorted set of row indices with at least one entry,
// letting a caller iterate every populated row without knowing IDs ahead of
// time (used by full-matrix copies).
func (m *Bool) RowIndices() []types.EntityID {
	out := make([]types.EntityID, 0, len(m.rows))
	for i := range m.rows {
		out = append(out, i)
	}
	sortIDs(out)
	return out
}

// DropRow removes every entry for row i (used when a node is deleted).
func (m *Bool) DropRow(i types.EntityID) {
	delete(m.rows, i)
}

// DropColumn removes every entry at column j across all rows.
func (m *Bool) DropColumn(j types.EntityID) {
	for i, row := range m.rows {
		delete(row, j)
		if len(row) == 0 {
			delete(m.rows, i)
		}
	}
}

func sortIDs(ids []types.EntityID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// Mul computes the boolean matrix product: out[i,k] = OR_j (a[i,j] AND
// b[j,k]). If aTranspose/bTranspose are set, the corresponding operand is
// read as its transpose without materializing it.
func Mul(a *Bool, aTranspose bool, b *Bool, bTranspose bool) *Bool {
	out := New()
	aRows := rowsOf(a, aTranspose)
	for i, cols := range aRows {
		for j := range cols {
			bRow := rowOf(b, bTranspose, j)
			for k := range bRow {
				out.Set(i, k)
			}
		}
	}
	return out
}

// Add computes the element-wise OR of a and b.
func Add(a *Bool, aTranspose bool, b *Bool, bTranspose bool) *Bool {
	out := New()
	for i, cols := range rowsOf(a, aTranspose) {
		for j := range cols {
			out.Set(i, j)
		}
	}
	for i, cols := range rowsOf(b, bTranspose) {
		for j := range cols {
			out.Set(i, j)
		}
	}
	return out
}

// Transpose materializes the transpose of m. Callers on the hot path
// should prefer passing a transpose flag into Mul/Add/Row instead.
func Transpose(m *Bool) *Bool {
	out := New()
	for i, cols := range m.rows {
		for j := range cols {
			out.Set(j, i)
		}
	}
	return out
}

// Diagonal builds a diagonal matrix with a 1 at [id,id] for every id in ids.
func Diagonal(ids []types.EntityID) *Bool {
	m := New()
	for _, id := range ids {
		m.Set(id, id)
	}
	return m
}

// RowVector builds a single-row matrix with a 1 at [src,src], used to
// restrict a traversal's algebraic expression to one source entity
// (spec.md §4.6 step 2: "pre-multiply with a single-entry row vector").
func RowVector(src types.EntityID) *Bool {
	m := New()
	m.Set(src, src)
	return m
}

func rowsOf(m *Bool, transpose bool) map[types.EntityID]map[types.EntityID]struct{} {
	if !transpose {
		return m.rows
	}
	out := make(map[types.EntityID]map[types.EntityID]struct{})
	for i, cols := range m.rows {
		for j := range cols {
			row, ok := out[j]
			if !ok {
				row = make(map[types.EntityID]struct{})
				out[j] = row
			}
			row[i] = struct{}{}
		}
	}
	return out
}

func rowOf(m *Bool, transpose bool, idx types.EntityID) map[types.EntityID]struct{} {
	if !transpose {
		return m.rows[idx]
	}
	out := make(map[types.EntityID]struct{})
	for i, cols := range m.rows {
		if _, ok := cols[idx]; ok {
			out[i] = struct{}{}
		}
	}
	return out
}
