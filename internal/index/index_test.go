package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyphercore/graphengine/internal/types"
)

func buildAgeIndex() *PropertyIndex {
	idx := NewPropertyIndex()
	idx.Add(1, types.Int(30))
	idx.Add(2, types.Int(25))
	idx.Add(3, types.Int(40))
	idx.Add(4, types.Int(25))
	return idx
}

func TestTokenExactMatch(t *testing.T) {
	idx := buildAgeIndex()
	tok := &Token{Index: idx, Value: types.Int(25)}

	var got []types.EntityID
	it := tok.Iterator()
	for {
		id, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, id)
	}
	assert.ElementsMatch(t, []types.EntityID{2, 4}, got)
}

func TestNumericRangeExclusive(t *testing.T) {
	idx := buildAgeIndex()
	min := 25.0
	r := &NumericRange{Index: idx, Min: &min, IncludeMin: false}

	var got []types.EntityID
	it := r.Iterator()
	for {
		id, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, id)
	}
	assert.ElementsMatch(t, []types.EntityID{1, 3}, got, "exclusive min must drop the age=25 entries")
}

func TestNumericRangeInclusive(t *testing.T) {
	idx := buildAgeIndex()
	min := 25.0
	r := &NumericRange{Index: idx, Min: &min, IncludeMin: true}

	var got []types.EntityID
	it := r.Iterator()
	for {
		id, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, id)
	}
	assert.ElementsMatch(t, []types.EntityID{1, 2, 3, 4}, got)
}

func TestIntersectUnion(t *testing.T) {
	idx := buildAgeIndex()
	a := &Token{Index: idx, Value: types.Int(25)}
	min := 20.0
	max := 30.0
	b := &NumericRange{Index: idx, Min: &min, Max: &max, IncludeMin: true, IncludeMax: true}

	inter := &Intersect{Children: []Query{a, b}}
	var got []types.EntityID
	it := inter.Iterator()
	for {
		id, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, id)
	}
	assert.ElementsMatch(t, []types.EntityID{2, 4}, got)
}

func TestEmptyYieldsNothing(t *testing.T) {
	var e Empty
	_, ok := e.Iterator().Next()
	assert.False(t, ok)
}
