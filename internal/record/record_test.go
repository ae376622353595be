package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphercore/graphengine/internal/types"
)

func TestAddAndGet(t *testing.T) {
	r := New(2)
	r.AddNode(0, types.EntityID(7))
	r.AddScalar(1, types.Int(42))

	id, ok := r.GetNode(0)
	require.True(t, ok)
	assert.Equal(t, types.EntityID(7), id)

	assert.Equal(t, types.Int(42), r.GetScalar(1))
}

func TestMergeDoesNotOverwrite(t *testing.T) {
	dst := New(2)
	dst.AddNode(0, types.EntityID(1))

	src := New(2)
	src.AddNode(0, types.EntityID(99)) // would collide
	src.AddScalar(1, types.ConstString("hi"))

	dst.Merge(src)

	id, _ := dst.GetNode(0)
	assert.Equal(t, types.EntityID(1), id, "merge must not overwrite an already-written slot")
	assert.Equal(t, types.ConstString("hi"), dst.GetScalar(1))
}

func TestCloneIsIndependent(t *testing.T) {
	r := New(1)
	r.AddScalar(0, types.OwnedString("mutable"))

	clone := r.Clone()
	clone.AddScalar(0, types.OwnedString("changed"))

	assert.Equal(t, types.OwnedString("mutable"), r.GetScalar(0))
}

func TestExtendGrowsInPlace(t *testing.T) {
	r := New(1)
	r.AddScalar(0, types.Int(1))
	r.Extend(3)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, types.Int(1), r.GetScalar(0))
	assert.Equal(t, SlotEmpty, r.Kind(2))
}
