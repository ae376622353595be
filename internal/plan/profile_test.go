package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphercore/graphengine/internal/record"
	"github.com/cyphercore/graphengine/internal/types"
)

func TestProfileWrapsAndCountsCalls(t *testing.T) {
	src := newSliceSource(
		recordWithScalar(types.ConstString("a")),
		recordWithScalar(types.ConstString("b")),
	)
	limit := NewLimit(src, 10)

	wrapped, stats := Profile(limit)
	for {
		r, err := wrapped.Consume()
		require.NoError(t, err)
		if r == nil {
			break
		}
	}

	got := stats()
	require.Len(t, got, 2)

	names := map[string]int{}
	for _, s := range got {
		names[s.Name] = s.Calls
		assert.GreaterOrEqual(t, s.Duration.Nanoseconds(), int64(0))
	}
	// Limit pulls one extra record from its child to discover
	// end-of-stream, so the source sees one more Consume() call than
	// rows it actually held.
	assert.Equal(t, 3, names[src.String()])
	assert.Equal(t, 3, names[limit.String()])
}

func recordWithScalar(v types.SIValue) *record.Record {
	r := record.New(1)
	r.AddScalar(0, v)
	return r
}
