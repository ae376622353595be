package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectorRegistersMetrics(t *testing.T) {
	c := NewCollector("graphengine_test")
	require.NotNil(t, c.Registry())

	// A freshly registered HistogramVec/CounterVec reports no metric
	// families until a label combination has been observed at least
	// once, so Gather succeeding with no error is what's load-bearing
	// here, not the family count.
	_, err := c.Registry().Gather()
	require.NoError(t, err)
}

func TestNewCollectorRepeatedConstructionDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector("graphengine_test")
		NewCollector("graphengine_test")
	})
}

func TestCollectorObserve(t *testing.T) {
	c := NewCollector("graphengine_observe")
	c.QueryDuration.WithLabelValues("GRAPH.QUERY", "g1").Observe(0.01)
	c.QueriesTotal.WithLabelValues("GRAPH.QUERY", "ok").Inc()
	c.OperatorDuration.WithLabelValues("Filter", "g1").Observe(0.001)

	mfs, err := c.Registry().Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 3)
}
