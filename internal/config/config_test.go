package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.ThreadCount)
	assert.Equal(t, -1, cfg.ResultSetSize)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("THREAD_COUNT", "16")
	t.Setenv("RESULTSET_SIZE", "1000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.ThreadCount)
	assert.Equal(t, 1000, cfg.ResultSetSize)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, defaults().CacheSize, cfg.CacheSize)
}
