// Package config loads the engine's environment-tunable knobs from an
// optional YAML file with environment-variable overrides taking
// precedence, grounded on 2lar-b2's internal/config.Loader (YAML base +
// env-var overlay, highest priority wins).
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the environment keys spec.md §6 names.
type Config struct {
	// ThreadCount sizes the bounded worker pool dispatching queries
	// (spec.md §5).
	ThreadCount int `yaml:"thread_count"`
	// CacheSize is the CACHE_SIZE knob (spec.md §6); it is loaded and
	// overridable but no component of this engine reads it.
	CacheSize int `yaml:"cache_size"`
	// OMPThreadCount is forwarded to the matrix kernel's internal
	// parallelism (spec.md §6); this reference backend does not thread
	// its matrix ops, so the knob is accepted but unused.
	OMPThreadCount int `yaml:"omp_thread_count"`
	// ResultSetSize caps the number of rows a query returns, -1 =
	// unbounded.
	ResultSetSize int `yaml:"resultset_size"`
	// LogLevel is an ambient addition (not named by spec.md) wiring
	// internal/obslog's verbosity.
	LogLevel string `yaml:"log_level"`
}

func defaults() *Config {
	return &Config{
		ThreadCount:    4,
		CacheSize:      100,
		OMPThreadCount: 1,
		ResultSetSize:  -1,
		LogLevel:       "info",
	}
}

// Load reads path (if it exists) as YAML over the defaults, then applies
// THREAD_COUNT / CACHE_SIZE / OMP_THREAD_COUNT / RESULTSET_SIZE
// environment variables as the final, highest-priority overlay. An empty
// path skips the file and loads defaults + environment only.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else {
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := envInt("THREAD_COUNT"); ok {
		cfg.ThreadCount = v
	}
	if v, ok := envInt("CACHE_SIZE"); ok {
		cfg.CacheSize = v
	}
	if v, ok := envInt("OMP_THREAD_COUNT"); ok {
		cfg.OMPThreadCount = v
	}
	if v, ok := envInt("RESULTSET_SIZE"); ok {
		cfg.ResultSetSize = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
