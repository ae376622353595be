// Package graphengine is the library entry point: a thin façade over
// internal/engine.Engine that a CLI or server embeds directly. It
// generalizes the teacher's top-level PGraph type — one graph, one
// DSL parser — to the multi-graph engine spec.md §6's command surface
// requires, while keeping the same New/Load/LoadFile/Query/Save/
// SaveFile shape callers already know.
package graphengine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cyphercore/graphengine/internal/config"
	"github.com/cyphercore/graphengine/internal/engine"
	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/serialization"
	"github.com/cyphercore/graphengine/internal/types"
)

type (
	QueryResult   = engine.QueryResult
	ProfileResult = engine.ProfileResult
	Formatter     = engine.Formatter
)

const (
	FormatterNOP     = engine.FormatterNOP
	FormatterVerbose = engine.FormatterVerbose
	FormatterCompact = engine.FormatterCompact
)

// Engine wraps internal/engine.Engine, the library's single entry
// point for every command spec.md §6 names.
type Engine struct {
	e *engine.Engine
}

// New builds an Engine from an optional config file path; an empty
// path loads defaults overlaid with environment variables
// (internal/config.Load).
func New(configPath string) (*Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &Engine{e: engine.New(cfg)}, nil
}

// CreateGraph registers a new empty graph under name.
func (g *Engine) CreateGraph(name string) *graph.PropertyGraph {
	return g.e.CreateGraph(name)
}

// Graph returns the graph registered under name, if any.
func (g *Engine) Graph(name string) (*graph.PropertyGraph, bool) {
	return g.e.Graph(name)
}

// DeleteGraph drops the named graph (GRAPH.DELETE).
func (g *Engine) DeleteGraph(name string) error {
	return g.e.DeleteGraph(name)
}

// Load registers a graph read from r's persisted form under name.
func (g *Engine) Load(name string, r io.Reader) error {
	pg, err := serialization.Read(r)
	if err != nil {
		return err
	}
	g.e.LoadGraph(name, pg)
	return nil
}

// LoadFile registers a graph read from the file at path under name.
func (g *Engine) LoadFile(name, path string) error {
	pg, err := serialization.Load(path)
	if err != nil {
		return err
	}
	g.e.LoadGraph(name, pg)
	return nil
}

// Save writes the named graph's persisted form to w.
func (g *Engine) Save(name string, w io.Writer) error {
	pg, ok := g.e.Graph(name)
	if !ok {
		return fmt.Errorf("no such graph %q", name)
	}
	return serialization.Write(pg, w)
}

// SaveFile writes the named graph's persisted form to the file at path.
func (g *Engine) SaveFile(name, path string) error {
	pg, ok := g.e.Graph(name)
	if !ok {
		return fmt.Errorf("no such graph %q", name)
	}
	return serialization.Save(pg, path)
}

// Query runs cypher against the named graph (GRAPH.QUERY).
func (g *Engine) Query(ctx context.Context, graphName, cypher string, params map[string]types.SIValue, formatter Formatter) (*QueryResult, error) {
	return g.e.Query(ctx, graphName, cypher, params, formatter)
}

// Explain plans cypher against the named graph and returns the operator
// tree without pulling any rows (GRAPH.EXPLAIN); a CALL clause's
// procedure is still invoked while the plan is built.
func (g *Engine) Explain(ctx context.Context, graphName, cypher string, params map[string]types.SIValue) (string, error) {
	return g.e.Explain(ctx, graphName, cypher, params)
}

// Profile runs cypher against the named graph with per-operator timing
// (GRAPH.PROFILE).
func (g *Engine) Profile(ctx context.Context, graphName, cypher string, params map[string]types.SIValue) (*ProfileResult, error) {
	return g.e.Profile(ctx, graphName, cypher, params)
}

// jsonQueryResult is QueryResult's wire form for a server/CLI that
// wants a single JSON reply rather than the engine's native result
// struct — mirroring the teacher's MarshalResultJSON tagged envelope,
// generalized to a [columns, rows, stats] shape instead of the
// teacher's [kind, data] shape since GRAPH.QUERY has no result "kind"
// to discriminate on.
type jsonQueryResult struct {
	QueryID string   `json:"query_id"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Stats   struct {
		RowsReturned int   `json:"rows_returned"`
		ElapsedMS    int64 `json:"elapsed_ms"`
	} `json:"stats"`
}

// MarshalResultJSON renders a QueryResult as the JSON reply shape a
// server handler writes back to a client.
func MarshalResultJSON(r *QueryResult) ([]byte, error) {
	jr := jsonQueryResult{
		QueryID: r.QueryID,
		Columns: r.Columns,
		Rows:    r.Rows,
	}
	jr.Stats.RowsReturned = r.Stats.RowsReturned
	jr.Stats.ElapsedMS = r.Stats.Elapsed.Milliseconds()
	return json.Marshal(jr)
}
