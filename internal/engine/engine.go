// Package engine dispatches the GRAPH.QUERY/EXPLAIN/DELETE/PROFILE
// command surface (spec.md §6) over a set of named in-memory graphs,
// enforcing the reader/writer lock discipline and bounded worker pool
// spec.md §5 describes. It generalizes the teacher's
// InferenceEngine.Execute(ctx, query) dispatch — here the "query" is a
// parsed Cypher-subset AST compiled to an internal/plan.Plan rather than
// the teacher's handful of typed query structs.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/cyphercore/graphengine/internal/ast"
	"github.com/cyphercore/graphengine/internal/config"
	"github.com/cyphercore/graphengine/internal/dsl"
	"github.com/cyphercore/graphengine/internal/engerr"
	"github.com/cyphercore/graphengine/internal/engine/metrics"
	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/obslog"
	"github.com/cyphercore/graphengine/internal/plan"
	"github.com/cyphercore/graphengine/internal/procs"
	"github.com/cyphercore/graphengine/internal/record"
	"github.com/cyphercore/graphengine/internal/types"
)

// namedGraph pairs one graph with the reader/writer lock guarding it.
// Every command this engine runs against a graph — even GRAPH.EXPLAIN,
// which never executes a plan — takes at least the shared lock, so a
// query never observes a graph mid-replacement from LoadGraph/
// DeleteGraph (spec.md §5's "matrix mutation only happens under the
// exclusive lock" generalized to any out-of-band graph swap).
type namedGraph struct {
	mu sync.RWMutex
	g  *graph.PropertyGraph
}

// Engine owns the named-graph registry and the bounded worker pool
// dispatching queries onto it (spec.md §5's THREAD_COUNT knob).
type Engine struct {
	cfg     *config.Config
	sem     *semaphore.Weighted
	Metrics *metrics.Collector

	mu     sync.Mutex
	graphs map[string]*namedGraph
}

// New builds an Engine from cfg (internal/config.Load's result); a nil
// cfg loads defaults with no file or environment overlay.
func New(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg, _ = config.Load("")
	}
	threads := cfg.ThreadCount
	if threads < 1 {
		threads = 1
	}
	return &Engine{
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(threads)),
		Metrics: metrics.NewCollector("graphengine"),
		graphs:  make(map[string]*namedGraph),
	}
}

// CreateGraph registers a new empty graph under name, returning it for
// programmatic population (bulk load, internal/serialization.Load) —
// this engine's Cypher surface is read-only, so graph construction
// always happens out of band, mirroring how the teacher's cmd/cli
// builds a graph via `new`/`load` before ever issuing a query against
// it.
func (e *Engine) CreateGraph(name string) *graph.PropertyGraph {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := graph.New()
	e.graphs[name] = &namedGraph{g: g}
	return g
}

// LoadGraph registers an already-built graph (e.g. from
// internal/serialization.Load) under name, replacing any existing graph
// of that name.
func (e *Engine) LoadGraph(name string, g *graph.PropertyGraph) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graphs[name] = &namedGraph{g: g}
}

// Graph returns the live graph registered under name, for callers that
// need direct access (tests, bulk-load commands).
func (e *Engine) Graph(name string) (*graph.PropertyGraph, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ng, ok := e.graphs[name]
	if !ok {
		return nil, false
	}
	return ng.g, true
}

func (e *Engine) lookup(name string) (*namedGraph, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ng, ok := e.graphs[name]
	if !ok {
		return nil, engerr.InvalidQuery("no such graph %q", name)
	}
	return ng, nil
}

// DeleteGraph drops a graph (GRAPH.DELETE), taking its exclusive lock
// first so no in-flight query is reading it when it disappears from the
// registry.
func (e *Engine) DeleteGraph(name string) error {
	e.mu.Lock()
	ng, ok := e.graphs[name]
	if !ok {
		e.mu.Unlock()
		return engerr.InvalidQuery("no such graph %q", name)
	}
	delete(e.graphs, name)
	e.mu.Unlock()

	ng.mu.Lock()
	defer ng.mu.Unlock()
	return nil
}

// QueryResult is GRAPH.QUERY's reply: header, rows, and stats, per
// spec.md §6's three-part array reply.
type QueryResult struct {
	QueryID string
	Columns []string
	Rows    [][]any
	Stats   Stats
}

// Stats is the statistics element of a GRAPH.QUERY/PROFILE reply.
type Stats struct {
	RowsReturned int
	Elapsed      time.Duration
}

// ProfileResult is GRAPH.PROFILE's reply: per-operator timings taken
// with the NOP formatter (spec.md §6), so row values are never rendered.
type ProfileResult struct {
	QueryID   string
	Operators []plan.OperatorStat
	Elapsed   time.Duration
}

// Query runs cypher against the named graph and renders its rows with
// formatter (GRAPH.QUERY). params binds `$name` parameters referenced by
// the query.
func (e *Engine) Query(ctx context.Context, graphName, cypher string, params map[string]types.SIValue, formatter Formatter) (*QueryResult, error) {
	queryID := uuid.NewString()
	start := time.Now()
	log := obslog.Query(queryID, graphName)

	p, g, rows, err := e.buildAndDrain(ctx, graphName, cypher, params)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		log.WithError(err).Warn("query failed")
	}
	e.Metrics.QueriesTotal.WithLabelValues("GRAPH.QUERY", outcome).Inc()
	e.Metrics.QueryDuration.WithLabelValues("GRAPH.QUERY", graphName).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	rendered := renderRows(g, p, rows, formatter)
	return &QueryResult{
		QueryID: queryID,
		Columns: p.Columns,
		Rows:    rendered,
		Stats:   Stats{RowsReturned: len(rendered), Elapsed: time.Since(start)},
	}, nil
}

// Explain parses and plans cypher against the named graph, returning the
// operator tree as an indented string (GRAPH.EXPLAIN). The plan is never
// pulled, so no rows are produced; a CALL clause's procedure is invoked
// while the plan is built, so its side effects (e.g. createNodeIndex)
// take place. A write query takes the graph's exclusive lock, as in Query.
func (e *Engine) Explain(ctx context.Context, graphName, cypher string, params map[string]types.SIValue) (string, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer e.sem.Release(1)

	q, err := dsl.Parse(cypher)
	if err != nil {
		return "", err
	}
	ng, err := e.lookup(graphName)
	if err != nil {
		return "", err
	}
	unlock := lockFor(ng, isWriteQuery(q))
	defer unlock()

	p, err := plan.NewBuilder(ng.g, params).Build(q)
	if err != nil {
		return "", err
	}
	return explainString(p.Root, 0), nil
}

// Profile runs cypher against the named graph with the NOP formatter,
// returning per-operator call counts and cumulative durations
// (GRAPH.PROFILE).
func (e *Engine) Profile(ctx context.Context, graphName, cypher string, params map[string]types.SIValue) (*ProfileResult, error) {
	queryID := uuid.NewString()
	start := time.Now()
	log := obslog.Query(queryID, graphName)

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	q, err := dsl.Parse(cypher)
	if err != nil {
		return nil, err
	}
	ng, err := e.lookup(graphName)
	if err != nil {
		return nil, err
	}

	unlock := lockFor(ng, isWriteQuery(q))
	defer unlock()

	p, err := plan.NewBuilder(ng.g, params).Build(q)
	if err != nil {
		return nil, err
	}

	wrapped, stats := plan.Profile(p.Root)
	if err := drainDiscard(ctx, wrapped); err != nil {
		log.WithError(err).Warn("profile run failed")
		return nil, err
	}

	ops := stats()
	for _, s := range ops {
		e.Metrics.OperatorDuration.WithLabelValues(s.Name, graphName).Observe(s.Duration.Seconds())
	}
	e.Metrics.QueryDuration.WithLabelValues("GRAPH.PROFILE", graphName).Observe(time.Since(start).Seconds())
	return &ProfileResult{QueryID: queryID, Operators: ops, Elapsed: time.Since(start)}, nil
}

// lockFor takes ng's exclusive lock for a write query or its shared lock
// for a read-only one, returning the matching unlock func.
func lockFor(ng *namedGraph, write bool) func() {
	if write {
		ng.mu.Lock()
		return ng.mu.Unlock
	}
	ng.mu.RLock()
	return ng.mu.RUnlock
}

// buildAndDrain is GRAPH.QUERY's shared body: acquire a worker-pool
// slot, parse, lock appropriately for the clause mix, plan, and drain
// into raw rows. Rendering happens after the lock and semaphore slot are
// both released, since formatting only reads entities already visited
// while draining — the graph's node/edge storage is never mutated once
// built, so releasing the lock before rendering is safe.
func (e *Engine) buildAndDrain(ctx context.Context, graphName, cypher string, params map[string]types.SIValue) (*plan.Plan, *graph.PropertyGraph, []*record.Record, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, nil, err
	}
	defer e.sem.Release(1)

	q, err := dsl.Parse(cypher)
	if err != nil {
		return nil, nil, nil, err
	}
	ng, err := e.lookup(graphName)
	if err != nil {
		return nil, nil, nil, err
	}

	unlock := lockFor(ng, isWriteQuery(q))
	defer unlock()

	p, err := plan.NewBuilder(ng.g, params).Build(q)
	if err != nil {
		return nil, nil, nil, err
	}

	rows, err := drainRows(ctx, p.Root, e.cfg.ResultSetSize)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, ng.g, rows, nil
}

// isWriteQuery reports whether q needs the exclusive lock: a write
// clause (always rejected by plan.Build, but still needs the exclusive
// lock held while that rejection happens so a concurrent reader never
// observes a torn mutation attempt) or a CALL to a procedure
// internal/procs marks as a write.
func isWriteQuery(q *ast.Query) bool {
	for _, c := range q.Clauses {
		switch n := c.(type) {
		case *ast.WriteClause:
			return true
		case *ast.CallClause:
			if p, ok := procs.Lookup(n.Name); ok && p.Write {
				return true
			}
		}
	}
	return false
}
