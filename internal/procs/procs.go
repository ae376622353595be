// Package procs implements the handful of schema/index procedures
// spec.md §6 names, invoked from Cypher via `CALL <name>(args) YIELD
// <cols>`: db.idx.fulltext.createNodeIndex/queryNodes and the three
// schema-enumeration procedures db.labels/propertyKeys/relationshipTypes.
package procs

import (
	"strings"

	"github.com/cyphercore/graphengine/internal/engerr"
	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/types"
)

// Proc is one registered procedure: its YIELD-able column names (in
// default order, used when the CALL omits an explicit YIELD) and the
// function that runs it against the live graph.
type Proc struct {
	Name    string
	Columns []string
	Call    func(g *graph.PropertyGraph, args []types.SIValue) ([][]types.SIValue, error)
	// Write marks a procedure that mutates graph/schema state (only
	// db.idx.fulltext.createNodeIndex today) — internal/engine consults
	// this to decide whether a CALL needs the exclusive graph lock.
	Write bool
}

var registry = map[string]*Proc{}

func register(p *Proc) { registry[p.Name] = p }

// Lookup resolves a procedure by its dotted name.
func Lookup(name string) (*Proc, bool) {
	p, ok := registry[name]
	return p, ok
}

func init() {
	register(&Proc{
		Name:    "db.idx.fulltext.createNodeIndex",
		Columns: nil,
		Call:    createNodeIndex,
		Write:   true,
	})
	register(&Proc{
		Name:    "db.idx.fulltext.queryNodes",
		Columns: []string{"node"},
		Call:    queryNodes,
	})
	register(&Proc{
		Name:    "db.labels",
		Columns: []string{"label"},
		Call:    dbLabels,
	})
	register(&Proc{
		Name:    "db.propertyKeys",
		Columns: []string{"propertyKey"},
		Call:    dbPropertyKeys,
	})
	register(&Proc{
		Name:    "db.relationshipTypes",
		Columns: []string{"relationshipType"},
		Call:    dbRelationshipTypes,
	})
}

// createNodeIndex gives each named attribute of label that has no index
// yet a new one, backfilled from the label's current nodes; an attribute
// that is already indexed keeps its existing index (kept current by
// AddNode/RemoveNode) and is not rebuilt, so repeated calls with the
// same (label, attribute) pair are no-ops. Yields no rows:
// spec.md §6 calls this idempotent and side-effecting, not
// result-producing.
func createNodeIndex(g *graph.PropertyGraph, args []types.SIValue) ([][]types.SIValue, error) {
	if len(args) < 2 {
		return nil, engerr.InvalidQuery("db.idx.fulltext.createNodeIndex requires a label and at least one attribute")
	}
	if args[0].Kind != types.KindString {
		return nil, engerr.TypeMismatch("string", args[0].Kind.String())
	}
	label := g.Schema().GetOrCreateLabel(args[0].S)
	for _, a := range args[1:] {
		if a.Kind != types.KindString {
			return nil, engerr.TypeMismatch("string", a.Kind.String())
		}
		g.CreateNodeIndex(label, a.S)
	}
	return nil, nil
}

// queryNodes is a simplified full-text search: since the engine's
// secondary index (internal/index) is an ordered value index rather
// than a tokenized inverted index, "matching" a free-text query means
// the query string appears as a substring of one of the string property
// values of a node carrying the label (case-insensitive), whether or not
// that property is indexed. A real RedisGraph-style
// tokenizer/scorer is out of scope (see DESIGN.md).
func queryNodes(g *graph.PropertyGraph, args []types.SIValue) ([][]types.SIValue, error) {
	if len(args) != 2 || args[0].Kind != types.KindString || args[1].Kind != types.KindString {
		return nil, engerr.InvalidQuery("db.idx.fulltext.queryNodes(label, query) expects two strings")
	}
	label, ok := g.Schema().ResolveLabel(args[0].S)
	if !ok {
		return nil, nil
	}
	needle := strings.ToLower(args[1].S)

	seen := map[types.EntityID]bool{}
	var rows [][]types.SIValue
	for _, n := range g.NodesByLabel(label) {
		for _, v := range n.Props {
			if v.Kind == types.KindString && strings.Contains(strings.ToLower(v.S), needle) {
				if !seen[n.ID] {
					seen[n.ID] = true
					rows = append(rows, []types.SIValue{types.NodeRef(n.ID)})
				}
				break
			}
		}
	}
	return rows, nil
}

func dbLabels(g *graph.PropertyGraph, _ []types.SIValue) ([][]types.SIValue, error) {
	rows := make([][]types.SIValue, 0, len(g.Schema().Labels()))
	for _, name := range g.Schema().Labels() {
		rows = append(rows, []types.SIValue{types.ConstString(name)})
	}
	return rows, nil
}

func dbRelationshipTypes(g *graph.PropertyGraph, _ []types.SIValue) ([][]types.SIValue, error) {
	rows := make([][]types.SIValue, 0, len(g.Schema().RelTypes()))
	for _, name := range g.Schema().RelTypes() {
		rows = append(rows, []types.SIValue{types.ConstString(name)})
	}
	return rows, nil
}

// dbPropertyKeys enumerates distinct property-key names currently in
// use across every node and edge. The schema keeps a dictionary for
// labels and relationship types (dense IDs the adjacency matrices index
// by) but deliberately not for property keys, which never need a dense
// ID — so this scans live attribute maps rather than a registry.
func dbPropertyKeys(g *graph.PropertyGraph, _ []types.SIValue) ([][]types.SIValue, error) {
	seen := map[string]bool{}
	var keys []string
	collect := func(props map[string]types.SIValue) {
		for k := range props {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	for _, n := range g.GetNodes() {
		collect(n.Props)
	}
	for _, e := range g.GetEdges() {
		collect(e.Props)
	}
	rows := make([][]types.SIValue, len(keys))
	for i, k := range keys {
		rows[i] = []types.SIValue{types.ConstString(k)}
	}
	return rows, nil
}
