// Package qgraph builds the query graph (C1): a typed DAG of nodes and
// edges extracted from a MATCH clause, resolving repeated aliases to the
// same QGNode/QGEdge and resolving label/relationship-type names against
// the live graph schema.
package qgraph

import (
	"math"

	"github.com/cyphercore/graphengine/internal/ast"
	"github.com/cyphercore/graphengine/internal/engerr"
	"github.com/cyphercore/graphengine/internal/graph"
)

// QGNode is one pattern node: an alias, its declared labels (resolved
// against the schema where possible), and the edges touching it.
type QGNode struct {
	ID      int
	Alias   string
	Labels  []string
	LabelID graph.LabelID
	HasLabel bool

	Incoming []*QGEdge
	Outgoing []*QGEdge
}

// QGEdge is one pattern relationship: accepted types (resolved IDs where
// possible), endpoints, and hop bounds for variable-length edges.
type QGEdge struct {
	ID      int
	Alias   string
	Types   []string
	TypeIDs []graph.RelTypeID

	Src *QGNode
	Dst *QGNode

	Direction ast.Direction
	VarLength bool
	MinHops   int
	MaxHops   int // math.MaxInt for unbounded
}

// QueryGraph is one connected component extracted from a MATCH clause.
// A MATCH with disconnected patterns yields multiple QueryGraphs, joined
// later by CartesianProduct (spec.md §4.1).
type QueryGraph struct {
	Nodes []*QGNode
	Edges []*QGEdge
}

// Builder accumulates nodes/edges across one or more pattern paths,
// resolving repeated aliases to the same QGNode/QGEdge (spec.md §4.1).
type Builder struct {
	schema *graph.Schema

	byAlias    map[string]*QGNode
	edgeAlias  map[string]*QGEdge
	nextNodeID int
	nextEdgeID int
}

func NewBuilder(schema *graph.Schema) *Builder {
	return &Builder{
		schema:    schema,
		byAlias:   make(map[string]*QGNode),
		edgeAlias: make(map[string]*QGEdge),
	}
}

// Build consumes every PatternPath of a MATCH clause and returns one
// QueryGraph per connected component.
func (b *Builder) Build(paths []ast.PatternPath) ([]*QueryGraph, error) {
	for _, path := range paths {
		if err := b.addPath(path); err != nil {
			return nil, err
		}
	}
	return b.components(), nil
}

func (b *Builder) addPath(path ast.PatternPath) error {
	if len(path.Nodes) == 0 {
		return engerr.InvalidQuery("empty pattern path")
	}

	nodes := make([]*QGNode, len(path.Nodes))
	for i, np := range path.Nodes {
		n, err := b.resolveNode(np)
		if err != nil {
			return err
		}
		nodes[i] = n
	}

	for i, rp := range path.Rels {
		src, dst := nodes[i], nodes[i+1]
		if rp.Direction == ast.DirIncoming {
			src, dst = dst, src
		}
		if err := b.addEdge(rp, src, dst); err != nil {
			return err
		}
	}

	return nil
}

func (b *Builder) resolveNode(np ast.NodePattern) (*QGNode, error) {
	alias := np.Alias
	anonymous := alias == ""
	if anonymous {
		alias = b.anonAlias()
	}

	existing, ok := b.byAlias[alias]
	if !ok {
		n := &QGNode{ID: b.nextNodeID, Alias: alias, Labels: np.Labels}
		b.nextNodeID++
		if len(np.Labels) == 1 {
			if id, ok := b.schema.ResolveLabel(np.Labels[0]); ok {
				n.LabelID, n.HasLabel = id, true
			}
		}
		b.byAlias[alias] = n
		return n, nil
	}

	if !anonymous && !sameLabels(existing.Labels, np.Labels) && len(np.Labels) > 0 {
		return nil, engerr.InvalidQuery("alias %q bound to inconsistent labels", alias)
	}
	return existing, nil
}

func sameLabels(a, b []string) bool {
	if len(b) == 0 {
		return true // re-mention without labels is consistent
	}
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, l := range a {
		seen[l] = true
	}
	for _, l := range b {
		if !seen[l] {
			return false
		}
	}
	return true
}

func (b *Builder) addEdge(rp ast.RelPattern, src, dst *QGNode) error {
	alias := rp.Alias
	anonymous := alias == ""
	if anonymous {
		alias = b.anonEdgeAlias()
	}

	minHops, maxHops := 1, 1
	if rp.VarLength {
		minHops = rp.MinHops
		maxHops = rp.MaxHops
		if maxHops < 0 {
			maxHops = math.MaxInt
		}
		if minHops > maxHops {
			return engerr.InvalidQuery("variable-length edge has inverted bounds [%d,%d]", minHops, maxHops)
		}
	}

	e := &QGEdge{
		ID:        b.nextEdgeID,
		Alias:     alias,
		Types:     rp.Types,
		Src:       src,
		Dst:       dst,
		Direction: rp.Direction,
		VarLength: rp.VarLength,
		MinHops:   minHops,
		MaxHops:   maxHops,
	}
	b.nextEdgeID++

	for _, t := range rp.Types {
		if id, ok := b.schema.ResolveRelType(t); ok {
			e.TypeIDs = append(e.TypeIDs, id)
		}
	}

	if !anonymous {
		if existing, ok := b.edgeAlias[alias]; ok {
			e = existing
		} else {
			b.edgeAlias[alias] = e
		}
	}

	src.Outgoing = append(src.Outgoing, e)
	dst.Incoming = append(dst.Incoming, e)
	return nil
}

var anonCounter int

func (b *Builder) anonAlias() string {
	anonCounter++
	return "_anon_node_" + itoa(anonCounter)
}

func (b *Builder) anonEdgeAlias() string {
	anonCounter++
	return "_anon_edge_" + itoa(anonCounter)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// components splits the builder's accumulated nodes/edges into connected
// components via union-find over aliases, so disconnected MATCH patterns
// produce separate QueryGraphs (spec.md §4.1).
func (b *Builder) components() []*QueryGraph {
	parent := make(map[*QGNode]*QGNode)
	var find func(*QGNode) *QGNode
	find = func(n *QGNode) *QGNode {
		p, ok := parent[n]
		if !ok || p == n {
			parent[n] = n
			return n
		}
		root := find(p)
		parent[n] = root
		return root
	}
	union := func(a, bb *QGNode) {
		ra, rb := find(a), find(bb)
		if ra != rb {
			parent[ra] = rb
		}
	}

	// Anonymous edges are not in edgeAlias, so gather every edge from the
	// nodes' Outgoing lists (a repeated named edge appears more than once).
	var edges []*QGEdge
	seenEdge := make(map[*QGEdge]bool)
	for _, n := range b.byAlias {
		find(n)
		for _, e := range n.Outgoing {
			if !seenEdge[e] {
				seenEdge[e] = true
				edges = append(edges, e)
			}
		}
	}
	for _, e := range edges {
		union(e.Src, e.Dst)
	}

	groups := make(map[*QGNode]*QueryGraph)
	for _, n := range b.byAlias {
		root := find(n)
		qg, ok := groups[root]
		if !ok {
			qg = &QueryGraph{}
			groups[root] = qg
		}
		qg.Nodes = append(qg.Nodes, n)
	}
	for _, e := range edges {
		root := find(e.Src)
		groups[root].Edges = append(groups[root].Edges, e)
	}

	out := make([]*QueryGraph, 0, len(groups))
	for _, qg := range groups {
		out = append(out, qg)
	}
	return out
}
