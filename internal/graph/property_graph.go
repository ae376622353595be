package graph

import (
	"maps"
	"slices"

	"github.com/cyphercore/graphengine/internal/index"
	"github.com/cyphercore/graphengine/internal/matrix"
	"github.com/cyphercore/graphengine/internal/types"
)

// PropertyGraph is the in-memory labeled property graph: nodes and
// directed edges plus, for every label and relationship type in use, the
// diagonal/adjacency boolean matrix the algebraic expression tree (C2)
// multiplies against. Structurally this generalizes the teacher's
// adjacency-list graph (out/in maps keyed by neighbor) to a labeled
// multigraph keyed by edge ID, since a MATCH pattern can traverse any of
// several relationship types between the same pair of nodes.
type PropertyGraph struct {
	schema *Schema

	nodeAlloc idAllocator
	edgeAlloc idAllocator

	nodeMap map[types.EntityID]*Node
	edgeMap map[types.EntityID]*Edge

	out map[types.EntityID][]types.EntityID // node -> outgoing edge IDs
	in  map[types.EntityID][]types.EntityID // node -> incoming edge IDs

	labelDiag map[LabelID]*matrix.Bool
	relAdj    map[RelTypeID]*matrix.Bool

	indexes map[indexKey]*index.PropertyIndex
}

func New() *PropertyGraph {
	return &PropertyGraph{
		schema:    NewSchema(),
		nodeMap:   make(map[types.EntityID]*Node),
		edgeMap:   make(map[types.EntityID]*Edge),
		out:       make(map[types.EntityID][]types.EntityID),
		in:        make(map[types.EntityID][]types.EntityID),
		labelDiag: make(map[LabelID]*matrix.Bool),
		relAdj:    make(map[RelTypeID]*matrix.Bool),
		indexes:   make(map[indexKey]*index.PropertyIndex),
	}
}

func (g *PropertyGraph) Schema() *Schema { return g.schema }

// AddNode creates a node with the given labels (resolved/registered
// against the schema) and attribute map, returning its new EntityID.
func (g *PropertyGraph) AddNode(labelNames []string, props map[string]types.SIValue) *Node {
	id := g.nodeAlloc.alloc()
	labels := make([]LabelID, len(labelNames))
	for i, name := range labelNames {
		labels[i] = g.schema.GetOrCreateLabel(name)
	}

	n := &Node{ID: id, Labels: labels, Props: maps.Clone(props)}
	g.nodeMap[id] = n

	for _, l := range labels {
		g.labelMatrix(l).Set(id, id)
	}
	g.indexNode(n)

	return n
}

// RestoreNode inserts a node at a caller-specified id, re-registering its
// labels against the schema and rebuilding the label diagonal matrix and
// any matching secondary index. internal/serialization uses this to
// round-trip a persisted graph's dense node array (spec.md §6) without
// reassigning ids through the normal AddNode allocator.
func (g *PropertyGraph) RestoreNode(id types.EntityID, labelNames []string, props map[string]types.SIValue) *Node {
	labels := make([]LabelID, len(labelNames))
	for i, name := range labelNames {
		labels[i] = g.schema.GetOrCreateLabel(name)
	}

	n := &Node{ID: id, Labels: labels, Props: maps.Clone(props)}
	g.nodeMap[id] = n

	for _, l := range labels {
		g.labelMatrix(l).Set(id, id)
	}
	g.indexNode(n)
	g.nodeAlloc.reserve(id)

	return n
}

// RestoreEdge inserts an edge at a caller-specified id between two
// already-restored nodes, the edge-array counterpart to RestoreNode.
func (g *PropertyGraph) RestoreEdge(id, from, to types.EntityID, relTypeName string, props map[string]types.SIValue) *Edge {
	relType := g.schema.GetOrCreateRelType(relTypeName)
	e := &Edge{ID: id, From: from, To: to, Type: relType, Props: maps.Clone(props)}
	g.edgeMap[id] = e
	g.out[from] = append(g.out[from], id)
	g.in[to] = append(g.in[to], id)
	g.relMatrix(relType).Set(from, to)
	g.edgeAlloc.reserve(id)
	return e
}

// IndexDescriptor names one secondary index by label and property, for
// enumerating the live index set (internal/serialization's persisted
// index list).
type IndexDescriptor struct {
	Label    LabelID
	Property string
}

// IndexDescriptors lists every secondary index currently registered.
func (g *PropertyGraph) IndexDescriptors() []IndexDescriptor {
	out := make([]IndexDescriptor, 0, len(g.indexes))
	for key := range g.indexes {
		out = append(out, IndexDescriptor{Label: key.label, Property: key.prop})
	}
	return out
}

func (g *PropertyGraph) labelMatrix(l LabelID) *matrix.Bool {
	m, ok := g.labelDiag[l]
	if !ok {
		m = matrix.New()
		g.labelDiag[l] = m
	}
	return m
}

func (g *PropertyGraph) relMatrix(t RelTypeID) *matrix.Bool {
	m, ok := g.relAdj[t]
	if !ok {
		m = matrix.New()
		g.relAdj[t] = m
	}
	return m
}

func (g *PropertyGraph) ContainsNode(id types.EntityID) bool {
	_, ok := g.nodeMap[id]
	return ok
}

func (g *PropertyGraph) GetNode(id types.EntityID) (*Node, error) {
	n, ok := g.nodeMap[id]
	if !ok {
		return nil, NodeDoesNotExist(id)
	}
	return n, nil
}

func (g *PropertyGraph) GetNodes() []*Node {
	return slices.Collect(maps.Values(g.nodeMap))
}

// NodesByLabel returns the nodes carrying label l, in ascending ID order
// (spec.md §8: "NodeByLabelScan(L) emits exactly the nodes in {i :
// L[i,i]=1} in ascending i").
func (g *PropertyGraph) NodesByLabel(l LabelID) []*Node {
	m, ok := g.labelDiag[l]
	if !ok {
		return nil
	}
	ids := m.DiagonalEntries()
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.nodeMap[id])
	}
	return out
}

func (g *PropertyGraph) RemoveNode(id types.EntityID) error {
	n, ok := g.nodeMap[id]
	if !ok {
		return NodeDoesNotExist(id)
	}

	for _, eid := range append([]types.EntityID(nil), g.out[id]...) {
		_ = g.RemoveEdge(eid)
	}
	for _, eid := range append([]types.EntityID(nil), g.in[id]...) {
		_ = g.RemoveEdge(eid)
	}

	for _, l := range n.Labels {
		g.labelMatrix(l).Clear(id, id)
	}
	g.unindexNode(n)

	delete(g.nodeMap, id)
	delete(g.out, id)
	delete(g.in, id)
	g.nodeAlloc.release(id)
	return nil
}

// AddEdge creates a directed edge of the given relationship type between
// two existing nodes.
func (g *PropertyGraph) AddEdge(from, to types.EntityID, relTypeName string, props map[string]types.SIValue) (*Edge, error) {
	if !g.ContainsNode(from) {
		return nil, NodeDoesNotExist(from)
	}
	if !g.ContainsNode(to) {
		return nil, NodeDoesNotExist(to)
	}

	relType := g.schema.GetOrCreateRelType(relTypeName)
	id := g.edgeAlloc.alloc()
	e := &Edge{ID: id, From: from, To: to, Type: relType, Props: maps.Clone(props)}
	g.edgeMap[id] = e
	g.out[from] = append(g.out[from], id)
	g.in[to] = append(g.in[to], id)
	g.relMatrix(relType).Set(from, to)

	return e, nil
}

func (g *PropertyGraph) GetEdge(id types.EntityID) (*Edge, error) {
	e, ok := g.edgeMap[id]
	if !ok {
		return nil, EdgeDoesNotExist(id)
	}
	return e, nil
}

func (g *PropertyGraph) GetEdges() []*Edge {
	return slices.Collect(maps.Values(g.edgeMap))
}

func (g *PropertyGraph) RemoveEdge(id types.EntityID) error {
	e, ok := g.edgeMap[id]
	if !ok {
		return EdgeDoesNotExist(id)
	}

	g.out[e.From] = removeID(g.out[e.From], id)
	g.in[e.To] = removeID(g.in[e.To], id)

	// Only clear the adjacency bit if no other edge of the same type
	// still connects From->To (multigraph semantics).
	stillConnected := false
	for _, oid := range g.out[e.From] {
		other := g.edgeMap[oid]
		if other.To == e.To && other.Type == e.Type {
			stillConnected = true
			break
		}
	}
	if !stillConnected {
		g.relMatrix(e.Type).Clear(e.From, e.To)
	}

	delete(g.edgeMap, id)
	g.edgeAlloc.release(id)
	return nil
}

func removeID(ids []types.EntityID, target types.EntityID) []types.EntityID {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func (g *PropertyGraph) OutgoingEdges(id types.EntityID) ([]*Edge, error) {
	if !g.ContainsNode(id) {
		return nil, NodeDoesNotExist(id)
	}
	ids := g.out[id]
	out := make([]*Edge, 0, len(ids))
	for _, eid := range ids {
		out = append(out, g.edgeMap[eid])
	}
	return out, nil
}

func (g *PropertyGraph) IncomingEdges(id types.EntityID) ([]*Edge, error) {
	if !g.ContainsNode(id) {
		return nil, NodeDoesNotExist(id)
	}
	ids := g.in[id]
	out := make([]*Edge, 0, len(ids))
	for _, eid := range ids {
		out = append(out, g.edgeMap[eid])
	}
	return out, nil
}

// AdjacencyMatrix returns the sparse boolean matrix A_T for relationship
// type t — the operand the algebraic expression tree multiplies against.
func (g *PropertyGraph) AdjacencyMatrix(t RelTypeID) *matrix.Bool {
	return g.relMatrix(t)
}

// LabelDiagonal returns the diagonal label matrix L_L for label l.
func (g *PropertyGraph) LabelDiagonal(l LabelID) *matrix.Bool {
	return g.labelMatrix(l)
}

// Clone deep-copies the graph, including matrices, for a read query to
// run against a stable snapshot independent from concurrent writers
// (spec.md §5).
func (g *PropertyGraph) Clone() *PropertyGraph {
	clone := New()
	clone.schema = g.schema // schema is append-only and shared across snapshots
	clone.nodeAlloc = g.nodeAlloc.clone()
	clone.edgeAlloc = g.edgeAlloc.clone()

	for id, n := range g.nodeMap {
		clone.nodeMap[id] = &Node{
			ID:     n.ID,
			Labels: append([]LabelID(nil), n.Labels...),
			Props:  maps.Clone(n.Props),
		}
	}
	for id, e := range g.edgeMap {
		clone.edgeMap[id] = &Edge{
			ID: e.ID, From: e.From, To: e.To, Type: e.Type,
			Props: maps.Clone(e.Props),
		}
	}
	for id, edges := range g.out {
		clone.out[id] = append([]types.EntityID(nil), edges...)
	}
	for id, edges := range g.in {
		clone.in[id] = append([]types.EntityID(nil), edges...)
	}
	for l, m := range g.labelDiag {
		clone.labelDiag[l] = cloneMatrix(m)
	}
	for t, m := range g.relAdj {
		clone.relAdj[t] = cloneMatrix(m)
	}

	// Indexes are rebuilt against the cloned node set rather than
	// shared, since a writer mutating the live graph must not disturb
	// a reader's snapshot (spec.md §5).
	for key := range g.indexes {
		clone.CreateNodeIndex(key.label, key.prop)
	}

	return clone
}

func cloneMatrix(m *matrix.Bool) *matrix.Bool {
	out := matrix.New()
	for _, i := range m.RowIndices() {
		for _, j := range m.Row(i) {
			out.Set(i, j)
		}
	}
	return out
}
