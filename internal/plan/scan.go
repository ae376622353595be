package plan

import (
	"fmt"

	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/index"
	"github.com/cyphercore/graphengine/internal/record"
)

// AllNodeScan iterates every node in the graph, one output record per
// node (spec.md §4.5).
type AllNodeScan struct {
	Base
	graph    *graph.PropertyGraph
	slot     int
	width    int
	nodes    []*graph.Node
	position int
}

func NewAllNodeScan(g *graph.PropertyGraph, slot, width int) *AllNodeScan {
	s := &AllNodeScan{graph: g, slot: slot, width: width}
	s.Base = NewBase("AllNodeScan", []int{slot})
	return s
}

func (s *AllNodeScan) Init() error {
	s.nodes = s.graph.GetNodes()
	return nil
}

func (s *AllNodeScan) Consume() (*record.Record, error) {
	if s.position >= len(s.nodes) {
		return nil, nil
	}
	n := s.nodes[s.position]
	s.position++
	r := record.New(s.width)
	r.AddNode(s.slot, n.ID)
	return r, nil
}

func (s *AllNodeScan) Reset() error { s.position = 0; return nil }
func (s *AllNodeScan) Free()        {}
func (s *AllNodeScan) String() string {
	return fmt.Sprintf("AllNodeScan(slot=%d)", s.slot)
}

// NodeByLabelScan iterates the label's diagonal matrix, one record per
// marked index, in ascending ID order (spec.md §4.5, §8 invariant
// "label scan = label diagonal").
type NodeByLabelScan struct {
	Base
	graph    *graph.PropertyGraph
	label    graph.LabelID
	slot     int
	width    int
	nodes    []*graph.Node
	position int
}

func NewNodeByLabelScan(g *graph.PropertyGraph, label graph.LabelID, slot, width int) *NodeByLabelScan {
	s := &NodeByLabelScan{graph: g, label: label, slot: slot, width: width}
	s.Base = NewBase("NodeByLabelScan", []int{slot})
	return s
}

func (s *NodeByLabelScan) Init() error {
	s.nodes = s.graph.NodesByLabel(s.label)
	return nil
}

func (s *NodeByLabelScan) Consume() (*record.Record, error) {
	if s.position >= len(s.nodes) {
		return nil, nil
	}
	n := s.nodes[s.position]
	s.position++
	r := record.New(s.width)
	r.AddNode(s.slot, n.ID)
	return r, nil
}

func (s *NodeByLabelScan) Reset() error { s.position = 0; return nil }
func (s *NodeByLabelScan) Free()        {}
func (s *NodeByLabelScan) String() string {
	return fmt.Sprintf("NodeByLabelScan(label=%d, slot=%d)", s.label, s.slot)
}

// IndexScan wraps a secondary-index result iterator: for each yielded
// EntityID, hydrates the node by ID into a fresh record (spec.md §4.5).
type IndexScan struct {
	Base
	graph *graph.PropertyGraph
	query index.Query
	slot  int
	width int
	iter  index.Iterator
}

func NewIndexScan(g *graph.PropertyGraph, query index.Query, slot, width int) *IndexScan {
	s := &IndexScan{graph: g, query: query, slot: slot, width: width}
	s.Base = NewBase("IndexScan", []int{slot})
	return s
}

func (s *IndexScan) Init() error {
	s.iter = s.query.Iterator()
	return nil
}

func (s *IndexScan) Consume() (*record.Record, error) {
	id, ok := s.iter.Next()
	if !ok {
		return nil, nil
	}
	if !s.graph.ContainsNode(id) {
		return s.Consume()
	}
	r := record.New(s.width)
	r.AddNode(s.slot, id)
	return r, nil
}

func (s *IndexScan) Reset() error {
	s.iter = s.query.Iterator()
	return nil
}
func (s *IndexScan) Free() {}
func (s *IndexScan) String() string {
	return fmt.Sprintf("IndexScan(slot=%d, query=%s)", s.slot, s.query.String())
}
