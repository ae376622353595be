package graph

import (
	"fmt"

	"github.com/cyphercore/graphengine/internal/index"
)

// indexKey identifies one (label, property) secondary index.
type indexKey struct {
	label LabelID
	prop  string
}

// CreateNodeIndex builds a secondary index over the given node property
// for the given label, backfilling it from every node currently carrying
// that label, and marks the schema so the
// index-utilization optimizer (C11) knows the attribute is indexed. This
// is the engine behind the db.idx.fulltext.createNodeIndex procedure
// (spec.md persisted-state/procedure section). If an index for the pair
// already exists it is returned as is, not rebuilt; AddNode/RemoveNode
// keep it current.
func (g *PropertyGraph) CreateNodeIndex(label LabelID, property string) *index.PropertyIndex {
	key := indexKey{label: label, prop: property}
	if idx, ok := g.indexes[key]; ok {
		return idx
	}
	idx := index.NewPropertyIndex()
	for _, n := range g.NodesByLabel(label) {
		if v, ok := n.Props[property]; ok {
			idx.Add(n.ID, v)
		}
	}
	g.indexes[key] = idx
	g.schema.MarkIndexed(label, property)
	return idx
}

// Index looks up the secondary index for (label, property), if any.
func (g *PropertyGraph) Index(label LabelID, property string) (*index.PropertyIndex, bool) {
	idx, ok := g.indexes[indexKey{label: label, prop: property}]
	return idx, ok
}

// indexNode adds a newly-created node's indexed properties to every
// matching registered index; called from AddNode.
func (g *PropertyGraph) indexNode(n *Node) {
	for _, l := range n.Labels {
		for key, idx := range g.indexes {
			if key.label != l {
				continue
			}
			if v, ok := n.Props[key.prop]; ok {
				idx.Add(n.ID, v)
			}
		}
	}
}

// unindexNode removes a node's entries from every registered index;
// called from RemoveNode.
func (g *PropertyGraph) unindexNode(n *Node) {
	for _, l := range n.Labels {
		for key, idx := range g.indexes {
			if key.label != l {
				continue
			}
			if v, ok := n.Props[key.prop]; ok {
				idx.Remove(n.ID, v)
			}
		}
	}
}

func (k indexKey) String() string {
	return fmt.Sprintf("%d.%s", k.label, k.prop)
}
