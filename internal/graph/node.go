package graph

import "github.com/cyphercore/graphengine/internal/types"

// LabelID identifies a node label within a graph's schema.
type LabelID int

// RelTypeID identifies an edge relationship type within a graph's schema.
type RelTypeID int

// Node is a graph vertex: a stable ID, the set of labels it carries, and
// its attribute map.
type Node struct {
	ID     types.EntityID
	Labels []LabelID
	Props  map[string]types.SIValue
}

// HasLabel reports whether the node carries label l.
func (n *Node) HasLabel(l LabelID) bool {
	for _, have := range n.Labels {
		if have == l {
			return true
		}
	}
	return false
}
