package graph

import "github.com/cyphercore/graphengine/internal/types"

// Edge is a directed graph edge carrying exactly one relationship type
// and an attribute map.
type Edge struct {
	ID    types.EntityID
	From  types.EntityID
	To    types.EntityID
	Type  RelTypeID
	Props map[string]types.SIValue
}
