package graph

import (
	"fmt"

	"github.com/cyphercore/graphengine/internal/types"
)

type GraphError struct {
	Kind    string
	Message string
}

func (e GraphError) Error() string {
	return fmt.Sprintf("graph error (%v): %v", e.Kind, e.Message)
}

func NodeDoesNotExist(id types.EntityID) error {
	return GraphError{
		Kind:    "NodeDoesNotExist",
		Message: fmt.Sprintf("node %v does not exist", id),
	}
}

func EdgeDoesNotExist(id types.EntityID) error {
	return GraphError{
		Kind:    "EdgeDoesNotExist",
		Message: fmt.Sprintf("edge %v does not exist", id),
	}
}

func UnknownLabel(name string) error {
	return GraphError{Kind: "UnknownLabel", Message: fmt.Sprintf("unknown label %q", name)}
}

func UnknownRelType(name string) error {
	return GraphError{Kind: "UnknownRelType", Message: fmt.Sprintf("unknown relationship type %q", name)}
}
