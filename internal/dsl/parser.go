package dsl

import (
	"github.com/cyphercore/graphengine/internal/ast"
	"github.com/cyphercore/graphengine/internal/engerr"
)

// Parse lexes and parses a single Cypher-subset statement into
// internal/ast's tree. It never touches a graph — alias/label/property
// resolution happens later, at plan time (internal/plan.Builder).
func Parse(input string) (*ast.Query, error) {
	g, err := dslParser.ParseString("", input)
	if err != nil {
		return nil, engerr.ParseError("%s", err.Error())
	}
	q, err := convertQuery(g)
	if err != nil {
		if se, ok := err.(SyntaxError); ok {
			return nil, engerr.ParseError("%s", se.Error())
		}
		return nil, err
	}
	return q, nil
}
