package dsl

import "fmt"

// SyntaxError is returned for both lexer/parser failures and the small
// amount of structural validation convert.go does while building the
// internal/ast tree (e.g. a property-access target that isn't a bound
// variable).
type SyntaxError struct {
	Kind    string
	Message string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("syntax error (%s): %s", e.Kind, e.Message)
}
