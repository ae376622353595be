// Package engerr defines the error taxonomy every layer of the query
// engine reports through: one Kind per spec.md §7 row, wrapped with
// github.com/pkg/errors so a causal chain survives across package
// boundaries (e.g. a btree lookup failure surfacing as an IndexError
// without losing the underlying error).
package engerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the error taxonomy tag returned as the first token of an error
// reply (spec.md §7).
type Kind string

const (
	KindParseError       Kind = "ParseError"
	KindInvalidQuery     Kind = "InvalidQuery"
	KindUnknownProperty  Kind = "UnknownProperty"
	KindUnknownLabel     Kind = "UnknownLabel"
	KindUnknownRelType   Kind = "UnknownRelType"
	KindTypeMismatch     Kind = "TypeMismatch"
	KindIndexError       Kind = "IndexError"
	KindDivByZero        Kind = "DivByZero"
	KindInternal         Kind = "Internal"
)

// QueryError is the single error type every operator, the parser, and
// the planner return. It carries the taxonomy Kind plus a human message,
// and wraps an optional cause via pkg/errors (errors.WithStack), reachable
// through Unwrap/Cause; Error() prints the cause's message, not its stack.
type QueryError struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *QueryError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *QueryError) Unwrap() error { return e.cause }

// Cause returns the innermost wrapped error, mirroring pkg/errors.Cause
// for callers that still expect that convention.
func (e *QueryError) Cause() error {
	if e.cause == nil {
		return e
	}
	return errors.Cause(e.cause)
}

func New(kind Kind, format string, args ...any) *QueryError {
	return &QueryError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind+message to an underlying error, preserving it as
// the cause for Unwrap/errors.Is/errors.As chains.
func Wrap(cause error, kind Kind, format string, args ...any) *QueryError {
	return &QueryError{Kind: kind, Message: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

func ParseError(format string, args ...any) *QueryError {
	return New(KindParseError, format, args...)
}

func InvalidQuery(format string, args ...any) *QueryError {
	return New(KindInvalidQuery, format, args...)
}

func UnknownProperty(name string) *QueryError {
	return New(KindUnknownProperty, "unknown property %q", name)
}

func UnknownLabel(name string) *QueryError {
	return New(KindUnknownLabel, "unknown label %q", name)
}

func UnknownRelType(name string) *QueryError {
	return New(KindUnknownRelType, "unknown relationship type %q", name)
}

func TypeMismatch(format string, args ...any) *QueryError {
	return New(KindTypeMismatch, format, args...)
}

func IndexError(cause error, format string, args ...any) *QueryError {
	return Wrap(cause, KindIndexError, format, args...)
}

func DivByZero() *QueryError {
	return New(KindDivByZero, "division by zero")
}

func Internal(format string, args ...any) *QueryError {
	return New(KindInternal, format, args...)
}

// KindOf extracts the Kind from any error in the chain, defaulting to
// Internal for errors that never went through this package.
func KindOf(err error) Kind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindInternal
}
