package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/types"
)

// Formatter selects how a result row's scalars are rendered, mirroring
// RedisGraph's resultset_formatters.h three-formatter enumeration
// (spec.md §6): NOP discards values (GRAPH.PROFILE doesn't care about
// data, only timings), Verbose renders human-readable text for the CLI,
// Compact renders the typed [type-id, payload] tuples a thin client
// decodes without guessing.
type Formatter int

const (
	FormatterNOP Formatter = iota
	FormatterVerbose
	FormatterCompact
)

// Type ids are stable small integers a Compact-formatted client decodes
// against, per spec.md §6.
const (
	typeNull   = 1
	typeString = 2
	typeInt    = 3
	typeBool   = 4
	typeDouble = 5
	typeArray  = 6
	typeEdge   = 7
	typeNode   = 8
)

// renderValue formats one scalar/node/edge/array slot according to
// formatter. g resolves node/edge references to their labels/type and
// property map; it is nil-safe for array/scalar-only callers (tests that
// don't need entity rendering).
func renderValue(g *graph.PropertyGraph, f Formatter, v types.SIValue) any {
	if f == FormatterNOP {
		return nil
	}
	if f == FormatterCompact {
		return renderCompact(g, v)
	}
	return renderVerbose(g, v)
}

func renderCompact(g *graph.PropertyGraph, v types.SIValue) []any {
	switch v.Kind {
	case types.KindNull:
		return []any{typeNull, nil}
	case types.KindInt64:
		return []any{typeInt, v.I}
	case types.KindDouble:
		return []any{typeDouble, v.F}
	case types.KindBool:
		return []any{typeBool, v.B}
	case types.KindString:
		return []any{typeString, v.S}
	case types.KindArray:
		items := make([]any, len(v.Arr))
		for i, e := range v.Arr {
			items[i] = renderCompact(g, e)
		}
		return []any{typeArray, items}
	case types.KindNode:
		return []any{typeNode, compactNode(g, v.Node)}
	case types.KindEdge:
		return []any{typeEdge, compactEdge(g, v.Edge)}
	default:
		return []any{typeNull, nil}
	}
}

type compactNodePayload struct {
	ID         uint64         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

type compactEdgePayload struct {
	ID         uint64         `json:"id"`
	Type       string         `json:"type"`
	Src        uint64         `json:"src"`
	Dest       uint64         `json:"dest"`
	Properties map[string]any `json:"properties"`
}

func compactNode(g *graph.PropertyGraph, id types.EntityID) compactNodePayload {
	if g == nil {
		return compactNodePayload{ID: uint64(id)}
	}
	n, err := g.GetNode(id)
	if err != nil {
		return compactNodePayload{ID: uint64(id)}
	}
	labels := make([]string, len(n.Labels))
	for i, l := range n.Labels {
		labels[i] = g.Schema().LabelName(l)
	}
	return compactNodePayload{ID: uint64(id), Labels: labels, Properties: scalarMap(g, n.Props)}
}

func compactEdge(g *graph.PropertyGraph, id types.EntityID) compactEdgePayload {
	if g == nil {
		return compactEdgePayload{ID: uint64(id)}
	}
	e, err := g.GetEdge(id)
	if err != nil {
		return compactEdgePayload{ID: uint64(id)}
	}
	return compactEdgePayload{
		ID:         uint64(id),
		Type:       g.Schema().RelTypeName(e.Type),
		Src:        uint64(e.From),
		Dest:       uint64(e.To),
		Properties: scalarMap(g, e.Props),
	}
}

func scalarMap(g *graph.PropertyGraph, props map[string]types.SIValue) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = renderCompact(g, v)
	}
	return out
}

func renderVerbose(g *graph.PropertyGraph, v types.SIValue) string {
	switch v.Kind {
	case types.KindNull:
		return "null"
	case types.KindInt64:
		return strconv.FormatInt(v.I, 10)
	case types.KindDouble:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case types.KindBool:
		return strconv.FormatBool(v.B)
	case types.KindString:
		return strconv.Quote(v.S)
	case types.KindArray:
		parts := make([]string, len(v.Arr))
		for i, e := range v.Arr {
			parts[i] = renderVerbose(g, e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case types.KindNode:
		return verboseNode(g, v.Node)
	case types.KindEdge:
		return verboseEdge(g, v.Edge)
	default:
		return "null"
	}
}

func verboseNode(g *graph.PropertyGraph, id types.EntityID) string {
	if g == nil {
		return fmt.Sprintf("(%d)", id)
	}
	n, err := g.GetNode(id)
	if err != nil {
		return fmt.Sprintf("(%d)", id)
	}
	var labels strings.Builder
	for _, l := range n.Labels {
		labels.WriteString(":")
		labels.WriteString(g.Schema().LabelName(l))
	}
	return fmt.Sprintf("(%s%s)", labels.String(), verboseProps(g, n.Props))
}

func verboseEdge(g *graph.PropertyGraph, id types.EntityID) string {
	if g == nil {
		return fmt.Sprintf("[%d]", id)
	}
	e, err := g.GetEdge(id)
	if err != nil {
		return fmt.Sprintf("[%d]", id)
	}
	typeName := g.Schema().RelTypeName(e.Type)
	return fmt.Sprintf("[:%s%s]", typeName, verboseProps(g, e.Props))
}

func verboseProps(g *graph.PropertyGraph, props map[string]types.SIValue) string {
	if len(props) == 0 {
		return ""
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, renderVerbose(g, props[k]))
	}
	return " {" + strings.Join(parts, ", ") + "}"
}
