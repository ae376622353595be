// Package serialization persists a PropertyGraph to and from the
// spec.md §6 abstract layout: a header, the label/reltype dictionaries,
// the indexed-property set (this engine's only per-label attribute
// schema), then dense node and edge arrays. Adjacency matrices are never
// persisted — Read rebuilds them from the edge array via
// graph.PropertyGraph.RestoreNode/RestoreEdge, the same way the teacher's
// WriteJSON/ReadJSON round-tripped its adjacency-list graph through a
// plain struct tree.
package serialization

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/types"
)

const formatVersion = 1

type header struct {
	Version      int `json:"version"`
	NodeCount    int `json:"node_count"`
	EdgeCount    int `json:"edge_count"`
	LabelCount   int `json:"label_count"`
	RelTypeCount int `json:"reltype_count"`
}

// persistedValue is SIValue's wire form: a kind tag plus whichever
// field that kind uses. Unused fields are omitted rather than
// zero-filled so a node/edge with no properties round-trips to a
// compact `{}`.
type persistedValue struct {
	Kind    string           `json:"kind"`
	I       int64            `json:"i,omitempty"`
	F       float64          `json:"f,omitempty"`
	B       bool             `json:"b,omitempty"`
	S       string           `json:"s,omitempty"`
	Arr     []persistedValue `json:"arr,omitempty"`
	Seconds int64            `json:"seconds,omitempty"`
	Nanos   int32            `json:"nanos,omitempty"`
}

func marshalValue(v types.SIValue) (persistedValue, error) {
	switch v.Kind {
	case types.KindNull:
		return persistedValue{Kind: "null"}, nil
	case types.KindInt64:
		return persistedValue{Kind: "int", I: v.I}, nil
	case types.KindDouble:
		return persistedValue{Kind: "float", F: v.F}, nil
	case types.KindBool:
		return persistedValue{Kind: "bool", B: v.B}, nil
	case types.KindString:
		return persistedValue{Kind: "string", S: v.S}, nil
	case types.KindArray:
		arr := make([]persistedValue, len(v.Arr))
		for i, e := range v.Arr {
			pv, err := marshalValue(e)
			if err != nil {
				return persistedValue{}, err
			}
			arr[i] = pv
		}
		return persistedValue{Kind: "array", Arr: arr}, nil
	case types.KindDate, types.KindTime, types.KindLocalTime, types.KindDateTime, types.KindLocalDateTime:
		return persistedValue{
			Kind:    temporalKindName(v.Kind),
			Seconds: v.Temporal.Seconds,
			Nanos:   v.Temporal.Nanos,
		}, nil
	default:
		return persistedValue{}, fmt.Errorf("value kind %v cannot be persisted as a property", v.Kind)
	}
}

func unmarshalValue(pv persistedValue) (types.SIValue, error) {
	switch pv.Kind {
	case "null":
		return types.Null(), nil
	case "int":
		return types.Int(pv.I), nil
	case "float":
		return types.Double(pv.F), nil
	case "bool":
		return types.Bool(pv.B), nil
	case "string":
		return types.OwnedString(pv.S), nil
	case "array":
		elems := make([]types.SIValue, len(pv.Arr))
		for i, e := range pv.Arr {
			v, err := unmarshalValue(e)
			if err != nil {
				return types.SIValue{}, err
			}
			elems[i] = v
		}
		return types.Array(elems), nil
	case "date", "time", "localtime", "datetime", "localdatetime":
		return types.SIValue{
			Kind:     temporalKindFromName(pv.Kind),
			Temporal: types.Temporal{Seconds: pv.Seconds, Nanos: pv.Nanos, Type: temporalKindFromName(pv.Kind)},
		}, nil
	default:
		return types.SIValue{}, fmt.Errorf("unknown persisted value kind %q", pv.Kind)
	}
}

func temporalKindName(k types.ValueKind) string {
	switch k {
	case types.KindDate:
		return "date"
	case types.KindTime:
		return "time"
	case types.KindLocalTime:
		return "localtime"
	case types.KindDateTime:
		return "datetime"
	case types.KindLocalDateTime:
		return "localdatetime"
	default:
		return "unknown"
	}
}

func temporalKindFromName(name string) types.ValueKind {
	switch name {
	case "date":
		return types.KindDate
	case "time":
		return types.KindTime
	case "localtime":
		return types.KindLocalTime
	case "datetime":
		return types.KindDateTime
	case "localdatetime":
		return types.KindLocalDateTime
	default:
		return types.KindNull
	}
}

func marshalProps(props map[string]types.SIValue) (map[string]persistedValue, error) {
	if len(props) == 0 {
		return nil, nil
	}
	out := make(map[string]persistedValue, len(props))
	for k, v := range props {
		pv, err := marshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = pv
	}
	return out, nil
}

func unmarshalProps(props map[string]persistedValue) (map[string]types.SIValue, error) {
	if len(props) == 0 {
		return nil, nil
	}
	out := make(map[string]types.SIValue, len(props))
	for k, pv := range props {
		v, err := unmarshalValue(pv)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

type persistedNode struct {
	ID     uint64                    `json:"id"`
	Labels []string                  `json:"labels,omitempty"`
	Props  map[string]persistedValue `json:"props,omitempty"`
}

type persistedEdge struct {
	ID    uint64                    `json:"id"`
	From  uint64                    `json:"from"`
	To    uint64                    `json:"to"`
	Type  string                    `json:"type"`
	Props map[string]persistedValue `json:"props,omitempty"`
}

// persistedIndex is the wire form of graph.IndexDescriptor, naming the
// label by string since label ids are only stable within one loaded
// graph's schema instance.
type persistedIndex struct {
	Label    string `json:"label"`
	Property string `json:"property"`
}

type persistedGraph struct {
	Header   header           `json:"header"`
	Labels   []string         `json:"labels,omitempty"`
	RelTypes []string         `json:"reltypes,omitempty"`
	Indexes  []persistedIndex `json:"indexes,omitempty"`
	Nodes    []persistedNode  `json:"nodes,omitempty"`
	Edges    []persistedEdge  `json:"edges,omitempty"`
}

func toPersisted(g *graph.PropertyGraph) (persistedGraph, error) {
	schema := g.Schema()
	labels := schema.Labels()
	relTypes := schema.RelTypes()

	nodes := g.GetNodes()
	pNodes := make([]persistedNode, 0, len(nodes))
	for _, n := range nodes {
		labelNames := make([]string, len(n.Labels))
		for i, l := range n.Labels {
			labelNames[i] = schema.LabelName(l)
		}
		props, err := marshalProps(n.Props)
		if err != nil {
			return persistedGraph{}, fmt.Errorf("node %d: %w", n.ID, err)
		}
		pNodes = append(pNodes, persistedNode{ID: uint64(n.ID), Labels: labelNames, Props: props})
	}

	edges := g.GetEdges()
	pEdges := make([]persistedEdge, 0, len(edges))
	for _, e := range edges {
		props, err := marshalProps(e.Props)
		if err != nil {
			return persistedGraph{}, fmt.Errorf("edge %d: %w", e.ID, err)
		}
		pEdges = append(pEdges, persistedEdge{
			ID: uint64(e.ID), From: uint64(e.From), To: uint64(e.To),
			Type: schema.RelTypeName(e.Type), Props: props,
		})
	}

	var pIndexes []persistedIndex
	for _, d := range g.IndexDescriptors() {
		pIndexes = append(pIndexes, persistedIndex{Label: schema.LabelName(d.Label), Property: d.Property})
	}

	return persistedGraph{
		Header: header{
			Version:      formatVersion,
			NodeCount:    len(pNodes),
			EdgeCount:    len(pEdges),
			LabelCount:   len(labels),
			RelTypeCount: len(relTypes),
		},
		Labels:   labels,
		RelTypes: relTypes,
		Indexes:  pIndexes,
		Nodes:    pNodes,
		Edges:    pEdges,
	}, nil
}

func fromPersisted(pg persistedGraph) (*graph.PropertyGraph, error) {
	g := graph.New()
	schema := g.Schema()

	// Pre-registering every known label/reltype name, in the order they
	// were originally assigned, keeps LabelID/RelTypeID values stable
	// across a save/load round trip even for a label with zero current
	// members.
	for _, name := range pg.Labels {
		schema.GetOrCreateLabel(name)
	}
	for _, name := range pg.RelTypes {
		schema.GetOrCreateRelType(name)
	}

	seen := make(map[uint64]bool, len(pg.Nodes))
	for _, pn := range pg.Nodes {
		if seen[pn.ID] {
			return nil, fmt.Errorf("duplicate node id %d", pn.ID)
		}
		seen[pn.ID] = true
		props, err := unmarshalProps(pn.Props)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", pn.ID, err)
		}
		g.RestoreNode(types.EntityID(pn.ID), pn.Labels, props)
	}

	seenEdge := make(map[uint64]bool, len(pg.Edges))
	for _, pe := range pg.Edges {
		if seenEdge[pe.ID] {
			return nil, fmt.Errorf("duplicate edge id %d", pe.ID)
		}
		seenEdge[pe.ID] = true
		if !g.ContainsNode(types.EntityID(pe.From)) {
			return nil, fmt.Errorf("edge %d: source node %d does not exist", pe.ID, pe.From)
		}
		if !g.ContainsNode(types.EntityID(pe.To)) {
			return nil, fmt.Errorf("edge %d: destination node %d does not exist", pe.ID, pe.To)
		}
		props, err := unmarshalProps(pe.Props)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", pe.ID, err)
		}
		g.RestoreEdge(types.EntityID(pe.ID), types.EntityID(pe.From), types.EntityID(pe.To), pe.Type, props)
	}

	for _, pi := range pg.Indexes {
		label, ok := schema.ResolveLabel(pi.Label)
		if !ok {
			return nil, fmt.Errorf("index on unknown label %q", pi.Label)
		}
		g.CreateNodeIndex(label, pi.Property)
	}

	return g, nil
}

// Write encodes g to w in the persisted layout.
func Write(g *graph.PropertyGraph, w io.Writer) error {
	pg, err := toPersisted(g)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pg)
}

// Read decodes a graph from r, rebuilding its adjacency matrices and
// secondary indices.
func Read(r io.Reader) (*graph.PropertyGraph, error) {
	var pg persistedGraph
	if err := json.NewDecoder(r).Decode(&pg); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	return fromPersisted(pg)
}

// Save writes g to a file at path, truncating any existing content.
func Save(g *graph.PropertyGraph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	defer f.Close()
	return Write(g, f)
}

// Load reads a graph from the file at path.
func Load(path string) (*graph.PropertyGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
