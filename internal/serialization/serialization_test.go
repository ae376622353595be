package serialization

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphercore/graphengine/internal/graph"
	"github.com/cyphercore/graphengine/internal/types"
)

func roundTrip(t *testing.T, g *graph.PropertyGraph) *graph.PropertyGraph {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(g, &buf))
	got, err := Read(&buf)
	require.NoError(t, err)
	return got
}

func TestRoundTripEmptyGraph(t *testing.T) {
	g := graph.New()
	got := roundTrip(t, g)
	assert.Empty(t, got.GetNodes())
	assert.Empty(t, got.GetEdges())
}

func TestRoundTripNodesOnly(t *testing.T) {
	g := graph.New()
	g.AddNode([]string{"Person"}, map[string]types.SIValue{"name": types.ConstString("Ada")})
	g.AddNode([]string{"Person", "Employee"}, map[string]types.SIValue{"name": types.ConstString("Grace")})

	got := roundTrip(t, g)
	require.Len(t, got.GetNodes(), 2)

	for _, n := range got.GetNodes() {
		labelNames := make([]string, len(n.Labels))
		for i, l := range n.Labels {
			labelNames[i] = got.Schema().LabelName(l)
		}
		name := n.Props["name"].S
		switch name {
		case "Ada":
			assert.Equal(t, []string{"Person"}, labelNames)
		case "Grace":
			assert.ElementsMatch(t, []string{"Person", "Employee"}, labelNames)
		default:
			t.Fatalf("unexpected node name %q", name)
		}
	}
}

func TestRoundTripSimpleGraph(t *testing.T) {
	g := graph.New()
	a := g.AddNode([]string{"Person"}, map[string]types.SIValue{"name": types.ConstString("Ada")})
	b := g.AddNode([]string{"Person"}, map[string]types.SIValue{"name": types.ConstString("Grace")})
	_, err := g.AddEdge(a.ID, b.ID, "KNOWS", map[string]types.SIValue{"since": types.Int(1843)})
	require.NoError(t, err)

	got := roundTrip(t, g)
	require.Len(t, got.GetNodes(), 2)
	require.Len(t, got.GetEdges(), 1)

	e := got.GetEdges()[0]
	assert.Equal(t, a.ID, e.From)
	assert.Equal(t, b.ID, e.To)
	assert.Equal(t, "KNOWS", got.Schema().RelTypeName(e.Type))
	assert.Equal(t, int64(1843), e.Props["since"].I)
}

func TestRoundTripPreservesEntityIDs(t *testing.T) {
	g := graph.New()
	a := g.AddNode([]string{"Person"}, nil)
	b := g.AddNode([]string{"Person"}, nil)
	c := g.AddNode([]string{"Person"}, nil)
	require.NoError(t, g.RemoveNode(b.ID)) // frees b.ID for reuse by a later AddNode
	d := g.AddNode([]string{"Person"}, nil)

	e1, err := g.AddEdge(a.ID, c.ID, "KNOWS", nil)
	require.NoError(t, err)
	e2, err := g.AddEdge(c.ID, d.ID, "KNOWS", nil)
	require.NoError(t, err)

	got := roundTrip(t, g)
	assert.True(t, got.ContainsNode(a.ID))
	assert.True(t, got.ContainsNode(c.ID))
	assert.True(t, got.ContainsNode(d.ID))
	assert.True(t, got.ContainsNode(b.ID)) // b's freed id now belongs to d

	_, err = got.GetEdge(e1.ID)
	assert.NoError(t, err)
	_, err = got.GetEdge(e2.ID)
	assert.NoError(t, err)
}

func TestRoundTripRebuildsAdjacencyMatrix(t *testing.T) {
	g := graph.New()
	a := g.AddNode([]string{"Person"}, nil)
	b := g.AddNode([]string{"Person"}, nil)
	_, err := g.AddEdge(a.ID, b.ID, "KNOWS", nil)
	require.NoError(t, err)

	got := roundTrip(t, g)
	relID, ok := got.Schema().ResolveRelType("KNOWS")
	require.True(t, ok)
	assert.True(t, got.AdjacencyMatrix(relID).Get(a.ID, b.ID))

	labelID, ok := got.Schema().ResolveLabel("Person")
	require.True(t, ok)
	assert.True(t, got.LabelDiagonal(labelID).Get(a.ID, a.ID))
	assert.True(t, got.LabelDiagonal(labelID).Get(b.ID, b.ID))
}

func TestRoundTripAllPropertyKinds(t *testing.T) {
	g := graph.New()
	g.AddNode([]string{"Thing"}, map[string]types.SIValue{
		"nullVal":   types.Null(),
		"intVal":    types.Int(-42),
		"floatVal":  types.Double(3.25),
		"boolVal":   types.Bool(true),
		"stringVal": types.ConstString("hello"),
		"arrayVal": types.Array([]types.SIValue{
			types.Int(1),
			types.ConstString("two"),
			types.Array([]types.SIValue{types.Bool(false)}),
		}),
		"dateVal": {
			Kind:     types.KindDate,
			Temporal: types.Temporal{Seconds: 1_700_000_000, Nanos: 500, Type: types.KindDate},
		},
	})

	got := roundTrip(t, g)
	n := got.GetNodes()[0]

	assert.True(t, n.Props["nullVal"].IsNull())
	assert.Equal(t, int64(-42), n.Props["intVal"].I)
	assert.Equal(t, 3.25, n.Props["floatVal"].F)
	assert.Equal(t, true, n.Props["boolVal"].B)
	assert.Equal(t, "hello", n.Props["stringVal"].S)

	arr := n.Props["arrayVal"].Arr
	require.Len(t, arr, 3)
	assert.Equal(t, int64(1), arr[0].I)
	assert.Equal(t, "two", arr[1].S)
	assert.Equal(t, false, arr[2].Arr[0].B)

	date := n.Props["dateVal"]
	assert.Equal(t, types.KindDate, date.Kind)
	assert.Equal(t, int64(1_700_000_000), date.Temporal.Seconds)
	assert.Equal(t, int32(500), date.Temporal.Nanos)
}

func TestRoundTripZeroAndNegativeValues(t *testing.T) {
	g := graph.New()
	g.AddNode([]string{"Thing"}, map[string]types.SIValue{
		"zero":     types.Int(0),
		"negFloat": types.Double(-0.5),
		"empty":    types.ConstString(""),
		"false":    types.Bool(false),
	})

	got := roundTrip(t, g)
	n := got.GetNodes()[0]
	assert.Equal(t, int64(0), n.Props["zero"].I)
	assert.Equal(t, -0.5, n.Props["negFloat"].F)
	assert.Equal(t, "", n.Props["empty"].S)
	assert.Equal(t, false, n.Props["false"].B)
}

func TestRoundTripUnicodeStringProperty(t *testing.T) {
	g := graph.New()
	g.AddNode([]string{"Thing"}, map[string]types.SIValue{"name": types.ConstString("Grünwald 日本語 🎉")})

	got := roundTrip(t, g)
	assert.Equal(t, "Grünwald 日本語 🎉", got.GetNodes()[0].Props["name"].S)
}

func TestRoundTripPreservesIndexes(t *testing.T) {
	g := graph.New()
	g.AddNode([]string{"Person"}, map[string]types.SIValue{"name": types.ConstString("Ada")})
	label, _ := g.Schema().ResolveLabel("Person")
	g.CreateNodeIndex(label, "name")

	got := roundTrip(t, g)
	gotLabel, ok := got.Schema().ResolveLabel("Person")
	require.True(t, ok)
	_, indexed := got.Index(gotLabel, "name")
	assert.True(t, indexed)
	assert.True(t, got.Schema().IsIndexed(gotLabel, "name"))
}

func TestRoundTripLabelWithNoCurrentMembers(t *testing.T) {
	g := graph.New()
	n := g.AddNode([]string{"Person", "Ghost"}, nil)
	require.NoError(t, g.RemoveNode(n.ID)) // Ghost label survives in the schema dictionary

	got := roundTrip(t, g)
	assert.ElementsMatch(t, []string{"Person", "Ghost"}, got.Schema().Labels())
}

func TestRoundTripSelfLoop(t *testing.T) {
	g := graph.New()
	a := g.AddNode([]string{"Person"}, nil)
	_, err := g.AddEdge(a.ID, a.ID, "KNOWS", nil)
	require.NoError(t, err)

	got := roundTrip(t, g)
	require.Len(t, got.GetEdges(), 1)
	e := got.GetEdges()[0]
	assert.Equal(t, a.ID, e.From)
	assert.Equal(t, a.ID, e.To)
}

func TestRoundTripManyNodesAndEdges(t *testing.T) {
	g := graph.New()
	var ids []types.EntityID
	for i := 0; i < 200; i++ {
		n := g.AddNode([]string{"Person"}, map[string]types.SIValue{"i": types.Int(int64(i))})
		ids = append(ids, n.ID)
	}
	for i := 1; i < len(ids); i++ {
		_, err := g.AddEdge(ids[i-1], ids[i], "NEXT", nil)
		require.NoError(t, err)
	}

	got := roundTrip(t, g)
	assert.Len(t, got.GetNodes(), 200)
	assert.Len(t, got.GetEdges(), 199)
}

func TestReadRejectsDuplicateNodeID(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(`{"header":{"version":1},"nodes":[{"id":1},{"id":1}]}`)
	_, err := Read(&buf)
	assert.Error(t, err)
}

func TestReadRejectsDuplicateEdgeID(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(`{"header":{"version":1},"nodes":[{"id":1},{"id":2}],
		"edges":[{"id":1,"from":1,"to":2,"type":"KNOWS"},{"id":1,"from":2,"to":1,"type":"KNOWS"}]}`)
	_, err := Read(&buf)
	assert.Error(t, err)
}

func TestReadRejectsEdgeToMissingNode(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(`{"header":{"version":1},"nodes":[{"id":1}],
		"edges":[{"id":1,"from":1,"to":99,"type":"KNOWS"}]}`)
	_, err := Read(&buf)
	assert.Error(t, err)
}

func TestReadRejectsIndexOnUnknownLabel(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(`{"header":{"version":1},"indexes":[{"label":"Ghost","property":"name"}]}`)
	_, err := Read(&buf)
	assert.Error(t, err)
}

func TestReadRejectsMalformedJSON(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(`{not valid json`)
	_, err := Read(&buf)
	assert.Error(t, err)
}

func TestReadRejectsUnknownValueKind(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(`{"header":{"version":1},"nodes":[{"id":1,"props":{"x":{"kind":"bogus"}}}]}`)
	_, err := Read(&buf)
	assert.Error(t, err)
}

func TestWriteRejectsNodeOrEdgeValuedProperty(t *testing.T) {
	g := graph.New()
	g.AddNode([]string{"Thing"}, map[string]types.SIValue{"ref": types.NodeRef(0)})
	var buf bytes.Buffer
	err := Write(g, &buf)
	assert.Error(t, err)
}

func TestSaveAndLoadFile(t *testing.T) {
	g := graph.New()
	a := g.AddNode([]string{"Person"}, map[string]types.SIValue{"name": types.ConstString("Ada")})
	b := g.AddNode([]string{"Person"}, map[string]types.SIValue{"name": types.ConstString("Grace")})
	_, err := g.AddEdge(a.ID, b.ID, "KNOWS", nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, Save(g, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, got.GetNodes(), 2)
	assert.Len(t, got.GetEdges(), 1)
}

func TestLoadNonexistentFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSaveOverwritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	g := graph.New()
	g.AddNode([]string{"Person"}, nil)
	require.NoError(t, Save(g, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, got.GetNodes(), 1)
}

func TestWriteOutputIsIndentedJSON(t *testing.T) {
	g := graph.New()
	g.AddNode([]string{"Person"}, nil)

	var buf bytes.Buffer
	require.NoError(t, Write(g, &buf))
	assert.Contains(t, buf.String(), "\n  ")
}

func TestWriteHeaderCountsMatch(t *testing.T) {
	g := graph.New()
	a := g.AddNode([]string{"Person"}, nil)
	b := g.AddNode([]string{"Employee"}, nil)
	_, err := g.AddEdge(a.ID, b.ID, "WORKS_WITH", nil)
	require.NoError(t, err)

	pg, err := toPersisted(g)
	require.NoError(t, err)
	assert.Equal(t, 2, pg.Header.NodeCount)
	assert.Equal(t, 1, pg.Header.EdgeCount)
	assert.Equal(t, 2, pg.Header.LabelCount)
	assert.Equal(t, 1, pg.Header.RelTypeCount)
	assert.Equal(t, formatVersion, pg.Header.Version)
}
