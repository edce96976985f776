package diagram

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/internal/diff"
	"github.com/rendis/edgraph/internal/nodes"
	"github.com/rendis/edgraph/pkg/document"
	"github.com/rendis/edgraph/pkg/edgraph"
)

const mainDoc = `
name: main
nodes:
  - name: Begin
    class: Event
    properties: {event_name: BeginPlay}
  - name: Add
    class: MathExpression
    properties: {expression: "a + b"}
    pins:
      - {name: a, direction: input, default: "2"}
  - name: Print
    class: FunctionCall
    properties:
      function_name: Print
      params: [{name: Value, category: float}]
  - {name: Note, class: Comment}
links:
  - {from: Begin.then, to: Print.execute}
  - {from: Add.ReturnValue, to: Print.Value}
`

const movedDoc = `
name: main
nodes:
  - name: Begin
    class: Event
    properties: {event_name: BeginPlay}
  - name: Add
    class: MathExpression
    properties: {expression: "a + b"}
    pins:
      - {name: a, direction: input, default: "2"}
  - name: Print
    class: FunctionCall
    x: 250
    properties:
      function_name: Print
      params: [{name: Value, category: float}]
  - {name: Note, class: Comment}
  - {name: Knot, class: Knot}
links:
  - {from: Begin.then, to: Print.execute}
  - {from: Add.ReturnValue, to: Print.Value}
  - {from: Add.ReturnValue, to: Knot.InputPin}
`

func buildGraph(t *testing.T, src string) *edgraph.Graph {
	t.Helper()
	doc, err := document.Parse([]byte(src), document.FormatYAML)
	require.NoError(t, err)
	g, err := document.Build(doc, nodes.DefaultRegistry())
	require.NoError(t, err)
	return g
}

func id(g *edgraph.Graph, name string) string {
	return g.FindNodeByName(name).ID.String()
}

func compiled(t *testing.T, g *edgraph.Graph) *DiagramModel {
	t.Helper()
	model := Build(g)
	log := compiler.NewMessageLog(nil)
	res := compiler.NewContext(log, nil, compiler.Options{}).Compile(g.Clone(), nil)
	ApplyCompile(model, res, log)
	return model
}

func TestBuild(t *testing.T) {
	g := buildGraph(t, mainDoc)
	model := Build(g)

	assert.Equal(t, "main", model.Title)
	require.Len(t, model.Nodes, 4)
	assert.Equal(t, NodeKindEvent, model.node(id(g, "Begin")).Kind)
	assert.Equal(t, NodeKindPure, model.node(id(g, "Add")).Kind)
	assert.Equal(t, NodeKindCall, model.node(id(g, "Print")).Kind)
	assert.Equal(t, NodeKindComment, model.node(id(g, "Note")).Kind)

	assert.ElementsMatch(t, []Edge{
		{From: id(g, "Begin"), To: id(g, "Print"), Exec: true},
		{From: id(g, "Add"), To: id(g, "Print"), Label: "Value"},
	}, model.Edges)
	assert.Empty(t, model.Levels)
	assert.Empty(t, model.Groups)
}

func TestBuild_BranchEdgesAreLabelled(t *testing.T) {
	g := buildGraph(t, `
name: flow
nodes:
  - {name: Begin, class: Event, properties: {event_name: Go}}
  - {name: If, class: Branch}
  - {name: Yes, class: FunctionCall, properties: {function_name: Yes}}
links:
  - {from: Begin.then, to: If.execute}
  - {from: If.True, to: Yes.execute}
`)
	model := Build(g)
	assert.Equal(t, NodeKindFlow, model.node(id(g, "If")).Kind)
	assert.Contains(t, model.Edges, Edge{From: id(g, "If"), To: id(g, "Yes"), Label: "True", Exec: true})
}

func TestBuild_NestedGraphsBecomeGroups(t *testing.T) {
	g := buildGraph(t, `
name: outer
nodes:
  - {name: Begin, class: Event, properties: {event_name: Go}}
subgraphs:
  - name: helpers
    nodes:
      - {name: Inner, class: MathExpression, properties: {expression: "1"}}
`)
	model := Build(g)
	require.Len(t, model.Groups, 1)
	assert.Equal(t, "helpers", model.Groups[0].Label)
	assert.Len(t, model.Groups[0].NodeIDs, 1)
	assert.Len(t, model.Nodes, 2)
}

func TestApplyCompile(t *testing.T) {
	g := buildGraph(t, mainDoc)
	model := compiled(t, g)

	assert.Equal(t, StatusScheduled, model.node(id(g, "Begin")).Status)
	assert.Equal(t, StatusScheduled, model.node(id(g, "Print")).Status)
	assert.Equal(t, StatusPruned, model.node(id(g, "Note")).Status)
	assert.Equal(t, [][]string{
		{id(g, "Begin"), id(g, "Add")},
		{id(g, "Print")},
	}, model.Levels)
}

func TestApplyCompile_Errors(t *testing.T) {
	g := buildGraph(t, `
name: broken
nodes:
  - {name: Go, class: Event, properties: {event_name: Go}}
  - {name: Call, class: FunctionCall}
links:
  - {from: Go.then, to: Call.execute}
`)
	model := compiled(t, g)

	call := model.node(id(g, "Call"))
	assert.Equal(t, StatusError, call.Status)
	require.NotEmpty(t, call.Notes)
	assert.Contains(t, call.Notes[0], "has no function name")
	assert.Empty(t, model.Levels)
}

func TestApplyDiff(t *testing.T) {
	old := buildGraph(t, mainDoc)
	cur := buildGraph(t, movedDoc)

	results := diff.NewResults()
	diff.NewControl(diff.FlagAll, diff.Additive, nil).DiffGraphs(old, cur, results)

	model := Build(cur)
	ApplyDiff(model, results.Records())
	assert.Equal(t, StatusAdded, model.node(id(cur, "Knot")).Status)
	assert.Equal(t, StatusChanged, model.node(id(cur, "Print")).Status)
	assert.Empty(t, model.node(id(cur, "Begin")).Status)

	results = diff.NewResults()
	diff.NewControl(diff.FlagExistence, diff.Additive, nil).DiffGraphs(cur, old, results)
	model = Build(old)
	ApplyDiff(model, results.Records())
	require.Len(t, model.Nodes, 5, "removed nodes are appended")
	assert.Equal(t, StatusRemoved, model.Nodes[4].Status)
	assert.Equal(t, "Reroute", model.Nodes[4].Label)
}

func TestRenderMermaid(t *testing.T) {
	g := buildGraph(t, mainDoc)
	out := RenderMermaid(compiled(t, g))

	begin, add, print := mermaidSafeID(id(g, "Begin")), mermaidSafeID(id(g, "Add")), mermaidSafeID(id(g, "Print"))
	assert.Contains(t, out, "graph LR\n")
	assert.Contains(t, out, "%% main")
	assert.Contains(t, out, begin+`(["Event BeginPlay"])`)
	assert.Contains(t, out, print+`["Print"]`)
	assert.Contains(t, out, begin+" ==> "+print)
	assert.Contains(t, out, add+" -.->|Value| "+print)
	assert.Contains(t, out, "class "+begin+" scheduled")
	assert.Contains(t, out, "class "+mermaidSafeID(id(g, "Note"))+" pruned")
}

func TestMermaidSafeID(t *testing.T) {
	assert.Equal(t, "n_0a1b_2c", mermaidSafeID("0a1b-2c"))
	assert.Equal(t, `say #quot;hi#quot;`, mermaidEscapeLabel(`say "hi"`))
}

func TestRenderASCII(t *testing.T) {
	g := buildGraph(t, mainDoc)
	out := RenderASCII(compiled(t, g))

	assert.Contains(t, out, "=== main ===")
	assert.Contains(t, out, "│ Event BeginPlay │")
	assert.Contains(t, out, "[OK]")
	assert.Contains(t, out, "▼")
	assert.Contains(t, out, "--- not scheduled ---\n  Comment [PRUNED]\n")
}

func TestRenderASCII_WithoutLevels(t *testing.T) {
	g := buildGraph(t, mainDoc)
	out := RenderASCII(Build(g))

	assert.NotContains(t, out, "not scheduled")
	assert.Equal(t, 3, bytes.Count([]byte(out), []byte("▼")), "one row per node")
}

func TestRenderImage(t *testing.T) {
	g := buildGraph(t, movedDoc)
	model := compiled(t, g)

	png, err := RenderImage(context.Background(), model, ImagePNG)
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])

	svg, err := RenderImage(context.Background(), model, ImageSVG)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	_, err = RenderImage(context.Background(), model, "gif")
	require.Error(t, err)
}

func TestRender(t *testing.T) {
	g := buildGraph(t, mainDoc)
	model := Build(g)

	out, err := Render(context.Background(), model, "")
	require.NoError(t, err)
	assert.Equal(t, RenderMermaid(model), string(out))

	out, err = Render(context.Background(), model, "ascii")
	require.NoError(t, err)
	assert.Equal(t, RenderASCII(model), string(out))

	_, err = Render(context.Background(), model, "jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
