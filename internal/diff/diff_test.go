package diff

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// --- helpers ---

type fakeNode struct {
	class string
	title string

	FunctionName string   `edgraph:"edit"`
	Scale        float64  `edgraph:"edit"`
	Tags         []string `edgraph:"edit"`
	OnDone       func()   `edgraph:"edit"`
	Internal     string
}

func (f *fakeNode) Class() string {
	if f.class == "" {
		return "Fake"
	}
	return f.class
}
func (f *fakeNode) Title(*edgraph.Node) string          { return f.title }
func (f *fakeNode) AllocateDefaultPins(*edgraph.Node)   {}
func (f *fakeNode) IsEdgeSignificant(*edgraph.Pin) bool { return true }

// countingNode records how often its custom differ runs.
type countingNode struct {
	fakeNode
	calls *int
}

func (c *countingNode) FindDiffs(lhs, rhs *edgraph.Node, results *Results) {
	*c.calls++
}

func add(g *edgraph.Graph, title string) *edgraph.Node {
	return g.CreateNode(&fakeNode{title: title}, edgraph.WithName(title))
}

func intPin(n *edgraph.Node, dir edgraph.Direction, name string) *edgraph.Pin {
	return n.CreatePin(dir, edgraph.TypeOf(edgraph.CategoryInt), name)
}

func diffAll(lhs, rhs *edgraph.Graph) *Results {
	res := NewResults()
	NewControl(FlagAll, Additive, nil).DiffGraphs(lhs, rhs, res)
	return res
}

func kinds(res *Results) []Kind {
	var out []Kind
	for _, r := range res.Records() {
		out = append(out, r.Kind)
	}
	return out
}

// sampleGraph has three linked nodes with pins, defaults and properties.
func sampleGraph(t *testing.T) *edgraph.Graph {
	t.Helper()
	g := edgraph.NewGraph("main", nil)
	a := g.CreateNode(&fakeNode{title: "Begin", FunctionName: "Start", Scale: 0.5}, edgraph.WithName("A"), edgraph.AtPosition(0, 0))
	b := g.CreateNode(&fakeNode{title: "Add", Tags: []string{"math"}}, edgraph.WithName("B"), edgraph.AtPosition(200, 0))
	c := g.CreateNode(&fakeNode{title: "Print"}, edgraph.WithName("C"), edgraph.WithComment("log it"))
	out := intPin(a, edgraph.Output, "Out")
	in := intPin(b, edgraph.Input, "In")
	in.DefaultValue = "3"
	sum := intPin(b, edgraph.Output, "Sum")
	msg := intPin(c, edgraph.Input, "Message")
	require.NoError(t, g.MakeLink(out, in))
	require.NoError(t, g.MakeLink(sum, msg))
	intPin(c, edgraph.Input, "Count").DefaultValue = "1"
	return g
}

// --- graph level ---

func TestDiffGraphs_CloneHasNoDifferences(t *testing.T) {
	g := sampleGraph(t)
	g.AddSubGraph(edgraph.NewGraph("inner", nil))
	add(g.SubGraphs[0], "Nested")

	res := NewResults()
	found := NewControl(FlagAll, Additive, nil).DiffGraphs(g, g.Clone(), res)

	assert.False(t, found)
	assert.Zero(t, res.Len())
	assert.False(t, res.HasFoundDiffs())
}

func TestDiffGraphs_RemovedAndAddedAreMirrored(t *testing.T) {
	lhs := sampleGraph(t)
	x := add(lhs, "Extra")
	rhs := lhs.Clone()
	require.True(t, rhs.DestroyNode(rhs.FindNode(x.ID)))

	res := diffAll(lhs, rhs)
	require.Equal(t, []Kind{NodeRemoved}, kinds(res))
	assert.Same(t, x, res.Records()[0].Node1)
	assert.Equal(t, "Removed Node: Extra", res.Records()[0].DisplayString)
	assert.Equal(t, "main", res.Records()[0].GraphName)

	res = diffAll(rhs, lhs)
	require.Equal(t, []Kind{NodeAdded}, kinds(res))
	assert.Same(t, x, res.Records()[0].Node2)
}

func TestDiffGraphs_SubtractivePhrasing(t *testing.T) {
	lhs := sampleGraph(t)
	x := add(lhs, "Extra")
	rhs := lhs.Clone()
	rhs.DestroyNode(rhs.FindNode(x.ID))

	res := NewResults()
	NewControl(FlagAll, Subtractive, nil).DiffGraphs(lhs, rhs, res)
	require.Equal(t, 1, res.Len())
	assert.Equal(t, NodeRemoved, res.Records()[0].Kind)
	assert.Equal(t, "Missing Node: Extra", res.Records()[0].DisplayString)
}

func TestDiffGraphs_BooleanModeStopsEarly(t *testing.T) {
	calls := 0
	build := func() *edgraph.Graph {
		g := edgraph.NewGraph("main", nil)
		for i := 0; i < 5; i++ {
			g.CreateNode(&countingNode{fakeNode: fakeNode{title: "N"}, calls: &calls}, edgraph.WithName(string(rune('a'+i))))
		}
		return g
	}
	lhs := build()
	rhs := lhs.Clone()
	for _, n := range rhs.Nodes {
		n.PosX += 10
	}

	res := NewBooleanResults()
	found := NewControl(FlagAll, Additive, nil).DiffGraphs(lhs, rhs, res)
	assert.True(t, found)
	assert.True(t, res.HasFoundDiffs())
	assert.False(t, res.CanStoreResults())
	assert.Zero(t, res.Len())
	assert.Zero(t, calls)

	res = NewResults()
	NewControl(FlagAll, Additive, nil).DiffGraphs(lhs, rhs, res)
	assert.Len(t, res.OfKind(NodeMoved), 5)
	assert.Equal(t, 5, calls)
}

func TestDiffGraphs_IntraAssetMatchesByName(t *testing.T) {
	lhs := sampleGraph(t)
	rhs := lhs.Clone()
	for _, n := range rhs.Nodes {
		n.ID = uuid.New()
	}

	assert.Zero(t, diffAll(lhs, rhs).Len())
}

func TestDiffGraphs_CrossAssetMatchesByTitle(t *testing.T) {
	lhs := edgraph.NewGraph("left", nil)
	add(lhs, "Print")
	add(lhs, "Add")
	rhs := edgraph.NewGraph("right", nil)
	add(rhs, "Add")
	add(rhs, "Print")
	add(rhs, "Print")

	res := diffAll(lhs, rhs)
	// The second Print finds its only candidate already claimed.
	require.Equal(t, []Kind{NodeAdded}, kinds(res))
	assert.Same(t, rhs.Nodes[2], res.Records()[0].Node2)
	assert.Equal(t, "right", res.Records()[0].GraphName)
}

func TestDiffGraphs_ReplacedClassIsAddAndRemove(t *testing.T) {
	lhs := edgraph.NewGraph("main", nil)
	n := add(lhs, "Thing")
	rhs := lhs.Clone()
	rhs.Nodes[0].Behavior = &fakeNode{class: "Other", title: "Thing"}

	res := diffAll(lhs, rhs)
	assert.Equal(t, []Kind{NodeAdded, NodeRemoved}, kinds(res))
	assert.Same(t, n, res.Records()[1].Node1)
}

func TestDiffGraphs_SubGraphsByName(t *testing.T) {
	lhs := sampleGraph(t)
	inner := edgraph.NewGraph("inner", nil)
	lhs.AddSubGraph(inner)
	gone := add(inner, "Nested")
	rhs := lhs.Clone()
	rhs.SubGraphs[0].DestroyNode(rhs.SubGraphs[0].FindNode(gone.ID))
	rhs.AddSubGraph(edgraph.NewGraph("fresh", nil))
	add(rhs.SubGraphs[1], "Brand New")

	res := diffAll(lhs, rhs)
	require.Equal(t, []Kind{NodeRemoved, NodeAdded}, kinds(res))
	assert.Equal(t, "inner", res.Records()[0].GraphName)
	assert.Equal(t, "fresh", res.Records()[1].GraphName)
}

func TestDiffGraphs_NilSide(t *testing.T) {
	g := sampleGraph(t)
	res := diffAll(nil, g)
	assert.Len(t, res.OfKind(NodeAdded), 3)
	res = diffAll(g, nil)
	assert.Len(t, res.OfKind(NodeRemoved), 3)
}

// --- matching ---

func TestIsNodeMatch_Priorities(t *testing.T) {
	left := edgraph.NewGraph("left", nil)
	right := edgraph.NewGraph("right", nil)
	a := add(left, "Print")
	b := add(right, "Print")
	c := add(right, "Print")
	other := right.CreateNode(&fakeNode{class: "Other", title: "Print"})

	assert.True(t, IsNodeMatch(a, b, nil))
	assert.False(t, IsNodeMatch(a, other, nil), "class differs")
	assert.False(t, IsNodeMatch(a, nil, nil))

	prior := []Match{{Old: a, New: c}}
	assert.False(t, IsNodeMatch(a, b, prior), "a is already matched to c")
	assert.True(t, IsNodeMatch(a, c, prior))

	// Identical IDs win over everything but class.
	twin := edgraph.NewNode(&fakeNode{title: "Renamed"}, edgraph.WithNodeID(a.ID))
	assert.True(t, IsNodeMatch(a, twin, prior))
}

func TestIsNodeMatch_SameLineageUsesName(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	a := g.CreateNode(&fakeNode{title: "Same"}, edgraph.WithName("First"))
	b := g.CreateNode(&fakeNode{title: "Same"}, edgraph.WithName("Second"))
	clone := g.Clone()
	clone.Nodes[0].ID = uuid.New()

	assert.False(t, IsNodeMatch(a, b, nil))
	assert.True(t, IsNodeMatch(a, clone.Nodes[0], nil))
	assert.False(t, IsNodeMatch(b, clone.Nodes[0], nil))
}

func TestFindNodeMatch_FirstWins(t *testing.T) {
	left := edgraph.NewGraph("left", nil)
	right := edgraph.NewGraph("right", nil)
	a := add(left, "Print")
	first := add(right, "Print")
	add(right, "Print")

	assert.Same(t, first, FindNodeMatch(right, a, nil))
	assert.Nil(t, FindNodeMatch(right, add(left, "Missing"), nil))
	assert.Nil(t, FindNodeMatch(nil, a, nil))
}

// --- node level ---

func TestDiffNodes_CommentMoveAndFlags(t *testing.T) {
	lhs := sampleGraph(t)
	rhs := lhs.Clone()
	rhs.Nodes[2].Comment = "print it"
	rhs.Nodes[0].PosY = 40

	res := diffAll(lhs, rhs)
	assert.Equal(t, []Kind{NodeMoved, NodeComment}, kinds(res))
	assert.Equal(t, "Comment changed from 'log it' to 'print it'", res.Records()[1].ToolTip)

	res = NewResults()
	NewControl(FlagMovement, Additive, nil).DiffGraphs(lhs, rhs, res)
	assert.Equal(t, []Kind{NodeMoved}, kinds(res))
}

func TestDiffPins_TypeCategoryChangeOnly(t *testing.T) {
	lhs := edgraph.NewGraph("main", nil)
	n := add(lhs, "Convert")
	intPin(n, edgraph.Input, "Value")
	rhs := lhs.Clone()
	rhs.Nodes[0].Pins[0].Type.Category = edgraph.CategoryFloat

	res := diffAll(lhs, rhs)
	require.Equal(t, []Kind{PinTypeCategory}, kinds(res))
	rec := res.Records()[0]
	assert.Equal(t, "Value", rec.Pin2.Name)
	assert.Equal(t, "Pin Type Changed: Value", rec.DisplayString)
}

func TestDiffPins_FirstTypeAspectOnly(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*edgraph.PinType)
		want   Kind
	}{
		{"subcategory beats container", func(pt *edgraph.PinType) {
			pt.SubCategory = "byte"
			pt.ContainerType = edgraph.ContainerArray
		}, PinTypeSubCategory},
		{"object", func(pt *edgraph.PinType) { pt.SubCategoryObject = "Actor" }, PinTypeSubCategoryObject},
		{"container beats reference", func(pt *edgraph.PinType) {
			pt.ContainerType = edgraph.ContainerSet
			pt.IsReference = true
		}, PinTypeContainer},
		{"reference", func(pt *edgraph.PinType) { pt.IsReference = true }, PinTypeIsReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lhs := edgraph.NewGraph("main", nil)
			intPin(add(lhs, "N"), edgraph.Input, "Value")
			rhs := lhs.Clone()
			tt.mutate(&rhs.Nodes[0].Pins[0].Type)

			assert.Equal(t, []Kind{tt.want}, kinds(diffAll(lhs, rhs)))
		})
	}
}

func TestDiffPins_CombinedPinCountRecord(t *testing.T) {
	lhs := edgraph.NewGraph("main", nil)
	n := add(lhs, "Make")
	for _, name := range []string{"a", "b", "c"} {
		intPin(n, edgraph.Input, name)
	}
	rhs := lhs.Clone()
	rn := rhs.Nodes[0]
	rn.RemovePin(rn.FindPin("b", edgraph.Input))
	intPin(rn, edgraph.Input, "d")
	intPin(rn, edgraph.Input, "e")

	res := diffAll(lhs, rhs)
	require.Equal(t, []Kind{NodePinCount}, kinds(res))
	assert.Equal(t, "Added Pins d, e and removed Pin b", res.Records()[0].DisplayString)
}

func TestDiffPins_EqualCountsPairByIndex(t *testing.T) {
	lhs := edgraph.NewGraph("main", nil)
	n := add(lhs, "Make")
	intPin(n, edgraph.Input, "a")
	intPin(n, edgraph.Input, "b")
	rhs := lhs.Clone()
	rhs.Nodes[0].Pins[1].Name = "c"

	assert.Zero(t, diffAll(lhs, rhs).Len(), "a rename alone is not a change")

	rhs.Nodes[0].Pins[1].Type.Category = edgraph.CategoryFloat
	res := diffAll(lhs, rhs)
	require.Equal(t, []Kind{PinTypeCategory}, kinds(res))
	assert.Equal(t, "b", res.Records()[0].Pin1.Name)
	assert.Equal(t, "c", res.Records()[0].Pin2.Name)
}

func TestDiffPins_CountDisplayPluralized(t *testing.T) {
	lhs := edgraph.NewGraph("main", nil)
	intPin(add(lhs, "Make"), edgraph.Input, "a")
	rhs := lhs.Clone()
	intPin(rhs.Nodes[0], edgraph.Input, "b")
	intPin(rhs.Nodes[0], edgraph.Input, "c")

	res := diffAll(lhs, rhs)
	require.Equal(t, 1, res.Len())
	assert.Equal(t, "Added Pins b, c", res.Records()[0].DisplayString)

	res = diffAll(rhs, lhs)
	assert.Equal(t, "Removed Pins b, c", res.Records()[0].DisplayString)
}

func TestDiffPins_HiddenPinsIgnored(t *testing.T) {
	lhs := edgraph.NewGraph("main", nil)
	intPin(add(lhs, "N"), edgraph.Input, "Secret").Hidden = true
	rhs := lhs.Clone()
	rhs.Nodes[0].Pins[0].Type.Category = edgraph.CategoryString
	intPin(rhs.Nodes[0], edgraph.Input, "AlsoSecret").Hidden = true

	assert.Zero(t, diffAll(lhs, rhs).Len())
}

func TestDiffPins_Relinked(t *testing.T) {
	lhs := edgraph.NewGraph("main", nil)
	src := add(lhs, "Src")
	out := intPin(src, edgraph.Output, "Out")
	t1 := intPin(add(lhs, "T1"), edgraph.Input, "In")
	intPin(add(lhs, "T2"), edgraph.Input, "In")
	require.NoError(t, lhs.MakeLink(out, t1))

	rhs := lhs.Clone()
	rOut := rhs.Nodes[0].Pins[0]
	rOut.BreakAllPinLinks(false)
	require.NoError(t, rhs.MakeLink(rOut, rhs.Nodes[2].Pins[0]))

	res := diffAll(lhs, rhs)
	relinked := res.OfKind(PinNewConnection)
	require.Len(t, relinked, 1)
	assert.Equal(t, "T1", relinked[0].Node1.Name)
	assert.Equal(t, "T2", relinked[0].Node2.Name)
	assert.Len(t, res.OfKind(PinLinkCountDecreased), 1)
	assert.Len(t, res.OfKind(PinLinkCountIncreased), 1)
}

func TestDiffPins_ReorderedLinksMatchByNode(t *testing.T) {
	lhs := edgraph.NewGraph("main", nil)
	src := add(lhs, "Src")
	exec := src.CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryExec), "execute")
	a := add(lhs, "A").CreatePin(edgraph.Output, edgraph.TypeOf(edgraph.CategoryExec), "then")
	b := add(lhs, "B").CreatePin(edgraph.Output, edgraph.TypeOf(edgraph.CategoryExec), "then")
	require.NoError(t, lhs.MakeLink(exec, a))
	require.NoError(t, lhs.MakeLink(exec, b))

	rhs := lhs.Clone()
	rExec := rhs.Nodes[0].Pins[0]
	rExec.BreakAllPinLinks(false)
	require.NoError(t, rhs.MakeLink(rExec, rhs.Nodes[2].Pins[0]))
	require.NoError(t, rhs.MakeLink(rExec, rhs.Nodes[1].Pins[0]))

	assert.Zero(t, diffAll(lhs, rhs).Len())
}

func TestDiffPins_DefaultValues(t *testing.T) {
	lhs := edgraph.NewGraph("main", nil)
	n := add(lhs, "N")
	n.CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryFloat), "Alpha", edgraph.WithDefault("0.0"))
	n.CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryString), "Label", edgraph.WithDefault("hi"))

	rhs := lhs.Clone()
	rhs.Nodes[0].Pins[0].DefaultValue = "0.00"
	assert.Zero(t, diffAll(lhs, rhs).Len(), "formatting noise is not a change")

	rhs.Nodes[0].Pins[1].DefaultValue = "bye"
	res := diffAll(lhs, rhs)
	require.Equal(t, []Kind{PinDefaultValue}, kinds(res))
	assert.Equal(t, "Pin 'Label' default value changed from 'hi' to 'bye'", res.Records()[0].ToolTip)
}

func TestDiffPins_TypeAndDefaultBothReported(t *testing.T) {
	lhs := edgraph.NewGraph("main", nil)
	add(lhs, "N").CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryInt), "Value", edgraph.WithDefault("1"))
	rhs := lhs.Clone()
	p := rhs.Nodes[0].Pins[0]
	p.Type.Category = edgraph.CategoryFloat
	p.DefaultValue = "2.5"

	assert.Equal(t, []Kind{PinTypeCategory, PinDefaultValue}, kinds(diffAll(lhs, rhs)))
}

func TestDiffPins_DefaultIgnoredWhenLinked(t *testing.T) {
	lhs := sampleGraph(t)
	rhs := lhs.Clone()
	rhs.FindNodeByName("B").FindPin("In", edgraph.Input).DefaultValue = "99"
	assert.Zero(t, diffAll(lhs, rhs).Len())

	rhs.FindNodeByName("C").FindPin("Count", edgraph.Input).DefaultValue = "2"
	assert.Equal(t, []Kind{PinDefaultValue}, kinds(diffAll(lhs, rhs)))
}

// --- properties ---

func TestDefaultPropertyDiff(t *testing.T) {
	lhs := sampleGraph(t)
	rhs := lhs.Clone()
	// Behaviours are shared by clones; give the copy its own.
	orig := lhs.Nodes[0].Behavior.(*fakeNode)
	changed := *orig
	changed.Scale = 1.50
	changed.Internal = "not compared"
	changed.OnDone = func() {}
	rhs.Nodes[0].Behavior = &changed

	res := diffAll(lhs, rhs)
	require.Equal(t, []Kind{NodeProperty}, kinds(res))
	assert.Equal(t, "Property Changed: Scale", res.Records()[0].DisplayString)
	assert.Equal(t, "Property 'Scale' on 'Begin' changed from '0.5' to '1.5'", res.Records()[0].ToolTip)
}

func TestDefaultPropertyDiff_Slices(t *testing.T) {
	lhs := sampleGraph(t)
	rhs := lhs.Clone()
	changed := *lhs.Nodes[1].Behavior.(*fakeNode)
	changed.Tags = []string{"math", "fast"}
	rhs.Nodes[1].Behavior = &changed

	res := NewResults()
	assert.True(t, DefaultPropertyDiff(lhs.Nodes[1], rhs.Nodes[1], res))
	assert.Contains(t, res.Records()[0].ToolTip, `from '["math"]' to '["math","fast"]'`)
}

func TestDiffNodes_CustomDiffer(t *testing.T) {
	calls := 0
	lhs := edgraph.NewGraph("main", nil)
	lhs.CreateNode(&countingNode{fakeNode: fakeNode{title: "C", Scale: 1}, calls: &calls})
	rhs := lhs.Clone()
	rhs.Nodes[0].Behavior = &countingNode{fakeNode: fakeNode{title: "C", Scale: 2}, calls: &calls}

	assert.Zero(t, diffAll(lhs, rhs).Len())
	assert.Equal(t, 1, calls)
}

// --- flags and views ---

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags("existence, pins")
	require.NoError(t, err)
	assert.Equal(t, FlagExistence|FlagPins, f)
	assert.Equal(t, "existence,pins", f.String())

	f, err = ParseFlags("")
	require.NoError(t, err)
	assert.Equal(t, FlagAll, f)
	assert.Equal(t, "all", f.String())

	_, err = ParseFlags("colour")
	assert.Error(t, err)
}

func TestRecordView(t *testing.T) {
	lhs := edgraph.NewGraph("main", nil)
	intPin(add(lhs, "Convert"), edgraph.Input, "Value")
	rhs := lhs.Clone()
	rhs.Nodes[0].Pins[0].Type.Category = edgraph.CategoryFloat

	res := diffAll(lhs, rhs)
	v := res.Records()[0].View()
	assert.Equal(t, PinTypeCategory, v.Kind)
	assert.Equal(t, "main", v.Graph)
	assert.Equal(t, rhs.Nodes[0].ID, v.Node2ID)
	assert.Equal(t, "Value", v.Pin1Name)
	assert.Equal(t, PinTypeCategory.Color(), v.Color)
	assert.Equal(t, map[Kind]int{PinTypeCategory: 1}, res.Summary())
}
