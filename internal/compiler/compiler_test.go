package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// --- helpers ---

// step is an exec node with one flow in and one flow out.
type step struct {
	class      string
	root       bool
	deprecated bool
	keep       bool
	comment    bool
	validate   func(n *edgraph.Node, log *MessageLog)
}

func (s *step) Class() string {
	if s.class == "" {
		return "Step"
	}
	return s.class
}
func (s *step) Title(n *edgraph.Node) string { return n.Name }
func (s *step) AllocateDefaultPins(n *edgraph.Node) {
	if s.comment {
		return
	}
	n.CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryExec), "execute")
	n.CreatePin(edgraph.Output, edgraph.TypeOf(edgraph.CategoryExec), "then")
}
func (s *step) IsEdgeSignificant(p *edgraph.Pin) bool {
	return p.Type.Category != edgraph.CategoryDelegate
}
func (s *step) IsRoot() bool                   { return s.root }
func (s *step) IsDeprecated() bool             { return s.deprecated }
func (s *step) ShouldWarnOnDeprecation() bool  { return true }
func (s *step) DeprecationMessage() string     { return "use Step" }
func (s *step) ShouldForceKeep() bool          { return s.keep }
func (s *step) IsIntermediateProduct() bool    { return s.comment }
func (s *step) ValidateNodeDuringCompilation(n *edgraph.Node, log *MessageLog) {
	if s.validate != nil {
		s.validate(n, log)
	}
}

// lateStep ignores its links until its first significance check has passed.
type lateStep struct {
	step
	checked bool
}

func (s *lateStep) IsEdgeSignificant(p *edgraph.Pin) bool {
	if !s.checked {
		s.checked = true
		return false
	}
	return s.step.IsEdgeSignificant(p)
}

func newCtx() *Context {
	return NewContext(nil, nil, Options{})
}

func addSteps(g *edgraph.Graph, names ...string) []*edgraph.Node {
	nodes := make([]*edgraph.Node, len(names))
	for i, name := range names {
		nodes[i] = g.CreateNode(&step{}, edgraph.WithName(name))
	}
	return nodes
}

func wire(t *testing.T, from, to *edgraph.Node) {
	t.Helper()
	require.NoError(t, from.Graph().MakeLink(from.FindPin("then", edgraph.Output), to.FindPin("execute", edgraph.Input)))
}

func names(nodes []*edgraph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func codes(log *MessageLog) []string {
	var out []string
	for _, m := range log.Messages() {
		out = append(out, m.Code)
	}
	return out
}

// --- scheduling ---

func TestCreateExecutionSchedule_LinearChain(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "N1", "N2", "N3")
	wire(t, n[0], n[1])
	wire(t, n[1], n[2])

	c := newCtx()
	sched := c.CreateExecutionSchedule(g.Nodes)

	assert.Equal(t, []string{"N1", "N2", "N3"}, names(sched))
	assert.Zero(t, c.Log.NumErrors())
}

func TestCreateExecutionSchedule_ReverseArrayOrder(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "N3", "N2", "N1")
	wire(t, n[2], n[1])
	wire(t, n[1], n[0])

	sched := newCtx().CreateExecutionSchedule(g.Nodes)
	assert.Equal(t, []string{"N1", "N2", "N3"}, names(sched))
}

func TestCreateExecutionSchedule_IndependentChainsFollowDiscoveryOrder(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "N1", "N2", "N3", "N4")
	wire(t, n[0], n[1])
	wire(t, n[2], n[3])

	c := newCtx()
	first := c.CreateExecutionSchedule(g.Nodes)
	second := c.CreateExecutionSchedule(g.Nodes)

	// Roots are seeded in array order, successors queue behind them.
	assert.Equal(t, []string{"N1", "N3", "N2", "N4"}, names(first))
	assert.Equal(t, names(first), names(second))
}

func TestCreateExecutionSchedule_InconsistentEdgeCount(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	a := g.CreateNode(&step{}, edgraph.WithName("A"))
	b := g.CreateNode(&lateStep{}, edgraph.WithName("B"))
	wire(t, a, b)

	c := newCtx()
	sched := c.CreateExecutionSchedule(g.Nodes)

	assert.Empty(t, sched)
	assert.Equal(t, []string{edgraph.ErrCodeScheduleInconsistent}, codes(c.Log))
	assert.Equal(t, 1, c.Log.NumErrors())
	require.Len(t, c.Log.Messages()[0].Refs, 1)
	assert.Equal(t, b.ID, c.Log.Messages()[0].Refs[0].NodeID)
}

func TestCreateExecutionSchedule_Cycle(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "N1", "N2", "N3")
	wire(t, n[0], n[1])
	wire(t, n[1], n[2])
	wire(t, n[2], n[0])

	c := newCtx()
	sched := c.CreateExecutionSchedule(g.Nodes)

	assert.Empty(t, sched)
	cycles := c.Log.WithCode(edgraph.ErrCodeCycleDetected)
	require.Len(t, cycles, 3)
	for i, m := range cycles {
		require.Len(t, m.Refs, 1)
		assert.Equal(t, n[i].ID, m.Refs[0].NodeID)
		assert.Contains(t, m.Text, n[i].Name)
	}
	assert.Equal(t, 3, c.Log.NumErrors())
}

func TestCreateExecutionSchedule_CycleBlocksDownstreamOnly(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "Free", "A", "B", "Tail")
	wire(t, n[1], n[2])
	wire(t, n[2], n[1])
	wire(t, n[2], n[3])

	c := newCtx()
	assert.Nil(t, c.CreateExecutionSchedule(g.Nodes))

	var stuck []string
	for _, m := range c.Log.WithCode(edgraph.ErrCodeCycleDetected) {
		stuck = append(stuck, m.Refs[0].Label)
	}
	assert.Equal(t, []string{"A", "B", "Tail"}, stuck)
}

func TestCreateExecutionSchedule_RespectsEveryEdge(t *testing.T) {
	// a -> b, a -> c, b -> d, c -> d, d -> e, with data edge c -> e
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "e", "d", "c", "b", "a")
	a, b, c, d, e := n[4], n[3], n[2], n[1], n[0]
	wire(t, a, b)
	require.NoError(t, g.MakeLink(a.FindPin("then", edgraph.Output), c.FindPin("execute", edgraph.Input)))
	wire(t, b, d)
	wire(t, c, d)
	wire(t, d, e)
	out := c.CreatePin(edgraph.Output, edgraph.TypeOf(edgraph.CategoryInt), "Value")
	in := e.CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryInt), "Value")
	require.NoError(t, g.MakeLink(out, in))

	ctx := newCtx()
	sched := ctx.CreateExecutionSchedule(g.Nodes)
	require.Len(t, sched, 5)

	pos := map[*edgraph.Node]int{}
	for i, node := range sched {
		pos[node] = i
	}
	for _, l := range g.Links() {
		p, q := g.FindPin(l.A), g.FindPin(l.B)
		if p.Direction == edgraph.Input {
			p, q = q, p
		}
		assert.Less(t, pos[p.OwningNode()], pos[q.OwningNode()], "%s must precede %s", p.OwningNode(), q.OwningNode())
	}
}

func TestCreateExecutionSchedule_IgnoresDelegateEdges(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "Binder", "Handler")
	del := n[1].CreatePin(edgraph.Output, edgraph.TypeOf(edgraph.CategoryDelegate), "Delegate")
	slot := n[0].CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryDelegate), "Event")
	require.NoError(t, g.MakeLink(del, slot))
	wire(t, n[0], n[1])

	assert.Equal(t, 0, CountIncomingEdges(n[0]))
	sched := newCtx().CreateExecutionSchedule(g.Nodes)
	assert.Equal(t, []string{"Binder", "Handler"}, names(sched))
}

func TestCountIncomingEdges(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "A", "B", "C")
	wire(t, n[0], n[2])
	wire(t, n[1], n[2])

	assert.Equal(t, 0, CountIncomingEdges(n[0]))
	assert.Equal(t, 2, CountIncomingEdges(n[2]))
}

func TestComputeLevels(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "a", "b", "c", "d")
	wire(t, n[0], n[1])
	wire(t, n[0], n[2])
	wire(t, n[1], n[3])
	require.NoError(t, g.MakeLink(n[2].FindPin("then", edgraph.Output), n[3].FindPin("execute", edgraph.Input)))

	levels := ComputeLevels(newCtx().CreateExecutionSchedule(g.Nodes))

	require.Len(t, levels, 3)
	assert.Equal(t, []string{"a"}, names(levels[0]))
	assert.Equal(t, []string{"b", "c"}, names(levels[1]))
	assert.Equal(t, []string{"d"}, names(levels[2]))
}

// --- validation ---

func TestValidate_DirectionMismatch(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "A", "B")
	// Bypass the schema: both ends are inputs.
	require.NoError(t, g.MakeLink(n[0].FindPin("execute", edgraph.Input), n[1].FindPin("execute", edgraph.Input)))

	c := newCtx()
	assert.False(t, c.ValidateGraphIsWellFormed(g))
	assert.Equal(t, []string{edgraph.ErrCodeDirectionMismatch}, codes(c.Log))
}

func TestValidate_SelfLoop(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "Loop")
	require.NoError(t, g.MakeLink(n[0].FindPin("then", edgraph.Output), n[0].FindPin("execute", edgraph.Input)))

	c := newCtx()
	assert.False(t, c.ValidateGraphIsWellFormed(g))
	msgs := c.Log.WithCode(edgraph.ErrCodeSelfLoop)
	require.Len(t, msgs, 1)
	assert.Len(t, msgs[0].Refs, 3)
	assert.Equal(t, n[0].ID, msgs[0].Refs[2].NodeID)
}

func TestValidate_WrongPinOwner(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "Owner", "Holder")
	stray := n[0].CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryInt), "Stray")
	n[1].Pins = append(n[1].Pins, stray)

	c := newCtx()
	assert.False(t, c.ValidateGraphIsWellFormed(g))
	msgs := c.Log.WithCode(edgraph.ErrCodeWrongPinOwner)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Refs, 3)
	assert.Equal(t, stray.ID, msgs[0].Refs[0].PinID)
	assert.Equal(t, n[1].ID, msgs[0].Refs[1].NodeID)
	assert.Equal(t, n[0].ID, msgs[0].Refs[2].NodeID)
}

func TestValidate_NullLink(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "A", "B")
	wire(t, n[0], n[1])
	g.RemoveNode(n[1])

	c := newCtx()
	assert.False(t, c.ValidateGraphIsWellFormed(g))
	assert.Equal(t, []string{edgraph.ErrCodeNullLink}, codes(c.Log))
}

func TestValidate_DropsHolesAndSucceeds(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "A", "B")
	wire(t, n[0], n[1])
	g.Nodes = []*edgraph.Node{nil, n[0], nil, nil, n[1], nil}

	c := newCtx()
	assert.True(t, c.ValidateGraphIsWellFormed(g))
	assert.Equal(t, []string{"A", "B"}, names(g.Nodes))
}

func TestValidate_JudgedByNetNewErrors(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	addSteps(g, "A")

	c := newCtx()
	c.Log.Error("earlier failure")
	assert.True(t, c.ValidateGraphIsWellFormed(g))
	assert.Equal(t, 1, c.Log.NumErrors())
}

func TestValidate_DeprecatedWarnsAndHookRuns(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	var hooked []string
	old := &step{class: "Old", deprecated: true}
	checked := &step{validate: func(n *edgraph.Node, log *MessageLog) {
		hooked = append(hooked, n.Name)
		log.Error("@@ has an incompatible signature", n)
	}}
	g.CreateNode(old, edgraph.WithName("Legacy"))
	g.CreateNode(checked, edgraph.WithName("Checked"))

	c := newCtx()
	assert.False(t, c.ValidateGraphIsWellFormed(g))
	assert.Equal(t, []string{"Checked"}, hooked)
	assert.Equal(t, 1, c.Log.NumWarnings())
	warn := c.Log.WithCode(edgraph.ErrCodeDeprecatedNode)
	require.Len(t, warn, 1)
	assert.Equal(t, "Legacy is deprecated: use Step", warn[0].Text)
	assert.Equal(t, 1, c.Log.NumErrors())
}

func TestFindNodeByClass_ReportsEveryDuplicate(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	first := g.CreateNode(&step{class: "Entry"}, edgraph.WithName("E1"))
	g.CreateNode(&step{class: "Entry"}, edgraph.WithName("E2"))
	g.CreateNode(&step{}, edgraph.WithName("Other"))
	g.CreateNode(&step{class: "Entry"}, edgraph.WithName("E3"))

	c := newCtx()
	assert.Same(t, first, c.FindNodeByClass(g, "Entry", true))
	dups := c.Log.WithCode(edgraph.ErrCodeDuplicateNode)
	require.Len(t, dups, 2)
	assert.Equal(t, "Expected only one Entry node, found both E1 and E2", dups[0].Text)
	assert.Equal(t, "Expected only one Entry node, found both E1 and E3", dups[1].Text)

	c = newCtx()
	assert.Same(t, first, c.FindNodeByClass(g, "Entry", false))
	assert.Zero(t, c.Log.NumErrors())
	assert.Nil(t, c.FindNodeByClass(g, "Missing", true))
}

// --- pruning ---

func TestPruneIsolatedNodes_KeepsOrder(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "Island", "Root", "Mid", "Lonely", "End")
	wire(t, n[1], n[2])
	wire(t, n[2], n[4])
	wire(t, n[0], n[3])

	c := newCtx()
	kept, pruned := c.PruneIsolatedNodes([]*edgraph.Node{n[1]}, g.Nodes)

	assert.Equal(t, []string{"Root", "Mid", "End"}, names(kept))
	assert.Equal(t, []string{"Island", "Lonely"}, names(pruned))
	assert.False(t, n[0].FindPin("then", edgraph.Output).HasAnyConnections())
	notes := c.Log.WithCode(edgraph.ErrCodePrunedNode)
	require.Len(t, notes, 2)
	for _, m := range notes {
		assert.Equal(t, SeverityNote, m.Severity)
	}
	assert.Zero(t, c.Log.NumErrors())
	assert.Zero(t, c.Log.NumWarnings())
}

func TestPruneIsolatedNodes_ForceKeep(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	root := g.CreateNode(&step{}, edgraph.WithName("Root"))
	g.CreateNode(&step{keep: true}, edgraph.WithName("Pinned"))
	g.CreateNode(&step{comment: true}, edgraph.WithName("Note"))

	kept, _ := newCtx().PruneIsolatedNodes([]*edgraph.Node{root}, g.Nodes)
	assert.Equal(t, []string{"Root", "Pinned"}, names(kept))

	c := NewContext(nil, nil, Options{SaveIntermediateProducts: true})
	kept, _ = c.PruneIsolatedNodes([]*edgraph.Node{root}, g.Nodes)
	assert.Equal(t, []string{"Root", "Pinned", "Note"}, names(kept))
}

func TestTraverseNodes_DeepChainAndDepthLimit(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	var chain []*edgraph.Node
	for i := 0; i < 2000; i++ {
		n := g.CreateNode(&step{})
		if i > 0 {
			wire(t, chain[i-1], n)
		}
		chain = append(chain, n)
	}

	c := newCtx()
	assert.Len(t, c.TraverseNodes(chain[:1], FollowExecDown), 2000)

	c = NewContext(nil, nil, Options{MaxTraversalDepth: 10})
	assert.Len(t, c.TraverseNodes(chain[:1], nil), 11)
	assert.Equal(t, 1, c.Log.NumWarnings())
}

func TestTraverseNodes_FollowFilters(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "A", "B", "C")
	wire(t, n[0], n[1])
	wire(t, n[1], n[2])

	c := newCtx()
	assert.Len(t, c.TraverseNodes(n[1:2], FollowExecDown), 2)
	assert.Len(t, c.TraverseNodes(n[1:2], FollowAll), 3)
	assert.Len(t, c.TraverseNodes(n[1:2], FollowDataUp), 1)
}

// --- compile ---

func TestCompile_FlattensPrunesAndSchedules(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	start := g.CreateNode(&step{root: true}, edgraph.WithName("Start"))
	orphan := g.CreateNode(&step{}, edgraph.WithName("Orphan"))
	sub := edgraph.NewGraph("collapsed", nil)
	g.AddSubGraph(sub)
	inner := sub.CreateNode(&step{}, edgraph.WithName("Inner"))
	innerNext := sub.CreateNode(&step{}, edgraph.WithName("InnerNext"))
	require.NoError(t, sub.MakeLink(inner.FindPin("then", edgraph.Output), innerNext.FindPin("execute", edgraph.Input)))

	// Cross-graph wiring happens after flattening in the editor; emulate it.
	c := newCtx()
	require.Equal(t, 2, c.FlattenSubGraphs(g))
	wire(t, start, inner)

	res := c.Compile(g, nil)

	require.True(t, res.Success, c.Log.Messages())
	assert.Equal(t, []string{"Start", "Inner", "InnerNext"}, names(res.Schedule))
	assert.Equal(t, []*edgraph.Node{orphan}, res.Pruned)
	assert.Len(t, res.Levels, 3)
	assert.Nil(t, orphan.Graph())
}

func TestCompile_ValidationFailureStops(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "Loop")
	require.NoError(t, g.MakeLink(n[0].FindPin("then", edgraph.Output), n[0].FindPin("execute", edgraph.Input)))

	c := newCtx()
	res := c.Compile(g, nil)
	assert.False(t, res.Success)
	assert.Empty(t, res.Schedule)
	assert.Error(t, c.Log.Err())
}

func TestCompile_CycleFails(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "N1", "N2")
	wire(t, n[0], n[1])
	wire(t, n[1], n[0])

	c := newCtx()
	res := c.Compile(g, nil)
	assert.False(t, res.Success)
	assert.Empty(t, res.Schedule)
	assert.Nil(t, res.Levels)
	assert.Len(t, c.Log.WithCode(edgraph.ErrCodeCycleDetected), 2)
}

// --- message log ---

func TestMessageLog_Substitution(t *testing.T) {
	g := edgraph.NewGraph("main", nil)
	n := addSteps(g, "Alpha", "Beta")
	pin := n[1].FindPin("execute", edgraph.Input)

	log := NewMessageLog(nil)
	log.Warning("@@ feeds @@ via @@", n[0], n[1], pin, "extra")
	log.Note("missing @@ and @@", n[0])

	msgs := log.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Alpha feeds Beta via pin 'execute' on node 'Beta'", msgs[0].Text)
	assert.Len(t, msgs[0].Refs, 4)
	assert.Equal(t, pin.ID, msgs[0].Refs[2].PinID)
	assert.Equal(t, n[1].ID, msgs[0].Refs[2].NodeID)
	assert.Equal(t, "missing Alpha and @@", msgs[1].Text)
	assert.Equal(t, SeverityNote, msgs[1].Severity)
	assert.Zero(t, log.NumErrors())
	assert.NoError(t, log.Err())
}

func TestMessageLog_Err(t *testing.T) {
	log := NewMessageLog(nil)
	log.Error("first")
	log.Warning("ignored")
	log.ErrorCode(edgraph.ErrCodeSelfLoop, "second")

	err := log.Err()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "[VALIDATION_ERROR] first"))
	assert.True(t, strings.Contains(err.Error(), "[SELF_LOOP] second"))
	assert.Equal(t, 2, log.NumErrors())
}
