package compiler

import (
	"time"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// Result is the outcome of a compilation pass.
type Result struct {
	Schedule []*edgraph.Node
	Levels   [][]*edgraph.Node
	Pruned   []*edgraph.Node
	Success  bool
}

// FlattenSubGraphs moves the nodes of every nested graph into g, innermost
// first, and returns how many nodes moved.
func (c *Context) FlattenSubGraphs(g *edgraph.Graph) int {
	moved := 0
	for _, sub := range g.SubGraphs {
		moved += c.FlattenSubGraphs(sub)
		nodes := make([]*edgraph.Node, 0, len(sub.Nodes))
		for _, n := range sub.Nodes {
			if n != nil {
				nodes = append(nodes, n)
			}
		}
		sub.MoveNodesTo(g, nodes)
		moved += len(nodes)
	}
	g.SubGraphs = nil
	return moved
}

// Compile runs the full pass over g: flatten nested graphs, validate, prune
// nodes unreachable from roots, schedule and group into levels. The graph is
// consumed: compile a Clone to keep the original intact. A nil roots slice
// selects the nodes whose behaviour reports IsRoot; with no roots at all
// nothing is pruned.
func (c *Context) Compile(g *edgraph.Graph, roots []*edgraph.Node) *Result {
	start := time.Now()
	before := c.Log.NumErrors()
	res := &Result{}
	logger := c.Logger.With("graph", g.Name)

	if moved := c.FlattenSubGraphs(g); moved > 0 {
		logger.Debug("flattened nested graphs", "nodes", moved)
	}

	if !c.ValidateGraphIsWellFormed(g) {
		logger.Info("compile failed validation", "errors", c.Log.NumErrors()-before)
		return res
	}

	if roots == nil {
		roots = FindRoots(g)
	}
	if len(roots) > 0 {
		kept, pruned := c.PruneIsolatedNodes(roots, g.Nodes)
		for _, n := range pruned {
			g.RemoveNode(n)
		}
		g.Nodes = kept
		res.Pruned = pruned
	} else {
		logger.Debug("no root nodes, skipping prune")
	}

	res.Schedule = c.CreateExecutionSchedule(g.Nodes)
	if res.Schedule != nil {
		res.Levels = ComputeLevels(res.Schedule)
	}
	res.Success = c.Log.NumErrors() == before

	logger.Info("compile finished",
		"success", res.Success,
		"scheduled", len(res.Schedule),
		"pruned", len(res.Pruned),
		"errors", c.Log.NumErrors()-before,
		"warnings", c.Log.NumWarnings(),
		"duration", time.Since(start),
	)
	return res
}
