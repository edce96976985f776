package compiler

import (
	"fmt"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// Follow decides whether a traversal crosses the links of p.
type Follow func(p *edgraph.Pin) bool

// FollowAll crosses every link in either direction.
func FollowAll(*edgraph.Pin) bool { return true }

// FollowExecDown crosses execution outputs only.
func FollowExecDown(p *edgraph.Pin) bool {
	return p.Direction == edgraph.Output && p.Type.IsExec()
}

// FollowDataUp crosses data inputs only.
func FollowDataUp(p *edgraph.Pin) bool {
	return p.Direction == edgraph.Input && !p.Type.IsExec()
}

type visit struct {
	node  *edgraph.Node
	depth int
}

// TraverseNodes walks depth first from roots across the links follow
// accepts and returns the set of reached nodes. It keeps an explicit stack,
// so graph depth never grows the call stack. A nil follow crosses every link.
func (c *Context) TraverseNodes(roots []*edgraph.Node, follow Follow) map[*edgraph.Node]bool {
	if follow == nil {
		follow = FollowAll
	}
	visited := make(map[*edgraph.Node]bool)
	stack := make([]visit, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, visit{node: roots[i]})
	}
	limited := false

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if v.node == nil || visited[v.node] {
			continue
		}
		visited[v.node] = true

		if max := c.Options.MaxTraversalDepth; max > 0 && v.depth >= max {
			if !limited {
				limited = true
				c.Log.Warning(fmt.Sprintf("Traversal stopped at depth %d beyond @@", max), v.node)
			}
			continue
		}

		pins := v.node.Pins
		for i := len(pins) - 1; i >= 0; i-- {
			p := pins[i]
			if p == nil || !follow(p) {
				continue
			}
			linked := p.LinkedTo()
			for j := len(linked) - 1; j >= 0; j-- {
				if linked[j] == nil {
					continue
				}
				if next := linked[j].OwningNode(); next != nil && !visited[next] {
					stack = append(stack, visit{node: next, depth: v.depth + 1})
				}
			}
		}
	}
	return visited
}

// PruneIsolatedNodes keeps the nodes reachable from roots, plus force-kept
// ones, in their original order. Every other node has its links broken and is
// returned in pruned. Nil slots are dropped.
func (c *Context) PruneIsolatedNodes(roots, nodes []*edgraph.Node) (kept, pruned []*edgraph.Node) {
	reached := c.TraverseNodes(roots, FollowAll)

	kept = make([]*edgraph.Node, 0, len(nodes))
	for _, n := range nodes {
		switch {
		case n == nil:
		case reached[n] || c.ShouldForceKeepNode(n):
			kept = append(kept, n)
		default:
			pruned = append(pruned, n)
		}
	}

	for _, n := range pruned {
		n.BreakAllNodeLinks()
		if len(n.Pins) > 0 {
			c.Log.NoteCode(edgraph.ErrCodePrunedNode, "@@ is not reachable and was pruned", n)
		}
	}
	return kept, pruned
}
