package compiler

import (
	"github.com/google/uuid"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// ValidateGraphIsWellFormed drops nil node slots, then checks every node,
// pin and link. It reports success when it logged no new errors; errors
// already in the log from earlier passes do not count against it.
func (c *Context) ValidateGraphIsWellFormed(g *edgraph.Graph) bool {
	before := c.Log.NumErrors()
	seen := make(map[[2]uuid.UUID]bool)

	for i := 0; i < len(g.Nodes); {
		n := g.Nodes[i]
		if n == nil {
			g.Nodes = append(g.Nodes[:i], g.Nodes[i+1:]...)
			c.Logger.Debug("dropped null node slot", "graph", g.Name, "index", i)
			continue
		}
		c.validateNode(n, seen)
		i++
	}
	return c.Log.NumErrors() == before
}

func (c *Context) validateNode(n *edgraph.Node, seen map[[2]uuid.UUID]bool) {
	if d, ok := n.Behavior.(Deprecated); ok && d.IsDeprecated() && d.ShouldWarnOnDeprecation() {
		msg := "@@ is deprecated"
		if extra := d.DeprecationMessage(); extra != "" {
			msg += ": " + extra
		}
		c.Log.WarningCode(edgraph.ErrCodeDeprecatedNode, msg, n)
	}

	for _, p := range n.Pins {
		if p == nil {
			continue
		}
		if p.OwningNode() != n {
			c.Log.ErrorCode(edgraph.ErrCodeWrongPinOwner,
				"@@ is listed on @@ but owned by @@", p, n, p.OwningNode())
			continue
		}
		for _, other := range p.LinkedTo() {
			if other == nil {
				c.Log.ErrorCode(edgraph.ErrCodeNullLink, "@@ has a link to a missing pin", p)
				continue
			}
			key := linkKey(p.ID, other.ID)
			if seen[key] {
				continue
			}
			seen[key] = true
			c.ValidateLink(p, other)
		}
	}

	if v, ok := n.Behavior.(NodeValidator); ok {
		v.ValidateNodeDuringCompilation(n, c.Log)
	}
}

func linkKey(a, b uuid.UUID) [2]uuid.UUID {
	if a.String() > b.String() {
		a, b = b, a
	}
	return [2]uuid.UUID{a, b}
}

// ValidateLink checks one link: one end must be an input, the other an
// output, and the ends must sit on different nodes.
func (c *Context) ValidateLink(p, other *edgraph.Pin) {
	if p.Direction == other.Direction {
		c.Log.ErrorCode(edgraph.ErrCodeDirectionMismatch,
			"Direction mismatch between @@ and @@", p, other)
	}
	if p.OwningNode() == other.OwningNode() {
		c.Log.ErrorCode(edgraph.ErrCodeSelfLoop,
			"@@ is linked to @@ on the same node @@", p, other, p.OwningNode())
	}
}

// FindNodeByClass returns the first node of class. With expectUnique every
// further match is reported as an error.
func (c *Context) FindNodeByClass(g *edgraph.Graph, class string, expectUnique bool) *edgraph.Node {
	var found *edgraph.Node
	for _, n := range g.Nodes {
		if n == nil || n.Class() != class {
			continue
		}
		if found == nil {
			found = n
			continue
		}
		if expectUnique {
			c.Log.ErrorCode(edgraph.ErrCodeDuplicateNode,
				"Expected only one "+class+" node, found both @@ and @@", found, n)
		}
	}
	return found
}
