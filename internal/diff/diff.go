package diff

import (
	"log/slog"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// NodeDiffer replaces the default property comparison for a node kind.
type NodeDiffer interface {
	FindDiffs(lhs, rhs *edgraph.Node, results *Results)
}

// Control runs comparisons with a fixed set of flags.
type Control struct {
	Flags  Flags
	Mode   Mode
	Logger *slog.Logger
}

// NewControl returns a Control checking the categories in flags.
func NewControl(flags Flags, mode Mode, logger *slog.Logger) *Control {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Control{Flags: flags, Mode: mode, Logger: logger}
}

func (c *Control) enabled(f Flags) bool {
	return c.Flags&f != 0
}

// DiffGraphs compares lhs (old) with rhs (new) and reports whether it found
// any difference. Nested graphs are compared pairwise by name. Either graph
// may be nil, which reads as an empty graph.
func (c *Control) DiffGraphs(lhs, rhs *edgraph.Graph, results *Results) bool {
	before := results.total
	from := results.Len()
	name := graphName(lhs, rhs)

	var matches []Match
	claimed := make(map[*edgraph.Node]bool)
	for _, n := range nodesOf(rhs) {
		if results.done() {
			break
		}
		if n == nil {
			continue
		}
		old := findUnclaimed(lhs, n, matches, claimed)
		if old == nil {
			if c.enabled(FlagExistence) {
				results.Add(c.missingNode(NodeAdded, n))
			}
			continue
		}
		claimed[old] = true
		matches = append(matches, Match{Old: old, New: n})
		c.DiffNodes(old, n, results)
	}

	for _, n := range nodesOf(lhs) {
		if results.done() {
			break
		}
		if n == nil || claimed[n] {
			continue
		}
		if FindNodeMatch(rhs, n, matches) == nil && c.enabled(FlagExistence) {
			results.Add(c.missingNode(NodeRemoved, n))
		}
	}

	if !results.done() {
		c.diffSubGraphs(lhs, rhs, results)
	}
	results.stampGraph(from, name)

	found := results.total > before
	c.Logger.Debug("graphs compared", "graph", name, "matches", len(matches), "differences", results.total-before)
	return found
}

func (c *Control) diffSubGraphs(lhs, rhs *edgraph.Graph, results *Results) {
	var lsubs, rsubs []*edgraph.Graph
	if lhs != nil {
		lsubs = lhs.SubGraphs
	}
	if rhs != nil {
		rsubs = rhs.SubGraphs
	}
	used := make(map[*edgraph.Graph]bool)
	for _, r := range rsubs {
		if results.done() {
			return
		}
		var l *edgraph.Graph
		for _, cand := range lsubs {
			if !used[cand] && cand.Name == r.Name {
				l = cand
				break
			}
		}
		if l != nil {
			used[l] = true
		}
		c.DiffGraphs(l, r, results)
	}
	for _, l := range lsubs {
		if results.done() {
			return
		}
		if !used[l] {
			c.DiffGraphs(l, nil, results)
		}
	}
}

func nodesOf(g *edgraph.Graph) []*edgraph.Node {
	if g == nil {
		return nil
	}
	return g.Nodes
}

func graphName(lhs, rhs *edgraph.Graph) string {
	if rhs != nil && rhs.Name != "" {
		return rhs.Name
	}
	if lhs != nil {
		return lhs.Name
	}
	return ""
}

// DiffNodes compares a matched pair of nodes in the categories enabled by the
// flags and reports whether anything differed.
func (c *Control) DiffNodes(lhs, rhs *edgraph.Node, results *Results) bool {
	before := results.total

	if c.enabled(FlagComment) && lhs.Comment != rhs.Comment {
		results.Add(Record{
			Kind:          NodeComment,
			Node1:         lhs,
			Node2:         rhs,
			DisplayString: "Comment Changed: " + rhs.Title(),
			ToolTip:       "Comment changed from '" + lhs.Comment + "' to '" + rhs.Comment + "'",
		})
	}
	if results.done() {
		return true
	}

	if c.enabled(FlagMovement) && (lhs.PosX != rhs.PosX || lhs.PosY != rhs.PosY) {
		results.Add(Record{
			Kind:          NodeMoved,
			Node1:         lhs,
			Node2:         rhs,
			DisplayString: "Moved Node: " + rhs.Title(),
			ToolTip:       "Node '" + rhs.Title() + "' moved",
		})
	}
	if results.done() {
		return true
	}

	if c.enabled(FlagPins) {
		c.DiffPins(lhs, rhs, results)
	}
	if results.done() {
		return true
	}

	if c.enabled(FlagNodeSpecific) {
		if d, ok := rhs.Behavior.(NodeDiffer); ok {
			d.FindDiffs(lhs, rhs, results)
		} else {
			DefaultPropertyDiff(lhs, rhs, results)
		}
	}
	return results.total > before
}

func (c *Control) missingNode(kind Kind, n *edgraph.Node) Record {
	rec := Record{Kind: kind}
	if kind == NodeAdded {
		rec.Node2 = n
	} else {
		rec.Node1 = n
	}
	title := n.Title()
	switch {
	case c.Mode == Subtractive && kind == NodeAdded:
		rec.DisplayString = "Missing Node in base: " + title
		rec.ToolTip = "Node '" + title + "' is not present in the base graph"
	case c.Mode == Subtractive:
		rec.DisplayString = "Missing Node: " + title
		rec.ToolTip = "Node '" + title + "' is not present in the compared graph"
	case kind == NodeAdded:
		rec.DisplayString = "Added Node: " + title
		rec.ToolTip = "Node '" + title + "' was added"
	default:
		rec.DisplayString = "Removed Node: " + title
		rec.ToolTip = "Node '" + title + "' was removed"
	}
	return rec
}
