package diff

import "github.com/rendis/edgraph/pkg/edgraph"

// IsNodeMatch decides whether a and b are the same logical node, checking in
// order: class, ID, name within the same graph lineage, prior matches, title.
func IsNodeMatch(a, b *edgraph.Node, prior []Match) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Class() != b.Class() {
		return false
	}
	if a.ID == b.ID {
		return true
	}
	ga, gb := a.Graph(), b.Graph()
	if ga != nil && gb != nil && ga.ID == gb.ID {
		return a.Name == b.Name
	}
	for _, m := range prior {
		if !m.Valid() {
			continue
		}
		aIn := m.Old == a || m.New == a
		bIn := m.Old == b || m.New == b
		if aIn != bIn {
			return false
		}
	}
	return a.Title() == b.Title()
}

// FindNodeMatch returns the first node of g matching n, or nil. The scan is
// greedy and follows node order.
func FindNodeMatch(g *edgraph.Graph, n *edgraph.Node, prior []Match) *edgraph.Node {
	if g == nil {
		return nil
	}
	for _, candidate := range g.Nodes {
		if IsNodeMatch(n, candidate, prior) {
			return candidate
		}
	}
	return nil
}

func findUnclaimed(g *edgraph.Graph, n *edgraph.Node, prior []Match, claimed map[*edgraph.Node]bool) *edgraph.Node {
	if g == nil {
		return nil
	}
	for _, candidate := range g.Nodes {
		if candidate == nil || claimed[candidate] {
			continue
		}
		if IsNodeMatch(n, candidate, prior) {
			return candidate
		}
	}
	return nil
}
