package edgraph

import "github.com/google/uuid"

// Link is an undirected connection between two pins, stored once per graph.
type Link struct {
	A uuid.UUID `json:"a"`
	B uuid.UUID `json:"b"`
}

// Touches reports whether id is one of the link's endpoints.
func (l Link) Touches(id uuid.UUID) bool {
	return l.A == id || l.B == id
}

// Other returns the endpoint opposite to id.
func (l Link) Other(id uuid.UUID) uuid.UUID {
	if l.A == id {
		return l.B
	}
	return l.A
}

// Joins reports whether the link connects a and b in either orientation.
func (l Link) Joins(a, b uuid.UUID) bool {
	return (l.A == a && l.B == b) || (l.A == b && l.B == a)
}

// Links returns a snapshot of the graph's links in insertion order.
func (g *Graph) Links() []Link {
	out := make([]Link, len(g.links))
	copy(out, g.links)
	return out
}

// MakeLink connects a and b. Linking an already linked pair is a no-op. Both
// pins must belong to nodes of this graph.
func (g *Graph) MakeLink(a, b *Pin) error {
	if a == nil || b == nil {
		return NewError(ErrCodeValidation, "cannot link a nil pin")
	}
	if a.Graph() != g || b.Graph() != g {
		return NewErrorf(ErrCodeValidation, "pins %q and %q are not both in graph %q", a.Name, b.Name, g.Name)
	}
	if a == b {
		return NewErrorf(ErrCodeSelfLoop, "pin %q cannot link to itself", a.Name)
	}
	if g.hasLink(a.ID, b.ID) {
		return nil
	}
	g.appendLink(Link{A: a.ID, B: b.ID})
	g.emit(GraphEvent{Kind: EventLinksChanged, Graph: g})
	return nil
}

// RestoreLink records a link by pin IDs without resolving them. Loaders use it
// to import links exactly as persisted; partners that never resolve surface as
// null links during validation.
func (g *Graph) RestoreLink(a, b uuid.UUID) {
	if g.hasLink(a, b) {
		return
	}
	g.appendLink(Link{A: a, B: b})
}

func (g *Graph) appendLink(l Link) {
	g.links = append(g.links, l)
	if g.adj != nil {
		g.adj[l.A] = append(g.adj[l.A], l.B)
		g.adj[l.B] = append(g.adj[l.B], l.A)
	}
}

// BreakLink removes the link between a and b if present.
func (g *Graph) BreakLink(a, b *Pin) {
	if a == nil || b == nil {
		return
	}
	if g.removeLinks(func(l Link) bool { return l.Joins(a.ID, b.ID) }) > 0 {
		g.emit(GraphEvent{Kind: EventLinksChanged, Graph: g})
	}
}

func (g *Graph) breakAllLinks(id uuid.UUID) {
	if g.removeLinks(func(l Link) bool { return l.Touches(id) }) > 0 {
		g.emit(GraphEvent{Kind: EventLinksChanged, Graph: g})
	}
}

// removeLinks drops matching links preserving the order of the rest.
func (g *Graph) removeLinks(match func(Link) bool) int {
	kept := g.links[:0]
	removed := 0
	for _, l := range g.links {
		if match(l) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	g.links = kept
	if removed > 0 {
		g.adj = nil
	}
	return removed
}

func (g *Graph) linkedIDs(id uuid.UUID) []uuid.UUID {
	if g.adj == nil {
		g.adj = make(map[uuid.UUID][]uuid.UUID, len(g.links)*2)
		for _, l := range g.links {
			g.adj[l.A] = append(g.adj[l.A], l.B)
			g.adj[l.B] = append(g.adj[l.B], l.A)
		}
	}
	return g.adj[id]
}

func (g *Graph) hasLink(a, b uuid.UUID) bool {
	for _, id := range g.linkedIDs(a) {
		if id == b {
			return true
		}
	}
	return false
}

// TryCreateConnection asks the schema whether a and b may be linked and
// applies its answer, breaking existing links where it requests that.
func (g *Graph) TryCreateConnection(a, b *Pin) error {
	resp := g.schema().CanCreateConnection(a, b)
	switch resp.Response {
	case ConnectDisallow:
		return NewError(ErrCodeValidation, resp.Message)
	case ConnectBreakOthersA:
		a.BreakAllPinLinks(true)
	case ConnectBreakOthersB:
		b.BreakAllPinLinks(true)
	case ConnectBreakOthersAB:
		a.BreakAllPinLinks(true)
		b.BreakAllPinLinks(true)
	}
	if err := g.MakeLink(a, b); err != nil {
		return err
	}
	a.owner.notifyConnectionsChanged()
	if b.owner != a.owner {
		b.owner.notifyConnectionsChanged()
	}
	return nil
}
