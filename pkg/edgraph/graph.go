package edgraph

import (
	"fmt"

	"github.com/google/uuid"
)

// EventKind classifies graph change notifications.
type EventKind int

const (
	EventNodeAdded EventKind = iota
	EventNodeRemoved
	EventLinksChanged
	EventConnectionsChanged
)

func (k EventKind) String() string {
	switch k {
	case EventNodeAdded:
		return "node_added"
	case EventNodeRemoved:
		return "node_removed"
	case EventLinksChanged:
		return "links_changed"
	case EventConnectionsChanged:
		return "connections_changed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// GraphEvent is delivered to subscribers after a mutation.
type GraphEvent struct {
	Kind  EventKind
	Graph *Graph
	Node  *Node
}

// Graph is an ordered collection of nodes plus optional nested graphs. It has
// no internal locking: a graph must not be mutated while a compile or diff
// pass holds references into it.
type Graph struct {
	ID        uuid.UUID
	Name      string
	Schema    Schema
	Nodes     []*Node
	SubGraphs []*Graph

	parent    *Graph
	links     []Link
	adj       map[uuid.UUID][]uuid.UUID
	pins      map[uuid.UUID]*Pin
	listeners map[int]func(GraphEvent)
	nextSub   int
	nameSeq   map[string]int
}

// NewGraph returns an empty graph. A nil schema selects DefaultSchema.
func NewGraph(name string, schema Schema) *Graph {
	if schema == nil {
		schema = DefaultSchema{}
	}
	return &Graph{
		ID:     uuid.New(),
		Name:   name,
		Schema: schema,
		pins:   make(map[uuid.UUID]*Pin),
	}
}

func (g *Graph) schema() Schema {
	if g.Schema == nil {
		return DefaultSchema{}
	}
	return g.Schema
}

// Parent returns the graph this one is nested in.
func (g *Graph) Parent() *Graph {
	return g.parent
}

// Subscribe registers fn for change events and returns its cancel func.
func (g *Graph) Subscribe(fn func(GraphEvent)) func() {
	if g.listeners == nil {
		g.listeners = make(map[int]func(GraphEvent))
	}
	id := g.nextSub
	g.nextSub++
	g.listeners[id] = fn
	return func() { delete(g.listeners, id) }
}

func (g *Graph) emit(ev GraphEvent) {
	for i := 0; i < g.nextSub; i++ {
		if fn, ok := g.listeners[i]; ok {
			fn(ev)
		}
	}
}

func (g *Graph) registerPin(p *Pin) {
	if g.pins == nil {
		g.pins = make(map[uuid.UUID]*Pin)
	}
	g.pins[p.ID] = p
}

func (g *Graph) unregisterPin(p *Pin) {
	if g.pins[p.ID] == p {
		delete(g.pins, p.ID)
	}
}

// CreateNode creates a node for b, adds it to the graph, allocates its default
// pins and runs the placed hook once.
func (g *Graph) CreateNode(b Behavior, opts ...NodeOption) *Node {
	n := NewNode(b, opts...)
	if n.Name == "" {
		n.Name = g.uniqueNodeName(n.Class())
	}
	g.AddNode(n)
	if b != nil {
		b.AllocateDefaultPins(n)
		if h, ok := b.(PlacedHook); ok {
			h.OnPlaced(n)
		}
	}
	return n
}

func (g *Graph) uniqueNodeName(class string) string {
	if class == "" {
		class = "Node"
	}
	if g.nameSeq == nil {
		g.nameSeq = make(map[string]int)
	}
	for {
		i := g.nameSeq[class]
		g.nameSeq[class] = i + 1
		name := fmt.Sprintf("%s_%d", class, i)
		if g.FindNodeByName(name) == nil {
			return name
		}
	}
}

// AddNode appends n and takes ownership of it. Adding a node owned by another
// graph moves it; adding a node already in g is a no-op.
func (g *Graph) AddNode(n *Node) {
	if n == nil || n.graph == g {
		return
	}
	if n.graph != nil {
		n.graph.MoveNodesTo(g, []*Node{n})
		return
	}
	n.graph = g
	for _, p := range n.Pins {
		if p != nil {
			g.registerPin(p)
		}
	}
	g.Nodes = append(g.Nodes, n)
	g.emit(GraphEvent{Kind: EventNodeAdded, Graph: g, Node: n})
}

// RemoveNode detaches n from the node list. Links to partner pins are left in
// place; use DestroyNode to break them first.
func (g *Graph) RemoveNode(n *Node) bool {
	if !g.detach(n) {
		return false
	}
	g.emit(GraphEvent{Kind: EventNodeRemoved, Graph: g, Node: n})
	return true
}

func (g *Graph) detach(n *Node) bool {
	if n == nil {
		return false
	}
	for i, m := range g.Nodes {
		if m != n {
			continue
		}
		g.Nodes = append(g.Nodes[:i], g.Nodes[i+1:]...)
		for _, p := range n.Pins {
			if p != nil {
				g.unregisterPin(p)
			}
		}
		n.graph = nil
		return true
	}
	return false
}

// DestroyNode breaks all of the node's links, removes it and invalidates its pins.
func (g *Graph) DestroyNode(n *Node) bool {
	if n == nil || n.graph != g {
		return false
	}
	n.BreakAllNodeLinks()
	for _, p := range n.Pins {
		if p != nil {
			p.trashed = true
		}
	}
	return g.RemoveNode(n)
}

// MoveNodesTo re-parents nodes into dst without cloning them. Links among moved
// pins travel with them; links that would cross the two graphs are broken.
func (g *Graph) MoveNodesTo(dst *Graph, nodes []*Node) {
	if dst == g || len(nodes) == 0 {
		return
	}
	moved := make(map[uuid.UUID]bool)
	var movedNodes []*Node
	for _, n := range nodes {
		if n == nil || n.graph != g {
			continue
		}
		for _, p := range n.Pins {
			if p != nil {
				moved[p.ID] = true
			}
		}
		g.detach(n)
		movedNodes = append(movedNodes, n)
	}
	if len(movedNodes) == 0 {
		return
	}
	var carried []Link
	g.removeLinks(func(l Link) bool {
		a, b := moved[l.A], moved[l.B]
		if a && b {
			carried = append(carried, l)
		}
		return a || b
	})
	for _, n := range movedNodes {
		n.graph = dst
		for _, p := range n.Pins {
			if p != nil {
				dst.registerPin(p)
			}
		}
		dst.Nodes = append(dst.Nodes, n)
		g.emit(GraphEvent{Kind: EventNodeRemoved, Graph: g, Node: n})
		dst.emit(GraphEvent{Kind: EventNodeAdded, Graph: dst, Node: n})
	}
	for _, l := range carried {
		dst.RestoreLink(l.A, l.B)
	}
	if len(carried) > 0 {
		dst.emit(GraphEvent{Kind: EventLinksChanged, Graph: dst})
	}
}

// AddSubGraph nests sub under g.
func (g *Graph) AddSubGraph(sub *Graph) {
	sub.parent = g
	g.SubGraphs = append(g.SubGraphs, sub)
}

// AllGraphs returns g followed by every nested graph, depth first.
func (g *Graph) AllGraphs() []*Graph {
	out := []*Graph{g}
	for _, sub := range g.SubGraphs {
		out = append(out, sub.AllGraphs()...)
	}
	return out
}

// FindNode returns the node with the given ID.
func (g *Graph) FindNode(id uuid.UUID) *Node {
	for _, n := range g.Nodes {
		if n != nil && n.ID == id {
			return n
		}
	}
	return nil
}

// FindNodeByName returns the first node with the given name.
func (g *Graph) FindNodeByName(name string) *Node {
	for _, n := range g.Nodes {
		if n != nil && n.Name == name {
			return n
		}
	}
	return nil
}

// FindPin resolves a pin ID among the pins of this graph's nodes.
func (g *Graph) FindPin(id uuid.UUID) *Pin {
	return g.pins[id]
}

// PruneHoles removes nil node slots in place and returns how many it dropped.
func (g *Graph) PruneHoles() int {
	kept := g.Nodes[:0]
	for _, n := range g.Nodes {
		if n != nil {
			kept = append(kept, n)
		}
	}
	removed := len(g.Nodes) - len(kept)
	for i := len(kept); i < len(g.Nodes); i++ {
		g.Nodes[i] = nil
	}
	g.Nodes = kept
	return removed
}

// Clone deep-copies the graph, its nested graphs, nodes, pins and links,
// keeping every ID. Behaviours are shared between the copies.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		ID:     g.ID,
		Name:   g.Name,
		Schema: g.Schema,
		pins:   make(map[uuid.UUID]*Pin, len(g.pins)),
	}
	for _, n := range g.Nodes {
		if n == nil {
			c.Nodes = append(c.Nodes, nil)
			continue
		}
		cn := &Node{
			ID:                   n.ID,
			Name:                 n.Name,
			Behavior:             n.Behavior,
			PosX:                 n.PosX,
			PosY:                 n.PosY,
			Width:                n.Width,
			Height:               n.Height,
			Comment:              n.Comment,
			CommentBubbleVisible: n.CommentBubbleVisible,
			EnabledState:         n.EnabledState,
			graph:                c,
		}
		byOld := make(map[*Pin]*Pin, len(n.Pins))
		for _, p := range n.Pins {
			if p == nil {
				continue
			}
			cp := *p
			cp.owner = cn
			cp.SubPins = nil
			cn.Pins = append(cn.Pins, &cp)
			byOld[p] = &cp
			c.pins[cp.ID] = &cp
		}
		for old, cp := range byOld {
			if old.ParentPin != nil {
				cp.ParentPin = byOld[old.ParentPin]
			}
			for _, sp := range old.SubPins {
				if csp, ok := byOld[sp]; ok {
					cp.SubPins = append(cp.SubPins, csp)
				}
			}
		}
		c.Nodes = append(c.Nodes, cn)
	}
	c.links = g.Links()
	for _, sub := range g.SubGraphs {
		c.AddSubGraph(sub.Clone())
	}
	return c
}
