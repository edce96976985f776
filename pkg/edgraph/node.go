package edgraph

import (
	"fmt"

	"github.com/google/uuid"
)

// EnabledState is the tri-state enable flag of a node.
type EnabledState int

const (
	Enabled EnabledState = iota
	Disabled
	DevelopmentOnly
)

func (s EnabledState) String() string {
	switch s {
	case Enabled:
		return "Enabled"
	case Disabled:
		return "Disabled"
	case DevelopmentOnly:
		return "DevelopmentOnly"
	default:
		return fmt.Sprintf("EnabledState(%d)", int(s))
	}
}

// ParseEnabledState parses an enabled state name. The empty string is Enabled.
func ParseEnabledState(s string) (EnabledState, error) {
	switch s {
	case "", "Enabled":
		return Enabled, nil
	case "Disabled":
		return Disabled, nil
	case "DevelopmentOnly":
		return DevelopmentOnly, nil
	}
	return 0, NewErrorf(ErrCodeParse, "unknown enabled state %q", s)
}

// Behavior is the per-kind capability set of a node. The core only ever holds
// this interface; optional hooks are discovered by type assertion.
type Behavior interface {
	// Class names the concrete node kind. Nodes of different classes never match in a diff.
	Class() string
	Title(n *Node) string
	AllocateDefaultPins(n *Node)
	// IsEdgeSignificant reports whether links on p order nodes in the schedule.
	IsEdgeSignificant(p *Pin) bool
}

// PinRemovedHook is notified after RemovePin detached a pin.
type PinRemovedHook interface {
	OnPinRemoved(n *Node, p *Pin)
}

// ConnectionListener receives batched connections-changed notifications.
type ConnectionListener interface {
	NodeConnectionListChanged(n *Node)
}

// PlacedHook runs once after CreateNode allocated the default pins.
type PlacedHook interface {
	OnPlaced(n *Node)
}

// Node owns an ordered list of pins and belongs to one graph.
type Node struct {
	ID       uuid.UUID
	Name     string
	Behavior Behavior
	Pins     []*Pin

	PosX, PosY    int
	Width, Height int

	Comment              string
	CommentBubbleVisible bool
	EnabledState         EnabledState

	graph *Graph
}

// NodeOption configures a node created by Graph.CreateNode.
type NodeOption func(*Node)

// WithNodeID assigns a persistent ID instead of a fresh one.
func WithNodeID(id uuid.UUID) NodeOption {
	return func(n *Node) { n.ID = id }
}

// WithName sets the node name. Without it CreateNode derives Class_N.
func WithName(name string) NodeOption {
	return func(n *Node) { n.Name = name }
}

// AtPosition places the node in editor space.
func AtPosition(x, y int) NodeOption {
	return func(n *Node) { n.PosX, n.PosY = x, y }
}

// WithComment sets the node comment.
func WithComment(c string) NodeOption {
	return func(n *Node) { n.Comment = c }
}

// NewNode returns a detached node with a fresh ID.
func NewNode(b Behavior, opts ...NodeOption) *Node {
	n := &Node{ID: uuid.New(), Behavior: b}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Graph returns the owning graph, or nil for a detached node.
func (n *Node) Graph() *Graph {
	return n.graph
}

// Class returns the behaviour class, or "" when none is set.
func (n *Node) Class() string {
	if n.Behavior == nil {
		return ""
	}
	return n.Behavior.Class()
}

// Title returns the display title supplied by the behaviour, falling back to
// the node name.
func (n *Node) Title() string {
	if n.Behavior != nil {
		if t := n.Behavior.Title(n); t != "" {
			return t
		}
	}
	return n.Name
}

func (n *Node) String() string {
	return n.Title()
}

// IsEdgeSignificant delegates to the behaviour. Nodes without one treat every
// pin as significant.
func (n *Node) IsEdgeSignificant(p *Pin) bool {
	if n.Behavior == nil {
		return true
	}
	return n.Behavior.IsEdgeSignificant(p)
}

// CreatePin creates a pin owned by n, appended or inserted at AtIndex.
func (n *Node) CreatePin(dir Direction, t PinType, name string, opts ...PinOption) *Pin {
	cfg := pinConfig{index: -1}
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Pin{
		ID:                        cfg.id,
		Name:                      name,
		FriendlyName:              cfg.friendlyName,
		Direction:                 dir,
		Type:                      t,
		DefaultValue:              cfg.defaultValue,
		AutogeneratedDefaultValue: cfg.defaultValue,
		Hidden:                    cfg.hidden,
		owner:                     n,
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if cfg.index >= 0 && cfg.index < len(n.Pins) {
		n.Pins = append(n.Pins, nil)
		copy(n.Pins[cfg.index+1:], n.Pins[cfg.index:])
		n.Pins[cfg.index] = p
	} else {
		n.Pins = append(n.Pins, p)
	}
	if n.graph != nil {
		n.graph.registerPin(p)
	}
	return p
}

// CreateUniquePinName returns base, or base with the first numeric suffix no
// pin on the node uses.
func (n *Node) CreateUniquePinName(base string) string {
	name := base
	for i := 1; n.FindPin(name, DirectionAny) != nil; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	return name
}

// FindPin returns the first pin with the given name and direction.
func (n *Node) FindPin(name string, dir Direction) *Pin {
	for _, p := range n.Pins {
		if p != nil && p.Name == name && p.Direction.Matches(dir) {
			return p
		}
	}
	return nil
}

// FindPinByID returns the pin with the given ID.
func (n *Node) FindPinByID(id uuid.UUID) *Pin {
	for _, p := range n.Pins {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

// PinsInDirection returns the node's pins flowing in dir, in pin order.
func (n *Node) PinsInDirection(dir Direction) []*Pin {
	var out []*Pin
	for _, p := range n.Pins {
		if p != nil && p.Direction.Matches(dir) {
			out = append(out, p)
		}
	}
	return out
}

func (n *Node) hasPin(p *Pin) bool {
	for _, q := range n.Pins {
		if q == p {
			return true
		}
	}
	return false
}

// RemovePin removes p and its sub-pins from the node. Links of every removed
// pin are broken so no partner keeps a dangling entry. It returns false when p
// is not on this node.
func (n *Node) RemovePin(p *Pin) bool {
	idx := -1
	for i, q := range n.Pins {
		if q == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	for len(p.SubPins) > 0 {
		n.RemovePin(p.SubPins[len(p.SubPins)-1])
	}
	p.BreakAllPinLinks(true)
	// The recursive removals may have shifted the index.
	for i, q := range n.Pins {
		if q == p {
			n.Pins = append(n.Pins[:i], n.Pins[i+1:]...)
			break
		}
	}
	if parent := p.ParentPin; parent != nil {
		for i, sp := range parent.SubPins {
			if sp == p {
				parent.SubPins = append(parent.SubPins[:i], parent.SubPins[i+1:]...)
				break
			}
		}
	}
	if n.graph != nil {
		n.graph.unregisterPin(p)
	}
	p.trashed = true
	if h, ok := n.Behavior.(PinRemovedHook); ok {
		h.OnPinRemoved(n, p)
	}
	return true
}

// BreakAllNodeLinks breaks every link on every pin, then notifies the node and
// each distinct partner node exactly once.
func (n *Node) BreakAllNodeLinks() {
	touched := []*Node{n}
	for _, p := range n.Pins {
		if p == nil {
			continue
		}
		for _, other := range p.LinkedTo() {
			if other != nil && other.owner != nil && !containsNode(touched, other.owner) {
				touched = append(touched, other.owner)
			}
		}
		p.BreakAllPinLinks(false)
	}
	for _, t := range touched {
		t.notifyConnectionsChanged()
	}
}

func (n *Node) notifyConnectionsChanged() {
	if n == nil {
		return
	}
	if l, ok := n.Behavior.(ConnectionListener); ok {
		l.NodeConnectionListChanged(n)
	}
	if n.graph != nil {
		n.graph.emit(GraphEvent{Kind: EventConnectionsChanged, Graph: n.graph, Node: n})
	}
}

// StructMember describes one member of an aggregate pin type.
type StructMember struct {
	Name string
	Type PinType
}

// SplitPin hides p and exposes one sub-pin per member directly after it.
func (n *Node) SplitPin(p *Pin, members []StructMember) []*Pin {
	idx := -1
	for i, q := range n.Pins {
		if q == p {
			idx = i
			break
		}
	}
	if idx < 0 || len(p.SubPins) > 0 {
		return nil
	}
	p.BreakAllPinLinks(true)
	subs := make([]*Pin, 0, len(members))
	for i, m := range members {
		sp := n.CreatePin(p.Direction, m.Type, p.Name+"_"+m.Name, AtIndex(idx+1+i))
		sp.ParentPin = p
		subs = append(subs, sp)
	}
	p.SubPins = subs
	p.Hidden = true
	return subs
}

// RecombinePin removes the sub-pins of p and shows it again.
func (n *Node) RecombinePin(p *Pin) bool {
	if len(p.SubPins) == 0 {
		return false
	}
	for len(p.SubPins) > 0 {
		n.RemovePin(p.SubPins[len(p.SubPins)-1])
	}
	p.Hidden = false
	return true
}
