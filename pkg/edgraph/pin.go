package edgraph

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Pin is a typed, directional connection point owned by exactly one node.
// Links are not stored on the pin; LinkedTo derives them from the owning
// graph's link set.
type Pin struct {
	ID           uuid.UUID
	Name         string
	FriendlyName string
	ToolTip      string
	Direction    Direction
	Type         PinType

	DefaultValue              string
	DefaultObject             string
	DefaultTextValue          string
	AutogeneratedDefaultValue string

	Hidden                 bool
	NotConnectable         bool
	DefaultValueIsReadOnly bool
	DefaultValueIsIgnored  bool
	AdvancedView           bool
	Orphaned               bool

	ParentPin *Pin
	SubPins   []*Pin

	owner   *Node
	trashed bool
}

// PinOption configures a pin at creation time.
type PinOption func(*pinConfig)

type pinConfig struct {
	index        int
	defaultValue string
	friendlyName string
	hidden       bool
	id           uuid.UUID
}

// AtIndex inserts the pin at position i of the node's pin list.
func AtIndex(i int) PinOption {
	return func(c *pinConfig) { c.index = i }
}

// WithDefault sets both the default and the autogenerated default value.
func WithDefault(v string) PinOption {
	return func(c *pinConfig) { c.defaultValue = v }
}

// WithFriendlyName sets the display name.
func WithFriendlyName(name string) PinOption {
	return func(c *pinConfig) { c.friendlyName = name }
}

// Hidden marks the pin hidden.
func Hidden() PinOption {
	return func(c *pinConfig) { c.hidden = true }
}

// WithPinID assigns a persistent ID instead of a fresh one.
func WithPinID(id uuid.UUID) PinOption {
	return func(c *pinConfig) { c.id = id }
}

// OwningNode returns the node the pin belongs to, or nil for a detached pin.
func (p *Pin) OwningNode() *Node {
	return p.owner
}

// Graph returns the graph of the owning node.
func (p *Pin) Graph() *Graph {
	if p.owner == nil {
		return nil
	}
	return p.owner.graph
}

// SetOwningNode re-parents the pin: it is removed from its current node's pin
// list and appended to n's unless already present there. Links stay attached to
// the pin ID; moving across graphs drops them.
func (p *Pin) SetOwningNode(n *Node) {
	if p.owner == n {
		return
	}
	old := p.owner
	if old != nil {
		for i, q := range old.Pins {
			if q == p {
				old.Pins = append(old.Pins[:i], old.Pins[i+1:]...)
				break
			}
		}
		if old.graph != nil {
			if n == nil || n.graph != old.graph {
				old.graph.breakAllLinks(p.ID)
			}
			old.graph.unregisterPin(p)
		}
	}
	p.owner = n
	if n == nil {
		return
	}
	if !n.hasPin(p) {
		n.Pins = append(n.Pins, p)
	}
	if n.graph != nil {
		n.graph.registerPin(p)
	}
}

// SetID gives the pin a new ID, re-keying the graph's pin index and every
// link that mentions the old one. Loaders use it to restore persisted IDs.
func (p *Pin) SetID(id uuid.UUID) error {
	if p.ID == id {
		return nil
	}
	g := p.Graph()
	if g == nil {
		p.ID = id
		return nil
	}
	if other := g.pins[id]; other != nil && other != p {
		return NewErrorf(ErrCodeConflict, "pin id %s is already used by %s", id, other)
	}
	g.unregisterPin(p)
	old := p.ID
	for i := range g.links {
		if g.links[i].A == old {
			g.links[i].A = id
		}
		if g.links[i].B == old {
			g.links[i].B = id
		}
	}
	g.adj = nil
	p.ID = id
	g.registerPin(p)
	return nil
}

// IsValid reports whether the pin has not been destroyed.
func (p *Pin) IsValid() bool {
	return !p.trashed
}

// LinkedTo returns the partner pins in link order. A link whose partner ID
// resolves to no pin yields a nil entry.
func (p *Pin) LinkedTo() []*Pin {
	g := p.Graph()
	if g == nil {
		return nil
	}
	ids := g.linkedIDs(p.ID)
	if len(ids) == 0 {
		return nil
	}
	out := make([]*Pin, len(ids))
	for i, id := range ids {
		out[i] = g.pins[id]
	}
	return out
}

// LinkCount returns the number of links touching the pin, null links included.
func (p *Pin) LinkCount() int {
	g := p.Graph()
	if g == nil {
		return 0
	}
	return len(g.linkedIDs(p.ID))
}

// HasAnyConnections reports whether the pin has at least one link.
func (p *Pin) HasAnyConnections() bool {
	return p.LinkCount() > 0
}

// IsLinkedTo reports whether p and other share a link.
func (p *Pin) IsLinkedTo(other *Pin) bool {
	g := p.Graph()
	if g == nil || other == nil {
		return false
	}
	return g.hasLink(p.ID, other.ID)
}

// MakeLinkTo links p to other in their shared graph.
func (p *Pin) MakeLinkTo(other *Pin) error {
	g := p.Graph()
	if g == nil {
		return NewErrorf(ErrCodeValidation, "pin %q is not part of a graph", p.Name)
	}
	return g.MakeLink(p, other)
}

// BreakLinkTo removes the link between p and other, if any.
func (p *Pin) BreakLinkTo(other *Pin) {
	if g := p.Graph(); g != nil && other != nil {
		g.BreakLink(p, other)
	}
}

// BreakAllPinLinks removes every link touching the pin, dangling ones included.
// With notify set, the owner and every resolved partner node receive one
// connections-changed notification each.
func (p *Pin) BreakAllPinLinks(notify bool) {
	g := p.Graph()
	if g == nil {
		return
	}
	var touched []*Node
	if notify {
		touched = append(touched, p.owner)
		for _, other := range p.LinkedTo() {
			if other != nil && other.owner != nil && !containsNode(touched, other.owner) {
				touched = append(touched, other.owner)
			}
		}
	}
	g.breakAllLinks(p.ID)
	for _, n := range touched {
		n.notifyConnectionsChanged()
	}
}

// DisplayName returns the friendly name when set, otherwise the name.
func (p *Pin) DisplayName() string {
	if p.FriendlyName != "" {
		return p.FriendlyName
	}
	return p.Name
}

// DefaultAsString returns the effective default, preferring the object
// reference and then the text value when set.
func (p *Pin) DefaultAsString() string {
	switch {
	case p.DefaultObject != "":
		return p.DefaultObject
	case p.DefaultTextValue != "":
		return p.DefaultTextValue
	default:
		return p.DefaultValue
	}
}

// DoesDefaultValueMatchAutogenerated reports whether the default was never
// edited. Numeric categories compare by value so "1" and "1.0" agree.
func (p *Pin) DoesDefaultValueMatchAutogenerated() bool {
	if p.DefaultObject != "" || p.DefaultTextValue != "" {
		return false
	}
	return DefaultsEqual(p.Type.Category, p.DefaultValue, p.AutogeneratedDefaultValue)
}

// ResetToAutogeneratedDefault drops any user-edited default.
func (p *Pin) ResetToAutogeneratedDefault() {
	p.DefaultValue = p.AutogeneratedDefaultValue
	p.DefaultObject = ""
	p.DefaultTextValue = ""
}

func (p *Pin) String() string {
	if p.owner == nil {
		return fmt.Sprintf("pin '%s'", p.DisplayName())
	}
	return fmt.Sprintf("pin '%s' on node '%s'", p.DisplayName(), p.owner.Title())
}

// DefaultsEqual compares two default value strings of the given category.
// Numeric categories compare as numbers when both sides parse.
func DefaultsEqual(category, a, b string) bool {
	if a == b {
		return true
	}
	switch category {
	case CategoryFloat, CategoryInt:
		fa, errA := strconv.ParseFloat(a, 64)
		fb, errB := strconv.ParseFloat(b, 64)
		if errA == nil && errB == nil {
			return fa == fb
		}
	case CategoryBool:
		ba, errA := strconv.ParseBool(a)
		bb, errB := strconv.ParseBool(b)
		if errA == nil && errB == nil {
			return ba == bb
		}
	}
	return false
}

func containsNode(nodes []*Node, n *Node) bool {
	for _, m := range nodes {
		if m == n {
			return true
		}
	}
	return false
}
