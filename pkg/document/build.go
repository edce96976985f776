package document

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// BehaviorFactory creates behaviours by class. nodes.Registry satisfies it.
type BehaviorFactory interface {
	New(class string, props json.RawMessage) (edgraph.Behavior, error)
}

// Build turns doc into a live graph. Every link must be accepted by the
// graph's schema without displacing another link.
func Build(doc *Document, factory BehaviorFactory) (*edgraph.Graph, error) {
	g := edgraph.NewGraph(doc.Name, nil)
	if doc.ID != "" {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, edgraph.NewErrorf(edgraph.ErrCodeParse, "graph %s: invalid id %q", doc.Name, doc.ID).WithCause(err)
		}
		g.ID = id
	}

	names := make(map[string]bool, len(doc.Nodes))
	ids := make(map[uuid.UUID]bool, len(doc.Nodes))
	for i := range doc.Nodes {
		nd := &doc.Nodes[i]
		n, err := buildNode(g, nd, factory)
		if err != nil {
			return nil, err
		}
		if names[n.Name] {
			return nil, edgraph.NewErrorf(edgraph.ErrCodeDuplicateNode, "graph %s: duplicate node name %q", doc.Name, n.Name)
		}
		if ids[n.ID] {
			return nil, edgraph.NewErrorf(edgraph.ErrCodeDuplicateNode, "graph %s: duplicate node id %s", doc.Name, n.ID)
		}
		names[n.Name], ids[n.ID] = true, true
	}

	for _, l := range doc.Links {
		if err := buildLink(g, l); err != nil {
			return nil, err
		}
	}

	for i := range doc.SubGraphs {
		sub, err := Build(&doc.SubGraphs[i], factory)
		if err != nil {
			return nil, err
		}
		g.AddSubGraph(sub)
	}
	return g, nil
}

func buildNode(g *edgraph.Graph, nd *NodeDoc, factory BehaviorFactory) (*edgraph.Node, error) {
	b, err := factory.New(nd.Class, nd.Properties)
	if err != nil {
		return nil, err
	}
	opts := []edgraph.NodeOption{
		edgraph.WithName(nd.Name),
		edgraph.AtPosition(nd.X, nd.Y),
		edgraph.WithComment(nd.Comment),
	}
	if nd.ID != "" {
		id, err := uuid.Parse(nd.ID)
		if err != nil {
			return nil, edgraph.NewErrorf(edgraph.ErrCodeParse, "node %s: invalid id %q", nd.Name, nd.ID).WithCause(err)
		}
		opts = append(opts, edgraph.WithNodeID(id))
	}
	state, err := edgraph.ParseEnabledState(nd.Enabled)
	if err != nil {
		return nil, err
	}

	n := g.CreateNode(b, opts...)
	n.EnabledState = state
	for _, pd := range nd.Pins {
		if err := applyPin(n, pd); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func applyPin(n *edgraph.Node, pd PinDoc) error {
	dir := edgraph.DirectionAny
	if pd.Direction != "" {
		d, err := edgraph.ParseDirection(pd.Direction)
		if err != nil {
			return err
		}
		dir = d
	}

	// Pins the behaviour allocated keep its types; only extra pins take the
	// declared type.
	p := n.FindPin(pd.Name, dir)
	if p == nil {
		if pd.Category == "" || dir == edgraph.DirectionAny {
			return edgraph.NewErrorf(edgraph.ErrCodeNotFound, "node %s has no pin %q", n.Name, pd.Name).WithNode(n.ID)
		}
		pt, err := pd.pinType()
		if err != nil {
			return err
		}
		p = n.CreatePin(dir, pt, pd.Name)
	}

	if pd.ID != "" {
		id, err := uuid.Parse(pd.ID)
		if err != nil {
			return edgraph.NewErrorf(edgraph.ErrCodeParse, "pin %s.%s: invalid id %q", n.Name, pd.Name, pd.ID).WithCause(err)
		}
		if err := p.SetID(id); err != nil {
			return err
		}
	}
	if pd.Default != "" {
		p.DefaultValue = pd.Default
	}
	p.Hidden = pd.Hidden
	return nil
}

func (pd PinDoc) pinType() (edgraph.PinType, error) {
	ct, err := edgraph.ParseContainerType(pd.Container)
	if err != nil {
		return edgraph.PinType{}, err
	}
	pt := edgraph.PinType{
		Category:          pd.Category,
		SubCategory:       pd.SubCategory,
		SubCategoryObject: pd.Object,
		ContainerType:     ct,
		IsReference:       pd.Reference,
	}
	if pd.ValueCategory != "" {
		pt.ValueType = &edgraph.TerminalType{Category: pd.ValueCategory}
	}
	return pt, nil
}

func buildLink(g *edgraph.Graph, l LinkDoc) error {
	from, err := resolvePin(g, l.From, edgraph.Output)
	if err != nil {
		return err
	}
	to, err := resolvePin(g, l.To, edgraph.Input)
	if err != nil {
		return err
	}

	check := g.Schema.CanCreateConnection(from, to)
	switch check.Response {
	case edgraph.ConnectMake:
	case edgraph.ConnectDisallow:
		return edgraph.NewErrorf(edgraph.ErrCodeValidation, "link %s -> %s: %s", l.From, l.To, check.Message)
	default:
		return edgraph.NewErrorf(edgraph.ErrCodeConflict, "link %s -> %s would replace an existing link", l.From, l.To)
	}
	return g.TryCreateConnection(from, to)
}

// resolvePin finds the pin a link end refers to: a pin ID or "Node.pin".
func resolvePin(g *edgraph.Graph, ref string, dir edgraph.Direction) (*edgraph.Pin, error) {
	if id, err := uuid.Parse(ref); err == nil {
		if p := g.FindPin(id); p != nil {
			return p, nil
		}
		return nil, edgraph.NewErrorf(edgraph.ErrCodeNotFound, "no pin with id %s", ref)
	}

	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeParse, "link end %q is neither a pin id nor Node.pin", ref)
	}
	n := g.FindNodeByName(ref[:i])
	if n == nil {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeNotFound, "link end %q: no node named %q", ref, ref[:i])
	}
	p := n.FindPin(ref[i+1:], dir)
	if p == nil {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeNotFound, "link end %q: node has no %s pin %q", ref, dir, ref[i+1:]).WithNode(n.ID)
	}
	return p, nil
}

// PropertiesFunc encodes a behaviour's properties. nodes.Properties satisfies it.
type PropertiesFunc func(edgraph.Behavior) (json.RawMessage, error)

// FromGraph renders g as a document. IDs are always written so a document
// built back from the result diffs clean against g.
func FromGraph(g *edgraph.Graph, props PropertiesFunc) (*Document, error) {
	doc := &Document{ID: g.ID.String(), Name: g.Name, Nodes: []NodeDoc{}}
	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		nd := NodeDoc{
			ID:      n.ID.String(),
			Name:    n.Name,
			Class:   n.Class(),
			X:       n.PosX,
			Y:       n.PosY,
			Comment: n.Comment,
		}
		if n.EnabledState != edgraph.Enabled {
			nd.Enabled = n.EnabledState.String()
		}
		if props != nil && n.Behavior != nil {
			raw, err := props(n.Behavior)
			if err != nil {
				return nil, err
			}
			nd.Properties = raw
		}
		for _, p := range n.Pins {
			pd := PinDoc{
				Name:        p.Name,
				Direction:   p.Direction.String(),
				ID:          p.ID.String(),
				Category:    p.Type.Category,
				SubCategory: p.Type.SubCategory,
				Object:      p.Type.SubCategoryObject,
				Reference:   p.Type.IsReference,
				Hidden:      p.Hidden,
			}
			if p.Type.IsContainer() {
				pd.Container = p.Type.ContainerType.String()
			}
			if vt := p.Type.ValueType; vt != nil {
				pd.ValueCategory = vt.Category
			}
			if !p.DoesDefaultValueMatchAutogenerated() {
				pd.Default = p.DefaultValue
			}
			nd.Pins = append(nd.Pins, pd)
		}
		doc.Nodes = append(doc.Nodes, nd)
	}

	for _, l := range g.Links() {
		a, b := g.FindPin(l.A), g.FindPin(l.B)
		if a == nil || b == nil {
			continue
		}
		if a.Direction == edgraph.Input {
			a, b = b, a
		}
		doc.Links = append(doc.Links, LinkDoc{From: pinRef(g, a), To: pinRef(g, b)})
	}

	for _, sub := range g.SubGraphs {
		sd, err := FromGraph(sub, props)
		if err != nil {
			return nil, err
		}
		doc.SubGraphs = append(doc.SubGraphs, *sd)
	}
	return doc, nil
}

// pinRef prefers the readable Node.pin form when it is unambiguous.
func pinRef(g *edgraph.Graph, p *edgraph.Pin) string {
	n := p.OwningNode()
	if n == nil || n.Name == "" || strings.Contains(n.Name, ".") || g.FindNodeByName(n.Name) != n {
		return p.ID.String()
	}
	if n.FindPin(p.Name, p.Direction) != p {
		return p.ID.String()
	}
	return n.Name + "." + p.Name
}
