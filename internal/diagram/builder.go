package diagram

import (
	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/internal/diff"
	"github.com/rendis/edgraph/internal/nodes"
	"github.com/rendis/edgraph/pkg/edgraph"
)

// Build constructs a DiagramModel from g and its nested graphs. Nodes keep
// graph order; nested graphs become groups.
func Build(g *edgraph.Graph) *DiagramModel {
	model := &DiagramModel{Title: g.Name}
	if model.Title == "" {
		model.Title = "Graph"
	}

	for i, sg := range g.AllGraphs() {
		var group *Group
		if i > 0 {
			group = &Group{Label: sg.Name}
			model.Groups = append(model.Groups, group)
		}
		for _, n := range sg.Nodes {
			if n == nil {
				continue
			}
			model.Nodes = append(model.Nodes, nodeFor(n))
			if group != nil {
				group.NodeIDs = append(group.NodeIDs, n.ID.String())
			}
			model.Edges = append(model.Edges, edgesFrom(n)...)
		}
	}
	return model
}

func nodeFor(n *edgraph.Node) *Node {
	return &Node{ID: n.ID.String(), Label: n.Title(), Kind: kindOf(n)}
}

// kindOf maps built-in classes to kinds and classifies anything else by its
// exec pins.
func kindOf(n *edgraph.Node) NodeKind {
	switch n.Class() {
	case nodes.ClassEvent:
		return NodeKindEvent
	case nodes.ClassBranch, nodes.ClassSequence, nodes.ClassGate:
		return NodeKindFlow
	case nodes.ClassFunctionCall, nodes.ClassLegacyCall:
		return NodeKindCall
	case nodes.ClassVariableSet:
		return NodeKindState
	case nodes.ClassKnot:
		return NodeKindReroute
	case nodes.ClassComment:
		return NodeKindComment
	case nodes.ClassMathExpression, nodes.ClassTransform, nodes.ClassVariableGet, nodes.ClassCreateDelegate:
		return NodeKindPure
	}
	if r, ok := n.Behavior.(compiler.Root); ok && r.IsRoot() {
		return NodeKindEvent
	}
	for _, p := range n.Pins {
		if p != nil && p.Type.IsExec() {
			return NodeKindCall
		}
	}
	return NodeKindPure
}

// edgesFrom returns one edge per link of n's output pins. Exec edges are
// labelled only when n has several exec outputs; data edges carry the input
// pin name.
func edgesFrom(n *edgraph.Node) []Edge {
	execOuts := 0
	for _, p := range n.PinsInDirection(edgraph.Output) {
		if p.Type.IsExec() {
			execOuts++
		}
	}

	var edges []Edge
	for _, p := range n.PinsInDirection(edgraph.Output) {
		for _, other := range p.LinkedTo() {
			owner := other.OwningNode()
			if owner == nil {
				continue
			}
			e := Edge{From: n.ID.String(), To: owner.ID.String(), Exec: p.Type.IsExec()}
			switch {
			case e.Exec && execOuts > 1:
				e.Label = p.DisplayName()
			case !e.Exec:
				e.Label = other.DisplayName()
			}
			edges = append(edges, e)
		}
	}
	return edges
}

// ApplyCompile overlays a compilation result built from a clone of the graph
// behind model. Scheduled nodes get levels; nodes named by messages get the
// most severe status.
func ApplyCompile(model *DiagramModel, res *compiler.Result, log *compiler.MessageLog) {
	if res != nil {
		for _, n := range res.Schedule {
			if dn := model.node(n.ID.String()); dn != nil {
				dn.Status = StatusScheduled
			}
		}
		for _, n := range res.Pruned {
			if dn := model.node(n.ID.String()); dn != nil {
				dn.Status = StatusPruned
			}
		}
		model.Levels = model.Levels[:0]
		for _, lvl := range res.Levels {
			ids := make([]string, len(lvl))
			for i, n := range lvl {
				ids[i] = n.ID.String()
			}
			model.Levels = append(model.Levels, ids)
		}
	}
	if log == nil {
		return
	}
	for _, msg := range log.Messages() {
		for _, ref := range msg.Refs {
			dn := model.node(ref.NodeID.String())
			if dn == nil {
				continue
			}
			dn.Notes = append(dn.Notes, msg.Text)
			switch {
			case msg.Severity == compiler.SeverityError:
				dn.Status = StatusError
			case msg.Severity == compiler.SeverityWarning && dn.Status != StatusError:
				dn.Status = StatusWarning
			}
		}
	}
}

// ApplyDiff overlays diff records onto a model built from the newer graph.
// Removed nodes are appended so they can be drawn.
func ApplyDiff(model *DiagramModel, recs []diff.Record) {
	for _, rec := range recs {
		switch rec.Kind {
		case diff.NodeAdded:
			markDiff(model, rec.Node2, rec, StatusAdded)
		case diff.NodeRemoved:
			if rec.Node1 == nil {
				continue
			}
			dn := model.node(rec.Node1.ID.String())
			if dn == nil {
				dn = nodeFor(rec.Node1)
				model.Nodes = append(model.Nodes, dn)
			}
			dn.Status = StatusRemoved
			dn.Notes = append(dn.Notes, rec.DisplayString)
		default:
			n := rec.Node2
			if n == nil {
				n = rec.Node1
			}
			markDiff(model, n, rec, StatusChanged)
		}
	}
}

func markDiff(model *DiagramModel, n *edgraph.Node, rec diff.Record, st Status) {
	if n == nil {
		return
	}
	dn := model.node(n.ID.String())
	if dn == nil {
		return
	}
	if dn.Status != StatusAdded {
		dn.Status = st
	}
	dn.Notes = append(dn.Notes, rec.DisplayString)
}
