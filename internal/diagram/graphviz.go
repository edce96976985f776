package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// ImageFormat selects the Graphviz output.
type ImageFormat string

const (
	ImagePNG ImageFormat = "png"
	ImageSVG ImageFormat = "svg"
	ImageDOT ImageFormat = "dot"
)

// RenderImage lays the model out with dot and renders it in format.
func RenderImage(ctx context.Context, model *DiagramModel, format ImageFormat) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case ImagePNG, "":
		gvFormat = graphviz.PNG
	case ImageSVG:
		gvFormat = graphviz.SVG
	case ImageDOT:
		gvFormat = graphviz.XDOT
	default:
		return nil, fmt.Errorf("diagram: unknown image format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.LRRank)
	if model.Title != "" {
		graph.SetLabel(model.Title)
	}

	gvNodes := make(map[string]*cgraph.Node, len(model.Nodes))
	for i, g := range model.Groups {
		sub, err := graph.CreateSubGraphByName(fmt.Sprintf("cluster_%d", i))
		if err != nil {
			return nil, fmt.Errorf("diagram: create cluster %s: %w", g.Label, err)
		}
		sub.SetLabel(g.Label)
		sub.SetStyle(cgraph.DashedGraphStyle)
		for _, id := range g.NodeIDs {
			n := model.node(id)
			if n == nil {
				continue
			}
			gvNode, err := sub.CreateNodeByName(n.ID)
			if err != nil {
				return nil, fmt.Errorf("diagram: create node %s: %w", n.Label, err)
			}
			applyNodeStyle(gvNode, n)
			gvNodes[n.ID] = gvNode
		}
	}
	for _, n := range model.Nodes {
		if gvNodes[n.ID] != nil {
			continue
		}
		gvNode, err := graph.CreateNodeByName(n.ID)
		if err != nil {
			return nil, fmt.Errorf("diagram: create node %s: %w", n.Label, err)
		}
		applyNodeStyle(gvNode, n)
		gvNodes[n.ID] = gvNode
	}

	for _, e := range model.Edges {
		from, to := gvNodes[e.From], gvNodes[e.To]
		if from == nil || to == nil {
			continue
		}
		gvEdge, err := graph.CreateEdgeByName("", from, to)
		if err != nil {
			return nil, fmt.Errorf("diagram: create edge: %w", err)
		}
		if e.Label != "" {
			gvEdge.SetLabel(e.Label)
		}
		if e.Exec {
			gvEdge.SetStyle(cgraph.BoldEdgeStyle)
		} else {
			gvEdge.SetStyle(cgraph.DashedEdgeStyle)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// applyNodeStyle sets graphviz attributes based on node kind and status.
func applyNodeStyle(gvNode *cgraph.Node, n *Node) {
	gvNode.SetLabel(firstLine(n.Label))

	switch n.Kind {
	case NodeKindEvent:
		gvNode.SetShape(cgraph.EllipseShape)
	case NodeKindFlow:
		gvNode.SetShape(cgraph.DiamondShape)
	case NodeKindState:
		gvNode.SetShape(cgraph.ParallelogramShape)
	case NodeKindReroute:
		gvNode.SetShape(cgraph.CircleShape)
		gvNode.SetWidth(0.3)
		gvNode.SetHeight(0.3)
	case NodeKindComment:
		gvNode.SetShape(cgraph.NoteShape)
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}

	if n.Status != "" {
		applyStatusColor(gvNode, n.Status)
	}
}

// applyStatusColor sets fill color and style based on status.
func applyStatusColor(gvNode *cgraph.Node, s Status) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	switch s {
	case StatusScheduled:
		gvNode.SetFillColor("#2d6a2d")
		gvNode.SetFontColor("white")
	case StatusError:
		gvNode.SetFillColor("#8b1a1a")
		gvNode.SetFontColor("white")
	case StatusWarning:
		gvNode.SetFillColor("#b7791a")
		gvNode.SetFontColor("white")
	case StatusAdded:
		gvNode.SetFillColor("#1a5276")
		gvNode.SetFontColor("white")
	case StatusChanged:
		gvNode.SetFillColor("#7d3c98")
		gvNode.SetFontColor("white")
	case StatusPruned, StatusRemoved:
		gvNode.SetFillColor("#e8e8e8")
		gvNode.SetFontColor("#888888")
		gvNode.SetStyle(cgraph.DashedNodeStyle)
	}
}
