package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a DiagramModel as a Mermaid flowchart string. Exec
// edges are solid, data edges dotted.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph LR\n")
	if model.Title != "" {
		fmt.Fprintf(&b, "    %%%% %s\n", model.Title)
	}

	grouped := make(map[string]bool)
	for i, g := range model.Groups {
		fmt.Fprintf(&b, "    subgraph group_%d[%q]\n", i, g.Label)
		for _, id := range g.NodeIDs {
			if n := model.node(id); n != nil {
				fmt.Fprintf(&b, "        %s\n", mermaidNodeDef(n))
				grouped[id] = true
			}
		}
		b.WriteString("    end\n")
	}
	for _, n := range model.Nodes {
		if !grouped[n.ID] {
			fmt.Fprintf(&b, "    %s\n", mermaidNodeDef(n))
		}
	}

	for _, e := range model.Edges {
		arrow := "-.->"
		if e.Exec {
			arrow = "==>"
		}
		label := ""
		if e.Label != "" {
			label = fmt.Sprintf("|%s|", mermaidEscapeLabel(e.Label))
		}
		fmt.Fprintf(&b, "    %s %s%s %s\n", mermaidSafeID(e.From), arrow, label, mermaidSafeID(e.To))
	}

	b.WriteString("\n")
	b.WriteString("    classDef scheduled fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef error fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	b.WriteString("    classDef warning fill:#b7791a,stroke:#8a5c14,color:#fff\n")
	b.WriteString("    classDef pruned fill:#4a4a4a,stroke:#333,color:#aaa,stroke-dasharray:5 5\n")
	b.WriteString("    classDef added fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef removed fill:#6b6b6b,stroke:#8b1a1a,color:#fff,stroke-dasharray:5 5\n")
	b.WriteString("    classDef changed fill:#7d3c98,stroke:#512e5f,color:#fff\n")

	for _, n := range model.Nodes {
		if n.Status != "" {
			fmt.Fprintf(&b, "    class %s %s\n", mermaidSafeID(n.ID), n.Status)
		}
	}
	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the shape of its kind.
func mermaidNodeDef(n *Node) string {
	id := mermaidSafeID(n.ID)
	label := mermaidEscapeLabel(firstLine(n.Label))

	switch n.Kind {
	case NodeKindEvent:
		return fmt.Sprintf("%s([%q])", id, label)
	case NodeKindFlow:
		return fmt.Sprintf("%s{%q}", id, label)
	case NodeKindPure:
		return fmt.Sprintf("%s(%q)", id, label)
	case NodeKindState:
		return fmt.Sprintf("%s[/%q/]", id, label)
	case NodeKindReroute:
		return fmt.Sprintf("%s((%q))", id, label)
	case NodeKindComment:
		return fmt.Sprintf("%s>%q]", id, label)
	default:
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidSafeID turns a GUID into a Mermaid identifier. A leading letter keeps
// IDs starting with digits valid.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return "n_" + r.Replace(id)
}

func mermaidEscapeLabel(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "|", "#124;").Replace(s)
}
