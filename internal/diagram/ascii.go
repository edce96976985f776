package diagram

import (
	"fmt"
	"strings"
)

// statusTag returns a short ASCII indicator for a status.
func statusTag(s Status) string {
	switch s {
	case StatusScheduled:
		return "[OK]"
	case StatusError:
		return "[ERR]"
	case StatusWarning:
		return "[WARN]"
	case StatusPruned:
		return "[PRUNED]"
	case StatusAdded:
		return "[+]"
	case StatusRemoved:
		return "[-]"
	case StatusChanged:
		return "[~]"
	default:
		return ""
	}
}

// RenderASCII renders a DiagramModel as boxes, one row per level. Without
// levels every node gets its own row in model order. Nodes outside the levels
// (pruned or removed) are listed at the end.
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder

	if model.Title != "" {
		fmt.Fprintf(&b, "=== %s ===\n\n", model.Title)
	}

	levels := model.Levels
	if len(levels) == 0 {
		for _, n := range model.Nodes {
			levels = append(levels, []string{n.ID})
		}
	}

	placed := make(map[string]bool)
	for levelIdx, level := range levels {
		var boxes []asciiBox
		for _, id := range level {
			n := model.node(id)
			if n == nil {
				continue
			}
			boxes = append(boxes, makeBox(n))
			placed[id] = true
		}
		renderBoxRow(&b, boxes)
		if levelIdx < len(levels)-1 {
			renderConnector(&b, len(boxes))
		}
	}

	var rest []*Node
	for _, n := range model.Nodes {
		if !placed[n.ID] {
			rest = append(rest, n)
		}
	}
	if len(rest) > 0 {
		b.WriteString("\n--- not scheduled ---\n")
		for _, n := range rest {
			tag := statusTag(n.Status)
			if tag != "" {
				tag = " " + tag
			}
			fmt.Fprintf(&b, "  %s%s\n", firstLine(n.Label), tag)
		}
	}

	header := false
	for _, n := range model.Nodes {
		for _, note := range n.Notes {
			if !header {
				b.WriteString("\n--- notes ---\n")
				header = true
			}
			fmt.Fprintf(&b, "  %s: %s\n", firstLine(n.Label), note)
		}
	}
	return b.String()
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
}

func makeBox(n *Node) asciiBox {
	contentLines := []string{firstLine(n.Label)}
	if tag := statusTag(n.Status); tag != "" {
		contentLines = append(contentLines, tag)
	}

	maxLen := 0
	for _, line := range contentLines {
		if l := len([]rune(line)); l > maxLen {
			maxLen = l
		}
	}
	width := maxLen + 4

	lines := []string{"┌" + strings.Repeat("─", width-2) + "┐"}
	for _, content := range contentLines {
		padded := content + strings.Repeat(" ", maxLen-len([]rune(content)))
		lines = append(lines, "│ "+padded+" │")
	}
	lines = append(lines, "└"+strings.Repeat("─", width-2)+"┘")
	return asciiBox{lines: lines, width: width}
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	if len(boxes) == 0 {
		return
	}
	maxHeight := 0
	for _, box := range boxes {
		if len(box.lines) > maxHeight {
			maxHeight = len(box.lines)
		}
	}
	for row := 0; row < maxHeight; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ")
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

// renderConnector draws a vertical connector between levels.
func renderConnector(b *strings.Builder, boxCount int) {
	if boxCount == 0 {
		return
	}
	b.WriteString("       │\n")
	b.WriteString("       ▼\n")
}
