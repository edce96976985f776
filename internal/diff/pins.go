package diff

import (
	"fmt"
	"strings"

	"github.com/rendis/edgraph/pkg/edgraph"
)

func relevantPins(n *edgraph.Node) []*edgraph.Pin {
	var out []*edgraph.Pin
	for _, p := range n.Pins {
		if p != nil && !p.Hidden {
			out = append(out, p)
		}
	}
	return out
}

// DiffPins compares the visible pins of a matched node pair. When the pin
// counts differ, a single pin count record names the added and removed pins.
// Otherwise pins are paired by index and their names are not compared.
func (c *Control) DiffPins(lhs, rhs *edgraph.Node, results *Results) bool {
	before := results.total
	oldPins, newPins := relevantPins(lhs), relevantPins(rhs)

	if len(oldPins) != len(newPins) {
		added, removed := pinNameDelta(oldPins, newPins)
		results.Add(Record{
			Kind:          NodePinCount,
			Node1:         lhs,
			Node2:         rhs,
			DisplayString: pinCountDisplay(added, removed),
			ToolTip:       fmt.Sprintf("Node '%s' went from %d to %d pins", rhs.Title(), len(oldPins), len(newPins)),
		})
		return true
	}

	for i := range oldPins {
		if results.done() {
			break
		}
		c.diffPinPair(oldPins[i], newPins[i], results)
	}
	return results.total > before
}

func (c *Control) diffPinPair(op, np *edgraph.Pin, results *Results) {
	if kind, ok := firstTypeChange(op.Type, np.Type); ok {
		results.Add(Record{
			Kind:          kind,
			Node1:         op.OwningNode(),
			Node2:         np.OwningNode(),
			Pin1:          op,
			Pin2:          np,
			DisplayString: typeChangeLabel(kind) + ": " + np.DisplayName(),
			ToolTip:       fmt.Sprintf("Pin '%s' type changed from %s to %s", np.DisplayName(), op.Type, np.Type),
		})
		if results.done() {
			return
		}
	}

	oldLinks, newLinks := resolvedLinks(op), resolvedLinks(np)
	switch {
	case len(oldLinks) < len(newLinks):
		results.Add(c.linkCountRecord(PinLinkCountIncreased, op, np, len(oldLinks), len(newLinks)))
		return
	case len(oldLinks) > len(newLinks):
		results.Add(c.linkCountRecord(PinLinkCountDecreased, op, np, len(oldLinks), len(newLinks)))
		return
	}

	for i, ol := range oldLinks {
		nl := correspondingLink(ol, newLinks, i)
		if IsNodeMatch(ol.OwningNode(), nl.OwningNode(), nil) {
			continue
		}
		results.Add(Record{
			Kind:          PinNewConnection,
			Node1:         ol.OwningNode(),
			Node2:         nl.OwningNode(),
			Pin1:          op,
			Pin2:          np,
			DisplayString: "Pin Relinked: " + np.DisplayName(),
			ToolTip: fmt.Sprintf("Pin '%s' now links to '%s' instead of '%s'",
				np.DisplayName(), titleOf(nl.OwningNode()), titleOf(ol.OwningNode())),
		})
		if results.done() {
			return
		}
	}

	// A linked pin's default never reaches runtime.
	if len(newLinks) > 0 || np.LinkCount() > 0 {
		return
	}
	if !edgraph.DefaultsEqual(np.Type.Category, op.DefaultAsString(), np.DefaultAsString()) {
		results.Add(Record{
			Kind:          PinDefaultValue,
			Node1:         op.OwningNode(),
			Node2:         np.OwningNode(),
			Pin1:          op,
			Pin2:          np,
			DisplayString: "Pin Default Changed: " + np.DisplayName(),
			ToolTip: fmt.Sprintf("Pin '%s' default value changed from '%s' to '%s'",
				np.DisplayName(), op.DefaultAsString(), np.DefaultAsString()),
		})
	}
}

func (c *Control) linkCountRecord(kind Kind, op, np *edgraph.Pin, from, to int) Record {
	verb := "Added"
	if kind == PinLinkCountDecreased {
		verb = "Removed"
	}
	return Record{
		Kind:          kind,
		Node1:         op.OwningNode(),
		Node2:         np.OwningNode(),
		Pin1:          op,
		Pin2:          np,
		DisplayString: verb + " Link: " + np.DisplayName(),
		ToolTip:       fmt.Sprintf("Pin '%s' link count changed from %d to %d", np.DisplayName(), from, to),
	}
}

// firstTypeChange reports the first differing aspect in priority order.
func firstTypeChange(a, b edgraph.PinType) (Kind, bool) {
	switch {
	case a.Category != b.Category:
		return PinTypeCategory, true
	case a.SubCategory != b.SubCategory:
		return PinTypeSubCategory, true
	case a.SubCategoryObject != b.SubCategoryObject:
		return PinTypeSubCategoryObject, true
	case a.ContainerType != b.ContainerType:
		return PinTypeContainer, true
	case a.IsReference != b.IsReference:
		return PinTypeIsReference, true
	}
	return "", false
}

func typeChangeLabel(k Kind) string {
	switch k {
	case PinTypeCategory:
		return "Pin Type Changed"
	case PinTypeSubCategory:
		return "Pin Subtype Changed"
	case PinTypeSubCategoryObject:
		return "Pin Object Type Changed"
	case PinTypeContainer:
		return "Pin Container Changed"
	default:
		return "Pin Reference Changed"
	}
}

func resolvedLinks(p *edgraph.Pin) []*edgraph.Pin {
	var out []*edgraph.Pin
	for _, other := range p.LinkedTo() {
		if other != nil {
			out = append(out, other)
		}
	}
	return out
}

// correspondingLink prefers the link whose node matches old's node, falling
// back to the link at the same position.
func correspondingLink(old *edgraph.Pin, links []*edgraph.Pin, index int) *edgraph.Pin {
	for _, l := range links {
		if IsNodeMatch(old.OwningNode(), l.OwningNode(), nil) {
			return l
		}
	}
	return links[index]
}

func titleOf(n *edgraph.Node) string {
	if n == nil {
		return "<none>"
	}
	return n.Title()
}

// pinNameDelta returns the names present only in newPins and only in
// oldPins. Duplicate names count separately.
func pinNameDelta(oldPins, newPins []*edgraph.Pin) (added, removed []string) {
	counts := make(map[string]int)
	for _, p := range oldPins {
		counts[p.Name]++
	}
	for _, p := range newPins {
		if counts[p.Name] > 0 {
			counts[p.Name]--
			continue
		}
		added = append(added, p.Name)
	}
	for _, p := range oldPins {
		if counts[p.Name] > 0 {
			counts[p.Name]--
			removed = append(removed, p.Name)
		}
	}
	return added, removed
}

func pinCountDisplay(added, removed []string) string {
	part := func(verb string, names []string) string {
		noun := "Pin"
		if len(names) > 1 {
			noun = "Pins"
		}
		return fmt.Sprintf("%s %s %s", verb, noun, strings.Join(names, ", "))
	}
	switch {
	case len(added) > 0 && len(removed) > 0:
		return part("Added", added) + " and " + part("removed", removed)
	case len(added) > 0:
		return part("Added", added)
	case len(removed) > 0:
		return part("Removed", removed)
	default:
		return "Pin Count Changed"
	}
}
