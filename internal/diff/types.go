// Package diff structurally compares two versions of a node graph.
package diff

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// Kind tags a single difference.
type Kind string

const (
	NodeAdded                Kind = "node_added"
	NodeRemoved              Kind = "node_removed"
	NodeMoved                Kind = "node_moved"
	NodeComment              Kind = "node_comment"
	PinTypeCategory          Kind = "pin_type_category"
	PinTypeSubCategory       Kind = "pin_type_subcategory"
	PinTypeSubCategoryObject Kind = "pin_type_subcategory_object"
	PinTypeContainer         Kind = "pin_type_container"
	PinTypeIsReference       Kind = "pin_type_is_reference"
	PinLinkCountIncreased    Kind = "pin_link_count_increased"
	PinLinkCountDecreased    Kind = "pin_link_count_decreased"
	PinNewConnection         Kind = "pin_new_connection"
	PinDefaultValue          Kind = "pin_default_value"
	NodePinCount             Kind = "node_pin_count"
	NodeProperty             Kind = "node_property"
)

// Color is the presentation color of a record.
func (k Kind) Color() string {
	switch k {
	case NodeAdded:
		return "#3fb950"
	case NodeRemoved:
		return "#f85149"
	case NodeMoved, NodeComment:
		return "#8b949e"
	default:
		return "#d29922"
	}
}

// Flags select which categories of difference are checked.
type Flags uint8

const (
	FlagExistence Flags = 1 << iota
	FlagMovement
	FlagComment
	FlagPins
	FlagNodeSpecific

	FlagAll = FlagExistence | FlagMovement | FlagComment | FlagPins | FlagNodeSpecific
)

var flagNames = []struct {
	name string
	flag Flags
}{
	{"existence", FlagExistence},
	{"movement", FlagMovement},
	{"comment", FlagComment},
	{"pins", FlagPins},
	{"node", FlagNodeSpecific},
}

// ParseFlags parses a comma separated list such as "existence,pins" or "all".
func ParseFlags(s string) (Flags, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "all" {
		return FlagAll, nil
	}
	var f Flags
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		found := false
		for _, fn := range flagNames {
			if fn.name == part {
				f |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, edgraph.NewErrorf(edgraph.ErrCodeParse, "unknown diff flag %q", part)
		}
	}
	return f, nil
}

func (f Flags) String() string {
	if f == FlagAll {
		return "all"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, ",")
}

// Mode only changes how records about missing nodes are worded.
type Mode int

const (
	Additive Mode = iota
	Subtractive
)

// Match pairs a node of the old graph with its counterpart in the new one.
type Match struct {
	Old *edgraph.Node
	New *edgraph.Node
}

// Valid reports whether both sides are present.
func (m Match) Valid() bool {
	return m.Old != nil && m.New != nil
}

// Record is one structured difference.
type Record struct {
	Kind          Kind
	Node1         *edgraph.Node
	Node2         *edgraph.Node
	Pin1          *edgraph.Pin
	Pin2          *edgraph.Pin
	GraphName     string
	DisplayString string
	ToolTip       string
	Color         string
}

func (r Record) String() string {
	return fmt.Sprintf("%s: %s", r.Kind, r.DisplayString)
}

// RecordView is the serializable form of a Record.
type RecordView struct {
	Kind       Kind      `json:"kind"`
	Graph      string    `json:"graph,omitempty"`
	Node1ID    uuid.UUID `json:"node1_id,omitempty"`
	Node1Title string    `json:"node1_title,omitempty"`
	Node2ID    uuid.UUID `json:"node2_id,omitempty"`
	Node2Title string    `json:"node2_title,omitempty"`
	Pin1ID     uuid.UUID `json:"pin1_id,omitempty"`
	Pin1Name   string    `json:"pin1_name,omitempty"`
	Pin2ID     uuid.UUID `json:"pin2_id,omitempty"`
	Pin2Name   string    `json:"pin2_name,omitempty"`
	Display    string    `json:"display"`
	ToolTip    string    `json:"tooltip,omitempty"`
	Color      string    `json:"color,omitempty"`
}

// View flattens the record's references into IDs and names.
func (r Record) View() RecordView {
	v := RecordView{
		Kind:    r.Kind,
		Graph:   r.GraphName,
		Display: r.DisplayString,
		ToolTip: r.ToolTip,
		Color:   r.Color,
	}
	if r.Node1 != nil {
		v.Node1ID, v.Node1Title = r.Node1.ID, r.Node1.Title()
	}
	if r.Node2 != nil {
		v.Node2ID, v.Node2Title = r.Node2.ID, r.Node2.Title()
	}
	if r.Pin1 != nil {
		v.Pin1ID, v.Pin1Name = r.Pin1.ID, r.Pin1.DisplayName()
	}
	if r.Pin2 != nil {
		v.Pin2ID, v.Pin2Name = r.Pin2.ID, r.Pin2.DisplayName()
	}
	return v
}
