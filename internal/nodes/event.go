package nodes

import (
	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/pkg/edgraph"
)

// Event starts execution. Its signature parameters become data outputs and
// its delegate pin lets CreateDelegate nodes bind to it.
type Event struct {
	Base
	EventName string      `json:"event_name" edgraph:"edit"`
	Signature []ParamSpec `json:"signature,omitempty" edgraph:"edit"`
}

func (*Event) Class() string { return ClassEvent }

func (e *Event) Title(*edgraph.Node) string {
	return "Event " + orDefault(e.EventName, "<unnamed>")
}

func (*Event) IsRoot() bool { return true }

func (e *Event) AllocateDefaultPins(n *edgraph.Node) {
	n.CreatePin(edgraph.Output, edgraph.PinType{Category: edgraph.CategoryDelegate, SubCategory: e.EventName}, PinDelegate)
	execPin(n, edgraph.Output, PinThen)
	addParamPins(n, edgraph.Output, e.Signature)
}

// ValidateNodeDuringCompilation requires a name unique among the graph's events.
func (e *Event) ValidateNodeDuringCompilation(n *edgraph.Node, log *compiler.MessageLog) {
	if e.EventName == "" {
		log.Error("@@ has no event name", n)
	}
	validateParams(n, log, "parameter", e.Signature)

	g := n.Graph()
	if g == nil || e.EventName == "" {
		return
	}
	for _, other := range g.Nodes {
		if other == n {
			return
		}
		if other == nil {
			continue
		}
		if o, ok := other.Behavior.(*Event); ok && o.EventName == e.EventName {
			log.ErrorCode(edgraph.ErrCodeDuplicateNode, "@@ duplicates @@", n, other)
			return
		}
	}
}
