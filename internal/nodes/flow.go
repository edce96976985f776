package nodes

import (
	"context"
	"strconv"
	"strings"

	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/internal/expressions"
	"github.com/rendis/edgraph/pkg/edgraph"
)

// Branch routes execution on a bool condition.
type Branch struct {
	Base
}

func (*Branch) Class() string              { return ClassBranch }
func (*Branch) Title(*edgraph.Node) string { return "Branch" }

func (*Branch) AllocateDefaultPins(n *edgraph.Node) {
	execPin(n, edgraph.Input, PinExecute)
	n.CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryBool), "Condition", edgraph.WithDefault("true"))
	execPin(n, edgraph.Output, "True")
	execPin(n, edgraph.Output, "False")
}

// Sequence fires its exec outputs one after another.
type Sequence struct {
	Base
	Outputs int `json:"outputs" edgraph:"edit"`
}

func (*Sequence) Class() string              { return ClassSequence }
func (*Sequence) Title(*edgraph.Node) string { return "Sequence" }

func (s *Sequence) AllocateDefaultPins(n *edgraph.Node) {
	execPin(n, edgraph.Input, PinExecute)
	for i := 0; i < s.Outputs; i++ {
		execPin(n, edgraph.Output, "Then_"+strconv.Itoa(i))
	}
}

// AddOutput appends the next free Then_N pin.
func (s *Sequence) AddOutput(n *edgraph.Node) *edgraph.Pin {
	i := len(n.PinsInDirection(edgraph.Output))
	for n.FindPin("Then_"+strconv.Itoa(i), edgraph.Output) != nil {
		i++
	}
	p := execPin(n, edgraph.Output, "Then_"+strconv.Itoa(i))
	s.Outputs = len(n.PinsInDirection(edgraph.Output))
	return p
}

// OnPinRemoved keeps Outputs in step with the remaining exec outputs.
func (s *Sequence) OnPinRemoved(n *edgraph.Node, p *edgraph.Pin) {
	if p.Direction == edgraph.Output {
		s.Outputs = len(n.PinsInDirection(edgraph.Output))
	}
}

func (s *Sequence) ValidateNodeDuringCompilation(n *edgraph.Node, log *compiler.MessageLog) {
	if s.Outputs < 1 {
		log.Error("@@ needs at least one output", n)
	}
}

// Gate lets execution through when a CEL condition over its data inputs holds.
type Gate struct {
	Base
	Condition string   `json:"condition" edgraph:"edit"`
	Inputs    []string `json:"inputs,omitempty" edgraph:"edit"`

	engines *expressions.Engines
}

func (*Gate) Class() string { return ClassGate }

func (g *Gate) Title(*edgraph.Node) string {
	return "Gate " + orDefault(g.Condition, "<always>")
}

func (g *Gate) AllocateDefaultPins(n *edgraph.Node) {
	execPin(n, edgraph.Input, PinExecute)
	for _, name := range g.Inputs {
		n.CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryWildcard), name)
	}
	execPin(n, edgraph.Output, "Open")
	execPin(n, edgraph.Output, "Closed")
}

func (g *Gate) cel() *expressions.CELEngine {
	if g.engines == nil {
		return expressions.Default().CEL
	}
	return g.engines.CEL
}

func (g *Gate) ValidateNodeDuringCompilation(n *edgraph.Node, log *compiler.MessageLog) {
	if strings.TrimSpace(g.Condition) == "" {
		log.Error("@@ has no condition", n)
		return
	}
	if err := g.cel().CheckBool(g.Condition, g.Inputs); err != nil {
		log.Error("@@ has an invalid condition: @@", n, err)
	}
}

// Evaluate decides the gate for the given input values.
func (g *Gate) Evaluate(ctx context.Context, values map[string]any) (bool, error) {
	data := make(map[string]any, len(g.Inputs))
	for _, name := range g.Inputs {
		data[name] = values[name]
	}
	return g.cel().EvaluateBool(ctx, g.Condition, data)
}

// Knot reroutes a single wire. Its pins adopt the type of whatever is linked
// to them and fall back to wildcard once unlinked.
type Knot struct {
	Base
}

func (*Knot) Class() string              { return ClassKnot }
func (*Knot) Title(*edgraph.Node) string { return "Reroute" }

func (*Knot) AllocateDefaultPins(n *edgraph.Node) {
	n.CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryWildcard), "InputPin")
	n.CreatePin(edgraph.Output, edgraph.TypeOf(edgraph.CategoryWildcard), "OutputPin")
}

func (*Knot) NodeConnectionListChanged(n *edgraph.Node) {
	t := adoptedType(n)
	for _, p := range n.Pins {
		p.Type = t
	}
}

func adoptedType(n *edgraph.Node) edgraph.PinType {
	for _, p := range n.Pins {
		for _, other := range p.LinkedTo() {
			if other != nil && other.Type.Category != edgraph.CategoryWildcard {
				return other.Type
			}
		}
	}
	return edgraph.TypeOf(edgraph.CategoryWildcard)
}

// Comment is an annotation. It has no pins and survives pruning only when
// intermediate products are saved.
type Comment struct {
	Base
}

func (*Comment) Class() string { return ClassComment }

func (*Comment) Title(n *edgraph.Node) string {
	return orDefault(n.Comment, "Comment")
}

func (*Comment) IsIntermediateProduct() bool { return true }
