package nodes

import (
	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/pkg/edgraph"
)

// VariableGet reads a graph variable. It is pure.
type VariableGet struct {
	Base
	Variable string `json:"variable" edgraph:"edit"`
	Category string `json:"category,omitempty" edgraph:"edit"`
}

func (*VariableGet) Class() string { return ClassVariableGet }

func (v *VariableGet) Title(*edgraph.Node) string { return "Get " + v.Variable }

func (v *VariableGet) AllocateDefaultPins(n *edgraph.Node) {
	n.CreatePin(edgraph.Output, edgraph.TypeOf(orDefault(v.Category, edgraph.CategoryWildcard)), v.Variable)
}

// ValidateNodeDuringCompilation warns about variables no node in the graph sets.
func (v *VariableGet) ValidateNodeDuringCompilation(n *edgraph.Node, log *compiler.MessageLog) {
	if v.Variable == "" {
		log.Error("@@ reads no variable", n)
		return
	}
	if g := n.Graph(); g != nil && !isVariableSet(g, v.Variable) {
		log.Warning("@@ reads '@@' which is never set", n, v.Variable)
	}
}

func isVariableSet(g *edgraph.Graph, name string) bool {
	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		if s, ok := n.Behavior.(*VariableSet); ok && s.Variable == name {
			return true
		}
	}
	return false
}

// VariableSet writes a graph variable and passes the new value on.
type VariableSet struct {
	Base
	Variable string `json:"variable" edgraph:"edit"`
	Category string `json:"category,omitempty" edgraph:"edit"`
}

func (*VariableSet) Class() string { return ClassVariableSet }

func (v *VariableSet) Title(*edgraph.Node) string { return "Set " + v.Variable }

func (v *VariableSet) AllocateDefaultPins(n *edgraph.Node) {
	t := edgraph.TypeOf(orDefault(v.Category, edgraph.CategoryWildcard))
	execPin(n, edgraph.Input, PinExecute)
	n.CreatePin(edgraph.Input, t, v.Variable)
	execPin(n, edgraph.Output, PinThen)
	n.CreatePin(edgraph.Output, t, "Output_Get")
}

func (v *VariableSet) ValidateNodeDuringCompilation(n *edgraph.Node, log *compiler.MessageLog) {
	if v.Variable == "" {
		log.Error("@@ writes no variable", n)
	}
}
