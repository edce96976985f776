// Package nodes provides the built-in node behaviours and a registry that
// builds them by class name from JSON properties.
package nodes

import (
	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/pkg/edgraph"
)

// Built-in class names.
const (
	ClassEvent          = "Event"
	ClassFunctionCall   = "FunctionCall"
	ClassBranch         = "Branch"
	ClassSequence       = "Sequence"
	ClassVariableGet    = "VariableGet"
	ClassVariableSet    = "VariableSet"
	ClassMathExpression = "MathExpression"
	ClassGate           = "Gate"
	ClassTransform      = "Transform"
	ClassKnot           = "Knot"
	ClassComment        = "Comment"
	ClassCreateDelegate = "CreateDelegate"
	ClassLegacyCall     = "LegacyCall"
)

// Well-known pin names.
const (
	PinExecute     = "execute"
	PinThen        = "then"
	PinReturnValue = "ReturnValue"
	PinDelegate    = "OutputDelegate"
)

// Base supplies the defaults shared by every built-in kind. Delegate pins
// bind callbacks and never order execution.
type Base struct{}

func (Base) AllocateDefaultPins(*edgraph.Node) {}

func (Base) IsEdgeSignificant(p *edgraph.Pin) bool {
	return p.Type.Category != edgraph.CategoryDelegate
}

// ParamSpec declares a data pin carried by a node's properties.
type ParamSpec struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category,omitempty"`
	Object      string `json:"object,omitempty"`
	Container   string `json:"container,omitempty"`
	IsReference bool   `json:"is_reference,omitempty"`
	Default     string `json:"default,omitempty"`
}

// PinType converts the declaration. An unknown container falls back to none and is
// reported by validation.
func (s ParamSpec) PinType() edgraph.PinType {
	ct, _ := edgraph.ParseContainerType(s.Container)
	return edgraph.PinType{
		Category:          s.Category,
		SubCategory:       s.SubCategory,
		SubCategoryObject: s.Object,
		ContainerType:     ct,
		IsReference:       s.IsReference,
	}
}

func execPin(n *edgraph.Node, dir edgraph.Direction, name string) *edgraph.Pin {
	return n.CreatePin(dir, edgraph.TypeOf(edgraph.CategoryExec), name)
}

func addParamPins(n *edgraph.Node, dir edgraph.Direction, specs []ParamSpec) {
	for _, s := range specs {
		var opts []edgraph.PinOption
		if s.Default != "" {
			opts = append(opts, edgraph.WithDefault(s.Default))
		}
		n.CreatePin(dir, s.PinType(), s.Name, opts...)
	}
}

// validateParams reports malformed specs: missing names or categories,
// unknown containers and duplicate names.
func validateParams(n *edgraph.Node, log *compiler.MessageLog, what string, specs []ParamSpec) {
	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		switch {
		case s.Name == "":
			log.Error("@@ has an unnamed "+what+" at position @@", n, i)
			continue
		case s.Category == "":
			log.Error("@@ "+what+" '@@' has no category", n, s.Name)
		}
		if _, err := edgraph.ParseContainerType(s.Container); err != nil {
			log.Error("@@ "+what+" '@@': @@", n, s.Name, err)
		}
		if seen[s.Name] {
			log.Error("@@ declares "+what+" '@@' twice", n, s.Name)
		}
		seen[s.Name] = true
	}
}

// signaturesMatch compares parameter types in order. Names are free to differ.
func signaturesMatch(a, b []ParamSpec) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].PinType().Equal(b[i].PinType()) {
			return false
		}
	}
	return true
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
