package nodes

import (
	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/pkg/edgraph"
)

// FunctionCall invokes a named function. Impure calls carry exec pins.
type FunctionCall struct {
	Base
	FunctionName string      `json:"function_name" edgraph:"edit"`
	Pure         bool        `json:"pure,omitempty" edgraph:"edit"`
	Params       []ParamSpec `json:"params,omitempty" edgraph:"edit"`
	Returns      []ParamSpec `json:"returns,omitempty" edgraph:"edit"`
	// KeepAlive protects calls with side effects from pruning.
	KeepAlive bool `json:"keep_alive,omitempty" edgraph:"edit"`
}

func (*FunctionCall) Class() string { return ClassFunctionCall }

func (f *FunctionCall) Title(*edgraph.Node) string { return f.FunctionName }

func (f *FunctionCall) AllocateDefaultPins(n *edgraph.Node) {
	if !f.Pure {
		execPin(n, edgraph.Input, PinExecute)
		execPin(n, edgraph.Output, PinThen)
	}
	addParamPins(n, edgraph.Input, f.Params)
	addParamPins(n, edgraph.Output, f.Returns)
}

func (f *FunctionCall) ShouldForceKeep() bool { return f.KeepAlive }

func (f *FunctionCall) ValidateNodeDuringCompilation(n *edgraph.Node, log *compiler.MessageLog) {
	if f.FunctionName == "" {
		log.Error("@@ has no function name", n)
	}
	validateParams(n, log, "parameter", f.Params)
	validateParams(n, log, "return value", f.Returns)
}

// LegacyCall is the retired form of FunctionCall. It still compiles but
// warns on every pass.
type LegacyCall struct {
	Base
	FunctionName string `json:"function_name" edgraph:"edit"`
	Replacement  string `json:"replacement,omitempty"`
}

func (*LegacyCall) Class() string { return ClassLegacyCall }

func (l *LegacyCall) Title(*edgraph.Node) string { return l.FunctionName }

func (*LegacyCall) AllocateDefaultPins(n *edgraph.Node) {
	execPin(n, edgraph.Input, PinExecute)
	execPin(n, edgraph.Output, PinThen)
}

func (*LegacyCall) IsDeprecated() bool            { return true }
func (*LegacyCall) ShouldWarnOnDeprecation() bool { return true }

func (l *LegacyCall) DeprecationMessage() string {
	return "replace it with a FunctionCall to " + orDefault(l.Replacement, orDefault(l.FunctionName, "the new API"))
}

// CreateDelegate binds FunctionName as a callback. Its "Event" input accepts
// an event's delegate pin and the signatures of both must agree.
type CreateDelegate struct {
	Base
	FunctionName string      `json:"function_name" edgraph:"edit"`
	Signature    []ParamSpec `json:"signature,omitempty" edgraph:"edit"`
}

// PinEvent is the delegate input of CreateDelegate.
const PinEvent = "Event"

func (*CreateDelegate) Class() string { return ClassCreateDelegate }

func (c *CreateDelegate) Title(*edgraph.Node) string {
	return "Create Delegate " + orDefault(c.FunctionName, "<unbound>")
}

func (c *CreateDelegate) AllocateDefaultPins(n *edgraph.Node) {
	n.CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryDelegate), PinEvent)
	n.CreatePin(edgraph.Output, edgraph.PinType{Category: edgraph.CategoryDelegate, SubCategory: c.FunctionName}, PinDelegate)
}

func (c *CreateDelegate) ValidateNodeDuringCompilation(n *edgraph.Node, log *compiler.MessageLog) {
	if c.FunctionName == "" {
		log.Error("@@ has no function to bind", n)
	}
	validateParams(n, log, "parameter", c.Signature)

	in := n.FindPin(PinEvent, edgraph.Input)
	if in == nil {
		return
	}
	for _, other := range in.LinkedTo() {
		if other == nil {
			continue
		}
		owner := other.OwningNode()
		ev, ok := owner.Behavior.(*Event)
		if !ok {
			log.Error("@@ must be bound to an event, not @@", n, owner)
			continue
		}
		if !signaturesMatch(ev.Signature, c.Signature) {
			log.Error("Signature of @@ does not match @@", owner, n)
		}
	}
}
