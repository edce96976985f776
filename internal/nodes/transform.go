package nodes

import (
	"context"

	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/internal/expressions"
	"github.com/rendis/edgraph/pkg/edgraph"
)

// Transform reshapes its input with a jq program. It is pure.
type Transform struct {
	Base
	Query string `json:"query" edgraph:"edit"`

	engines *expressions.Engines
}

func (*Transform) Class() string { return ClassTransform }

func (t *Transform) Title(*edgraph.Node) string {
	return "Transform " + orDefault(t.Query, ".")
}

func (*Transform) AllocateDefaultPins(n *edgraph.Node) {
	n.CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryWildcard), "In")
	n.CreatePin(edgraph.Output, edgraph.TypeOf(edgraph.CategoryWildcard), "Out")
}

func (t *Transform) jq() *expressions.GoJQEngine {
	if t.engines == nil {
		return expressions.Default().JQ
	}
	return t.engines.JQ
}

func (t *Transform) ValidateNodeDuringCompilation(n *edgraph.Node, log *compiler.MessageLog) {
	if t.Query == "" {
		log.Error("@@ has no query", n)
		return
	}
	if err := t.jq().Check(t.Query, nil); err != nil {
		log.Error("@@ has an invalid query: @@", n, err)
	}
}

// Apply runs the query over input and returns every output.
func (t *Transform) Apply(ctx context.Context, input any) ([]any, error) {
	return t.jq().Run(ctx, t.Query, input)
}
