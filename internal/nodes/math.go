package nodes

import (
	"context"
	"slices"
	"strconv"

	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/internal/expressions"
	"github.com/rendis/edgraph/pkg/edgraph"
)

// MathExpression is a pure node whose inputs are the free variables of an
// expr-lang expression.
type MathExpression struct {
	Base
	Expression string `json:"expression" edgraph:"edit"`

	engines *expressions.Engines
}

func (*MathExpression) Class() string { return ClassMathExpression }

func (m *MathExpression) Title(*edgraph.Node) string {
	return orDefault(m.Expression, "Math Expression")
}

func (m *MathExpression) expr() *expressions.ExprEngine {
	if m.engines == nil {
		return expressions.Default().Expr
	}
	return m.engines.Expr
}

// AllocateDefaultPins creates one float input per variable. An expression
// that does not parse gets no inputs; validation reports it.
func (m *MathExpression) AllocateDefaultPins(n *edgraph.Node) {
	vars, _ := m.expr().Identifiers(m.Expression)
	for _, v := range vars {
		n.CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryFloat), v, edgraph.WithDefault("0"))
	}
	n.CreatePin(edgraph.Output, edgraph.TypeOf(edgraph.CategoryFloat), PinReturnValue)
}

// Refresh reconciles the input pins with the current expression. Pins that
// survive keep their links and defaults.
func (m *MathExpression) Refresh(n *edgraph.Node) error {
	vars, err := m.expr().Identifiers(m.Expression)
	if err != nil {
		return err
	}
	for _, p := range n.PinsInDirection(edgraph.Input) {
		if !slices.Contains(vars, p.Name) {
			n.RemovePin(p)
		}
	}
	for i, v := range vars {
		if n.FindPin(v, edgraph.Input) == nil {
			n.CreatePin(edgraph.Input, edgraph.TypeOf(edgraph.CategoryFloat), v,
				edgraph.WithDefault("0"), edgraph.AtIndex(i))
		}
	}
	return nil
}

func (m *MathExpression) ValidateNodeDuringCompilation(n *edgraph.Node, log *compiler.MessageLog) {
	if m.Expression == "" {
		log.Error("@@ has an empty expression", n)
		return
	}
	vars, err := m.expr().Identifiers(m.Expression)
	if err != nil {
		log.Error("@@ has an invalid expression: @@", n, err)
		return
	}
	if err := m.expr().Check(m.Expression, vars); err != nil {
		log.Error("@@ has an invalid expression: @@", n, err)
		return
	}
	var pins []string
	for _, p := range n.PinsInDirection(edgraph.Input) {
		pins = append(pins, p.Name)
	}
	if !slices.Equal(pins, vars) {
		log.Warning("@@ inputs are out of date with its expression", n)
	}
}

// Preview evaluates the expression with every input at its default value.
func (m *MathExpression) Preview(ctx context.Context, n *edgraph.Node) (any, error) {
	data := make(map[string]any)
	for _, p := range n.PinsInDirection(edgraph.Input) {
		v := 0.0
		if s := p.DefaultAsString(); s != "" {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, edgraph.NewErrorf(edgraph.ErrCodeValidation,
					"default of %s is not a number: %q", p, s).WithNode(n.ID)
			}
			v = f
		}
		data[p.Name] = v
	}
	return m.expr().Evaluate(ctx, m.Expression, data)
}
