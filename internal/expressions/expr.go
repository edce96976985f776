package expressions

import (
	"context"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// ExprEngine evaluates expr-lang expressions. MathExpression nodes derive
// their input pins from the free identifiers of an expression.
// Compiled programs are cached per expression.
type ExprEngine struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExprEngine creates a new Expr expression engine.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{
		cache: make(map[string]*vm.Program),
	}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string {
	return "expr"
}

// Check compiles expression against an environment holding exactly vars, so
// references to anything else fail.
func (e *ExprEngine) Check(expression string, vars []string) error {
	if expression == "" {
		return edgraph.NewError(edgraph.ErrCodeValidation, "empty expr expression")
	}
	env := make(map[string]any, len(vars))
	for _, v := range vars {
		env[v] = 0.0
	}
	if _, err := expr.Compile(expression, expr.Env(env)); err != nil {
		return edgraph.NewErrorf(edgraph.ErrCodeValidation,
			"expr compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(expressionDetails(expression))
	}
	return nil
}

// Evaluate compiles (or retrieves from cache) an Expr expression and evaluates it
// against the provided data. Every key of data is a top-level variable.
func (e *ExprEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, edgraph.NewError(edgraph.ErrCodeValidation, "empty expr expression")
	}

	prg, err := e.getOrCompile(expression, data)
	if err != nil {
		return nil, err
	}

	env := data
	if env == nil {
		env = map[string]any{}
	}

	out, err := vm.Run(prg, env)
	if err != nil {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeEvaluation,
			"expr evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(expressionDetails(expression))
	}

	return out, nil
}

// Identifiers returns the free variables of expression in first-use order.
// Function names and let-bound names are not variables.
func (e *ExprEngine) Identifiers(expression string) ([]string, error) {
	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeParse,
			"expr parse error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(expressionDetails(expression))
	}

	c := &identCollector{
		seen:     make(map[string]bool),
		callees:  make(map[string]bool),
		declared: make(map[string]bool),
	}
	ast.Walk(&tree.Node, c)

	var out []string
	for _, name := range c.order {
		if c.callees[name] || c.declared[name] {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

type identCollector struct {
	order    []string
	seen     map[string]bool
	callees  map[string]bool
	declared map[string]bool
}

func (c *identCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if !c.seen[n.Value] {
			c.seen[n.Value] = true
			c.order = append(c.order, n.Value)
		}
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok {
			c.callees[id.Value] = true
		}
	case *ast.VariableDeclaratorNode:
		c.declared[n.Name] = true
	}
}

// getOrCompile returns a cached compiled program or compiles and caches a new one.
// The data map is used to infer the environment type for compilation.
func (e *ExprEngine) getOrCompile(expression string, data map[string]any) (*vm.Program, error) {
	e.mu.RLock()
	if prg, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.cache[expression]; ok {
		return prg, nil
	}

	env := data
	if env == nil {
		env = map[string]any{}
	}

	prg, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeValidation,
			"expr compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(expressionDetails(expression))
	}

	e.cache[expression] = prg
	return prg, nil
}

var _ Engine = (*ExprEngine)(nil)
