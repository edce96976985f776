// Package expressions hosts the expression languages nodes and tools embed:
// expr for math, CEL for conditions and jq for data transforms.
package expressions

import (
	"context"
	"sync"
)

// Engine checks and evaluates expressions in one language.
type Engine interface {
	Name() string
	// Check reports whether expression is valid when only vars are in scope.
	Check(expression string, vars []string) error
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// Engines bundles one instance of every engine. Each engine caches its
// compiled programs and is safe for concurrent use.
type Engines struct {
	Expr *ExprEngine
	CEL  *CELEngine
	JQ   *GoJQEngine
}

// NewEngines creates a fresh set of engines.
func NewEngines() *Engines {
	return &Engines{
		Expr: NewExprEngine(),
		CEL:  NewCELEngine(),
		JQ:   NewGoJQEngine(),
	}
}

// Get returns the engine registered under name, or nil.
func (e *Engines) Get(name string) Engine {
	switch name {
	case "expr":
		return e.Expr
	case "cel":
		return e.CEL
	case "jq":
		return e.JQ
	}
	return nil
}

var (
	defaultOnce    sync.Once
	defaultEngines *Engines
)

// Default returns the process-wide engine set used when none is injected.
func Default() *Engines {
	defaultOnce.Do(func() { defaultEngines = NewEngines() })
	return defaultEngines
}

func expressionDetails(expression string) map[string]any {
	return map[string]any{"expression": expression}
}
