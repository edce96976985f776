package expressions

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// CELEngine evaluates Common Expression Language conditions. Gate nodes use
// their input pin names as variables; diff filters see a single "record".
// Variables are declared dyn, so environments are shared by every expression
// over the same variable set.
type CELEngine struct {
	mu    sync.RWMutex
	envs  map[string]*cel.Env
	cache map[string]cel.Program
}

// NewCELEngine creates a new CEL expression engine.
func NewCELEngine() *CELEngine {
	return &CELEngine{
		envs:  make(map[string]*cel.Env),
		cache: make(map[string]cel.Program),
	}
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string {
	return "cel"
}

// Check compiles expression with only vars declared.
func (e *CELEngine) Check(expression string, vars []string) error {
	_, err := e.compile(expression, vars)
	return err
}

// CheckBool is Check that also rejects expressions whose static type cannot
// be a bool.
func (e *CELEngine) CheckBool(expression string, vars []string) error {
	ast, err := e.compile(expression, vars)
	if err != nil {
		return err
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return edgraph.NewErrorf(edgraph.ErrCodeValidation,
			"CEL expression %q yields %s, want bool", expression, out).
			WithDetails(expressionDetails(expression))
	}
	return nil
}

// Evaluate compiles (or retrieves from cache) a CEL expression and evaluates it
// against data. Every key of data is declared as a variable.
func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	vars := make([]string, 0, len(data))
	for k := range data {
		vars = append(vars, k)
	}

	prg, err := e.getOrCompile(expression, vars)
	if err != nil {
		return nil, err
	}

	activation := data
	if activation == nil {
		activation = map[string]any{}
	}

	out, _, err := prg.ContextEval(ctx, activation)
	if err != nil {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeEvaluation,
			"CEL evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(expressionDetails(expression))
	}

	return out.Value(), nil
}

// EvaluateBool evaluates a condition and requires a bool result.
func (e *CELEngine) EvaluateBool(ctx context.Context, expression string, data map[string]any) (bool, error) {
	out, err := e.Evaluate(ctx, expression, data)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, edgraph.NewErrorf(edgraph.ErrCodeEvaluation,
			"CEL expression %q returned %T, want bool", expression, out).
			WithDetails(expressionDetails(expression))
	}
	return b, nil
}

func varsKey(vars []string) string {
	sorted := slices.Clone(vars)
	slices.Sort(sorted)
	return strings.Join(slices.Compact(sorted), ",")
}

// env returns the shared environment for vars. Callers hold e.mu.
func (e *CELEngine) env(vars []string) (*cel.Env, error) {
	key := varsKey(vars)
	if env, ok := e.envs[key]; ok {
		return env, nil
	}
	var opts []cel.EnvOption
	if key != "" {
		for _, v := range strings.Split(key, ",") {
			opts = append(opts, cel.Variable(v, cel.DynType))
		}
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	e.envs[key] = env
	return env, nil
}

func (e *CELEngine) compile(expression string, vars []string) (*cel.Ast, error) {
	if expression == "" {
		return nil, edgraph.NewError(edgraph.ErrCodeValidation, "empty CEL expression")
	}

	e.mu.Lock()
	env, err := e.env(vars)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeValidation,
			"CEL compile error in %q: %s", expression, issues.Err().Error()).
			WithCause(issues.Err()).
			WithDetails(expressionDetails(expression))
	}
	return ast, nil
}

// getOrCompile returns a cached compiled program or compiles and caches a new one.
func (e *CELEngine) getOrCompile(expression string, vars []string) (cel.Program, error) {
	key := varsKey(vars) + "\x00" + expression

	e.mu.RLock()
	if prg, ok := e.cache[key]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	ast, err := e.compile(expression, vars)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.cache[key]; ok {
		return prg, nil
	}

	prg, err := e.envs[varsKey(vars)].Program(ast)
	if err != nil {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeValidation,
			"CEL program error for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(expressionDetails(expression))
	}

	e.cache[key] = prg
	return prg, nil
}

var _ Engine = (*CELEngine)(nil)
