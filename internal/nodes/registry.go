package nodes

import (
	"bytes"
	"encoding/json"
	"sort"
	"sync"

	"github.com/rendis/edgraph/internal/expressions"
	"github.com/rendis/edgraph/pkg/edgraph"
)

// Factory returns a zero-configured behaviour. Properties are decoded into
// it afterwards, so defaults set here survive absent keys.
type Factory func(engines *expressions.Engines) edgraph.Behavior

// Registry is a thread-safe class name to factory map.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	engines   *expressions.Engines
}

// NewRegistry creates an empty Registry. A nil engines uses expressions.Default.
func NewRegistry(engines *expressions.Engines) *Registry {
	if engines == nil {
		engines = expressions.Default()
	}
	return &Registry{
		factories: make(map[string]Factory),
		engines:   engines,
	}
}

// DefaultRegistry returns a registry holding every built-in kind.
func DefaultRegistry() *Registry {
	r := NewRegistry(nil)
	if err := RegisterBuiltins(r); err != nil {
		panic(err)
	}
	return r
}

// Register adds a factory. Returns an error on duplicate class.
func (r *Registry) Register(class string, f Factory) error {
	if class == "" {
		return edgraph.NewError(edgraph.ErrCodeValidation, "node class is empty")
	}
	if f == nil {
		return edgraph.NewErrorf(edgraph.ErrCodeValidation, "factory for %q is nil", class)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[class]; exists {
		return edgraph.NewErrorf(edgraph.ErrCodeConflict, "node class %q already registered", class)
	}
	r.factories[class] = f
	return nil
}

// New builds a behaviour of class and decodes props into it. Unknown
// property keys are rejected.
func (r *Registry) New(class string, props json.RawMessage) (edgraph.Behavior, error) {
	r.mu.RLock()
	f, ok := r.factories[class]
	r.mu.RUnlock()
	if !ok {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeNotFound, "node class %q not registered", class)
	}

	b := f(r.engines)
	if len(bytes.TrimSpace(props)) == 0 || string(bytes.TrimSpace(props)) == "null" {
		return b, nil
	}
	dec := json.NewDecoder(bytes.NewReader(props))
	dec.DisallowUnknownFields()
	if err := dec.Decode(b); err != nil {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeValidation, "properties of %s: %s", class, err.Error()).
			WithCause(err)
	}
	return b, nil
}

// Has reports whether class is registered.
func (r *Registry) Has(class string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[class]
	return ok
}

// Classes returns the registered class names, sorted.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for c := range r.factories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Properties encodes the exported properties of b. Behaviours without any
// yield nil.
func Properties(b edgraph.Behavior) (json.RawMessage, error) {
	if b == nil {
		return nil, nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeValidation, "encode %s properties: %s", b.Class(), err.Error()).
			WithCause(err)
	}
	if string(data) == "{}" {
		return nil, nil
	}
	return data, nil
}

// RegisterBuiltins registers every built-in kind on r.
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		class string
		f     Factory
	}{
		{ClassEvent, func(*expressions.Engines) edgraph.Behavior { return &Event{} }},
		{ClassFunctionCall, func(*expressions.Engines) edgraph.Behavior { return &FunctionCall{} }},
		{ClassBranch, func(*expressions.Engines) edgraph.Behavior { return &Branch{} }},
		{ClassSequence, func(*expressions.Engines) edgraph.Behavior { return &Sequence{Outputs: 2} }},
		{ClassVariableGet, func(*expressions.Engines) edgraph.Behavior { return &VariableGet{} }},
		{ClassVariableSet, func(*expressions.Engines) edgraph.Behavior { return &VariableSet{} }},
		{ClassMathExpression, func(e *expressions.Engines) edgraph.Behavior { return &MathExpression{engines: e} }},
		{ClassGate, func(e *expressions.Engines) edgraph.Behavior { return &Gate{engines: e} }},
		{ClassTransform, func(e *expressions.Engines) edgraph.Behavior { return &Transform{engines: e} }},
		{ClassKnot, func(*expressions.Engines) edgraph.Behavior { return &Knot{} }},
		{ClassComment, func(*expressions.Engines) edgraph.Behavior { return &Comment{} }},
		{ClassCreateDelegate, func(*expressions.Engines) edgraph.Behavior { return &CreateDelegate{} }},
		{ClassLegacyCall, func(*expressions.Engines) edgraph.Behavior { return &LegacyCall{} }},
	}
	for _, b := range builtins {
		if err := r.Register(b.class, b.f); err != nil {
			return err
		}
	}
	return nil
}
