package expressions

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/weftlabs/weft/pkg/resource"
)

// celScopeKeys are the top-level variables the CEL environment
// declares; they mirror the scope builder's namespaces.
var celScopeKeys = []string{"values", "flat", "widget", "attrs"}

// CELEngine evaluates CEL expressions against the widget scope. CEL
// suits boolean conditions since it is side-effect free and fails
// fast on type errors. Compiled programs are cached per expression
// text and shared across goroutines.
type CELEngine struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewCELEngine builds a sandboxed environment declaring each scope
// namespace as map(string, dyn).
func NewCELEngine() (*CELEngine, error) {
	mapType := cel.MapType(cel.StringType, cel.DynType)

	var decls []cel.EnvOption
	for _, key := range celScopeKeys {
		decls = append(decls, cel.Variable(key, mapType))
	}
	env, err := cel.NewEnv(decls...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &CELEngine{env: env, cache: make(map[string]cel.Program)}, nil
}

func (e *CELEngine) Name() string { return "cel" }

func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, resource.NewError(resource.ErrCodeExpression, "empty CEL expression")
	}

	prg, err := e.compiled(expression)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(celActivation(data))
	if err != nil {
		return nil, resource.NewErrorf(resource.ErrCodeExpression,
			"CEL evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}
	return out.Value(), nil
}

func (e *CELEngine) compiled(expression string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.cache[expression]; ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, resource.NewErrorf(resource.ErrCodeExpression,
			"CEL compile error in %q: %s", expression, issues.Err().Error()).
			WithCause(issues.Err()).
			WithDetails(map[string]any{"expression": expression})
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, resource.NewErrorf(resource.ErrCodeExpression,
			"CEL program error for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	e.cache[expression] = prg
	return prg, nil
}

// celActivation fills every declared namespace, substituting empty
// maps for absent ones so evaluation never hits a missing variable.
func celActivation(data map[string]any) map[string]any {
	activation := make(map[string]any, len(celScopeKeys))
	for _, key := range celScopeKeys {
		if v, ok := data[key]; ok && v != nil {
			activation[key] = v
		} else {
			activation[key] = map[string]any{}
		}
	}
	return activation
}

var _ Engine = (*CELEngine)(nil)
