package expressions

import "context"

// Engine evaluates an expression against a scope of widget values.
// Expr is the default for derived values; CEL and gojq are selectable
// alternatives for boolean checks and structural transforms.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
