package weft

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/weftlabs/weft/internal/expressions"
	"github.com/weftlabs/weft/pkg/resource"
)

// DerivedAttr is the attribute naming a leaf's derived-value
// expression. Leaves carrying it are recomputed on every pass.
const DerivedAttr = "expr"

// Derived returns a visualize hook that recomputes every leaf under
// the composite carrying an "expr" attribute. Expressions reference
// sibling values via ${{values.<id>}} tokens; derived leaves are
// evaluated after the ones they reference. A nil engine defaults to
// the expr-lang engine.
//
// Attach it to the root (or any container) with WithVisualize, so the
// recomputation runs after children have consumed their inputs.
func Derived(engine expressions.Engine) resource.HookFunc {
	if engine == nil {
		engine = expressions.NewExprEngine()
	}
	interp := expressions.NewInterpolator()

	return func(ctx context.Context, c *resource.Composite, rc *resource.RunContext) error {
		leaves, exprByID, err := derivedLeaves(c)
		if err != nil {
			return err
		}
		if len(leaves) == 0 {
			return nil
		}
		if err := expressions.DetectCircularRefs(exprByID); err != nil {
			return err
		}
		for _, d := range evalOrder(leaves) {
			scope, err := scopeFor(c)
			if err != nil {
				return err
			}
			val, err := evalDerived(ctx, engine, interp, d.expr, scope)
			if err != nil {
				return resource.NewErrorf(resource.ErrCodeExpression,
					"derived value %q failed", d.id).
					WithPath(d.path...).WithCause(err)
			}
			if err := c.SetValueAt(d.path, val); err != nil {
				return err
			}
		}
		return nil
	}
}

type derivedLeaf struct {
	id   string
	path []string
	expr string
}

func derivedLeaves(c *resource.Composite) ([]derivedLeaf, map[string]string, error) {
	var leaves []derivedLeaf
	exprByID := make(map[string]string)
	err := resource.Walk(c, func(path []string, r resource.Resource) error {
		n, ok := r.(*resource.Node)
		if !ok {
			return nil
		}
		e, ok := n.Attrs()[DerivedAttr].(string)
		if !ok || e == "" {
			return nil
		}
		leaves = append(leaves, derivedLeaf{
			id:   n.ID(),
			path: append([]string(nil), path...),
			expr: e,
		})
		exprByID[n.ID()] = e
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return leaves, exprByID, nil
}

// evalOrder sorts derived leaves so that a leaf referencing another
// derived leaf's value is evaluated after it. References to plain
// input leaves impose no ordering. Assumes cycles were rejected.
func evalOrder(leaves []derivedLeaf) []derivedLeaf {
	byID := make(map[string]derivedLeaf, len(leaves))
	for _, d := range leaves {
		byID[d.id] = d
	}
	inDegree := make(map[string]int, len(leaves))
	dependents := make(map[string][]string)
	for _, d := range leaves {
		inDegree[d.id] = 0
	}
	for _, d := range leaves {
		for _, ref := range expressions.ValueRefs(d.expr) {
			if _, derived := byID[ref]; !derived || ref == d.id {
				continue
			}
			dependents[ref] = append(dependents[ref], d.id)
			inDegree[d.id]++
		}
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	ordered := make([]derivedLeaf, 0, len(leaves))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		ordered = append(ordered, byID[id])
		next := dependents[id]
		sort.Strings(next)
		for _, dep := range next {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	return ordered
}

func scopeFor(c *resource.Composite) (map[string]any, error) {
	flat, err := c.FlatValues()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"values": c.AllValues(),
		"flat":   flat,
		"widget": map[string]any{},
		"attrs":  map[string]any{},
	}, nil
}

// evalDerived evaluates one expression. A bare ${{...}} token yields
// the referenced value unchanged; a mixed expression has each token
// bound to a fresh identifier before the engine evaluates it, so
// referenced values keep their types.
func evalDerived(ctx context.Context, engine expressions.Engine, interp *expressions.Interpolator, expr string, scope map[string]any) (any, error) {
	trimmed := strings.TrimSpace(expr)
	if strings.HasPrefix(trimmed, "${{") && strings.HasSuffix(trimmed, "}}") &&
		strings.Count(trimmed, "${{") == 1 {
		return interp.ResolveRef(trimmed[3:len(trimmed)-2], scope)
	}
	if !expressions.HasInterpolation(trimmed) {
		return engine.Evaluate(ctx, trimmed, scope)
	}
	bound, env, err := bindRefs(trimmed, interp, scope)
	if err != nil {
		return nil, err
	}
	return engine.Evaluate(ctx, bound, env)
}

// bindRefs rewrites each ${{...}} token into an identifier refN bound
// to the token's resolved value in a copy of the scope.
func bindRefs(expr string, interp *expressions.Interpolator, scope map[string]any) (string, map[string]any, error) {
	env := make(map[string]any, len(scope)+2)
	for k, v := range scope {
		env[k] = v
	}

	var out strings.Builder
	out.Grow(len(expr))
	n := 0
	for {
		idx := strings.Index(expr, "${{")
		if idx == -1 {
			out.WriteString(expr)
			break
		}
		out.WriteString(expr[:idx])
		rest := expr[idx+3:]
		end := strings.Index(rest, "}}")
		if end == -1 {
			return "", nil, resource.NewError(resource.ErrCodeExpression,
				"unclosed ${{ expression")
		}
		val, err := interp.ResolveRef(rest[:end], scope)
		if err != nil {
			return "", nil, err
		}
		name := fmt.Sprintf("ref%d", n)
		n++
		env[name] = val
		out.WriteString(name)
		expr = rest[end+2:]
	}
	return out.String(), env, nil
}
