package panel

import (
	"context"

	"github.com/weftlabs/weft/internal/expressions"
	"github.com/weftlabs/weft/pkg/resource"
)

// Display-time attributes the panel evaluates when a region is shown.
// They shape presentation only; the stored value never changes.
const (
	// visibleWhenAttr holds a CEL condition. A false result hides the
	// region for this pass.
	visibleWhenAttr = "visible_when"

	// transformAttr holds a jq filter applied to the value before it
	// reaches the renderer.
	transformAttr = "transform"
)

// displayPass resolves display attributes against the live tree scope:
// visibility conditions, value transforms and ${{...}} interpolation
// in label and help text.
type displayPass struct {
	cel    *expressions.CELEngine
	jq     *expressions.GoJQEngine
	interp *expressions.Interpolator
}

func newDisplayPass() (*displayPass, error) {
	cel, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}
	return &displayPass{
		cel:    cel,
		jq:     expressions.NewGoJQEngine(),
		interp: expressions.NewInterpolator(),
	}, nil
}

// apply mutates state in place and reports whether the region should
// be shown at all.
func (d *displayPass) apply(ctx context.Context, root *resource.Root, state map[string]any) (bool, error) {
	if !d.needed(state) {
		return true, nil
	}

	sb, err := expressions.NewScopeBuilder(root)
	if err != nil {
		return false, err
	}
	scope := sb.WithAttrs(state).Build()

	if cond, ok := state[visibleWhenAttr].(string); ok && cond != "" {
		out, err := d.cel.Evaluate(ctx, cond, scope)
		if err != nil {
			return false, err
		}
		visible, ok := out.(bool)
		if !ok {
			return false, resource.NewErrorf(resource.ErrCodeExpression,
				"condition %q is not boolean (got %T)", cond, out)
		}
		if !visible {
			return false, nil
		}
	}

	for _, attr := range []string{"label", "help"} {
		s, ok := state[attr].(string)
		if !ok || !expressions.HasInterpolation(s) {
			continue
		}
		resolved, err := d.interp.ResolveString(ctx, s, scope)
		if err != nil {
			return false, err
		}
		state[attr] = resolved
	}

	if filter, ok := state[transformAttr].(string); ok && filter != "" {
		out, err := d.jq.EvaluateNormalized(ctx, filter, scope)
		if err != nil {
			return false, err
		}
		state["value"] = out
	}

	return true, nil
}

// needed short-circuits the scope build for plain regions.
func (d *displayPass) needed(state map[string]any) bool {
	if s, ok := state[visibleWhenAttr].(string); ok && s != "" {
		return true
	}
	if s, ok := state[transformAttr].(string); ok && s != "" {
		return true
	}
	for _, attr := range []string{"label", "help"} {
		if s, ok := state[attr].(string); ok && expressions.HasInterpolation(s) {
			return true
		}
	}
	return false
}
