package expressions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/weftlabs/weft/pkg/resource"
)

// Interpolator resolves ${{...}} references in labels, help text, and
// renderer state against a scope built by ScopeBuilder.
type Interpolator struct{}

// NewInterpolator creates a new Interpolator.
func NewInterpolator() *Interpolator {
	return &Interpolator{}
}

// Resolve interpolates ${{...}} references in raw JSON.
// Returns the interpolated JSON bytes.
func (interp *Interpolator) Resolve(ctx context.Context, raw json.RawMessage, scope map[string]any) (json.RawMessage, error) {
	if len(raw) == 0 {
		return raw, nil
	}
	resolved, err := interp.ResolveString(ctx, string(raw), scope)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resolved), nil
}

// ResolveString scans a string for ${{...}} tokens and resolves each one
// against the scope.
func (interp *Interpolator) ResolveString(ctx context.Context, input string, scope map[string]any) (string, error) {
	var result strings.Builder
	result.Grow(len(input))

	i := 0
	for i < len(input) {
		// Look for ${{ marker.
		idx := strings.Index(input[i:], "${{")
		if idx == -1 {
			result.WriteString(input[i:])
			break
		}

		// Write everything before the marker.
		result.WriteString(input[i : i+idx])
		start := i + idx + 3 // skip "${{".

		// Find the closing }}.
		end := strings.Index(input[start:], "}}")
		if end == -1 {
			return "", resource.NewError(resource.ErrCodeExpression, "unclosed ${{ expression")
		}
		end += start

		expr := strings.TrimSpace(input[start:end])

		// Reject recursive interpolation: no nested ${{ inside the expression.
		if strings.Contains(expr, "${{") {
			return "", resource.NewError(resource.ErrCodeExpression,
				"nested interpolation not allowed: ${{...}} cannot contain ${{")
		}

		if expr == "" {
			return "", resource.NewError(resource.ErrCodeExpression, "empty variable reference: ${{  }}")
		}

		val, err := interp.resolveExpr(expr, scope)
		if err != nil {
			return "", err
		}

		result.WriteString(marshalInline(val))

		i = end + 2 // skip "}}".
	}

	return result.String(), nil
}

// ResolveRef resolves a single bare reference path like "values.totals.sum"
// to its typed value, without the string marshaling ResolveString applies.
func (interp *Interpolator) ResolveRef(ref string, scope map[string]any) (any, error) {
	return interp.resolveExpr(strings.TrimSpace(ref), scope)
}

// resolveExpr resolves a single expression path like "values.totals.sum".
func (interp *Interpolator) resolveExpr(expr string, scope map[string]any) (any, error) {
	parts := strings.SplitN(expr, ".", 2)
	namespace := parts[0]

	switch namespace {
	case "values", "widget", "attrs":
		if len(parts) < 2 || parts[1] == "" {
			return nil, resource.NewErrorf(resource.ErrCodeExpression,
				"invalid reference %q: expected %s.<field>", expr, namespace).
				WithDetails(map[string]any{"expression": expr})
		}
		data, _ := scope[namespace].(map[string]any)
		return interp.resolveFromMap(data, parts[1], expr, namespace)
	case "flat":
		return interp.resolveFlat(expr, scope)
	default:
		available := []string{"values", "flat", "widget", "attrs"}
		return nil, resource.NewErrorf(resource.ErrCodeExpression,
			"unknown namespace %q in ${{%s}}; available: %s", namespace, expr, strings.Join(available, ", ")).
			WithDetails(map[string]any{"expression": expr, "available_namespaces": available})
	}
}

// resolveFlat resolves flat.<id> references. Flat keys are leaf ids,
// so the remainder after "flat." is a single lookup key.
func (interp *Interpolator) resolveFlat(expr string, scope map[string]any) (any, error) {
	key := strings.TrimPrefix(expr, "flat.")
	if key == expr || key == "" {
		return nil, resource.NewErrorf(resource.ErrCodeExpression,
			"invalid reference %q: expected flat.<id>", expr).
			WithDetails(map[string]any{"expression": expr})
	}

	flat, _ := scope["flat"].(map[string]any)
	if flat == nil {
		return nil, resource.NewErrorf(resource.ErrCodeExpression,
			"cannot resolve %q: flat scope is empty", expr).
			WithDetails(map[string]any{"expression": expr})
	}

	val, ok := flat[key]
	if !ok {
		availableKeys := mapKeys(flat)
		return nil, resource.NewErrorf(resource.ErrCodeExpression,
			"key %q not found in ${{%s}}; available: [%s]", key, expr, strings.Join(availableKeys, ", ")).
			WithDetails(map[string]any{"expression": expr, "available_keys": availableKeys})
	}
	return val, nil
}

// resolveFromMap resolves a dot-delimited field path from a map.
func (interp *Interpolator) resolveFromMap(data map[string]any, fieldPath, expr, namespace string) (any, error) {
	if data == nil {
		return nil, resource.NewErrorf(resource.ErrCodeExpression,
			"cannot resolve %q: %s scope is empty", expr, namespace).
			WithDetails(map[string]any{"expression": expr})
	}

	// Try direct key lookup first (supports keys with dots).
	if val, ok := data[fieldPath]; ok {
		return val, nil
	}

	// Traverse by splitting on dots.
	return interp.traversePath(data, fieldPath, expr)
}

// traversePath navigates into nested maps using a dot-delimited path.
func (interp *Interpolator) traversePath(root any, path, expr string) (any, error) {
	segments := strings.Split(path, ".")
	current := root

	for i, seg := range segments {
		if seg == "" {
			return nil, resource.NewErrorf(resource.ErrCodeExpression,
				"empty segment in path %q at position %d", expr, i).
				WithDetails(map[string]any{"expression": expr})
		}

		switch v := current.(type) {
		case map[string]any:
			val, ok := v[seg]
			if !ok {
				availableKeys := mapKeys(v)
				return nil, resource.NewErrorf(resource.ErrCodeExpression,
					"field %q not found in %q; available: [%s]", seg, expr, strings.Join(availableKeys, ", ")).
					WithDetails(map[string]any{"expression": expr, "available_fields": availableKeys})
			}
			current = val
		default:
			return nil, resource.NewErrorf(resource.ErrCodeExpression,
				"cannot traverse into non-object at %q in %q (type: %T)", seg, expr, current).
				WithDetails(map[string]any{"expression": expr})
		}
	}

	return current, nil
}

// marshalInline converts a resolved value into its inline representation.
// Strings are embedded without extra quotes. Complex types are JSON-encoded.
func marshalInline(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case json.RawMessage:
		return string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// mapKeys returns sorted keys from a map[string]any.
func mapKeys(m map[string]any) []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Simple insertion sort for small slices.
	for i := 1; i < len(keys); i++ {
		key := keys[i]
		j := i - 1
		for j >= 0 && keys[j] > key {
			keys[j+1] = keys[j]
			j--
		}
		keys[j+1] = key
	}
	return keys
}

// HasInterpolation checks if a string contains any ${{...}} references.
func HasInterpolation(s string) bool {
	return strings.Contains(s, "${{")
}

// DetectCircularRefs checks for circular references among derived-value
// expressions. A cycle occurs when resource A's expression references
// resource B's value and B's expression references A's.
// exprs maps a resource id to its expression text.
func DetectCircularRefs(exprs map[string]string) error {
	// Build a dependency graph from ${{values.<id>...}} references.
	refs := make(map[string]map[string]bool) // id -> set of referenced ids

	for id, e := range exprs {
		if e == "" {
			continue
		}
		extracted := extractValueRefs(e)
		if len(extracted) > 0 {
			refs[id] = extracted
		}
	}

	// Detect cycles using DFS.
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(refs))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for dep := range refs[id] {
			switch color[dep] {
			case gray:
				return resource.NewErrorf(resource.ErrCodeExpression,
					"circular variable reference detected: %s -> %s", id, dep)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for id := range refs {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValueRefs returns the sorted ids referenced via ${{values.<id>...}}
// in a string.
func ValueRefs(s string) []string {
	set := extractValueRefs(s)
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// extractValueRefs finds all ids referenced via ${{values.<id>...}} in a string.
func extractValueRefs(s string) map[string]bool {
	refs := make(map[string]bool)
	for {
		idx := strings.Index(s, "${{values.")
		if idx == -1 {
			break
		}
		rest := s[idx+len("${{values."):]
		dotIdx := strings.IndexByte(rest, '.')
		closeIdx := strings.Index(rest, "}}")
		if closeIdx == -1 {
			break
		}
		var id string
		if dotIdx != -1 && dotIdx < closeIdx {
			id = rest[:dotIdx]
		} else {
			id = rest[:closeIdx]
		}
		id = strings.TrimSpace(id)
		if id != "" {
			refs[id] = true
		}
		s = rest[closeIdx+2:]
	}
	return refs
}
