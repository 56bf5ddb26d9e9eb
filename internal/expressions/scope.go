package expressions

import (
	"encoding/json"
	"sync"

	"github.com/weftlabs/weft/pkg/resource"
)

// ScopeBuilder constructs evaluation scopes over a widget tree.
// It enforces:
//   - Tree values are frozen at snapshot time (deep-copied on build).
//   - Widget metadata (name, session id) is immutable after init.
//   - Per-resource attrs are scoped to one evaluation via WithAttrs.
//   - Resolution namespaces: values -> flat -> widget -> attrs.
type ScopeBuilder struct {
	mu     sync.RWMutex
	values map[string]any // nested tree values keyed by child id
	flat   map[string]any // leaf values keyed by leaf id
	widget map[string]any // widget metadata (immutable after init)

	// attrs holds the attributes of the resource currently being
	// evaluated. nil outside a per-resource evaluation.
	attrs map[string]any
}

// NewScopeBuilder snapshots a root's values and metadata into a builder.
// The tree can keep mutating afterwards without affecting built scopes.
func NewScopeBuilder(root *resource.Root) (*ScopeBuilder, error) {
	flat, err := root.FlatValues()
	if err != nil {
		return nil, err
	}
	return &ScopeBuilder{
		values: root.AllValues(), // already a deep copy
		flat:   flat,
		widget: map[string]any{
			"id":         root.ID(),
			"name":       root.Name,
			"session_id": root.SessionID,
		},
	}, nil
}

// NewScopeBuilderFromValues builds a scope from pre-extracted value maps.
// Used when replaying persisted sessions where no live tree exists.
func NewScopeBuilderFromValues(values, widget map[string]any) *ScopeBuilder {
	return &ScopeBuilder{
		values: deepCopyMap(values),
		widget: deepCopyMap(widget),
	}
}

// Refresh re-snapshots the tree values after a mutation pass.
func (sb *ScopeBuilder) Refresh(root *resource.Root) error {
	flat, err := root.FlatValues()
	if err != nil {
		return err
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.values = root.AllValues()
	sb.flat = flat
	return nil
}

// WithAttrs returns a child ScopeBuilder with per-resource attributes.
// The child shares the same value snapshot but has its own attrs, so
// concurrent evaluations of sibling resources stay isolated.
func (sb *ScopeBuilder) WithAttrs(attrs map[string]any) *ScopeBuilder {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return &ScopeBuilder{
		values: sb.values, // shared (frozen snapshot)
		flat:   sb.flat,   // shared (frozen snapshot)
		widget: sb.widget, // shared (immutable)
		attrs:  deepCopyMap(attrs),
	}
}

// Build creates the data map handed to an Engine. All entries are
// copies, so a returned map is safe to pass across goroutines.
func (sb *ScopeBuilder) Build() map[string]any {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	data := map[string]any{
		"values": deepCopyMap(sb.values),
		"flat":   deepCopyMap(sb.flat),
		"widget": deepCopyMap(sb.widget),
	}
	if sb.attrs != nil {
		data["attrs"] = deepCopyMap(sb.attrs)
	} else {
		data["attrs"] = map[string]any{}
	}
	return data
}

// Values returns a read-only copy of the nested value snapshot.
func (sb *ScopeBuilder) Values() map[string]any {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return deepCopyMap(sb.values)
}

// --- Deep copy utilities ---

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = deepCopyAny(v)
	}
	return cp
}

// deepCopyAny recursively deep-copies a value.
// Handles maps, slices, and primitives (which are inherently immutable).
func deepCopyAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = deepCopyAny(item)
		}
		return cp
	case json.RawMessage:
		if val == nil {
			return nil
		}
		cp := make(json.RawMessage, len(val))
		copy(cp, val)
		return cp
	default:
		// Primitives (string, float64, bool, nil, int, int64) are value types.
		return v
	}
}
