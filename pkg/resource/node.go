package resource

import (
	"context"
	"strings"
)

// Node is the leaf variant: one addressable value plus free-form
// display attributes, no children.
type Node struct {
	id    string
	attrs map[string]any
	open  bool
	owned bool
}

// NewNode constructs a leaf resource. The "value", "label" and "help"
// attributes always exist; additional attributes are declared with
// WithAttr. Panics with *Error on an invalid id (see Build).
func NewNode(id string, opts ...Option) *Node {
	mustValid(validateID(id))
	s := collect(opts)
	if len(s.children) > 0 {
		mustValid(NewErrorf(ErrCodeConfiguration, "node %q cannot have children", id))
	}

	n := &Node{
		id:    id,
		attrs: make(map[string]any, len(s.attrs)+3),
		open:  s.open,
	}
	n.attrs["value"] = s.value
	if s.labelSet {
		n.attrs["label"] = s.label
	} else {
		n.attrs["label"] = DefaultLabel(id)
	}
	n.attrs["help"] = s.help
	for k, v := range s.attrs {
		n.attrs[k] = v
	}
	return n
}

// ID returns the node id.
func (n *Node) ID() string { return n.id }

// Get returns the named attribute, failing with UNKNOWN_ATTRIBUTE when
// it is not present.
func (n *Node) Get(attr string) (any, error) {
	v, ok := n.attrs[attr]
	if !ok {
		return nil, NewErrorf(ErrCodeUnknownAttribute,
			"attribute %q does not exist for %q", attr, n.id).
			WithDetails(map[string]any{"attribute": attr, "id": n.id})
	}
	return v, nil
}

// Set stores val under attr. Only attributes declared at construction
// (plus the reserved keys) may be set, unless the node is open.
func (n *Node) Set(attr string, val any) error {
	if _, ok := n.attrs[attr]; !ok && !n.open {
		return NewErrorf(ErrCodeUnknownAttribute,
			"attribute %q does not exist for %q", attr, n.id).
			WithDetails(map[string]any{"attribute": attr, "id": n.id})
	}
	n.attrs[attr] = normalizeValue(val)
	return nil
}

// Value returns the reserved "value" attribute.
func (n *Node) Value() (any, error) { return n.attrs["value"], nil }

// SetValue stores the reserved "value" attribute.
func (n *Node) SetValue(val any) error { return n.Set("value", val) }

// Children returns nil; nodes are leaves.
func (n *Node) Children() []Resource { return nil }

// Attrs returns a copy of the attribute map.
func (n *Node) Attrs() map[string]any {
	out := make(map[string]any, len(n.attrs))
	for k, v := range n.attrs {
		out[k] = deepCopyValue(v)
	}
	return out
}

// Run is a no-op unless the node declares a renderer and the pass has
// a backend: then any raw input the backend holds for this node's key
// is applied to the value, and the node requests display space for
// itself. Rendering semantics live entirely in the backend.
func (n *Node) Run(ctx context.Context, rc *RunContext) error {
	if rc == nil || rc.Backend == nil {
		return nil
	}
	renderer, _ := n.attrs["renderer"].(string)
	if renderer == "" {
		return nil
	}

	if raw, ok := rc.Backend.Input(rc.Key()); ok {
		if err := n.SetValue(raw); err != nil {
			return err
		}
	}

	region := rc.Backend.Region(rc.Path())
	if region == nil {
		return nil
	}
	if err := region.Show(renderer, n.state()); err != nil {
		return NewErrorf(ErrCodeExecution, "renderer %q failed: %s", renderer, err.Error()).
			WithCause(err)
	}
	return nil
}

// state snapshots the node for the rendering backend.
func (n *Node) state() map[string]any {
	state := n.Attrs()
	state["id"] = n.id
	return state
}

func (n *Node) claim() error {
	if n.owned {
		return NewErrorf(ErrCodeCycleRejected,
			"resource %q is already attached to a parent", n.id)
	}
	n.owned = true
	return nil
}

// Clone returns a deep copy of the node with the same id and attributes.
// The copy is unowned and can be attached to a new parent.
func (n *Node) Clone() Resource {
	out := &Node{
		id:    n.id,
		attrs: make(map[string]any, len(n.attrs)),
		open:  n.open,
	}
	for k, v := range n.attrs {
		out.attrs[k] = deepCopyValue(v)
	}
	return out
}

// CloneAs returns a deep copy under a different id.
func (n *Node) CloneAs(id string) *Node {
	mustValid(validateID(id))
	out := n.Clone().(*Node)
	out.id = id
	if lbl, ok := out.attrs["label"].(string); ok && lbl == DefaultLabel(n.id) {
		out.attrs["label"] = DefaultLabel(id)
	}
	return out
}

// DefaultLabel derives the display label used when none is declared:
// each underscore-separated word of the id is title-cased.
func DefaultLabel(id string) string {
	words := strings.Split(id, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, "_")
}
