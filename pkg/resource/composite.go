package resource

import "context"

// Composite is the container variant: an ordered sequence of Nodes and
// nested Composites sharing one id namespace, with path-addressed
// access and the three-step run lifecycle.
type Composite struct {
	id    string
	attrs map[string]any
	open  bool
	owned bool

	children []Resource
	index    map[string]Resource

	// PrepFunc runs before any child; VisualizeFunc runs after every
	// child has completed its own full run, and may read any value
	// materialized in the subtree during this pass. Hooks are code and
	// are not serialized; custom kinds carry behavior in their
	// registered definitions instead.
	PrepFunc      HookFunc
	VisualizeFunc HookFunc
}

// NewComposite constructs a container resource. Duplicate sibling ids
// and re-attachment of already-owned resources are rejected here, at
// construction time, by panicking with *Error (see Build).
func NewComposite(id string, opts ...Option) *Composite {
	mustValid(validateID(id))
	s := collect(opts)
	if s.valueSet {
		mustValid(NewErrorf(ErrCodeConfiguration,
			"composite %q cannot carry a value; give the value to a child node", id))
	}

	c := &Composite{
		id:    id,
		attrs: make(map[string]any, len(s.attrs)+2),
		open:  s.open,
		index: make(map[string]Resource, len(s.children)),
	}
	if s.labelSet {
		c.attrs["label"] = s.label
	} else {
		c.attrs["label"] = DefaultLabel(id)
	}
	c.attrs["help"] = s.help
	for k, v := range s.attrs {
		c.attrs[k] = v
	}
	c.PrepFunc = s.prep
	c.VisualizeFunc = s.visualize

	for _, child := range s.children {
		mustValid(c.Attach(child))
	}
	return c
}

// ID returns the composite id.
func (c *Composite) ID() string { return c.id }

// Attach appends r as the last child. It fails with DUPLICATE_ID when a
// sibling already uses r's id, and with CYCLE_REJECTED when r is this
// composite, an ancestor of it, or already owned by another parent.
func (c *Composite) Attach(r Resource) error {
	if r == nil {
		return NewErrorf(ErrCodeConfiguration, "cannot attach nil child to %q", c.id)
	}
	if _, exists := c.index[r.ID()]; exists {
		return NewErrorf(ErrCodeDuplicateID,
			"resource ids must be unique within %q (repeated: %s)", c.id, r.ID()).
			WithDetails(map[string]any{"id": r.ID(), "parent": c.id})
	}
	if contains(r, c) {
		return NewErrorf(ErrCodeCycleRejected,
			"attaching %q under %q would create a cycle", r.ID(), c.id)
	}
	if err := r.claim(); err != nil {
		return err
	}
	c.children = append(c.children, r)
	c.index[r.ID()] = r
	return nil
}

// Children returns the declared-order child list.
func (c *Composite) Children() []Resource {
	out := make([]Resource, len(c.children))
	copy(out, c.children)
	return out
}

// Child returns the direct child with the given id.
func (c *Composite) Child(id string) (Resource, bool) {
	r, ok := c.index[id]
	return r, ok
}

// Get returns one of the composite's own attributes.
func (c *Composite) Get(attr string) (any, error) {
	v, ok := c.attrs[attr]
	if !ok {
		return nil, NewErrorf(ErrCodeUnknownAttribute,
			"attribute %q does not exist for %q", attr, c.id).
			WithDetails(map[string]any{"attribute": attr, "id": c.id})
	}
	return v, nil
}

// Set stores one of the composite's own attributes.
func (c *Composite) Set(attr string, val any) error {
	if attr == "value" {
		return NewErrorf(ErrCodeUnknownAttribute,
			"composite %q carries no value; address a child node instead", c.id)
	}
	if _, ok := c.attrs[attr]; !ok && !c.open {
		return NewErrorf(ErrCodeUnknownAttribute,
			"attribute %q does not exist for %q", attr, c.id).
			WithDetails(map[string]any{"attribute": attr, "id": c.id})
	}
	c.attrs[attr] = normalizeValue(val)
	return nil
}

// Value fails: in the adopted tree shape a composite carries no value
// of its own, only children.
func (c *Composite) Value() (any, error) {
	return nil, NewErrorf(ErrCodeUnknownAttribute,
		"composite %q carries no value; address a child node instead", c.id)
}

// SetValue fails for the same reason Value does.
func (c *Composite) SetValue(val any) error {
	return NewErrorf(ErrCodeUnknownAttribute,
		"composite %q carries no value; address a child node instead", c.id)
}

// Attrs returns a copy of the composite's own attribute map.
func (c *Composite) Attrs() map[string]any {
	out := make(map[string]any, len(c.attrs))
	for k, v := range c.attrs {
		out[k] = deepCopyValue(v)
	}
	return out
}

// GetAt resolves path and returns the named attribute of the resolved
// resource. An empty path addresses this composite's own attributes.
func (c *Composite) GetAt(path []string, attr string) (any, error) {
	r, err := c.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	return r.Get(attr)
}

// SetAt resolves path and sets the named attribute on the resolved resource.
func (c *Composite) SetAt(path []string, attr string, val any) error {
	r, err := c.ResolvePath(path)
	if err != nil {
		return err
	}
	return r.Set(attr, val)
}

// ValueAt resolves path and returns the value of the resolved resource.
func (c *Composite) ValueAt(path ...string) (any, error) {
	r, err := c.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	return r.Value()
}

// SetValueAt resolves path and sets the value of the resolved resource.
func (c *Composite) SetValueAt(path []string, val any) error {
	r, err := c.ResolvePath(path)
	if err != nil {
		return err
	}
	return r.SetValue(val)
}

// ResolvePath walks the id sequence from this composite. See Resolve.
func (c *Composite) ResolvePath(path []string) (Resource, error) {
	return Resolve(c, path)
}

// AllValues returns the nested value mapping: for every direct child, a
// leaf contributes its value and a container contributes its own
// AllValues, keyed by child id. Values are deep-copied; mutating the
// returned mapping does not touch the tree.
func (c *Composite) AllValues() map[string]any {
	out := make(map[string]any, len(c.children))
	for _, child := range c.children {
		if cont, ok := child.(container); ok {
			out[child.ID()] = cont.AllValues()
			continue
		}
		v, _ := child.Value()
		out[child.ID()] = deepCopyValue(v)
	}
	return out
}

// FlatValues flattens AllValues into a single-level map keyed by leaf
// id. It fails with DUPLICATE_ID when two leaves anywhere in the
// subtree share an id, since flattening would silently drop one.
func (c *Composite) FlatValues() (map[string]any, error) {
	out := make(map[string]any)
	if err := flatten(c.AllValues(), out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(values map[string]any, into map[string]any) error {
	for _, k := range sortedKeys(values) {
		if nested, ok := values[k].(map[string]any); ok {
			if err := flatten(nested, into); err != nil {
				return err
			}
			continue
		}
		if _, exists := into[k]; exists {
			return NewErrorf(ErrCodeDuplicateID, "cannot flatten, duplicate id found: %s", k)
		}
		into[k] = values[k]
	}
	return nil
}

// Run executes exactly three steps in order: prep, children in
// declared order, then self-visualize. The first error aborts the
// remainder of this pass and propagates to the caller; the tree
// performs no retries and no partial recovery.
func (c *Composite) Run(ctx context.Context, rc *RunContext) error {
	if rc == nil {
		rc = NewRunContext(nil)
	}

	if c.PrepFunc != nil {
		if err := c.PrepFunc(ctx, c, rc); err != nil {
			return wrapRunErr(err, "prep", c.id)
		}
	}
	if err := c.runChildren(ctx, rc); err != nil {
		return err
	}
	if c.VisualizeFunc != nil {
		if err := c.VisualizeFunc(ctx, c, rc); err != nil {
			return wrapRunErr(err, "visualize", c.id)
		}
	}
	return nil
}

func (c *Composite) runChildren(ctx context.Context, rc *RunContext) error {
	for _, child := range c.children {
		rc.push(child.ID())
		err := child.Run(ctx, rc)
		rc.pop()
		if err != nil {
			if we, ok := err.(*Error); ok {
				return we.PrependPath(child.ID())
			}
			return NewErrorf(ErrCodeExecution, "child %q failed: %s", child.ID(), err.Error()).
				WithCause(err).WithPath(child.ID())
		}
	}
	return nil
}

func wrapRunErr(err error, step, id string) error {
	if we, ok := err.(*Error); ok {
		return we
	}
	return NewErrorf(ErrCodeExecution, "%s hook of %q failed: %s", step, id, err.Error()).
		WithCause(err)
}

func (c *Composite) claim() error {
	if c.owned {
		return NewErrorf(ErrCodeCycleRejected,
			"resource %q is already attached to a parent", c.id)
	}
	c.owned = true
	return nil
}

// Clone returns a deep copy of the subtree. Lifecycle hooks are carried
// over; ownership is not, so the copy can be attached elsewhere.
// Children must be built-in variants or implement Clone() Resource.
func (c *Composite) Clone() Resource {
	out := &Composite{
		id:            c.id,
		attrs:         make(map[string]any, len(c.attrs)),
		open:          c.open,
		index:         make(map[string]Resource, len(c.children)),
		PrepFunc:      c.PrepFunc,
		VisualizeFunc: c.VisualizeFunc,
	}
	for k, v := range c.attrs {
		out.attrs[k] = deepCopyValue(v)
	}
	for _, child := range c.children {
		cloner, ok := child.(interface{ Clone() Resource })
		if !ok {
			mustValid(NewErrorf(ErrCodeConfiguration,
				"child %q of %q does not support cloning", child.ID(), c.id))
		}
		mustValid(out.Attach(cloner.Clone()))
	}
	return out
}

// CloneAs returns a deep copy of the subtree under a different id.
func (c *Composite) CloneAs(id string) *Composite {
	mustValid(validateID(id))
	out := c.Clone().(*Composite)
	out.id = id
	if lbl, ok := out.attrs["label"].(string); ok && lbl == DefaultLabel(c.id) {
		out.attrs["label"] = DefaultLabel(id)
	}
	return out
}
