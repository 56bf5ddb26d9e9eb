package resource

import "context"

// Option configures a resource at construction time.
type Option func(*settings)

// settings accumulates constructor options before they are applied.
type settings struct {
	value        any
	valueSet     bool
	label        string
	labelSet     bool
	help         string
	attrs        map[string]any
	attrOrder    []string
	open         bool
	children     []Resource
	requirements []string
	imports      []string
	name         string
	prep         HookFunc
	visualize    HookFunc
}

// HookFunc is the signature of the prep and self-visualize lifecycle
// hooks. The hook receives the Composite it is attached to and may read
// or write any value materialized in its subtree.
type HookFunc func(ctx context.Context, c *Composite, rc *RunContext) error

func collect(opts []Option) *settings {
	s := &settings{attrs: make(map[string]any)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithValue sets the starting value (the reserved "value" attribute).
func WithValue(v any) Option {
	return func(s *settings) {
		s.value = normalizeValue(v)
		s.valueSet = true
	}
}

// WithLabel sets the display label. Defaults to a title-cased form of the id.
func WithLabel(label string) Option {
	return func(s *settings) {
		s.label = label
		s.labelSet = true
	}
}

// WithHelp sets the help text shown to the user.
func WithHelp(help string) Option {
	return func(s *settings) { s.help = help }
}

// WithAttr declares an additional display attribute.
func WithAttr(name string, v any) Option {
	return func(s *settings) {
		if _, exists := s.attrs[name]; !exists {
			s.attrOrder = append(s.attrOrder, name)
		}
		s.attrs[name] = normalizeValue(v)
	}
}

// WithRenderer names the rendering behavior the backend should use for
// this resource. Stored as the "renderer" attribute.
func WithRenderer(name string) Option {
	return WithAttr("renderer", name)
}

// WithOpenAttrs allows Set to create attributes that were not declared
// at construction time. Without it, Set on an undeclared attribute
// fails with UNKNOWN_ATTRIBUTE.
func WithOpenAttrs() Option {
	return func(s *settings) { s.open = true }
}

// WithChildren attaches child resources in declared order.
func WithChildren(children ...Resource) Option {
	return func(s *settings) { s.children = append(s.children, children...) }
}

// WithRequirements adds external package names the exported artifact
// needs before it can run. Root only.
func WithRequirements(reqs ...string) Option {
	return func(s *settings) { s.requirements = append(s.requirements, reqs...) }
}

// WithImports appends import paths emitted after the default prologue
// in generated source, in declared order. Root only.
func WithImports(imports ...string) Option {
	return func(s *settings) { s.imports = append(s.imports, imports...) }
}

// WithName overrides the exported identifier a Root is serialized
// under. Defaults to an exported CamelCase form of the id.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithPrep sets the prep lifecycle hook. Composite and Root only.
func WithPrep(fn HookFunc) Option {
	return func(s *settings) { s.prep = fn }
}

// WithVisualize sets the self-visualize lifecycle hook, which runs
// after every child has completed its own full run. Composite and
// Root only.
func WithVisualize(fn HookFunc) Option {
	return func(s *settings) { s.visualize = fn }
}

// Build runs fn, converting constructor panics into error values.
// Declarative constructors (NewNode, NewComposite, NewRoot) panic with
// *Error on configuration violations; Build is the recover boundary
// for callers that need an error instead.
func Build(fn func() Resource) (r Resource, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if we, ok := rec.(*Error); ok {
				err = we
				return
			}
			err = NewErrorf(ErrCodeConfiguration, "tree construction panicked: %v", rec)
		}
	}()
	return fn(), nil
}

// mustValid panics with err if err is non-nil. Constructor helper.
func mustValid(err error) {
	if err == nil {
		return
	}
	if we, ok := err.(*Error); ok {
		panic(we)
	}
	panic(NewError(ErrCodeConfiguration, err.Error()).WithCause(err))
}

// validateID rejects empty ids and ids containing the path separator.
func validateID(id string) error {
	if id == "" {
		return NewError(ErrCodeConfiguration, "resource id must not be empty")
	}
	for _, r := range id {
		if r == '/' {
			return NewErrorf(ErrCodeConfiguration, "resource id %q must not contain '/'", id)
		}
	}
	return nil
}
