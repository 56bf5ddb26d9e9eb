package resource

import (
	"sort"
	"sync"
)

// KindSpec describes a custom resource kind so the source loader can
// rebuild instances of it and the validator can check its attributes.
type KindSpec struct {
	// Name is the constructor suffix: a kind named "Slider" is emitted
	// and loaded as NewSlider(...).
	Name string

	// Definition is the Go definition text the serializer emits once
	// per source file. Empty means the kind lives in a shared library
	// reachable through the import prologue.
	Definition string

	// AttrSchema optionally holds a JSON Schema the kind's attributes
	// must satisfy (validated by internal/validation).
	AttrSchema string

	// New constructs an instance. The loader calls this with the
	// options it recovered from the construction expression.
	New func(id string, opts ...Option) (Resource, error)
}

// KindRegistry is the thread-safe registry of custom kinds.
type KindRegistry struct {
	mu    sync.RWMutex
	kinds map[string]KindSpec
}

// NewKindRegistry creates an empty registry.
func NewKindRegistry() *KindRegistry {
	return &KindRegistry{kinds: make(map[string]KindSpec)}
}

// Register adds a kind. Returns an error on duplicate or empty name.
func (r *KindRegistry) Register(spec KindSpec) error {
	if spec.Name == "" {
		return NewError(ErrCodeConfiguration, "kind name is empty")
	}
	if spec.New == nil {
		return NewErrorf(ErrCodeConfiguration, "kind %q has no constructor", spec.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[spec.Name]; exists {
		return NewErrorf(ErrCodeConfiguration, "kind %q already registered", spec.Name)
	}
	r.kinds[spec.Name] = spec
	return nil
}

// Lookup retrieves a kind by name.
func (r *KindRegistry) Lookup(name string) (KindSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.kinds[name]
	return spec, ok
}

// List returns all registered kinds sorted by name.
func (r *KindRegistry) List() []KindSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]KindSpec, 0, len(r.kinds))
	for _, s := range r.kinds {
		specs = append(specs, s)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// DefaultKinds is the process-wide registry used by the loader when no
// explicit registry is supplied.
var DefaultKinds = NewKindRegistry()

// RegisterKind adds a kind to the default registry.
func RegisterKind(spec KindSpec) error {
	return DefaultKinds.Register(spec)
}
