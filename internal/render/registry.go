package render

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/weftlabs/weft/pkg/resource"
)

// Registry is the concrete thread-safe RendererRegistry implementation.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		renderers: make(map[string]Renderer),
	}
}

// Register adds a renderer to the registry. Returns error on duplicate name.
func (r *Registry) Register(renderer Renderer) error {
	if renderer == nil {
		return resource.NewError(resource.ErrCodeConfiguration, "renderer is nil")
	}
	name := renderer.Name()
	if name == "" {
		return resource.NewError(resource.ErrCodeConfiguration, "renderer name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.renderers[name]; exists {
		return resource.NewErrorf(resource.ErrCodeConfiguration, "renderer %q already registered", name)
	}

	r.renderers[name] = renderer
	return nil
}

// Get retrieves a renderer by name.
func (r *Registry) Get(name string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	renderer, ok := r.renderers[name]
	if !ok {
		return nil, resource.NewErrorf(resource.ErrCodeConfiguration, "renderer %q not registered", name)
	}
	return renderer, nil
}

// List returns info for all registered renderers, sorted by name.
func (r *Registry) List() []RendererInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]RendererInfo, 0, len(r.renderers))
	for _, rd := range r.renderers {
		s := rd.Schema()
		infos = append(infos, RendererInfo{
			Name:        rd.Name(),
			Description: s.Description,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// RegisterPack bulk-registers renderers under a prefixed namespace.
// Each renderer name becomes "prefix.originalName" (e.g. "chart.line").
func (r *Registry) RegisterPack(prefix string, renderers []Renderer) (int, error) {
	if prefix == "" {
		return 0, resource.NewError(resource.ErrCodeConfiguration, "pack prefix is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	registered := 0
	for _, rd := range renderers {
		prefixed := fmt.Sprintf("%s.%s", prefix, rd.Name())
		if _, exists := r.renderers[prefixed]; exists {
			return registered, resource.NewErrorf(resource.ErrCodeConfiguration,
				"pack renderer %q already registered", prefixed)
		}
		r.renderers[prefixed] = &prefixedRenderer{inner: rd, name: prefixed}
		registered++
	}
	return registered, nil
}

// Has checks if a renderer is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.renderers[name]
	return ok
}

// Count returns the number of registered renderers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.renderers)
}

// prefixedRenderer wraps a pack renderer with a prefixed name.
type prefixedRenderer struct {
	inner Renderer
	name  string
}

func (p *prefixedRenderer) Name() string                        { return p.name }
func (p *prefixedRenderer) Schema() RendererSchema              { return p.inner.Schema() }
func (p *prefixedRenderer) Validate(state map[string]any) error { return p.inner.Validate(state) }

func (p *prefixedRenderer) Render(ctx context.Context, req RenderRequest) (*Rendering, error) {
	return p.inner.Render(ctx, req)
}
