package render

import (
	"context"
	"encoding/json"
)

// Renderer turns one resource's state snapshot into a display fragment.
// A renderer is selected by the "renderer" attribute of a node; nodes
// without one fall back to the default value renderer.
type Renderer interface {
	Name() string
	Schema() RendererSchema
	Render(ctx context.Context, req RenderRequest) (*Rendering, error)
	Validate(state map[string]any) error
}

// RendererRegistry manages the lifecycle and lookup of available renderers.
type RendererRegistry interface {
	Register(r Renderer) error
	Get(name string) (Renderer, error)
	List() []RendererInfo
}

// RendererSchema describes the state contract of a renderer.
type RendererSchema struct {
	StateSchema json.RawMessage `json:"state_schema,omitempty"`
	Description string          `json:"description,omitempty"`
}

// RenderRequest is the data handed to a renderer for one display region.
type RenderRequest struct {
	// Key is the slash-joined path of the resource being displayed.
	Key string `json:"key"`

	// State is the attribute snapshot of the resource: label, help,
	// value, and any declared extras.
	State map[string]any `json:"state"`
}

// Rendering is the produced display fragment.
type Rendering struct {
	HTML string `json:"html"`
}

// RendererInfo is a summary of a registered renderer for listing.
type RendererInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
