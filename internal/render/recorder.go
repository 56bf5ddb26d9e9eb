package render

import (
	"context"
	"sync"

	"github.com/weftlabs/weft/pkg/resource"
)

// ShowCall records one display request a run pass issued.
type ShowCall struct {
	Key      string
	Renderer string
	State    map[string]any
	HTML     string
}

// Recorder is a backend that records display requests instead of
// serving them. It feeds queued inputs to the tree and keeps every
// Show call, which makes run behavior assertable in tests and drives
// the one-shot CLI modes.
type Recorder struct {
	mu       sync.Mutex
	inputs   map[string]any
	shows    []ShowCall
	registry *Registry
}

// NewRecorder creates a Recorder. A nil registry records Show calls
// without producing HTML.
func NewRecorder(registry *Registry) *Recorder {
	return &Recorder{inputs: make(map[string]any), registry: registry}
}

// QueueInput stages a raw value the next pass will pick up for key.
// Inputs are consumed by the pass that reads them.
func (r *Recorder) QueueInput(key string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs[key] = v
}

// Input implements resource.Backend.
func (r *Recorder) Input(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.inputs[key]
	if ok {
		delete(r.inputs, key)
	}
	return v, ok
}

// Region implements resource.Backend.
func (r *Recorder) Region(path []string) resource.Region {
	return &recorderRegion{rec: r, key: resource.Key(path)}
}

// Shows returns the recorded display requests in issue order.
func (r *Recorder) Shows() []ShowCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ShowCall, len(r.shows))
	copy(out, r.shows)
	return out
}

// Reset clears recorded calls and pending inputs.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shows = nil
	r.inputs = make(map[string]any)
}

type recorderRegion struct {
	rec *Recorder
	key string
}

func (rg *recorderRegion) Show(renderer string, state map[string]any) error {
	call := ShowCall{Key: rg.key, Renderer: renderer, State: state}

	if rg.rec.registry != nil {
		rd, err := rg.rec.registry.Get(renderer)
		if err != nil {
			return err
		}
		out, err := rd.Render(context.Background(), RenderRequest{Key: rg.key, State: state})
		if err != nil {
			return err
		}
		call.HTML = out.HTML
	}

	rg.rec.mu.Lock()
	rg.rec.shows = append(rg.rec.shows, call)
	rg.rec.mu.Unlock()
	return nil
}
