package weft

import (
	"context"

	"github.com/weftlabs/weft/internal/render"
	"github.com/weftlabs/weft/pkg/resource"
)

// Result is the outcome of one headless pass.
type Result struct {
	// Values is the leaf value map after the pass, keyed by leaf id.
	Values map[string]any

	// Shows lists every renderer invocation the pass produced, in
	// traversal order.
	Shows []render.ShowCall
}

// RunOnce runs a single headless pass over the tree. Inputs are keyed
// the way the panel keys them: the root id followed by the leaf path,
// joined with "/" (for example "survey/age"). Renderers draw into a
// recording backend instead of a page.
func RunOnce(ctx context.Context, root *resource.Root, inputs map[string]any, opts ...Option) (*Result, error) {
	if root == nil {
		return nil, resource.NewError(resource.ErrCodeConfiguration, "nil root")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		reg := render.NewRegistry()
		if err := render.RegisterBuiltins(reg); err != nil {
			return nil, err
		}
		o.registry = reg
	}

	rec := render.NewRecorder(o.registry)
	for key, v := range inputs {
		rec.QueueInput(key, v)
	}
	rc := resource.NewRunContext(rec)
	if o.logger != nil {
		rc.WithLogger(o.logger)
	}
	if err := root.Run(ctx, rc); err != nil {
		return nil, err
	}
	flat, err := root.FlatValues()
	if err != nil {
		return nil, err
	}
	return &Result{Values: flat, Shows: rec.Shows()}, nil
}
