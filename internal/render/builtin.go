package render

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
	"strconv"

	"github.com/weftlabs/weft/pkg/resource"
)

// DefaultRenderer is applied to nodes that declare no "renderer" attribute.
const DefaultRenderer = "value"

// RegisterBuiltins registers all built-in renderers in the given registry.
func RegisterBuiltins(reg *Registry) error {
	all := []Renderer{
		&valueRenderer{},
		&textRenderer{},
		&numberRenderer{},
		&checkboxRenderer{},
		&listRenderer{},
		&tableRenderer{},
		&jsonRenderer{},
	}
	for _, r := range all {
		if err := reg.Register(r); err != nil {
			return err
		}
	}
	return nil
}

func esc(s string) string { return template.HTMLEscapeString(s) }

func labelOf(state map[string]any) string {
	l, _ := state["label"].(string)
	return l
}

func helpOf(state map[string]any) string {
	h, _ := state["help"].(string)
	return h
}

// field wraps a control fragment with its label and optional help text.
func field(key, label, help, control string) string {
	out := fmt.Sprintf(`<div class="weft-field" data-key=%s><label>%s</label>%s`,
		strconv.Quote(esc(key)), esc(label), control)
	if help != "" {
		out += `<p class="weft-help">` + esc(help) + `</p>`
	}
	return out + `</div>`
}

func requireValue(name string, state map[string]any) error {
	if _, ok := state["value"]; !ok {
		return resource.NewErrorf(resource.ErrCodeConfiguration,
			"%s renderer requires a 'value' in the state snapshot", name)
	}
	return nil
}

// --- value ---

// valueRenderer shows any value read-only; the fallback when a node
// names no renderer.
type valueRenderer struct{}

func (r *valueRenderer) Name() string { return "value" }

func (r *valueRenderer) Schema() RendererSchema {
	return RendererSchema{Description: "Read-only display of a value in its literal form"}
}

func (r *valueRenderer) Validate(state map[string]any) error { return nil }

func (r *valueRenderer) Render(_ context.Context, req RenderRequest) (*Rendering, error) {
	body := fmt.Sprintf("%v", req.State["value"])
	control := `<span class="weft-value">` + esc(body) + `</span>`
	return &Rendering{HTML: field(req.Key, labelOf(req.State), helpOf(req.State), control)}, nil
}

// --- text ---

type textRenderer struct{}

func (r *textRenderer) Name() string { return "text" }

func (r *textRenderer) Schema() RendererSchema {
	return RendererSchema{Description: "Single-line text input bound to a string value"}
}

func (r *textRenderer) Validate(state map[string]any) error {
	if v, ok := state["value"]; ok {
		if _, isStr := v.(string); !isStr && v != nil {
			return resource.NewErrorf(resource.ErrCodeConfiguration,
				"text renderer requires a string value, got %T", v)
		}
	}
	return nil
}

func (r *textRenderer) Render(_ context.Context, req RenderRequest) (*Rendering, error) {
	if err := r.Validate(req.State); err != nil {
		return nil, err
	}
	v, _ := req.State["value"].(string)
	control := fmt.Sprintf(`<input type="text" name=%s value=%s>`,
		strconv.Quote(esc(req.Key)), strconv.Quote(esc(v)))
	return &Rendering{HTML: field(req.Key, labelOf(req.State), helpOf(req.State), control)}, nil
}

// --- number ---

type numberRenderer struct{}

func (r *numberRenderer) Name() string { return "number" }

func (r *numberRenderer) Schema() RendererSchema {
	return RendererSchema{Description: "Numeric input bound to an int or float value"}
}

func (r *numberRenderer) Validate(state map[string]any) error {
	if err := requireValue("number", state); err != nil {
		return err
	}
	switch state["value"].(type) {
	case int64, float64, nil:
		return nil
	default:
		return resource.NewErrorf(resource.ErrCodeConfiguration,
			"number renderer requires a numeric value, got %T", state["value"])
	}
}

func (r *numberRenderer) Render(_ context.Context, req RenderRequest) (*Rendering, error) {
	if err := r.Validate(req.State); err != nil {
		return nil, err
	}
	control := fmt.Sprintf(`<input type="number" name=%s value="%v">`,
		strconv.Quote(esc(req.Key)), req.State["value"])
	return &Rendering{HTML: field(req.Key, labelOf(req.State), helpOf(req.State), control)}, nil
}

// --- checkbox ---

type checkboxRenderer struct{}

func (r *checkboxRenderer) Name() string { return "checkbox" }

func (r *checkboxRenderer) Schema() RendererSchema {
	return RendererSchema{Description: "Checkbox bound to a boolean value"}
}

func (r *checkboxRenderer) Validate(state map[string]any) error {
	if err := requireValue("checkbox", state); err != nil {
		return err
	}
	if _, ok := state["value"].(bool); !ok {
		return resource.NewErrorf(resource.ErrCodeConfiguration,
			"checkbox renderer requires a bool value, got %T", state["value"])
	}
	return nil
}

func (r *checkboxRenderer) Render(_ context.Context, req RenderRequest) (*Rendering, error) {
	if err := r.Validate(req.State); err != nil {
		return nil, err
	}
	checked := ""
	if req.State["value"].(bool) {
		checked = " checked"
	}
	control := fmt.Sprintf(`<input type="checkbox" name=%s%s>`, strconv.Quote(esc(req.Key)), checked)
	return &Rendering{HTML: field(req.Key, labelOf(req.State), helpOf(req.State), control)}, nil
}

// --- list ---

type listRenderer struct{}

func (r *listRenderer) Name() string { return "list" }

func (r *listRenderer) Schema() RendererSchema {
	return RendererSchema{Description: "Bulleted list of a slice value's elements"}
}

func (r *listRenderer) Validate(state map[string]any) error {
	if err := requireValue("list", state); err != nil {
		return err
	}
	if _, ok := state["value"].([]any); !ok {
		return resource.NewErrorf(resource.ErrCodeConfiguration,
			"list renderer requires a slice value, got %T", state["value"])
	}
	return nil
}

func (r *listRenderer) Render(_ context.Context, req RenderRequest) (*Rendering, error) {
	if err := r.Validate(req.State); err != nil {
		return nil, err
	}
	items := req.State["value"].([]any)
	control := `<ul class="weft-list">`
	for _, item := range items {
		control += `<li>` + esc(fmt.Sprintf("%v", item)) + `</li>`
	}
	control += `</ul>`
	return &Rendering{HTML: field(req.Key, labelOf(req.State), helpOf(req.State), control)}, nil
}

// --- table ---

type tableRenderer struct{}

func (r *tableRenderer) Name() string { return "table" }

func (r *tableRenderer) Schema() RendererSchema {
	return RendererSchema{Description: "Column-and-row table for a tabular value"}
}

func (r *tableRenderer) Validate(state map[string]any) error {
	if err := requireValue("table", state); err != nil {
		return err
	}
	if _, ok := state["value"].(*resource.Table); !ok {
		return resource.NewErrorf(resource.ErrCodeConfiguration,
			"table renderer requires a tabular value, got %T", state["value"])
	}
	return nil
}

func (r *tableRenderer) Render(_ context.Context, req RenderRequest) (*Rendering, error) {
	if err := r.Validate(req.State); err != nil {
		return nil, err
	}
	tbl := req.State["value"].(*resource.Table)

	control := `<table class="weft-table"><thead><tr>`
	for _, col := range tbl.Columns {
		control += `<th>` + esc(col) + `</th>`
	}
	control += `</tr></thead><tbody>`
	for _, row := range tbl.Rows {
		control += `<tr>`
		for _, cell := range row {
			control += `<td>` + esc(fmt.Sprintf("%v", cell)) + `</td>`
		}
		control += `</tr>`
	}
	control += `</tbody></table>`
	return &Rendering{HTML: field(req.Key, labelOf(req.State), helpOf(req.State), control)}, nil
}

// --- json ---

type jsonRenderer struct{}

func (r *jsonRenderer) Name() string { return "json" }

func (r *jsonRenderer) Schema() RendererSchema {
	return RendererSchema{Description: "Pretty-printed JSON view of any value"}
}

func (r *jsonRenderer) Validate(state map[string]any) error { return nil }

func (r *jsonRenderer) Render(_ context.Context, req RenderRequest) (*Rendering, error) {
	b, err := json.MarshalIndent(jsonable(req.State["value"]), "", "  ")
	if err != nil {
		return nil, resource.NewErrorf(resource.ErrCodeExecution,
			"json renderer cannot encode value: %s", err.Error()).WithCause(err)
	}
	control := `<pre class="weft-json">` + esc(string(b)) + `</pre>`
	return &Rendering{HTML: field(req.Key, labelOf(req.State), helpOf(req.State), control)}, nil
}

// jsonable rewrites values that have no direct JSON form.
func jsonable(v any) any {
	switch t := v.(type) {
	case *resource.Table:
		if t == nil {
			return nil
		}
		return map[string]any{"columns": t.Columns, "rows": t.Records()}
	case map[string]any:
		out := make(map[string]any, len(t))
		for _, k := range sortedKeys(t) {
			out[k] = jsonable(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonable(e)
		}
		return out
	default:
		return v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
