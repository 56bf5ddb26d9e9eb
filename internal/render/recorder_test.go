package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/resource"
)

func TestRecorder_CapturesShowsInOrder(t *testing.T) {
	rec := NewRecorder(nil)

	r := resource.NewRoot("form",
		resource.WithChildren(
			resource.NewNode("name", resource.WithValue("ada"), resource.WithRenderer("text")),
			resource.NewNode("age", resource.WithValue(36), resource.WithRenderer("number")),
		),
	)

	require.NoError(t, r.Run(context.Background(), resource.NewRunContext(rec)))

	shows := rec.Shows()
	require.Len(t, shows, 2)
	assert.Equal(t, "form/name", shows[0].Key)
	assert.Equal(t, "text", shows[0].Renderer)
	assert.Equal(t, "ada", shows[0].State["value"])
	assert.Equal(t, "form/age", shows[1].Key)
	assert.Equal(t, "number", shows[1].Renderer)
}

func TestRecorder_AppliesQueuedInput(t *testing.T) {
	rec := NewRecorder(nil)
	rec.QueueInput("form/name", "grace")

	r := resource.NewRoot("form",
		resource.WithChildren(
			resource.NewNode("name", resource.WithValue("ada"), resource.WithRenderer("text")),
		),
	)

	require.NoError(t, r.Run(context.Background(), resource.NewRunContext(rec)))

	v, err := r.ValueAt("name")
	require.NoError(t, err)
	assert.Equal(t, "grace", v)

	// Input is consumed by the pass that read it.
	_, ok := rec.Input("form/name")
	assert.False(t, ok)
}

func TestRecorder_SkipsNodesWithoutRenderer(t *testing.T) {
	rec := NewRecorder(nil)

	r := resource.NewRoot("form",
		resource.WithChildren(
			resource.NewNode("hidden", resource.WithValue(1)),
			resource.NewNode("shown", resource.WithValue(2), resource.WithRenderer("value")),
		),
	)

	require.NoError(t, r.Run(context.Background(), resource.NewRunContext(rec)))

	shows := rec.Shows()
	require.Len(t, shows, 1)
	assert.Equal(t, "form/shown", shows[0].Key)
}

func TestRecorder_RendersThroughRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))
	rec := NewRecorder(reg)

	r := resource.NewRoot("form",
		resource.WithChildren(
			resource.NewNode("name", resource.WithValue("ada"), resource.WithRenderer("text")),
		),
	)

	require.NoError(t, r.Run(context.Background(), resource.NewRunContext(rec)))

	shows := rec.Shows()
	require.Len(t, shows, 1)
	assert.Contains(t, shows[0].HTML, `value="ada"`)
}

func TestRecorder_UnknownRendererFailsThePass(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))
	rec := NewRecorder(reg)

	r := resource.NewRoot("form",
		resource.WithChildren(
			resource.NewNode("x", resource.WithValue(1), resource.WithRenderer("hologram")),
		),
	)

	err := r.Run(context.Background(), resource.NewRunContext(rec))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hologram")
}

func TestRecorder_Reset(t *testing.T) {
	rec := NewRecorder(nil)
	rec.QueueInput("k", 1)
	require.NoError(t, rec.Region([]string{"a"}).Show("value", nil))

	rec.Reset()
	assert.Empty(t, rec.Shows())
	_, ok := rec.Input("k")
	assert.False(t, ok)
}
