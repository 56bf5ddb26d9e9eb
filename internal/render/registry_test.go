package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/resource"
)

type stubRenderer struct {
	name string
	desc string
}

func (s *stubRenderer) Name() string { return s.name }

func (s *stubRenderer) Schema() RendererSchema {
	return RendererSchema{Description: s.desc}
}

func (s *stubRenderer) Validate(state map[string]any) error { return nil }

func (s *stubRenderer) Render(_ context.Context, req RenderRequest) (*Rendering, error) {
	return &Rendering{HTML: "<i>" + s.name + "</i>"}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubRenderer{name: "stub"}))

	got, err := reg.Get("stub")
	require.NoError(t, err)
	assert.Equal(t, "stub", got.Name())
}

func TestRegistry_DuplicateName(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubRenderer{name: "stub"}))

	err := reg.Register(&stubRenderer{name: "stub"})
	require.Error(t, err)
	assert.Equal(t, resource.ErrCodeConfiguration, resource.CodeOf(err))
}

func TestRegistry_NilAndEmptyName(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(nil))
	assert.Error(t, reg.Register(&stubRenderer{name: ""}))
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("ghost")
	require.Error(t, err)
	assert.Equal(t, resource.ErrCodeConfiguration, resource.CodeOf(err))
}

func TestRegistry_ListSorted(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubRenderer{name: "zeta", desc: "last"}))
	require.NoError(t, reg.Register(&stubRenderer{name: "alpha", desc: "first"}))

	infos := reg.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, "first", infos[0].Description)
	assert.Equal(t, "zeta", infos[1].Name)
}

func TestRegistry_RegisterPack(t *testing.T) {
	reg := NewRegistry()
	n, err := reg.RegisterPack("chart", []Renderer{
		&stubRenderer{name: "line"},
		&stubRenderer{name: "bar"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.True(t, reg.Has("chart.line"))
	assert.True(t, reg.Has("chart.bar"))
	assert.False(t, reg.Has("line"))

	got, err := reg.Get("chart.line")
	require.NoError(t, err)
	assert.Equal(t, "chart.line", got.Name())

	// The wrapper delegates rendering to the inner renderer.
	out, err := got.Render(context.Background(), RenderRequest{})
	require.NoError(t, err)
	assert.Equal(t, "<i>line</i>", out.HTML)
}

func TestRegistry_RegisterPackEmptyPrefix(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.RegisterPack("", []Renderer{&stubRenderer{name: "x"}})
	require.Error(t, err)
}

func TestRegistry_Count(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, 0, reg.Count())
	require.NoError(t, RegisterBuiltins(reg))
	assert.Equal(t, 7, reg.Count())
	assert.True(t, reg.Has(DefaultRenderer))
}
