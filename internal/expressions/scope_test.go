package expressions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/resource"
)

func scopeRoot(t *testing.T) *resource.Root {
	t.Helper()
	r, err := resource.Build(func() resource.Resource {
		return resource.NewRoot("survey",
			resource.WithChildren(
				resource.NewNode("age", resource.WithValue(30)),
				resource.NewComposite("address",
					resource.WithChildren(
						resource.NewNode("city", resource.WithValue("lagos")),
					),
				),
			),
		)
	})
	require.NoError(t, err)
	return r.(*resource.Root)
}

func TestScopeBuilder_Build(t *testing.T) {
	root := scopeRoot(t)
	sb, err := NewScopeBuilder(root)
	require.NoError(t, err)

	data := sb.Build()

	values, ok := data["values"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(30), values["age"])
	assert.Equal(t, map[string]any{"city": "lagos"}, values["address"])

	flat, ok := data["flat"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(30), flat["age"])
	assert.Equal(t, "lagos", flat["city"])

	widget, ok := data["widget"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "survey", widget["id"])
	assert.Equal(t, "Survey", widget["name"])
	assert.NotEmpty(t, widget["session_id"])

	// attrs defaults to an empty map outside per-resource evaluation.
	assert.Equal(t, map[string]any{}, data["attrs"])
}

func TestScopeBuilder_SnapshotIsFrozen(t *testing.T) {
	root := scopeRoot(t)
	sb, err := NewScopeBuilder(root)
	require.NoError(t, err)

	// Mutate the tree after the snapshot.
	require.NoError(t, root.SetValueAt([]string{"age"}, 99))

	values := sb.Values()
	assert.Equal(t, int64(30), values["age"])
}

func TestScopeBuilder_Refresh(t *testing.T) {
	root := scopeRoot(t)
	sb, err := NewScopeBuilder(root)
	require.NoError(t, err)

	require.NoError(t, root.SetValueAt([]string{"age"}, 99))
	require.NoError(t, sb.Refresh(root))

	values := sb.Values()
	assert.Equal(t, int64(99), values["age"])
}

func TestScopeBuilder_BuildReturnsCopies(t *testing.T) {
	root := scopeRoot(t)
	sb, err := NewScopeBuilder(root)
	require.NoError(t, err)

	data := sb.Build()
	data["values"].(map[string]any)["age"] = int64(-1)

	fresh := sb.Build()
	assert.Equal(t, int64(30), fresh["values"].(map[string]any)["age"])
}

func TestScopeBuilder_WithAttrs(t *testing.T) {
	root := scopeRoot(t)
	sb, err := NewScopeBuilder(root)
	require.NoError(t, err)

	child := sb.WithAttrs(map[string]any{"renderer": "number", "label": "Age"})
	data := child.Build()

	attrs, ok := data["attrs"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "number", attrs["renderer"])
	assert.Equal(t, "Age", attrs["label"])

	// Parent scope is unaffected.
	assert.Equal(t, map[string]any{}, sb.Build()["attrs"])
}

func TestScopeBuilder_WithAttrsCopiesInput(t *testing.T) {
	root := scopeRoot(t)
	sb, err := NewScopeBuilder(root)
	require.NoError(t, err)

	attrs := map[string]any{"renderer": "text"}
	child := sb.WithAttrs(attrs)
	attrs["renderer"] = "mutated"

	data := child.Build()
	assert.Equal(t, "text", data["attrs"].(map[string]any)["renderer"])
}

func TestScopeBuilder_FromValues(t *testing.T) {
	sb := NewScopeBuilderFromValues(
		map[string]any{"age": float64(30)},
		map[string]any{"name": "Survey"},
	)

	data := sb.Build()
	assert.Equal(t, float64(30), data["values"].(map[string]any)["age"])
	assert.Equal(t, "Survey", data["widget"].(map[string]any)["name"])
}
