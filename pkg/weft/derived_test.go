package weft_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/resource"
	"github.com/weftlabs/weft/pkg/weft"
)

func buildRoot(t *testing.T, fn func() resource.Resource) *resource.Root {
	t.Helper()
	r, err := resource.Build(fn)
	require.NoError(t, err)
	root, ok := r.(*resource.Root)
	require.True(t, ok)
	return root
}

func derivedNode(id, expr string) *resource.Node {
	return resource.NewNode(id, resource.WithValue(nil), resource.WithAttr(weft.DerivedAttr, expr))
}

func TestDerived_SumOfSiblings(t *testing.T) {
	root := buildRoot(t, func() resource.Resource {
		return resource.NewRoot("calc",
			resource.WithChildren(
				resource.NewNode("a", resource.WithValue(2)),
				resource.NewNode("b", resource.WithValue(3)),
				derivedNode("total", "${{values.a}} + ${{values.b}}"),
			),
			resource.WithVisualize(weft.Derived(nil)),
		)
	})

	_, err := weft.RunOnce(context.Background(), root, nil)
	require.NoError(t, err)

	total, err := root.ValueAt("total")
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}

func TestDerived_BareReferenceKeepsType(t *testing.T) {
	root := buildRoot(t, func() resource.Resource {
		return resource.NewRoot("calc",
			resource.WithChildren(
				resource.NewNode("items", resource.WithValue([]any{"x", "y"})),
				derivedNode("copy", "${{values.items}}"),
			),
			resource.WithVisualize(weft.Derived(nil)),
		)
	})

	_, err := weft.RunOnce(context.Background(), root, nil)
	require.NoError(t, err)

	v, err := root.ValueAt("copy")
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, v)
}

func TestDerived_ChainEvaluatedInDependencyOrder(t *testing.T) {
	// "twice" is declared before the leaf it depends on.
	root := buildRoot(t, func() resource.Resource {
		return resource.NewRoot("calc",
			resource.WithChildren(
				derivedNode("twice", "${{values.plusone}} * 2"),
				derivedNode("plusone", "${{values.a}} + 1"),
				resource.NewNode("a", resource.WithValue(1)),
			),
			resource.WithVisualize(weft.Derived(nil)),
		)
	})

	_, err := weft.RunOnce(context.Background(), root, nil)
	require.NoError(t, err)

	v, err := root.ValueAt("twice")
	require.NoError(t, err)
	assert.Equal(t, 4, v)
}

func TestDerived_PlainExpression(t *testing.T) {
	root := buildRoot(t, func() resource.Resource {
		return resource.NewRoot("calc",
			resource.WithChildren(derivedNode("answer", "40 + 2")),
			resource.WithVisualize(weft.Derived(nil)),
		)
	})

	_, err := weft.RunOnce(context.Background(), root, nil)
	require.NoError(t, err)

	v, err := root.ValueAt("answer")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDerived_StringConcat(t *testing.T) {
	root := buildRoot(t, func() resource.Resource {
		return resource.NewRoot("calc",
			resource.WithChildren(
				resource.NewNode("name", resource.WithValue("lagos")),
				derivedNode("greeting", `"hello " + ${{values.name}}`),
			),
			resource.WithVisualize(weft.Derived(nil)),
		)
	})

	_, err := weft.RunOnce(context.Background(), root, nil)
	require.NoError(t, err)

	v, err := root.ValueAt("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello lagos", v)
}

func TestDerived_NestedLeafReference(t *testing.T) {
	root := buildRoot(t, func() resource.Resource {
		return resource.NewRoot("calc",
			resource.WithChildren(
				resource.NewComposite("inner",
					resource.WithChildren(resource.NewNode("x", resource.WithValue(10))),
				),
				derivedNode("mirror", "${{values.inner.x}}"),
			),
			resource.WithVisualize(weft.Derived(nil)),
		)
	})

	_, err := weft.RunOnce(context.Background(), root, nil)
	require.NoError(t, err)

	v, err := root.ValueAt("mirror")
	require.NoError(t, err)
	assert.Equal(t, 10, v)
}

func TestDerived_CycleRejected(t *testing.T) {
	root := buildRoot(t, func() resource.Resource {
		return resource.NewRoot("calc",
			resource.WithChildren(
				derivedNode("x", "${{values.y}} + 1"),
				derivedNode("y", "${{values.x}} + 1"),
			),
			resource.WithVisualize(weft.Derived(nil)),
		)
	})

	_, err := weft.RunOnce(context.Background(), root, nil)
	require.Error(t, err)
	assert.Equal(t, resource.ErrCodeExpression, resource.CodeOf(err))
}

func TestDerived_UnknownReferenceFails(t *testing.T) {
	root := buildRoot(t, func() resource.Resource {
		return resource.NewRoot("calc",
			resource.WithChildren(derivedNode("bad", "${{values.missing}}")),
			resource.WithVisualize(weft.Derived(nil)),
		)
	})

	_, err := weft.RunOnce(context.Background(), root, nil)
	require.Error(t, err)
	assert.Equal(t, resource.ErrCodeExpression, resource.CodeOf(err))
	assert.Contains(t, err.Error(), "bad")
}

func TestDerived_NoDerivedLeavesIsNoop(t *testing.T) {
	root := buildRoot(t, func() resource.Resource {
		return resource.NewRoot("calc",
			resource.WithChildren(resource.NewNode("a", resource.WithValue(1))),
			resource.WithVisualize(weft.Derived(nil)),
		)
	})

	_, err := weft.RunOnce(context.Background(), root, nil)
	require.NoError(t, err)
}
