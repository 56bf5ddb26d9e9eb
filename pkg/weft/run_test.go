package weft_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/resource"
	"github.com/weftlabs/weft/pkg/weft"
)

func surveyRoot(t *testing.T) *resource.Root {
	t.Helper()
	return buildRoot(t, func() resource.Resource {
		return resource.NewRoot("survey",
			resource.WithChildren(
				resource.NewNode("age", resource.WithValue(30), resource.WithRenderer("number")),
				resource.NewComposite("address",
					resource.WithChildren(
						resource.NewNode("city", resource.WithValue("lagos"), resource.WithRenderer("text")),
					),
				),
			),
		)
	})
}

func TestRunOnce_RecordsShows(t *testing.T) {
	root := surveyRoot(t)

	res, err := weft.RunOnce(context.Background(), root, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"age": 30, "city": "lagos"}, res.Values)
	require.Len(t, res.Shows, 2)
	assert.Equal(t, "survey/age", res.Shows[0].Key)
	assert.Equal(t, "number", res.Shows[0].Renderer)
	assert.Equal(t, "survey/address/city", res.Shows[1].Key)
	assert.Equal(t, "text", res.Shows[1].Renderer)
	assert.NotEmpty(t, res.Shows[0].HTML)
}

func TestRunOnce_AppliesInputs(t *testing.T) {
	root := surveyRoot(t)

	res, err := weft.RunOnce(context.Background(), root, map[string]any{
		"survey/age": 44,
	})
	require.NoError(t, err)
	assert.Equal(t, 44, res.Values["age"])
	assert.Equal(t, "lagos", res.Values["city"])
}

func TestRunOnce_NilRoot(t *testing.T) {
	_, err := weft.RunOnce(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, resource.ErrCodeConfiguration, resource.CodeOf(err))
}
