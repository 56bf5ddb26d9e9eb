package treeview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMermaid(t *testing.T) {
	model, err := Build(surveyTree(t))
	require.NoError(t, err)

	out := RenderMermaid(model)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, "%% Survey")
	assert.Contains(t, out, `survey(("survey"))`)
	assert.Contains(t, out, `survey_address[["address"]]`)
	assert.Contains(t, out, `survey_age["age = 30"]`)
	assert.Contains(t, out, "survey --> survey_age")
	assert.Contains(t, out, "survey_address --> survey_address_city")
}

func TestRenderMermaid_Classes(t *testing.T) {
	model, err := Build(surveyTree(t))
	require.NoError(t, err)

	out := RenderMermaid(model)

	assert.Contains(t, out, "classDef root")
	assert.Contains(t, out, "classDef composite")
	assert.Contains(t, out, "classDef leaf")
	assert.Contains(t, out, "class survey root")
	assert.Contains(t, out, "class survey_age leaf")
	assert.Contains(t, out, "class survey_address composite")
}
