package artifact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/resource"
)

const sampleSource = `package main

var Survey = resource.NewRoot("survey")
`

// kindSampleSource carries an embedded kind definition ahead of the
// root declaration, the way ToSource emits custom kinds.
const kindSampleSource = `package main

func NewSlider(id string, opts ...resource.Option) resource.Resource {
	return resource.NewNode(id, opts...)
}

var Mixer = resource.NewRoot("mixer",
	resource.WithChildren(
		NewSlider("volume",
			resource.WithValue(40),
		),
	),
)
`

func newPackager(t *testing.T) *Packager {
	t.Helper()
	p, err := NewPackager()
	require.NoError(t, err)
	return p
}

func TestPackage_Script(t *testing.T) {
	p := newPackager(t)

	out, err := p.Package(FormatScript, sampleSource, []string{"pandoc"}, nil)
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, "// requires: pandoc\n"))
	assert.Contains(t, s, `NewRoot("survey")`)
	assert.True(t, strings.HasSuffix(s, "\n"))
}

func TestPackage_ScriptNoRequirements(t *testing.T) {
	p := newPackager(t)

	out, err := p.Package(FormatScript, sampleSource, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, sampleSource, string(out))
}

func TestPackage_HTML(t *testing.T) {
	p := newPackager(t)

	out, err := p.Package(FormatHTML, sampleSource,
		[]string{"pandoc"}, []string{"github.com/weftlabs/contrib/charts"})
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "<title>Survey</title>")
	assert.Contains(t, s, "<code>pandoc</code>")
	assert.Contains(t, s, "<code>github.com/weftlabs/contrib/charts</code>")
	assert.Contains(t, s, "NewRoot(&#34;survey&#34;)")
}

func TestPackage_HTMLTitleIgnoresKindDefinitions(t *testing.T) {
	p := newPackager(t)

	out, err := p.Package(FormatHTML, kindSampleSource, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<title>Mixer</title>")
	assert.NotContains(t, string(out), "<title>Slider</title>")
}

func TestPackage_HTMLTitleFallback(t *testing.T) {
	p := newPackager(t)

	out, err := p.Package(FormatHTML, "package main\n", nil, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<title>weft widget</title>")
}

func TestPackage_HTMLSourceEscaped(t *testing.T) {
	p := newPackager(t)

	out, err := p.Package(FormatHTML, `label: "<b>bold</b>"`, nil, nil)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<b>bold</b>")
}

func TestPackage_UnknownFormat(t *testing.T) {
	p := newPackager(t)

	_, err := p.Package("pdf", sampleSource, nil, nil)
	require.Error(t, err)
	assert.Equal(t, resource.ErrCodeConfiguration, resource.CodeOf(err))
}

func TestPackage_RoundTripThroughRoot(t *testing.T) {
	p := newPackager(t)

	r, err := resource.Build(func() resource.Resource {
		return resource.NewRoot("survey",
			resource.WithRequirements("pandoc"),
			resource.WithChildren(resource.NewNode("age", resource.WithValue(30))),
		)
	})
	require.NoError(t, err)
	root := r.(*resource.Root)

	data, err := root.ToArtifact(p, FormatHTML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pandoc")
	assert.Contains(t, string(data), "NewNode")
}
