package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/resource"
)

func writeWidgetScript(t *testing.T, dir string) string {
	t.Helper()
	r, err := resource.Build(func() resource.Resource {
		return resource.NewRoot("survey",
			resource.WithName("Survey"),
			resource.WithChildren(
				resource.NewNode("age", resource.WithValue(int64(30)), resource.WithRenderer("number")),
			),
		)
	})
	require.NoError(t, err)
	src, err := r.(*resource.Root).ToSource()
	require.NoError(t, err)

	path := filepath.Join(dir, "survey.go")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadTarget_ScriptAndName(t *testing.T) {
	path := writeWidgetScript(t, t.TempDir())

	tgt, err := loadTarget([]string{path, "Survey"})
	require.NoError(t, err)
	assert.Nil(t, tgt.manifest)
	assert.Equal(t, "survey", tgt.root.ID())

	v, err := tgt.root.ValueAt("age")
	require.NoError(t, err)
	assert.Equal(t, int64(30), v)
	assert.NotNil(t, tgt.root.VisualizeFunc, "loaded widgets get the derived-value pass")
}

func TestLoadTarget_Manifest(t *testing.T) {
	dir := t.TempDir()
	writeWidgetScript(t, dir)
	manifestPath := filepath.Join(dir, "weft.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(
		"widget: Survey\nentry: survey.go\nrequirements:\n  - numpy\n"), 0o644))

	tgt, err := loadTarget([]string{manifestPath})
	require.NoError(t, err)
	require.NotNil(t, tgt.manifest)
	assert.Equal(t, "survey", tgt.root.ID())
	assert.Contains(t, tgt.root.Requirements, "numpy")
}

func TestLoadTarget_UnknownRootName(t *testing.T) {
	path := writeWidgetScript(t, t.TempDir())

	_, err := loadTarget([]string{path, "Nope"})
	require.Error(t, err)
	assert.Equal(t, resource.ErrCodeSource, resource.CodeOf(err))
}

func TestLoadTarget_TooManyArgs(t *testing.T) {
	_, err := loadTarget([]string{"a", "b", "c"})
	require.Error(t, err)
}
