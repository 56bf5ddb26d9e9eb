package manifest

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/weftlabs/weft/internal/validation"
	"github.com/weftlabs/weft/pkg/resource"
)

// DefaultFileName is the manifest looked up next to a widget script.
const DefaultFileName = "weft.yaml"

// Manifest describes a widget project: which script and root to serve
// and the session defaults that go with it.
type Manifest struct {
	// Widget is the exported root name inside the entry script.
	Widget string `yaml:"widget"`

	// Entry is the Go script the widget definition lives in, relative
	// to the manifest.
	Entry string `yaml:"entry"`

	// Store is the session database path. Empty means no persistence.
	Store string `yaml:"store,omitempty"`

	// Autosave is a cron expression for periodic snapshots.
	Autosave string `yaml:"autosave,omitempty"`

	// Listen is the panel's address, host:port.
	Listen string `yaml:"listen,omitempty"`

	// Requirements and Imports extend the root's own declarations.
	Requirements []string `yaml:"requirements,omitempty"`
	Imports      []string `yaml:"imports,omitempty"`

	// Renderers maps renderer names to their providers.
	Renderers map[string]string `yaml:"renderers,omitempty"`

	// Metadata is free-form project information.
	Metadata map[string]any `yaml:"metadata,omitempty"`

	// dir is where the manifest was loaded from; resolves Entry.
	dir string
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, resource.NewErrorf(resource.ErrCodeConfiguration,
			"cannot read manifest %s: %s", path, err.Error()).WithCause(err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// Parse decodes manifest bytes and validates them against the manifest
// schema.
func Parse(data []byte) (*Manifest, error) {
	// Decode twice: once into a generic map for schema validation and
	// once into the typed struct. The schema rejects unknown fields.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, resource.NewError(resource.ErrCodeConfiguration, "manifest is not valid YAML").WithCause(err)
	}

	v, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	if err := v.ValidateManifest(raw); err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, resource.NewError(resource.ErrCodeConfiguration, "manifest does not match the expected shape").WithCause(err)
	}
	return &m, nil
}

// EntryPath resolves the entry script relative to the manifest's
// directory.
func (m *Manifest) EntryPath() string {
	if m.dir == "" || filepath.IsAbs(m.Entry) {
		return m.Entry
	}
	return filepath.Join(m.dir, m.Entry)
}

// Find walks up from dir looking for a manifest file. Returns the path
// and true when found.
func Find(dir string) (string, bool) {
	for {
		candidate := filepath.Join(dir, DefaultFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
