package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/weftlabs/weft/pkg/resource"
)

// manifestSchemaJSON is the JSON Schema for widget manifest validation.
// Embedded as a constant to avoid filesystem dependencies.
const manifestSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://weftlabs.dev/schemas/manifest.json",
  "type": "object",
  "required": ["widget", "entry"],
  "properties": {
    "widget": {
      "type": "string",
      "minLength": 1
    },
    "entry": {
      "type": "string",
      "pattern": "\\.go$"
    },
    "store": {
      "type": "string"
    },
    "autosave": {
      "type": "string"
    },
    "listen": {
      "type": "string"
    },
    "requirements": {
      "type": "array",
      "items": {
        "type": "string",
        "minLength": 1
      }
    },
    "imports": {
      "type": "array",
      "items": {
        "type": "string",
        "minLength": 1
      }
    },
    "renderers": {
      "type": "object",
      "additionalProperties": {
        "type": "string"
      }
    },
    "metadata": {
      "type": "object"
    }
  },
  "additionalProperties": false
}`

// JSONSchemaValidator validates manifests and kind attributes using
// JSON Schema Draft 2020-12. It is safe for concurrent use.
type JSONSchemaValidator struct {
	manifestSchema *jsonschema.Schema

	// mu guards the cache for dynamic attr schema compilation.
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator creates a new JSONSchemaValidator with the manifest schema pre-compiled.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := newAttrCompiler()

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(manifestSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal manifest schema: %w", err)
	}
	if err := c.AddResource("https://weftlabs.dev/schemas/manifest.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add manifest schema resource: %w", err)
	}

	mSchema, err := c.Compile("https://weftlabs.dev/schemas/manifest.json")
	if err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}

	return &JSONSchemaValidator{
		manifestSchema: mSchema,
		cache:          make(map[string]*jsonschema.Schema),
	}, nil
}

// ValidateManifest validates a decoded widget manifest against the manifest schema.
func (v *JSONSchemaValidator) ValidateManifest(manifest map[string]any) error {
	if manifest == nil {
		return resource.NewError(resource.ErrCodeConfiguration, "manifest is nil")
	}

	doc, err := toJSONValue(manifest)
	if err != nil {
		return resource.NewError(resource.ErrCodeConfiguration, "failed to serialize manifest").WithCause(err)
	}

	if err := v.manifestSchema.Validate(doc); err != nil {
		return toValidationError(err)
	}
	return nil
}

// ValidateAttrs validates resource attributes against a kind's attribute
// schema provided as raw bytes. The schema is compiled and cached for
// subsequent calls with the same schema.
func (v *JSONSchemaValidator) ValidateAttrs(attrs map[string]any, attrSchema []byte) error {
	if attrs == nil {
		return resource.NewError(resource.ErrCodeConfiguration, "attrs is nil")
	}
	if len(attrSchema) == 0 {
		return nil // no schema means no validation needed
	}

	compiled, err := v.getOrCompile(attrSchema)
	if err != nil {
		return resource.NewError(resource.ErrCodeConfiguration, "invalid attr schema").WithCause(err)
	}

	// Convert attrs to JSON-compatible value (json.Number for numbers).
	doc, err := toJSONValue(attrs)
	if err != nil {
		return resource.NewError(resource.ErrCodeConfiguration, "failed to serialize attrs").WithCause(err)
	}

	if err := compiled.Validate(doc); err != nil {
		return toValidationError(err)
	}

	return nil
}

// getOrCompile returns a cached compiled schema or compiles and caches a new one.
func (v *JSONSchemaValidator) getOrCompile(schemaBytes []byte) (*jsonschema.Schema, error) {
	key := string(schemaBytes)

	v.mu.RLock()
	if cached, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return cached, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	// Double-check after acquiring write lock.
	if cached, ok := v.cache[key]; ok {
		return cached, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	// Each dynamic schema gets a unique URL to avoid collisions in the compiler.
	url := fmt.Sprintf("weft://attr-schema/%d", len(v.cache))

	// Use a fresh compiler per dynamic schema to avoid resource collision.
	c := newAttrCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.cache[key] = compiled
	return compiled, nil
}

// newAttrCompiler creates a Compiler configured for attribute validation.
func newAttrCompiler() *jsonschema.Compiler {
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	return c
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toValidationError converts a jsonschema.ValidationError into a
// *resource.Error with clear, actionable messages.
func toValidationError(err error) *resource.Error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return resource.NewError(resource.ErrCodeConfiguration, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return resource.NewError(resource.ErrCodeConfiguration, verr.Error())
	}

	if len(violations) == 1 {
		return resource.NewError(resource.ErrCodeConfiguration, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return resource.NewError(resource.ErrCodeConfiguration, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
