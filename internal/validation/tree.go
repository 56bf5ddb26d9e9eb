package validation

import (
	"github.com/weftlabs/weft/pkg/resource"
)

// TreeValidator orchestrates the three-stage validation pipeline:
// 1. Structural (attributes against kind JSON Schemas)
// 2. Semantic (renderer refs, leaf id collisions, root metadata)
// 3. Graph (derived-value cycles and references)
type TreeValidator struct {
	jsonSchema *JSONSchemaValidator
	renderers  RendererLookup
	kinds      *resource.KindRegistry
}

// NewTreeValidator creates a TreeValidator. renderers may be nil to
// skip renderer existence checks; kinds may be nil to fall back to the
// process-wide registry.
func NewTreeValidator(renderers RendererLookup, kinds *resource.KindRegistry) (*TreeValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	if kinds == nil {
		kinds = resource.DefaultKinds
	}
	return &TreeValidator{
		jsonSchema: jsv,
		renderers:  renderers,
		kinds:      kinds,
	}, nil
}

// Validate runs the full 3-stage pipeline and returns an aggregated result.
// Structural errors short-circuit: semantic and graph stages are skipped.
func (tv *TreeValidator) Validate(root *resource.Root) *ValidationResult {
	if root == nil {
		r := &ValidationResult{}
		r.AddError("/", resource.ErrCodeConfiguration, "widget tree is nil")
		return r
	}

	// Stage 1: Structural (kind attribute schemas).
	result := tv.validateStructural(root)
	if !result.Valid() {
		return result
	}

	// Stage 2: Semantic.
	result.Merge(validateSemantic(root, tv.renderers))

	// Stage 3: Graph (skip if semantic errors, references may be invalid).
	if result.Valid() {
		result.Merge(validateDerivedGraph(root))
	}

	return result
}

// ValidateTree satisfies the Validator interface.
func (tv *TreeValidator) ValidateTree(root *resource.Root) error {
	return tv.Validate(root).ToError()
}

// ValidateAttrs delegates to the underlying JSONSchemaValidator.
func (tv *TreeValidator) ValidateAttrs(attrs map[string]any, attrSchema []byte) error {
	return tv.jsonSchema.ValidateAttrs(attrs, attrSchema)
}

// ValidateManifest delegates to the underlying JSONSchemaValidator.
func (tv *TreeValidator) ValidateManifest(manifest map[string]any) error {
	return tv.jsonSchema.ValidateManifest(manifest)
}

// validateStructural checks every kinded resource's attributes against
// the JSON Schema its registered kind declares, converting the
// validator's error output into ValidationResult entries.
func (tv *TreeValidator) validateStructural(root *resource.Root) *ValidationResult {
	result := &ValidationResult{}

	_ = resource.Walk(root, func(path []string, r resource.Resource) error {
		k, ok := r.(resource.Kinded)
		if !ok {
			return nil
		}
		spec, ok := tv.kinds.Lookup(k.Kind())
		if !ok || spec.AttrSchema == "" {
			return nil
		}
		a, ok := r.(attrser)
		if !ok {
			return nil
		}

		err := tv.jsonSchema.ValidateAttrs(a.Attrs(), []byte(spec.AttrSchema))
		if err == nil {
			return nil
		}

		loc := resource.Key(path)
		if loc == "" {
			loc = root.ID()
		}

		wErr, ok := err.(*resource.Error)
		if !ok {
			result.AddError(loc, resource.ErrCodeConfiguration, err.Error())
			return nil
		}
		if wErr.Details != nil {
			if violations, ok := wErr.Details["violations"].([]string); ok {
				for _, v := range violations {
					result.AddError(loc, resource.ErrCodeConfiguration, v)
				}
				return nil
			}
		}
		result.AddError(loc, resource.ErrCodeConfiguration, wErr.Message)
		return nil
	})

	return result
}
