package validation

import (
	"fmt"
	"strings"

	"github.com/weftlabs/weft/pkg/resource"
)

// attrser is satisfied by every concrete resource variant.
type attrser interface {
	Attrs() map[string]any
}

// validateSemantic performs semantic analysis on a widget tree.
// Checks: renderer names registered, duplicate leaf ids (breaks
// flattening), empty composites, requirement and import strings.
func validateSemantic(root *resource.Root, renderers RendererLookup) *ValidationResult {
	result := &ValidationResult{}

	leafSeen := make(map[string]string) // leaf id -> first path

	_ = resource.Walk(root, func(path []string, r resource.Resource) error {
		isRoot := len(path) == 0
		loc := resource.Key(path)
		if isRoot {
			loc = root.ID()
		}

		a, ok := r.(attrser)
		if !ok {
			return nil
		}
		attrs := a.Attrs()

		// Renderer existence.
		if name, ok := attrs["renderer"].(string); ok && name != "" && renderers != nil {
			if !renderers.Has(name) {
				result.AddError(loc, resource.ErrCodeConfiguration,
					fmt.Sprintf("renderer %q not registered", name))
			}
		}

		// Leaf id collisions poison FlatValues and exports.
		if len(r.Children()) == 0 {
			if first, dup := leafSeen[r.ID()]; dup {
				result.AddWarning(loc, resource.ErrCodeDuplicateID,
					fmt.Sprintf("leaf id %q also appears at %s; FlatValues will fail", r.ID(), first))
			} else {
				leafSeen[r.ID()] = loc
			}
		}

		// A composite with no children usually means an unfinished tree.
		if _, isLeaf := r.(*resource.Node); !isLeaf {
			if len(r.Children()) == 0 && !isRoot {
				result.AddWarning(loc, resource.ErrCodeConfiguration, "composite has no children")
			}
		}

		return nil
	})

	for i, req := range root.Requirements {
		if strings.TrimSpace(req) == "" {
			result.AddError(fmt.Sprintf("requirements[%d]", i),
				resource.ErrCodeConfiguration, "requirement must not be blank")
		}
	}
	for i, imp := range root.ExtraImports {
		if strings.TrimSpace(imp) == "" {
			result.AddError(fmt.Sprintf("imports[%d]", i),
				resource.ErrCodeConfiguration, "import path must not be blank")
		}
	}

	return result
}
