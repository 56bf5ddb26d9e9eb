package validation

import "github.com/weftlabs/weft/pkg/resource"

// Validator checks widget trees for correctness before a run or export.
// Uses JSON Schema Draft 2020-12 for attribute validation.
type Validator interface {
	ValidateTree(root *resource.Root) error
	ValidateAttrs(attrs map[string]any, attrSchema []byte) error
}

// RendererLookup reports whether a renderer name is registered.
// Satisfied by the render registry (avoids import cycle).
type RendererLookup interface {
	Has(name string) bool
}
