package resource

import "context"

// Resource is the capability set shared by every tree variant.
// Concrete variants: Node (value-holding leaf), Composite (ordered
// container), Root (session-level Composite). Custom kinds embed one
// of the concrete variants; the claim method keeps the interface
// implementable only through embedding, which is what enforces the
// single-owner tree.
type Resource interface {
	// ID returns the sibling-unique, lifetime-stable identifier.
	ID() string

	// Get returns the named attribute. "value" is the reserved value
	// attribute. Absent attributes fail with UNKNOWN_ATTRIBUTE.
	Get(attr string) (any, error)

	// Set stores val under attr. Undeclared attributes are rejected
	// unless the resource was built with WithOpenAttrs.
	Set(attr string, val any) error

	// Value and SetValue are convenience accessors for the reserved
	// "value" attribute.
	Value() (any, error)
	SetValue(val any) error

	// Children returns the declared-order child list. Empty for Node.
	Children() []Resource

	// Run executes the resource's lifecycle for one pass.
	Run(ctx context.Context, rc *RunContext) error

	// claim marks the resource as attached to a parent. A second claim
	// fails, which rejects double attachment and cycles.
	claim() error
}

// Kinded is implemented by custom resource variants. Kind names the
// constructor (New<Kind>) the serializer emits; KindDefinition is the
// Go definition emitted once per source file, or "" when the kind is
// part of a shared library named in the import prologue.
type Kinded interface {
	Kind() string
	KindDefinition() string
}

// container is how the tree distinguishes branches from leaves without
// stored parent pointers or type enumeration: anything that aggregates
// child values is a container. Composite (and everything embedding it)
// satisfies this.
type container interface {
	AllValues() map[string]any
	Child(id string) (Resource, bool)
}

// contains reports whether target is r or a descendant of r.
// Identity is interface equality, which for tree variants means
// pointer identity.
func contains(r Resource, target Resource) bool {
	if r == target {
		return true
	}
	for _, child := range r.Children() {
		if contains(child, target) {
			return true
		}
	}
	return false
}
