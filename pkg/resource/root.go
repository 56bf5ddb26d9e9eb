package resource

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Root is a Composite with no parent, representing one widget
// instance. It adds the session-level responsibilities: the external
// requirements and extra imports carried into generated source, and
// the export operations. A Root is created once per session, mutated
// by run passes, and never itself persisted; only its serialized
// projection is.
type Root struct {
	Composite

	// Requirements is the set of external package names the exported
	// artifact needs before it can run.
	Requirements []string

	// ExtraImports is the ordered list of import paths generated code
	// needs beyond the fixed default prologue.
	ExtraImports []string

	// Name is the exported identifier the root is serialized under.
	Name string

	// SessionID identifies this live session. Not serialized: a
	// reloaded tree is a new session.
	SessionID string
}

// NewRoot constructs the top-level resource for one session. Panics
// with *Error on configuration violations, like NewComposite.
func NewRoot(id string, opts ...Option) *Root {
	s := collect(opts)
	c := NewComposite(id, opts...)

	name := s.name
	if name == "" {
		name = ExportName(id)
	}
	return &Root{
		Composite:    *c,
		Requirements: append([]string(nil), s.requirements...),
		ExtraImports: append([]string(nil), s.imports...),
		Name:         name,
		SessionID:    uuid.New().String(),
	}
}

// Run is the externally-triggered entry point: one full, deterministic
// depth-first traversal of the tree. The root's own id anchors every
// input/display key.
func (r *Root) Run(ctx context.Context, rc *RunContext) error {
	if rc == nil {
		rc = NewRunContext(nil)
	}
	rc.push(r.ID())
	defer rc.pop()
	return r.Composite.Run(ctx, rc)
}

// claim rejects attachment: a root is the top of its tree.
func (r *Root) claim() error {
	return NewErrorf(ErrCodeCycleRejected,
		"root %q cannot be attached as a child", r.ID())
}

// Clone deep-copies the whole tree into a fresh session.
func (r *Root) Clone() Resource {
	out := &Root{
		Composite:    *(r.Composite.Clone().(*Composite)),
		Requirements: append([]string(nil), r.Requirements...),
		ExtraImports: append([]string(nil), r.ExtraImports...),
		Name:         r.Name,
		SessionID:    uuid.New().String(),
	}
	return out
}

// Packager wraps generated source into a distributable artifact. Its
// internals (HTML shells, interpreters) are an external collaborator's
// concern.
type Packager interface {
	Package(format string, sourceText string, requirements []string, imports []string) ([]byte, error)
}

// ToArtifact serializes the tree and hands the text plus requirements
// and imports to the packager.
func (r *Root) ToArtifact(p Packager, format string) ([]byte, error) {
	if p == nil {
		return nil, NewError(ErrCodeConfiguration, "no packager provided")
	}
	src, err := r.ToSource()
	if err != nil {
		return nil, err
	}
	return p.Package(format, src, append([]string(nil), r.Requirements...), append([]string(nil), r.ExtraImports...))
}

// ExportName derives the exported Go identifier a root id is
// serialized under: underscore-separated words become CamelCase.
func ExportName(id string) string {
	var b strings.Builder
	for _, w := range strings.Split(id, "_") {
		if w == "" {
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	if b.Len() == 0 {
		return "Widget"
	}
	return b.String()
}
