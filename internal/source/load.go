// Package source loads generated widget source back into a live tree.
// It is the counterpart of the serializer in pkg/resource: it parses a
// generated Go file, locates the named root declaration, and
// re-evaluates the construction expression through the kind registry.
// For every path that existed in the original tree, the loaded tree's
// AllValues is equal at that path.
package source

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"

	"github.com/weftlabs/weft/pkg/resource"
)

// Load parses src and reconstructs the root declared under name,
// resolving custom constructors through the default kind registry.
func Load(src []byte, name string) (*resource.Root, error) {
	return LoadWithKinds(src, name, resource.DefaultKinds)
}

// LoadFile reads and loads a widget source file.
func LoadFile(path, name string) (*resource.Root, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, resource.NewErrorf(resource.ErrCodeSource,
			"cannot read widget source %s: %s", path, err.Error()).WithCause(err)
	}
	return Load(src, name)
}

// LoadWithKinds is Load with an explicit kind registry.
func LoadWithKinds(src []byte, name string, kinds *resource.KindRegistry) (*resource.Root, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "widget.go", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, resource.NewErrorf(resource.ErrCodeSource,
			"cannot parse widget source: %s", err.Error()).WithCause(err)
	}

	expr, ok := findRootDecl(file, name)
	if !ok {
		return nil, resource.NewErrorf(resource.ErrCodeSource,
			"root %q is not defined in the source file", name)
	}

	ev := &evaluator{kinds: kinds}
	r, err := ev.resource(expr)
	if err != nil {
		return nil, err
	}

	root, ok := r.(*resource.Root)
	if !ok {
		return nil, resource.NewErrorf(resource.ErrCodeSource,
			"declaration %q does not construct a root (got %T)", name, r)
	}
	root.Name = name
	return root, nil
}

// findRootDecl scans top-level var declarations for the named spec and
// returns its initializer expression.
func findRootDecl(file *ast.File, name string) (ast.Expr, bool) {
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.VAR {
			continue
		}
		for _, spec := range gen.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for i, ident := range vs.Names {
				if ident.Name != name || i >= len(vs.Values) {
					continue
				}
				return vs.Values[i], true
			}
		}
	}
	return nil, false
}
