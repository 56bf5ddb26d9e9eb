package resource

import (
	"sort"
	"strconv"
	"strings"
)

// defaultPrologue is the fixed import block every generated file
// starts with; ExtraImports follow it in declared order.
var defaultPrologue = []string{
	"context",
	"github.com/weftlabs/weft/pkg/resource",
	"github.com/weftlabs/weft/pkg/weft",
}

// ToSource serializes the tree's current state into a standalone Go
// source file. Re-executing the file (or loading it through
// internal/source) reconstructs a tree whose AllValues equals this
// one's at every path. The output is a pure function of tree
// structure: two calls with no intervening mutation are byte-identical.
//
// Layout: package clause, import prologue plus ExtraImports, custom
// kind definitions exactly once each in first-encountered order
// (before first use; the prologue precedes them because Go grammar
// places imports first), then the root construction expression, then a
// main function handing the root to the standard runtime.
func (r *Root) ToSource() (string, error) {
	defs, err := collectDefinitions(r)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("// Code generated by weft from a live session.\n")
	b.WriteString("// Running this file reconstructs the widget tree with its exported values.\n")
	b.WriteString("package main\n\n")

	b.WriteString("import (\n")
	for _, imp := range defaultPrologue {
		b.WriteString("\t" + strconv.Quote(imp) + "\n")
	}
	for _, imp := range r.ExtraImports {
		b.WriteString("\t" + strconv.Quote(imp) + "\n")
	}
	b.WriteString(")\n\n")

	for _, def := range defs {
		b.WriteString(strings.TrimRight(def, "\n"))
		b.WriteString("\n\n")
	}

	b.WriteString("var " + r.Name + " = ")
	if err := emitResource(&b, r, []string{r.ID()}, 0); err != nil {
		return "", err
	}
	b.WriteString("\n\nfunc main() {\n\tweft.Serve(context.Background(), " + r.Name + ")\n}\n")

	return b.String(), nil
}

// Serialize returns the single construction expression for this node.
func (n *Node) Serialize() (string, error) {
	var b strings.Builder
	if err := emitResource(&b, n, []string{n.id}, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Serialize returns the construction expression for this subtree.
func (c *Composite) Serialize() (string, error) {
	var b strings.Builder
	if err := emitResource(&b, c, []string{c.id}, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

// collectDefinitions walks the tree depth-first (parents before
// children, declared child order) gathering each distinct custom kind
// definition once. Deduplication is by kind identity (the registered
// kind name), not textual equality.
func collectDefinitions(r Resource) ([]string, error) {
	var defs []string
	seen := make(map[string]bool)

	err := Walk(r, func(path []string, res Resource) error {
		k, ok := res.(Kinded)
		if !ok {
			return nil
		}
		name := k.Kind()
		if name == "" || seen[name] {
			return nil
		}
		seen[name] = true
		if def := k.KindDefinition(); def != "" {
			defs = append(defs, def)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// emitResource writes the construction expression for r. Children are
// rendered before their parent's expression closes over them, in
// declared order; attributes follow the fixed deterministic order
// value, label, help, then the remainder sorted by name.
func emitResource(b *strings.Builder, r Resource, path []string, indent int) error {
	ctor, err := ctorName(r)
	if err != nil {
		return err
	}

	attrs, err := attrsOf(r, path)
	if err != nil {
		return err
	}

	var opts []string

	_, isContainer := r.(container)
	if !isContainer {
		if v := attrs["value"]; v != nil {
			lit, lerr := literal(v, path)
			if lerr != nil {
				return lerr
			}
			opts = append(opts, "resource.WithValue("+lit+")")
		}
	}
	if lbl, ok := attrs["label"].(string); ok && lbl != DefaultLabel(r.ID()) {
		opts = append(opts, "resource.WithLabel("+strconv.Quote(lbl)+")")
	}
	if help, ok := attrs["help"].(string); ok && help != "" {
		opts = append(opts, "resource.WithHelp("+strconv.Quote(help)+")")
	}

	extra := make([]string, 0, len(attrs))
	for k := range attrs {
		if k == "value" || k == "label" || k == "help" {
			continue
		}
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		lit, lerr := literal(attrs[k], path)
		if lerr != nil {
			return lerr
		}
		opts = append(opts, "resource.WithAttr("+strconv.Quote(k)+", "+lit+")")
	}

	if root, ok := r.(*Root); ok {
		if len(root.Requirements) > 0 {
			reqs := make([]string, len(root.Requirements))
			for i, req := range root.Requirements {
				reqs[i] = strconv.Quote(req)
			}
			opts = append(opts, "resource.WithRequirements("+strings.Join(reqs, ", ")+")")
		}
		if len(root.ExtraImports) > 0 {
			imps := make([]string, len(root.ExtraImports))
			for i, imp := range root.ExtraImports {
				imps[i] = strconv.Quote(imp)
			}
			opts = append(opts, "resource.WithImports("+strings.Join(imps, ", ")+")")
		}
	}

	children := r.Children()

	pad := strings.Repeat("\t", indent)
	b.WriteString(ctor + "(" + strconv.Quote(r.ID()))
	if len(opts) == 0 && len(children) == 0 {
		b.WriteString(")")
		return nil
	}
	for _, opt := range opts {
		b.WriteString(",\n" + pad + "\t" + opt)
	}
	if len(children) > 0 {
		b.WriteString(",\n" + pad + "\tresource.WithChildren(")
		for _, child := range children {
			b.WriteString("\n" + pad + "\t\t")
			childPath := append(append([]string(nil), path...), child.ID())
			if err := emitResource(b, child, childPath, indent+2); err != nil {
				return err
			}
			b.WriteString(",")
		}
		b.WriteString("\n" + pad + "\t)")
	}
	b.WriteString(",\n" + pad + ")")
	return nil
}

// ctorName picks the constructor the expression is built from. Custom
// kinds (Kinded with a non-empty name) emit their own constructor,
// which the loader resolves through the kind registry.
func ctorName(r Resource) (string, error) {
	if k, ok := r.(Kinded); ok && k.Kind() != "" {
		return "New" + k.Kind(), nil
	}
	switch r.(type) {
	case *Root:
		return "resource.NewRoot", nil
	case *Node:
		return "resource.NewNode", nil
	case *Composite:
		return "resource.NewComposite", nil
	default:
		if _, ok := r.(container); ok {
			return "resource.NewComposite", nil
		}
		return "resource.NewNode", nil
	}
}

func attrsOf(r Resource, path []string) (map[string]any, error) {
	a, ok := r.(interface{ Attrs() map[string]any })
	if !ok {
		return nil, NewErrorf(ErrCodeNotSerializable,
			"resource %q does not expose its attributes", r.ID()).WithPath(path...)
	}
	return a.Attrs(), nil
}
