package main

import (
	"fmt"
	"os"

	"github.com/weftlabs/weft/internal/manifest"
	"github.com/weftlabs/weft/internal/source"
	"github.com/weftlabs/weft/pkg/resource"
	"github.com/weftlabs/weft/pkg/weft"
)

// target is a loaded widget plus any project manifest that described it.
type target struct {
	root     *resource.Root
	manifest *manifest.Manifest
}

// loadTarget resolves the widget the command operates on. Two forms:
// an explicit "script.go RootName" pair, or no arguments, in which
// case a weft.yaml manifest is looked up from the current directory.
func loadTarget(args []string) (*target, error) {
	switch len(args) {
	case 0:
		dir, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path, ok := manifest.Find(dir)
		if !ok {
			return nil, fmt.Errorf("no %s found; pass a script and root name", manifest.DefaultFileName)
		}
		return loadManifestTarget(path)
	case 1:
		return loadManifestTarget(args[0])
	case 2:
		root, err := source.LoadFile(args[0], args[1])
		if err != nil {
			return nil, err
		}
		attachDerived(root)
		return &target{root: root}, nil
	default:
		return nil, fmt.Errorf("expected [script.go RootName], got %d arguments", len(args))
	}
}

func loadManifestTarget(path string) (*target, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	root, err := source.LoadFile(m.EntryPath(), m.Widget)
	if err != nil {
		return nil, err
	}
	// Manifest declarations extend the script's own.
	root.Requirements = append(root.Requirements, m.Requirements...)
	root.ExtraImports = append(root.ExtraImports, m.Imports...)
	attachDerived(root)
	return &target{root: root, manifest: m}, nil
}

// attachDerived enables "expr" attributes on loaded widgets. Scripts
// built in Go attach their own hooks; a parsed source file cannot, so
// the CLI installs the standard derived-value pass on every load.
func attachDerived(root *resource.Root) {
	if root.VisualizeFunc == nil {
		root.VisualizeFunc = weft.Derived(nil)
	}
}
