package treeview

import (
	"fmt"

	"github.com/weftlabs/weft/pkg/resource"
)

// NodeKind classifies a tree node by its resource variant.
type NodeKind string

const (
	NodeKindRoot      NodeKind = "root"
	NodeKindComposite NodeKind = "composite"
	NodeKindLeaf      NodeKind = "leaf"
)

// TreeNode is one resource in the view model.
type TreeNode struct {
	ID       string
	Path     string
	Label    string
	Kind     NodeKind
	KindName string // custom kind constructor name, if any
	Renderer string
	Value    string // literal preview, leaves only
	Children []*TreeNode
}

// TreeModel is the intermediate representation used by all renderers.
type TreeModel struct {
	Title string
	Root  *TreeNode
	Count int
}

// Build converts a widget tree into the view model.
func Build(root *resource.Root) (*TreeModel, error) {
	if root == nil {
		return nil, resource.NewError(resource.ErrCodeConfiguration, "tree is nil")
	}

	model := &TreeModel{Title: root.Name}
	model.Root = buildNode(root, nil, &model.Count)
	model.Root.Kind = NodeKindRoot
	return model, nil
}

func buildNode(r resource.Resource, path []string, count *int) *TreeNode {
	*count++

	n := &TreeNode{
		ID:   r.ID(),
		Path: resource.Key(append(append([]string(nil), path...), r.ID())),
		Kind: NodeKindComposite,
	}

	if a, ok := r.(interface{ Attrs() map[string]any }); ok {
		attrs := a.Attrs()
		n.Label, _ = attrs["label"].(string)
		n.Renderer, _ = attrs["renderer"].(string)
	}
	if k, ok := r.(resource.Kinded); ok {
		n.KindName = k.Kind()
	}

	children := r.Children()
	if len(children) == 0 {
		if v, err := r.Value(); err == nil {
			n.Kind = NodeKindLeaf
			n.Value = valuePreview(v)
		}
	}

	childPath := append(append([]string(nil), path...), r.ID())
	for _, child := range children {
		n.Children = append(n.Children, buildNode(child, childPath, count))
	}
	return n
}

// valuePreview formats a leaf value for display, truncated to one line.
func valuePreview(v any) string {
	if v == nil {
		return "nil"
	}
	s := fmt.Sprintf("%#v", v)
	if len(s) > 48 {
		s = s[:45] + "..."
	}
	return s
}
