package treeview

import (
	"fmt"
	"strings"
)

// RenderASCII renders a TreeModel as an indented text tree with
// box-drawing branch characters.
func RenderASCII(model *TreeModel) string {
	var b strings.Builder

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("=== %s ===\n", model.Title))
	}

	b.WriteString(nodeLine(model.Root))
	b.WriteByte('\n')
	renderChildren(&b, model.Root, "")

	return b.String()
}

func renderChildren(b *strings.Builder, n *TreeNode, prefix string) {
	for i, child := range n.Children {
		last := i == len(n.Children)-1

		branch := "├── " // ├──
		cont := "│   "             // │
		if last {
			branch = "└── " // └──
			cont = "    "
		}

		b.WriteString(prefix + branch + nodeLine(child) + "\n")
		renderChildren(b, child, prefix+cont)
	}
}

// nodeLine formats one node: id, value preview for leaves, and the
// renderer or custom kind in parentheses.
func nodeLine(n *TreeNode) string {
	var parts []string
	parts = append(parts, n.ID)

	if n.Kind == NodeKindLeaf {
		parts = append(parts, "=", n.Value)
	}

	var tags []string
	if n.KindName != "" {
		tags = append(tags, n.KindName)
	}
	if n.Renderer != "" {
		tags = append(tags, n.Renderer)
	}
	if len(tags) > 0 {
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(tags, ", ")))
	}

	return strings.Join(parts, " ")
}
