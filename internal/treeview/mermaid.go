package treeview

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a TreeModel as a Mermaid flowchart string.
func RenderMermaid(model *TreeModel) string {
	var b strings.Builder

	b.WriteString("graph TD\n")
	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}

	writeNode(&b, model.Root)
	writeEdges(&b, model.Root)

	// Class definitions per kind.
	b.WriteString("\n")
	b.WriteString("    classDef root fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef composite fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef leaf fill:#6b6b6b,stroke:#4a4a4a,color:#fff\n")

	writeClasses(&b, model.Root)

	return b.String()
}

// writeNode emits the node definition, shaped by kind, then recurses.
func writeNode(b *strings.Builder, n *TreeNode) {
	id := mermaidSafeID(n.Path)
	label := mermaidLabel(n)

	switch n.Kind {
	case NodeKindRoot:
		b.WriteString(fmt.Sprintf("    %s((%q))\n", id, label))
	case NodeKindComposite:
		b.WriteString(fmt.Sprintf("    %s[[%q]]\n", id, label))
	default:
		b.WriteString(fmt.Sprintf("    %s[%q]\n", id, label))
	}

	for _, child := range n.Children {
		writeNode(b, child)
	}
}

func writeEdges(b *strings.Builder, n *TreeNode) {
	for _, child := range n.Children {
		b.WriteString(fmt.Sprintf("    %s --> %s\n",
			mermaidSafeID(n.Path), mermaidSafeID(child.Path)))
		writeEdges(b, child)
	}
}

func writeClasses(b *strings.Builder, n *TreeNode) {
	b.WriteString(fmt.Sprintf("    class %s %s\n", mermaidSafeID(n.Path), n.Kind))
	for _, child := range n.Children {
		writeClasses(b, child)
	}
}

// mermaidLabel is the display text: id plus value preview for leaves.
func mermaidLabel(n *TreeNode) string {
	if n.Kind == NodeKindLeaf && n.Value != "" {
		return fmt.Sprintf("%s = %s", n.ID, n.Value)
	}
	return n.ID
}

// mermaidSafeID converts a path to a Mermaid-safe identifier.
func mermaidSafeID(path string) string {
	r := strings.NewReplacer("/", "_", ".", "_", "-", "_", " ", "_")
	return r.Replace(path)
}
