package btree

import (
	"fmt"
	"io"

	"github.com/xlab/treeprint"
)

// Sprint renders the tree rooted at node as an indented ASCII tree, one
// line per node with id, type, and current status.
func Sprint(node Node) string {
	root := treeprint.New()
	root.SetValue(nodeLabel(node))
	addBranches(root, node)
	return root.String()
}

// Fprint writes the rendering of Sprint to w.
func Fprint(w io.Writer, node Node) error {
	_, err := io.WriteString(w, Sprint(node))
	return err
}

func addBranches(branch treeprint.Tree, node Node) {
	for _, child := range node.Children() {
		b := branch.AddBranch(nodeLabel(child))
		addBranches(b, child)
	}
}

func nodeLabel(node Node) string {
	if node == nil {
		return "<nil>"
	}
	if node.Name() != "" {
		return fmt.Sprintf("%s %q (%s) [%s]", node.ID(), node.Name(), node.Type(), node.Status())
	}
	return fmt.Sprintf("%s (%s) [%s]", node.ID(), node.Type(), node.Status())
}
