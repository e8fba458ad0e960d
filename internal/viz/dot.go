// Package viz renders program trees as Graphviz graphs.
package viz

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"dspgp/internal/sampler"
	"dspgp/internal/tree"
)

// Label is the text shown for a node: the opcode name for calls, the value
// with two decimals for numeric constants.
func Label(n tree.Node) string {
	switch x := n.(type) {
	case *tree.Call:
		return x.Op.Name
	case *tree.Const:
		if x.Value.Kind == sampler.KindText {
			return x.Value.Text
		}
		return fmt.Sprintf("%.2f", x.Value.Num)
	default:
		return ""
	}
}

// DOT renders root as a directed graph. Nodes are numbered in pre-order and
// every edge points from a child to the node consuming it.
func DOT(root tree.Node) string {
	var b strings.Builder
	b.WriteString("digraph program {\n")
	next := 0
	var visit func(n tree.Node) int
	visit = func(n tree.Node) int {
		id := next
		next++
		fmt.Fprintf(&b, "  n%d [label=%s];\n", id, strconv.Quote(Label(n)))
		for _, child := range n.Children() {
			childID := visit(child)
			fmt.Fprintf(&b, "  n%d -> n%d;\n", childID, id)
		}
		return id
	}
	if root != nil {
		visit(root)
	}
	b.WriteString("}\n")
	return b.String()
}

func WriteDOT(w io.Writer, root tree.Node) error {
	_, err := io.WriteString(w, DOT(root))
	return err
}

func WriteDOTFile(path string, root tree.Node) error {
	return os.WriteFile(path, []byte(DOT(root)), 0o644)
}
