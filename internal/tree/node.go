// Package tree holds the expression tree of a generated DSP program.
package tree

import (
	"iter"

	"dspgp/internal/catalog"
	"dspgp/internal/sampler"
)

// Node is either a *Const leaf or a *Call. A tree exclusively owns its
// children: nodes are never shared between trees.
type Node interface {
	// Rate is the rate of the value the node produces.
	Rate() catalog.Rate
	Children() []Node
	Clone() Node
	isNode()
}

// Const is a constant leaf. Spec is kept so the value can be resampled.
type Const struct {
	Value sampler.Value
	Spec  string
}

func (c *Const) Rate() catalog.Rate { return catalog.RateConstant }

func (c *Const) Children() []Node { return nil }

func (c *Const) Clone() Node {
	clone := *c
	return &clone
}

func (*Const) isNode() {}

// Call applies an opcode; Args[i] fills Op.Args[i].
type Call struct {
	Op   catalog.Descriptor
	Args []Node
}

func (c *Call) Rate() catalog.Rate { return c.Op.Returns }

func (c *Call) Children() []Node { return c.Args }

// Clone deep-copies the call and its whole subtree.
func (c *Call) Clone() Node {
	clone := &Call{Op: c.Op, Args: make([]Node, len(c.Args))}
	for i, child := range c.Args {
		clone.Args[i] = child.Clone()
	}
	return clone
}

func (*Call) isNode() {}

// DepthFirst yields every node in pre-order, parents before children.
func DepthFirst(root Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		walk(root, yield)
	}
}

func walk(n Node, yield func(Node) bool) bool {
	if n == nil {
		return true
	}
	if !yield(n) {
		return false
	}
	for _, child := range n.Children() {
		if !walk(child, yield) {
			return false
		}
	}
	return true
}

// NodeCount counts every node of the tree, root included.
func NodeCount(root Node) int {
	count := 0
	for range DepthFirst(root) {
		count++
	}
	return count
}

// Depth is the number of edges on the longest root-to-leaf path.
func Depth(root Node) int {
	if root == nil {
		return 0
	}
	deepest := 0
	for _, child := range root.Children() {
		if d := Depth(child) + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}

// Equal reports structural equality: same shapes, descriptors and values.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *Const:
		y, ok := b.(*Const)
		return ok && x.Value == y.Value && x.Spec == y.Spec
	case *Call:
		y, ok := b.(*Call)
		if !ok || !sameDescriptor(x.Op, y.Op) || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

func sameDescriptor(a, b catalog.Descriptor) bool {
	if a.Name != b.Name || a.Returns != b.Returns || a.Tag != b.Tag || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if a.Args[i] != b.Args[i] {
			return false
		}
	}
	return true
}
