package hierarchy

import (
	"slices"
	"strconv"
	"strings"
)

// Link is a parent-child pair.
type Link struct {
	Source, Target *Node
}

// EachBefore calls fn for n and its descendants in pre-order.
func (n *Node) EachBefore(fn func(*Node)) {
	stack := []*Node{n}
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(m)
		for i := len(m.Children) - 1; i >= 0; i-- {
			stack = append(stack, m.Children[i])
		}
	}
}

// EachAfter calls fn for n and its descendants in post-order, so every
// child is visited before its parent.
func (n *Node) EachAfter(fn func(*Node)) {
	for _, c := range n.Children {
		c.EachAfter(fn)
	}
	fn(n)
}

// Descendants returns n and all its descendants in breadth-first order.
func (n *Node) Descendants() []*Node {
	out := []*Node{n}
	for i := 0; i < len(out); i++ {
		out = append(out, out[i].Children...)
	}
	return out
}

// Leaves returns the leaf nodes under n in pre-order.
func (n *Node) Leaves() []*Node {
	var out []*Node
	n.EachBefore(func(m *Node) {
		if m.IsLeaf() {
			out = append(out, m)
		}
	})
	return out
}

// Links returns one link per non-root descendant, in breadth-first order.
func (n *Node) Links() []Link {
	var out []Link
	for _, m := range n.Descendants() {
		for _, c := range m.Children {
			out = append(out, Link{Source: m, Target: c})
		}
	}
	return out
}

// Ancestors returns n followed by its parent chain up to the root.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for m := n; m != nil; m = m.Parent {
		out = append(out, m)
	}
	return out
}

// Path returns the names from the root down to n joined by sep.
func (n *Node) Path(sep string) string {
	anc := n.Ancestors()
	names := make([]string, len(anc))
	for i, a := range anc {
		names[len(anc)-1-i] = a.Data.Name
	}
	return strings.Join(names, sep)
}

// Key returns the child indices from the root down to n joined by "-",
// starting with "0" for the root. Unlike Path it is unique within one
// hierarchy whatever the node names are, and it is a valid XML id suffix.
func (n *Node) Key() string {
	anc := n.Ancestors()
	idx := make([]string, len(anc))
	for i, a := range anc {
		pos := 0
		if a.Parent != nil {
			pos = slices.Index(a.Parent.Children, a)
		}
		idx[len(anc)-1-i] = strconv.Itoa(pos)
	}
	return strings.Join(idx, "-")
}
