// Package hierarchy builds the rooted value tree consumed by the tree and
// pack layouts.
//
// A hierarchy is built once per dataset from a nested mapping (usually an
// [aggregate.Nested]), summed bottom-up and sorted so that children appear in
// non-increasing value order. Layout algorithms write their coordinates into
// the X, Y and R fields in place, so every layout must run on its own
// [Node.Copy]:
//
//	root, _ := hierarchy.FromNested("streams", nested)
//	treeRoot := root.Copy()
//	packRoot := root.Copy()
package hierarchy

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/vizlab/pkg/aggregate"
	"github.com/matzehuels/vizlab/pkg/errors"
)

// MaxDepth bounds the nesting accepted by [Build].
const MaxDepth = 32

// Datum is the label/value pair a node wraps. For leaves Value is the input
// value; for internal nodes it is zero.
type Datum struct {
	Name  string
	Value float64
}

// Node is one vertex of a hierarchy. Parent is a back reference and is never
// serialized. The zero value is a valid single leaf.
type Node struct {
	Data     Datum
	Value    float64 // Data.Value plus the values of all descendants
	Depth    int     // 0 at the root
	Height   int     // 0 at leaves
	Parent   *Node
	Children []*Node

	// Layout output. Tree layouts set X and Y; pack layouts also set R.
	X, Y, R float64
}

// Tree is a bounded nested mapping accepted by [Build]: either a [Leaf] or a
// [Map] of named subtrees.
type Tree interface{ tree() }

// Leaf is a terminal value.
type Leaf float64

// Map holds named subtrees. Keys are visited in sorted order.
type Map map[string]Tree

func (Leaf) tree() {}
func (Map) tree()  {}

// FromNested builds, sums and sorts the three-level hierarchy
// root → genre → subgenre.
func FromNested(name string, n aggregate.Nested) (*Node, error) {
	m := make(Map, len(n))
	for genre, subs := range n {
		sm := make(Map, len(subs))
		for subgenre, v := range subs {
			sm[subgenre] = Leaf(v)
		}
		m[genre] = sm
	}
	return Build(name, m)
}

// Build converts t into a summed and sorted hierarchy rooted at a node named
// name. Leaf values must be finite and non-negative.
func Build(name string, t Tree) (*Node, error) {
	if t == nil {
		return nil, errors.New(errors.ErrCodeEmptyHierarchy, "nil tree")
	}
	root, err := build(name, t, nil, 0)
	if err != nil {
		return nil, err
	}
	root.Sum()
	root.SortByValueDesc()
	return root, nil
}

func build(name string, t Tree, parent *Node, depth int) (*Node, error) {
	if depth > MaxDepth {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nesting deeper than %d levels", MaxDepth)
	}
	n := &Node{Data: Datum{Name: name}, Depth: depth, Parent: parent}

	switch v := t.(type) {
	case Leaf:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "%q: value %v must be finite and non-negative", name, f)
		}
		n.Data.Value = f
	case Map:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		n.Children = make([]*Node, 0, len(keys))
		for _, k := range keys {
			child, err := build(k, v[k], n, depth+1)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
			n.Height = max(n.Height, child.Height+1)
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "%q: unsupported tree type %T", name, t)
	}
	return n, nil
}

// Sum recomputes Value for n and every descendant, bottom-up.
func (n *Node) Sum() *Node {
	n.EachAfter(func(m *Node) {
		v := m.Data.Value
		for _, c := range m.Children {
			v += c.Value
		}
		m.Value = v
	})
	return n
}

// SortByValueDesc orders every node's children by descending Value. Ties
// keep their current order.
func (n *Node) SortByValueDesc() *Node {
	n.EachBefore(func(m *Node) {
		slices.SortStableFunc(m.Children, func(a, b *Node) int {
			return cmp.Compare(b.Value, a.Value)
		})
	})
	return n
}

// Copy returns a deep copy of the subtree rooted at n. The copy's root has
// no parent and keeps n's depths; no pointer is shared with the original.
func (n *Node) Copy() *Node {
	if n == nil {
		return nil
	}
	return copyNode(n, nil)
}

func copyNode(n, parent *Node) *Node {
	c := *n
	c.Parent = parent
	c.Children = nil
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = copyNode(child, &c)
		}
	}
	return &c
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// IsEmpty reports whether the hierarchy has nothing to draw: a nil root or a
// root without children.
func IsEmpty(root *Node) bool {
	return root == nil || len(root.Children) == 0
}
