// Package tree computes a tidy node-link layout for a hierarchy.
//
// The algorithm is the linear-time variant of the Reingold–Tilford tidy
// tree by Buchheim, Jünger and Leipert, with Walker's apportion step.
// Results match d3.tree().size([width, height]): nodes at the same depth
// share a Y coordinate, siblings keep their child order along X, and sibling
// subtrees never overlap.
package tree

import (
	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/hierarchy"
)

// Separation returns the desired gap between two adjacent nodes, in units
// that are later scaled to fit the width.
type Separation func(a, b *hierarchy.Node) float64

// DefaultSeparation places siblings one unit apart and cousins two.
func DefaultSeparation(a, b *hierarchy.Node) float64 {
	if a.Parent == b.Parent {
		return 1
	}
	return 2
}

// Option configures Layout.
type Option func(*config)

type config struct {
	separation Separation
}

// WithSeparation overrides DefaultSeparation.
func WithSeparation(fn Separation) Option {
	return func(c *config) {
		if fn != nil {
			c.separation = fn
		}
	}
}

// Layout assigns X in [0, width] and Y in [0, height] to root and all its
// descendants. Depth maps linearly onto Y; a lone root sits at (width/2, 0).
func Layout(root *hierarchy.Node, width, height float64, opts ...Option) error {
	if root == nil {
		return errors.New(errors.ErrCodeEmptyHierarchy, "tree layout: nil root")
	}
	if err := errors.ValidateCanvas(width, height, 0); err != nil {
		return err
	}

	cfg := config{separation: DefaultSeparation}
	for _, opt := range opts {
		opt(&cfg)
	}
	sep := cfg.separation

	t := wrap(root)
	t.eachAfter(func(v *wnode) { firstWalk(v, sep) })
	t.parent.m = -t.z
	t.eachBefore(secondWalk)

	left, right, bottom := root, root, root
	root.EachBefore(func(n *hierarchy.Node) {
		if n.X < left.X {
			left = n
		}
		if n.X > right.X {
			right = n
		}
		if n.Depth > bottom.Depth {
			bottom = n
		}
	})

	s := 1.0
	if left != right {
		s = sep(left, right) / 2
	}
	tx := s - left.X
	kx := width / (right.X + s + tx)
	ky := height
	if d := bottom.Depth - root.Depth; d > 0 {
		ky = height / float64(d)
	}

	root.EachBefore(func(n *hierarchy.Node) {
		n.X = (n.X + tx) * kx
		n.Y = float64(n.Depth-root.Depth) * ky
	})
	return nil
}
