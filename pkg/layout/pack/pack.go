// Package pack computes a circle-packing layout for a hierarchy.
//
// Leaves get a radius of sqrt(value), so circle area is proportional to
// value. Siblings are packed with the front-chain algorithm of Wang et al.
// ([PackSiblings]) and each parent becomes the smallest circle enclosing its
// children ([Enclose]) plus padding. The result is then scaled to fit the
// canvas, matching d3.pack().size([w, h]).padding(p).
package pack

import (
	"math"

	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/hierarchy"
)

// DefaultPadding is the gap between sibling circles and their parent.
const DefaultPadding = 5

// Layout assigns X, Y and R to root and every descendant. The root is
// centered in the width×height canvas with radius min(width, height)/2.
//
// A hierarchy whose values are all zero collapses to the canvas center with
// zero radii instead of producing NaN coordinates.
func Layout(root *hierarchy.Node, width, height, padding float64) error {
	if root == nil {
		return errors.New(errors.ErrCodeEmptyHierarchy, "pack layout: nil root")
	}
	if err := errors.ValidateCanvas(width, height, 0); err != nil {
		return err
	}
	if padding < 0 || math.IsNaN(padding) || math.IsInf(padding, 0) {
		return errors.New(errors.ErrCodeInvalidCanvas, "pack padding must be finite and non-negative (got %v)", padding)
	}

	rnd := newLCG()
	root.X, root.Y = width/2, height/2

	root.EachBefore(func(n *hierarchy.Node) {
		if n.IsLeaf() {
			n.R = math.Sqrt(math.Max(0, n.Value))
		}
	})
	root.EachAfter(packChildren(padding*0.5, rnd))

	if root.R == 0 {
		root.EachBefore(func(n *hierarchy.Node) {
			n.X, n.Y, n.R = width/2, height/2, 0
		})
		return nil
	}

	side := math.Min(width, height)
	root.EachAfter(packChildren(padding*root.R/side, rnd))
	root.EachBefore(translate(root, side/(2*root.R)))
	return nil
}

// packChildren packs each node's children with pad added to their radii,
// then sets the node radius to the enclosing radius plus pad.
func packChildren(pad float64, rnd *lcg) func(*hierarchy.Node) {
	return func(n *hierarchy.Node) {
		if n.IsLeaf() {
			return
		}
		cs := make([]*Circle, len(n.Children))
		for i, c := range n.Children {
			cs[i] = &Circle{R: c.R + pad}
		}
		e := packSiblingsRandom(cs, rnd)
		for i, c := range n.Children {
			c.X, c.Y = cs[i].X, cs[i].Y
		}
		n.R = e + pad
	}
}

// translate scales radii by k and turns child offsets into absolute
// positions. It runs top-down so parents are already absolute.
func translate(root *hierarchy.Node, k float64) func(*hierarchy.Node) {
	return func(n *hierarchy.Node) {
		n.R *= k
		if n != root {
			n.X = n.Parent.X + k*n.X
			n.Y = n.Parent.Y + k*n.Y
		}
	}
}
