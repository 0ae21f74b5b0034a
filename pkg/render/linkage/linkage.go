// Package linkage renders a hierarchy as a left-to-right node-link tree.
//
// [Build] runs the tidy-tree layout on a square area and converts the result
// into a [Scene]: one visual node per hierarchy node and one horizontal
// cubic link per parent-child pair. The layout's axes are swapped so depth
// grows along X. A scene renders to SVG ([RenderSVG]), to Graphviz DOT
// ([ToDOT]) or to an interactive ECharts page ([RenderHTML]).
//
// Build writes layout coordinates into the hierarchy it is given, so callers
// that also run other layouts must pass a [hierarchy.Node.Copy].
package linkage

import (
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/hierarchy"
	"github.com/matzehuels/vizlab/pkg/layout/tree"
)

// Node marker and label geometry.
const (
	NodeRadius    = 5.0
	LabelDY       = -10.0
	LabelFontSize = 10.0
	Color         = "#555"
)

// VisualNode is a positioned node marker.
type VisualNode struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Depth  int     `json:"depth"`
	Value  float64 `json:"value"`
	IsRoot bool    `json:"is_root,omitempty"`
	IsLeaf bool    `json:"is_leaf,omitempty"`
}

// VisualEdge is a link from a parent to a child.
type VisualEdge struct {
	SourceID string  `json:"source"`
	TargetID string  `json:"target"`
	Path     string  `json:"path"`
	X1       float64 `json:"x1"`
	Y1       float64 `json:"y1"`
	X2       float64 `json:"x2"`
	Y2       float64 `json:"y2"`
}

// Scene is the renderable output of Build.
type Scene struct {
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Nodes  []VisualNode `json:"nodes"`
	Edges  []VisualEdge `json:"edges"`
}

// Empty reports whether the scene has nothing to draw.
func (s Scene) Empty() bool { return len(s.Nodes) == 0 }

// Unlabeled returns a copy of s with every node label cleared.
func (s Scene) Unlabeled() Scene {
	s.Nodes = slices.Clone(s.Nodes)
	for i := range s.Nodes {
		s.Nodes[i].Label = ""
	}
	return s
}

// Build lays out root in a (size-2·padding)² area offset by padding and
// returns the scene. An empty hierarchy yields an empty scene and no error.
func Build(root *hierarchy.Node, size, padding float64) (Scene, error) {
	if err := errors.ValidateCanvas(size, size, padding); err != nil {
		return Scene{}, err
	}
	scene := Scene{Width: size, Height: size}
	if hierarchy.IsEmpty(root) {
		return scene, nil
	}

	inner := size - 2*padding
	if err := tree.Layout(root, inner, inner); err != nil {
		return Scene{}, err
	}

	// Swap axes: breadth runs down the page, depth runs to the right.
	pos := func(n *hierarchy.Node) (float64, float64) {
		return n.Y + padding, n.X + padding
	}

	for _, n := range root.Descendants() {
		x, y := pos(n)
		scene.Nodes = append(scene.Nodes, VisualNode{
			ID:     nodeID(n),
			Label:  n.Data.Name,
			X:      x,
			Y:      y,
			Depth:  n.Depth - root.Depth,
			Value:  n.Value,
			IsRoot: n == root,
			IsLeaf: n.IsLeaf(),
		})
	}
	for _, l := range root.Links() {
		sx, sy := pos(l.Source)
		tx, ty := pos(l.Target)
		scene.Edges = append(scene.Edges, VisualEdge{
			SourceID: nodeID(l.Source),
			TargetID: nodeID(l.Target),
			Path:     LinkHorizontal(sx, sy, tx, ty),
			X1:       sx, Y1: sy, X2: tx, Y2: ty,
		})
	}
	return scene, nil
}

// nodeID is the node's index path from the root. Names are not used because
// distinct names can collide once joined or made XML-safe.
func nodeID(n *hierarchy.Node) string { return n.Key() }

// LinkHorizontal returns a cubic Bézier from (sx, sy) to (tx, ty) whose
// tangents are horizontal at both ends.
func LinkHorizontal(sx, sy, tx, ty float64) string {
	mx := (sx + tx) / 2
	var b strings.Builder
	b.WriteString("M")
	b.WriteString(num(sx) + "," + num(sy))
	b.WriteString("C")
	b.WriteString(num(mx) + "," + num(sy) + ",")
	b.WriteString(num(mx) + "," + num(ty) + ",")
	b.WriteString(num(tx) + "," + num(ty))
	return b.String()
}

// num formats v with at most two decimals and no trailing zeros.
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
