// Package packing renders a hierarchy as nested circles.
//
// Every node becomes an unfilled, stroked circle whose area is proportional
// to its value. Labels distinguish leaves from groups: a leaf label sits at
// the circle's center, a group label sits just inside the top edge. The root
// is never labeled.
//
// Build writes layout coordinates into the hierarchy it is given; pass a
// [hierarchy.Node.Copy] when the same hierarchy feeds other layouts.
package packing

import (
	"bytes"

	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/hierarchy"
	"github.com/matzehuels/vizlab/pkg/layout/pack"
	"github.com/matzehuels/vizlab/pkg/render/styles"
	"github.com/matzehuels/vizlab/pkg/render/svg"
)

// Circle and label geometry.
const (
	Stroke        = "#555"
	LeafLabelDY   = 3.0
	GroupLabelTop = 15.0 // distance of a group label below the circle top
	LabelFontSize = 10.0
)

// VisualCircle is one packed node.
type VisualCircle struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	R      float64 `json:"r"`
	Depth  int     `json:"depth"`
	Value  float64 `json:"value"`
	IsRoot bool    `json:"is_root,omitempty"`
	IsLeaf bool    `json:"is_leaf,omitempty"`
}

// LabelDY returns the vertical label offset for c.
func (c VisualCircle) LabelDY() float64 {
	if c.IsLeaf {
		return LeafLabelDY
	}
	return -c.R + GroupLabelTop
}

// Scene is the renderable output of Build. Circles are in breadth-first
// order so parents are drawn beneath their children.
type Scene struct {
	Width   float64        `json:"width"`
	Height  float64        `json:"height"`
	Circles []VisualCircle `json:"circles"`
}

// Empty reports whether the scene has nothing to draw.
func (s Scene) Empty() bool { return len(s.Circles) == 0 }

// Build packs root into a (size-2·padding)² area offset by padding, with
// circlePadding between siblings. An empty hierarchy yields an empty scene.
func Build(root *hierarchy.Node, size, padding, circlePadding float64) (Scene, error) {
	if err := errors.ValidateCanvas(size, size, padding); err != nil {
		return Scene{}, err
	}
	scene := Scene{Width: size, Height: size}
	if hierarchy.IsEmpty(root) {
		return scene, nil
	}

	inner := size - 2*padding
	if err := pack.Layout(root, inner, inner, circlePadding); err != nil {
		return Scene{}, err
	}

	for _, n := range root.Descendants() {
		scene.Circles = append(scene.Circles, VisualCircle{
			ID:     n.Key(),
			Label:  n.Data.Name,
			X:      n.X + padding,
			Y:      n.Y + padding,
			R:      n.R,
			Depth:  n.Depth - root.Depth,
			Value:  n.Value,
			IsRoot: n == root,
			IsLeaf: n.IsLeaf(),
		})
	}
	return scene, nil
}

// idPrefix keeps element IDs distinct when several charts share a page.
const idPrefix = "pack-"

// SVGOption configures RenderSVG.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	style    styles.Style
	truncate bool
}

// WithStyle sets the drawing style (default styles.Simple).
func WithStyle(s styles.Style) SVGOption { return func(r *svgRenderer) { r.style = s } }

// WithTruncatedLabels shortens leaf labels that would overflow their circle.
func WithTruncatedLabels() SVGOption { return func(r *svgRenderer) { r.truncate = true } }

// RenderSVG draws the scene's circles and labels.
func RenderSVG(s Scene, opts ...SVGOption) []byte {
	r := svgRenderer{style: styles.Simple{}}
	for _, opt := range opts {
		opt(&r)
	}

	doc := svg.New(s.Width, s.Height, "viz pack")
	var defs bytes.Buffer
	r.style.RenderDefs(&defs)
	doc.Defs = defs.Bytes()
	if s.Empty() {
		return doc.Bytes()
	}

	circles := doc.Group("circles")
	labels := doc.Group("labels")
	for _, c := range s.Circles {
		id := idPrefix + c.ID
		var buf bytes.Buffer
		r.style.RenderCircle(&buf, styles.Circle{
			ID:          id,
			Class:       "node",
			CX:          c.X,
			CY:          c.Y,
			R:           c.R,
			Fill:        "none",
			Stroke:      Stroke,
			StrokeWidth: 1,
		})
		circles.Append(id, buf.Bytes())

		if c.IsRoot {
			continue
		}
		label := c.Label
		if r.truncate && c.IsLeaf {
			label = styles.TruncateLabel(label, 2*c.R, LabelFontSize)
		}
		var lbuf bytes.Buffer
		r.style.RenderText(&lbuf, styles.Text{
			ID:       id + "-label",
			Class:    "label",
			Label:    label,
			X:        c.X,
			Y:        c.Y,
			DY:       c.LabelDY(),
			FontSize: LabelFontSize,
			Anchor:   "middle",
		})
		labels.Append(id+"-label", lbuf.Bytes())
	}
	return doc.Bytes()
}
