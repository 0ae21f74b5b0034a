package linkage

import (
	"bytes"

	"github.com/matzehuels/vizlab/pkg/render/styles"
	"github.com/matzehuels/vizlab/pkg/render/svg"
)

// idPrefix keeps element IDs distinct when several charts share a page.
const idPrefix = "tree-"

// SVGOption configures RenderSVG.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	style  styles.Style
	labels bool
}

// WithStyle sets the drawing style (default styles.Simple).
func WithStyle(s styles.Style) SVGOption { return func(r *svgRenderer) { r.style = s } }

// WithoutLabels omits node labels.
func WithoutLabels() SVGOption { return func(r *svgRenderer) { r.labels = false } }

// RenderSVG draws the scene: links first, then node markers, then labels for
// every node except the root. An empty scene renders an empty canvas.
func RenderSVG(s Scene, opts ...SVGOption) []byte {
	r := svgRenderer{style: styles.Simple{}, labels: true}
	for _, opt := range opts {
		opt(&r)
	}

	doc := svg.New(s.Width, s.Height, "viz tree")
	var defs bytes.Buffer
	r.style.RenderDefs(&defs)
	doc.Defs = defs.Bytes()
	if s.Empty() {
		return doc.Bytes()
	}

	links := doc.Group("links")
	for _, e := range s.Edges {
		id := idPrefix + "link-" + e.TargetID
		var buf bytes.Buffer
		r.style.RenderLink(&buf, styles.Link{
			ID:          id,
			Class:       "link",
			D:           e.Path,
			X1:          e.X1,
			Y1:          e.Y1,
			X2:          e.X2,
			Y2:          e.Y2,
			Stroke:      Color,
			StrokeWidth: 1,
		})
		links.Append(id, buf.Bytes())
	}

	nodes := doc.Group("nodes")
	for _, n := range s.Nodes {
		id := idPrefix + n.ID
		var buf bytes.Buffer
		r.style.RenderCircle(&buf, styles.Circle{
			ID:    id,
			Class: "node",
			CX:    n.X,
			CY:    n.Y,
			R:     NodeRadius,
			Fill:  Color,
		})
		nodes.Append(id, buf.Bytes())
	}

	if r.labels {
		labels := doc.Group("labels")
		for _, n := range s.Nodes {
			if n.IsRoot {
				continue
			}
			id := idPrefix + "label-" + n.ID
			var buf bytes.Buffer
			r.style.RenderText(&buf, styles.Text{
				ID:       id,
				Class:    "label",
				Label:    n.Label,
				X:        n.X,
				Y:        n.Y,
				DY:       LabelDY,
				FontSize: LabelFontSize,
				Anchor:   "middle",
			})
			labels.Append(id, buf.Bytes())
		}
	}
	return doc.Bytes()
}

