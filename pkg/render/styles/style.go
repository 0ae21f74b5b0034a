// Package styles defines how chart primitives are drawn as SVG.
//
// Renderers describe what to draw with [Circle], [Link] and [Text] values
// and hand them to a [Style]. [Simple] draws flat strokes;
// the handdrawn subpackage draws the same primitives with a sketchy wobble.
package styles

import "bytes"

// Style writes SVG markup for chart primitives.
type Style interface {
	// Name identifies the style in flags and cache keys.
	Name() string
	// RenderDefs writes SVG <defs> content (filters, patterns).
	RenderDefs(buf *bytes.Buffer)
	RenderCircle(buf *bytes.Buffer, c Circle)
	RenderLink(buf *bytes.Buffer, l Link)
	RenderText(buf *bytes.Buffer, t Text)
}

// Circle is a node marker or a packed circle.
type Circle struct {
	ID          string
	Class       string
	CX, CY, R   float64
	Fill        string // "none" for outlines
	Stroke      string // empty for no stroke
	StrokeWidth float64
	Opacity     float64 // 0 means fully opaque
}

// Link is a curve between two nodes. D is the exact path; styles that
// redraw the curve use the endpoints instead.
type Link struct {
	ID             string
	Class          string
	D              string
	X1, Y1, X2, Y2 float64
	Stroke         string
	StrokeWidth    float64
}

// Text is a node label.
type Text struct {
	ID       string
	Class    string
	Label    string
	X, Y     float64
	DY       float64
	FontSize float64
	Anchor   string // start, middle or end; empty means start
}
