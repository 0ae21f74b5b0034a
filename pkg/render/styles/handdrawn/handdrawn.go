// Package handdrawn provides a sketchy, hand-drawn variant of the chart
// primitives.
//
// Circles become slightly irregular closed curves and links get jittered
// control points. All randomness is derived from the style seed and the
// element ID, so the same chart rendered twice is byte-identical, which
// keeps artifact caching effective:
//
//	style := handdrawn.New(42)
//	svg, _ := linkage.RenderSVG(scene, linkage.WithStyle(style))
package handdrawn

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/matzehuels/vizlab/pkg/render/styles"
)

const (
	fontFamily    = `'xkcd Script', 'Comic Sans MS', cursive`
	circleSegs    = 10
	radiusJitter  = 0.06
	linkJitter    = 0.08
	minCurveLen   = 30.0
	filterID      = "hd-rough"
	strokeDarken  = "#333"
	displaceScale = 1.5
)

// Style is the hand-drawn style.
type Style struct {
	seed uint64
}

// New returns a hand-drawn style with a fixed seed.
func New(seed uint64) *Style { return &Style{seed: seed} }

func (s *Style) Name() string { return "handdrawn" }

func (s *Style) RenderDefs(buf *bytes.Buffer) {
	fmt.Fprintf(buf, `  <defs>
    <filter id="%s">
      <feTurbulence type="fractalNoise" baseFrequency="0.03" numOctaves="2" seed="%d"/>
      <feDisplacementMap in="SourceGraphic" scale="%g"/>
    </filter>
  </defs>
`, filterID, s.seed%1000, displaceScale)
}

func (s *Style) RenderCircle(buf *bytes.Buffer, c styles.Circle) {
	d := wobbledCircle(c.CX, c.CY, c.R, s.seed, c.ID)
	stroke := c.Stroke
	if stroke != "" {
		stroke = strokeDarken
	}
	fmt.Fprintf(buf, `  <path d="%s"`, d)
	styles.Attrs(buf, c.ID, c.Class, c.Fill, stroke, c.StrokeWidth*1.3, c.Opacity)
	fmt.Fprintf(buf, ` stroke-linejoin="round" filter="url(#%s)"/>`+"\n", filterID)
}

func (s *Style) RenderLink(buf *bytes.Buffer, l styles.Link) {
	d := curvedLink(l.X1, l.Y1, l.X2, l.Y2, newRNG(s.seed, l.ID))
	fmt.Fprintf(buf, `  <path d="%s"`, d)
	styles.Attrs(buf, l.ID, l.Class, "none", l.Stroke, l.StrokeWidth*1.3, 0)
	buf.WriteString(` stroke-linecap="round"/>` + "\n")
}

func (s *Style) RenderText(buf *bytes.Buffer, t styles.Text) {
	styles.WriteText(buf, t, fontFamily)
}

func newRNG(seed uint64, id string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(id))
	return rand.New(rand.NewPCG(seed, h.Sum64()))
}

// wobbledCircle approximates a circle with quadratic segments whose radius
// drifts a few percent around r.
func wobbledCircle(cx, cy, r float64, seed uint64, id string) string {
	if r <= 0 {
		return fmt.Sprintf("M%.2f,%.2fZ", cx, cy)
	}
	rng := newRNG(seed, id)
	start := rng.Float64() * 2 * math.Pi

	type pt struct{ x, y float64 }
	pts := make([]pt, circleSegs)
	for i := range pts {
		a := start + float64(i)*2*math.Pi/circleSegs
		rr := r * (1 + (rng.Float64()*2-1)*radiusJitter)
		pts[i] = pt{cx + rr*math.Cos(a), cy + rr*math.Sin(a)}
	}

	mid := func(a, b pt) pt { return pt{(a.x + b.x) / 2, (a.y + b.y) / 2} }

	var sb strings.Builder
	m := mid(pts[circleSegs-1], pts[0])
	fmt.Fprintf(&sb, "M%.2f,%.2f", m.x, m.y)
	for i := range pts {
		next := mid(pts[i], pts[(i+1)%circleSegs])
		fmt.Fprintf(&sb, " Q%.2f,%.2f %.2f,%.2f", pts[i].x, pts[i].y, next.x, next.y)
	}
	sb.WriteString(" Z")
	return sb.String()
}

// curvedLink draws a horizontal cubic link with jittered control points.
// Short links are drawn as straight lines.
func curvedLink(x1, y1, x2, y2 float64, rng *rand.Rand) string {
	dx, dy := x2-x1, y2-y1
	length := math.Hypot(dx, dy)
	if length < minCurveLen {
		return fmt.Sprintf("M%.2f,%.2f L%.2f,%.2f", x1, y1, x2, y2)
	}
	j := func() float64 { return (rng.Float64()*2 - 1) * linkJitter * length }
	mx := (x1 + x2) / 2
	return fmt.Sprintf("M%.2f,%.2f C%.2f,%.2f %.2f,%.2f %.2f,%.2f",
		x1, y1, mx+j(), y1+j()/4, mx+j(), y2+j()/4, x2, y2)
}
