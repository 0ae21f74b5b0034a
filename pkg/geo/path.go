package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/simplify"
)

// DefaultPointRadius is the radius of Point and MultiPoint markers.
const DefaultPointRadius = 4

// PathGenerator converts geographic geometry to SVG path data.
type PathGenerator struct {
	Projection  Projection
	PointRadius float64

	// Tolerance, when positive, simplifies projected lines with
	// Douglas-Peucker at this many pixels.
	Tolerance float64

	// Clip, when set, clips projected lines and rings to a pixel box.
	Clip *orb.Bound
}

// NewPathGenerator returns a generator for p with the default point radius.
func NewPathGenerator(p Projection) *PathGenerator {
	return &PathGenerator{Projection: p, PointRadius: DefaultPointRadius}
}

// segment is a projected, unbroken run of points.
type segment struct {
	pts    orb.LineString
	closed bool
	pieces orb.MultiLineString // set instead of pts when clipping split the line
}

// Path returns the SVG path data for g, or "" when nothing projects.
func (pg *PathGenerator) Path(g orb.Geometry) string {
	var b strings.Builder
	pg.write(&b, g)
	return b.String()
}

func (pg *PathGenerator) write(b *strings.Builder, g orb.Geometry) {
	switch g := g.(type) {
	case nil:
	case orb.Point:
		pg.point(b, g)
	case orb.MultiPoint:
		for _, p := range g {
			pg.point(b, p)
		}
	case orb.LineString:
		pg.segments(b, pg.project(g, false))
	case orb.MultiLineString:
		for _, ls := range g {
			pg.segments(b, pg.project(ls, false))
		}
	case orb.Ring:
		pg.segments(b, pg.project(orb.LineString(g), true))
	case orb.Polygon:
		for _, r := range g {
			pg.segments(b, pg.project(orb.LineString(r), true))
		}
	case orb.MultiPolygon:
		for _, p := range g {
			pg.write(b, p)
		}
	case orb.Collection:
		for _, sub := range g {
			pg.write(b, sub)
		}
	case orb.Bound:
		pg.write(b, g.ToPolygon())
	}
}

// point writes a circle of PointRadius around the projected point.
func (pg *PathGenerator) point(b *strings.Builder, p orb.Point) {
	x, y, ok := pg.Projection.Project(p[0], p[1])
	if !ok {
		return
	}
	if pg.Clip != nil && !pg.Clip.Contains(orb.Point{x, y}) {
		return
	}
	r := pg.PointRadius
	b.WriteString("M" + formatNum(x) + "," + formatNum(y))
	b.WriteString("m0," + formatNum(r))
	b.WriteString("a" + formatNum(r) + "," + formatNum(r) + " 0 1,1 0," + formatNum(-2*r))
	b.WriteString("a" + formatNum(r) + "," + formatNum(r) + " 0 1,1 0," + formatNum(2*r))
	b.WriteString("z")
}

// project maps a line to pixel space. The line is broken wherever a point
// fails to project or consecutive points jump by more than half the
// projected world width, which happens when a line crosses the
// antimeridian. A ring that is never broken stays closed.
func (pg *PathGenerator) project(ls orb.LineString, ring bool) []segment {
	limit := math.Inf(1)
	if w, ok := pg.Projection.(interface{ Width() float64 }); ok && w.Width() > 0 {
		limit = w.Width() / 2
	}

	var segs []segment
	var cur orb.LineString
	broken := false
	flush := func() {
		if len(cur) > 1 {
			segs = append(segs, segment{pts: cur})
		}
		cur = nil
	}
	for _, p := range ls {
		x, y, ok := pg.Projection.Project(p[0], p[1])
		if !ok {
			broken = true
			flush()
			continue
		}
		if n := len(cur); n > 0 && math.Abs(x-cur[n-1][0]) > limit {
			broken = true
			flush()
		}
		cur = append(cur, orb.Point{x, y})
	}
	flush()

	if ring && !broken && len(segs) == 1 {
		segs[0].closed = true
	}
	for i := range segs {
		segs[i] = pg.refine(segs[i])
	}
	return segs
}

// refine applies simplification and clipping to one segment.
func (pg *PathGenerator) refine(s segment) segment {
	if pg.Tolerance > 0 && len(s.pts) > 2 {
		if simplified, ok := simplify.DouglasPeucker(pg.Tolerance).Simplify(s.pts.Clone()).(orb.LineString); ok {
			if !s.closed || len(simplified) >= 4 {
				s.pts = simplified
			}
		}
	}
	if pg.Clip == nil {
		return s
	}
	if s.closed {
		if r, ok := clip.Geometry(*pg.Clip, orb.Ring(s.pts)).(orb.Ring); ok {
			s.pts = orb.LineString(r)
		} else {
			s.pts = nil
		}
		return s
	}
	switch c := clip.Geometry(*pg.Clip, s.pts).(type) {
	case orb.LineString:
		s.pts = c
	case orb.MultiLineString:
		s.pts = nil
		s.pieces = c
	default:
		s.pts = nil
	}
	return s
}

func (pg *PathGenerator) segments(b *strings.Builder, segs []segment) {
	for _, s := range segs {
		if s.pieces != nil {
			for _, piece := range s.pieces {
				writeLine(b, piece, false)
			}
			continue
		}
		writeLine(b, s.pts, s.closed)
	}
}

func writeLine(b *strings.Builder, pts orb.LineString, closed bool) {
	if len(pts) < 2 {
		return
	}
	for i, p := range pts {
		if i == 0 {
			b.WriteByte('M')
		} else {
			b.WriteByte('L')
		}
		b.WriteString(formatNum(p[0]))
		b.WriteByte(',')
		b.WriteString(formatNum(p[1]))
	}
	if closed {
		b.WriteByte('Z')
	}
}

// formatNum prints v with at most two decimals and no trailing zeros.
func formatNum(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
