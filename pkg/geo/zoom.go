package geo

import (
	"fmt"
	"math"

	"github.com/matzehuels/vizlab/pkg/errors"
)

// Scale bounds applied to every zoom transform.
const (
	MinZoom = 1.0
	MaxZoom = 8.0
)

// Transform is an affine zoom transform: a point p is displayed at
// (p.x·K + X, p.y·K + Y).
type Transform struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity is the transform with no zoom or pan.
var Identity = Transform{K: 1}

// Apply maps a base-map point to the display.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

// Invert maps a display point back to base-map coordinates.
func (t Transform) Invert(x, y float64) (float64, float64) {
	return (x - t.X) / t.K, (y - t.Y) / t.K
}

// translate moves the transform by (x, y) in base-map units.
func (t Transform) translate(x, y float64) Transform {
	return Transform{K: t.K, X: t.X + t.K*x, Y: t.Y + t.K*y}
}

// String formats t as an SVG transform attribute value.
func (t Transform) String() string {
	return fmt.Sprintf("translate(%s,%s) scale(%s)", formatNum(t.X), formatNum(t.Y), formatZoom(t.K))
}

func formatZoom(k float64) string {
	return fmt.Sprintf("%g", math.Round(k*1e4)/1e4)
}

// Zoom holds the pan/zoom state of a width×height viewport. The scale is
// kept in [MinZoom, MaxZoom] and the visible area never leaves the viewport.
// Each method computes a complete new transform before storing it.
type Zoom struct {
	width, height float64
	t             Transform
}

// NewZoom returns an identity zoom for a width×height viewport.
func NewZoom(width, height float64) (*Zoom, error) {
	if err := errors.ValidateCanvas(width, height, 0); err != nil {
		return nil, err
	}
	return &Zoom{width: width, height: height, t: Identity}, nil
}

// Transform returns the current transform.
func (z *Zoom) Transform() Transform { return z.t }

// ScaleBy multiplies the scale by factor, keeping the display point (px, py)
// fixed.
func (z *Zoom) ScaleBy(factor, px, py float64) Transform {
	return z.ScaleTo(z.t.K*factor, px, py)
}

// ScaleTo sets the scale to k, keeping the display point (px, py) fixed.
func (z *Zoom) ScaleTo(k, px, py float64) Transform {
	if !finite(k) || !finite(px) || !finite(py) {
		return z.t
	}
	k = math.Max(MinZoom, math.Min(MaxZoom, k))
	bx, by := z.t.Invert(px, py)
	next := Transform{K: k, X: px - bx*k, Y: py - by*k}
	z.t = z.constrain(next)
	return z.t
}

// TranslateBy moves the view by (dx, dy) in base-map units.
func (z *Zoom) TranslateBy(dx, dy float64) Transform {
	if !finite(dx) || !finite(dy) {
		return z.t
	}
	z.t = z.constrain(z.t.translate(dx, dy))
	return z.t
}

// Pan moves the view by (dx, dy) display pixels, like a drag.
func (z *Zoom) Pan(dx, dy float64) Transform {
	return z.TranslateBy(dx/z.t.K, dy/z.t.K)
}

// Set replaces the transform, constrained to the viewport and scale extent.
func (z *Zoom) Set(t Transform) Transform {
	if !finite(t.K) || !finite(t.X) || !finite(t.Y) {
		return z.t
	}
	t.K = math.Max(MinZoom, math.Min(MaxZoom, t.K))
	z.t = z.constrain(t)
	return z.t
}

// Reset returns to the identity transform.
func (z *Zoom) Reset() Transform {
	z.t = Identity
	return z.t
}

// constrain shifts t so that the viewport, inverted through t, stays within
// the translate extent (the viewport itself). When the visible area is
// larger than the extent it is centered instead.
func (z *Zoom) constrain(t Transform) Transform {
	ix0, iy0 := t.Invert(0, 0)
	ix1, iy1 := t.Invert(z.width, z.height)
	dx0, dx1 := ix0, ix1-z.width
	dy0, dy1 := iy0, iy1-z.height
	return t.translate(constrainAxis(dx0, dx1), constrainAxis(dy0, dy1))
}

func constrainAxis(d0, d1 float64) float64 {
	if d1 > d0 {
		return (d0 + d1) / 2
	}
	if v := math.Min(0, d0); v != 0 {
		return v
	}
	return math.Max(0, d1)
}
