package mapview

import (
	"github.com/matzehuels/vizlab/pkg/geo"
)

// GestureKind identifies a zoom or pan event.
type GestureKind int

const (
	GestureZoom GestureKind = iota
	GesturePan
	GestureSet
	GestureReset
)

// Gesture is a single zoom or pan event.
type Gesture struct {
	Kind GestureKind

	// Zoom: scale by Factor around display point (X, Y).
	Factor, X, Y float64

	// Pan: move by (DX, DY) display pixels.
	DX, DY float64

	// Set: jump to Transform.
	Transform geo.Transform
}

// ZoomAt returns a gesture scaling by factor around (x, y).
func ZoomAt(factor, x, y float64) Gesture {
	return Gesture{Kind: GestureZoom, Factor: factor, X: x, Y: y}
}

// PanBy returns a gesture moving the view by (dx, dy) pixels.
func PanBy(dx, dy float64) Gesture { return Gesture{Kind: GesturePan, DX: dx, DY: dy} }

// SetTransform returns a gesture jumping to t, subject to the zoom limits.
func SetTransform(t geo.Transform) Gesture { return Gesture{Kind: GestureSet, Transform: t} }

// Reset returns a gesture restoring the identity transform.
func Reset() Gesture { return Gesture{Kind: GestureReset} }

// Gesture applies g and writes the resulting transform to both the region
// and the point layer, so they stay registered.
func (m *Map) Gesture(g Gesture) *Map {
	if m.err != nil || m.zoom == nil {
		return m
	}
	var t geo.Transform
	switch g.Kind {
	case GestureZoom:
		t = m.zoom.ScaleBy(g.Factor, g.X, g.Y)
	case GesturePan:
		t = m.zoom.Pan(g.DX, g.DY)
	case GestureSet:
		t = m.zoom.Set(g.Transform)
	case GestureReset:
		t = m.zoom.Reset()
	default:
		return m
	}
	attr := t.String()
	m.regionGroup.Transform = attr
	m.pointGroup.Transform = attr
	return m
}
