package geo

import (
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/matzehuels/vizlab/pkg/errors"
)

// Projection maps a longitude/latitude pair in degrees to pixel
// coordinates. ok is false for input outside the projectable domain.
type Projection interface {
	Project(lon, lat float64) (x, y float64, ok bool)
}

// ProjectionFactory creates a fresh, unfitted projection.
type ProjectionFactory func() *Projector

// rawFunc projects λ, φ in radians to unscaled planar coordinates with y
// pointing north.
type rawFunc func(lambda, phi float64) (x, y float64)

// Projector is a [Projection] built from a raw projection plus the scale and
// translation set by [Fit]. Output y grows downward, as in SVG.
type Projector struct {
	name   string
	raw    rawFunc
	maxLat float64 // clamp latitudes to ±maxLat when > 0
	scale  float64
	tx, ty float64
}

// Name returns the registered projection name.
func (p *Projector) Name() string { return p.name }

// Scale returns the current scale factor.
func (p *Projector) Scale() float64 { return p.scale }

// Translate returns the pixel position of the projection origin.
func (p *Projector) Translate() (x, y float64) { return p.tx, p.ty }

// SetScale sets the scale factor.
func (p *Projector) SetScale(k float64) *Projector { p.scale = k; return p }

// SetTranslate sets the pixel position of the projection origin.
func (p *Projector) SetTranslate(x, y float64) *Projector { p.tx, p.ty = x, y; return p }

// Project implements [Projection]. Longitudes wrap into [-180, 180];
// latitudes beyond the poles or non-finite input are rejected.
func (p *Projector) Project(lon, lat float64) (float64, float64, bool) {
	x, y, ok := p.projectRaw(lon, lat)
	if !ok {
		return 0, 0, false
	}
	return p.tx + p.scale*x, p.ty - p.scale*y, true
}

func (p *Projector) projectRaw(lon, lat float64) (float64, float64, bool) {
	if !finite(lon) || !finite(lat) || math.Abs(lat) > 90 {
		return 0, 0, false
	}
	if p.maxLat > 0 {
		lat = math.Max(-p.maxLat, math.Min(p.maxLat, lat))
	}
	lon = wrapLon(lon)
	x, y := p.raw(lon*math.Pi/180, lat*math.Pi/180)
	if !finite(x) || !finite(y) {
		return 0, 0, false
	}
	return x, y, true
}

// Width returns the projected distance between the -180° and 180°
// meridians along the equator.
func (p *Projector) Width() float64 {
	x0, _ := p.raw(-math.Pi, 0)
	x1, _ := p.raw(math.Pi, 0)
	return p.scale * math.Abs(x1-x0)
}

func wrapLon(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// Registered projection names.
const (
	NaturalEarth1   = "naturalEarth1"
	EqualEarth      = "equalEarth"
	Mercator        = "mercator"
	Equirectangular = "equirectangular"
)

// DefaultProjection is used when no projection is named.
const DefaultProjection = NaturalEarth1

// MercatorMaxLat is where Mercator latitudes are clamped.
const MercatorMaxLat = 85

var projections = map[string]ProjectionFactory{
	NaturalEarth1: func() *Projector {
		return &Projector{name: NaturalEarth1, raw: naturalEarth1Raw, scale: 175.295, tx: 480, ty: 250}
	},
	EqualEarth: func() *Projector {
		return &Projector{name: EqualEarth, raw: equalEarthRaw, scale: 177.158, tx: 480, ty: 250}
	},
	Mercator: func() *Projector {
		return &Projector{name: Mercator, raw: mercatorRaw, maxLat: MercatorMaxLat, scale: 961 / (2 * math.Pi), tx: 480, ty: 250}
	},
	Equirectangular: func() *Projector {
		return &Projector{name: Equirectangular, raw: equirectangularRaw, scale: 152.63, tx: 480, ty: 250}
	},
}

// Lookup returns the factory registered under name. An empty name selects
// [DefaultProjection].
func Lookup(name string) (ProjectionFactory, error) {
	if name == "" {
		name = DefaultProjection
	}
	f, ok := projections[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidProjection, "unknown projection %q (have %v)", name, ProjectionNames())
	}
	return f, nil
}

// ProjectionNames lists the registered projections in sorted order.
func ProjectionNames() []string {
	names := make([]string, 0, len(projections))
	for n := range projections {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func naturalEarth1Raw(lambda, phi float64) (float64, float64) {
	phi2 := phi * phi
	phi4 := phi2 * phi2
	return lambda * (0.8707 - 0.131979*phi2 + phi4*(-0.013791+phi4*(0.003971*phi2-0.001529*phi4))),
		phi * (1.007226 + phi2*(0.015085+phi4*(-0.044475+0.028874*phi2-0.005916*phi4)))
}

const (
	eeA1 = 1.340264
	eeA2 = -0.081106
	eeA3 = 0.000893
	eeA4 = 0.003796
)

var eeM = math.Sqrt(3) / 2

func equalEarthRaw(lambda, phi float64) (float64, float64) {
	l := math.Asin(eeM * math.Sin(phi))
	l2 := l * l
	l6 := l2 * l2 * l2
	return lambda * math.Cos(l) / (eeM * (eeA1 + 3*eeA2*l2 + l6*(7*eeA3+9*eeA4*l2))),
		l * (eeA1 + eeA2*l2 + l6*(eeA3+eeA4*l2))
}

// mercatorRaw goes through orb's spherical Web Mercator and rescales from
// meters to radians of a unit sphere.
func mercatorRaw(lambda, phi float64) (float64, float64) {
	m := project.WGS84.ToMercator(orb.Point{lambda * 180 / math.Pi, phi * 180 / math.Pi})
	return m[0] / orb.EarthRadius, m[1] / orb.EarthRadius
}

func equirectangularRaw(lambda, phi float64) (float64, float64) { return lambda, phi }
