package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/vizlab/pkg/errors"
)

// Fit sets p's scale and translation so that every feature of fc fits a
// width×height canvas, centered. Coordinates that do not project are
// skipped; if nothing projects, or the projected features have no extent,
// Fit fails with ErrCodeInvalidBoundary and leaves p unchanged.
func Fit(p *Projector, width, height float64, fc *geojson.FeatureCollection) error {
	if err := errors.ValidateCanvas(width, height, 0); err != nil {
		return err
	}
	b, ok := rawBounds(p, fc)
	if !ok {
		return errors.New(errors.ErrCodeInvalidBoundary, "no projectable coordinates")
	}
	dx, dy := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]
	if dx <= 0 && dy <= 0 {
		return errors.New(errors.ErrCodeInvalidBoundary, "features have empty projected bounds")
	}

	// A zero extent on one axis divides to +Inf and loses the min.
	k := math.Min(width/dx, height/dy)
	p.scale = k
	p.tx = (width - k*(b.Max[0]+b.Min[0])) / 2
	p.ty = (height - k*(b.Max[1]+b.Min[1])) / 2
	return nil
}

// rawBounds returns the bounds of fc under p at unit scale, with y pointing
// down as in the fitted output.
func rawBounds(p *Projector, fc *geojson.FeatureCollection) (orb.Bound, bool) {
	b := orb.Bound{
		Min: orb.Point{math.Inf(1), math.Inf(1)},
		Max: orb.Point{math.Inf(-1), math.Inf(-1)},
	}
	found := false
	if fc == nil {
		return b, false
	}
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		eachPoint(f.Geometry, func(pt orb.Point) {
			x, y, ok := p.projectRaw(pt[0], pt[1])
			if !ok {
				return
			}
			b = b.Extend(orb.Point{x, -y})
			found = true
		})
	}
	return b, found
}
