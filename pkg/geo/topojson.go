// Package geo turns boundary data into projected SVG geometry.
//
// Base maps arrive as TopoJSON ([DecodeTopology]) or GeoJSON
// ([DecodeFeatureCollection]) and are held as orb geometry in a
// [geojson.FeatureCollection]. A [Projection] created by a registered
// [ProjectionFactory] is fitted to the canvas with [Fit], and a
// [PathGenerator] writes one SVG path per feature. [Zoom] tracks the
// pan/zoom transform shared by every map layer.
package geo

import (
	"encoding/json"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/vizlab/pkg/errors"
)

// DefaultObject is the TopoJSON object holding country boundaries.
const DefaultObject = "countries"

// Topology is a decoded TopoJSON document with its arcs already
// dequantized and delta-decoded into absolute positions.
type Topology struct {
	BBox    []float64
	Objects map[string]*topoGeometry
	arcs    [][]orb.Point
	tf      *transform
}

type transform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

func (t *transform) apply(p []float64) orb.Point {
	if t == nil {
		return orb.Point{p[0], p[1]}
	}
	return orb.Point{p[0]*t.Scale[0] + t.Translate[0], p[1]*t.Scale[1] + t.Translate[1]}
}

type topoGeometry struct {
	Type        string          `json:"type"`
	ID          any             `json:"id,omitempty"`
	Properties  map[string]any  `json:"properties,omitempty"`
	Arcs        json.RawMessage `json:"arcs,omitempty"`
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
	Geometries  []*topoGeometry `json:"geometries,omitempty"`
}

type rawTopology struct {
	Type      string                   `json:"type"`
	BBox      []float64                `json:"bbox,omitempty"`
	Transform *transform               `json:"transform,omitempty"`
	Objects   map[string]*topoGeometry `json:"objects"`
	Arcs      [][][]float64            `json:"arcs"`
}

// DecodeTopology reads a TopoJSON document. Quantized topologies (those with
// a transform) have their delta-encoded arcs decoded here.
func DecodeTopology(r io.Reader) (*Topology, error) {
	var raw rawTopology
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTopology, err, "decode topology")
	}
	if raw.Type != "Topology" {
		return nil, errors.New(errors.ErrCodeInvalidTopology, "expected type Topology, got %q", raw.Type)
	}

	t := &Topology{BBox: raw.BBox, Objects: raw.Objects, tf: raw.Transform}
	t.arcs = make([][]orb.Point, len(raw.Arcs))
	for i, arc := range raw.Arcs {
		pts := make([]orb.Point, 0, len(arc))
		var x, y float64
		for j, pos := range arc {
			if len(pos) < 2 {
				return nil, errors.New(errors.ErrCodeInvalidTopology, "arc %d position %d has %d coordinates", i, j, len(pos))
			}
			if raw.Transform != nil {
				x += pos[0]
				y += pos[1]
				pts = append(pts, raw.Transform.apply([]float64{x, y}))
				continue
			}
			pts = append(pts, orb.Point{pos[0], pos[1]})
		}
		t.arcs[i] = pts
	}
	return t, nil
}

// ObjectNames returns the names of the topology's top-level objects.
func (t *Topology) ObjectNames() []string {
	names := make([]string, 0, len(t.Objects))
	for name := range t.Objects {
		names = append(names, name)
	}
	return names
}

// Feature converts the named object into a feature collection. A
// GeometryCollection yields one feature per member; any other object yields
// a single feature.
func (t *Topology) Feature(name string) (*geojson.FeatureCollection, error) {
	obj, ok := t.Objects[name]
	if !ok || obj == nil {
		return nil, errors.New(errors.ErrCodeInvalidBoundary, "topology has no object %q", name)
	}

	fc := geojson.NewFeatureCollection()
	members := []*topoGeometry{obj}
	if obj.Type == "GeometryCollection" {
		members = obj.Geometries
	}
	for _, m := range members {
		g, err := t.geometry(m)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidBoundary, err, "object %q", name)
		}
		f := geojson.NewFeature(g)
		f.ID = m.ID
		for k, v := range m.Properties {
			f.Properties[k] = v
		}
		fc.Append(f)
	}
	if len(fc.Features) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidBoundary, "object %q has no features", name)
	}
	return fc, nil
}

// geometry converts one TopoJSON geometry. A null geometry type yields a
// nil orb.Geometry, which renders as nothing.
func (t *Topology) geometry(g *topoGeometry) (orb.Geometry, error) {
	switch g.Type {
	case "", "null":
		return nil, nil
	case "Point":
		var pos []float64
		if err := json.Unmarshal(g.Coordinates, &pos); err != nil || len(pos) < 2 {
			return nil, errors.New(errors.ErrCodeInvalidBoundary, "malformed Point coordinates")
		}
		return t.tf.apply(pos), nil
	case "MultiPoint":
		var pos [][]float64
		if err := json.Unmarshal(g.Coordinates, &pos); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidBoundary, err, "malformed MultiPoint coordinates")
		}
		mp := make(orb.MultiPoint, 0, len(pos))
		for _, p := range pos {
			if len(p) < 2 {
				return nil, errors.New(errors.ErrCodeInvalidBoundary, "malformed MultiPoint position")
			}
			mp = append(mp, t.tf.apply(p))
		}
		return mp, nil
	case "LineString":
		var arcs []int
		if err := json.Unmarshal(g.Arcs, &arcs); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidBoundary, err, "malformed LineString arcs")
		}
		pts, err := t.line(arcs)
		return orb.LineString(pts), err
	case "MultiLineString":
		var arcs [][]int
		if err := json.Unmarshal(g.Arcs, &arcs); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidBoundary, err, "malformed MultiLineString arcs")
		}
		mls := make(orb.MultiLineString, 0, len(arcs))
		for _, a := range arcs {
			pts, err := t.line(a)
			if err != nil {
				return nil, err
			}
			mls = append(mls, orb.LineString(pts))
		}
		return mls, nil
	case "Polygon":
		var arcs [][]int
		if err := json.Unmarshal(g.Arcs, &arcs); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidBoundary, err, "malformed Polygon arcs")
		}
		return t.polygon(arcs)
	case "MultiPolygon":
		var arcs [][][]int
		if err := json.Unmarshal(g.Arcs, &arcs); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidBoundary, err, "malformed MultiPolygon arcs")
		}
		mp := make(orb.MultiPolygon, 0, len(arcs))
		for _, p := range arcs {
			poly, err := t.polygon(p)
			if err != nil {
				return nil, err
			}
			mp = append(mp, poly)
		}
		return mp, nil
	case "GeometryCollection":
		c := make(orb.Collection, 0, len(g.Geometries))
		for _, m := range g.Geometries {
			sub, err := t.geometry(m)
			if err != nil {
				return nil, err
			}
			if sub != nil {
				c = append(c, sub)
			}
		}
		return c, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidBoundary, "unsupported geometry type %q", g.Type)
	}
}

func (t *Topology) polygon(rings [][]int) (orb.Polygon, error) {
	poly := make(orb.Polygon, 0, len(rings))
	for _, r := range rings {
		pts, err := t.line(r)
		if err != nil {
			return nil, err
		}
		poly = append(poly, orb.Ring(pts))
	}
	return poly, nil
}

// line stitches arcs together. A negative index ~i refers to arc i
// reversed. Consecutive arcs share an endpoint, which is emitted once.
func (t *Topology) line(arcs []int) ([]orb.Point, error) {
	var pts []orb.Point
	for _, idx := range arcs {
		i, reversed := idx, false
		if idx < 0 {
			i, reversed = ^idx, true
		}
		if i >= len(t.arcs) {
			return nil, errors.New(errors.ErrCodeInvalidBoundary, "arc index %d out of range (%d arcs)", idx, len(t.arcs))
		}
		arc := t.arcs[i]
		if len(pts) > 0 {
			pts = pts[:len(pts)-1]
		}
		if reversed {
			for k := len(arc) - 1; k >= 0; k-- {
				pts = append(pts, arc[k])
			}
			continue
		}
		pts = append(pts, arc...)
	}
	return pts, nil
}

// DecodeFeatureCollection reads a GeoJSON FeatureCollection as an
// alternative base map source.
func DecodeFeatureCollection(r io.Reader) (*geojson.FeatureCollection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTopology, err, "read geojson")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTopology, err, "decode geojson")
	}
	if len(fc.Features) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidBoundary, "feature collection is empty")
	}
	return fc, nil
}

// ValidateFeatures checks that fc can be drawn: it must hold at least one
// feature with geometry, and every coordinate must be a finite lon/lat.
func ValidateFeatures(fc *geojson.FeatureCollection) error {
	if fc == nil || len(fc.Features) == 0 {
		return errors.New(errors.ErrCodeInvalidBoundary, "no boundary features")
	}
	drawable := 0
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		drawable++
		var bad error
		eachPoint(f.Geometry, func(p orb.Point) {
			if bad != nil {
				return
			}
			if !finite(p[0]) || !finite(p[1]) || math.Abs(p[1]) > 90 {
				bad = errors.New(errors.ErrCodeInvalidBoundary, "feature %d has invalid coordinate %v", i, p)
			}
		})
		if bad != nil {
			return bad
		}
	}
	if drawable == 0 {
		return errors.New(errors.ErrCodeInvalidBoundary, "no feature has geometry")
	}
	return nil
}

// FeatureKey returns a stable key for f: its id, its "name" property, or
// its index.
func FeatureKey(f *geojson.Feature, i int) string {
	switch id := f.ID.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return formatNum(id)
	}
	if name, ok := f.Properties["name"].(string); ok && name != "" {
		return name
	}
	return "feature-" + formatNum(float64(i))
}

func eachPoint(g orb.Geometry, fn func(orb.Point)) {
	switch g := g.(type) {
	case orb.Point:
		fn(g)
	case orb.MultiPoint:
		for _, p := range g {
			fn(p)
		}
	case orb.LineString:
		for _, p := range g {
			fn(p)
		}
	case orb.MultiLineString:
		for _, ls := range g {
			eachPoint(ls, fn)
		}
	case orb.Ring:
		for _, p := range g {
			fn(p)
		}
	case orb.Polygon:
		for _, r := range g {
			eachPoint(r, fn)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			eachPoint(p, fn)
		}
	case orb.Collection:
		for _, sub := range g {
			eachPoint(sub, fn)
		}
	case orb.Bound:
		eachPoint(g.ToPolygon(), fn)
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
