// Package mapview is a zoomable map with a weighted point overlay.
//
// A Map is created empty, receives boundary features once with BaseMap and
// point data any number of times with RenderPoints:
//
//	m := mapview.New(1000, 800).
//		BaseMap(countries, factory).
//		RenderPoints(points.Default())
//	if err := m.Err(); err != nil { ... }
//	m.Gesture(mapview.ZoomAt(2, 500, 400))
//	m.RenderSVG(w)
//
// Methods are chainable. The first failure is kept and returned by Err;
// later calls become no-ops, so a broken base map never renders.
package mapview

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/geo"
	"github.com/matzehuels/vizlab/pkg/render/styles"
	"github.com/matzehuels/vizlab/pkg/render/svg"
)

// Phase is the lifecycle state of a Map.
type Phase int

const (
	Uninitialized Phase = iota
	BaseMapRendered
	PointsRendered
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case BaseMapRendered:
		return "base-map-rendered"
	case PointsRendered:
		return "points-rendered"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Region colors.
const (
	RegionFill   = "#d9d9d9"
	RegionStroke = "#ffffff"
	PointFill    = "#c0392b"
)

// Region is one drawn boundary feature.
type Region struct {
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
	D    string `json:"d"`
}

// Marker is one projected point.
type Marker struct {
	Key     string    `json:"key"`
	Point   geo.Point `json:"point"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	R       float64   `json:"r"`
	Opacity float64   `json:"opacity"`
}

// Option configures a Map.
type Option func(*Map)

// WithStyle sets the style used for point markers (default styles.Simple).
func WithStyle(s styles.Style) Option { return func(m *Map) { m.style = s } }

// WithSimplify simplifies region outlines at the given pixel tolerance.
func WithSimplify(tolerance float64) Option { return func(m *Map) { m.tolerance = tolerance } }

// Map is a map handle. It is not safe for concurrent use; gestures are
// applied one at a time.
type Map struct {
	width, height float64
	style         styles.Style
	tolerance     float64

	phase      Phase
	err        error
	features   *geojson.FeatureCollection
	projection *geo.Projector
	zoom       *geo.Zoom

	regions  []Region
	markers  []Marker
	points   []geo.Point
	skipped  int
	lastJoin svg.Diff

	doc         *svg.Document
	regionGroup *svg.Group
	pointGroup  *svg.Group
}

// New returns an empty map of the given pixel size. An invalid size is
// recorded as the map's error.
func New(width, height float64, opts ...Option) *Map {
	m := &Map{width: width, height: height, style: styles.Simple{}}
	for _, opt := range opts {
		opt(m)
	}
	m.doc = svg.New(width, height, "viz map")
	m.regionGroup = m.doc.Group("map")
	m.pointGroup = m.doc.Group("points")

	z, err := geo.NewZoom(width, height)
	if err != nil {
		m.err = err
		return m
	}
	m.zoom = z
	return m
}

// BaseMap fits a projection made by factory to fc and draws one path per
// feature. Calling it again replaces the base map and reprojects any points.
func (m *Map) BaseMap(fc *geojson.FeatureCollection, factory geo.ProjectionFactory) *Map {
	if m.err != nil {
		return m
	}
	if factory == nil {
		m.err = errors.New(errors.ErrCodeInvalidProjection, "no projection factory")
		return m
	}
	if err := geo.ValidateFeatures(fc); err != nil {
		m.err = err
		return m
	}

	proj := factory()
	if err := geo.Fit(proj, m.width, m.height, fc); err != nil {
		m.err = err
		return m
	}
	pg := geo.NewPathGenerator(proj)
	pg.Tolerance = m.tolerance

	regions := make([]Region, 0, len(fc.Features))
	seen := make(map[string]bool, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		d := pg.Path(f.Geometry)
		if d == "" {
			continue
		}
		key := uniqueKey(seen, geo.FeatureKey(f, i))
		name, _ := f.Properties["name"].(string)
		regions = append(regions, Region{Key: key, Name: name, D: d})
	}
	if len(regions) == 0 {
		m.err = errors.New(errors.ErrCodeInvalidBoundary, "no feature produced a drawable path")
		return m
	}

	m.features = fc
	m.projection = proj
	m.regions = regions
	keys := make([]string, len(regions))
	for i, r := range regions {
		keys[i] = r.Key
	}
	m.regionGroup.Join(keys, func(_ string, i int) []byte { return regionMarkup(regions[i]) })

	if m.phase == PointsRendered {
		m.renderPoints(m.points)
		return m
	}
	m.phase = BaseMapRendered
	return m
}

func regionMarkup(r Region) []byte {
	var buf bytes.Buffer
	buf.WriteString(`  <path`)
	styles.Attrs(&buf, "region-"+svg.SafeID(r.Key), "regions", RegionFill, RegionStroke, 0.5, 0)
	fmt.Fprintf(&buf, ` d="%s"`, r.D)
	if r.Name != "" {
		fmt.Fprintf(&buf, `><title>%s</title></path>`+"\n", styles.EscapeXML(r.Name))
	} else {
		buf.WriteString("/>\n")
	}
	return buf.Bytes()
}

// RenderPoints projects pts and reconciles the marker layer with them.
// Points that are invalid or do not project are skipped and counted. It
// may be called repeatedly; the base map is not touched.
func (m *Map) RenderPoints(pts []geo.Point) *Map {
	if m.err != nil {
		return m
	}
	if m.phase == Uninitialized {
		m.err = errors.New(errors.ErrCodeInvalidState, "RenderPoints called before BaseMap")
		return m
	}
	m.renderPoints(pts)
	m.phase = PointsRendered
	return m
}

func (m *Map) renderPoints(pts []geo.Point) {
	m.points = pts
	m.skipped = 0

	type projected struct {
		p    geo.Point
		x, y float64
	}
	valid := make([]projected, 0, len(pts))
	wMax := 0.0
	for _, p := range pts {
		if !p.Valid() {
			m.skipped++
			continue
		}
		x, y, ok := m.projection.Project(p.Lon, p.Lat)
		if !ok {
			m.skipped++
			continue
		}
		valid = append(valid, projected{p: p, x: x, y: y})
		wMax = math.Max(wMax, p.Weight)
	}

	markers := make([]Marker, len(valid))
	keys := make([]string, len(valid))
	seen := make(map[string]bool, len(valid))
	for i, v := range valid {
		key := uniqueKey(seen, pointKey(v.p))
		r, op := EncodeWeight(v.p.Weight, wMax)
		markers[i] = Marker{Key: key, Point: v.p, X: v.x, Y: v.y, R: r, Opacity: op}
		keys[i] = key
	}
	m.markers = markers
	m.lastJoin = m.pointGroup.Join(keys, func(_ string, i int) []byte {
		var buf bytes.Buffer
		mk := markers[i]
		m.style.RenderCircle(&buf, styles.Circle{
			ID:          "point-" + svg.SafeID(mk.Key),
			Class:       "point",
			CX:          mk.X,
			CY:          mk.Y,
			R:           mk.R,
			Fill:        PointFill,
			Stroke:      RegionStroke,
			StrokeWidth: 0.5,
			Opacity:     mk.Opacity,
		})
		return buf.Bytes()
	})
}

// uniqueKey returns key, or key-N for the first N not yet in seen, and
// marks the result as taken.
func uniqueKey(seen map[string]bool, key string) string {
	k := key
	for n := 1; seen[k]; n++ {
		k = fmt.Sprintf("%s-%d", key, n)
	}
	seen[k] = true
	return k
}

func pointKey(p geo.Point) string {
	return fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lon)
}

// Weight encoding bounds.
const (
	MinRadius  = 2.0
	MaxRadius  = 12.0
	MinOpacity = 0.35
	MaxOpacity = 0.85
)

// EncodeWeight maps a weight to a marker radius and opacity. Marker area
// grows linearly with weight relative to wMax.
func EncodeWeight(w, wMax float64) (r, opacity float64) {
	if wMax <= 0 || w <= 0 {
		return MinRadius, MinOpacity
	}
	f := math.Min(1, w/wMax)
	return MinRadius + (MaxRadius-MinRadius)*math.Sqrt(f), MinOpacity + (MaxOpacity-MinOpacity)*f
}

// Err returns the first error recorded by the map, if any.
func (m *Map) Err() error { return m.err }

// Phase returns the lifecycle phase.
func (m *Map) Phase() Phase { return m.phase }

// Zoom returns the current zoom transform.
func (m *Map) Zoom() geo.Transform {
	if m.zoom == nil {
		return geo.Identity
	}
	return m.zoom.Transform()
}

// Regions returns the drawn regions in feature order.
func (m *Map) Regions() []Region { return m.regions }

// Markers returns the drawn point markers.
func (m *Map) Markers() []Marker { return m.markers }

// Skipped returns how many points the last RenderPoints dropped.
func (m *Map) Skipped() int { return m.skipped }

// LastJoin returns the marker changes made by the last RenderPoints.
func (m *Map) LastJoin() svg.Diff { return m.lastJoin }

// Features returns the base map features, or nil before BaseMap.
func (m *Map) Features() *geojson.FeatureCollection { return m.features }

// Project maps lon/lat through the fitted projection, before zoom.
func (m *Map) Project(lon, lat float64) (x, y float64, ok bool) {
	if m.projection == nil {
		return 0, 0, false
	}
	return m.projection.Project(lon, lat)
}

// Size returns the map's pixel size.
func (m *Map) Size() (width, height float64) { return m.width, m.height }

// Bytes returns the SVG document, or nil if the map has an error.
func (m *Map) Bytes() []byte {
	if m.err != nil {
		return nil
	}
	var defs bytes.Buffer
	m.style.RenderDefs(&defs)
	m.doc.Defs = defs.Bytes()
	return m.doc.Bytes()
}

// RenderSVG writes the map as <svg class="viz map"> with a "map" and a
// "points" group sharing the current zoom transform.
func (m *Map) RenderSVG(w io.Writer) error {
	if m.err != nil {
		return m.err
	}
	_, err := w.Write(m.Bytes())
	return err
}
