package geo

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// planar projects lon/lat unchanged, so expected paths read like the input.
type planar struct{}

func (planar) Project(lon, lat float64) (float64, float64, bool) {
	if lat > 90 {
		return 0, 0, false
	}
	return lon, lat, true
}

func TestPathGenerator_Path(t *testing.T) {
	pg := NewPathGenerator(planar{})

	tests := []struct {
		name string
		geom orb.Geometry
		want string
	}{
		{"nil", nil, ""},
		{"point", orb.Point{5, 5}, "M5,5m0,4a4,4 0 1,1 0,-8a4,4 0 1,1 0,8z"},
		{"line", orb.LineString{{0, 0}, {10, 0.5}}, "M0,0L10,0.5"},
		{"polygon", orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 0}}}, "M0,0L10,0L10,10L0,0Z"},
		{"multipolygon", orb.MultiPolygon{
			{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
			{{{5, 5}, {6, 5}, {6, 6}, {5, 5}}},
		}, "M0,0L1,0L1,1L0,0ZM5,5L6,5L6,6L5,5Z"},
		{"unprojectable point", orb.Point{0, 95}, ""},
		{"line broken at unprojectable point", orb.LineString{{0, 0}, {1, 1}, {2, 95}, {3, 3}, {4, 4}}, "M0,0L1,1M3,3L4,4"},
		{"collection", orb.Collection{orb.LineString{{0, 0}, {1, 1}}, orb.Point{2, 2}}, "M0,0L1,1M2,2m0,4a4,4 0 1,1 0,-8a4,4 0 1,1 0,8z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pg.Path(tt.geom); got != tt.want {
				t.Errorf("Path() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPathGenerator_Antimeridian(t *testing.T) {
	eq, _ := Lookup(Equirectangular)
	p := eq()
	world := geojson.NewFeatureCollection()
	world.Append(geojson.NewFeature(orb.MultiPoint{{-180, -90}, {180, 90}}))
	if err := Fit(p, 1000, 500, world); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	pg := NewPathGenerator(p)

	// A ring crossing the antimeridian, as in an unsplit Chukotka polygon.
	ring := orb.Polygon{{{170, 60}, {-170, 60}, {-170, 70}, {170, 70}, {170, 60}}}
	d := pg.Path(ring)
	if d == "" {
		t.Fatal("expected path output")
	}
	if strings.Contains(d, "Z") {
		t.Errorf("broken ring should not be closed: %q", d)
	}
	for _, seg := range strings.Split(d, "M")[1:] {
		prev := math.NaN()
		for _, pt := range strings.Split(seg, "L") {
			x, err := strconv.ParseFloat(strings.Split(pt, ",")[0], 64)
			if err != nil {
				t.Fatalf("bad path %q: %v", d, err)
			}
			if math.Abs(x-prev) > 500 {
				t.Errorf("segment %q jumps across the map", seg)
			}
			prev = x
		}
	}
}

func TestPathGenerator_Simplify(t *testing.T) {
	pg := NewPathGenerator(planar{})
	pg.Tolerance = 0.5
	line := orb.LineString{{0, 0}, {1, 0.1}, {2, -0.1}, {3, 0.1}, {10, 0}}
	if got := pg.Path(line); got != "M0,0L10,0" {
		t.Errorf("simplified path = %q, want M0,0L10,0", got)
	}
	ring := orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 0}}}
	if got := pg.Path(ring); got != "M0,0L10,0L10,10L0,0Z" {
		t.Errorf("simplification must not collapse a triangle: %q", got)
	}
}

func TestPathGenerator_Clip(t *testing.T) {
	pg := NewPathGenerator(planar{})
	pg.Clip = &orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}

	if got := pg.Path(orb.LineString{{-10, 5}, {20, 5}}); got != "M0,5L10,5" {
		t.Errorf("clipped line = %q, want M0,5L10,5", got)
	}
	if got := pg.Path(orb.Point{50, 50}); got != "" {
		t.Errorf("point outside the clip box should be dropped, got %q", got)
	}
	if got := pg.Path(orb.Polygon{{{20, 20}, {30, 20}, {30, 30}, {20, 20}}}); got != "" {
		t.Errorf("ring outside the clip box should be dropped, got %q", got)
	}
}

func TestFormatNum(t *testing.T) {
	tests := map[float64]string{
		0:        "0",
		-0.001:   "0",
		1.5:      "1.5",
		2.126:    "2.13",
		-370.004: "-370",
		100:      "100",
	}
	for v, want := range tests {
		if got := formatNum(v); got != want {
			t.Errorf("formatNum(%v) = %q, want %q", v, got, want)
		}
	}
}
