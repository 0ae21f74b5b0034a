package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/vizlab/pkg/cache"
	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/geo"
	"github.com/matzehuels/vizlab/pkg/mapview"
)

const streamsCSV = `genre,subgenre,streams,top
Pop,Dance,100,1
Pop,Dance,200,0
Pop,Synth,50,0
Rock,Indie,80,1
`

const squaresGeoJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","id":"A","properties":{"name":"Alpha"},"geometry":{"type":"Polygon","coordinates":[[[-10,-10],[10,-10],[10,10],[-10,10],[-10,-10]]]}},
{"type":"Feature","id":"B","properties":{"name":"Beta"},"geometry":{"type":"Polygon","coordinates":[[[20,20],[40,20],[40,40],[20,40],[20,20]]]}}
]}`

const pointsCSV = "lat,lon,weight\n0,0,10\n30,30,5\n95,0,1\n"

func writeFixtures(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	files := map[string]string{
		"streams.csv":  streamsCSV,
		"world.json":   squaresGeoJSON,
		"points.csv":   pointsCSV,
		"broken.json":  `{"type":"Topology","arcs":`,
		"headonly.csv": "genre,subgenre,streams\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestOptions_Defaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Size != 800 || o.Padding != 30 || o.CirclePadding != 5 {
		t.Errorf("hierarchy sizes = %v/%v/%v", o.Size, o.Padding, o.CirclePadding)
	}
	if o.MapWidth != 1000 || o.MapHeight != 800 {
		t.Errorf("map size = %vx%v", o.MapWidth, o.MapHeight)
	}
	if o.Object != geo.DefaultObject || o.Projection != geo.DefaultProjection {
		t.Errorf("map defaults = %q %q", o.Object, o.Projection)
	}
	if !slices.Equal(o.Formats, []string{"svg"}) || !slices.Equal(o.Charts, Charts) {
		t.Errorf("formats=%v charts=%v", o.Formats, o.Charts)
	}
	if o.Logger == nil {
		t.Error("logger not defaulted")
	}

	zero := Options{ZeroPadding: true}
	_ = zero.ValidateAndSetDefaults()
	if zero.Padding != 0 {
		t.Errorf("ZeroPadding: padding = %v", zero.Padding)
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		forMap bool
		code errors.Code
	}{
		{"no records", Options{}, false, errors.ErrCodeInvalidInput},
		{"bad style", Options{Records: "x.csv", Style: "crayon"}, false, errors.ErrCodeInvalidStyle},
		{"bad policy", Options{Records: "x.csv", Policy: "guess"}, false, errors.ErrCodeInvalidPolicy},
		{"dot for pack", Options{Records: "x.csv", Charts: []string{"pack"}, Formats: []string{"dot"}}, false, errors.ErrCodeInvalidFormat},
		{"padding too big", Options{Records: "x.csv", Size: 50, Padding: 30}, false, errors.ErrCodeInvalidCanvas},
		{"unknown chart", Options{Records: "x.csv", Charts: []string{"pie"}}, false, errors.ErrCodeInvalidInput},
		{"no topology", Options{}, true, errors.ErrCodeInvalidInput},
		{"bad projection", Options{Topology: "w.json", Projection: "dymaxion"}, true, errors.ErrCodeInvalidProjection},
		{"geoip without ips", Options{Topology: "w.json", GeoIPDB: "city.mmdb"}, true, errors.ErrCodeInvalidInput},
		{"html for map", Options{Topology: "w.json", Formats: []string{"html"}}, true, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.forMap {
				err = tt.opts.ValidateForMap()
			} else {
				err = tt.opts.ValidateForHierarchy()
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestOptions_ForChart(t *testing.T) {
	o := Options{Formats: []string{"svg", "dot", "html"}}
	_ = o.ValidateAndSetDefaults()

	pack, dropped := o.ForChart(ChartPack)
	if !slices.Equal(pack.Formats, []string{"svg"}) || !slices.Equal(dropped, []string{"dot", "html"}) {
		t.Errorf("pack formats=%v dropped=%v", pack.Formats, dropped)
	}
	tree, dropped := o.ForChart(ChartTree)
	if len(dropped) != 0 || len(tree.Formats) != 3 {
		t.Errorf("tree formats=%v dropped=%v", tree.Formats, dropped)
	}

	o.Formats = []string{"dot"}
	m, _ := o.ForChart(ChartMap)
	if !slices.Equal(m.Formats, []string{"svg"}) {
		t.Errorf("map falls back to svg, got %v", m.Formats)
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	o := Options{}
	_ = o.ValidateAndSetDefaults()
	k := NewRunner(nil, nil, nil).Keyer

	base := k.ArtifactKey("h", o.ArtifactKeyOpts(ChartMap, "svg"))
	o.Zoom = &geo.Transform{K: 2}
	if k.ArtifactKey("h", o.ArtifactKeyOpts(ChartMap, "svg")) == base {
		t.Error("zoom not part of the map artifact key")
	}
	if o.ArtifactKeyOpts(ChartTree, "svg").Zoom != "" {
		t.Error("zoom leaked into the tree key")
	}
	if o.ArtifactKeyOpts(ChartTree, "svg").Seed != 0 {
		t.Error("seed should only matter for the handdrawn style")
	}

	tree := k.ArtifactKey("h", o.ArtifactKeyOpts(ChartTree, "svg"))
	o.Engine = EngineGraphviz
	if k.ArtifactKey("h", o.ArtifactKeyOpts(ChartTree, "svg")) == tree {
		t.Error("engine not part of the tree artifact key")
	}
	o.NoLabels, o.TruncateLabels = true, true
	if o.ArtifactKeyOpts(ChartPack, "svg").NoLabels || o.ArtifactKeyOpts(ChartPack, "svg").Engine != "" {
		t.Error("tree options leaked into the pack key")
	}
	if !o.ArtifactKeyOpts(ChartPack, "svg").TruncateLabels {
		t.Error("truncate-labels not part of the pack key")
	}
}

func TestOptions_Engine(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"", EngineNative, false},
		{"GraphViz", EngineGraphviz, false},
		{"dot", "", true},
	}
	for _, tt := range tests {
		o := Options{Engine: tt.in}
		err := o.ValidateAndSetDefaults()
		if (err != nil) != tt.wantErr {
			t.Errorf("Engine %q: err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && o.Engine != tt.want {
			t.Errorf("Engine %q = %q, want %q", tt.in, o.Engine, tt.want)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Engine %q: error code = %v", tt.in, err)
		}
	}
}

func TestRunHierarchy(t *testing.T) {
	dir := writeFixtures(t)
	r := NewRunner(nil, nil, nil)

	res, err := r.RunHierarchy(context.Background(), Options{
		Records: filepath.Join(dir, "streams.csv"),
		Formats: []string{"svg", "json"},
		Charts:  []string{ChartTree, ChartPack},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Root.Value != 280 {
		t.Errorf("root value = %v, want 280 (sum of subgenre means)", res.Root.Value)
	}
	if got := res.Nested["Pop"]["Dance"]; got != 150 {
		t.Errorf("Pop/Dance mean = %v", got)
	}
	for _, c := range []string{ChartTree, ChartPack} {
		cr := res.Charts[c]
		if cr == nil {
			t.Fatalf("%s missing", c)
		}
		if !strings.Contains(string(cr.Artifacts["svg"]), "<svg") {
			t.Errorf("%s svg = %.60q", c, cr.Artifacts["svg"])
		}
		if !json.Valid(cr.Artifacts["json"]) {
			t.Errorf("%s json invalid", c)
		}
	}
	if res.Root.X != 0 || res.Root.R != 0 {
		t.Error("layouts must run on copies of the hierarchy")
	}
}

func TestRunHierarchy_GraphvizEngine(t *testing.T) {
	dir := writeFixtures(t)
	r := NewRunner(nil, nil, nil)
	opts := Options{
		Records: filepath.Join(dir, "streams.csv"),
		Charts:  []string{ChartTree, ChartPack},
		Formats: []string{"svg", "dot"},
		Engine:  EngineGraphviz,
	}

	res, err := r.RunHierarchy(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	tree := string(res.Charts[ChartTree].Artifacts["svg"])
	if !strings.Contains(tree, `class="graph"`) || strings.Contains(tree, `class="link"`) {
		t.Errorf("tree svg not rendered by graphviz: %.200q", tree)
	}
	if !strings.Contains(string(res.Charts[ChartTree].Artifacts["dot"]), `[xlabel="Dance"]`) {
		t.Error("dot output should carry labels")
	}
	if pack := string(res.Charts[ChartPack].Artifacts["svg"]); !strings.Contains(pack, `class="viz pack"`) {
		t.Error("the pack chart ignores the engine")
	}

	opts.Engine, opts.NoLabels = EngineNative, true
	res, err = r.RunHierarchy(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if tree := string(res.Charts[ChartTree].Artifacts["svg"]); strings.Contains(tree, "<text") {
		t.Error("NoLabels tree svg has labels")
	}
	if strings.Contains(string(res.Charts[ChartTree].Artifacts["dot"]), "xlabel") {
		t.Error("NoLabels dot output has labels")
	}
}

func TestRunHierarchy_TreeExtras(t *testing.T) {
	dir := writeFixtures(t)
	res, err := NewRunner(nil, nil, nil).RunHierarchy(context.Background(), Options{
		Records: filepath.Join(dir, "streams.csv"),
		Charts:  []string{ChartTree},
		Formats: []string{"dot", "html"},
	})
	if err != nil {
		t.Fatal(err)
	}
	arts := res.Charts[ChartTree].Artifacts
	if !strings.HasPrefix(string(arts["dot"]), "digraph") {
		t.Errorf("dot = %.40q", arts["dot"])
	}
	if !strings.Contains(string(arts["html"]), "echarts") {
		t.Error("html output is not an ECharts page")
	}
}

func TestRunHierarchy_EmptyInputRendersEmptyCanvas(t *testing.T) {
	dir := writeFixtures(t)
	res, err := NewRunner(nil, nil, nil).RunHierarchy(context.Background(), Options{
		Records: filepath.Join(dir, "headonly.csv"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if svg := string(res.Charts[ChartPack].Artifacts["svg"]); strings.Contains(svg, "<circle") {
		t.Error("empty input should draw no circles")
	}
}

func TestRunHierarchy_Errors(t *testing.T) {
	dir := writeFixtures(t)
	_, err := NewRunner(nil, nil, nil).RunHierarchy(context.Background(), Options{
		Records: filepath.Join(dir, "missing.csv"),
	})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v", err)
	}
	if !strings.HasPrefix(err.Error(), "load records:") {
		t.Errorf("err not stage-prefixed: %v", err)
	}
}

func TestRunHierarchy_Cache(t *testing.T) {
	dir := writeFixtures(t)
	c, err := cache.NewFileCache(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil)
	opts := Options{Records: filepath.Join(dir, "streams.csv"), Charts: []string{ChartPack}}

	first, err := r.RunHierarchy(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.RunHierarchy(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Charts[ChartPack].CacheHit || !second.Charts[ChartPack].CacheHit {
		t.Errorf("cache hits = %v, %v; want false, true",
			first.Charts[ChartPack].CacheHit, second.Charts[ChartPack].CacheHit)
	}
	if string(first.Charts[ChartPack].Artifacts["svg"]) != string(second.Charts[ChartPack].Artifacts["svg"]) {
		t.Error("cached artifact differs")
	}

	opts.Style = "handdrawn"
	third, _ := r.RunHierarchy(context.Background(), opts)
	if third.Charts[ChartPack].CacheHit {
		t.Error("style change should miss the cache")
	}
}

func TestRunMap(t *testing.T) {
	dir := writeFixtures(t)
	res, err := NewRunner(nil, nil, nil).RunMap(context.Background(), Options{
		Topology: filepath.Join(dir, "world.json"),
		Points:   filepath.Join(dir, "points.csv"),
		Formats:  []string{"svg", "json"},
		Zoom:     &geo.Transform{K: 2, X: -500, Y: -400},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(res.Map.Regions()); n != 2 {
		t.Errorf("regions = %d", n)
	}
	if n := len(res.Map.Markers()); n != 2 || res.Map.Skipped() != 1 {
		t.Errorf("markers = %d skipped = %d", n, res.Map.Skipped())
	}
	svg := string(res.Chart.Artifacts["svg"])
	if strings.Count(svg, "translate(-500,-400) scale(2)") != 2 {
		t.Error("zoom transform not applied to both layers")
	}

	var fc struct {
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(res.Chart.Artifacts["json"], &fc); err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 4 {
		t.Errorf("geojson features = %d, want 2 regions + 2 points", len(fc.Features))
	}
	for _, f := range fc.Features {
		if f.Properties["kind"] != "point" {
			continue
		}
		r, ok := f.Properties["r"].(float64)
		if !ok || r < mapview.MinRadius || r > mapview.MaxRadius {
			t.Errorf("marker r = %v", f.Properties["r"])
		}
		if _, ok := f.Properties["opacity"].(float64); !ok {
			t.Errorf("marker lacks opacity: %v", f.Properties)
		}
	}
}

func TestRunMap_DefaultPoints(t *testing.T) {
	dir := writeFixtures(t)
	res, err := NewRunner(nil, nil, nil).RunMap(context.Background(), Options{
		Topology:   filepath.Join(dir, "world.json"),
		Projection: geo.Mercator,
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(res.Points); n != 3 {
		t.Errorf("points = %d, want the 3 demo points", n)
	}
}

func TestRunAll_FailsIndependently(t *testing.T) {
	dir := writeFixtures(t)
	rep := NewRunner(nil, nil, nil).RunAll(context.Background(), Options{
		Records:  filepath.Join(dir, "streams.csv"),
		Topology: filepath.Join(dir, "broken.json"),
		Formats:  []string{"svg", "dot"},
	})
	if rep.OK() {
		t.Fatal("expected the map to fail")
	}
	if err := rep.Errors[ChartMap]; !errors.Is(err, errors.ErrCodeInvalidTopology) {
		t.Errorf("map err = %v", err)
	}
	for _, c := range []string{ChartTree, ChartPack} {
		if rep.Charts[c] == nil {
			t.Errorf("%s did not render: %v", c, rep.Errors[c])
		}
	}
	if _, ok := rep.Charts[ChartTree].Artifacts["dot"]; !ok {
		t.Error("tree should keep the dot format")
	}
	if _, ok := rep.Charts[ChartPack].Artifacts["dot"]; ok {
		t.Error("pack cannot produce dot")
	}
	if !strings.HasPrefix(rep.Err().Error(), "map:") {
		t.Errorf("Err() = %v", rep.Err())
	}
}

func TestRunAll_InvalidOptions(t *testing.T) {
	rep := NewRunner(nil, nil, nil).RunAll(context.Background(), Options{Style: "crayon"})
	if len(rep.Errors) != len(Charts) {
		t.Errorf("errors = %v", rep.Errors)
	}
}
