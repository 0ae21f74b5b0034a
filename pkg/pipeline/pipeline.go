// Package pipeline runs the three vizlab charts end to end.
//
// Two independent pipelines share one [Runner]:
//
//  1. Hierarchy: load records → aggregate → build hierarchy → lay out and
//     render the linkage tree and the circle pack
//  2. Map: load boundaries → fit projection → draw regions → draw points
//
// Each stage logs on completion, fires [observability] hooks, and is
// wrapped with a stage prefix ("load records: ...") on failure. Rendered
// artifacts are cached by content hash, so rerunning with unchanged inputs
// skips layout and rendering.
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	report := runner.RunAll(ctx, pipeline.Options{
//	    Records:  "data/streams.csv",
//	    Topology: "data/world-110m.json",
//	})
//	for chart, err := range report.Errors {
//	    logger.Error("chart failed", "chart", chart, "err", err)
//	}
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vizlab/pkg/cache"
	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/geo"
	"github.com/matzehuels/vizlab/pkg/records"
	"github.com/matzehuels/vizlab/pkg/render"
)

// Chart names.
const (
	ChartTree = "tree"
	ChartPack = "pack"
	ChartMap  = "map"
)

// Charts lists every chart in page order.
var Charts = []string{ChartTree, ChartPack, ChartMap}

// Tree engines. The native engine draws the tidy tree itself; graphviz
// hands the DOT graph to Graphviz for the svg, png and pdf outputs.
const (
	EngineNative   = "native"
	EngineGraphviz = "graphviz"
)

// Defaults shared by the CLI, config file and server.
const (
	DefaultSize          = 800.0
	DefaultPadding       = 30.0
	DefaultCirclePadding = 5.0
	DefaultMapWidth      = 1000.0
	DefaultMapHeight     = 800.0
	DefaultRootName      = "streams"
)

// chartFormats lists the output formats each chart supports.
var chartFormats = map[string][]string{
	ChartTree: {render.FormatSVG, render.FormatPNG, render.FormatPDF, render.FormatDOT, render.FormatHTML, render.FormatJSON},
	ChartPack: {render.FormatSVG, render.FormatPNG, render.FormatPDF, render.FormatJSON},
	ChartMap:  {render.FormatSVG, render.FormatPNG, render.FormatPDF, render.FormatJSON},
}

// FormatsFor returns the formats chart supports.
func FormatsFor(chart string) []string {
	return slices.Clone(chartFormats[chart])
}

// Options configures a pipeline run. It is JSON-serializable so the server
// can accept it directly.
type Options struct {
	// Hierarchy inputs. Records is a path, http(s) URL or postgres:// DSN.
	Records  string `json:"records,omitempty"`
	RootName string `json:"root_name,omitempty"`
	Policy   string `json:"policy,omitempty"`

	// Map inputs. Topology is TopoJSON or GeoJSON. Points is a lat,lon,weight
	// CSV; GeoIPDB with IPs resolves an IP list instead. With neither, the
	// demo points are drawn.
	Topology   string `json:"topology,omitempty"`
	Object     string `json:"object,omitempty"`
	Points     string `json:"points,omitempty"`
	GeoIPDB    string `json:"geoip_db,omitempty"`
	IPs        string `json:"ips,omitempty"`
	Projection string `json:"projection,omitempty"`

	// Sizes.
	Size          float64 `json:"size,omitempty"`
	Padding       float64 `json:"padding,omitempty"`
	CirclePadding float64 `json:"circle_padding,omitempty"`
	MapWidth      float64 `json:"map_width,omitempty"`
	MapHeight     float64 `json:"map_height,omitempty"`

	// Rendering.
	Charts   []string       `json:"charts,omitempty"`
	Formats  []string       `json:"formats,omitempty"`
	Style    string         `json:"style,omitempty"`
	Seed     uint64         `json:"seed,omitempty"`
	Simplify float64        `json:"simplify,omitempty"`
	Zoom     *geo.Transform `json:"zoom,omitempty"`
	Refresh  bool           `json:"refresh,omitempty"`

	// Engine picks the tree renderer. NoLabels drops the tree's node labels;
	// TruncateLabels shortens pack leaf labels that overflow their circle.
	Engine         string `json:"engine,omitempty"`
	NoLabels       bool   `json:"no_labels,omitempty"`
	TruncateLabels bool   `json:"truncate_labels,omitempty"`

	// ZeroPadding keeps a Padding of 0 instead of applying the default.
	ZeroPadding bool `json:"zero_padding,omitempty"`

	Logger *log.Logger `json:"-"`

	policy    records.NumericPolicy
	validated bool
}

// ValidateAndSetDefaults applies defaults and validates options shared by
// both pipelines. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Size == 0 {
		o.Size = DefaultSize
	}
	if o.Padding == 0 && !o.ZeroPadding {
		o.Padding = DefaultPadding
	}
	if o.CirclePadding == 0 {
		o.CirclePadding = DefaultCirclePadding
	}
	if o.MapWidth == 0 {
		o.MapWidth = DefaultMapWidth
	}
	if o.MapHeight == 0 {
		o.MapHeight = DefaultMapHeight
	}
	if o.RootName == "" {
		o.RootName = DefaultRootName
	}
	if o.Object == "" {
		o.Object = geo.DefaultObject
	}
	if o.Projection == "" {
		o.Projection = geo.DefaultProjection
	}
	if o.Style == "" {
		o.Style = render.DefaultStyle
	}
	if o.Seed == 0 {
		o.Seed = render.DefaultSeed
	}
	if o.Engine == "" {
		o.Engine = EngineNative
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{render.FormatSVG}
	}
	if len(o.Charts) == 0 {
		o.Charts = slices.Clone(Charts)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.Formats = slices.Clone(o.Formats)
	for i, f := range o.Formats {
		o.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	for _, c := range o.Charts {
		if _, ok := chartFormats[c]; !ok {
			return errors.New(errors.ErrCodeInvalidInput, "unknown chart %q (must be one of: %s)", c, strings.Join(Charts, ", "))
		}
	}
	if _, err := render.ParseStyle(o.Style, o.Seed); err != nil {
		return err
	}
	o.Engine = strings.ToLower(o.Engine)
	if o.Engine != EngineNative && o.Engine != EngineGraphviz {
		return errors.New(errors.ErrCodeInvalidInput, "unknown engine %q (must be %s or %s)", o.Engine, EngineNative, EngineGraphviz)
	}
	p, err := records.ParsePolicy(o.Policy)
	if err != nil {
		return err
	}
	o.policy = p
	if o.Simplify < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "simplify tolerance must be >= 0, got %v", o.Simplify)
	}
	if o.CirclePadding < 0 {
		return errors.New(errors.ErrCodeInvalidCanvas, "circle padding must be >= 0, got %v", o.CirclePadding)
	}
	o.validated = true
	return nil
}

// ValidateForHierarchy checks the options the hierarchy pipeline needs,
// including the formats of every requested hierarchy chart.
func (o *Options) ValidateForHierarchy() error {
	if err := o.validateHierarchyInput(); err != nil {
		return err
	}
	for _, c := range o.hierarchyCharts() {
		if err := render.ValidateFormats(o.Formats, chartFormats[c]); err != nil {
			return fmt.Errorf("%s: %w", c, err)
		}
	}
	return nil
}

func (o *Options) validateHierarchyInput() error {
	if err := o.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if o.Records == "" {
		return errors.New(errors.ErrCodeInvalidInput, "records location is required")
	}
	return errors.ValidateCanvas(o.Size, o.Size, o.Padding)
}

// ValidateForMap checks the options the map pipeline needs.
func (o *Options) ValidateForMap() error {
	if err := o.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if o.Topology == "" {
		return errors.New(errors.ErrCodeInvalidInput, "topology location is required")
	}
	if err := errors.ValidateCanvas(o.MapWidth, o.MapHeight, 0); err != nil {
		return err
	}
	if _, err := geo.Lookup(o.Projection); err != nil {
		return err
	}
	if (o.GeoIPDB == "") != (o.IPs == "") {
		return errors.New(errors.ErrCodeInvalidInput, "geoip database and IP list must be given together")
	}
	return render.ValidateFormats(o.Formats, chartFormats[ChartMap])
}

// ForChart returns a copy of o restricted to chart, with formats the chart
// cannot produce removed. The second result lists the dropped formats.
func (o Options) ForChart(chart string) (Options, []string) {
	var keep, dropped []string
	for _, f := range o.Formats {
		if slices.Contains(chartFormats[chart], f) {
			keep = append(keep, f)
		} else {
			dropped = append(dropped, f)
		}
	}
	if len(keep) == 0 {
		keep = []string{render.FormatSVG}
	}
	o.Formats = keep
	o.Charts = []string{chart}
	return o, dropped
}

func (o *Options) hierarchyCharts() []string {
	var out []string
	for _, c := range o.Charts {
		if c == ChartTree || c == ChartPack {
			out = append(out, c)
		}
	}
	return out
}

func (o *Options) wants(chart string) bool {
	return slices.Contains(o.Charts, chart)
}

// LayoutKeyOpts returns the cache key options for chart's layout.
func (o *Options) LayoutKeyOpts(chart string) cache.LayoutKeyOpts {
	k := cache.LayoutKeyOpts{Chart: chart}
	switch chart {
	case ChartTree:
		k.Width, k.Height, k.Padding = o.Size, o.Size, o.Padding
	case ChartPack:
		k.Width, k.Height, k.Padding, k.CirclePadding = o.Size, o.Size, o.Padding, o.CirclePadding
	case ChartMap:
		k.Width, k.Height = o.MapWidth, o.MapHeight
		k.Projection, k.Object, k.Simplify = o.Projection, o.Object, o.Simplify
	}
	return k
}

// ArtifactKeyOpts returns the cache key options for one rendered file.
func (o *Options) ArtifactKeyOpts(chart, format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{
		Layout: o.LayoutKeyOpts(chart),
		Chart:  chart,
		Format: format,
		Style:  o.Style,
	}
	if o.Style == render.StyleHanddrawn {
		k.Seed = o.Seed
	}
	switch chart {
	case ChartTree:
		k.Engine, k.NoLabels = o.Engine, o.NoLabels
	case ChartPack:
		k.TruncateLabels = o.TruncateLabels
	case ChartMap:
		if o.Zoom != nil {
			k.Zoom = o.Zoom.String()
		}
	}
	return k
}

// ChartResult holds one chart's rendered files.
type ChartResult struct {
	Chart     string
	Artifacts map[string][]byte // keyed by format
	CacheHit  bool              // every artifact came from the cache
	Duration  time.Duration
}
