package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/geo"
	"github.com/matzehuels/vizlab/pkg/mapview"
	"github.com/matzehuels/vizlab/pkg/observability"
	"github.com/matzehuels/vizlab/pkg/render"
)

// MapResult is the output of the map pipeline. Map is nil when every
// artifact came from the cache.
type MapResult struct {
	Features *geojson.FeatureCollection
	Points   []geo.Point
	Map      *mapview.Map
	Hash     string
	Chart    *ChartResult
}

// RunMap loads the boundaries and points, draws the map and renders it in
// the requested formats.
func (r *Runner) RunMap(ctx context.Context, opts Options) (*MapResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForMap(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	start := time.Now()

	fc, topoHash, err := r.LoadFeatures(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load topology: %w", err)
	}
	pts, err := r.LoadPoints(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load points: %w", err)
	}
	ptsData, _ := json.Marshal(pts)
	res := &MapResult{Features: fc, Points: pts, Hash: contentHash([]byte(topoHash), ptsData)}

	if arts, ok := r.cachedArtifacts(ctx, ChartMap, res.Hash, opts); ok {
		opts.Logger.Debug("artifacts from cache", "chart", ChartMap, "formats", opts.Formats)
		res.Chart = &ChartResult{Chart: ChartMap, Artifacts: arts, CacheHit: true, Duration: time.Since(start)}
		return res, nil
	}

	m, err := r.BuildMap(ctx, opts, fc, pts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	res.Map = m

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, ChartMap, opts.Formats)
	renderStart := time.Now()
	arts, err := renderFormats(opts.Formats, func() ([]byte, error) { return m.Bytes(), nil }, func(format string) ([]byte, error) {
		if format == render.FormatJSON {
			return MapGeoJSON(m)
		}
		return nil, errors.New(errors.ErrCodeUnsupported, "map cannot be rendered as %s", format)
	})
	hooks.OnRenderComplete(ctx, ChartMap, opts.Formats, time.Since(renderStart), err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	opts.Logger.Info("rendered chart", "chart", ChartMap, "formats", opts.Formats, "duration", time.Since(renderStart))

	r.storeArtifacts(ctx, ChartMap, res.Hash, opts, arts)
	res.Chart = &ChartResult{Chart: ChartMap, Artifacts: arts, Duration: time.Since(start)}
	return res, nil
}

// BuildMap draws the base map and points and applies opts.Zoom.
func (r *Runner) BuildMap(ctx context.Context, opts Options, fc *geojson.FeatureCollection, pts []geo.Point) (*mapview.Map, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	factory, err := geo.Lookup(opts.Projection)
	if err != nil {
		return nil, err
	}
	style, err := render.ParseStyle(opts.Style, opts.Seed)
	if err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	n := 0
	if fc != nil {
		n = len(fc.Features)
	}
	hooks.OnLayoutStart(ctx, ChartMap, n+len(pts))
	start := time.Now()

	m := mapview.New(opts.MapWidth, opts.MapHeight,
		mapview.WithStyle(style),
		mapview.WithSimplify(opts.Simplify),
	).BaseMap(fc, factory).RenderPoints(pts)
	if opts.Zoom != nil {
		m.Gesture(mapview.SetTransform(*opts.Zoom))
	}
	err = m.Err()
	hooks.OnLayoutComplete(ctx, ChartMap, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if m.Skipped() > 0 {
		opts.Logger.Warn("skipped invalid points", "count", m.Skipped())
	}
	opts.Logger.Info("computed layout", "chart", ChartMap,
		"regions", len(m.Regions()),
		"points", len(m.Markers()),
		"projection", opts.Projection,
		"duration", time.Since(start))
	return m, nil
}

// MapGeoJSON exports the drawn map as a FeatureCollection: the boundary
// features followed by one Point feature per marker with its encoded radius
// and opacity.
func MapGeoJSON(m *mapview.Map) ([]byte, error) {
	out := geojson.NewFeatureCollection()
	if fc := m.Features(); fc != nil {
		for _, f := range fc.Features {
			out.Append(f)
		}
	}
	for _, mk := range m.Markers() {
		f := geojson.NewFeature(orb.Point{mk.Point.Lon, mk.Point.Lat})
		f.ID = mk.Key
		f.Properties["kind"] = "point"
		f.Properties["weight"] = mk.Point.Weight
		f.Properties["r"] = mk.R
		f.Properties["opacity"] = mk.Opacity
		out.Append(f)
	}
	return json.Marshal(out)
}
