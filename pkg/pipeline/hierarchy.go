package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matzehuels/vizlab/pkg/aggregate"
	"github.com/matzehuels/vizlab/pkg/cache"
	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/hierarchy"
	"github.com/matzehuels/vizlab/pkg/observability"
	"github.com/matzehuels/vizlab/pkg/render"
	"github.com/matzehuels/vizlab/pkg/render/linkage"
	"github.com/matzehuels/vizlab/pkg/render/packing"
)

// HierarchyResult is the output of the hierarchy pipeline.
type HierarchyResult struct {
	Nested aggregate.Nested
	Stats  aggregate.Stats
	Root   *hierarchy.Node

	// Hash identifies the hierarchy's content for cache keys.
	Hash string

	// Charts holds the rendered tree and pack, keyed by chart name.
	Charts map[string]*ChartResult
}

// RunHierarchy loads records, aggregates them, builds the hierarchy and
// renders the requested hierarchy charts. The first failure stops the run.
func (r *Runner) RunHierarchy(ctx context.Context, opts Options) (*HierarchyResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForHierarchy(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	res, err := r.BuildHierarchy(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, chart := range opts.hierarchyCharts() {
		cr, err := r.RenderHierarchyChart(ctx, chart, res, opts)
		if err != nil {
			return res, fmt.Errorf("%s: %w", chart, err)
		}
		res.Charts[chart] = cr
	}
	return res, nil
}

// BuildHierarchy runs the load, aggregate and build stages.
func (r *Runner) BuildHierarchy(ctx context.Context, opts Options) (*HierarchyResult, error) {
	r.applyLogger(&opts)
	if err := opts.validateHierarchyInput(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	recs, err := r.LoadRecords(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	nested, stats := aggregate.RollupWithStats(recs)
	root, err := hierarchy.FromNested(opts.RootName, nested)
	if err != nil {
		return nil, fmt.Errorf("build hierarchy: %w", err)
	}
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("build hierarchy: %w", err)
	}
	opts.Logger.Info("built hierarchy",
		"genres", nested.Len(),
		"nodes", len(root.Descendants()),
		"total", root.Value)

	data, err := json.Marshal(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode hierarchy")
	}
	return &HierarchyResult{
		Nested: nested,
		Stats:  stats,
		Root:   root,
		Hash:   cache.Hash(data),
		Charts: make(map[string]*ChartResult),
	}, nil
}

// RenderHierarchyChart lays out and renders one of the hierarchy charts
// from its own copy of h.Root, so the tree and pack layouts never see each
// other's coordinates.
func (r *Runner) RenderHierarchyChart(ctx context.Context, chart string, h *HierarchyResult, opts Options) (*ChartResult, error) {
	r.applyLogger(&opts)
	if chart != ChartTree && chart != ChartPack {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%q is not a hierarchy chart", chart)
	}
	if err := opts.validateHierarchyInput(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := render.ValidateFormats(opts.Formats, chartFormats[chart]); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	start := time.Now()

	if arts, ok := r.cachedArtifacts(ctx, chart, h.Hash, opts); ok {
		opts.Logger.Debug("artifacts from cache", "chart", chart, "formats", opts.Formats)
		return &ChartResult{Chart: chart, Artifacts: arts, CacheHit: true, Duration: time.Since(start)}, nil
	}

	style, err := render.ParseStyle(opts.Style, opts.Seed)
	if err != nil {
		return nil, err
	}
	root := h.Root.Copy()
	hooks := observability.Pipeline()

	var (
		svgDoc   func() ([]byte, error)
		scene    any
		dot      string
		sceneLen int
	)
	hooks.OnLayoutStart(ctx, chart, len(root.Descendants()))
	layoutStart := time.Now()
	layoutKey := r.Keyer.LayoutKey(h.Hash, opts.LayoutKeyOpts(chart))
	switch chart {
	case ChartTree:
		s, err := cachedLayout(ctx, r, layoutKey, func() (linkage.Scene, error) {
			return linkage.Build(root, opts.Size, opts.Padding)
		})
		hooks.OnLayoutComplete(ctx, chart, time.Since(layoutStart), err)
		if err != nil {
			return nil, fmt.Errorf("layout: %w", err)
		}
		scene, sceneLen = s, len(s.Nodes)
		svgOpts := []linkage.SVGOption{linkage.WithStyle(style)}
		if opts.NoLabels {
			svgOpts = append(svgOpts, linkage.WithoutLabels())
			dot = linkage.ToDOT(s.Unlabeled())
		} else {
			dot = linkage.ToDOT(s)
		}
		svgDoc = func() ([]byte, error) { return linkage.RenderSVG(s, svgOpts...), nil }
		if opts.Engine == EngineGraphviz {
			svgDoc = func() ([]byte, error) { return linkage.RenderGraphviz(ctx, dot, render.FormatSVG) }
		}
	case ChartPack:
		s, err := cachedLayout(ctx, r, layoutKey, func() (packing.Scene, error) {
			return packing.Build(root, opts.Size, opts.Padding, opts.CirclePadding)
		})
		hooks.OnLayoutComplete(ctx, chart, time.Since(layoutStart), err)
		if err != nil {
			return nil, fmt.Errorf("layout: %w", err)
		}
		scene, sceneLen = s, len(s.Circles)
		svgOpts := []packing.SVGOption{packing.WithStyle(style)}
		if opts.TruncateLabels {
			svgOpts = append(svgOpts, packing.WithTruncatedLabels())
		}
		svgDoc = func() ([]byte, error) { return packing.RenderSVG(s, svgOpts...), nil }
	}
	opts.Logger.Info("computed layout", "chart", chart, "nodes", sceneLen, "duration", time.Since(layoutStart))

	hooks.OnRenderStart(ctx, chart, opts.Formats)
	renderStart := time.Now()
	arts, err := renderFormats(opts.Formats, svgDoc, func(format string) ([]byte, error) {
		switch format {
		case render.FormatJSON:
			return json.MarshalIndent(scene, "", "  ")
		case render.FormatDOT:
			return []byte(dot), nil
		case render.FormatHTML:
			return linkage.RenderHTML(h.Root, opts.Size, opts.Size, opts.RootName)
		}
		return nil, errors.New(errors.ErrCodeUnsupported, "%s cannot be rendered as %s", chart, format)
	})
	hooks.OnRenderComplete(ctx, chart, opts.Formats, time.Since(renderStart), err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	opts.Logger.Info("rendered chart", "chart", chart, "formats", opts.Formats, "duration", time.Since(renderStart))

	r.storeArtifacts(ctx, chart, h.Hash, opts, arts)
	return &ChartResult{Chart: chart, Artifacts: arts, Duration: time.Since(start)}, nil
}

// renderFormats renders the SVG once and converts it for each raster or
// vector format; other formats go to extra.
func renderFormats(formats []string, svgDoc func() ([]byte, error), extra func(string) ([]byte, error)) (map[string][]byte, error) {
	out := make(map[string][]byte, len(formats))
	var svg []byte
	for _, f := range formats {
		var (
			data []byte
			err  error
		)
		switch f {
		case render.FormatSVG, render.FormatPNG, render.FormatPDF:
			if svg == nil {
				if svg, err = svgDoc(); err != nil {
					return nil, fmt.Errorf("%s: %w", f, err)
				}
			}
			data, err = render.Convert(svg, f)
		default:
			data, err = extra(f)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		out[f] = data
	}
	return out, nil
}
