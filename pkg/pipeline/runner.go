package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vizlab/pkg/cache"
	"github.com/matzehuels/vizlab/pkg/observability"
)

// Runner executes pipelines against a shared cache. It holds no per-run
// state, so one Runner can serve concurrent requests.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner returns a runner. A nil cache disables caching, a nil keyer
// means cache.NewDefaultKeyer and a nil logger means log.Default.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Report collects the outcome of RunAll. Every requested chart appears in
// exactly one of Charts and Errors.
type Report struct {
	Hierarchy *HierarchyResult
	Map       *MapResult
	Charts    map[string]*ChartResult
	Errors    map[string]error
}

// OK reports whether every chart rendered.
func (rep *Report) OK() bool { return len(rep.Errors) == 0 }

// Err joins the chart errors in page order, or returns nil.
func (rep *Report) Err() error {
	var errs []error
	for _, c := range Charts {
		if err, ok := rep.Errors[c]; ok {
			errs = append(errs, fmt.Errorf("%s: %w", c, err))
		}
	}
	return errors.Join(errs...)
}

// RunAll runs the hierarchy and map pipelines concurrently. A failure in
// one chart is recorded in Report.Errors and does not stop the others.
// Formats a chart cannot produce are dropped for that chart.
func (r *Runner) RunAll(ctx context.Context, opts Options) *Report {
	r.applyLogger(&opts)
	rep := &Report{
		Charts: make(map[string]*ChartResult),
		Errors: make(map[string]error),
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		for _, c := range Charts {
			rep.Errors[c] = err
		}
		return rep
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		record = func(chart string, cr *ChartResult, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				opts.Logger.Error("chart failed", "chart", chart, "err", err)
				rep.Errors[chart] = err
				return
			}
			rep.Charts[chart] = cr
		}
	)

	if hc := opts.hierarchyCharts(); len(hc) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := r.BuildHierarchy(ctx, opts)
			if err != nil {
				for _, c := range hc {
					record(c, nil, err)
				}
				return
			}
			rep.Hierarchy = h
			for _, c := range hc {
				co := r.chartOptions(opts, c)
				cr, err := r.RenderHierarchyChart(ctx, c, h, co)
				record(c, cr, err)
			}
		}()
	}

	if opts.wants(ChartMap) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := r.RunMap(ctx, r.chartOptions(opts, ChartMap))
			if err != nil {
				record(ChartMap, nil, err)
				return
			}
			rep.Map = m
			record(ChartMap, m.Chart, nil)
		}()
	}

	wg.Wait()
	return rep
}

func (r *Runner) chartOptions(opts Options, chart string) Options {
	co, dropped := opts.ForChart(chart)
	if len(dropped) > 0 {
		opts.Logger.Debug("formats not supported by chart", "chart", chart, "formats", dropped)
	}
	return co
}

// cachedArtifacts returns every requested format from the cache, or false
// if any is missing. Refresh bypasses the lookup.
func (r *Runner) cachedArtifacts(ctx context.Context, chart, hash string, opts Options) (map[string][]byte, bool) {
	hooks := observability.Cache()
	if opts.Refresh {
		return nil, false
	}
	out := make(map[string][]byte, len(opts.Formats))
	for _, f := range opts.Formats {
		data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(chart, f)))
		if err != nil || !hit {
			hooks.OnCacheMiss(ctx, "artifact")
			return nil, false
		}
		out[f] = data
	}
	hooks.OnCacheHit(ctx, "artifact")
	return out, true
}

func (r *Runner) storeArtifacts(ctx context.Context, chart, hash string, opts Options, arts map[string][]byte) {
	hooks := observability.Cache()
	for f, data := range arts {
		key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(chart, f))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
			opts.Logger.Debug("cache write failed", "chart", chart, "format", f, "err", err)
			continue
		}
		hooks.OnCacheSet(ctx, "artifact", len(data))
	}
}

// cachedLayout returns the scene stored under key or builds and stores it.
func cachedLayout[T any](ctx context.Context, r *Runner, key string, build func() (T, error)) (T, error) {
	hooks := observability.Cache()
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var scene T
		if err := json.Unmarshal(data, &scene); err == nil {
			hooks.OnCacheHit(ctx, "layout")
			return scene, nil
		}
	}
	hooks.OnCacheMiss(ctx, "layout")

	scene, err := build()
	if err != nil {
		return scene, err
	}
	if data, err := json.Marshal(scene); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			hooks.OnCacheSet(ctx, "layout", len(data))
		}
	}
	return scene, nil
}

// contentHash hashes parts separated by NUL bytes.
func contentHash(parts ...[]byte) string {
	return cache.Hash(bytes.Join(parts, []byte{0}))
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
