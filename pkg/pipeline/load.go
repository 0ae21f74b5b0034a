package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/geo"
	"github.com/matzehuels/vizlab/pkg/observability"
	"github.com/matzehuels/vizlab/pkg/points"
	"github.com/matzehuels/vizlab/pkg/records"
	"github.com/matzehuels/vizlab/pkg/source"
)

// LoadRecords reads records from a file, URL or postgres:// location.
func (r *Runner) LoadRecords(ctx context.Context, opts Options) ([]records.Record, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	hooks := observability.Pipeline()

	hooks.OnLoadStart(ctx, opts.Records)
	start := time.Now()
	recs, stats, err := r.loadRecords(ctx, opts)
	hooks.OnLoadComplete(ctx, opts.Records, len(recs), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if stats.Coerced > 0 {
		opts.Logger.Warn("coerced non-numeric streams to zero", "count", stats.Coerced)
	}
	opts.Logger.Info("loaded records", "rows", stats.Rows, "duration", time.Since(start))
	return recs, nil
}

func (r *Runner) loadRecords(ctx context.Context, opts Options) ([]records.Record, records.Stats, error) {
	if records.IsPostgres(opts.Records) {
		dsn, table := records.SplitPostgresLocation(opts.Records)
		return records.QueryPostgres(ctx, dsn, table, opts.policy)
	}
	data, err := r.loader(opts).Load(ctx, opts.Records)
	if err != nil {
		return nil, records.Stats{}, err
	}
	return records.ReadCSV(bytes.NewReader(data), opts.policy, records.WithLogger(opts.Logger))
}

// LoadFeatures reads the boundary features. TopoJSON input is converted
// using opts.Object; GeoJSON FeatureCollections are used as is. The second
// result is a hash of the raw input for cache keys.
func (r *Runner) LoadFeatures(ctx context.Context, opts Options) (*geojson.FeatureCollection, string, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, "", err
	}
	hooks := observability.Pipeline()

	hooks.OnLoadStart(ctx, opts.Topology)
	start := time.Now()
	fc, hash, err := r.loadFeatures(ctx, opts)
	n := 0
	if fc != nil {
		n = len(fc.Features)
	}
	hooks.OnLoadComplete(ctx, opts.Topology, n, time.Since(start), err)
	if err != nil {
		return nil, "", err
	}
	opts.Logger.Info("loaded boundaries", "features", n, "duration", time.Since(start))
	return fc, hash, nil
}

func (r *Runner) loadFeatures(ctx context.Context, opts Options) (*geojson.FeatureCollection, string, error) {
	data, err := r.loader(opts).Load(ctx, opts.Topology)
	if err != nil {
		return nil, "", err
	}
	hash := contentHash(data, []byte(opts.Object))

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeInvalidTopology, err, "parse %s", opts.Topology)
	}
	if head.Type != "Topology" {
		fc, err := geo.DecodeFeatureCollection(bytes.NewReader(data))
		return fc, hash, err
	}

	topo, err := geo.DecodeTopology(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	fc, err := topo.Feature(opts.Object)
	if err != nil {
		return nil, "", err
	}
	return fc, hash, nil
}

// LoadPoints returns the map points: resolved IPs, a points CSV, or the
// demo set, in that order of preference.
func (r *Runner) LoadPoints(ctx context.Context, opts Options) ([]geo.Point, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	switch {
	case opts.GeoIPDB != "" && opts.IPs != "":
		data, err := r.loader(opts).Load(ctx, opts.IPs)
		if err != nil {
			return nil, err
		}
		ips, err := points.ReadIPs(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		pts, stats, err := points.FromIPs(opts.GeoIPDB, ips)
		if err != nil {
			return nil, err
		}
		opts.Logger.Info("resolved IPs", "locations", len(pts), "resolved", stats.Resolved,
			"unresolved", stats.Unresolved, "invalid", stats.Invalid)
		return pts, nil

	case opts.Points != "":
		data, err := r.loader(opts).Load(ctx, opts.Points)
		if err != nil {
			return nil, err
		}
		pts, err := points.ReadCSV(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opts.Points, err)
		}
		opts.Logger.Info("loaded points", "points", len(pts))
		return pts, nil
	}
	return points.Default(), nil
}

func (r *Runner) loader(opts Options) *source.Loader {
	return &source.Loader{Cache: r.Cache, Keyer: r.Keyer, Refresh: opts.Refresh}
}
