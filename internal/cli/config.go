package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/matzehuels/vizlab/pkg/cache"
	"github.com/matzehuels/vizlab/pkg/pipeline"
)

// configFileName is looked up in the working directory.
const configFileName = "vizlab.toml"

// Environment variables that override the config file.
const (
	envCacheBackend = "VIZLAB_CACHE_BACKEND"
	envRedisAddr    = "VIZLAB_REDIS_ADDR"
	envMongoURI     = "VIZLAB_MONGO_URI"
	envPgDSN        = "VIZLAB_PG_DSN"
	envGeoIPDB      = "VIZLAB_GEOIP_DB"
	envAddr         = "VIZLAB_ADDR"
)

// Cache backends.
const (
	backendFile  = "file"
	backendNull  = "null"
	backendRedis = "redis"
	backendMongo = "mongo"
)

// Config is the vizlab.toml file. Zero values mean "use the default".
type Config struct {
	Data   DataConfig   `toml:"data"`
	Tree   TreeConfig   `toml:"tree"`
	Pack   PackConfig   `toml:"pack"`
	Map    MapConfig    `toml:"map"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`

	// Path is the file the config was read from, empty when none was found.
	Path string `toml:"-"`
}

// DataConfig is the [data] section.
type DataConfig struct {
	Records  string `toml:"records"`
	Policy   string `toml:"policy"`
	RootName string `toml:"root_name"`
}

// TreeConfig is the [tree] section. The canvas and style are shared with
// the pack chart.
type TreeConfig struct {
	Size     float64  `toml:"size"`
	Padding  *float64 `toml:"padding"`
	Style    string   `toml:"style"`
	Seed     uint64   `toml:"seed"`
	Formats  []string `toml:"formats"`
	Engine   string   `toml:"engine"`
	NoLabels bool     `toml:"no_labels"`
}

// PackConfig is the [pack] section.
type PackConfig struct {
	CirclePadding  float64 `toml:"circle_padding"`
	TruncateLabels bool    `toml:"truncate_labels"`
}

// MapConfig is the [map] section.
type MapConfig struct {
	Topology   string  `toml:"topology"`
	Object     string  `toml:"object"`
	Points     string  `toml:"points"`
	GeoIPDB    string  `toml:"geoip_db"`
	IPs        string  `toml:"ips"`
	Projection string  `toml:"projection"`
	Width      float64 `toml:"width"`
	Height     float64 `toml:"height"`
	Simplify   float64 `toml:"simplify"`
}

// CacheConfig is the [cache] section.
type CacheConfig struct {
	Backend         string `toml:"backend"`
	Dir             string `toml:"dir"`
	RedisAddr       string `toml:"redis_addr"`
	RedisPassword   string `toml:"redis_password"`
	RedisDB         int    `toml:"redis_db"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// ServerConfig is the [server] section. CachePrefix namespaces the
// server's cache keys when the backend is shared.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	CachePrefix string `toml:"cache_prefix"`
}

// defaultConfig returns the built-in defaults.
func defaultConfig() *Config {
	return &Config{
		Cache:  CacheConfig{Backend: backendFile, MongoDatabase: "vizlab", MongoCollection: cache.DefaultMongoCollection},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

// loadConfig reads defaults, then the config file, then .env and the
// environment. An explicit path must exist; the fallback locations are
// optional.
func loadConfig(explicit string) (*Config, error) {
	cfg := defaultConfig()

	path, err := findConfig(explicit)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Path = path
	}

	// A missing .env is normal.
	_ = godotenv.Load(".env")
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfig resolves the config file: --config, ./vizlab.toml, then
// $XDG_CONFIG_HOME/vizlab/config.toml.
func findConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	candidates := []string{configFileName}
	if dir, err := configDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "config.toml"))
	}
	for _, p := range candidates {
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("config file: %w", err)
		}
	}
	return "", nil
}

// configDir returns $XDG_CONFIG_HOME/vizlab, or the OS config dir.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// applyEnv overrides file values with VIZLAB_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(envCacheBackend, &c.Cache.Backend)
	set(envRedisAddr, &c.Cache.RedisAddr)
	set(envMongoURI, &c.Cache.MongoURI)
	set(envGeoIPDB, &c.Map.GeoIPDB)
	set(envAddr, &c.Server.Addr)
	if c.Data.Records == "" {
		set(envPgDSN, &c.Data.Records)
	}

	switch c.Cache.Backend {
	case backendFile, backendNull, backendRedis, backendMongo:
		return nil
	default:
		return fmt.Errorf("unknown cache backend %q (must be file, null, redis or mongo)", c.Cache.Backend)
	}
}

// options converts the config into pipeline options.
func (c *Config) options() pipeline.Options {
	opts := pipeline.Options{
		Records:        c.Data.Records,
		Policy:         c.Data.Policy,
		RootName:       c.Data.RootName,
		Size:           c.Tree.Size,
		Style:          c.Tree.Style,
		Seed:           c.Tree.Seed,
		Formats:        c.Tree.Formats,
		Engine:         c.Tree.Engine,
		NoLabels:       c.Tree.NoLabels,
		CirclePadding:  c.Pack.CirclePadding,
		TruncateLabels: c.Pack.TruncateLabels,
		Topology:       c.Map.Topology,
		Object:         c.Map.Object,
		Points:         c.Map.Points,
		GeoIPDB:        c.Map.GeoIPDB,
		IPs:            c.Map.IPs,
		Projection:     c.Map.Projection,
		MapWidth:       c.Map.Width,
		MapHeight:      c.Map.Height,
		Simplify:       c.Map.Simplify,
	}
	if p := c.Tree.Padding; p != nil {
		opts.Padding = *p
		opts.ZeroPadding = *p == 0
	}
	return opts
}

// chartFlags holds the flags shared by the chart commands. Only flags the
// user actually set override the config.
type chartFlags struct {
	output   string
	formats  string
	size     float64
	padding  float64
	style    string
	seed     uint64
	policy   string
	rootName string
	noCache  bool
	refresh  bool
}

func (f *chartFlags) register(flags *pflag.FlagSet, formatHelp string) {
	flags.StringVarP(&f.output, "output", "o", "", "output file (single format) or base path")
	flags.StringVarP(&f.formats, "format", "f", "", "output format(s), comma-separated: "+formatHelp)
	flags.Float64Var(&f.size, "size", pipeline.DefaultSize, "canvas width and height")
	flags.Float64Var(&f.padding, "padding", pipeline.DefaultPadding, "canvas padding")
	flags.StringVar(&f.style, "style", "", "visual style: simple (default), handdrawn")
	flags.Uint64Var(&f.seed, "seed", 0, "random seed for the handdrawn style")
	flags.StringVar(&f.policy, "policy", "", "non-numeric streams policy: reject (default), zero")
	flags.StringVar(&f.rootName, "root", "", "root node name")
	flags.BoolVar(&f.noCache, "no-cache", false, "disable caching")
	flags.BoolVar(&f.refresh, "refresh", false, "refetch remote sources")
}

// apply copies the set flags onto opts.
func (f *chartFlags) apply(flags *pflag.FlagSet, opts *pipeline.Options) {
	if flags.Changed("format") {
		opts.Formats = parseFormats(f.formats)
	}
	if flags.Changed("size") {
		opts.Size = f.size
	}
	if flags.Changed("padding") {
		opts.Padding = f.padding
		opts.ZeroPadding = f.padding == 0
	}
	if flags.Changed("style") {
		opts.Style = f.style
	}
	if flags.Changed("seed") {
		opts.Seed = f.seed
	}
	if flags.Changed("policy") {
		opts.Policy = f.policy
	}
	if flags.Changed("root") {
		opts.RootName = f.rootName
	}
	opts.Refresh = f.refresh
}

// hierarchyFlags holds the tree and pack rendering flags.
type hierarchyFlags struct {
	engine         string
	noLabels       bool
	circlePadding  float64
	truncateLabels bool
}

// register adds the flags of the given hierarchy charts.
func (f *hierarchyFlags) register(flags *pflag.FlagSet, charts ...string) {
	for _, chart := range charts {
		switch chart {
		case pipeline.ChartTree:
			flags.StringVar(&f.engine, "engine", "", "tree renderer: native (default), graphviz")
			flags.BoolVar(&f.noLabels, "no-labels", false, "omit tree node labels")
		case pipeline.ChartPack:
			flags.Float64Var(&f.circlePadding, "circle-padding", pipeline.DefaultCirclePadding, "padding between sibling circles")
			flags.BoolVar(&f.truncateLabels, "truncate-labels", false, "shorten leaf labels that overflow their circle")
		}
	}
}

func (f *hierarchyFlags) apply(flags *pflag.FlagSet, opts *pipeline.Options) {
	if flags.Changed("engine") {
		opts.Engine = f.engine
	}
	if flags.Changed("no-labels") {
		opts.NoLabels = f.noLabels
	}
	if flags.Changed("circle-padding") {
		opts.CirclePadding = f.circlePadding
	}
	if flags.Changed("truncate-labels") {
		opts.TruncateLabels = f.truncateLabels
	}
}

// mapFlags holds the map-specific flags.
type mapFlags struct {
	points     string
	geoip      string
	ips        string
	projection string
	object     string
	zoom       string
	width      float64
	height     float64
	simplify   float64
}

func (f *mapFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.points, "points", "", "points CSV (lat,lon,weight)")
	flags.StringVar(&f.geoip, "geoip", "", "GeoIP2/GeoLite2 City database")
	flags.StringVar(&f.ips, "ips", "", "file with one IP address per line (requires --geoip)")
	flags.StringVar(&f.projection, "projection", "", "projection: naturalEarth1 (default), equalEarth, mercator, equirectangular")
	flags.StringVar(&f.object, "object", "", "TopoJSON object name (default countries)")
	flags.StringVar(&f.zoom, "zoom", "", "initial zoom as k,x,y")
	flags.Float64Var(&f.width, "width", pipeline.DefaultMapWidth, "map width")
	flags.Float64Var(&f.height, "height", pipeline.DefaultMapHeight, "map height")
	flags.Float64Var(&f.simplify, "simplify", 0, "outline simplification tolerance in pixels")
}

func (f *mapFlags) apply(flags *pflag.FlagSet, opts *pipeline.Options) error {
	str := map[string]*string{
		"points":     &opts.Points,
		"geoip":      &opts.GeoIPDB,
		"ips":        &opts.IPs,
		"projection": &opts.Projection,
		"object":     &opts.Object,
	}
	vals := map[string]string{
		"points":     f.points,
		"geoip":      f.geoip,
		"ips":        f.ips,
		"projection": f.projection,
		"object":     f.object,
	}
	for name, dst := range str {
		if flags.Changed(name) {
			*dst = vals[name]
		}
	}
	if flags.Changed("width") {
		opts.MapWidth = f.width
	}
	if flags.Changed("height") {
		opts.MapHeight = f.height
	}
	if flags.Changed("simplify") {
		opts.Simplify = f.simplify
	}
	if flags.Changed("zoom") {
		t, err := parseZoom(f.zoom)
		if err != nil {
			return err
		}
		opts.Zoom = &t
	}
	return nil
}
