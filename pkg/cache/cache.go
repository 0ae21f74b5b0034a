// Package cache stores fetched data and rendered artifacts.
//
// Every backend implements [Cache], a byte-oriented key/value store with
// per-entry TTLs. Keys come from a [Keyer], which hashes the inputs that
// determine an entry so that changing any option produces a new key:
//
//	c, _ := cache.NewFileCache(cache.DefaultDir())
//	k := cache.NewDefaultKeyer()
//	key := k.ArtifactKey(hierarchyHash, cache.ArtifactKeyOpts{Chart: "pack", Format: "svg"})
//
// Backends: [FileCache] for the CLI, [RedisCache] and [MongoCache] for the
// server, and [NullCache] when caching is disabled.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Cache is a key/value store for cached bytes.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Close() error
}

// Entry lifetimes.
const (
	// TTLSource applies to downloaded records and topologies.
	TTLSource = 24 * time.Hour

	// TTLArtifact applies to rendered charts, which only change when their
	// inputs do.
	TTLArtifact = 7 * 24 * time.Hour
)

// DefaultDir returns the per-user cache directory, $XDG_CACHE_HOME/vizlab
// on Linux.
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "vizlab")
	}
	return filepath.Join(os.TempDir(), "vizlab-cache")
}

// Keyer generates cache keys.
type Keyer interface {
	// SourceKey identifies fetched input data by location.
	SourceKey(loc string) string

	// LayoutKey identifies a computed scene for some input.
	LayoutKey(dataHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendered output file.
	ArtifactKey(dataHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the options that change a layout.
type LayoutKeyOpts struct {
	Chart         string  `json:"chart"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	Padding       float64 `json:"padding,omitempty"`
	CirclePadding float64 `json:"circle_padding,omitempty"`
	Projection    string  `json:"projection,omitempty"`
	Object        string  `json:"object,omitempty"`
	Simplify      float64 `json:"simplify,omitempty"`
}

// ArtifactKeyOpts are the options that change a rendered file on top of
// its layout.
type ArtifactKeyOpts struct {
	Layout LayoutKeyOpts `json:"layout"`
	Chart  string        `json:"chart"`
	Format string        `json:"format"`
	Style  string        `json:"style,omitempty"`
	Seed   uint64        `json:"seed,omitempty"`
	Zoom   string        `json:"zoom,omitempty"`

	Engine         string `json:"engine,omitempty"`
	NoLabels       bool   `json:"no_labels,omitempty"`
	TruncateLabels bool   `json:"truncate_labels,omitempty"`
}

// DefaultKeyer produces keys of the form "<kind>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) SourceKey(loc string) string {
	return "source:" + loc
}

func (DefaultKeyer) LayoutKey(dataHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", dataHash, opts)
}

func (DefaultKeyer) ArtifactKey(dataHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", dataHash, opts)
}
