// Package source reads input files from local paths or http(s) URLs.
//
// Remote reads go through [httputil.Get] and are retried on transient
// failures. A [Loader] adds a read-through cache for remote locations;
// local files are always read fresh.
package source

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/matzehuels/vizlab/pkg/cache"
	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/httputil"
	"github.com/matzehuels/vizlab/pkg/observability"
)

// IsURL reports whether loc is an http or https location.
func IsURL(loc string) bool {
	return strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://")
}

// Read returns the contents of loc.
func Read(ctx context.Context, loc string) ([]byte, error) {
	return (&Loader{}).Load(ctx, loc)
}

// Open returns a reader over the contents of loc. Local files are streamed.
func Open(ctx context.Context, loc string) (io.ReadCloser, error) {
	if !IsURL(loc) {
		return openFile(loc)
	}
	data, err := Read(ctx, loc)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Loader reads locations with an optional cache for remote data.
type Loader struct {
	Cache  cache.Cache  // nil disables caching
	Keyer  cache.Keyer  // nil means cache.NewDefaultKeyer()
	Client *http.Client // nil means httputil's default client
	TTL    time.Duration

	// Refresh skips cache lookups but still stores fresh data.
	Refresh bool
}

// Load returns the contents of loc.
func (l *Loader) Load(ctx context.Context, loc string) ([]byte, error) {
	if loc == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no data location given")
	}
	if !IsURL(loc) {
		f, err := openFile(loc)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", loc)
		}
		return data, nil
	}

	if l.Cache == nil {
		return httputil.Get(ctx, l.Client, loc)
	}

	keyer := l.Keyer
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	key := keyer.SourceKey(loc)
	hooks := observability.Cache()

	if !l.Refresh {
		if data, ok, err := l.Cache.Get(ctx, key); err == nil && ok {
			hooks.OnCacheHit(ctx, "source")
			return data, nil
		}
		hooks.OnCacheMiss(ctx, "source")
	}

	data, err := httputil.Get(ctx, l.Client, loc)
	if err != nil {
		return nil, err
	}
	ttl := l.TTL
	if ttl == 0 {
		ttl = cache.TTLSource
	}
	// A failed cache write does not fail the load.
	if err := l.Cache.Set(ctx, key, data, ttl); err == nil {
		hooks.OnCacheSet(ctx, "source", len(data))
	}
	return data, nil
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "%s: no such file", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if st, err := f.Stat(); err == nil && st.IsDir() {
		f.Close()
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s is a directory", path)
	}
	return f, nil
}
