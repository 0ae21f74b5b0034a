package cache

import "errors"

// ErrUnavailable is returned when a remote backend cannot be reached at
// startup. Callers usually fall back to a FileCache or NullCache.
var ErrUnavailable = errors.New("cache backend unavailable")
