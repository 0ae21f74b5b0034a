package points

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"math"
	"net"
	"slices"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/geo"
)

// GroupPrecision is the number of decimals IP locations are rounded to
// before grouping, about 1 km at the equator.
const GroupPrecision = 2

// CityLookup resolves an IP to a City record. *geoip2.Reader implements it.
type CityLookup interface {
	City(ip net.IP) (*geoip2.City, error)
}

// IPStats summarizes an IP resolution.
type IPStats struct {
	Resolved   int // IPs with a usable location
	Invalid    int // lines that are not IP addresses
	Unresolved int // IPs missing from the database or without coordinates
}

// FromIPs opens the City database at dbPath and resolves ips.
func FromIPs(dbPath string, ips []string) ([]geo.Point, IPStats, error) {
	db, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, IPStats{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "open GeoIP database %s", dbPath)
	}
	defer db.Close()
	return Resolve(db, ips)
}

// Resolve looks up each IP and groups hits by rounded location. Each point's
// weight is the number of IPs at that location. Points are ordered by
// descending weight, then by location.
func Resolve(db CityLookup, ips []string) ([]geo.Point, IPStats, error) {
	type bucket struct {
		key      string
		lat, lon float64
		n        int
	}
	var (
		stats   IPStats
		buckets = map[string]*bucket{}
	)
	for _, raw := range ips {
		ip := net.ParseIP(strings.TrimSpace(raw))
		if ip == nil {
			stats.Invalid++
			continue
		}
		rec, err := db.City(ip)
		if err != nil || rec == nil {
			stats.Unresolved++
			continue
		}
		lat, lon := rec.Location.Latitude, rec.Location.Longitude
		if lat == 0 && lon == 0 {
			stats.Unresolved++
			continue
		}
		lat, lon = round(lat), round(lon)
		key := fmt.Sprintf("%.*f,%.*f", GroupPrecision, lat, GroupPrecision, lon)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{key: key, lat: lat, lon: lon}
			buckets[key] = b
		}
		b.n++
		stats.Resolved++
	}

	sorted := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		sorted = append(sorted, b)
	}
	slices.SortFunc(sorted, func(a, b *bucket) int {
		if c := cmp.Compare(b.n, a.n); c != 0 {
			return c
		}
		return strings.Compare(a.key, b.key)
	})

	out := make([]geo.Point, len(sorted))
	for i, b := range sorted {
		out[i] = geo.Point{Lat: b.lat, Lon: b.lon, Weight: float64(b.n)}
	}
	return out, stats, nil
}

// ReadIPs reads one IP per line. Blank lines and # comments are skipped.
// The first comma-separated field is used, so access-log extracts work
// directly.
func ReadIPs(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexAny(line, ", \t"); i >= 0 {
			line = line[:i]
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read IP list")
	}
	return out, nil
}

func round(v float64) float64 {
	p := math.Pow(10, GroupPrecision)
	return math.Round(v*p) / p
}
