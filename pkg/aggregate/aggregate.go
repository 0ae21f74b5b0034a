// Package aggregate groups flat records into the two-level genre → subgenre
// summary used to build the hierarchy.
//
// Rollup is the Go counterpart of a grouped mean: each innermost group's
// value is the arithmetic mean of its streams. Keys are unique per level and
// carry no order; accessors return keys sorted so downstream output is
// deterministic.
package aggregate

import (
	"math"
	"slices"

	"github.com/aclements/go-moremath/stats"

	"github.com/matzehuels/vizlab/pkg/records"
)

// Nested maps genre to (subgenre to mean streams).
type Nested map[string]map[string]float64

// Stats describes a rollup.
type Stats struct {
	Records int                       // records consumed
	Skipped int                       // records dropped for a non-finite streams value
	Counts  map[string]map[string]int // records per (genre, subgenre)
}

// Rollup groups recs by genre then subgenre and averages streams per group.
// Empty input yields an empty, non-nil Nested.
func Rollup(recs []records.Record) Nested {
	n, _ := RollupWithStats(recs)
	return n
}

// RollupWithStats is Rollup plus per-group record counts.
//
// Loaders already enforce a numeric policy, so non-finite values do not
// normally arrive here; any that do are skipped rather than averaged into NaN.
func RollupWithStats(recs []records.Record) (Nested, Stats) {
	samples := make(map[string]map[string][]float64)
	st := Stats{Counts: make(map[string]map[string]int)}

	for _, r := range recs {
		if math.IsNaN(r.Streams) || math.IsInf(r.Streams, 0) {
			st.Skipped++
			continue
		}
		sub, ok := samples[r.Genre]
		if !ok {
			sub = make(map[string][]float64)
			samples[r.Genre] = sub
			st.Counts[r.Genre] = make(map[string]int)
		}
		sub[r.Subgenre] = append(sub[r.Subgenre], r.Streams)
		st.Counts[r.Genre][r.Subgenre]++
		st.Records++
	}

	out := make(Nested, len(samples))
	for genre, subs := range samples {
		means := make(map[string]float64, len(subs))
		for subgenre, xs := range subs {
			means[subgenre] = stats.Mean(xs)
		}
		out[genre] = means
	}
	return out, st
}

// Len returns the number of genres.
func (n Nested) Len() int { return len(n) }

// Genres returns the genre keys in sorted order.
func (n Nested) Genres() []string {
	return sortedKeys(n)
}

// Subgenres returns the subgenre keys of genre in sorted order.
func (n Nested) Subgenres(genre string) []string {
	return sortedKeys(n[genre])
}

// Mean returns the aggregated value for (genre, subgenre).
func (n Nested) Mean(genre, subgenre string) (float64, bool) {
	sub, ok := n[genre]
	if !ok {
		return 0, false
	}
	v, ok := sub[subgenre]
	return v, ok
}

// Total returns the sum of every group mean, which is the value the
// hierarchy root ends up with.
func (n Nested) Total() float64 {
	var sum float64
	for _, sub := range n {
		for _, v := range sub {
			sum += v
		}
	}
	return sum
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
