package aggregate

import (
	"math"
	"reflect"
	"testing"

	"github.com/matzehuels/vizlab/pkg/records"
)

func TestRollup(t *testing.T) {
	recs := []records.Record{
		{Genre: "Pop", Subgenre: "Dance", Streams: 100},
		{Genre: "Pop", Subgenre: "Dance", Streams: 200},
		{Genre: "Rock", Subgenre: "Indie", Streams: 50},
	}

	got := Rollup(recs)
	want := Nested{
		"Pop":  {"Dance": 150},
		"Rock": {"Indie": 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rollup() = %v, want %v", got, want)
	}
}

func TestRollup_Empty(t *testing.T) {
	got := Rollup(nil)
	if got == nil {
		t.Fatal("Rollup(nil) should return a non-nil map")
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
}

func TestRollup_KeysPerLevel(t *testing.T) {
	recs := []records.Record{
		{Genre: "Pop", Subgenre: "Dance", Streams: 1},
		{Genre: "Pop", Subgenre: "Synth", Streams: 2},
		{Genre: "Rock", Subgenre: "Indie", Streams: 3},
		{Genre: "Rock", Subgenre: "Indie", Streams: 4},
		{Genre: "Jazz", Subgenre: "Bebop", Streams: 5},
		{Genre: "Jazz", Subgenre: "Dance", Streams: 6},
	}
	n := Rollup(recs)

	distinct := map[string]map[string]bool{}
	for _, r := range recs {
		if distinct[r.Genre] == nil {
			distinct[r.Genre] = map[string]bool{}
		}
		distinct[r.Genre][r.Subgenre] = true
	}

	if n.Len() != len(distinct) {
		t.Fatalf("genres = %d, want %d", n.Len(), len(distinct))
	}
	for genre, subs := range distinct {
		if len(n[genre]) != len(subs) {
			t.Errorf("%s: subgenres = %d, want %d", genre, len(n[genre]), len(subs))
		}
	}

	if got := n.Genres(); !reflect.DeepEqual(got, []string{"Jazz", "Pop", "Rock"}) {
		t.Errorf("Genres() = %v", got)
	}
	if v, ok := n.Mean("Rock", "Indie"); !ok || v != 3.5 {
		t.Errorf("Mean(Rock, Indie) = %v, %v", v, ok)
	}
}

func TestRollupWithStats_SkipsNonFinite(t *testing.T) {
	recs := []records.Record{
		{Genre: "Pop", Subgenre: "Dance", Streams: 10},
		{Genre: "Pop", Subgenre: "Dance", Streams: math.NaN()},
		{Genre: "Pop", Subgenre: "Dance", Streams: math.Inf(1)},
	}
	n, st := RollupWithStats(recs)
	if st.Skipped != 2 || st.Records != 1 {
		t.Errorf("stats = %+v", st)
	}
	if v, _ := n.Mean("Pop", "Dance"); v != 10 {
		t.Errorf("mean = %v, want 10", v)
	}
	if st.Counts["Pop"]["Dance"] != 1 {
		t.Errorf("count = %d, want 1", st.Counts["Pop"]["Dance"])
	}
}

func TestNested_Total(t *testing.T) {
	n := Nested{"Pop": {"Dance": 150}, "Rock": {"Indie": 50}}
	if got := n.Total(); got != 200 {
		t.Errorf("Total() = %v, want 200", got)
	}
}
