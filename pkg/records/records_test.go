package records

import (
	"strings"
	"testing"

	"github.com/matzehuels/vizlab/pkg/errors"
)

func TestReadCSV(t *testing.T) {
	input := `genre,subgenre,streams,top
Pop,Dance,100,yes
Pop,Dance,200,no
Rock,Indie,50,no
`
	recs, stats, err := ReadCSV(strings.NewReader(input), PolicyReject)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(recs) != 3 || stats.Rows != 3 {
		t.Fatalf("got %d records (stats %d), want 3", len(recs), stats.Rows)
	}
	want := Record{Genre: "Rock", Subgenre: "Indie", Streams: 50}
	if recs[2] != want {
		t.Errorf("recs[2] = %+v, want %+v", recs[2], want)
	}
}

func TestReadCSV_ColumnOrder(t *testing.T) {
	input := "streams,subgenre,genre\n7,Trap,Hip Hop\n"
	recs, _, err := ReadCSV(strings.NewReader(input), PolicyReject)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if recs[0].Genre != "Hip Hop" || recs[0].Subgenre != "Trap" || recs[0].Streams != 7 {
		t.Errorf("unexpected record %+v", recs[0])
	}
}

func TestReadCSV_Empty(t *testing.T) {
	for _, input := range []string{"", "genre,subgenre,streams\n"} {
		recs, _, err := ReadCSV(strings.NewReader(input), PolicyReject)
		if err != nil {
			t.Fatalf("ReadCSV(%q): %v", input, err)
		}
		if recs == nil || len(recs) != 0 {
			t.Errorf("ReadCSV(%q) = %v, want empty non-nil slice", input, recs)
		}
	}
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader("genre,streams\nPop,1\n"), PolicyReject)
	if !errors.Is(err, errors.ErrCodeInvalidRecord) {
		t.Fatalf("expected INVALID_RECORD, got %v", err)
	}
}

func TestReadCSV_NonNumeric(t *testing.T) {
	input := "genre,subgenre,streams\nPop,Dance,100\nPop,Dance,lots\nRock,Indie,\n"

	t.Run("reject", func(t *testing.T) {
		_, _, err := ReadCSV(strings.NewReader(input), PolicyReject)
		if !errors.Is(err, errors.ErrCodeInvalidRecord) {
			t.Fatalf("expected INVALID_RECORD, got %v", err)
		}
		if !strings.Contains(err.Error(), "line 3") {
			t.Errorf("error should name the line: %v", err)
		}
	})

	t.Run("zero", func(t *testing.T) {
		recs, stats, err := ReadCSV(strings.NewReader(input), PolicyZero)
		if err != nil {
			t.Fatalf("ReadCSV: %v", err)
		}
		if stats.Coerced != 2 {
			t.Errorf("Coerced = %d, want 2", stats.Coerced)
		}
		if recs[1].Streams != 0 || recs[2].Streams != 0 {
			t.Errorf("bad values should be zero: %+v", recs)
		}
	})
}

func TestParseStreams(t *testing.T) {
	tests := []struct {
		raw     string
		policy  NumericPolicy
		want    float64
		coerced bool
		wantErr bool
	}{
		{"42", PolicyReject, 42, false, false},
		{" 3.5 ", PolicyReject, 3.5, false, false},
		{"NaN", PolicyReject, 0, false, true},
		{"Inf", PolicyReject, 0, false, true},
		{"NaN", PolicyZero, 0, true, false},
		{"abc", PolicyZero, 0, true, false},
	}
	for _, tt := range tests {
		got, coerced, err := ParseStreams(tt.raw, tt.policy, 1)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStreams(%q, %s) err = %v, wantErr %v", tt.raw, tt.policy, err, tt.wantErr)
			continue
		}
		if got != tt.want || coerced != tt.coerced {
			t.Errorf("ParseStreams(%q, %s) = %v, %v; want %v, %v", tt.raw, tt.policy, got, coerced, tt.want, tt.coerced)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != DefaultPolicy {
		t.Errorf("ParsePolicy(\"\") = %v, %v", p, err)
	}
	if p, err := ParsePolicy("Zero"); err != nil || p != PolicyZero {
		t.Errorf("ParsePolicy(Zero) = %v, %v", p, err)
	}
	if _, err := ParsePolicy("ignore"); !errors.Is(err, errors.ErrCodeInvalidPolicy) {
		t.Errorf("expected INVALID_POLICY, got %v", err)
	}
}

func TestSplitPostgresLocation(t *testing.T) {
	dsn, table := SplitPostgresLocation("postgres://u@localhost/db?sslmode=disable#public.streams")
	if dsn != "postgres://u@localhost/db?sslmode=disable" || table != "public.streams" {
		t.Errorf("got %q, %q", dsn, table)
	}
	if !IsPostgres(dsn) || IsPostgres("data/music.csv") {
		t.Error("IsPostgres misclassified a location")
	}
}
