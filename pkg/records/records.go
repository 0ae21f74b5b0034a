// Package records loads the flat (genre, subgenre, streams) rows that feed
// the hierarchy pipeline.
//
// Rows can come from CSV (file, URL, or any io.Reader) or from a PostgreSQL
// table. Both loaders apply the same [NumericPolicy] to the streams column, so
// a NaN never reaches aggregation: the value is either rejected with a
// line-numbered INVALID_RECORD error or coerced to zero.
package records

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/vizlab/pkg/errors"
)

// Record is one input row. Records are values and are never mutated after
// loading.
type Record struct {
	Genre    string  `json:"genre" yaml:"genre"`
	Subgenre string  `json:"subgenre" yaml:"subgenre"`
	Streams  float64 `json:"streams" yaml:"streams"`
}

// NumericPolicy decides what happens to a streams value that is not a finite
// number.
type NumericPolicy string

const (
	// PolicyReject fails the load on the first bad value.
	PolicyReject NumericPolicy = "reject"
	// PolicyZero replaces bad values with 0.
	PolicyZero NumericPolicy = "zero"
)

// DefaultPolicy is used when no policy is configured.
const DefaultPolicy = PolicyReject

// ParsePolicy converts a flag or config string into a NumericPolicy.
// The empty string maps to DefaultPolicy.
func ParsePolicy(s string) (NumericPolicy, error) {
	switch NumericPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultPolicy, nil
	case PolicyReject:
		return PolicyReject, nil
	case PolicyZero:
		return PolicyZero, nil
	}
	return "", errors.New(errors.ErrCodeInvalidPolicy, "invalid numeric policy %q (must be 'reject' or 'zero')", s)
}

// Stats summarizes a load.
type Stats struct {
	Rows    int // rows accepted
	Coerced int // values replaced by zero under PolicyZero
}

// ParseStreams applies the policy to one raw streams cell. line is used only
// for error messages. The second return value reports whether the value was
// coerced.
func ParseStreams(raw string, policy NumericPolicy, line int) (float64, bool, error) {
	s := strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(s, 64)
	if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v, false, nil
	}

	if policy == PolicyZero {
		return 0, true, nil
	}
	if s == "" {
		return 0, false, errors.New(errors.ErrCodeInvalidRecord, "line %d: streams is empty", line)
	}
	return 0, false, errors.New(errors.ErrCodeInvalidRecord, "line %d: streams %q is not a finite number", line, raw)
}

// newRecord validates labels and builds a Record.
func newRecord(genre, subgenre string, streams float64, line int) (Record, error) {
	genre, subgenre = strings.TrimSpace(genre), strings.TrimSpace(subgenre)
	for _, l := range []string{genre, subgenre} {
		if err := errors.ValidateLabel(l); err != nil {
			return Record{}, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return Record{Genre: genre, Subgenre: subgenre, Streams: streams}, nil
}
