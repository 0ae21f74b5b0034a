package records

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vizlab/pkg/errors"
)

// Required CSV columns. Additional columns (the original data carries a
// "top" column) are ignored.
const (
	ColGenre    = "genre"
	ColSubgenre = "subgenre"
	ColStreams  = "streams"
)

// ReadOption configures ReadCSV.
type ReadOption func(*readConfig)

type readConfig struct {
	logger *log.Logger
}

// WithLogger reports coerced values at debug level.
func WithLogger(l *log.Logger) ReadOption {
	return func(c *readConfig) { c.logger = l }
}

// ReadCSV parses rows with a header line naming at least the genre,
// subgenre and streams columns, in any order. An input with only a header
// yields zero records and no error.
func ReadCSV(r io.Reader, policy NumericPolicy, opts ...ReadOption) ([]Record, Stats, error) {
	cfg := readConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return []Record{}, Stats{}, nil
	}
	if err != nil {
		return nil, Stats{}, errors.Wrap(errors.ErrCodeInvalidRecord, err, "read header")
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, Stats{}, err
	}

	var (
		out   = []Record{}
		stats Stats
		line  = 1
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, errors.Wrap(errors.ErrCodeInvalidRecord, err, "after line %d", line)
		}
		line, _ = cr.FieldPos(0)
		if isBlank(row) {
			continue
		}

		streams, coerced, err := ParseStreams(cell(row, idx[ColStreams]), policy, line)
		if err != nil {
			return nil, stats, err
		}
		if coerced {
			stats.Coerced++
			if cfg.logger != nil {
				cfg.logger.Debug("coerced streams to zero", "line", line, "value", cell(row, idx[ColStreams]))
			}
		}

		rec, err := newRecord(cell(row, idx[ColGenre]), cell(row, idx[ColSubgenre]), streams, line)
		if err != nil {
			return nil, stats, err
		}
		out = append(out, rec)
		stats.Rows++
	}
	return out, stats, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	for _, col := range []string{ColGenre, ColSubgenre, ColStreams} {
		if _, ok := idx[col]; !ok {
			return nil, errors.New(errors.ErrCodeInvalidRecord, "missing required column %q", col)
		}
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
