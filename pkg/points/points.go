// Package points loads the weighted locations drawn on the map.
//
// Points come from a lat,lon,weight CSV, from a list of IP addresses
// resolved against a MaxMind City database, or from the built-in demo set.
// Range checks are left to the map, which skips and counts invalid points.
package points

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/geo"
)

// Default returns the demo points: Edinburgh, Dubai and Putrajaya.
func Default() []geo.Point {
	return []geo.Point{
		{Lat: 55.9533, Lon: -3.1883, Weight: 40},
		{Lat: 25.2048, Lon: 55.2708, Weight: 35},
		{Lat: 2.9264, Lon: 101.6964, Weight: 30},
	}
}

var columnAliases = map[string]string{
	"lat":       "lat",
	"latitude":  "lat",
	"lon":       "lon",
	"lng":       "lon",
	"long":      "lon",
	"longitude": "lon",
	"weight":    "weight",
	"count":     "weight",
}

// ReadCSV parses a header row naming lat and lon columns (common aliases
// such as latitude and lng are accepted) and an optional weight column.
// A missing weight counts as 1. Unparseable numbers are INVALID_RECORD
// errors carrying the line number.
func ReadCSV(r io.Reader) ([]geo.Point, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return []geo.Point{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRecord, err, "read header")
	}
	idx := map[string]int{}
	for i, h := range header {
		if col, ok := columnAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := idx[col]; !dup {
				idx[col] = i
			}
		}
	}
	for _, col := range []string{"lat", "lon"} {
		if _, ok := idx[col]; !ok {
			return nil, errors.New(errors.ErrCodeInvalidRecord, "missing required column %q", col)
		}
	}

	out := []geo.Point{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRecord, err, "read points")
		}
		line, _ := cr.FieldPos(0)
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		var p geo.Point
		if p.Lat, err = parseCell(row, idx["lat"], line, "lat"); err != nil {
			return nil, err
		}
		if p.Lon, err = parseCell(row, idx["lon"], line, "lon"); err != nil {
			return nil, err
		}
		p.Weight = 1
		if i, ok := idx["weight"]; ok && i < len(row) && strings.TrimSpace(row[i]) != "" {
			if p.Weight, err = parseCell(row, i, line, "weight"); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
}

func parseCell(row []string, i, line int, name string) (float64, error) {
	if i >= len(row) {
		return 0, errors.New(errors.ErrCodeInvalidRecord, "line %d: missing %s", line, name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidRecord, "line %d: %s %q is not a number", line, name, row[i])
	}
	return v, nil
}
