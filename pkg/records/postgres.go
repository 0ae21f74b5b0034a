package records

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/lib/pq"

	"github.com/matzehuels/vizlab/pkg/errors"
)

// DefaultTable is queried when a Postgres location names no table.
const DefaultTable = "music_streams"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// IsPostgres reports whether loc is a PostgreSQL connection string.
func IsPostgres(loc string) bool {
	return strings.HasPrefix(loc, "postgres://") || strings.HasPrefix(loc, "postgresql://")
}

// QueryPostgres loads records from a table with genre, subgenre and streams
// columns. streams is read as text so the same NumericPolicy applies as for
// CSV; row numbers in errors count from 1.
func QueryPostgres(ctx context.Context, dsn, table string, policy NumericPolicy) ([]Record, Stats, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, Stats{}, errors.New(errors.ErrCodeInvalidInput, "invalid table name %q", table)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, Stats{}, errors.Wrap(errors.ErrCodeNetwork, err, "open postgres")
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT genre, subgenre, streams::text FROM %s", table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, Stats{}, errors.Wrap(errors.ErrCodeNetwork, err, "query %s", table)
	}
	defer rows.Close()

	var (
		out   = []Record{}
		stats Stats
		n     int
	)
	for rows.Next() {
		n++
		var genre, subgenre string
		var streams sql.NullString
		if err := rows.Scan(&genre, &subgenre, &streams); err != nil {
			return nil, stats, errors.Wrap(errors.ErrCodeInvalidRecord, err, "row %d", n)
		}
		v, coerced, err := ParseStreams(streams.String, policy, n)
		if err != nil {
			return nil, stats, err
		}
		if coerced {
			stats.Coerced++
		}
		rec, err := newRecord(genre, subgenre, v, n)
		if err != nil {
			return nil, stats, err
		}
		out = append(out, rec)
		stats.Rows++
	}
	if err := rows.Err(); err != nil {
		return nil, stats, errors.Wrap(errors.ErrCodeNetwork, err, "read rows")
	}
	return out, stats, nil
}

// SplitPostgresLocation separates an optional "#table" suffix from a
// connection string: postgres://host/db#public.streams.
func SplitPostgresLocation(loc string) (dsn, table string) {
	if i := strings.LastIndex(loc, "#"); i >= 0 {
		return loc[:i], loc[i+1:]
	}
	return loc, ""
}
