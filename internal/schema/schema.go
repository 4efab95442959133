// Package schema declares the tables the climate API reads and checks an
// existing SQLite file against them. The service never creates or alters
// tables in production; Bootstrap exists for tests and local fixtures.
package schema

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

//go:embed sql/hawaii.sql
var hawaiiSQL string

// ErrMismatch is returned when the store lacks a required table or column.
var ErrMismatch = errors.New("schema mismatch")

// Table is a statically declared table and the columns the queries rely on.
type Table struct {
	Name    string
	Columns []string
}

var Tables = []Table{
	{Name: "measurement", Columns: []string{"station", "date", "prcp", "tobs"}},
	{Name: "station", Columns: []string{"station", "name", "latitude", "longitude", "elevation"}},
}

// Validate checks every declared table and column exists. All problems are
// reported in one error wrapping ErrMismatch.
func Validate(ctx context.Context, db *sql.DB) error {
	var problems []string
	for _, t := range Tables {
		have, err := columns(ctx, db, t.Name)
		if err != nil {
			return fmt.Errorf("inspect table %s: %w", t.Name, err)
		}
		if len(have) == 0 {
			problems = append(problems, fmt.Sprintf("missing table %q", t.Name))
			continue
		}
		var missing []string
		for _, c := range t.Columns {
			if !have[c] {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("table %q missing columns %s", t.Name, strings.Join(missing, ", ")))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrMismatch, strings.Join(problems, "; "))
	}
	slog.Debug("schema validated", "tables", len(Tables))
	return nil
}

func columns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close table info rows", "table", table, "error", err)
		}
	}()
	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[strings.ToLower(name)] = true
	}
	return out, rows.Err()
}

// Bootstrap creates the declared tables on an empty database.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, hawaiiSQL); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	return nil
}

// Summary describes the contents of a dataset file.
type Summary struct {
	Stations     int
	Measurements int
	FirstDate    string
	LastDate     string
}

// Summarize counts rows and reports the observed date range. Empty
// measurement tables leave the dates blank.
func Summarize(ctx context.Context, db *sql.DB) (Summary, error) {
	var s Summary
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM station`).Scan(&s.Stations); err != nil {
		return Summary{}, fmt.Errorf("count stations: %w", err)
	}
	var first, last sql.NullString
	err := db.QueryRowContext(ctx, `SELECT COUNT(*), MIN(date), MAX(date) FROM measurement`).
		Scan(&s.Measurements, &first, &last)
	if err != nil {
		return Summary{}, fmt.Errorf("count measurements: %w", err)
	}
	s.FirstDate, s.LastDate = first.String, last.String
	return s, nil
}

// TableNames returns the declared table names in sorted order.
func TableNames() []string {
	out := make([]string, 0, len(Tables))
	for _, t := range Tables {
		out = append(out, t.Name)
	}
	sort.Strings(out)
	return out
}
