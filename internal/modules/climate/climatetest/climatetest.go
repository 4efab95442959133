// Package climatetest builds throwaway SQLite datasets for tests.
package climatetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"climate-server/internal/schema"
)

// Measurement is one fixture row; nil Prcp or Tobs are stored as NULL.
type Measurement struct {
	Station string
	Date    string
	Prcp    *float64
	Tobs    *float64
}

type Station struct {
	Station   string
	Name      string
	Latitude  float64
	Longitude float64
	Elevation float64
}

// Float returns a pointer for fixture literals.
func Float(v float64) *float64 { return &v }

// NewDB creates an empty dataset file with the declared schema and returns
// its path and a read-write handle closed at test cleanup.
func NewDB(t testing.TB) (string, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hawaii.sqlite")
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := schema.Bootstrap(context.Background(), db); err != nil {
		t.Fatalf("bootstrap fixture db: %v", err)
	}
	return path, db
}

func InsertStations(t testing.TB, db *sql.DB, stations ...Station) {
	t.Helper()
	for _, s := range stations {
		_, err := db.Exec(
			`INSERT INTO station (station, name, latitude, longitude, elevation) VALUES (?, ?, ?, ?, ?)`,
			s.Station, s.Name, s.Latitude, s.Longitude, s.Elevation,
		)
		if err != nil {
			t.Fatalf("insert station %s: %v", s.Station, err)
		}
	}
}

func InsertMeasurements(t testing.TB, db *sql.DB, ms ...Measurement) {
	t.Helper()
	for _, m := range ms {
		_, err := db.Exec(
			`INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`,
			m.Station, m.Date, m.Prcp, m.Tobs,
		)
		if err != nil {
			t.Fatalf("insert measurement %s/%s: %v", m.Station, m.Date, err)
		}
	}
}

// Stations mirrors three rows of the Hawaii station table.
var Stations = []Station{
	{Station: "USC00519397", Name: "WAIKIKI 717.2, HI US", Latitude: 21.2716, Longitude: -157.8168, Elevation: 3.0},
	{Station: "USC00513117", Name: "KANEOHE 838.1, HI US", Latitude: 21.4234, Longitude: -157.8015, Elevation: 14.6},
	{Station: "USC00519281", Name: "WAIHEE 837.5, HI US", Latitude: 21.45167, Longitude: -157.84889, Elevation: 32.9},
}
