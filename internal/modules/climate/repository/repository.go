package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"climate-server/internal/config"
	"climate-server/internal/modules/climate/types"
	"climate-server/internal/observability"
)

//go:embed sql/get-latest-date.sql
var getLatestDateSQL string

//go:embed sql/get-precipitation.sql
var getPrecipitationSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-most-active-station.sql
var getMostActiveStationSQL string

//go:embed sql/get-station-temperature-stats.sql
var getStationTemperatureStatsSQL string

//go:embed sql/get-station-temperatures.sql
var getStationTemperaturesSQL string

//go:embed sql/get-temperature-stats-from.sql
var getTemperatureStatsFromSQL string

//go:embed sql/get-temperature-stats-range.sql
var getTemperatureStatsRangeSQL string

// TrailingWindowDays is the length of the window ending at the reference date.
const TrailingWindowDays = 365

// ErrNoObservations means the measurement table is empty, so there is no
// most active station to report on.
var ErrNoObservations = errors.New("no observations in store")

type ClimateRepository interface {
	GetPrecipitation(ctx context.Context) ([]types.Precipitation, error)
	GetStations(ctx context.Context) ([]types.Station, error)
	GetActiveStationTemperatures(ctx context.Context) (types.ActiveStation, []types.TemperatureObservation, error)
	GetTemperatureStats(ctx context.Context, r types.DateRange) (types.TemperatureStats, error)
}

// Sessioner runs a unit of work on one pooled connection.
type Sessioner interface {
	Do(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error
}

type Option func(*repositoryImpl)

// WithReferenceDate pins the end of the trailing window instead of using
// the most recent measurement date.
func WithReferenceDate(d time.Time) Option {
	return func(r *repositoryImpl) { r.referenceDate = d }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(r *repositoryImpl) { r.metrics = m }
}

type repositoryImpl struct {
	sessions      Sessioner
	referenceDate time.Time
	metrics       *observability.Metrics
}

func NewRepository(sessions Sessioner, opts ...Option) ClimateRepository {
	r := &repositoryImpl{sessions: sessions}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *repositoryImpl) GetPrecipitation(ctx context.Context) (out []types.Precipitation, err error) {
	defer r.observe("precipitation", time.Now(), &err)

	out = make([]types.Precipitation, 0)
	err = r.sessions.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		w, ok, err := r.window(ctx, conn)
		if err != nil || !ok {
			return err
		}
		rows, err := conn.QueryContext(ctx, getPrecipitationSQL, w.start, w.before)
		if err != nil {
			return fmt.Errorf("query precipitation: %w", err)
		}
		defer closeRows(rows, "precipitation")
		for rows.Next() {
			var p types.Precipitation
			if err := rows.Scan(&p.Date, &p.Amount); err != nil {
				return fmt.Errorf("scan precipitation: %w", err)
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repositoryImpl) GetStations(ctx context.Context) (out []types.Station, err error) {
	defer r.observe("stations", time.Now(), &err)

	out = make([]types.Station, 0)
	err = r.sessions.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, getStationsSQL)
		if err != nil {
			return fmt.Errorf("query stations: %w", err)
		}
		defer closeRows(rows, "stations")
		for rows.Next() {
			var s types.Station
			if err := rows.Scan(&s.Station, &s.Name, &s.Latitude, &s.Longitude, &s.Elevation); err != nil {
				return fmt.Errorf("scan station: %w", err)
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repositoryImpl) GetActiveStationTemperatures(ctx context.Context) (active types.ActiveStation, out []types.TemperatureObservation, err error) {
	defer r.observe("active_station_temperatures", time.Now(), &err)

	out = make([]types.TemperatureObservation, 0)
	err = r.sessions.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, getMostActiveStationSQL).Scan(&active.Station, &active.Count)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoObservations
		}
		if err != nil {
			return fmt.Errorf("query most active station: %w", err)
		}

		active.Stats, err = scanStats(conn.QueryRowContext(ctx, getStationTemperatureStatsSQL, active.Station))
		if err != nil {
			return fmt.Errorf("query station %s temperature stats: %w", active.Station, err)
		}

		w, ok, err := r.window(ctx, conn)
		if err != nil || !ok {
			return err
		}
		rows, err := conn.QueryContext(ctx, getStationTemperaturesSQL, active.Station, w.start, w.before)
		if err != nil {
			return fmt.Errorf("query station %s temperatures: %w", active.Station, err)
		}
		defer closeRows(rows, "station temperatures")
		for rows.Next() {
			var (
				obs  types.TemperatureObservation
				tobs sql.NullFloat64
			)
			if err := rows.Scan(&obs.Date, &tobs); err != nil {
				return fmt.Errorf("scan temperature: %w", err)
			}
			obs.Temp = nullFloat(tobs)
			out = append(out, obs)
		}
		return rows.Err()
	})
	if err != nil {
		return types.ActiveStation{}, nil, err
	}
	return active, out, nil
}

func (r *repositoryImpl) GetTemperatureStats(ctx context.Context, dr types.DateRange) (stats types.TemperatureStats, err error) {
	defer r.observe("temperature_stats", time.Now(), &err)

	err = r.sessions.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		var row *sql.Row
		if dr.End.IsZero() {
			row = conn.QueryRowContext(ctx, getTemperatureStatsFromSQL, formatDate(dr.Start))
		} else {
			row = conn.QueryRowContext(ctx, getTemperatureStatsRangeSQL, formatDate(dr.Start), formatDate(dr.End.AddDate(0, 0, 1)))
		}
		var err error
		stats, err = scanStats(row)
		if err != nil {
			return fmt.Errorf("query temperature stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.TemperatureStats{}, err
	}
	return stats, nil
}

// dateWindow bounds the trailing window: date >= start AND date < before.
// before is the day after the reference date, so rows stored with a time
// suffix on the reference date still match.
type dateWindow struct {
	start  string
	before string
}

// window returns the trailing window ending at the reference date. ok is
// false when there is no reference date because the store holds no
// measurements.
func (r *repositoryImpl) window(ctx context.Context, conn *sql.Conn) (w dateWindow, ok bool, err error) {
	ref := r.referenceDate
	if ref.IsZero() {
		var latest sql.NullString
		if err := conn.QueryRowContext(ctx, getLatestDateSQL).Scan(&latest); err != nil {
			return dateWindow{}, false, fmt.Errorf("query latest date: %w", err)
		}
		if !latest.Valid {
			return dateWindow{}, false, nil
		}
		ref, err = parseDate(latest.String)
		if err != nil {
			return dateWindow{}, false, err
		}
	}
	return dateWindow{
		start:  formatDate(ref.AddDate(0, 0, -TrailingWindowDays)),
		before: formatDate(ref.AddDate(0, 0, 1)),
	}, true, nil
}

func (r *repositoryImpl) observe(query string, start time.Time, err *error) {
	if r.metrics == nil {
		return
	}
	r.metrics.QueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	if *err != nil {
		r.metrics.QueryErrors.WithLabelValues(query).Inc()
	}
}

func scanStats(row *sql.Row) (types.TemperatureStats, error) {
	var minT, avgT, maxT sql.NullFloat64
	if err := row.Scan(&minT, &avgT, &maxT); err != nil {
		return types.TemperatureStats{}, err
	}
	return types.TemperatureStats{
		Min: nullFloat(minT),
		Avg: nullFloat(avgT),
		Max: nullFloat(maxT),
	}, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// parseDate accepts a bare date or a value with a time suffix, as long as
// it starts with YYYY-MM-DD.
func parseDate(s string) (time.Time, error) {
	if len(s) > len(config.DateLayout) {
		s = s[:len(config.DateLayout)]
	}
	t, err := time.Parse(config.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse measurement date %q: %w", s, err)
	}
	return t, nil
}

func formatDate(t time.Time) string {
	return t.Format(config.DateLayout)
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Error("close rows", "query", what, "error", err)
	}
}
