package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/weatherdash/weatherdash/internal/weather"
)

var (
	// ErrNotFound is returned when no observation exists for a given cell.
	ErrNotFound = errors.New("no observations for cell")
)

const observationColumns = "id, lat, lon, observed_at, temperature_c, wind_speed_ms, pressure_hpa, humidity_pct, source, raw"

// SQLiteStore persists observations in a single append-only table with a
// uniqueness constraint on (lat, lon, observed_at).
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) the observation database at path.
// Concurrent refresh tasks write through the same file, so WAL mode and a
// busy timeout are enabled up front.
func Open(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// initDB creates the observations table and its indexes.
func (s *SQLiteStore) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS observations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			observed_at TIMESTAMP NOT NULL,
			temperature_c REAL,
			wind_speed_ms REAL,
			pressure_hpa REAL,
			humidity_pct REAL,
			source TEXT NOT NULL,
			raw TEXT,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (lat, lon, observed_at)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create observations table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_observed_at ON observations(observed_at)`)
	if err != nil {
		return fmt.Errorf("failed to create observed_at index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_cell ON observations(lat, lon, observed_at)`)
	if err != nil {
		return fmt.Errorf("failed to create cell index: %w", err)
	}

	return nil
}

// Insert writes one observation and reports whether a row was actually
// written. A (cell, observed_at) collision is absorbed by the conflict
// clause and reported as false, never as an error.
func (s *SQLiteStore) Insert(ctx context.Context, obs weather.Observation) (bool, error) {
	var raw interface{}
	if len(obs.Raw) > 0 {
		raw = string(obs.Raw)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO observations
		(lat, lon, observed_at, temperature_c, wind_speed_ms, pressure_hpa, humidity_pct, source, raw, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (lat, lon, observed_at) DO NOTHING`,
		obs.Cell.Lat,
		obs.Cell.Lon,
		obs.ObservedAt.UTC().Format(time.RFC3339),
		obs.TemperatureC,
		obs.WindSpeedMS,
		obs.PressureHpa,
		obs.HumidityPct,
		obs.Source,
		raw,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert observation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// Latest returns the most recent observation for a cell.
func (s *SQLiteStore) Latest(ctx context.Context, cell weather.Cell) (weather.Observation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+observationColumns+` FROM observations
		WHERE lat = ? AND lon = ?
		ORDER BY observed_at DESC LIMIT 1`,
		cell.Lat, cell.Lon,
	)

	obs, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Observation{}, ErrNotFound
	}
	if err != nil {
		return weather.Observation{}, fmt.Errorf("failed to query latest observation: %w", err)
	}
	return obs, nil
}

// Recent returns up to limit observations for a cell, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, cell weather.Cell, limit int) ([]weather.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+observationColumns+` FROM observations
		WHERE lat = ? AND lon = ?
		ORDER BY observed_at DESC LIMIT ?`,
		cell.Lat, cell.Lon, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent observations: %w", err)
	}
	defer rows.Close()

	return collectObservations(rows)
}

// Range returns observations for a cell between from and to (inclusive),
// oldest first.
func (s *SQLiteStore) Range(ctx context.Context, cell weather.Cell, from, to time.Time) ([]weather.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+observationColumns+` FROM observations
		WHERE lat = ? AND lon = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC`,
		cell.Lat, cell.Lon,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query observation range: %w", err)
	}
	defer rows.Close()

	return collectObservations(rows)
}

// Timestamps returns the observed_at values stored for a cell between from
// and to (inclusive).
func (s *SQLiteStore) Timestamps(ctx context.Context, cell weather.Cell, from, to time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT observed_at FROM observations
		WHERE lat = ? AND lon = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC`,
		cell.Lat, cell.Lon,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query timestamps: %w", err)
	}
	defer rows.Close()

	var result []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan timestamp: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored timestamp %q: %w", raw, err)
		}
		result = append(result, ts.UTC())
	}
	return result, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanObservation(row scanner) (weather.Observation, error) {
	var (
		obs        weather.Observation
		observedAt string
		raw        sql.NullString
	)
	err := row.Scan(
		&obs.ID,
		&obs.Cell.Lat,
		&obs.Cell.Lon,
		&observedAt,
		&obs.TemperatureC,
		&obs.WindSpeedMS,
		&obs.PressureHpa,
		&obs.HumidityPct,
		&obs.Source,
		&raw,
	)
	if err != nil {
		return weather.Observation{}, err
	}

	ts, err := time.Parse(time.RFC3339, observedAt)
	if err != nil {
		return weather.Observation{}, fmt.Errorf("failed to parse stored timestamp %q: %w", observedAt, err)
	}
	obs.ObservedAt = ts.UTC()

	if raw.Valid {
		obs.Raw = []byte(raw.String)
	}
	return obs, nil
}

func collectObservations(rows *sql.Rows) ([]weather.Observation, error) {
	var result []weather.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		result = append(result, obs)
	}
	return result, rows.Err()
}
