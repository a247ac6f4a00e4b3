package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dronenav/pkg/db"
	"dronenav/pkg/flight"
	"dronenav/pkg/vision"
)

// SQLiteStore implements FlightStore.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Flights ---

func (s *SQLiteStore) StartFlight(ctx context.Context, f *FlightRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flights (id, route, home_name, waypoints, started_at) VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.Route, f.HomeName, f.Waypoints, f.StartedAt.UTC())
	return err
}

func (s *SQLiteStore) FinishFlight(ctx context.Context, id string, state flight.State, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE flights SET finished_at = ?, final_state = ? WHERE id = ?`,
		at.UTC(), string(state), id)
	return err
}

func (s *SQLiteStore) GetFlight(ctx context.Context, id string) (*FlightRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, route, home_name, waypoints, started_at, finished_at, final_state FROM flights WHERE id = ?`, id)
	f, err := scanFlight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

func (s *SQLiteStore) ListFlights(ctx context.Context, limit int) ([]FlightRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, route, home_name, waypoints, started_at, finished_at, final_state
		 FROM flights ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FlightRecord
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFlight(r scanner) (*FlightRecord, error) {
	var f FlightRecord
	var route, home, final sql.NullString
	var finished sql.NullTime
	if err := r.Scan(&f.ID, &route, &home, &f.Waypoints, &f.StartedAt, &finished, &final); err != nil {
		return nil, err
	}
	f.Route = route.String
	f.HomeName = home.String
	f.FinalState = final.String
	if finished.Valid {
		t := finished.Time
		f.FinishedAt = &t
	}
	return &f, nil
}

// --- Telemetry ---

func (s *SQLiteStore) AppendTelemetry(ctx context.Context, flightID string, seq int64, snap *flight.Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO telemetry (flight_id, seq, sim_time, lat, lon, altitude, heading, velocity, battery, state, waypoint_index, distance)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		flightID, seq, snap.Elapsed, snap.Lat, snap.Lon, snap.Altitude, snap.Heading,
		snap.Velocity, snap.Battery, string(snap.State), snap.WaypointIndex, nullFloat(snap.Distance))
	return err
}

func (s *SQLiteStore) GetTelemetry(ctx context.Context, flightID string) ([]TelemetryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, sim_time, lat, lon, altitude, heading, velocity, battery, state, waypoint_index, distance
		 FROM telemetry WHERE flight_id = ? ORDER BY seq`, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TelemetryRecord
	for rows.Next() {
		var rec TelemetryRecord
		var state string
		var dist sql.NullFloat64
		snap := &rec.Snapshot
		if err := rows.Scan(&rec.Seq, &snap.Elapsed, &snap.Lat, &snap.Lon, &snap.Altitude, &snap.Heading,
			&snap.Velocity, &snap.Battery, &state, &snap.WaypointIndex, &dist); err != nil {
			return nil, err
		}
		snap.State = flight.State(state)
		snap.BatteryStatus = flight.BatteryBand(snap.Battery)
		if dist.Valid {
			d := dist.Float64
			snap.Distance = &d
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// --- Match attempts ---

func (s *SQLiteStore) AppendAttempt(ctx context.Context, flightID string, a *AttemptRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_attempts (flight_id, sim_time, waypoint_index, reference_index, state, success, confidence, matches, lat, lon)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		flightID, a.SimTime, a.Attempt.WaypointIndex, a.Attempt.ReferenceIndex, string(a.Attempt.State),
		a.Attempt.Result.Success, a.Attempt.Result.Confidence, a.Attempt.Result.Matches, a.Lat, a.Lon)
	return err
}

func (s *SQLiteStore) GetAttempts(ctx context.Context, flightID string) ([]AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sim_time, waypoint_index, reference_index, state, success, confidence, matches, lat, lon
		 FROM match_attempts WHERE flight_id = ? ORDER BY id`, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var rec AttemptRecord
		var state string
		var res vision.Result
		if err := rows.Scan(&rec.SimTime, &rec.Attempt.WaypointIndex, &rec.Attempt.ReferenceIndex, &state,
			&res.Success, &res.Confidence, &res.Matches, &rec.Lat, &rec.Lon); err != nil {
			return nil, err
		}
		rec.Attempt.State = flight.State(state)
		rec.Attempt.Result = res
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
