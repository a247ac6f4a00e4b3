package store

import (
	"context"
	"time"

	"dronenav/pkg/flight"
)

// FlightRecord is one row of the flights table.
type FlightRecord struct {
	ID         string     `json:"id"`
	Route      string     `json:"route"`
	HomeName   string     `json:"home_name"`
	Waypoints  int        `json:"waypoints"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	FinalState string     `json:"final_state,omitempty"`
}

// TelemetryRecord is one sampled telemetry row.
type TelemetryRecord struct {
	Seq      int64           `json:"seq"`
	Snapshot flight.Snapshot `json:"snapshot"`
}

// AttemptRecord is one localization attempt with the position it was made at.
type AttemptRecord struct {
	SimTime float64        `json:"sim_time"`
	Lat     float64        `json:"lat"`
	Lon     float64        `json:"lon"`
	Attempt flight.Attempt `json:"attempt"`
}

// FlightStore persists flights, their sampled telemetry and match attempts.
type FlightStore interface {
	StartFlight(ctx context.Context, f *FlightRecord) error
	FinishFlight(ctx context.Context, id string, state flight.State, at time.Time) error
	AppendTelemetry(ctx context.Context, flightID string, seq int64, s *flight.Snapshot) error
	AppendAttempt(ctx context.Context, flightID string, a *AttemptRecord) error

	GetFlight(ctx context.Context, id string) (*FlightRecord, error)
	ListFlights(ctx context.Context, limit int) ([]FlightRecord, error)
	GetTelemetry(ctx context.Context, flightID string) ([]TelemetryRecord, error)
	GetAttempts(ctx context.Context, flightID string) ([]AttemptRecord, error)

	Close() error
}
