// Package nav tracks progress of the vehicle along an ordered route of waypoints.
package nav

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"dronenav/pkg/geo"
)

var (
	// ErrRouteTooShort is returned for routes without a start and at least one destination.
	ErrRouteTooShort = errors.New("route requires at least a start and a destination")
	// ErrInvalidCoordinate is returned for waypoints outside the valid lat/lon range.
	ErrInvalidCoordinate = errors.New("invalid waypoint coordinate")
)

// Waypoint is a named geographic point on a route.
type Waypoint struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Point returns the waypoint position.
func (w Waypoint) Point() geo.Point {
	return geo.Point{Lat: w.Lat, Lon: w.Lon}
}

// Route is an ordered sequence of waypoints in flight order.
type Route []Waypoint

// Clone returns a copy that does not share the backing array.
func (r Route) Clone() Route {
	if r == nil {
		return nil
	}
	out := make(Route, len(r))
	copy(out, r)
	return out
}

// Validate checks that a mission route has a start plus at least one destination
// and that every coordinate is finite and in range.
func (r Route) Validate() error {
	if len(r) < 2 {
		return fmt.Errorf("%w: got %d waypoint(s)", ErrRouteTooShort, len(r))
	}
	for i, wp := range r {
		if math.IsNaN(wp.Lat) || math.IsNaN(wp.Lon) ||
			wp.Lat < -90 || wp.Lat > 90 || wp.Lon < -180 || wp.Lon > 180 {
			return fmt.Errorf("%w: waypoint %d (%q) at %v,%v", ErrInvalidCoordinate, i, wp.Name, wp.Lat, wp.Lon)
		}
	}
	return nil
}

// LoadRoute reads a JSON array of {name, lat, lon} objects and validates it.
func LoadRoute(path string) (Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route file: %w", err)
	}
	var r Route
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse route file: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
