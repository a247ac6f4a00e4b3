package flight

import (
	"math"

	"dronenav/pkg/geo"
)

// Search tracks one spiral search around the point where the current segment began.
type Search struct {
	Center         geo.Point
	Radius         float64
	Angle          float64
	SegmentElapsed float64
	TotalElapsed   float64
	MatchTimer     float64
}

// Vehicle is the mutable vehicle state. Timers are simulation seconds.
type Vehicle struct {
	Lat      float64
	Lon      float64
	Altitude float64
	Heading  float64
	Velocity float64
	Battery  float64
	State    State

	Search Search

	HoverTimer      float64
	MatchFoundTimer float64
	// MatchAttempted debounces localization to one attempt per hover episode.
	MatchAttempted bool
}

// NewVehicle returns a full-battery vehicle on the ground at pos.
func NewVehicle(pos geo.Point) Vehicle {
	return Vehicle{
		Lat:     pos.Lat,
		Lon:     pos.Lon,
		Battery: 100,
		State:   StateIdle,
	}
}

// Position returns the current horizontal position.
func (v *Vehicle) Position() geo.Point {
	return geo.Point{Lat: v.Lat, Lon: v.Lon}
}

// moveToward advances up to step meters toward target along the initial bearing.
func (v *Vehicle) moveToward(target geo.Point, step float64) {
	pos := v.Position()
	d := geo.Distance(pos, target)
	if d == 0 || step <= 0 {
		return
	}
	v.Heading = geo.Bearing(pos, target)
	if step >= d {
		v.Lat, v.Lon = target.Lat, target.Lon
		return
	}
	next := geo.DestinationPoint(pos, step, v.Heading)
	v.Lat, v.Lon = next.Lat, next.Lon
}

func (v *Vehicle) drainBattery(rate, dt float64) {
	v.Battery = math.Max(0, v.Battery-rate*dt)
}

func (v *Vehicle) clamp() {
	if v.Altitude < 0 {
		v.Altitude = 0
	}
	if v.Battery > 100 {
		v.Battery = 100
	}
	v.Heading = geo.NormalizeHeading(v.Heading)
}
