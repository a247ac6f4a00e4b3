package flight

import "time"

// Params holds the vehicle performance envelope and mission timing.
type Params struct {
	CruiseVelocity   float64 // m/s
	SearchVelocity   float64 // m/s
	AscentRate       float64 // m/s
	DescentRate      float64 // m/s
	CruiseAltitude   float64 // m
	BrakingDistance  float64 // m
	MinVelocity      float64 // m/s, speed at zero remaining distance
	ArrivalThreshold float64 // m

	HoverDwell time.Duration
	MatchDwell time.Duration

	SearchInitialRadius float64 // m
	SearchRadiusGrowth  float64 // m/s
	SearchMaxRadius     float64 // m
	SearchAngularRate   float64 // deg/s
	SearchMatchInterval time.Duration
	SearchSegment       time.Duration
	SearchFailsafe      time.Duration

	BatteryDrain      float64 // percent per second
	TouchdownAltitude float64 // m

	// ReturnHomeAfterFinal flies back to the first waypoint after the last one is confirmed.
	ReturnHomeAfterFinal bool
}

// DefaultParams returns the stock quadcopter profile.
func DefaultParams() Params {
	return Params{
		CruiseVelocity:   15,
		SearchVelocity:   5,
		AscentRate:       5,
		DescentRate:      1.5,
		CruiseAltitude:   10,
		BrakingDistance:  30,
		MinVelocity:      3,
		ArrivalThreshold: 5,

		HoverDwell: 2 * time.Second,
		MatchDwell: 1 * time.Second,

		SearchInitialRadius: 5,
		SearchRadiusGrowth:  1,
		SearchMaxRadius:     20,
		SearchAngularRate:   60,
		SearchMatchInterval: 500 * time.Millisecond,
		SearchSegment:       5 * time.Second,
		SearchFailsafe:      30 * time.Second,

		BatteryDrain:      0.01,
		TouchdownAltitude: 0.1,
	}
}

// BrakingVelocity returns the commanded speed for the remaining distance:
// full cruise outside the braking zone, then a linear ramp down to floor.
func BrakingVelocity(distance, cruise, brakingDistance, floor float64) float64 {
	if distance >= brakingDistance || brakingDistance <= 0 {
		return cruise
	}
	if distance <= 0 {
		return floor
	}
	return floor + (cruise-floor)*distance/brakingDistance
}
