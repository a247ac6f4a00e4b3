// Package flight implements the vision-confirmed waypoint flight state machine.
package flight

// State is the vehicle's flight phase.
type State string

const (
	StateIdle       State = "IDLE"
	StateTakingOff  State = "TAKING_OFF"
	StateNavigating State = "NAVIGATING"
	StateHovering   State = "HOVERING"
	StateSearching  State = "SEARCHING"
	StateMatchFound State = "MATCH_FOUND"
	StateReturnHome State = "RETURN_HOME"
	StateLanding    State = "LANDING"
	StateLanded     State = "LANDED"
)

// States lists every state in lifecycle order.
var States = []State{
	StateIdle,
	StateTakingOff,
	StateNavigating,
	StateHovering,
	StateSearching,
	StateMatchFound,
	StateReturnHome,
	StateLanding,
	StateLanded,
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Airborne reports whether the vehicle is off the ground in state s.
func (s State) Airborne() bool {
	switch s {
	case StateIdle, StateLanded:
		return false
	}
	return s.Valid()
}

// BatteryStatus is the coarse battery band reported in telemetry.
type BatteryStatus string

const (
	BatteryOK       BatteryStatus = "OK"
	BatteryLow      BatteryStatus = "LOW"
	BatteryCritical BatteryStatus = "CRITICAL"
)

// BatteryBand classifies a battery percentage.
func BatteryBand(pct float64) BatteryStatus {
	switch {
	case pct > 50:
		return BatteryOK
	case pct > 20:
		return BatteryLow
	default:
		return BatteryCritical
	}
}
