package flight

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for an event that is not legal in the current state.
var ErrInvalidTransition = errors.New("invalid state transition")

// Event drives a state change.
type Event string

const (
	EventLaunch            Event = "launch"
	EventCruiseReached     Event = "cruise_reached"
	EventArrived           Event = "arrived"
	EventMatchSucceeded    Event = "match_succeeded"
	EventMatchFailed       Event = "match_failed"
	EventSegmentElapsed    Event = "segment_elapsed"
	EventSearchExhausted   Event = "search_exhausted"
	EventWaypointConfirmed Event = "waypoint_confirmed"
	EventFinalConfirmed    Event = "final_confirmed"
	EventReturnHome        Event = "return_home"
	EventHomeReached       Event = "home_reached"
	EventRouteCompleted    Event = "route_completed"
	EventTouchdown         Event = "touchdown"
)

var transitions = map[State]map[Event]State{
	StateIdle: {
		EventLaunch: StateTakingOff,
	},
	StateTakingOff: {
		EventCruiseReached: StateNavigating,
	},
	StateNavigating: {
		EventArrived:        StateHovering,
		EventRouteCompleted: StateLanding,
	},
	StateHovering: {
		EventMatchSucceeded: StateMatchFound,
		EventMatchFailed:    StateSearching,
	},
	StateSearching: {
		EventMatchSucceeded:  StateMatchFound,
		EventSegmentElapsed:  StateHovering,
		EventSearchExhausted: StateReturnHome,
	},
	StateMatchFound: {
		EventWaypointConfirmed: StateNavigating,
		EventFinalConfirmed:    StateLanding,
		EventReturnHome:        StateReturnHome,
	},
	StateReturnHome: {
		EventHomeReached:    StateLanding,
		EventRouteCompleted: StateLanding,
	},
	StateLanding: {
		EventTouchdown: StateLanded,
	},
	StateLanded: {},
}

// Transition returns the state reached from s on e. Illegal pairs return s
// unchanged together with ErrInvalidTransition.
func Transition(s State, e Event) (State, error) {
	next, ok := transitions[s][e]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
	}
	return next, nil
}
