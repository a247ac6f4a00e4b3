package nav

import (
	"log/slog"

	"dronenav/pkg/geo"
)

// DefaultArrivalThreshold is the distance in meters under which a waypoint counts as reached.
const DefaultArrivalThreshold = 5.0

// StartPolicy selects the route index a freshly assigned route starts from.
type StartPolicy int

const (
	// SkipStart begins at index 1: the first waypoint is the launch position.
	SkipStart StartPolicy = iota
	// FromStart begins at index 0, e.g. for a single-waypoint return-home route.
	FromStart
)

func (p StartPolicy) String() string {
	if p == FromStart {
		return "from_start"
	}
	return "skip_start"
}

func (p StartPolicy) index() int {
	if p == FromStart {
		return 0
	}
	return 1
}

// Status is the per-tick navigation solution. Nil Distance/Bearing mean there is no active target.
type Status struct {
	Distance           *float64 `json:"distance,omitempty"`
	Bearing            *float64 `json:"bearing,omitempty"`
	ReachedDestination bool     `json:"reached_destination"`
}

// Navigator computes distance and bearing to the active waypoint of a route.
// It is not safe for concurrent use; the tick loop owns it.
type Navigator struct {
	route     Route
	index     int
	reached   bool
	threshold float64
	status    Status
	logger    *slog.Logger
}

// New creates a navigator for route starting according to policy.
// A non-positive threshold selects DefaultArrivalThreshold.
func New(route Route, policy StartPolicy, threshold float64, logger *slog.Logger) *Navigator {
	if threshold <= 0 {
		threshold = DefaultArrivalThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	n := &Navigator{threshold: threshold, logger: logger}
	n.assign(route, policy)
	n.logger.Info("Navigator initialized", "waypoints", len(route), "policy", policy.String())
	return n
}

func (n *Navigator) assign(route Route, policy StartPolicy) {
	n.route = route.Clone()
	n.index = policy.index()
	n.reached = n.index >= len(n.route)
	n.status = Status{ReachedDestination: n.reached}
}

// Update recomputes distance and bearing from pos to the active waypoint.
func (n *Navigator) Update(pos geo.Point) {
	if n.reached || len(n.route) == 0 || n.index >= len(n.route) {
		n.status = Status{ReachedDestination: n.reached}
		return
	}

	target := n.route[n.index].Point()
	dist := geo.Distance(pos, target)
	brg := geo.Bearing(pos, target)

	// A lone waypoint (home-only route) already underfoot is reached immediately.
	if len(n.route) == 1 && dist < n.threshold {
		n.reached = true
		n.status = Status{ReachedDestination: true}
		n.logger.Info("Reached single-waypoint destination", "name", n.route[0].Name)
		return
	}

	n.status = Status{Distance: &dist, Bearing: &brg}
}

// AdvanceWaypoint moves to the next waypoint. Passing the last index marks the route completed;
// once completed, further calls have no effect.
func (n *Navigator) AdvanceWaypoint() {
	if n.reached {
		return
	}
	n.index++
	if n.index >= len(n.route) {
		n.index = len(n.route) - 1
		if n.index < 0 {
			n.index = 0
		}
		n.reached = true
		n.status = Status{ReachedDestination: true}
		n.logger.Info("Final waypoint reached")
		return
	}
	n.logger.Info("Advanced to next waypoint", "index", n.index, "name", n.route[n.index].Name)
}

// SetRoute replaces the route and resets progress according to policy.
func (n *Navigator) SetRoute(route Route, policy StartPolicy) {
	n.assign(route, policy)
	n.logger.Info("New route set", "waypoints", len(route), "policy", policy.String())
}

// IsFinalWaypoint reports whether the active index is the last one of the route.
func (n *Navigator) IsFinalWaypoint() bool {
	return len(n.route) > 0 && n.index == len(n.route)-1
}

// Index returns the active route index.
func (n *Navigator) Index() int { return n.index }

// Route returns a copy of the current route.
func (n *Navigator) Route() Route { return n.route.Clone() }

// Current returns the active waypoint, if any.
func (n *Navigator) Current() (Waypoint, bool) {
	if n.index < 0 || n.index >= len(n.route) {
		return Waypoint{}, false
	}
	return n.route[n.index], true
}

// Status returns the navigation solution from the last Update.
func (n *Navigator) Status() Status { return n.status }

// Threshold returns the arrival threshold in meters.
func (n *Navigator) Threshold() float64 { return n.threshold }
