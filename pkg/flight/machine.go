package flight

import (
	"image"
	"log/slog"

	"dronenav/pkg/geo"
	"dronenav/pkg/logging"
	"dronenav/pkg/nav"
	"dronenav/pkg/vision"
)

// Navigator is the route-following view the machine needs.
type Navigator interface {
	Status() nav.Status
	Index() int
	IsFinalWaypoint() bool
	AdvanceWaypoint()
	SetRoute(route nav.Route, policy nav.StartPolicy)
}

// Localizer scores a live frame against the reference for a waypoint.
type Localizer interface {
	MatchWaypoint(live image.Image, refIdx int) vision.Result
}

// EvidenceLocalizer is a Localizer that can also hand back what a decision was
// drawn from. Attempt hooks receive the evidence when the localizer offers it.
type EvidenceLocalizer interface {
	Localizer
	MatchEvidence(live image.Image, refIdx int) (vision.Result, *vision.Evidence)
}

// Camera produces the live frame for the current vehicle state.
type Camera interface {
	Capture(s Snapshot) image.Image
}

// CameraFunc adapts a function to Camera.
type CameraFunc func(s Snapshot) image.Image

// Capture calls f(s).
func (f CameraFunc) Capture(s Snapshot) image.Image {
	return f(s)
}

// Attempt records one localization attempt.
type Attempt struct {
	WaypointIndex  int           `json:"waypoint_index"`
	ReferenceIndex int           `json:"reference_index"`
	State          State         `json:"state"`
	Result         vision.Result `json:"result"`
}

// AttemptHook observes every attempt. ev is nil unless the localizer is an
// EvidenceLocalizer and the attempt had a frame to score. The hook runs on the
// tick goroutine and must not block.
type AttemptHook func(a Attempt, ev *vision.Evidence)

// Machine advances the vehicle one tick at a time.
type Machine struct {
	params  Params
	vehicle Vehicle
	home    nav.Waypoint
	loc     Localizer
	cam     Camera
	hook    AttemptHook
	logger  *slog.Logger

	elapsed        float64
	lastConfidence float64
	lastAttempt    *Attempt
}

// NewMachine returns an IDLE machine positioned at home. loc and cam may be nil,
// in which case every localization attempt fails.
func NewMachine(p Params, home nav.Waypoint, loc Localizer, cam Camera, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		params:  p,
		vehicle: NewVehicle(home.Point()),
		home:    home,
		loc:     loc,
		cam:     cam,
		logger:  logger,
	}
}

// SetAttemptHook registers fn to observe localization attempts.
func (m *Machine) SetAttemptHook(fn AttemptHook) {
	m.hook = fn
}

// Params returns the machine's parameters.
func (m *Machine) Params() Params {
	return m.params
}

// State returns the current flight state.
func (m *Machine) State() State {
	return m.vehicle.State
}

// Vehicle returns a copy of the vehicle state.
func (m *Machine) Vehicle() Vehicle {
	return m.vehicle
}

// Home returns the waypoint the abort route returns to.
func (m *Machine) Home() nav.Waypoint {
	return m.home
}

// Elapsed returns the simulation time accumulated by Update.
func (m *Machine) Elapsed() float64 {
	return m.elapsed
}

// Launch starts the takeoff from IDLE.
func (m *Machine) Launch() error {
	return m.fire(EventLaunch)
}

// Reset places a fresh vehicle at pos, ready to climb to cruiseAltitude.
func (m *Machine) Reset(pos geo.Point, cruiseAltitude float64) {
	m.params.CruiseAltitude = cruiseAltitude
	m.vehicle = NewVehicle(pos)
	m.vehicle.State = StateTakingOff
	m.elapsed = 0
	m.lastConfidence = 0
	m.lastAttempt = nil
	m.logger.Info("Vehicle reset", "lat", pos.Lat, "lon", pos.Lon, "cruise_alt", cruiseAltitude)
}

// Update advances the simulation by dt seconds. n must have been refreshed
// for the current position before the call.
func (m *Machine) Update(dt float64, n Navigator) {
	v := &m.vehicle
	if v.State == StateLanded || v.State == StateIdle || dt <= 0 {
		return
	}
	m.lastAttempt = nil
	m.elapsed += dt
	v.drainBattery(m.params.BatteryDrain, dt)

	switch v.State {
	case StateTakingOff:
		m.takeOff(dt)
	case StateNavigating:
		m.navigate(dt, n)
	case StateHovering:
		m.hover(dt, n)
	case StateSearching:
		m.search(dt, n)
	case StateMatchFound:
		m.confirm(dt, n)
	case StateReturnHome:
		m.returnHome(dt, n)
	case StateLanding:
		m.land(dt)
	}

	v.clamp()
	logging.Trace(m.logger, "Tick",
		"state", v.State,
		"lat", v.Lat,
		"lon", v.Lon,
		"alt", v.Altitude,
		"velocity", v.Velocity,
	)
}

func (m *Machine) takeOff(dt float64) {
	v := &m.vehicle
	v.Velocity = 0
	v.Altitude += m.params.AscentRate * dt
	if v.Altitude >= m.params.CruiseAltitude {
		v.Altitude = m.params.CruiseAltitude
		m.mustFire(EventCruiseReached)
	}
}

func (m *Machine) navigate(dt float64, n Navigator) {
	st := n.Status()
	if st.ReachedDestination {
		m.mustFire(EventRouteCompleted)
		return
	}
	if st.Distance == nil {
		m.vehicle.Velocity = 0
		return
	}
	if *st.Distance < m.params.ArrivalThreshold {
		m.vehicle.Velocity = 0
		m.vehicle.HoverTimer = 0
		m.vehicle.MatchAttempted = false
		m.vehicle.Search.reset()
		m.mustFire(EventArrived)
		m.logger.Info("Arrived at waypoint", "index", n.Index(), "distance", *st.Distance)
		return
	}
	m.cruise(dt, st)
}

// cruise flies along the navigator bearing with braking near the target.
func (m *Machine) cruise(dt float64, st nav.Status) {
	v := &m.vehicle
	d := *st.Distance
	if st.Bearing != nil {
		v.Heading = *st.Bearing
	}
	v.Velocity = BrakingVelocity(d, m.params.CruiseVelocity, m.params.BrakingDistance, m.params.MinVelocity)
	step := min(v.Velocity*dt, d)
	next := geo.DestinationPoint(v.Position(), step, v.Heading)
	v.Lat, v.Lon = next.Lat, next.Lon
}

func (m *Machine) hover(dt float64, n Navigator) {
	v := &m.vehicle
	v.Velocity = 0
	v.HoverTimer += dt
	if v.MatchAttempted || v.HoverTimer < m.params.HoverDwell.Seconds() {
		return
	}
	v.MatchAttempted = true

	if res := m.attempt(n); res.Success {
		m.matchFound()
		return
	}
	v.Search.startSegment(v.Position(), m.params.SearchInitialRadius)
	m.mustFire(EventMatchFailed)
	m.logger.Info("No match while hovering, searching", "index", n.Index(), "search_total", v.Search.TotalElapsed)
}

func (m *Machine) search(dt float64, n Navigator) {
	v := &m.vehicle
	s := &v.Search
	s.TotalElapsed += dt
	s.SegmentElapsed += dt

	if s.TotalElapsed > m.params.SearchFailsafe.Seconds() {
		m.abort(n)
		return
	}
	if s.SegmentElapsed > m.params.SearchSegment.Seconds() {
		s.SegmentElapsed = 0
		v.HoverTimer = 0
		v.MatchAttempted = false
		v.Velocity = 0
		m.mustFire(EventSegmentElapsed)
		return
	}

	target := s.advance(m.params, dt)
	v.Velocity = m.params.SearchVelocity
	v.moveToward(target, m.params.SearchVelocity*dt)

	s.MatchTimer += dt
	if s.MatchTimer < m.params.SearchMatchInterval.Seconds() {
		return
	}
	s.MatchTimer = 0
	if res := m.attempt(n); res.Success {
		m.matchFound()
	}
}

// abort replaces the route with the home waypoint and flies back.
func (m *Machine) abort(n Navigator) {
	v := &m.vehicle
	m.logger.Warn("Search failsafe triggered, returning home",
		"index", n.Index(),
		"search_total", v.Search.TotalElapsed,
		"home", m.home.Name,
	)
	v.Search.reset()
	n.SetRoute(nav.Route{m.home}, nav.FromStart)
	m.mustFire(EventSearchExhausted)
}

func (m *Machine) matchFound() {
	v := &m.vehicle
	v.Velocity = 0
	v.MatchFoundTimer = 0
	v.Search.reset()
	m.mustFire(EventMatchSucceeded)
}

func (m *Machine) confirm(dt float64, n Navigator) {
	v := &m.vehicle
	v.Velocity = 0
	v.MatchFoundTimer += dt
	if v.MatchFoundTimer < m.params.MatchDwell.Seconds() {
		return
	}

	if !n.IsFinalWaypoint() {
		n.AdvanceWaypoint()
		m.mustFire(EventWaypointConfirmed)
		m.logger.Info("Waypoint confirmed", "next_index", n.Index())
		return
	}
	if m.params.ReturnHomeAfterFinal {
		n.SetRoute(nav.Route{m.home}, nav.FromStart)
		m.mustFire(EventReturnHome)
		m.logger.Info("Final waypoint confirmed, returning home", "home", m.home.Name)
		return
	}
	n.AdvanceWaypoint()
	m.mustFire(EventFinalConfirmed)
	m.logger.Info("Final waypoint confirmed, landing")
}

func (m *Machine) returnHome(dt float64, n Navigator) {
	st := n.Status()
	if st.ReachedDestination {
		m.vehicle.Velocity = 0
		m.mustFire(EventRouteCompleted)
		return
	}
	if st.Distance == nil {
		m.vehicle.Velocity = 0
		return
	}
	if *st.Distance < m.params.ArrivalThreshold {
		m.vehicle.Velocity = 0
		n.AdvanceWaypoint()
		m.mustFire(EventHomeReached)
		m.logger.Info("Home reached, landing", "distance", *st.Distance)
		return
	}
	m.cruise(dt, st)
}

func (m *Machine) land(dt float64) {
	v := &m.vehicle
	v.Velocity = 0
	v.Altitude -= m.params.DescentRate * dt
	if v.Altitude <= m.params.TouchdownAltitude {
		v.Altitude = 0
		m.mustFire(EventTouchdown)
	}
}

// attempt captures a frame and localizes it against the active waypoint's reference.
func (m *Machine) attempt(n Navigator) vision.Result {
	idx := n.Index()
	a := Attempt{
		WaypointIndex:  idx,
		ReferenceIndex: idx - 1,
		State:          m.vehicle.State,
	}

	var ev *vision.Evidence
	if m.cam != nil && m.loc != nil {
		live := m.cam.Capture(m.Snapshot(n))
		if el, ok := m.loc.(EvidenceLocalizer); ok && m.hook != nil {
			a.Result, ev = el.MatchEvidence(live, a.ReferenceIndex)
		} else {
			a.Result = m.loc.MatchWaypoint(live, a.ReferenceIndex)
		}
	}

	m.lastConfidence = a.Result.Confidence
	m.lastAttempt = &a
	if m.hook != nil {
		m.hook(a, ev)
	}
	m.logger.Debug("Localization attempt",
		"state", a.State,
		"ref", a.ReferenceIndex,
		"success", a.Result.Success,
		"confidence", a.Result.Confidence,
		"matches", a.Result.Matches,
	)
	return a.Result
}

func (m *Machine) fire(e Event) error {
	next, err := Transition(m.vehicle.State, e)
	if err != nil {
		return err
	}
	m.logger.Info("Flight state changed", "from", m.vehicle.State, "to", next, "event", e)
	m.vehicle.State = next
	return nil
}

// mustFire applies an event the tick logic guarantees to be legal.
func (m *Machine) mustFire(e Event) {
	if err := m.fire(e); err != nil {
		m.logger.Error("Flight state machine rejected event", "error", err)
	}
}
