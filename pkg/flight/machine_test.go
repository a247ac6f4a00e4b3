package flight

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronenav/pkg/geo"
	"dronenav/pkg/nav"
	"dronenav/pkg/vision"
)

const dt = 1.0 / 30

var home = nav.Waypoint{Name: "Home", Lat: 51.5, Lon: -0.1}

func testRoute(n int) nav.Route {
	r := nav.Route{home}
	for i := 1; i <= n; i++ {
		p := geo.DestinationPoint(home.Point(), 100*float64(i), 90)
		r = append(r, nav.Waypoint{Name: "WP", Lat: p.Lat, Lon: p.Lon})
	}
	return r
}

type fakeLocalizer struct {
	calls   []int
	succeed func(call int) bool
}

func (f *fakeLocalizer) MatchWaypoint(_ image.Image, idx int) vision.Result {
	f.calls = append(f.calls, idx)
	if f.succeed != nil && f.succeed(len(f.calls)) {
		return vision.Result{Success: true, Confidence: 0.5, Matches: 50}
	}
	return vision.Result{Confidence: 0.05, Matches: 5}
}

var blankCamera = CameraFunc(func(Snapshot) image.Image {
	return image.NewGray(image.Rect(0, 0, 8, 8))
})

type harness struct {
	m       *Machine
	n       *nav.Navigator
	visited map[State]bool
}

func newFlight(t *testing.T, p Params, route nav.Route, loc Localizer, cam Camera) *harness {
	t.Helper()
	n := nav.New(route, nav.SkipStart, p.ArrivalThreshold, nil)
	m := NewMachine(p, route[0], loc, cam, nil)
	require.NoError(t, m.Launch())
	return &harness{m: m, n: n, visited: map[State]bool{}}
}

func (f *harness) tick() {
	v := f.m.Vehicle()
	f.n.Update(v.Position())
	f.m.Update(dt, f.n)
	f.visited[f.m.State()] = true
}

func (f *harness) ticks(n int) {
	for i := 0; i < n; i++ {
		f.tick()
	}
}

// runUntil ticks until stop returns true or maxSeconds of simulated time pass.
func (f *harness) runUntil(maxSeconds float64, stop func() bool) bool {
	for i := 0; i < int(maxSeconds/dt); i++ {
		f.tick()
		if stop() {
			return true
		}
	}
	return false
}

func noise(seed int64, size int) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

func TestMachine_IdleUntilLaunch(t *testing.T) {
	m := NewMachine(DefaultParams(), home, nil, nil, nil)
	n := nav.New(testRoute(1), nav.SkipStart, 5, nil)

	for i := 0; i < 30; i++ {
		v := m.Vehicle()
		n.Update(v.Position())
		m.Update(dt, n)
	}
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, 100.0, m.Vehicle().Battery)

	require.NoError(t, m.Launch())
	assert.ErrorIs(t, m.Launch(), ErrInvalidTransition)
	assert.Equal(t, StateTakingOff, m.State())
}

func TestMachine_TakeOffClampsAtCruise(t *testing.T) {
	f := newFlight(t, DefaultParams(), testRoute(1), nil, nil)

	ok := f.runUntil(5, func() bool { return f.m.State() == StateNavigating })
	require.True(t, ok)
	assert.Equal(t, 10.0, f.m.Vehicle().Altitude)
	// 10 m at 5 m/s.
	assert.InDelta(t, 2.0, f.m.Elapsed(), dt+1e-9)
}

func TestMachine_SuccessFlight(t *testing.T) {
	ref := noise(42, 160)
	loc := vision.New([]image.Image{ref}, vision.DefaultConfig())
	cam := CameraFunc(func(Snapshot) image.Image { return ref })
	route := testRoute(1)

	f := newFlight(t, DefaultParams(), route, loc, cam)
	var attempts []Attempt
	var evidence []*vision.Evidence
	f.m.SetAttemptHook(func(a Attempt, ev *vision.Evidence) {
		attempts = append(attempts, a)
		evidence = append(evidence, ev)
	})

	ok := f.runUntil(120, func() bool { return f.m.State() == StateLanded })
	require.True(t, ok, "vehicle never landed, stuck in %s", f.m.State())

	for _, s := range []State{StateTakingOff, StateNavigating, StateHovering, StateMatchFound, StateLanding, StateLanded} {
		assert.True(t, f.visited[s], "never visited %s", s)
	}
	assert.False(t, f.visited[StateSearching])
	assert.False(t, f.visited[StateReturnHome])

	require.Len(t, attempts, 1)
	assert.Equal(t, 1, attempts[0].WaypointIndex)
	assert.Equal(t, 0, attempts[0].ReferenceIndex)
	assert.Equal(t, StateHovering, attempts[0].State)
	assert.True(t, attempts[0].Result.Success)
	// The hook sees the pairs behind the decision without a second match.
	require.NotNil(t, evidence[0])
	assert.Equal(t, attempts[0].Result, evidence[0].Result)
	assert.Len(t, evidence[0].Pairs, attempts[0].Result.Matches)

	v := f.m.Vehicle()
	assert.Zero(t, v.Altitude)
	assert.Zero(t, v.Velocity)
	assert.Less(t, geo.Distance(v.Position(), route[1].Point()), 5.0)
	assert.True(t, f.n.Status().ReachedDestination)

	// LANDED is terminal.
	before := f.m.Vehicle()
	f.tick()
	assert.Equal(t, before, f.m.Vehicle())
}

func TestMachine_NeverMatchingFlightReturnsHome(t *testing.T) {
	loc := vision.New([]image.Image{noise(42, 160)}, vision.DefaultConfig())
	gray := image.NewGray(image.Rect(0, 0, 160, 160))
	for i := range gray.Pix {
		gray.Pix[i] = 128
	}
	cam := CameraFunc(func(Snapshot) image.Image { return gray })

	f := newFlight(t, DefaultParams(), testRoute(1), loc, cam)
	var searchStart float64
	f.runUntil(60, func() bool {
		if searchStart == 0 && f.m.State() == StateSearching {
			searchStart = f.m.Elapsed()
		}
		return f.m.State() == StateReturnHome
	})
	require.Equal(t, StateReturnHome, f.m.State())
	assert.Equal(t, nav.Route{home}, f.n.Route())
	assert.Equal(t, 0, f.n.Index())
	assert.Greater(t, f.m.Elapsed()-searchStart, 30.0)
	assert.Zero(t, f.m.Vehicle().Search.TotalElapsed)

	ok := f.runUntil(120, func() bool { return f.m.State() == StateLanded })
	require.True(t, ok, "vehicle never landed, stuck in %s", f.m.State())
	landed := f.m.Vehicle()
	assert.Less(t, geo.Distance(landed.Position(), home.Point()), 5.0)
	assert.False(t, f.visited[StateMatchFound])
}

func TestMachine_OneAttemptPerHoverEpisode(t *testing.T) {
	loc := &fakeLocalizer{}
	f := newFlight(t, DefaultParams(), testRoute(1), loc, blankCamera)

	ok := f.runUntil(60, func() bool { return f.m.State() == StateSearching })
	require.True(t, ok)
	assert.Len(t, loc.calls, 1)

	// 0.5 s interval: attempts at 0.5, 1.0 ... within the 5 s segment.
	f.runUntil(10, func() bool { return f.m.State() == StateHovering })
	require.Equal(t, StateHovering, f.m.State())
	searchCalls := len(loc.calls) - 1
	assert.InDelta(t, 10, searchCalls, 1)

	// Hovering again waits the dwell before exactly one more attempt.
	calls := len(loc.calls)
	f.ticks(57)
	assert.Len(t, loc.calls, calls)
	f.ticks(6)
	assert.Len(t, loc.calls, calls+1)
	for _, idx := range loc.calls {
		assert.Equal(t, 0, idx)
	}
}

func TestMachine_HookWithoutEvidence(t *testing.T) {
	loc := &fakeLocalizer{}
	f := newFlight(t, DefaultParams(), testRoute(1), loc, blankCamera)
	var hooked int
	f.m.SetAttemptHook(func(a Attempt, ev *vision.Evidence) {
		hooked++
		assert.Nil(t, ev)
		assert.Equal(t, 0, a.ReferenceIndex)
	})

	ok := f.runUntil(60, func() bool { return f.m.State() == StateSearching })
	require.True(t, ok)
	assert.Equal(t, 1, hooked)
	assert.Len(t, loc.calls, 1)
}

func TestMachine_SearchMatchAdvancesRoute(t *testing.T) {
	loc := &fakeLocalizer{succeed: func(call int) bool { return call == 3 || call >= 4 }}
	f := newFlight(t, DefaultParams(), testRoute(2), loc, blankCamera)

	ok := f.runUntil(60, func() bool { return f.m.State() == StateMatchFound })
	require.True(t, ok)
	assert.True(t, f.visited[StateSearching])
	assert.Zero(t, f.m.Vehicle().Search.TotalElapsed)
	assert.Equal(t, 1, f.n.Index())

	ok = f.runUntil(2, func() bool { return f.m.State() == StateNavigating })
	require.True(t, ok)
	assert.Equal(t, 2, f.n.Index())

	ok = f.runUntil(120, func() bool { return f.m.State() == StateLanded })
	require.True(t, ok)
	assert.Equal(t, []int{0, 0, 0, 1}, loc.calls)
}

func TestMachine_ReturnHomeAfterFinal(t *testing.T) {
	p := DefaultParams()
	p.ReturnHomeAfterFinal = true
	loc := &fakeLocalizer{succeed: func(int) bool { return true }}
	f := newFlight(t, p, testRoute(1), loc, blankCamera)

	ok := f.runUntil(60, func() bool { return f.m.State() == StateReturnHome })
	require.True(t, ok)
	assert.Equal(t, nav.Route{home}, f.n.Route())

	ok = f.runUntil(120, func() bool { return f.m.State() == StateLanded })
	require.True(t, ok)
	landed := f.m.Vehicle()
	assert.Less(t, geo.Distance(landed.Position(), home.Point()), 5.0)
}

func TestMachine_NilLocalizerFails(t *testing.T) {
	f := newFlight(t, DefaultParams(), testRoute(1), nil, nil)

	ok := f.runUntil(60, func() bool { return f.m.State() == StateSearching })
	require.True(t, ok)
	s := f.m.Snapshot(f.n)
	require.NotNil(t, s.Attempt)
	assert.False(t, s.Attempt.Result.Success)

	f.tick()
	assert.Nil(t, f.m.Snapshot(f.n).Attempt)
}

func TestMachine_BatteryInvariants(t *testing.T) {
	p := DefaultParams()
	p.BatteryDrain = 5
	f := newFlight(t, p, testRoute(1), nil, nil)

	prev := f.m.Vehicle().Battery
	for i := 0; i < 30*40; i++ {
		f.tick()
		v := f.m.Vehicle()
		require.LessOrEqual(t, v.Battery, prev)
		require.GreaterOrEqual(t, v.Battery, 0.0)
		require.GreaterOrEqual(t, v.Altitude, 0.0)
		require.True(t, v.Heading >= 0 && v.Heading < 360)
		prev = v.Battery
	}
	assert.Zero(t, prev)
	assert.Equal(t, BatteryCritical, f.m.Snapshot(f.n).BatteryStatus)
}

func TestMachine_Reset(t *testing.T) {
	f := newFlight(t, DefaultParams(), testRoute(1), nil, nil)
	f.ticks(150)

	pos := geo.Point{Lat: 48.1, Lon: 11.5}
	f.m.Reset(pos, 25)

	v := f.m.Vehicle()
	assert.Equal(t, StateTakingOff, v.State)
	assert.Equal(t, pos, v.Position())
	assert.Zero(t, v.Altitude)
	assert.Equal(t, 100.0, v.Battery)
	assert.Equal(t, 25.0, f.m.Params().CruiseAltitude)
	assert.Zero(t, f.m.Elapsed())
}

func TestSnapshot(t *testing.T) {
	f := newFlight(t, DefaultParams(), testRoute(1), nil, nil)
	f.tick()

	s := f.m.Snapshot(f.n)
	assert.Equal(t, StateTakingOff, s.State)
	assert.Equal(t, 1, s.WaypointIndex)
	require.NotNil(t, s.Distance)
	assert.InDelta(t, 100, *s.Distance, 0.5)
	require.NotNil(t, s.Bearing)
	assert.InDelta(t, 90, *s.Bearing, 0.1)
	assert.Equal(t, BatteryOK, s.BatteryStatus)
	assert.InDelta(t, dt, s.Elapsed, 1e-12)
}
