package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronenav/pkg/db"
	"dronenav/pkg/flight"
	"dronenav/pkg/nav"
	"dronenav/pkg/vision"
)

// setupTestStore creates a test database and store for each test.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	s := NewSQLiteStore(d)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRoute() nav.Route {
	return nav.Route{
		{Name: "Home", Lat: 51.5, Lon: -0.1},
		{Name: "Bridge", Lat: 51.501, Lon: -0.099},
	}
}

func TestFlightStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	start := time.Now().Add(-time.Minute)
	require.NoError(t, s.StartFlight(ctx, &FlightRecord{ID: "f1", Route: "Home > Bridge", HomeName: "Home", Waypoints: 2, StartedAt: start}))

	f, err := s.GetFlight(ctx, "f1")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "Home", f.HomeName)
	assert.Nil(t, f.FinishedAt)
	assert.WithinDuration(t, start, f.StartedAt, time.Second)

	require.NoError(t, s.FinishFlight(ctx, "f1", flight.StateLanded, time.Now()))
	f, err = s.GetFlight(ctx, "f1")
	require.NoError(t, err)
	require.NotNil(t, f.FinishedAt)
	assert.Equal(t, "LANDED", f.FinalState)

	missing, err := s.GetFlight(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFlightStore_ListFlights(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	now := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.StartFlight(ctx, &FlightRecord{ID: id, StartedAt: now.Add(time.Duration(i) * time.Minute)}))
	}

	flights, err := s.ListFlights(ctx, 2)
	require.NoError(t, err)
	require.Len(t, flights, 2)
	assert.Equal(t, "c", flights[0].ID)
	assert.Equal(t, "b", flights[1].ID)
}

func TestFlightStore_TelemetryAndAttempts(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.StartFlight(ctx, &FlightRecord{ID: "f1", StartedAt: time.Now()}))

	dist := 42.5
	snaps := []flight.Snapshot{
		{Lat: 51.5, Lon: -0.1, Altitude: 3, State: flight.StateTakingOff, Battery: 99.9, Elapsed: 0.5},
		{Lat: 51.5, Lon: -0.1, Altitude: 10, State: flight.StateNavigating, Battery: 45, Distance: &dist, WaypointIndex: 1, Elapsed: 2},
	}
	for i := range snaps {
		require.NoError(t, s.AppendTelemetry(ctx, "f1", int64(i+1), &snaps[i]))
	}

	recs, err := s.GetTelemetry(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Nil(t, recs[0].Snapshot.Distance)
	require.NotNil(t, recs[1].Snapshot.Distance)
	assert.Equal(t, 42.5, *recs[1].Snapshot.Distance)
	assert.Equal(t, flight.StateNavigating, recs[1].Snapshot.State)
	assert.Equal(t, flight.BatteryLow, recs[1].Snapshot.BatteryStatus)

	a := &AttemptRecord{
		SimTime: 12.5, Lat: 51.501, Lon: -0.099,
		Attempt: flight.Attempt{
			WaypointIndex: 1, ReferenceIndex: 0, State: flight.StateHovering,
			Result: vision.Result{Success: true, Confidence: 0.31, Matches: 31},
		},
	}
	require.NoError(t, s.AppendAttempt(ctx, "f1", a))
	attempts, err := s.GetAttempts(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, *a, attempts[0])

	assert.Error(t, s.AppendAttempt(ctx, "unknown-flight", a), "foreign key must reject orphan attempts")
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	r, err := NewRecorder(ctx, s, testRoute(), 3, 64)
	require.NoError(t, err)

	f, err := s.GetFlight(ctx, r.FlightID())
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "Home > Bridge", f.Route)
	assert.Equal(t, 2, f.Waypoints)

	attempt := &flight.Attempt{WaypointIndex: 1, State: flight.StateHovering}
	for i := 0; i < 7; i++ {
		snap := flight.Snapshot{State: flight.StateNavigating, Elapsed: float64(i)}
		if i == 4 {
			snap.State = flight.StateHovering
			snap.Attempt = attempt
		}
		r.Record(snap)
	}
	r.Record(flight.Snapshot{State: flight.StateLanded, Elapsed: 7})
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	recs, err := s.GetTelemetry(ctx, r.FlightID())
	require.NoError(t, err)
	// Every third tick is sampled; state changes are always kept.
	var seen []float64
	for _, rec := range recs {
		seen = append(seen, rec.Snapshot.Elapsed)
	}
	assert.Equal(t, []float64{0, 3, 4, 5, 6, 7}, seen)

	attempts, err := s.GetAttempts(ctx, r.FlightID())
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
	assert.Zero(t, r.Dropped())
	assert.Equal(t, int64(len(recs)+1), r.Written())

	f, err = s.GetFlight(ctx, r.FlightID())
	require.NoError(t, err)
	assert.Equal(t, "LANDED", f.FinalState)
}

type blockingStore struct {
	FlightStore
	release chan struct{}
}

func (b *blockingStore) StartFlight(context.Context, *FlightRecord) error { return nil }
func (b *blockingStore) FinishFlight(context.Context, string, flight.State, time.Time) error {
	return nil
}
func (b *blockingStore) AppendTelemetry(context.Context, string, int64, *flight.Snapshot) error {
	<-b.release
	return nil
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	bs := &blockingStore{release: make(chan struct{})}
	r, err := NewRecorder(context.Background(), bs, testRoute(), 1, 2)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			r.Record(flight.Snapshot{State: flight.StateNavigating})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a stalled store")
	}
	close(bs.release)
	require.NoError(t, r.Close())
	assert.Positive(t, r.Dropped())
	assert.Equal(t, int64(20), r.Dropped()+r.Written())
}
