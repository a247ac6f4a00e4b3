package mission

import (
	"dronenav/pkg/flight"
	"dronenav/pkg/tracker"
)

// TrackAttempts feeds every match attempt into t.
func TrackAttempts(t *tracker.Tracker) Sink {
	return SinkFunc(func(s flight.Snapshot) {
		a := s.Attempt
		if a == nil {
			return
		}
		t.Track(a.WaypointIndex, a.State == flight.StateSearching, a.Result.Success, a.Result.Confidence)
	})
}
