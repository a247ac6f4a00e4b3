package store

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"dronenav/pkg/flight"
	"dronenav/pkg/nav"
)

type recordKind int

const (
	kindTelemetry recordKind = iota
	kindAttempt
)

type record struct {
	kind    recordKind
	seq     int64
	snap    flight.Snapshot
	attempt AttemptRecord
}

// Recorder writes a flight log from the tick loop without blocking it.
// Records go through a buffered channel to a single writer goroutine; when the
// buffer is full records are dropped and counted.
type Recorder struct {
	store       FlightStore
	flightID    string
	sampleEvery int64

	ch      chan record
	wg      sync.WaitGroup
	ticks   int64
	seq     int64
	dropped atomic.Int64
	written atomic.Int64

	closeOnce sync.Once
	lastState flight.State
}

// NewRecorder registers a new flight for route and starts the writer.
func NewRecorder(ctx context.Context, s FlightStore, route nav.Route, sampleEvery, buffer int) (*Recorder, error) {
	if sampleEvery < 1 {
		sampleEvery = 1
	}
	if buffer < 1 {
		buffer = 1
	}

	names := make([]string, len(route))
	for i, wp := range route {
		names[i] = wp.Name
	}
	f := &FlightRecord{
		ID:        uuid.NewString(),
		Route:     strings.Join(names, " > "),
		Waypoints: len(route),
		StartedAt: time.Now(),
	}
	if len(route) > 0 {
		f.HomeName = route[0].Name
	}
	if err := s.StartFlight(ctx, f); err != nil {
		return nil, err
	}

	r := &Recorder{
		store:       s,
		flightID:    f.ID,
		sampleEvery: int64(sampleEvery),
		ch:          make(chan record, buffer),
	}
	r.wg.Add(1)
	go r.run()

	slog.Info("Flight recorder started", "flight_id", f.ID, "sample_every", sampleEvery)
	return r, nil
}

// FlightID returns the recorded flight's identifier.
func (r *Recorder) FlightID() string { return r.flightID }

// Dropped returns how many records were discarded because the buffer was full.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Written returns how many records reached the store.
func (r *Recorder) Written() int64 { return r.written.Load() }

// Record queues every Nth snapshot, every state change and every attempt.
// It must be called from a single goroutine, never after Close, and never blocks.
func (r *Recorder) Record(s flight.Snapshot) {
	changed := s.State != r.lastState
	r.lastState = s.State
	if s.Attempt != nil {
		r.enqueue(record{kind: kindAttempt, attempt: AttemptRecord{
			SimTime: s.Elapsed,
			Lat:     s.Lat,
			Lon:     s.Lon,
			Attempt: *s.Attempt,
		}})
	}

	r.ticks++
	if (r.ticks-1)%r.sampleEvery != 0 && !changed {
		return
	}
	r.seq++
	r.enqueue(record{kind: kindTelemetry, seq: r.seq, snap: s})
}

func (r *Recorder) enqueue(rec record) {
	select {
	case r.ch <- rec:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	ctx := context.Background()

	for rec := range r.ch {
		var err error
		switch rec.kind {
		case kindTelemetry:
			err = r.store.AppendTelemetry(ctx, r.flightID, rec.seq, &rec.snap)
		case kindAttempt:
			err = r.store.AppendAttempt(ctx, r.flightID, &rec.attempt)
		}
		if err != nil {
			slog.Warn("Flight recorder write failed", "flight_id", r.flightID, "error", err)
			continue
		}
		r.written.Add(1)
	}
}

// Close drains the queue and stamps the flight with its final state.
func (r *Recorder) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.ch)
		r.wg.Wait()
		err = r.store.FinishFlight(context.Background(), r.flightID, r.lastState, time.Now())
		slog.Info("Flight recorder closed",
			"flight_id", r.flightID,
			"written", r.written.Load(),
			"dropped", r.dropped.Load(),
		)
	})
	return err
}
