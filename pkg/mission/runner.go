package mission

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dronenav/pkg/flight"
	"dronenav/pkg/logging"
	"dronenav/pkg/nav"
)

// Sink receives every published snapshot. Implementations must not block.
type Sink interface {
	Update(s flight.Snapshot)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(s flight.Snapshot)

// Update calls f(s).
func (f SinkFunc) Update(s flight.Snapshot) { f(s) }

// Runner advances a mission on a fixed tick and fans snapshots out to sinks.
type Runner struct {
	mission      *Mission
	tickRate     float64
	maxStep      float64
	exitOnLanded bool
	logger       *slog.Logger

	restarts chan nav.StartPolicy

	mu    sync.Mutex
	sinks []Sink
	last  flight.Snapshot
	ticks int64
}

// RunnerOptions configures the simulation clock.
type RunnerOptions struct {
	TickRate     float64 // Hz
	MaxStep      time.Duration
	ExitOnLanded bool
}

// NewRunner creates a runner for m.
func NewRunner(m *Mission, opts RunnerOptions, logger *slog.Logger, sinks ...Sink) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TickRate <= 0 {
		opts.TickRate = 30
	}
	maxStep := opts.MaxStep.Seconds()
	if maxStep <= 0 {
		maxStep = 0.1
	}
	return &Runner{
		mission:      m,
		tickRate:     opts.TickRate,
		maxStep:      maxStep,
		exitOnLanded: opts.ExitOnLanded,
		logger:       logger,
		restarts:     make(chan nav.StartPolicy, 1),
		sinks:        sinks,
	}
}

// AddSink registers another snapshot consumer.
func (r *Runner) AddSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Last returns the most recently published snapshot.
func (r *Runner) Last() flight.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Ticks returns the number of steps taken.
func (r *Runner) Ticks() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

// clampStep keeps dt within (0, maxStep]. A non-positive dt falls back to
// the nominal tick period.
func (r *Runner) clampStep(dt float64) float64 {
	if dt <= 0 {
		dt = 1 / r.tickRate
	}
	return min(dt, r.maxStep)
}

// Step advances the mission by dt seconds: the navigator observes the
// vehicle position, the machine reacts, and the result is published.
func (r *Runner) Step(dt float64) flight.Snapshot {
	dt = r.clampStep(dt)
	n := r.mission.Navigator
	m := r.mission.Machine

	v := m.Vehicle()
	n.Update(v.Position())
	m.Update(dt, n)
	snap := m.Snapshot(n)

	r.mu.Lock()
	r.last = snap
	r.ticks++
	sinks := r.sinks
	r.mu.Unlock()

	for _, s := range sinks {
		s.Update(snap)
	}
	return snap
}

// Run launches the vehicle if it is idle and steps it at the configured tick
// rate until ctx is done, or until it lands when ExitOnLanded is set.
func (r *Runner) Run(ctx context.Context) error {
	m := r.mission.Machine
	if m.State() == flight.StateIdle {
		if err := m.Launch(); err != nil {
			return err
		}
		r.logger.Info("Vehicle launched", "home", m.Home().Name)
	}

	period := time.Duration(float64(time.Second) / r.tickRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Simulation stopped", "ticks", r.Ticks())
			return nil
		case policy := <-r.restarts:
			r.restart(policy)
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			prev := r.Last().State
			snap := r.Step(dt)
			if snap.State != prev {
				logging.Trace(r.logger, "Runner observed state change", "from", prev, "to", snap.State)
			}
			if r.exitOnLanded && snap.State == flight.StateLanded {
				r.logger.Info("Vehicle landed, stopping simulation",
					"elapsed", snap.Elapsed,
					"battery", snap.Battery,
				)
				return nil
			}
		}
	}
}

// RequestRestart asks Run to restart the mission with its start policy before
// the next tick. It never blocks and returns false when a restart is already pending.
func (r *Runner) RequestRestart() bool {
	select {
	case r.restarts <- r.mission.Policy:
		return true
	default:
		return false
	}
}

// restart puts the vehicle back at the route start and reassigns the route.
func (r *Runner) restart(policy nav.StartPolicy) {
	m := r.mission
	home := m.Route[0]
	m.Navigator.SetRoute(m.Route, policy)
	m.Machine.Reset(home.Point(), m.Machine.Params().CruiseAltitude)
	r.logger.Info("Mission restarted", "start_policy", policy)
}
