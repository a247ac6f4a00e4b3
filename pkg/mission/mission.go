// Package mission assembles a flight from configuration and drives it.
package mission

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"

	"dronenav/pkg/config"
	"dronenav/pkg/flight"
	"dronenav/pkg/geo"
	"dronenav/pkg/groundmap"
	"dronenav/pkg/nav"
	"dronenav/pkg/vision"
)

// Mission is everything needed to fly one route.
type Mission struct {
	Route          nav.Route
	Policy         nav.StartPolicy
	Navigator      *nav.Navigator
	Machine        *flight.Machine
	Localizer      *vision.Localizer
	Map            *groundmap.Map
	Camera         *groundmap.Camera
	Geofence       *geo.Geofence
	ReferenceFiles []string
	Diagnostics    *vision.DiagnosticWriter
}

// LoadRoute reads and validates the route file.
func LoadRoute(path string) (nav.Route, error) {
	route, err := nav.LoadRoute(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load route %s: %w", path, err)
	}
	return route, nil
}

// ExpectedReferences is the number of reference snapshots a route needs:
// one per waypoint after the launch point.
func ExpectedReferences(route nav.Route) int {
	return max(0, len(route)-1)
}

// Load builds a mission from cfg: route, reference features, ground map and
// simulated camera. Only an unusable route is fatal.
func Load(cfg *config.Config, logger *slog.Logger) (*Mission, error) {
	if logger == nil {
		logger = slog.Default()
	}

	route, err := LoadRoute(cfg.Mission.RouteFile)
	if err != nil {
		return nil, err
	}

	refs, names, err := vision.LoadReferenceImages(cfg.Mission.SnapshotDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("Reference snapshot directory missing, every match will fail", "dir", cfg.Mission.SnapshotDir)
	case err != nil:
		return nil, err
	}
	if want := ExpectedReferences(route); len(refs) != want {
		logger.Warn("Reference snapshot count does not match route", "have", len(refs), "want", want)
	}

	gm, err := groundmap.Load(cfg.Mission.MapImage, cfg.Mission.MapMeta)
	if err != nil {
		return nil, fmt.Errorf("failed to load ground map: %w", err)
	}
	cam := groundmap.NewCamera(gm, cfg.Sim.CameraFootprint.Meters(), cfg.Sim.CameraSize)

	m, err := New(cfg, route, refs, gm, cam, logger)
	if err != nil {
		return nil, err
	}
	m.ReferenceFiles = names

	if cfg.Mission.Geofence != "" {
		fence, err := geo.LoadGeofence(cfg.Mission.Geofence)
		if err != nil {
			return nil, err
		}
		m.Geofence = fence
		logger.Info("Geofence loaded", "zones", fence.Len())
	}
	return m, nil
}

// diagnosticsBuffer bounds pending diagnostic images; more are dropped.
const diagnosticsBuffer = 8

// New wires a mission from already loaded inputs. Call Close when done.
func New(cfg *config.Config, route nav.Route, refs []image.Image, gm *groundmap.Map, cam flight.Camera, logger *slog.Logger) (*Mission, error) {
	if err := route.Validate(); err != nil {
		return nil, err
	}

	policy := nav.FromStart
	if cfg.Mission.SkipStart {
		policy = nav.SkipStart
	}

	params := FlightParams(cfg)
	loc := vision.New(refs, VisionConfig(cfg))
	n := nav.New(route, policy, params.ArrivalThreshold, logger)
	machine := flight.NewMachine(params, route[0], loc, cam, logger)

	diag, err := vision.NewDiagnosticWriter(cfg.Vision.DiagnosticsDir, loc, diagnosticsBuffer)
	if err != nil {
		return nil, err
	}
	if diag != nil {
		machine.SetAttemptHook(func(_ flight.Attempt, ev *vision.Evidence) {
			diag.Submit(ev)
		})
	}

	m := &Mission{
		Route:       route,
		Policy:      policy,
		Navigator:   n,
		Machine:     machine,
		Localizer:   loc,
		Map:         gm,
		Diagnostics: diag,
	}
	if gc, ok := cam.(*groundmap.Camera); ok {
		m.Camera = gc
	}

	logger.Info("Mission ready",
		"waypoints", len(route),
		"start_policy", policy,
		"references", loc.Count(),
		"home", route[0].Name,
	)
	return m, nil
}

// Close flushes pending diagnostics. It is safe to call more than once.
func (m *Mission) Close() {
	m.Diagnostics.Close()
}
