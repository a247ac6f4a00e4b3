package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.Sim.TickRate > 0, "sim.tick_rate must be positive, got %v", c.Sim.TickRate)
	check(c.Sim.CameraFootprint > 0 && c.Sim.CameraSize > 0, "sim camera footprint and size must be positive")
	check(c.Flight.CruiseVelocity > 0, "flight.cruise_velocity must be positive")
	check(c.Flight.SearchVelocity > 0, "flight.search_velocity must be positive")
	check(c.Flight.AscentRate > 0 && c.Flight.DescentRate > 0, "flight climb and descent rates must be positive")
	check(c.Flight.MinVelocity >= 0 && c.Flight.MinVelocity <= c.Flight.CruiseVelocity,
		"flight.min_velocity must be within [0, cruise_velocity]")
	check(c.Flight.CruiseAltitude > 0, "flight.cruise_altitude must be positive")
	check(c.Flight.ArrivalThreshold > 0, "flight.arrival_threshold must be positive")
	check(c.Flight.BatteryDrain >= 0, "flight.battery_drain must not be negative")
	check(c.Search.MaxRadius >= c.Search.InitialRadius, "search.max_radius must be at least initial_radius")
	check(c.Search.MatchInterval > 0, "search.match_interval must be positive")
	check(c.Search.Segment > 0 && c.Search.Failsafe > 0, "search segment and failsafe must be positive")
	check(c.Vision.RatioThreshold > 0 && c.Vision.RatioThreshold <= 1,
		"vision.ratio_threshold must be in (0, 1], got %v", c.Vision.RatioThreshold)
	check(c.Vision.ConfidenceBaseline > 0, "vision.confidence_baseline must be positive")
	check(c.Vision.ConfidenceThreshold > 0, "vision.confidence_threshold must be positive")
	if c.Recorder.Enabled {
		check(c.Recorder.Path != "", "recorder.path is required when the recorder is enabled")
		check(c.Recorder.SampleEvery >= 1, "recorder.sample_every must be at least 1")
	}
	return errors.Join(errs...)
}
