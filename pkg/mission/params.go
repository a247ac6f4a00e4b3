package mission

import (
	"dronenav/pkg/config"
	"dronenav/pkg/flight"
	"dronenav/pkg/vision"
)

// FlightParams maps the flight and search config sections onto machine parameters.
func FlightParams(cfg *config.Config) flight.Params {
	f, s := cfg.Flight, cfg.Search
	return flight.Params{
		CruiseVelocity:   f.CruiseVelocity,
		SearchVelocity:   f.SearchVelocity,
		AscentRate:       f.AscentRate,
		DescentRate:      f.DescentRate,
		CruiseAltitude:   f.CruiseAltitude.Meters(),
		BrakingDistance:  f.BrakingDistance.Meters(),
		MinVelocity:      f.MinVelocity,
		ArrivalThreshold: f.ArrivalThreshold.Meters(),

		HoverDwell: f.HoverDwell.Std(),
		MatchDwell: f.MatchDwell.Std(),

		SearchInitialRadius: s.InitialRadius.Meters(),
		SearchRadiusGrowth:  s.RadiusGrowth,
		SearchMaxRadius:     s.MaxRadius.Meters(),
		SearchAngularRate:   s.AngularRate,
		SearchMatchInterval: s.MatchInterval.Std(),
		SearchSegment:       s.Segment.Std(),
		SearchFailsafe:      s.Failsafe.Std(),

		BatteryDrain:         f.BatteryDrain,
		TouchdownAltitude:    f.TouchdownAltitude.Meters(),
		ReturnHomeAfterFinal: f.ReturnHomeAfterFinal,
	}
}

// VisionConfig maps the vision config section onto localizer settings.
func VisionConfig(cfg *config.Config) vision.Config {
	v := cfg.Vision
	return vision.Config{
		MaxFeatures:         v.MaxFeatures,
		MaxDimension:        v.MaxDimension,
		FASTThreshold:       v.FASTThreshold,
		RatioThreshold:      v.RatioThreshold,
		ConfidenceBaseline:  v.ConfidenceBaseline,
		ConfidenceThreshold: v.ConfidenceThreshold,
	}
}
