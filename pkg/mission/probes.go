package mission

import (
	"context"
	"fmt"

	"dronenav/pkg/probe"
)

// Pinger is satisfied by stores that can verify their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probes returns the preflight checks for m. A nil pinger skips the
// recorder check.
func (m *Mission) Probes(recorder Pinger) []probe.Probe {
	probes := []probe.Probe{
		{
			Name:     "Route",
			Critical: true,
			Check: func(context.Context) error {
				return m.Route.Validate()
			},
		},
		{
			Name: "Reference snapshots",
			Check: func(context.Context) error {
				if have, want := m.Localizer.Count(), ExpectedReferences(m.Route); have < want {
					return fmt.Errorf("%d of %d waypoints have a reference snapshot", have, want)
				}
				return nil
			},
		},
		{
			Name: "Reference features",
			Check: func(context.Context) error {
				var empty []int
				for i := range m.Localizer.Count() {
					if m.Localizer.FeatureCount(i) < 2 {
						empty = append(empty, i)
					}
				}
				if len(empty) > 0 {
					return fmt.Errorf("references without usable features: %v", empty)
				}
				return nil
			},
		},
	}

	if m.Geofence != nil {
		probes = append(probes, probe.Probe{
			Name:     "Geofence",
			Critical: true,
			Check: func(context.Context) error {
				var outside []string
				for i, wp := range m.Route {
					if !m.Geofence.Contains(wp.Point()) {
						outside = append(outside, fmt.Sprintf("%d:%s", i, wp.Name))
					}
				}
				if len(outside) > 0 {
					return fmt.Errorf("waypoints outside the geofence: %v", outside)
				}
				return nil
			},
		})
	}

	if recorder != nil {
		probes = append(probes, probe.Probe{
			Name:     "Flight recorder",
			Critical: true,
			Check:    recorder.Ping,
		})
	}
	return probes
}
