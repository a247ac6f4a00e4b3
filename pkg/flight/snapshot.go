package flight

// Snapshot is the per-tick telemetry record.
type Snapshot struct {
	Lat            float64       `json:"lat"`
	Lon            float64       `json:"lon"`
	Altitude       float64       `json:"altitude"`
	Heading        float64       `json:"heading"`
	Velocity       float64       `json:"velocity"`
	Battery        float64       `json:"battery"`
	BatteryStatus  BatteryStatus `json:"battery_status"`
	State          State         `json:"state"`
	WaypointIndex  int           `json:"waypoint_index"`
	Distance       *float64      `json:"distance,omitempty"`
	Bearing        *float64      `json:"bearing,omitempty"`
	LastConfidence float64       `json:"last_confidence"`
	Attempt        *Attempt      `json:"attempt,omitempty"`
	Elapsed        float64       `json:"elapsed"`
}

// Snapshot captures the vehicle together with the navigator's view. Attempt is
// set only for the tick in which a localization attempt ran.
func (m *Machine) Snapshot(n Navigator) Snapshot {
	v := m.vehicle
	s := Snapshot{
		Lat:            v.Lat,
		Lon:            v.Lon,
		Altitude:       v.Altitude,
		Heading:        v.Heading,
		Velocity:       v.Velocity,
		Battery:        v.Battery,
		BatteryStatus:  BatteryBand(v.Battery),
		State:          v.State,
		LastConfidence: m.lastConfidence,
		Attempt:        m.lastAttempt,
		Elapsed:        m.elapsed,
	}
	if n != nil {
		st := n.Status()
		s.WaypointIndex = n.Index()
		s.Distance = st.Distance
		s.Bearing = st.Bearing
	}
	return s
}
