package flight

import (
	"math"

	"dronenav/pkg/geo"
)

// startSegment begins a new spiral segment around pos. The total search time is kept.
func (s *Search) startSegment(pos geo.Point, initialRadius float64) {
	s.Center = pos
	s.Radius = initialRadius
	s.Angle = 0
	s.SegmentElapsed = 0
	s.MatchTimer = 0
}

// reset clears all accumulators.
func (s *Search) reset() {
	*s = Search{}
}

// advance grows the spiral by dt and returns the new target point.
func (s *Search) advance(p Params, dt float64) geo.Point {
	s.Radius = math.Min(p.SearchMaxRadius, s.Radius+p.SearchRadiusGrowth*dt)
	s.Angle = geo.NormalizeHeading(s.Angle + p.SearchAngularRate*dt)
	return geo.DestinationPoint(s.Center, s.Radius, s.Angle)
}
