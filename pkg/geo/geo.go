// Package geo provides the spherical geodesy used for dead-reckoning navigation.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p Point) orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func fromOrb(p orb.Point) Point {
	return Point{Lat: p.Lat(), Lon: p.Lon()}
}

// Distance returns the great-circle (haversine) distance between two points in meters.
// It shares its earth model with DestinationPoint, so projecting a point by d meters
// and measuring it back yields d.
func Distance(p1, p2 Point) float64 {
	if p1 == p2 {
		return 0
	}
	return orbgeo.DistanceHaversine(p1.orb(), p2.orb())
}

// DestinationPoint returns the point reached by travelling distMeters from start along bearing (degrees).
func DestinationPoint(start Point, distMeters, bearing float64) Point {
	if distMeters == 0 {
		return start
	}
	return fromOrb(orbgeo.PointAtBearingAndDistance(start.orb(), bearing, distMeters))
}

// Bearing calculates the initial bearing (forward azimuth) from p1 to p2 in degrees [0, 360).
func Bearing(p1, p2 Point) float64 {
	lat1 := p1.Lat * (math.Pi / 180.0)
	lat2 := p2.Lat * (math.Pi / 180.0)
	dLon := (p2.Lon - p1.Lon) * (math.Pi / 180.0)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	brng := math.Atan2(y, x)

	return NormalizeHeading(brng * (180.0 / math.Pi))
}

// NormalizeHeading wraps any angle in degrees into [0, 360).
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg+360.0, 360.0)
	if h < 0 {
		h += 360.0
	}
	// math.Mod can return 360 for tiny negative inputs after the +360 shift.
	if h >= 360.0 {
		h -= 360.0
	}
	return h
}

// NormalizeAngle normalizes an angle difference to the range [-180, 180].
func NormalizeAngle(angleDeg float64) float64 {
	for angleDeg > 180 {
		angleDeg -= 360
	}
	for angleDeg < -180 {
		angleDeg += 360
	}
	return angleDeg
}
