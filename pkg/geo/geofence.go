package geo

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Geofence is a set of named polygon zones loaded from GeoJSON.
// A point is inside the fence when any zone covers it.
type Geofence struct {
	zones []*geojson.Feature
}

// LoadGeofence reads a GeoJSON FeatureCollection. Features that are not
// polygons or multipolygons are ignored.
func LoadGeofence(path string) (*Geofence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geojson %s: %w", path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse geojson %s: %w", path, err)
	}
	return NewGeofence(fc), nil
}

// NewGeofence builds a fence from the polygonal features of fc.
func NewGeofence(fc *geojson.FeatureCollection) *Geofence {
	g := &Geofence{}
	for _, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
			g.zones = append(g.zones, f)
		}
	}
	return g
}

// Len returns the number of zones.
func (g *Geofence) Len() int {
	return len(g.zones)
}

// Contains reports whether p lies inside any zone.
func (g *Geofence) Contains(p Point) bool {
	_, ok := g.ZoneAt(p)
	return ok
}

// ZoneAt returns the name property of the first zone covering p.
func (g *Geofence) ZoneAt(p Point) (string, bool) {
	point := p.orb()
	for _, f := range g.zones {
		// Fast bounding box check
		if !f.Geometry.Bound().Contains(point) {
			continue
		}
		if containsPoint(f.Geometry, point) {
			return stringProp(f.Properties, "name"), true
		}
	}
	return "", false
}

func containsPoint(geom orb.Geometry, point orb.Point) bool {
	switch g := geom.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, point)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, point)
	}
	return false
}

// stringProp safely extracts a string property from GeoJSON properties.
func stringProp(props geojson.Properties, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case json.Number:
		return string(v)
	}
	return ""
}
