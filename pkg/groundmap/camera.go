package groundmap

import (
	"image"

	"dronenav/pkg/flight"
	"dronenav/pkg/geo"
)

// Camera renders the ground under the vehicle as the frame the localizer sees.
// Frames are north-up and share the scale of reference snapshots rendered
// with the same footprint and size, so descriptors compare like for like.
type Camera struct {
	Map *Map
	// Footprint is the ground width in meters covered by one frame.
	Footprint float64
	Size      int
}

// NewCamera returns a camera producing size x size frames covering footprint meters.
func NewCamera(m *Map, footprint float64, size int) *Camera {
	return &Camera{Map: m, Footprint: footprint, Size: size}
}

// Capture implements flight.Camera. Parts of the frame outside the map stay black.
func (c *Camera) Capture(s flight.Snapshot) image.Image {
	if c.Map == nil {
		return image.NewRGBA(image.Rect(0, 0, c.Size, c.Size))
	}
	return c.Map.Window(geo.Point{Lat: s.Lat, Lon: s.Lon}, c.Footprint/2, c.Size)
}
