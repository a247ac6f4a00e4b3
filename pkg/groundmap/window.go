package groundmap

import (
	"image"

	"golang.org/x/image/draw"

	"dronenav/pkg/geo"
)

// Window renders the north-up square of side 2*halfSide meters centred on p,
// scaled to size x size. Parts outside the map stay black.
func (m *Map) Window(p geo.Point, halfSide float64, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	if m.img == nil || size <= 0 {
		return dst
	}

	north := geo.DestinationPoint(p, halfSide, 0)
	east := geo.DestinationPoint(p, halfSide, 90)
	south := geo.DestinationPoint(p, halfSide, 180)
	west := geo.DestinationPoint(p, halfSide, 270)

	x0, y0 := m.LatLonToPixel(geo.Point{Lat: north.Lat, Lon: west.Lon})
	x1, y1 := m.LatLonToPixel(geo.Point{Lat: south.Lat, Lon: east.Lon})

	src := m.img.Bounds()
	crop := image.Rect(x0, y0, x1, y1).Add(src.Min).Intersect(src)
	if crop.Empty() {
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), m.img, crop, draw.Src, nil)
	return dst
}
