package groundmap

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronenav/pkg/flight"
	"dronenav/pkg/geo"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 0, 255})
		}
	}
	return img
}

func TestLatLonToPixel(t *testing.T) {
	m := New(gradient(1000, 500), BBox{-1, 51, 0, 52})

	tests := []struct {
		name  string
		p     geo.Point
		wantX int
		wantY int
	}{
		{"Top left", geo.Point{Lat: 52, Lon: -1}, 0, 0},
		{"Bottom right", geo.Point{Lat: 51, Lon: 0}, 1000, 500},
		{"Centre", geo.Point{Lat: 51.5, Lon: -0.5}, 500, 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := m.LatLonToPixel(tt.p)
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)
		})
	}
}

func TestPixelRoundTrip(t *testing.T) {
	m := New(gradient(1000, 1000), BBox{-1, 51, 0, 52})
	p := m.PixelToLatLon(250, 750)
	assert.InDelta(t, 51.25, p.Lat, 1e-9)
	assert.InDelta(t, -0.75, p.Lon, 1e-9)

	x, y := m.LatLonToPixel(geo.Point{Lat: 51.2505, Lon: -0.7495})
	assert.Equal(t, 250, x)
	assert.Equal(t, 749, y)
}

func TestDegenerateBBox(t *testing.T) {
	m := New(gradient(300, 200), BBox{1, 1, 1, 2})
	require.True(t, m.BBox().Degenerate())

	x, y := m.LatLonToPixel(geo.Point{Lat: 10, Lon: 10})
	assert.Equal(t, 150, x)
	assert.Equal(t, 100, y)
}

func TestCameraCapture(t *testing.T) {
	m := New(gradient(1000, 1000), BBox{-0.01, 51.5, 0, 51.51})
	cam := NewCamera(m, 100, 64)

	// Altitude does not change the frame: it always matches Window.
	low := cam.Capture(flight.Snapshot{Lat: 51.505, Lon: -0.005, Altitude: 5})
	high := cam.Capture(flight.Snapshot{Lat: 51.505, Lon: -0.005, Altitude: 120})
	want := m.Window(geo.Point{Lat: 51.505, Lon: -0.005}, 50, 64)
	require.Equal(t, image.Rect(0, 0, 64, 64), low.Bounds())
	assert.Equal(t, want.Pix, low.(*image.RGBA).Pix)
	assert.Equal(t, want.Pix, high.(*image.RGBA).Pix)

	// Entirely off-map: black frame, no panic.
	frame := cam.Capture(flight.Snapshot{Lat: 10, Lon: 10})
	r, g, b, _ := frame.At(10, 10).RGBA()
	assert.Zero(t, r+g+b)

	frame = NewCamera(nil, 100, 8).Capture(flight.Snapshot{})
	assert.Equal(t, image.Rect(0, 0, 8, 8), frame.Bounds())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "drone_feed.png")
	metaPath := filepath.Join(dir, "map_meta.json")

	f, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, gradient(40, 30)))
	require.NoError(t, f.Close())

	m, err := Load(imgPath, metaPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultBBox, m.BBox())

	require.NoError(t, os.WriteFile(metaPath, []byte(`{"bbox":[2,48,3,49]}`), 0o644))
	m, err = Load(imgPath, metaPath)
	require.NoError(t, err)
	assert.Equal(t, BBox{2, 48, 3, 49}, m.BBox())
	w, h := m.Size()
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)

	m, err = Load(filepath.Join(dir, "missing.png"), metaPath)
	require.NoError(t, err)
	w, h = m.Size()
	assert.Equal(t, fallbackWidth, w)
	assert.Equal(t, fallbackHeight, h)

	require.NoError(t, os.WriteFile(imgPath, []byte("not an image"), 0o644))
	_, err = Load(imgPath, metaPath)
	assert.Error(t, err)
}

func TestWindow(t *testing.T) {
	// ~700m x ~1100m of ground over 1000x1000 pixels.
	m := New(gradient(1000, 1000), BBox{-0.01, 51.5, 0, 51.51})

	img := m.Window(geo.Point{Lat: 51.505, Lon: -0.005}, 50, 64)
	require.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())
	r, g, _, _ := img.At(32, 32).RGBA()
	assert.InDelta(t, 500%256, int(r>>8), 4)
	assert.InDelta(t, 500%256, int(g>>8), 4)

	// Left edge sits ~72 pixels west of the centre column.
	r, _, _, _ = img.At(0, 32).RGBA()
	assert.InDelta(t, 428, int(r>>8)+256, 6)

	img = m.Window(geo.Point{Lat: 10, Lon: 10}, 50, 16)
	r, g, b, _ := img.At(8, 8).RGBA()
	assert.Zero(t, r+g+b)
}
