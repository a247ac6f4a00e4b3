// Package groundmap provides a georeferenced ground image and a simulated
// downward-looking camera that crops it around the vehicle.
package groundmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/image/draw"

	"dronenav/pkg/geo"
)

// DefaultBBox is used when no metadata file is available.
var DefaultBBox = BBox{-1, 51, 0, 52}

// Fallback canvas used when the map image is missing.
const (
	fallbackWidth  = 1500
	fallbackHeight = 1000
)

// BBox is [minLon, minLat, maxLon, maxLat].
type BBox [4]float64

func (b BBox) lonRange() float64 { return b[2] - b[0] }
func (b BBox) latRange() float64 { return b[3] - b[1] }

// Degenerate reports whether the box has zero extent on either axis.
func (b BBox) Degenerate() bool {
	return b.lonRange() == 0 || b.latRange() == 0
}

// Meta is the on-disk metadata accompanying a ground map image.
type Meta struct {
	BBox BBox `json:"bbox"`
}

// Map is a ground image spanning a lat/lon bounding box with linear mapping.
type Map struct {
	img  image.Image
	bbox BBox
}

// New wraps img with bbox.
func New(img image.Image, bbox BBox) *Map {
	return &Map{img: img, bbox: bbox}
}

// Load reads the map image and its metadata. A missing image yields a black
// canvas; missing or invalid metadata falls back to DefaultBBox.
func Load(imagePath, metaPath string) (*Map, error) {
	img, err := loadImage(imagePath)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Ground map image not found, using blank canvas", "path", imagePath)
		img = blank(fallbackWidth, fallbackHeight)
	} else if err != nil {
		return nil, err
	}

	bbox, err := loadMeta(metaPath)
	if err != nil {
		slog.Warn("Ground map metadata unavailable, using default bbox", "path", metaPath, "error", err)
		bbox = DefaultBBox
	}
	return New(img, bbox), nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ground map: %w", err)
	}
	return img, nil
}

func loadMeta(path string) (BBox, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BBox{}, err
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return BBox{}, fmt.Errorf("failed to parse map meta: %w", err)
	}
	return m.BBox, nil
}

func blank(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return img
}

// Image returns the underlying ground image.
func (m *Map) Image() image.Image { return m.img }

// BBox returns the geographic extent.
func (m *Map) BBox() BBox { return m.bbox }

// Size returns the image dimensions in pixels.
func (m *Map) Size() (int, int) {
	b := m.img.Bounds()
	return b.Dx(), b.Dy()
}

// LatLonToPixel maps a position to image pixel coordinates relative to the
// image origin. Latitude increases upward. A degenerate bbox maps everything
// to the centre pixel.
func (m *Map) LatLonToPixel(p geo.Point) (int, int) {
	w, h := m.Size()
	if m.bbox.Degenerate() {
		return w / 2, h / 2
	}
	x := (p.Lon - m.bbox[0]) / m.bbox.lonRange() * float64(w)
	y := (m.bbox[3] - p.Lat) / m.bbox.latRange() * float64(h)
	return int(x), int(y)
}

// PixelToLatLon is the inverse of LatLonToPixel.
func (m *Map) PixelToLatLon(x, y int) geo.Point {
	w, h := m.Size()
	if w == 0 || h == 0 {
		return geo.Point{}
	}
	return geo.Point{
		Lat: m.bbox[3] - float64(y)/float64(h)*m.bbox.latRange(),
		Lon: m.bbox[0] + float64(x)/float64(w)*m.bbox.lonRange(),
	}
}
