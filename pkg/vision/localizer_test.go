package vision

import (
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noiseImage(seed int64, size int) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

func uniformImage(size int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestMatchWaypoint_IdenticalImageSucceeds(t *testing.T) {
	ref := noiseImage(1, 160)
	l := New([]image.Image{ref}, DefaultConfig())
	require.Greater(t, l.FeatureCount(0), 100)

	res := l.MatchWaypoint(ref, 0)
	assert.True(t, res.Success)
	assert.GreaterOrEqual(t, res.Confidence, 1.0)
	assert.Equal(t, res.Matches, int(res.Confidence*100+0.5))
}

func TestMatchWaypoint_UnrelatedImageFails(t *testing.T) {
	l := New([]image.Image{noiseImage(1, 160)}, DefaultConfig())

	res := l.MatchWaypoint(noiseImage(2, 160), 0)
	assert.False(t, res.Success)
	assert.Less(t, res.Confidence, 0.25)
}

func TestMatchWaypoint_NoFeatures(t *testing.T) {
	l := New([]image.Image{noiseImage(1, 160), uniformImage(160, 128), nil}, DefaultConfig())

	tests := []struct {
		name string
		live image.Image
		idx  int
	}{
		{"Featureless live frame", uniformImage(160, 90), 0},
		{"Nil live frame", nil, 0},
		{"Featureless reference", noiseImage(1, 160), 1},
		{"Nil reference", noiseImage(1, 160), 2},
		{"Negative index", noiseImage(1, 160), -1},
		{"Index past end", noiseImage(1, 160), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := l.MatchWaypoint(tt.live, tt.idx)
			assert.Equal(t, Result{}, res)
		})
	}
}

func TestMatchWaypoint_Deterministic(t *testing.T) {
	ref := noiseImage(7, 128)
	live := noiseImage(7, 128)
	// Perturb part of the frame so the result is not trivially saturated.
	for y := 0; y < 64; y++ {
		for x := 0; x < 128; x++ {
			live.SetGray(x, y, color.Gray{Y: uint8((x * y) % 256)})
		}
	}

	a := New([]image.Image{ref}, DefaultConfig())
	b := New([]image.Image{ref}, DefaultConfig())

	first := a.MatchWaypoint(live, 0)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, a.MatchWaypoint(live, 0))
		assert.Equal(t, first, b.MatchWaypoint(live, 0))
	}
}

func TestNew_ReferenceCounts(t *testing.T) {
	l := New([]image.Image{noiseImage(3, 96), nil}, Config{})

	assert.Equal(t, 2, l.Count())
	assert.Positive(t, l.FeatureCount(0))
	assert.Zero(t, l.FeatureCount(1))
	assert.Zero(t, l.FeatureCount(5))
	assert.Equal(t, DefaultConfig(), l.Config())
}

func TestGrayscale_DownscalesLargeImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 1290, 730))
	g := grayscale(src, 640)

	assert.Equal(t, 640, g.Rect.Dx())
	assert.Equal(t, 360, g.Rect.Dy())
	assert.Equal(t, image.Point{}, g.Rect.Min)
}

func TestBoxBlur_PreservesUniform(t *testing.T) {
	out := boxBlur(uniformImage(20, 77), 2)
	for _, v := range out.Pix {
		require.Equal(t, uint8(77), v)
	}
}

func TestLoadReferenceImages(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "waypoint_1_b.png"), noiseImage(1, 32))
	writePNG(t, filepath.Join(dir, "waypoint_0_a.png"), noiseImage(2, 32))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "waypoint_2_c.png"), []byte("broken"), 0o644))

	imgs, names, err := LoadReferenceImages(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"waypoint_0_a.png", "waypoint_1_b.png", "waypoint_2_c.png"}, names)
	require.Len(t, imgs, 3)
	assert.NotNil(t, imgs[0])
	assert.NotNil(t, imgs[1])
	assert.Nil(t, imgs[2])

	_, _, err = LoadReferenceImages(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
