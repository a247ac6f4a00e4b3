package vision

import (
	"image"
	"math/bits"
	"math/rand"
	"sort"
)

const (
	patchRadius = 15
	// Keypoints closer than this to the border cannot be described.
	border     = patchRadius + 1
	blurRadius = 2
	fastArc    = 9
	// descriptorWords * 64 binary tests per descriptor.
	descriptorWords = 4
	patternSeed     = 0x5eed
)

// Descriptor is a 256-bit binary intensity-comparison descriptor.
type Descriptor [descriptorWords]uint64

// Hamming returns the number of differing bits.
func (d Descriptor) Hamming(o Descriptor) int {
	n := 0
	for i := range d {
		n += bits.OnesCount64(d[i] ^ o[i])
	}
	return n
}

// Keypoint is a detected corner in grayscale image coordinates.
type Keypoint struct {
	X, Y  int
	Score int
}

// Features are the keypoints and their descriptors for one image.
type Features struct {
	Keypoints   []Keypoint
	Descriptors []Descriptor
	Gray        *image.Gray
}

// Len returns the number of described keypoints.
func (f *Features) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Descriptors)
}

type offset struct{ dx, dy int }

// Bresenham circle of radius 3 used by the FAST segment test.
var fastCircle = [16]offset{
	{0, -3}, {1, -3}, {2, -2}, {3, -1}, {3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1}, {-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

type testPair struct{ a, b offset }

// briefPattern holds the sampling pairs of the binary tests. A fixed seed keeps
// descriptors identical across runs and processes.
var briefPattern = buildPattern()

func buildPattern() [descriptorWords * 64]testPair {
	var p [descriptorWords * 64]testPair
	rng := rand.New(rand.NewSource(patternSeed))
	sample := func() int {
		v := int(rng.NormFloat64() * float64(2*patchRadius+1) / 5)
		return min(patchRadius, max(-patchRadius, v))
	}
	for i := range p {
		p[i] = testPair{
			a: offset{sample(), sample()},
			b: offset{sample(), sample()},
		}
	}
	return p
}

// extract detects up to maxFeatures FAST corners and computes their descriptors.
func extract(img image.Image, cfg Config) *Features {
	if img == nil {
		return &Features{}
	}
	g := grayscale(img, cfg.MaxDimension)
	kps := detectFAST(g, cfg.FASTThreshold)
	if len(kps) > cfg.MaxFeatures {
		kps = kps[:cfg.MaxFeatures]
	}

	smooth := boxBlur(g, blurRadius)
	descs := make([]Descriptor, len(kps))
	for i, kp := range kps {
		descs[i] = describe(smooth, kp)
	}
	return &Features{Keypoints: kps, Descriptors: descs, Gray: g}
}

// detectFAST runs the FAST-9 segment test with non-maximum suppression and returns
// keypoints ordered by descending score, ties broken by raster order.
func detectFAST(g *image.Gray, threshold int) []Keypoint {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w <= 2*border || h <= 2*border {
		return nil
	}

	scores := make([]int, w*h)
	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			scores[y*w+x] = cornerScore(g, x, y, threshold)
		}
	}

	var kps []Keypoint
	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			s := scores[y*w+x]
			if s == 0 || !isLocalMax(scores, w, x, y) {
				continue
			}
			kps = append(kps, Keypoint{X: x, Y: y, Score: s})
		}
	}

	sort.SliceStable(kps, func(i, j int) bool {
		return kps[i].Score > kps[j].Score
	})
	return kps
}

// isLocalMax suppresses a candidate when a neighbor scores higher, or equal and earlier in raster order.
func isLocalMax(scores []int, w, x, y int) bool {
	s := scores[y*w+x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := scores[(y+dy)*w+x+dx]
			if n > s || (n == s && (dy < 0 || (dy == 0 && dx < 0))) {
				return false
			}
		}
	}
	return true
}

// cornerScore returns 0 when (x, y) fails the segment test, otherwise the summed
// absolute contrast of the circle pixels beyond the threshold.
func cornerScore(g *image.Gray, x, y, threshold int) int {
	center := int(g.Pix[y*g.Stride+x])
	var class [16]int8
	score := 0
	for i, o := range fastCircle {
		v := int(g.Pix[(y+o.dy)*g.Stride+x+o.dx])
		switch {
		case v > center+threshold:
			class[i] = 1
			score += v - center - threshold
		case v < center-threshold:
			class[i] = -1
			score += center - threshold - v
		}
	}

	if !hasArc(&class, 1) && !hasArc(&class, -1) {
		return 0
	}
	return score
}

// hasArc reports whether fastArc contiguous circle pixels (with wrap-around) share class c.
func hasArc(class *[16]int8, c int8) bool {
	run := 0
	for i := 0; i < 16+fastArc-1; i++ {
		if class[i%16] == c {
			run++
			if run >= fastArc {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func describe(smooth *image.Gray, kp Keypoint) Descriptor {
	var d Descriptor
	at := func(o offset) uint8 {
		return smooth.Pix[(kp.Y+o.dy)*smooth.Stride+kp.X+o.dx]
	}
	for i, p := range briefPattern {
		if at(p.a) < at(p.b) {
			d[i/64] |= 1 << (uint(i) % 64)
		}
	}
	return d
}
