package vision

import (
	"image"

	"golang.org/x/image/draw"
)

// grayscale converts img to an 8-bit luminance image anchored at the origin,
// scaling it down (never up) so that neither side exceeds maxDim.
func grayscale(img image.Image, maxDim int) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if maxDim > 0 && (w > maxDim || h > maxDim) {
		ratio := float64(maxDim) / float64(w)
		if rh := float64(maxDim) / float64(h); rh < ratio {
			ratio = rh
		}
		nw := max(1, int(float64(w)*ratio))
		nh := max(1, int(float64(h)*ratio))
		dst := image.NewGray(image.Rect(0, 0, nw, nh))
		draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		return dst
	}

	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// boxBlur smooths g with a (2r+1)x(2r+1) mean filter using an integral image.
// Windows are clipped at the borders.
func boxBlur(g *image.Gray, r int) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	stride := w + 1
	integral := make([]int, stride*(h+1))
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += int(g.Pix[y*g.Stride+x])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + rowSum
		}
	}

	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-r), min(h, y+r+1)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-r), min(w, x+r+1)
			sum := integral[y1*stride+x1] - integral[y0*stride+x1] - integral[y1*stride+x0] + integral[y0*stride+x0]
			n := (y1 - y0) * (x1 - x0)
			out.Pix[y*out.Stride+x] = uint8(sum / n)
		}
	}
	return out
}
