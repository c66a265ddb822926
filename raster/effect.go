package raster

import (
	"image"
	"math"

	"github.com/phanxgames/reel"
)

// applyEffect filters the group image in place and returns the rectangle
// that now holds visible pixels.
func applyEffect(img *image.RGBA, dirty image.Rectangle, e *reel.EffectElement) image.Rectangle {
	if dirty.Empty() {
		return dirty
	}
	switch e.Effect {
	case reel.EffectBlur:
		radius := int(math.Round(e.Param("radius", 0)))
		if radius <= 0 {
			return dirty
		}
		// Three box passes approximate a gaussian; each spreads by radius.
		area := dirty.Inset(-3 * radius).Intersect(img.Rect)
		tmp := make([]uint8, len(img.Pix))
		for range 3 {
			boxBlurH(img.Pix, tmp, img.Stride, area, radius)
			boxBlurV(tmp, img.Pix, img.Stride, area, radius)
		}
		return area
	case reel.EffectGrayscale:
		amount := float32(clampUnit(e.Param("amount", 1)))
		forEach(img, dirty, func(p []uint8) {
			lum := 0.299*float32(p[0]) + 0.587*float32(p[1]) + 0.114*float32(p[2])
			for c := range 3 {
				v := float32(p[c])
				p[c] = uint8(v + (lum-v)*amount + 0.5)
			}
		})
	case reel.EffectBrightness:
		k := float32(max(0, e.Param("amount", 1)))
		forEach(img, dirty, func(p []uint8) {
			for c := range 3 {
				p[c] = uint8(min(float32(p[3]), float32(p[c])*k) + 0.5)
			}
		})
	}
	return dirty
}

func forEach(img *image.RGBA, r image.Rectangle, fn func(p []uint8)) {
	r = r.Intersect(img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x, i = x+1, i+4 {
			fn(img.Pix[i : i+4 : i+4])
		}
	}
}

// boxBlurH averages each pixel with radius neighbours on either side,
// treating pixels outside r as transparent.
func boxBlurH(src, dst []uint8, stride int, r image.Rectangle, radius int) {
	n := uint32(2*radius + 1)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := y * stride
		var sum [4]uint32
		for x := r.Min.X; x <= min(r.Max.X-1, r.Min.X+radius); x++ {
			addPixel(&sum, src, row+x*4, 1)
		}
		for x := r.Min.X; x < r.Max.X; x++ {
			i := row + x*4
			for c := range 4 {
				dst[i+c] = uint8((sum[c] + n/2) / n)
			}
			if in := x + radius + 1; in < r.Max.X {
				addPixel(&sum, src, row+in*4, 1)
			}
			if out := x - radius; out >= r.Min.X {
				addPixel(&sum, src, row+out*4, -1)
			}
		}
	}
}

func boxBlurV(src, dst []uint8, stride int, r image.Rectangle, radius int) {
	n := uint32(2*radius + 1)
	for x := r.Min.X; x < r.Max.X; x++ {
		col := x * 4
		var sum [4]uint32
		for y := r.Min.Y; y <= min(r.Max.Y-1, r.Min.Y+radius); y++ {
			addPixel(&sum, src, y*stride+col, 1)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			i := y*stride + col
			for c := range 4 {
				dst[i+c] = uint8((sum[c] + n/2) / n)
			}
			if in := y + radius + 1; in < r.Max.Y {
				addPixel(&sum, src, in*stride+col, 1)
			}
			if out := y - radius; out >= r.Min.Y {
				addPixel(&sum, src, out*stride+col, -1)
			}
		}
	}
}

func addPixel(sum *[4]uint32, pix []uint8, i int, sign int) {
	for c := range 4 {
		if sign > 0 {
			sum[c] += uint32(pix[i+c])
		} else {
			sum[c] -= uint32(pix[i+c])
		}
	}
}

func clampUnit(v float64) float64 { return max(0, min(1, v)) }
