package raster

import (
	"image"

	"github.com/phanxgames/reel"
)

// composite blends src into dst over the dst rectangle r. sp is the source
// point aligned with r.Min. Pixels are premultiplied; src is scaled by
// opacity before blending.
func composite(dst, src *image.RGBA, r image.Rectangle, sp image.Point, opacity float64, mode reel.BlendMode) {
	compositeFunc(dst, src, r, sp, opacity, mode, nil)
}

// compositeFunc is composite with an optional per-pixel coverage in [0, 1]
// evaluated at dst coordinates.
func compositeFunc(dst, src *image.RGBA, r image.Rectangle, sp image.Point, opacity float64, mode reel.BlendMode, cov func(x, y int) float32) {
	// Clip r so both the dst and the shifted src rectangles stay in bounds.
	off := sp.Sub(r.Min)
	r = r.Intersect(dst.Rect).Intersect(src.Rect.Sub(off))
	if r.Empty() || opacity <= 0 {
		return
	}
	op := float32(min(opacity, 1))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		di := dst.PixOffset(r.Min.X, y)
		si := src.PixOffset(r.Min.X+off.X, y+off.Y)
		for x := r.Min.X; x < r.Max.X; x, di, si = x+1, di+4, si+4 {
			k := op
			if cov != nil {
				k *= cov(x, y)
			}
			sv := src.Pix[si : si+4 : si+4]
			if (sv[3] == 0 || k == 0) && mode != reel.BlendMask && mode != reel.BlendNone {
				continue
			}
			s := [4]float32{
				float32(sv[0]) / 255 * k,
				float32(sv[1]) / 255 * k,
				float32(sv[2]) / 255 * k,
				float32(sv[3]) / 255 * k,
			}
			dp := dst.Pix[di : di+4 : di+4]
			d := [4]float32{float32(dp[0]) / 255, float32(dp[1]) / 255, float32(dp[2]) / 255, float32(dp[3]) / 255}
			o := blend(mode, s, d)
			for c := range 4 {
				dp[c] = unit8(o[c])
			}
		}
	}
}

// blend combines premultiplied s over d.
func blend(mode reel.BlendMode, s, d [4]float32) [4]float32 {
	sa, da := s[3], d[3]
	var o [4]float32
	switch mode {
	case reel.BlendAdd:
		for c := range 4 {
			o[c] = s[c] + d[c]
		}
	case reel.BlendMultiply:
		for c := range 3 {
			o[c] = s[c]*d[c] + d[c]*(1-sa)
		}
		o[3] = sa*da + da*(1-sa)
	case reel.BlendScreen:
		for c := range 3 {
			o[c] = s[c] + d[c]*(1-s[c])
		}
		o[3] = sa + da*(1-sa)
	case reel.BlendErase:
		for c := range 4 {
			o[c] = d[c] * (1 - sa)
		}
	case reel.BlendMask:
		for c := range 4 {
			o[c] = d[c] * sa
		}
	case reel.BlendBelow:
		for c := range 4 {
			o[c] = d[c] + s[c]*(1-da)
		}
	case reel.BlendNone:
		o = s
	default:
		for c := range 4 {
			o[c] = s[c] + d[c]*(1-sa)
		}
	}
	return o
}

func unit8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

// fill sets every pixel of r to the premultiplied color c.
func fill(img *image.RGBA, r image.Rectangle, c reel.Color) {
	r = r.Intersect(img.Rect)
	pr, pg, pb, pa := c.RGBA()
	px := [4]uint8{uint8(pr >> 8), uint8(pg >> 8), uint8(pb >> 8), uint8(pa >> 8)}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x, i = x+1, i+4 {
			copy(img.Pix[i:i+4], px[:])
		}
	}
}

func clearRect(img *image.RGBA, r image.Rectangle) {
	r = r.Intersect(img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := img.PixOffset(r.Min.X, y)
		clear(img.Pix[i : i+4*r.Dx()])
	}
}
