package raster

import (
	"image"
	"math"

	"github.com/phanxgames/reel"
)

// compositeLayer draws a finished scene layer onto the frame. Outgoing
// layers of a transition are drawn first and incoming layers are revealed
// over them according to the transition kind.
func compositeLayer(dst, src *image.RGBA, l reel.Layer) {
	b := dst.Rect
	if l.Transition == nil {
		composite(dst, src, b, b.Min, 1, reel.BlendNormal)
		return
	}
	p := l.Progress
	w, h := float64(b.Dx()), float64(b.Dy())
	switch l.Transition.Kind {
	case reel.TransitionFade:
		if l.Incoming {
			composite(dst, src, b, b.Min, p, reel.BlendNormal)
			return
		}
	case reel.TransitionSlideLeft, reel.TransitionSlideRight:
		dx := -p * w
		if l.Incoming {
			dx = (1 - p) * w
		}
		if l.Transition.Kind == reel.TransitionSlideRight {
			dx = -dx
		}
		shift := int(math.Round(dx))
		composite(dst, src, b.Add(image.Pt(shift, 0)), b.Min, 1, reel.BlendNormal)
		return
	case reel.TransitionWipeLeft:
		if l.Incoming {
			edge := int(math.Round((1 - p) * w))
			r := image.Rect(b.Min.X+edge, b.Min.Y, b.Max.X, b.Max.Y)
			composite(dst, src, r, r.Min, 1, reel.BlendNormal)
			return
		}
	case reel.TransitionWipeRight:
		if l.Incoming {
			edge := int(math.Round(p * w))
			r := image.Rect(b.Min.X, b.Min.Y, b.Min.X+edge, b.Max.Y)
			composite(dst, src, r, r.Min, 1, reel.BlendNormal)
			return
		}
	case reel.TransitionCircleOpen:
		if l.Incoming {
			cx, cy := w/2, h/2
			radius := p * math.Hypot(w, h) / 2
			compositeFunc(dst, src, b, b.Min, 1, reel.BlendNormal, func(x, y int) float32 {
				d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
				return float32(max(0, min(1, radius-d+0.5)))
			})
			return
		}
	}
	composite(dst, src, b, b.Min, 1, reel.BlendNormal)
}
