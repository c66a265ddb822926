package ebitenrender

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/reel"
)

// applyEffect post-processes a finished group. It returns the image holding
// the result, which is src itself when the effect is a no-op. A shader that
// fails to compile leaves the group unprocessed and is reported.
func (r *Renderer) applyEffect(src *ebiten.Image, e *reel.EffectElement) (*ebiten.Image, error) {
	switch e.Effect {
	case reel.EffectBlur:
		radius := int(math.Round(e.Param("radius", 0)))
		if radius <= 0 {
			return src, nil
		}
		dst := r.acquire()
		r.blur.apply(src, dst, radius)
		return dst, nil
	case reel.EffectGrayscale:
		return r.colorMatrix(src, grayscaleMatrix(max(0, min(1, e.Param("amount", 1))))), nil
	case reel.EffectBrightness:
		return r.colorMatrix(src, brightnessMatrix(max(0, e.Param("amount", 1)))), nil
	case reel.EffectShader:
		if e.Shader == "" {
			return src, nil
		}
		sh, err := r.shaders.compile(e.Shader)
		if err != nil {
			return src, err
		}
		uniforms := make(map[string]any, len(e.Params))
		for _, name := range e.ParamNames() {
			uniforms[uniformName(name)] = float32(e.Param(name, 0))
		}
		dst := r.acquire()
		b := src.Bounds()
		var op ebiten.DrawRectShaderOptions
		op.Images[0] = src
		op.Uniforms = uniforms
		dst.DrawRectShader(b.Dx(), b.Dy(), sh, &op)
		return dst, nil
	}
	return src, nil
}

func (r *Renderer) colorMatrix(src *ebiten.Image, m [20]float32) *ebiten.Image {
	dst := r.acquire()
	b := src.Bounds()
	var op ebiten.DrawRectShaderOptions
	op.Images[0] = src
	op.Uniforms = map[string]any{"Matrix": m[:]}
	dst.DrawRectShader(b.Dx(), b.Dy(), r.shaders.colorMatrix(), &op)
	return dst
}

// blur is a Kawase blur using downscale and upscale passes. Bilinear
// filtering during DrawImage does the averaging.
type blur struct {
	temps []*ebiten.Image
	op    ebiten.DrawImageOptions
}

func (f *blur) apply(src, dst *ebiten.Image, radius int) {
	passes := max(1, int(math.Ceil(math.Log2(float64(radius)))))
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	for len(f.temps) < passes {
		f.temps = append(f.temps, nil)
	}
	for i := passes; i < len(f.temps); i++ {
		if f.temps[i] != nil {
			f.temps[i].Deallocate()
			f.temps[i] = nil
		}
	}
	f.temps = f.temps[:passes]

	current := src
	for i := range passes {
		w, h = max(w/2, 1), max(h/2, 1)
		if t := f.temps[i]; t == nil || t.Bounds().Dx() != w || t.Bounds().Dy() != h {
			if t != nil {
				t.Deallocate()
			}
			f.temps[i] = ebiten.NewImage(w, h)
		} else {
			t.Clear()
		}
		f.scaleInto(f.temps[i], current)
		current = f.temps[i]
	}
	for i := passes - 2; i >= 0; i-- {
		f.temps[i].Clear()
		f.scaleInto(f.temps[i], current)
		current = f.temps[i]
	}
	f.scaleInto(dst, current)
}

func (f *blur) scaleInto(dst, src *ebiten.Image) {
	op := &f.op
	op.GeoM.Reset()
	op.ColorScale.Reset()
	op.GeoM.Scale(
		float64(dst.Bounds().Dx())/float64(src.Bounds().Dx()),
		float64(dst.Bounds().Dy())/float64(src.Bounds().Dy()),
	)
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(src, op)
}
