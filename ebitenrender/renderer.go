// Package ebitenrender draws reel frames with Ebitengine and plays a
// Director in a window for interactive preview.
package ebitenrender

import (
	"errors"
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/reel"
)

// Renderer implements reel.Renderer on the GPU. All drawing must happen on
// the Ebitengine game goroutine, inside Update or Draw.
type Renderer struct {
	// Background fills every frame before the first layer.
	Background reel.Color

	fonts   *Fonts
	frame   *ebiten.Image
	free    []*ebiten.Image
	stack   []*ebiten.Image
	layer   reel.Layer
	inFrame bool

	textures map[image.Image]*texture
	shaders  shaders
	blur     blur
	white    *ebiten.Image

	verts []ebiten.Vertex
	inds  []uint16
	imgOp ebiten.DrawImageOptions
}

// texture is an uploaded image. Textures not used during a frame are
// released at EndFrame.
type texture struct {
	img  *ebiten.Image
	used bool
}

// New creates a renderer using the Go fonts.
func New() *Renderer {
	return NewWithFonts(DefaultFonts())
}

// NewWithFonts creates a renderer drawing text with fonts.
func NewWithFonts(fonts *Fonts) *Renderer {
	return &Renderer{
		Background: reel.ColorBlack,
		fonts:      fonts,
		textures:   make(map[image.Image]*texture),
	}
}

// Fonts returns the fonts used for text.
func (r *Renderer) Fonts() *Fonts { return r.fonts }

// Frame returns the most recently finished frame.
func (r *Renderer) Frame() *ebiten.Image { return r.frame }

func (r *Renderer) BeginFrame(info reel.FrameInfo) error {
	if info.Width <= 0 || info.Height <= 0 {
		return errors.New("ebitenrender: empty frame")
	}
	if r.frame == nil || r.frame.Bounds().Dx() != info.Width || r.frame.Bounds().Dy() != info.Height {
		if r.frame != nil {
			r.frame.Deallocate()
		}
		for _, img := range r.free {
			img.Deallocate()
		}
		r.free = nil
		r.frame = ebiten.NewImage(info.Width, info.Height)
	}
	r.frame.Fill(r.Background)
	r.stack = r.stack[:0]
	r.inFrame = true
	return nil
}

func (r *Renderer) BeginLayer(l reel.Layer) error {
	if !r.inFrame {
		return errors.New("ebitenrender: BeginLayer outside a frame")
	}
	r.layer = l
	r.stack = append(r.stack, r.acquire())
	return nil
}

func (r *Renderer) EndLayer() error {
	if len(r.stack) != 1 {
		return errors.New("ebitenrender: EndLayer with open groups")
	}
	img := r.pop()
	r.compositeLayer(img)
	r.release(img)
	return nil
}

func (r *Renderer) BeginGroup(n *reel.RenderNode) error {
	if len(r.stack) == 0 {
		return errors.New("ebitenrender: BeginGroup outside a layer")
	}
	r.stack = append(r.stack, r.acquire())
	return nil
}

func (r *Renderer) EndGroup(n *reel.RenderNode) error {
	if len(r.stack) < 2 {
		return errors.New("ebitenrender: EndGroup without BeginGroup")
	}
	img := r.pop()
	var err error
	if e, ok := n.Element.(*reel.EffectElement); ok {
		var out *ebiten.Image
		out, err = r.applyEffect(img, e)
		if out != img {
			r.release(img)
			img = out
		}
	}
	if n.Mask != nil {
		r.applyMask(img, n.Mask)
	}
	op := &r.imgOp
	op.GeoM.Reset()
	op.ColorScale.Reset()
	op.Blend = blendOf(n.BlendMode)
	op.Filter = ebiten.FilterNearest
	r.top().DrawImage(img, op)
	r.release(img)
	return err
}

func (r *Renderer) DrawNode(n *reel.RenderNode) error {
	if len(r.stack) == 0 {
		return errors.New("ebitenrender: DrawNode outside a layer")
	}
	return r.draw(r.top(), n, n.Opacity, blendOf(n.BlendMode))
}

func (r *Renderer) EndFrame() (image.Image, error) {
	if !r.inFrame {
		return nil, errors.New("ebitenrender: EndFrame outside a frame")
	}
	if len(r.stack) != 0 {
		return nil, errors.New("ebitenrender: EndFrame with open layers")
	}
	r.inFrame = false
	for src, t := range r.textures {
		if !t.used {
			t.img.Deallocate()
			delete(r.textures, src)
			continue
		}
		t.used = false
	}
	return r.frame, nil
}

// applyMask multiplies img by the alpha of the mask node.
func (r *Renderer) applyMask(img *ebiten.Image, mask *reel.RenderNode) {
	cov := r.acquire()
	defer r.release(cov)
	_ = r.draw(cov, mask, mask.Opacity, ebiten.BlendSourceOver)
	op := &r.imgOp
	op.GeoM.Reset()
	op.ColorScale.Reset()
	op.Blend = maskBlend
	img.DrawImage(cov, op)
}

// compositeLayer draws a finished scene layer onto the frame, revealing
// incoming layers of a transition according to its kind.
func (r *Renderer) compositeLayer(img *ebiten.Image) {
	l := r.layer
	op := &r.imgOp
	op.GeoM.Reset()
	op.ColorScale.Reset()
	op.Blend = ebiten.BlendSourceOver
	op.Filter = ebiten.FilterNearest
	if l.Transition == nil {
		r.frame.DrawImage(img, op)
		return
	}
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	p := l.Progress
	switch l.Transition.Kind {
	case reel.TransitionFade:
		if l.Incoming {
			op.ColorScale.ScaleAlpha(float32(p))
		}
	case reel.TransitionSlideLeft, reel.TransitionSlideRight:
		dx := -p * w
		if l.Incoming {
			dx = (1 - p) * w
		}
		if l.Transition.Kind == reel.TransitionSlideRight {
			dx = -dx
		}
		op.GeoM.Translate(math.Round(dx), 0)
	case reel.TransitionWipeLeft, reel.TransitionWipeRight:
		if l.Incoming {
			edge := int(math.Round(p * w))
			sub := image.Rect(b.Min.X, b.Min.Y, b.Min.X+edge, b.Max.Y)
			if l.Transition.Kind == reel.TransitionWipeLeft {
				sub = image.Rect(b.Max.X-edge, b.Min.Y, b.Max.X, b.Max.Y)
			}
			if sub.Empty() {
				return
			}
			op.GeoM.Translate(float64(sub.Min.X), float64(sub.Min.Y))
			r.frame.DrawImage(img.SubImage(sub).(*ebiten.Image), op)
			return
		}
	case reel.TransitionCircleOpen:
		if l.Incoming {
			var sop ebiten.DrawRectShaderOptions
			sop.Images[0] = img
			sop.Uniforms = map[string]any{"Radius": float32(p * math.Hypot(w, h) / 2)}
			r.frame.DrawRectShader(b.Dx(), b.Dy(), r.shaders.circleReveal(), &sop)
			return
		}
	}
	r.frame.DrawImage(img, op)
}

func (r *Renderer) pop() *ebiten.Image {
	img := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	return img
}

func (r *Renderer) top() *ebiten.Image { return r.stack[len(r.stack)-1] }

// acquire returns a cleared frame-sized offscreen image.
func (r *Renderer) acquire() *ebiten.Image {
	if n := len(r.free); n > 0 {
		img := r.free[n-1]
		r.free = r.free[:n-1]
		img.Clear()
		return img
	}
	return ebiten.NewImage(r.frame.Bounds().Dx(), r.frame.Bounds().Dy())
}

func (r *Renderer) release(img *ebiten.Image) {
	if img.Bounds() == r.frame.Bounds() {
		r.free = append(r.free, img)
		return
	}
	img.Deallocate()
}

// upload returns the GPU copy of src, creating it on first use.
func (r *Renderer) upload(src image.Image) *ebiten.Image {
	if img, ok := src.(*ebiten.Image); ok {
		return img
	}
	t, ok := r.textures[src]
	if !ok {
		t = &texture{img: ebiten.NewImageFromImage(src)}
		r.textures[src] = t
	}
	t.used = true
	return t.img
}
