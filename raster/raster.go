// Package raster is a software reel.Renderer built on golang.org/x/image.
// It draws every element kind, composites transitions, masks, blend modes
// and the blur, grayscale and brightness effects, and needs no GPU, which
// makes it the renderer of choice for exports and tests.
package raster

import (
	"errors"
	"image"
	"math"

	"github.com/phanxgames/reel"
)

// Renderer rasterizes frames into an *image.RGBA with premultiplied alpha.
// The image returned by EndFrame is reused by the next frame.
type Renderer struct {
	// Background fills every frame before the first layer.
	Background reel.Color

	fonts   *Fonts
	frame   *image.RGBA
	scratch *image.RGBA
	free    []*image.RGBA
	stack   []*target
	layer   reel.Layer
	inFrame bool
}

// target is a buffer being drawn into: a layer or a group.
type target struct {
	img   *image.RGBA
	dirty image.Rectangle
}

// New creates a renderer with a black background and the Go fonts.
func New() *Renderer {
	return &Renderer{Background: reel.ColorBlack, fonts: DefaultFonts()}
}

// NewWithFonts creates a renderer drawing text with fonts.
func NewWithFonts(fonts *Fonts) *Renderer {
	r := New()
	if fonts != nil {
		r.fonts = fonts
	}
	return r
}

// Fonts returns the fonts used for text. They implement reel.TextMetrics,
// so passing them to reel.WithTextMetrics keeps layout and drawing in
// agreement.
func (r *Renderer) Fonts() *Fonts { return r.fonts }

func (r *Renderer) BeginFrame(info reel.FrameInfo) error {
	if info.Width <= 0 || info.Height <= 0 {
		return errors.New("raster: empty frame")
	}
	bounds := image.Rect(0, 0, info.Width, info.Height)
	if r.frame == nil || r.frame.Rect != bounds {
		r.frame = image.NewRGBA(bounds)
		r.scratch = image.NewRGBA(bounds)
		r.free = nil
	}
	fill(r.frame, bounds, r.Background)
	r.stack = r.stack[:0]
	r.inFrame = true
	return nil
}

func (r *Renderer) BeginLayer(l reel.Layer) error {
	if !r.inFrame {
		return errors.New("raster: BeginLayer outside a frame")
	}
	r.layer = l
	r.push()
	return nil
}

func (r *Renderer) EndLayer() error {
	if len(r.stack) != 1 {
		return errors.New("raster: EndLayer with open groups")
	}
	t := r.pop()
	compositeLayer(r.frame, t.img, r.layer)
	r.release(t.img)
	return nil
}

func (r *Renderer) BeginGroup(n *reel.RenderNode) error {
	if len(r.stack) == 0 {
		return errors.New("raster: BeginGroup outside a layer")
	}
	r.push()
	return nil
}

func (r *Renderer) EndGroup(n *reel.RenderNode) error {
	if len(r.stack) < 2 {
		return errors.New("raster: EndGroup without BeginGroup")
	}
	t := r.pop()
	defer r.release(t.img)
	if e, ok := n.Element.(*reel.EffectElement); ok {
		t.dirty = applyEffect(t.img, t.dirty, e)
	}
	if n.Mask != nil {
		r.applyMask(t, n.Mask)
	}
	parent := r.top()
	composite(parent.img, t.img, t.dirty, t.dirty.Min, 1, n.BlendMode)
	parent.dirty = parent.dirty.Union(t.dirty)
	return nil
}

func (r *Renderer) DrawNode(n *reel.RenderNode) error {
	if len(r.stack) == 0 {
		return errors.New("raster: DrawNode outside a layer")
	}
	if n.Kind == reel.ElementEffect {
		return nil
	}
	bounds := r.nodeBounds(n)
	if bounds.Empty() {
		return nil
	}
	clearRect(r.scratch, bounds)
	if err := r.paint(r.scratch, n, bounds); err != nil {
		return err
	}
	t := r.top()
	composite(t.img, r.scratch, bounds, bounds.Min, n.Opacity, n.BlendMode)
	t.dirty = t.dirty.Union(bounds)
	return nil
}

func (r *Renderer) EndFrame() (image.Image, error) {
	if !r.inFrame {
		return nil, errors.New("raster: EndFrame outside a frame")
	}
	if len(r.stack) != 0 {
		return nil, errors.New("raster: EndFrame with open layers")
	}
	r.inFrame = false
	return r.frame, nil
}

// applyMask multiplies the group by the coverage of the mask node.
func (r *Renderer) applyMask(t *target, mask *reel.RenderNode) {
	mb := r.nodeBounds(mask)
	cov := r.acquire()
	defer r.release(cov)
	if !mb.Empty() {
		if err := r.paint(cov, mask, mb); err != nil {
			mb = image.Rectangle{}
		}
	}
	scale := float32(mask.Opacity)
	for y := t.dirty.Min.Y; y < t.dirty.Max.Y; y++ {
		i := t.img.PixOffset(t.dirty.Min.X, y)
		for x := t.dirty.Min.X; x < t.dirty.Max.X; x, i = x+1, i+4 {
			a := float32(0)
			if image.Pt(x, y).In(mb) {
				a = float32(cov.Pix[i+3]) / 255 * scale
			}
			for c := range 4 {
				t.img.Pix[i+c] = uint8(float32(t.img.Pix[i+c])*a + 0.5)
			}
		}
	}
}

func (r *Renderer) push() {
	r.stack = append(r.stack, &target{img: r.acquire()})
}

func (r *Renderer) pop() *target {
	t := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	return t
}

func (r *Renderer) top() *target { return r.stack[len(r.stack)-1] }

// acquire returns a cleared frame-sized buffer.
func (r *Renderer) acquire() *image.RGBA {
	if n := len(r.free); n > 0 {
		img := r.free[n-1]
		r.free = r.free[:n-1]
		clear(img.Pix)
		return img
	}
	return image.NewRGBA(r.frame.Rect)
}

func (r *Renderer) release(img *image.RGBA) {
	if img.Rect == r.frame.Rect {
		r.free = append(r.free, img)
	}
}

// nodeBounds returns the pixel area a node can paint, in frame space.
func (r *Renderer) nodeBounds(n *reel.RenderNode) image.Rectangle {
	local := n.Rect
	pad := 2.0
	switch e := n.Element.(type) {
	case *reel.TextElement:
		w, h := r.fonts.MeasureString(e.Content, e.EffectiveFontSize())
		local.Width = max(local.Width, w)
		local.Height = max(local.Height, h)
		if ext := glyphExtent(e.Glyphs(), e.EffectiveFontSize()); ext > 0 {
			local = reel.Rect{X: local.X - ext, Y: local.Y - ext, Width: local.Width + 2*ext, Height: local.Height + 2*ext}
		}
	case *reel.VectorElement:
		b := e.Bounds()
		local = reel.Rect{X: n.Rect.X + b.X, Y: n.Rect.Y + b.Y, Width: b.Width, Height: b.Height}
		pad += e.StrokeWidth.Current
	case reel.ContentProvider:
		if img := e.Content(); img != nil {
			sz := img.Bounds().Size()
			dst, _ := reel.FitRect(fitOf(n.Element), reel.Size{Width: float64(sz.X), Height: float64(sz.Y)}, n.Rect)
			local = dst
		}
	}
	return transformedBounds(n.World, local, pad).Intersect(r.frame.Rect)
}

func transformedBounds(m reel.Affine, r reel.Rect, pad float64) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [4][2]float64{{r.X, r.Y}, {r.X + r.Width, r.Y}, {r.X, r.Y + r.Height}, {r.X + r.Width, r.Y + r.Height}} {
		x, y := m.Apply(p[0], p[1])
		minX, minY = min(minX, x), min(minY, y)
		maxX, maxY = max(maxX, x), max(maxY, y)
	}
	if math.IsNaN(minX) || math.IsInf(minX, 0) || math.IsInf(maxX, 0) {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor(minX-pad)), int(math.Floor(minY-pad)),
		int(math.Ceil(maxX+pad)), int(math.Ceil(maxY+pad)),
	)
}

func fitOf(el reel.Element) reel.ObjectFit {
	switch e := el.(type) {
	case *reel.ImageElement:
		return e.Fit
	case *reel.VideoElement:
		return e.Fit
	case *reel.SequenceElement:
		return e.Fit
	}
	return reel.FitFill
}
