package raster

import (
	"image"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/phanxgames/reel"
)

// Fonts caches faces of one OpenType font by pixel size. It is safe for
// concurrent use and implements reel.TextMetrics.
type Fonts struct {
	font *opentype.Font

	mu    sync.Mutex
	faces map[int]font.Face
}

// NewFonts parses an OpenType or TrueType font.
func NewFonts(data []byte) (*Fonts, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	return &Fonts{font: f, faces: make(map[int]font.Face)}, nil
}

// DefaultFonts returns the shared Go Regular fonts.
var DefaultFonts = sync.OnceValue(func() *Fonts {
	f, err := NewFonts(goregular.TTF)
	if err != nil {
		panic("raster: parsing Go Regular: " + err.Error())
	}
	return f
})

// face returns a face for size, quantized to quarter pixels.
func (f *Fonts) face(size float64) font.Face {
	key := max(1, int(math.Round(size*4)))
	f.mu.Lock()
	defer f.mu.Unlock()
	if face, ok := f.faces[key]; ok {
		return face
	}
	face, err := opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    float64(key) / 4,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil
	}
	f.faces[key] = face
	return face
}

func (f *Fonts) MeasureString(s string, size float64) (float64, float64) {
	face := f.face(size)
	if face == nil {
		return reel.DefaultMetrics.MeasureString(s, size)
	}
	lines := strings.Split(s, "\n")
	w := 0.0
	for _, l := range lines {
		w = max(w, fixedFloat(font.MeasureString(face, l)))
	}
	return w, float64(len(lines)) * fixedFloat(face.Metrics().Height)
}

func (f *Fonts) LineHeight(size float64) float64 {
	face := f.face(size)
	if face == nil {
		return reel.DefaultMetrics.LineHeight(size)
	}
	return fixedFloat(face.Metrics().Height)
}

func fixedFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

// paintText rasterizes the text at its on-screen scale and maps the result
// through the node's world transform.
func (r *Renderer) paintText(dst *image.RGBA, n *reel.RenderNode, e *reel.TextElement) error {
	if e.Content == "" || e.Color.Current.A <= 0 {
		return nil
	}
	m := n.World
	s := math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
	if s == 0 {
		return nil
	}
	size := e.EffectiveFontSize() * s
	face := r.fonts.face(size)
	if face == nil {
		return nil
	}
	states := e.Glyphs()
	pad := math.Ceil(glyphExtent(states, e.EffectiveFontSize()) * s)
	w, h := r.fonts.MeasureString(e.Content, size)
	boxW := max(w, n.Rect.Width*s)
	tmp := image.NewRGBA(image.Rect(0, 0, int(math.Ceil(boxW+2*pad))+2, int(math.Ceil(h+2*pad))+2))

	metrics := face.Metrics()
	d := font.Drawer{Dst: tmp, Src: image.NewUniform(e.Color.Current), Face: face}
	first := 0
	for i, line := range strings.Split(e.Content, "\n") {
		lw := fixedFloat(font.MeasureString(face, line))
		x := 0.0
		switch e.Align {
		case reel.TextAlignCenter:
			x = (boxW - lw) / 2
		case reel.TextAlignRight:
			x = boxW - lw
		}
		dot := fixed.Point26_6{
			X: fixed.Int26_6(math.Round((x + pad) * 64)),
			Y: metrics.Ascent + fixed.Int26_6(i)*metrics.Height + fixed.Int26_6(pad*64),
		}
		if states == nil {
			d.Dot = dot
			d.DrawString(line)
		} else {
			drawGlyphs(tmp, face, line, states[first:], dot, e.Color.Current, s)
		}
		first += utf8.RuneCountInString(line) + 1
	}

	toFrame := m.Translate(n.Rect.X, n.Rect.Y).Mul(reel.Affine{1 / s, 0, 0, 1 / s, -pad / s, -pad / s})
	draw.BiLinear.Transform(dst, aff3(toFrame), tmp, tmp.Bounds(), draw.Over, nil)
	return nil
}

// drawGlyphs draws line one rune at a time starting at dot, applying the
// glyph state of each rune. Offsets are scaled by s into pixels.
func drawGlyphs(dst *image.RGBA, face font.Face, line string, states []reel.GlyphState, dot fixed.Point26_6, c reel.Color, s float64) {
	metrics := face.Metrics()
	prev := rune(-1)
	i := 0
	for _, ch := range line {
		st := reel.IdentityGlyph
		if i < len(states) {
			st = states[i]
		}
		i++
		if prev >= 0 {
			dot.X += face.Kern(prev, ch)
		}
		prev = ch
		adv, ok := face.GlyphAdvance(ch)
		if !ok {
			continue
		}
		if st.Opacity <= 0 {
			dot.X += adv
			continue
		}
		src := image.NewUniform(c.WithAlpha(min(st.Opacity, 1)))
		if st.Scale == 1 && st.Rotation == 0 && st.OffsetX == 0 && st.OffsetY == 0 {
			d := font.Drawer{Dst: dst, Src: src, Face: face, Dot: dot}
			d.DrawString(string(ch))
			dot.X += adv
			continue
		}
		cell := image.NewRGBA(image.Rect(0, 0, adv.Ceil()+2, metrics.Height.Ceil()+2))
		d := font.Drawer{Dst: cell, Src: src, Face: face, Dot: fixed.Point26_6{X: fixed.I(1), Y: metrics.Ascent + fixed.I(1)}}
		d.DrawString(string(ch))

		st.OffsetX *= s
		st.OffsetY *= s
		cb := cell.Bounds()
		at := reel.Affine{1, 0, 0, 1, fixedFloat(dot.X) - 1, fixedFloat(dot.Y-metrics.Ascent) - 1}
		gm := at.Mul(st.Matrix(float64(cb.Dx())/2, float64(cb.Dy())/2))
		draw.BiLinear.Transform(dst, aff3(gm), cell, cb, draw.Over, nil)
		dot.X += adv
	}
}

// glyphExtent is the farthest any animated glyph reaches outside its cell,
// in local pixels.
func glyphExtent(states []reel.GlyphState, size float64) float64 {
	e := 0.0
	for _, st := range states {
		e = max(e, st.Extent(size))
	}
	return e
}
