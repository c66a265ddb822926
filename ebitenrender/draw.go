package ebitenrender

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"

	"github.com/phanxgames/reel"
)

// cornerSteps is the number of line segments per rounded corner.
const cornerSteps = 8

// draw paints n into dst at the given opacity.
func (r *Renderer) draw(dst *ebiten.Image, n *reel.RenderNode, opacity float64, blend ebiten.Blend) error {
	switch e := n.Element.(type) {
	case *reel.BoxElement:
		r.drawBox(dst, n, e, opacity, blend)
	case *reel.VectorElement:
		r.drawVector(dst, n, e, opacity, blend)
	case *reel.TextElement:
		r.drawText(dst, n, e, opacity, blend)
	case *reel.ImageElement:
		if img := e.Content(); img != nil {
			r.drawContent(dst, n, img, e.Fit, e.Tint.Current.WithAlpha(opacity), blend)
		}
	case *reel.EffectElement, nil:
	case reel.ContentProvider:
		if img := e.Content(); img != nil {
			r.drawContent(dst, n, img, fitOf(n.Element), reel.ColorWhite.WithAlpha(opacity), blend)
		}
	default:
		return fmt.Errorf("ebitenrender: cannot draw %T", n.Element)
	}
	return nil
}

func (r *Renderer) whitePixel() *ebiten.Image {
	if r.white == nil {
		r.white = ebiten.NewImage(1, 1)
		r.white.Fill(color.White)
	}
	return r.white
}

func (r *Renderer) drawBox(dst *ebiten.Image, n *reel.RenderNode, b *reel.BoxElement, opacity float64, blend ebiten.Blend) {
	rad := b.CornerRadius.Current
	bw := min(b.BorderWidth.Current, n.Rect.Width/2, n.Rect.Height/2)
	fill := b.Fill.Current.WithAlpha(opacity)
	if rad <= 0 && (bw <= 0 || b.BorderColor.Current.A <= 0) {
		if fill.A <= 0 {
			return
		}
		op := &r.imgOp
		op.GeoM.Reset()
		op.GeoM.Scale(n.Rect.Width, n.Rect.Height)
		op.GeoM.Translate(n.Rect.X, n.Rect.Y)
		op.GeoM.Concat(geoM(n.World))
		op.ColorScale.Reset()
		op.ColorScale.ScaleWithColor(fill)
		op.Blend = blend
		op.Filter = ebiten.FilterNearest
		dst.DrawImage(r.whitePixel(), op)
		return
	}
	r.beginPath()
	r.polygon(n.World, roundRect(n.Rect, rad, false), fill)
	r.fillPath(dst, blend)
	if bw <= 0 || b.BorderColor.Current.A <= 0 {
		return
	}
	border := b.BorderColor.Current.WithAlpha(opacity)
	inner := reel.Rect{X: n.Rect.X + bw, Y: n.Rect.Y + bw, Width: n.Rect.Width - 2*bw, Height: n.Rect.Height - 2*bw}
	r.beginPath()
	r.polygon(n.World, roundRect(n.Rect, rad, false), border)
	r.polygon(n.World, roundRect(inner, max(0, rad-bw), true), border)
	r.fillPath(dst, blend)
}

func (r *Renderer) drawVector(dst *ebiten.Image, n *reel.RenderNode, v *reel.VectorElement, opacity float64, blend ebiten.Blend) {
	m := n.World.Translate(n.Rect.X, n.Rect.Y)
	if v.Closed && v.Fill.Current.A > 0 && v.Trim.Current >= 1 {
		r.beginPath()
		r.polygon(m, v.Points, v.Fill.Current.WithAlpha(opacity))
		r.fillPath(dst, blend)
	}
	w := v.StrokeWidth.Current
	if w <= 0 || v.Stroke.Current.A <= 0 {
		return
	}
	c := v.Stroke.Current.WithAlpha(opacity)
	pts := v.TrimmedPath()
	hw := w / 2
	r.beginPath()
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		l := math.Hypot(b.X-a.X, b.Y-a.Y)
		if l == 0 {
			continue
		}
		nx, ny := -(b.Y-a.Y)/l*hw, (b.X-a.X)/l*hw
		r.polygon(m, []reel.Vec2{
			{X: a.X + nx, Y: a.Y + ny},
			{X: b.X + nx, Y: b.Y + ny},
			{X: b.X - nx, Y: b.Y - ny},
			{X: a.X - nx, Y: a.Y - ny},
		}, c)
	}
	for _, p := range pts {
		disc := make([]reel.Vec2, 12)
		for s := range disc {
			a := -float64(s) / 12 * 2 * math.Pi
			disc[s] = reel.Vec2{X: p.X + hw*math.Cos(a), Y: p.Y + hw*math.Sin(a)}
		}
		r.polygon(m, disc, c)
	}
	r.fillPath(dst, blend)
}

func (r *Renderer) beginPath() {
	r.verts = r.verts[:0]
	r.inds = r.inds[:0]
}

// polygon appends a triangle fan for pts mapped through m. Fans of closed
// contours combined with the non-zero fill rule fill concave shapes and
// punch holes for reversed contours.
func (r *Renderer) polygon(m reel.Affine, pts []reel.Vec2, c reel.Color) {
	if len(pts) < 3 || len(r.verts)+len(pts) > math.MaxUint16 {
		return
	}
	cr, cg, cb, ca := float32(c.R*c.A), float32(c.G*c.A), float32(c.B*c.A), float32(c.A)
	base := uint16(len(r.verts))
	for _, p := range pts {
		x, y := m.Apply(p.X, p.Y)
		r.verts = append(r.verts, ebiten.Vertex{
			DstX: float32(x), DstY: float32(y),
			SrcX: 0.5, SrcY: 0.5,
			ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca,
		})
	}
	for i := 1; i+1 < len(pts); i++ {
		r.inds = append(r.inds, base, base+uint16(i), base+uint16(i+1))
	}
}

func (r *Renderer) fillPath(dst *ebiten.Image, blend ebiten.Blend) {
	if len(r.inds) == 0 {
		return
	}
	var op ebiten.DrawTrianglesOptions
	op.FillRule = ebiten.FillRuleNonZero
	op.AntiAlias = true
	op.Blend = blend
	dst.DrawTriangles(r.verts, r.inds, r.whitePixel(), &op)
}

func (r *Renderer) drawText(dst *ebiten.Image, n *reel.RenderNode, e *reel.TextElement, opacity float64, blend ebiten.Blend) {
	c := e.Color.Current.WithAlpha(opacity)
	if e.Content == "" || c.A <= 0 {
		return
	}
	face := r.fonts.face(e.EffectiveFontSize())
	if states := e.Glyphs(); states != nil {
		r.drawGlyphs(dst, n, e, face, states, c, blend)
		return
	}
	op := &text.DrawOptions{}
	op.LineSpacing = lineHeight(face)
	switch e.Align {
	case reel.TextAlignCenter:
		op.PrimaryAlign = text.AlignCenter
		op.GeoM.Translate(n.Rect.Width/2, 0)
	case reel.TextAlignRight:
		op.PrimaryAlign = text.AlignEnd
		op.GeoM.Translate(n.Rect.Width, 0)
	}
	op.GeoM.Translate(n.Rect.X, n.Rect.Y)
	op.GeoM.Concat(geoM(n.World))
	op.ColorScale.ScaleWithColor(c)
	op.Blend = blend
	op.Filter = ebiten.FilterLinear
	text.Draw(dst, e.Content, face, op)
}

// drawGlyphs draws the text one rune at a time, each under its glyph state.
// Rune positions come from the advance of the line prefix so kerning matches
// the whole-string path.
func (r *Renderer) drawGlyphs(dst *ebiten.Image, n *reel.RenderNode, e *reel.TextElement, face *text.GoTextFace, states []reel.GlyphState, c reel.Color, blend ebiten.Blend) {
	lh := lineHeight(face)
	world := geoM(n.World)
	i := 0
	for li, line := range strings.Split(e.Content, "\n") {
		x := 0.0
		switch lw := text.Advance(line, face); e.Align {
		case reel.TextAlignCenter:
			x = (n.Rect.Width - lw) / 2
		case reel.TextAlignRight:
			x = n.Rect.Width - lw
		}
		y := float64(li) * lh
		for j, ch := range line {
			st := reel.IdentityGlyph
			if i < len(states) {
				st = states[i]
			}
			i++
			gc := c.WithAlpha(min(st.Opacity, 1))
			if gc.A <= 0 || ch == ' ' {
				continue
			}
			gx := x + text.Advance(line[:j], face)
			gw := text.Advance(string(ch), face)
			op := &text.DrawOptions{}
			op.GeoM.Translate(gx, y)
			op.GeoM.Concat(geoM(st.Matrix(gx+gw/2, y+lh/2)))
			op.GeoM.Translate(n.Rect.X, n.Rect.Y)
			op.GeoM.Concat(world)
			op.ColorScale.ScaleWithColor(gc)
			op.Blend = blend
			op.Filter = ebiten.FilterLinear
			text.Draw(dst, string(ch), face, op)
		}
		i++ // newline
	}
}

// drawContent maps the fitted source region of src onto the node rect.
func (r *Renderer) drawContent(dst *ebiten.Image, n *reel.RenderNode, src image.Image, fit reel.ObjectFit, tint reel.Color, blend ebiten.Blend) {
	b := src.Bounds()
	if b.Empty() || tint.A <= 0 {
		return
	}
	rect, crop := reel.FitRect(fit, reel.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}, n.Rect)
	sub := image.Rect(
		int(math.Floor(crop.X)), int(math.Floor(crop.Y)),
		int(math.Ceil(crop.X+crop.Width)), int(math.Ceil(crop.Y+crop.Height)),
	)
	img := r.upload(src)
	ib := img.Bounds()
	sub = sub.Add(ib.Min).Intersect(ib)
	if sub.Empty() {
		return
	}
	op := &r.imgOp
	op.GeoM.Reset()
	op.GeoM.Scale(rect.Width/crop.Width, rect.Height/crop.Height)
	op.GeoM.Translate(rect.X, rect.Y)
	op.GeoM.Concat(geoM(n.World))
	op.ColorScale.Reset()
	op.ColorScale.ScaleWithColor(tint)
	op.Blend = blend
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(img.SubImage(sub).(*ebiten.Image), op)
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

// roundRect returns the outline of r with corner radius rad, clockwise in
// screen space, or counter-clockwise when reverse is set.
func roundRect(r reel.Rect, rad float64, reverse bool) []reel.Vec2 {
	rad = max(0, min(rad, r.Width/2, r.Height/2))
	var pts []reel.Vec2
	if rad == 0 {
		pts = []reel.Vec2{{X: r.X, Y: r.Y}, {X: r.X + r.Width, Y: r.Y}, {X: r.X + r.Width, Y: r.Y + r.Height}, {X: r.X, Y: r.Y + r.Height}}
	} else {
		centers := [4]reel.Vec2{
			{X: r.X + r.Width - rad, Y: r.Y + rad},
			{X: r.X + r.Width - rad, Y: r.Y + r.Height - rad},
			{X: r.X + rad, Y: r.Y + r.Height - rad},
			{X: r.X + rad, Y: r.Y + rad},
		}
		pts = make([]reel.Vec2, 0, 4*(cornerSteps+1))
		for i, c := range centers {
			start := -math.Pi/2 + float64(i)*math.Pi/2
			for s := 0; s <= cornerSteps; s++ {
				a := start + float64(s)/cornerSteps*math.Pi/2
				pts = append(pts, reel.Vec2{X: c.X + rad*math.Cos(a), Y: c.Y + rad*math.Sin(a)})
			}
		}
	}
	if reverse {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return pts
}
