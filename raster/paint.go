package raster

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"

	"github.com/phanxgames/reel"
)

// cornerSteps is the number of line segments per rounded corner.
const cornerSteps = 8

// paint draws n at full opacity into dst, touching only bounds.
func (r *Renderer) paint(dst *image.RGBA, n *reel.RenderNode, bounds image.Rectangle) error {
	switch e := n.Element.(type) {
	case *reel.BoxElement:
		paintBox(dst, bounds, n, e)
	case *reel.VectorElement:
		paintVector(dst, bounds, n, e)
	case *reel.TextElement:
		return r.paintText(dst, n, e)
	case *reel.ImageElement:
		if img := e.Content(); img != nil {
			paintImage(dst, n, img, e.Fit)
			if tint := e.Tint.Current; tint != reel.ColorWhite {
				multiply(dst, bounds, tint)
			}
		}
	case reel.ContentProvider:
		if img := e.Content(); img != nil {
			paintImage(dst, n, img, fitOf(n.Element))
		}
	case nil:
	default:
		return fmt.Errorf("raster: cannot draw %T", n.Element)
	}
	return nil
}

// path feeds frame-space points, mapped through m, into a rasterizer whose
// origin is at the top-left of bounds.
type path struct {
	z      *vector.Rasterizer
	m      reel.Affine
	origin image.Point
}

func newPath(m reel.Affine, bounds image.Rectangle) *path {
	return &path{
		z:      vector.NewRasterizer(bounds.Dx(), bounds.Dy()),
		m:      m,
		origin: bounds.Min,
	}
}

func (p *path) pt(x, y float64) (float32, float32) {
	tx, ty := p.m.Apply(x, y)
	return float32(tx - float64(p.origin.X)), float32(ty - float64(p.origin.Y))
}

// poly adds a closed polygon.
func (p *path) poly(pts []reel.Vec2) {
	if len(pts) < 3 {
		return
	}
	p.z.MoveTo(p.pt(pts[0].X, pts[0].Y))
	for _, q := range pts[1:] {
		p.z.LineTo(p.pt(q.X, q.Y))
	}
	p.z.ClosePath()
}

func (p *path) draw(dst *image.RGBA, c reel.Color) {
	if c.A <= 0 {
		return
	}
	p.z.DrawOp = draw.Over
	b := image.Rect(p.origin.X, p.origin.Y, p.origin.X+p.z.Size().X, p.origin.Y+p.z.Size().Y)
	p.z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// roundRect returns the outline of r with corner radius rad, clockwise in
// screen space, or counter-clockwise when reverse is set.
func roundRect(r reel.Rect, rad float64, reverse bool) []reel.Vec2 {
	rad = max(0, min(rad, r.Width/2, r.Height/2))
	if rad == 0 {
		pts := []reel.Vec2{{X: r.X, Y: r.Y}, {X: r.X + r.Width, Y: r.Y}, {X: r.X + r.Width, Y: r.Y + r.Height}, {X: r.X, Y: r.Y + r.Height}}
		if reverse {
			pts[1], pts[3] = pts[3], pts[1]
		}
		return pts
	}
	centers := [4]reel.Vec2{
		{X: r.X + r.Width - rad, Y: r.Y + rad},
		{X: r.X + r.Width - rad, Y: r.Y + r.Height - rad},
		{X: r.X + rad, Y: r.Y + r.Height - rad},
		{X: r.X + rad, Y: r.Y + rad},
	}
	pts := make([]reel.Vec2, 0, 4*(cornerSteps+1))
	for i, c := range centers {
		start := -math.Pi/2 + float64(i)*math.Pi/2
		for s := 0; s <= cornerSteps; s++ {
			a := start + float64(s)/cornerSteps*math.Pi/2
			pts = append(pts, reel.Vec2{X: c.X + rad*math.Cos(a), Y: c.Y + rad*math.Sin(a)})
		}
	}
	if reverse {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return pts
}

func paintBox(dst *image.RGBA, bounds image.Rectangle, n *reel.RenderNode, b *reel.BoxElement) {
	rad := b.CornerRadius.Current
	fillPath := newPath(n.World, bounds)
	fillPath.poly(roundRect(n.Rect, rad, false))
	fillPath.draw(dst, b.Fill.Current)

	bw := min(b.BorderWidth.Current, n.Rect.Width/2, n.Rect.Height/2)
	if bw <= 0 || b.BorderColor.Current.A <= 0 {
		return
	}
	inner := reel.Rect{X: n.Rect.X + bw, Y: n.Rect.Y + bw, Width: n.Rect.Width - 2*bw, Height: n.Rect.Height - 2*bw}
	ring := newPath(n.World, bounds)
	ring.poly(roundRect(n.Rect, rad, false))
	ring.poly(roundRect(inner, max(0, rad-bw), true))
	ring.draw(dst, b.BorderColor.Current)
}

func paintVector(dst *image.RGBA, bounds image.Rectangle, n *reel.RenderNode, v *reel.VectorElement) {
	m := n.World.Translate(n.Rect.X, n.Rect.Y)
	if v.Closed && v.Fill.Current.A > 0 && v.Trim.Current >= 1 {
		p := newPath(m, bounds)
		p.poly(v.Points)
		p.draw(dst, v.Fill.Current)
	}
	w := v.StrokeWidth.Current
	if w <= 0 || v.Stroke.Current.A <= 0 {
		return
	}
	p := newPath(m, bounds)
	strokePolyline(p, v.TrimmedPath(), w)
	p.draw(dst, v.Stroke.Current)
}

// strokePolyline adds one quad per segment plus a disc at every vertex.
// All pieces share the same winding, so overlaps saturate instead of
// cancelling.
func strokePolyline(p *path, pts []reel.Vec2, width float64) {
	hw := width / 2
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*hw, dx/l*hw
		p.poly([]reel.Vec2{
			{X: a.X + nx, Y: a.Y + ny},
			{X: b.X + nx, Y: b.Y + ny},
			{X: b.X - nx, Y: b.Y - ny},
			{X: a.X - nx, Y: a.Y - ny},
		})
	}
	for _, c := range pts {
		disc := make([]reel.Vec2, 0, 12)
		for s := 11; s >= 0; s-- {
			a := float64(s) / 12 * 2 * math.Pi
			disc = append(disc, reel.Vec2{X: c.X + hw*math.Cos(a), Y: c.Y + hw*math.Sin(a)})
		}
		p.poly(disc)
	}
}

// paintImage maps the fitted source region of img onto the node rect.
func paintImage(dst *image.RGBA, n *reel.RenderNode, img image.Image, fit reel.ObjectFit) {
	b := img.Bounds()
	src := reel.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	if src.Width == 0 || src.Height == 0 {
		return
	}
	rect, crop := reel.FitRect(fit, src, n.Rect)
	sx, sy := rect.Width/crop.Width, rect.Height/crop.Height
	m := n.World.Mul(reel.Affine{sx, 0, 0, sy, rect.X - crop.X*sx, rect.Y - crop.Y*sy}).
		Translate(-float64(b.Min.X), -float64(b.Min.Y))
	sr := image.Rect(
		b.Min.X+int(math.Floor(crop.X)), b.Min.Y+int(math.Floor(crop.Y)),
		b.Min.X+int(math.Ceil(crop.X+crop.Width)), b.Min.Y+int(math.Ceil(crop.Y+crop.Height)),
	)
	draw.BiLinear.Transform(dst, aff3(m), img, sr, draw.Over, nil)
}

// aff3 converts to the row-major layout used by golang.org/x/image.
func aff3(m reel.Affine) f64.Aff3 {
	return f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
}

// multiply scales every premultiplied pixel of r by c.
func multiply(img *image.RGBA, r image.Rectangle, c reel.Color) {
	k := [4]float64{c.R * c.A, c.G * c.A, c.B * c.A, c.A}
	r = r.Intersect(img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x, i = x+1, i+4 {
			for ch := range 4 {
				img.Pix[i+ch] = uint8(float64(img.Pix[i+ch])*k[ch] + 0.5)
			}
		}
	}
}
