package reel

import "math"

// VectorElement is a polyline or polygon. Points are in pixels relative to
// the node's layout rect origin. Trim in [0, 1] limits how much of the
// stroke is drawn, for line-drawing animations.
type VectorElement struct {
	Points      []Vec2
	Closed      bool
	Fill        *Animated[Color]
	Stroke      *Animated[Color]
	StrokeWidth *Animated[float64]
	Trim        *Animated[float64]
}

// NewPolygon creates a closed, filled shape.
func NewPolygon(fill Color, points ...Vec2) *VectorElement {
	return &VectorElement{
		Points:      points,
		Closed:      true,
		Fill:        NewColor(fill),
		Stroke:      NewColor(ColorTransparent),
		StrokeWidth: NewFloat(0),
		Trim:        NewFloat(1),
	}
}

// NewPath creates an open stroked polyline.
func NewPath(stroke Color, width float64, points ...Vec2) *VectorElement {
	return &VectorElement{
		Points:      points,
		Fill:        NewColor(ColorTransparent),
		Stroke:      NewColor(stroke),
		StrokeWidth: NewFloat(width),
		Trim:        NewFloat(1),
	}
}

func (e *VectorElement) Kind() ElementKind { return ElementVector }

func (e *VectorElement) Update(uc UpdateContext) (Change, error) {
	t := uc.LocalTime
	e.Fill.Update(t)
	e.Stroke.Update(t)
	e.StrokeWidth.Update(t)
	e.Trim.Update(t)
	if animating(t, e.Fill.Duration(), e.Stroke.Duration(), e.StrokeWidth.Duration(), e.Trim.Duration()) {
		return ChangeVisual, nil
	}
	return ChangeNone, nil
}

// Bounds returns the bounding box of the points.
func (e *VectorElement) Bounds() Rect {
	if len(e.Points) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range e.Points {
		minX, minY = min(minX, p.X), min(minY, p.Y)
		maxX, maxY = max(maxX, p.X), max(maxY, p.Y)
	}
	return Rect{minX, minY, maxX - minX, maxY - minY}
}

func (e *VectorElement) Measure(known, available Size) Size {
	b := e.Bounds()
	return aspectSize(b.X+b.Width, b.Y+b.Height, known)
}

// TrimmedPath returns the stroke polyline cut to the current Trim fraction
// of its length. Closed shapes include the closing edge.
func (e *VectorElement) TrimmedPath() []Vec2 {
	return TrimPath(e.Points, e.Closed, e.Trim.Current)
}

// TrimPath cuts a polyline to frac of its total length.
func TrimPath(points []Vec2, closed bool, frac float64) []Vec2 {
	if len(points) < 2 {
		return points
	}
	pts := points
	if closed {
		pts = append(append(make([]Vec2, 0, len(points)+1), points...), points[0])
	}
	frac = clamp01(frac)
	if frac == 1 {
		return pts
	}
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += math.Hypot(pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y)
	}
	remaining := total * frac
	out := []Vec2{pts[0]}
	for i := 1; i < len(pts) && remaining > 0; i++ {
		seg := math.Hypot(pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y)
		if seg <= remaining {
			out = append(out, pts[i])
			remaining -= seg
			continue
		}
		out = append(out, LerpVec2(pts[i-1], pts[i], remaining/seg))
		break
	}
	return out
}

func (e *VectorElement) FloatProperty(name string) (*Animated[float64], bool) {
	switch name {
	case "stroke_width":
		return e.StrokeWidth, true
	case "trim", "progress":
		return e.Trim, true
	}
	return nil, false
}

func (e *VectorElement) ColorProperty(name string) (*Animated[Color], bool) {
	switch name {
	case "fill", "color":
		return e.Fill, true
	case "stroke":
		return e.Stroke, true
	}
	return nil, false
}
