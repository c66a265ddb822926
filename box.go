package reel

// BoxElement is a rectangle with an optional fill, border and rounded
// corners. A box with a transparent fill is a plain container.
type BoxElement struct {
	Fill         *Animated[Color]
	BorderColor  *Animated[Color]
	BorderWidth  *Animated[float64]
	CornerRadius *Animated[float64]
}

// NewBox creates a transparent container box.
func NewBox() *BoxElement {
	return NewRect(ColorTransparent)
}

// NewRect creates a box filled with fill.
func NewRect(fill Color) *BoxElement {
	return &BoxElement{
		Fill:         NewColor(fill),
		BorderColor:  NewColor(ColorTransparent),
		BorderWidth:  NewFloat(0),
		CornerRadius: NewFloat(0),
	}
}

func (b *BoxElement) Kind() ElementKind { return ElementBox }

func (b *BoxElement) Update(uc UpdateContext) (Change, error) {
	t := uc.LocalTime
	b.Fill.Update(t)
	b.BorderColor.Update(t)
	b.BorderWidth.Update(t)
	b.CornerRadius.Update(t)
	if animating(t, b.Fill.Duration(), b.BorderColor.Duration(), b.BorderWidth.Duration(), b.CornerRadius.Duration()) {
		return ChangeVisual, nil
	}
	return ChangeNone, nil
}

func (b *BoxElement) FloatProperty(name string) (*Animated[float64], bool) {
	switch name {
	case "border_width":
		return b.BorderWidth, true
	case "corner_radius", "radius":
		return b.CornerRadius, true
	}
	return nil, false
}

func (b *BoxElement) ColorProperty(name string) (*Animated[Color], bool) {
	switch name {
	case "fill", "background", "color":
		return b.Fill, true
	case "border_color":
		return b.BorderColor, true
	}
	return nil, false
}

// animating reports whether local time t falls inside any of the given
// animation spans.
func animating(t float64, durations ...float64) bool {
	for _, d := range durations {
		if t <= d && d > 0 {
			return true
		}
	}
	return false
}
