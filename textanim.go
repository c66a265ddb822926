package reel

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// GlyphProperty is the per-glyph value a TextAnimator drives.
type GlyphProperty uint8

const (
	GlyphOpacity GlyphProperty = iota
	GlyphOffsetX
	GlyphOffsetY
	GlyphScale
	GlyphRotation // degrees
)

var glyphPropertyNames = map[string]GlyphProperty{
	"opacity":  GlyphOpacity,
	"alpha":    GlyphOpacity,
	"offset_x": GlyphOffsetX,
	"x":        GlyphOffsetX,
	"offset_y": GlyphOffsetY,
	"y":        GlyphOffsetY,
	"scale":    GlyphScale,
	"rotation": GlyphRotation,
	"rotate":   GlyphRotation,
}

// ParseGlyphProperty resolves a glyph property name, case-insensitively.
func ParseGlyphProperty(name string) (GlyphProperty, error) {
	if p, ok := glyphPropertyNames[strings.ToLower(name)]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("%w: glyph property %q", ErrUnknownProperty, name)
}

// GlyphState is the animated state of one rune of a text element. Offsets
// are in local pixels; scale and rotation apply about the glyph's center.
type GlyphState struct {
	Opacity  float64
	OffsetX  float64
	OffsetY  float64
	Scale    float64
	Rotation float64
}

// IdentityGlyph is the state of a rune no animator touches.
var IdentityGlyph = GlyphState{Opacity: 1, Scale: 1}

// IsIdentity reports whether s draws the glyph unchanged.
func (s GlyphState) IsIdentity() bool { return s == IdentityGlyph }

// Matrix maps the coordinates of a glyph centered at (cx, cy) to its
// animated position.
func (s GlyphState) Matrix(cx, cy float64) Affine {
	sin, cos := math.Sincos(s.Rotation * math.Pi / 180)
	m := Affine{cos * s.Scale, sin * s.Scale, -sin * s.Scale, cos * s.Scale, cx + s.OffsetX, cy + s.OffsetY}
	return m.Translate(-cx, -cy)
}

// Extent bounds how far the glyph can reach outside its cell when drawn at
// font size.
func (s GlyphState) Extent(size float64) float64 {
	e := max(math.Abs(s.OffsetX), math.Abs(s.OffsetY))
	if s.Scale > 1 {
		e += (s.Scale - 1) * size
	}
	if s.Rotation != 0 {
		e += size / 2
	}
	return e
}

func (s *GlyphState) set(p GlyphProperty, v float64) {
	switch p {
	case GlyphOpacity:
		s.Opacity = v
	case GlyphOffsetX:
		s.OffsetX = v
	case GlyphOffsetY:
		s.OffsetY = v
	case GlyphScale:
		s.Scale = v
	case GlyphRotation:
		s.Rotation = v
	}
}

// TextAnimator drives one property of the runes [Start, End) of a text
// element. Rune i of the range runs Value delayed by i*Stagger seconds, so
// a positive stagger reveals the range one rune after another.
type TextAnimator struct {
	Start, End int
	Property   GlyphProperty
	Value      *Animated[float64]
	Stagger    float64
}

// NewTextAnimator animates property from -> to over duration seconds on the
// runes [start, end).
func NewTextAnimator(start, end int, property GlyphProperty, from, to, duration float64, easing Easing, stagger float64) (*TextAnimator, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: glyph range [%d, %d)", ErrInvalidAnimationConfig, start, end)
	}
	if !isFinite(stagger) || stagger < 0 {
		return nil, fmt.Errorf("%w: glyph stagger %v", ErrInvalidAnimationConfig, stagger)
	}
	v := NewFloat(from)
	if err := v.AddSegment(from, to, duration, easing); err != nil {
		return nil, err
	}
	return &TextAnimator{Start: start, End: end, Property: property, Value: v, Stagger: stagger}, nil
}

// Duration is the time until the last rune of the range settles.
func (a *TextAnimator) Duration() float64 {
	n := max(0, a.End-a.Start-1)
	return a.Value.Duration() + a.Stagger*float64(n)
}

// ValueAt returns the value for rune i of the range, counted from Start, at
// local time t. Runes whose turn has not come hold the initial value.
func (a *TextAnimator) ValueAt(i int, t float64) float64 {
	return a.Value.Evaluate(t - float64(i)*a.Stagger)
}

// AddAnimator appends a per-glyph animator. Later animators override
// earlier ones where their ranges and properties overlap.
func (e *TextElement) AddAnimator(a *TextAnimator) {
	e.Animators = append(e.Animators, a)
}

// GlyphStatesAt evaluates every animator at local time t. The result has
// one entry per rune of Content, newlines included. It is nil when the
// element has no animators.
func (e *TextElement) GlyphStatesAt(t float64) []GlyphState {
	if len(e.Animators) == 0 {
		return nil
	}
	n := utf8.RuneCountInString(e.Content)
	states := make([]GlyphState, n)
	for i := range states {
		states[i] = IdentityGlyph
	}
	for _, a := range e.Animators {
		for i := max(0, a.Start); i < min(a.End, n); i++ {
			states[i].set(a.Property, a.ValueAt(i-a.Start, t))
		}
	}
	return states
}

// Glyphs returns the glyph states computed by the last update, or nil when
// the element has no animators.
func (e *TextElement) Glyphs() []GlyphState { return e.glyphs }

func (e *TextElement) animatorsDuration() float64 {
	d := 0.0
	for _, a := range e.Animators {
		d = max(d, a.Duration())
	}
	return d
}
