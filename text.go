package reel

import (
	"strings"
	"unicode/utf8"
)

// TextMetrics measures text at a font size. Renderers provide metrics that
// match their fonts; ApproxMetrics is used when none is configured.
type TextMetrics interface {
	// MeasureString returns the width and height of s, which may contain
	// newlines.
	MeasureString(s string, size float64) (width, height float64)
	// LineHeight returns the distance between baselines.
	LineHeight(size float64) float64
}

// ApproxMetrics estimates text extents from glyph counts. Average advance is
// AdvanceRatio * size and lines are LineRatio * size apart.
type ApproxMetrics struct {
	AdvanceRatio float64
	LineRatio    float64
}

// DefaultMetrics is a fallback tuned for proportional sans fonts.
var DefaultMetrics TextMetrics = ApproxMetrics{AdvanceRatio: 0.55, LineRatio: 1.2}

func (m ApproxMetrics) MeasureString(s string, size float64) (float64, float64) {
	lines := strings.Split(s, "\n")
	w := 0.0
	for _, l := range lines {
		w = max(w, float64(utf8.RuneCountInString(l))*m.AdvanceRatio*size)
	}
	return w, float64(len(lines)) * m.LineHeight(size)
}

func (m ApproxMetrics) LineHeight(size float64) float64 { return m.LineRatio * size }

// TextAlign controls horizontal alignment of text within its rect.
type TextAlign uint8

const (
	TextAlignLeft TextAlign = iota
	TextAlignCenter
	TextAlignRight
)

// ParseTextAlign resolves "left", "center" or "right".
func ParseTextAlign(s string) (TextAlign, bool) {
	switch s {
	case "left", "":
		return TextAlignLeft, true
	case "center":
		return TextAlignCenter, true
	case "right":
		return TextAlignRight, true
	}
	return TextAlignLeft, false
}

// TextElement draws a run of text. With ShrinkToFit the effective font size
// is reduced after layout until the text fits its rect, never below
// MinFontSize.
type TextElement struct {
	Content     string
	FontSize    *Animated[float64]
	Color       *Animated[Color]
	Align       TextAlign
	ShrinkToFit bool
	MinFontSize float64
	// Metrics overrides the metrics supplied by the Director.
	Metrics TextMetrics
	// Animators drive individual runes; see AddAnimator.
	Animators []*TextAnimator

	metrics   TextMetrics
	glyphs    []GlyphState
	lastSize  float64
	lastText  string
	effective float64
}

// NewText creates white text at the given size.
func NewText(content string, size float64) *TextElement {
	return &TextElement{
		Content:     content,
		FontSize:    NewFloat(size),
		Color:       NewColor(ColorWhite),
		MinFontSize: 8,
		effective:   size,
	}
}

func (e *TextElement) Kind() ElementKind { return ElementText }

func (e *TextElement) Update(uc UpdateContext) (Change, error) {
	switch {
	case e.Metrics != nil:
		e.metrics = e.Metrics
	case uc.TextMetrics != nil:
		e.metrics = uc.TextMetrics
	default:
		e.metrics = DefaultMetrics
	}
	size := e.FontSize.Update(uc.LocalTime)
	e.Color.Update(uc.LocalTime)
	e.effective = size

	e.glyphs = e.GlyphStatesAt(uc.LocalTime)

	change := ChangeNone
	if animating(uc.LocalTime, e.Color.Duration(), e.animatorsDuration()) {
		change = ChangeVisual
	}
	if size != e.lastSize || e.Content != e.lastText {
		e.lastSize, e.lastText = size, e.Content
		change |= ChangeVisual | ChangeLayout
	}
	return change, nil
}

// EffectiveFontSize is the size to draw with after shrink-to-fit.
func (e *TextElement) EffectiveFontSize() float64 { return e.effective }

// TextMetrics returns the metrics resolved during the last update.
func (e *TextElement) TextMetrics() TextMetrics {
	if e.metrics == nil {
		return DefaultMetrics
	}
	return e.metrics
}

func (e *TextElement) Measure(known, available Size) Size {
	w, h := e.TextMetrics().MeasureString(e.Content, e.FontSize.Current)
	if known.Width >= 0 {
		w = known.Width
	}
	if known.Height >= 0 {
		h = known.Height
	}
	return Size{w, h}
}

func (e *TextElement) PostLayout(r Rect) {
	e.effective = e.FontSize.Current
	if !e.ShrinkToFit {
		return
	}
	m := e.TextMetrics()
	size := e.effective
	for size > e.MinFontSize {
		w, h := m.MeasureString(e.Content, size)
		if w <= r.Width+1e-9 && h <= r.Height+1e-9 {
			break
		}
		size = max(e.MinFontSize, size*0.95)
	}
	e.effective = size
}

func (e *TextElement) FloatProperty(name string) (*Animated[float64], bool) {
	if name == "font_size" || name == "size" {
		return e.FontSize, true
	}
	return nil, false
}

func (e *TextElement) ColorProperty(name string) (*Animated[Color], bool) {
	if name == "color" || name == "fill" {
		return e.Color, true
	}
	return nil, false
}
