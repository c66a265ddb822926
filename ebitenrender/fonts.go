package ebitenrender

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"
)

// Fonts wraps Ebitengine's text/v2 for TrueType rendering. Faces are cached
// per size. Fonts implements reel.TextMetrics so layout measures text the
// same way it is drawn.
type Fonts struct {
	source *text.GoTextFaceSource

	mu    sync.Mutex
	faces map[float64]*text.GoTextFace
}

// LoadFonts parses TrueType or OpenType data.
func LoadFonts(ttfData []byte) (*Fonts, error) {
	source, err := text.NewGoTextFaceSource(bytes.NewReader(ttfData))
	if err != nil {
		return nil, fmt.Errorf("ebitenrender: failed to parse TTF data: %w", err)
	}
	return &Fonts{source: source, faces: make(map[float64]*text.GoTextFace)}, nil
}

// DefaultFonts returns the shared Go Regular fonts.
var DefaultFonts = sync.OnceValue(func() *Fonts {
	f, err := LoadFonts(goregular.TTF)
	if err != nil {
		panic(err)
	}
	return f
})

func (f *Fonts) face(size float64) *text.GoTextFace {
	size = math.Max(1, math.Round(size*4)/4)
	f.mu.Lock()
	defer f.mu.Unlock()
	face, ok := f.faces[size]
	if !ok {
		face = &text.GoTextFace{Source: f.source, Size: size}
		f.faces[size] = face
	}
	return face
}

func lineHeight(face *text.GoTextFace) float64 {
	m := face.Metrics()
	return m.HAscent + m.HDescent + m.HLineGap
}

// MeasureString returns the width and height of the rendered text.
func (f *Fonts) MeasureString(s string, size float64) (float64, float64) {
	face := f.face(size)
	return text.Measure(s, face, lineHeight(face))
}

// LineHeight returns the vertical distance between baselines.
func (f *Fonts) LineHeight(size float64) float64 {
	return lineHeight(f.face(size))
}
