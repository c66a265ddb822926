package reel

import (
	"fmt"
	"sort"
)

// EffectKind selects the post-processing an EffectElement applies.
type EffectKind uint8

const (
	EffectBlur       EffectKind = iota // gaussian-like blur; param "radius"
	EffectGrayscale                    // desaturate; param "amount"
	EffectBrightness                   // multiply color; param "amount"
	EffectShader                       // custom Kage shader; renderer specific
)

var effectNames = [...]string{
	EffectBlur:       "blur",
	EffectGrayscale:  "grayscale",
	EffectBrightness: "brightness",
	EffectShader:     "shader",
}

func (k EffectKind) String() string {
	if int(k) < len(effectNames) {
		return effectNames[k]
	}
	return "unknown"
}

// ParseEffectKind resolves an effect by name.
func ParseEffectKind(s string) (EffectKind, error) {
	for i, n := range effectNames {
		if n == s {
			return EffectKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown effect %q", s)
}

// EffectElement renders its children offscreen and post-processes the
// result. The node draws nothing by itself.
type EffectElement struct {
	Effect EffectKind
	// Shader is Kage source for EffectShader. Renderers without shader
	// support draw the children unprocessed.
	Shader string
	Params map[string]*Animated[float64]
}

// NewEffect creates an effect with its default parameters.
func NewEffect(kind EffectKind) *EffectElement {
	e := &EffectElement{Effect: kind, Params: make(map[string]*Animated[float64])}
	switch kind {
	case EffectBlur:
		e.Params["radius"] = NewFloat(4)
	case EffectGrayscale, EffectBrightness:
		e.Params["amount"] = NewFloat(1)
	}
	return e
}

// NewBlur creates a blur effect with the given radius in pixels.
func NewBlur(radius float64) *EffectElement {
	e := NewEffect(EffectBlur)
	e.Params["radius"].Set(radius)
	return e
}

func (e *EffectElement) Kind() ElementKind { return ElementEffect }

func (e *EffectElement) Update(uc UpdateContext) (Change, error) {
	change := ChangeNone
	for _, p := range e.Params {
		p.Update(uc.LocalTime)
		if animating(uc.LocalTime, p.Duration()) {
			change = ChangeVisual
		}
	}
	return change, nil
}

// Param returns the current value of a parameter, or def when unset.
func (e *EffectElement) Param(name string, def float64) float64 {
	if p, ok := e.Params[name]; ok {
		return p.Current
	}
	return def
}

// ParamNames returns the parameter names, sorted.
func (e *EffectElement) ParamNames() []string {
	names := make([]string, 0, len(e.Params))
	for n := range e.Params {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (e *EffectElement) FloatProperty(name string) (*Animated[float64], bool) {
	if name == "blur" && e.Effect == EffectBlur {
		name = "radius"
	}
	p, ok := e.Params[name]
	if !ok && e.Effect == EffectShader {
		// Shader uniforms are open-ended.
		p = NewFloat(0)
		e.Params[name] = p
		ok = true
	}
	return p, ok
}
