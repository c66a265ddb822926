package ebitenrender

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hajimehoshi/ebiten/v2"
)

// All shaders use //kage:unit pixels. Ebitengine uses premultiplied alpha;
// shaders un-premultiply before processing and re-premultiply the output.

const colorMatrixShaderSrc = `//kage:unit pixels
package main

var Matrix [20]float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	if c.a > 0 {
		c.rgb /= c.a
	}
	r := Matrix[0]*c.r + Matrix[1]*c.g + Matrix[2]*c.b + Matrix[3]*c.a + Matrix[4]
	g := Matrix[5]*c.r + Matrix[6]*c.g + Matrix[7]*c.b + Matrix[8]*c.a + Matrix[9]
	b := Matrix[10]*c.r + Matrix[11]*c.g + Matrix[12]*c.b + Matrix[13]*c.a + Matrix[14]
	a := Matrix[15]*c.r + Matrix[16]*c.g + Matrix[17]*c.b + Matrix[18]*c.a + Matrix[19]
	r = clamp(r, 0, 1)
	g = clamp(g, 0, 1)
	b = clamp(b, 0, 1)
	a = clamp(a, 0, 1)
	return vec4(r*a, g*a, b*a, a)
}
`

// circleShaderSrc reveals the source inside a circle centered on the image.
const circleShaderSrc = `//kage:unit pixels
package main

var Radius float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	size := imageSrc0Size()
	d := distance(src-imageSrc0Origin(), size/2)
	return imageSrc0At(src) * clamp(Radius-d+0.5, 0, 1)
}
`

type shaders struct {
	matrix *ebiten.Shader
	circle *ebiten.Shader
	custom map[string]*ebiten.Shader
	failed map[string]error
}

func mustShader(name, src string) *ebiten.Shader {
	s, err := ebiten.NewShader([]byte(src))
	if err != nil {
		panic("ebitenrender: failed to compile " + name + " shader: " + err.Error())
	}
	return s
}

func (s *shaders) colorMatrix() *ebiten.Shader {
	if s.matrix == nil {
		s.matrix = mustShader("color matrix", colorMatrixShaderSrc)
	}
	return s.matrix
}

func (s *shaders) circleReveal() *ebiten.Shader {
	if s.circle == nil {
		s.circle = mustShader("circle", circleShaderSrc)
	}
	return s.circle
}

// compile returns the shader for user Kage source, compiling it once.
// Sources that fail to compile keep failing without recompiling.
func (s *shaders) compile(src string) (*ebiten.Shader, error) {
	if sh, ok := s.custom[src]; ok {
		return sh, nil
	}
	if err, ok := s.failed[src]; ok {
		return nil, err
	}
	sh, err := ebiten.NewShader([]byte(src))
	if err != nil {
		if s.failed == nil {
			s.failed = make(map[string]error)
		}
		err = fmt.Errorf("ebitenrender: compile shader: %w", err)
		s.failed[src] = err
		return nil, err
	}
	if s.custom == nil {
		s.custom = make(map[string]*ebiten.Shader)
	}
	s.custom[src] = sh
	return sh, nil
}

// uniformName maps an effect parameter such as "glow_amount" to the
// exported Kage uniform "GlowAmount".
func uniformName(param string) string {
	var b strings.Builder
	upper := true
	for _, r := range param {
		if r == '_' || r == '-' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// grayscaleMatrix blends toward luminance by amount.
func grayscaleMatrix(amount float64) [20]float32 {
	a := float32(amount)
	k := 1 - a
	lr, lg, lb := float32(0.299)*a, float32(0.587)*a, float32(0.114)*a
	return [20]float32{
		lr + k, lg, lb, 0, 0,
		lr, lg + k, lb, 0, 0,
		lr, lg, lb + k, 0, 0,
		0, 0, 0, 1, 0,
	}
}

func brightnessMatrix(amount float64) [20]float32 {
	a := float32(amount)
	return [20]float32{
		a, 0, 0, 0, 0,
		0, a, 0, 0, 0,
		0, 0, a, 0, 0,
		0, 0, 0, 1, 0,
	}
}
