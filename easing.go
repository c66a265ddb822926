package reel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tanema/gween/ease"
)

// Easing maps linear progress in [0, 1] to eased progress. The zero value is
// linear. Easings are backed by gween's ease functions.
type Easing struct {
	name string
	fn   ease.TweenFunc
}

// EaseLinear is the identity easing.
var EaseLinear = Easing{name: "linear"}

// NewEasing wraps a gween ease function under the given name.
func NewEasing(name string, fn ease.TweenFunc) Easing {
	return Easing{name: name, fn: fn}
}

// Name returns the canonical name of the easing.
func (e Easing) Name() string {
	if e.name == "" {
		return "linear"
	}
	return e.name
}

func (e Easing) String() string { return e.Name() }

// Apply returns eased progress for p. p is clamped to [0, 1] first.
// Overshooting easings (back, elastic) may return values outside [0, 1].
func (e Easing) Apply(p float64) float64 {
	p = clamp01(p)
	if e.fn == nil {
		return p
	}
	// The endpoints are exact regardless of float32 rounding inside gween.
	switch p {
	case 0:
		return 0
	case 1:
		return 1
	}
	return float64(e.fn(float32(p), 0, 1, 1))
}

var easingFamilies = map[string][3]ease.TweenFunc{
	"quad":    {ease.InQuad, ease.OutQuad, ease.InOutQuad},
	"cubic":   {ease.InCubic, ease.OutCubic, ease.InOutCubic},
	"quart":   {ease.InQuart, ease.OutQuart, ease.InOutQuart},
	"quint":   {ease.InQuint, ease.OutQuint, ease.InOutQuint},
	"sine":    {ease.InSine, ease.OutSine, ease.InOutSine},
	"expo":    {ease.InExpo, ease.OutExpo, ease.InOutExpo},
	"circ":    {ease.InCirc, ease.OutCirc, ease.InOutCirc},
	"elastic": {ease.InElastic, ease.OutElastic, ease.InOutElastic},
	"back":    {ease.InBack, ease.OutBack, ease.InOutBack},
	"bounce":  {ease.InBounce, ease.OutBounce, ease.InOutBounce},
}

// easings is keyed by normalized name: lower case with '_', '-' and ' '
// removed. Both "in_out_cubic" and "cubic_in_out" resolve.
var easings = buildEasings()

func buildEasings() map[string]Easing {
	m := map[string]Easing{
		"linear": EaseLinear,
		// The generic ease_* names follow CSS: cubic curves.
		"easein":    {name: "ease_in", fn: ease.InCubic},
		"easeout":   {name: "ease_out", fn: ease.OutCubic},
		"easeinout": {name: "ease_in_out", fn: ease.InOutCubic},
	}
	for fam, fns := range easingFamilies {
		for i, dir := range [3]string{"in", "out", "inout"} {
			canonical := strings.Replace(dir, "inout", "in_out", 1) + "_" + fam
			e := Easing{name: canonical, fn: fns[i]}
			m[dir+fam] = e
			m[fam+dir] = e
			m["ease"+dir+fam] = e
		}
	}
	// Bare family names mean the "out" variant, matching common tooling.
	m["bounce"] = m["outbounce"]
	m["elastic"] = m["outelastic"]
	m["back"] = m["outback"]
	return m
}

func normalizeEasingName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, name)
}

// ParseEasing resolves an easing by name. An empty name is linear.
func ParseEasing(name string) (Easing, error) {
	if name == "" {
		return EaseLinear, nil
	}
	e, ok := easings[normalizeEasingName(name)]
	if !ok {
		return Easing{}, fmt.Errorf("%w: unknown easing %q", ErrInvalidAnimationConfig, name)
	}
	return e, nil
}

// EasingNames returns the canonical easing names, sorted.
func EasingNames() []string {
	seen := make(map[string]bool, len(easings))
	for _, e := range easings {
		seen[e.Name()] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
