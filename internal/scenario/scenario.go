// Package scenario reads YAML project files and builds a reel.Director from
// them.
//
// A project lists scenes in playback order. Each scene holds a tree of
// nodes with styles, element settings and animation steps. Transitions
// join adjacent scenes by name and audio tracks play globally or per scene.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phanxgames/reel"
)

// Scenario is a parsed project file.
type Scenario struct {
	Version int `yaml:"version"`
	// Width, Height and FPS override the output settings when set.
	Width       int          `yaml:"width"`
	Height      int          `yaml:"height"`
	FPS         int          `yaml:"fps"`
	Scenes      []Scene      `yaml:"scenes"`
	Transitions []Transition `yaml:"transitions"`
	Audio       []Audio      `yaml:"audio"`
}

// Scene is one timeline item.
type Scene struct {
	Name       string  `yaml:"name"`
	Duration   float64 `yaml:"duration"`
	Background string  `yaml:"background"`
	Nodes      []Node  `yaml:"nodes"`
	Audio      []Audio `yaml:"audio"`
}

// Node describes a scene node and its element. Type selects the element:
// box, text, image, video, sequence, vector, effect or composition.
type Node struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Style   Style    `yaml:"style"`
	Z       int      `yaml:"z"`
	Blend   string   `yaml:"blend"`
	Mask    string   `yaml:"mask"`
	Hidden  bool     `yaml:"hidden"`
	Opacity *float64 `yaml:"opacity"`

	X        float64   `yaml:"x"`
	Y        float64   `yaml:"y"`
	Scale    *float64  `yaml:"scale"`
	Rotation float64   `yaml:"rotation"`
	Pivot    []float64 `yaml:"pivot"`

	// box
	Fill         string  `yaml:"fill"`
	BorderColor  string  `yaml:"border_color"`
	BorderWidth  float64 `yaml:"border_width"`
	CornerRadius float64 `yaml:"corner_radius"`

	// text
	Text        string      `yaml:"text"`
	FontSize    float64     `yaml:"font_size"`
	Color       string      `yaml:"color"`
	Align       string      `yaml:"align"`
	Shrink      bool        `yaml:"shrink"`
	MinFontSize float64     `yaml:"min_font_size"`
	Glyphs      []GlyphStep `yaml:"glyphs"`

	// image, video, sequence, composition
	Ref    string   `yaml:"ref"`
	Fit    string   `yaml:"fit"`
	Tint   string   `yaml:"tint"`
	FPS    float64  `yaml:"fps"`
	Loop   bool     `yaml:"loop"`
	Offset float64  `yaml:"offset"`
	Volume *float64 `yaml:"volume"`

	// vector
	Points      [][]float64 `yaml:"points"`
	Closed      bool        `yaml:"closed"`
	Stroke      string      `yaml:"stroke"`
	StrokeWidth float64     `yaml:"stroke_width"`

	// effect
	Effect string             `yaml:"effect"`
	Shader string             `yaml:"shader"`
	Params map[string]float64 `yaml:"params"`

	// Properties defines custom animatable values on the node.
	Properties map[string]float64 `yaml:"properties"`

	Animate  []Step `yaml:"animate"`
	Children []Node `yaml:"children"`
}

// Style is the layout input. Dimensions accept "auto", pixels ("120" or
// "120px") and percentages ("50%").
type Style struct {
	Position  string  `yaml:"position"`
	Left      Dim     `yaml:"left"`
	Top       Dim     `yaml:"top"`
	Width     Dim     `yaml:"width"`
	Height    Dim     `yaml:"height"`
	Padding   float64 `yaml:"padding"`
	Gap       float64 `yaml:"gap"`
	Direction string  `yaml:"direction"`
	Justify   string  `yaml:"justify"`
	Align     string  `yaml:"align"`
}

// Dim is a layout dimension written as a YAML scalar.
type Dim string

func (d *Dim) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: dimension must be a scalar", n.Line)
	}
	*d = Dim(n.Value)
	return nil
}

// Step is one animation instruction. Steps on the same property play back
// to back.
//
// With Spring set the value springs to To; otherwise it moves from From
// (or the current value) to To over Duration. Delay holds the current value
// first. A step with only Hold pauses the property. Color properties take
// hex strings.
type Step struct {
	Property string      `yaml:"property"`
	From     *Value      `yaml:"from"`
	To       *Value      `yaml:"to"`
	Duration float64     `yaml:"duration"`
	Easing   string      `yaml:"easing"`
	Delay    float64     `yaml:"delay"`
	Hold     float64     `yaml:"hold"`
	Spring   *SpringStep `yaml:"spring"`
}

// GlyphStep animates a property of the runes [Start, End) of a text node.
// A missing End runs to the end of the text. Each rune starts Stagger
// seconds after the one before it.
type GlyphStep struct {
	Start    int     `yaml:"start"`
	End      *int    `yaml:"end"`
	Property string  `yaml:"property"`
	From     float64 `yaml:"from"`
	To       float64 `yaml:"to"`
	Duration float64 `yaml:"duration"`
	Easing   string  `yaml:"easing"`
	Stagger  float64 `yaml:"stagger"`
}

// SpringStep configures a baked spring. Zero fields take the defaults of
// reel.DefaultSpringConfig.
type SpringStep struct {
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`
	Mass      float64 `yaml:"mass"`
	Velocity  float64 `yaml:"velocity"`
	BakeRate  float64 `yaml:"bake_rate"`
}

// Value is a number or a hex color.
type Value struct {
	raw string
	num float64
	ok  bool
}

func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: animation value must be a scalar", n.Line)
	}
	v.raw = n.Value
	f, err := strconv.ParseFloat(n.Value, 64)
	v.num, v.ok = f, err == nil
	return nil
}

// IsNumber reports whether the value parsed as a number.
func (v *Value) IsNumber() bool { return v.ok }

// Float returns the numeric value.
func (v *Value) Float() (float64, error) {
	if !v.ok {
		return 0, fmt.Errorf("%q is not a number", v.raw)
	}
	return v.num, nil
}

// Color returns the value as a color.
func (v *Value) Color() (reel.Color, error) {
	c, ok := reel.ColorFromHex(v.raw)
	if !ok {
		return reel.Color{}, fmt.Errorf("%q is not a color", v.raw)
	}
	return c, nil
}

// Transition joins two adjacent scenes by name.
type Transition struct {
	From     string  `yaml:"from"`
	To       string  `yaml:"to"`
	Kind     string  `yaml:"kind"`
	Duration float64 `yaml:"duration"`
	Easing   string  `yaml:"easing"`
}

// Audio places a sound file. Inside a scene, Start is relative to the
// scene and playback is cut at its end.
type Audio struct {
	Ref      string   `yaml:"ref"`
	Start    float64  `yaml:"start"`
	Duration float64  `yaml:"duration"`
	Offset   float64  `yaml:"offset"`
	Loop     bool     `yaml:"loop"`
	Volume   *float64 `yaml:"volume"`
	FadeIn   float64  `yaml:"fade_in"`
	FadeOut  float64  `yaml:"fade_out"`
}

// Load reads and validates a project file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a project. Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

var elementTypes = map[string]bool{
	"box": true, "text": true, "image": true, "video": true,
	"sequence": true, "vector": true, "effect": true, "composition": true,
}

// Validate checks names and references that can be verified without
// building. Engine-level checks such as transition overlap happen in Build.
func (s *Scenario) Validate() error {
	if s.Version != 1 {
		return fmt.Errorf("unsupported version: %d", s.Version)
	}
	if len(s.Scenes) == 0 {
		return fmt.Errorf("at least one scene is required")
	}
	if s.Width < 0 || s.Height < 0 || s.FPS < 0 {
		return fmt.Errorf("size and fps must not be negative")
	}
	scenes := make(map[string]bool)
	for i, sc := range s.Scenes {
		if strings.TrimSpace(sc.Name) == "" {
			return fmt.Errorf("scene %d name is required", i)
		}
		if scenes[sc.Name] {
			return fmt.Errorf("duplicate scene name: %s", sc.Name)
		}
		scenes[sc.Name] = true
		if sc.Duration <= 0 {
			return fmt.Errorf("scene %s: duration must be positive", sc.Name)
		}
		names := make(map[string]bool)
		if err := validateNodes(sc.Nodes, names); err != nil {
			return fmt.Errorf("scene %s: %w", sc.Name, err)
		}
		if err := checkMasks(sc.Nodes, names); err != nil {
			return fmt.Errorf("scene %s: %w", sc.Name, err)
		}
		for j, a := range sc.Audio {
			if a.Ref == "" {
				return fmt.Errorf("scene %s: audio %d ref is required", sc.Name, j)
			}
		}
	}
	for i, tr := range s.Transitions {
		if !scenes[tr.From] || !scenes[tr.To] {
			return fmt.Errorf("transition %d: unknown scene %q or %q", i, tr.From, tr.To)
		}
	}
	for i, a := range s.Audio {
		if a.Ref == "" {
			return fmt.Errorf("audio %d ref is required", i)
		}
	}
	return nil
}

func validateNodes(nodes []Node, names map[string]bool) error {
	for i, n := range nodes {
		label := n.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if n.Name != "" {
			if names[n.Name] {
				return fmt.Errorf("duplicate node name: %s", n.Name)
			}
			names[n.Name] = true
		}
		if !elementTypes[n.Type] {
			return fmt.Errorf("node %s: unknown type %q", label, n.Type)
		}
		switch n.Type {
		case "image", "video", "sequence", "composition":
			if n.Ref == "" {
				return fmt.Errorf("node %s: %s needs a ref", label, n.Type)
			}
		case "vector":
			if len(n.Points) < 2 {
				return fmt.Errorf("node %s: vector needs at least two points", label)
			}
			for _, p := range n.Points {
				if len(p) != 2 {
					return fmt.Errorf("node %s: points must be [x, y] pairs", label)
				}
			}
		case "effect":
			if n.Effect == "" {
				return fmt.Errorf("node %s: effect needs an effect name", label)
			}
		}
		for j, st := range n.Animate {
			if st.Property == "" {
				return fmt.Errorf("node %s: step %d has no property", label, j)
			}
			if st.To == nil && st.Hold <= 0 {
				return fmt.Errorf("node %s: step %d needs to or hold", label, j)
			}
		}
		if len(n.Glyphs) > 0 && n.Type != "text" {
			return fmt.Errorf("node %s: glyphs need a text node", label)
		}
		for j, g := range n.Glyphs {
			if _, err := reel.ParseGlyphProperty(g.Property); err != nil {
				return fmt.Errorf("node %s: glyph step %d: %w", label, j, err)
			}
			if g.Start < 0 || (g.End != nil && *g.End < g.Start) {
				return fmt.Errorf("node %s: glyph step %d: bad range", label, j)
			}
		}
		if err := validateNodes(n.Children, names); err != nil {
			return err
		}
	}
	return nil
}

func checkMasks(nodes []Node, names map[string]bool) error {
	for _, n := range nodes {
		if n.Mask != "" && !names[n.Mask] {
			return fmt.Errorf("node %s: unknown mask %q", n.Name, n.Mask)
		}
		if err := checkMasks(n.Children, names); err != nil {
			return err
		}
	}
	return nil
}
