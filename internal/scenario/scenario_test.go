package scenario

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/phanxgames/reel"
)

const project = `
version: 1
scenes:
  - name: intro
    duration: 2
    background: "#101820"
    nodes:
      - name: title
        type: text
        text: Hello
        font_size: 48
        color: "#ffffff"
        align: center
        style: {position: absolute, left: "10%", top: 20, width: "80%", height: 60}
        animate:
          - {property: x, from: 0, to: 100, duration: 1, easing: ease_out_cubic}
          - {property: opacity, from: 0, to: 1, duration: 0.5}
        glyphs:
          - {property: offset_y, from: 20, to: 0, duration: 0.4, stagger: 0.1}
          - {start: 1, end: 2, property: alpha, from: 0, to: 1, duration: 1}
      - name: card
        type: box
        fill: "#ff0000"
        corner_radius: 8
        mask: shape
        z: 2
        properties: {glow: 0.25}
        animate:
          - {property: fill, to: "#0000ff", duration: 1, delay: 0.5}
          - {property: glow, to: 1, duration: 1}
        children:
          - name: shape
            type: vector
            points: [[0, 0], [10, 0], [10, 10]]
            closed: true
            fill: "#ffffff"
  - name: main
    duration: 3
    nodes:
      - name: logo
        type: box
        y: 40
        animate:
          - property: y
            to: 0
            spring: {stiffness: 170, damping: 26}
transitions:
  - {from: intro, to: main, kind: fade, duration: 0.5}
audio:
  - {ref: music.wav, volume: 0.8, fade_in: 0.5, fade_out: 0.5}
`

type fakeAssets struct{ audio reel.AudioSource }

func (f fakeAssets) Image(ctx context.Context, ref string) (image.Image, error) {
	return nil, reel.ErrAssetUnavailable
}

func (f fakeAssets) Sequence(ctx context.Context, ref string) ([]image.Image, error) {
	return nil, reel.ErrAssetUnavailable
}

func (f fakeAssets) Audio(ctx context.Context, ref string) (reel.AudioSource, error) {
	return f.audio, nil
}

func build(t *testing.T, src string) *Project {
	t.Helper()
	s, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	d, err := reel.NewDirector(320, 180, 10)
	if err != nil {
		t.Fatal(err)
	}
	pcm := reel.NewPCM(100, make([]float32, 2*300))
	p, err := s.Build(context.Background(), d, Env{Assets: fakeAssets{pcm}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestBuildTimeline(t *testing.T) {
	p := build(t, project)
	d := p.Director
	if got := d.Duration(); math.Abs(got-4.5) > 1e-9 {
		t.Errorf("Duration = %v, want 4.5", got)
	}
	if len(p.Scenes) != 2 {
		t.Fatalf("scenes = %v", p.Scenes)
	}
	it, ok := d.Timeline().Item(p.Scenes["main"])
	if !ok || math.Abs(it.Start-1.5) > 1e-9 || it.Name != "main" {
		t.Errorf("main item = %+v", it)
	}
	for _, name := range []string{"intro/title", "intro/card", "intro/shape", "main/logo"} {
		if _, ok := p.Nodes[name]; !ok {
			t.Errorf("node %s missing", name)
		}
	}
}

func TestBuildNodes(t *testing.T) {
	p := build(t, project)
	d := p.Director

	title, err := d.Node(p.Nodes["intro/title"])
	if err != nil {
		t.Fatal(err)
	}
	if title.Style.Position != reel.PositionAbsolute || title.Style.Width != reel.Percent(80) || title.Style.Top != reel.Px(20) {
		t.Errorf("title style = %+v", title.Style)
	}
	text := title.Element.(*reel.TextElement)
	if text.Align != reel.TextAlignCenter || text.Content != "Hello" {
		t.Errorf("text = %+v", text)
	}

	card, err := d.Node(p.Nodes["intro/card"])
	if err != nil {
		t.Fatal(err)
	}
	if card.ZIndex() != 2 {
		t.Errorf("card z = %d, want 2", card.ZIndex())
	}
	if card.MaskID() != p.Nodes["intro/shape"] {
		t.Errorf("card mask = %v, want shape", card.MaskID())
	}
	if _, ok := card.Property("glow"); !ok {
		t.Error("custom property glow not defined")
	}
}

func TestBuildAnimations(t *testing.T) {
	p := build(t, project)
	d := p.Director
	ctx := context.Background()

	if _, err := d.Seek(ctx, 1, nil); err != nil {
		t.Fatal(err)
	}
	title, _ := d.Node(p.Nodes["intro/title"])
	if x := title.Transform.X.Current; math.Abs(x-100) > 1e-9 {
		t.Errorf("title x at 1s = %v, want 100", x)
	}
	if o := title.Opacity.Current; o != 1 {
		t.Errorf("title opacity at 1s = %v, want 1", o)
	}

	card, _ := d.Node(p.Nodes["intro/card"])
	fill := card.Element.(*reel.BoxElement).Fill
	if c := fill.Evaluate(0.5); c.R != 1 || c.B != 0 {
		t.Errorf("fill at 0.5s = %+v, want red (delayed)", c)
	}
	if c := fill.Evaluate(1.5); c.B != 1 || c.R != 0 {
		t.Errorf("fill at 1.5s = %+v, want blue", c)
	}

	logo, _ := d.Node(p.Nodes["main/logo"])
	if y := logo.Transform.Y.Evaluate(0); y != 40 {
		t.Errorf("logo y at 0 = %v, want 40", y)
	}
	if y := logo.Transform.Y.Evaluate(3); math.Abs(y) > 0.1 {
		t.Errorf("logo y after spring = %v, want ~0", y)
	}
}

func TestBuildGlyphSteps(t *testing.T) {
	p := build(t, project)
	d := p.Director
	if _, err := d.Seek(context.Background(), 0.2, nil); err != nil {
		t.Fatal(err)
	}
	title, _ := d.Node(p.Nodes["intro/title"])
	text := title.Element.(*reel.TextElement)
	if len(text.Animators) != 2 || text.Animators[0].End != 5 {
		t.Fatalf("animators = %+v, want two with the first covering Hello", text.Animators)
	}
	g := text.Glyphs()
	if len(g) != 5 {
		t.Fatalf("glyphs = %d, want 5", len(g))
	}
	for i, want := range []float64{10, 15, 20, 20, 20} {
		if math.Abs(g[i].OffsetY-want) > 1e-9 {
			t.Errorf("glyph %d offset_y = %v, want %v", i, g[i].OffsetY, want)
		}
	}
	if math.Abs(g[1].Opacity-0.2) > 1e-9 || g[0].Opacity != 1 {
		t.Errorf("opacities = %v, %v; want 1, 0.2", g[0].Opacity, g[1].Opacity)
	}
}

func TestBuildAudioFades(t *testing.T) {
	p := build(t, project)
	tracks := p.Director.Mixer().Tracks()
	if len(tracks) != 1 {
		t.Fatalf("tracks = %d, want 1", len(tracks))
	}
	v := tracks[0].Volume
	tests := []struct{ t, want float64 }{
		{0, 0},
		{0.25, 0.4},
		{1, 0.8},
		{2.75, 0.4},
		{3, 0},
	}
	for _, tt := range tests {
		if got := v.Evaluate(tt.t); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("volume(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestBuildRejectsBadTransition(t *testing.T) {
	s, err := Parse([]byte(`
version: 1
scenes:
  - {name: a, duration: 1}
  - {name: b, duration: 1}
transitions:
  - {from: a, to: b, kind: fade, duration: 2}
`))
	if err != nil {
		t.Fatal(err)
	}
	d, _ := reel.NewDirector(10, 10, 10)
	_, err = s.Build(context.Background(), d, Env{})
	if !errors.Is(err, reel.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestBuildUnknownProperty(t *testing.T) {
	s, err := Parse([]byte(`
version: 1
scenes:
  - name: a
    duration: 1
    nodes:
      - {type: box, animate: [{property: wobble, to: 1, duration: 1}]}
`))
	if err != nil {
		t.Fatal(err)
	}
	d, _ := reel.NewDirector(10, 10, 10)
	if _, err := s.Build(context.Background(), d, Env{}); !errors.Is(err, reel.ErrUnknownProperty) {
		t.Errorf("err = %v, want ErrUnknownProperty", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"bad version":     "version: 3\nscenes: [{name: a, duration: 1}]\n",
		"no scenes":       "version: 1\n",
		"unnamed scene":   "version: 1\nscenes: [{duration: 1}]\n",
		"duplicate scene": "version: 1\nscenes: [{name: a, duration: 1}, {name: a, duration: 1}]\n",
		"zero duration":   "version: 1\nscenes: [{name: a, duration: 0}]\n",
		"unknown type":    "version: 1\nscenes: [{name: a, duration: 1, nodes: [{type: sprite}]}]\n",
		"image no ref":    "version: 1\nscenes: [{name: a, duration: 1, nodes: [{type: image}]}]\n",
		"short vector":    "version: 1\nscenes: [{name: a, duration: 1, nodes: [{type: vector, points: [[0, 0]]}]}]\n",
		"bad point":       "version: 1\nscenes: [{name: a, duration: 1, nodes: [{type: vector, points: [[0], [1, 1]]}]}]\n",
		"unknown mask":    "version: 1\nscenes: [{name: a, duration: 1, nodes: [{type: box, mask: m}]}]\n",
		"empty step":      "version: 1\nscenes: [{name: a, duration: 1, nodes: [{type: box, animate: [{property: x}]}]}]\n",
		"bad transition":  "version: 1\nscenes: [{name: a, duration: 1}]\ntransitions: [{from: a, to: z, kind: fade, duration: 1}]\n",
		"unknown key":     "version: 1\nscenes: [{name: a, duration: 1, colour: red}]\n",
		"audio no ref":    "version: 1\nscenes: [{name: a, duration: 1}]\naudio: [{start: 1}]\n",
		"glyphs on box":   "version: 1\nscenes: [{name: a, duration: 1, nodes: [{type: box, glyphs: [{property: scale, to: 2, duration: 1}]}]}]\n",
		"bad glyph prop":  "version: 1\nscenes: [{name: a, duration: 1, nodes: [{type: text, glyphs: [{property: skew, duration: 1}]}]}]\n",
		"bad glyph range": "version: 1\nscenes: [{name: a, duration: 1, nodes: [{type: text, glyphs: [{start: 3, end: 1, property: scale, duration: 1}]}]}]\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(src)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestStyleResolve(t *testing.T) {
	st, err := Style{Direction: "row", Justify: "center", Width: "120px", Height: "auto"}.resolve()
	if err != nil {
		t.Fatal(err)
	}
	if st.Direction != reel.DirectionRow || st.Justify != reel.AlignCenter || st.Align != reel.AlignStretch {
		t.Errorf("style = %+v", st)
	}
	if st.Width != reel.Px(120) || st.Height != reel.Auto {
		t.Errorf("size = %v x %v", st.Width, st.Height)
	}
	if _, err := (Style{Position: "fixed"}).resolve(); err == nil {
		t.Error("expected error for unknown position")
	}
}
