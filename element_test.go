package reel

import (
	"context"
	"errors"
	"image"
	"testing"
)

// mapAssets serves images and sequences from memory.
type mapAssets struct {
	images map[string]image.Image
	seqs   map[string][]image.Image
}

func (m mapAssets) Image(_ context.Context, ref string) (image.Image, error) {
	if img, ok := m.images[ref]; ok {
		return img, nil
	}
	return nil, errors.New("not found")
}

func (m mapAssets) Sequence(_ context.Context, ref string) ([]image.Image, error) {
	if s, ok := m.seqs[ref]; ok {
		return s, nil
	}
	return nil, errors.New("not found")
}

func (m mapAssets) Audio(context.Context, string) (AudioSource, error) {
	return nil, errors.New("not found")
}

func solid(w, h int) image.Image { return image.NewRGBA(image.Rect(0, 0, w, h)) }

func TestFitRect(t *testing.T) {
	r := Rect{0, 0, 200, 100}
	src := Size{100, 100}
	tests := []struct {
		fit       ObjectFit
		dst, crop Rect
	}{
		{FitContain, Rect{50, 0, 100, 100}, Rect{0, 0, 100, 100}},
		{FitCover, Rect{0, 0, 200, 100}, Rect{0, 25, 100, 50}},
		{FitFill, Rect{0, 0, 200, 100}, Rect{0, 0, 100, 100}},
		{FitNone, Rect{50, 0, 100, 100}, Rect{0, 0, 100, 100}},
	}
	for _, tt := range tests {
		dst, crop := FitRect(tt.fit, src, r)
		if dst != tt.dst || crop != tt.crop {
			t.Errorf("FitRect(%v) = %v, %v, want %v, %v", tt.fit, dst, crop, tt.dst, tt.crop)
		}
	}
}

func TestBoxReportsVisualChangeWhileAnimating(t *testing.T) {
	b := NewBox()
	_ = b.CornerRadius.AddSegment(0, 10, 1, EaseLinear)
	if ch, _ := b.Update(UpdateContext{LocalTime: 0.5}); ch != ChangeVisual {
		t.Errorf("change = %v, want visual", ch)
	}
	if ch, _ := b.Update(UpdateContext{LocalTime: 2}); ch != ChangeNone {
		t.Errorf("change = %v, want none", ch)
	}
	assertNear(t, "radius", b.CornerRadius.Current, 10)
}

func TestImageLoadsOnce(t *testing.T) {
	assets := mapAssets{images: map[string]image.Image{"logo": solid(40, 20)}}
	e := NewImage("logo")
	uc := UpdateContext{Context: context.Background(), Assets: assets}
	ch, err := e.Update(uc)
	if err != nil {
		t.Fatal(err)
	}
	if ch&ChangeLayout == 0 {
		t.Error("first load should change layout")
	}
	if ch, _ := e.Update(uc); ch != ChangeNone {
		t.Errorf("second update = %v, want none", ch)
	}
	if got := e.Measure(Size{-1, -1}, Size{}); got != (Size{40, 20}) {
		t.Errorf("Measure = %v, want {40 20}", got)
	}
	if got := e.Measure(Size{20, -1}, Size{}); got != (Size{20, 10}) {
		t.Errorf("Measure with width = %v, want {20 10}", got)
	}
}

func TestImageLoadErrors(t *testing.T) {
	e := NewImage("missing")
	if _, err := e.Update(UpdateContext{Context: context.Background()}); err == nil {
		t.Error("expected error without a loader")
	}
	_, err := e.Update(UpdateContext{Context: context.Background(), Assets: mapAssets{}})
	if err == nil {
		t.Error("expected error for a missing asset")
	}
}

func TestSequenceFrameSelection(t *testing.T) {
	frames := []image.Image{solid(1, 1), solid(1, 1), solid(1, 1), solid(1, 1)}
	e := NewSequenceFrom(frames, 10)
	tests := []struct {
		t    float64
		want int
	}{
		{0, 0}, {0.15, 1}, {0.35, 3}, {5, 3},
	}
	for _, tt := range tests {
		if got := e.FrameAt(tt.t, 0); got != tt.want {
			t.Errorf("FrameAt(%v) = %d, want %d", tt.t, got, tt.want)
		}
	}
	e.Loop = true
	if got := e.FrameAt(0.5, 0); got != 1 {
		t.Errorf("looping FrameAt(0.5) = %d, want 1", got)
	}
	_ = e.Progress.AddSegment(0, 1, 1, EaseLinear)
	if got := e.FrameAt(99, 0.5); got != 2 {
		t.Errorf("progress FrameAt(p=0.5) = %d, want 2", got)
	}
}

func TestSequenceLoadsFromAssets(t *testing.T) {
	assets := mapAssets{seqs: map[string][]image.Image{"intro": {solid(8, 4), solid(8, 4)}}}
	e := NewSequence("intro", 1)
	uc := UpdateContext{Context: context.Background(), Assets: assets, LocalTime: 1.2}
	if _, err := e.Update(uc); err != nil {
		t.Fatal(err)
	}
	if e.Content() != e.Frames[1] {
		t.Error("expected frame 1 at t=1.2")
	}
	if got := e.Measure(Size{-1, -1}, Size{}); got != (Size{8, 4}) {
		t.Errorf("Measure = %v, want {8 4}", got)
	}
}

func TestVideoLoopAndOffset(t *testing.T) {
	src := &fakeFrames{w: 16, h: 9, duration: 2}
	e := NewVideo(src, nil)
	e.Offset = 0.5
	assertNear(t, "source time", e.SourceTime(1), 1.5)
	e.Loop = true
	assertNear(t, "looped source time", e.SourceTime(2), 0.5)
	if got := e.Measure(Size{32, -1}, Size{}); got != (Size{32, 18}) {
		t.Errorf("Measure = %v, want {32 18}", got)
	}
	if _, ok := e.FloatProperty("volume"); ok {
		t.Error("silent video should have no volume")
	}
}

// lateFrames reports every frame as not decoded yet.
type lateFrames struct{ fakeFrames }

func (*lateFrames) Frame(context.Context, float64, bool) (image.Image, error) {
	return nil, ErrAssetUnavailable
}

func TestVideoKeepsLastFrameInPreview(t *testing.T) {
	good := &fakeFrames{w: 2, h: 2, duration: 1}
	e := NewVideo(good, constSource{100, 100, 1})
	uc := UpdateContext{Context: context.Background(), Mode: ModePreview}
	if _, err := e.Update(uc); err != nil {
		t.Fatal(err)
	}
	first := e.Content()
	e.Source = &lateFrames{}
	if _, err := e.Update(uc); err != nil {
		t.Fatalf("preview update: %v", err)
	}
	if e.Content() != first {
		t.Error("preview should keep the last good frame")
	}
	uc.Mode = ModeExport
	if _, err := e.Update(uc); !errors.Is(err, ErrAssetUnavailable) {
		t.Errorf("export err = %v, want ErrAssetUnavailable", err)
	}
	if e.AudioTrack() == nil {
		t.Error("video with audio should provide a track")
	}
}

func TestVectorTrimPath(t *testing.T) {
	square := []Vec2{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	got := TrimPath(square, true, 0.5)
	want := []Vec2{{0, 0}, {10, 0}, {10, 10}}
	if len(got) != len(want) {
		t.Fatalf("TrimPath = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
	got = TrimPath(square, false, 0.5)
	last := got[len(got)-1]
	assertNear(t, "open trim x", last.X, 10)
	assertNear(t, "open trim y", last.Y, 5)
	if n := len(TrimPath(square, true, 1)); n != 5 {
		t.Errorf("closed full path has %d points, want 5", n)
	}
}

func TestVectorBoundsAndProperties(t *testing.T) {
	e := NewPolygon(ColorWhite, Vec2{2, 3}, Vec2{12, 3}, Vec2{7, 13})
	if b := e.Bounds(); b != (Rect{2, 3, 10, 10}) {
		t.Errorf("Bounds = %v", b)
	}
	if _, ok := e.FloatProperty("trim"); !ok {
		t.Error("trim should be animatable")
	}
	if _, ok := e.ColorProperty("stroke"); !ok {
		t.Error("stroke should be animatable")
	}
}

func TestEffectParams(t *testing.T) {
	blur := NewBlur(6)
	assertNear(t, "radius", blur.Param("radius", 0), 6)
	p, ok := blur.FloatProperty("blur")
	if !ok {
		t.Fatal("blur alias missing")
	}
	_ = p.AddSegment(6, 0, 1, EaseLinear)
	_, _ = blur.Update(UpdateContext{LocalTime: 0.5})
	assertNear(t, "animated radius", blur.Param("radius", 0), 3)
	assertNear(t, "default", blur.Param("missing", 7), 7)

	shader := NewEffect(EffectShader)
	if _, ok := shader.FloatProperty("time"); !ok {
		t.Error("shader uniforms should be created on demand")
	}
	if names := shader.ParamNames(); len(names) != 1 || names[0] != "time" {
		t.Errorf("ParamNames = %v", names)
	}
	if k, err := ParseEffectKind("grayscale"); err != nil || k != EffectGrayscale {
		t.Errorf("ParseEffectKind = %v, %v", k, err)
	}
}

func TestCompositionRendersNestedDirector(t *testing.T) {
	inner := newTestDirector(t, WithSampleRate(100))
	_, innerRoot := addScene(t, inner, 2)
	child := addChild(t, inner, innerRoot, "inner", NewBox())
	_ = inner.Animate(child, "x", 0, 10, 2, "linear")
	inner.AddGlobalAudio(constSource{100, 1000, 0.5}, 0)

	outer := newTestDirector(t, WithSampleRate(100))
	_, root := addScene(t, outer, 2)
	comp := NewComposition(inner, &recordingRenderer{})
	comp.Offset = 0.5
	addChild(t, outer, root, "comp", comp)

	f, err := outer.Seek(context.Background(), 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Skipped) != 0 {
		t.Fatalf("skipped = %v", f.Skipped)
	}
	if comp.Content() == nil {
		t.Fatal("composition has no content")
	}
	n, _ := inner.Node(child)
	assertNear(t, "inner x", n.Transform.X.Current, 7.5)
	for i, v := range f.Audio {
		if v != 0.5 {
			t.Fatalf("sample %d = %v, want 0.5", i, v)
		}
	}
	if got := comp.Measure(Size{50, -1}, Size{}); got != (Size{50, 25}) {
		t.Errorf("Measure = %v, want {50 25}", got)
	}
}
