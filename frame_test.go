package reel

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"testing"
)

// recordingRenderer logs every call it receives.
type recordingRenderer struct {
	calls  []string
	layers []Layer
	drawn  []*RenderNode
	failOn string
	info   FrameInfo
}

func (r *recordingRenderer) BeginFrame(info FrameInfo) error {
	r.info = info
	r.calls = append(r.calls, "frame")
	return nil
}

func (r *recordingRenderer) BeginLayer(l Layer) error {
	r.layers = append(r.layers, l)
	r.calls = append(r.calls, fmt.Sprintf("layer %d", l.Scene))
	return nil
}

func (r *recordingRenderer) BeginGroup(n *RenderNode) error {
	r.calls = append(r.calls, "group "+n.Name)
	return nil
}

func (r *recordingRenderer) DrawNode(n *RenderNode) error {
	if n.Name == r.failOn {
		return errors.New("boom")
	}
	r.drawn = append(r.drawn, n)
	r.calls = append(r.calls, "draw "+n.Name)
	return nil
}

func (r *recordingRenderer) EndGroup(n *RenderNode) error {
	r.calls = append(r.calls, "end group "+n.Name)
	return nil
}

func (r *recordingRenderer) EndLayer() error {
	r.calls = append(r.calls, "end layer")
	return nil
}

func (r *recordingRenderer) EndFrame() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, r.info.Width, r.info.Height)), nil
}

func (r *recordingRenderer) drawnNames() []string {
	var names []string
	for _, n := range r.drawn {
		names = append(names, n.Name)
	}
	return names
}

// failingElement fails its update, or panics when panics is set.
type failingElement struct{ panics bool }

func (failingElement) Kind() ElementKind { return ElementBox }
func (e failingElement) Update(UpdateContext) (Change, error) {
	if e.panics {
		panic("element exploded")
	}
	return ChangeNone, errors.New("update failed")
}

// unavailableAssets reports every asset as not decoded yet.
type unavailableAssets struct{}

func (unavailableAssets) Image(context.Context, string) (image.Image, error) {
	return nil, ErrAssetUnavailable
}
func (unavailableAssets) Sequence(context.Context, string) ([]image.Image, error) {
	return nil, ErrAssetUnavailable
}
func (unavailableAssets) Audio(context.Context, string) (AudioSource, error) {
	return nil, ErrAssetUnavailable
}

// fakeFrames is a video source of solid frames.
type fakeFrames struct {
	w, h     int
	duration float64
	times    []float64
}

func (f *fakeFrames) Frame(_ context.Context, t float64, _ bool) (image.Image, error) {
	f.times = append(f.times, t)
	return image.NewRGBA(image.Rect(0, 0, f.w, f.h)), nil
}
func (f *fakeFrames) Size() (int, int)  { return f.w, f.h }
func (f *fakeFrames) Duration() float64 { return f.duration }

func newTestDirector(t *testing.T, opts ...Option) *Director {
	t.Helper()
	d, err := NewDirector(100, 50, 10, opts...)
	if err != nil {
		t.Fatalf("NewDirector: %v", err)
	}
	return d
}

func addScene(t *testing.T, d *Director, duration float64) (SceneID, NodeID) {
	t.Helper()
	id, err := d.AddScene(duration)
	if err != nil {
		t.Fatalf("AddScene(%v): %v", duration, err)
	}
	return id, d.SceneRoot(id)
}

func addChild(t *testing.T, d *Director, parent NodeID, name string, el Element) NodeID {
	t.Helper()
	id := d.CreateNode(el)
	n, _ := d.Node(id)
	n.Name = name
	if err := d.Attach(parent, id); err != nil {
		t.Fatalf("Attach(%s): %v", name, err)
	}
	return id
}

func TestFrameDrawsInPaintOrder(t *testing.T) {
	d := newTestDirector(t)
	_, root := addScene(t, d, 2)
	addChild(t, d, root, "a", NewBox())
	b := addChild(t, d, root, "b", NewBox())
	if err := d.Graph().SetZIndex(b, -1); err != nil {
		t.Fatal(err)
	}

	r := &recordingRenderer{}
	f, err := d.Seek(context.Background(), 0.5, r)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"frame", "layer 1", "draw scene 1", "draw b", "draw a", "end layer"}
	if !slices.Equal(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
	if f.Image == nil {
		t.Error("Image = nil")
	}
	if f.Stats.Nodes != 3 || f.Stats.Drawn != 3 {
		t.Errorf("stats nodes/drawn = %d/%d, want 3/3", f.Stats.Nodes, f.Stats.Drawn)
	}
}

func TestFrameFailingElementSkipsOnlyThatNode(t *testing.T) {
	for _, panics := range []bool{false, true} {
		t.Run(fmt.Sprintf("panics=%v", panics), func(t *testing.T) {
			d := newTestDirector(t)
			_, root := addScene(t, d, 2)
			bad := addChild(t, d, root, "bad", failingElement{panics: panics})
			addChild(t, d, bad, "child", NewBox())
			addChild(t, d, root, "sibling", NewBox())

			r := &recordingRenderer{}
			f, err := d.Seek(context.Background(), 0, r)
			if err != nil {
				t.Fatalf("Seek: %v", err)
			}
			if len(f.Skipped) != 1 || !errors.Is(f.Skipped[0], ErrElementUpdate) {
				t.Fatalf("Skipped = %v, want one ErrElementUpdate", f.Skipped)
			}
			want := []string{"scene 1", "child", "sibling"}
			if got := r.drawnNames(); !slices.Equal(got, want) {
				t.Errorf("drawn = %v, want %v", got, want)
			}
		})
	}
}

func TestFrameRenderErrorSkipsOnlyThatNode(t *testing.T) {
	d := newTestDirector(t)
	_, root := addScene(t, d, 2)
	a := addChild(t, d, root, "a", NewBox())
	addChild(t, d, a, "a1", NewBox())
	addChild(t, d, root, "b", NewBox())

	r := &recordingRenderer{failOn: "a"}
	f, err := d.Seek(context.Background(), 0, r)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Skipped) != 1 || !errors.Is(f.Skipped[0], ErrElementRender) {
		t.Fatalf("Skipped = %v, want one ErrElementRender", f.Skipped)
	}
	want := []string{"scene 1", "a1", "b"}
	if got := r.drawnNames(); !slices.Equal(got, want) {
		t.Errorf("drawn = %v, want %v", got, want)
	}
}

func TestFrameTransitionLayers(t *testing.T) {
	d := newTestDirector(t)
	s1, _ := addScene(t, d, 2)
	s2, _ := addScene(t, d, 2)
	if err := d.AddTransition(s1, s2, "fade", 1, "linear"); err != nil {
		t.Fatal(err)
	}

	r := &recordingRenderer{}
	f, err := d.Seek(context.Background(), 1.5, r)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.layers) != 2 || len(f.Active) != 2 {
		t.Fatalf("layers = %d, active = %d, want 2", len(r.layers), len(f.Active))
	}
	out, in := r.layers[0], r.layers[1]
	if out.Scene != s1 || in.Scene != s2 {
		t.Errorf("layer order = %d, %d, want %d, %d", out.Scene, in.Scene, s1, s2)
	}
	assertNear(t, "outgoing weight", out.Weight, 0.5)
	assertNear(t, "incoming weight", in.Weight, 0.5)
	assertNear(t, "incoming local time", in.LocalTime, 0.5)
	if !in.Incoming || out.Incoming {
		t.Error("Incoming flags are wrong")
	}
	if in.Transition == nil || in.Transition.Kind != TransitionFade {
		t.Errorf("Transition = %v, want fade", in.Transition)
	}
}

func TestFrameEvaluatesAtSceneLocalTime(t *testing.T) {
	d := newTestDirector(t)
	addScene(t, d, 2)
	_, root := addScene(t, d, 2)
	n := addChild(t, d, root, "n", NewBox())
	if err := d.Animate(n, "x", 0, 100, 1, "linear"); err != nil {
		t.Fatal(err)
	}

	r := &recordingRenderer{}
	if _, err := d.Seek(context.Background(), 2.5, r); err != nil {
		t.Fatal(err)
	}
	node, _ := d.Node(n)
	assertNear(t, "x", node.Transform.X.Current, 50)
	assertNear(t, "LocalTime", node.LocalTime, 0.5)
	var world Affine
	for _, rn := range r.drawn {
		if rn.ID == n {
			world = rn.World
		}
	}
	assertNear(t, "world tx", world[4], 50)
}

func TestFrameLayoutAssignsRects(t *testing.T) {
	d := newTestDirector(t)
	_, root := addScene(t, d, 1)
	bar := addChild(t, d, root, "bar", NewBox())
	node, _ := d.Node(bar)
	node.Style.Height = Px(20)

	if _, err := d.Seek(context.Background(), 0, nil); err != nil {
		t.Fatal(err)
	}
	rootNode, _ := d.Node(root)
	if rootNode.Rect != (Rect{0, 0, 100, 50}) {
		t.Errorf("root rect = %v, want full frame", rootNode.Rect)
	}
	if node.Rect != (Rect{0, 0, 100, 20}) {
		t.Errorf("bar rect = %v, want {0 0 100 20}", node.Rect)
	}
	if node.LayoutDirty {
		t.Error("LayoutDirty still set after layout")
	}
}

func TestFrameMaskNodeDrawnAsGroupMask(t *testing.T) {
	d := newTestDirector(t)
	_, root := addScene(t, d, 1)
	a := addChild(t, d, root, "a", NewBox())
	addChild(t, d, a, "a1", NewBox())
	m := addChild(t, d, root, "m", NewRect(ColorWhite))
	if err := d.SetMask(a, m); err != nil {
		t.Fatal(err)
	}

	r := &recordingRenderer{}
	if _, err := d.Seek(context.Background(), 0, r); err != nil {
		t.Fatal(err)
	}
	want := []string{"frame", "layer 1", "draw scene 1", "group a", "draw a", "draw a1", "end group a", "end layer"}
	if !slices.Equal(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
	if r.drawn[1].Mask == nil || r.drawn[1].Mask.ID != m {
		t.Errorf("mask = %v, want %v", r.drawn[1].Mask, m)
	}
}

func TestFrameDetachedMaskIsUpdated(t *testing.T) {
	d := newTestDirector(t)
	_, root := addScene(t, d, 2)
	a := addChild(t, d, root, "a", NewBox())
	m := d.CreateNode(NewRect(ColorWhite))
	if err := d.Animate(m, "x", 0, 10, 1, "linear"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetMask(a, m); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Seek(context.Background(), 0.5, &recordingRenderer{}); err != nil {
		t.Fatal(err)
	}
	mn, _ := d.Node(m)
	assertNear(t, "mask x", mn.Transform.X.Current, 5)
	if mn.Rect != (Rect{0, 0, 100, 50}) {
		t.Errorf("mask rect = %v, want viewport", mn.Rect)
	}
}

func TestFrameZeroOpacityPrunesSubtree(t *testing.T) {
	d := newTestDirector(t)
	_, root := addScene(t, d, 1)
	a := addChild(t, d, root, "a", NewBox())
	addChild(t, d, a, "a1", NewBox())
	if err := d.SetProperty(a, "opacity", 0); err != nil {
		t.Fatal(err)
	}
	r := &recordingRenderer{}
	if _, err := d.Seek(context.Background(), 0, r); err != nil {
		t.Fatal(err)
	}
	if got := r.drawnNames(); !slices.Equal(got, []string{"scene 1"}) {
		t.Errorf("drawn = %v, want only the root", got)
	}
}

func TestFrameInheritsOpacity(t *testing.T) {
	d := newTestDirector(t)
	_, root := addScene(t, d, 1)
	a := addChild(t, d, root, "a", NewBox())
	b := addChild(t, d, a, "b", NewBox())
	_ = d.SetProperty(a, "opacity", 0.5)
	_ = d.SetProperty(b, "opacity", 0.5)
	r := &recordingRenderer{}
	if _, err := d.Seek(context.Background(), 0, r); err != nil {
		t.Fatal(err)
	}
	assertNear(t, "b opacity", r.drawn[2].Opacity, 0.25)
}

func TestFramePreviewToleratesUnavailableAssets(t *testing.T) {
	for _, tt := range []struct {
		mode    RenderMode
		skipped int
	}{
		{ModePreview, 0},
		{ModeExport, 1},
	} {
		t.Run(tt.mode.String(), func(t *testing.T) {
			d := newTestDirector(t, WithAssets(unavailableAssets{}), WithMode(tt.mode))
			_, root := addScene(t, d, 1)
			addChild(t, d, root, "img", NewImage("logo.png"))
			f, err := d.Seek(context.Background(), 0, &recordingRenderer{})
			if err != nil {
				t.Fatal(err)
			}
			if len(f.Skipped) != tt.skipped {
				t.Errorf("skipped = %v, want %d", f.Skipped, tt.skipped)
			}
		})
	}
}

func TestFrameAudioTilesExactly(t *testing.T) {
	d, err := NewDirector(10, 10, 3, WithSampleRate(1000))
	if err != nil {
		t.Fatal(err)
	}
	addScene(t, d, 1)
	want := []int{333, 334, 333}
	total := 0
	for i, w := range want {
		f, err := d.Frame(context.Background(), i, nil)
		if err != nil {
			t.Fatal(err)
		}
		if got := len(f.Audio) / Channels; got != w {
			t.Errorf("frame %d audio frames = %d, want %d", i, got, w)
		}
		total += len(f.Audio) / Channels
	}
	if total != 1000 {
		t.Errorf("total = %d, want 1000", total)
	}
}

func TestFrameMixesElementAudioWithinScene(t *testing.T) {
	d := newTestDirector(t, WithSampleRate(100))
	addScene(t, d, 1)
	_, root := addScene(t, d, 1)
	src := &fakeFrames{w: 4, h: 3, duration: 5}
	addChild(t, d, root, "video", NewVideo(src, constSource{rate: 100, n: 500, v: 0.5}))

	f, err := d.Frame(context.Background(), 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range f.Audio {
		if v != 0 {
			t.Fatalf("frame 5 sample %d = %v, want silence before the scene", i, v)
		}
	}
	f, err = d.Frame(context.Background(), 15, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range f.Audio {
		assertSample(t, fmt.Sprintf("frame 15 sample %d", i), v, 0.5)
	}
	if len(src.times) == 0 || src.times[len(src.times)-1] != 0.5 {
		t.Errorf("video times = %v, want last 0.5", src.times)
	}
}

func TestFrameWithoutRenderer(t *testing.T) {
	d := newTestDirector(t)
	addScene(t, d, 1)
	f, err := d.Seek(context.Background(), 0.2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if f.Image != nil {
		t.Error("Image should be nil without a renderer")
	}
	if len(f.Audio) == 0 {
		t.Error("Audio should still be mixed")
	}
}

func TestFrameOutsideTimelineIsEmpty(t *testing.T) {
	d := newTestDirector(t)
	addScene(t, d, 1)
	r := &recordingRenderer{}
	f, err := d.Seek(context.Background(), 1, r)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Active) != 0 || len(r.layers) != 0 {
		t.Errorf("active = %d, layers = %d, want none", len(f.Active), len(r.layers))
	}
}

func TestFrameCancelledContext(t *testing.T) {
	d := newTestDirector(t)
	addScene(t, d, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Seek(ctx, 0, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFrameNegativeIndex(t *testing.T) {
	d := newTestDirector(t)
	if _, err := d.Frame(context.Background(), -1, nil); err == nil {
		t.Error("expected error for negative index")
	}
}
