package reel

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewDirectorRejectsBadSettings(t *testing.T) {
	for _, tt := range []struct{ w, h, fps int }{{0, 10, 30}, {10, -1, 30}, {10, 10, 0}} {
		if _, err := NewDirector(tt.w, tt.h, tt.fps); err == nil {
			t.Errorf("NewDirector(%d, %d, %d) succeeded", tt.w, tt.h, tt.fps)
		}
	}
}

func TestAddSceneCreatesFillingRoot(t *testing.T) {
	d := newTestDirector(t)
	id, root := addScene(t, d, 3)
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}
	n, err := d.Node(root)
	if err != nil {
		t.Fatal(err)
	}
	if n.Style.Width != Percent(100) || n.Style.Height != Percent(100) {
		t.Errorf("root style = %+v, want 100%% x 100%%", n.Style)
	}
	if n.Name != "scene 1" {
		t.Errorf("name = %q, want scene 1", n.Name)
	}
	if _, err := d.AddScene(0); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("AddScene(0) err = %v, want ErrInvalidDuration", err)
	}
	if d.Graph().Len() != 1 {
		t.Errorf("graph len = %d after failed AddScene, want 1", d.Graph().Len())
	}
	if !d.SceneRoot(99).IsZero() {
		t.Error("SceneRoot of unknown scene should be zero")
	}
}

func TestDestroySceneRootRejected(t *testing.T) {
	d := newTestDirector(t)
	_, root := addScene(t, d, 1)
	child := addChild(t, d, root, "c", NewBox())
	if err := d.Destroy(root); !errors.Is(err, ErrSceneRoot) {
		t.Errorf("Destroy(root) err = %v, want ErrSceneRoot", err)
	}
	if err := d.Destroy(child); err != nil {
		t.Errorf("Destroy(child): %v", err)
	}
	if _, err := d.Node(child); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("err = %v, want ErrInvalidHandle", err)
	}
}

func TestAttachSceneRootRejected(t *testing.T) {
	d := newTestDirector(t)
	_, root1 := addScene(t, d, 1)
	_, root2 := addScene(t, d, 1)
	holder := addChild(t, d, root1, "holder", NewBox())
	if err := d.Attach(holder, root2); !errors.Is(err, ErrSceneRoot) {
		t.Fatalf("Attach(holder, root) err = %v, want ErrSceneRoot", err)
	}
	if err := d.Destroy(holder); err != nil {
		t.Fatalf("Destroy(holder): %v", err)
	}
	if !d.Graph().Contains(root2) {
		t.Error("scene root destroyed with an unrelated subtree")
	}
	if _, err := d.Seek(context.Background(), 1.5, nil); err != nil {
		t.Errorf("Seek into second scene: %v", err)
	}
}

func TestAddTransitionByName(t *testing.T) {
	d := newTestDirector(t)
	s1, _ := addScene(t, d, 2)
	s2, _ := addScene(t, d, 2)
	if err := d.AddTransition(s1, s2, "spin", 1, "linear"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("unknown kind err = %v", err)
	}
	if err := d.AddTransition(s1, s2, "wipe_left", 1, "nope"); !errors.Is(err, ErrInvalidAnimationConfig) {
		t.Errorf("unknown easing err = %v", err)
	}
	if err := d.AddTransition(s1, s2, "wipe_left", 0.5, "ease_in_out"); err != nil {
		t.Fatal(err)
	}
	assertNear(t, "duration", d.Duration(), 3.5)
}

func TestSceneAudio(t *testing.T) {
	d := newTestDirector(t, WithSampleRate(100))
	addScene(t, d, 1)
	s2, _ := addScene(t, d, 1)
	if _, err := d.AddSceneAudio(42, constSource{100, 100, 1}, 0); !errors.Is(err, ErrUnknownScene) {
		t.Errorf("err = %v, want ErrUnknownScene", err)
	}
	tr, err := d.AddSceneAudio(s2, constSource{100, 1000, 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.AnimateVolume(tr, 0.5, 0.5, 1, "linear"); err != nil {
		t.Fatal(err)
	}
	out := d.MixAudio(0.9, 20)
	assertSample(t, "before scene", out[0], 0)
	assertSample(t, "in scene", out[2*15], 0.5)
}

func TestGlobalAudio(t *testing.T) {
	d := newTestDirector(t, WithSampleRate(100))
	addScene(t, d, 2)
	d.AddGlobalAudio(constSource{100, 50, 0.25}, 0.5)
	out := d.MixAudio(0, 200)
	assertSample(t, "t=0.4", out[2*40], 0)
	assertSample(t, "t=0.6", out[2*60], 0.25)
	assertSample(t, "t=1.1", out[2*110], 0)
}

func TestEditHoldsLock(t *testing.T) {
	d := newTestDirector(t)
	err := d.Edit(func(d *Director) error {
		if d.mu.TryLock() {
			d.mu.Unlock()
			return errors.New("lock not held")
		}
		_, err := d.AddScene(1)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Timeline().Len() != 1 {
		t.Errorf("scenes = %d, want 1", d.Timeline().Len())
	}
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d := newTestDirector(t, WithLogger(logger), WithDebug(true))
	_, root := addScene(t, d, 1)
	addChild(t, d, root, "bad", failingElement{})
	if _, err := d.Seek(context.Background(), 0, &recordingRenderer{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"msg=frame", "skipped=1", "msg=\"node skipped\"", "phase=update"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestDebugCheckTreeDepth(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	d := newTestDirector(t, WithLogger(logger), WithDebug(true))
	parent := d.CreateNode(NewBox())
	for range debugMaxTreeDepth + 1 {
		child := d.CreateNode(NewBox())
		if err := d.Attach(parent, child); err != nil {
			t.Fatal(err)
		}
		parent = child
	}
	if !strings.Contains(buf.String(), "tree depth exceeds threshold") {
		t.Errorf("expected depth warning, got:\n%s", buf.String())
	}
}
