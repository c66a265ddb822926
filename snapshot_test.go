package reel

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotWritesPNG(t *testing.T) {
	d := newTestDirector(t)
	addScene(t, d, 1)
	dir := t.TempDir()

	path, err := d.Snapshot(context.Background(), 0.25, &clockRenderer{}, dir, "title card")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "title_card_00.250.png"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("size = %v, want 100x50", b)
	}
	if r, _, _, _ := img.At(10, 10).RGBA(); r>>8 != 250 {
		t.Errorf("red = %d, want 250", r>>8)
	}
}

// blankRenderer draws nothing and returns no image.
type blankRenderer struct{ clockRenderer }

func (blankRenderer) EndFrame() (image.Image, error) { return nil, nil }

func TestSnapshotWithoutImage(t *testing.T) {
	d := newTestDirector(t)
	addScene(t, d, 1)
	dir := filepath.Join(t.TempDir(), "out")
	if _, err := d.Snapshot(context.Background(), 0, &blankRenderer{}, dir, "x"); err == nil {
		t.Fatal("expected error for a renderer without output")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("snapshot dir created without an image: %v", err)
	}
}

func TestToNRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{128, 64, 0, 128})
	src.SetRGBA(1, 0, color.RGBA{10, 20, 30, 255})
	got := ToNRGBA(src)
	if c := got.NRGBAAt(0, 0); c != (color.NRGBA{255, 127, 0, 128}) {
		t.Errorf("half alpha = %v", c)
	}
	if c := got.NRGBAAt(1, 0); c != (color.NRGBA{10, 20, 30, 255}) {
		t.Errorf("opaque = %v", c)
	}
}

func TestSanitizeLabel(t *testing.T) {
	tests := map[string]string{
		"":          "frame",
		"  ":        "frame",
		"intro-1.5": "intro-1.5",
		"a/b c":     "a_b_c",
		"scène":     "sc_ne",
		"../../etc": ".._.._etc",
	}
	for in, want := range tests {
		if got := sanitizeLabel(in); got != want {
			t.Errorf("sanitizeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
