package reel

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
)

// fakeEncoder keeps everything it is given.
type fakeEncoder struct {
	frames []image.Image
	audio  [][]float32
	closed bool
}

func (e *fakeEncoder) WriteFrame(img image.Image) error {
	e.frames = append(e.frames, img)
	return nil
}

func (e *fakeEncoder) WriteAudio(s []float32) error {
	e.audio = append(e.audio, s)
	return nil
}

func (e *fakeEncoder) Close() error {
	e.closed = true
	return nil
}

// clockRenderer produces a uniform image whose red channel is the frame
// time in milliseconds.
type clockRenderer struct {
	info  FrameInfo
	modes []RenderMode
}

func (r *clockRenderer) BeginFrame(info FrameInfo) error {
	r.info = info
	r.modes = append(r.modes, info.Mode)
	return nil
}
func (r *clockRenderer) BeginLayer(Layer) error         { return nil }
func (r *clockRenderer) BeginGroup(*RenderNode) error   { return nil }
func (r *clockRenderer) DrawNode(*RenderNode) error     { return nil }
func (r *clockRenderer) EndGroup(*RenderNode) error     { return nil }
func (r *clockRenderer) EndLayer() error                { return nil }
func (r *clockRenderer) EndFrame() (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.info.Width, r.info.Height))
	v := uint8(r.info.Time*1000 + 0.5)
	for y := range r.info.Height {
		for x := range r.info.Width {
			img.SetRGBA(x, y, color.RGBA{v, 0, 0, 255})
		}
	}
	return img, nil
}

func TestExportFrameAndSampleCounts(t *testing.T) {
	d := newTestDirector(t, WithSampleRate(100), WithMode(ModePreview))
	addScene(t, d, 1.05)
	enc := &fakeEncoder{}
	r := &clockRenderer{}
	var progress []int
	stats, err := d.Export(context.Background(), r, enc, ExportOptions{
		Progress: func(done, total int) { progress = append(progress, done) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Frames != 11 || len(enc.frames) != 11 {
		t.Errorf("frames = %d (encoded %d), want 11", stats.Frames, len(enc.frames))
	}
	if stats.AudioFrames != 110 {
		t.Errorf("audio frames = %d, want 110", stats.AudioFrames)
	}
	if len(enc.audio) != 11 || len(progress) != 11 || progress[10] != 11 {
		t.Errorf("audio writes = %d, progress = %v", len(enc.audio), progress)
	}
	for i, m := range r.modes {
		if m != ModeExport {
			t.Fatalf("frame %d rendered in %v, want export", i, m)
		}
	}
	if d.Mode() != ModePreview {
		t.Errorf("mode after export = %v, want preview restored", d.Mode())
	}
	if enc.closed {
		t.Error("Export must not close the encoder")
	}
	if d.FrameCount() != 11 {
		t.Errorf("FrameCount = %d, want 11", d.FrameCount())
	}
}

func TestExportCancelled(t *testing.T) {
	d := newTestDirector(t)
	addScene(t, d, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	enc := &fakeEncoder{}
	stats, err := d.Export(ctx, &clockRenderer{}, enc, ExportOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if stats.Frames != 0 || len(enc.frames) != 0 {
		t.Errorf("frames = %d, want 0", stats.Frames)
	}
}

func TestExportStopsOnCancelMidway(t *testing.T) {
	d := newTestDirector(t)
	addScene(t, d, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	enc := &fakeEncoder{}
	_, err := d.Export(ctx, &clockRenderer{}, enc, ExportOptions{
		Progress: func(done, _ int) {
			if done == 3 {
				cancel()
			}
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(enc.frames) != 3 {
		t.Errorf("frames = %d, want 3", len(enc.frames))
	}
}

func TestExportMotionBlurAveragesSubFrames(t *testing.T) {
	d := newTestDirector(t)
	addScene(t, d, 0.1)
	enc := &fakeEncoder{}
	_, err := d.Export(context.Background(), &clockRenderer{}, enc, ExportOptions{
		MotionBlurSamples: 2,
		ShutterAngle:      180,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(enc.frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(enc.frames))
	}
	// Sub-frames at 0 ms and 25 ms.
	r, _, _, a := enc.frames[0].At(3, 3).RGBA()
	if got := uint8(r >> 8); got != 13 {
		t.Errorf("red = %d, want 13", got)
	}
	if uint8(a>>8) != 255 {
		t.Errorf("alpha = %d, want 255", a>>8)
	}
}

func TestFrameCountRoundsUp(t *testing.T) {
	tests := []struct {
		duration float64
		fps      int
		want     int
	}{
		{0, 30, 0},
		{1, 30, 30},
		{1.01, 30, 31},
		{0.1, 30, 3},
		{2.5, 24, 60},
	}
	for _, tt := range tests {
		if got := frameCount(tt.duration, tt.fps); got != tt.want {
			t.Errorf("frameCount(%v, %d) = %d, want %d", tt.duration, tt.fps, got, tt.want)
		}
	}
}
