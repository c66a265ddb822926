package reel

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	xdraw "golang.org/x/image/draw"
)

// Encoder receives the frames and audio of an export in order. For every
// video frame WriteFrame is called first, then WriteAudio with that frame's
// samples.
type Encoder interface {
	WriteFrame(img image.Image) error
	WriteAudio(samples []float32) error
	Close() error
}

// ExportOptions tunes Director.Export.
type ExportOptions struct {
	// MotionBlurSamples renders each frame this many times across the
	// shutter interval and averages the results. 0 or 1 disables it.
	MotionBlurSamples int
	// ShutterAngle in degrees; 360 spans the whole frame interval.
	// Zero means 180.
	ShutterAngle float64
	// Progress, when set, is called after every frame.
	Progress func(done, total int)
}

// ExportStats summarizes an export.
type ExportStats struct {
	Frames       int
	AudioFrames  int
	SkippedNodes int
	Elapsed      time.Duration
}

// frameCount returns the number of frames that cover duration.
func frameCount(duration float64, fps int) int {
	if duration <= 0 {
		return 0
	}
	return int(math.Ceil(duration*float64(fps) - 1e-9))
}

// Export renders every frame of the timeline in export mode and writes it to
// enc. It does not close enc. A cancelled context stops the export between
// frames.
func (d *Director) Export(ctx context.Context, r Renderer, enc Encoder, opts ExportOptions) (ExportStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.mode
	d.mode = ModeExport
	defer func() { d.mode = prev }()

	var stats ExportStats
	start := time.Now()
	total := frameCount(d.timeline.Duration(), d.fps)
	d.logger.Info("export started", "frames", total, "fps", d.fps, "width", d.width, "height", d.height,
		"motion_blur", opts.MotionBlurSamples)

	for i := range total {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("reel: export cancelled at frame %d: %w", i, err)
		}
		f, err := d.frameLocked(ctx, i, r)
		if err != nil {
			return stats, fmt.Errorf("reel: frame %d: %w", i, err)
		}
		img := f.Image
		if opts.MotionBlurSamples > 1 {
			img, err = d.motionBlur(ctx, i, r, f.Image, opts)
			if err != nil {
				return stats, fmt.Errorf("reel: frame %d: %w", i, err)
			}
		}
		if err := enc.WriteFrame(img); err != nil {
			return stats, fmt.Errorf("reel: write frame %d: %w", i, err)
		}
		if err := enc.WriteAudio(f.Audio); err != nil {
			return stats, fmt.Errorf("reel: write audio %d: %w", i, err)
		}
		stats.Frames++
		stats.AudioFrames += len(f.Audio) / Channels
		stats.SkippedNodes += len(f.Skipped)
		d.debugLog(f)
		if opts.Progress != nil {
			opts.Progress(i+1, total)
		}
	}
	stats.Elapsed = time.Since(start)
	d.logger.Info("export finished", "frames", stats.Frames, "skipped_nodes", stats.SkippedNodes,
		"elapsed", stats.Elapsed)
	return stats, nil
}

// motionBlur averages the frame at its own time with samples-1 more
// sub-frames spread across the shutter interval.
func (d *Director) motionBlur(ctx context.Context, index int, r Renderer, first image.Image, opts ExportOptions) (image.Image, error) {
	angle := opts.ShutterAngle
	if angle <= 0 {
		angle = 180
	}
	shutter := min(angle, 360) / 360
	n := opts.MotionBlurSamples
	acc := newAccumulator(d.width, d.height)
	acc.add(first)
	for k := 1; k < n; k++ {
		t := (float64(index) + shutter*float64(k)/float64(n)) / float64(d.fps)
		f, err := d.evaluate(ctx, index, t, r)
		if err != nil {
			return nil, err
		}
		acc.add(f.Image)
	}
	return acc.average(), nil
}

// accumulator sums premultiplied RGBA images.
type accumulator struct {
	sum     []uint32
	scratch *image.RGBA
	n       uint32
}

func newAccumulator(w, h int) *accumulator {
	return &accumulator{
		sum:     make([]uint32, 4*w*h),
		scratch: image.NewRGBA(image.Rect(0, 0, w, h)),
	}
}

func (a *accumulator) add(img image.Image) {
	a.n++
	if img == nil {
		return
	}
	xdraw.Copy(a.scratch, image.Point{}, img, img.Bounds(), xdraw.Src, nil)
	for i, v := range a.scratch.Pix {
		a.sum[i] += uint32(v)
	}
}

func (a *accumulator) average() *image.RGBA {
	out := image.NewRGBA(a.scratch.Rect)
	if a.n == 0 {
		return out
	}
	for i, v := range a.sum {
		out.Pix[i] = uint8((v + a.n/2) / a.n)
	}
	return out
}
