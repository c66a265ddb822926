package ffmpeg

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// EncoderOptions configures an export encode.
type EncoderOptions struct {
	Width, Height int
	FPS           int
	// SampleRate of the interleaved stereo float32 audio passed to
	// WriteAudio. Zero encodes video only.
	SampleRate int
	// Codec is the ffmpeg video encoder. Defaults to libx264.
	Codec string
	// Quality is the CRF for libx264, the CQ for h264_nvenc and a bitrate
	// in units of 100 kbit/s for h264_videotoolbox. Defaults to 20.
	Quality int
	// Preset applies to libx264. Defaults to medium.
	Preset string
	// PixelFormat of the output. Defaults to yuv420p.
	PixelFormat string
	// AudioCodec defaults to aac.
	AudioCodec string
}

func (o EncoderOptions) withDefaults() EncoderOptions {
	if o.Codec == "" {
		o.Codec = "libx264"
	}
	if o.Quality <= 0 {
		o.Quality = 20
	}
	if o.Preset == "" {
		o.Preset = "medium"
	}
	if o.PixelFormat == "" {
		o.PixelFormat = "yuv420p"
	}
	if o.AudioCodec == "" {
		o.AudioCodec = "aac"
	}
	return o
}

// encoderArgs builds the ffmpeg command line. Video arrives as raw RGBA on
// stdin and audio as f32le on file descriptor 3.
func encoderArgs(path string, o EncoderOptions) []string {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", o.Width, o.Height),
		"-framerate", strconv.Itoa(o.FPS),
		"-i", "pipe:0",
	}
	if o.SampleRate > 0 {
		args = append(args,
			"-f", "f32le",
			"-ar", strconv.Itoa(o.SampleRate),
			"-ac", "2",
			"-i", "pipe:3",
		)
	}
	args = append(args, "-pix_fmt", o.PixelFormat, "-c:v", o.Codec)
	switch o.Codec {
	case "h264_videotoolbox":
		args = append(args, "-b:v", fmt.Sprintf("%dk", o.Quality*100))
	case "h264_nvenc":
		args = append(args, "-cq", strconv.Itoa(o.Quality))
	case "libx264", "libx265":
		args = append(args, "-crf", strconv.Itoa(o.Quality), "-preset", o.Preset)
	}
	if o.SampleRate > 0 {
		args = append(args, "-c:a", o.AudioCodec, "-b:a", "192k")
	}
	return append(args, path)
}

// Encoder pipes an export into an ffmpeg process. It implements
// reel.Encoder. Video and audio are written by separate goroutines so
// ffmpeg can consume its inputs in any interleaving. Writes must come from
// a single goroutine.
type Encoder struct {
	opts      EncoderOptions
	cmd       *exec.Cmd
	stderr    *tailBuffer
	ctx       context.Context
	group     *errgroup.Group
	groupCtx  context.Context
	frames    chan []byte
	audio     chan []float32
	pool      sync.Pool
	frameSize int

	mu     sync.Mutex
	closed bool
}

// NewEncoder starts ffmpeg writing to path. Cancelling ctx kills the
// process.
func NewEncoder(ctx context.Context, tools Tools, path string, opts EncoderOptions) (*Encoder, error) {
	opts = opts.withDefaults()
	if opts.Width <= 0 || opts.Height <= 0 || opts.FPS <= 0 {
		return nil, fmt.Errorf("ffmpeg: invalid encoder size %dx%d@%d", opts.Width, opts.Height, opts.FPS)
	}
	e := &Encoder{
		opts:      opts,
		stderr:    newTailBuffer(8192),
		ctx:       ctx,
		frames:    make(chan []byte, 4),
		audio:     make(chan []float32, 16),
		frameSize: opts.Width * opts.Height * 4,
	}
	e.pool.New = func() any { return make([]byte, e.frameSize) }

	e.cmd = exec.CommandContext(ctx, tools.ffmpeg(), encoderArgs(path, opts)...)
	e.cmd.Stderr = e.stderr
	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: stdin pipe: %w", err)
	}
	var audioR, audioW *os.File
	if opts.SampleRate > 0 {
		audioR, audioW, err = os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("ffmpeg: audio pipe: %w", err)
		}
		e.cmd.ExtraFiles = []*os.File{audioR}
	}
	if err := e.cmd.Start(); err != nil {
		if audioR != nil {
			audioR.Close()
			audioW.Close()
		}
		return nil, fmt.Errorf("ffmpeg: start: %w", err)
	}
	if audioR != nil {
		audioR.Close()
	}

	e.group, e.groupCtx = errgroup.WithContext(ctx)
	e.group.Go(func() error {
		defer stdin.Close()
		for buf := range e.frames {
			_, err := stdin.Write(buf)
			e.pool.Put(buf)
			if err != nil {
				drain(e.frames)
				return fmt.Errorf("ffmpeg: write video: %w", err)
			}
		}
		return nil
	})
	e.group.Go(func() error {
		if audioW == nil {
			drain(e.audio)
			return nil
		}
		defer audioW.Close()
		var buf []byte
		for samples := range e.audio {
			buf = encodeF32(buf[:0], samples)
			if _, err := audioW.Write(buf); err != nil {
				drain(e.audio)
				return fmt.Errorf("ffmpeg: write audio: %w", err)
			}
		}
		return nil
	})
	return e, nil
}

func drain[T any](ch <-chan T) {
	for range ch {
	}
}

// WriteFrame queues one video frame. Premultiplied *image.RGBA frames are
// converted to straight alpha.
func (e *Encoder) WriteFrame(img image.Image) error {
	if b := img.Bounds(); b.Dx() != e.opts.Width || b.Dy() != e.opts.Height {
		return fmt.Errorf("ffmpeg: frame is %dx%d, encoder expects %dx%d", b.Dx(), b.Dy(), e.opts.Width, e.opts.Height)
	}
	buf := e.pool.Get().([]byte)
	packFrame(buf, img)
	return send(e, e.frames, buf)
}

// WriteAudio queues interleaved stereo samples. It is a no-op for
// video-only encoders.
func (e *Encoder) WriteAudio(samples []float32) error {
	if e.opts.SampleRate <= 0 || len(samples) == 0 {
		return nil
	}
	return send(e, e.audio, samples)
}

func send[T any](e *Encoder, ch chan<- T, v T) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	select {
	case ch <- v:
		return nil
	case <-e.groupCtx.Done():
		if err := e.Close(); err != nil {
			return err
		}
		return ErrClosed
	}
}

// Close flushes the queues and waits for ffmpeg to finish the file.
func (e *Encoder) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.closed = true
	close(e.frames)
	close(e.audio)
	e.mu.Unlock()

	writeErr := e.group.Wait()
	if err := e.cmd.Wait(); err != nil {
		return commandError(e.ctx, "ffmpeg", err, e.stderr)
	}
	if writeErr != nil && !errors.Is(writeErr, io.ErrClosedPipe) {
		return writeErr
	}
	return nil
}

// packFrame writes img into dst as tightly packed straight-alpha RGBA.
func packFrame(dst []byte, img image.Image) {
	b := img.Bounds()
	w := b.Dx()
	if src, ok := img.(*image.RGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := dst[y*w*4 : (y+1)*w*4]
			copy(row, src.Pix[i:i+w*4])
			for x := 0; x < len(row); x += 4 {
				if a := row[x+3]; a != 255 {
					unpremultiply(row[x:x+4:x+4], a)
				}
			}
		}
		return
	}
	out := &image.NRGBA{Pix: dst, Stride: w * 4, Rect: image.Rect(0, 0, w, b.Dy())}
	xdraw.Draw(out, out.Rect, img, b.Min, xdraw.Src)
}

func unpremultiply(p []byte, a byte) {
	if a == 0 {
		p[0], p[1], p[2] = 0, 0, 0
		return
	}
	for c := range 3 {
		p[c] = byte(min(255, (uint32(p[c])*255+uint32(a)/2)/uint32(a)))
	}
}

// encodeF32 appends samples as little-endian float32.
func encodeF32(dst []byte, samples []float32) []byte {
	for _, v := range samples {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
