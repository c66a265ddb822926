package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os/exec"
	"strconv"
	"sync"

	"github.com/phanxgames/reel"
)

// maxSkip is how many frames a running decoder reads forward before a
// restart with a new seek position is cheaper.
const maxSkip = 48

// VideoSource decodes a video file frame by frame. It implements
// reel.FrameSource.
//
// Frames are read sequentially from one ffmpeg process. Small forward
// steps reuse it; seeking backwards or far ahead restarts it at the new
// position. Without wait, a restart runs in the background and Frame
// reports reel.ErrAssetUnavailable until the frame is ready.
type VideoSource struct {
	tools Tools
	path  string
	info  MediaInfo
	fps   float64
	count int

	ctx    context.Context
	cancel context.CancelFunc

	// mu is held while decoding.
	mu  sync.Mutex
	dec *decoder

	cacheMu sync.Mutex
	last    image.Image
	lastIdx int
	err     error
	closed  bool
}

// OpenVideo probes path and prepares it for decoding. No process runs
// until the first frame is requested.
func OpenVideo(ctx context.Context, tools Tools, path string) (*VideoSource, error) {
	info, err := Probe(ctx, tools, path)
	if err != nil {
		return nil, err
	}
	if !info.HasVideo || info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("ffmpeg: %s has no video stream", path)
	}
	fps := info.FPS
	if fps <= 0 {
		fps = 30
	}
	base, cancel := context.WithCancel(context.Background())
	return &VideoSource{
		tools:   tools,
		path:    path,
		info:    info,
		fps:     fps,
		count:   max(1, int(math.Round(info.Duration*fps))),
		ctx:     base,
		cancel:  cancel,
		lastIdx: -1,
	}, nil
}

// Info returns the probed stream information.
func (s *VideoSource) Info() MediaInfo { return s.info }

func (s *VideoSource) Size() (int, int) { return s.info.Width, s.info.Height }

func (s *VideoSource) Duration() float64 { return s.info.Duration }

// frameIndex maps t to a frame, clamped to the stream.
func (s *VideoSource) frameIndex(t float64) int {
	i := int(math.Floor(t*s.fps + 1e-6))
	return min(max(i, 0), s.count-1)
}

// Frame returns the frame shown at t seconds.
func (s *VideoSource) Frame(ctx context.Context, t float64, wait bool) (image.Image, error) {
	idx := s.frameIndex(t)

	s.cacheMu.Lock()
	if s.closed {
		s.cacheMu.Unlock()
		return nil, ErrClosed
	}
	if s.last != nil && s.lastIdx == idx {
		img := s.last
		s.cacheMu.Unlock()
		return img, nil
	}
	if err := s.err; err != nil && !wait {
		// A background decode failed. Report it once and retry next time.
		s.err = nil
		s.cacheMu.Unlock()
		return nil, err
	}
	s.cacheMu.Unlock()

	if wait {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.decode(ctx, idx)
	}

	if !s.mu.TryLock() {
		return nil, reel.ErrAssetUnavailable
	}
	if s.dec != nil && idx >= s.dec.next && idx-s.dec.next <= 1 {
		defer s.mu.Unlock()
		return s.decode(ctx, idx)
	}
	go func() {
		defer s.mu.Unlock()
		if _, err := s.decode(s.ctx, idx); err != nil && !errors.Is(err, context.Canceled) {
			s.cacheMu.Lock()
			s.err = err
			s.cacheMu.Unlock()
		}
	}()
	return nil, reel.ErrAssetUnavailable
}

// decode reads up to frame idx. s.mu must be held.
func (s *VideoSource) decode(ctx context.Context, idx int) (image.Image, error) {
	if s.dec == nil || idx < s.dec.next || idx-s.dec.next > maxSkip {
		if s.dec != nil {
			s.dec.close()
		}
		dec, err := s.startDecoder(idx)
		if err != nil {
			s.dec = nil
			return nil, err
		}
		s.dec = dec
	}

	var img image.Image
	for s.dec.next <= idx {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := s.dec.read()
		if errors.Is(err, io.EOF) {
			// The stream ended early; hold the final frame.
			break
		}
		if err != nil {
			s.dec.close()
			s.dec = nil
			return nil, err
		}
		img = frame
	}
	if img == nil {
		s.cacheMu.Lock()
		img = s.last
		s.cacheMu.Unlock()
		if img == nil {
			return nil, fmt.Errorf("ffmpeg: %s: no frame at index %d", s.path, idx)
		}
	}

	s.cacheMu.Lock()
	s.last, s.lastIdx = img, idx
	s.cacheMu.Unlock()
	return img, nil
}

func (s *VideoSource) startDecoder(idx int) (*decoder, error) {
	ctx, cancel := context.WithCancel(s.ctx)
	start := float64(idx) / s.fps
	cmd := exec.CommandContext(ctx, s.tools.ffmpeg(),
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(start, 'f', 6, 64),
		"-i", s.path,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-r", strconv.FormatFloat(s.fps, 'f', -1, 64),
		"pipe:1",
	)
	stderr := newTailBuffer(4096)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg: start decoder: %w", err)
	}
	return &decoder{
		cmd:    cmd,
		cancel: cancel,
		r:      bufio.NewReaderSize(stdout, s.info.Width*s.info.Height*4),
		stderr: stderr,
		w:      s.info.Width,
		h:      s.info.Height,
		next:   idx,
	}, nil
}

// Close stops any running decoder.
func (s *VideoSource) Close() error {
	s.cacheMu.Lock()
	if s.closed {
		s.cacheMu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.last = nil
	s.cacheMu.Unlock()

	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dec != nil {
		s.dec.close()
		s.dec = nil
	}
	return nil
}

// decoder is one running ffmpeg process emitting raw RGBA frames.
type decoder struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	r      *bufio.Reader
	stderr *tailBuffer
	w, h   int
	// next is the index of the frame the next read returns.
	next int
}

func (d *decoder) read() (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, d.w, d.h))
	if _, err := io.ReadFull(d.r, img.Pix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if msg := d.stderr.String(); msg != "" {
				return nil, fmt.Errorf("ffmpeg: decode: %s", msg)
			}
			return nil, io.EOF
		}
		return nil, fmt.Errorf("ffmpeg: decode: %w", err)
	}
	d.next++
	return img, nil
}

func (d *decoder) close() {
	d.cancel()
	_ = d.cmd.Wait()
}
