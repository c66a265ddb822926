// Package ffmpeg connects reel to the ffmpeg and ffprobe executables: it
// encodes exports, decodes audio into PCM and serves video frames to video
// elements.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Tools locates the executables. The zero value uses "ffmpeg" and
// "ffprobe" from PATH.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

func (t Tools) ffmpeg() string {
	if t.FFmpeg != "" {
		return t.FFmpeg
	}
	return "ffmpeg"
}

func (t Tools) ffprobe() string {
	if t.FFprobe != "" {
		return t.FFprobe
	}
	return "ffprobe"
}

// Available reports whether both executables can be found.
func (t Tools) Available() error {
	for _, bin := range []string{t.ffmpeg(), t.ffprobe()} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("ffmpeg: %s not found: %w", bin, err)
		}
	}
	return nil
}

// run executes the tool and returns its stdout. Failures carry the tail of
// stderr.
func run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout bytes.Buffer
	stderr := newTailBuffer(4096)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return nil, commandError(ctx, bin, err, stderr)
	}
	return stdout.Bytes(), nil
}

func commandError(ctx context.Context, bin string, err error, stderr *tailBuffer) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", bin, ctxErr)
	}
	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		return fmt.Errorf("%s: %w", bin, err)
	}
	return fmt.Errorf("%s: %w: %s", bin, err, msg)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	limit int
	buf []byte
}

func newTailBuffer(limit int) *tailBuffer { return &tailBuffer{limit: limit} }

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// ErrClosed is returned by writes to a closed encoder or reads from a
// closed video source.
var ErrClosed = errors.New("ffmpeg: closed")
