// Package assets resolves the asset references used by reel media
// elements. It implements reel.AssetLoader.
//
// References take one of these forms:
//
//	photo.png          image file relative to the root (PNG, JPEG, GIF, BMP, TIFF, WebP)
//	pdf:deck.pdf#3     page 3 of a PDF, rendered at the loader's DPI
//	qr:https://...     QR code encoding the text after the prefix
//	seq:frames/*.png   image sequence, files matched by a doublestar glob in name order
//	frames/            image sequence, every image file in a directory
//
// Audio references are paths to any file ffmpeg can decode.
//
// Decoded assets are cached under a BLAKE3 digest of their source bytes, so
// identical files referenced under different names share one decode and an
// edited file is decoded again.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/phanxgames/reel"
	"github.com/phanxgames/reel/ffmpeg"
)

const (
	defaultDPI    = 144
	defaultQRSize = 512
)

// Option configures a Loader.
type Option func(*Loader)

// WithTools sets the ffmpeg executables used for audio.
func WithTools(t ffmpeg.Tools) Option { return func(l *Loader) { l.tools = t } }

// WithSampleRate sets the rate audio is decoded at. It should match the
// Director's mixer.
func WithSampleRate(rate int) Option { return func(l *Loader) { l.rate = rate } }

// WithDPI sets the resolution PDF pages are rendered at.
func WithDPI(dpi int) Option { return func(l *Loader) { l.dpi = dpi } }

// WithQRSize sets the edge length of generated QR code images.
func WithQRSize(px int) Option { return func(l *Loader) { l.qrSize = px } }

// WithLogger sets the logger for load events.
func WithLogger(lg *slog.Logger) Option { return func(l *Loader) { l.logger = lg } }

// WithAsync makes loads that miss the cache run in the background. Until
// they finish, requests report reel.ErrAssetUnavailable, which preview
// rendering treats as "not ready yet".
func WithAsync(on bool) Option { return func(l *Loader) { l.async = on } }

// Loader loads and caches assets from a root directory. It is safe for
// concurrent use.
type Loader struct {
	root   string
	fsys   fs.FS
	tools  ffmpeg.Tools
	rate   int
	dpi    int
	qrSize int
	logger *slog.Logger
	async  bool

	group   singleflight.Group
	pending sync.WaitGroup

	mu     sync.Mutex
	images map[string]image.Image  // by ref
	seqs   map[string][]image.Image // by ref
	audio  map[string]*reel.PCM     // by ref
	byHash map[Digest]image.Image   // decoded images by source digest
	failed map[string]error         // async failures, kept until Retry
	stats  Stats
}

// Stats counts cache activity.
type Stats struct {
	Hits, Misses, Shared int
}

// NewLoader creates a loader resolving relative paths against root.
func NewLoader(root string, opts ...Option) *Loader {
	l := &Loader{
		root:   root,
		fsys:   os.DirFS(root),
		rate:   reel.DefaultSampleRate,
		dpi:    defaultDPI,
		qrSize: defaultQRSize,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		images: make(map[string]image.Image),
		seqs:   make(map[string][]image.Image),
		audio:  make(map[string]*reel.PCM),
		byHash: make(map[Digest]image.Image),
		failed: make(map[string]error),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Stats returns a snapshot of the cache counters.
func (l *Loader) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// SetAsync switches background loading on or off. Project setup can load
// synchronously and then switch to async mode for interactive playback.
// Switching clears recorded failures.
func (l *Loader) SetAsync(on bool) {
	l.mu.Lock()
	l.async = on
	clear(l.failed)
	l.mu.Unlock()
}

// Retry forgets failed background loads so the next request starts them
// again.
func (l *Loader) Retry() {
	l.mu.Lock()
	clear(l.failed)
	l.mu.Unlock()
}

// Wait blocks until background loads started by an async loader finish.
func (l *Loader) Wait() { l.pending.Wait() }

// Image implements reel.AssetLoader.
func (l *Loader) Image(ctx context.Context, ref string) (image.Image, error) {
	l.mu.Lock()
	if img, ok := l.images[ref]; ok {
		l.stats.Hits++
		l.mu.Unlock()
		return img, nil
	}
	l.mu.Unlock()

	v, err := l.load(ctx, "image:"+ref, func(ctx context.Context) (any, error) {
		img, err := l.decodeImage(ctx, ref)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.images[ref] = img
		l.mu.Unlock()
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

// Sequence implements reel.AssetLoader. A pdf: reference without a page
// yields every page.
func (l *Loader) Sequence(ctx context.Context, ref string) ([]image.Image, error) {
	l.mu.Lock()
	if frames, ok := l.seqs[ref]; ok {
		l.stats.Hits++
		l.mu.Unlock()
		return frames, nil
	}
	l.mu.Unlock()

	v, err := l.load(ctx, "seq:"+ref, func(ctx context.Context) (any, error) {
		frames, err := l.decodeSequence(ctx, ref)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.seqs[ref] = frames
		l.mu.Unlock()
		return frames, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]image.Image), nil
}

// Audio implements reel.AssetLoader. Files are decoded with ffmpeg at the
// loader's sample rate.
func (l *Loader) Audio(ctx context.Context, ref string) (reel.AudioSource, error) {
	l.mu.Lock()
	if pcm, ok := l.audio[ref]; ok {
		l.stats.Hits++
		l.mu.Unlock()
		return pcm, nil
	}
	l.mu.Unlock()

	v, err := l.load(ctx, "audio:"+ref, func(ctx context.Context) (any, error) {
		pcm, err := ffmpeg.DecodeAudio(ctx, l.tools, l.path(ref), l.rate)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.audio[ref] = pcm
		l.mu.Unlock()
		l.logger.Debug("audio decoded", "ref", ref, "seconds", pcm.Duration())
		return pcm, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*reel.PCM), nil
}

// load runs fn once per key. An async loader starts fn in the background
// and reports reel.ErrAssetUnavailable until it completes. A failed
// background load keeps returning its error until Retry.
func (l *Loader) load(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	l.mu.Lock()
	l.stats.Misses++
	if err, ok := l.failed[key]; ok {
		l.mu.Unlock()
		return nil, err
	}
	async := l.async
	l.mu.Unlock()

	if !async {
		v, err, _ := l.group.Do(key, func() (any, error) { return fn(ctx) })
		if err != nil {
			return nil, fmt.Errorf("assets: %s: %w", key, err)
		}
		return v, nil
	}

	l.pending.Add(1)
	ch := l.group.DoChan(key, func() (any, error) {
		v, err := fn(context.Background())
		if err != nil {
			l.mu.Lock()
			l.failed[key] = fmt.Errorf("assets: %s: %w", key, err)
			l.mu.Unlock()
			l.logger.Warn("asset load failed", "key", key, "error", err)
		}
		return v, err
	})
	go func() {
		defer l.pending.Done()
		<-ch
	}()
	return nil, fmt.Errorf("assets: %s: %w", key, reel.ErrAssetUnavailable)
}

func (l *Loader) path(ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(l.root, filepath.FromSlash(ref))
}

func (l *Loader) decodeImage(ctx context.Context, ref string) (image.Image, error) {
	switch {
	case strings.HasPrefix(ref, "qr:"):
		return l.qrImage(strings.TrimPrefix(ref, "qr:"))
	case strings.HasPrefix(ref, "pdf:"):
		file, page, err := parsePDFRef(strings.TrimPrefix(ref, "pdf:"))
		if err != nil {
			return nil, err
		}
		if page == 0 {
			page = 1
		}
		return l.pdfPage(l.path(file), page)
	case strings.HasPrefix(ref, "seq:"):
		return nil, errors.New("sequence reference used as an image")
	}
	return l.imageFile(ctx, l.path(ref))
}

// imageFile decodes a file, reusing an earlier decode of identical bytes.
func (l *Loader) imageFile(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	digest := Sum(data)

	l.mu.Lock()
	if img, ok := l.byHash[digest]; ok {
		l.stats.Shared++
		l.mu.Unlock()
		return img, nil
	}
	l.mu.Unlock()

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	l.mu.Lock()
	l.byHash[digest] = img
	l.mu.Unlock()
	l.logger.Debug("image decoded", "path", path, "digest", digest.String()[:12], "size", img.Bounds().Size())
	return img, nil
}

func (l *Loader) decodeSequence(ctx context.Context, ref string) ([]image.Image, error) {
	if rest, ok := strings.CutPrefix(ref, "pdf:"); ok {
		file, page, err := parsePDFRef(rest)
		if err != nil {
			return nil, err
		}
		if page > 0 {
			img, err := l.pdfPage(l.path(file), page)
			if err != nil {
				return nil, err
			}
			return []image.Image{img}, nil
		}
		return l.pdfPages(ctx, l.path(file))
	}

	paths, err := l.sequencePaths(ref)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%q matched no images", ref)
	}
	frames := make([]image.Image, len(paths))
	for i, p := range paths {
		img, err := l.imageFile(ctx, l.path(p))
		if err != nil {
			return nil, err
		}
		frames[i] = img
	}
	return frames, nil
}

// sequencePaths lists the files of a seq: glob or a directory, relative to
// the root and in name order.
func (l *Loader) sequencePaths(ref string) ([]string, error) {
	pattern, ok := strings.CutPrefix(ref, "seq:")
	if !ok {
		pattern = strings.TrimSuffix(filepath.ToSlash(ref), "/") + "/*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	fsys, base := l.fsys, ""
	if filepath.IsAbs(pattern) {
		base, pattern = doublestar.SplitPattern(filepath.ToSlash(pattern))
		fsys = os.DirFS(base)
	}
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, m := range matches {
		if !isImageFile(m) {
			continue
		}
		if base != "" {
			m = filepath.Join(base, m)
		}
		paths = append(paths, m)
	}
	sortNatural(paths)
	return paths, nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}
