package reel

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// Snapshot renders global time t with r and writes it as a PNG named after
// label into dir. It returns the written path.
func (d *Director) Snapshot(ctx context.Context, t float64, r Renderer, dir, label string) (string, error) {
	f, err := d.Seek(ctx, t, r)
	if err != nil {
		return "", err
	}
	if f.Image == nil {
		return "", fmt.Errorf("reel: snapshot at %.3fs: renderer produced no image", t)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%06.3f.png", sanitizeLabel(label), t))
	if err := WritePNG(path, f.Image); err != nil {
		return "", err
	}
	d.logger.Info("snapshot written", "path", path, "time", t, "skipped", len(f.Skipped))
	return path, nil
}

// WritePNG encodes img to a PNG file at path. Premultiplied RGBA images are
// converted to straight alpha first.
func WritePNG(path string, img image.Image) error {
	if rgba, ok := img.(*image.RGBA); ok {
		img = ToNRGBA(rgba)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// ToNRGBA converts premultiplied RGBA to straight-alpha NRGBA.
func ToNRGBA(src *image.RGBA) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		out := img.Pix[y*img.Stride:]
		for i := 0; i < 4*w; i += 4 {
			r, g, bl, a := row[i], row[i+1], row[i+2], row[i+3]
			if a > 0 && a < 255 {
				r = uint8(min(int(r)*255/int(a), 255))
				g = uint8(min(int(g)*255/int(a), 255))
				bl = uint8(min(int(bl)*255/int(a), 255))
			}
			out[i], out[i+1], out[i+2], out[i+3] = r, g, bl, a
		}
	}
	return img
}

// sanitizeLabel replaces characters that are unsafe in file names with
// underscores and falls back to "frame" for empty strings.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "frame"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
