package ebitenrender

import (
	"context"
	"errors"
	"image"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/reel"
)

// Export runs d.Export with r on the Ebitengine game goroutine. GPU frames
// are read back into *image.RGBA before they reach enc. A small window is
// open for the duration of the export.
func Export(ctx context.Context, d *reel.Director, r *Renderer, enc reel.Encoder, opts reel.ExportOptions) (reel.ExportStats, error) {
	g := &exportGame{ctx: ctx, d: d, r: r, enc: &readbackEncoder{Encoder: enc}, opts: opts}
	ebiten.SetWindowTitle("reel export")
	ebiten.SetWindowSize(320, 180)
	ebiten.SetRunnableOnUnfocused(true)
	err := ebiten.RunGame(g)
	if err != nil && !errors.Is(err, ebiten.Termination) {
		return g.stats, err
	}
	return g.stats, g.err
}

type exportGame struct {
	ctx   context.Context
	d     *reel.Director
	r     *Renderer
	enc   *readbackEncoder
	opts  reel.ExportOptions
	stats reel.ExportStats
	err   error
}

func (g *exportGame) Update() error {
	g.stats, g.err = g.d.Export(g.ctx, g.r, g.enc, g.opts)
	return ebiten.Termination
}

func (g *exportGame) Draw(screen *ebiten.Image) {}

func (g *exportGame) Layout(w, h int) (int, int) { return 320, 180 }

// readbackEncoder copies *ebiten.Image frames to CPU memory.
type readbackEncoder struct {
	reel.Encoder
	buf *image.RGBA
}

func (e *readbackEncoder) WriteFrame(img image.Image) error {
	src, ok := img.(*ebiten.Image)
	if !ok {
		return e.Encoder.WriteFrame(img)
	}
	b := src.Bounds()
	if e.buf == nil || e.buf.Rect != b {
		e.buf = image.NewRGBA(b)
	}
	src.ReadPixels(e.buf.Pix)
	return e.Encoder.WriteFrame(e.buf)
}
