package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phanxgames/reel"
	"github.com/phanxgames/reel/assets"
	"github.com/phanxgames/reel/ebitenrender"
	"github.com/phanxgames/reel/internal/config"
	"github.com/phanxgames/reel/internal/scenario"
	"github.com/phanxgames/reel/raster"
)

const defaultConfig = "reel.yaml"

// loadConfig reads --config, or reel.yaml when it exists, or the defaults.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	cfg, err := config.Load(defaultConfig)
	if errors.Is(err, fs.ErrNotExist) {
		def := config.Default()
		return &def, nil
	}
	return cfg, err
}

// session is a built scenario ready to render.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	project  *scenario.Project
	loader   *assets.Loader
	renderer reel.Renderer
}

func (s *session) Close() error { return s.project.Close() }

func (s *session) director() *reel.Director { return s.project.Director }

// openSession loads the scenario at path and builds it with the configured
// renderer. Relative asset refs resolve against assets.root, which is itself
// relative to the scenario's directory.
func openSession(ctx context.Context, cfg *config.Config, path string, mode reel.RenderMode) (*session, error) {
	logger := cfg.Logger(os.Stderr)
	sc, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}
	root := cfg.Assets.Root
	if !filepath.IsAbs(root) {
		root = filepath.Join(filepath.Dir(path), root)
	}
	loader := assets.NewLoader(root,
		assets.WithTools(cfg.Tools()),
		assets.WithSampleRate(cfg.Output.SampleRate),
		assets.WithDPI(cfg.Assets.DPI),
		assets.WithQRSize(cfg.Assets.QRSize),
		assets.WithLogger(logger),
	)

	var (
		r       reel.Renderer
		metrics reel.TextMetrics
	)
	switch cfg.Renderer {
	case config.RendererEbiten:
		er := ebitenrender.New()
		r, metrics = er, er.Fonts()
	default:
		rr := raster.New()
		r, metrics = rr, rr.Fonts()
	}

	w, h, fps := sc.Size(cfg.Output.Width, cfg.Output.Height, cfg.Output.FPS)
	opts := append(cfg.DirectorOptions(logger),
		reel.WithAssets(loader),
		reel.WithTextMetrics(metrics),
		reel.WithMode(mode),
	)
	d, err := reel.NewDirector(w, h, fps, opts...)
	if err != nil {
		return nil, err
	}
	env := scenario.Env{
		Dir:        root,
		Assets:     loader,
		Tools:      cfg.Tools(),
		SampleRate: cfg.Output.SampleRate,
		NewRenderer: func(int, int) reel.Renderer {
			return raster.New()
		},
		Options: cfg.DirectorOptions(logger),
	}
	p, err := sc.Build(ctx, d, env)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", path, err)
	}
	return &session{cfg: cfg, logger: logger, project: p, loader: loader, renderer: r}, nil
}
