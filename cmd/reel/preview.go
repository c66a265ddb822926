package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phanxgames/reel"
	"github.com/phanxgames/reel/ebitenrender"
	"github.com/phanxgames/reel/internal/config"
)

var (
	previewScript string
	previewMuted  bool
	previewStart  float64
)

func previewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <scenario.yaml>",
		Short: "Play a scenario in a window",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreview,
	}
	cmd.Flags().StringVar(&previewScript, "script", "", "JSON script of seeks and snapshots (overrides preview.script)")
	cmd.Flags().BoolVar(&previewMuted, "mute", false, "Disable audio output")
	cmd.Flags().Float64Var(&previewStart, "at", 0, "Start position in seconds")
	return cmd
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Renderer = config.RendererEbiten
	if previewScript != "" {
		cfg.Preview.Script = previewScript
	}

	s, err := openSession(ctx, cfg, args[0], reel.ModePreview)
	if err != nil {
		return err
	}
	defer s.Close()
	// Images and sequences decode in the background from here on.
	s.loader.SetAsync(true)
	defer s.loader.Wait()

	p := ebitenrender.NewPlayer(ctx, s.director())
	p.Renderer = s.renderer.(*ebitenrender.Renderer)
	p.Loop = cfg.Preview.Loop
	p.Muted = previewMuted
	p.SnapshotDir = cfg.Preview.SnapshotDir
	if cfg.Preview.Script != "" {
		data, err := os.ReadFile(cfg.Preview.Script)
		if err != nil {
			return err
		}
		if p.Script, err = ebitenrender.LoadScript(data); err != nil {
			return err
		}
	}
	p.Seek(previewStart)
	return p.Run("reel - " + filepath.Base(args[0]))
}
