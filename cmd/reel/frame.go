package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phanxgames/reel"
	"github.com/phanxgames/reel/internal/config"
)

var (
	frameAt    float64
	frameIndex int
	frameDir   string
	frameLabel string
)

func frameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame <scenario.yaml>",
		Short: "Render a single frame to a PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  runFrame,
	}
	cmd.Flags().Float64VarP(&frameAt, "time", "t", 0, "Time in seconds")
	cmd.Flags().IntVarP(&frameIndex, "index", "i", -1, "Frame index (overrides --time)")
	cmd.Flags().StringVarP(&frameDir, "dir", "d", ".", "Output directory")
	cmd.Flags().StringVarP(&frameLabel, "label", "l", "frame", "File name prefix")
	return cmd
}

func runFrame(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// GPU frames can only be read inside the game loop.
	cfg.Renderer = config.RendererRaster

	s, err := openSession(ctx, cfg, args[0], reel.ModeExport)
	if err != nil {
		return err
	}
	defer s.Close()
	d := s.director()

	t := frameAt
	if frameIndex >= 0 {
		if frameIndex >= d.FrameCount() {
			return fmt.Errorf("frame %d out of range (0..%d)", frameIndex, d.FrameCount()-1)
		}
		t = float64(frameIndex) / float64(d.FPS())
	}
	path, err := d.Snapshot(ctx, t, s.renderer, frameDir, frameLabel)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
