package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"

	"github.com/phanxgames/reel"
	"github.com/phanxgames/reel/ebitenrender"
	"github.com/phanxgames/reel/ffmpeg"
)

var (
	renderOut        string
	renderRenderer   string
	renderMotionBlur int
	renderStats      bool
)

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <scenario.yaml>",
		Short: "Export a scenario to a video file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRender,
	}
	cmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output file (overrides export.path)")
	cmd.Flags().StringVar(&renderRenderer, "renderer", "", "raster or ebiten (overrides renderer)")
	cmd.Flags().IntVar(&renderMotionBlur, "motion-blur", -1, "Sub-frame samples per frame (overrides export.motion_blur)")
	cmd.Flags().BoolVar(&renderStats, "stats", false, "Print CPU and memory use after the export")
	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if renderOut != "" {
		cfg.Export.Path = renderOut
	}
	if renderRenderer != "" {
		cfg.Renderer = renderRenderer
	}
	if renderMotionBlur >= 0 {
		cfg.Export.MotionBlur = renderMotionBlur
	}
	cfg.Export.Stats = cfg.Export.Stats || renderStats
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Tools().Available(); err != nil {
		return err
	}

	s, err := openSession(ctx, cfg, args[0], reel.ModeExport)
	if err != nil {
		return err
	}
	defer s.Close()
	d := s.director()

	eo := cfg.EncoderOptions()
	eo.Width, eo.Height, eo.FPS = d.Width(), d.Height(), d.FPS()
	enc, err := ffmpeg.NewEncoder(ctx, cfg.Tools(), cfg.Export.Path, eo)
	if err != nil {
		return err
	}

	opts := cfg.ExportOptions()
	opts.Progress = progressPrinter(cmd.ErrOrStderr(), time.Second)

	var stats reel.ExportStats
	if er, ok := s.renderer.(*ebitenrender.Renderer); ok {
		stats, err = ebitenrender.Export(ctx, d, er, enc, opts)
	} else {
		stats, err = d.Export(ctx, s.renderer, enc, opts)
	}
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", cfg.Export.Path)
	fmt.Fprintf(out, "  Frames:        %d\n", stats.Frames)
	fmt.Fprintf(out, "  Audio frames:  %d\n", stats.AudioFrames)
	fmt.Fprintf(out, "  Skipped nodes: %d\n", stats.SkippedNodes)
	fmt.Fprintf(out, "  Elapsed:       %s (%.1f fps)\n", stats.Elapsed.Round(time.Millisecond),
		float64(stats.Frames)/max(stats.Elapsed.Seconds(), 1e-9))
	a := s.loader.Stats()
	fmt.Fprintf(out, "  Asset cache:   %d hits, %d misses\n", a.Hits, a.Misses)
	if cfg.Export.Stats {
		printResourceStats(out)
	}
	return nil
}

// progressPrinter reports export progress at most once per interval and
// always on the last frame.
func progressPrinter(w io.Writer, every time.Duration) func(done, total int) {
	var last time.Time
	return func(done, total int) {
		now := time.Now()
		if done < total && now.Sub(last) < every {
			return
		}
		last = now
		fmt.Fprintf(w, "\rframe %d/%d (%.0f%%)", done, total, 100*float64(done)/float64(max(total, 1)))
		if done == total {
			fmt.Fprintln(w)
		}
	}
}

func printResourceStats(w io.Writer) {
	fmt.Fprintln(w, "\nResources:")
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			fmt.Fprintf(w, "  Process RSS:   %s\n", formatBytes(mi.RSS))
		}
		if pct, err := p.CPUPercent(); err == nil {
			fmt.Fprintf(w, "  Process CPU:   %.1f%%\n", pct)
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintf(w, "  System memory: %s of %s (%.1f%%)\n", formatBytes(vm.Used), formatBytes(vm.Total), vm.UsedPercent)
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		fmt.Fprintf(w, "  System CPU:    %.1f%%\n", pct[0])
	}
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
