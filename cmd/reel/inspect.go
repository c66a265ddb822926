package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phanxgames/reel"
	"github.com/phanxgames/reel/assets"
	"github.com/phanxgames/reel/ffmpeg"
	"github.com/phanxgames/reel/internal/config"
	"github.com/phanxgames/reel/internal/scenario"
)

var inspectAssets bool

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <scenario.yaml>",
		Short: "Print the timeline, transitions and audio of a scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	cmd.Flags().BoolVar(&inspectAssets, "assets", false, "Also list referenced files with digests and media info")
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Renderer = config.RendererRaster

	s, err := openSession(ctx, cfg, args[0], reel.ModeExport)
	if err != nil {
		return err
	}
	defer s.Close()
	d := s.director()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%dx%d @ %d fps, %.3fs, %d frames\n", d.Width(), d.Height(), d.FPS(), d.Duration(), d.FrameCount())

	tl := d.Timeline()
	fmt.Fprintf(out, "\nScenes (%d):\n", tl.Len())
	for _, it := range tl.Items() {
		nodes := 0
		_ = d.Graph().Walk(it.Root, func(reel.NodeID, *reel.SceneNode) bool {
			nodes++
			return true
		})
		fmt.Fprintf(out, "  %-16s %8.3f - %8.3f  %3d nodes\n", it.Name, it.Start, it.End(), nodes)
	}

	if trs := tl.Transitions(); len(trs) > 0 {
		fmt.Fprintf(out, "\nTransitions (%d):\n", len(trs))
		for _, tr := range trs {
			from, _ := tl.Item(tr.From)
			to, _ := tl.Item(tr.To)
			fmt.Fprintf(out, "  %s -> %s  %s %.3fs\n", from.Name, to.Name, tr.Kind, tr.Duration)
		}
	}

	if tracks := d.Mixer().Tracks(); len(tracks) > 0 {
		fmt.Fprintf(out, "\nAudio (%d tracks at %d Hz):\n", len(tracks), d.Mixer().SampleRate())
		for _, tr := range tracks {
			where := "global"
			if id, ok := tr.Scene(); ok {
				it, _ := tl.Item(id)
				where = "scene " + it.Name
			}
			length := float64(tr.Source.Frames()) / float64(tr.Source.SampleRate())
			fmt.Fprintf(out, "  %-20s start %.3fs  source %.3fs  loop %v\n", where, tr.Start, length, tr.Loop)
		}
	}

	if inspectAssets {
		sc, err := scenario.Load(args[0])
		if err != nil {
			return err
		}
		root := cfg.Assets.Root
		if !filepath.IsAbs(root) {
			root = filepath.Join(filepath.Dir(args[0]), root)
		}
		printAssets(ctx, out, cfg.Tools(), root, sc)
	}
	return nil
}

// printAssets lists plain file references. Generated refs (qr:, pdf:, seq:)
// and directories are skipped.
func printAssets(ctx context.Context, w io.Writer, tools ffmpeg.Tools, root string, sc *scenario.Scenario) {
	refs := make(map[string]string)
	var walk func([]scenario.Node)
	walk = func(nodes []scenario.Node) {
		for _, n := range nodes {
			if n.Ref != "" {
				refs[n.Ref] = n.Type
			}
			walk(n.Children)
		}
	}
	for _, s := range sc.Scenes {
		walk(s.Nodes)
		for _, a := range s.Audio {
			refs[a.Ref] = "audio"
		}
	}
	for _, a := range sc.Audio {
		refs[a.Ref] = "audio"
	}

	names := make([]string, 0, len(refs))
	for ref := range refs {
		if strings.Contains(ref, ":") || strings.HasSuffix(ref, "/") {
			continue
		}
		names = append(names, ref)
	}
	slices.Sort(names)

	fmt.Fprintf(w, "\nAssets (%d files):\n", len(names))
	for _, ref := range names {
		path := ref
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, ref)
		}
		sum, err := assets.SumFile(path)
		if err != nil {
			fmt.Fprintf(w, "  %-28s %-11s error: %v\n", ref, refs[ref], err)
			continue
		}
		line := fmt.Sprintf("  %-28s %-11s %s", ref, refs[ref], sum.String()[:16])
		switch refs[ref] {
		case "video", "audio":
			if info, err := ffmpeg.Probe(ctx, tools, path); err == nil {
				line += fmt.Sprintf("  %.3fs", info.Duration)
				if info.HasVideo {
					line += fmt.Sprintf(" %dx%d@%.2f", info.Width, info.Height, info.FPS)
				}
				if info.HasAudio {
					line += fmt.Sprintf(" %dHz", info.SampleRate)
				}
			}
		}
		fmt.Fprintln(w, line)
	}
}
