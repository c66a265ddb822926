// Package config loads the engine and export settings used by the reel
// command line tool.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phanxgames/reel"
	"github.com/phanxgames/reel/ffmpeg"
)

// Config is the contents of a reel.yaml file. Every field has a default,
// so an empty file is valid.
type Config struct {
	Version   int             `yaml:"version"`
	Output    OutputConfig    `yaml:"output"`
	Export    ExportConfig    `yaml:"export"`
	Renderer  string          `yaml:"renderer"`
	Assets    AssetsConfig    `yaml:"assets"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Preview   PreviewConfig   `yaml:"preview"`
	Log       LogConfig       `yaml:"log"`
	Animation AnimationConfig `yaml:"animation"`
}

type OutputConfig struct {
	Width      int `yaml:"width"`
	Height     int `yaml:"height"`
	FPS        int `yaml:"fps"`
	SampleRate int `yaml:"sample_rate"`
}

type ExportConfig struct {
	Path         string  `yaml:"path"`
	Codec        string  `yaml:"codec"`
	Quality      int     `yaml:"quality"`
	Preset       string  `yaml:"preset"`
	PixelFormat  string  `yaml:"pixel_format"`
	MotionBlur   int     `yaml:"motion_blur"`
	ShutterAngle float64 `yaml:"shutter_angle"`
	// Stats prints CPU and memory use after an export.
	Stats bool `yaml:"stats"`
}

type AssetsConfig struct {
	Root   string `yaml:"root"`
	DPI    int    `yaml:"dpi"`
	QRSize int    `yaml:"qr_size"`
}

type FFmpegConfig struct {
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
}

type PreviewConfig struct {
	Loop        bool   `yaml:"loop"`
	SnapshotDir string `yaml:"snapshot_dir"`
	Script      string `yaml:"script"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Debug enables per-frame phase timings.
	Debug bool `yaml:"debug"`
}

type AnimationConfig struct {
	// SpringBakeRate is the default spring simulation rate in Hz.
	SpringBakeRate float64 `yaml:"spring_bake_rate"`
}

// Renderer names.
const (
	RendererRaster = "raster"
	RendererEbiten = "ebiten"
)

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Version: 1,
		Output: OutputConfig{
			Width:      1920,
			Height:     1080,
			FPS:        30,
			SampleRate: reel.DefaultSampleRate,
		},
		Export: ExportConfig{
			Path:         "out.mp4",
			Codec:        "libx264",
			Quality:      20,
			Preset:       "medium",
			PixelFormat:  "yuv420p",
			ShutterAngle: 180,
		},
		Renderer: RendererRaster,
		Assets: AssetsConfig{
			Root:   ".",
			DPI:    144,
			QRSize: 512,
		},
		Preview: PreviewConfig{
			Loop:        true,
			SnapshotDir: "snapshots",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Animation: AnimationConfig{
			SpringBakeRate: reel.DefaultSpringBakeRate,
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported version: %d", c.Version)
	}
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("output size must be positive, got %dx%d", c.Output.Width, c.Output.Height)
	}
	if c.Output.Width%2 != 0 || c.Output.Height%2 != 0 {
		return fmt.Errorf("output size must be even for yuv420p, got %dx%d", c.Output.Width, c.Output.Height)
	}
	if c.Output.FPS <= 0 || c.Output.FPS > 240 {
		return fmt.Errorf("fps must be in 1..240, got %d", c.Output.FPS)
	}
	if c.Output.SampleRate < 8000 || c.Output.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be in 8000..192000, got %d", c.Output.SampleRate)
	}
	if c.Export.Quality <= 0 {
		return fmt.Errorf("export quality must be positive, got %d", c.Export.Quality)
	}
	if c.Export.MotionBlur < 0 {
		return fmt.Errorf("motion_blur must not be negative, got %d", c.Export.MotionBlur)
	}
	if c.Export.ShutterAngle <= 0 || c.Export.ShutterAngle > 360 {
		return fmt.Errorf("shutter_angle must be in (0, 360], got %g", c.Export.ShutterAngle)
	}
	switch c.Renderer {
	case RendererRaster, RendererEbiten:
	default:
		return fmt.Errorf("unknown renderer %q (want %s or %s)", c.Renderer, RendererRaster, RendererEbiten)
	}
	if c.Assets.DPI <= 0 || c.Assets.QRSize <= 0 {
		return fmt.Errorf("assets dpi and qr_size must be positive")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if r := c.Animation.SpringBakeRate; r <= 0 || r > reel.MaxSpringBakeRate {
		return fmt.Errorf("spring_bake_rate must be in (0, %g], got %g", reel.MaxSpringBakeRate, r)
	}
	return nil
}

// Logger builds the slog logger described by the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(c.Log.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// Tools returns the ffmpeg executables to use.
func (c *Config) Tools() ffmpeg.Tools {
	return ffmpeg.Tools{FFmpeg: c.FFmpeg.FFmpeg, FFprobe: c.FFmpeg.FFprobe}
}

// EncoderOptions returns the encoder settings for an export.
func (c *Config) EncoderOptions() ffmpeg.EncoderOptions {
	return ffmpeg.EncoderOptions{
		Width:       c.Output.Width,
		Height:      c.Output.Height,
		FPS:         c.Output.FPS,
		SampleRate:  c.Output.SampleRate,
		Codec:       c.Export.Codec,
		Quality:     c.Export.Quality,
		Preset:      c.Export.Preset,
		PixelFormat: c.Export.PixelFormat,
	}
}

// ExportOptions returns the motion blur settings for Director.Export.
func (c *Config) ExportOptions() reel.ExportOptions {
	return reel.ExportOptions{
		MotionBlurSamples: c.Export.MotionBlur,
		ShutterAngle:      c.Export.ShutterAngle,
	}
}

// DirectorOptions returns the Director options implied by the config.
func (c *Config) DirectorOptions(logger *slog.Logger) []reel.Option {
	return []reel.Option{
		reel.WithLogger(logger),
		reel.WithSampleRate(c.Output.SampleRate),
		reel.WithSpringBakeRate(c.Animation.SpringBakeRate),
		reel.WithDebug(c.Log.Debug),
	}
}
