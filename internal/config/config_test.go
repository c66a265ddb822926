package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("empty file uses defaults", func(t *testing.T) {
		cfg, err := Load(writeTempConfig(t, ""))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Output.Width != 1920 || cfg.Output.FPS != 30 || cfg.Renderer != RendererRaster {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
	})

	t.Run("overrides merge with defaults", func(t *testing.T) {
		cfg, err := Load(writeTempConfig(t, "output:\n  width: 640\n  height: 360\nexport:\n  motion_blur: 4\n"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Output.Width != 640 || cfg.Output.Height != 360 {
			t.Fatalf("size = %dx%d", cfg.Output.Width, cfg.Output.Height)
		}
		if cfg.Output.FPS != 30 {
			t.Fatalf("fps default lost: %d", cfg.Output.FPS)
		}
		if opts := cfg.ExportOptions(); opts.MotionBlurSamples != 4 || opts.ShutterAngle != 180 {
			t.Fatalf("export options = %+v", opts)
		}
	})

	invalid := map[string]string{
		"unknown key":      "outptu:\n  width: 10\n",
		"bad version":      "version: 2\n",
		"odd width":        "output:\n  width: 641\n",
		"zero fps":         "output:\n  fps: 0\n",
		"low sample rate":  "output:\n  sample_rate: 100\n",
		"bad renderer":     "renderer: opengl\n",
		"bad log level":    "log:\n  level: loud\n",
		"bad log format":   "log:\n  format: xml\n",
		"bad shutter":      "export:\n  shutter_angle: 400\n",
		"negative blur":    "export:\n  motion_blur: -1\n",
		"zero spring rate": "animation:\n  spring_bake_rate: 0\n",
		"huge spring rate": "animation:\n  spring_bake_rate: 1e9\n",
		"invalid yaml":     "output: [\n",
	}
	for name, contents := range invalid {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeTempConfig(t, contents)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	t.Run("file not found", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestEncoderOptions(t *testing.T) {
	cfg := Default()
	cfg.Export.Codec = "h264_nvenc"
	opts := cfg.EncoderOptions()
	if opts.Width != 1920 || opts.Height != 1080 || opts.FPS != 30 || opts.Codec != "h264_nvenc" {
		t.Errorf("encoder options = %+v", opts)
	}
	if opts.SampleRate != cfg.Output.SampleRate {
		t.Errorf("sample rate = %d, want %d", opts.SampleRate, cfg.Output.SampleRate)
	}
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"
	var buf bytes.Buffer
	lg := cfg.Logger(&buf)
	lg.Info("hidden")
	lg.Warn("shown", "frame", 3)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"frame":3`) {
		t.Errorf("json record = %s", out)
	}
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reel.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
