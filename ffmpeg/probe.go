package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MediaInfo describes a media file.
type MediaInfo struct {
	Width, Height int
	// FPS is the video frame rate, zero without video.
	FPS float64
	// Duration in seconds.
	Duration float64
	HasVideo bool
	HasAudio bool
	// SampleRate of the first audio stream.
	SampleRate int
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		SampleRate   string `json:"sample_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads stream information with ffprobe.
func Probe(ctx context.Context, tools Tools, path string) (MediaInfo, error) {
	out, err := run(ctx, tools.ffprobe(),
		"-v", "error",
		"-show_entries", "stream=codec_type,width,height,avg_frame_rate,r_frame_rate,sample_rate,duration:format=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return MediaInfo{}, err
	}
	info, err := parseProbe(out)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return info, nil
}

func parseProbe(data []byte) (MediaInfo, error) {
	var p probeOutput
	if err := json.Unmarshal(data, &p); err != nil {
		return MediaInfo{}, err
	}
	var info MediaInfo
	info.Duration, _ = strconv.ParseFloat(p.Format.Duration, 64)
	for _, s := range p.Streams {
		switch s.CodecType {
		case "video":
			if info.HasVideo {
				continue
			}
			info.HasVideo = true
			info.Width, info.Height = s.Width, s.Height
			info.FPS = parseRate(s.AvgFrameRate)
			if info.FPS == 0 {
				info.FPS = parseRate(s.RFrameRate)
			}
		case "audio":
			if info.HasAudio {
				continue
			}
			info.HasAudio = true
			info.SampleRate, _ = strconv.Atoi(s.SampleRate)
		default:
			continue
		}
		if info.Duration == 0 {
			info.Duration, _ = strconv.ParseFloat(s.Duration, 64)
		}
	}
	if !info.HasVideo && !info.HasAudio {
		return info, fmt.Errorf("no audio or video streams")
	}
	return info, nil
}

// parseRate parses ffprobe rates such as "30000/1001". Invalid and zero
// denominators yield 0.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
