package ffmpeg

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/phanxgames/reel"
)

// DecodeAudio decodes the first audio stream of path into interleaved
// stereo float32 at rate. A rate of zero uses reel.DefaultSampleRate.
func DecodeAudio(ctx context.Context, tools Tools, path string, rate int) (*reel.PCM, error) {
	if rate <= 0 {
		rate = reel.DefaultSampleRate
	}
	out, err := run(ctx, tools.ffmpeg(),
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-vn",
		"-f", "f32le",
		"-ac", strconv.Itoa(reel.Channels),
		"-ar", strconv.Itoa(rate),
		"pipe:1",
	)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg: %s has no audio", path)
	}
	return reel.NewPCM(rate, decodeF32(out)), nil
}

// decodeF32 reads little-endian float32 samples. A trailing partial sample
// or stereo frame is dropped.
func decodeF32(data []byte) []float32 {
	n := len(data) / 4
	n -= n % reel.Channels
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples
}
