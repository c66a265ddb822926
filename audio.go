package reel

import (
	"math"
	"slices"
)

// Channels is the number of interleaved channels produced by the mixer.
const Channels = 2

// DefaultSampleRate is the mixer rate used when none is configured.
const DefaultSampleRate = 48000

// AudioSource is random-access stereo audio at its own sample rate.
type AudioSource interface {
	SampleRate() int
	// Frames returns the number of stereo frames.
	Frames() int
	// Frame returns the samples of frame i, 0 <= i < Frames().
	Frame(i int) (left, right float32)
}

// PCM is an in-memory interleaved stereo buffer.
type PCM struct {
	Rate    int
	Samples []float32 // L, R, L, R, ...
}

// NewPCM wraps interleaved stereo samples.
func NewPCM(rate int, samples []float32) *PCM {
	return &PCM{Rate: rate, Samples: samples}
}

// NewMonoPCM duplicates mono samples into both channels.
func NewMonoPCM(rate int, mono []float32) *PCM {
	s := make([]float32, 2*len(mono))
	for i, v := range mono {
		s[2*i], s[2*i+1] = v, v
	}
	return &PCM{Rate: rate, Samples: s}
}

func (p *PCM) SampleRate() int { return p.Rate }
func (p *PCM) Frames() int     { return len(p.Samples) / Channels }
func (p *PCM) Frame(i int) (float32, float32) {
	return p.Samples[2*i], p.Samples[2*i+1]
}

// Duration returns the length in seconds.
func (p *PCM) Duration() float64 {
	if p.Rate <= 0 {
		return 0
	}
	return float64(p.Frames()) / float64(p.Rate)
}

// AudioTrack places a source on the timeline. A global track plays from
// Start seconds of global time; a scene track plays from Start seconds into
// its scene and is cut at the scene's boundaries.
type AudioTrack struct {
	Source AudioSource
	// Volume is evaluated at the track's local time (seconds since it started).
	Volume *Animated[float64]
	Start  float64
	// Duration clips playback; 0 plays until the source ends, or forever
	// when looping.
	Duration float64
	// Offset skips into the source, in seconds.
	Offset float64
	Loop   bool

	scene SceneID
	bound bool
}

// NewAudioTrack creates a global track at full volume.
func NewAudioTrack(src AudioSource) *AudioTrack {
	return &AudioTrack{Source: src, Volume: NewFloat(1)}
}

// Scene returns the scene the track is bound to.
func (tr *AudioTrack) Scene() (SceneID, bool) { return tr.scene, tr.bound }

// BindScene makes tr a scene track.
func (tr *AudioTrack) BindScene(id SceneID) {
	tr.scene, tr.bound = id, true
}

// window returns the global interval in which the track is audible and the
// global time of the track's local zero, which precedes the interval when a
// scene boundary cuts off the track's head.
func (tr *AudioTrack) window(tl *Timeline) (TimeRange, float64, bool) {
	if tr.Source == nil || tr.Source.SampleRate() <= 0 || tr.Source.Frames() == 0 {
		return TimeRange{}, 0, false
	}
	start := tr.Start
	limit := TimeRange{math.Inf(-1), math.Inf(1)}
	if tr.bound {
		if tl == nil {
			return TimeRange{}, 0, false
		}
		sw, ok := tl.SceneWindow(tr.scene)
		if !ok {
			return TimeRange{}, 0, false
		}
		start += sw.Start
		limit = sw
	}
	end := math.Inf(1)
	switch {
	case tr.Duration > 0:
		end = start + tr.Duration
	case !tr.Loop:
		end = start + float64(tr.Source.Frames())/float64(tr.Source.SampleRate()) - tr.Offset
	}
	w := TimeRange{max(start, limit.Start), min(end, limit.End)}
	return w, start, w.End > w.Start
}

// Mixer sums audio tracks into interleaved stereo at a fixed rate.
type Mixer struct {
	rate   int
	tracks []*AudioTrack
}

// NewMixer creates a mixer producing rate frames per second.
func NewMixer(rate int) *Mixer {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	return &Mixer{rate: rate}
}

// SampleRate returns the output rate.
func (m *Mixer) SampleRate() int { return m.rate }

// Add registers a track.
func (m *Mixer) Add(tr *AudioTrack) { m.tracks = append(m.tracks, tr) }

// Remove unregisters a track.
func (m *Mixer) Remove(tr *AudioTrack) bool {
	if i := slices.Index(m.tracks, tr); i >= 0 {
		m.tracks = slices.Delete(m.tracks, i, i+1)
		return true
	}
	return false
}

// Tracks returns the registered tracks.
func (m *Mixer) Tracks() []*AudioTrack { return slices.Clone(m.tracks) }

// Mix renders frames stereo frames starting at window.Start. Sample i is
// taken at window.Start + i/rate. Registered tracks and extra tracks are
// summed with their volume and every sample is clamped to [-1, 1].
func (m *Mixer) Mix(tl *Timeline, window TimeRange, frames int, extra []*AudioTrack) []float32 {
	if frames <= 0 {
		return nil
	}
	out := make([]float32, frames*Channels)
	for _, tr := range m.tracks {
		m.mixTrack(out, tl, tr, window.Start, frames)
	}
	for _, tr := range extra {
		m.mixTrack(out, tl, tr, window.Start, frames)
	}
	for i, v := range out {
		if v > 1 {
			out[i] = 1
		} else if v < -1 {
			out[i] = -1
		}
	}
	return out
}

func (m *Mixer) mixTrack(out []float32, tl *Timeline, tr *AudioTrack, start float64, frames int) {
	active, origin, ok := tr.window(tl)
	if !ok {
		return
	}
	rate := float64(m.rate)
	if active.End <= start || active.Start >= start+float64(frames)/rate {
		return
	}
	src := tr.Source
	srcRate := float64(src.SampleRate())
	first := max(0, int(math.Floor((active.Start-start)*rate)))
	for i := first; i < frames; i++ {
		t := start + float64(i)/rate
		if t < active.Start {
			continue
		}
		if t >= active.End {
			break
		}
		local := t - origin
		vol := 1.0
		if tr.Volume != nil {
			vol = tr.Volume.Evaluate(local)
		}
		if vol == 0 {
			continue
		}
		l, r, ok := sampleAt(src, (local+tr.Offset)*srcRate, tr.Loop)
		if !ok {
			continue
		}
		out[2*i] += l * float32(vol)
		out[2*i+1] += r * float32(vol)
	}
}

// sampleAt reads src at a fractional frame position with linear
// interpolation. Positions past the end are silent unless loop wraps them.
func sampleAt(src AudioSource, pos float64, loop bool) (float32, float32, bool) {
	n := src.Frames()
	if n == 0 || pos < 0 {
		return 0, 0, false
	}
	i0 := int(math.Floor(pos))
	frac := float32(pos - float64(i0))
	if loop {
		i0 %= n
	} else if i0 >= n {
		return 0, 0, false
	}
	l0, r0 := src.Frame(i0)
	if frac < 1e-6 {
		return l0, r0, true
	}
	i1 := i0 + 1
	if i1 >= n {
		if !loop {
			return l0, r0, true
		}
		i1 = 0
	}
	l1, r1 := src.Frame(i1)
	return l0 + (l1-l0)*frac, r0 + (r1-r0)*frac, true
}

// FrameSampleRange returns the first output frame and the frame count of
// video frame index at fps. Boundaries are rounded from the exact position,
// so counts alternate where rate/fps is fractional and never drift.
func FrameSampleRange(index, fps, rate int) (first, count int) {
	pos := func(i int) int {
		return int((int64(i)*int64(rate)*2 + int64(fps)) / (2 * int64(fps)))
	}
	first = pos(index)
	return first, pos(index+1) - first
}
