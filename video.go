package reel

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// VideoElement shows frames from a FrameSource in sync with the scene clock
// and contributes the video's sound to the mix.
//
// In export mode frames are awaited. In preview mode a frame that is not
// decoded yet leaves the last good frame on screen.
type VideoElement struct {
	Source FrameSource
	Fit    ObjectFit
	// Offset skips into the video, in seconds.
	Offset float64
	Loop   bool
	// Sound is the embedded audio track, or nil for silent video.
	Sound *AudioTrack

	frame image.Image
}

// NewVideo creates a video element. audio may be nil.
func NewVideo(src FrameSource, audio AudioSource) *VideoElement {
	e := &VideoElement{Source: src}
	if audio != nil {
		e.Sound = NewAudioTrack(audio)
	}
	return e
}

func (e *VideoElement) Kind() ElementKind { return ElementVideo }

// SourceTime maps scene local time to a position in the video.
func (e *VideoElement) SourceTime(local float64) float64 {
	t := max(0, local) + e.Offset
	if e.Loop && e.Source != nil {
		if d := e.Source.Duration(); d > 0 {
			t = math.Mod(t, d)
		}
	}
	return t
}

func (e *VideoElement) Update(uc UpdateContext) (Change, error) {
	if e.Source == nil {
		return ChangeNone, errors.New("video element has no source")
	}
	if e.Sound != nil {
		e.Sound.Offset = e.Offset
		e.Sound.Loop = e.Loop
	}
	img, err := e.Source.Frame(uc.Context, e.SourceTime(uc.LocalTime), uc.Mode == ModeExport)
	if err != nil {
		if uc.Mode == ModePreview && errors.Is(err, ErrAssetUnavailable) {
			return ChangeNone, nil
		}
		return ChangeNone, fmt.Errorf("video frame at %.3fs: %w", uc.LocalTime, err)
	}
	change := ChangeVisual
	if e.frame == nil {
		change |= ChangeLayout
	}
	e.frame = img
	return change, nil
}

// Content implements ContentProvider.
func (e *VideoElement) Content() image.Image { return e.frame }

// AudioTrack implements AudioProvider.
func (e *VideoElement) AudioTrack() *AudioTrack { return e.Sound }

func (e *VideoElement) Measure(known, available Size) Size {
	if e.Source == nil {
		return intrinsicSize(nil, known)
	}
	w, h := e.Source.Size()
	return aspectSize(float64(w), float64(h), known)
}

func (e *VideoElement) FloatProperty(name string) (*Animated[float64], bool) {
	if name == "volume" && e.Sound != nil {
		return e.Sound.Volume, true
	}
	return nil, false
}
