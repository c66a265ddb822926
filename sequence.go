package reel

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// SequenceElement plays a pre-rendered frame sequence, such as a Lottie
// animation exported to images. Frames advance at FrameRate from the start
// of the scene unless Progress is animated, in which case Progress in [0, 1]
// scrubs through the sequence.
type SequenceElement struct {
	Ref       string
	Frames    []image.Image
	FrameRate float64
	Loop      bool
	Fit       ObjectFit
	Progress  *Animated[float64]

	current image.Image
	index   int
}

// NewSequence creates a sequence that loads its frames from ref.
func NewSequence(ref string, fps float64) *SequenceElement {
	return &SequenceElement{Ref: ref, FrameRate: fps, Progress: NewFloat(0), index: -1}
}

// NewSequenceFrom creates a sequence from decoded frames.
func NewSequenceFrom(frames []image.Image, fps float64) *SequenceElement {
	return &SequenceElement{Frames: frames, FrameRate: fps, Progress: NewFloat(0), index: -1}
}

func (e *SequenceElement) Kind() ElementKind { return ElementSequence }

func (e *SequenceElement) Update(uc UpdateContext) (Change, error) {
	if len(e.Frames) == 0 {
		if e.Ref == "" {
			return ChangeNone, errors.New("sequence element has no frames and no ref")
		}
		if uc.Assets == nil {
			return ChangeNone, fmt.Errorf("load %q: no asset loader configured", e.Ref)
		}
		frames, err := uc.Assets.Sequence(uc.Context, e.Ref)
		if err != nil {
			if uc.Mode == ModePreview && errors.Is(err, ErrAssetUnavailable) {
				return ChangeNone, nil
			}
			return ChangeNone, fmt.Errorf("load %q: %w", e.Ref, err)
		}
		if len(frames) == 0 {
			return ChangeNone, fmt.Errorf("load %q: %w: empty sequence", e.Ref, ErrAssetUnavailable)
		}
		e.Frames = frames
	}
	p := e.Progress.Update(uc.LocalTime)
	idx := e.FrameAt(uc.LocalTime, p)
	if idx == e.index {
		return ChangeNone, nil
	}
	change := ChangeVisual
	if e.current == nil {
		change |= ChangeLayout
	}
	e.index = idx
	e.current = e.Frames[idx]
	return change, nil
}

// FrameAt returns the frame index shown at local time t with progress p.
func (e *SequenceElement) FrameAt(t, p float64) int {
	n := len(e.Frames)
	if n == 0 {
		return 0
	}
	var idx int
	if e.Progress.Len() > 0 {
		idx = int(math.Round(clamp01(p) * float64(n-1)))
	} else {
		idx = int(math.Floor(max(0, t) * e.FrameRate))
	}
	if e.Loop {
		return idx % n
	}
	return min(idx, n-1)
}

// Content implements ContentProvider.
func (e *SequenceElement) Content() image.Image { return e.current }

func (e *SequenceElement) Measure(known, available Size) Size {
	if e.current == nil && len(e.Frames) > 0 {
		return intrinsicSize(e.Frames[0], known)
	}
	return intrinsicSize(e.current, known)
}

func (e *SequenceElement) FloatProperty(name string) (*Animated[float64], bool) {
	if name == "progress" {
		return e.Progress, true
	}
	return nil, false
}
