package reel

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// CompositionElement embeds another Director. The nested project is
// evaluated at the node's local time plus Offset, its frame is drawn as the
// node's content and its audio is mixed into the parent.
type CompositionElement struct {
	Director *Director
	// Renderer draws the nested frames. It must not be shared with the
	// parent, since its output image is kept until the next update.
	Renderer Renderer
	Offset   float64
	Loop     bool

	img   image.Image
	sound *AudioTrack
}

// NewComposition creates a composition of d drawn with r.
func NewComposition(d *Director, r Renderer) *CompositionElement {
	e := &CompositionElement{Director: d, Renderer: r}
	e.sound = NewAudioTrack(&compositionAudio{d: d})
	return e
}

func (e *CompositionElement) Kind() ElementKind { return ElementComposition }

// NestedTime maps local time to the nested timeline.
func (e *CompositionElement) NestedTime(local float64) float64 {
	t := max(0, local) + e.Offset
	if e.Loop {
		if d := e.Director.Duration(); d > 0 {
			t = math.Mod(t, d)
		}
	}
	return t
}

func (e *CompositionElement) Update(uc UpdateContext) (Change, error) {
	if e.Director == nil {
		return ChangeNone, errors.New("composition has no director")
	}
	if e.Renderer == nil {
		return ChangeNone, errors.New("composition has no renderer")
	}
	img, err := e.Director.renderNested(uc.Context, e.NestedTime(uc.LocalTime), e.Renderer, uc.Mode)
	if err != nil {
		return ChangeNone, fmt.Errorf("nested frame: %w", err)
	}
	e.img = img
	if e.sound != nil {
		e.sound.Offset = e.Offset
		e.sound.Loop = e.Loop
	}
	return ChangeVisual, nil
}

// Content implements ContentProvider.
func (e *CompositionElement) Content() image.Image { return e.img }

// AudioTrack implements AudioProvider.
func (e *CompositionElement) AudioTrack() *AudioTrack { return e.sound }

func (e *CompositionElement) Measure(known, available Size) Size {
	if e.Director == nil {
		return intrinsicSize(nil, known)
	}
	return aspectSize(float64(e.Director.width), float64(e.Director.height), known)
}

func (e *CompositionElement) FloatProperty(name string) (*Animated[float64], bool) {
	if name == "volume" && e.sound != nil {
		return e.sound.Volume, true
	}
	return nil, false
}

const compositionAudioBlock = 4096

// compositionAudio exposes a nested Director's mix as an AudioSource. Reads
// are served from the last mixed block; playback is sequential, so most
// reads hit it.
type compositionAudio struct {
	d          *Director
	blockStart int
	block      []float32
}

func (a *compositionAudio) SampleRate() int { return a.d.mixer.SampleRate() }

func (a *compositionAudio) Frames() int {
	return int(math.Ceil(a.d.Duration() * float64(a.SampleRate())))
}

func (a *compositionAudio) Frame(i int) (float32, float32) {
	if a.block == nil || i < a.blockStart || i >= a.blockStart+len(a.block)/Channels {
		a.blockStart = i - i%compositionAudioBlock
		a.block = a.d.MixAudio(float64(a.blockStart)/float64(a.SampleRate()), compositionAudioBlock)
	}
	j := (i - a.blockStart) * Channels
	return a.block[j], a.block[j+1]
}
