package reel

import (
	"context"
	"image"
)

// ElementKind identifies the payload carried by a node.
type ElementKind uint8

const (
	ElementBox         ElementKind = iota // rectangle with fill, border and corner radius
	ElementText                           // single run of text
	ElementImage                          // still image
	ElementVideo                          // decoded video frames plus embedded audio
	ElementSequence                       // frame sequence (Lottie-style pre-rendered animation)
	ElementVector                         // polygon path with fill, stroke and trim
	ElementEffect                         // post-processing applied to the node's children
	ElementComposition                    // nested Director rendered as content
)

var elementKindNames = [...]string{
	ElementBox:         "box",
	ElementText:        "text",
	ElementImage:       "image",
	ElementVideo:       "video",
	ElementSequence:    "sequence",
	ElementVector:      "vector",
	ElementEffect:      "effect",
	ElementComposition: "composition",
}

func (k ElementKind) String() string {
	if int(k) < len(elementKindNames) {
		return elementKindNames[k]
	}
	return "unknown"
}

// Change is reported by Element.Update.
type Change uint8

const (
	// ChangeNone means the element looks the same as last frame.
	ChangeNone Change = 0
	// ChangeVisual means the element's appearance changed.
	ChangeVisual Change = 1
	// ChangeLayout means state that affects measuring changed, so layout
	// must be recomputed for the node.
	ChangeLayout Change = 2
)

// UpdateContext is passed to Element.Update.
type UpdateContext struct {
	Context     context.Context
	Node        NodeID
	LocalTime   float64 // time since the owning scene started
	GlobalTime  float64
	FPS         int
	Mode        RenderMode
	Assets      AssetLoader
	TextMetrics TextMetrics
}

// AssetLoader resolves asset references for media elements.
type AssetLoader interface {
	Image(ctx context.Context, ref string) (image.Image, error)
	Sequence(ctx context.Context, ref string) ([]image.Image, error)
	Audio(ctx context.Context, ref string) (AudioSource, error)
}

// FrameSource produces decoded video frames. When wait is false and the
// frame is not decoded yet, Frame returns ErrAssetUnavailable instead of
// blocking.
type FrameSource interface {
	Frame(ctx context.Context, t float64, wait bool) (image.Image, error)
	Size() (width, height int)
	Duration() float64
}

// Element is the payload of a scene node. Update is called once per frame
// for every node of an active scene, after the node's transform and opacity
// have been evaluated at uc.LocalTime.
//
// Optional capabilities are discovered with type assertions: [Measurer],
// [PostLayouter], [AudioProvider], [FloatAnimatable], [ColorAnimatable] and
// [ContentProvider].
type Element interface {
	Kind() ElementKind
	Update(uc UpdateContext) (Change, error)
}

// Measurer is implemented by elements with an intrinsic size (text, images).
// known holds dimensions already fixed by the style; a negative component
// means unknown. available is the space offered by the parent.
type Measurer interface {
	Measure(known, available Size) Size
}

// PostLayouter is implemented by elements that adjust to their final rect,
// such as text that shrinks to fit.
type PostLayouter interface {
	PostLayout(r Rect)
}

// AudioProvider is implemented by elements that carry sound, such as video
// and compositions. The returned track's Start is relative to the owning
// scene; the orchestrator binds a copy of it to that scene every frame.
// A nil track is silent.
type AudioProvider interface {
	AudioTrack() *AudioTrack
}

// FloatAnimatable exposes element-specific numeric properties by name.
type FloatAnimatable interface {
	FloatProperty(name string) (*Animated[float64], bool)
}

// ColorAnimatable exposes element-specific color properties by name.
type ColorAnimatable interface {
	ColorProperty(name string) (*Animated[Color], bool)
}

// ContentProvider is implemented by elements whose pixels come from an
// image: stills, video frames, sequences and compositions. Content returns
// nil until something is available.
type ContentProvider interface {
	Content() image.Image
}

// ObjectFit selects how image content maps into a layout rect.
type ObjectFit uint8

const (
	FitContain ObjectFit = iota // scale to fit inside, letterboxed
	FitCover                    // scale to cover, cropped
	FitFill                     // stretch to the rect
	FitNone                     // natural size, centered
)

// ParseObjectFit resolves "contain", "cover", "fill" or "none".
func ParseObjectFit(s string) (ObjectFit, bool) {
	switch s {
	case "contain", "":
		return FitContain, true
	case "cover":
		return FitCover, true
	case "fill":
		return FitFill, true
	case "none":
		return FitNone, true
	}
	return FitContain, false
}

// FitRect returns the destination rect for content of size src inside r,
// and the source sub-rectangle to sample (in src pixels). Cover crops the
// source; the other modes sample all of it.
func FitRect(fit ObjectFit, src Size, r Rect) (dst Rect, crop Rect) {
	crop = Rect{0, 0, src.Width, src.Height}
	if src.Width <= 0 || src.Height <= 0 {
		return r, crop
	}
	switch fit {
	case FitFill:
		return r, crop
	case FitNone:
		return Rect{
			X:      r.X + (r.Width-src.Width)/2,
			Y:      r.Y + (r.Height-src.Height)/2,
			Width:  src.Width,
			Height: src.Height,
		}, crop
	case FitCover:
		scale := max(r.Width/src.Width, r.Height/src.Height)
		cw, ch := r.Width/scale, r.Height/scale
		crop = Rect{(src.Width - cw) / 2, (src.Height - ch) / 2, cw, ch}
		return r, crop
	default:
		scale := min(r.Width/src.Width, r.Height/src.Height)
		w, h := src.Width*scale, src.Height*scale
		return Rect{r.X + (r.Width-w)/2, r.Y + (r.Height-h)/2, w, h}, crop
	}
}
