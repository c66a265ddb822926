package reel

import (
	"errors"
	"fmt"
	"image"
)

// ImageElement draws a still image fitted into its rect. The image is either
// set directly or loaded once from Ref through the Director's AssetLoader.
type ImageElement struct {
	Ref  string
	Fit  ObjectFit
	Tint *Animated[Color]

	img image.Image
}

// NewImage creates an image element that loads ref on first update.
func NewImage(ref string) *ImageElement {
	return &ImageElement{Ref: ref, Tint: NewColor(ColorWhite)}
}

// NewImageFrom creates an image element around an already decoded image.
func NewImageFrom(img image.Image) *ImageElement {
	return &ImageElement{img: img, Tint: NewColor(ColorWhite)}
}

func (e *ImageElement) Kind() ElementKind { return ElementImage }

func (e *ImageElement) Update(uc UpdateContext) (Change, error) {
	e.Tint.Update(uc.LocalTime)
	if e.img != nil {
		if animating(uc.LocalTime, e.Tint.Duration()) {
			return ChangeVisual, nil
		}
		return ChangeNone, nil
	}
	img, err := loadImage(uc, e.Ref)
	if err != nil {
		return ChangeNone, err
	}
	if img == nil {
		return ChangeNone, nil
	}
	e.img = img
	return ChangeVisual | ChangeLayout, nil
}

// loadImage resolves ref through the loader. A not-yet-available asset in
// preview mode yields (nil, nil) so the node is drawn empty for now.
func loadImage(uc UpdateContext, ref string) (image.Image, error) {
	if ref == "" {
		return nil, errors.New("image element has no image and no ref")
	}
	if uc.Assets == nil {
		return nil, fmt.Errorf("load %q: no asset loader configured", ref)
	}
	img, err := uc.Assets.Image(uc.Context, ref)
	if err != nil {
		if uc.Mode == ModePreview && errors.Is(err, ErrAssetUnavailable) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %q: %w", ref, err)
	}
	return img, nil
}

// Content implements ContentProvider.
func (e *ImageElement) Content() image.Image { return e.img }

// SetImage replaces the image.
func (e *ImageElement) SetImage(img image.Image) { e.img = img }

func (e *ImageElement) Measure(known, available Size) Size {
	return intrinsicSize(e.img, known)
}

func (e *ImageElement) ColorProperty(name string) (*Animated[Color], bool) {
	if name == "tint" || name == "color" {
		return e.Tint, true
	}
	return nil, false
}

// intrinsicSize returns the natural size of img, keeping the aspect ratio
// when one dimension is already known.
func intrinsicSize(img image.Image, known Size) Size {
	if img == nil {
		return Size{max(known.Width, 0), max(known.Height, 0)}
	}
	b := img.Bounds()
	return aspectSize(float64(b.Dx()), float64(b.Dy()), known)
}

func aspectSize(w, h float64, known Size) Size {
	switch {
	case known.Width >= 0 && known.Height >= 0:
		return known
	case known.Width >= 0 && w > 0:
		return Size{known.Width, h * known.Width / w}
	case known.Height >= 0 && h > 0:
		return Size{w * known.Height / h, known.Height}
	}
	return Size{w, h}
}
