package reel

import "fmt"

// floatProperties resolves a property name on a node. "scale" resolves to
// both scale axes; every other name resolves to a single value.
//
// Lookup order: transform and opacity, then the element's own properties,
// then custom properties defined on the node.
func floatProperties(n *SceneNode, name string) ([]*Animated[float64], error) {
	tr := &n.Transform
	switch name {
	case "x":
		return []*Animated[float64]{tr.X}, nil
	case "y":
		return []*Animated[float64]{tr.Y}, nil
	case "scale":
		return []*Animated[float64]{tr.ScaleX, tr.ScaleY}, nil
	case "scale_x":
		return []*Animated[float64]{tr.ScaleX}, nil
	case "scale_y":
		return []*Animated[float64]{tr.ScaleY}, nil
	case "rotation":
		return []*Animated[float64]{tr.Rotation}, nil
	case "skew_x":
		return []*Animated[float64]{tr.SkewX}, nil
	case "skew_y":
		return []*Animated[float64]{tr.SkewY}, nil
	case "opacity":
		return []*Animated[float64]{n.Opacity}, nil
	}
	if fa, ok := n.Element.(FloatAnimatable); ok {
		if p, ok := fa.FloatProperty(name); ok {
			return []*Animated[float64]{p}, nil
		}
	}
	if p, ok := n.Property(name); ok {
		return []*Animated[float64]{p}, nil
	}
	return nil, fmt.Errorf("%w: %q on %v", ErrUnknownProperty, name, n.id)
}

func colorProperty(n *SceneNode, name string) (*Animated[Color], error) {
	if ca, ok := n.Element.(ColorAnimatable); ok {
		if p, ok := ca.ColorProperty(name); ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: color %q on %v", ErrUnknownProperty, name, n.id)
}

func (d *Director) resolveFloat(id NodeID, name string) ([]*Animated[float64], error) {
	n, err := d.graph.Get(id)
	if err != nil {
		return nil, err
	}
	return floatProperties(n, name)
}

// Animate appends a segment from -> to over duration seconds to a node
// property. Segments on the same property play back to back.
func (d *Director) Animate(id NodeID, prop string, from, to, duration float64, easing string) error {
	e, err := ParseEasing(easing)
	if err != nil {
		return err
	}
	props, err := d.resolveFloat(id, prop)
	if err != nil {
		return err
	}
	for _, p := range props {
		if err := p.AddSegment(from, to, duration, e); err != nil {
			return fmt.Errorf("animate %s: %w", prop, err)
		}
	}
	return nil
}

// AnimateTo appends a segment from the property's current end value.
func (d *Director) AnimateTo(id NodeID, prop string, to, duration float64, easing string) error {
	e, err := ParseEasing(easing)
	if err != nil {
		return err
	}
	props, err := d.resolveFloat(id, prop)
	if err != nil {
		return err
	}
	for _, p := range props {
		if err := p.AddKeyframe(to, duration, e); err != nil {
			return fmt.Errorf("animate %s: %w", prop, err)
		}
	}
	return nil
}

// Hold keeps a property at its end value for duration seconds, delaying the
// segments appended after it.
func (d *Director) Hold(id NodeID, prop string, duration float64) error {
	props, err := d.resolveFloat(id, prop)
	if err != nil {
		return err
	}
	for _, p := range props {
		if err := p.Hold(duration); err != nil {
			return fmt.Errorf("hold %s: %w", prop, err)
		}
	}
	return nil
}

// Spring appends a baked spring from the property's current end value to
// target. A zero cfg.BakeRate uses the Director's default.
func (d *Director) Spring(id NodeID, prop string, target float64, cfg SpringConfig) error {
	props, err := d.resolveFloat(id, prop)
	if err != nil {
		return err
	}
	cfg = d.springConfig(cfg)
	for _, p := range props {
		if err := p.AddSpring(target, cfg); err != nil {
			return fmt.Errorf("spring %s: %w", prop, err)
		}
	}
	return nil
}

// SpringFrom appends a baked spring from an explicit start value.
func (d *Director) SpringFrom(id NodeID, prop string, from, target float64, cfg SpringConfig) error {
	props, err := d.resolveFloat(id, prop)
	if err != nil {
		return err
	}
	cfg = d.springConfig(cfg)
	for _, p := range props {
		if err := p.AddSpringFrom(from, target, cfg); err != nil {
			return fmt.Errorf("spring %s: %w", prop, err)
		}
	}
	return nil
}

func (d *Director) springConfig(cfg SpringConfig) SpringConfig {
	if cfg.BakeRate == 0 {
		cfg.BakeRate = d.springRate
	}
	return cfg
}

// SetProperty sets a property to a constant, discarding its segments.
func (d *Director) SetProperty(id NodeID, prop string, v float64) error {
	props, err := d.resolveFloat(id, prop)
	if err != nil {
		return err
	}
	for _, p := range props {
		p.Set(v)
	}
	return nil
}

// AnimateColor appends a color segment to an element color property such as
// "fill" or "color".
func (d *Director) AnimateColor(id NodeID, prop string, from, to Color, duration float64, easing string) error {
	e, err := ParseEasing(easing)
	if err != nil {
		return err
	}
	n, err := d.graph.Get(id)
	if err != nil {
		return err
	}
	p, err := colorProperty(n, prop)
	if err != nil {
		return err
	}
	if err := p.AddSegment(from, to, duration, e); err != nil {
		return fmt.Errorf("animate %s: %w", prop, err)
	}
	return nil
}

// SetColor sets an element color property to a constant.
func (d *Director) SetColor(id NodeID, prop string, c Color) error {
	n, err := d.graph.Get(id)
	if err != nil {
		return err
	}
	p, err := colorProperty(n, prop)
	if err != nil {
		return err
	}
	p.Set(c)
	return nil
}

// AnimateGlyphs animates a glyph property on the runes [start, end) of a text
// node from -> to over duration seconds, each rune starting stagger seconds
// after the one before it.
func (d *Director) AnimateGlyphs(id NodeID, start, end int, prop string, from, to, duration float64, easing string, stagger float64) error {
	e, err := ParseEasing(easing)
	if err != nil {
		return err
	}
	gp, err := ParseGlyphProperty(prop)
	if err != nil {
		return err
	}
	n, err := d.graph.Get(id)
	if err != nil {
		return err
	}
	text, ok := n.Element.(*TextElement)
	if !ok {
		return fmt.Errorf("%w: glyph %q on %s node %v", ErrUnknownProperty, prop, n.Element.Kind(), id)
	}
	a, err := NewTextAnimator(start, end, gp, from, to, duration, e, stagger)
	if err != nil {
		return fmt.Errorf("animate glyphs %s: %w", prop, err)
	}
	text.AddAnimator(a)
	return nil
}
