package reel

import (
	"errors"
	"testing"
)

func TestAnimateTransformProperties(t *testing.T) {
	d := newTestDirector(t)
	n := d.CreateNode(NewBox())
	props := []string{"x", "y", "scale_x", "scale_y", "rotation", "skew_x", "skew_y", "opacity"}
	for _, p := range props {
		if err := d.Animate(n, p, 0, 1, 1, "linear"); err != nil {
			t.Errorf("Animate(%q): %v", p, err)
		}
	}
	node, _ := d.Node(n)
	if node.Transform.Rotation.Len() != 1 || node.Opacity.Len() != 1 {
		t.Error("segments were not appended")
	}
}

func TestAnimateScaleDrivesBothAxes(t *testing.T) {
	d := newTestDirector(t)
	n := d.CreateNode(NewBox())
	if err := d.Animate(n, "scale", 1, 2, 1, "linear"); err != nil {
		t.Fatal(err)
	}
	node, _ := d.Node(n)
	assertNear(t, "scale_x", node.Transform.ScaleX.Evaluate(0.5), 1.5)
	assertNear(t, "scale_y", node.Transform.ScaleY.Evaluate(0.5), 1.5)
}

func TestAnimateElementAndCustomProperties(t *testing.T) {
	d := newTestDirector(t)
	n := d.CreateNode(NewBox())
	if err := d.Animate(n, "corner_radius", 0, 12, 1, "ease_out"); err != nil {
		t.Fatalf("corner_radius: %v", err)
	}
	node, _ := d.Node(n)
	node.DefineProperty("glow", 0)
	if err := d.Animate(n, "glow", 0, 1, 2, "linear"); err != nil {
		t.Fatalf("glow: %v", err)
	}
	glow, _ := node.Property("glow")
	assertNear(t, "glow", glow.Evaluate(1), 0.5)
	box := node.Element.(*BoxElement)
	assertNear(t, "radius end", box.CornerRadius.Evaluate(1), 12)
}

func TestAnimateErrors(t *testing.T) {
	d := newTestDirector(t)
	n := d.CreateNode(NewBox())
	tests := []struct {
		name string
		err  error
		call func() error
	}{
		{"unknown property", ErrUnknownProperty, func() error { return d.Animate(n, "wobble", 0, 1, 1, "linear") }},
		{"unknown easing", ErrInvalidAnimationConfig, func() error { return d.Animate(n, "x", 0, 1, 1, "wiggle") }},
		{"negative duration", ErrInvalidAnimationConfig, func() error { return d.Animate(n, "x", 0, 1, -1, "linear") }},
		{"stale handle", ErrInvalidHandle, func() error { return d.Animate(NodeID{}, "x", 0, 1, 1, "linear") }},
		{"bad spring", ErrInvalidAnimationConfig, func() error {
			return d.Spring(n, "x", 10, SpringConfig{Stiffness: 0, Damping: 1, Mass: 1})
		}},
		{"unknown color", ErrUnknownProperty, func() error { return d.SetColor(n, "glow", ColorWhite) }},
	}
	for _, tt := range tests {
		if err := tt.call(); !errors.Is(err, tt.err) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.err)
		}
	}
	node, _ := d.Node(n)
	if node.Transform.X.Len() != 0 {
		t.Errorf("x has %d segments after failed calls, want 0", node.Transform.X.Len())
	}
}

func TestAnimateToContinuesFromEnd(t *testing.T) {
	d := newTestDirector(t)
	n := d.CreateNode(NewBox())
	_ = d.Animate(n, "x", 0, 100, 1, "linear")
	if err := d.Hold(n, "x", 1); err != nil {
		t.Fatal(err)
	}
	if err := d.AnimateTo(n, "x", 0, 1, "linear"); err != nil {
		t.Fatal(err)
	}
	node, _ := d.Node(n)
	assertNear(t, "x(1.5)", node.Transform.X.Evaluate(1.5), 100)
	assertNear(t, "x(2.5)", node.Transform.X.Evaluate(2.5), 50)
	assertNear(t, "x(9)", node.Transform.X.Evaluate(9), 0)
}

func TestSpringUsesDirectorBakeRate(t *testing.T) {
	d := newTestDirector(t, WithSpringBakeRate(120))
	n := d.CreateNode(NewBox())
	if err := d.Spring(n, "y", 100, DefaultSpringConfig()); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultSpringConfig()
	cfg.BakeRate = 30
	if err := d.SpringFrom(n, "x", 50, 0, cfg); err != nil {
		t.Fatal(err)
	}
	node, _ := d.Node(n)
	assertNear(t, "y step", node.Transform.Y.segments[0].duration, 1.0/120)
	assertNear(t, "x step", node.Transform.X.segments[0].duration, 1.0/30)
	assertNear(t, "x start", node.Transform.X.Evaluate(0), 50)
	assertNear(t, "y end", node.Transform.Y.Evaluate(MaxSpringDuration+1), 100)
}

func TestSetPropertyDiscardsSegments(t *testing.T) {
	d := newTestDirector(t)
	n := d.CreateNode(NewText("hi", 20))
	_ = d.Animate(n, "font_size", 20, 40, 1, "linear")
	if err := d.SetProperty(n, "font_size", 32); err != nil {
		t.Fatal(err)
	}
	node, _ := d.Node(n)
	text := node.Element.(*TextElement)
	if text.FontSize.Len() != 0 {
		t.Errorf("segments = %d, want 0", text.FontSize.Len())
	}
	assertNear(t, "font_size", text.FontSize.Evaluate(0.5), 32)
}

func TestAnimateColor(t *testing.T) {
	d := newTestDirector(t)
	n := d.CreateNode(NewRect(ColorBlack))
	if err := d.AnimateColor(n, "fill", ColorBlack, ColorWhite, 2, "linear"); err != nil {
		t.Fatal(err)
	}
	node, _ := d.Node(n)
	c := node.Element.(*BoxElement).Fill.Evaluate(1)
	assertNear(t, "fill.R", c.R, 0.5)
	if err := d.SetColor(n, "border_color", ColorWhite); err != nil {
		t.Fatal(err)
	}
}
