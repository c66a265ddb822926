package reel

import (
	"errors"
	"math"
	"testing"
)

func TestParseEasingNames(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "linear"},
		{"linear", "linear"},
		{"ease_in_out", "ease_in_out"},
		{"EaseOut", "ease_out"},
		{"in_out_cubic", "in_out_cubic"},
		{"cubic_in_out", "in_out_cubic"},
		{"inOutSine", "in_out_sine"},
		{"bounce_out", "out_bounce"},
		{"bounce", "out_bounce"},
		{"elastic-in", "in_elastic"},
		{"back", "out_back"},
	}
	for _, tt := range tests {
		e, err := ParseEasing(tt.in)
		if err != nil {
			t.Errorf("ParseEasing(%q) error: %v", tt.in, err)
			continue
		}
		if e.Name() != tt.want {
			t.Errorf("ParseEasing(%q).Name() = %q, want %q", tt.in, e.Name(), tt.want)
		}
	}
}

func TestParseEasingUnknown(t *testing.T) {
	_, err := ParseEasing("wobbly")
	if !errors.Is(err, ErrInvalidAnimationConfig) {
		t.Errorf("error = %v, want ErrInvalidAnimationConfig", err)
	}
}

func TestEasingEndpointsExact(t *testing.T) {
	for _, name := range EasingNames() {
		e := mustEasing(t, name)
		if got := e.Apply(0); got != 0 {
			t.Errorf("%s.Apply(0) = %v, want 0", name, got)
		}
		if got := e.Apply(1); got != 1 {
			t.Errorf("%s.Apply(1) = %v, want 1", name, got)
		}
	}
}

func TestEasingClampsProgress(t *testing.T) {
	e := mustEasing(t, "in_quad")
	if got := e.Apply(-3); got != 0 {
		t.Errorf("Apply(-3) = %v, want 0", got)
	}
	if got := e.Apply(4); got != 1 {
		t.Errorf("Apply(4) = %v, want 1", got)
	}
}

func TestEasingShapes(t *testing.T) {
	if got := EaseLinear.Apply(0.25); got != 0.25 {
		t.Errorf("linear(0.25) = %v, want 0.25", got)
	}
	if got := mustEasing(t, "in_quad").Apply(0.5); math.Abs(got-0.25) > 1e-6 {
		t.Errorf("in_quad(0.5) = %v, want 0.25", got)
	}
	if got := mustEasing(t, "out_quad").Apply(0.5); math.Abs(got-0.75) > 1e-6 {
		t.Errorf("out_quad(0.5) = %v, want 0.75", got)
	}
	if got := mustEasing(t, "in_out_cubic").Apply(0.5); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("in_out_cubic(0.5) = %v, want 0.5", got)
	}
}

func TestZeroEasingIsLinear(t *testing.T) {
	var e Easing
	if e.Name() != "linear" || e.Apply(0.4) != 0.4 {
		t.Errorf("zero Easing = %q / %v, want linear", e.Name(), e.Apply(0.4))
	}
}
