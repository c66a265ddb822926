package reel

import (
	"errors"
	"math"
	"testing"
)

func TestAnimatedStaticHoldsInitial(t *testing.T) {
	a := NewFloat(7)
	for _, tm := range []float64{-1, 0, 3, 1e9} {
		if got := a.Evaluate(tm); got != 7 {
			t.Errorf("Evaluate(%v) = %v, want 7", tm, got)
		}
	}
	if a.Duration() != 0 {
		t.Errorf("Duration = %v, want 0", a.Duration())
	}
}

func TestAnimatedLinearMidpoint(t *testing.T) {
	a := NewFloat(0)
	if err := a.AddSegment(0, 100, 2, EaseLinear); err != nil {
		t.Fatal(err)
	}
	if got := a.Evaluate(1); got != 50 {
		t.Errorf("Evaluate(1) = %v, want 50", got)
	}
	if got := a.Evaluate(2); got != 100 {
		t.Errorf("Evaluate(2) = %v, want 100", got)
	}
	if got := a.Evaluate(5); got != 100 {
		t.Errorf("Evaluate(5) = %v, want 100", got)
	}
}

func TestAnimatedBeforeFirstSegment(t *testing.T) {
	a := NewFloat(3)
	_ = a.AddSegment(10, 20, 1, EaseLinear)
	if got := a.Evaluate(-0.5); got != 3 {
		t.Errorf("Evaluate(-0.5) = %v, want initial 3", got)
	}
	if got := a.Evaluate(0); got != 10 {
		t.Errorf("Evaluate(0) = %v, want segment start 10", got)
	}
}

func TestAnimatedSegmentsAreContiguous(t *testing.T) {
	a := NewFloat(0)
	_ = a.AddKeyframe(10, 1, EaseLinear)
	_ = a.AddKeyframe(30, 2, EaseLinear)
	_ = a.AddKeyframe(0, 1, EaseLinear)

	tests := []struct {
		at   float64
		want float64
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{2, 20},
		{3, 30},
		{3.5, 15},
		{4, 0},
		{9, 0},
	}
	for _, tt := range tests {
		if got := a.Evaluate(tt.at); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Evaluate(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
	if a.Duration() != 4 {
		t.Errorf("Duration = %v, want 4", a.Duration())
	}
}

func TestAnimatedZeroDurationIsJump(t *testing.T) {
	a := NewFloat(0)
	_ = a.AddSegment(0, 1, 1, EaseLinear)
	_ = a.AddSegment(5, 5, 0, EaseLinear)
	_ = a.AddSegment(5, 6, 1, EaseLinear)

	if got := a.Evaluate(0.999); got >= 1 {
		t.Errorf("Evaluate(0.999) = %v, want < 1", got)
	}
	if got := a.Evaluate(1); got != 5 {
		t.Errorf("Evaluate(1) = %v, want jump to 5", got)
	}
	if got := a.Evaluate(1.5); got != 5.5 {
		t.Errorf("Evaluate(1.5) = %v, want 5.5", got)
	}
}

func TestAnimatedTrailingJumpHoldsEnd(t *testing.T) {
	a := NewFloat(0)
	_ = a.AddSegment(0, 1, 1, EaseLinear)
	_ = a.AddSegment(1, 9, 0, EaseLinear)
	if got := a.Evaluate(1); got != 9 {
		t.Errorf("Evaluate(1) = %v, want 9", got)
	}
	if got := a.Evaluate(2); got != 9 {
		t.Errorf("Evaluate(2) = %v, want 9", got)
	}
}

func TestAnimatedInvalidDuration(t *testing.T) {
	a := NewFloat(0)
	for _, d := range []float64{-1, math.NaN(), math.Inf(1)} {
		if err := a.AddSegment(0, 1, d, EaseLinear); !errors.Is(err, ErrInvalidAnimationConfig) {
			t.Errorf("AddSegment(duration=%v) error = %v, want ErrInvalidAnimationConfig", d, err)
		}
	}
	if a.Len() != 0 {
		t.Errorf("Len = %d after rejected segments, want 0", a.Len())
	}
}

func TestAnimatedEvaluateIsPure(t *testing.T) {
	a := NewFloat(0)
	_ = a.AddSegment(0, 10, 1, mustEasing(t, "in_out_cubic"))
	first := a.Evaluate(0.3)
	_ = a.Evaluate(0.9)
	_ = a.Evaluate(0.1)
	if again := a.Evaluate(0.3); again != first {
		t.Errorf("Evaluate(0.3) = %v then %v, want identical", first, again)
	}
	if a.Current != 0 {
		t.Errorf("Current = %v, Evaluate must not cache", a.Current)
	}
	a.Update(1)
	if a.Current != 10 {
		t.Errorf("Current after Update(1) = %v, want 10", a.Current)
	}
}

func TestAnimatedSetResets(t *testing.T) {
	a := NewFloat(0)
	_ = a.AddSegment(0, 10, 1, EaseLinear)
	a.Set(4)
	if a.Len() != 0 || a.Evaluate(0.5) != 4 || a.Current != 4 {
		t.Errorf("after Set(4): len=%d eval=%v current=%v", a.Len(), a.Evaluate(0.5), a.Current)
	}
}

func TestAnimatedHoldDelaysNextKeyframe(t *testing.T) {
	a := NewFloat(2)
	_ = a.Hold(1)
	_ = a.AddKeyframe(4, 1, EaseLinear)
	if got := a.Evaluate(0.5); got != 2 {
		t.Errorf("Evaluate(0.5) = %v, want 2", got)
	}
	if got := a.Evaluate(1.5); got != 3 {
		t.Errorf("Evaluate(1.5) = %v, want 3", got)
	}
}

func TestAnimatedVec2AndColor(t *testing.T) {
	v := NewVec2(Vec2{})
	_ = v.AddKeyframe(Vec2{10, -10}, 1, EaseLinear)
	if got := v.Evaluate(0.5); got != (Vec2{5, -5}) {
		t.Errorf("Vec2 Evaluate(0.5) = %v, want {5 -5}", got)
	}

	c := NewColor(ColorBlack)
	_ = c.AddKeyframe(ColorWhite, 2, EaseLinear)
	got := c.Evaluate(1)
	if got.R != 0.5 || got.G != 0.5 || got.B != 0.5 || got.A != 1 {
		t.Errorf("Color Evaluate(1) = %+v, want mid grey", got)
	}
}

func TestAnimatedNaNTimeHoldsInitial(t *testing.T) {
	a := NewFloat(1)
	_ = a.AddSegment(2, 3, 1, EaseLinear)
	if got := a.Evaluate(math.NaN()); got != 1 {
		t.Errorf("Evaluate(NaN) = %v, want 1", got)
	}
}

func mustEasing(t *testing.T, name string) Easing {
	t.Helper()
	e, err := ParseEasing(name)
	if err != nil {
		t.Fatalf("ParseEasing(%q): %v", name, err)
	}
	return e
}
