package reel

import (
	"fmt"
	"math"
	"sort"
)

// LerpFunc interpolates between a and b. t is usually in [0, 1] but
// overshooting easings and springs pass values outside that range, so
// implementations should extrapolate.
type LerpFunc[T any] func(a, b T, t float64) T

// LerpFloat interpolates two float64 values.
func LerpFloat(a, b, t float64) float64 { return a + (b-a)*t }

// LerpVec2 interpolates two vectors component-wise.
func LerpVec2(a, b Vec2, t float64) Vec2 {
	return Vec2{LerpFloat(a.X, b.X, t), LerpFloat(a.Y, b.Y, t)}
}

// LerpColor interpolates two colors component-wise in straight alpha.
func LerpColor(a, b Color, t float64) Color {
	return Color{
		R: LerpFloat(a.R, b.R, t),
		G: LerpFloat(a.G, b.G, t),
		B: LerpFloat(a.B, b.B, t),
		A: LerpFloat(a.A, b.A, t),
	}
}

type segment[T any] struct {
	start, end T
	at         float64 // segment start time, relative to the value's timeline
	duration   float64
	easing     Easing
}

func (s *segment[T]) endTime() float64 { return s.at + s.duration }

// Animated is a value of type T that varies over local time. It is an
// initial value followed by contiguous segments: each segment starts where
// the previous one ends (or at time 0). Keyframes and baked springs share the
// same representation, so evaluation is random access.
//
// Evaluate is pure. Update evaluates and caches the result in Current, which
// is what renderers read.
type Animated[T any] struct {
	// Current is the value cached by the last Update.
	Current T

	initial  T
	segments []segment[T]
	lerp     LerpFunc[T]
}

// NewAnimated creates an animated value that holds initial until segments are
// added.
func NewAnimated[T any](initial T, lerp LerpFunc[T]) *Animated[T] {
	if lerp == nil {
		panic("reel: NewAnimated requires a lerp function")
	}
	return &Animated[T]{Current: initial, initial: initial, lerp: lerp}
}

// NewFloat creates an animated float64.
func NewFloat(initial float64) *Animated[float64] {
	return NewAnimated(initial, LerpFloat)
}

// NewVec2 creates an animated Vec2.
func NewVec2(initial Vec2) *Animated[Vec2] {
	return NewAnimated(initial, LerpVec2)
}

// NewColor creates an animated Color.
func NewColor(initial Color) *Animated[Color] {
	return NewAnimated(initial, LerpColor)
}

// Initial returns the value held before the first segment.
func (a *Animated[T]) Initial() T { return a.initial }

// Set discards all segments and makes v the static value.
func (a *Animated[T]) Set(v T) {
	a.initial = v
	a.Current = v
	a.segments = a.segments[:0]
}

// Len returns the number of segments.
func (a *Animated[T]) Len() int { return len(a.segments) }

// Duration returns the end time of the last segment, or 0 when static.
func (a *Animated[T]) Duration() float64 {
	if len(a.segments) == 0 {
		return 0
	}
	return a.segments[len(a.segments)-1].endTime()
}

// End returns the value the animation settles on: the last segment's end
// value, or the initial value when static.
func (a *Animated[T]) End() T {
	if len(a.segments) == 0 {
		return a.initial
	}
	return a.segments[len(a.segments)-1].end
}

// AddSegment appends a segment from start to end lasting duration seconds.
// The segment begins where the previous one ends. If start differs from the
// previous end value the animation jumps at the boundary. A zero duration is
// an instantaneous jump to end.
func (a *Animated[T]) AddSegment(start, end T, duration float64, easing Easing) error {
	if !isFinite(duration) || duration < 0 {
		return fmt.Errorf("%w: segment duration %v", ErrInvalidAnimationConfig, duration)
	}
	a.segments = append(a.segments, segment[T]{
		start:    start,
		end:      end,
		at:       a.Duration(),
		duration: duration,
		easing:   easing,
	})
	return nil
}

// AddKeyframe appends a segment from the current end value to target.
func (a *Animated[T]) AddKeyframe(target T, duration float64, easing Easing) error {
	return a.AddSegment(a.End(), target, duration, easing)
}

// Hold keeps the current end value for duration seconds, delaying whatever
// is appended next.
func (a *Animated[T]) Hold(duration float64) error {
	end := a.End()
	return a.AddSegment(end, end, duration, EaseLinear)
}

// Evaluate returns the value at local time t. Before the first segment the
// initial value holds; after the last segment its end value holds.
func (a *Animated[T]) Evaluate(t float64) T {
	n := len(a.segments)
	if n == 0 || math.IsNaN(t) || t < a.segments[0].at {
		return a.initial
	}
	// First segment still running at t. Zero-length segments never qualify,
	// which makes them jumps.
	i := sort.Search(n, func(i int) bool { return a.segments[i].endTime() > t })
	if i == n {
		return a.segments[n-1].end
	}
	s := &a.segments[i]
	p := (t - s.at) / s.duration
	return a.lerp(s.start, s.end, s.easing.Apply(p))
}

// Update evaluates at t, stores the result in Current and returns it.
func (a *Animated[T]) Update(t float64) T {
	a.Current = a.Evaluate(t)
	return a.Current
}
