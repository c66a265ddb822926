package reel

import (
	"fmt"
	"math"
)

const (
	// DefaultSpringBakeRate is the number of spring samples per second used
	// when SpringConfig.BakeRate is zero.
	DefaultSpringBakeRate = 60.0

	// MaxSpringBakeRate is the highest accepted SpringConfig.BakeRate.
	MaxSpringBakeRate = 10000.0

	// MaxSpringDuration caps baking for springs that never settle.
	MaxSpringDuration = 10.0

	// Settling thresholds in normalized units (fractions of the start to
	// target distance).
	springPositionEpsilon = 1e-4
	springVelocityEpsilon = 1e-3

	// Largest integration step. Each bake sample is split into substeps no
	// longer than this.
	springMaxSubstep = 1.0 / 4000
)

// SpringConfig describes a damped harmonic oscillator.
type SpringConfig struct {
	Stiffness float64
	Damping   float64
	Mass      float64
	// Velocity is the initial velocity in start-to-target distances per
	// second. 2 means the value starts moving at twice the full distance
	// per second.
	Velocity float64
	// BakeRate is the number of segments per second. Zero means
	// DefaultSpringBakeRate.
	BakeRate float64
}

// DefaultSpringConfig returns stiffness 100, damping 10, mass 1, at rest.
func DefaultSpringConfig() SpringConfig {
	return SpringConfig{Stiffness: 100, Damping: 10, Mass: 1}
}

// Validate reports parameters that cannot produce a settling spring.
func (c SpringConfig) Validate() error {
	switch {
	case !isFinite(c.Stiffness) || c.Stiffness <= 0:
		return fmt.Errorf("%w: spring stiffness %v", ErrInvalidAnimationConfig, c.Stiffness)
	case !isFinite(c.Damping) || c.Damping < 0:
		return fmt.Errorf("%w: spring damping %v", ErrInvalidAnimationConfig, c.Damping)
	case !isFinite(c.Mass) || c.Mass <= 0:
		return fmt.Errorf("%w: spring mass %v", ErrInvalidAnimationConfig, c.Mass)
	case !isFinite(c.Velocity):
		return fmt.Errorf("%w: spring velocity %v", ErrInvalidAnimationConfig, c.Velocity)
	case !isFinite(c.BakeRate) || c.BakeRate < 0 || c.BakeRate > MaxSpringBakeRate:
		return fmt.Errorf("%w: spring bake rate %v", ErrInvalidAnimationConfig, c.BakeRate)
	}
	return nil
}

func (c SpringConfig) rate() float64 {
	if c.BakeRate == 0 {
		return DefaultSpringBakeRate
	}
	return c.BakeRate
}

// bakeSpring integrates the oscillator from 0 towards 1 with semi-implicit
// Euler. It returns the progress at the end of each sample interval and the
// interval length. The last entry is exactly 1.
func bakeSpring(c SpringConfig) ([]float64, float64) {
	dt := 1 / c.rate()
	steps := int(math.Ceil(dt / springMaxSubstep))
	h := dt / float64(steps)
	maxSamples := int(math.Ceil(MaxSpringDuration * c.rate()))

	x, v := 0.0, c.Velocity
	samples := make([]float64, 0, 64)
	for k := 1; k <= maxSamples; k++ {
		for s := 0; s < steps; s++ {
			acc := (-c.Stiffness*(x-1) - c.Damping*v) / c.Mass
			v += acc * h
			x += v * h
		}
		if math.Abs(x-1) < springPositionEpsilon && math.Abs(v) < springVelocityEpsilon {
			break
		}
		samples = append(samples, x)
	}
	samples = append(samples, 1)
	return samples, dt
}

// AddSpring appends a baked spring from the current end value to target.
func (a *Animated[T]) AddSpring(target T, cfg SpringConfig) error {
	return a.AddSpringFrom(a.End(), target, cfg)
}

// AddSpringFrom appends a baked spring from start to target. Each bake
// sample becomes one linear segment; the final sample lands exactly on
// target. On error the value is left untouched.
func (a *Animated[T]) AddSpringFrom(start, target T, cfg SpringConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	progress, dt := bakeSpring(cfg)

	at := a.Duration()
	prev := start
	segs := make([]segment[T], 0, len(progress))
	for i, p := range progress {
		next := target
		if i < len(progress)-1 {
			next = a.lerp(start, target, p)
		}
		segs = append(segs, segment[T]{
			start:    prev,
			end:      next,
			at:       at + float64(i)*dt,
			duration: dt,
			easing:   EaseLinear,
		})
		prev = next
	}
	a.segments = append(a.segments, segs...)
	return nil
}
