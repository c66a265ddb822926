package reel

import "fmt"

// TransitionKind selects how two overlapping scenes are composited.
type TransitionKind uint8

const (
	TransitionFade       TransitionKind = iota // cross-fade by weight
	TransitionSlideLeft                        // incoming pushes in from the right
	TransitionSlideRight                       // incoming pushes in from the left
	TransitionWipeLeft                         // hard edge sweeping right to left
	TransitionWipeRight                        // hard edge sweeping left to right
	TransitionCircleOpen                       // incoming revealed by a growing circle
	transitionKindCount
)

var transitionNames = [...]string{
	TransitionFade:       "fade",
	TransitionSlideLeft:  "slide_left",
	TransitionSlideRight: "slide_right",
	TransitionWipeLeft:   "wipe_left",
	TransitionWipeRight:  "wipe_right",
	TransitionCircleOpen: "circle_open",
}

func (k TransitionKind) valid() bool { return k < transitionKindCount }

func (k TransitionKind) String() string {
	if k.valid() {
		return transitionNames[k]
	}
	return "unknown"
}

// ParseTransitionKind resolves a transition kind by name.
func ParseTransitionKind(name string) (TransitionKind, error) {
	for i, n := range transitionNames {
		if n == name {
			return TransitionKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidTransition, name)
}

// Transition overlaps the end of scene From with the start of scene To.
type Transition struct {
	From, To SceneID
	Kind     TransitionKind
	Duration float64
	Easing   Easing
}
