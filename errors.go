package reel

import "errors"

// Sentinel errors. Callers match them with errors.Is; the engine wraps them
// with the failing node, scene or property.
var (
	// ErrInvalidHandle is returned for a NodeID whose slot is empty or whose
	// generation no longer matches.
	ErrInvalidHandle = errors.New("reel: invalid node handle")
	// ErrCycle is returned when attaching a node under its own descendant.
	ErrCycle = errors.New("reel: attach would create a cycle")
	// ErrInvalidDuration is returned for non-positive or non-finite scene
	// durations.
	ErrInvalidDuration = errors.New("reel: invalid duration")
	// ErrInvalidTransition is returned for transitions between non-adjacent
	// scenes, duplicate transitions, bad durations and unknown kinds.
	ErrInvalidTransition = errors.New("reel: invalid transition")
	// ErrInvalidAnimationConfig is returned for bad segment durations, spring
	// parameters and unknown easing names.
	ErrInvalidAnimationConfig = errors.New("reel: invalid animation config")
	// ErrUnknownProperty is returned when a property name does not resolve on
	// a node.
	ErrUnknownProperty = errors.New("reel: unknown property")
	// ErrSceneRoot is returned when a scene root would be destroyed or
	// attached under another node.
	ErrSceneRoot = errors.New("reel: node is a scene root")
	// ErrUnknownScene is returned for a SceneID that is not on the timeline.
	ErrUnknownScene = errors.New("reel: unknown scene")
	// ErrElementUpdate wraps a failure raised by an element's update hook.
	ErrElementUpdate = errors.New("reel: element update failed")
	// ErrElementRender wraps a failure raised while drawing a node.
	ErrElementRender = errors.New("reel: element render failed")
	// ErrAssetUnavailable is reported by media elements whose content is not
	// decoded yet. In preview mode it is not treated as a failure.
	ErrAssetUnavailable = errors.New("reel: asset unavailable")
)
