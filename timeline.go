package reel

import (
	"fmt"
	"math"
	"slices"
)

// SceneID identifies a scene on a Timeline. IDs are issued in order starting
// at 1 and never reused.
type SceneID int

// TimelineItem is one scene on the timeline. Start is derived from the
// durations of the scenes before it and the transitions between them.
type TimelineItem struct {
	ID       SceneID
	Root     NodeID
	Name     string
	Start    float64
	Duration float64
	ZIndex   int
}

// End returns Start + Duration.
func (it TimelineItem) End() float64 { return it.Start + it.Duration }

// Window returns the half-open interval in which the scene is active.
func (it TimelineItem) Window() TimeRange { return TimeRange{it.Start, it.End()} }

// ActiveScene is a scene visible at some global time.
type ActiveScene struct {
	Item TimelineItem
	// LocalTime is the global time minus the scene's start.
	LocalTime float64
	// Weight is 1 outside transitions. Inside a transition the outgoing scene
	// has 1-p and the incoming scene p, where p is the eased progress.
	Weight float64
	// Transition is the transition this scene takes part in, or nil.
	Transition *Transition
	// Incoming is true for the scene a transition leads into.
	Incoming bool
}

// Progress returns the eased transition progress, or 1 outside transitions.
func (a ActiveScene) Progress() float64 {
	if a.Transition == nil {
		return 1
	}
	if a.Incoming {
		return a.Weight
	}
	return 1 - a.Weight
}

// Timeline is the ordered sequence of scenes plus the transitions between
// adjacent scenes. Scene start times are a pure function of the durations
// and transitions, recomputed after every edit.
type Timeline struct {
	items       []TimelineItem
	transitions []Transition
	nextID      SceneID
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{nextID: 1}
}

// AddScene appends a scene after the last one.
func (tl *Timeline) AddScene(root NodeID, duration float64) (SceneID, error) {
	if !isFinite(duration) || duration <= 0 {
		return 0, fmt.Errorf("%w: scene duration %v", ErrInvalidDuration, duration)
	}
	id := tl.nextID
	tl.nextID++
	tl.items = append(tl.items, TimelineItem{ID: id, Root: root, Duration: duration})
	tl.relayout()
	return id, nil
}

// SetDuration changes a scene's duration. Later scenes ripple.
func (tl *Timeline) SetDuration(id SceneID, duration float64) error {
	i := tl.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownScene, id)
	}
	if !isFinite(duration) || duration <= 0 {
		return fmt.Errorf("%w: scene duration %v", ErrInvalidDuration, duration)
	}
	old := tl.items[i].Duration
	tl.items[i].Duration = duration
	if err := tl.checkTransitionFit(i); err != nil {
		tl.items[i].Duration = old
		return err
	}
	tl.relayout()
	return nil
}

// SetName labels a scene.
func (tl *Timeline) SetName(id SceneID, name string) error {
	i := tl.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownScene, id)
	}
	tl.items[i].Name = name
	return nil
}

// SetZIndex sets the paint priority used by renderers that stack scenes.
func (tl *Timeline) SetZIndex(id SceneID, z int) error {
	i := tl.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownScene, id)
	}
	tl.items[i].ZIndex = z
	return nil
}

// AddTransition overlaps two adjacent scenes by duration seconds. The
// incoming scene and every scene after it move left by duration.
func (tl *Timeline) AddTransition(from, to SceneID, kind TransitionKind, duration float64, easing Easing) error {
	fi, ti := tl.index(from), tl.index(to)
	switch {
	case fi < 0 || ti < 0:
		return fmt.Errorf("%w: unknown scene %d -> %d", ErrInvalidTransition, from, to)
	case ti != fi+1:
		return fmt.Errorf("%w: scenes %d and %d are not adjacent", ErrInvalidTransition, from, to)
	case !isFinite(duration) || duration <= 0:
		return fmt.Errorf("%w: duration %v", ErrInvalidTransition, duration)
	case duration > tl.items[fi].Duration || duration > tl.items[ti].Duration:
		return fmt.Errorf("%w: duration %v exceeds a scene's duration", ErrInvalidTransition, duration)
	case !kind.valid():
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidTransition, kind)
	}
	if tl.incoming(ti) != nil {
		return fmt.Errorf("%w: scenes %d and %d are already joined", ErrInvalidTransition, from, to)
	}
	tl.transitions = append(tl.transitions, Transition{
		From:     from,
		To:       to,
		Kind:     kind,
		Duration: duration,
		Easing:   easing,
	})
	// A scene shorter than its incoming plus outgoing overlap would start
	// after its successor.
	for _, i := range [2]int{fi, ti} {
		if err := tl.checkTransitionFit(i); err != nil {
			tl.transitions = tl.transitions[:len(tl.transitions)-1]
			return err
		}
	}
	tl.relayout()
	return nil
}

// RemoveTransition removes the transition into to. Later scenes ripple right.
func (tl *Timeline) RemoveTransition(from, to SceneID) bool {
	for i, tr := range tl.transitions {
		if tr.From == from && tr.To == to {
			tl.transitions = slices.Delete(tl.transitions, i, i+1)
			tl.relayout()
			return true
		}
	}
	return false
}

func (tl *Timeline) checkTransitionFit(i int) error {
	total := 0.0
	if tr := tl.incoming(i); tr != nil {
		total += tr.Duration
	}
	if i+1 < len(tl.items) {
		if tr := tl.incoming(i + 1); tr != nil {
			total += tr.Duration
		}
	}
	if total > tl.items[i].Duration {
		return fmt.Errorf("%w: scene %d overlaps total %v > %v", ErrInvalidTransition, tl.items[i].ID, total, tl.items[i].Duration)
	}
	return nil
}

// incoming returns the transition leading into item i, or nil.
func (tl *Timeline) incoming(i int) *Transition {
	if i <= 0 || i >= len(tl.items) {
		return nil
	}
	from, to := tl.items[i-1].ID, tl.items[i].ID
	for k := range tl.transitions {
		if tl.transitions[k].From == from && tl.transitions[k].To == to {
			return &tl.transitions[k]
		}
	}
	return nil
}

// relayout recomputes every start time from scratch:
// start[0] = 0, start[i] = end[i-1] - overlap(i-1 -> i).
func (tl *Timeline) relayout() {
	cursor := 0.0
	for i := range tl.items {
		if tr := tl.incoming(i); tr != nil {
			cursor -= tr.Duration
		}
		tl.items[i].Start = cursor
		cursor += tl.items[i].Duration
	}
}

func (tl *Timeline) index(id SceneID) int {
	for i := range tl.items {
		if tl.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Item returns the scene with the given ID.
func (tl *Timeline) Item(id SceneID) (TimelineItem, bool) {
	if i := tl.index(id); i >= 0 {
		return tl.items[i], true
	}
	return TimelineItem{}, false
}

// Items returns a copy of the scenes in timeline order.
func (tl *Timeline) Items() []TimelineItem { return slices.Clone(tl.items) }

// Transitions returns a copy of the transitions in insertion order.
func (tl *Timeline) Transitions() []Transition { return slices.Clone(tl.transitions) }

// Len returns the number of scenes.
func (tl *Timeline) Len() int { return len(tl.items) }

// Duration returns the end of the last scene, or 0 when empty.
func (tl *Timeline) Duration() float64 {
	if len(tl.items) == 0 {
		return 0
	}
	end := 0.0
	for _, it := range tl.items {
		end = max(end, it.End())
	}
	return end
}

// SceneWindow returns the active interval of a scene.
func (tl *Timeline) SceneWindow(id SceneID) (TimeRange, bool) {
	it, ok := tl.Item(id)
	if !ok {
		return TimeRange{}, false
	}
	return it.Window(), true
}

// ActiveScenes returns the scenes visible at global time t, outgoing scene
// first. A scene is active on [start, start+duration). Outside every scene
// the result is empty.
func (tl *Timeline) ActiveScenes(t float64) []ActiveScene {
	if math.IsNaN(t) {
		return nil
	}
	var out []ActiveScene
	for i := range tl.items {
		it := tl.items[i]
		if !it.Window().Contains(t) {
			continue
		}
		out = append(out, ActiveScene{Item: it, LocalTime: t - it.Start, Weight: 1})
	}
	if len(out) == 2 {
		to := tl.index(out[1].Item.ID)
		if tr := tl.incoming(to); tr != nil && tr.From == out[0].Item.ID {
			p := tr.Easing.Apply((t - out[1].Item.Start) / tr.Duration)
			trCopy := *tr
			out[0].Weight, out[0].Transition = 1-p, &trCopy
			out[1].Weight, out[1].Transition, out[1].Incoming = p, &trCopy, true
		}
	}
	return out
}
