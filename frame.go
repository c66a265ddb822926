package reel

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"
)

// Frame is the result of one pass through the pipeline.
type Frame struct {
	// Index is the frame number, or -1 for frames requested by time.
	Index int
	Time  float64
	// Image is nil when no Renderer was given.
	Image image.Image
	// Audio is interleaved stereo at the mixer's rate covering this frame.
	Audio  []float32
	Active []ActiveScene
	// Skipped lists the per-node failures of this frame. Each wraps
	// ErrElementUpdate or ErrElementRender.
	Skipped []error
	Stats   FrameStats
}

// FrameStats holds per-phase timings and counts.
type FrameStats struct {
	Update     time.Duration
	Layout     time.Duration
	PostLayout time.Duration
	Render     time.Duration
	Audio      time.Duration
	Nodes      int // nodes updated
	Drawn      int // nodes drawn
}

// Total returns the time spent in all phases.
func (s FrameStats) Total() time.Duration {
	return s.Update + s.Layout + s.PostLayout + s.Render + s.Audio
}

// frameState is the bookkeeping shared by the phases of one frame.
type frameState struct {
	order   []NodeID
	visited map[NodeID]bool
	failed  map[NodeID]bool
	masks   map[NodeID]bool
	roots   []NodeID
	pending []pendingMask
}

type pendingMask struct {
	id    NodeID
	local float64
}

// Seek evaluates the project at global time t. Audio covers one frame
// duration starting at t. r may be nil to skip rendering.
func (d *Director) Seek(ctx context.Context, t float64, r Renderer) (*Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, err := d.evaluate(ctx, -1, t, r)
	if err != nil {
		return nil, err
	}
	idx := max(0, int(math.Floor(t*float64(d.fps)+1e-9)))
	_, count := FrameSampleRange(idx, d.fps, d.mixer.rate)
	d.mixFrame(f, t, count)
	d.debugLog(f)
	return f, nil
}

// Frame evaluates frame index. Its audio is exactly the samples that belong
// to the frame, so consecutive frames tile the audio stream without gaps.
func (d *Director) Frame(ctx context.Context, index int, r Renderer) (*Frame, error) {
	if index < 0 {
		return nil, fmt.Errorf("reel: negative frame index %d", index)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	f, err := d.frameLocked(ctx, index, r)
	if err != nil {
		return nil, err
	}
	d.debugLog(f)
	return f, nil
}

func (d *Director) frameLocked(ctx context.Context, index int, r Renderer) (*Frame, error) {
	f, err := d.evaluate(ctx, index, float64(index)/float64(d.fps), r)
	if err != nil {
		return nil, err
	}
	first, count := FrameSampleRange(index, d.fps, d.mixer.rate)
	d.mixFrame(f, float64(first)/float64(d.mixer.rate), count)
	return f, nil
}

// MixAudio renders frames stereo frames of the mix starting at global time
// start.
func (d *Director) MixAudio(start float64, frames int) []float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mixAudio(start, frames)
}

func (d *Director) mixFrame(f *Frame, start float64, frames int) {
	t0 := time.Now()
	f.Audio = d.mixAudio(start, frames)
	f.Stats.Audio = time.Since(t0)
}

func (d *Director) mixAudio(start float64, frames int) []float32 {
	w := TimeRange{start, start + float64(frames)/float64(d.mixer.rate)}
	return d.mixer.Mix(d.timeline, w, frames, d.providerTracks(w))
}

// providerTracks collects the audio of elements in every scene that overlaps
// w. Each track is bound to its scene, so it starts with the scene and is cut
// at its end.
func (d *Director) providerTracks(w TimeRange) []*AudioTrack {
	var out []*AudioTrack
	for _, it := range d.timeline.items {
		if it.Start >= w.End || it.End() <= w.Start {
			continue
		}
		root := d.graph.lookup(it.Root)
		if root == nil {
			continue
		}
		d.graph.walk(root, func(_ NodeID, n *SceneNode) bool {
			if ap, ok := n.Element.(AudioProvider); ok {
				if tr := ap.AudioTrack(); tr != nil {
					cp := *tr
					cp.BindScene(it.ID)
					out = append(out, &cp)
				}
			}
			return true
		})
	}
	return out
}

// evaluate runs update, layout, post-layout and render for time t.
func (d *Director) evaluate(ctx context.Context, index int, t float64, r Renderer) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := &Frame{Index: index, Time: t, Active: d.timeline.ActiveScenes(t)}
	fs := &frameState{
		visited: make(map[NodeID]bool),
		failed:  make(map[NodeID]bool),
		masks:   make(map[NodeID]bool),
	}

	t0 := time.Now()
	d.updatePhase(ctx, f, fs)
	t1 := time.Now()
	if err := d.layoutPhase(fs); err != nil {
		return nil, err
	}
	t2 := time.Now()
	d.postLayoutPhase(f, fs)
	t3 := time.Now()
	if r != nil {
		if err := d.renderPhase(f, fs, r); err != nil {
			return nil, err
		}
	}
	t4 := time.Now()

	f.Stats.Update = t1.Sub(t0)
	f.Stats.Layout = t2.Sub(t1)
	f.Stats.PostLayout = t3.Sub(t2)
	f.Stats.Render = t4.Sub(t3)
	f.Stats.Nodes = len(fs.order)
	return f, nil
}

func (d *Director) updatePhase(ctx context.Context, f *Frame, fs *frameState) {
	uc := d.updateContext()
	uc.Context = ctx
	uc.GlobalTime = f.Time
	for _, as := range f.Active {
		uc.LocalTime = as.LocalTime
		d.updateTree(uc, as.Item.Root, f, fs)
		fs.roots = append(fs.roots, as.Item.Root)
	}
	// Masks outside the active trees are updated and laid out with their
	// topmost ancestor, at the local time of the scene that uses them.
	for i := 0; i < len(fs.pending); i++ {
		pm := fs.pending[i]
		if fs.visited[pm.id] {
			continue
		}
		top := pm.id
		for {
			n := d.graph.lookup(top)
			if n == nil || n.parent.IsZero() {
				break
			}
			top = n.parent
		}
		uc.LocalTime = pm.local
		d.updateTree(uc, top, f, fs)
		fs.roots = append(fs.roots, top)
	}
}

func (d *Director) updateTree(uc UpdateContext, root NodeID, f *Frame, fs *frameState) {
	n := d.graph.lookup(root)
	if n == nil {
		d.logger.Warn("scene root missing", "node", root)
		return
	}
	d.graph.walk(n, func(id NodeID, n *SceneNode) bool {
		if fs.visited[id] {
			return false
		}
		fs.visited[id] = true
		fs.order = append(fs.order, id)
		uc.Node = id
		if err := updateNode(uc, n); err != nil {
			fs.failed[id] = true
			f.Skipped = append(f.Skipped, err)
			d.logger.Warn("node skipped", "phase", "update", "node", id, "name", n.Name, "err", err)
		}
		if m, ok := d.graph.Mask(id); ok && !fs.masks[m] {
			fs.masks[m] = true
			fs.pending = append(fs.pending, pendingMask{m, uc.LocalTime})
		}
		return true
	})
}

// updateNode evaluates a node's properties and runs its element hook. A
// panic in the hook is reported like an error.
func updateNode(uc UpdateContext, n *SceneNode) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: node %v (%s): panic: %v", ErrElementUpdate, n.id, n.Name, r)
		}
	}()
	n.update(uc.LocalTime)
	if n.Element == nil {
		return nil
	}
	change, err := n.Element.Update(uc)
	if err != nil {
		return fmt.Errorf("%w: node %v (%s): %w", ErrElementUpdate, n.id, n.Name, err)
	}
	if change&ChangeLayout != 0 {
		n.LayoutDirty = true
	}
	return nil
}

func (d *Director) layoutPhase(fs *frameState) error {
	if len(fs.roots) == 0 {
		return nil
	}
	req := &LayoutRequest{
		Viewport: d.Size(),
		Roots:    fs.roots,
		Nodes:    make(map[NodeID]*LayoutNode, len(fs.order)),
		Measure:  d.measure,
	}
	for _, id := range fs.order {
		n := d.graph.lookup(id)
		req.Nodes[id] = &LayoutNode{Style: n.Style, Children: n.children, Dirty: n.LayoutDirty}
	}
	rects, err := d.layout.Layout(req)
	if err != nil {
		return fmt.Errorf("reel: layout: %w", err)
	}
	for id, r := range rects {
		if n := d.graph.lookup(id); n != nil {
			n.Rect = r
			n.LayoutDirty = false
		}
	}
	return nil
}

func (d *Director) measure(id NodeID, known, available Size) (s Size, ok bool) {
	n := d.graph.lookup(id)
	if n == nil {
		return Size{}, false
	}
	m, isMeasurer := n.Element.(Measurer)
	if !isMeasurer {
		return Size{}, false
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("measure failed", "node", id, "name", n.Name, "panic", r)
			s, ok = Size{}, false
		}
	}()
	return m.Measure(known, available), true
}

func (d *Director) postLayoutPhase(f *Frame, fs *frameState) {
	for _, id := range fs.order {
		if fs.failed[id] {
			continue
		}
		n := d.graph.lookup(id)
		pl, ok := n.Element.(PostLayouter)
		if !ok {
			continue
		}
		if err := postLayout(pl, n); err != nil {
			fs.failed[id] = true
			f.Skipped = append(f.Skipped, err)
			d.logger.Warn("node skipped", "phase", "post_layout", "node", id, "name", n.Name, "err", err)
		}
	}
}

func postLayout(pl PostLayouter, n *SceneNode) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: node %v (%s): post layout panic: %v", ErrElementUpdate, n.id, n.Name, r)
		}
	}()
	pl.PostLayout(n.Rect)
	return nil
}

func (d *Director) renderPhase(f *Frame, fs *frameState, r Renderer) error {
	info := FrameInfo{Index: f.Index, Time: f.Time, Width: d.width, Height: d.height, Mode: d.mode}
	if err := r.BeginFrame(info); err != nil {
		return fmt.Errorf("reel: begin frame: %w", err)
	}
	pass := d.newRenderPass(r, fs.failed, fs.masks)
	for _, as := range f.Active {
		layer := Layer{
			Scene:      as.Item.ID,
			Name:       as.Item.Name,
			LocalTime:  as.LocalTime,
			Weight:     as.Weight,
			Transition: as.Transition,
			Progress:   as.Progress(),
			Incoming:   as.Incoming,
		}
		if err := r.BeginLayer(layer); err != nil {
			return fmt.Errorf("reel: begin layer %d: %w", as.Item.ID, err)
		}
		pass.layer(as.Item.Root)
		if err := r.EndLayer(); err != nil {
			return fmt.Errorf("reel: end layer %d: %w", as.Item.ID, err)
		}
	}
	img, err := r.EndFrame()
	if err != nil {
		return fmt.Errorf("reel: end frame: %w", err)
	}
	f.Image = img
	f.Skipped = append(f.Skipped, pass.errs...)
	f.Stats.Drawn = pass.drawn
	return nil
}

// renderNested evaluates d at t in the given mode for a parent composition.
func (d *Director) renderNested(ctx context.Context, t float64, r Renderer, mode RenderMode) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.mode
	d.mode = mode
	defer func() { d.mode = prev }()
	f, err := d.evaluate(ctx, -1, t, r)
	if err != nil {
		return nil, err
	}
	return f.Image, nil
}
