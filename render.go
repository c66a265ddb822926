package reel

import (
	"fmt"
	"image"
)

// FrameInfo describes the frame a Renderer is about to draw.
type FrameInfo struct {
	Index  int // -1 when the frame was requested by time
	Time   float64
	Width  int
	Height int
	Mode   RenderMode
}

// Layer is one active scene of a frame. Outside transitions a frame has a
// single layer with weight 1. During a transition the outgoing layer comes
// first, then the incoming one; the renderer composites them according to
// Transition.Kind and Progress.
type Layer struct {
	Scene      SceneID
	Name       string
	LocalTime  float64
	Weight     float64
	Transition *Transition
	// Progress is the eased transition progress, 1 outside transitions.
	Progress float64
	Incoming bool
}

// RenderNode is the resolved state of a node for one frame.
type RenderNode struct {
	ID      NodeID
	Name    string
	Kind    ElementKind
	Element Element
	// Rect is the absolute layout rect, before transforms.
	Rect Rect
	// World maps Rect coordinates to frame pixels.
	World Affine
	// Opacity is the node's opacity multiplied by all of its ancestors'.
	Opacity   float64
	BlendMode BlendMode
	// Mask is the resolved clipping node of a group, or nil.
	Mask  *RenderNode
	Depth int
}

// Group reports whether the node's subtree is drawn offscreen and composited
// as one: nodes with a mask and effect nodes.
func (rn *RenderNode) Group() bool {
	return rn.Mask != nil || rn.Kind == ElementEffect
}

// Renderer turns resolved nodes into pixels. Calls for one frame are
//
//	BeginFrame
//	  BeginLayer
//	    DrawNode / BeginGroup ... EndGroup, in paint order
//	  EndLayer
//	  ...
//	EndFrame
//
// A node is drawn before its children. For group nodes BeginGroup comes
// before the node's own DrawNode and EndGroup after its last descendant.
// An error from DrawNode skips only that node.
type Renderer interface {
	BeginFrame(info FrameInfo) error
	BeginLayer(layer Layer) error
	BeginGroup(n *RenderNode) error
	DrawNode(n *RenderNode) error
	EndGroup(n *RenderNode) error
	EndLayer() error
	EndFrame() (image.Image, error)
}

// renderPass draws the active scenes of one frame.
type renderPass struct {
	d      *Director
	r      Renderer
	failed map[NodeID]bool
	masks  map[NodeID]bool
	world  map[NodeID]Affine
	errs   []error
	drawn  int
}

func (d *Director) newRenderPass(r Renderer, failed, masks map[NodeID]bool) *renderPass {
	return &renderPass{
		d:      d,
		r:      r,
		failed: failed,
		masks:  masks,
		world:  make(map[NodeID]Affine),
	}
}

func (p *renderPass) layer(root NodeID) {
	p.tree(root, Identity, 1, 0)
}

func (p *renderPass) skip(n *SceneNode, op string, err error) {
	err = fmt.Errorf("%w: %s node %v (%s): %w", ErrElementRender, op, n.id, n.Name, err)
	p.errs = append(p.errs, err)
	p.d.logger.Warn("node skipped", "phase", "render", "node", n.id, "name", n.Name, "err", err)
}

// tree draws the subtree at id. Nodes used as a mask are not drawn in place.
func (p *renderPass) tree(id NodeID, parent Affine, opacity float64, depth int) {
	g := p.d.graph
	n := g.lookup(id)
	if n == nil || !n.Visible || p.masks[id] {
		return
	}
	world := parent.Mul(n.Transform.Local(n.Rect))
	p.world[id] = world
	alpha := opacity * clamp01(n.Opacity.Current)
	if alpha <= 0 {
		return
	}

	rn := p.node(n, world, alpha, depth)
	if m, ok := g.Mask(id); ok {
		rn.Mask = p.maskNode(m)
	}
	group := rn.Group()
	if group {
		if err := p.r.BeginGroup(rn); err != nil {
			p.skip(n, "group", err)
			group = false
		}
	}
	if !p.failed[id] && n.Element != nil {
		if err := p.draw(rn); err != nil {
			p.skip(n, "draw", err)
		} else {
			p.drawn++
		}
	}
	for _, c := range g.paintOrder(n) {
		p.tree(c, world, alpha, depth+1)
	}
	if group {
		if err := p.r.EndGroup(rn); err != nil {
			p.skip(n, "group", err)
		}
	}
}

func (p *renderPass) draw(rn *RenderNode) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.r.DrawNode(rn)
}

func (p *renderPass) node(n *SceneNode, world Affine, alpha float64, depth int) *RenderNode {
	rn := &RenderNode{
		ID:        n.id,
		Name:      n.Name,
		Element:   n.Element,
		Rect:      n.Rect,
		World:     world,
		Opacity:   alpha,
		BlendMode: n.BlendMode,
		Depth:     depth,
	}
	if n.Element != nil {
		rn.Kind = n.Element.Kind()
	}
	return rn
}

// maskNode resolves a mask's world transform through its own ancestry. The
// mask keeps its own opacity; its children do not contribute.
func (p *renderPass) maskNode(id NodeID) *RenderNode {
	n := p.d.graph.lookup(id)
	if n == nil {
		return nil
	}
	return p.node(n, p.worldOf(id), clamp01(n.Opacity.Current), 0)
}

func (p *renderPass) worldOf(id NodeID) Affine {
	if w, ok := p.world[id]; ok {
		return w
	}
	n := p.d.graph.lookup(id)
	if n == nil {
		return Identity
	}
	parent := Identity
	if !n.parent.IsZero() {
		parent = p.worldOf(n.parent)
	}
	w := parent.Mul(n.Transform.Local(n.Rect))
	p.world[id] = w
	return w
}
