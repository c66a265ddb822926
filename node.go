package reel

import (
	"fmt"
	"sort"
)

// NodeID is a generation-checked handle to a node in a SceneGraph. The zero
// value never refers to a node.
type NodeID struct {
	index uint32
	gen   uint32
}

// IsZero reports whether id is the zero handle.
func (id NodeID) IsZero() bool { return id.gen == 0 }

// Index returns the arena slot of the handle.
func (id NodeID) Index() int { return int(id.index) }

// Generation returns the slot generation the handle was issued for.
func (id NodeID) Generation() uint32 { return id.gen }

func (id NodeID) String() string {
	if id.IsZero() {
		return "node(none)"
	}
	return fmt.Sprintf("node(%d#%d)", id.index, id.gen)
}

// SceneNode is a single entry in the scene graph. Fields are exported for
// direct access by renderers, layout engines and scripts; hierarchy fields
// are private and changed through SceneGraph.
type SceneNode struct {
	// Name is a human-readable label used in logs and lookups.
	Name string
	// Element is the node's payload.
	Element Element

	// Transform holds the animated translate, scale, rotation and skew.
	Transform Transform
	// Opacity in [0, 1], multiplied down the tree.
	Opacity *Animated[float64]
	// BlendMode selects how the node composites onto what is below it.
	BlendMode BlendMode
	// Visible controls whether this node and its subtree are drawn.
	Visible bool

	// Style is the layout input.
	Style Style
	// Rect is the absolute layout rectangle from the last layout pass.
	Rect Rect
	// LayoutDirty is set when style-affecting element state changed.
	LayoutDirty bool

	// LocalTime is the owning scene's local time at the last update.
	LocalTime float64

	id             NodeID
	parent         NodeID
	children       []NodeID
	sortedChildren []NodeID
	childrenSorted bool
	zIndex         int
	mask           NodeID
	custom         map[string]*Animated[float64]
}

func nodeDefaults(n *SceneNode) {
	n.Transform = newTransform()
	n.Opacity = NewFloat(1)
	n.Visible = true
	n.Style = DefaultStyle()
	n.LayoutDirty = true
	n.childrenSorted = true
}

// ID returns the node's handle.
func (n *SceneNode) ID() NodeID { return n.id }

// Parent returns the parent handle, or the zero NodeID for roots.
func (n *SceneNode) Parent() NodeID { return n.parent }

// Children returns the child handles in insertion order.
// The returned slice MUST NOT be mutated by the caller.
func (n *SceneNode) Children() []NodeID { return n.children }

// ZIndex returns the node's paint order among its siblings.
func (n *SceneNode) ZIndex() int { return n.zIndex }

// MaskID returns the node's mask reference. It may be stale; use
// SceneGraph.Mask to resolve it.
func (n *SceneNode) MaskID() NodeID { return n.mask }

// DefineProperty adds a custom animated property. Defining an existing name
// returns the existing value unchanged.
func (n *SceneNode) DefineProperty(name string, initial float64) *Animated[float64] {
	if p, ok := n.custom[name]; ok {
		return p
	}
	if n.custom == nil {
		n.custom = make(map[string]*Animated[float64])
	}
	p := NewFloat(initial)
	n.custom[name] = p
	return p
}

// Property returns a custom property defined with DefineProperty.
func (n *SceneNode) Property(name string) (*Animated[float64], bool) {
	p, ok := n.custom[name]
	return p, ok
}

// PropertyNames returns the custom property names, sorted.
func (n *SceneNode) PropertyNames() []string {
	names := make([]string, 0, len(n.custom))
	for name := range n.custom {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// update evaluates all animated node properties at local time t.
func (n *SceneNode) update(t float64) {
	n.LocalTime = t
	n.Transform.update(t)
	n.Opacity.Update(t)
	for _, p := range n.custom {
		p.Update(t)
	}
}
