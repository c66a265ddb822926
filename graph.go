package reel

import (
	"fmt"
	"slices"
)

type slot struct {
	gen  uint32
	node *SceneNode // nil when free
}

// SceneGraph owns every node in an arena. Nodes are addressed by NodeID
// handles; destroyed slots are recycled through a free list with a bumped
// generation, so stale handles are detected instead of aliasing a new node.
//
// A node is either a root or has exactly one parent. Newly created nodes are
// roots; attaching removes them from the roots list and detaching puts them
// back.
//
// SceneGraph is not safe for concurrent use. The Director serializes access.
type SceneGraph struct {
	slots []slot
	free  []uint32
	roots []NodeID
	live  int
}

// NewSceneGraph creates an empty graph.
func NewSceneGraph() *SceneGraph {
	return &SceneGraph{}
}

// Create allocates a node holding el. The node starts as a root.
func (g *SceneGraph) Create(el Element) NodeID {
	if el == nil {
		panic("reel: cannot create a node with a nil element")
	}
	var idx uint32
	if n := len(g.free); n > 0 {
		idx = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		idx = uint32(len(g.slots))
		g.slots = append(g.slots, slot{gen: 1})
	}
	s := &g.slots[idx]
	node := &SceneNode{Element: el}
	nodeDefaults(node)
	node.id = NodeID{index: idx, gen: s.gen}
	s.node = node
	g.roots = append(g.roots, node.id)
	g.live++
	return node.id
}

// Get returns the node for id, or ErrInvalidHandle when the slot is empty or
// its generation differs.
func (g *SceneGraph) Get(id NodeID) (*SceneNode, error) {
	if n := g.lookup(id); n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, id)
}

// Contains reports whether id refers to a live node.
func (g *SceneGraph) Contains(id NodeID) bool { return g.lookup(id) != nil }

func (g *SceneGraph) lookup(id NodeID) *SceneNode {
	if id.gen == 0 || int(id.index) >= len(g.slots) {
		return nil
	}
	s := &g.slots[id.index]
	if s.node == nil || s.gen != id.gen {
		return nil
	}
	return s.node
}

// Len returns the number of live nodes.
func (g *SceneGraph) Len() int { return g.live }

// Roots returns a copy of the parentless nodes in creation order.
func (g *SceneGraph) Roots() []NodeID { return slices.Clone(g.roots) }

// Children returns the children of id in insertion order.
// The returned slice MUST NOT be mutated by the caller.
func (g *SceneGraph) Children(id NodeID) ([]NodeID, error) {
	n, err := g.Get(id)
	if err != nil {
		return nil, err
	}
	return n.children, nil
}

// Parent returns the parent of id and whether it has one.
func (g *SceneGraph) Parent(id NodeID) (NodeID, bool, error) {
	n, err := g.Get(id)
	if err != nil {
		return NodeID{}, false, err
	}
	return n.parent, !n.parent.IsZero(), nil
}

// Attach makes child the last child of parent. If child already has a
// parent it is removed from it first.
func (g *SceneGraph) Attach(parent, child NodeID) error {
	p, c, err := g.checkAttach(parent, child)
	if err != nil {
		return err
	}
	g.unlink(c)
	c.parent = parent
	p.children = append(p.children, child)
	p.childrenSorted = false
	p.LayoutDirty = true
	return nil
}

// AttachAt inserts child into parent's children at index.
func (g *SceneGraph) AttachAt(parent, child NodeID, index int) error {
	p, c, err := g.checkAttach(parent, child)
	if err != nil {
		return err
	}
	g.unlink(c)
	if index < 0 || index > len(p.children) {
		index = len(p.children)
	}
	c.parent = parent
	p.children = slices.Insert(p.children, index, child)
	p.childrenSorted = false
	p.LayoutDirty = true
	return nil
}

func (g *SceneGraph) checkAttach(parent, child NodeID) (*SceneNode, *SceneNode, error) {
	p, err := g.Get(parent)
	if err != nil {
		return nil, nil, fmt.Errorf("attach parent: %w", err)
	}
	c, err := g.Get(child)
	if err != nil {
		return nil, nil, fmt.Errorf("attach child: %w", err)
	}
	if g.isAncestor(child, parent) {
		return nil, nil, fmt.Errorf("%w: %v under %v", ErrCycle, child, parent)
	}
	return p, c, nil
}

// Detach removes child from its parent; the node becomes a root. Detaching a
// root is a no-op.
func (g *SceneGraph) Detach(child NodeID) error {
	c, err := g.Get(child)
	if err != nil {
		return err
	}
	if c.parent.IsZero() {
		return nil
	}
	g.unlink(c)
	g.roots = append(g.roots, child)
	return nil
}

// unlink removes n from its parent's children or from the roots list.
func (g *SceneGraph) unlink(n *SceneNode) {
	if n.parent.IsZero() {
		g.roots = removeID(g.roots, n.id)
		return
	}
	if p := g.lookup(n.parent); p != nil {
		p.children = removeID(p.children, n.id)
		p.childrenSorted = false
		p.LayoutDirty = true
	}
	n.parent = NodeID{}
}

// Destroy frees id and its whole subtree. Freed slots are pushed on the free
// list and every outstanding handle to them becomes stale.
func (g *SceneGraph) Destroy(id NodeID) error {
	n, err := g.Get(id)
	if err != nil {
		return err
	}
	g.unlink(n)

	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := g.lookup(cur)
		if node == nil {
			continue
		}
		stack = append(stack, node.children...)

		s := &g.slots[cur.index]
		s.node = nil
		s.gen++
		if s.gen == 0 {
			s.gen = 1
		}
		g.free = append(g.free, cur.index)
		g.live--
	}
	return nil
}

// isAncestor reports whether candidate is node or one of its ancestors.
func (g *SceneGraph) isAncestor(candidate, node NodeID) bool {
	for cur := node; !cur.IsZero(); {
		if cur == candidate {
			return true
		}
		n := g.lookup(cur)
		if n == nil {
			return false
		}
		cur = n.parent
	}
	return false
}

// SetZIndex sets the node's paint order among its siblings. Higher values
// draw on top; equal values keep insertion order.
func (g *SceneGraph) SetZIndex(id NodeID, z int) error {
	n, err := g.Get(id)
	if err != nil {
		return err
	}
	if n.zIndex == z {
		return nil
	}
	n.zIndex = z
	if p := g.lookup(n.parent); p != nil {
		p.childrenSorted = false
	}
	return nil
}

// PaintOrder returns the children of id stably sorted by ZIndex.
// The returned slice MUST NOT be mutated by the caller.
func (g *SceneGraph) PaintOrder(id NodeID) ([]NodeID, error) {
	n, err := g.Get(id)
	if err != nil {
		return nil, err
	}
	return g.paintOrder(n), nil
}

func (g *SceneGraph) paintOrder(n *SceneNode) []NodeID {
	if !n.childrenSorted {
		g.rebuildSortedChildren(n)
	}
	return n.sortedChildren
}

// rebuildSortedChildren rebuilds the ZIndex-sorted traversal order for a node.
// Uses insertion sort: zero allocations, stable, and optimal for the typical
// case of few children that are nearly sorted (O(n) when already sorted).
func (g *SceneGraph) rebuildSortedChildren(n *SceneNode) {
	nc := len(n.children)
	if cap(n.sortedChildren) < nc {
		n.sortedChildren = make([]NodeID, nc)
	}
	n.sortedChildren = n.sortedChildren[:nc]
	copy(n.sortedChildren, n.children)
	z := func(id NodeID) int {
		if c := g.lookup(id); c != nil {
			return c.zIndex
		}
		return 0
	}
	for i := 1; i < nc; i++ {
		key := n.sortedChildren[i]
		kz := z(key)
		j := i - 1
		for j >= 0 && z(n.sortedChildren[j]) > kz {
			n.sortedChildren[j+1] = n.sortedChildren[j]
			j--
		}
		n.sortedChildren[j+1] = key
	}
	n.childrenSorted = true
}

// Walk visits id and its descendants depth-first in paint order. Returning
// false from fn skips the node's children.
func (g *SceneGraph) Walk(id NodeID, fn func(id NodeID, n *SceneNode) bool) error {
	n, err := g.Get(id)
	if err != nil {
		return err
	}
	g.walk(n, fn)
	return nil
}

func (g *SceneGraph) walk(n *SceneNode, fn func(NodeID, *SceneNode) bool) {
	if !fn(n.id, n) {
		return
	}
	for _, cid := range g.paintOrder(n) {
		if c := g.lookup(cid); c != nil {
			g.walk(c, fn)
		}
	}
}

// Find returns the first node named name in the subtree of id.
func (g *SceneGraph) Find(id NodeID, name string) (NodeID, bool) {
	var found NodeID
	_ = g.Walk(id, func(cid NodeID, n *SceneNode) bool {
		if !found.IsZero() {
			return false
		}
		if n.Name == name {
			found = cid
			return false
		}
		return true
	})
	return found, !found.IsZero()
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}
