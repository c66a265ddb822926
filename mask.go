package reel

import "fmt"

// SetMask makes mask clip id: the mask node's alpha determines which parts of
// id and its subtree are visible. The mask node stays wherever it is in the
// tree; it is evaluated with its own ancestry but is not drawn on its own.
func (g *SceneGraph) SetMask(id, mask NodeID) error {
	n, err := g.Get(id)
	if err != nil {
		return err
	}
	if !g.Contains(mask) {
		return fmt.Errorf("mask: %w: %v", ErrInvalidHandle, mask)
	}
	if id == mask {
		return fmt.Errorf("%w: node %v cannot mask itself", ErrCycle, id)
	}
	n.mask = mask
	return nil
}

// ClearMask removes the mask from id.
func (g *SceneGraph) ClearMask(id NodeID) error {
	n, err := g.Get(id)
	if err != nil {
		return err
	}
	n.mask = NodeID{}
	return nil
}

// Mask returns the live mask node of id. A mask that has been destroyed
// resolves to no mask.
func (g *SceneGraph) Mask(id NodeID) (NodeID, bool) {
	n := g.lookup(id)
	if n == nil || n.mask.IsZero() || !g.Contains(n.mask) {
		return NodeID{}, false
	}
	return n.mask, true
}
