package reel

// debugLog emits per-frame timings and counts. Only active with WithDebug.
func (d *Director) debugLog(f *Frame) {
	if !d.debug {
		return
	}
	s := f.Stats
	d.logger.Debug("frame",
		"index", f.Index,
		"time", f.Time,
		"update", s.Update,
		"layout", s.Layout,
		"post_layout", s.PostLayout,
		"render", s.Render,
		"audio", s.Audio,
		"total", s.Total(),
		"scenes", len(f.Active),
		"nodes", s.Nodes,
		"drawn", s.Drawn,
		"skipped", len(f.Skipped),
	)
}

// debugMaxTreeDepth is the depth above which attaching a node logs a warning.
const debugMaxTreeDepth = 32

// debugMaxChildCount is the child count above which attaching logs a warning.
const debugMaxChildCount = 1000

// debugCheckTree warns about suspiciously deep trees and wide nodes after an
// attach.
func (d *Director) debugCheckTree(id NodeID) {
	n := d.graph.lookup(id)
	if n == nil {
		return
	}
	depth := 0
	for p := n; p != nil; p = d.graph.lookup(p.parent) {
		depth++
	}
	if depth > debugMaxTreeDepth {
		d.logger.Warn("tree depth exceeds threshold", "node", id, "name", n.Name,
			"depth", depth, "threshold", debugMaxTreeDepth)
	}
	if parent := d.graph.lookup(n.parent); parent != nil && len(parent.children) > debugMaxChildCount {
		d.logger.Warn("child count exceeds threshold", "node", parent.id, "name", parent.Name,
			"children", len(parent.children), "threshold", debugMaxChildCount)
	}
}
