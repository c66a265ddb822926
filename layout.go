package reel

import "fmt"

// Unit is the unit of a Dimension.
type Unit uint8

const (
	UnitAuto    Unit = iota // size from content or the parent
	UnitPoints              // absolute pixels
	UnitPercent             // percent of the parent's content box
)

// Dimension is a length in a layout style.
type Dimension struct {
	Value float64
	Unit  Unit
}

// Auto is the automatic dimension.
var Auto = Dimension{}

// Px returns a dimension in pixels.
func Px(v float64) Dimension { return Dimension{v, UnitPoints} }

// Percent returns a dimension relative to the parent's content box.
func Percent(v float64) Dimension { return Dimension{v, UnitPercent} }

// resolve returns the length and true, or false for auto.
func (d Dimension) resolve(parent float64) (float64, bool) {
	switch d.Unit {
	case UnitPoints:
		return d.Value, true
	case UnitPercent:
		return parent * d.Value / 100, true
	}
	return 0, false
}

// ParseDimension parses "auto", "120", "120px" or "50%".
func ParseDimension(s string) (Dimension, error) {
	if s == "" || s == "auto" {
		return Auto, nil
	}
	var v float64
	switch {
	case len(s) > 1 && s[len(s)-1] == '%':
		if _, err := fmt.Sscanf(s[:len(s)-1], "%g", &v); err != nil {
			return Auto, fmt.Errorf("parse dimension %q: %w", s, err)
		}
		return Percent(v), nil
	case len(s) > 2 && s[len(s)-2:] == "px":
		s = s[:len(s)-2]
	}
	if _, err := fmt.Sscanf(s, "%g", &v); err != nil {
		return Auto, fmt.Errorf("parse dimension %q: %w", s, err)
	}
	return Px(v), nil
}

// Position selects whether a node takes part in its parent's flow.
type Position uint8

const (
	PositionFlow     Position = iota // stacked along the parent's direction
	PositionAbsolute                 // placed at Left/Top inside the parent
)

// Direction is the main axis of a flow container.
type Direction uint8

const (
	DirectionColumn Direction = iota
	DirectionRow
)

// Align positions children along an axis.
type Align uint8

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
	AlignStretch // cross axis only; main axis treats it as start
)

// Style is the layout input of a node. The core only carries it; a
// LayoutEngine interprets it.
type Style struct {
	Position  Position
	Left, Top Dimension
	Width     Dimension
	Height    Dimension
	Padding   float64
	Gap       float64
	Direction Direction
	Justify   Align // main axis
	Align     Align // cross axis
}

// DefaultStyle is a column flow container that stretches its children.
func DefaultStyle() Style {
	return Style{Align: AlignStretch}
}

// FillStyle fills the parent's content box.
func FillStyle() Style {
	s := DefaultStyle()
	s.Width, s.Height = Percent(100), Percent(100)
	return s
}

// LayoutNode is the per-node input of a layout pass.
type LayoutNode struct {
	Style    Style
	Children []NodeID
	// Dirty is set when the node's style or intrinsic size changed since the
	// previous pass. Engines that cache results use it for invalidation.
	Dirty bool
}

// MeasureFunc asks a node for its intrinsic size. It returns false for nodes
// without intrinsic content.
type MeasureFunc func(id NodeID, known, available Size) (Size, bool)

// LayoutRequest is everything a LayoutEngine needs for one pass.
type LayoutRequest struct {
	Viewport Size
	Roots    []NodeID
	Nodes    map[NodeID]*LayoutNode
	Measure  MeasureFunc
}

// LayoutEngine computes absolute rects for every node in a request.
type LayoutEngine interface {
	Layout(req *LayoutRequest) (map[NodeID]Rect, error)
}

// AbsoluteLayout is a small flow layout: children stack along the parent's
// direction, fixed and percent sizes resolve against the parent's content
// box, measured content supplies auto sizes, and remaining main-axis space
// is shared by auto-sized containers.
type AbsoluteLayout struct{}

// Layout implements LayoutEngine.
func (AbsoluteLayout) Layout(req *LayoutRequest) (map[NodeID]Rect, error) {
	out := make(map[NodeID]Rect, len(req.Nodes))
	view := Rect{0, 0, req.Viewport.Width, req.Viewport.Height}
	for _, root := range req.Roots {
		ln, ok := req.Nodes[root]
		if !ok {
			return nil, fmt.Errorf("layout: root %v missing from request", root)
		}
		r := view
		if w, ok := ln.Style.Width.resolve(view.Width); ok {
			r.Width = w
		}
		if h, ok := ln.Style.Height.resolve(view.Height); ok {
			r.Height = h
		}
		if x, ok := ln.Style.Left.resolve(view.Width); ok {
			r.X = x
		}
		if y, ok := ln.Style.Top.resolve(view.Height); ok {
			r.Y = y
		}
		layoutBox(req, root, r, out)
	}
	return out, nil
}

func measure(req *LayoutRequest, id NodeID, known, avail Size) (Size, bool) {
	if req.Measure == nil {
		return Size{}, false
	}
	return req.Measure(id, known, avail)
}

// layoutBox records r for id and lays out its children inside it.
func layoutBox(req *LayoutRequest, id NodeID, r Rect, out map[NodeID]Rect) {
	out[id] = r
	ln := req.Nodes[id]
	if ln == nil || len(ln.Children) == 0 {
		return
	}
	st := ln.Style
	content := Rect{
		X:      r.X + st.Padding,
		Y:      r.Y + st.Padding,
		Width:  max(0, r.Width-2*st.Padding),
		Height: max(0, r.Height-2*st.Padding),
	}
	row := st.Direction == DirectionRow
	mainLen, crossLen := content.Height, content.Width
	if row {
		mainLen, crossLen = content.Width, content.Height
	}

	type placed struct {
		id          NodeID
		main, cross float64
		flexible    bool
		style       Style
	}
	var flow []placed
	fixedMain := 0.0
	flexCount := 0

	for _, cid := range ln.Children {
		cn := req.Nodes[cid]
		if cn == nil {
			continue
		}
		cs := cn.Style
		if cs.Position == PositionAbsolute {
			layoutBox(req, cid, absoluteRect(req, cid, cs, content), out)
			continue
		}
		w, wok := cs.Width.resolve(content.Width)
		h, hok := cs.Height.resolve(content.Height)
		if !wok || !hok {
			known := Size{-1, -1}
			if wok {
				known.Width = w
			}
			if hok {
				known.Height = h
			}
			if m, ok := measure(req, cid, known, content.Size()); ok {
				if !wok {
					w, wok = m.Width, true
				}
				if !hok {
					h, hok = m.Height, true
				}
			}
		}
		p := placed{id: cid, style: cs}
		mainSet, crossSet := hok, wok
		p.main, p.cross = h, w
		if row {
			mainSet, crossSet = wok, hok
			p.main, p.cross = w, h
		}
		if !crossSet || (st.Align == AlignStretch && !crossFixed(cs, row)) {
			p.cross = crossLen
		}
		if !mainSet {
			p.flexible = true
			flexCount++
		} else {
			fixedMain += p.main
		}
		flow = append(flow, p)
	}
	if len(flow) == 0 {
		return
	}

	gaps := st.Gap * float64(len(flow)-1)
	free := mainLen - fixedMain - gaps
	if flexCount > 0 {
		share := max(0, free) / float64(flexCount)
		for i := range flow {
			if flow[i].flexible {
				flow[i].main = share
			}
		}
		free = 0
	}

	pos := 0.0
	switch st.Justify {
	case AlignCenter:
		pos = max(0, free) / 2
	case AlignEnd:
		pos = max(0, free)
	}
	for _, p := range flow {
		off := 0.0
		switch st.Align {
		case AlignCenter:
			off = (crossLen - p.cross) / 2
		case AlignEnd:
			off = crossLen - p.cross
		}
		var cr Rect
		if row {
			cr = Rect{content.X + pos, content.Y + off, p.main, p.cross}
		} else {
			cr = Rect{content.X + off, content.Y + pos, p.cross, p.main}
		}
		layoutBox(req, p.id, cr, out)
		pos += p.main + st.Gap
	}
}

// crossFixed reports whether the style pins the cross-axis size.
func crossFixed(s Style, row bool) bool {
	if row {
		return s.Height.Unit != UnitAuto
	}
	return s.Width.Unit != UnitAuto
}

func absoluteRect(req *LayoutRequest, id NodeID, s Style, content Rect) Rect {
	r := content
	w, wok := s.Width.resolve(content.Width)
	h, hok := s.Height.resolve(content.Height)
	if !wok || !hok {
		known := Size{-1, -1}
		if wok {
			known.Width = w
		}
		if hok {
			known.Height = h
		}
		if m, ok := measure(req, id, known, content.Size()); ok {
			if !wok {
				w, wok = m.Width, true
			}
			if !hok {
				h, hok = m.Height, true
			}
		}
	}
	if wok {
		r.Width = w
	}
	if hok {
		r.Height = h
	}
	if x, ok := s.Left.resolve(content.Width); ok {
		r.X = content.X + x
	}
	if y, ok := s.Top.resolve(content.Height); ok {
		r.Y = content.Y + y
	}
	return r
}
