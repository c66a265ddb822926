package reel

import "testing"

func layoutOf(t *testing.T, req *LayoutRequest) map[NodeID]Rect {
	t.Helper()
	out, err := AbsoluteLayout{}.Layout(req)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	return out
}

func assertRect(t *testing.T, name string, got, want Rect) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %+v, want %+v", name, got, want)
	}
}

func TestLayoutRootFillsViewport(t *testing.T) {
	root := NodeID{0, 1}
	req := &LayoutRequest{
		Viewport: Size{640, 360},
		Roots:    []NodeID{root},
		Nodes:    map[NodeID]*LayoutNode{root: {Style: DefaultStyle()}},
	}
	assertRect(t, "root", layoutOf(t, req)[root], Rect{0, 0, 640, 360})
}

func TestLayoutColumnFlow(t *testing.T) {
	root, a, b := NodeID{0, 1}, NodeID{1, 1}, NodeID{2, 1}
	rs := DefaultStyle()
	rs.Padding = 10
	rs.Gap = 5
	as := DefaultStyle()
	as.Height = Px(50)
	bs := DefaultStyle()
	bs.Height = Percent(50)
	bs.Width = Px(100)

	req := &LayoutRequest{
		Viewport: Size{200, 200},
		Roots:    []NodeID{root},
		Nodes: map[NodeID]*LayoutNode{
			root: {Style: rs, Children: []NodeID{a, b}},
			a:    {Style: as},
			b:    {Style: bs},
		},
	}
	out := layoutOf(t, req)
	assertRect(t, "a", out[a], Rect{10, 10, 180, 50})
	assertRect(t, "b", out[b], Rect{10, 65, 100, 90})
}

func TestLayoutRowSharesFreeSpace(t *testing.T) {
	root, a, b, c := NodeID{0, 1}, NodeID{1, 1}, NodeID{2, 1}, NodeID{3, 1}
	rs := DefaultStyle()
	rs.Direction = DirectionRow
	fixed := DefaultStyle()
	fixed.Width = Px(100)

	req := &LayoutRequest{
		Viewport: Size{400, 100},
		Roots:    []NodeID{root},
		Nodes: map[NodeID]*LayoutNode{
			root: {Style: rs, Children: []NodeID{a, b, c}},
			a:    {Style: fixed},
			b:    {Style: DefaultStyle()},
			c:    {Style: DefaultStyle()},
		},
	}
	out := layoutOf(t, req)
	assertRect(t, "a", out[a], Rect{0, 0, 100, 100})
	assertRect(t, "b", out[b], Rect{100, 0, 150, 100})
	assertRect(t, "c", out[c], Rect{250, 0, 150, 100})
}

func TestLayoutMeasuredAndCentered(t *testing.T) {
	root, label := NodeID{0, 1}, NodeID{1, 1}
	rs := DefaultStyle()
	rs.Justify = AlignCenter
	rs.Align = AlignCenter

	req := &LayoutRequest{
		Viewport: Size{300, 100},
		Roots:    []NodeID{root},
		Nodes: map[NodeID]*LayoutNode{
			root:  {Style: rs, Children: []NodeID{label}},
			label: {Style: DefaultStyle()},
		},
		Measure: func(id NodeID, known, avail Size) (Size, bool) {
			if id == label {
				return Size{100, 20}, true
			}
			return Size{}, false
		},
	}
	assertRect(t, "label", layoutOf(t, req)[label], Rect{100, 40, 100, 20})
}

func TestLayoutAbsoluteChild(t *testing.T) {
	root, badge := NodeID{0, 1}, NodeID{1, 1}
	bs := DefaultStyle()
	bs.Position = PositionAbsolute
	bs.Left, bs.Top = Px(20), Percent(50)
	bs.Width, bs.Height = Px(10), Px(10)

	req := &LayoutRequest{
		Viewport: Size{100, 100},
		Roots:    []NodeID{root},
		Nodes: map[NodeID]*LayoutNode{
			root:  {Style: DefaultStyle(), Children: []NodeID{badge}},
			badge: {Style: bs},
		},
	}
	assertRect(t, "badge", layoutOf(t, req)[badge], Rect{20, 50, 10, 10})
}

func TestLayoutMissingRootFails(t *testing.T) {
	req := &LayoutRequest{Viewport: Size{1, 1}, Roots: []NodeID{{0, 1}}}
	if _, err := (AbsoluteLayout{}).Layout(req); err == nil {
		t.Error("expected error for a root missing from the request")
	}
}

func TestParseDimension(t *testing.T) {
	tests := []struct {
		in   string
		want Dimension
	}{
		{"", Auto},
		{"auto", Auto},
		{"120", Px(120)},
		{"120px", Px(120)},
		{"50%", Percent(50)},
	}
	for _, tt := range tests {
		got, err := ParseDimension(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseDimension(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseDimension("wide"); err == nil {
		t.Error("ParseDimension(wide) succeeded")
	}
}
