package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/phanxgames/reel"
	"github.com/phanxgames/reel/ffmpeg"
)

// Env supplies what Build needs beyond the scenario itself.
type Env struct {
	// Dir resolves relative video, shader and composition paths. It should
	// match the root of Assets.
	Dir    string
	Assets reel.AssetLoader
	Tools  ffmpeg.Tools
	// SampleRate for audio decoded from video files.
	SampleRate int
	// NewRenderer creates the renderer of a nested composition.
	NewRenderer func(width, height int) reel.Renderer
	// Options are applied to nested Directors.
	Options []reel.Option
}

// Project is a built scenario.
type Project struct {
	Director *reel.Director
	Scenes   map[string]reel.SceneID
	// Nodes maps "scene/node" to node handles for every named node.
	Nodes map[string]reel.NodeID

	closers []io.Closer
}

// Close releases video decoders.
func (p *Project) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && !errors.Is(err, ffmpeg.ErrClosed) {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// Size returns the frame size and rate, using the scenario's overrides
// where set.
func (s *Scenario) Size(width, height, fps int) (int, int, int) {
	if s.Width > 0 {
		width = s.Width
	}
	if s.Height > 0 {
		height = s.Height
	}
	if s.FPS > 0 {
		fps = s.FPS
	}
	return width, height, fps
}

// Build adds the scenario's scenes, transitions and audio to d. On error
// the partially built project is closed.
func (s *Scenario) Build(ctx context.Context, d *reel.Director, env Env) (p *Project, err error) {
	b := &builder{ctx: ctx, d: d, env: env}
	b.p = &Project{
		Director: d,
		Scenes:   make(map[string]reel.SceneID),
		Nodes:    make(map[string]reel.NodeID),
	}
	defer func() {
		if err != nil {
			_ = b.p.Close()
			p = nil
		}
	}()

	for _, sc := range s.Scenes {
		if err := b.scene(sc); err != nil {
			return nil, fmt.Errorf("scene %s: %w", sc.Name, err)
		}
	}
	for i, tr := range s.Transitions {
		if err := d.AddTransition(b.p.Scenes[tr.From], b.p.Scenes[tr.To], tr.Kind, tr.Duration, tr.Easing); err != nil {
			return nil, fmt.Errorf("transition %d (%s -> %s): %w", i, tr.From, tr.To, err)
		}
	}
	for i, a := range s.Audio {
		src, err := b.audioSource(a.Ref)
		if err != nil {
			return nil, fmt.Errorf("audio %d: %w", i, err)
		}
		if err := b.configureTrack(d.AddGlobalAudio(src, a.Start), a, 0); err != nil {
			return nil, fmt.Errorf("audio %d: %w", i, err)
		}
	}
	d.Logger().Info("scenario built",
		"scenes", len(s.Scenes),
		"transitions", len(s.Transitions),
		"nodes", d.Graph().Len(),
		"duration", d.Duration())
	return b.p, nil
}

type builder struct {
	ctx context.Context
	d   *reel.Director
	env Env
	p   *Project
}

func (b *builder) scene(sc Scene) error {
	id, err := b.d.AddScene(sc.Duration)
	if err != nil {
		return err
	}
	b.p.Scenes[sc.Name] = id
	if err := b.d.Timeline().SetName(id, sc.Name); err != nil {
		return err
	}
	root := b.d.SceneRoot(id)
	rn, err := b.d.Node(root)
	if err != nil {
		return err
	}
	rn.Name = sc.Name
	if sc.Background != "" {
		c, ok := reel.ColorFromHex(sc.Background)
		if !ok {
			return fmt.Errorf("background %q is not a color", sc.Background)
		}
		rn.Element.(*reel.BoxElement).Fill.Set(c)
	}

	names := make(map[string]reel.NodeID)
	var masks []maskRef
	for _, n := range sc.Nodes {
		if err := b.node(root, n, names, &masks); err != nil {
			return err
		}
	}
	for _, m := range masks {
		if err := b.d.SetMask(m.id, names[m.mask]); err != nil {
			return fmt.Errorf("mask %s: %w", m.mask, err)
		}
	}
	for name, nid := range names {
		b.p.Nodes[sc.Name+"/"+name] = nid
	}

	for i, a := range sc.Audio {
		src, err := b.audioSource(a.Ref)
		if err != nil {
			return fmt.Errorf("audio %d: %w", i, err)
		}
		tr, err := b.d.AddSceneAudio(id, src, a.Start)
		if err != nil {
			return err
		}
		if err := b.configureTrack(tr, a, sc.Duration-a.Start); err != nil {
			return fmt.Errorf("audio %d: %w", i, err)
		}
	}
	return nil
}

type maskRef struct {
	id   reel.NodeID
	mask string
}

func (b *builder) node(parent reel.NodeID, n Node, names map[string]reel.NodeID, masks *[]maskRef) error {
	label := n.Name
	if label == "" {
		label = n.Type
	}
	el, err := b.element(n)
	if err != nil {
		return fmt.Errorf("node %s: %w", label, err)
	}
	id := b.d.CreateNode(el)
	if err := b.d.Attach(parent, id); err != nil {
		return fmt.Errorf("node %s: %w", label, err)
	}
	sn, err := b.d.Node(id)
	if err != nil {
		return err
	}
	if err := configureNode(sn, n); err != nil {
		return fmt.Errorf("node %s: %w", label, err)
	}
	if n.Z != 0 {
		if err := b.d.Graph().SetZIndex(id, n.Z); err != nil {
			return err
		}
	}
	if n.Name != "" {
		names[n.Name] = id
	}
	if n.Mask != "" {
		*masks = append(*masks, maskRef{id, n.Mask})
	}
	for _, c := range n.Children {
		if err := b.node(id, c, names, masks); err != nil {
			return err
		}
	}
	for i, st := range n.Animate {
		if err := applyStep(b.d, id, st); err != nil {
			return fmt.Errorf("node %s: step %d (%s): %w", label, i, st.Property, err)
		}
	}
	runes := utf8.RuneCountInString(n.Text)
	for i, g := range n.Glyphs {
		end := runes
		if g.End != nil {
			end = *g.End
		}
		if err := b.d.AnimateGlyphs(id, g.Start, end, g.Property, g.From, g.To, g.Duration, g.Easing, g.Stagger); err != nil {
			return fmt.Errorf("node %s: glyph step %d (%s): %w", label, i, g.Property, err)
		}
	}
	return nil
}

func configureNode(sn *reel.SceneNode, n Node) error {
	sn.Name = n.Name
	sn.Visible = !n.Hidden
	style, err := n.Style.resolve()
	if err != nil {
		return err
	}
	sn.Style = style
	if n.Blend != "" {
		mode, ok := reel.ParseBlendMode(n.Blend)
		if !ok {
			return fmt.Errorf("unknown blend mode %q", n.Blend)
		}
		sn.BlendMode = mode
	}
	if n.Opacity != nil {
		sn.Opacity.Set(*n.Opacity)
	}
	tr := &sn.Transform
	tr.X.Set(n.X)
	tr.Y.Set(n.Y)
	tr.Rotation.Set(n.Rotation)
	if n.Scale != nil {
		tr.ScaleX.Set(*n.Scale)
		tr.ScaleY.Set(*n.Scale)
	}
	if len(n.Pivot) > 0 {
		if len(n.Pivot) != 2 {
			return fmt.Errorf("pivot must be [x, y]")
		}
		tr.PivotX, tr.PivotY = n.Pivot[0], n.Pivot[1]
	}
	for name, v := range n.Properties {
		sn.DefineProperty(name, v)
	}
	return nil
}

func (b *builder) element(n Node) (reel.Element, error) {
	switch n.Type {
	case "box":
		box := reel.NewBox()
		if err := setColor(box.Fill, n.Fill); err != nil {
			return nil, err
		}
		if err := setColor(box.BorderColor, n.BorderColor); err != nil {
			return nil, err
		}
		box.BorderWidth.Set(n.BorderWidth)
		box.CornerRadius.Set(n.CornerRadius)
		return box, nil

	case "text":
		size := n.FontSize
		if size <= 0 {
			size = 32
		}
		t := reel.NewText(n.Text, size)
		if err := setColor(t.Color, n.Color); err != nil {
			return nil, err
		}
		align, ok := reel.ParseTextAlign(n.Align)
		if !ok {
			return nil, fmt.Errorf("unknown text align %q", n.Align)
		}
		t.Align = align
		t.ShrinkToFit = n.Shrink
		if n.MinFontSize > 0 {
			t.MinFontSize = n.MinFontSize
		}
		return t, nil

	case "image":
		img := reel.NewImage(n.Ref)
		fit, err := parseFit(n.Fit)
		if err != nil {
			return nil, err
		}
		img.Fit = fit
		if err := setColor(img.Tint, n.Tint); err != nil {
			return nil, err
		}
		return img, nil

	case "sequence":
		fps := n.FPS
		if fps <= 0 {
			fps = 30
		}
		seq := reel.NewSequence(n.Ref, fps)
		fit, err := parseFit(n.Fit)
		if err != nil {
			return nil, err
		}
		seq.Fit, seq.Loop = fit, n.Loop
		return seq, nil

	case "video":
		return b.video(n)

	case "vector":
		pts := make([]reel.Vec2, len(n.Points))
		for i, p := range n.Points {
			pts[i] = reel.Vec2{X: p[0], Y: p[1]}
		}
		v := reel.NewPath(reel.ColorTransparent, n.StrokeWidth, pts...)
		v.Closed = n.Closed
		if err := setColor(v.Fill, n.Fill); err != nil {
			return nil, err
		}
		if err := setColor(v.Stroke, n.Stroke); err != nil {
			return nil, err
		}
		return v, nil

	case "effect":
		kind, err := reel.ParseEffectKind(n.Effect)
		if err != nil {
			return nil, err
		}
		e := reel.NewEffect(kind)
		for name, v := range n.Params {
			if p, ok := e.Params[name]; ok {
				p.Set(v)
			} else {
				e.Params[name] = reel.NewFloat(v)
			}
		}
		if n.Shader != "" {
			src, err := os.ReadFile(b.path(n.Shader))
			if err != nil {
				return nil, fmt.Errorf("shader: %w", err)
			}
			e.Shader = string(src)
		}
		return e, nil

	case "composition":
		return b.composition(n)
	}
	return nil, fmt.Errorf("unknown type %q", n.Type)
}

func (b *builder) video(n Node) (reel.Element, error) {
	path := b.path(n.Ref)
	src, err := ffmpeg.OpenVideo(b.ctx, b.env.Tools, path)
	if err != nil {
		return nil, err
	}
	b.p.closers = append(b.p.closers, src)

	var v *reel.VideoElement
	if src.Info().HasAudio {
		pcm, err := ffmpeg.DecodeAudio(b.ctx, b.env.Tools, path, b.env.SampleRate)
		if err != nil {
			return nil, err
		}
		v = reel.NewVideo(src, pcm)
		if n.Volume != nil {
			v.Sound.Volume.Set(*n.Volume)
		}
	} else {
		v = reel.NewVideo(src, nil)
	}
	fit, err := parseFit(n.Fit)
	if err != nil {
		return nil, err
	}
	v.Fit, v.Loop, v.Offset = fit, n.Loop, n.Offset
	return v, nil
}

func (b *builder) composition(n Node) (reel.Element, error) {
	if b.env.NewRenderer == nil {
		return nil, errors.New("compositions need a renderer factory")
	}
	path := b.path(n.Ref)
	nested, err := Load(path)
	if err != nil {
		return nil, err
	}
	w, h, fps := nested.Size(b.d.Width(), b.d.Height(), b.d.FPS())
	opts := append([]reel.Option{reel.WithLogger(b.d.Logger())}, b.env.Options...)
	if b.env.Assets != nil {
		opts = append(opts, reel.WithAssets(b.env.Assets))
	}
	nd, err := reel.NewDirector(w, h, fps, opts...)
	if err != nil {
		return nil, err
	}
	env := b.env
	env.Dir = filepath.Dir(path)
	sub, err := nested.Build(b.ctx, nd, env)
	if err != nil {
		return nil, fmt.Errorf("composition %s: %w", n.Ref, err)
	}
	b.p.closers = append(b.p.closers, sub)
	c := reel.NewComposition(nd, b.env.NewRenderer(w, h))
	c.Loop, c.Offset = n.Loop, n.Offset
	return c, nil
}

func (b *builder) audioSource(ref string) (reel.AudioSource, error) {
	if b.env.Assets == nil {
		return nil, errors.New("no asset loader configured")
	}
	return b.env.Assets.Audio(b.ctx, ref)
}

// configureTrack applies clip, loop, volume and fades. limit caps the
// playing time when positive.
func (b *builder) configureTrack(tr *reel.AudioTrack, a Audio, limit float64) error {
	tr.Duration, tr.Offset, tr.Loop = a.Duration, a.Offset, a.Loop
	vol := 1.0
	if a.Volume != nil {
		vol = *a.Volume
	}
	tr.Volume.Set(vol)
	if a.FadeIn <= 0 && a.FadeOut <= 0 {
		return nil
	}

	length := a.Duration
	if length <= 0 && !a.Loop {
		if pcm, ok := tr.Source.(interface{ Duration() float64 }); ok {
			length = pcm.Duration() - a.Offset
		}
	}
	if limit > 0 && (length <= 0 || limit < length) {
		length = limit
	}

	if a.FadeIn > 0 {
		if err := tr.Volume.AddSegment(0, vol, a.FadeIn, reel.EaseLinear); err != nil {
			return fmt.Errorf("fade in: %w", err)
		}
	}
	if a.FadeOut > 0 {
		if length <= 0 {
			return errors.New("fade out needs a bounded track")
		}
		if hold := length - a.FadeIn - a.FadeOut; hold > 0 {
			if err := tr.Volume.Hold(hold); err != nil {
				return err
			}
		}
		if err := tr.Volume.AddKeyframe(0, a.FadeOut, reel.EaseLinear); err != nil {
			return fmt.Errorf("fade out: %w", err)
		}
	}
	return nil
}

func (b *builder) path(ref string) string {
	if filepath.IsAbs(ref) || b.env.Dir == "" {
		return ref
	}
	return filepath.Join(b.env.Dir, ref)
}

// applyStep appends one animation instruction to a node property.
func applyStep(d *reel.Director, id reel.NodeID, st Step) error {
	if st.Delay > 0 {
		if err := hold(d, id, st.Property, st.Delay); err != nil {
			return err
		}
	}
	if st.To == nil {
		return hold(d, id, st.Property, st.Hold)
	}

	if !st.To.IsNumber() {
		if err := colorStep(d, id, st); err != nil {
			return err
		}
	} else if err := floatStep(d, id, st); err != nil {
		return err
	}
	if st.Hold > 0 {
		return hold(d, id, st.Property, st.Hold)
	}
	return nil
}

func floatStep(d *reel.Director, id reel.NodeID, st Step) error {
	to, _ := st.To.Float()
	var from *float64
	if st.From != nil {
		f, err := st.From.Float()
		if err != nil {
			return err
		}
		from = &f
	}
	if st.Spring != nil {
		cfg := reel.DefaultSpringConfig()
		if st.Spring.Stiffness != 0 {
			cfg.Stiffness = st.Spring.Stiffness
		}
		if st.Spring.Damping != 0 {
			cfg.Damping = st.Spring.Damping
		}
		if st.Spring.Mass != 0 {
			cfg.Mass = st.Spring.Mass
		}
		cfg.Velocity = st.Spring.Velocity
		cfg.BakeRate = st.Spring.BakeRate
		if from != nil {
			return d.SpringFrom(id, st.Property, *from, to, cfg)
		}
		return d.Spring(id, st.Property, to, cfg)
	}
	if from != nil {
		return d.Animate(id, st.Property, *from, to, st.Duration, st.Easing)
	}
	return d.AnimateTo(id, st.Property, to, st.Duration, st.Easing)
}

func colorStep(d *reel.Director, id reel.NodeID, st Step) error {
	if st.Spring != nil {
		return errors.New("springs apply to numeric properties only")
	}
	to, err := st.To.Color()
	if err != nil {
		return err
	}
	p, err := colorProperty(d, id, st.Property)
	if err != nil {
		return err
	}
	e, err := reel.ParseEasing(st.Easing)
	if err != nil {
		return err
	}
	if st.From != nil {
		from, err := st.From.Color()
		if err != nil {
			return err
		}
		return p.AddSegment(from, to, st.Duration, e)
	}
	return p.AddKeyframe(to, st.Duration, e)
}

func colorProperty(d *reel.Director, id reel.NodeID, name string) (*reel.Animated[reel.Color], error) {
	n, err := d.Node(id)
	if err != nil {
		return nil, err
	}
	if ca, ok := n.Element.(reel.ColorAnimatable); ok {
		if p, ok := ca.ColorProperty(name); ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: color %q", reel.ErrUnknownProperty, name)
}

// hold pauses a numeric or color property.
func hold(d *reel.Director, id reel.NodeID, prop string, duration float64) error {
	err := d.Hold(id, prop, duration)
	if !errors.Is(err, reel.ErrUnknownProperty) {
		return err
	}
	p, cerr := colorProperty(d, id, prop)
	if cerr != nil {
		return err
	}
	return p.Hold(duration)
}

func setColor(a *reel.Animated[reel.Color], hex string) error {
	if hex == "" {
		return nil
	}
	c, ok := reel.ColorFromHex(hex)
	if !ok {
		return fmt.Errorf("%q is not a color", hex)
	}
	a.Set(c)
	return nil
}

func parseFit(s string) (reel.ObjectFit, error) {
	if s == "" {
		return reel.FitContain, nil
	}
	fit, ok := reel.ParseObjectFit(s)
	if !ok {
		return 0, fmt.Errorf("unknown fit %q", s)
	}
	return fit, nil
}

func (s Style) resolve() (reel.Style, error) {
	st := reel.DefaultStyle()
	switch s.Position {
	case "", "flow":
	case "absolute":
		st.Position = reel.PositionAbsolute
	default:
		return st, fmt.Errorf("unknown position %q", s.Position)
	}
	for _, f := range []struct {
		dst *reel.Dimension
		src Dim
	}{{&st.Left, s.Left}, {&st.Top, s.Top}, {&st.Width, s.Width}, {&st.Height, s.Height}} {
		v, err := reel.ParseDimension(string(f.src))
		if err != nil {
			return st, err
		}
		*f.dst = v
	}
	st.Padding, st.Gap = s.Padding, s.Gap
	switch s.Direction {
	case "", "column":
	case "row":
		st.Direction = reel.DirectionRow
	default:
		return st, fmt.Errorf("unknown direction %q", s.Direction)
	}
	var err error
	if st.Justify, err = parseAlign(s.Justify, reel.AlignStart); err != nil {
		return st, err
	}
	if st.Align, err = parseAlign(s.Align, reel.AlignStretch); err != nil {
		return st, err
	}
	return st, nil
}

func parseAlign(s string, def reel.Align) (reel.Align, error) {
	switch s {
	case "":
		return def, nil
	case "start":
		return reel.AlignStart, nil
	case "center":
		return reel.AlignCenter, nil
	case "end":
		return reel.AlignEnd, nil
	case "stretch":
		return reel.AlignStretch, nil
	}
	return def, fmt.Errorf("unknown alignment %q", s)
}
