package reel

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Director owns the scene graph, the timeline and the mixer, and runs the
// per-frame pipeline over them.
//
// Scripting methods (AddScene, CreateNode, Animate, ...) are not locked; call
// them from a single goroutine before rendering starts, or wrap them in Edit
// when frames are being produced concurrently. Frame methods (Seek, Frame,
// MixAudio, Export) hold the Director's lock for their whole duration.
type Director struct {
	mu sync.Mutex

	graph    *SceneGraph
	timeline *Timeline
	mixer    *Mixer

	layout  LayoutEngine
	assets  AssetLoader
	metrics TextMetrics
	logger  *slog.Logger

	width, height int
	fps           int
	mode          RenderMode
	springRate    float64
	debug         bool
}

// Option configures a Director.
type Option func(*Director)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(d *Director) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithLayout replaces the built-in AbsoluteLayout.
func WithLayout(e LayoutEngine) Option {
	return func(d *Director) {
		if e != nil {
			d.layout = e
		}
	}
}

// WithAssets sets the loader used by image, sequence and audio references.
func WithAssets(a AssetLoader) Option {
	return func(d *Director) { d.assets = a }
}

// WithTextMetrics sets the metrics text elements measure with when they have
// none of their own.
func WithTextMetrics(m TextMetrics) Option {
	return func(d *Director) { d.metrics = m }
}

// WithMode sets the initial render mode.
func WithMode(m RenderMode) Option {
	return func(d *Director) { d.mode = m }
}

// WithSampleRate sets the mixer output rate.
func WithSampleRate(rate int) Option {
	return func(d *Director) { d.mixer = NewMixer(rate) }
}

// WithSpringBakeRate sets the bake rate used by springs whose config leaves
// BakeRate at zero.
func WithSpringBakeRate(hz float64) Option {
	return func(d *Director) {
		if hz > 0 && isFinite(hz) {
			d.springRate = hz
		}
	}
}

// WithDebug enables per-frame stats and tree sanity warnings at debug level.
func WithDebug(on bool) Option {
	return func(d *Director) { d.debug = on }
}

// NewDirector creates a Director producing width x height frames at fps.
func NewDirector(width, height, fps int, opts ...Option) (*Director, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("reel: invalid frame size %dx%d", width, height)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("reel: invalid frame rate %d", fps)
	}
	d := &Director{
		graph:      NewSceneGraph(),
		timeline:   NewTimeline(),
		mixer:      NewMixer(DefaultSampleRate),
		layout:     AbsoluteLayout{},
		metrics:    DefaultMetrics,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		width:      width,
		height:     height,
		fps:        fps,
		springRate: DefaultSpringBakeRate,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Edit runs fn while holding the Director's lock, so the edits it makes are
// never observed half-applied by a frame.
func (d *Director) Edit(fn func(d *Director) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d)
}

func (d *Director) Width() int  { return d.width }
func (d *Director) Height() int { return d.height }
func (d *Director) FPS() int    { return d.fps }

// Size returns the frame size in pixels.
func (d *Director) Size() Size { return Size{float64(d.width), float64(d.height)} }

// Mode returns the current render mode.
func (d *Director) Mode() RenderMode { return d.mode }

// SetMode switches between export and preview behavior.
func (d *Director) SetMode(m RenderMode) { d.mode = m }

// Logger returns the Director's logger.
func (d *Director) Logger() *slog.Logger { return d.logger }

// Graph returns the scene graph.
func (d *Director) Graph() *SceneGraph { return d.graph }

// Timeline returns the timeline.
func (d *Director) Timeline() *Timeline { return d.timeline }

// Mixer returns the audio mixer.
func (d *Director) Mixer() *Mixer { return d.mixer }

// Duration returns the length of the timeline in seconds.
func (d *Director) Duration() float64 { return d.timeline.Duration() }

// FrameCount returns the number of frames an export produces.
func (d *Director) FrameCount() int { return frameCount(d.timeline.Duration(), d.fps) }

// AddScene appends a scene of the given duration. Its root is a transparent
// box that fills the frame.
func (d *Director) AddScene(duration float64) (SceneID, error) {
	root := d.graph.Create(NewBox())
	id, err := d.timeline.AddScene(root, duration)
	if err != nil {
		_ = d.graph.Destroy(root)
		return 0, err
	}
	n := d.graph.lookup(root)
	n.Style = FillStyle()
	n.Name = fmt.Sprintf("scene %d", id)
	_ = d.timeline.SetName(id, n.Name)
	return id, nil
}

// SceneRoot returns the root node of a scene, or the zero NodeID when the
// scene does not exist.
func (d *Director) SceneRoot(id SceneID) NodeID {
	it, ok := d.timeline.Item(id)
	if !ok {
		return NodeID{}
	}
	return it.Root
}

// AddTransition joins two adjacent scenes. kind and easing are names, as
// accepted by ParseTransitionKind and ParseEasing.
func (d *Director) AddTransition(from, to SceneID, kind string, duration float64, easing string) error {
	k, err := ParseTransitionKind(kind)
	if err != nil {
		return err
	}
	e, err := ParseEasing(easing)
	if err != nil {
		return err
	}
	return d.timeline.AddTransition(from, to, k, duration, e)
}

// CreateNode adds a detached node carrying el.
func (d *Director) CreateNode(el Element) NodeID {
	id := d.graph.Create(el)
	if d.debug {
		d.logger.Debug("node created", "node", id, "kind", el.Kind())
	}
	return id
}

// Node returns the node for id.
func (d *Director) Node(id NodeID) (*SceneNode, error) { return d.graph.Get(id) }

// Attach appends child to parent's children.
func (d *Director) Attach(parent, child NodeID) error {
	if err := d.checkNotSceneRoot(child); err != nil {
		return err
	}
	if err := d.graph.Attach(parent, child); err != nil {
		return err
	}
	if d.debug {
		d.debugCheckTree(child)
	}
	return nil
}

// Destroy frees a node and its subtree. Scene roots cannot be destroyed.
func (d *Director) Destroy(id NodeID) error {
	if err := d.checkNotSceneRoot(id); err != nil {
		return err
	}
	return d.graph.Destroy(id)
}

func (d *Director) checkNotSceneRoot(id NodeID) error {
	for _, it := range d.timeline.items {
		if it.Root == id {
			return fmt.Errorf("%w: %v roots scene %d", ErrSceneRoot, id, it.ID)
		}
	}
	return nil
}

// SetMask makes mask the clipping node of id.
func (d *Director) SetMask(id, mask NodeID) error { return d.graph.SetMask(id, mask) }

// AddGlobalAudio plays src from start seconds of global time.
func (d *Director) AddGlobalAudio(src AudioSource, start float64) *AudioTrack {
	tr := NewAudioTrack(src)
	tr.Start = start
	d.mixer.Add(tr)
	return tr
}

// AddSceneAudio plays src from start seconds into a scene. The track is cut
// at the scene's boundaries and follows the scene when the timeline ripples.
func (d *Director) AddSceneAudio(scene SceneID, src AudioSource, start float64) (*AudioTrack, error) {
	if _, ok := d.timeline.Item(scene); !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownScene, scene)
	}
	tr := NewAudioTrack(src)
	tr.Start = start
	tr.BindScene(scene)
	d.mixer.Add(tr)
	return tr, nil
}

// AnimateVolume appends a volume segment to a track. Times are relative to
// the start of the track.
func (d *Director) AnimateVolume(tr *AudioTrack, from, to, duration float64, easing string) error {
	e, err := ParseEasing(easing)
	if err != nil {
		return err
	}
	if tr.Volume == nil {
		tr.Volume = NewFloat(from)
	}
	return tr.Volume.AddSegment(from, to, duration, e)
}

func (d *Director) updateContext() UpdateContext {
	return UpdateContext{
		FPS:         d.fps,
		Mode:        d.mode,
		Assets:      d.assets,
		TextMetrics: d.metrics,
	}
}
