package ebitenrender

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/phanxgames/reel"
)

// Player previews a Director in a window. It implements ebiten.Game.
//
// Keys: Space toggles playback, Left and Right seek one second (one frame
// with Shift), Home and End jump to the ends, L toggles looping, O toggles
// the overlay, S writes a snapshot and Escape quits.
type Player struct {
	Director *reel.Director
	Renderer *Renderer
	// Overlay draws time, frame and FPS in the top-left corner.
	Overlay bool
	// Loop restarts playback at the end of the timeline.
	Loop bool
	// Muted disables audio output.
	Muted bool
	// SnapshotDir receives PNGs written with the S key or a script.
	SnapshotDir string
	// Script drives the player automatically when set.
	Script *Script

	ctx     context.Context
	time    float64
	playing bool
	err     error
	last    *reel.Frame

	audioCtx *audio.Context
	audio    *audio.Player
}

// NewPlayer creates a paused player at time zero.
func NewPlayer(ctx context.Context, d *reel.Director) *Player {
	return &Player{
		Director:    d,
		Renderer:    New(),
		Overlay:     true,
		SnapshotDir: "snapshots",
		ctx:         ctx,
	}
}

// Run opens the window and blocks until it is closed, the context is
// cancelled or a script finishes.
func (p *Player) Run(title string) error {
	d := p.Director
	d.SetMode(reel.ModePreview)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(d.Width(), d.Height())
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(d.FPS())
	if !p.Muted {
		p.audioCtx = audioContext(d.Mixer().SampleRate())
	}
	err := ebiten.RunGame(p)
	p.stopAudio()
	if errors.Is(err, ebiten.Termination) {
		return p.err
	}
	return err
}

// Time returns the current playback position.
func (p *Player) Time() float64 { return p.time }

// Playing reports whether playback is running.
func (p *Player) Playing() bool { return p.playing }

func (p *Player) Update() error {
	if p.err != nil {
		return p.err
	}
	if err := p.ctx.Err(); err != nil {
		return ebiten.Termination
	}
	if p.Script != nil {
		if err := p.Script.step(p); err != nil {
			p.err = err
			return err
		}
		if p.Script.Done() {
			return ebiten.Termination
		}
	}
	for _, c := range pressedControls() {
		if c == controlQuit {
			return ebiten.Termination
		}
		p.apply(c)
	}
	if p.playing {
		p.advance(1 / float64(p.Director.FPS()))
	}
	return nil
}

func (p *Player) Draw(screen *ebiten.Image) {
	f, err := p.Director.Seek(p.ctx, p.time, p.Renderer)
	if err != nil {
		p.err = fmt.Errorf("preview at %.3fs: %w", p.time, err)
		return
	}
	p.last = f
	screen.DrawImage(p.Renderer.Frame(), nil)
	if p.Overlay {
		ebitenutil.DebugPrint(screen, p.status())
	}
}

func (p *Player) Layout(outsideWidth, outsideHeight int) (int, int) {
	return p.Director.Width(), p.Director.Height()
}

func (p *Player) status() string {
	state := "paused"
	if p.playing {
		state = "playing"
	}
	s := fmt.Sprintf("%s %.2f / %.2fs  frame %d\nFPS: %.1f  TPS: %.1f",
		state, p.time, p.Director.Duration(), frameIndex(p.time, p.Director.FPS()),
		ebiten.ActualFPS(), ebiten.ActualTPS())
	if p.last != nil && len(p.last.Skipped) > 0 {
		s += fmt.Sprintf("\nskipped: %d", len(p.last.Skipped))
	}
	return s
}

// control is a player action bound to a key.
type control uint8

const (
	controlToggle control = iota
	controlBack
	controlForward
	controlFrameBack
	controlFrameForward
	controlStart
	controlEnd
	controlLoop
	controlOverlay
	controlSnapshot
	controlQuit
)

func pressedControls() []control {
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)
	var out []control
	bind := func(k ebiten.Key, c control) {
		if inpututil.IsKeyJustPressed(k) {
			out = append(out, c)
		}
	}
	bind(ebiten.KeySpace, controlToggle)
	if shift {
		bind(ebiten.KeyArrowLeft, controlFrameBack)
		bind(ebiten.KeyArrowRight, controlFrameForward)
	} else {
		bind(ebiten.KeyArrowLeft, controlBack)
		bind(ebiten.KeyArrowRight, controlForward)
	}
	bind(ebiten.KeyHome, controlStart)
	bind(ebiten.KeyEnd, controlEnd)
	bind(ebiten.KeyL, controlLoop)
	bind(ebiten.KeyO, controlOverlay)
	bind(ebiten.KeyS, controlSnapshot)
	bind(ebiten.KeyEscape, controlQuit)
	return out
}

func (p *Player) apply(c control) {
	frame := 1 / float64(p.Director.FPS())
	switch c {
	case controlToggle:
		p.SetPlaying(!p.playing)
	case controlBack:
		p.Seek(p.time - 1)
	case controlForward:
		p.Seek(p.time + 1)
	case controlFrameBack:
		p.Seek(p.time - frame)
	case controlFrameForward:
		p.Seek(p.time + frame)
	case controlStart:
		p.Seek(0)
	case controlEnd:
		p.Seek(p.lastFrameTime())
	case controlLoop:
		p.Loop = !p.Loop
	case controlOverlay:
		p.Overlay = !p.Overlay
	case controlSnapshot:
		if _, err := p.Snapshot(""); err != nil {
			p.Director.Logger().Warn("snapshot failed", "err", err)
		}
	}
}

// SetPlaying starts or pauses playback.
func (p *Player) SetPlaying(on bool) {
	if on && p.time >= p.lastFrameTime() {
		p.time = 0
	}
	p.playing = on
	p.restartAudio()
}

// Seek moves the playhead, clamped to the timeline.
func (p *Player) Seek(t float64) {
	p.time = max(0, min(t, p.lastFrameTime()))
	p.restartAudio()
}

// Snapshot writes the frame at the playhead to SnapshotDir.
func (p *Player) Snapshot(label string) (string, error) {
	if label == "" {
		label = fmt.Sprintf("preview_%d", frameIndex(p.time, p.Director.FPS()))
	}
	return p.Director.Snapshot(p.ctx, p.time, p.Renderer, p.SnapshotDir, label)
}

func (p *Player) advance(dt float64) {
	end := p.lastFrameTime()
	p.time += dt
	if p.time <= end {
		return
	}
	if p.Loop && end > 0 {
		p.time = 0
		p.restartAudio()
		return
	}
	p.time = end
	p.playing = false
	p.restartAudio()
}

func (p *Player) lastFrameTime() float64 {
	n := p.Director.FrameCount()
	if n == 0 {
		return 0
	}
	return float64(n-1) / float64(p.Director.FPS())
}

func frameIndex(t float64, fps int) int {
	return int(math.Floor(t*float64(fps) + 1e-9))
}

func (p *Player) restartAudio() {
	p.stopAudio()
	if !p.playing || p.audioCtx == nil {
		return
	}
	pl, err := p.audioCtx.NewPlayerF32(newMixStream(p.Director, p.time))
	if err != nil {
		p.Director.Logger().Warn("audio unavailable", "err", err)
		return
	}
	pl.Play()
	p.audio = pl
}

func (p *Player) stopAudio() {
	if p.audio != nil {
		_ = p.audio.Close()
		p.audio = nil
	}
}

var (
	audioOnce sync.Once
	sharedCtx *audio.Context
)

// audioContext returns the process-wide audio context. Ebitengine allows
// only one, at a single sample rate.
func audioContext(rate int) *audio.Context {
	audioOnce.Do(func() {
		if c := audio.CurrentContext(); c != nil {
			sharedCtx = c
			return
		}
		sharedCtx = audio.NewContext(rate)
	})
	if sharedCtx.SampleRate() != rate {
		return nil
	}
	return sharedCtx
}

// mixStream streams the Director's mix as little-endian float32 stereo.
type mixStream struct {
	d    *reel.Director
	rate int
	pos  int
}

func newMixStream(d *reel.Director, start float64) *mixStream {
	rate := d.Mixer().SampleRate()
	return &mixStream{d: d, rate: rate, pos: int(math.Round(start * float64(rate)))}
}

// Read fills b with whole stereo frames. Past the end of the timeline the
// mix is silent, so the stream never ends on its own.
func (s *mixStream) Read(b []byte) (int, error) {
	const frameBytes = 4 * reel.Channels
	frames := len(b) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	samples := s.d.MixAudio(float64(s.pos)/float64(s.rate), frames)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	s.pos += frames
	return frames * frameBytes, nil
}
