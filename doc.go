// Package reel is a timeline-and-animation engine for generating video
// programmatically.
//
// Reel resolves what exists, where, and how it looks at any point on a global
// timeline. Pixels are produced by a [Renderer] and frames are encoded by an
// [Encoder]; both are collaborators reached through interfaces, so the same
// project can be previewed live with the ebitenrender package and exported
// with the raster and ffmpeg packages.
//
// # Quick start
//
//	d, err := reel.NewDirector(1920, 1080, 30)
//	if err != nil {
//		return err
//	}
//	intro, _ := d.AddScene(4)
//	title := d.CreateNode(reel.NewText("Hello", 96))
//	_ = d.Attach(d.SceneRoot(intro), title)
//	_ = d.Animate(title, "opacity", 0, 1, 0.5, "ease_out")
//	_ = d.Spring(title, "y", 0, reel.DefaultSpringConfig())
//
//	frame, err := d.Seek(ctx, 1.25, raster.New())
//
// # Scene graph
//
// Nodes live in a [SceneGraph] arena and are addressed by [NodeID] handles.
// Handles carry a generation, so a handle to a destroyed node keeps failing
// with [ErrInvalidHandle] even after its slot is reused. Each node carries an
// [Element] payload (box, text, image, video, vector, effect, composition,
// frame sequence) and a set of animated transform properties.
//
// # Timeline
//
// A [Timeline] is an ordered list of scenes. Adding a [Transition] between
// two adjacent scenes overlaps them: the incoming scene and every scene after
// it move left by the transition duration. [Timeline.ActiveScenes] answers
// which scenes are visible at a global time and with what blend weight.
//
// # Animation
//
// Every animatable property is an [Animated] value: an initial value plus an
// ordered list of contiguous segments. Keyframes and springs share the same
// representation; springs are baked into dense linear segments when they are
// added, so evaluation is random access and costs the same at any time.
//
// # Frames
//
// [Director.Seek] and [Director.Frame] run the five frame phases in order:
// update, layout, post-layout, render and audio. Element failures are logged
// and skipped; they never abort a frame. [Director.Export] renders every frame
// of the timeline into an [Encoder].
package reel
