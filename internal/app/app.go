// Package app runs the main loop: frame timing, window events, input, camera
// update and one engine tick per iteration.
package app

import (
	"fmt"
	"time"

	"voxel-engine/internal/camera"
	"voxel-engine/internal/config"
	"voxel-engine/internal/engine"
	"voxel-engine/internal/input"
	"voxel-engine/internal/logging"
	"voxel-engine/internal/profiling"
	"voxel-engine/internal/scene"
)

// slowFrame is the tick duration above which the top profiling entries are logged
const slowFrame = 16 * time.Millisecond

// Window is the part of the window the loop drives
type Window interface {
	input.KeySource
	PollEvents()
	Events() <-chan input.Event
	ShouldClose() bool
	SetCursorCaptured(captured bool)
}

// Renderer draws the scene. *engine.Engine implements it.
type Renderer interface {
	Mode() engine.Mode
	Tick(cam *camera.Camera) error
	NotifyResized()
	UpdateBuffers(s *scene.Scene) error
}

type App struct {
	window   Window
	renderer Renderer
	scene    *scene.Scene
	poller   *input.Poller
	log      logging.Logger

	pacer    *FramePacer
	lastTime time.Time
	now      func() time.Time

	captured bool
	closed   bool
	ticks    uint64
}

// New creates the loop for s. The cursor starts captured; in raycast mode the
// poller is mirrored to match the image orientation.
func New(w Window, r Renderer, s *scene.Scene, log logging.Logger) *App {
	poller := input.NewPoller(w)
	poller.Mirrored = r.Mode() == engine.ModeRaycast
	w.SetCursorCaptured(true)

	return &App{
		window:   w,
		renderer: r,
		scene:    s,
		poller:   poller,
		log:      logging.OrNop(log),
		pacer:    NewFramePacer(),
		lastTime: time.Now(),
		now:      time.Now,
		captured: true,
	}
}

// Run ticks until the window is closed or a tick fails
func (a *App) Run() error {
	a.log.Infof("main loop started: mode=%s scene=%s", a.renderer.Mode(), a.scene.ID())
	for !a.window.ShouldClose() && !a.closed {
		if err := a.Tick(); err != nil {
			return err
		}
	}
	a.log.Infof("main loop stopped after %d ticks, last frame period %v", a.ticks, a.pacer.FrameTime())
	return nil
}

// Tick runs one iteration: events, input, camera, refresh request, frame
func (a *App) Tick() error {
	profiling.ResetFrame()
	startTick := time.Now() // pure processing time
	now := a.now()
	dt := now.Sub(a.lastTime).Seconds()
	a.lastTime = now

	a.window.PollEvents()
	input.Drain(a.window.Events(), a.handleEvent)
	if a.closed {
		return nil
	}

	a.updateCursor()
	a.updateCamera(float32(dt))

	if a.window.JustPressed(input.ActionRefreshBuffers) {
		if err := a.renderer.UpdateBuffers(a.scene); err != nil {
			return fmt.Errorf("refresh buffers: %w", err)
		}
	}

	if err := a.renderer.Tick(a.scene.Camera()); err != nil {
		return fmt.Errorf("frame %d: %w", a.ticks, err)
	}
	a.ticks++

	if d := time.Since(startTick); d > slowFrame {
		a.log.Debugf("Slow frame: %v (last period %v). Top tasks: %s", d, a.pacer.FrameTime(), profiling.TopN(5))
	}

	a.window.PostUpdate()
	a.pacer.Wait(!a.captured)
	return nil
}

// Ticks returns the number of frames handed to the renderer
func (a *App) Ticks() uint64 {
	return a.ticks
}

func (a *App) handleEvent(ev input.Event) {
	switch ev.Kind {
	case input.EventResize:
		a.renderer.NotifyResized()
	case input.EventClose:
		a.closed = true
	}
}

func (a *App) updateCursor() {
	switch {
	case a.captured && a.window.JustPressed(input.ActionReleaseCursor):
		a.captured = false
		a.window.SetCursorCaptured(false)
	case !a.captured && a.window.JustPressed(input.ActionCaptureCursor):
		a.captured = true
		a.window.SetCursorCaptured(true)
		a.poller.ResetCursor()
	}
}

func (a *App) updateCamera(dt float32) {
	defer profiling.Track("app.updateCamera")()

	in := a.poller.Poll()
	if !a.captured {
		in.XPosDelta, in.YPosDelta = 0, 0
	}
	cam := a.scene.Camera()
	cam.Rotate(in, config.GetMouseSpeed())
	cam.Move(in, dt, config.GetMoveSpeed())
}
