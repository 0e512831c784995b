// Package window owns the GLFW window and turns its callbacks into input
// actions and queued events for the main loop.
package window

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"

	"voxel-engine/internal/config"
	"voxel-engine/internal/input"
	"voxel-engine/internal/logging"
)

// eventQueueSize bounds pending window events between two ticks
const eventQueueSize = 16

// Window is a GLFW window without a client API, ready for a Vulkan surface.
// All methods must be called from the main thread.
type Window struct {
	win      *glfw.Window
	input    *input.InputManager
	bindings *Bindings
	events   *input.EventQueue
	log      logging.Logger

	captured bool
}

// New creates the window with the configured size and title.
// glfw.Init must have been called.
func New(log logging.Logger) (*Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	width, height := config.GetWindowSize()
	win, err := glfw.CreateWindow(width, height, config.GetWindowTitle(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	w := &Window{
		win:      win,
		input:    input.NewInputManager(),
		bindings: DefaultBindings(),
		events:   input.NewEventQueue(eventQueueSize),
		log:      logging.OrNop(log),
	}
	w.installCallbacks()

	x, y := win.GetCursorPos()
	w.input.HandleCursor(x, y)
	w.SetCursorCaptured(true)
	return w, nil
}

func (w *Window) installCallbacks() {
	w.win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		w.bindings.HandleKey(w.input, key, action)
	})
	w.win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		w.bindings.HandleMouseButton(w.input, button, action)
	})
	w.win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.input.HandleCursor(x, y)
	})
	w.win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if !w.events.Post(input.Event{Kind: input.EventResize, Width: width, Height: height}) {
			w.log.Debugf("event queue full, dropped resize %dx%d", width, height)
		}
	})
	w.win.SetCloseCallback(func(_ *glfw.Window) {
		w.events.Post(input.Event{Kind: input.EventClose})
	})
}

// GLFW returns the underlying window for surface creation
func (w *Window) GLFW() *glfw.Window {
	return w.win
}

// Events returns window events posted since the last drain
func (w *Window) Events() <-chan Event {
	return w.events.Events()
}

// Event aliases input.Event so callers need only this package
type Event = input.Event

// PollEvents processes pending window events without blocking
func (w *Window) PollEvents() {
	glfw.PollEvents()
}

// WaitEvents blocks until at least one window event arrives
func (w *Window) WaitEvents() {
	glfw.WaitEvents()
}

// FramebufferSize returns the drawable size in pixels
func (w *Window) FramebufferSize() (int, int) {
	return w.win.GetFramebufferSize()
}

// ShouldClose reports whether the user asked to close the window
func (w *Window) ShouldClose() bool {
	return w.win.ShouldClose()
}

// SetCursorCaptured hides and locks the cursor for mouse look, or releases it
func (w *Window) SetCursorCaptured(captured bool) {
	if captured == w.captured {
		return
	}
	w.captured = captured
	mode := glfw.CursorNormal
	if captured {
		mode = glfw.CursorDisabled
	}
	w.win.SetInputMode(glfw.CursorMode, mode)
}

// IsActive reports whether action is held
func (w *Window) IsActive(action input.Action) bool {
	return w.input.IsActive(action)
}

// JustPressed reports whether action was pressed since the last PostUpdate
func (w *Window) JustPressed(action input.Action) bool {
	return w.input.JustPressed(action)
}

// CursorPos returns the last reported cursor position
func (w *Window) CursorPos() (float64, float64) {
	return w.input.CursorPos()
}

// PostUpdate clears the press edges at the end of a tick
func (w *Window) PostUpdate() {
	w.input.PostUpdate()
}

// Destroy closes the window
func (w *Window) Destroy() {
	w.win.Destroy()
}
