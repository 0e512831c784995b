package window

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"voxel-engine/internal/input"
)

// Bindings maps physical keys and mouse buttons to logical actions.
// One key can map to multiple actions.
type Bindings struct {
	keys    map[glfw.Key][]input.Action
	buttons map[glfw.MouseButton][]input.Action
}

// NewBindings creates an empty binding table
func NewBindings() *Bindings {
	return &Bindings{
		keys:    make(map[glfw.Key][]input.Action),
		buttons: make(map[glfw.MouseButton][]input.Action),
	}
}

// DefaultBindings returns the free-fly camera layout
func DefaultBindings() *Bindings {
	b := NewBindings()
	b.BindKey(glfw.KeyW, input.ActionMoveForward)
	b.BindKey(glfw.KeyS, input.ActionMoveBackward)
	b.BindKey(glfw.KeyA, input.ActionMoveLeft)
	b.BindKey(glfw.KeyD, input.ActionMoveRight)
	b.BindKey(glfw.KeySpace, input.ActionMoveUp)
	b.BindKey(glfw.KeyLeftControl, input.ActionMoveDown)
	b.BindKey(glfw.KeyU, input.ActionRefreshBuffers)
	b.BindKey(glfw.KeyEscape, input.ActionReleaseCursor)
	b.BindMouseButton(glfw.MouseButtonLeft, input.ActionCaptureCursor)
	return b
}

// BindKey adds an action to a key
func (b *Bindings) BindKey(key glfw.Key, action input.Action) {
	b.keys[key] = append(b.keys[key], action)
}

// BindMouseButton adds an action to a mouse button
func (b *Bindings) BindMouseButton(button glfw.MouseButton, action input.Action) {
	b.buttons[button] = append(b.buttons[button], action)
}

// HandleKey forwards a key event to every action bound to key.
// Key repeat counts as held.
func (b *Bindings) HandleKey(im *input.InputManager, key glfw.Key, action glfw.Action) {
	pressed := action == glfw.Press || action == glfw.Repeat
	for _, act := range b.keys[key] {
		im.HandleAction(act, pressed)
	}
}

// HandleMouseButton forwards a button event to every action bound to button
func (b *Bindings) HandleMouseButton(im *input.InputManager, button glfw.MouseButton, action glfw.Action) {
	pressed := action == glfw.Press
	for _, act := range b.buttons[button] {
		im.HandleAction(act, pressed)
	}
}
