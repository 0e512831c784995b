package input

import "sync"

// Action represents a logical engine action, not a physical key
type Action int

// Action constants using iota
const (
	ActionMoveForward Action = iota
	ActionMoveBackward
	ActionMoveLeft
	ActionMoveRight
	ActionMoveUp
	ActionMoveDown
	ActionRefreshBuffers
	ActionReleaseCursor
	ActionCaptureCursor
	ActionCount // Sentinel value for array sizing
)

var actionNames = [ActionCount]string{
	"MoveForward",
	"MoveBackward",
	"MoveLeft",
	"MoveRight",
	"MoveUp",
	"MoveDown",
	"RefreshBuffers",
	"ReleaseCursor",
	"CaptureCursor",
}

func (a Action) String() string {
	if a < 0 || a >= ActionCount {
		return "Unknown"
	}
	return actionNames[a]
}

// InputManager tracks held state and press/release edges per action.
// The window layer translates physical keys and buttons into HandleAction calls.
type InputManager struct {
	mu sync.RWMutex

	// Current frame state (indexed by Action)
	currentState [ActionCount]bool

	// Just pressed/released flags (reset each frame)
	justPressed  [ActionCount]bool
	justReleased [ActionCount]bool

	cursorX, cursorY float64
}

// NewInputManager creates an empty InputManager
func NewInputManager() *InputManager {
	return &InputManager{}
}

// HandleAction records a press or release of a bound key or button
func (im *InputManager) HandleAction(action Action, pressed bool) {
	if action < 0 || action >= ActionCount {
		return
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	// Detect edges immediately when event arrives
	if pressed && !im.currentState[action] {
		im.justPressed[action] = true
	}
	if !pressed && im.currentState[action] {
		im.justReleased[action] = true
	}
	im.currentState[action] = pressed
}

// HandleCursor records the latest cursor position
func (im *InputManager) HandleCursor(x, y float64) {
	im.mu.Lock()
	im.cursorX, im.cursorY = x, y
	im.mu.Unlock()
}

// CursorPos returns the latest cursor position
func (im *InputManager) CursorPos() (float64, float64) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.cursorX, im.cursorY
}

// PostUpdate must be called at the end of each frame to clear edge flags
func (im *InputManager) PostUpdate() {
	im.mu.Lock()
	defer im.mu.Unlock()

	for i := range ActionCount {
		im.justPressed[i] = false
		im.justReleased[i] = false
	}
}

// IsActive returns true if the action is currently being held down
func (im *InputManager) IsActive(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}

	im.mu.RLock()
	defer im.mu.RUnlock()

	return im.currentState[action]
}

// JustPressed returns true only if the action was pressed in the current frame
func (im *InputManager) JustPressed(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}

	im.mu.RLock()
	defer im.mu.RUnlock()

	return im.justPressed[action]
}

// JustReleased returns true only if the action was released in the current frame
func (im *InputManager) JustReleased(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}

	im.mu.RLock()
	defer im.mu.RUnlock()

	return im.justReleased[action]
}
