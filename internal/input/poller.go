package input

// KeySource is the window-side view of input the poller reads every tick
type KeySource interface {
	IsActive(action Action) bool
	JustPressed(action Action) bool
	CursorPos() (float64, float64)
	PostUpdate()
}

// Poller derives a UserInput from a KeySource once per tick
type Poller struct {
	src   KeySource
	input UserInput

	lastX, lastY float64

	// Mirrored negates the horizontal mouse delta and swaps left/right,
	// matching the raycast image orientation
	Mirrored bool
}

// NewPoller creates a poller seeded with the current cursor position so the
// first tick has no mouse delta
func NewPoller(src KeySource) *Poller {
	p := &Poller{src: src}
	p.lastX, p.lastY = src.CursorPos()
	return p
}

// Poll refreshes the mouse delta, resets the axes and re-derives them from the
// held keys. Forward is checked before back, left before right, up before down.
func (p *Poller) Poll() *UserInput {
	x, y := p.src.CursorPos()
	p.input.MouseDelta(x, y, &p.lastX, &p.lastY)
	if p.Mirrored {
		p.input.XPosDelta = -p.input.XPosDelta
	}

	p.input.SetNull()

	if p.src.IsActive(ActionMoveForward) {
		p.input.Forward()
	}
	if p.src.IsActive(ActionMoveBackward) {
		p.input.Backward()
	}

	left, right := ActionMoveLeft, ActionMoveRight
	if p.Mirrored {
		left, right = right, left
	}
	if p.src.IsActive(left) {
		p.input.Left()
	}
	if p.src.IsActive(right) {
		p.input.Right()
	}

	if p.src.IsActive(ActionMoveUp) {
		p.input.Up()
	}
	if p.src.IsActive(ActionMoveDown) {
		p.input.Down()
	}

	return &p.input
}

// ResetCursor discards pending cursor travel, used after the cursor is
// captured again so the view does not jump
func (p *Poller) ResetCursor() {
	p.lastX, p.lastY = p.src.CursorPos()
	p.input.XPosDelta = 0
	p.input.YPosDelta = 0
}

// Input returns the most recently polled state
func (p *Poller) Input() *UserInput {
	return &p.input
}
