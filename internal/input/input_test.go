package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		name  string
		start State
		step  func(*UserInput)
		get   func(*UserInput) State
		want  State
	}{
		{"forward from neutral", Neutral, (*UserInput).Forward, func(u *UserInput) State { return u.Lengthways }, Positive},
		{"forward from negative", Negative, (*UserInput).Forward, func(u *UserInput) State { return u.Lengthways }, Neutral},
		{"forward saturates", Positive, (*UserInput).Forward, func(u *UserInput) State { return u.Lengthways }, Positive},
		{"backward from neutral", Neutral, (*UserInput).Backward, func(u *UserInput) State { return u.Lengthways }, Negative},
		{"backward from positive", Positive, (*UserInput).Backward, func(u *UserInput) State { return u.Lengthways }, Neutral},
		{"backward saturates", Negative, (*UserInput).Backward, func(u *UserInput) State { return u.Lengthways }, Negative},
		{"left is positive", Neutral, (*UserInput).Left, func(u *UserInput) State { return u.Sideways }, Positive},
		{"right is negative", Neutral, (*UserInput).Right, func(u *UserInput) State { return u.Sideways }, Negative},
		{"up is positive", Neutral, (*UserInput).Up, func(u *UserInput) State { return u.Vertical }, Positive},
		{"down is negative", Neutral, (*UserInput).Down, func(u *UserInput) State { return u.Vertical }, Negative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := UserInput{Lengthways: tt.start, Sideways: tt.start, Vertical: tt.start}
			tt.step(&u)
			assert.Equal(t, tt.want, tt.get(&u))
		})
	}
}

func TestSetNullKeepsMouse(t *testing.T) {
	u := UserInput{Lengthways: Positive, Sideways: Negative, Vertical: Positive, XPosDelta: 3, YPosDelta: -2}
	u.SetNull()
	assert.Equal(t, Neutral, u.Lengthways)
	assert.Equal(t, Neutral, u.Sideways)
	assert.Equal(t, Neutral, u.Vertical)
	assert.Equal(t, float32(3), u.XPosDelta)
	assert.Equal(t, float32(-2), u.YPosDelta)
}

func TestMouseDeltaUpdatesOld(t *testing.T) {
	var u UserInput
	oldX, oldY := 100.0, 50.0
	u.MouseDelta(110, 45, &oldX, &oldY)
	assert.Equal(t, float32(10), u.XPosDelta)
	assert.Equal(t, float32(-5), u.YPosDelta)
	assert.Equal(t, 110.0, oldX)
	assert.Equal(t, 45.0, oldY)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "NEGATIVE", Negative.String())
	assert.Equal(t, "NEUTRAL", Neutral.String())
	assert.Equal(t, "POSITIVE", Positive.String())
}

func TestInputManagerEdges(t *testing.T) {
	im := NewInputManager()

	im.HandleAction(ActionRefreshBuffers, true)
	assert.True(t, im.IsActive(ActionRefreshBuffers))
	assert.True(t, im.JustPressed(ActionRefreshBuffers))

	im.PostUpdate()
	assert.True(t, im.IsActive(ActionRefreshBuffers))
	assert.False(t, im.JustPressed(ActionRefreshBuffers))

	// key repeat does not produce a new edge
	im.HandleAction(ActionRefreshBuffers, true)
	assert.False(t, im.JustPressed(ActionRefreshBuffers))

	im.HandleAction(ActionRefreshBuffers, false)
	assert.False(t, im.IsActive(ActionRefreshBuffers))
	assert.True(t, im.JustReleased(ActionRefreshBuffers))

	im.HandleAction(ActionCount, true)
	assert.False(t, im.IsActive(ActionCount))
	assert.False(t, im.JustPressed(Action(-1)))
	assert.Equal(t, "Unknown", ActionCount.String())
	assert.Equal(t, "MoveForward", ActionMoveForward.String())
}

func TestPollerDerivesAxes(t *testing.T) {
	im := NewInputManager()
	im.HandleCursor(10, 20)
	p := NewPoller(im)

	im.HandleAction(ActionMoveForward, true)
	im.HandleAction(ActionMoveLeft, true)
	im.HandleAction(ActionMoveDown, true)
	im.HandleCursor(13, 18)

	in := p.Poll()
	assert.Equal(t, Positive, in.Lengthways)
	assert.Equal(t, Positive, in.Sideways)
	assert.Equal(t, Negative, in.Vertical)
	assert.Equal(t, float32(3), in.XPosDelta)
	assert.Equal(t, float32(-2), in.YPosDelta)

	// level-triggered: releasing keys clears axes next tick, no cursor travel
	im.HandleAction(ActionMoveForward, false)
	im.HandleAction(ActionMoveLeft, false)
	im.HandleAction(ActionMoveDown, false)
	in = p.Poll()
	assert.Equal(t, UserInput{}, *in)
}

func TestPollerOppositeKeysCancel(t *testing.T) {
	im := NewInputManager()
	p := NewPoller(im)

	im.HandleAction(ActionMoveForward, true)
	im.HandleAction(ActionMoveBackward, true)
	im.HandleAction(ActionMoveLeft, true)
	im.HandleAction(ActionMoveRight, true)

	in := p.Poll()
	assert.Equal(t, Neutral, in.Lengthways)
	assert.Equal(t, Neutral, in.Sideways)
}

func TestPollerMirrored(t *testing.T) {
	im := NewInputManager()
	p := NewPoller(im)
	p.Mirrored = true

	im.HandleAction(ActionMoveLeft, true)
	im.HandleCursor(5, 7)

	in := p.Poll()
	assert.Equal(t, Negative, in.Sideways)
	assert.Equal(t, float32(-5), in.XPosDelta)
	assert.Equal(t, float32(7), in.YPosDelta)
}

func TestPollerResetCursor(t *testing.T) {
	im := NewInputManager()
	p := NewPoller(im)
	im.HandleCursor(400, 300)
	p.ResetCursor()

	in := p.Poll()
	assert.Zero(t, in.XPosDelta)
	assert.Zero(t, in.YPosDelta)
	assert.Same(t, in, p.Input())
}

func TestEventQueue(t *testing.T) {
	q := NewEventQueue(2)
	require.True(t, q.Post(Event{Kind: EventResize, Width: 800, Height: 600}))
	require.True(t, q.Post(Event{Kind: EventResize, Width: 0, Height: 0}))
	assert.False(t, q.Post(Event{Kind: EventClose}))

	var got []Event
	Drain(q.Events(), func(ev Event) { got = append(got, ev) })
	require.Len(t, got, 2)
	assert.Equal(t, 800, got[0].Width)
	assert.Equal(t, 0, got[1].Height)

	// draining an empty queue returns immediately
	Drain(q.Events(), func(Event) { t.Fatal("unexpected event") })
}
