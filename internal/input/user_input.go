package input

// State is one tri-state input axis
type State int8

const (
	Negative State = -1
	Neutral  State = 0
	Positive State = 1
)

func (s State) String() string {
	switch s {
	case Negative:
		return "NEGATIVE"
	case Positive:
		return "POSITIVE"
	default:
		return "NEUTRAL"
	}
}

// UserInput accumulates one tick of movement intent.
// Axes are reset by SetNull every tick and re-derived from key state, so input
// is level-triggered. The transition methods step an axis one notch toward
// their direction, which lets opposite keys polled in the same tick cancel.
type UserInput struct {
	Lengthways State // forward / back
	Sideways   State // left / right
	Vertical   State // up / down

	XPosDelta float32
	YPosDelta float32
}

func stepUp(s State) State {
	if s == Negative {
		return Neutral
	}
	return Positive
}

func stepDown(s State) State {
	if s == Positive {
		return Neutral
	}
	return Negative
}

// Forward steps lengthways toward Positive
func (u *UserInput) Forward() { u.Lengthways = stepUp(u.Lengthways) }

// Backward steps lengthways toward Negative
func (u *UserInput) Backward() { u.Lengthways = stepDown(u.Lengthways) }

// Left steps sideways toward Positive (along the camera right vector)
func (u *UserInput) Left() { u.Sideways = stepUp(u.Sideways) }

// Right steps sideways toward Negative
func (u *UserInput) Right() { u.Sideways = stepDown(u.Sideways) }

// Up steps vertical toward Positive
func (u *UserInput) Up() { u.Vertical = stepUp(u.Vertical) }

// Down steps vertical toward Negative
func (u *UserInput) Down() { u.Vertical = stepDown(u.Vertical) }

// SetNull resets the three axes to Neutral. Mouse deltas are left alone.
func (u *UserInput) SetNull() {
	u.Lengthways = Neutral
	u.Sideways = Neutral
	u.Vertical = Neutral
}

// MouseDelta stores the cursor travel since the previous poll and updates the
// previous position in place
func (u *UserInput) MouseDelta(xNew, yNew float64, xOld, yOld *float64) {
	u.XPosDelta = float32(xNew - *xOld)
	u.YPosDelta = float32(yNew - *yOld)
	*xOld = xNew
	*yOld = yNew
}
