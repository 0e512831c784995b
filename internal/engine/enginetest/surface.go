package enginetest

// Surface is a scripted window surface
type Surface struct {
	sizes [][2]int
	last  [2]int

	// WaitEventsCalls counts how often the engine blocked for window events
	WaitEventsCalls int
}

// NewSurface creates a surface reporting width x height
func NewSurface(width, height int) *Surface {
	return &Surface{last: [2]int{width, height}}
}

// QueueSizes scripts the sizes returned by upcoming FramebufferSize calls.
// The final size sticks once the script runs out.
func (s *Surface) QueueSizes(sizes ...[2]int) {
	s.sizes = append(s.sizes, sizes...)
}

func (s *Surface) FramebufferSize() (int, int) {
	if len(s.sizes) > 0 {
		s.last = s.sizes[0]
		s.sizes = s.sizes[1:]
	}
	return s.last[0], s.last[1]
}

func (s *Surface) WaitEvents() {
	s.WaitEventsCalls++
}
