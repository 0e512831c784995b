package input

// EventKind identifies a window event delivered to the main loop
type EventKind int

const (
	EventResize EventKind = iota
	EventClose
)

// Event is posted by window callbacks and drained by the main loop each tick
type Event struct {
	Kind          EventKind
	Width, Height int
}

// EventQueue is a bounded, non-blocking event channel.
// Window callbacks must never block, so a full queue drops the newest event;
// resize events carry no state the next one would not overwrite.
type EventQueue struct {
	ch chan Event
}

// NewEventQueue creates a queue holding up to size pending events
func NewEventQueue(size int) *EventQueue {
	if size < 1 {
		size = 1
	}
	return &EventQueue{ch: make(chan Event, size)}
}

// Post enqueues ev, returns false if the queue was full
func (q *EventQueue) Post(ev Event) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		return false
	}
}

// Events returns the receive side for the main loop
func (q *EventQueue) Events() <-chan Event {
	return q.ch
}

// Drain calls fn for every pending event without blocking
func Drain(events <-chan Event, fn func(Event)) {
	for {
		select {
		case ev := <-events:
			fn(ev)
		default:
			return
		}
	}
}
