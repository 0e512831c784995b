// Package teardown releases owned resources in reverse order of acquisition.
//
// A resource is pushed right after it is created, so anything created later
// (and therefore possibly depending on it) is released first: image views
// before images, images before their memory, everything before the device.
package teardown

import "sync"

// Releaser is anything that frees an owned device object
type Releaser interface {
	Destroy()
}

// Stack is a LIFO of release functions. The zero value is ready to use.
type Stack struct {
	mu   sync.Mutex
	fns  []func()
	name string
}

// NewStack returns a named stack, the name is only used by String
func NewStack(name string) *Stack {
	return &Stack{name: name}
}

// Push registers r to be released by Release
func (s *Stack) Push(r Releaser) {
	if r == nil {
		return
	}
	s.PushFunc(r.Destroy)
}

// PushFunc registers fn to be called by Release
func (s *Stack) PushFunc(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.fns = append(s.fns, fn)
	s.mu.Unlock()
}

// Release calls every registered function, most recent first, and empties the
// stack so it can be refilled
func (s *Stack) Release() {
	s.mu.Lock()
	fns := s.fns
	s.fns = nil
	s.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// Len returns the number of pending releases
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

func (s *Stack) String() string {
	if s.name == "" {
		return "teardown.Stack"
	}
	return "teardown.Stack(" + s.name + ")"
}
