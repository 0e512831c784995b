// Package enginetest provides a simulated GPU for exercising the frame engine
// without a device. It models fences, binary semaphores and queue completion,
// and records every protocol violation a real driver would reject or race on.
package enginetest

import (
	"errors"
	"fmt"
	"slices"

	"voxel-engine/internal/engine"
)

// ErrInjected is returned by operations armed with FailNext
var ErrInjected = errors.New("enginetest: injected failure")

type object struct {
	gpu       *GPU
	kind      string
	id        int
	destroyed bool
}

func (o *object) Destroy() {
	if o.destroyed {
		o.gpu.violate("%s %d destroyed twice", o.kind, o.id)
		return
	}
	o.destroyed = true
	delete(o.gpu.live, o)
	o.gpu.Destroyed = append(o.gpu.Destroyed, o.kind)
}

func (o *object) String() string { return fmt.Sprintf("%s#%d", o.kind, o.id) }

// Fence is a simulated fence
type Fence struct {
	object
	signaled bool
	pending  bool
}

// Signaled reports whether the fence is signaled
func (f *Fence) Signaled() bool { return f.signaled }

// Semaphore is a simulated binary semaphore. armed means a signal has been
// issued that no wait has consumed yet.
type Semaphore struct {
	object
	armed bool
}

// CommandBuffer is a simulated command buffer
type CommandBuffer struct {
	object
	queue    engine.Queue
	inFlight bool
	recorded bool
	draw     *engine.Draw
	dispatch *engine.Dispatch
}

func (c *CommandBuffer) Reset() error {
	if err := c.gpu.fail("Reset"); err != nil {
		return err
	}
	if c.inFlight {
		c.gpu.violate("%s reset while in flight", c)
	}
	c.recorded = false
	c.draw, c.dispatch = nil, nil
	return nil
}

// UniformBuffer is simulated mapped memory
type UniformBuffer struct {
	object
	Data   []byte
	Writes int
	inUse  int
}

func (u *UniformBuffer) Write(p []byte) {
	if u.inUse > 0 {
		u.gpu.violate("%s written while read by %d submissions", u, u.inUse)
	}
	u.Data = append(u.Data[:0], p...)
	u.Writes++
}

// Buffer is a simulated device-local buffer
type Buffer struct {
	object
	Usage engine.BufferUsage
	Data  []byte
}

func (b *Buffer) Size() int { return len(b.Data) }

// Bindings is a simulated descriptor set
type Bindings struct {
	object
	Uniforms *UniformBuffer
	Voxels   *Buffer

	// display guards the last display pass that samples this set's storage image
	display *Fence
}

// work is one submission that has not completed on the simulated GPU
type work struct {
	queue   engine.Queue
	fence   *Fence
	cb      *CommandBuffer
	signals []*Semaphore
	reads   *UniformBuffer
}

// SubmitRecord is the observable part of one Submit call
type SubmitRecord struct {
	Queue       engine.Queue
	HasCommands bool
	Waits       []engine.Stage
	WaitIDs     []int
	SignalIDs   []int
	FenceID     int // 0 when no fence
}

// GPU implements engine.Backend on the CPU
type GPU struct {
	// ImageCount is the number of swapchain images
	ImageCount int
	// CompleteAfter auto-completes the oldest submissions once more than this
	// many are pending. Negative means submissions only complete when a fence
	// wait or WaitIdle forces them.
	CompleteAfter int

	extent     engine.Extent
	nextExtent engine.Extent
	nextImage  uint32
	nextID     int

	acquireResults []error
	presentResults []error
	failures       map[string]error

	pending []*work
	live    map[*object]struct{}

	Submits      []SubmitRecord
	Draws        []engine.Draw
	Dispatches   []engine.Dispatch
	Uploads      []*Buffer
	Presents     []uint32
	Recreates    int
	WaitIdles    int
	MaxPending   int
	Destroyed    []string
	Violations   []string
	UniformsMade []*UniformBuffer
}

// NewGPU creates a simulated backend with a 1920x1080 swapchain of 3 images
func NewGPU() *GPU {
	ext := engine.Extent{Width: 1920, Height: 1080}
	return &GPU{
		ImageCount:    3,
		CompleteAfter: -1,
		extent:        ext,
		nextExtent:    ext,
		failures:      make(map[string]error),
		live:          make(map[*object]struct{}),
	}
}

func (g *GPU) violate(format string, args ...any) {
	g.Violations = append(g.Violations, fmt.Sprintf(format, args...))
}

func (g *GPU) fail(op string) error {
	if err, ok := g.failures[op]; ok {
		delete(g.failures, op)
		return err
	}
	return nil
}

func (g *GPU) newObject(kind string) object {
	g.nextID++
	return object{gpu: g, kind: kind, id: g.nextID}
}

func (g *GPU) track(o *object) {
	g.live[o] = struct{}{}
}

// FailNext makes the next call of op (a method name such as "Submit" or
// "NewFence") return err, or ErrInjected when err is nil
func (g *GPU) FailNext(op string, err error) {
	if err == nil {
		err = ErrInjected
	}
	g.failures[op] = err
}

// QueueAcquire scripts the results of upcoming Acquire calls
func (g *GPU) QueueAcquire(results ...error) {
	g.acquireResults = append(g.acquireResults, results...)
}

// QueuePresent scripts the results of upcoming Present calls
func (g *GPU) QueuePresent(results ...error) {
	g.presentResults = append(g.presentResults, results...)
}

// SetExtent sets the extent the swapchain gets on its next Recreate
func (g *GPU) SetExtent(e engine.Extent) {
	g.nextExtent = e
}

// Live returns the number of created objects not yet destroyed
func (g *GPU) Live() int {
	return len(g.live)
}

// Pending returns the number of submissions the GPU has not completed
func (g *GPU) Pending() int {
	return len(g.pending)
}

// CompleteAll finishes every pending submission
func (g *GPU) CompleteAll() {
	for len(g.pending) > 0 {
		g.completeOldest()
	}
}

func (g *GPU) completeOldest() {
	w := g.pending[0]
	g.pending = g.pending[1:]
	if w.fence != nil {
		w.fence.pending = false
		w.fence.signaled = true
	}
	if w.cb != nil {
		w.cb.inFlight = false
	}
	if w.reads != nil {
		w.reads.inUse--
	}
}

func (g *GPU) NewSemaphore() (engine.Semaphore, error) {
	if err := g.fail("NewSemaphore"); err != nil {
		return nil, err
	}
	s := &Semaphore{object: g.newObject("semaphore")}
	g.track(&s.object)
	return s, nil
}

func (g *GPU) NewFence(signaled bool) (engine.Fence, error) {
	if err := g.fail("NewFence"); err != nil {
		return nil, err
	}
	f := &Fence{object: g.newObject("fence"), signaled: signaled}
	g.track(&f.object)
	return f, nil
}

func (g *GPU) NewCommandBuffer(q engine.Queue) (engine.CommandBuffer, error) {
	if err := g.fail("NewCommandBuffer"); err != nil {
		return nil, err
	}
	c := &CommandBuffer{object: g.newObject("command buffer"), queue: q}
	g.track(&c.object)
	return c, nil
}

func (g *GPU) NewUniformBuffer(size int) (engine.UniformBuffer, error) {
	if err := g.fail("NewUniformBuffer"); err != nil {
		return nil, err
	}
	u := &UniformBuffer{object: g.newObject("uniform buffer"), Data: make([]byte, size)}
	g.track(&u.object)
	g.UniformsMade = append(g.UniformsMade, u)
	return u, nil
}

func (g *GPU) NewBindings(ubo engine.UniformBuffer, voxels engine.Buffer) (engine.Bindings, error) {
	if err := g.fail("NewBindings"); err != nil {
		return nil, err
	}
	b := &Bindings{object: g.newObject("bindings")}
	b.Uniforms, _ = ubo.(*UniformBuffer)
	if voxels != nil {
		b.Voxels, _ = voxels.(*Buffer)
	}
	g.track(&b.object)
	return b, nil
}

func (g *GPU) Upload(usage engine.BufferUsage, data []byte) (engine.Buffer, error) {
	if err := g.fail("Upload"); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		g.violate("upload of an empty buffer")
	}
	b := &Buffer{object: g.newObject("buffer"), Usage: usage, Data: slices.Clone(data)}
	g.track(&b.object)
	g.Uploads = append(g.Uploads, b)
	return b, nil
}

func (g *GPU) WaitForFence(f engine.Fence) error {
	if err := g.fail("WaitForFence"); err != nil {
		return err
	}
	fence := f.(*Fence)
	if fence.signaled {
		return nil
	}
	if !fence.pending {
		g.violate("%s waited on but never submitted: deadlock", fence)
		return nil
	}
	for !fence.signaled {
		g.completeOldest()
	}
	return nil
}

func (g *GPU) ResetFence(f engine.Fence) error {
	if err := g.fail("ResetFence"); err != nil {
		return err
	}
	fence := f.(*Fence)
	if fence.pending {
		g.violate("%s reset while its submission is pending", fence)
	}
	fence.signaled = false
	return nil
}

func (g *GPU) Submit(q engine.Queue, s engine.Submission, f engine.Fence) error {
	if err := g.fail("Submit"); err != nil {
		return err
	}

	rec := SubmitRecord{Queue: q, HasCommands: s.Commands != nil}
	w := &work{queue: q}

	for _, wait := range s.Wait {
		sem := wait.Semaphore.(*Semaphore)
		if !sem.armed {
			g.violate("submit waits on %s which nothing signals", sem)
		}
		sem.armed = false
		rec.Waits = append(rec.Waits, wait.Stage)
		rec.WaitIDs = append(rec.WaitIDs, sem.id)
	}
	for _, sig := range s.Signal {
		sem := sig.(*Semaphore)
		if sem.armed {
			g.violate("submit signals %s which is already signaled", sem)
		}
		sem.armed = true
		rec.SignalIDs = append(rec.SignalIDs, sem.id)
		w.signals = append(w.signals, sem)
	}

	if s.Commands != nil {
		cb := s.Commands.(*CommandBuffer)
		if cb.inFlight {
			g.violate("%s submitted while still in flight", cb)
		}
		if !cb.recorded {
			g.violate("%s submitted without being recorded", cb)
		}
		if cb.queue != q {
			g.violate("%s allocated for queue %d submitted to %d", cb, cb.queue, q)
		}
		cb.inFlight = true
		w.cb = cb
		if cb.dispatch != nil || (cb.draw != nil && cb.draw.Pipeline == engine.PipelineMesh) {
			var b engine.Bindings
			if cb.dispatch != nil {
				b = cb.dispatch.Bindings
			} else {
				b = cb.draw.Bindings
			}
			if bb, ok := b.(*Bindings); ok && bb.Uniforms != nil {
				bb.Uniforms.inUse++
				w.reads = bb.Uniforms
			}
		}
		if cb.dispatch != nil {
			if bb, ok := cb.dispatch.Bindings.(*Bindings); ok && bb.display != nil && bb.display.pending {
				g.violate("dispatch writes %s storage image while display %s still reads it", bb, bb.display)
			}
		}
	}

	if f != nil {
		fence := f.(*Fence)
		if fence.signaled || fence.pending {
			g.violate("submit with %s not reset", fence)
		}
		fence.pending = true
		w.fence = fence
		rec.FenceID = fence.id
		if w.cb != nil && w.cb.draw != nil && w.cb.draw.Pipeline == engine.PipelineDisplay {
			if bb, ok := w.cb.draw.Bindings.(*Bindings); ok {
				bb.display = fence
			}
		}
	}

	g.pending = append(g.pending, w)
	g.Submits = append(g.Submits, rec)
	g.MaxPending = max(g.MaxPending, g.countFenced(engine.QueueGraphics))

	if g.CompleteAfter >= 0 {
		for len(g.pending) > g.CompleteAfter {
			g.completeOldest()
		}
	}
	return nil
}

func (g *GPU) countFenced(q engine.Queue) int {
	n := 0
	for _, w := range g.pending {
		if w.queue == q && w.fence != nil {
			n++
		}
	}
	return n
}

func (g *GPU) WaitIdle() error {
	if err := g.fail("WaitIdle"); err != nil {
		return err
	}
	g.WaitIdles++
	g.CompleteAll()
	return nil
}

func (g *GPU) Extent() engine.Extent {
	return g.extent
}

// Acquire hands out images round-robin. A scripted ErrSuboptimal still
// acquires an image; any other scripted error acquires nothing.
func (g *GPU) Acquire(signal engine.Semaphore) (uint32, error) {
	var result error
	if len(g.acquireResults) > 0 {
		result = g.acquireResults[0]
		g.acquireResults = g.acquireResults[1:]
		if result != nil && !errors.Is(result, engine.ErrSuboptimal) {
			return 0, result
		}
	}
	sem := signal.(*Semaphore)
	if sem.armed {
		g.violate("acquire signals %s which is already signaled", sem)
	}
	sem.armed = true

	img := g.nextImage
	g.nextImage = (g.nextImage + 1) % uint32(g.ImageCount)
	return img, result
}

func (g *GPU) Present(wait engine.Semaphore, image uint32) error {
	sem := wait.(*Semaphore)
	if !sem.armed {
		g.violate("present waits on %s which nothing signals", sem)
	}
	sem.armed = false
	g.Presents = append(g.Presents, image)

	if len(g.presentResults) > 0 {
		err := g.presentResults[0]
		g.presentResults = g.presentResults[1:]
		return err
	}
	return nil
}

func (g *GPU) Recreate() error {
	if err := g.fail("Recreate"); err != nil {
		return err
	}
	if len(g.pending) > 0 {
		g.violate("swapchain recreated with %d submissions pending", len(g.pending))
	}
	g.Recreates++
	g.extent = g.nextExtent
	g.nextImage = 0
	return nil
}

func (g *GPU) RecordDraw(cb engine.CommandBuffer, d engine.Draw) error {
	if err := g.fail("RecordDraw"); err != nil {
		return err
	}
	c := cb.(*CommandBuffer)
	if c.inFlight {
		g.violate("%s recorded while in flight", c)
	}
	if c.recorded {
		g.violate("%s recorded twice without reset", c)
	}
	c.recorded = true
	c.draw = &d
	g.Draws = append(g.Draws, d)
	return nil
}

func (g *GPU) RecordDispatch(cb engine.CommandBuffer, d engine.Dispatch) error {
	if err := g.fail("RecordDispatch"); err != nil {
		return err
	}
	c := cb.(*CommandBuffer)
	if c.inFlight {
		g.violate("%s recorded while in flight", c)
	}
	if c.recorded {
		g.violate("%s recorded twice without reset", c)
	}
	c.recorded = true
	c.dispatch = &d
	g.Dispatches = append(g.Dispatches, d)
	return nil
}

var _ engine.Backend = (*GPU)(nil)
