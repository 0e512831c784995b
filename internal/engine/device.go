package engine

import "errors"

// Recoverable presentation results. Anything else coming back from a device
// call is fatal for the frame and is returned to the caller.
var (
	ErrOutOfDate  = errors.New("engine: surface out of date")
	ErrSuboptimal = errors.New("engine: surface suboptimal")
)

// Mode selects the per-frame submission protocol
type Mode int

const (
	// ModeRaster draws the packed voxel mesh with an indexed draw
	ModeRaster Mode = iota
	// ModeRaycast dispatches a compute ray caster into a storage image and
	// displays it with a full-screen quad
	ModeRaycast
)

func (m Mode) String() string {
	if m == ModeRaycast {
		return "raycast"
	}
	return "raster"
}

// Queue identifies a device queue
type Queue int

const (
	QueueGraphics Queue = iota
	QueueCompute
)

// Stage is the pipeline stage at which a submission waits on a semaphore
type Stage int

const (
	StageColorAttachmentOutput Stage = iota
	StageVertexInput
	StageComputeShader
	StageAllCommands
)

// BufferUsage selects how an uploaded device-local buffer is bound
type BufferUsage int

const (
	UsageVertex BufferUsage = iota
	UsageIndex
	UsageStorage
)

// Pipeline selects what a draw binds
type Pipeline int

const (
	// PipelineMesh renders vertex/index geometry and reads the uniform buffer
	PipelineMesh Pipeline = iota
	// PipelineDisplay copies the raycast storage image onto a full-screen quad
	PipelineDisplay
)

// Extent is a 2D size in pixels
type Extent struct {
	Width, Height uint32
}

// Aspect returns width/height, 1 for a degenerate extent
func (e Extent) Aspect() float32 {
	if e.Width == 0 || e.Height == 0 {
		return 1
	}
	return float32(e.Width) / float32(e.Height)
}

// Fence is a CPU-waitable signal of GPU completion
type Fence interface {
	Destroy()
}

// Semaphore orders queue operations on the GPU
type Semaphore interface {
	Destroy()
}

// CommandBuffer is a resettable recording target
type CommandBuffer interface {
	Destroy()
	Reset() error
}

// UniformBuffer is host-visible, persistently mapped memory
type UniformBuffer interface {
	Destroy()
	// Write copies p straight into the mapped memory
	Write(p []byte)
}

// Buffer is a device-local buffer filled by Upload
type Buffer interface {
	Destroy()
	Size() int
}

// Bindings is the per-frame descriptor state a pipeline binds
type Bindings interface {
	Destroy()
}

// SemaphoreWait is one wait of a submission
type SemaphoreWait struct {
	Semaphore Semaphore
	Stage     Stage
}

// Submission is one queue submit. Commands may be nil to only wait/signal.
type Submission struct {
	Commands CommandBuffer
	Wait     []SemaphoreWait
	Signal   []Semaphore
}

// Device creates frame resources and drives queues
type Device interface {
	NewSemaphore() (Semaphore, error)
	NewFence(signaled bool) (Fence, error)
	NewCommandBuffer(q Queue) (CommandBuffer, error)
	NewUniformBuffer(size int) (UniformBuffer, error)
	// NewBindings creates the descriptor state for one frame slot. voxels is
	// nil in raster mode.
	NewBindings(ubo UniformBuffer, voxels Buffer) (Bindings, error)
	// Upload copies data into a new device-local buffer through a staging
	// buffer that is freed before Upload returns
	Upload(usage BufferUsage, data []byte) (Buffer, error)

	WaitForFence(f Fence) error
	ResetFence(f Fence) error
	// Submit queues s on q. fence may be nil.
	Submit(q Queue, s Submission, fence Fence) error
	WaitIdle() error
}

// Swapchain is the presentable image set. Acquire and Present report
// ErrOutOfDate and ErrSuboptimal for a stale surface.
type Swapchain interface {
	Extent() Extent
	Acquire(signal Semaphore) (uint32, error)
	Present(wait Semaphore, image uint32) error
	// Recreate rebuilds the swapchain and everything sized by it, leaving
	// pipelines, layouts and sync objects alone
	Recreate() error
}

// Draw describes one graphics recording
type Draw struct {
	Pipeline   Pipeline
	Image      uint32
	Extent     Extent
	Bindings   Bindings
	Vertices   Buffer
	Indices    Buffer
	IndexCount uint32
}

// Dispatch describes one compute recording
type Dispatch struct {
	Bindings Bindings
	GroupsX  uint32
	GroupsY  uint32
}

// Recorder fills command buffers
type Recorder interface {
	RecordDraw(cb CommandBuffer, d Draw) error
	RecordDispatch(cb CommandBuffer, d Dispatch) error
}

// Surface is the window side of swapchain recreation
type Surface interface {
	FramebufferSize() (int, int)
	// WaitEvents blocks until the window system delivers an event
	WaitEvents()
}

// Backend is everything the engine needs from the graphics API
type Backend interface {
	Device
	Swapchain
	Recorder
}
