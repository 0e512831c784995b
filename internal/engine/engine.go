package engine

import (
	"errors"
	"fmt"

	"voxel-engine/internal/camera"
	"voxel-engine/internal/config"
	"voxel-engine/internal/logging"
	"voxel-engine/internal/meshing"
	"voxel-engine/internal/profiling"
	"voxel-engine/internal/scene"
	"voxel-engine/internal/teardown"
	"voxel-engine/internal/voxel"
)

// Options configures an Engine
type Options struct {
	Mode Mode
	// FramesInFlight defaults to config.FramesInFlight
	FramesInFlight int
	// StorageExtent is the raycast output size, defaults to the swapchain extent
	StorageExtent Extent
	Logger        logging.Logger
}

// Engine owns the per-frame resource sets and runs one frame per Tick.
// All methods must be called from the thread that drives the main loop.
type Engine struct {
	gpu     Backend
	surface Surface
	pool    *meshing.WorkerPool
	log     logging.Logger
	mode    Mode

	frames  []frameSlot
	current int
	resized bool

	// CPU copies reused across refreshes
	vertices  []voxel.Vertex
	indices   []uint32
	gpuVoxels []voxel.GPUVoxel

	vertexBuffer Buffer
	indexBuffer  Buffer
	indexCount   uint32
	voxelBuffer  Buffer

	storageExtent Extent
	ubo           UniformBufferObject

	// geometry is released on refresh, frameResources only at Destroy
	geometry       *teardown.Stack
	frameResources *teardown.Stack

	submitted   uint64
	recreations int
}

// New uploads the scene geometry and creates the frame resources.
// In raster mode the packed voxel mesh is uploaded; in raycast mode the voxel
// storage buffer and the full-screen quad are.
func New(gpu Backend, surface Surface, s *scene.Scene, pool *meshing.WorkerPool, opts Options) (*Engine, error) {
	if opts.FramesInFlight <= 0 {
		opts.FramesInFlight = config.FramesInFlight
	}
	if opts.StorageExtent == (Extent{}) {
		opts.StorageExtent = gpu.Extent()
	}

	e := &Engine{
		gpu:            gpu,
		surface:        surface,
		pool:           pool,
		log:            logging.OrNop(opts.Logger),
		mode:           opts.Mode,
		storageExtent:  opts.StorageExtent,
		geometry:       teardown.NewStack("geometry"),
		frameResources: teardown.NewStack("frames"),
	}

	var err error
	switch e.mode {
	case ModeRaycast:
		err = e.uploadRaycastInputs(s)
	default:
		err = e.uploadMesh(s)
	}
	if err != nil {
		e.Destroy()
		return nil, err
	}

	if err := e.createFrames(opts.FramesInFlight); err != nil {
		e.Destroy()
		return nil, err
	}

	e.log.Infof("engine ready: mode=%s frames=%d scene=%s voxels=%d", e.mode, opts.FramesInFlight, s.ID(), s.Len())
	return e, nil
}

// Mode returns the submission protocol in use
func (e *Engine) Mode() Mode {
	return e.mode
}

// CurrentFrame returns the frame slot the next Tick will use
func (e *Engine) CurrentFrame() int {
	return e.current
}

// FramesInFlight returns the number of frame slots
func (e *Engine) FramesInFlight() int {
	return len(e.frames)
}

// Submitted returns how many frames have been presented
func (e *Engine) Submitted() uint64 {
	return e.submitted
}

// Recreations returns how many times the swapchain was rebuilt
func (e *Engine) Recreations() int {
	return e.recreations
}

// IndexCount returns the number of indices drawn per raster frame
func (e *Engine) IndexCount() uint32 {
	return e.indexCount
}

// NotifyResized marks the swapchain for recreation after the next present
func (e *Engine) NotifyResized() {
	e.resized = true
}

// Tick renders and presents one frame from the camera state
func (e *Engine) Tick(cam *camera.Camera) error {
	defer profiling.Track("engine.Tick")()
	if e.mode == ModeRaycast {
		return e.drawRaycast(cam)
	}
	return e.drawRaster(cam)
}

func (e *Engine) drawRaster(cam *camera.Camera) error {
	f := &e.frames[e.current]

	if err := e.waitFence(f.inFlight); err != nil {
		return fmt.Errorf("wait for frame %d: %w", e.current, err)
	}

	image, ok, err := e.acquire(f)
	if err != nil || !ok {
		return err
	}

	extent := e.gpu.Extent()
	e.ubo.Update(cam, extent)
	f.uniforms.Write(e.ubo.Bytes())

	if err := e.gpu.ResetFence(f.inFlight); err != nil {
		return fmt.Errorf("reset fence: %w", err)
	}
	if err := f.commands.Reset(); err != nil {
		return fmt.Errorf("reset command buffer: %w", err)
	}
	err = e.gpu.RecordDraw(f.commands, Draw{
		Pipeline:   PipelineMesh,
		Image:      image,
		Extent:     extent,
		Bindings:   f.bindings,
		Vertices:   e.vertexBuffer,
		Indices:    e.indexBuffer,
		IndexCount: e.indexCount,
	})
	if err != nil {
		return fmt.Errorf("record draw: %w", err)
	}

	err = e.submit(QueueGraphics, Submission{
		Commands: f.commands,
		Wait:     []SemaphoreWait{{f.imageAvailable, StageColorAttachmentOutput}},
		Signal:   []Semaphore{f.renderFinished},
	}, f.inFlight)
	if err != nil {
		return fmt.Errorf("submit draw: %w", err)
	}

	return e.present(f, image)
}

func (e *Engine) drawRaycast(cam *camera.Camera) error {
	f := &e.frames[e.current]

	// compute pass: no upstream dependency inside the frame, but the slot's
	// storage image is still sampled by its previous display pass until
	// inFlight signals
	if err := e.waitFence(f.computeInFlight); err != nil {
		return fmt.Errorf("wait for compute %d: %w", e.current, err)
	}
	if err := e.waitFence(f.inFlight); err != nil {
		return fmt.Errorf("wait for frame %d: %w", e.current, err)
	}

	e.ubo.Update(cam, e.gpu.Extent())
	f.uniforms.Write(e.ubo.Bytes())

	if err := e.gpu.ResetFence(f.computeInFlight); err != nil {
		return fmt.Errorf("reset compute fence: %w", err)
	}
	if err := f.computeCommands.Reset(); err != nil {
		return fmt.Errorf("reset compute command buffer: %w", err)
	}
	gx, gy := e.workgroups()
	err := e.gpu.RecordDispatch(f.computeCommands, Dispatch{
		Bindings: f.bindings,
		GroupsX:  gx,
		GroupsY:  gy,
	})
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	err = e.submit(QueueCompute, Submission{
		Commands: f.computeCommands,
		Signal:   []Semaphore{f.computeFinished},
	}, f.computeInFlight)
	if err != nil {
		return fmt.Errorf("submit dispatch: %w", err)
	}

	// display pass
	image, ok, err := e.acquire(f)
	if err != nil {
		return err
	}
	if !ok {
		// nothing will wait on computeFinished this tick; consume it so the
		// slot can signal it again next time
		err := e.submit(QueueGraphics, Submission{
			Wait: []SemaphoreWait{{f.computeFinished, StageAllCommands}},
		}, nil)
		if err != nil {
			return fmt.Errorf("drain compute signal: %w", err)
		}
		return nil
	}

	if err := e.gpu.ResetFence(f.inFlight); err != nil {
		return fmt.Errorf("reset fence: %w", err)
	}
	if err := f.commands.Reset(); err != nil {
		return fmt.Errorf("reset command buffer: %w", err)
	}
	err = e.gpu.RecordDraw(f.commands, Draw{
		Pipeline:   PipelineDisplay,
		Image:      image,
		Extent:     e.gpu.Extent(),
		Bindings:   f.bindings,
		Vertices:   e.vertexBuffer,
		Indices:    e.indexBuffer,
		IndexCount: e.indexCount,
	})
	if err != nil {
		return fmt.Errorf("record display: %w", err)
	}

	err = e.submit(QueueGraphics, Submission{
		Commands: f.commands,
		Wait: []SemaphoreWait{
			{f.computeFinished, StageVertexInput},
			{f.imageAvailable, StageColorAttachmentOutput},
		},
		Signal: []Semaphore{f.renderFinished},
	}, f.inFlight)
	if err != nil {
		return fmt.Errorf("submit display: %w", err)
	}

	return e.present(f, image)
}

// workgroups covers the storage image with compute workgroups
func (e *Engine) workgroups() (uint32, uint32) {
	gx := (e.storageExtent.Width + config.RaycastGroupX - 1) / config.RaycastGroupX
	gy := (e.storageExtent.Height + config.RaycastGroupY - 1) / config.RaycastGroupY
	return gx, gy
}

func (e *Engine) waitFence(f Fence) error {
	defer profiling.Track("engine.WaitForFence")()
	return e.gpu.WaitForFence(f)
}

func (e *Engine) submit(q Queue, s Submission, fence Fence) error {
	defer profiling.Track("engine.Submit")()
	return e.gpu.Submit(q, s, fence)
}

// acquire returns ok=false when the surface was out of date; the swapchain has
// then been recreated and the tick must end without submitting
func (e *Engine) acquire(f *frameSlot) (uint32, bool, error) {
	defer profiling.Track("engine.Acquire")()

	image, err := e.gpu.Acquire(f.imageAvailable)
	switch {
	case errors.Is(err, ErrOutOfDate):
		e.log.Debugf("acquire: surface out of date, recreating")
		if err := e.RecreateSwapchain(); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	case err != nil && !errors.Is(err, ErrSuboptimal):
		return 0, false, fmt.Errorf("acquire image: %w", err)
	}
	return image, true, nil
}

// present shows the image and advances the frame slot. A stale surface or a
// pending resize rebuilds the swapchain after the frame was handed over.
func (e *Engine) present(f *frameSlot, image uint32) error {
	defer profiling.Track("engine.Present")()

	err := e.gpu.Present(f.renderFinished, image)
	stale := errors.Is(err, ErrOutOfDate) || errors.Is(err, ErrSuboptimal)
	if err != nil && !stale {
		return fmt.Errorf("present: %w", err)
	}

	if stale || e.resized {
		e.resized = false
		if err := e.RecreateSwapchain(); err != nil {
			return err
		}
	}

	e.current = (e.current + 1) % len(e.frames)
	e.submitted++
	return nil
}

// RecreateSwapchain waits out a minimized window, idles the device and
// rebuilds the swapchain-dependent resources
func (e *Engine) RecreateSwapchain() error {
	defer profiling.Track("engine.RecreateSwapchain")()

	w, h := e.surface.FramebufferSize()
	for w == 0 || h == 0 {
		e.surface.WaitEvents()
		w, h = e.surface.FramebufferSize()
	}

	if err := e.gpu.WaitIdle(); err != nil {
		return fmt.Errorf("wait idle before recreation: %w", err)
	}
	if err := e.gpu.Recreate(); err != nil {
		return fmt.Errorf("recreate swapchain: %w", err)
	}
	e.recreations++

	ext := e.gpu.Extent()
	e.log.Infof("swapchain recreated: %dx%d", ext.Width, ext.Height)
	return nil
}

// UpdateBuffers replaces the mesh buffers with the current scene geometry.
// The device is idled first, so no frame in flight can still read the old
// buffers. Raycast mode keeps its inputs and ignores the request.
func (e *Engine) UpdateBuffers(s *scene.Scene) error {
	defer profiling.Track("engine.UpdateBuffers")()

	if e.mode != ModeRaster {
		e.log.Debugf("buffer refresh ignored in %s mode", e.mode)
		return nil
	}
	if err := e.gpu.WaitIdle(); err != nil {
		return fmt.Errorf("wait idle before refresh: %w", err)
	}
	e.geometry.Release()
	e.vertexBuffer, e.indexBuffer, e.indexCount = nil, nil, 0

	if err := e.uploadMesh(s); err != nil {
		return err
	}
	e.log.Infof("buffers refreshed: scene=%s vertices=%d indices=%d", s.ID(), len(e.vertices), len(e.indices))
	return nil
}

func (e *Engine) uploadMesh(s *scene.Scene) error {
	var err error
	if e.pool != nil {
		e.vertices, e.indices, err = s.OverwriteVertsAndIndicesMT(e.pool, e.vertices, e.indices)
		if err != nil {
			return fmt.Errorf("pack scene geometry: %w", err)
		}
	} else {
		e.vertices, e.indices = s.OverwriteVertsAndIndices(e.vertices, e.indices)
	}
	if len(e.indices) == 0 {
		return nil
	}

	if e.vertexBuffer, err = own(e.geometry, func() (Buffer, error) {
		return e.gpu.Upload(UsageVertex, voxel.VertexBytes(e.vertices))
	}); err != nil {
		return fmt.Errorf("upload vertex buffer: %w", err)
	}
	if e.indexBuffer, err = own(e.geometry, func() (Buffer, error) {
		return e.gpu.Upload(UsageIndex, voxel.IndexBytes(e.indices))
	}); err != nil {
		return fmt.Errorf("upload index buffer: %w", err)
	}
	e.indexCount = uint32(len(e.indices))
	return nil
}

func (e *Engine) uploadRaycastInputs(s *scene.Scene) error {
	e.gpuVoxels = s.GPUVoxels(e.gpuVoxels)
	if len(e.gpuVoxels) == 0 {
		// storage buffers cannot be empty; a zero-size voxel is never hit
		e.gpuVoxels = append(e.gpuVoxels, voxel.GPUVoxel{})
	}

	var err error
	if e.voxelBuffer, err = own(e.geometry, func() (Buffer, error) {
		return e.gpu.Upload(UsageStorage, voxel.GPUVoxelBytes(e.gpuVoxels))
	}); err != nil {
		return fmt.Errorf("upload voxel buffer: %w", err)
	}
	if e.vertexBuffer, err = own(e.geometry, func() (Buffer, error) {
		return e.gpu.Upload(UsageVertex, quadVertexBytes())
	}); err != nil {
		return fmt.Errorf("upload quad vertices: %w", err)
	}
	if e.indexBuffer, err = own(e.geometry, func() (Buffer, error) {
		return e.gpu.Upload(UsageIndex, voxel.IndexBytes(quadIndices))
	}); err != nil {
		return fmt.Errorf("upload quad indices: %w", err)
	}
	e.indexCount = uint32(len(quadIndices))
	return nil
}

// Destroy idles the device and releases every engine-owned resource, frame
// resources first, then geometry
func (e *Engine) Destroy() {
	if err := e.gpu.WaitIdle(); err != nil {
		e.log.Errorf("wait idle before destroy: %v", err)
	}
	e.frameResources.Release()
	e.geometry.Release()
	e.frames = nil
	e.vertexBuffer, e.indexBuffer, e.voxelBuffer = nil, nil, nil
}
