package engine

import (
	"fmt"

	"voxel-engine/internal/teardown"
)

// frameSlot is the resource set of one frame in flight. inFlight gates reuse
// of commands and uniforms; computeInFlight gates computeCommands.
type frameSlot struct {
	commands       CommandBuffer
	imageAvailable Semaphore
	renderFinished Semaphore
	inFlight       Fence
	uniforms       UniformBuffer
	bindings       Bindings

	computeCommands CommandBuffer
	computeFinished Semaphore
	computeInFlight Fence
}

// own pushes the result of create onto s so it is released with it
func own[T teardown.Releaser](s *teardown.Stack, create func() (T, error)) (T, error) {
	r, err := create()
	if err != nil {
		var zero T
		return zero, err
	}
	s.Push(r)
	return r, nil
}

func (e *Engine) createFrames(n int) error {
	dev := e.gpu
	s := e.frameResources
	newSignaledFence := func() (Fence, error) { return dev.NewFence(true) }
	newGraphicsCommands := func() (CommandBuffer, error) { return dev.NewCommandBuffer(QueueGraphics) }
	newComputeCommands := func() (CommandBuffer, error) { return dev.NewCommandBuffer(QueueCompute) }
	newUniforms := func() (UniformBuffer, error) { return dev.NewUniformBuffer(UniformBufferSize) }

	e.frames = make([]frameSlot, n)
	for i := range e.frames {
		f := &e.frames[i]
		var err error

		if f.imageAvailable, err = own(s, dev.NewSemaphore); err != nil {
			return fmt.Errorf("frame %d: image-available semaphore: %w", i, err)
		}
		if f.renderFinished, err = own(s, dev.NewSemaphore); err != nil {
			return fmt.Errorf("frame %d: render-finished semaphore: %w", i, err)
		}
		// signaled so the first wait on every slot returns immediately
		if f.inFlight, err = own(s, newSignaledFence); err != nil {
			return fmt.Errorf("frame %d: in-flight fence: %w", i, err)
		}
		if f.commands, err = own(s, newGraphicsCommands); err != nil {
			return fmt.Errorf("frame %d: command buffer: %w", i, err)
		}
		if f.uniforms, err = own(s, newUniforms); err != nil {
			return fmt.Errorf("frame %d: uniform buffer: %w", i, err)
		}
		if f.bindings, err = own(s, func() (Bindings, error) { return dev.NewBindings(f.uniforms, e.voxelBuffer) }); err != nil {
			return fmt.Errorf("frame %d: descriptor bindings: %w", i, err)
		}

		if e.mode != ModeRaycast {
			continue
		}
		if f.computeFinished, err = own(s, dev.NewSemaphore); err != nil {
			return fmt.Errorf("frame %d: compute-finished semaphore: %w", i, err)
		}
		if f.computeInFlight, err = own(s, newSignaledFence); err != nil {
			return fmt.Errorf("frame %d: compute fence: %w", i, err)
		}
		if f.computeCommands, err = own(s, newComputeCommands); err != nil {
			return fmt.Errorf("frame %d: compute command buffer: %w", i, err)
		}
	}
	return nil
}
