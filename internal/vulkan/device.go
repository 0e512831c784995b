package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"voxel-engine/internal/engine"
)

const storageFormat = vk.FormatR8g8b8a8Snorm

var stageBits = map[engine.Stage]vk.PipelineStageFlagBits{
	engine.StageColorAttachmentOutput: vk.PipelineStageColorAttachmentOutputBit,
	engine.StageVertexInput:           vk.PipelineStageVertexInputBit,
	engine.StageComputeShader:         vk.PipelineStageComputeShaderBit,
	engine.StageAllCommands:           vk.PipelineStageAllCommandsBit,
}

func (b *Backend) NewSemaphore() (engine.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var handle vk.Semaphore
	if err := check(vk.CreateSemaphore(b.device, &info, nil, &handle), "create semaphore"); err != nil {
		return nil, err
	}
	return &semaphore{dev: b.device, handle: handle}, nil
}

func (b *Backend) NewFence(signaled bool) (engine.Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var handle vk.Fence
	if err := check(vk.CreateFence(b.device, &info, nil, &handle), "create fence"); err != nil {
		return nil, err
	}
	return &fence{dev: b.device, handle: handle}, nil
}

func (b *Backend) NewCommandBuffer(q engine.Queue) (engine.CommandBuffer, error) {
	pool := b.cmdPools[q]
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cbs := make([]vk.CommandBuffer, 1)
	if err := check(vk.AllocateCommandBuffers(b.device, &info, cbs), "allocate command buffer"); err != nil {
		return nil, err
	}
	return &commandBuffer{dev: b.device, pool: pool, handle: cbs[0], queue: q}, nil
}

// NewBindings allocates one descriptor set. With voxels set it also creates
// the frame's own storage image, so compute and display of different frames
// never share a target.
func (b *Backend) NewBindings(ubo engine.UniformBuffer, voxels engine.Buffer) (engine.Bindings, error) {
	u, ok := ubo.(*uniformBuffer)
	if !ok {
		return nil, errors.New("bindings: uniform buffer from another backend")
	}

	alloc := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     b.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{b.setLayout},
	}
	var set vk.DescriptorSet
	if err := check(vk.AllocateDescriptorSets(b.device, &alloc, &set), "allocate descriptor set"); err != nil {
		return nil, err
	}
	d := &bindings{dev: b.device, pool: b.descriptorPool, set: set}

	writes := []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      bindingUniforms,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: u.buffer,
			Range:  vk.DeviceSize(u.size),
		}},
	}}

	if voxels != nil {
		v, ok := voxels.(*buffer)
		if !ok {
			d.Destroy()
			return nil, errors.New("bindings: voxel buffer from another backend")
		}
		target, err := b.createStorageImage()
		if err != nil {
			d.Destroy()
			return nil, err
		}
		d.target = target
		writes = append(writes,
			vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      bindingVoxels,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeStorageBuffer,
				PBufferInfo: []vk.DescriptorBufferInfo{{
					Buffer: v.handle,
					Range:  vk.DeviceSize(v.size),
				}},
			},
			vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      bindingTarget,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeStorageImage,
				PImageInfo: []vk.DescriptorImageInfo{{
					ImageView:   target.view,
					ImageLayout: vk.ImageLayoutGeneral,
				}},
			},
		)
	}

	vk.UpdateDescriptorSets(b.device, uint32(len(writes)), writes, 0, nil)
	return d, nil
}

// createStorageImage makes a raycast target at the storage extent, which is
// fixed by the first call
func (b *Backend) createStorageImage() (*deviceImage, error) {
	if b.storageExtent.Width == 0 || b.storageExtent.Height == 0 {
		b.storageExtent = b.extent
	}
	img, err := b.createDeviceImage(b.storageExtent, storageFormat,
		vk.ImageUsageFlags(vk.ImageUsageStorageBit), vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return nil, fmt.Errorf("storage image: %w", err)
	}
	if err := b.transitionImageLayout(img.image, storageFormat, vk.ImageLayoutUndefined, vk.ImageLayoutGeneral); err != nil {
		img.Destroy()
		return nil, fmt.Errorf("storage image layout: %w", err)
	}
	return img, nil
}

func (b *Backend) WaitForFence(f engine.Fence) error {
	handle := f.(*fence).handle
	return check(vk.WaitForFences(b.device, 1, []vk.Fence{handle}, vk.True, vk.MaxUint64), "wait for fence")
}

func (b *Backend) ResetFence(f engine.Fence) error {
	handle := f.(*fence).handle
	return check(vk.ResetFences(b.device, 1, []vk.Fence{handle}), "reset fence")
}

// Submit translates s into one vkQueueSubmit
func (b *Backend) Submit(q engine.Queue, s engine.Submission, f engine.Fence) error {
	info := vk.SubmitInfo{SType: vk.StructureTypeSubmitInfo}

	if n := len(s.Wait); n > 0 {
		waits := make([]vk.Semaphore, n)
		stages := make([]vk.PipelineStageFlags, n)
		for i, w := range s.Wait {
			bit, ok := stageBits[w.Stage]
			if !ok {
				return fmt.Errorf("submit: unknown wait stage %d", w.Stage)
			}
			waits[i] = w.Semaphore.(*semaphore).handle
			stages[i] = vk.PipelineStageFlags(bit)
		}
		info.WaitSemaphoreCount = uint32(n)
		info.PWaitSemaphores = waits
		info.PWaitDstStageMask = stages
	}
	if s.Commands != nil {
		info.CommandBufferCount = 1
		info.PCommandBuffers = []vk.CommandBuffer{s.Commands.(*commandBuffer).handle}
	}
	if n := len(s.Signal); n > 0 {
		signals := make([]vk.Semaphore, n)
		for i, sem := range s.Signal {
			signals[i] = sem.(*semaphore).handle
		}
		info.SignalSemaphoreCount = uint32(n)
		info.PSignalSemaphores = signals
	}

	handle := vk.Fence(vk.NullHandle)
	if f != nil {
		handle = f.(*fence).handle
	}
	return check(vk.QueueSubmit(b.queues[q], 1, []vk.SubmitInfo{info}, handle), "queue submit")
}
