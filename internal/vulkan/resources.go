package vulkan

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"voxel-engine/internal/engine"
)

type fence struct {
	dev    vk.Device
	handle vk.Fence
}

func (f *fence) Destroy() { vk.DestroyFence(f.dev, f.handle, nil) }

type semaphore struct {
	dev    vk.Device
	handle vk.Semaphore
}

func (s *semaphore) Destroy() { vk.DestroySemaphore(s.dev, s.handle, nil) }

type commandBuffer struct {
	dev    vk.Device
	pool   vk.CommandPool
	handle vk.CommandBuffer
	queue  engine.Queue
}

func (c *commandBuffer) Destroy() {
	vk.FreeCommandBuffers(c.dev, c.pool, 1, []vk.CommandBuffer{c.handle})
}

func (c *commandBuffer) Reset() error {
	if res := vk.ResetCommandBuffer(c.handle, 0); res != vk.Success {
		return vk.Error(res)
	}
	return nil
}

// uniformBuffer stays mapped for its whole lifetime
type uniformBuffer struct {
	dev    vk.Device
	buffer vk.Buffer
	memory vk.DeviceMemory
	mapped unsafe.Pointer
	size   int
}

func (u *uniformBuffer) Write(p []byte) {
	if len(p) > u.size {
		p = p[:u.size]
	}
	vk.Memcopy(u.mapped, p)
}

func (u *uniformBuffer) Destroy() {
	vk.UnmapMemory(u.dev, u.memory)
	vk.DestroyBuffer(u.dev, u.buffer, nil)
	vk.FreeMemory(u.dev, u.memory, nil)
}

// buffer is device-local memory filled through a staging copy
type buffer struct {
	dev    vk.Device
	handle vk.Buffer
	memory vk.DeviceMemory
	size   int
}

func (b *buffer) Size() int { return b.size }

func (b *buffer) Destroy() {
	vk.DestroyBuffer(b.dev, b.handle, nil)
	vk.FreeMemory(b.dev, b.memory, nil)
}

// deviceImage is an image with its own memory and a single view
type deviceImage struct {
	dev    vk.Device
	image  vk.Image
	memory vk.DeviceMemory
	view   vk.ImageView
}

func (s *deviceImage) Destroy() {
	vk.DestroyImageView(s.dev, s.view, nil)
	vk.DestroyImage(s.dev, s.image, nil)
	vk.FreeMemory(s.dev, s.memory, nil)
}

// bindings is one descriptor set plus what it exclusively owns
type bindings struct {
	dev    vk.Device
	pool   vk.DescriptorPool
	set    vk.DescriptorSet
	target *deviceImage
}

func (d *bindings) Destroy() {
	vk.FreeDescriptorSets(d.dev, d.pool, 1, []vk.DescriptorSet{d.set})
	if d.target != nil {
		d.target.Destroy()
	}
}

var (
	_ engine.Fence         = (*fence)(nil)
	_ engine.Semaphore     = (*semaphore)(nil)
	_ engine.CommandBuffer = (*commandBuffer)(nil)
	_ engine.UniformBuffer = (*uniformBuffer)(nil)
	_ engine.Buffer        = (*buffer)(nil)
	_ engine.Bindings      = (*bindings)(nil)
)
