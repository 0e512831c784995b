package vulkan

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"voxel-engine/internal/engine"
)

var errNoMemoryType = errors.New("no suitable memory type")

func (b *Backend) findMemoryType(typeBits uint32, props vk.MemoryPropertyFlagBits) (uint32, error) {
	want := vk.MemoryPropertyFlags(props)
	for i := uint32(0); i < b.memProps.MemoryTypeCount; i++ {
		t := b.memProps.MemoryTypes[i]
		t.Deref()
		if typeBits&(1<<i) != 0 && t.PropertyFlags&want == want {
			return i, nil
		}
	}
	return 0, errNoMemoryType
}

func (b *Backend) allocate(reqs vk.MemoryRequirements, props vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	reqs.Deref()
	typeIndex, err := b.findMemoryType(reqs.MemoryTypeBits, props)
	if err != nil {
		return vk.DeviceMemory(vk.NullHandle), err
	}
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIndex,
	}
	var mem vk.DeviceMemory
	if err := check(vk.AllocateMemory(b.device, &info, nil, &mem), "allocate memory"); err != nil {
		return vk.DeviceMemory(vk.NullHandle), err
	}
	return mem, nil
}

func (b *Backend) createBuffer(size int, usage vk.BufferUsageFlagBits, props vk.MemoryPropertyFlagBits) (*buffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if err := check(vk.CreateBuffer(b.device, &info, nil, &handle), "create buffer"); err != nil {
		return nil, err
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(b.device, handle, &reqs)
	mem, err := b.allocate(reqs, props)
	if err != nil {
		vk.DestroyBuffer(b.device, handle, nil)
		return nil, fmt.Errorf("buffer memory: %w", err)
	}
	if err := check(vk.BindBufferMemory(b.device, handle, mem, 0), "bind buffer memory"); err != nil {
		vk.DestroyBuffer(b.device, handle, nil)
		vk.FreeMemory(b.device, mem, nil)
		return nil, err
	}
	return &buffer{dev: b.device, handle: handle, memory: mem, size: size}, nil
}

func (b *Backend) createImageView(image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if err := check(vk.CreateImageView(b.device, &info, nil, &view), "create image view"); err != nil {
		return vk.ImageView(vk.NullHandle), err
	}
	return view, nil
}

// createDeviceImage creates an optimal-tiling, device-local 2D image with a
// view over it
func (b *Backend) createDeviceImage(extent vk.Extent2D, format vk.Format, usage vk.ImageUsageFlags, aspect vk.ImageAspectFlags) (*deviceImage, error) {
	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        format,
		Extent:        vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	if err := check(vk.CreateImage(b.device, &info, nil, &image), "create image"); err != nil {
		return nil, err
	}

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(b.device, image, &reqs)
	mem, err := b.allocate(reqs, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(b.device, image, nil)
		return nil, fmt.Errorf("image memory: %w", err)
	}
	if err := check(vk.BindImageMemory(b.device, image, mem, 0), "bind image memory"); err != nil {
		vk.DestroyImage(b.device, image, nil)
		vk.FreeMemory(b.device, mem, nil)
		return nil, err
	}

	view, err := b.createImageView(image, format, aspect)
	if err != nil {
		vk.DestroyImage(b.device, image, nil)
		vk.FreeMemory(b.device, mem, nil)
		return nil, err
	}
	return &deviceImage{dev: b.device, image: image, memory: mem, view: view}, nil
}

func (b *Backend) findDepthFormat() (vk.Format, error) {
	candidates := []vk.Format{vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint}
	want := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, format := range candidates {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(b.physical, format, &props)
		props.Deref()
		if props.OptimalTilingFeatures&want == want {
			return format, nil
		}
	}
	return 0, errors.New("no supported depth format")
}

// oneTimeCommands records fn into a throwaway command buffer, submits it on
// the graphics queue and waits for it to finish
func (b *Backend) oneTimeCommands(fn func(vk.CommandBuffer)) error {
	pool := b.cmdPools[engine.QueueGraphics]
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cbs := make([]vk.CommandBuffer, 1)
	if err := check(vk.AllocateCommandBuffers(b.device, &info, cbs), "allocate one-time command buffer"); err != nil {
		return err
	}
	defer vk.FreeCommandBuffers(b.device, pool, 1, cbs)

	begin := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := check(vk.BeginCommandBuffer(cbs[0], &begin), "begin one-time command buffer"); err != nil {
		return err
	}
	fn(cbs[0])
	if err := check(vk.EndCommandBuffer(cbs[0]), "end one-time command buffer"); err != nil {
		return err
	}

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    cbs,
	}
	queue := b.queues[engine.QueueGraphics]
	if err := check(vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submit}, vk.Fence(vk.NullHandle)), "submit one-time command buffer"); err != nil {
		return err
	}
	return check(vk.QueueWaitIdle(queue), "wait for one-time command buffer")
}

var usageBits = map[engine.BufferUsage]vk.BufferUsageFlagBits{
	engine.UsageVertex:  vk.BufferUsageVertexBufferBit,
	engine.UsageIndex:   vk.BufferUsageIndexBufferBit,
	engine.UsageStorage: vk.BufferUsageStorageBufferBit,
}

// Upload fills a new device-local buffer through a host-visible staging copy
func (b *Backend) Upload(usage engine.BufferUsage, data []byte) (engine.Buffer, error) {
	bits, ok := usageBits[usage]
	if !ok {
		return nil, fmt.Errorf("unknown buffer usage %d", usage)
	}
	if len(data) == 0 {
		return nil, errors.New("upload of an empty buffer")
	}

	staging, err := b.createBuffer(len(data), vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, fmt.Errorf("staging buffer: %w", err)
	}
	defer staging.Destroy()

	var mapped unsafe.Pointer
	if err := check(vk.MapMemory(b.device, staging.memory, 0, vk.DeviceSize(len(data)), 0, &mapped), "map staging buffer"); err != nil {
		return nil, err
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(b.device, staging.memory)

	dst, err := b.createBuffer(len(data), bits|vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, err
	}
	err = b.oneTimeCommands(func(cb vk.CommandBuffer) {
		region := vk.BufferCopy{Size: vk.DeviceSize(len(data))}
		vk.CmdCopyBuffer(cb, staging.handle, dst.handle, 1, []vk.BufferCopy{region})
	})
	if err != nil {
		dst.Destroy()
		return nil, fmt.Errorf("copy staging buffer: %w", err)
	}
	return dst, nil
}

// NewUniformBuffer creates a host-coherent buffer that stays mapped
func (b *Backend) NewUniformBuffer(size int) (engine.UniformBuffer, error) {
	buf, err := b.createBuffer(size, vk.BufferUsageUniformBufferBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, fmt.Errorf("uniform buffer: %w", err)
	}
	var mapped unsafe.Pointer
	if err := check(vk.MapMemory(b.device, buf.memory, 0, vk.DeviceSize(size), 0, &mapped), "map uniform buffer"); err != nil {
		buf.Destroy()
		return nil, err
	}
	return &uniformBuffer{dev: b.device, buffer: buf.handle, memory: buf.memory, mapped: mapped, size: size}, nil
}
