package vulkan

import (
	"fmt"
	"math"

	vk "github.com/vulkan-go/vulkan"

	"voxel-engine/internal/engine"
)

func (b *Backend) surfaceSupport(dev vk.PhysicalDevice) ([]vk.SurfaceFormat, []vk.PresentMode) {
	var count uint32
	vk.GetPhysicalDeviceSurfaceFormats(dev, b.surface, &count, nil)
	formats := make([]vk.SurfaceFormat, count)
	if count > 0 {
		vk.GetPhysicalDeviceSurfaceFormats(dev, b.surface, &count, formats)
		for i := range formats {
			formats[i].Deref()
		}
	}

	count = 0
	vk.GetPhysicalDeviceSurfacePresentModes(dev, b.surface, &count, nil)
	modes := make([]vk.PresentMode, count)
	if count > 0 {
		vk.GetPhysicalDeviceSurfacePresentModes(dev, b.surface, &count, modes)
	}
	return formats, modes
}

func chooseSurfaceFormat(available []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range available {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return available[0]
}

func choosePresentMode(available []vk.PresentMode) vk.PresentMode {
	for _, m := range available {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent prefers the surface's own extent and otherwise clamps the
// framebuffer size into the supported range
func chooseExtent(caps vk.SurfaceCapabilities, fbWidth, fbHeight int) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampUint32(uint32(fbWidth), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampUint32(uint32(fbHeight), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func clampUint32(v, lo, hi uint32) uint32 {
	if hi < lo {
		hi = lo
	}
	return min(max(v, lo), hi)
}

func (b *Backend) createSwapchainResources() error {
	if err := b.createSwapchain(); err != nil {
		return err
	}
	views, err := b.createSwapchainViews()
	if err != nil {
		return err
	}

	var depth *deviceImage
	if b.mode == engine.ModeRaster {
		if depth, err = b.createDepthImage(); err != nil {
			return err
		}
	}
	return b.createFramebuffers(views, depth)
}

func (b *Backend) createSwapchain() error {
	var caps vk.SurfaceCapabilities
	if err := check(vk.GetPhysicalDeviceSurfaceCapabilities(b.physical, b.surface, &caps), "query surface capabilities"); err != nil {
		return err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	formats, modes := b.surfaceSupport(b.physical)
	if len(formats) == 0 || len(modes) == 0 {
		return fmt.Errorf("surface reports no formats or present modes")
	}
	format := chooseSurfaceFormat(formats)
	mode := choosePresentMode(modes)
	w, h := b.window.GetFramebufferSize()
	extent := chooseExtent(caps, w, h)

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          b.surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      mode,
		Clipped:          vk.True,
		OldSwapchain:     vk.Swapchain(vk.NullHandle),
	}
	if families := b.families.unique(); len(families) > 1 {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = uint32(len(families))
		info.PQueueFamilyIndices = families
	}

	var swapchain vk.Swapchain
	if err := check(vk.CreateSwapchain(b.device, &info, nil, &swapchain), "create swapchain"); err != nil {
		return err
	}
	dev := b.device
	b.swapResources.PushFunc(func() { vk.DestroySwapchain(dev, swapchain, nil) })

	var count uint32
	vk.GetSwapchainImages(b.device, swapchain, &count, nil)
	images := make([]vk.Image, count)
	if err := check(vk.GetSwapchainImages(b.device, swapchain, &count, images), "get swapchain images"); err != nil {
		return err
	}

	b.swapchain = swapchain
	b.swapchainFormat = format.Format
	b.extent = extent
	b.images = images
	b.log.Debugf("swapchain: %dx%d images=%d format=%d present=%d", extent.Width, extent.Height, count, format.Format, mode)
	return nil
}

func (b *Backend) createSwapchainViews() ([]vk.ImageView, error) {
	views := make([]vk.ImageView, len(b.images))
	for i, img := range b.images {
		view, err := b.createImageView(img, b.swapchainFormat, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return nil, fmt.Errorf("swapchain image view %d: %w", i, err)
		}
		dev := b.device
		b.swapResources.PushFunc(func() { vk.DestroyImageView(dev, view, nil) })
		views[i] = view
	}
	return views, nil
}

func (b *Backend) createDepthImage() (*deviceImage, error) {
	img, err := b.createDeviceImage(b.extent, b.depthFormat,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit), aspectFor(vk.ImageLayoutDepthStencilAttachmentOptimal, b.depthFormat))
	if err != nil {
		return nil, fmt.Errorf("depth image: %w", err)
	}
	b.swapResources.Push(img)
	if err := b.transitionImageLayout(img.image, b.depthFormat, vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal); err != nil {
		return nil, fmt.Errorf("depth image layout: %w", err)
	}
	return img, nil
}

func (b *Backend) createFramebuffers(views []vk.ImageView, depth *deviceImage) error {
	b.framebuffers = make([]vk.Framebuffer, len(views))
	for i, view := range views {
		attachments := []vk.ImageView{view}
		if depth != nil {
			attachments = append(attachments, depth.view)
		}
		info := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      b.renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           b.extent.Width,
			Height:          b.extent.Height,
			Layers:          1,
		}
		var fb vk.Framebuffer
		if err := check(vk.CreateFramebuffer(b.device, &info, nil, &fb), fmt.Sprintf("create framebuffer %d", i)); err != nil {
			return err
		}
		dev := b.device
		b.swapResources.PushFunc(func() { vk.DestroyFramebuffer(dev, fb, nil) })
		b.framebuffers[i] = fb
	}
	return nil
}

// Recreate rebuilds the swapchain, its views, the depth image and the
// framebuffers. The caller has idled the device.
func (b *Backend) Recreate() error {
	b.swapResources.Release()
	b.framebuffers = nil
	b.images = nil
	if err := b.createSwapchainResources(); err != nil {
		return fmt.Errorf("recreate swapchain: %w", err)
	}
	return nil
}

// Acquire takes the next presentable image and signals signal when it is ready
func (b *Backend) Acquire(signal engine.Semaphore) (uint32, error) {
	var image uint32
	res := vk.AcquireNextImage(b.device, b.swapchain, vk.MaxUint64, signal.(*semaphore).handle, vk.Fence(vk.NullHandle), &image)
	switch res {
	case vk.Success:
		return image, nil
	case vk.Suboptimal:
		return image, engine.ErrSuboptimal
	case vk.ErrorOutOfDate:
		return 0, engine.ErrOutOfDate
	default:
		return 0, fmt.Errorf("acquire next image: %w", vk.Error(res))
	}
}

// Present queues image for display once wait is signaled
func (b *Backend) Present(wait engine.Semaphore, image uint32) error {
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.(*semaphore).handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{b.swapchain},
		PImageIndices:      []uint32{image},
	}
	switch res := vk.QueuePresent(b.present, &info); res {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		return engine.ErrSuboptimal
	case vk.ErrorOutOfDate:
		return engine.ErrOutOfDate
	default:
		return fmt.Errorf("queue present: %w", vk.Error(res))
	}
}
