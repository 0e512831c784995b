package vulkan

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"voxel-engine/internal/config"
	"voxel-engine/internal/engine"
)

var (
	validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
	deviceExtensions = []string{"VK_KHR_swapchain"}
)

// queueFamilies holds the chosen family indices. Graphics and compute work
// share one family so the raycast semaphores never cross families.
type queueFamilies struct {
	graphics    uint32
	present     uint32
	hasGraphics bool
	hasPresent  bool
}

func (q queueFamilies) complete() bool {
	return q.hasGraphics && q.hasPresent
}

func (q queueFamilies) unique() []uint32 {
	if q.graphics == q.present {
		return []uint32{q.graphics}
	}
	return []uint32{q.graphics, q.present}
}

func (b *Backend) createInstance() error {
	if b.validation && !layersSupported(validationLayers) {
		b.log.Warnf("validation layers not available; continuing without them")
		b.validation = false
	}

	extensions := b.window.GetRequiredInstanceExtensions()
	if b.validation {
		extensions = append(extensions, "VK_EXT_debug_report")
	}

	title := config.GetWindowTitle()
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   cstring(title),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        cstring(title),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.MakeVersion(1, 1, 0),
	}
	info := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: cstrings(extensions),
	}
	if b.validation {
		info.EnabledLayerCount = uint32(len(validationLayers))
		info.PpEnabledLayerNames = cstrings(validationLayers)
	}

	var instance vk.Instance
	if err := check(vk.CreateInstance(&info, nil, &instance), "create instance"); err != nil {
		return err
	}
	b.instance = instance
	b.resources.PushFunc(func() { vk.DestroyInstance(instance, nil) })

	if err := vk.InitInstance(instance); err != nil {
		return fmt.Errorf("init instance: %w", err)
	}
	return nil
}

func layersSupported(layers []string) bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	props := make([]vk.LayerProperties, count)
	if vk.EnumerateInstanceLayerProperties(&count, props) != vk.Success {
		return false
	}
	have := make(map[string]bool, len(props))
	for i := range props {
		props[i].Deref()
		have[vk.ToString(props[i].LayerName[:])] = true
	}
	for _, l := range layers {
		if !have[l] {
			return false
		}
	}
	return true
}

func (b *Backend) createDebugCallback() error {
	if !b.validation {
		return nil
	}
	info := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: func(flags vk.DebugReportFlags, _ vk.DebugReportObjectType, _ uint64, _ uint, code int32, prefix string, message string, _ unsafe.Pointer) vk.Bool32 {
			if flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0 {
				b.log.Errorf("[%s] %s (code=%d)", prefix, message, code)
			} else {
				b.log.Warnf("[%s] %s (code=%d)", prefix, message, code)
			}
			return vk.False
		},
	}
	var cb vk.DebugReportCallback
	if err := check(vk.CreateDebugReportCallback(b.instance, &info, nil, &cb), "create debug callback"); err != nil {
		return err
	}
	b.debug = cb
	instance := b.instance
	b.resources.PushFunc(func() { vk.DestroyDebugReportCallback(instance, cb, nil) })
	return nil
}

func (b *Backend) createSurface() error {
	ptr, err := b.window.CreateWindowSurface(b.instance, nil)
	if err != nil {
		return fmt.Errorf("create window surface: %w", err)
	}
	surface := vk.SurfaceFromPointer(ptr)
	b.surface = surface
	instance := b.instance
	b.resources.PushFunc(func() { vk.DestroySurface(instance, surface, nil) })
	return nil
}

func (b *Backend) pickPhysicalDevice() error {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(b.instance, &count, nil); res != vk.Success || count == 0 {
		return fmt.Errorf("enumerate physical devices: %w", vk.Error(res))
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := check(vk.EnumeratePhysicalDevices(b.instance, &count, devices), "enumerate physical devices"); err != nil {
		return err
	}

	best := -1
	for _, dev := range devices {
		families := b.findQueueFamilies(dev)
		if !families.complete() || !extensionsSupported(dev, deviceExtensions) {
			continue
		}
		formats, modes := b.surfaceSupport(dev)
		if len(formats) == 0 || len(modes) == 0 {
			continue
		}
		if score := deviceScore(dev); score > best {
			best = score
			b.physical = dev
			b.families = families
		}
	}
	if best < 0 {
		return errors.New("no suitable GPU found")
	}

	vk.GetPhysicalDeviceMemoryProperties(b.physical, &b.memProps)
	b.memProps.Deref()

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(b.physical, &props)
	props.Deref()
	b.log.Infof("using GPU %s", vk.ToString(props.DeviceName[:]))
	return nil
}

func deviceScore(dev vk.PhysicalDevice) int {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(dev, &props)
	props.Deref()
	switch props.DeviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 1000
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 500
	default:
		return 100
	}
}

func extensionsSupported(dev vk.PhysicalDevice, required []string) bool {
	var count uint32
	if vk.EnumerateDeviceExtensionProperties(dev, "", &count, nil) != vk.Success {
		return false
	}
	props := make([]vk.ExtensionProperties, count)
	if vk.EnumerateDeviceExtensionProperties(dev, "", &count, props) != vk.Success {
		return false
	}
	have := make(map[string]bool, len(props))
	for i := range props {
		props[i].Deref()
		have[vk.ToString(props[i].ExtensionName[:])] = true
	}
	for _, ext := range required {
		if !have[ext] {
			return false
		}
	}
	return true
}

func (b *Backend) findQueueFamilies(dev vk.PhysicalDevice) queueFamilies {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &count, props)

	want := vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit)
	var q queueFamilies
	for i := range props {
		props[i].Deref()
		if !q.hasGraphics && props[i].QueueFlags&want == want {
			q.graphics, q.hasGraphics = uint32(i), true
		}
		var present vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(dev, uint32(i), b.surface, &present)
		if present == vk.True && (!q.hasPresent || uint32(i) == q.graphics) {
			q.present, q.hasPresent = uint32(i), true
		}
	}
	return q
}

func (b *Backend) createDevice() error {
	priorities := []float32{1}
	var queueInfos []vk.DeviceQueueCreateInfo
	for _, family := range b.families.unique() {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: priorities,
		})
	}

	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: cstrings(deviceExtensions),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
	}
	if b.validation {
		info.EnabledLayerCount = uint32(len(validationLayers))
		info.PpEnabledLayerNames = cstrings(validationLayers)
	}

	var device vk.Device
	if err := check(vk.CreateDevice(b.physical, &info, nil, &device), "create logical device"); err != nil {
		return err
	}
	b.device = device
	b.resources.PushFunc(func() { vk.DestroyDevice(device, nil) })

	var graphics, present vk.Queue
	vk.GetDeviceQueue(device, b.families.graphics, 0, &graphics)
	vk.GetDeviceQueue(device, b.families.present, 0, &present)
	b.queues[engine.QueueGraphics] = graphics
	b.queues[engine.QueueCompute] = graphics
	b.present = present
	return nil
}

func (b *Backend) createCommandPools() error {
	for _, q := range []engine.Queue{engine.QueueGraphics, engine.QueueCompute} {
		info := vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
			QueueFamilyIndex: b.families.graphics,
		}
		var pool vk.CommandPool
		if err := check(vk.CreateCommandPool(b.device, &info, nil, &pool), "create command pool"); err != nil {
			return err
		}
		b.cmdPools[q] = pool
		dev := b.device
		b.resources.PushFunc(func() { vk.DestroyCommandPool(dev, pool, nil) })
	}
	return nil
}

func (b *Backend) createDescriptorPool() error {
	// every frame slot owns one set; spare capacity covers a recreation in flight
	sets := uint32(config.FramesInFlight * 4)
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: sets},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: sets},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: sets},
	}
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       sets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if err := check(vk.CreateDescriptorPool(b.device, &info, nil, &pool), "create descriptor pool"); err != nil {
		return err
	}
	b.descriptorPool = pool
	dev := b.device
	b.resources.PushFunc(func() { vk.DestroyDescriptorPool(dev, pool, nil) })
	return nil
}
