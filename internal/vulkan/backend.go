// Package vulkan implements the engine backend on vulkan-go: instance and
// device setup, the swapchain and its framebuffers, pipelines built from
// SPIR-V, staging uploads, descriptor bindings, sync objects and recording.
package vulkan

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"voxel-engine/internal/config"
	"voxel-engine/internal/engine"
	"voxel-engine/internal/logging"
	"voxel-engine/internal/teardown"
)

// Window is the surface source. *glfw.Window satisfies it.
type Window interface {
	GetRequiredInstanceExtensions() []string
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
	GetFramebufferSize() (int, int)
}

// Options configures a Backend
type Options struct {
	Mode engine.Mode
	// ShaderDir holds the compiled SPIR-V, defaults to config.GetShaderDir()
	ShaderDir  string
	Validation bool
	Logger     logging.Logger
}

// Backend is the vulkan-go implementation of engine.Backend. All methods must
// be called from the thread that created it.
type Backend struct {
	log        logging.Logger
	window     Window
	mode       engine.Mode
	shaderDir  string
	validation bool

	instance vk.Instance
	debug    vk.DebugReportCallback
	surface  vk.Surface
	physical vk.PhysicalDevice
	memProps vk.PhysicalDeviceMemoryProperties
	device   vk.Device
	families queueFamilies
	queues   [2]vk.Queue
	present  vk.Queue
	cmdPools [2]vk.CommandPool

	descriptorPool vk.DescriptorPool
	setLayout      vk.DescriptorSetLayout
	pipelineLayout vk.PipelineLayout
	renderPass     vk.RenderPass
	graphics       vk.Pipeline
	compute        vk.Pipeline
	depthFormat    vk.Format

	swapchain       vk.Swapchain
	swapchainFormat vk.Format
	extent          vk.Extent2D
	images          []vk.Image
	framebuffers    []vk.Framebuffer
	storageExtent   vk.Extent2D

	// resources lives as long as the device, swapResources until the next
	// Recreate
	resources     *teardown.Stack
	swapResources *teardown.Stack
}

// New brings up Vulkan on the window. The returned backend owns every object
// it creates; Destroy releases them.
func New(window Window, opts Options) (*Backend, error) {
	if opts.ShaderDir == "" {
		opts.ShaderDir = config.GetShaderDir()
	}
	b := &Backend{
		log:           logging.OrNop(opts.Logger),
		window:        window,
		mode:          opts.Mode,
		shaderDir:     opts.ShaderDir,
		validation:    opts.Validation,
		resources:     teardown.NewStack("device"),
		swapResources: teardown.NewStack("swapchain"),
	}

	if err := b.init(); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

func (b *Backend) init() error {
	if !glfw.VulkanSupported() {
		return errors.New("vulkan loader not found")
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return fmt.Errorf("vulkan init: %w", err)
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"instance", b.createInstance},
		{"debug callback", b.createDebugCallback},
		{"surface", b.createSurface},
		{"physical device", b.pickPhysicalDevice},
		{"logical device", b.createDevice},
		{"command pools", b.createCommandPools},
		{"descriptor pool", b.createDescriptorPool},
		{"descriptor set layout", b.createSetLayout},
		{"render pass", b.createRenderPass},
		{"pipelines", b.createPipelines},
		{"swapchain", b.createSwapchainResources},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return err
		}
		b.log.Debugf("vulkan: %s ready", s.name)
	}
	b.log.Infof("vulkan ready: mode=%s extent=%dx%d images=%d", b.mode, b.extent.Width, b.extent.Height, len(b.images))
	return nil
}

// Extent returns the current swapchain size
func (b *Backend) Extent() engine.Extent {
	return engine.Extent{Width: b.extent.Width, Height: b.extent.Height}
}

// WaitIdle blocks until the device has finished all submitted work
func (b *Backend) WaitIdle() error {
	if res := vk.DeviceWaitIdle(b.device); res != vk.Success {
		return fmt.Errorf("device wait idle: %w", vk.Error(res))
	}
	return nil
}

// Destroy releases the swapchain resources, then everything else in reverse
// creation order
func (b *Backend) Destroy() {
	if b.device != vk.Device(vk.NullHandle) {
		vk.DeviceWaitIdle(b.device)
	}
	b.swapResources.Release()
	b.resources.Release()
}

func cstring(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func cstrings(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = cstring(s)
	}
	return out
}

func check(res vk.Result, what string) error {
	if res != vk.Success {
		return fmt.Errorf("%s: %w", what, vk.Error(res))
	}
	return nil
}

var _ engine.Backend = (*Backend)(nil)
