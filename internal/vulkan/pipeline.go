package vulkan

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"voxel-engine/internal/engine"
	"voxel-engine/internal/voxel"
)

// SPIR-V file names inside the shader directory
const (
	meshVertShader    = "vert.spv"
	meshFragShader    = "frag.spv"
	displayVertShader = "display_vert.spv"
	displayFragShader = "display_frag.spv"
	raycastShader     = "raycast.spv"
)

// descriptor bindings of the raycast layout; the raster layout only has the
// uniform buffer at 0
const (
	bindingUniforms = 0
	bindingVoxels   = 1
	bindingTarget   = 2
)

func (b *Backend) createSetLayout() error {
	var bindings []vk.DescriptorSetLayoutBinding
	if b.mode == engine.ModeRaycast {
		bindings = []vk.DescriptorSetLayoutBinding{
			{
				Binding:         bindingUniforms,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			},
			{
				Binding:         bindingVoxels,
				DescriptorType:  vk.DescriptorTypeStorageBuffer,
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			},
			{
				Binding:         bindingTarget,
				DescriptorType:  vk.DescriptorTypeStorageImage,
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit | vk.ShaderStageFragmentBit),
			},
		}
	} else {
		bindings = []vk.DescriptorSetLayoutBinding{{
			Binding:         bindingUniforms,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		}}
	}

	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := check(vk.CreateDescriptorSetLayout(b.device, &info, nil, &layout), "create descriptor set layout"); err != nil {
		return err
	}
	b.setLayout = layout
	dev := b.device
	b.resources.PushFunc(func() { vk.DestroyDescriptorSetLayout(dev, layout, nil) })

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{layout},
	}
	var pipelineLayout vk.PipelineLayout
	if err := check(vk.CreatePipelineLayout(b.device, &layoutInfo, nil, &pipelineLayout), "create pipeline layout"); err != nil {
		return err
	}
	b.pipelineLayout = pipelineLayout
	b.resources.PushFunc(func() { vk.DestroyPipelineLayout(dev, pipelineLayout, nil) })
	return nil
}

func (b *Backend) createRenderPass() error {
	formats, _ := b.surfaceSupport(b.physical)
	if len(formats) == 0 {
		return fmt.Errorf("surface reports no formats")
	}
	colorFormat := chooseSurfaceFormat(formats).Format

	attachments := []vk.AttachmentDescription{{
		Format:         colorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}
	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	access := vk.AccessFlags(vk.AccessColorAttachmentWriteBit)

	if b.mode == engine.ModeRaster {
		depthFormat, err := b.findDepthFormat()
		if err != nil {
			return err
		}
		b.depthFormat = depthFormat
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		stages |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
		access |= vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  stages,
		DstStageMask:  stages,
		DstAccessMask: access,
	}
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	var pass vk.RenderPass
	if err := check(vk.CreateRenderPass(b.device, &info, nil, &pass), "create render pass"); err != nil {
		return err
	}
	b.renderPass = pass
	dev := b.device
	b.resources.PushFunc(func() { vk.DestroyRenderPass(dev, pass, nil) })
	return nil
}

func (b *Backend) loadShader(name string) (vk.ShaderModule, error) {
	path := filepath.Join(b.shaderDir, name)
	code, err := os.ReadFile(path)
	if err != nil {
		return vk.ShaderModule(vk.NullHandle), fmt.Errorf("read shader: %w", err)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return vk.ShaderModule(vk.NullHandle), fmt.Errorf("shader %s: size %d is not a SPIR-V word multiple", path, len(code))
	}
	words := unsafe.Slice((*uint32)(unsafe.Pointer(&code[0])), len(code)/4)
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    words,
	}
	var module vk.ShaderModule
	if err := check(vk.CreateShaderModule(b.device, &info, nil, &module), "create shader module "+name); err != nil {
		return vk.ShaderModule(vk.NullHandle), err
	}
	return module, nil
}

// graphicsConfig is what differs between the mesh and the display pipeline
type graphicsConfig struct {
	vert, frag string
	stride     uint32
	attributes []vk.VertexInputAttributeDescription
	frontFace  vk.FrontFace
	depth      bool
}

func meshConfig() graphicsConfig {
	return graphicsConfig{
		vert:   meshVertShader,
		frag:   meshFragShader,
		stride: uint32(voxel.VertexSize),
		attributes: []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(voxel.VertexPositionOffset)},
			{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(voxel.VertexColorOffset)},
		},
		frontFace: vk.FrontFaceCounterClockwise,
		depth:     true,
	}
}

func displayConfig() graphicsConfig {
	return graphicsConfig{
		vert:   displayVertShader,
		frag:   displayFragShader,
		stride: uint32(engine.QuadVertexSize),
		attributes: []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(engine.QuadColorOffset)},
		},
		frontFace: vk.FrontFaceClockwise,
	}
}

func (b *Backend) createPipelines() error {
	cfg := meshConfig()
	if b.mode == engine.ModeRaycast {
		cfg = displayConfig()
		if err := b.createComputePipeline(); err != nil {
			return err
		}
	}
	return b.createGraphicsPipeline(cfg)
}

func (b *Backend) createGraphicsPipeline(cfg graphicsConfig) error {
	vert, err := b.loadShader(cfg.vert)
	if err != nil {
		return err
	}
	defer vk.DestroyShaderModule(b.device, vert, nil)
	frag, err := b.loadShader(cfg.frag)
	if err != nil {
		return err
	}
	defer vk.DestroyShaderModule(b.device, frag, nil)

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vert,
			PName:  cstring("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: frag,
			PName:  cstring("main"),
		},
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                         vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions: []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    cfg.stride,
			InputRate: vk.VertexInputRateVertex,
		}},
		VertexAttributeDescriptionCount: uint32(len(cfg.attributes)),
		PVertexAttributeDescriptions:    cfg.attributes,
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}
	// viewport and scissor are set while recording
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   cfg.frontFace,
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1,
	}
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:          vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthCompareOp: vk.CompareOpLess,
	}
	if cfg.depth {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthWriteEnable = vk.True
	}
	blend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{{
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		}},
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &blend,
		PDynamicState:       &dynamic,
		Layout:              b.pipelineLayout,
		RenderPass:          b.renderPass,
	}
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(b.device, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if err := check(res, "create graphics pipeline"); err != nil {
		return err
	}
	pipeline := pipelines[0]
	b.graphics = pipeline
	dev := b.device
	b.resources.PushFunc(func() { vk.DestroyPipeline(dev, pipeline, nil) })
	return nil
}

func (b *Backend) createComputePipeline() error {
	module, err := b.loadShader(raycastShader)
	if err != nil {
		return err
	}
	defer vk.DestroyShaderModule(b.device, module, nil)

	info := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: module,
			PName:  cstring("main"),
		},
		Layout: b.pipelineLayout,
	}
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateComputePipelines(b.device, vk.PipelineCache(vk.NullHandle), 1, []vk.ComputePipelineCreateInfo{info}, nil, pipelines)
	if err := check(res, "create compute pipeline"); err != nil {
		return err
	}
	pipeline := pipelines[0]
	b.compute = pipeline
	dev := b.device
	b.resources.PushFunc(func() { vk.DestroyPipeline(dev, pipeline, nil) })
	return nil
}
