package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"voxel-engine/internal/engine"
)

var clearColor = []float32{0, 0, 0, 1}

func begin(cb vk.CommandBuffer) error {
	info := vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo}
	return check(vk.BeginCommandBuffer(cb, &info), "begin command buffer")
}

// RecordDraw records one render pass into the framebuffer of d.Image. A draw
// without geometry still clears the image.
func (b *Backend) RecordDraw(cb engine.CommandBuffer, d engine.Draw) error {
	if int(d.Image) >= len(b.framebuffers) {
		return fmt.Errorf("record draw: image %d out of %d", d.Image, len(b.framebuffers))
	}
	handle := cb.(*commandBuffer).handle
	if err := begin(handle); err != nil {
		return err
	}

	extent := vk.Extent2D{Width: d.Extent.Width, Height: d.Extent.Height}
	clears := []vk.ClearValue{vk.NewClearValue(clearColor)}
	if d.Pipeline == engine.PipelineMesh {
		clears = append(clears, vk.NewClearDepthStencil(1, 0))
	}
	pass := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      b.renderPass,
		Framebuffer:     b.framebuffers[d.Image],
		RenderArea:      vk.Rect2D{Extent: extent},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}
	vk.CmdBeginRenderPass(handle, &pass, vk.SubpassContentsInline)

	if d.IndexCount > 0 && d.Vertices != nil && d.Indices != nil {
		vk.CmdBindPipeline(handle, vk.PipelineBindPointGraphics, b.graphics)
		vk.CmdSetViewport(handle, 0, 1, []vk.Viewport{{
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MaxDepth: 1,
		}})
		vk.CmdSetScissor(handle, 0, 1, []vk.Rect2D{{Extent: extent}})

		vertices := d.Vertices.(*buffer).handle
		vk.CmdBindVertexBuffers(handle, 0, 1, []vk.Buffer{vertices}, []vk.DeviceSize{0})
		vk.CmdBindIndexBuffer(handle, d.Indices.(*buffer).handle, 0, vk.IndexTypeUint32)
		set := d.Bindings.(*bindings).set
		vk.CmdBindDescriptorSets(handle, vk.PipelineBindPointGraphics, b.pipelineLayout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
		vk.CmdDrawIndexed(handle, d.IndexCount, 1, 0, 0, 0)
	}

	vk.CmdEndRenderPass(handle)
	return check(vk.EndCommandBuffer(handle), "end command buffer")
}

// RecordDispatch records the raycast compute pass
func (b *Backend) RecordDispatch(cb engine.CommandBuffer, d engine.Dispatch) error {
	handle := cb.(*commandBuffer).handle
	if err := begin(handle); err != nil {
		return err
	}
	set := d.Bindings.(*bindings).set
	vk.CmdBindPipeline(handle, vk.PipelineBindPointCompute, b.compute)
	vk.CmdBindDescriptorSets(handle, vk.PipelineBindPointCompute, b.pipelineLayout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
	vk.CmdDispatch(handle, d.GroupsX, d.GroupsY, 1)
	return check(vk.EndCommandBuffer(handle), "end command buffer")
}
