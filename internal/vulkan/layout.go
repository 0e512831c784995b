package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// ErrUnsupportedLayoutTransition is returned for image layout pairs the
// backend has no barrier for
var ErrUnsupportedLayoutTransition = errors.New("unsupported layout transition")

// barrierMasks are the access and stage masks of one image layout transition
type barrierMasks struct {
	srcAccess vk.AccessFlags
	dstAccess vk.AccessFlags
	srcStage  vk.PipelineStageFlags
	dstStage  vk.PipelineStageFlags
}

type layoutPair struct {
	from, to vk.ImageLayout
}

var transitions = map[layoutPair]barrierMasks{
	{vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal}: {
		dstAccess: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
	},
	{vk.ImageLayoutUndefined, vk.ImageLayoutGeneral}: {
		dstAccess: vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit | vk.PipelineStageFragmentShaderBit),
	},
}

func transitionMasks(from, to vk.ImageLayout) (barrierMasks, error) {
	m, ok := transitions[layoutPair{from, to}]
	if !ok {
		return barrierMasks{}, fmt.Errorf("%w: %d -> %d", ErrUnsupportedLayoutTransition, from, to)
	}
	return m, nil
}

func hasStencil(format vk.Format) bool {
	return format == vk.FormatD32SfloatS8Uint || format == vk.FormatD24UnormS8Uint
}

func aspectFor(layout vk.ImageLayout, format vk.Format) vk.ImageAspectFlags {
	if layout != vk.ImageLayoutDepthStencilAttachmentOptimal {
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if hasStencil(format) {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return aspect
}

// transitionImageLayout records and submits one image barrier
func (b *Backend) transitionImageLayout(image vk.Image, format vk.Format, from, to vk.ImageLayout) error {
	masks, err := transitionMasks(from, to)
	if err != nil {
		return err
	}
	return b.oneTimeCommands(func(cb vk.CommandBuffer) {
		barrier := vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			OldLayout:           from,
			NewLayout:           to,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               image,
			SrcAccessMask:       masks.srcAccess,
			DstAccessMask:       masks.dstAccess,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: aspectFor(to, format),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		vk.CmdPipelineBarrier(cb, masks.srcStage, masks.dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	})
}
