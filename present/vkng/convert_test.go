package vkng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/presenter/present"
)

func TestImageBarrierToPresent(t *testing.T) {
	dependency, barrier := imageBarrier(present.ImageBarrier{
		OldLayout: core1_0.ImageLayoutColorAttachmentOptimal,
		NewLayout: khr_swapchain.ImageLayoutPresentSrc,
		SrcStage:  core1_0.PipelineStageColorAttachmentOutput,
		DstStage:  core1_0.PipelineStageBottomOfPipe,
		SrcAccess: core1_0.AccessColorAttachmentWrite,
		ByRegion:  true,
	}, core1_0.Image{})

	assert.Equal(t, core1_0.DependencyByRegion, dependency)
	assert.Equal(t, core1_0.ImageLayoutColorAttachmentOptimal, barrier.OldLayout)
	assert.Equal(t, khr_swapchain.ImageLayoutPresentSrc, barrier.NewLayout)
	assert.Equal(t, core1_0.AccessColorAttachmentWrite, barrier.SrcAccessMask)
	assert.Zero(t, barrier.DstAccessMask)
	assert.Equal(t, -1, barrier.SrcQueueFamilyIndex)
	assert.Equal(t, -1, barrier.DstQueueFamilyIndex)
	assert.Equal(t, core1_0.ImageAspectColor, barrier.SubresourceRange.AspectMask)
	assert.Equal(t, 1, barrier.SubresourceRange.LevelCount)
	assert.Equal(t, 1, barrier.SubresourceRange.LayerCount)
}

func TestImageBarrierWithoutRegion(t *testing.T) {
	dependency, _ := imageBarrier(present.ImageBarrier{}, core1_0.Image{})
	assert.Zero(t, dependency)
}

func TestSharingMode(t *testing.T) {
	mode, families := sharingMode(present.QueueFamilies{Graphics: 1, Present: 1})
	assert.Equal(t, core1_0.SharingModeExclusive, mode)
	assert.Empty(t, families)

	mode, families = sharingMode(present.QueueFamilies{Graphics: 0, Present: 2})
	assert.Equal(t, core1_0.SharingModeConcurrent, mode)
	assert.Equal(t, []int{0, 2}, families)
}

func TestDeviceClass(t *testing.T) {
	assert.Equal(t, present.DeviceClassDiscrete, deviceClass(core1_0.PhysicalDeviceTypeDiscreteGPU))
	assert.Equal(t, present.DeviceClassIntegrated, deviceClass(core1_0.PhysicalDeviceTypeIntegratedGPU))
	assert.Equal(t, present.DeviceClassOther, deviceClass(core1_0.PhysicalDeviceTypeCPU))
	assert.Equal(t, present.DeviceClassOther, deviceClass(core1_0.PhysicalDeviceTypeVirtualGPU))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"VK_KHR_surface", "VK_KHR_swapchain"}, names(map[string]int{
		"VK_KHR_swapchain": 1,
		"VK_KHR_surface":   2,
	}))
	assert.Empty(t, names(map[string]int{}))
}
