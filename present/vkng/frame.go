package vkng

import (
	"log/slog"

	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/presenter/present"
)

func (d *Device) CreateSemaphore() (present.SemaphoreHandle, error) {
	semaphore, _, err := d.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return 0, err
	}
	return d.semaphores.add(semaphore), nil
}

func (d *Device) DestroySemaphore(semaphore present.SemaphoreHandle) {
	native, ok := d.semaphores.take(semaphore)
	if ok {
		d.driver.DestroySemaphore(native, nil)
	}
}

// CreateCommandPool creates a transient pool: its buffers are re-recorded
// every frame.
func (d *Device) CreateCommandPool(queueFamily int) (present.CommandPoolHandle, error) {
	pool, _, err := d.driver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateTransient,
		QueueFamilyIndex: queueFamily,
	})
	if err != nil {
		return 0, err
	}
	return d.pools.add(pool), nil
}

func (d *Device) DestroyCommandPool(pool present.CommandPoolHandle) {
	native, ok := d.pools.take(pool)
	if !ok {
		return
	}

	for _, cb := range d.poolBuffers[pool] {
		d.commandBuffers.take(cb)
	}
	delete(d.poolBuffers, pool)

	d.driver.DestroyCommandPool(native, nil)
}

func (d *Device) AllocateCommandBuffer(pool present.CommandPoolHandle) (present.CommandBufferHandle, error) {
	native, err := d.pools.get(pool)
	if err != nil {
		return 0, err
	}

	buffers, _, err := d.driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        native,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return 0, err
	}

	cb := d.commandBuffers.add(buffers[0])
	d.poolBuffers[pool] = append(d.poolBuffers[pool], cb)
	return cb, nil
}

// AcquireNextImage blocks without timeout. A suboptimal acquire still
// yields a usable image and is not an error.
func (d *Device) AcquireNextImage(swapchain present.SwapchainHandle, signal present.SemaphoreHandle) (int, error) {
	native, err := d.swapchains.get(swapchain)
	if err != nil {
		return 0, err
	}

	semaphore, err := d.semaphores.get(signal)
	if err != nil {
		return 0, err
	}

	imageIndex, res, err := d.swapchainExtension.AcquireNextImage(native, common.NoTimeout, &semaphore, nil)
	if err != nil {
		return 0, err
	}
	if res == khr_swapchain.VKSuboptimal {
		present.Logger().Debug("suboptimal swapchain image acquired", slog.Int("image", imageIndex))
	}

	return imageIndex, nil
}

func (d *Device) ResetCommandPool(pool present.CommandPoolHandle) error {
	native, err := d.pools.get(pool)
	if err != nil {
		return err
	}

	_, err = d.driver.ResetCommandPool(native, 0)
	return err
}

func (d *Device) BeginCommandBuffer(cb present.CommandBufferHandle) error {
	native, err := d.commandBuffers.get(cb)
	if err != nil {
		return err
	}

	_, err = d.driver.BeginCommandBuffer(native, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	return err
}

// imageBarrier converts a single-image transition. The whole color
// subresource of the image is covered and no queue family ownership moves.
func imageBarrier(barrier present.ImageBarrier, image core1_0.Image) (core1_0.DependencyFlags, core1_0.ImageMemoryBarrier) {
	var dependency core1_0.DependencyFlags
	if barrier.ByRegion {
		dependency = core1_0.DependencyByRegion
	}

	return dependency, core1_0.ImageMemoryBarrier{
		SrcAccessMask:       barrier.SrcAccess,
		DstAccessMask:       barrier.DstAccess,
		OldLayout:           barrier.OldLayout,
		NewLayout:           barrier.NewLayout,
		SrcQueueFamilyIndex: -1,
		DstQueueFamilyIndex: -1,
		Image:               image,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     core1_0.ImageAspectColor,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
}

func (d *Device) CmdPipelineBarrier(cb present.CommandBufferHandle, barrier present.ImageBarrier) error {
	native, err := d.commandBuffers.get(cb)
	if err != nil {
		return err
	}

	image, err := d.images.get(barrier.Image)
	if err != nil {
		return err
	}

	dependency, nativeBarrier := imageBarrier(barrier, image)
	return d.driver.CmdPipelineBarrier(native, barrier.SrcStage, barrier.DstStage, dependency, nil, nil, []core1_0.ImageMemoryBarrier{nativeBarrier})
}

func (d *Device) CmdBeginRenderPass(cb present.CommandBufferHandle, renderPass present.RenderPassHandle, framebuffer present.FramebufferHandle, area core1_0.Rect2D, clear core1_0.ClearValue) error {
	native, err := d.commandBuffers.get(cb)
	if err != nil {
		return err
	}

	pass, err := d.renderPasses.get(renderPass)
	if err != nil {
		return err
	}

	fb, err := d.framebuffers.get(framebuffer)
	if err != nil {
		return err
	}

	return d.driver.CmdBeginRenderPass(native, core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
		RenderPass:  pass,
		Framebuffer: fb,
		RenderArea:  area,
		ClearValues: []core1_0.ClearValue{clear},
	})
}

// recording looks up cb for the commands that cannot report an error. A
// miss means the frame is already broken; it is logged and the command
// dropped.
func (d *Device) recording(cb present.CommandBufferHandle) (core1_0.CommandBuffer, bool) {
	native, err := d.commandBuffers.get(cb)
	if err != nil {
		present.Logger().Error("dropping command", slog.Any("error", err))
		return native, false
	}
	return native, true
}

func (d *Device) CmdSetViewport(cb present.CommandBufferHandle, viewport core1_0.Viewport) {
	if native, ok := d.recording(cb); ok {
		d.driver.CmdSetViewport(native, viewport)
	}
}

func (d *Device) CmdSetScissor(cb present.CommandBufferHandle, scissor core1_0.Rect2D) {
	if native, ok := d.recording(cb); ok {
		d.driver.CmdSetScissor(native, scissor)
	}
}

func (d *Device) CmdEndRenderPass(cb present.CommandBufferHandle) {
	if native, ok := d.recording(cb); ok {
		d.driver.CmdEndRenderPass(native)
	}
}

func (d *Device) EndCommandBuffer(cb present.CommandBufferHandle) error {
	native, err := d.commandBuffers.get(cb)
	if err != nil {
		return err
	}

	_, err = d.driver.EndCommandBuffer(native)
	return err
}

func (d *Device) QueueSubmit(queue present.QueueHandle, info present.SubmitInfo) error {
	nativeQueue, err := d.queues.get(queue)
	if err != nil {
		return err
	}

	cb, err := d.commandBuffers.get(info.CommandBuffer)
	if err != nil {
		return err
	}

	wait, err := d.semaphores.get(info.WaitSemaphore)
	if err != nil {
		return err
	}

	signal, err := d.semaphores.get(info.SignalSemaphore)
	if err != nil {
		return err
	}

	_, err = d.driver.QueueSubmit(nativeQueue, nil, core1_0.SubmitInfo{
		WaitSemaphores:   []core1_0.Semaphore{wait},
		WaitDstStageMask: []core1_0.PipelineStageFlags{info.WaitStage},
		CommandBuffers:   []core1_0.CommandBuffer{cb},
		SignalSemaphores: []core1_0.Semaphore{signal},
	})
	return err
}

func (d *Device) QueuePresent(queue present.QueueHandle, info present.PresentInfo) error {
	nativeQueue, err := d.queues.get(queue)
	if err != nil {
		return err
	}

	wait, err := d.semaphores.get(info.WaitSemaphore)
	if err != nil {
		return err
	}

	swapchain, err := d.swapchains.get(info.Swapchain)
	if err != nil {
		return err
	}

	res, err := d.swapchainExtension.QueuePresent(nativeQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{wait},
		Swapchains:     []khr_swapchain.Swapchain{swapchain},
		ImageIndices:   []int{info.ImageIndex},
	})
	if err != nil {
		return err
	}
	if res == khr_swapchain.VKSuboptimal {
		present.Logger().Debug("suboptimal present", slog.Int("image", info.ImageIndex))
	}

	return nil
}

func (d *Device) CmdBindPipeline(cb present.CommandBufferHandle, pipeline present.PipelineHandle) {
	native, ok := d.recording(cb)
	if !ok {
		return
	}

	p, err := d.pipelines.get(pipeline)
	if err != nil {
		present.Logger().Error("dropping command", slog.Any("error", err))
		return
	}

	d.driver.CmdBindPipeline(native, core1_0.PipelineBindPointGraphics, p)
}

func (d *Device) CmdBindVertexBuffer(cb present.CommandBufferHandle, buffer present.BufferHandle) {
	native, ok := d.recording(cb)
	if !ok {
		return
	}

	b, err := d.buffers.get(buffer)
	if err != nil {
		present.Logger().Error("dropping command", slog.Any("error", err))
		return
	}

	d.driver.CmdBindVertexBuffers(native, 0, []core1_0.Buffer{b}, []int{0})
}

func (d *Device) CmdBindIndexBuffer(cb present.CommandBufferHandle, buffer present.BufferHandle) {
	native, ok := d.recording(cb)
	if !ok {
		return
	}

	b, err := d.buffers.get(buffer)
	if err != nil {
		present.Logger().Error("dropping command", slog.Any("error", err))
		return
	}

	d.driver.CmdBindIndexBuffer(native, b, 0, core1_0.IndexTypeUInt32)
}

func (d *Device) CmdBindDescriptorSet(cb present.CommandBufferHandle, layout present.PipelineLayoutHandle, set present.DescriptorSetHandle) {
	native, ok := d.recording(cb)
	if !ok {
		return
	}

	l, err := d.layouts.get(layout)
	if err != nil {
		present.Logger().Error("dropping command", slog.Any("error", err))
		return
	}

	s, err := d.descriptorSets.get(set)
	if err != nil {
		present.Logger().Error("dropping command", slog.Any("error", err))
		return
	}

	d.driver.CmdBindDescriptorSets(native, core1_0.PipelineBindPointGraphics, l, 0, []core1_0.DescriptorSet{s}, nil)
}

func (d *Device) CmdDraw(cb present.CommandBufferHandle, vertexCount, instanceCount int) {
	if native, ok := d.recording(cb); ok {
		d.driver.CmdDraw(native, vertexCount, instanceCount, 0, 0)
	}
}

func (d *Device) CmdDrawIndexed(cb present.CommandBufferHandle, indexCount, instanceCount int) {
	if native, ok := d.recording(cb); ok {
		d.driver.CmdDrawIndexed(native, indexCount, instanceCount, 0, 0, 0)
	}
}
