package present

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// DeviceEnumerator lists the physical devices visible to an instance.
type DeviceEnumerator interface {
	EnumeratePhysicalDevices() ([]PhysicalDeviceCandidate, error)
}

// PresentationSupport answers whether a queue family of a physical device
// can present to the surface the implementation is bound to.
type PresentationSupport interface {
	PresentationSupported(device PhysicalDeviceHandle, queueFamily int) (bool, error)
}

// SurfaceQuerier reports what the bound surface supports on the selected
// physical device.
type SurfaceQuerier interface {
	SurfaceCapabilities() (*khr_surface.SurfaceCapabilities, error)
	SurfaceFormats() ([]khr_surface.SurfaceFormat, error)
	SurfacePresentModes() ([]khr_surface.PresentMode, error)
}

// SwapchainCreateInfo is everything the driver needs to build one chain.
// OldSwapchain is the previous generation when rebuilding, or the null
// handle for the first generation.
type SwapchainCreateInfo struct {
	ImageCount     int
	Format         khr_surface.SurfaceFormat
	Extent         core1_0.Extent2D
	Transform      khr_surface.SurfaceTransformFlags
	CompositeAlpha khr_surface.CompositeAlphaFlags
	PresentMode    khr_surface.PresentMode
	QueueFamilies  QueueFamilies
	OldSwapchain   SwapchainHandle
}

// SwapchainDriver is the native surface of the Swapchain Manager.
type SwapchainDriver interface {
	SurfaceQuerier

	CreateSwapchain(info SwapchainCreateInfo) (SwapchainHandle, error)
	SwapchainImages(swapchain SwapchainHandle) ([]ImageHandle, error)
	CreateImageView(image ImageHandle, format core1_0.Format) (ImageViewHandle, error)
	CreateFramebuffer(renderPass RenderPassHandle, view ImageViewHandle, extent core1_0.Extent2D) (FramebufferHandle, error)

	DestroyFramebuffer(framebuffer FramebufferHandle)
	DestroyImageView(view ImageViewHandle)
	DestroySwapchain(swapchain SwapchainHandle)

	WaitIdle() error
}

// ImageBarrier is a single-image layout transition.
type ImageBarrier struct {
	Image     ImageHandle
	OldLayout core1_0.ImageLayout
	NewLayout core1_0.ImageLayout
	SrcStage  core1_0.PipelineStageFlags
	DstStage  core1_0.PipelineStageFlags
	SrcAccess core1_0.AccessFlags
	DstAccess core1_0.AccessFlags
	ByRegion  bool
}

// SubmitInfo describes one graphics queue submission.
type SubmitInfo struct {
	WaitSemaphore   SemaphoreHandle
	WaitStage       core1_0.PipelineStageFlags
	CommandBuffer   CommandBufferHandle
	SignalSemaphore SemaphoreHandle
}

// PresentInfo describes one presentation request.
type PresentInfo struct {
	WaitSemaphore SemaphoreHandle
	Swapchain     SwapchainHandle
	ImageIndex    int
}

// CommandRecorder records draw-time commands into a command buffer.
type CommandRecorder interface {
	CmdBindPipeline(cb CommandBufferHandle, pipeline PipelineHandle)
	CmdBindVertexBuffer(cb CommandBufferHandle, buffer BufferHandle)
	CmdBindIndexBuffer(cb CommandBufferHandle, buffer BufferHandle)
	CmdBindDescriptorSet(cb CommandBufferHandle, layout PipelineLayoutHandle, set DescriptorSetHandle)
	CmdDraw(cb CommandBufferHandle, vertexCount, instanceCount int)
	CmdDrawIndexed(cb CommandBufferHandle, indexCount, instanceCount int)
}

// FrameDriver is the native surface of the Frame Executor.
type FrameDriver interface {
	CommandRecorder

	CreateSemaphore() (SemaphoreHandle, error)
	DestroySemaphore(semaphore SemaphoreHandle)
	CreateCommandPool(queueFamily int) (CommandPoolHandle, error)
	DestroyCommandPool(pool CommandPoolHandle)
	AllocateCommandBuffer(pool CommandPoolHandle) (CommandBufferHandle, error)

	AcquireNextImage(swapchain SwapchainHandle, signal SemaphoreHandle) (int, error)
	ResetCommandPool(pool CommandPoolHandle) error
	BeginCommandBuffer(cb CommandBufferHandle) error
	CmdPipelineBarrier(cb CommandBufferHandle, barrier ImageBarrier) error
	CmdBeginRenderPass(cb CommandBufferHandle, renderPass RenderPassHandle, framebuffer FramebufferHandle, area core1_0.Rect2D, clear core1_0.ClearValue) error
	CmdSetViewport(cb CommandBufferHandle, viewport core1_0.Viewport)
	CmdSetScissor(cb CommandBufferHandle, scissor core1_0.Rect2D)
	CmdEndRenderPass(cb CommandBufferHandle)
	EndCommandBuffer(cb CommandBufferHandle) error
	QueueSubmit(queue QueueHandle, info SubmitInfo) error
	QueuePresent(queue QueueHandle, info PresentInfo) error

	WaitIdle() error
}

// MemoryRequirements is what the device demands for a buffer's backing
// allocation.
type MemoryRequirements struct {
	Size           int
	MemoryTypeBits uint32
}

// MemoryDriver is the native surface of the Linear Buffer Allocator.
type MemoryDriver interface {
	CreateBuffer(size int, usage core1_0.BufferUsageFlags) (BufferHandle, error)
	BufferMemoryRequirements(buffer BufferHandle) MemoryRequirements
	MemoryTypes() []core1_0.MemoryPropertyFlags
	AllocateMemory(size int, memoryTypeIndex int) (MemoryHandle, error)
	BindBufferMemory(buffer BufferHandle, memory MemoryHandle) error
	MapMemory(memory MemoryHandle, size int) ([]byte, error)
	UnmapMemory(memory MemoryHandle)
	FreeMemory(memory MemoryHandle)
	DestroyBuffer(buffer BufferHandle)
}
