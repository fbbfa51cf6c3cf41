package present

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

var errInjected = errors.New("injected failure")

// fakeDriver is an in-memory stand-in for a device and surface. It hands
// out increasing handles, counts creations and destructions per kind,
// records the command stream and fails any call named in failOn.
type fakeDriver struct {
	next uint64

	caps    khr_surface.SurfaceCapabilities
	formats []khr_surface.SurfaceFormat
	modes   []khr_surface.PresentMode

	devices []PhysicalDeviceCandidate
	present map[PhysicalDeviceHandle][]int

	memoryTypes []core1_0.MemoryPropertyFlags
	typeBits    uint32
	padding     int
	bufferSizes map[BufferHandle]int
	memory      map[MemoryHandle][]byte

	created   map[string]int
	destroyed map[string][]uint64
	live      map[uint64]string

	swapchainInfos []SwapchainCreateInfo
	acquireIndex   int
	calls          []string
	barriers       []ImageBarrier
	submits        []SubmitInfo
	presents       []PresentInfo
	viewports      []core1_0.Viewport

	failOn map[string]bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		caps: khr_surface.SurfaceCapabilities{
			MinImageCount:           2,
			MaxImageCount:           3,
			CurrentExtent:           core1_0.Extent2D{Width: 800, Height: 600},
			MinImageExtent:          core1_0.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:          core1_0.Extent2D{Width: 4096, Height: 4096},
			CurrentTransform:        khr_surface.TransformIdentity,
			SupportedCompositeAlpha: khr_surface.CompositeAlphaOpaque,
		},
		formats: []khr_surface.SurfaceFormat{
			{Format: core1_0.FormatUndefined, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
		},
		modes:       []khr_surface.PresentMode{khr_surface.PresentModeFIFO},
		present:     map[PhysicalDeviceHandle][]int{},
		memoryTypes: []core1_0.MemoryPropertyFlags{core1_0.MemoryPropertyDeviceLocal, hostCoherent},
		typeBits:    0b11,
		bufferSizes: map[BufferHandle]int{},
		memory:      map[MemoryHandle][]byte{},
		created:     map[string]int{},
		destroyed:   map[string][]uint64{},
		live:        map[uint64]string{},
		failOn:      map[string]bool{},
	}
}

func (f *fakeDriver) call(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn[name] {
		return errors.Wrap(errInjected, name)
	}
	return nil
}

func (f *fakeDriver) create(kind string) uint64 {
	f.next++
	f.created[kind]++
	f.live[f.next] = kind
	return f.next
}

func (f *fakeDriver) destroy(kind string, handle uint64) {
	f.calls = append(f.calls, "Destroy"+kind)
	if f.live[handle] != kind {
		panic(fmt.Sprintf("destroy %s %d: not a live %s", kind, handle, kind))
	}
	delete(f.live, handle)
	f.destroyed[kind] = append(f.destroyed[kind], handle)
}

// liveCount counts live objects of kind, or all of them for "".
func (f *fakeDriver) liveCount(kind string) int {
	count := 0
	for _, k := range f.live {
		if kind == "" || k == kind {
			count++
		}
	}
	return count
}

func (f *fakeDriver) EnumeratePhysicalDevices() ([]PhysicalDeviceCandidate, error) {
	return f.devices, f.call("EnumeratePhysicalDevices")
}

func (f *fakeDriver) PresentationSupported(device PhysicalDeviceHandle, queueFamily int) (bool, error) {
	if err := f.call("PresentationSupported"); err != nil {
		return false, err
	}
	for _, family := range f.present[device] {
		if family == queueFamily {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDriver) SurfaceCapabilities() (*khr_surface.SurfaceCapabilities, error) {
	caps := f.caps
	return &caps, f.call("SurfaceCapabilities")
}

func (f *fakeDriver) SurfaceFormats() ([]khr_surface.SurfaceFormat, error) {
	return f.formats, f.call("SurfaceFormats")
}

func (f *fakeDriver) SurfacePresentModes() ([]khr_surface.PresentMode, error) {
	return f.modes, f.call("SurfacePresentModes")
}

func (f *fakeDriver) CreateSwapchain(info SwapchainCreateInfo) (SwapchainHandle, error) {
	if err := f.call("CreateSwapchain"); err != nil {
		return 0, err
	}
	f.swapchainInfos = append(f.swapchainInfos, info)
	return SwapchainHandle(f.create("Swapchain")), nil
}

func (f *fakeDriver) SwapchainImages(swapchain SwapchainHandle) ([]ImageHandle, error) {
	if err := f.call("SwapchainImages"); err != nil {
		return nil, err
	}
	info := f.swapchainInfos[len(f.swapchainInfos)-1]
	images := make([]ImageHandle, info.ImageCount)
	for i := range images {
		f.next++
		images[i] = ImageHandle(f.next)
	}
	return images, nil
}

func (f *fakeDriver) CreateImageView(image ImageHandle, format core1_0.Format) (ImageViewHandle, error) {
	if err := f.call("CreateImageView"); err != nil {
		return 0, err
	}
	return ImageViewHandle(f.create("ImageView")), nil
}

func (f *fakeDriver) CreateFramebuffer(renderPass RenderPassHandle, view ImageViewHandle, extent core1_0.Extent2D) (FramebufferHandle, error) {
	if err := f.call("CreateFramebuffer"); err != nil {
		return 0, err
	}
	return FramebufferHandle(f.create("Framebuffer")), nil
}

func (f *fakeDriver) DestroyFramebuffer(framebuffer FramebufferHandle) {
	f.destroy("Framebuffer", uint64(framebuffer))
}

func (f *fakeDriver) DestroyImageView(view ImageViewHandle) {
	f.destroy("ImageView", uint64(view))
}

func (f *fakeDriver) DestroySwapchain(swapchain SwapchainHandle) {
	f.destroy("Swapchain", uint64(swapchain))
}

func (f *fakeDriver) WaitIdle() error {
	return f.call("WaitIdle")
}

func (f *fakeDriver) CreateSemaphore() (SemaphoreHandle, error) {
	if err := f.call("CreateSemaphore"); err != nil {
		return 0, err
	}
	return SemaphoreHandle(f.create("Semaphore")), nil
}

func (f *fakeDriver) DestroySemaphore(semaphore SemaphoreHandle) {
	f.destroy("Semaphore", uint64(semaphore))
}

func (f *fakeDriver) CreateCommandPool(queueFamily int) (CommandPoolHandle, error) {
	if err := f.call("CreateCommandPool"); err != nil {
		return 0, err
	}
	return CommandPoolHandle(f.create("CommandPool")), nil
}

func (f *fakeDriver) DestroyCommandPool(pool CommandPoolHandle) {
	f.destroy("CommandPool", uint64(pool))
}

func (f *fakeDriver) AllocateCommandBuffer(pool CommandPoolHandle) (CommandBufferHandle, error) {
	if err := f.call("AllocateCommandBuffer"); err != nil {
		return 0, err
	}
	f.next++
	return CommandBufferHandle(f.next), nil
}

func (f *fakeDriver) AcquireNextImage(swapchain SwapchainHandle, signal SemaphoreHandle) (int, error) {
	if err := f.call("AcquireNextImage"); err != nil {
		return 0, err
	}
	return f.acquireIndex, nil
}

func (f *fakeDriver) ResetCommandPool(pool CommandPoolHandle) error {
	return f.call("ResetCommandPool")
}

func (f *fakeDriver) BeginCommandBuffer(cb CommandBufferHandle) error {
	return f.call("BeginCommandBuffer")
}

func (f *fakeDriver) CmdPipelineBarrier(cb CommandBufferHandle, barrier ImageBarrier) error {
	f.barriers = append(f.barriers, barrier)
	return f.call("CmdPipelineBarrier")
}

func (f *fakeDriver) CmdBeginRenderPass(cb CommandBufferHandle, renderPass RenderPassHandle, framebuffer FramebufferHandle, area core1_0.Rect2D, clear core1_0.ClearValue) error {
	return f.call("CmdBeginRenderPass")
}

func (f *fakeDriver) CmdSetViewport(cb CommandBufferHandle, viewport core1_0.Viewport) {
	f.viewports = append(f.viewports, viewport)
	f.calls = append(f.calls, "CmdSetViewport")
}

func (f *fakeDriver) CmdSetScissor(cb CommandBufferHandle, scissor core1_0.Rect2D) {
	f.calls = append(f.calls, "CmdSetScissor")
}

func (f *fakeDriver) CmdEndRenderPass(cb CommandBufferHandle) {
	f.calls = append(f.calls, "CmdEndRenderPass")
}

func (f *fakeDriver) EndCommandBuffer(cb CommandBufferHandle) error {
	return f.call("EndCommandBuffer")
}

func (f *fakeDriver) QueueSubmit(queue QueueHandle, info SubmitInfo) error {
	f.submits = append(f.submits, info)
	return f.call("QueueSubmit")
}

func (f *fakeDriver) QueuePresent(queue QueueHandle, info PresentInfo) error {
	f.presents = append(f.presents, info)
	return f.call("QueuePresent")
}

func (f *fakeDriver) CmdBindPipeline(cb CommandBufferHandle, pipeline PipelineHandle) {
	f.calls = append(f.calls, "CmdBindPipeline")
}

func (f *fakeDriver) CmdBindVertexBuffer(cb CommandBufferHandle, buffer BufferHandle) {
	f.calls = append(f.calls, "CmdBindVertexBuffer")
}

func (f *fakeDriver) CmdBindIndexBuffer(cb CommandBufferHandle, buffer BufferHandle) {
	f.calls = append(f.calls, "CmdBindIndexBuffer")
}

func (f *fakeDriver) CmdBindDescriptorSet(cb CommandBufferHandle, layout PipelineLayoutHandle, set DescriptorSetHandle) {
	f.calls = append(f.calls, "CmdBindDescriptorSet")
}

func (f *fakeDriver) CmdDraw(cb CommandBufferHandle, vertexCount, instanceCount int) {
	f.calls = append(f.calls, "CmdDraw")
}

func (f *fakeDriver) CmdDrawIndexed(cb CommandBufferHandle, indexCount, instanceCount int) {
	f.calls = append(f.calls, "CmdDrawIndexed")
}

func (f *fakeDriver) CreateBuffer(size int, usage core1_0.BufferUsageFlags) (BufferHandle, error) {
	if err := f.call("CreateBuffer"); err != nil {
		return 0, err
	}
	handle := BufferHandle(f.create("Buffer"))
	f.bufferSizes[handle] = size
	return handle, nil
}

func (f *fakeDriver) BufferMemoryRequirements(buffer BufferHandle) MemoryRequirements {
	return MemoryRequirements{Size: f.bufferSizes[buffer] + f.padding, MemoryTypeBits: f.typeBits}
}

func (f *fakeDriver) MemoryTypes() []core1_0.MemoryPropertyFlags {
	return f.memoryTypes
}

func (f *fakeDriver) AllocateMemory(size int, memoryTypeIndex int) (MemoryHandle, error) {
	if err := f.call("AllocateMemory"); err != nil {
		return 0, err
	}
	handle := MemoryHandle(f.create("Memory"))
	f.memory[handle] = make([]byte, size)
	return handle, nil
}

func (f *fakeDriver) BindBufferMemory(buffer BufferHandle, memory MemoryHandle) error {
	return f.call("BindBufferMemory")
}

func (f *fakeDriver) MapMemory(memory MemoryHandle, size int) ([]byte, error) {
	if err := f.call("MapMemory"); err != nil {
		return nil, err
	}
	return f.memory[memory][:size], nil
}

func (f *fakeDriver) UnmapMemory(memory MemoryHandle) {
	f.calls = append(f.calls, "UnmapMemory")
}

func (f *fakeDriver) FreeMemory(memory MemoryHandle) {
	f.destroy("Memory", uint64(memory))
	delete(f.memory, memory)
}

func (f *fakeDriver) DestroyBuffer(buffer BufferHandle) {
	f.destroy("Buffer", uint64(buffer))
}

type fakeWindow struct {
	width, height int
}

func (w *fakeWindow) GetSize() (int, int) {
	return w.width, w.height
}
