package vkng

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/presenter/internal/pipecache"
	"github.com/vkngwrapper/presenter/present"
)

var (
	_ present.SwapchainDriver = (*Device)(nil)
	_ present.FrameDriver     = (*Device)(nil)
	_ present.MemoryDriver    = (*Device)(nil)
)

// Device is a logical device on the selected physical device. Every
// present handle it hands out is only meaningful to this Device.
type Device struct {
	instance  *Instance
	physical  core1_0.PhysicalDevice
	selection present.DeviceSelection

	driver             core1_0.CoreDeviceDriver
	swapchainExtension khr_swapchain.ExtensionDriver
	memoryTypes        []core1_0.MemoryPropertyFlags

	graphicsQueue present.QueueHandle
	presentQueue  present.QueueHandle

	queues          *arena[present.QueueHandle, core1_0.Queue]
	swapchains      *arena[present.SwapchainHandle, khr_swapchain.Swapchain]
	images          *arena[present.ImageHandle, core1_0.Image]
	swapchainImages map[present.SwapchainHandle][]present.ImageHandle
	imageViews      *arena[present.ImageViewHandle, core1_0.ImageView]
	framebuffers    *arena[present.FramebufferHandle, core1_0.Framebuffer]
	renderPasses    *arena[present.RenderPassHandle, core1_0.RenderPass]
	layouts         *arena[present.PipelineLayoutHandle, core1_0.PipelineLayout]
	pipelines       *arena[present.PipelineHandle, core1_0.Pipeline]
	descriptorSets  *arena[present.DescriptorSetHandle, core1_0.DescriptorSet]
	semaphores      *arena[present.SemaphoreHandle, core1_0.Semaphore]
	pools           *arena[present.CommandPoolHandle, core1_0.CommandPool]
	commandBuffers  *arena[present.CommandBufferHandle, core1_0.CommandBuffer]
	poolBuffers     map[present.CommandPoolHandle][]present.CommandBufferHandle
	buffers         *arena[present.BufferHandle, core1_0.Buffer]
	memory          *arena[present.MemoryHandle, core1_0.DeviceMemory]
}

// NewDevice creates the logical device with one queue per distinct family
// of selection and enables extensions. The portability subset is enabled
// as well when the device offers it.
func NewDevice(instance *Instance, selection present.DeviceSelection, layers, extensions []string) (*Device, error) {
	physical, err := instance.physical.get(selection.Device.Handle)
	if err != nil {
		return nil, err
	}

	var queueInfos []core1_0.DeviceQueueCreateInfo
	for _, family := range selection.QueueFamilies.Unique() {
		queueInfos = append(queueInfos, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: family,
			QueuePriorities:  []float32{1.0},
		})
	}

	enabled := append([]string{}, extensions...)
	if present.Negotiate([]string{khr_portability_subset.ExtensionName}, selection.Device.Extensions) {
		enabled = append(enabled, khr_portability_subset.ExtensionName)
	}

	driver, _, err := instance.driver.CreateDevice(physical, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueInfos,
		EnabledLayerNames:     layers,
		EnabledExtensionNames: enabled,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create device on %s", selection.Device.Name)
	}

	d := &Device{
		instance:           instance,
		physical:           physical,
		selection:          selection,
		driver:             driver,
		swapchainExtension: khr_swapchain.CreateExtensionDriverFromCoreDriver(driver),

		queues:          newArena[present.QueueHandle, core1_0.Queue]("queue"),
		swapchains:      newArena[present.SwapchainHandle, khr_swapchain.Swapchain]("swapchain"),
		images:          newArena[present.ImageHandle, core1_0.Image]("image"),
		swapchainImages: make(map[present.SwapchainHandle][]present.ImageHandle),
		imageViews:      newArena[present.ImageViewHandle, core1_0.ImageView]("image view"),
		framebuffers:    newArena[present.FramebufferHandle, core1_0.Framebuffer]("framebuffer"),
		renderPasses:    newArena[present.RenderPassHandle, core1_0.RenderPass]("render pass"),
		layouts:         newArena[present.PipelineLayoutHandle, core1_0.PipelineLayout]("pipeline layout"),
		pipelines:       newArena[present.PipelineHandle, core1_0.Pipeline]("pipeline"),
		descriptorSets:  newArena[present.DescriptorSetHandle, core1_0.DescriptorSet]("descriptor set"),
		semaphores:      newArena[present.SemaphoreHandle, core1_0.Semaphore]("semaphore"),
		pools:           newArena[present.CommandPoolHandle, core1_0.CommandPool]("command pool"),
		commandBuffers:  newArena[present.CommandBufferHandle, core1_0.CommandBuffer]("command buffer"),
		poolBuffers:     make(map[present.CommandPoolHandle][]present.CommandBufferHandle),
		buffers:         newArena[present.BufferHandle, core1_0.Buffer]("buffer"),
		memory:          newArena[present.MemoryHandle, core1_0.DeviceMemory]("memory"),
	}

	d.graphicsQueue = d.queues.add(driver.GetQueue(selection.QueueFamilies.Graphics, 0))
	if selection.QueueFamilies.Shared() {
		d.presentQueue = d.graphicsQueue
	} else {
		d.presentQueue = d.queues.add(driver.GetQueue(selection.QueueFamilies.Present, 0))
	}

	memProperties := instance.driver.GetPhysicalDeviceMemoryProperties(physical)
	for _, memoryType := range memProperties.MemoryTypes {
		d.memoryTypes = append(d.memoryTypes, memoryType.PropertyFlags)
	}

	present.Logger().Info("device created",
		slog.String("device", selection.Device.Name),
		slog.Any("extensions", enabled))

	return d, nil
}

func (d *Device) GraphicsQueue() present.QueueHandle {
	return d.graphicsQueue
}

func (d *Device) PresentQueue() present.QueueHandle {
	return d.presentQueue
}

func (d *Device) QueueFamilies() present.QueueFamilies {
	return d.selection.QueueFamilies
}

// CacheIdentity is what pipeline cache data must have been written by to be
// reused on this device.
func (d *Device) CacheIdentity() pipecache.Identity {
	return pipecache.Identity{
		VendorID:  d.selection.Device.VendorID,
		DeviceID:  d.selection.Device.DeviceID,
		CacheUUID: d.selection.Device.PipelineCacheUUID,
	}
}

func (d *Device) SurfaceCapabilities() (*khr_surface.SurfaceCapabilities, error) {
	caps, _, err := d.instance.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(d.instance.surface, d.physical)
	return caps, err
}

func (d *Device) SurfaceFormats() ([]khr_surface.SurfaceFormat, error) {
	formats, _, err := d.instance.surfaceExtension.GetPhysicalDeviceSurfaceFormats(d.instance.surface, d.physical)
	return formats, err
}

func (d *Device) SurfacePresentModes() ([]khr_surface.PresentMode, error) {
	modes, _, err := d.instance.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(d.instance.surface, d.physical)
	return modes, err
}

// WaitIdle blocks until every queue of the device is idle.
func (d *Device) WaitIdle() error {
	_, err := d.driver.DeviceWaitIdle()
	return err
}

// live counts objects that were created through d and not destroyed yet.
func (d *Device) live() map[string]int {
	counts := map[string]int{
		"swapchain":       d.swapchains.len(),
		"image view":      d.imageViews.len(),
		"framebuffer":     d.framebuffers.len(),
		"render pass":     d.renderPasses.len(),
		"pipeline layout": d.layouts.len(),
		"pipeline":        d.pipelines.len(),
		"semaphore":       d.semaphores.len(),
		"command pool":    d.pools.len(),
		"buffer":          d.buffers.len(),
		"memory":          d.memory.len(),
	}
	for kind, n := range counts {
		if n == 0 {
			delete(counts, kind)
		}
	}
	return counts
}

// Destroy destroys the logical device. Objects still alive are reported
// and left to the driver.
func (d *Device) Destroy() {
	if d.driver == nil {
		return
	}

	if leaked := d.live(); len(leaked) > 0 {
		present.Logger().Warn("destroying device with live objects", slog.Any("objects", leaked))
	}

	d.driver.DestroyDevice(nil)
	d.driver = nil
}
