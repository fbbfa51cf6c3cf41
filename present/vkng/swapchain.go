package vkng

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/presenter/present"
)

// sharingMode is exclusive when one family does graphics and present, and
// concurrent across both families otherwise.
func sharingMode(families present.QueueFamilies) (core1_0.SharingMode, []int) {
	if families.Shared() {
		return core1_0.SharingModeExclusive, nil
	}
	return core1_0.SharingModeConcurrent, families.Unique()
}

func (d *Device) CreateSwapchain(info present.SwapchainCreateInfo) (present.SwapchainHandle, error) {
	var old khr_swapchain.Swapchain
	if info.OldSwapchain.Valid() {
		var err error
		old, err = d.swapchains.get(info.OldSwapchain)
		if err != nil {
			return 0, err
		}
	}

	mode, families := sharingMode(info.QueueFamilies)

	swapchain, _, err := d.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: d.instance.surface,

		MinImageCount:    info.ImageCount,
		ImageFormat:      info.Format.Format,
		ImageColorSpace:  info.Format.ColorSpace,
		ImageExtent:      info.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   mode,
		QueueFamilyIndices: families,

		PreTransform:   info.Transform,
		CompositeAlpha: info.CompositeAlpha,
		PresentMode:    info.PresentMode,
		Clipped:        true,
		OldSwapchain:   old,
	})
	if err != nil {
		return 0, err
	}

	return d.swapchains.add(swapchain), nil
}

func (d *Device) SwapchainImages(swapchain present.SwapchainHandle) ([]present.ImageHandle, error) {
	native, err := d.swapchains.get(swapchain)
	if err != nil {
		return nil, err
	}

	images, _, err := d.swapchainExtension.GetSwapchainImages(native)
	if err != nil {
		return nil, err
	}

	// images belong to the swapchain and are dropped with it
	for _, h := range d.swapchainImages[swapchain] {
		d.images.take(h)
	}

	handles := make([]present.ImageHandle, 0, len(images))
	for _, image := range images {
		handles = append(handles, d.images.add(image))
	}
	d.swapchainImages[swapchain] = handles

	return handles, nil
}

func (d *Device) CreateImageView(image present.ImageHandle, format core1_0.Format) (present.ImageViewHandle, error) {
	native, err := d.images.get(image)
	if err != nil {
		return 0, err
	}

	view, _, err := d.driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    native,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     core1_0.ImageAspectColor,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		return 0, err
	}

	return d.imageViews.add(view), nil
}

func (d *Device) CreateFramebuffer(renderPass present.RenderPassHandle, view present.ImageViewHandle, extent core1_0.Extent2D) (present.FramebufferHandle, error) {
	pass, err := d.renderPasses.get(renderPass)
	if err != nil {
		return 0, err
	}

	nativeView, err := d.imageViews.get(view)
	if err != nil {
		return 0, err
	}

	framebuffer, _, err := d.driver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass:  pass,
		Layers:      1,
		Attachments: []core1_0.ImageView{nativeView},
		Width:       extent.Width,
		Height:      extent.Height,
	})
	if err != nil {
		return 0, errors.Wrapf(err, "framebuffer %dx%d", extent.Width, extent.Height)
	}

	return d.framebuffers.add(framebuffer), nil
}

func (d *Device) DestroyFramebuffer(framebuffer present.FramebufferHandle) {
	native, ok := d.framebuffers.take(framebuffer)
	if ok {
		d.driver.DestroyFramebuffer(native, nil)
	}
}

func (d *Device) DestroyImageView(view present.ImageViewHandle) {
	native, ok := d.imageViews.take(view)
	if ok {
		d.driver.DestroyImageView(native, nil)
	}
}

func (d *Device) DestroySwapchain(swapchain present.SwapchainHandle) {
	native, ok := d.swapchains.take(swapchain)
	if !ok {
		return
	}

	for _, image := range d.swapchainImages[swapchain] {
		d.images.take(image)
	}
	delete(d.swapchainImages, swapchain)

	d.swapchainExtension.DestroySwapchain(native, nil)
}
