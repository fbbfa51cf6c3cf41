package present

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// DefaultSurfaceFormat is substituted when a surface reports a single
// undefined format, meaning it imposes no constraint.
const DefaultSurfaceFormat = core1_0.FormatR8G8B8A8UnsignedNormalized

// PreferredSurfaceFormats are tried in order against the nonlinear sRGB
// color space before falling back to whatever the surface lists first.
var PreferredSurfaceFormats = []core1_0.Format{
	core1_0.FormatB8G8R8A8SRGB,
	core1_0.FormatR8G8B8A8SRGB,
}

// undefinedExtent is the 0xFFFFFFFF width/height a surface reports when its
// size is determined by the swapchain rather than by the window. The
// wrapper widens it to int without sign extension.
const undefinedExtent = math.MaxUint32

func extentUndefined(extent core1_0.Extent2D) bool {
	return extent.Width < 0 || extent.Height < 0 ||
		int64(extent.Width) == undefinedExtent || int64(extent.Height) == undefinedExtent
}

// ChooseSurfaceFormat narrows the reported surface formats to one.
func ChooseSurfaceFormat(formats []khr_surface.SurfaceFormat) (khr_surface.SurfaceFormat, error) {
	if len(formats) == 0 {
		return khr_surface.SurfaceFormat{}, ErrNoSurfaceFormat
	}

	if len(formats) == 1 && formats[0].Format == core1_0.FormatUndefined {
		return khr_surface.SurfaceFormat{
			Format:     DefaultSurfaceFormat,
			ColorSpace: formats[0].ColorSpace,
		}, nil
	}

	for _, preferred := range PreferredSurfaceFormats {
		for _, format := range formats {
			if format.Format == preferred && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
				return format, nil
			}
		}
	}

	return formats[0], nil
}

// ChoosePresentMode prefers mailbox and otherwise falls back to FIFO, which
// every surface supports.
func ChoosePresentMode(modes []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, mode := range modes {
		if mode == khr_surface.PresentModeMailbox {
			return mode
		}
	}

	return khr_surface.PresentModeFIFO
}

// QuerySurfaceFormat queries the surface and chooses a format from it.
func QuerySurfaceFormat(surface SurfaceQuerier) (khr_surface.SurfaceFormat, error) {
	formats, err := surface.SurfaceFormats()
	if err != nil {
		return khr_surface.SurfaceFormat{}, errors.Wrap(err, "query surface formats")
	}

	return ChooseSurfaceFormat(formats)
}

// chooseImageCount asks for one image more than the minimum and caps it at
// the maximum. A maximum of zero means the surface sets no upper bound.
func chooseImageCount(caps *khr_surface.SurfaceCapabilities) int {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// chooseExtent uses the surface's current extent unless it is undefined, in
// which case the requested extent is clamped into the supported range.
func chooseExtent(caps *khr_surface.SurfaceCapabilities, requested core1_0.Extent2D) core1_0.Extent2D {
	if !extentUndefined(caps.CurrentExtent) {
		return caps.CurrentExtent
	}

	return core1_0.Extent2D{
		Width:  clamp(requested.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(requested.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

var compositeAlphaOrder = []khr_surface.CompositeAlphaFlags{
	khr_surface.CompositeAlphaOpaque,
	khr_surface.CompositeAlphaPreMultiplied,
	khr_surface.CompositeAlphaPostMultiplied,
	khr_surface.CompositeAlphaInherit,
}

func chooseCompositeAlpha(caps *khr_surface.SurfaceCapabilities) khr_surface.CompositeAlphaFlags {
	for _, alpha := range compositeAlphaOrder {
		if caps.SupportedCompositeAlpha&alpha != 0 {
			return alpha
		}
	}

	return khr_surface.CompositeAlphaInherit
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
