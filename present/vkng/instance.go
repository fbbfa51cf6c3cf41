package vkng

import (
	"log/slog"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/presenter/present"
)

type InstanceOptions struct {
	ApplicationName string
	APIVersion      common.APIVersion

	// Extensions are the instance extensions the window system needs.
	Extensions []string
	Layers     []string

	// DebugMessenger forwards validation messages to the package logger.
	DebugMessenger bool
}

// SurfaceSource creates the presentation surface for an instance.
type SurfaceSource interface {
	CreateSurface(instance core1_0.Instance, surfaceExtension khr_surface.ExtensionDriver) (khr_surface.Surface, error)
}

// Instance owns the Vulkan instance, its debug messenger and the surface.
// It implements present.DeviceEnumerator and present.PresentationSupport.
type Instance struct {
	driver core1_0.CoreInstanceDriver

	debugDriver ext_debug_utils.ExtensionDriver
	messenger   ext_debug_utils.DebugUtilsMessenger

	surfaceExtension khr_surface.ExtensionDriver
	surface          khr_surface.Surface

	physical *arena[present.PhysicalDeviceHandle, core1_0.PhysicalDevice]
}

// NewInstance negotiates the requested layers and extensions against what
// the loader offers and creates the instance. Nothing is created when
// negotiation fails.
func NewInstance(global core1_0.GlobalDriver, opts InstanceOptions) (*Instance, error) {
	info := core1_0.InstanceCreateInfo{
		ApplicationName:    opts.ApplicationName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "presenter",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         opts.APIVersion,
	}

	available, _, err := global.AvailableExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}

	required := append([]string{}, opts.Extensions...)
	if opts.DebugMessenger {
		required = append(required, ext_debug_utils.ExtensionName)
	}

	err = present.RequireAll("instance extension", required, names(available))
	if err != nil {
		return nil, err
	}
	info.EnabledExtensionNames = required

	_, enumerationSupported := available[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		info.EnabledExtensionNames = append(info.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		info.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	layers, _, err := global.AvailableLayers()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate instance layers")
	}

	err = present.RequireAll("instance layer", opts.Layers, names(layers))
	if err != nil {
		return nil, err
	}
	info.EnabledLayerNames = opts.Layers

	if opts.DebugMessenger {
		// covers instance creation and destruction
		info.Next = debugMessengerOptions()
	}

	driver, _, err := global.CreateInstance(nil, info)
	if err != nil {
		return nil, errors.Wrapf(err, "create instance (requires vulkan api version >= %s)", opts.APIVersion)
	}

	i := &Instance{
		driver:   driver,
		physical: newArena[present.PhysicalDeviceHandle, core1_0.PhysicalDevice]("physical device"),
	}

	if opts.DebugMessenger {
		i.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(driver)
		i.messenger, _, err = i.debugDriver.CreateDebugUtilsMessenger(nil, debugMessengerOptions())
		if err != nil {
			i.Destroy()
			return nil, errors.Wrap(err, "create debug messenger")
		}
	}

	present.Logger().Info("instance created",
		slog.String("apiVersion", opts.APIVersion.String()),
		slog.Any("extensions", info.EnabledExtensionNames),
		slog.Any("layers", info.EnabledLayerNames))

	return i, nil
}

func names[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AttachSurface creates the surface every later query and swapchain is
// bound to.
func (i *Instance) AttachSurface(src SurfaceSource) error {
	if i.surface.Initialized() {
		return errors.New("surface already attached")
	}

	i.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(i.driver)
	surface, err := src.CreateSurface(i.driver.Instance(), i.surfaceExtension)
	if err != nil {
		return errors.Wrap(err, "create surface")
	}

	i.surface = surface
	return nil
}

// EnumeratePhysicalDevices describes every physical device. Handles from an
// earlier call are invalidated.
func (i *Instance) EnumeratePhysicalDevices() ([]present.PhysicalDeviceCandidate, error) {
	devices, _, err := i.driver.EnumeratePhysicalDevices()
	if err != nil {
		return nil, err
	}

	i.physical = newArena[present.PhysicalDeviceHandle, core1_0.PhysicalDevice]("physical device")

	candidates := make([]present.PhysicalDeviceCandidate, 0, len(devices))
	for _, device := range devices {
		props, err := i.driver.GetPhysicalDeviceProperties(device)
		if err != nil {
			return nil, errors.Wrap(err, "physical device properties")
		}

		layers, _, err := i.driver.EnumerateDeviceLayerProperties(device)
		if err != nil {
			return nil, errors.Wrapf(err, "layers of %s", props.DriverName)
		}

		extensions, _, err := i.driver.EnumerateDeviceExtensionProperties(device)
		if err != nil {
			return nil, errors.Wrapf(err, "extensions of %s", props.DriverName)
		}

		var families []present.QueueFamilyProperties
		for _, family := range i.driver.GetPhysicalDeviceQueueFamilyProperties(device) {
			families = append(families, present.QueueFamilyProperties{
				Flags:      family.QueueFlags,
				QueueCount: family.QueueCount,
			})
		}

		candidates = append(candidates, present.PhysicalDeviceCandidate{
			Handle:            i.physical.add(device),
			Name:              props.DriverName,
			APIVersion:        props.APIVersion,
			Class:             deviceClass(props.DriverType),
			VendorID:          props.VendorID,
			DeviceID:          props.DeviceID,
			PipelineCacheUUID: uuid.UUID(props.PipelineCacheUUID),
			Layers:            names(layers),
			Extensions:        names(extensions),
			QueueFamilies:     families,
		})
	}

	return candidates, nil
}

func deviceClass(t core1_0.PhysicalDeviceType) present.DeviceClass {
	switch t {
	case core1_0.PhysicalDeviceTypeDiscreteGPU:
		return present.DeviceClassDiscrete
	case core1_0.PhysicalDeviceTypeIntegratedGPU:
		return present.DeviceClassIntegrated
	default:
		return present.DeviceClassOther
	}
}

func (i *Instance) PresentationSupported(device present.PhysicalDeviceHandle, queueFamily int) (bool, error) {
	physical, err := i.physical.get(device)
	if err != nil {
		return false, err
	}

	supported, _, err := i.surfaceExtension.GetPhysicalDeviceSurfaceSupport(i.surface, physical, queueFamily)
	return supported, err
}

// Destroy releases the surface, the debug messenger and the instance.
// Every device created from i must be destroyed first.
func (i *Instance) Destroy() {
	if i.surface.Initialized() {
		i.surfaceExtension.DestroySurface(i.surface, nil)
		i.surface = khr_surface.Surface{}
	}

	if i.messenger.Initialized() {
		i.debugDriver.DestroyDebugUtilsMessenger(i.messenger, nil)
		i.messenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if i.driver != nil {
		i.driver.DestroyInstance(nil)
		i.driver = nil
	}
}
