package present

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

var graphicsOnly = []QueueFamilyProperties{{Flags: core1_0.QueueGraphics | core1_0.QueueTransfer, QueueCount: 1}}

func candidate(handle PhysicalDeviceHandle, name string, class DeviceClass) PhysicalDeviceCandidate {
	return PhysicalDeviceCandidate{
		Handle:        handle,
		Name:          name,
		APIVersion:    common.Vulkan1_2,
		Class:         class,
		Extensions:    []string{"VK_KHR_swapchain"},
		QueueFamilies: graphicsOnly,
	}
}

func swapchainRequirements() DeviceRequirements {
	return DeviceRequirements{
		MinAPIVersion: common.Vulkan1_2,
		Extensions:    []string{"VK_KHR_swapchain"},
	}
}

func TestSelectDevicePrefersLaterDiscrete(t *testing.T) {
	f := newFakeDriver()
	f.devices = []PhysicalDeviceCandidate{
		candidate(1, "integrated a", DeviceClassIntegrated),
		candidate(2, "cpu", DeviceClassOther),
		candidate(3, "discrete", DeviceClassDiscrete),
	}
	f.present[1] = []int{0}
	f.present[2] = []int{0}
	f.present[3] = []int{0}

	selection, err := SelectDevice(f, f, swapchainRequirements())
	require.NoError(t, err)
	assert.Equal(t, PhysicalDeviceHandle(3), selection.Device.Handle)
	assert.Equal(t, QueueFamilies{Graphics: 0, Present: 0}, selection.QueueFamilies)
}

func TestSelectDeviceFirstQualifyingWithoutDiscrete(t *testing.T) {
	f := newFakeDriver()
	f.devices = []PhysicalDeviceCandidate{
		candidate(1, "no present", DeviceClassIntegrated),
		candidate(2, "integrated b", DeviceClassIntegrated),
		candidate(3, "integrated c", DeviceClassIntegrated),
	}
	f.present[2] = []int{0}
	f.present[3] = []int{0}

	selection, err := SelectDevice(f, f, swapchainRequirements())
	require.NoError(t, err)
	assert.Equal(t, PhysicalDeviceHandle(2), selection.Device.Handle)
}

func TestSelectDeviceRequiresDeviceLayers(t *testing.T) {
	f := newFakeDriver()
	withoutLayer := candidate(1, "discrete without layer", DeviceClassDiscrete)
	withLayer := candidate(2, "integrated with layer", DeviceClassIntegrated)
	withLayer.Layers = []string{"VK_LAYER_example_device"}
	f.devices = []PhysicalDeviceCandidate{withoutLayer, withLayer}
	f.present[1] = []int{0}
	f.present[2] = []int{0}

	req := swapchainRequirements()
	req.Layers = []string{"VK_LAYER_example_device"}

	selection, err := SelectDevice(f, f, req)
	require.NoError(t, err)
	assert.Equal(t, PhysicalDeviceHandle(2), selection.Device.Handle)

	f.devices = []PhysicalDeviceCandidate{withoutLayer}
	_, err = SelectDevice(f, f, req)
	assert.True(t, errors.Is(err, ErrNoSuitableDevice))
}

func TestSelectDeviceFirstDiscreteEndsScan(t *testing.T) {
	f := newFakeDriver()
	f.devices = []PhysicalDeviceCandidate{
		candidate(1, "discrete a", DeviceClassDiscrete),
		candidate(2, "discrete b", DeviceClassDiscrete),
	}
	f.present[1] = []int{0}
	f.present[2] = []int{0}

	selection, err := SelectDevice(f, f, swapchainRequirements())
	require.NoError(t, err)
	assert.Equal(t, PhysicalDeviceHandle(1), selection.Device.Handle)

	// device 2 was never queried
	assert.Equal(t, 1, countCalls(f.calls, "PresentationSupported"))
}

func TestSelectDeviceRejections(t *testing.T) {
	old := candidate(1, "old", DeviceClassDiscrete)
	old.APIVersion = common.Vulkan1_0

	noSwapchain := candidate(2, "no swapchain", DeviceClassDiscrete)
	noSwapchain.Extensions = nil

	compute := candidate(3, "compute only", DeviceClassDiscrete)
	compute.QueueFamilies = []QueueFamilyProperties{{Flags: core1_0.QueueCompute, QueueCount: 4}}

	f := newFakeDriver()
	f.devices = []PhysicalDeviceCandidate{old, noSwapchain, compute}
	f.present[1] = []int{0}
	f.present[2] = []int{0}
	f.present[3] = []int{0}

	_, err := SelectDevice(f, f, swapchainRequirements())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuitableDevice))
}

func TestSelectDeviceNoDevices(t *testing.T) {
	f := newFakeDriver()

	_, err := SelectDevice(f, f, swapchainRequirements())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuitableDevice))
}

func TestSelectDevicePropagatesQueryFailure(t *testing.T) {
	f := newFakeDriver()
	f.devices = []PhysicalDeviceCandidate{candidate(1, "gpu", DeviceClassDiscrete)}
	f.failOn["PresentationSupported"] = true

	_, err := SelectDevice(f, f, swapchainRequirements())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errInjected))
	assert.False(t, errors.Is(err, ErrNoSuitableDevice))
}

func TestFindQueueFamiliesSplit(t *testing.T) {
	f := newFakeDriver()
	gpu := candidate(1, "split", DeviceClassDiscrete)
	gpu.QueueFamilies = []QueueFamilyProperties{
		{Flags: core1_0.QueueCompute, QueueCount: 1},
		{Flags: core1_0.QueueGraphics, QueueCount: 1},
		{Flags: core1_0.QueueTransfer, QueueCount: 1},
	}
	f.present[1] = []int{2}

	families, ok, err := findQueueFamilies(gpu, f)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, QueueFamilies{Graphics: 1, Present: 2}, families)
	assert.False(t, families.Shared())
	assert.Equal(t, []int{1, 2}, families.Unique())
}

func TestFindQueueFamiliesPrefersCombined(t *testing.T) {
	f := newFakeDriver()
	gpu := candidate(1, "combined", DeviceClassDiscrete)
	gpu.QueueFamilies = []QueueFamilyProperties{
		{Flags: core1_0.QueueGraphics, QueueCount: 1},
		{Flags: core1_0.QueueTransfer, QueueCount: 1},
		{Flags: core1_0.QueueGraphics | core1_0.QueueCompute, QueueCount: 1},
	}
	f.present[1] = []int{1, 2}

	families, ok, err := findQueueFamilies(gpu, f)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, QueueFamilies{Graphics: 2, Present: 2}, families)
	assert.Equal(t, []int{2}, families.Unique())
}

func countCalls(calls []string, name string) int {
	count := 0
	for _, call := range calls {
		if call == name {
			count++
		}
	}
	return count
}
