package present

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// DeviceClass is the coarse hardware class used by the selection tie-break.
type DeviceClass int

const (
	DeviceClassOther DeviceClass = iota
	DeviceClassIntegrated
	DeviceClassDiscrete
)

func (c DeviceClass) String() string {
	switch c {
	case DeviceClassDiscrete:
		return "discrete"
	case DeviceClassIntegrated:
		return "integrated"
	default:
		return "other"
	}
}

type QueueFamilyProperties struct {
	Flags      core1_0.QueueFlags
	QueueCount int
}

// PhysicalDeviceCandidate is a read-only description of one enumerated GPU.
type PhysicalDeviceCandidate struct {
	Handle            PhysicalDeviceHandle
	Name              string
	APIVersion        common.APIVersion
	Class             DeviceClass
	VendorID          uint32
	DeviceID          uint32
	PipelineCacheUUID uuid.UUID
	Layers            []string
	Extensions        []string
	QueueFamilies     []QueueFamilyProperties
}

// QueueFamilies holds the graphics and present family indices of a selected
// device. They are equal when one family does both.
type QueueFamilies struct {
	Graphics int
	Present  int
}

// Shared reports whether graphics and present use the same family.
func (f QueueFamilies) Shared() bool {
	return f.Graphics == f.Present
}

// Unique returns the distinct family indices, graphics first.
func (f QueueFamilies) Unique() []int {
	if f.Shared() {
		return []int{f.Graphics}
	}
	return []int{f.Graphics, f.Present}
}

// DeviceRequirements is what a physical device must offer to be selected.
type DeviceRequirements struct {
	MinAPIVersion common.APIVersion
	Layers        []string
	Extensions    []string
}

// DeviceSelection is the outcome of SelectDevice.
type DeviceSelection struct {
	Device        PhysicalDeviceCandidate
	QueueFamilies QueueFamilies
}

// SelectDevice picks a physical device that meets req and can present to the
// surface behind support. The first qualifying device wins unless a later
// qualifying device is discrete; the first qualifying discrete device ends
// the scan.
func SelectDevice(devices DeviceEnumerator, support PresentationSupport, req DeviceRequirements) (DeviceSelection, error) {
	candidates, err := devices.EnumeratePhysicalDevices()
	if err != nil {
		return DeviceSelection{}, errors.Wrap(err, "enumerate physical devices")
	}

	if len(candidates) == 0 {
		return DeviceSelection{}, errors.Wrap(ErrNoSuitableDevice, "no physical devices enumerated")
	}

	log := Logger()

	var selected *DeviceSelection
	for _, candidate := range candidates {
		if !candidate.APIVersion.IsAtLeast(req.MinAPIVersion) {
			log.Debug("rejecting device: api version too low",
				slog.String("device", candidate.Name),
				slog.String("version", candidate.APIVersion.String()))
			continue
		}

		if !Negotiate(req.Layers, candidate.Layers) || !Negotiate(req.Extensions, candidate.Extensions) {
			log.Debug("rejecting device: missing capability",
				slog.String("device", candidate.Name),
				slog.Any("layers", Missing(req.Layers, candidate.Layers)),
				slog.Any("extensions", Missing(req.Extensions, candidate.Extensions)))
			continue
		}

		families, ok, err := findQueueFamilies(candidate, support)
		if err != nil {
			return DeviceSelection{}, errors.Wrapf(err, "query queue families of %s", candidate.Name)
		}
		if !ok {
			log.Debug("rejecting device: no graphics or present family", slog.String("device", candidate.Name))
			continue
		}

		if selected == nil || candidate.Class == DeviceClassDiscrete {
			selected = &DeviceSelection{Device: candidate, QueueFamilies: families}
		}

		if candidate.Class == DeviceClassDiscrete {
			break
		}
	}

	if selected == nil {
		return DeviceSelection{}, errors.Wrapf(ErrNoSuitableDevice, "none of %d devices qualified", len(candidates))
	}

	log.Info("selected physical device",
		slog.String("device", selected.Device.Name),
		slog.String("class", selected.Device.Class.String()),
		slog.Int("graphicsFamily", selected.QueueFamilies.Graphics),
		slog.Int("presentFamily", selected.QueueFamilies.Present))

	return *selected, nil
}

// findQueueFamilies prefers one family that does both graphics and present.
// Failing that it takes the first graphics family and the first family of
// any kind that can present.
func findQueueFamilies(candidate PhysicalDeviceCandidate, support PresentationSupport) (QueueFamilies, bool, error) {
	graphics := -1
	for idx, family := range candidate.QueueFamilies {
		if family.Flags&core1_0.QueueGraphics == 0 {
			continue
		}

		if graphics < 0 {
			graphics = idx
		}

		presents, err := support.PresentationSupported(candidate.Handle, idx)
		if err != nil {
			return QueueFamilies{}, false, err
		}
		if presents {
			return QueueFamilies{Graphics: idx, Present: idx}, true, nil
		}
	}

	if graphics < 0 {
		return QueueFamilies{}, false, nil
	}

	for idx := range candidate.QueueFamilies {
		presents, err := support.PresentationSupported(candidate.Handle, idx)
		if err != nil {
			return QueueFamilies{}, false, err
		}
		if presents {
			return QueueFamilies{Graphics: graphics, Present: idx}, true, nil
		}
	}

	return QueueFamilies{}, false, nil
}
