package vkng

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/presenter/present"
)

func (d *Device) CreateBuffer(size int, usage core1_0.BufferUsageFlags) (present.BufferHandle, error) {
	buffer, _, err := d.driver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return 0, err
	}
	return d.buffers.add(buffer), nil
}

func (d *Device) BufferMemoryRequirements(buffer present.BufferHandle) present.MemoryRequirements {
	native, err := d.buffers.get(buffer)
	if err != nil {
		// no memory type bit set, so no type can match
		return present.MemoryRequirements{}
	}

	reqs := d.driver.GetBufferMemoryRequirements(native)
	return present.MemoryRequirements{
		Size:           reqs.Size,
		MemoryTypeBits: reqs.MemoryTypeBits,
	}
}

func (d *Device) MemoryTypes() []core1_0.MemoryPropertyFlags {
	return d.memoryTypes
}

func (d *Device) AllocateMemory(size int, memoryTypeIndex int) (present.MemoryHandle, error) {
	memory, _, err := d.driver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		return 0, err
	}
	return d.memory.add(memory), nil
}

func (d *Device) BindBufferMemory(buffer present.BufferHandle, memory present.MemoryHandle) error {
	b, err := d.buffers.get(buffer)
	if err != nil {
		return err
	}

	m, err := d.memory.get(memory)
	if err != nil {
		return err
	}

	_, err = d.driver.BindBufferMemory(b, m, 0)
	return err
}

// MapMemory maps the first size bytes of memory. The returned slice aliases
// device memory and must not be used after UnmapMemory.
func (d *Device) MapMemory(memory present.MemoryHandle, size int) ([]byte, error) {
	m, err := d.memory.get(memory)
	if err != nil {
		return nil, err
	}

	ptr, _, err := d.driver.MapMemory(m, 0, size, 0)
	if err != nil {
		return nil, err
	}
	if ptr == nil {
		return nil, errors.New("map memory returned a nil pointer")
	}

	return unsafe.Slice((*byte)(ptr), size), nil
}

func (d *Device) UnmapMemory(memory present.MemoryHandle) {
	m, err := d.memory.get(memory)
	if err == nil {
		d.driver.UnmapMemory(m)
	}
}

func (d *Device) FreeMemory(memory present.MemoryHandle) {
	m, ok := d.memory.take(memory)
	if ok {
		d.driver.FreeMemory(m, nil)
	}
}

func (d *Device) DestroyBuffer(buffer present.BufferHandle) {
	b, ok := d.buffers.take(buffer)
	if ok {
		d.driver.DestroyBuffer(b, nil)
	}
}
