package present

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// BufferUsage selects what a LinearBuffer is bound as.
type BufferUsage int

const (
	BufferUsageVertex BufferUsage = iota
	BufferUsageIndex
	BufferUsageUniform
)

func (u BufferUsage) String() string {
	switch u {
	case BufferUsageVertex:
		return "vertex"
	case BufferUsageIndex:
		return "index"
	case BufferUsageUniform:
		return "uniform"
	default:
		return "unknown"
	}
}

func (u BufferUsage) flags() (core1_0.BufferUsageFlags, error) {
	switch u {
	case BufferUsageVertex:
		return core1_0.BufferUsageVertexBuffer, nil
	case BufferUsageIndex:
		return core1_0.BufferUsageIndexBuffer, nil
	case BufferUsageUniform:
		return core1_0.BufferUsageUniformBuffer, nil
	default:
		return 0, errors.Newf("unknown buffer usage %d", int(u))
	}
}

const hostCoherent = core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent

// LinearBuffer is a buffer bound to host-visible, host-coherent memory that
// stays mapped until Destroy. Writes to Mapped need no explicit flush.
type LinearBuffer struct {
	Buffer BufferHandle
	Memory MemoryHandle
	Usage  BufferUsage

	// Size is what the caller asked for; Allocated is what the device
	// required, which may be larger.
	Size      int
	Allocated int
	Mapped    []byte

	driver MemoryDriver
}

// CreateLinearBuffer creates, backs, binds and maps a buffer of size bytes.
// On failure it still returns the partially built buffer, which is safe to
// Destroy.
func CreateLinearBuffer(driver MemoryDriver, size int, usage BufferUsage) (*LinearBuffer, error) {
	b := &LinearBuffer{
		Usage:  usage,
		Size:   size,
		driver: driver,
	}

	if size <= 0 {
		return b, errors.Newf("create %s buffer: invalid size %d", usage, size)
	}

	flags, err := usage.flags()
	if err != nil {
		return b, err
	}

	b.Buffer, err = driver.CreateBuffer(size, flags)
	if err != nil {
		return b, errors.Wrapf(err, "create %s buffer", usage)
	}

	reqs := driver.BufferMemoryRequirements(b.Buffer)
	typeIndex, err := findMemoryType(driver.MemoryTypes(), reqs.MemoryTypeBits, hostCoherent)
	if err != nil {
		return b, errors.Wrapf(err, "create %s buffer", usage)
	}

	b.Memory, err = driver.AllocateMemory(reqs.Size, typeIndex)
	if err != nil {
		return b, errors.Wrapf(err, "allocate %d bytes for %s buffer", reqs.Size, usage)
	}
	b.Allocated = reqs.Size

	err = driver.BindBufferMemory(b.Buffer, b.Memory)
	if err != nil {
		return b, errors.Wrapf(err, "bind %s buffer memory", usage)
	}

	b.Mapped, err = driver.MapMemory(b.Memory, reqs.Size)
	if err != nil {
		b.Mapped = nil
		return b, errors.Wrapf(err, "map %s buffer memory", usage)
	}

	return b, nil
}

// findMemoryType returns the first memory type allowed by typeBits that has
// all of the wanted property flags.
func findMemoryType(types []core1_0.MemoryPropertyFlags, typeBits uint32, wanted core1_0.MemoryPropertyFlags) (int, error) {
	for i, flags := range types {
		if typeBits&(1<<uint(i)) == 0 {
			continue
		}
		if flags&wanted == wanted {
			return i, nil
		}
	}

	return -1, ErrNoMemoryType
}

// Write encodes data with binary.Write at offset into the mapped memory.
func (b *LinearBuffer) Write(offset int, data any) error {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return errors.Wrapf(err, "encode %s buffer data", b.Usage)
	}

	return b.WriteBytes(offset, buf.Bytes())
}

// WriteBytes copies data into the mapped memory at offset.
func (b *LinearBuffer) WriteBytes(offset int, data []byte) error {
	if b.Mapped == nil {
		return errors.Newf("%s buffer is not mapped", b.Usage)
	}
	if offset < 0 || offset+len(data) > b.Size {
		return errors.Newf("write of %d bytes at %d overflows %s buffer of %d bytes", len(data), offset, b.Usage, b.Size)
	}

	copy(b.Mapped[offset:], data)
	return nil
}

// Destroy unmaps, frees the memory and then destroys the buffer. It skips
// whatever a failed create never made and is safe to call more than once.
func (b *LinearBuffer) Destroy() {
	if b == nil || b.driver == nil {
		return
	}

	if b.Mapped != nil {
		b.driver.UnmapMemory(b.Memory)
		b.Mapped = nil
	}

	if b.Memory.Valid() {
		b.driver.FreeMemory(b.Memory)
		b.Memory = 0
	}

	if b.Buffer.Valid() {
		b.driver.DestroyBuffer(b.Buffer)
		b.Buffer = 0
	}
}
