package present

// Handles identify native objects owned by a driver arena. The zero value
// of every handle type is the null handle.
type (
	PhysicalDeviceHandle uint64
	QueueHandle          uint64
	SwapchainHandle      uint64
	ImageHandle          uint64
	ImageViewHandle      uint64
	FramebufferHandle    uint64
	RenderPassHandle     uint64
	PipelineHandle       uint64
	PipelineLayoutHandle uint64
	DescriptorSetHandle  uint64
	SemaphoreHandle      uint64
	CommandPoolHandle    uint64
	CommandBufferHandle  uint64
	BufferHandle         uint64
	MemoryHandle         uint64
)

func (h SwapchainHandle) Valid() bool     { return h != 0 }
func (h ImageViewHandle) Valid() bool     { return h != 0 }
func (h FramebufferHandle) Valid() bool   { return h != 0 }
func (h SemaphoreHandle) Valid() bool     { return h != 0 }
func (h CommandPoolHandle) Valid() bool   { return h != 0 }
func (h CommandBufferHandle) Valid() bool { return h != 0 }
func (h BufferHandle) Valid() bool        { return h != 0 }
func (h MemoryHandle) Valid() bool        { return h != 0 }
