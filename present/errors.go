package present

import "github.com/cockroachdb/errors"

// Setup-time failures. These are returned up to the entry point; nothing in
// this package retries after one of them.
var (
	ErrMissingCapability = errors.New("required layer or extension is not supported")
	ErrNoSuitableDevice  = errors.New("no suitable physical device")
	ErrNoSurfaceFormat   = errors.New("surface reports no formats")
	ErrNoMemoryType      = errors.New("no host-visible, host-coherent memory type")
	ErrSwapchainState    = errors.New("swapchain manager is not in a valid state for this operation")
)

// ErrFrameFatal marks a native failure inside the per-frame protocol. A frame
// that fails this way cannot be recovered without a device reset, which this
// package does not implement; callers are expected to terminate.
var ErrFrameFatal = errors.New("fatal frame failure")

// IsFatal reports whether err came out of the per-frame protocol.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFrameFatal)
}

func frameFatal(err error, step string) error {
	return errors.Mark(errors.Wrapf(err, "frame: %s", step), ErrFrameFatal)
}
