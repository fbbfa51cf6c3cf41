/*
Package present is a minimal real-time presentation core: it negotiates
instance and device capabilities, selects a physical device and its graphics
and present queue families, chooses a surface format and present mode, owns
the swapchain generations that back the window, and drives the per-frame
acquire, record, submit and present protocol.

The package never talks to the graphics API directly. Native objects are
referenced through small copyable handles (SwapchainHandle, ImageHandle, ...)
and every native operation goes through one of the driver interfaces declared
in driver.go. Package present/vkng implements those interfaces on top of
vkngwrapper; tests use an in-memory fake.

The model is deliberately small: one graphics queue, one present queue, one
render target chain and one frame in flight. All calls must be made from the
thread that owns the device.
*/
package present
