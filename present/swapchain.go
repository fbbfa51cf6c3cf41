package present

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Swapchain is one generation of the presentable image chain together with
// one view and one framebuffer per image.
type Swapchain struct {
	Handle     SwapchainHandle
	Generation int

	ImageCount   int
	Images       []ImageHandle
	ImageViews   []ImageViewHandle
	Framebuffers []FramebufferHandle

	Format         khr_surface.SurfaceFormat
	PresentMode    khr_surface.PresentMode
	Extent         core1_0.Extent2D
	Transform      khr_surface.SurfaceTransformFlags
	CompositeAlpha khr_surface.CompositeAlphaFlags
}

// ExtentSource supplies the size the caller wants when the surface leaves
// the extent up to the swapchain. Windows implement it with their client
// area size.
type ExtentSource interface {
	GetSize() (width, height int)
}

// SwapchainOptions are fixed for the lifetime of a SwapchainManager.
type SwapchainOptions struct {
	RenderPass    RenderPassHandle
	Format        khr_surface.SurfaceFormat
	QueueFamilies QueueFamilies
	Window        ExtentSource
}

// CreateSwapchain builds a complete generation. previous is the generation
// being replaced, or the null handle. On failure everything created here is
// destroyed again and nil is returned.
func CreateSwapchain(driver SwapchainDriver, opts SwapchainOptions, requested core1_0.Extent2D, previous SwapchainHandle) (*Swapchain, error) {
	caps, err := driver.SurfaceCapabilities()
	if err != nil {
		return nil, errors.Wrap(err, "query surface capabilities")
	}

	modes, err := driver.SurfacePresentModes()
	if err != nil {
		return nil, errors.Wrap(err, "query present modes")
	}

	sc := &Swapchain{
		ImageCount:     chooseImageCount(caps),
		Format:         opts.Format,
		PresentMode:    ChoosePresentMode(modes),
		Extent:         chooseExtent(caps, requested),
		Transform:      caps.CurrentTransform,
		CompositeAlpha: chooseCompositeAlpha(caps),
	}

	sc.Handle, err = driver.CreateSwapchain(SwapchainCreateInfo{
		ImageCount:     sc.ImageCount,
		Format:         sc.Format,
		Extent:         sc.Extent,
		Transform:      sc.Transform,
		CompositeAlpha: sc.CompositeAlpha,
		PresentMode:    sc.PresentMode,
		QueueFamilies:  opts.QueueFamilies,
		OldSwapchain:   previous,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create swapchain")
	}

	err = sc.populate(driver, opts.RenderPass)
	if err != nil {
		DestroySwapchain(driver, sc)
		return nil, err
	}

	return sc, nil
}

func (sc *Swapchain) populate(driver SwapchainDriver, renderPass RenderPassHandle) error {
	images, err := driver.SwapchainImages(sc.Handle)
	if err != nil {
		return errors.Wrap(err, "get swapchain images")
	}
	if len(images) == 0 {
		return errors.New("swapchain returned no images")
	}

	sc.Images = images
	sc.ImageCount = len(images)

	for _, image := range images {
		view, err := driver.CreateImageView(image, sc.Format.Format)
		if err != nil {
			return errors.Wrap(err, "create swapchain image view")
		}
		sc.ImageViews = append(sc.ImageViews, view)
	}

	for _, view := range sc.ImageViews {
		framebuffer, err := driver.CreateFramebuffer(renderPass, view, sc.Extent)
		if err != nil {
			return errors.Wrap(err, "create swapchain framebuffer")
		}
		sc.Framebuffers = append(sc.Framebuffers, framebuffer)
	}

	return nil
}

// DestroySwapchain destroys framebuffers, then image views, then the chain
// itself. The images belong to the chain and are not destroyed separately.
func DestroySwapchain(driver SwapchainDriver, sc *Swapchain) {
	if sc == nil {
		return
	}

	for _, framebuffer := range sc.Framebuffers {
		if framebuffer.Valid() {
			driver.DestroyFramebuffer(framebuffer)
		}
	}
	sc.Framebuffers = nil

	for _, view := range sc.ImageViews {
		if view.Valid() {
			driver.DestroyImageView(view)
		}
	}
	sc.ImageViews = nil

	if sc.Handle.Valid() {
		driver.DestroySwapchain(sc.Handle)
		sc.Handle = 0
	}
	sc.Images = nil
}

// SwapchainState is the lifecycle state of a SwapchainManager.
type SwapchainState int

const (
	SwapchainUninitialized SwapchainState = iota
	SwapchainLive
	SwapchainResizing
	SwapchainDestroyed
)

func (s SwapchainState) String() string {
	switch s {
	case SwapchainUninitialized:
		return "uninitialized"
	case SwapchainLive:
		return "live"
	case SwapchainResizing:
		return "resizing"
	case SwapchainDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// SwapchainManager owns the live swapchain generation and rebuilds it when
// the surface extent changes. It is not safe for concurrent use.
type SwapchainManager struct {
	driver SwapchainDriver
	opts   SwapchainOptions

	state    SwapchainState
	live     *Swapchain
	retiring []*Swapchain

	generations int
	rebuilds    int
}

func NewSwapchainManager(driver SwapchainDriver, opts SwapchainOptions) *SwapchainManager {
	return &SwapchainManager{
		driver: driver,
		opts:   opts,
	}
}

// Create builds the first generation.
func (m *SwapchainManager) Create(requested core1_0.Extent2D) (*Swapchain, error) {
	if m.state != SwapchainUninitialized {
		return nil, errors.Wrapf(ErrSwapchainState, "create in state %s", m.state)
	}

	sc, err := CreateSwapchain(m.driver, m.opts, requested, 0)
	if err != nil {
		return nil, err
	}

	m.adopt(sc)
	m.state = SwapchainLive
	return sc, nil
}

func (m *SwapchainManager) adopt(sc *Swapchain) {
	m.generations++
	sc.Generation = m.generations
	m.live = sc

	Logger().Info("swapchain generation created",
		slog.Int("generation", sc.Generation),
		slog.Int("images", sc.ImageCount),
		slog.Int("width", sc.Extent.Width),
		slog.Int("height", sc.Extent.Height),
		slog.String("presentMode", sc.PresentMode.String()))
}

// Current returns the live generation, or nil before Create and after
// Destroy.
func (m *SwapchainManager) Current() *Swapchain {
	if m.state != SwapchainLive {
		return nil
	}
	return m.live
}

func (m *SwapchainManager) State() SwapchainState {
	return m.state
}

// Rebuilds is the number of successful resizes so far.
func (m *SwapchainManager) Rebuilds() int {
	return m.rebuilds
}

// TryResize rebuilds the swapchain if the surface extent no longer matches
// the live generation and reports whether it did. When the rebuild fails
// the old generation stays live and valid. A failed idle wait after a
// rebuild is marked with ErrFrameFatal.
func (m *SwapchainManager) TryResize() (bool, error) {
	if m.state != SwapchainLive {
		return false, errors.Wrapf(ErrSwapchainState, "resize in state %s", m.state)
	}

	caps, err := m.driver.SurfaceCapabilities()
	if err != nil {
		return false, errors.Wrap(err, "query surface capabilities")
	}

	target := chooseExtent(caps, m.requestedExtent())
	if target.Width == 0 || target.Height == 0 || target == m.live.Extent {
		return false, nil
	}

	m.state = SwapchainResizing
	old := m.live

	next, err := CreateSwapchain(m.driver, m.opts, target, old.Handle)
	if err != nil {
		m.state = SwapchainLive
		Logger().Warn("swapchain rebuild failed, keeping previous generation",
			slog.Int("generation", old.Generation),
			slog.Any("error", err))
		return false, err
	}

	m.adopt(next)
	m.rebuilds++
	m.state = SwapchainLive

	m.retiring = append(m.retiring, old)

	err = m.driver.WaitIdle()
	if err != nil {
		// Retiring generations may still be in use; leave them for the next
		// successful idle or for Destroy.
		return true, frameFatal(err, "wait for device idle before retiring swapchain")
	}

	m.retire()
	return true, nil
}

// retire destroys every generation waiting to be retired. The device must
// be idle.
func (m *SwapchainManager) retire() {
	for _, sc := range m.retiring {
		generation := sc.Generation
		DestroySwapchain(m.driver, sc)
		Logger().Debug("swapchain generation retired", slog.Int("generation", generation))
	}
	m.retiring = nil
}

func (m *SwapchainManager) requestedExtent() core1_0.Extent2D {
	if m.opts.Window == nil {
		return m.live.Extent
	}

	width, height := m.opts.Window.GetSize()
	return core1_0.Extent2D{Width: width, Height: height}
}

// SurfaceHidden reports whether the window currently has no drawable area,
// as when it is minimized. Nothing can be presented until it returns.
func (m *SwapchainManager) SurfaceHidden() bool {
	if m.opts.Window == nil {
		return false
	}

	width, height := m.opts.Window.GetSize()
	return width <= 0 || height <= 0
}

// Destroy tears down every generation the manager still holds. The caller
// must have waited for the device to go idle.
func (m *SwapchainManager) Destroy() {
	if m.state == SwapchainDestroyed {
		return
	}

	m.retire()

	DestroySwapchain(m.driver, m.live)
	m.live = nil

	m.state = SwapchainDestroyed
}
