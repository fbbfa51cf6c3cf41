// Package window owns the SDL window the presenter draws into.
package window

import (
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
	"github.com/vkngwrapper/presenter/internal/config"
)

var (
	initOnce sync.Once
	initErr  error
)

func initVideo() error {
	initOnce.Do(func() {
		initErr = sdl.Init(sdl.INIT_VIDEO)
	})
	return initErr
}

// Window is a resizable SDL window with Vulkan support. It must be used
// from the thread that created it.
type Window struct {
	window *sdl.Window
	log    *slog.Logger
}

func Open(log *slog.Logger, cfg config.WindowConfig) (*Window, error) {
	err := initVideo()
	if err != nil {
		return nil, errors.Wrap(err, "init sdl video")
	}

	window, err := sdl.CreateWindow(cfg.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(cfg.Width), int32(cfg.Height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, errors.Wrap(err, "create window")
	}

	return &Window{
		window: window,
		log:    log,
	}, nil
}

// Loader returns the Vulkan global driver loaded through SDL.
func (w *Window) Loader() (core1_0.GlobalDriver, error) {
	driver, err := core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return nil, errors.Wrap(err, "load vulkan")
	}
	return driver, nil
}

// InstanceExtensions are the instance extensions SDL needs to create a
// surface for this window.
func (w *Window) InstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

func (w *Window) CreateSurface(instance core1_0.Instance, surfaceExtension khr_surface.ExtensionDriver) (khr_surface.Surface, error) {
	return vkng_sdl2.CreateSurface(instance, surfaceExtension, w.window)
}

// GetSize is the drawable size in pixels, or zero while the window is
// minimized.
func (w *Window) GetSize() (int, int) {
	width, height := w.window.VulkanGetDrawableSize()
	return drawableSize(int(width), int(height), w.window.GetFlags())
}

func drawableSize(width, height int, flags uint32) (int, int) {
	if flags&sdl.WINDOW_MINIMIZED != 0 {
		return 0, 0
	}
	return width, height
}

// PollEvents drains the event queue. It returns false once the window was
// asked to close.
func (w *Window) PollEvents() bool {
	open := true
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			open = false
		case *sdl.WindowEvent:
			switch e.Event {
			case sdl.WINDOWEVENT_CLOSE:
				open = false
			case sdl.WINDOWEVENT_MINIMIZED, sdl.WINDOWEVENT_RESTORED, sdl.WINDOWEVENT_RESIZED:
				w.log.Debug("window changed", slog.Int("event", int(e.Event)), slog.Int("width", int(e.Data1)), slog.Int("height", int(e.Data2)))
			}
		}
	}
	return open
}

// Close destroys the window and shuts SDL down.
func (w *Window) Close() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	sdl.Quit()
}
