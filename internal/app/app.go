// Package app wires the window, the Vulkan backend and the scene into the
// presenter's setup sequence and frame loop.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/presenter/internal/config"
	"github.com/vkngwrapper/presenter/internal/mesh"
	"github.com/vkngwrapper/presenter/internal/pipecache"
	"github.com/vkngwrapper/presenter/internal/scene"
	"github.com/vkngwrapper/presenter/internal/window"
	"github.com/vkngwrapper/presenter/present"
	"github.com/vkngwrapper/presenter/present/vkng"
)

// idleDelay throttles the loop while there is nothing to present to.
const idleDelay = 16 * time.Millisecond

// teardown runs cleanups in reverse registration order.
type teardown []func()

func (t *teardown) push(f func()) {
	*t = append(*t, f)
}

func (t teardown) run() {
	for i := len(t) - 1; i >= 0; i-- {
		t[i]()
	}
}

type App struct {
	cfg config.Config
	log *slog.Logger

	assets *assets

	window    *window.Window
	instance  *vkng.Instance
	device    *vkng.Device
	format    khr_surface.SurfaceFormat
	vertices  *present.LinearBuffer
	indices   *present.LinearBuffer
	uniform   *present.LinearBuffer
	pipeline  *vkng.Pipeline
	swapchain *present.SwapchainManager
	executor  *present.FrameExecutor
	scene     *scene.Scene

	cleanup teardown
}

// Run sets everything up, renders until the window is closed or ctx is
// done, and tears everything down again. A nil error means a clean close.
func Run(ctx context.Context, log *slog.Logger, cfg config.Config) error {
	a := &App{
		cfg: cfg,
		log: log,
	}
	defer a.close()

	err := a.setup(ctx)
	if err != nil {
		return err
	}

	return a.loop(ctx)
}

func (a *App) setup(ctx context.Context) error {
	var err error

	a.assets, err = loadAssets(ctx, a.cfg.Assets)
	if err != nil {
		return errors.Wrap(err, "load assets")
	}

	a.window, err = window.Open(a.log, a.cfg.Window)
	if err != nil {
		return err
	}
	a.cleanup.push(a.window.Close)

	err = a.createInstance()
	if err != nil {
		return err
	}

	err = a.createDevice()
	if err != nil {
		return err
	}

	err = a.createBuffers()
	if err != nil {
		return err
	}

	err = a.createPipeline()
	if err != nil {
		return err
	}

	return a.createPresentation()
}

func (a *App) createInstance() error {
	loader, err := a.window.Loader()
	if err != nil {
		return err
	}

	version, err := a.cfg.Vulkan.Version()
	if err != nil {
		return err
	}

	a.instance, err = vkng.NewInstance(loader, vkng.InstanceOptions{
		ApplicationName: a.cfg.Window.Title,
		APIVersion:      version,
		Extensions:      a.window.InstanceExtensions(),
		Layers:          a.cfg.Vulkan.InstanceLayers(),
		DebugMessenger:  a.cfg.Vulkan.Validation,
	})
	if err != nil {
		return err
	}
	a.cleanup.push(a.instance.Destroy)

	return a.instance.AttachSurface(a.window)
}

func (a *App) createDevice() error {
	version, err := a.cfg.Vulkan.Version()
	if err != nil {
		return err
	}

	selection, err := present.SelectDevice(a.instance, a.instance, present.DeviceRequirements{
		MinAPIVersion: version,
		Layers:        a.cfg.Vulkan.DeviceLayers,
		Extensions:    a.cfg.Vulkan.DeviceExtensions,
	})
	if err != nil {
		return err
	}

	a.device, err = vkng.NewDevice(a.instance, selection, a.cfg.Vulkan.DeviceLayers, a.cfg.Vulkan.DeviceExtensions)
	if err != nil {
		return err
	}
	a.cleanup.push(a.device.Destroy)

	a.format, err = present.QuerySurfaceFormat(a.device)
	return err
}

func (a *App) createBuffers() error {
	m := a.assets.mesh

	var err error
	a.vertices, err = a.createBuffer(m.VertexSize(), present.BufferUsageVertex, m.Vertices)
	if err != nil {
		return errors.Wrap(err, "vertex buffer")
	}

	a.indices, err = a.createBuffer(m.IndexSize(), present.BufferUsageIndex, m.Indices)
	if err != nil {
		return errors.Wrap(err, "index buffer")
	}

	a.uniform, err = a.createBuffer(scene.UniformSize, present.BufferUsageUniform, scene.Uniform{})
	if err != nil {
		return errors.Wrap(err, "uniform buffer")
	}

	return nil
}

func (a *App) createBuffer(size int, usage present.BufferUsage, data any) (*present.LinearBuffer, error) {
	b, err := present.CreateLinearBuffer(a.device, size, usage)
	if b != nil {
		a.cleanup.push(b.Destroy)
	}
	if err != nil {
		return nil, err
	}

	return b, b.Write(0, data)
}

func (a *App) createPipeline() error {
	var cacheData []byte
	if a.cfg.Render.PipelineCache != "" {
		var err error
		cacheData, err = pipecache.Load(a.log, a.cfg.Render.PipelineCache, a.device.CacheIdentity())
		if err != nil {
			return err
		}
	}

	var err error
	a.pipeline, err = a.device.CreatePipeline(vkng.PipelineOptions{
		Format:           a.format.Format,
		VertexShader:     a.assets.vertexShader,
		FragmentShader:   a.assets.fragmentShader,
		VertexStride:     mesh.Stride,
		VertexAttributes: vertexAttributes(),
		UniformBuffer:    a.uniform.Buffer,
		UniformSize:      scene.UniformSize,
		CacheData:        cacheData,
	})
	if err != nil {
		return err
	}

	a.cleanup.push(func() {
		a.savePipelineCache()
		a.device.DestroyPipeline(a.pipeline)
	})
	return nil
}

func (a *App) savePipelineCache() {
	path := a.cfg.Render.PipelineCache
	if path == "" {
		return
	}

	data, err := a.device.PipelineCacheData(a.pipeline)
	if err == nil {
		err = pipecache.Save(path, data)
	}
	if err != nil {
		a.log.Warn("pipeline cache not saved", slog.String("path", path), slog.Any("error", err))
	}
}

func (a *App) createPresentation() error {
	a.swapchain = present.NewSwapchainManager(a.device, present.SwapchainOptions{
		RenderPass:    a.pipeline.RenderPass,
		Format:        a.format,
		QueueFamilies: a.device.QueueFamilies(),
		Window:        a.window,
	})

	width, height := a.window.GetSize()
	sc, err := a.swapchain.Create(core1_0.Extent2D{Width: width, Height: height})
	if err != nil {
		return err
	}
	a.cleanup.push(a.swapchain.Destroy)

	a.executor, err = present.NewFrameExecutor(a.device, present.FrameConfig{
		GraphicsQueue:  a.device.GraphicsQueue(),
		PresentQueue:   a.device.PresentQueue(),
		GraphicsFamily: a.device.QueueFamilies().Graphics,
		RenderPass:     a.pipeline.RenderPass,
		Pipeline:       a.pipeline.Pipeline,
		ClearColor:     a.cfg.Render.ClearColor,
	})
	if err != nil {
		return err
	}
	a.cleanup.push(a.executor.Destroy)

	a.scene = scene.New(sc.Extent.Width, sc.Extent.Height)
	return nil
}

func (a *App) resized(sc *present.Swapchain) error {
	a.scene.Resize(sc.Extent.Width, sc.Extent.Height)
	a.log.Debug("scene resized", slog.Int("width", sc.Extent.Width), slog.Int("height", sc.Extent.Height))
	return nil
}

func (a *App) draw(rec present.Recorder, sc *present.Swapchain) error {
	// the previous frame is complete, so the uniform is not in use
	err := a.uniform.Write(0, a.scene.Now())
	if err != nil {
		return errors.Wrap(err, "write uniform")
	}

	err = rec.BindVertexBuffer(a.vertices)
	if err != nil {
		return err
	}
	err = rec.BindIndexBuffer(a.indices)
	if err != nil {
		return err
	}
	rec.BindDescriptorSet(a.pipeline.Layout, a.pipeline.DescriptorSet)
	rec.DrawIndexed(len(a.assets.mesh.Indices))
	return nil
}

func (a *App) loop(ctx context.Context) error {
	interval := uint64(a.cfg.Render.StatsInterval)

	for a.window.PollEvents() {
		if ctx.Err() != nil {
			a.log.Info("shutting down", slog.Any("reason", context.Cause(ctx)))
			break
		}

		err := a.executor.Execute(a.swapchain, a.resized, a.draw)
		if err != nil {
			return err
		}

		if a.swapchain.SurfaceHidden() {
			time.Sleep(idleDelay)
			continue
		}

		stats := a.executor.Stats()
		if interval > 0 && stats.Frames > 0 && stats.Frames%interval == 0 {
			a.log.Info("frame stats",
				slog.Uint64("frames", stats.Frames),
				slog.Uint64("skipped", stats.Skipped),
				slog.Uint64("resizes", stats.Resizes),
				slog.Duration("average", stats.Average()),
				slog.Duration("last", stats.LastFrame))
		}
	}

	return nil
}

// close waits for the device to go idle and releases everything in
// reverse creation order.
func (a *App) close() {
	if a.device != nil {
		err := a.device.WaitIdle()
		if err != nil {
			a.log.Warn("wait for device idle", slog.Any("error", err))
		}
	}

	a.cleanup.run()
	a.cleanup = nil
}
