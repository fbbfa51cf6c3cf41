package present

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// FrameConfig is the fixed state a FrameExecutor renders with.
type FrameConfig struct {
	GraphicsQueue  QueueHandle
	PresentQueue   QueueHandle
	GraphicsFamily int

	RenderPass RenderPassHandle
	Pipeline   PipelineHandle
	ClearColor [4]float32
}

// Recorder is handed to the draw callback while the render pass is open.
// It records into the frame's command buffer only.
type Recorder struct {
	driver CommandRecorder
	cb     CommandBufferHandle
}

func (r Recorder) BindPipeline(pipeline PipelineHandle) {
	r.driver.CmdBindPipeline(r.cb, pipeline)
}

func (r Recorder) BindVertexBuffer(buffer *LinearBuffer) error {
	if buffer == nil {
		return errors.New("bind vertex buffer: nil buffer")
	}
	r.driver.CmdBindVertexBuffer(r.cb, buffer.Buffer)
	return nil
}

func (r Recorder) BindIndexBuffer(buffer *LinearBuffer) error {
	if buffer == nil {
		return errors.New("bind index buffer: nil buffer")
	}
	r.driver.CmdBindIndexBuffer(r.cb, buffer.Buffer)
	return nil
}

func (r Recorder) BindDescriptorSet(layout PipelineLayoutHandle, set DescriptorSetHandle) {
	r.driver.CmdBindDescriptorSet(r.cb, layout, set)
}

func (r Recorder) Draw(vertexCount int) {
	r.driver.CmdDraw(r.cb, vertexCount, 1)
}

func (r Recorder) DrawIndexed(indexCount int) {
	r.driver.CmdDrawIndexed(r.cb, indexCount, 1)
}

// DrawFunc records the per-draw bindings and draw calls of one frame. The
// pipeline is already bound when it runs.
type DrawFunc func(rec Recorder, sc *Swapchain) error

// ResizeFunc is called after the swapchain was rebuilt and before anything
// of the frame is recorded.
type ResizeFunc func(sc *Swapchain) error

type FrameStats struct {
	Frames    uint64
	Skipped   uint64
	Resizes   uint64
	LastFrame time.Duration
	Total     time.Duration
}

// Average is the mean duration of the rendered frames.
func (s FrameStats) Average() time.Duration {
	if s.Frames == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Frames)
}

// FrameExecutor runs the per-frame protocol with a single pair of
// semaphores, one transient command pool and one command buffer. There is
// never more than one frame in flight.
type FrameExecutor struct {
	driver FrameDriver
	cfg    FrameConfig

	imageAvailable SemaphoreHandle
	renderFinished SemaphoreHandle
	pool           CommandPoolHandle
	cb             CommandBufferHandle

	stats FrameStats
}

// NewFrameExecutor creates the synchronization primitives and the command
// pool. On failure whatever was created is destroyed again.
func NewFrameExecutor(driver FrameDriver, cfg FrameConfig) (*FrameExecutor, error) {
	e := &FrameExecutor{
		driver: driver,
		cfg:    cfg,
	}

	err := e.init()
	if err != nil {
		e.Destroy()
		return nil, err
	}

	return e, nil
}

func (e *FrameExecutor) init() error {
	var err error

	e.imageAvailable, err = e.driver.CreateSemaphore()
	if err != nil {
		return errors.Wrap(err, "create image available semaphore")
	}

	e.renderFinished, err = e.driver.CreateSemaphore()
	if err != nil {
		return errors.Wrap(err, "create render finished semaphore")
	}

	e.pool, err = e.driver.CreateCommandPool(e.cfg.GraphicsFamily)
	if err != nil {
		return errors.Wrap(err, "create command pool")
	}

	e.cb, err = e.driver.AllocateCommandBuffer(e.pool)
	if err != nil {
		return errors.Wrap(err, "allocate command buffer")
	}

	return nil
}

func (e *FrameExecutor) Stats() FrameStats {
	return e.stats
}

// Execute runs one iteration of the frame protocol against the manager's
// live swapchain. A rebuild failure is logged and the frame continues with
// the previous generation. Every error returned is marked with
// ErrFrameFatal.
func (e *FrameExecutor) Execute(swapchains *SwapchainManager, resized ResizeFunc, draw DrawFunc) error {
	start := hrtime.Now()

	if swapchains.SurfaceHidden() {
		e.stats.Skipped++
		return nil
	}

	// 1. resize
	ok, err := swapchains.TryResize()
	if IsFatal(err) {
		return err
	}
	if err != nil {
		Logger().Warn("swapchain resize failed", slog.Any("error", err))
	}
	sc := swapchains.Current()
	if sc == nil {
		return frameFatal(errors.Wrapf(ErrSwapchainState, "no live swapchain in state %s", swapchains.State()), "resize")
	}
	if ok {
		e.stats.Resizes++
		if resized != nil {
			err = resized(sc)
			if err != nil {
				return frameFatal(err, "recompute after resize")
			}
		}
	}

	err = e.Render(sc, draw)
	if err != nil {
		return err
	}

	e.stats.LastFrame = hrtime.Since(start)
	e.stats.Total += e.stats.LastFrame
	return nil
}

// Render runs steps 2 to 10 of the frame protocol against sc.
func (e *FrameExecutor) Render(sc *Swapchain, draw DrawFunc) error {
	d := e.driver

	// 2. acquire
	imageIndex, err := d.AcquireNextImage(sc.Handle, e.imageAvailable)
	if err != nil {
		return frameFatal(err, "acquire next image")
	}
	if imageIndex < 0 || imageIndex >= sc.ImageCount {
		return frameFatal(errors.Newf("image index %d out of range [0,%d)", imageIndex, sc.ImageCount), "acquire next image")
	}

	// 3. record
	err = d.ResetCommandPool(e.pool)
	if err != nil {
		return frameFatal(err, "reset command pool")
	}

	err = d.BeginCommandBuffer(e.cb)
	if err != nil {
		return frameFatal(err, "begin command buffer")
	}

	// 4. to attachment
	err = d.CmdPipelineBarrier(e.cb, ImageBarrier{
		Image:     sc.Images[imageIndex],
		OldLayout: core1_0.ImageLayoutUndefined,
		NewLayout: core1_0.ImageLayoutColorAttachmentOptimal,
		SrcStage:  core1_0.PipelineStageColorAttachmentOutput,
		DstStage:  core1_0.PipelineStageColorAttachmentOutput,
		DstAccess: core1_0.AccessColorAttachmentWrite,
		ByRegion:  true,
	})
	if err != nil {
		return frameFatal(err, "barrier to color attachment")
	}

	// 5. render pass
	area := core1_0.Rect2D{Extent: sc.Extent}
	err = d.CmdBeginRenderPass(e.cb, e.cfg.RenderPass, sc.Framebuffers[imageIndex], area, core1_0.ClearValueFloat(e.cfg.ClearColor))
	if err != nil {
		return frameFatal(err, "begin render pass")
	}

	d.CmdSetViewport(e.cb, FlippedViewport(sc.Extent))
	d.CmdSetScissor(e.cb, area)

	rec := Recorder{driver: d, cb: e.cb}
	rec.BindPipeline(e.cfg.Pipeline)
	if draw != nil {
		err = draw(rec, sc)
		if err != nil {
			return frameFatal(err, "draw")
		}
	}

	d.CmdEndRenderPass(e.cb)

	// 6. to present
	err = d.CmdPipelineBarrier(e.cb, ImageBarrier{
		Image:     sc.Images[imageIndex],
		OldLayout: core1_0.ImageLayoutColorAttachmentOptimal,
		NewLayout: khr_swapchain.ImageLayoutPresentSrc,
		SrcStage:  core1_0.PipelineStageColorAttachmentOutput,
		DstStage:  core1_0.PipelineStageBottomOfPipe,
		SrcAccess: core1_0.AccessColorAttachmentWrite,
		ByRegion:  true,
	})
	if err != nil {
		return frameFatal(err, "barrier to present")
	}

	// 7.
	err = d.EndCommandBuffer(e.cb)
	if err != nil {
		return frameFatal(err, "end command buffer")
	}

	// 8.
	err = d.QueueSubmit(e.cfg.GraphicsQueue, SubmitInfo{
		WaitSemaphore:   e.imageAvailable,
		WaitStage:       core1_0.PipelineStageColorAttachmentOutput,
		CommandBuffer:   e.cb,
		SignalSemaphore: e.renderFinished,
	})
	if err != nil {
		return frameFatal(err, "queue submit")
	}

	// 9.
	err = d.QueuePresent(e.cfg.PresentQueue, PresentInfo{
		WaitSemaphore: e.renderFinished,
		Swapchain:     sc.Handle,
		ImageIndex:    imageIndex,
	})
	if err != nil {
		return frameFatal(err, "queue present")
	}

	// 10. one frame in flight
	err = d.WaitIdle()
	if err != nil {
		return frameFatal(err, "wait idle")
	}

	e.stats.Frames++
	return nil
}

// FlippedViewport covers extent with the origin at the bottom and a negative
// height so shaders see a top-left origin with Y pointing down the screen.
func FlippedViewport(extent core1_0.Extent2D) core1_0.Viewport {
	return core1_0.Viewport{
		X:        0,
		Y:        float32(extent.Height),
		Width:    float32(extent.Width),
		Height:   -float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

// Destroy releases the command pool and semaphores. The device must be
// idle.
func (e *FrameExecutor) Destroy() {
	if e.pool.Valid() {
		// freeing the pool frees the command buffer with it
		e.driver.DestroyCommandPool(e.pool)
		e.pool = 0
		e.cb = 0
	}
	if e.renderFinished.Valid() {
		e.driver.DestroySemaphore(e.renderFinished)
		e.renderFinished = 0
	}
	if e.imageAvailable.Valid() {
		e.driver.DestroySemaphore(e.imageAvailable)
		e.imageAvailable = 0
	}
}
