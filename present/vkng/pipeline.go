package vkng

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/presenter/present"
)

// VertexAttribute is one float vector in an interleaved vertex.
type VertexAttribute struct {
	Location   int
	Components int
	Offset     int
}

type PipelineOptions struct {
	// Format is the color attachment format, the chosen surface format.
	Format core1_0.Format

	VertexShader   []byte
	FragmentShader []byte

	VertexStride     int
	VertexAttributes []VertexAttribute

	// UniformBuffer is bound at set 0, binding 0 for the vertex stage. The
	// zero handle means the pipeline has no descriptor set.
	UniformBuffer present.BufferHandle
	UniformSize   int

	// CacheData seeds the pipeline cache. It may be nil.
	CacheData []byte
}

// Pipeline is the render pass and graphics pipeline the frame executor
// draws with, plus what they depend on.
type Pipeline struct {
	RenderPass    present.RenderPassHandle
	Layout        present.PipelineLayoutHandle
	Pipeline      present.PipelineHandle
	DescriptorSet present.DescriptorSetHandle
	BuildTime     time.Duration

	setLayout core1_0.DescriptorSetLayout
	pool      core1_0.DescriptorPool
	cache     core1_0.PipelineCache
}

func attributeFormat(components int) (core1_0.Format, error) {
	switch components {
	case 1:
		return core1_0.FormatR32SignedFloat, nil
	case 2:
		return core1_0.FormatR32G32SignedFloat, nil
	case 3:
		return core1_0.FormatR32G32B32SignedFloat, nil
	case 4:
		return core1_0.FormatR32G32B32A32SignedFloat, nil
	default:
		return core1_0.FormatUndefined, errors.Newf("no format for a %d component attribute", components)
	}
}

func vertexInput(stride int, attributes []VertexAttribute) (*core1_0.PipelineVertexInputStateCreateInfo, error) {
	input := &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions: []core1_0.VertexInputBindingDescription{
			{
				Binding:   0,
				Stride:    stride,
				InputRate: core1_0.VertexInputRateVertex,
			},
		},
	}

	for _, attr := range attributes {
		format, err := attributeFormat(attr.Components)
		if err != nil {
			return nil, errors.Wrapf(err, "location %d", attr.Location)
		}

		input.VertexAttributeDescriptions = append(input.VertexAttributeDescriptions, core1_0.VertexInputAttributeDescription{
			Binding:  0,
			Location: attr.Location,
			Format:   format,
			Offset:   attr.Offset,
		})
	}

	return input, nil
}

// CreatePipeline builds the render pass, the descriptor set for the
// uniform buffer and the graphics pipeline. Viewport and scissor are
// dynamic so the pipeline survives swapchain rebuilds. On failure
// everything created so far is destroyed.
func (d *Device) CreatePipeline(opts PipelineOptions) (*Pipeline, error) {
	start := hrtime.Now()

	p := &Pipeline{}
	err := d.buildPipeline(p, opts)
	if err != nil {
		d.DestroyPipeline(p)
		return nil, err
	}

	p.BuildTime = hrtime.Since(start)
	present.Logger().Info("pipeline built",
		slog.Duration("elapsed", p.BuildTime),
		slog.Int("cacheSeed", len(opts.CacheData)))

	return p, nil
}

func (d *Device) buildPipeline(p *Pipeline, opts PipelineOptions) error {
	input, err := vertexInput(opts.VertexStride, opts.VertexAttributes)
	if err != nil {
		return err
	}

	renderPass, err := d.createRenderPass(opts.Format)
	if err != nil {
		return errors.Wrap(err, "create render pass")
	}
	p.RenderPass = d.renderPasses.add(renderPass)

	var setLayouts []core1_0.DescriptorSetLayout
	if opts.UniformBuffer.Valid() {
		err = d.createDescriptorSet(p, opts.UniformBuffer, opts.UniformSize)
		if err != nil {
			return err
		}
		setLayouts = append(setLayouts, p.setLayout)
	}

	layout, _, err := d.driver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: setLayouts,
	})
	if err != nil {
		return errors.Wrap(err, "create pipeline layout")
	}
	p.Layout = d.layouts.add(layout)

	p.cache, _, err = d.driver.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: opts.CacheData,
	})
	if err != nil {
		return errors.Wrap(err, "create pipeline cache")
	}

	vertShader, err := d.createShaderModule(opts.VertexShader)
	if err != nil {
		return errors.Wrap(err, "vertex shader")
	}
	defer d.driver.DestroyShaderModule(vertShader, nil)

	fragShader, err := d.createShaderModule(opts.FragmentShader)
	if err != nil {
		return errors.Wrap(err, "fragment shader")
	}
	defer d.driver.DestroyShaderModule(fragShader, nil)

	pipelines, _, err := d.driver.CreateGraphicsPipelines(&p.cache, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				{
					Stage:  core1_0.StageVertex,
					Module: vertShader,
					Name:   "main",
				},
				{
					Stage:  core1_0.StageFragment,
					Module: fragShader,
					Name:   "main",
				},
			},
			VertexInputState: input,
			InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
				Topology:               core1_0.PrimitiveTopologyTriangleList,
				PrimitiveRestartEnable: false,
			},
			// placeholders, both are set while recording
			ViewportState: &core1_0.PipelineViewportStateCreateInfo{
				Viewports: []core1_0.Viewport{{Width: 1, Height: 1, MaxDepth: 1}},
				Scissors:  []core1_0.Rect2D{{Extent: core1_0.Extent2D{Width: 1, Height: 1}}},
			},
			RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
				PolygonMode: core1_0.PolygonModeFill,
				CullMode:    core1_0.CullModeNone,
				FrontFace:   core1_0.FrontFaceCounterClockwise,
				LineWidth:   1.0,
			},
			MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
				RasterizationSamples: core1_0.Samples1,
				MinSampleShading:     1.0,
			},
			ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
				LogicOp: core1_0.LogicOpCopy,
				Attachments: []core1_0.PipelineColorBlendAttachmentState{
					{
						ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
					},
				},
			},
			DynamicState: &core1_0.PipelineDynamicStateCreateInfo{
				DynamicStates: []core1_0.DynamicState{core1_0.DynamicStateViewport, core1_0.DynamicStateScissor},
			},
			Layout:            layout,
			RenderPass:        renderPass,
			Subpass:           0,
			BasePipelineIndex: -1,
		},
	)
	if err != nil {
		return errors.Wrap(err, "create graphics pipeline")
	}
	p.Pipeline = d.pipelines.add(pipelines[0])

	return nil
}

// createRenderPass has a single color attachment that enters and leaves
// the pass as a color attachment. The frame's own barriers move it in from
// undefined and out to present.
func (d *Device) createRenderPass(format core1_0.Format) (core1_0.RenderPass, error) {
	renderPass, _, err := d.driver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         format,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutColorAttachmentOptimal,
				FinalLayout:    core1_0.ImageLayoutColorAttachmentOptimal,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstAccessMask: core1_0.AccessColorAttachmentWrite,
			},
		},
	})
	return renderPass, err
}

func (d *Device) createDescriptorSet(p *Pipeline, uniform present.BufferHandle, size int) error {
	buffer, err := d.buffers.get(uniform)
	if err != nil {
		return err
	}

	p.setLayout, _, err = d.driver.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,

				StageFlags: core1_0.StageVertex,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "create descriptor set layout")
	}

	p.pool, _, err = d.driver.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: 1,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "create descriptor pool")
	}

	sets, _, err := d.driver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: p.pool,
		SetLayouts:     []core1_0.DescriptorSetLayout{p.setLayout},
	})
	if err != nil {
		return errors.Wrap(err, "allocate descriptor set")
	}

	err = d.driver.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
		{
			DstSet:          sets[0],
			DstBinding:      0,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeUniformBuffer,

			BufferInfo: []core1_0.DescriptorBufferInfo{
				{
					Buffer: buffer,
					Offset: 0,
					Range:  size,
				},
			},
		},
	}, nil)
	if err != nil {
		return errors.Wrap(err, "update descriptor set")
	}

	p.DescriptorSet = d.descriptorSets.add(sets[0])
	return nil
}

// PipelineCacheData returns what the cache of p holds now, for saving.
func (d *Device) PipelineCacheData(p *Pipeline) ([]byte, error) {
	if !p.cache.Initialized() {
		return nil, nil
	}

	data, _, err := d.driver.GetPipelineCacheData(p.cache)
	return data, err
}

// DestroyPipeline destroys everything CreatePipeline made. The device must
// be idle.
func (d *Device) DestroyPipeline(p *Pipeline) {
	if p == nil {
		return
	}

	if pipeline, ok := d.pipelines.take(p.Pipeline); ok {
		d.driver.DestroyPipeline(pipeline, nil)
	}
	p.Pipeline = 0

	if layout, ok := d.layouts.take(p.Layout); ok {
		d.driver.DestroyPipelineLayout(layout, nil)
	}
	p.Layout = 0

	// the pool frees its sets
	d.descriptorSets.take(p.DescriptorSet)
	p.DescriptorSet = 0
	if p.pool.Initialized() {
		d.driver.DestroyDescriptorPool(p.pool, nil)
		p.pool = core1_0.DescriptorPool{}
	}

	if p.setLayout.Initialized() {
		d.driver.DestroyDescriptorSetLayout(p.setLayout, nil)
		p.setLayout = core1_0.DescriptorSetLayout{}
	}

	if renderPass, ok := d.renderPasses.take(p.RenderPass); ok {
		d.driver.DestroyRenderPass(renderPass, nil)
	}
	p.RenderPass = 0

	if p.cache.Initialized() {
		d.driver.DestroyPipelineCache(p.cache, nil)
		p.cache = core1_0.PipelineCache{}
	}
}
