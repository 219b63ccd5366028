package renderer

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/jdg534/Dx12Eng/internal/gfxerr"
	"github.com/jdg534/Dx12Eng/internal/mesh"
	"github.com/jdg534/Dx12Eng/internal/shader"
)

func vertexBindings() []core1_0.VertexInputBindingDescription {
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    mesh.Stride,
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

// vertexAttributes is the two-attribute input layout: position then colour.
func vertexAttributes() []core1_0.VertexInputAttributeDescription {
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   mesh.PositionOffset,
		},
		{
			Binding:  0,
			Location: 1,
			Format:   core1_0.FormatR32G32B32A32SignedFloat,
			Offset:   mesh.ColorOffset,
		},
	}
}

// createRenderPass clears the back buffer on load and hands it back ready to
// present, which stands in for the present/render-target barriers.
func (r *Renderer) createRenderPass() error {
	renderPass, _, err := r.deviceDriver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         r.format,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
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
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.PipelineCreationFailed, "create render pass")
	}
	r.renderPass = renderPass
	return nil
}

// createPipeline builds the empty layout and the graphics pipeline for
// program. Viewport and scissor cover the whole back buffer and are baked in.
func (r *Renderer) createPipeline(program *shader.Program) error {
	module, _, err := r.deviceDriver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: program.Code(),
	})
	if err != nil {
		return gfxerr.Wrapf(err, gfxerr.PipelineCreationFailed, "create shader module %s", program.Name)
	}
	defer r.deviceDriver.DestroyShaderModule(module, nil)

	r.pipelineLayout, _, err = r.deviceDriver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{})
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.PipelineCreationFailed, "create pipeline layout")
	}

	pipelines, _, err := r.deviceDriver.CreateGraphicsPipelines(nil, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				{
					Stage:  core1_0.StageVertex,
					Module: module,
					Name:   program.VertexEntry,
				},
				{
					Stage:  core1_0.StageFragment,
					Module: module,
					Name:   program.PixelEntry,
				},
			},
			VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{
				VertexBindingDescriptions:   vertexBindings(),
				VertexAttributeDescriptions: vertexAttributes(),
			},
			InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
				Topology:               core1_0.PrimitiveTopologyTriangleList,
				PrimitiveRestartEnable: false,
			},
			ViewportState: &core1_0.PipelineViewportStateCreateInfo{
				Viewports: []core1_0.Viewport{
					{
						X:        0,
						Y:        0,
						Width:    float32(r.extent.Width),
						Height:   float32(r.extent.Height),
						MinDepth: 0,
						MaxDepth: 1,
					},
				},
				Scissors: []core1_0.Rect2D{
					{
						Offset: core1_0.Offset2D{X: 0, Y: 0},
						Extent: r.extent,
					},
				},
			},
			// the vertex shader flips y, so screen winding matches the
			// clockwise front faces the geometry is authored with
			RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
				DepthClampEnable:        false,
				RasterizerDiscardEnable: false,

				PolygonMode: core1_0.PolygonModeFill,
				CullMode:    core1_0.CullModeBack,
				FrontFace:   core1_0.FrontFaceClockwise,

				DepthBiasEnable: false,

				LineWidth: 1.0,
			},
			MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
				SampleShadingEnable:  false,
				RasterizationSamples: core1_0.Samples1,
				MinSampleShading:     1.0,
			},
			ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
				LogicOpEnabled: false,
				LogicOp:        core1_0.LogicOpCopy,

				BlendConstants: [4]float32{0, 0, 0, 0},
				Attachments: []core1_0.PipelineColorBlendAttachmentState{
					{
						BlendEnabled:   false,
						ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
					},
				},
			},
			Layout:            r.pipelineLayout,
			RenderPass:        r.renderPass,
			Subpass:           0,
			BasePipelineIndex: -1,
		},
	)
	if err != nil {
		return gfxerr.Wrapf(err, gfxerr.PipelineCreationFailed, "create pipeline for %s", program.Name)
	}
	r.pipeline = pipelines[0]
	return nil
}
